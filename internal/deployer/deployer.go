// Package deployer submits the token's contract-creation transaction and
// waits for it to be mined.
package deployer

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/pendergraft/tokenlaunch/internal/chains"
	"github.com/pendergraft/tokenlaunch/internal/chains/evm"
	"github.com/pendergraft/tokenlaunch/internal/release"
	"github.com/pendergraft/tokenlaunch/internal/token"
)

const (
	// DefaultConfirmTimeout bounds the wait for the creation receipt.
	DefaultConfirmTimeout = 5 * time.Minute
	// DefaultGasLimitBuffer is added on top of the node's gas estimate, in percent.
	DefaultGasLimitBuffer = 10
)

// Backend is the node connection the deployer needs.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
}

// ArtifactFinder resolves a contract identifier to its compiled artifact.
// chains.Builder implementations satisfy it.
type ArtifactFinder interface {
	Find(dir string, contractName string) (*chains.Artifact, error)
}

// Config configures a Deployer.
type Config struct {
	// PrivateKey is the hex-encoded signing key, with or without 0x
	PrivateKey string
	// ChainID, when set, must match the node's chain id
	ChainID        *big.Int
	ProjectDir     string
	ConfirmTimeout time.Duration
	GasLimitBuffer int
}

// Deployer implements release.Deployer on an EVM chain.
type Deployer struct {
	backend   Backend
	artifacts ArtifactFinder
	cfg       Config
	key       *ecdsa.PrivateKey
	from      common.Address
	logger    *slog.Logger
}

// New creates a Deployer. It fails if the private key cannot be parsed.
func New(backend Backend, artifacts ArtifactFinder, cfg Config, logger *slog.Logger) (*Deployer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = DefaultConfirmTimeout
	}
	if cfg.GasLimitBuffer < 0 {
		cfg.GasLimitBuffer = 0
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return &Deployer{
		backend:   backend,
		artifacts: artifacts,
		cfg:       cfg,
		key:       key,
		from:      crypto.PubkeyToAddress(key.PublicKey),
		logger:    logger,
	}, nil
}

// From returns the deployer account address.
func (d *Deployer) From() common.Address {
	return d.from
}

// Dial connects to an RPC endpoint.
func Dial(ctx context.Context, rpcURL string) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, &release.InfrastructureError{Op: "connecting to RPC", Err: err}
	}
	return client, nil
}

// Deploy resolves the artifact, submits the creation transaction with the
// request's constructor arguments and blocks until it is mined or
// ConfirmTimeout elapses.
func (d *Deployer) Deploy(ctx context.Context, req *token.DeploymentRequest) (*release.DeploymentResult, error) {
	artifact, err := d.artifacts.Find(d.cfg.ProjectDir, req.Contract())
	if err != nil {
		return nil, &release.DeploymentError{Stage: "resolve", Err: err}
	}
	bytecode := common.FromHex(artifact.EVM.Bytecode)
	if len(bytecode) == 0 {
		return nil, &release.DeploymentError{Stage: "resolve", Err: fmt.Errorf("%s has no creation bytecode", req.Contract())}
	}

	parsed, err := evm.ParseABI(artifact.EVM.ABI)
	if err != nil {
		return nil, &release.DeploymentError{Stage: "resolve", Err: err}
	}
	args := req.ConstructorArgs()
	packed, err := evm.PackConstructor(parsed, args...)
	if err != nil {
		return nil, &release.DeploymentError{Stage: "encode", Err: fmt.Errorf("%w: %v", release.ErrConstructorMismatch, err)}
	}

	chainID, err := d.backend.ChainID(ctx)
	if err != nil {
		return nil, &release.InfrastructureError{Op: "reading chain id", Err: err}
	}
	if d.cfg.ChainID != nil && d.cfg.ChainID.Sign() > 0 && d.cfg.ChainID.Cmp(chainID) != 0 {
		return nil, &release.InfrastructureError{
			Op:  "checking chain id",
			Err: fmt.Errorf("node reports chain %s, configured %s", chainID, d.cfg.ChainID),
		}
	}

	auth, err := bind.NewKeyedTransactorWithChainID(d.key, chainID)
	if err != nil {
		return nil, &release.InfrastructureError{Op: "creating transactor", Err: err}
	}
	auth.Context = ctx

	gasLimit, err := d.estimateGasLimit(ctx, slices.Concat(bytecode, packed))
	if err != nil {
		return nil, &release.DeploymentError{Stage: "submit", Err: err}
	}
	auth.GasLimit = gasLimit

	address, tx, _, err := bind.DeployContract(auth, parsed, bytecode, d.backend, args...)
	if err != nil {
		return nil, &release.DeploymentError{Stage: "submit", Err: err}
	}

	d.logger.Info("deployment transaction submitted",
		slog.String("contract", req.Contract()),
		slog.String("tx_hash", tx.Hash().Hex()),
		slog.String("from", d.from.Hex()),
		slog.Uint64("gas_limit", gasLimit),
	)

	receipt, err := d.waitMined(ctx, tx)
	if err != nil {
		return nil, err
	}

	code, err := d.backend.CodeAt(ctx, receipt.ContractAddress, nil)
	if err != nil {
		return nil, &release.InfrastructureError{Op: "reading deployed code", Err: err}
	}
	if len(code) == 0 {
		return nil, &release.DeploymentError{Stage: "confirm", Err: fmt.Errorf("no code at address %s", receipt.ContractAddress.Hex())}
	}
	if receipt.ContractAddress != address {
		d.logger.Warn("receipt address differs from predicted address",
			slog.String("predicted", address.Hex()),
			slog.String("receipt", receipt.ContractAddress.Hex()),
		)
	}

	d.logger.Info("deployment confirmed",
		slog.String("address", receipt.ContractAddress.Hex()),
		slog.Uint64("block_number", receipt.BlockNumber.Uint64()),
		slog.Uint64("gas_used", receipt.GasUsed),
	)

	return &release.DeploymentResult{
		Address:         receipt.ContractAddress.Hex(),
		TxConfirmed:     true,
		TxHash:          tx.Hash().Hex(),
		DeployerAddress: d.from.Hex(),
		BlockNumber:     receipt.BlockNumber.Uint64(),
		GasUsed:         receipt.GasUsed,
		ChainID:         chainID,
		ConstructorArgs: hex.EncodeToString(packed),
	}, nil
}

func (d *Deployer) estimateGasLimit(ctx context.Context, data []byte) (uint64, error) {
	estimate, err := d.backend.EstimateGas(ctx, ethereum.CallMsg{
		From: d.from,
		Data: data,
	})
	if err != nil {
		return 0, fmt.Errorf("gas estimation failed: %w", err)
	}
	return estimate * uint64(100+d.cfg.GasLimitBuffer) / 100, nil
}

func (d *Deployer) waitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, d.cfg.ConfirmTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, d.backend, tx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &release.InfrastructureError{Op: "waiting for confirmation", Err: ctx.Err()}
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &release.DeploymentError{
				Stage: "confirm",
				Err:   fmt.Errorf("%w: %s not mined within %s", release.ErrUnconfirmed, tx.Hash().Hex(), d.cfg.ConfirmTimeout),
			}
		}
		return nil, &release.DeploymentError{Stage: "confirm", Err: err}
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, &release.DeploymentError{
			Stage: "confirm",
			Err:   fmt.Errorf("transaction %s reverted", tx.Hash().Hex()),
		}
	}
	return receipt, nil
}
