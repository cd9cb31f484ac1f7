// Package evm provides the EVM chain module for Ethereum and compatible chains.
package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/pendergraft/tokenlaunch/internal/chains"
)

// CodeReader reads runtime code at an address.
type CodeReader interface {
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

// Chain implements the chains.Chain interface for EVM-compatible blockchains
type Chain struct {
	builders []chains.Builder
	reader   CodeReader
}

// NewChain creates a new EVM chain module
func NewChain() *Chain {
	return &Chain{
		builders: []chains.Builder{
			NewFoundryBuilder(),
			NewHardhatBuilder(),
		},
	}
}

// WithCodeReader makes the chain read code through r instead of dialing the RPC URL.
func (c *Chain) WithCodeReader(r CodeReader) *Chain {
	c.reader = r
	return c
}

// Name returns the chain identifier
func (c *Chain) Name() string {
	return "evm"
}

// DisplayName returns a human-readable name
func (c *Chain) DisplayName() string {
	return "Ethereum/EVM"
}

// Builders returns all available builders for this chain
func (c *Chain) Builders() []chains.Builder {
	return c.builders
}

// DetectBuilder detects which builder is used in the given directory
func (c *Chain) DetectBuilder(dir string) (chains.Builder, error) {
	for _, b := range c.builders {
		detected, err := b.Detect(dir)
		if err != nil {
			continue
		}
		if detected {
			return b, nil
		}
	}
	return nil, fmt.Errorf("no EVM builder detected in %s", dir)
}

// VerifyDeployment compares the code at opts.Address with the expected runtime bytecode
func (c *Chain) VerifyDeployment(ctx context.Context, opts chains.VerifyOptions) (*chains.VerifyResult, error) {
	deployed, err := c.GetDeployedBytecode(ctx, opts.RPC, opts.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to get deployed bytecode: %w", err)
	}

	return CompareBytecode(deployed, string(opts.ExpectedCode)), nil
}

// GetDeployedBytecode fetches runtime code with eth_getCode at the latest block
func (c *Chain) GetDeployedBytecode(ctx context.Context, rpc string, address string) ([]byte, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid address: %s", address)
	}

	reader := c.reader
	if reader == nil {
		client, err := ethclient.DialContext(ctx, rpc)
		if err != nil {
			return nil, fmt.Errorf("connecting to %s: %w", rpc, err)
		}
		defer client.Close()
		reader = client
	}

	code, err := reader.CodeAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, fmt.Errorf("eth_getCode: %w", err)
	}
	return code, nil
}
