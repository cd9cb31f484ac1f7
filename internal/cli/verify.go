package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pendergraft/tokenlaunch/internal/chains/evm"
	"github.com/pendergraft/tokenlaunch/internal/deployments"
	"github.com/pendergraft/tokenlaunch/internal/release"
	"github.com/pendergraft/tokenlaunch/internal/validation"
)

func createVerifyCmd(a *app) *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Submit an existing deployment for explorer verification",
		Long: `Submit an already deployed token contract to the block explorer.

The constructor arguments are taken from the same configuration as 'run'
and must match the ones used at deployment. When the run ledger has a
record of the address, its arguments are checked as well.

EXAMPLES:
  tokenlaunch verify --address 0x1234...
  tokenlaunch verify --address 0x1234... --network amoy --accept-already-verified
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runVerify(cmd, address)
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "deployed contract address (required)")
	_ = cmd.MarkFlagRequired("address")

	return cmd
}

func (a *app) runVerify(cmd *cobra.Command, address string) error {
	if err := validation.ValidateAddress(address); err != nil {
		return err
	}

	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg, a.stderr)

	if err := cfg.ValidateVerify(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	req, err := cfg.Request()
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	pushMetrics := startMetrics(cfg, logger)
	defer pushMetrics()

	builder, err := resolveBuilder(cfg)
	if err != nil {
		return err
	}

	backend, err := a.dial(ctx, cfg.Network.RPCURL)
	if err != nil {
		return err
	}
	defer closeBackend(backend)

	chainID, err := resolveChainID(ctx, cfg, backend)
	if err != nil {
		return &release.InfrastructureError{Op: "connecting to network", Err: err}
	}

	// Only a live contract may be handed to the explorer
	code, err := evm.NewChain().WithCodeReader(backend).GetDeployedBytecode(ctx, cfg.Network.RPCURL, address)
	if err != nil {
		return &release.InfrastructureError{Op: "reading contract code", Err: err}
	}
	if len(code) == 0 {
		return &release.DeploymentError{Stage: "confirm", Err: fmt.Errorf("%w: no code at %s", release.ErrUnconfirmed, address)}
	}

	deployment := &release.DeploymentResult{
		Address:     address,
		TxConfirmed: true,
		ChainID:     chainID,
	}

	ledger, closeLedger, err := openLedger(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLedger()

	var runID string
	if ledger != nil {
		run, err := ledger.FindByAddress(ctx, chainID.Int64(), address)
		switch {
		case err == nil:
			runID = run.ID
			deployment.ConstructorArgs = run.ConstructorArgs
			deployment.TxHash = run.TxHash
		case errors.Is(err, deployments.ErrNotFound):
			logger.Debug("address not in ledger", slog.String("address", address))
		default:
			logger.Warn("failed to read ledger", slog.String("error", err.Error()))
		}
	}

	a.printProgress(release.StageVerify, "Verifying "+address+"...")
	verifier := a.newVerifier(cfg, builder, chainID, logger)
	vr, verifyErr := verifier.Verify(ctx, release.VerifyInput{Deployment: deployment, Request: req})

	if ledger != nil && runID != "" {
		if err := ledger.RecordVerification(ctx, runID, vr, verifyErr); err != nil {
			logger.Warn("failed to record verification", slog.String("error", err.Error()))
		}
	}

	if verifyErr != nil {
		logger.Error("contract deployed but not verified",
			slog.String("address", address),
			slog.String("class", release.Classify(verifyErr)),
			slog.String("error", verifyErr.Error()),
		)
		return verifyErr
	}

	a.printVerification(vr)
	return nil
}
