package cli

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pendergraft/tokenlaunch/internal/release"
	"github.com/pendergraft/tokenlaunch/internal/token"
)

func createDeployCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the token contract without verifying it",
		Long: `Deploy the token contract and wait for the creation transaction to be mined.

Verification can be run later with 'tokenlaunch verify --address <address>'.

EXAMPLES:
  tokenlaunch deploy
  tokenlaunch deploy --network amoy --supply 1000
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDeploy(cmd)
		},
	}

	return cmd
}

func (a *app) runDeploy(cmd *cobra.Command) error {
	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg, a.stderr)

	if err := a.ensurePrivateKey(cfg); err != nil {
		return err
	}
	if err := cfg.ValidateDeploy(); err != nil {
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

	dep, err := newDeployer(cfg, backend, builder, chainID, logger)
	if err != nil {
		return err
	}

	a.printProgress(release.StageDeploy, "Deploying "+req.Contract()+"...")
	res, err := dep.Deploy(ctx, req)
	if err != nil {
		logger.Error("deployment failed",
			slog.String("class", release.Classify(err)),
			slog.String("error", err.Error()),
		)
		return err
	}
	if !res.Ready() {
		return &release.DeploymentError{Stage: "confirm", Err: release.ErrUnconfirmed}
	}

	a.printProgress(release.StageDeploy, req.Contract()+" deployed to: "+res.Address)
	fmt.Fprintf(a.stdout, "  Transaction: %s\n", res.TxHash)
	fmt.Fprintf(a.stdout, "  Block:       %d\n", res.BlockNumber)
	fmt.Fprintf(a.stdout, "  Deployer:    %s\n", res.DeployerAddress)
	fmt.Fprintf(a.stdout, "  Supply:      %s %s\n", token.FormatUnits(req.InitialSupply(), req.Decimals()), req.Symbol())

	ledger, closeLedger, err := openLedger(ctx, cfg, logger)
	if err != nil {
		logger.Warn("failed to open ledger", slog.String("error", err.Error()))
		return nil
	}
	defer closeLedger()
	if ledger != nil {
		if err := ledger.RecordDeployment(ctx, uuid.New().String(), req, res); err != nil {
			logger.Warn("failed to record deployment", slog.String("error", err.Error()))
		}
	}
	return nil
}
