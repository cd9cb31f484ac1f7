package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pendergraft/tokenlaunch/internal/release"
	"github.com/pendergraft/tokenlaunch/internal/token"
)

func createRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Deploy, wait for indexing, then verify (default)",
		Long: `Deploy the token contract, wait for the explorer to index it, then submit
its source for verification.

The wait defaults to 120s and always runs in full. The process exits with
status 1 if either deployment or verification fails; a contract that was
deployed but not verified is still reported with its address.

EXAMPLES:
  # Launch Gold CryptoToken on Polygon
  tokenlaunch run

  # Launch on Amoy with a shorter wait
  tokenlaunch run --network amoy --delay 60s

  # Different constructor arguments
  tokenlaunch run --name "Silver Token" --symbol SLV --decimals 6 --supply 2500
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runLaunch(cmd)
		},
	}

	return cmd
}

func (a *app) runLaunch(cmd *cobra.Command) error {
	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg, a.stderr)

	if err := a.ensurePrivateKey(cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
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

	ledger, closeLedger, err := openLedger(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLedger()

	orchCfg := release.Config{
		Deployer:      dep,
		Verifier:      a.newVerifier(cfg, builder, chainID, logger),
		IndexingDelay: cfg.Pipeline.IndexingDelay,
		Sleep:         a.sleep,
		OnProgress:    a.printProgress,
		Logger:        logger,
	}
	if ledger != nil {
		orchCfg.Recorder = ledger
	}

	logger.Info("launch configured",
		slog.String("network", cfg.Network.Name),
		slog.String("chain_id", chainID.String()),
		slog.String("builder", builder.Name()),
		slog.String("deployer", dep.From().Hex()),
	)

	fmt.Fprintf(a.stdout, "Launching %s (%s) on %s, initial supply %s\n",
		req.Name(), req.Symbol(), cfg.Network.Name, token.FormatUnits(req.InitialSupply(), req.Decimals()))

	out, err := release.NewOrchestrator(orchCfg).Run(ctx, req)
	if err != nil {
		logger.Error("token launch failed",
			slog.String("class", release.Classify(err)),
			slog.String("error", err.Error()),
		)
		a.printFailure(out, err)
		return err
	}

	a.printVerification(out.Verification)
	return nil
}

func (a *app) printProgress(stage release.Stage, message string) {
	switch stage {
	case release.StageDelay:
		fmt.Fprintln(a.stdout, yellow(message))
	default:
		fmt.Fprintln(a.stdout, message)
	}
}

func (a *app) printVerification(vr *release.VerificationResult) {
	if vr == nil {
		return
	}
	fmt.Fprintln(a.stdout)
	switch vr.Status {
	case release.StatusAlreadyVerified:
		fmt.Fprintf(a.stdout, "%s %s was already verified\n", green("✓"), vr.Address)
	default:
		fmt.Fprintf(a.stdout, "%s %s verified\n", green("✓"), vr.Address)
	}
	if vr.GUID != "" {
		fmt.Fprintf(a.stdout, "  GUID: %s\n", vr.GUID)
	}
	if vr.URL != "" {
		fmt.Fprintf(a.stdout, "  %s\n", cyan(vr.URL))
	}
}

func (a *app) printFailure(out *release.Outcome, err error) {
	fmt.Fprintln(a.stdout)
	if out != nil && out.Deployment != nil {
		fmt.Fprintf(a.stdout, "%s %s deployed to %s but not verified\n",
			yellow("!"), out.Request.Contract(), out.Deployment.Address)
		fmt.Fprintf(a.stdout, "  Retry with: tokenlaunch verify --address %s\n", out.Deployment.Address)
		return
	}
	fmt.Fprintf(a.stdout, "%s launch failed (%s error)\n", red("✗"), release.Classify(err))
}

// signalContext cancels on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}
