package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pendergraft/tokenlaunch/internal/chains"
	"github.com/pendergraft/tokenlaunch/internal/chains/evm"
	"github.com/pendergraft/tokenlaunch/internal/config"
	"github.com/pendergraft/tokenlaunch/internal/deployer"
	"github.com/pendergraft/tokenlaunch/internal/deployments"
	"github.com/pendergraft/tokenlaunch/internal/explorer"
	"github.com/pendergraft/tokenlaunch/internal/observability/metrics"
	"github.com/pendergraft/tokenlaunch/internal/storage"
)

const serviceName = "tokenlaunch"

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
)

// loadConfig resolves configuration and applies the flags that were set.
func (a *app) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return a.loadConfigFrom(cmd, a.opts.configFile)
}

func (a *app) loadConfigFrom(cmd *cobra.Command, configFile string) (*config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{
		ConfigFile: configFile,
		Network:    a.opts.network,
		EnvFile:    a.opts.envFile,
	})
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("rpc") {
		cfg.Network.RPCURL = a.opts.rpcURL
	}
	if flags.Changed("delay") {
		cfg.Pipeline.IndexingDelay = a.opts.delay
	}
	if flags.Changed("project-dir") {
		cfg.ProjectDir = a.opts.projectDir
	}
	if flags.Changed("builder") {
		cfg.Builder = a.opts.builder
	}
	if flags.Changed("contract") {
		cfg.Token.Contract = a.opts.contract
	}
	if flags.Changed("name") {
		cfg.Token.Name = a.opts.name
	}
	if flags.Changed("symbol") {
		cfg.Token.Symbol = a.opts.symbol
	}
	if flags.Changed("decimals") {
		cfg.Token.Decimals = a.opts.decimals
	}
	if flags.Changed("supply") {
		cfg.Token.InitialSupply = a.opts.supply
	}
	if flags.Changed("accept-already-verified") {
		cfg.Explorer.AcceptAlreadyVerified = a.opts.acceptAlreadyVerified
	}
	return cfg, nil
}

func setupLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ensurePrivateKey prompts for the deployer key when none is configured and
// stdin is a terminal.
func (a *app) ensurePrivateKey(cfg *config.Config) error {
	if cfg.Network.PrivateKey != "" || a.stdin == nil {
		return nil
	}

	stdinFd := int(a.stdin.Fd())
	if !term.IsTerminal(stdinFd) {
		return nil
	}

	fmt.Fprintf(a.stderr, "Enter deployer private key for %s: ", cfg.Network.Name)
	byteKey, err := term.ReadPassword(stdinFd)
	fmt.Fprintln(a.stderr)
	if err != nil {
		return fmt.Errorf("failed to read private key: %w", err)
	}
	cfg.Network.PrivateKey = strings.TrimSpace(string(byteKey))
	return nil
}

// resolveBuilder returns the configured builder or detects one in the project dir.
func resolveBuilder(cfg *config.Config) (chains.Builder, error) {
	if cfg.Builder != "" {
		for _, b := range evm.NewChain().Builders() {
			if b.Name() == cfg.Builder {
				return b, nil
			}
		}
		return nil, fmt.Errorf("unknown builder %q (supported: foundry, hardhat)", cfg.Builder)
	}

	_, builder, err := evm.DefaultRegistry().DetectChainAndBuilder(cfg.ProjectDir)
	if err != nil {
		return nil, err
	}
	return builder, nil
}

// resolveChainID returns the configured chain id, asking the node when unset.
func resolveChainID(ctx context.Context, cfg *config.Config, backend deployer.Backend) (*big.Int, error) {
	if cfg.Network.ChainID != 0 {
		return big.NewInt(cfg.Network.ChainID), nil
	}
	id, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading chain id: %w", err)
	}
	return id, nil
}

func newDeployer(cfg *config.Config, backend deployer.Backend, builder chains.Builder, chainID *big.Int, logger *slog.Logger) (*deployer.Deployer, error) {
	return deployer.New(backend, builder, deployer.Config{
		PrivateKey:     cfg.Network.PrivateKey,
		ChainID:        chainID,
		ProjectDir:     cfg.ProjectDir,
		ConfirmTimeout: cfg.Pipeline.ConfirmTimeout,
		GasLimitBuffer: cfg.Pipeline.GasLimitBuffer,
	}, logger)
}

func (a *app) newVerifier(cfg *config.Config, builder chains.Builder, chainID *big.Int, logger *slog.Logger) *explorer.Verifier {
	opts := []explorer.Option{explorer.WithChainID(chainID.Int64())}
	if cfg.Explorer.RequestsPerSecond > 0 {
		opts = append(opts, explorer.WithRateLimit(cfg.Explorer.RequestsPerSecond, 1))
	}
	client := explorer.New(cfg.Explorer.APIURL, cfg.Explorer.APIKey, opts...)

	return explorer.NewVerifier(client, builder, explorer.VerifierConfig{
		ProjectDir:            cfg.ProjectDir,
		PollAttempts:          cfg.Explorer.PollAttempts,
		PollInterval:          cfg.Explorer.PollInterval,
		AcceptAlreadyVerified: cfg.Explorer.AcceptAlreadyVerified,
		BrowserURL:            cfg.Explorer.BrowserURL,
	}, logger).WithSleeper(a.sleep)
}

// openLedger opens the run ledger. It returns a nil service when storage is
// disabled; the returned close func is always safe to call.
func openLedger(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*deployments.Service, func(), error) {
	store, err := storage.New(cfg.Storage, logger)
	if errors.Is(err, storage.ErrDisabled) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, fmt.Errorf("initializing storage: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, func() {}, fmt.Errorf("running migrations: %w", err)
	}

	closeFn := func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close storage", slog.String("error", err.Error()))
		}
	}
	return deployments.NewService(store, cfg.Network.Name), closeFn, nil
}

// startMetrics initializes metrics and returns a func that pushes them.
func startMetrics(cfg *config.Config, logger *slog.Logger) func() {
	metrics.Init(cfg.Metrics.Enabled, serviceName)
	return func() {
		if !cfg.Metrics.Enabled || cfg.Metrics.PushgatewayURL == "" {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := metrics.Push(ctx, cfg.Metrics.PushgatewayURL); err != nil {
			logger.Warn("failed to push metrics", slog.String("error", err.Error()))
		}
	}
}

// closeBackend closes node connections that support it
func closeBackend(backend deployer.Backend) {
	if c, ok := backend.(interface{ Close() }); ok {
		c.Close()
	}
}

// maskSecret shows only the ends of a secret
func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
