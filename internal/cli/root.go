// Package cli implements the tokenlaunch command line.
package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pendergraft/tokenlaunch/internal/deployer"
	"github.com/pendergraft/tokenlaunch/internal/release"
)

// options holds the global flags. Only flags the user actually set override
// the loaded configuration.
type options struct {
	configFile            string
	envFile               string
	network               string
	rpcURL                string
	delay                 time.Duration
	projectDir            string
	builder               string
	contract              string
	name                  string
	symbol                string
	decimals              int
	supply                string
	acceptAlreadyVerified bool
}

// app carries the global flags and the process boundaries commands talk to.
type app struct {
	opts   options
	stdout io.Writer
	stderr io.Writer
	stdin  *os.File

	// dial connects to the node; replaced in tests with a simulated backend
	dial func(ctx context.Context, rpcURL string) (deployer.Backend, error)
	// sleep backs the indexing delay and the explorer poll interval
	sleep release.Sleeper
}

func newApp() *app {
	return &app{
		stdout: os.Stdout,
		stderr: os.Stderr,
		stdin:  os.Stdin,
		dial: func(ctx context.Context, rpcURL string) (deployer.Backend, error) {
			client, err := deployer.Dial(ctx, rpcURL)
			if err != nil {
				return nil, err
			}
			return client, nil
		},
		sleep: release.Sleep,
	}
}

// Execute runs the CLI
func Execute(version string) error {
	return newRootCmd(newApp(), version).Execute()
}

func newRootCmd(a *app, version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tokenlaunch",
		Short: "Deploy and verify an ERC-20 token contract",
		Long: `tokenlaunch deploys the token contract, waits for the block explorer to
index it, then submits its source for verification.

Secrets are read from the environment or a .env file:
  RPC_URL (or Polygon_Url), PRIVATE_KEY (or Private_Key), ETHERSCAN_API_KEY`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		// Default behavior (no subcommand) is a full run
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runLaunch(cmd)
		},
	}
	rootCmd.SetOut(a.stdout)
	rootCmd.SetErr(a.stderr)

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.opts.configFile, "config", "", "project config file (default: tokenlaunch.toml or .tokenlaunch.toml)")
	pf.StringVar(&a.opts.envFile, "env-file", "", "dotenv file to load (default: .env)")
	pf.StringVar(&a.opts.network, "network", "", "network profile (default: polygon)")
	pf.StringVar(&a.opts.rpcURL, "rpc", "", "RPC URL (overrides RPC_URL)")
	pf.DurationVar(&a.opts.delay, "delay", release.DefaultIndexingDelay, "wait between deployment and verification")
	pf.StringVar(&a.opts.projectDir, "project-dir", "", "Solidity project directory (default: .)")
	pf.StringVar(&a.opts.builder, "builder", "", "build tool: foundry or hardhat (default: detected)")
	pf.StringVar(&a.opts.contract, "contract", "", "contract to deploy (default: TokenContract)")
	pf.StringVar(&a.opts.name, "name", "", "token name constructor argument")
	pf.StringVar(&a.opts.symbol, "symbol", "", "token symbol constructor argument")
	pf.IntVar(&a.opts.decimals, "decimals", 0, "token decimals constructor argument")
	pf.StringVar(&a.opts.supply, "supply", "", "initial supply in whole tokens")
	pf.BoolVar(&a.opts.acceptAlreadyVerified, "accept-already-verified", false, "treat an already verified contract as success")

	// Add subcommands
	rootCmd.AddCommand(createRunCmd(a))
	rootCmd.AddCommand(createDeployCmd(a))
	rootCmd.AddCommand(createVerifyCmd(a))
	rootCmd.AddCommand(createCheckCmd(a))
	rootCmd.AddCommand(createConfigCmd(a))
	rootCmd.AddCommand(createHistoryCmd(a))

	return rootCmd
}
