package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pendergraft/tokenlaunch/internal/config"
)

func createConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}

	cmd.AddCommand(createConfigInitCmd(a))
	cmd.AddCommand(createConfigShowCmd(a))

	return cmd
}

func createConfigInitCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create config file",
		Long: `Create a tokenlaunch.toml configuration file in the current directory.

The file holds the network, constructor arguments and pipeline timing.
Secrets stay in the environment or .env.

EXAMPLES:
  # Create config for Polygon with the default token
  tokenlaunch config init

  # Create config for Amoy with a different supply
  tokenlaunch config init --network amoy --supply 1000

  # Overwrite existing config
  tokenlaunch config init --force
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConfigInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config")

	return cmd
}

func createConfigShowCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display effective config",
		Long: `Display the effective configuration after flags, environment, the project
file and network profiles are merged. Secrets are masked.

EXAMPLES:
  tokenlaunch config show
  tokenlaunch config show --network amoy
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConfigShow(cmd)
		},
	}

	return cmd
}

func (a *app) runConfigInit(cmd *cobra.Command, force bool) error {
	configPath := a.opts.configFile
	candidates := []string{configPath}
	if configPath == "" {
		configPath = config.ProjectConfigFiles[0]
		candidates = config.ProjectConfigFiles
	}
	if !force {
		for _, name := range candidates {
			if _, err := os.Stat(name); err == nil {
				return fmt.Errorf("config file already exists at %s (use --force to overwrite)", name)
			}
		}
	}

	// Defaults, environment and flags; an explicit file that does not exist yet is skipped
	source := a.opts.configFile
	if _, err := os.Stat(source); source != "" && err != nil {
		source = ""
	}
	cfg, err := a.loadConfigFrom(cmd, source)
	if err != nil {
		return err
	}

	if _, err := cfg.Request(); err != nil {
		return err
	}
	if err := config.WriteProject(configPath, cfg.Network.Name, cfg.Token, force); err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Created %s\n", configPath)
	fmt.Fprintln(a.stdout)
	fmt.Fprintln(a.stdout, "Configuration:")
	fmt.Fprintf(a.stdout, "  Network:  %s\n", cfg.Network.Name)
	fmt.Fprintf(a.stdout, "  Contract: %s\n", cfg.Token.Contract)
	fmt.Fprintf(a.stdout, "  Token:    %s (%s), %d decimals, supply %s\n",
		cfg.Token.Name, cfg.Token.Symbol, cfg.Token.Decimals, cfg.Token.InitialSupply)
	fmt.Fprintln(a.stdout)
	fmt.Fprintln(a.stdout, "Next steps:")
	fmt.Fprintln(a.stdout, "  1. Set RPC_URL, PRIVATE_KEY and ETHERSCAN_API_KEY in .env")
	fmt.Fprintln(a.stdout, "  2. Compile the contract (forge build or npx hardhat compile)")
	fmt.Fprintln(a.stdout, "  3. Run 'tokenlaunch run'")

	return nil
}

func (a *app) runConfigShow(cmd *cobra.Command) error {
	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}

	_, projectPath, projectErr := config.LoadProject(a.opts.configFile)
	w := a.stdout

	fmt.Fprintln(w, "Configuration sources (in order of precedence):")
	fmt.Fprintln(w, "  1. Command line flags")
	fmt.Fprintln(w, "  2. Environment variables (and .env)")
	switch {
	case projectErr == nil:
		fmt.Fprintf(w, "  3. Project config: %s\n", projectPath)
	case errors.Is(projectErr, os.ErrNotExist):
		fmt.Fprintln(w, "  3. Project config: (not found)")
	default:
		fmt.Fprintf(w, "  3. Project config: error: %v\n", projectErr)
	}
	fmt.Fprintf(w, "  4. Network profiles: %s\n", config.DefaultNetworksFile())
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Effective configuration:")
	fmt.Fprintf(w, "  Network:          %s (chain id %d)\n", cfg.Network.Name, cfg.Network.ChainID)
	fmt.Fprintf(w, "  RPC URL:          %s\n", orNotSet(cfg.Network.RPCURL))
	fmt.Fprintf(w, "  Private key:      %s\n", maskSecret(cfg.Network.PrivateKey))
	fmt.Fprintf(w, "  Explorer API:     %s\n", orNotSet(cfg.Explorer.APIURL))
	fmt.Fprintf(w, "  Explorer API key: %s\n", maskSecret(cfg.Explorer.APIKey))
	fmt.Fprintf(w, "  Explorer web:     %s\n", orNotSet(cfg.Explorer.BrowserURL))
	fmt.Fprintf(w, "  Project dir:      %s\n", cfg.ProjectDir)
	fmt.Fprintf(w, "  Builder:          %s\n", orDefault(cfg.Builder, "(detect)"))
	fmt.Fprintf(w, "  Contract:         %s\n", cfg.Token.Contract)
	fmt.Fprintf(w, "  Token:            %s (%s), %d decimals, supply %s\n",
		cfg.Token.Name, cfg.Token.Symbol, cfg.Token.Decimals, cfg.Token.InitialSupply)
	fmt.Fprintf(w, "  Indexing delay:   %s\n", cfg.Pipeline.IndexingDelay)
	fmt.Fprintf(w, "  Confirm timeout:  %s\n", cfg.Pipeline.ConfirmTimeout)
	fmt.Fprintf(w, "  Already verified: %s\n", acceptance(cfg.Explorer.AcceptAlreadyVerified))
	fmt.Fprintf(w, "  Storage:          %s\n", cfg.Storage.Type)
	fmt.Fprintf(w, "  Metrics:          %s\n", orDefault(cfg.Metrics.PushgatewayURL, "(disabled)"))

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s %v\n", yellow("Warning:"), err)
	}
	return nil
}

func orNotSet(v string) string {
	return orDefault(v, "(not set)")
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func acceptance(accept bool) string {
	if accept {
		return "success"
	}
	return "error"
}
