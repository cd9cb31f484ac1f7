package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pendergraft/tokenlaunch/internal/chains"
	"github.com/pendergraft/tokenlaunch/internal/chains/evm"
	"github.com/pendergraft/tokenlaunch/internal/validation"
)

// errNoMatch is returned when on-chain code differs from the artifact
var errNoMatch = errors.New("deployed bytecode does not match the artifact")

func createCheckCmd(a *app) *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Compare on-chain code with the compiled artifact",
		Long: `Compare the runtime bytecode at an address with the artifact's deployed bytecode.

CBOR metadata is stripped before comparing, so a partial match means the
executable code is identical but the metadata hash differs.

EXAMPLES:
  tokenlaunch check --address 0x1234...
  tokenlaunch check --address 0x1234... --rpc https://polygon-rpc.com
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCheck(cmd, address)
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "deployed contract address (required)")
	_ = cmd.MarkFlagRequired("address")

	return cmd
}

func (a *app) runCheck(cmd *cobra.Command, address string) error {
	if err := validation.ValidateAddress(address); err != nil {
		return err
	}

	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := validation.ValidateRPCURL(cfg.Network.RPCURL); err != nil {
		return fmt.Errorf("%w (set RPC_URL)", err)
	}

	builder, err := resolveBuilder(cfg)
	if err != nil {
		return err
	}
	artifact, err := builder.Find(cfg.ProjectDir, cfg.Token.Contract)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	backend, err := a.dial(ctx, cfg.Network.RPCURL)
	if err != nil {
		return err
	}
	defer closeBackend(backend)

	fmt.Fprintf(a.stdout, "Checking %s\n", artifact.QualifiedName())
	fmt.Fprintf(a.stdout, "   Network: %s\n", cfg.Network.Name)
	fmt.Fprintf(a.stdout, "   Address: %s\n", address)

	chain := evm.NewChain().WithCodeReader(backend)
	result, err := chain.VerifyDeployment(ctx, chains.VerifyOptions{
		RPC:          cfg.Network.RPCURL,
		Address:      address,
		ExpectedCode: []byte(artifact.EVM.DeployedBytecode),
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(a.stdout)
	switch result.MatchType {
	case "full":
		fmt.Fprintln(a.stdout, green("MATCH")+" - Full match")
		fmt.Fprintln(a.stdout, "   Deployed bytecode exactly matches the artifact (including metadata)")
	case "partial":
		fmt.Fprintln(a.stdout, green("MATCH")+" - Partial match")
		fmt.Fprintln(a.stdout, "   Executable code matches, but metadata differs")
	default:
		fmt.Fprintln(a.stdout, red("NO MATCH"))
		if result.Message != "" {
			fmt.Fprintf(a.stdout, "   Reason: %s\n", result.Message)
		}
		return errNoMatch
	}
	return nil
}
