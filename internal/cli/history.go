package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pendergraft/tokenlaunch/internal/deployments"
)

func createHistoryCmd(a *app) *cobra.Command {
	var limit int
	var status string
	var all bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded launches",
		Long: `List launches recorded in the run ledger, newest first.

The ledger is enabled with STORAGE_TYPE=sqlite or DATABASE_URL.

EXAMPLES:
  tokenlaunch history
  tokenlaunch history --status failed --all
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runHistory(cmd, limit, status, all)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to show")
	cmd.Flags().StringVar(&status, "status", "", "filter by verification status")
	cmd.Flags().BoolVar(&all, "all", false, "include every network, not only the selected one")

	return cmd
}

func (a *app) runHistory(cmd *cobra.Command, limit int, status string, all bool) error {
	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg, a.stderr)

	ledger, closeLedger, err := openLedger(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer closeLedger()

	if ledger == nil {
		fmt.Fprintln(a.stdout, "Run ledger is disabled")
		fmt.Fprintln(a.stdout)
		fmt.Fprintln(a.stdout, "Enable it with: STORAGE_TYPE=sqlite tokenlaunch run")
		return nil
	}

	filter := deployments.ListFilter{Status: status}
	if !all {
		filter.Network = cfg.Network.Name
	}
	result, err := ledger.List(cmd.Context(), filter, limit)
	if err != nil {
		return err
	}

	if len(result.Runs) == 0 {
		fmt.Fprintln(a.stdout, "No runs found")
		return nil
	}

	w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tNETWORK\tADDRESS\tSTATUS\tCREATED")
	for _, r := range result.Runs {
		// Truncate ID for display
		idDisplay := r.ID
		if len(r.ID) > 8 {
			idDisplay = r.ID[:8]
		}
		created := "-"
		if !r.CreatedAt.IsZero() {
			created = r.CreatedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", idDisplay, r.Network, r.Address, r.VerificationStatus, created)
	}
	w.Flush()

	if result.HasMore {
		fmt.Fprintf(a.stdout, "\n(showing %d most recent, use --limit to see more)\n", limit)
	}
	return nil
}
