package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"jobdocs-backend/internal/bootstrap"
	"jobdocs-backend/internal/research"
	"jobdocs-backend/internal/shared/config"
)

var version = "dev"

func main() {
	if err := newRootCmd(loadApp).Execute(); err != nil {
		os.Exit(1)
	}
}

func loadApp() (*bootstrap.App, error) {
	return bootstrap.Build(config.Load())
}

// newRootCmd builds the command tree. build is called lazily by each
// subcommand so --help never touches the database.
func newRootCmd(build func() (*bootstrap.App, error)) *cobra.Command {
	var app *bootstrap.App

	root := &cobra.Command{
		Use:          "genctl",
		Short:        "Administer document generation",
		Long:         "genctl inspects provider health, toggles providers, runs batches and research, and reports usage.",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "genctl" {
				return nil
			}
			built, err := build()
			if err != nil {
				return fmt.Errorf("bootstrap: %w", err)
			}
			app = built
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.Close()
		},
	}
	getApp := func() *bootstrap.App { return app }

	root.AddCommand(newProvidersCmd(getApp))
	root.AddCommand(newGenerateAllCmd(getApp))
	root.AddCommand(newResearchCmd(getApp))
	root.AddCommand(newUsageCmd(getApp))
	return root
}

func newProvidersCmd(app func() *bootstrap.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "Inspect and toggle language-model providers",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Show provider health and monthly spend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			views, err := app().Tracker.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing providers: %w", err)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PROVIDER\tACTIVE\tSTREAK\tSUCCESS%\tREQUESTS\tSPEND\tLIMIT")
			for _, v := range views {
				fmt.Fprintf(w, "%s\t%t\t%d\t%.1f\t%d\t%s\t%s\n",
					v.ProviderID, v.Active, v.FailureStreak, v.SuccessRate,
					v.MonthlyRequests, v.MonthlyCost.StringFixed(4), v.MonthlyLimit.StringFixed(2))
			}
			return w.Flush()
		},
	}

	var active bool
	toggle := &cobra.Command{
		Use:   "toggle <provider>",
		Short: "Activate or deactivate a provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app().Tracker.Toggle(cmd.Context(), args[0], active)
			if err != nil {
				return fmt.Errorf("toggling %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s active=%t failure_streak=%d\n", st.ProviderID, st.Active, st.FailureStreak)
			return nil
		},
	}
	toggle.Flags().BoolVar(&active, "active", true, "Whether the provider may be called")

	cmd.AddCommand(list, toggle)
	return cmd
}

func newGenerateAllCmd(app func() *bootstrap.App) *cobra.Command {
	return &cobra.Command{
		Use:   "generate-all <applicationID>",
		Short: "Generate every document type for an application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseApplicationID(args[0])
			if err != nil {
				return err
			}
			summary, err := app().Batch.GenerateAll(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("generate-all %d: %w", id, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Job %s: %s\n", summary.JobID, summary.Status)
			if summary.Orphaned {
				fmt.Fprintln(out, "  job record disappeared; nothing was saved")
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DOCUMENT\tRESULT\tPROVIDER\tTOKENS\tCOST")
			for _, doc := range summary.Documents {
				result := "ok"
				if !doc.Success {
					result = "failed: " + string(doc.ErrorKind)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", doc.DocumentType, result, doc.Provider, doc.TokensUsed, doc.Cost.StringFixed(6))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if summary.Research != nil {
				fmt.Fprintf(out, "Research: %s\n", summary.Research.Source)
			}
			fmt.Fprintf(out, "Generated %d/%d documents, %d tokens, $%s\n",
				summary.DocumentsGenerated, len(summary.Documents), summary.TotalTokens, summary.TotalCost.StringFixed(6))
			return nil
		},
	}
}

func newResearchCmd(app func() *bootstrap.App) *cobra.Command {
	return &cobra.Command{
		Use:   "research <applicationID> <company> [title]",
		Short: "Research a company for an application",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseApplicationID(args[0])
			if err != nil {
				return err
			}
			title := ""
			if len(args) == 3 {
				title = args[2]
			}
			rec := app().Research.Research(cmd.Context(), id, args[1], title)
			fmt.Fprintln(cmd.OutOrStdout(), research.FormatReport(rec))
			return nil
		},
	}
}

func newUsageCmd(app func() *bootstrap.App) *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show the monthly usage and cost report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := app().Ledger.MonthlySummary(cmd.Context(), month)
			if err != nil {
				return fmt.Errorf("usage report: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Usage for %s\n", summary.Month)
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PROVIDER\tREQUESTS\tFAILURES\tTOKENS\tCOST")
			for _, p := range summary.Providers {
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n", p.Provider, p.Requests, p.Failures, p.Tokens, p.Cost.StringFixed(6))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "Total: %d tokens, $%s\n", summary.TotalTokens, summary.TotalCost.StringFixed(6))
			return nil
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "Month as YYYY-MM (default: current month)")
	return cmd
}

func parseApplicationID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid application id %q", raw)
	}
	return id, nil
}
