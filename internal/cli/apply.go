package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/docpack/internal/config"
	"github.com/danieljhkim/docpack/internal/engine"
	"github.com/danieljhkim/docpack/internal/planner"
)

var applyForce bool

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Write the ledgers and report in one transaction",
	Long: `Rebuild the coverage ledger, verification ledger, and report, stage them in
enrich/txns/<id>/, and commit them into the pack together.

When the lock is missing or stale, or the saved plan was computed from a
different lock, apply writes only the report, listing the unmet
preconditions, and leaves the ledgers alone. Use --force to write the ledgers
anyway; forced applies are recorded in the history and the report.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := resolvePackRoot()
		if err != nil {
			return err
		}

		result, err := newEngine(cmd).Apply(cmd.Context(), &engine.ApplyRequest{
			Root:  root,
			Force: applyForce,
		})
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if jsonOutput {
			return outputJSON(w, result)
		}

		if !result.Applied {
			for _, warning := range result.Warnings {
				PrintWarning(w, warning)
			}
			PrintWarning(w, "Ledgers not written; rerun with --force to apply anyway")
			PrintLabelValue(w, "Report", config.ReportPath)
			PrintLabelValue(w, "Transaction", result.TxnID)
			_, _ = fmt.Fprintln(w)
			return nil
		}
		for _, warning := range result.Warnings {
			PrintWarning(w, "Forced: "+warning)
		}
		PrintSuccess(w, fmt.Sprintf("Committed %s", PrintCount(len(result.Committed), "file", "files")))
		PrintList(w, result.Committed, 1)
		PrintLabelValue(w, "Transaction", result.TxnID)
		PrintLabelValueWithColor(w, "Decision", result.Report.Decision, decisionColor(planner.Decision(result.Report.Decision)))
		_, _ = fmt.Fprintln(w)
		return nil
	},
}

func init() {
	applyCmd.Flags().BoolVarP(&applyForce, "force", "f", false, "Apply even when the lock or plan is missing or stale")
}
