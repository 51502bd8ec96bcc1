package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/docpack/internal/engine"
)

var statusHistory int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the pack's current state",
	Long: `Evaluate the pack without writing anything: lock freshness, requirement
states, the next action, and the most recent history records.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := resolvePackRoot()
		if err != nil {
			return err
		}

		result, err := newEngine(cmd).Status(cmd.Context(), &engine.StatusRequest{
			Root:         root,
			HistoryLimit: statusHistory,
		})
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if jsonOutput {
			return outputJSON(w, result)
		}

		PrintSection(w, "Pack")
		PrintLabelValue(w, "Root", result.Root)
		PrintLabelValue(w, "Binary", result.Binary)
		switch {
		case result.Lock == nil:
			PrintLabelValueWithColor(w, "Lock", "missing", warningColor)
		case result.LockStatus != nil && result.LockStatus.Stale:
			PrintLabelValueWithColor(w, "Lock", "stale", warningColor)
		default:
			PrintLabelValueWithColor(w, "Lock", "current", successColor)
		}
		switch {
		case !result.SavedPlanPresent:
			PrintLabelValueWithColor(w, "Saved plan", "missing", warningColor)
		case result.SavedPlanStale:
			PrintLabelValueWithColor(w, "Saved plan", "stale", warningColor)
		default:
			PrintLabelValueWithColor(w, "Saved plan", "current", successColor)
		}

		printPlan(w, result.Plan)

		PrintSection(w, "History")
		if len(result.History) == 0 {
			PrintEmptyState(w, "No steps recorded yet")
			return nil
		}
		rows := make([][]string, 0, len(result.History))
		for _, rec := range result.History {
			outcome := "ok"
			if !rec.Success {
				outcome = "failed"
			}
			if rec.ForceUsed {
				outcome += " (forced)"
			}
			started := time.UnixMilli(rec.StartedEpochMS).Format(time.RFC3339)
			rows = append(rows, []string{started, rec.Step, outcome, rec.Message})
		}
		PrintTable(w, []string{"STARTED", "STEP", "OUTCOME", "MESSAGE"}, rows)
		_, _ = fmt.Fprintln(w)
		return nil
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusHistory, "history", engine.DefaultHistoryLimit, "Number of history records to show")
}
