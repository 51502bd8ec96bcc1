package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/docpack/internal/action"
	"github.com/danieljhkim/docpack/internal/engine"
	"github.com/danieljhkim/docpack/internal/planner"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Evaluate requirements and propose the next action",
	Long: `Evaluate every enabled requirement against the pack, write
enrich/plan.out.json, and print the decision and the single next action.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := resolvePackRoot()
		if err != nil {
			return err
		}

		result, err := newEngine(cmd).Plan(cmd.Context(), &engine.PlanRequest{Root: root})
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if jsonOutput {
			return outputJSON(w, result.Plan)
		}
		printPlan(w, result.Plan)
		return nil
	},
}

// printPlan renders the requirement table, blockers, and next action.
func printPlan(w io.Writer, plan *planner.Plan) {
	PrintSection(w, "Requirements")
	rows := make([][]string, 0, len(plan.Requirements))
	for _, st := range plan.Requirements {
		rows = append(rows, []string{st.ID, string(st.State), st.Reason})
	}
	PrintTable(w, []string{"ID", "STATE", "REASON"}, rows)

	if len(plan.Blockers) > 0 {
		PrintSection(w, "Blockers")
		for _, b := range plan.Blockers {
			PrintError(w, fmt.Sprintf("%s: %s", b.Code, b.Message))
		}
	}

	PrintSection(w, "Decision")
	PrintLabelValueWithColor(w, "Decision", string(plan.Decision), decisionColor(plan.Decision))
	PrintLabelValue(w, "Reason", plan.DecisionReason)
	if len(plan.PlannedActions) > 0 {
		PrintLabelValue(w, "Planned actions", PrintCount(len(plan.PlannedActions), "action", "actions"))
	}

	if plan.NextAction != nil {
		PrintSection(w, "Next Action")
		printAction(w, plan.NextAction)
	}
	_, _ = fmt.Fprintln(w)
}

func printAction(w io.Writer, a *action.NextAction) {
	switch a.Kind {
	case action.KindCommand:
		PrintLabelValue(w, "Run", a.Command)
	case action.KindEdit:
		PrintLabelValue(w, "Edit", a.Path)
		PrintLabelValue(w, "Strategy", a.EditStrategy)
	}
	PrintLabelValue(w, "Why", a.Reason)
}
