package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/docpack/internal/engine"
)

var runScenarios []string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run scenarios and record evidence",
	Long: `Run the scenarios in the scenario plan against the target binary, write one
evidence file per scenario, and update the scenario index.

Failing scenarios are recorded as evidence; run only fails when the
scenarios could not be run at all.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := resolvePackRoot()
		if err != nil {
			return err
		}

		result, err := newEngine(cmd).Run(cmd.Context(), &engine.RunRequest{
			Root:        root,
			ScenarioIDs: runScenarios,
		})
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if jsonOutput {
			return outputJSON(w, result)
		}

		if result.Total == 0 {
			PrintEmptyState(w, "No scenarios to run")
			return nil
		}

		PrintSection(w, "Scenarios")
		rows := make([][]string, 0, len(result.Results))
		for _, res := range result.Results {
			status := "pass"
			if !res.Passed {
				status = "FAIL"
			}
			rows = append(rows, []string{res.ScenarioID, status, strings.Join(res.Failures, "; ")})
		}
		PrintTable(w, []string{"SCENARIO", "RESULT", "FAILURES"}, rows)
		_, _ = fmt.Fprintln(w)

		summary := fmt.Sprintf("%d of %s passed", result.Passed(), PrintCount(result.Total, "scenario", "scenarios"))
		if result.Passed() == result.Total {
			PrintSuccess(w, summary)
		} else {
			PrintWarning(w, summary)
		}
		if !result.Sandboxed {
			PrintEmptyState(w, "scenarios ran without a sandbox")
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringArrayVarP(&runScenarios, "scenario", "s", nil, "Run only this scenario id (repeatable)")
}
