package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/docpack/internal/engine"
)

var stubWrite bool

var stubCmd = &cobra.Command{
	Use:   "stub",
	Short: "Draft a scenario for the first uncovered surface item",
	Long: `Synthesize a coverage scenario for the first uncovered surface item and
print the updated scenario plan. With --write the plan is saved; existing
scenarios are never changed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := resolvePackRoot()
		if err != nil {
			return err
		}

		result, err := newEngine(cmd).Stub(cmd.Context(), &engine.StubRequest{
			Root:  root,
			Write: stubWrite,
		})
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if jsonOutput {
			return outputJSON(w, result)
		}

		if result.Stub == nil {
			PrintSuccess(w, "Every surface item is covered")
			return nil
		}

		if result.Written {
			PrintSuccess(w, fmt.Sprintf("Added scenario %s to %s", result.Stub.ID, result.Path))
		} else {
			_, _ = fmt.Fprint(w, result.Content)
			_, _ = fmt.Fprintln(w)
			PrintWarning(w, fmt.Sprintf("Not written; rerun with --write to add scenario %s to %s", result.Stub.ID, result.Path))
		}
		PrintLabelValue(w, "Covers", strings.Join(result.Stub.Covers, ", "))
		PrintLabelValue(w, "Argv", strings.Join(result.Stub.Argv, " "))
		return nil
	},
}

func init() {
	stubCmd.Flags().BoolVarP(&stubWrite, "write", "w", false, "Save the updated scenario plan")
}
