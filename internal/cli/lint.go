package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/docpack/internal/engine"
)

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Check every pack artifact against its schema",
	Long: `Decode every artifact present in the pack (config, lock, plan, surface
inventory, scenario plan, index, evidence, sandbox profile) and report the
ones that are malformed. Exits non-zero when problems are found.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := resolvePackRoot()
		if err != nil {
			return err
		}

		result, err := newEngine(cmd).Lint(cmd.Context(), &engine.LintRequest{Root: root})
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if jsonOutput {
			if err := outputJSON(w, result); err != nil {
				return err
			}
		} else if result.OK() {
			PrintSuccess(w, fmt.Sprintf("Checked %s, no problems", PrintCount(len(result.Checked), "artifact", "artifacts")))
		} else {
			PrintSection(w, "Problems")
			for _, p := range result.Problems {
				PrintError(w, fmt.Sprintf("%s: %s", p.Path, p.Message))
			}
			_, _ = fmt.Fprintln(w)
		}

		if !result.OK() {
			return fmt.Errorf("%w: %s", engine.ErrLintFailed, PrintCount(len(result.Problems), "problem", "problems"))
		}
		return nil
	},
}
