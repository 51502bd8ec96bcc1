package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/docpack/internal/engine"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Lock the pack's inputs",
	Long: `Hash the pack's tracked inputs (config, scenario plan, surface inventory,
man page, templates, and the target binary) into enrich/lock.json.

The lock is rewritten only when the inputs hash changes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := resolvePackRoot()
		if err != nil {
			return err
		}

		result, err := newEngine(cmd).Validate(cmd.Context(), &engine.ValidateRequest{Root: root})
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if jsonOutput {
			return outputJSON(w, result)
		}

		if result.Written {
			PrintSuccess(w, "Lock written")
		} else {
			PrintSuccess(w, "Lock unchanged")
		}
		PrintLabelValue(w, "Inputs hash", result.Lock.InputsHash)
		PrintLabelValue(w, "Inputs", PrintCount(len(result.Lock.Inputs), "file", "files"))
		_, _ = fmt.Fprintln(w)
		return nil
	},
}
