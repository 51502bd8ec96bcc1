package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/docpack/internal/clock"
	"github.com/danieljhkim/docpack/internal/config"
	"github.com/danieljhkim/docpack/internal/engine"
	"github.com/danieljhkim/docpack/internal/fsops"
	"github.com/danieljhkim/docpack/internal/hash"
	"github.com/danieljhkim/docpack/internal/scenario"
)

// newEngine creates a new engine with real implementations of all dependencies.
func newEngine(cmd *cobra.Command) *engine.Engine {
	logger := newCommandLogger(cmd.ErrOrStderr(), verbose).With("command", cmd.Name())
	return engine.New(
		fsops.NewRealFS(),
		hash.NewBlake3Hasher(),
		&clock.RealClock{},
		scenario.NewExecRunner(),
		logger,
	)
}

// resolvePackRoot returns the pack root from --pack, DOCPACK_ROOT, or the
// current directory.
func resolvePackRoot() (string, error) {
	root, err := config.ResolveRoot(packDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve pack root: %w", err)
	}
	return root, nil
}

// formatJSON formats a value as JSON.
func formatJSON(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// formatError formats an error for display.
func formatError(err error) string {
	return errorColor.Sprintf("Error: %v", err)
}

// outputJSON writes a value as indented JSON.
func outputJSON(w io.Writer, v interface{}) error {
	out, err := formatJSON(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}
