package action

import (
	"strings"
)

// Docpack renders a docpack invocation against the pack at root.
func Docpack(root, step string, args ...string) string {
	parts := []string{"docpack", step, "--pack", shellQuote(root)}
	for _, arg := range args {
		parts = append(parts, shellQuote(arg))
	}
	return strings.Join(parts, " ")
}

// Pipeline renders validate, plan and apply chained with &&.
func Pipeline(root string) string {
	return strings.Join([]string{
		Docpack(root, "validate"),
		Docpack(root, "plan"),
		Docpack(root, "apply"),
	}, " && ")
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("-_./=:,+@%", r)) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
