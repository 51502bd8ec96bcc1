package cli

import (
	"strings"
	"testing"
)

func TestRootCommand_Help(t *testing.T) {
	stdout, _, err := executeCommand(t, "--help")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(stdout, "docpack") {
		t.Error("expected help to contain 'docpack'")
	}
	for _, group := range []string{"Pipeline:", "Inspection & Authoring:", "CLI & Tooling:"} {
		if !strings.Contains(stdout, group) {
			t.Errorf("expected help to list group %q", group)
		}
	}
	if !strings.Contains(stdout, "--pack") {
		t.Error("expected help to list the --pack flag")
	}
}

func TestRootCommand_SubcommandHelpIncludesInheritedFlags(t *testing.T) {
	stdout, _, err := executeCommand(t, "apply", "--help")
	if err != nil {
		t.Fatal(err)
	}
	for _, flag := range []string{"-f, --force", "-p, --pack", "--json"} {
		if strings.Count(stdout, flag) != 1 {
			t.Errorf("expected %s listed once in:\n%s", flag, stdout)
		}
	}
}

func TestRootCommand_Version(t *testing.T) {
	SetVersion("1.2.3")
	defer SetVersion("dev")

	stdout, _, err := executeCommand(t, "--version")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if strings.TrimSpace(stdout) != "1.2.3" {
		t.Errorf("expected version output 1.2.3, got %q", stdout)
	}
}

func TestRootCommand_InvalidCommand(t *testing.T) {
	if _, _, err := executeCommand(t, "invalid-command"); err == nil {
		t.Error("expected error for invalid command")
	}
}

func TestSetVersion(t *testing.T) {
	tests := []struct {
		name    string
		version string
		want    string
	}{
		{"normal version", "1.2.3", "1.2.3"},
		{"empty version", "", "1.2.3"}, // empty leaves the previous version
		{"dev version", "dev", "dev"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetVersion(tt.version)
			if rootCmd.Version != tt.want {
				t.Errorf("SetVersion(%q) = %q, want %q", tt.version, rootCmd.Version, tt.want)
			}
		})
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	subcommands := []string{
		"validate", "plan", "run", "apply", "status", "lint", "stub", "version", "completion",
	}

	for _, name := range subcommands {
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := rootCmd.Find([]string{name})
			if err != nil {
				t.Fatalf("Find(%q) error = %v", name, err)
			}
			if subCmd.Name() != name {
				t.Errorf("Find(%q) returned %q", name, subCmd.Name())
			}
		})
	}
}
