package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/danieljhkim/docpack/internal/fsops"
	"github.com/danieljhkim/docpack/internal/schema"
)

// SchemaVersion is the supported enrich/config.json version.
const SchemaVersion = 3

// Verification tiers. The active tier decides which ledger status counts
// as verified.
const (
	TierAccepted = "accepted"
	TierBehavior = "behavior"
)

// Sandbox modes.
const (
	SandboxOff      = "off"
	SandboxAuto     = "auto"
	SandboxRequired = "required"
)

// Runner defaults.
const (
	DefaultWorkers          = 4
	DefaultTimeoutSeconds   = 10
	DefaultMaxEvidenceBytes = 64 * 1024
	DefaultSnippetMaxBytes  = 4096
	DefaultSnippetMaxLines  = 60
)

// DefaultManSections are the headings a man page source must contain.
var DefaultManSections = []string{"NAME", "SYNOPSIS", "DESCRIPTION"}

// ErrInvalid indicates a config that decoded but failed validation.
var ErrInvalid = errors.New("invalid config")

// Config is enrich/config.json.
type Config struct {
	SchemaVersion int `json:"schema_version"`

	// Binary is the target binary, a name resolved on PATH or a path.
	Binary string `json:"binary"`

	// VerificationTier is the active tier ("accepted" or "behavior").
	VerificationTier string `json:"verification_tier,omitempty"`

	// Requirements restricts which requirements are tracked; empty means all.
	Requirements []string `json:"requirements,omitempty"`

	// Templates are required lock inputs, hashed in declared order.
	Templates []string `json:"templates,omitempty"`

	ScenarioPlan string       `json:"scenario_plan,omitempty"`
	Surface      string       `json:"surface,omitempty"`
	Man          ManConfig    `json:"man"`
	Runner       RunnerConfig `json:"runner"`
}

// ManConfig locates the man page source checked by the man requirement.
type ManConfig struct {
	Path             string   `json:"path,omitempty"`
	RequiredSections []string `json:"required_sections,omitempty"`
}

// RunnerConfig controls scenario execution.
type RunnerConfig struct {
	Workers               int           `json:"workers,omitempty"`
	DefaultTimeoutSeconds int           `json:"default_timeout_seconds,omitempty"`
	MaxEvidenceBytes      int           `json:"max_evidence_bytes,omitempty"`
	SnippetMaxBytes       int           `json:"snippet_max_bytes,omitempty"`
	SnippetMaxLines       int           `json:"snippet_max_lines,omitempty"`
	Sandbox               SandboxConfig `json:"sandbox"`
}

// SandboxConfig controls bubblewrap isolation of scenario processes.
type SandboxConfig struct {
	// Mode is "off", "auto" (use bwrap when available) or "required".
	Mode string `json:"mode,omitempty"`

	// Profile is an optional pack-relative YAML sandbox profile.
	Profile string `json:"profile,omitempty"`

	// Network leaves the network namespace shared when true.
	Network bool `json:"network,omitempty"`
}

// Parse decodes config bytes, checks the schema version, fills defaults
// and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := schema.DecodeStrict(ConfigPath, data, &cfg); err != nil {
		return nil, err
	}
	if err := schema.CheckVersion(ConfigPath, cfg.SchemaVersion, SchemaVersion); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(fsops.NewRealFS()); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads and parses enrich/config.json under root.
func Load(fs fsops.FS, root string) (*Config, error) {
	data, err := fs.ReadFile(filepath.Join(root, ConfigPath))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ConfigPath, err)
	}
	return Parse(data)
}

// ApplyDefaults fills unset fields. It runs after decoding rather than
// through decoder defaults so older files pick up new defaults unchanged.
func (c *Config) ApplyDefaults() {
	if c.VerificationTier == "" {
		c.VerificationTier = TierAccepted
	}
	if c.ScenarioPlan == "" {
		c.ScenarioPlan = DefaultScenarioPlanPath
	}
	if c.Surface == "" {
		c.Surface = DefaultSurfacePath
	}
	if c.Man.Path == "" && c.Binary != "" {
		c.Man.Path = filepath.ToSlash(filepath.Join("man", filepath.Base(c.Binary)+".md"))
	}
	if len(c.Man.RequiredSections) == 0 {
		c.Man.RequiredSections = append([]string(nil), DefaultManSections...)
	}

	r := &c.Runner
	if r.Workers <= 0 {
		r.Workers = DefaultWorkers
	}
	if r.DefaultTimeoutSeconds <= 0 {
		r.DefaultTimeoutSeconds = DefaultTimeoutSeconds
	}
	if r.MaxEvidenceBytes <= 0 {
		r.MaxEvidenceBytes = DefaultMaxEvidenceBytes
	}
	if r.SnippetMaxBytes <= 0 {
		r.SnippetMaxBytes = DefaultSnippetMaxBytes
	}
	if r.SnippetMaxLines <= 0 {
		r.SnippetMaxLines = DefaultSnippetMaxLines
	}
	if r.Sandbox.Mode == "" {
		r.Sandbox.Mode = SandboxAuto
	}
}

// Validate checks field values and that every path stays inside the pack.
func (c *Config) Validate(fs fsops.FS) error {
	if c.Binary == "" {
		return fmt.Errorf("%w: binary is required", ErrInvalid)
	}
	switch c.VerificationTier {
	case TierAccepted, TierBehavior:
	default:
		return fmt.Errorf("%w: verification_tier %q (want %q or %q)", ErrInvalid, c.VerificationTier, TierAccepted, TierBehavior)
	}
	switch c.Runner.Sandbox.Mode {
	case SandboxOff, SandboxAuto, SandboxRequired:
	default:
		return fmt.Errorf("%w: runner.sandbox.mode %q", ErrInvalid, c.Runner.Sandbox.Mode)
	}

	type field struct{ name, path string }
	fields := []field{
		{"scenario_plan", c.ScenarioPlan},
		{"surface", c.Surface},
		{"man.path", c.Man.Path},
	}
	if c.Runner.Sandbox.Profile != "" {
		fields = append(fields, field{"runner.sandbox.profile", c.Runner.Sandbox.Profile})
	}
	for i, template := range c.Templates {
		fields = append(fields, field{fmt.Sprintf("templates[%d]", i), template})
	}
	for _, f := range fields {
		if err := fs.ValidateRelPath(f.path); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalid, f.name, err)
		}
	}
	return nil
}

// RequirementEnabled reports whether id is tracked by this config.
func (c *Config) RequirementEnabled(id string) bool {
	if len(c.Requirements) == 0 {
		return true
	}
	for _, enabled := range c.Requirements {
		if enabled == id {
			return true
		}
	}
	return false
}
