package scenario

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/danieljhkim/docpack/internal/config"
	"github.com/danieljhkim/docpack/internal/pack"
	"github.com/danieljhkim/docpack/internal/schema"
)

// Record schema versions.
const (
	EvidenceSchemaVersion = 3
	IndexSchemaVersion    = 1
)

// Evidence is inventory/scenarios/<id>.json, the outcome of the most recent
// run of one scenario.
type Evidence struct {
	SchemaVersion   int               `json:"schema_version"`
	ScenarioID      string            `json:"scenario_id"`
	Kind            string            `json:"kind,omitempty"`
	Tier            string            `json:"tier,omitempty"`
	Binary          string            `json:"binary"`
	Argv            []string          `json:"argv"`
	Env             map[string]string `json:"env,omitempty"`
	Cwd             string            `json:"cwd,omitempty"`
	Covers          []string          `json:"covers,omitempty"`
	Sandboxed       bool              `json:"sandboxed"`
	ExitCode        *int              `json:"exit_code"`
	ExitSignal      *int              `json:"exit_signal"`
	ExitSignalName  string            `json:"exit_signal_name,omitempty"`
	TimedOut        bool              `json:"timed_out"`
	DurationMS      int64             `json:"duration_ms"`
	Stdout          string            `json:"stdout"`
	StdoutTruncated bool              `json:"stdout_truncated"`
	Stderr          string            `json:"stderr"`
	StderrTruncated bool              `json:"stderr_truncated"`
	HasAssertions   bool              `json:"has_assertions"`
	Passed          bool              `json:"passed"`
	Failures        []string          `json:"failures"`
	GeneratedAtMS   int64             `json:"generated_at_epoch_ms"`
}

// LoadEvidence reads the evidence file for a scenario id.
func LoadEvidence(p *pack.Pack, id string) (*Evidence, error) {
	rel := config.ScenarioEvidencePath(id)
	var ev Evidence
	if err := p.ReadJSON(rel, &ev); err != nil {
		return nil, err
	}
	if err := schema.CheckVersion(rel, ev.SchemaVersion, EvidenceSchemaVersion); err != nil {
		return nil, err
	}
	return &ev, nil
}

// IndexEntry summarizes the latest run of one scenario. FailureCount is the
// number of consecutive failing runs, reset to zero by a pass.
type IndexEntry struct {
	LastPass       bool   `json:"last_pass"`
	EvidencePath   string `json:"evidence_path"`
	EvidenceHash   string `json:"evidence_hash"`
	LastRunEpochMS int64  `json:"last_run_epoch_ms"`
	FailureCount   int    `json:"failure_count"`
}

// Index is inventory/scenarios/index.json.
type Index struct {
	SchemaVersion int                   `json:"schema_version"`
	Scenarios     map[string]IndexEntry `json:"scenarios"`
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{SchemaVersion: IndexSchemaVersion, Scenarios: make(map[string]IndexEntry)}
}

// LoadIndex reads the scenario index. A missing index is empty.
func LoadIndex(p *pack.Pack) (*Index, error) {
	var idx Index
	if err := p.ReadJSON(config.ScenarioIndexPath, &idx); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewIndex(), nil
		}
		return nil, err
	}
	if err := schema.CheckVersion(config.ScenarioIndexPath, idx.SchemaVersion, IndexSchemaVersion); err != nil {
		return nil, err
	}
	if idx.Scenarios == nil {
		idx.Scenarios = make(map[string]IndexEntry)
	}
	return &idx, nil
}

// Record folds one run into the index.
func (idx *Index) Record(id string, entry IndexEntry) {
	prev, ok := idx.Scenarios[id]
	switch {
	case entry.LastPass:
		entry.FailureCount = 0
	case ok:
		entry.FailureCount = prev.FailureCount + 1
	default:
		entry.FailureCount = 1
	}
	idx.Scenarios[id] = entry
}

// Passing reports whether id has a recorded passing run.
func (idx *Index) Passing(id string) bool {
	entry, ok := idx.Scenarios[id]
	return ok && entry.LastPass
}

// Save atomically rewrites the index.
func (idx *Index) Save(p *pack.Pack) error {
	idx.SchemaVersion = IndexSchemaVersion
	if _, err := p.WriteJSON(config.ScenarioIndexPath, idx); err != nil {
		return fmt.Errorf("failed to save scenario index: %w", err)
	}
	return nil
}
