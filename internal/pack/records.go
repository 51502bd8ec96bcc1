package pack

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/danieljhkim/docpack/internal/config"
)

// Record schema versions.
const (
	ReportSchemaVersion  = 1
	HistorySchemaVersion = 1
)

// Step names recorded in history.
const (
	StepValidate = "validate"
	StepPlan     = "plan"
	StepApply    = "apply"
	StepRun      = "run"
)

// HistoryRecord is one line of enrich/history.jsonl.
type HistoryRecord struct {
	SchemaVersion   int    `json:"schema_version"`
	Step            string `json:"step"`
	StartedEpochMS  int64  `json:"started_epoch_ms"`
	FinishedEpochMS int64  `json:"finished_epoch_ms"`
	InputsHash      string `json:"inputs_hash"`
	OutputsHash     string `json:"outputs_hash"`
	Success         bool   `json:"success"`
	Message         string `json:"message,omitempty"`
	ForceUsed       bool   `json:"force_used"`
}

// AppendHistory appends one record to the append-only history log.
func (p *Pack) AppendHistory(record HistoryRecord) error {
	record.SchemaVersion = HistorySchemaVersion
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal history record: %w", err)
	}
	line = append(line, '\n')
	if err := p.FS.AppendFile(p.Path(config.HistoryPath), line, 0644); err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

// LoadHistory reads every history record. Lines that fail to decode are
// skipped; a missing file yields no records.
func (p *Pack) LoadHistory() ([]HistoryRecord, error) {
	data, err := p.ReadFile(config.HistoryPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	var records []HistoryRecord
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var record HistoryRecord
		if err := json.Unmarshal(line, &record); err != nil {
			continue
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan history: %w", err)
	}
	return records, nil
}

// Report is enrich/report.json, overwritten by every apply.
type Report struct {
	SchemaVersion  int               `json:"schema_version"`
	GeneratedAtMS  int64             `json:"generated_at_epoch_ms"`
	InputsHash     string            `json:"inputs_hash"`
	Decision       string            `json:"decision"`
	DecisionReason string            `json:"decision_reason"`
	Requirements   map[string]string `json:"requirements"`
	Coverage       CoverageSummary   `json:"coverage"`
	Verification   VerifySummary     `json:"verification"`
	Scenarios      ScenarioSummary   `json:"scenarios"`
	// Applied is false when stale or missing inputs held back the ledgers;
	// Preconditions says which.
	Applied       bool     `json:"applied"`
	Preconditions []string `json:"preconditions"`
	ForceUsed     bool     `json:"force_used"`
}

// CoverageSummary counts covered surface items.
type CoverageSummary struct {
	Total   int `json:"total"`
	Covered int `json:"covered"`
}

// VerifySummary counts verification states for the active tier.
type VerifySummary struct {
	Tier       string `json:"tier"`
	Verified   int    `json:"verified"`
	Excluded   int    `json:"excluded"`
	Unverified int    `json:"unverified"`
}

// ScenarioSummary counts recorded scenario runs.
type ScenarioSummary struct {
	Declared int `json:"declared"`
	Recorded int `json:"recorded"`
	Passing  int `json:"passing"`
}
