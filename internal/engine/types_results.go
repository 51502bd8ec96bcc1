package engine

import (
	"github.com/danieljhkim/docpack/internal/lock"
	"github.com/danieljhkim/docpack/internal/pack"
	"github.com/danieljhkim/docpack/internal/planner"
	"github.com/danieljhkim/docpack/internal/scenario"
)

// ValidateResult represents the result of validate.
type ValidateResult struct {
	// Lock is the lock now on disk
	Lock *lock.Lock `json:"lock"`

	// Written is false when the lock was already current and left untouched
	Written bool `json:"written"`
}

// PlanResult represents the result of plan.
type PlanResult struct {
	// Plan is the plan that was saved
	Plan *planner.Plan `json:"plan"`
}

// ApplyResult represents the result of apply.
type ApplyResult struct {
	// TxnID is the transaction that committed the artifacts
	TxnID string `json:"txn_id"`

	// Committed lists the pack-relative paths written
	Committed []string `json:"committed"`

	// Report is the report that was written
	Report *pack.Report `json:"report"`

	// Applied is false when a precondition failed without Force; only the
	// report was written
	Applied bool `json:"applied"`

	// ForceUsed is true when a precondition was overridden
	ForceUsed bool `json:"force_used"`

	// Warnings lists the preconditions that did not hold
	Warnings []string `json:"warnings,omitempty"`
}

// RunResult represents the result of run.
type RunResult struct {
	*scenario.RunResult

	// Total is how many scenarios ran
	Total int `json:"total"`
}

// StatusResult represents a read-only summary of the pack.
type StatusResult struct {
	// Root is the absolute pack root
	Root string `json:"root"`

	// Binary is the configured target binary
	Binary string `json:"binary"`

	// Lock is nil when enrich/lock.json is missing
	Lock *lock.Lock `json:"lock"`

	// LockStatus is nil when there is no lock
	LockStatus *lock.Status `json:"lock_status"`

	// Plan is freshly evaluated and not saved
	Plan *planner.Plan `json:"plan"`

	// SavedPlanPresent reports whether enrich/plan.out.json exists
	SavedPlanPresent bool `json:"saved_plan_present"`

	// SavedPlanStale reports whether the saved plan was computed from a
	// different lock than the current one
	SavedPlanStale bool `json:"saved_plan_stale"`

	// History holds the most recent history records, oldest first
	History []pack.HistoryRecord `json:"history"`
}

// LintProblem is one problem found by lint.
type LintProblem struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// LintResult represents the result of lint.
type LintResult struct {
	// Checked lists the artifacts that were examined
	Checked []string `json:"checked"`

	// Problems is empty when every artifact is usable
	Problems []LintProblem `json:"problems"`
}

// OK reports whether lint found no problems.
func (r *LintResult) OK() bool {
	return len(r.Problems) == 0
}

// StubResult represents the result of stub.
type StubResult struct {
	// Stub is nil when every surface item is covered
	Stub *scenario.Spec `json:"stub"`

	// Path is the scenario plan the stub belongs to
	Path string `json:"path"`

	// Content is the updated scenario plan
	Content string `json:"content,omitempty"`

	// Written is true when the updated plan was saved
	Written bool `json:"written"`
}
