package engine

// ValidateRequest represents a request to refresh the lock.
type ValidateRequest struct {
	// Root is the absolute pack root
	Root string
}

// PlanRequest represents a request to compute and save the plan.
type PlanRequest struct {
	// Root is the absolute pack root
	Root string
}

// ApplyRequest represents a request to commit derived artifacts.
type ApplyRequest struct {
	// Root is the absolute pack root
	Root string

	// Force writes the ledgers even when the lock is missing or stale or the
	// plan does not match the lock
	Force bool
}

// RunRequest represents a request to execute scenarios.
type RunRequest struct {
	// Root is the absolute pack root
	Root string

	// ScenarioIDs restricts the run; empty runs every scenario
	ScenarioIDs []string
}

// StatusRequest represents a request for a read-only pack summary.
type StatusRequest struct {
	// Root is the absolute pack root
	Root string

	// HistoryLimit is how many recent history records to include
	HistoryLimit int
}

// LintRequest represents a request to check every pack artifact.
type LintRequest struct {
	// Root is the absolute pack root
	Root string
}

// StubRequest represents a request to synthesize a coverage stub.
type StubRequest struct {
	// Root is the absolute pack root
	Root string

	// Write saves the updated scenario plan instead of only returning it
	Write bool
}
