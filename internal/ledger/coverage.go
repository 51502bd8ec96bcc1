// Package ledger derives coverage and verification ledgers from the surface
// inventory, the scenario plan, and recorded scenario evidence. Builders are
// pure: callers load inputs, ledgers never touch the filesystem.
package ledger

import (
	"strconv"
	"strings"

	"github.com/danieljhkim/docpack/internal/scenario"
	"github.com/danieljhkim/docpack/internal/surface"
)

// SchemaVersion applies to both ledgers.
const SchemaVersion = 1

// Base ids for synthesized scenarios.
const (
	StubID        = "coverage-todo"
	ExampleStubID = "example-todo"
)

// CoverageItem maps one surface item to the scenarios covering it.
type CoverageItem struct {
	ID        string   `json:"id"`
	Kind      string   `json:"kind"`
	Covered   bool     `json:"covered"`
	Scenarios []string `json:"scenarios"`
}

// Coverage is coverage_ledger.json.
type Coverage struct {
	SchemaVersion int            `json:"schema_version"`
	Items         []CoverageItem `json:"items"`
	CoveredCount  int            `json:"covered_count"`
	UncoveredIDs  []string       `json:"uncovered_ids"`
}

// BuildCoverage classifies every meaningful surface item as covered or
// uncovered, in inventory order. A nil plan covers nothing.
func BuildCoverage(inv *surface.Inventory, plan *scenario.Plan) *Coverage {
	ledger := &Coverage{
		SchemaVersion: SchemaVersion,
		Items:         []CoverageItem{},
		UncoveredIDs:  []string{},
	}
	if inv == nil {
		return ledger
	}

	for _, item := range inv.MeaningfulItems() {
		entry := CoverageItem{ID: item.ID, Kind: item.Kind, Scenarios: []string{}}
		if plan != nil {
			for _, spec := range plan.Covering(item.ID) {
				entry.Scenarios = append(entry.Scenarios, spec.ID)
			}
		}
		entry.Covered = len(entry.Scenarios) > 0
		if entry.Covered {
			ledger.CoveredCount++
		} else {
			ledger.UncoveredIDs = append(ledger.UncoveredIDs, item.ID)
		}
		ledger.Items = append(ledger.Items, entry)
	}
	return ledger
}

// CoverageStubFromPlan returns a copy of plan with one scenario appended
// that targets the first uncovered id. Existing scenarios are not modified.
// ok is false when nothing is uncovered.
func CoverageStubFromPlan(plan *scenario.Plan, uncoveredIDs []string) (updated *scenario.Plan, stub scenario.Spec, ok bool) {
	if len(uncoveredIDs) == 0 {
		return plan, scenario.Spec{}, false
	}
	if plan == nil {
		plan = &scenario.Plan{SchemaVersion: scenario.PlanSchemaVersion}
	}

	target := uncoveredIDs[0]
	stub = scenario.Spec{
		ID:     nextStubID(plan, StubID),
		Kind:   scenario.KindCoverage,
		Argv:   stubArgv(target),
		Covers: []string{target},
		Tier:   scenario.TierAcceptance,
	}

	return appendScenario(plan, stub), stub, true
}

// ExampleStubFromPlan returns a copy of plan with a minimal example
// scenario appended: the binary's help output, expected to exit 0.
func ExampleStubFromPlan(plan *scenario.Plan) (*scenario.Plan, scenario.Spec) {
	if plan == nil {
		plan = &scenario.Plan{SchemaVersion: scenario.PlanSchemaVersion}
	}
	zero := 0
	stub := scenario.Spec{
		ID:     nextStubID(plan, ExampleStubID),
		Kind:   scenario.KindExample,
		Argv:   []string{"--help"},
		Tier:   scenario.TierAcceptance,
		Expect: scenario.Expect{ExitCode: &zero},
	}
	return appendScenario(plan, stub), stub
}

func appendScenario(plan *scenario.Plan, spec scenario.Spec) *scenario.Plan {
	copied := *plan
	copied.Scenarios = make([]scenario.Spec, 0, len(plan.Scenarios)+1)
	copied.Scenarios = append(copied.Scenarios, plan.Scenarios...)
	copied.Scenarios = append(copied.Scenarios, spec)
	return &copied
}

func nextStubID(plan *scenario.Plan, base string) string {
	if plan.Find(base) == nil {
		return base
	}
	for n := 1; ; n++ {
		id := base + "-" + strconv.Itoa(n)
		if plan.Find(id) == nil {
			return id
		}
	}
}

// stubArgv invokes a short flag on its own and asks everything else for
// help, so the stub cannot trigger side effects of a command or long option.
func stubArgv(id string) []string {
	if isShortFlag(id) {
		return []string{id}
	}
	return []string{id, "--help"}
}

func isShortFlag(id string) bool {
	return len(id) >= 2 && id[0] == '-' && !strings.HasPrefix(id, "--")
}
