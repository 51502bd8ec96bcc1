package ledger

import (
	"reflect"
	"testing"

	"github.com/danieljhkim/docpack/internal/config"
	"github.com/danieljhkim/docpack/internal/evidence"
	"github.com/danieljhkim/docpack/internal/scenario"
	"github.com/danieljhkim/docpack/internal/surface"
)

func intPtr(v int) *int { return &v }

func inventory(ids ...string) *surface.Inventory {
	inv := &surface.Inventory{SchemaVersion: surface.SchemaVersion}
	for _, id := range ids {
		kind := surface.KindCommand
		if id[0] == '-' {
			kind = surface.KindOption
		}
		inv.Items = append(inv.Items, surface.Item{ID: id, Kind: kind})
	}
	return inv
}

func TestBuildCoverage(t *testing.T) {
	inv := inventory("--color", "list", "-v")
	inv.Items = append(inv.Items, surface.Item{ID: "TOOL_HOME", Kind: "env"})
	plan := &scenario.Plan{Scenarios: []scenario.Spec{
		{ID: "list-help", Covers: []string{"list"}},
		{ID: "verbose", Covers: []string{"-v", "list"}},
	}}

	got := BuildCoverage(inv, plan)
	if got.CoveredCount != 2 {
		t.Errorf("CoveredCount = %d, want 2", got.CoveredCount)
	}
	if !reflect.DeepEqual(got.UncoveredIDs, []string{"--color"}) {
		t.Errorf("UncoveredIDs = %v", got.UncoveredIDs)
	}
	if len(got.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(got.Items))
	}
	if !reflect.DeepEqual(got.Items[1].Scenarios, []string{"list-help", "verbose"}) {
		t.Errorf("list scenarios = %v", got.Items[1].Scenarios)
	}
}

func TestBuildCoverage_NilInputs(t *testing.T) {
	got := BuildCoverage(nil, nil)
	if len(got.Items) != 0 || len(got.UncoveredIDs) != 0 {
		t.Errorf("unexpected ledger %+v", got)
	}
	got = BuildCoverage(inventory("-x"), nil)
	if !reflect.DeepEqual(got.UncoveredIDs, []string{"-x"}) {
		t.Errorf("UncoveredIDs = %v", got.UncoveredIDs)
	}
}

func TestCoverageStubFromPlan(t *testing.T) {
	empty := &scenario.Plan{SchemaVersion: scenario.PlanSchemaVersion}

	updated, stub, ok := CoverageStubFromPlan(empty, []string{"--color"})
	if !ok {
		t.Fatal("expected a stub")
	}
	if stub.ID != "coverage-todo" {
		t.Errorf("ID = %s", stub.ID)
	}
	if !reflect.DeepEqual(stub.Argv, []string{"--color", "--help"}) {
		t.Errorf("Argv = %v", stub.Argv)
	}
	if !reflect.DeepEqual(stub.Covers, []string{"--color"}) || stub.Tier != scenario.TierAcceptance {
		t.Errorf("unexpected stub %+v", stub)
	}
	if len(empty.Scenarios) != 0 {
		t.Error("input plan must not be mutated")
	}

	again, stub2, ok := CoverageStubFromPlan(updated, []string{"--color"})
	if !ok || stub2.ID != "coverage-todo-1" {
		t.Errorf("second stub id = %s", stub2.ID)
	}
	if len(again.Scenarios) != 2 || len(updated.Scenarios) != 1 {
		t.Errorf("unexpected lengths: again=%d updated=%d", len(again.Scenarios), len(updated.Scenarios))
	}

	third, stub3, _ := CoverageStubFromPlan(again, []string{"list"})
	if stub3.ID != "coverage-todo-2" || !reflect.DeepEqual(stub3.Argv, []string{"list", "--help"}) {
		t.Errorf("third stub = %+v", stub3)
	}
	if third.Scenarios[0].ID != "coverage-todo" {
		t.Error("existing scenarios should keep their order")
	}
}

func TestCoverageStubFromPlan_EdgeCases(t *testing.T) {
	if _, _, ok := CoverageStubFromPlan(&scenario.Plan{}, nil); ok {
		t.Error("no uncovered ids should yield no stub")
	}

	updated, stub, ok := CoverageStubFromPlan(nil, []string{"-v"})
	if !ok || updated.SchemaVersion != scenario.PlanSchemaVersion {
		t.Fatalf("nil plan should produce a fresh plan: %+v", updated)
	}
	if !reflect.DeepEqual(stub.Argv, []string{"-v"}) {
		t.Errorf("short flag argv = %v", stub.Argv)
	}
}

func verificationFixture() Inputs {
	plan := &scenario.Plan{
		Scenarios: []scenario.Spec{
			{ID: "s-color", Covers: []string{"--color"}},
			{ID: "s-list", Covers: []string{"list"}, Expect: scenario.Expect{ExitCode: intPtr(0)}},
			{ID: "s-never", Covers: []string{"--quiet"}},
		},
		Verification: scenario.Verification{
			Queue: []scenario.QueueEntry{
				{SurfaceID: "--quiet"},
				{SurfaceID: "list"},
				{SurfaceID: "--color"},
				{SurfaceID: "--debug"},
				{SurfaceID: "--trace", Tier: config.TierBehavior},
			},
			Exclusions: []scenario.Exclusion{{
				SurfaceID:  "--debug",
				ReasonCode: "destructive",
				Evidence:   []evidence.Ref{{Path: "notes/debug.md"}},
			}},
		},
	}
	idx := scenario.NewIndex()
	idx.Record("s-color", scenario.IndexEntry{LastPass: true, EvidencePath: "inventory/scenarios/s-color.json", EvidenceHash: "h1"})
	idx.Record("s-list", scenario.IndexEntry{LastPass: true, EvidencePath: "inventory/scenarios/s-list.json", EvidenceHash: "h2"})

	return Inputs{
		Inventory: inventory("--color", "list", "--quiet", "--debug"),
		Plan:      plan,
		Index:     idx,
		Evidence: map[string]*scenario.Evidence{
			"s-color": {ExitCode: intPtr(0), Passed: true},
			"s-list":  {ExitCode: intPtr(0), Passed: true, HasAssertions: true},
		},
		Tier: config.TierAccepted,
	}
}

func TestBuildVerification_Statuses(t *testing.T) {
	ledger := BuildVerification(verificationFixture())

	tests := []struct {
		id             string
		status         string
		behaviorStatus string
	}{
		{"--color", StatusVerified, StatusUnverified},
		{"list", StatusVerified, StatusVerified},
		{"--quiet", StatusUnverified, StatusUnverified},
		{"--debug", StatusExcluded, StatusExcluded},
		{"--trace", StatusUnverified, StatusUnverified},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			entry := ledger.Entry(tt.id)
			if entry == nil {
				t.Fatal("missing entry")
			}
			if entry.Status != tt.status || entry.BehaviorStatus != tt.behaviorStatus {
				t.Errorf("status=%s behavior=%s, want %s/%s", entry.Status, entry.BehaviorStatus, tt.status, tt.behaviorStatus)
			}
		})
	}

	color := ledger.Entry("--color")
	if !reflect.DeepEqual(color.Evidence, []evidence.Ref{{Path: "inventory/scenarios/s-color.json", Hash: "h1"}}) {
		t.Errorf("--color evidence = %v", color.Evidence)
	}
	if !reflect.DeepEqual(ledger.UnverifiedIDs, []string{"--quiet"}) {
		t.Errorf("UnverifiedIDs = %v", ledger.UnverifiedIDs)
	}
}

func TestCollectUnverified_Tiers(t *testing.T) {
	in := verificationFixture()
	ledger := BuildVerification(in)

	ids, refs := CollectUnverified(in.Plan.Verification.Queue, ledger, config.TierBehavior)
	want := []string{"--quiet", "--color", "--trace"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("behavior unverified = %v, want %v", ids, want)
	}
	if !reflect.DeepEqual(refs, []evidence.Ref{{Path: "inventory/scenarios/s-color.json", Hash: "h1"}}) {
		t.Errorf("collected evidence should be preserved, got %v", refs)
	}

	ids, _ = CollectUnverified(in.Plan.Verification.Queue, ledger, config.TierAccepted)
	if !reflect.DeepEqual(ids, []string{"--quiet"}) {
		t.Errorf("accepted unverified = %v", ids)
	}
}

func TestBuildVerification_FailedStartIsNotExistenceProof(t *testing.T) {
	in := verificationFixture()
	in.Evidence["s-color"] = &scenario.Evidence{Failures: []string{"failed to start: x"}}

	ledger := BuildVerification(in)
	if got := ledger.Entry("--color").Status; got != StatusUnverified {
		t.Errorf("status = %s, want unverified", got)
	}
}

func TestVerification_Counts(t *testing.T) {
	ledger := BuildVerification(verificationFixture())
	v, e, u := ledger.Counts(config.TierAccepted)
	if v != 2 || e != 1 || u != 2 {
		t.Errorf("Counts = %d/%d/%d, want 2/1/2", v, e, u)
	}
}

func TestExampleStubFromPlan(t *testing.T) {
	plan := &scenario.Plan{SchemaVersion: scenario.PlanSchemaVersion, Scenarios: []scenario.Spec{{ID: "example-todo"}}}
	updated, stub := ExampleStubFromPlan(plan)
	if stub.ID != "example-todo-1" || stub.Kind != scenario.KindExample {
		t.Errorf("unexpected stub %+v", stub)
	}
	if stub.Expect.ExitCode == nil || *stub.Expect.ExitCode != 0 {
		t.Error("example stub should expect exit 0")
	}
	if len(updated.Scenarios) != 2 || len(plan.Scenarios) != 1 {
		t.Error("input plan must not be mutated")
	}
}
