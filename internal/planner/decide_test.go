package planner

import (
	"testing"

	"github.com/danieljhkim/docpack/internal/action"
	"github.com/danieljhkim/docpack/internal/requirements"
)

func status(id string, state requirements.State, remediation *action.NextAction) requirements.Status {
	return requirements.Status{ID: id, State: state, Remediation: remediation}
}

func TestPlannedActionsFromRequirements(t *testing.T) {
	validate := action.Command("docpack validate --pack /p", "refresh")
	run := action.Command("docpack run --pack /p", "gather")
	manEdit := action.Edit("man/tool.md", "# NAME\n", "add sections")

	statuses := []requirements.Status{
		status("lock", requirements.StateUnmet, validate),
		status("surface", requirements.StateMet, nil),
		status("examples", requirements.StateUnmet, run),
		status("verification", requirements.StateUnmet, action.Command("docpack run --pack /p", "other reason")),
		status("man", requirements.StateUnmet, manEdit),
	}

	planned := PlannedActionsFromRequirements(statuses)
	wantIDs := []string{"command:docpack run --pack /p", "command:docpack validate --pack /p", "edit:man/tool.md"}
	if len(planned) != len(wantIDs) {
		t.Fatalf("expected %d actions, got %+v", len(wantIDs), planned)
	}
	for i, id := range wantIDs {
		if planned[i].ID != id {
			t.Errorf("action %d: id = %q, want %q", i, planned[i].ID, id)
		}
	}
	if got := planned[0].Requirements; len(got) != 2 || got[0] != "examples" || got[1] != "verification" {
		t.Errorf("merged requirements = %v", got)
	}

	reversed := make([]requirements.Status, len(statuses))
	for i, st := range statuses {
		reversed[len(statuses)-1-i] = st
	}
	again := PlannedActionsFromRequirements(reversed)
	for i := range planned {
		if again[i].ID != planned[i].ID {
			t.Errorf("order depends on evaluation order: %v vs %v", again[i].ID, planned[i].ID)
		}
	}
}

func TestPlannedActionsFromRequirements_Empty(t *testing.T) {
	planned := PlannedActionsFromRequirements([]requirements.Status{status("lock", requirements.StateMet, nil)})
	if planned == nil || len(planned) != 0 {
		t.Errorf("expected empty non-nil list, got %#v", planned)
	}
}

func TestDecide(t *testing.T) {
	next := action.Command("docpack validate --pack /p", "refresh")
	blocker := requirements.Blocker{Code: "surface_parse_error", Message: "bad"}

	tests := []struct {
		name     string
		statuses []requirements.Status
		blockers []requirements.Blocker
		next     *action.NextAction
		want     Decision
	}{
		{
			name:     "all met",
			statuses: []requirements.Status{status("lock", requirements.StateMet, nil), status("man", requirements.StateMet, nil)},
			want:     DecisionComplete,
		},
		{
			name:     "one blocked among met",
			statuses: []requirements.Status{status("lock", requirements.StateMet, nil), status("surface", requirements.StateBlocked, nil)},
			blockers: []requirements.Blocker{blocker},
			next:     next,
			want:     DecisionStuck,
		},
		{
			name:     "blocked despite next action",
			statuses: []requirements.Status{status("lock", requirements.StateUnmet, next), status("surface", requirements.StateBlocked, nil)},
			next:     next,
			want:     DecisionStuck,
		},
		{
			name:     "met with pack blockers",
			statuses: []requirements.Status{status("lock", requirements.StateMet, nil)},
			blockers: []requirements.Blocker{blocker},
			next:     next,
			want:     DecisionStuck,
		},
		{
			name:     "unmet with next action",
			statuses: []requirements.Status{status("lock", requirements.StateUnmet, next)},
			next:     next,
			want:     DecisionIncomplete,
		},
		{
			name:     "unmet without next action",
			statuses: []requirements.Status{status("lock", requirements.StateUnmet, nil)},
			want:     DecisionStuck,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := Decide(tt.statuses, tt.blockers, tt.next)
			if got != tt.want {
				t.Errorf("Decide() = %s (%s), want %s", got, reason, tt.want)
			}
			if reason == "" {
				t.Error("decision reason must not be empty")
			}
		})
	}
}
