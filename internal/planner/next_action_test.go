package planner

import (
	"strings"
	"testing"

	"github.com/danieljhkim/docpack/internal/action"
	"github.com/danieljhkim/docpack/internal/config"
	"github.com/danieljhkim/docpack/internal/requirements"
	"github.com/danieljhkim/docpack/internal/scenario"
	"github.com/danieljhkim/docpack/internal/surface"
)

func intPtr(v int) *int { return &v }

// queueSnapshot builds a snapshot whose verification queue holds one id.
func queueSnapshot(t *testing.T, tier string, scenarios []scenario.Spec, runs map[string]*scenario.Evidence) *requirements.Snapshot {
	t.Helper()
	cfg, err := config.Parse([]byte(`{"schema_version": 3, "binary": "tool", "verification_tier": "` + tier + `"}`))
	if err != nil {
		t.Fatal(err)
	}
	inv := &surface.Inventory{SchemaVersion: surface.SchemaVersion, Items: []surface.Item{{ID: "--color", Kind: surface.KindOption}}}
	s := &requirements.Snapshot{
		Root:     "/packs/tool",
		Config:   cfg,
		Surface:  surface.LoadResult{State: surface.StateValid, Path: cfg.Surface, Inventory: inv},
		Plan:     &scenario.Plan{SchemaVersion: scenario.PlanSchemaVersion, Scenarios: scenarios, Verification: scenario.Verification{Queue: []scenario.QueueEntry{{SurfaceID: "--color"}}}},
		Index:    scenario.NewIndex(),
		Evidence: runs,
	}
	s.BuildLedgers()
	return s
}

func TestResolveNextAction_BlockedFirstByPriority(t *testing.T) {
	surfaceFix := action.Command("docpack lint --pack /p", "fix surface")
	planFix := action.Command("docpack lint --pack /p --plan", "fix plan")
	statuses := []requirements.Status{
		{ID: requirements.Coverage, State: requirements.StateBlocked, Blockers: []requirements.Blocker{{Code: "b", NextAction: planFix}}},
		{ID: requirements.Surface, State: requirements.StateBlocked, Blockers: []requirements.Blocker{{Code: "a", NextAction: surfaceFix}}},
	}
	s := queueSnapshot(t, config.TierAccepted, nil, nil)

	got := ResolveNextAction(s, statuses, nil)
	if got != surfaceFix {
		t.Errorf("expected the surface blocker's action, got %+v", got)
	}
}

func TestResolveNextAction_Queue(t *testing.T) {
	covering := []scenario.Spec{{ID: "color", Argv: []string{"--color"}, Covers: []string{"--color"}}}
	passed := &scenario.Evidence{ScenarioID: "color", ExitCode: intPtr(0), Passed: true}
	failed := &scenario.Evidence{ScenarioID: "color", ExitCode: intPtr(1), Passed: false, HasAssertions: true}

	tests := []struct {
		name      string
		tier      string
		scenarios []scenario.Spec
		evidence  map[string]*scenario.Evidence
		wantKind  string
		wantText  string
	}{
		{
			name:     "no covering scenario",
			tier:     config.TierAccepted,
			wantKind: action.KindEdit,
			wantText: `"coverage-todo"`,
		},
		{
			name:      "covering scenario never ran",
			tier:      config.TierAccepted,
			scenarios: covering,
			evidence:  map[string]*scenario.Evidence{},
			wantKind:  action.KindCommand,
			wantText:  "docpack run --pack /packs/tool --scenario color",
		},
		{
			name:      "covering scenario failing",
			tier:      config.TierBehavior,
			scenarios: covering,
			evidence:  map[string]*scenario.Evidence{"color": failed},
			wantKind:  action.KindCommand,
			wantText:  "docpack apply",
		},
		{
			name:      "passing but without assertions",
			tier:      config.TierBehavior,
			scenarios: covering,
			evidence:  map[string]*scenario.Evidence{"color": passed},
			wantKind:  action.KindEdit,
			wantText:  `"id": "color"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := queueSnapshot(t, tt.tier, tt.scenarios, tt.evidence)
			got := ResolveNextAction(s, nil, nil)
			if got == nil {
				t.Fatal("expected an action")
			}
			if got.Kind != tt.wantKind {
				t.Fatalf("kind = %s, want %s (%+v)", got.Kind, tt.wantKind, got)
			}
			text := got.Command
			if got.Kind == action.KindEdit {
				text = got.Content
				if got.Path != config.DefaultScenarioPlanPath {
					t.Errorf("edit path = %q", got.Path)
				}
			}
			if !strings.Contains(text, tt.wantText) {
				t.Errorf("action text %q does not contain %q", text, tt.wantText)
			}
		})
	}
}

func TestResolveNextAction_Fallbacks(t *testing.T) {
	covering := []scenario.Spec{{ID: "color", Covers: []string{"--color"}}}
	verified := map[string]*scenario.Evidence{"color": {ScenarioID: "color", ExitCode: intPtr(0), Passed: true}}
	s := queueSnapshot(t, config.TierAccepted, covering, verified)
	if len(s.Verification.UnverifiedIDs) != 0 {
		t.Fatalf("fixture should verify --color: %v", s.Verification.UnverifiedIDs)
	}

	planned := []PlannedAction{{ID: "edit:man/tool.md", Action: action.Edit("man/tool.md", "", "r"), Requirements: []string{"man"}}}
	got := ResolveNextAction(s, nil, planned)
	if got == nil || got.Command != action.Pipeline("/packs/tool") {
		t.Errorf("expected the pipeline, got %+v", got)
	}
	if got := ResolveNextAction(s, nil, nil); got != nil {
		t.Errorf("expected nil without planned actions, got %+v", got)
	}
}

func TestResolveNextAction_QueueIgnoredWhenDisabled(t *testing.T) {
	s := queueSnapshot(t, config.TierAccepted, nil, nil)
	s.Config.Requirements = []string{requirements.Lock}
	if got := ResolveNextAction(s, nil, nil); got != nil {
		t.Errorf("queue should not drive a disabled requirement, got %+v", got)
	}
}
