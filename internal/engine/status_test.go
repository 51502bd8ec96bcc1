package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/danieljhkim/docpack/internal/config"
	"github.com/danieljhkim/docpack/internal/planner"
)

func TestStatus_ReadOnly(t *testing.T) {
	env := newTestEnv(t)
	env.writeFullPack()

	status, err := env.engine.Status(context.Background(), &StatusRequest{Root: env.root})
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.Lock != nil || status.SavedPlanPresent || status.Binary != "tool" {
		t.Errorf("unexpected status %+v", status)
	}
	if status.Plan.Decision != planner.DecisionIncomplete {
		t.Errorf("decision = %s", status.Plan.Decision)
	}
	for _, rel := range []string{config.LockPath, config.PlanPath, config.HistoryPath} {
		if env.exists(rel) {
			t.Errorf("status must not write %s", rel)
		}
	}
}

func TestStatus_SavedPlanStaleness(t *testing.T) {
	env := newTestEnv(t)
	env.writeFullPack()
	mustValidate(env)
	mustPlan(env)

	status, err := env.engine.Status(context.Background(), &StatusRequest{Root: env.root, HistoryLimit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if !status.SavedPlanPresent || status.SavedPlanStale {
		t.Errorf("fresh plan reported as present=%v stale=%v", status.SavedPlanPresent, status.SavedPlanStale)
	}
	if len(status.History) != 1 || status.History[0].Step != "plan" {
		t.Errorf("history = %+v", status.History)
	}

	env.write("man/tool.md", testMan+"\n## SEE ALSO\n")
	mustValidate(env)
	status, err = env.engine.Status(context.Background(), &StatusRequest{Root: env.root})
	if err != nil {
		t.Fatal(err)
	}
	if !status.SavedPlanStale {
		t.Error("plan computed from an older lock should be stale")
	}
}

func TestLint(t *testing.T) {
	env := newTestEnv(t)
	env.writeFullPack()

	result, err := env.engine.Lint(context.Background(), &LintRequest{Root: env.root})
	if err != nil {
		t.Fatal(err)
	}
	if !result.OK() {
		t.Fatalf("clean pack has problems: %+v", result.Problems)
	}

	env.write(config.DefaultSurfacePath, `{"schema_version": 1, "items": [{"id": "-a", "kind": "option"}, {"id": "-a", "kind": "option"}]}`)
	env.write(config.DefaultScenarioPlanPath, `{"schema_version": 4, "scenarios": [{"id": "x", "argv": [], "bogus": true}]}`)
	env.write(config.ScenarioIndexPath, `{"schema_version": 9}`)

	result, err = env.engine.Lint(context.Background(), &LintRequest{Root: env.root})
	if err != nil {
		t.Fatal(err)
	}
	paths := map[string]bool{}
	for _, p := range result.Problems {
		paths[p.Path] = true
	}
	for _, want := range []string{config.DefaultSurfacePath, config.DefaultScenarioPlanPath, config.ScenarioIndexPath} {
		if !paths[want] {
			t.Errorf("expected a problem for %s, got %+v", want, result.Problems)
		}
	}
}

func TestLint_BrokenConfig(t *testing.T) {
	env := newTestEnv(t)
	env.write(config.ConfigPath, `{"schema_version": 2, "binary": "tool"}`)

	result, err := env.engine.Lint(context.Background(), &LintRequest{Root: env.root})
	if err != nil {
		t.Fatal(err)
	}
	if result.OK() || result.Problems[0].Path != config.ConfigPath {
		t.Errorf("expected a config problem, got %+v", result.Problems)
	}
}

func TestStub(t *testing.T) {
	env := newTestEnv(t)
	env.write(config.DefaultSurfacePath, `{"schema_version": 1, "items": [{"id": "--color", "kind": "option"}, {"id": "-v", "kind": "option"}]}`)
	ctx := context.Background()

	preview, err := env.engine.Stub(ctx, &StubRequest{Root: env.root})
	if err != nil {
		t.Fatalf("Stub failed: %v", err)
	}
	if preview.Stub == nil || preview.Stub.ID != "coverage-todo" || preview.Written {
		t.Fatalf("unexpected preview %+v", preview)
	}
	if env.exists(config.DefaultScenarioPlanPath) {
		t.Fatal("preview must not write the scenario plan")
	}

	written, err := env.engine.Stub(ctx, &StubRequest{Root: env.root, Write: true})
	if err != nil {
		t.Fatal(err)
	}
	if !written.Written || !strings.Contains(env.read(config.DefaultScenarioPlanPath), `"coverage-todo"`) {
		t.Fatalf("stub not written: %+v", written)
	}

	second, err := env.engine.Stub(ctx, &StubRequest{Root: env.root, Write: true})
	if err != nil {
		t.Fatal(err)
	}
	if second.Stub.ID != "coverage-todo-1" || strings.Join(second.Stub.Argv, " ") != "-v" {
		t.Errorf("second stub = %+v", second.Stub)
	}

	third, err := env.engine.Stub(ctx, &StubRequest{Root: env.root})
	if err != nil {
		t.Fatal(err)
	}
	if third.Stub != nil {
		t.Errorf("fully covered surface should produce no stub, got %+v", third.Stub)
	}
}

func TestStub_RequiresSurface(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.engine.Stub(context.Background(), &StubRequest{Root: env.root})
	if !errors.Is(err, ErrSurfaceUnavailable) {
		t.Errorf("expected ErrSurfaceUnavailable, got %v", err)
	}
}
