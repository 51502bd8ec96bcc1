package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danieljhkim/docpack/internal/clock"
	"github.com/danieljhkim/docpack/internal/config"
	"github.com/danieljhkim/docpack/internal/fsops"
	"github.com/danieljhkim/docpack/internal/hash"
	"github.com/danieljhkim/docpack/internal/pack"
	"github.com/danieljhkim/docpack/internal/planner"
	"github.com/danieljhkim/docpack/internal/scenario"
)

const (
	testConfig  = `{"schema_version": 3, "binary": "tool", "runner": {"sandbox": {"mode": "off"}}}`
	testSurface = `{"schema_version": 1, "items": [{"id": "--color", "kind": "option"}]}`
	testPlan    = `{
		// JSONC is accepted in operator-authored files
		"schema_version": 4,
		"scenarios": [
			{"id": "help", "kind": "example", "argv": ["--help"], "covers": ["--color"],
			 "expect": {"exit_code": 0, "stdout_contains_all": ["usage"]}},
		],
		"verification": {"queue": [{"surface_id": "--color"}]}
	}`
	testMan = "# NAME\n\ntool\n\n# SYNOPSIS\n\ntool [--color]\n\n# DESCRIPTION\n\nA tool.\n"
)

// fakeProcessRunner answers every invocation with a usage message.
type fakeProcessRunner struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeProcessRunner) Run(ctx context.Context, inv scenario.Invocation) (scenario.Outcome, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	zero := 0
	return scenario.Outcome{ExitCode: &zero, Stdout: []byte("usage: tool [--color]\n")}, nil
}

type testEnv struct {
	t      *testing.T
	root   string
	clock  *clock.FakeClock
	proc   *fakeProcessRunner
	engine *Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		t:     t,
		root:  t.TempDir(),
		clock: clock.NewFakeClock(time.UnixMilli(1_700_000_000_000)),
		proc:  &fakeProcessRunner{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env.engine = New(fsops.NewRealFS(), hash.NewBlake3Hasher(), env.clock, env.proc, logger)
	env.write(config.ConfigPath, testConfig)
	return env
}

func (env *testEnv) write(rel, content string) {
	env.t.Helper()
	path := filepath.Join(env.root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		env.t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		env.t.Fatal(err)
	}
}

func (env *testEnv) read(rel string) string {
	env.t.Helper()
	data, err := os.ReadFile(filepath.Join(env.root, rel))
	if err != nil {
		env.t.Fatalf("failed to read %s: %v", rel, err)
	}
	return string(data)
}

func (env *testEnv) exists(rel string) bool {
	_, err := os.Stat(filepath.Join(env.root, rel))
	return err == nil
}

func (env *testEnv) writeFullPack() {
	env.write(config.DefaultSurfacePath, testSurface)
	env.write(config.DefaultScenarioPlanPath, testPlan)
	env.write("man/tool.md", testMan)
}

func (env *testEnv) history() []pack.HistoryRecord {
	env.t.Helper()
	p := pack.New(env.root, fsops.NewRealFS(), hash.NewBlake3Hasher(), env.clock)
	records, err := p.LoadHistory()
	if err != nil {
		env.t.Fatal(err)
	}
	return records
}

func TestEngine_Pipeline(t *testing.T) {
	env := newTestEnv(t)
	env.writeFullPack()
	ctx := context.Background()
	e := env.engine

	if _, err := e.Validate(ctx, &ValidateRequest{Root: env.root}); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	planned, err := e.Plan(ctx, &PlanRequest{Root: env.root})
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if planned.Plan.Decision != planner.DecisionIncomplete {
		t.Fatalf("before any run: decision = %s (%s)", planned.Plan.Decision, planned.Plan.DecisionReason)
	}
	if next := planned.Plan.NextAction; next == nil || !strings.Contains(next.Command, "docpack run") {
		t.Errorf("next action should run the uncovered scenario, got %+v", next)
	}

	run, err := e.Run(ctx, &RunRequest{Root: env.root})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if run.Total != 1 || run.Passed() != 1 {
		t.Fatalf("unexpected run result %+v", run.RunResult)
	}
	if !env.exists(config.ScenarioEvidencePath("help")) || !env.exists(config.ScenarioIndexPath) {
		t.Fatal("run should write evidence and the index")
	}

	planned, err = e.Plan(ctx, &PlanRequest{Root: env.root})
	if err != nil {
		t.Fatal(err)
	}
	if planned.Plan.Decision != planner.DecisionComplete {
		for _, st := range planned.Plan.Requirements {
			t.Logf("%s: %s (%s)", st.ID, st.State, st.Reason)
		}
		t.Fatalf("after run: decision = %s", planned.Plan.Decision)
	}

	applied, err := e.Apply(ctx, &ApplyRequest{Root: env.root})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if applied.ForceUsed || applied.Report.Decision != string(planner.DecisionComplete) {
		t.Errorf("unexpected apply result %+v", applied)
	}
	for _, rel := range []string{config.CoverageLedgerPath, config.VerificationLedgerPath, config.ReportPath} {
		if !env.exists(rel) {
			t.Errorf("apply should write %s", rel)
		}
	}
	if env.exists(config.TxnsDir) {
		t.Error("apply should remove the transactions directory")
	}
	if r := applied.Report; r.Coverage.Covered != 1 || r.Verification.Verified != 1 || r.Scenarios.Passing != 1 {
		t.Errorf("report counts = %+v", r)
	}

	var steps []string
	for _, rec := range env.history() {
		if !rec.Success {
			t.Errorf("history record %s failed: %s", rec.Step, rec.Message)
		}
		steps = append(steps, rec.Step)
	}
	if got := strings.Join(steps, ","); got != "validate,plan,run,plan,apply" {
		t.Errorf("history steps = %s", got)
	}
}

func TestEngine_ValidateIsByteIdentical(t *testing.T) {
	env := newTestEnv(t)
	env.writeFullPack()
	ctx := context.Background()

	first, err := env.engine.Validate(ctx, &ValidateRequest{Root: env.root})
	if err != nil {
		t.Fatal(err)
	}
	before := env.read(config.LockPath)

	env.clock.Advance(time.Hour)
	second, err := env.engine.Validate(ctx, &ValidateRequest{Root: env.root})
	if err != nil {
		t.Fatal(err)
	}
	if !first.Written || second.Written {
		t.Errorf("written flags = %v, %v; want true, false", first.Written, second.Written)
	}
	if after := env.read(config.LockPath); after != before {
		t.Error("validating unchanged inputs rewrote the lock")
	}

	env.write("man/tool.md", testMan+"\nmore\n")
	third, err := env.engine.Validate(ctx, &ValidateRequest{Root: env.root})
	if err != nil {
		t.Fatal(err)
	}
	if !third.Written || third.Lock.InputsHash == first.Lock.InputsHash {
		t.Error("changed input should produce a new lock")
	}
}

func TestEngine_ValidateMissingTemplate(t *testing.T) {
	env := newTestEnv(t)
	env.write(config.ConfigPath, `{"schema_version": 3, "binary": "tool", "templates": ["templates/ref.md"]}`)

	_, err := env.engine.Validate(context.Background(), &ValidateRequest{Root: env.root})
	if !errors.Is(err, ErrMissingInput) || !strings.Contains(err.Error(), "templates/ref.md") {
		t.Fatalf("expected ErrMissingInput naming the template, got %v", err)
	}
	records := env.history()
	if len(records) != 1 || records[0].Success {
		t.Errorf("failed validate should be recorded, got %+v", records)
	}
}

func TestEngine_MissingConfig(t *testing.T) {
	env := newTestEnv(t)
	if err := os.Remove(filepath.Join(env.root, config.ConfigPath)); err != nil {
		t.Fatal(err)
	}
	if _, err := env.engine.Plan(context.Background(), &PlanRequest{Root: env.root}); err == nil {
		t.Fatal("expected an error without a config")
	}
	if env.exists(config.HistoryPath) {
		t.Error("history must not be written outside a pack")
	}
}

func TestEngine_RunErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.engine.Run(ctx, &RunRequest{Root: env.root}); !errors.Is(err, ErrNoScenarioPlan) {
		t.Errorf("expected ErrNoScenarioPlan, got %v", err)
	}

	env.write(config.DefaultScenarioPlanPath, testPlan)
	if _, err := env.engine.Run(ctx, &RunRequest{Root: env.root, ScenarioIDs: []string{"nope"}}); !errors.Is(err, scenario.ErrUnknownScenario) {
		t.Errorf("expected ErrUnknownScenario, got %v", err)
	}
	if env.proc.calls != 0 {
		t.Errorf("nothing should have run, got %d calls", env.proc.calls)
	}
}
