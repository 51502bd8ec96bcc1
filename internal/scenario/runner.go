package scenario

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/danieljhkim/docpack/internal/config"
	"github.com/danieljhkim/docpack/internal/pack"
)

// ErrUnknownScenario is returned when a requested scenario id is not in the
// plan.
var ErrUnknownScenario = errors.New("unknown scenario")

const defaultPath = "/usr/local/bin:/usr/bin:/bin"

// Options controls a run.
type Options struct {
	// ScenarioIDs restricts the run; empty runs every scenario in the plan.
	ScenarioIDs      []string
	Binary           string
	Workers          int
	DefaultTimeout   time.Duration
	MaxEvidenceBytes int
	SnippetMaxBytes  int
	SnippetMaxLines  int
	Sandbox          config.SandboxConfig
}

// OptionsFromConfig derives run options from the pack config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Binary:           cfg.Binary,
		Workers:          cfg.Runner.Workers,
		DefaultTimeout:   time.Duration(cfg.Runner.DefaultTimeoutSeconds) * time.Second,
		MaxEvidenceBytes: cfg.Runner.MaxEvidenceBytes,
		SnippetMaxBytes:  cfg.Runner.SnippetMaxBytes,
		SnippetMaxLines:  cfg.Runner.SnippetMaxLines,
		Sandbox:          cfg.Runner.Sandbox,
	}
}

// Result is the outcome of one scenario in a run.
type Result struct {
	ScenarioID   string   `json:"scenario_id"`
	Passed       bool     `json:"passed"`
	Failures     []string `json:"failures"`
	EvidencePath string   `json:"evidence_path"`
	EvidenceHash string   `json:"evidence_hash"`
}

// RunResult lists results in plan order. Scenarios skipped by cancellation
// are absent.
type RunResult struct {
	Results   []Result `json:"results"`
	Sandboxed bool     `json:"sandboxed"`
}

// Passed counts passing results.
func (r *RunResult) Passed() int {
	n := 0
	for _, res := range r.Results {
		if res.Passed {
			n++
		}
	}
	return n
}

// Runner executes scenarios against the target binary.
type Runner struct {
	pack     *pack.Pack
	proc     ProcessRunner
	logger   *slog.Logger
	lookPath func(string) (string, error)
}

// NewRunner creates a Runner.
func NewRunner(p *pack.Pack, proc ProcessRunner, logger *slog.Logger) *Runner {
	return &Runner{
		pack:     p,
		proc:     proc,
		logger:   logger,
		lookPath: exec.LookPath,
	}
}

type runEnv struct {
	binary  string
	sandbox *Sandbox
	opts    Options
}

// Run executes the selected scenarios over a bounded worker pool. Each
// worker writes its scenario's evidence file; a single collector folds the
// results into the on-disk index, which is rewritten atomically once all
// workers finish. Cancelling ctx stops dispatch; evidence already written
// is kept and indexed.
func (r *Runner) Run(ctx context.Context, plan *Plan, opts Options) (*RunResult, error) {
	specs, err := selectScenarios(plan, opts.ScenarioIDs)
	if err != nil {
		return nil, err
	}

	sandbox, err := ResolveSandbox(r.pack, opts.Sandbox, r.lookPath)
	if err != nil {
		return nil, err
	}
	if sandbox == nil && opts.Sandbox.Mode == config.SandboxAuto {
		r.logger.Warn("bwrap not found, running scenarios unsandboxed")
	}

	env := runEnv{binary: r.resolveBinary(opts.Binary), sandbox: sandbox, opts: opts}
	result := &RunResult{Sandboxed: sandbox != nil}
	if len(specs) == 0 {
		return result, nil
	}

	workers := opts.Workers
	if workers > len(specs) {
		workers = len(specs)
	}
	if workers < 1 {
		workers = 1
	}

	type done struct {
		result Result
		err    error
	}
	jobs := make(chan Spec)
	results := make(chan done, workers)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for spec := range jobs {
				res, err := r.runOne(ctx, spec, env)
				if ctx.Err() != nil {
					continue
				}
				results <- done{result: res, err: err}
			}
		}()
	}

	var (
		cerr      error
		cwg       sync.WaitGroup
		collected = make(map[string]Result, len(specs))
	)
	cwg.Add(1)
	go func() {
		defer cwg.Done()
		for d := range results {
			if d.err != nil {
				if cerr == nil {
					cerr = d.err
				}
				continue
			}
			collected[d.result.ScenarioID] = d.result
		}
	}()

feed:
	for _, spec := range specs {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- spec:
		}
	}
	close(jobs)
	wg.Wait()
	close(results)
	cwg.Wait()

	for _, spec := range specs {
		if res, ok := collected[spec.ID]; ok {
			result.Results = append(result.Results, res)
		}
	}
	if err := r.updateIndex(result.Results); err != nil && cerr == nil {
		cerr = err
	}

	if ctx.Err() != nil {
		return result, ctx.Err()
	}
	return result, cerr
}

func (r *Runner) updateIndex(results []Result) error {
	if len(results) == 0 {
		return nil
	}
	idx, err := LoadIndex(r.pack)
	if err != nil {
		r.logger.Warn("scenario index unreadable, rebuilding", "error", err)
		idx = NewIndex()
	}
	now := r.pack.NowMillis()
	for _, res := range results {
		idx.Record(res.ScenarioID, IndexEntry{
			LastPass:       res.Passed,
			EvidencePath:   res.EvidencePath,
			EvidenceHash:   res.EvidenceHash,
			LastRunEpochMS: now,
		})
	}
	return idx.Save(r.pack)
}

func (r *Runner) runOne(ctx context.Context, spec Spec, env runEnv) (Result, error) {
	logger := r.logger.With("scenario", spec.ID)
	logger.Debug("starting scenario", "argv", spec.Argv)

	scratch, err := os.MkdirTemp("", "docpack-"+spec.ID+"-")
	if err != nil {
		return Result{}, fmt.Errorf("failed to create scratch directory for %s: %w", spec.ID, err)
	}
	defer func() {
		if err := r.pack.FS.RemoveAll(scratch); err != nil {
			logger.Warn("failed to remove scratch directory", "path", scratch, "error", err)
		}
	}()

	ev := Evidence{
		SchemaVersion: EvidenceSchemaVersion,
		ScenarioID:    spec.ID,
		Kind:          spec.Kind,
		Tier:          spec.Tier,
		Binary:        env.opts.Binary,
		Argv:          spec.Argv,
		Env:           spec.Env,
		Cwd:           spec.Cwd,
		Covers:        spec.Covers,
		Sandboxed:     env.sandbox != nil,
		HasAssertions: spec.Expect.HasAssertions(),
	}

	var failures []string
	dir, err := r.prepare(scratch, spec)
	if err != nil {
		failures = []string{fmt.Sprintf("seed failed: %v", err)}
	} else {
		timeout := env.opts.DefaultTimeout
		if spec.TimeoutSeconds > 0 {
			timeout = time.Duration(spec.TimeoutSeconds) * time.Second
		}
		inv := Invocation{
			Path:           env.binary,
			Args:           spec.Argv,
			Env:            scenarioEnv(scratch, spec.Env),
			Dir:            dir,
			Scratch:        scratch,
			Timeout:        timeout,
			MaxOutputBytes: env.opts.MaxEvidenceBytes,
		}
		if env.sandbox != nil {
			inv = env.sandbox.Wrap(inv)
		}

		outcome, err := r.proc.Run(ctx, inv)
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		if err != nil {
			failures = []string{fmt.Sprintf("failed to start: %v", err)}
		} else {
			r.fillOutcome(&ev, outcome, env.opts)
			failures = Validate(spec.Expect, Observed{
				ExitCode:   outcome.ExitCode,
				ExitSignal: outcome.Signal,
				TimedOut:   outcome.TimedOut,
				Stdout:     string(outcome.Stdout),
				Stderr:     string(outcome.Stderr),
			})
		}
	}

	if failures == nil {
		failures = []string{}
	}
	ev.Failures = failures
	ev.Passed = len(failures) == 0
	ev.GeneratedAtMS = r.pack.NowMillis()

	rel := config.ScenarioEvidencePath(spec.ID)
	data, err := r.pack.WriteJSON(rel, ev)
	if err != nil {
		return Result{}, fmt.Errorf("failed to write evidence for %s: %w", spec.ID, err)
	}

	logger.Info("scenario finished", "passed", ev.Passed, "failures", len(failures), "duration_ms", ev.DurationMS)
	return Result{
		ScenarioID:   spec.ID,
		Passed:       ev.Passed,
		Failures:     failures,
		EvidencePath: rel,
		EvidenceHash: r.pack.Hasher.HashBytes(data),
	}, nil
}

// prepare seeds the scratch directory and returns the working directory.
func (r *Runner) prepare(scratch string, spec Spec) (string, error) {
	fs := r.pack.FS
	if spec.Seed != nil {
		if spec.Seed.Dir != "" {
			if err := fs.Copy(r.pack.Path(spec.Seed.Dir), scratch); err != nil {
				return "", fmt.Errorf("copy %s: %w", spec.Seed.Dir, err)
			}
		}
		for name, content := range spec.Seed.Files {
			if err := fs.ValidateRelPath(name); err != nil {
				return "", err
			}
			if err := fs.AtomicWrite(filepath.Join(scratch, filepath.FromSlash(name)), []byte(content), 0644); err != nil {
				return "", fmt.Errorf("write %s: %w", name, err)
			}
		}
	}

	dir := scratch
	if spec.Cwd != "" {
		dir = filepath.Join(scratch, filepath.FromSlash(spec.Cwd))
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("create cwd %s: %w", spec.Cwd, err)
		}
	}
	return dir, nil
}

func (r *Runner) fillOutcome(ev *Evidence, outcome Outcome, opts Options) {
	ev.ExitCode = outcome.ExitCode
	ev.ExitSignal = outcome.Signal
	if outcome.Signal != nil {
		ev.ExitSignalName = SignalName(*outcome.Signal)
	}
	ev.TimedOut = outcome.TimedOut
	ev.DurationMS = outcome.Duration.Milliseconds()

	var cut bool
	ev.Stdout, cut = Snippet(string(outcome.Stdout), opts.SnippetMaxBytes, opts.SnippetMaxLines)
	ev.StdoutTruncated = cut || outcome.StdoutTruncated
	ev.Stderr, cut = Snippet(string(outcome.Stderr), opts.SnippetMaxBytes, opts.SnippetMaxLines)
	ev.StderrTruncated = cut || outcome.StderrTruncated
}

func (r *Runner) resolveBinary(name string) string {
	switch {
	case filepath.IsAbs(name):
		return name
	case filepath.Base(name) != name:
		return r.pack.Path(name)
	}
	if path, err := r.lookPath(name); err == nil {
		return path
	}
	return name
}

// scenarioEnv is the cleared environment every scenario starts from.
func scenarioEnv(scratch string, declared map[string]string) map[string]string {
	path := os.Getenv("PATH")
	if path == "" {
		path = defaultPath
	}
	env := map[string]string{
		"PATH":   path,
		"HOME":   scratch,
		"LC_ALL": "C",
	}
	for k, v := range declared {
		env[k] = v
	}
	return env
}

func selectScenarios(plan *Plan, ids []string) ([]Spec, error) {
	if len(ids) == 0 {
		return plan.Scenarios, nil
	}
	seen := make(map[string]bool, len(ids))
	var specs []Spec
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		spec := plan.Find(id)
		if spec == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownScenario, id)
		}
		specs = append(specs, *spec)
	}
	return specs, nil
}
