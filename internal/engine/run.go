package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/danieljhkim/docpack/internal/config"
	"github.com/danieljhkim/docpack/internal/pack"
	"github.com/danieljhkim/docpack/internal/scenario"
)

// Run executes scenarios from the scenario plan and records their evidence.
// Failing scenarios are data in the result; only infrastructure failures
// are returned as errors.
func (e *Engine) Run(ctx context.Context, req *RunRequest) (result *RunResult, err error) {
	p, cfg, err := e.open(req.Root)
	if err != nil {
		return nil, err
	}
	step := e.beginStep(p, pack.StepRun)
	defer func() { step.finish(err) }()

	plan, err := scenario.LoadPlan(p, cfg.ScenarioPlan)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoScenarioPlan, cfg.ScenarioPlan)
		}
		return nil, err
	}
	if step.rec.InputsHash, err = p.HashFile(cfg.ScenarioPlan); err != nil {
		return nil, fmt.Errorf("failed to hash scenario plan: %w", err)
	}

	opts := scenario.OptionsFromConfig(cfg)
	opts.ScenarioIDs = req.ScenarioIDs

	runner := scenario.NewRunner(p, e.proc, step.logger)
	res, err := runner.Run(ctx, plan, opts)
	if res != nil {
		if hash, hashErr := p.HashFile(config.ScenarioIndexPath); hashErr == nil {
			step.rec.OutputsHash = hash
		}
	}
	if err != nil {
		return nil, fmt.Errorf("scenario run failed: %w", err)
	}

	step.logger.Info("scenarios finished", "total", len(res.Results), "passed", res.Passed(), "sandboxed", res.Sandboxed)
	return &RunResult{RunResult: res, Total: len(res.Results)}, nil
}
