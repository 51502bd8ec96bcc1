package engine

import (
	"context"
	"errors"
	"io/fs"

	"github.com/danieljhkim/docpack/internal/config"
	"github.com/danieljhkim/docpack/internal/lock"
	"github.com/danieljhkim/docpack/internal/pack"
	"github.com/danieljhkim/docpack/internal/planner"
	"github.com/danieljhkim/docpack/internal/scenario"
	"github.com/danieljhkim/docpack/internal/surface"
)

// Lint checks that every artifact present in the pack decodes and matches
// its schema. Missing optional artifacts are not problems. Lint never
// writes.
func (e *Engine) Lint(ctx context.Context, req *LintRequest) (*LintResult, error) {
	result := &LintResult{Checked: []string{}, Problems: []LintProblem{}}
	problem := func(path string, err error) {
		result.Problems = append(result.Problems, LintProblem{Path: path, Message: err.Error()})
	}

	result.Checked = append(result.Checked, config.ConfigPath)
	p, cfg, err := e.open(req.Root)
	if err != nil {
		problem(config.ConfigPath, err)
		return result, nil
	}

	result.Checked = append(result.Checked, config.LockPath)
	if _, err := lock.Load(p); err != nil && !errors.Is(err, lock.ErrLockMissing) {
		problem(config.LockPath, err)
	}

	result.Checked = append(result.Checked, config.PlanPath)
	if _, err := planner.Load(p); err != nil && !errors.Is(err, planner.ErrPlanMissing) {
		problem(config.PlanPath, err)
	}

	result.Checked = append(result.Checked, cfg.Surface)
	inv, err := surface.Load(p, cfg.Surface)
	if err != nil {
		return nil, err
	}
	switch inv.State {
	case surface.StateParseError, surface.StateInvalid:
		problem(cfg.Surface, inv.Err)
	case surface.StateValid:
		for _, b := range inv.Inventory.Blockers {
			result.Problems = append(result.Problems, LintProblem{Path: cfg.Surface, Message: "provider blocker " + b.Code + ": " + b.Message})
		}
	}

	result.Checked = append(result.Checked, cfg.ScenarioPlan)
	plan, err := scenario.LoadPlan(p, cfg.ScenarioPlan)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		problem(cfg.ScenarioPlan, err)
	}

	result.Checked = append(result.Checked, config.ScenarioIndexPath)
	if _, err := scenario.LoadIndex(p); err != nil {
		problem(config.ScenarioIndexPath, err)
	}

	if plan != nil {
		for _, spec := range plan.Scenarios {
			_, err := scenario.LoadEvidence(p, spec.ID)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			rel := config.ScenarioEvidencePath(spec.ID)
			result.Checked = append(result.Checked, rel)
			if err != nil {
				problem(rel, err)
			}
		}
	}

	if rel := cfg.Runner.Sandbox.Profile; rel != "" {
		result.Checked = append(result.Checked, rel)
		lintProfile(p, rel, problem)
	}

	e.logger.Debug("lint finished", "checked", len(result.Checked), "problems", len(result.Problems))
	return result, nil
}

func lintProfile(p *pack.Pack, rel string, problem func(string, error)) {
	data, err := p.ReadFile(rel)
	if err != nil {
		problem(rel, err)
		return
	}
	if _, err := scenario.ParseProfile(data); err != nil {
		problem(rel, err)
	}
}
