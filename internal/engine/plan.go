package engine

import (
	"context"
	"fmt"

	"github.com/danieljhkim/docpack/internal/pack"
	"github.com/danieljhkim/docpack/internal/planner"
	"github.com/danieljhkim/docpack/internal/requirements"
)

// Plan evaluates every requirement against the current pack and saves the
// result to enrich/plan.out.json. Requirement problems are part of the plan,
// never an error.
func (e *Engine) Plan(ctx context.Context, req *PlanRequest) (result *PlanResult, err error) {
	p, cfg, err := e.open(req.Root)
	if err != nil {
		return nil, err
	}
	step := e.beginStep(p, pack.StepPlan)
	defer func() { step.finish(err) }()

	snap, err := requirements.Load(p, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load pack: %w", err)
	}
	if snap.LockStatus != nil && snap.LockStatus.Stale {
		step.logger.Warn("planning against a stale lock; run validate first")
	}

	plan := planner.Build(snap, p.NowMillis())
	data, err := planner.Save(p, plan)
	if err != nil {
		return nil, err
	}
	step.rec.InputsHash = plan.InputsHash()
	step.rec.OutputsHash = p.Hasher.HashBytes(data)

	step.logger.Info("plan computed", "decision", plan.Decision, "planned_actions", len(plan.PlannedActions), "blockers", len(plan.Blockers))
	return &PlanResult{Plan: plan}, nil
}
