package engine

import (
	"context"
	"fmt"

	"github.com/danieljhkim/docpack/internal/ledger"
	"github.com/danieljhkim/docpack/internal/requirements"
	"github.com/danieljhkim/docpack/internal/schema"
	"github.com/danieljhkim/docpack/internal/surface"
)

// Stub synthesizes a scenario covering the first uncovered surface item.
// With Write the updated scenario plan is saved; existing scenarios are
// never modified.
func (e *Engine) Stub(ctx context.Context, req *StubRequest) (*StubResult, error) {
	p, cfg, err := e.open(req.Root)
	if err != nil {
		return nil, err
	}

	snap, err := requirements.Load(p, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load pack: %w", err)
	}
	if snap.PlanErr != nil {
		return nil, snap.PlanErr
	}
	if snap.Surface.State != surface.StateValid {
		return nil, fmt.Errorf("%w: %s is %s", ErrSurfaceUnavailable, cfg.Surface, snap.Surface.State)
	}

	result := &StubResult{Path: cfg.ScenarioPlan}
	updated, stub, ok := ledger.CoverageStubFromPlan(snap.PlanOrEmpty(), snap.Coverage.UncoveredIDs)
	if !ok {
		return result, nil
	}
	result.Stub = &stub

	content, err := schema.Marshal(updated)
	if err != nil {
		return nil, fmt.Errorf("failed to encode scenario plan: %w", err)
	}
	result.Content = string(content)

	if req.Write {
		if err := p.FS.AtomicWrite(p.Path(cfg.ScenarioPlan), content, 0644); err != nil {
			return nil, fmt.Errorf("failed to write scenario plan: %w", err)
		}
		result.Written = true
		e.logger.Info("coverage stub written", "scenario", stub.ID, "covers", stub.Covers[0])
	}
	return result, nil
}
