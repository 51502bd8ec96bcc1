package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/danieljhkim/docpack/internal/planner"
	"github.com/danieljhkim/docpack/internal/requirements"
)

// DefaultHistoryLimit is how many history records Status returns when the
// request does not say.
const DefaultHistoryLimit = 5

// Status evaluates the pack without writing anything.
func (e *Engine) Status(ctx context.Context, req *StatusRequest) (*StatusResult, error) {
	p, cfg, err := e.open(req.Root)
	if err != nil {
		return nil, err
	}

	snap, err := requirements.Load(p, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load pack: %w", err)
	}

	result := &StatusResult{
		Root:       p.Root,
		Binary:     cfg.Binary,
		Lock:       snap.Lock,
		LockStatus: snap.LockStatus,
		Plan:       planner.Build(snap, p.NowMillis()),
	}

	saved, err := planner.Load(p)
	switch {
	case errors.Is(err, planner.ErrPlanMissing):
	case err != nil:
		result.SavedPlanPresent = true
		result.SavedPlanStale = true
	default:
		result.SavedPlanPresent = true
		current := ""
		if snap.Lock != nil {
			current = snap.Lock.InputsHash
		}
		result.SavedPlanStale = saved.InputsHash() != current
	}

	history, err := p.LoadHistory()
	if err != nil {
		return nil, err
	}
	limit := req.HistoryLimit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	result.History = history
	return result, nil
}
