package engine

import (
	"errors"

	"github.com/danieljhkim/docpack/internal/lock"
	"github.com/danieljhkim/docpack/internal/planner"
)

var (
	// ErrLockMissing indicates enrich/lock.json does not exist.
	ErrLockMissing = lock.ErrLockMissing

	// ErrMissingInput indicates a required lock input does not exist.
	ErrMissingInput = lock.ErrMissingInput

	// ErrPlanMissing indicates enrich/plan.out.json does not exist.
	ErrPlanMissing = planner.ErrPlanMissing

	// ErrStaleLock indicates tracked inputs changed since the last validate.
	ErrStaleLock = errors.New("lock is stale")

	// ErrPlanStale indicates the plan was computed from a different lock.
	ErrPlanStale = errors.New("plan is stale")

	// ErrNoScenarioPlan indicates the scenario plan does not exist.
	ErrNoScenarioPlan = errors.New("scenario plan not found")

	// ErrSurfaceUnavailable indicates the surface inventory is missing or
	// unusable.
	ErrSurfaceUnavailable = errors.New("surface inventory unavailable")

	// ErrLintFailed indicates lint found problems.
	ErrLintFailed = errors.New("lint found problems")
)
