package planner

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/danieljhkim/docpack/internal/action"
	"github.com/danieljhkim/docpack/internal/config"
	"github.com/danieljhkim/docpack/internal/lock"
	"github.com/danieljhkim/docpack/internal/pack"
	"github.com/danieljhkim/docpack/internal/requirements"
	"github.com/danieljhkim/docpack/internal/schema"
)

// SchemaVersion is the enrich/plan.out.json schema version.
const SchemaVersion = 2

// ErrPlanMissing is returned when enrich/plan.out.json does not exist.
var ErrPlanMissing = errors.New("plan not found")

// Decision is the pack-wide classification of a plan.
type Decision string

const (
	DecisionComplete   Decision = "complete"
	DecisionIncomplete Decision = "incomplete"
	DecisionStuck      Decision = "stuck"
)

// Plan is enrich/plan.out.json. It is derived from the lock and the pack
// artifacts and is never edited by hand.
type Plan struct {
	// SchemaVersion is the plan file format version
	SchemaVersion int `json:"schema_version"`

	// GeneratedAtMS is when the plan was computed
	GeneratedAtMS int64 `json:"generated_at_epoch_ms"`

	// Requirements holds one status per enabled requirement, in priority order
	Requirements []requirements.Status `json:"requirements"`

	// PlannedActions is the deduplicated remediation list, sorted by action id
	PlannedActions []PlannedAction `json:"planned_actions"`

	// Blockers is the pack-wide blocker list
	Blockers []requirements.Blocker `json:"blockers"`

	Decision       Decision `json:"decision"`
	DecisionReason string   `json:"decision_reason"`

	// NextAction is nil when the decision is complete, or when nothing
	// actionable remains. A stuck plan with blockers carries the action that
	// resolves its first blocker
	NextAction *action.NextAction `json:"next_action"`

	// Lock is the lock the plan was computed from; nil if none existed
	Lock *lock.Lock `json:"lock"`
}

// PlannedAction is one remediation step and the requirements it serves.
type PlannedAction struct {
	ID           string             `json:"id"`
	Action       *action.NextAction `json:"action"`
	Requirements []string           `json:"requirements"`
}

// InputsHash returns the inputs_hash the plan was computed from, or "" when
// it was computed without a lock.
func (p *Plan) InputsHash() string {
	if p.Lock == nil {
		return ""
	}
	return p.Lock.InputsHash
}

// Status returns the status of requirement id, or nil.
func (p *Plan) Status(id string) *requirements.Status {
	for i := range p.Requirements {
		if p.Requirements[i].ID == id {
			return &p.Requirements[i]
		}
	}
	return nil
}

// Build computes a plan from a loaded snapshot.
func Build(s *requirements.Snapshot, now int64) *Plan {
	statuses := requirements.Evaluate(s)
	planned := PlannedActionsFromRequirements(statuses)
	blockers := requirements.PackBlockers(statuses)

	var next *action.NextAction
	if !allMet(statuses) || len(blockers) > 0 {
		next = ResolveNextAction(s, statuses, planned)
	}
	decision, reason := Decide(statuses, blockers, next)
	if decision == DecisionComplete {
		next = nil
	}

	if statuses == nil {
		statuses = []requirements.Status{}
	}
	return &Plan{
		SchemaVersion:  SchemaVersion,
		GeneratedAtMS:  now,
		Requirements:   statuses,
		PlannedActions: planned,
		Blockers:       blockers,
		Decision:       decision,
		DecisionReason: reason,
		NextAction:     next,
		Lock:           s.Lock,
	}
}

// Load reads enrich/plan.out.json and normalizes every action in it.
func Load(p *pack.Pack) (*Plan, error) {
	var plan Plan
	if err := p.ReadJSON(config.PlanPath, &plan); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrPlanMissing, config.PlanPath)
		}
		return nil, err
	}
	if err := schema.CheckVersion(config.PlanPath, plan.SchemaVersion, SchemaVersion); err != nil {
		return nil, err
	}
	plan.normalize()
	return &plan, nil
}

// Save writes the plan and returns the bytes written.
func Save(p *pack.Pack, plan *Plan) ([]byte, error) {
	data, err := p.WriteJSON(config.PlanPath, plan)
	if err != nil {
		return nil, fmt.Errorf("failed to save plan: %w", err)
	}
	return data, nil
}

func (p *Plan) normalize() {
	normalize := func(a *action.NextAction) {
		if a != nil {
			a.Normalize()
		}
	}
	normalize(p.NextAction)
	for i := range p.PlannedActions {
		normalize(p.PlannedActions[i].Action)
	}
	for i := range p.Blockers {
		normalize(p.Blockers[i].NextAction)
	}
	for i := range p.Requirements {
		normalize(p.Requirements[i].Remediation)
		for j := range p.Requirements[i].Blockers {
			normalize(p.Requirements[i].Blockers[j].NextAction)
		}
	}
}
