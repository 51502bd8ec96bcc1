// Package scenario declares, runs, and checks scenarios: single invocations
// of the target binary plus assertions on what the process did.
package scenario

import (
	"errors"
	"fmt"

	"github.com/danieljhkim/docpack/internal/config"
	"github.com/danieljhkim/docpack/internal/evidence"
	"github.com/danieljhkim/docpack/internal/fsops"
	"github.com/danieljhkim/docpack/internal/pack"
	"github.com/danieljhkim/docpack/internal/schema"
)

// PlanSchemaVersion is the scenario plan schema version.
const PlanSchemaVersion = 4

// Scenario kinds.
const (
	KindExample  = "example"
	KindCoverage = "coverage"
	KindBehavior = "behavior"
)

// Scenario tiers.
const (
	TierAcceptance = "acceptance"
	TierBehavior   = "behavior"
)

// ErrInvalidPlan marks a scenario plan that parsed but is not usable.
var ErrInvalidPlan = errors.New("invalid scenario plan")

// Plan is scenarios/plan.json.
type Plan struct {
	SchemaVersion int          `json:"schema_version"`
	Scenarios     []Spec       `json:"scenarios"`
	Verification  Verification `json:"verification"`
}

// Spec is one declared invocation of the target binary.
type Spec struct {
	ID             string            `json:"id"`
	Kind           string            `json:"kind,omitempty"`
	Argv           []string          `json:"argv"`
	Env            map[string]string `json:"env,omitempty"`
	Cwd            string            `json:"cwd,omitempty"`
	Seed           *Seed             `json:"seed,omitempty"`
	TimeoutSeconds int               `json:"timeout_seconds,omitempty"`
	Covers         []string          `json:"covers,omitempty"`
	Tier           string            `json:"tier,omitempty"`
	Expect         Expect            `json:"expect"`
}

// Seed populates a scenario's scratch directory before the run. Dir is a
// pack-relative fixture directory copied in first; Files are then written
// on top, keyed by scratch-relative path.
type Seed struct {
	Dir   string            `json:"dir,omitempty"`
	Files map[string]string `json:"files,omitempty"`
}

// Verification lists what must be verified and what is excluded.
type Verification struct {
	Queue      []QueueEntry `json:"queue,omitempty"`
	Exclusions []Exclusion  `json:"exclusions,omitempty"`
}

// QueueEntry is one surface id in priority order. An empty Tier applies to
// every tier.
type QueueEntry struct {
	SurfaceID string `json:"surface_id"`
	Tier      string `json:"tier,omitempty"`
}

// Exclusion removes a surface id from the unverified pool for a tier.
type Exclusion struct {
	SurfaceID  string         `json:"surface_id"`
	Tier       string         `json:"tier,omitempty"`
	ReasonCode string         `json:"reason_code"`
	Evidence   []evidence.Ref `json:"evidence"`
	Note       string         `json:"note,omitempty"`
}

// AppliesTo reports whether the entry is active for tier.
func (q QueueEntry) AppliesTo(tier string) bool {
	return q.Tier == "" || q.Tier == tier
}

// AppliesTo reports whether the exclusion is active for tier.
func (e Exclusion) AppliesTo(tier string) bool {
	return e.Tier == "" || e.Tier == tier
}

// LoadPlan reads and validates the scenario plan at rel. A missing file
// returns an error wrapping fs.ErrNotExist; anything unusable returns
// *schema.Error.
func LoadPlan(p *pack.Pack, rel string) (*Plan, error) {
	data, err := p.ReadFile(rel)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario plan: %w", err)
	}
	return ParsePlan(p.FS, rel, data)
}

// ParsePlan decodes and validates plan bytes.
func ParsePlan(fs fsops.FS, rel string, data []byte) (*Plan, error) {
	var plan Plan
	if err := schema.DecodeStrict(rel, data, &plan); err != nil {
		return nil, err
	}
	if err := schema.CheckVersion(rel, plan.SchemaVersion, PlanSchemaVersion); err != nil {
		return nil, err
	}
	if err := plan.Validate(fs); err != nil {
		return nil, &schema.Error{Path: rel, Err: err}
	}
	return &plan, nil
}

// Validate checks identifiers, paths, and exclusions.
func (p *Plan) Validate(fs fsops.FS) error {
	seen := make(map[string]bool, len(p.Scenarios))
	for i, spec := range p.Scenarios {
		if err := fs.ValidateIdentifier(spec.ID); err != nil {
			return fmt.Errorf("%w: scenario %d: %v", ErrInvalidPlan, i, err)
		}
		if seen[spec.ID] {
			return fmt.Errorf("%w: duplicate scenario id %q", ErrInvalidPlan, spec.ID)
		}
		seen[spec.ID] = true

		if spec.TimeoutSeconds < 0 {
			return fmt.Errorf("%w: scenario %q: negative timeout_seconds", ErrInvalidPlan, spec.ID)
		}
		if spec.Cwd != "" {
			if err := fs.ValidateRelPath(spec.Cwd); err != nil {
				return fmt.Errorf("%w: scenario %q cwd: %v", ErrInvalidPlan, spec.ID, err)
			}
		}
		if spec.Seed != nil {
			if spec.Seed.Dir != "" {
				if err := fs.ValidateRelPath(spec.Seed.Dir); err != nil {
					return fmt.Errorf("%w: scenario %q seed dir: %v", ErrInvalidPlan, spec.ID, err)
				}
			}
			for name := range spec.Seed.Files {
				if err := fs.ValidateRelPath(name); err != nil {
					return fmt.Errorf("%w: scenario %q seed file: %v", ErrInvalidPlan, spec.ID, err)
				}
			}
		}
		switch spec.Tier {
		case "", TierAcceptance, TierBehavior:
		default:
			return fmt.Errorf("%w: scenario %q: unknown tier %q", ErrInvalidPlan, spec.ID, spec.Tier)
		}
	}

	for i, q := range p.Verification.Queue {
		if q.SurfaceID == "" {
			return fmt.Errorf("%w: verification queue entry %d has no surface_id", ErrInvalidPlan, i)
		}
		if !validTier(q.Tier) {
			return fmt.Errorf("%w: verification queue entry %q: unknown tier %q", ErrInvalidPlan, q.SurfaceID, q.Tier)
		}
	}
	for i, e := range p.Verification.Exclusions {
		if e.SurfaceID == "" {
			return fmt.Errorf("%w: exclusion %d has no surface_id", ErrInvalidPlan, i)
		}
		if e.ReasonCode == "" {
			return fmt.Errorf("%w: exclusion %q has no reason_code", ErrInvalidPlan, e.SurfaceID)
		}
		if len(e.Evidence) == 0 {
			return fmt.Errorf("%w: exclusion %q has no evidence", ErrInvalidPlan, e.SurfaceID)
		}
		if !validTier(e.Tier) {
			return fmt.Errorf("%w: exclusion %q: unknown tier %q", ErrInvalidPlan, e.SurfaceID, e.Tier)
		}
	}
	return nil
}

func validTier(tier string) bool {
	return tier == "" || tier == config.TierAccepted || tier == config.TierBehavior
}

// Find returns the scenario with id, or nil.
func (p *Plan) Find(id string) *Spec {
	for i := range p.Scenarios {
		if p.Scenarios[i].ID == id {
			return &p.Scenarios[i]
		}
	}
	return nil
}

// Covering returns the scenarios whose covers list names surfaceID, in plan
// order.
func (p *Plan) Covering(surfaceID string) []Spec {
	var specs []Spec
	for _, spec := range p.Scenarios {
		for _, c := range spec.Covers {
			if c == surfaceID {
				specs = append(specs, spec)
				break
			}
		}
	}
	return specs
}

// Excluded returns the exclusion for surfaceID at tier, or nil.
func (p *Plan) Excluded(surfaceID, tier string) *Exclusion {
	for i := range p.Verification.Exclusions {
		e := &p.Verification.Exclusions[i]
		if e.SurfaceID == surfaceID && e.AppliesTo(tier) {
			return e
		}
	}
	return nil
}
