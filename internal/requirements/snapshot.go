package requirements

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/danieljhkim/docpack/internal/config"
	"github.com/danieljhkim/docpack/internal/evidence"
	"github.com/danieljhkim/docpack/internal/ledger"
	"github.com/danieljhkim/docpack/internal/lock"
	"github.com/danieljhkim/docpack/internal/pack"
	"github.com/danieljhkim/docpack/internal/scenario"
	"github.com/danieljhkim/docpack/internal/surface"
)

// Snapshot is everything the evaluators read, loaded once per step.
type Snapshot struct {
	Root   string
	Config *config.Config

	// Lock is nil when enrich/lock.json does not exist.
	Lock       *lock.Lock
	LockStatus *lock.Status
	LockHash   string

	Surface surface.LoadResult

	// Plan is nil when the scenario plan is missing (PlanErr nil) or
	// unusable (PlanErr set).
	Plan     *scenario.Plan
	PlanErr  error
	PlanHash string

	Index    *scenario.Index
	IndexErr error
	Evidence map[string]*scenario.Evidence

	Coverage     *ledger.Coverage
	Verification *ledger.Verification

	Man ManSource
}

// ManSource is the man page source as read from disk.
type ManSource struct {
	Path    string
	Present bool
	Data    []byte
	Hash    string
}

// PlanRef is the evidence reference for the scenario plan.
func (s *Snapshot) PlanRef() evidence.Ref {
	return evidence.Ref{Path: s.Config.ScenarioPlan, Hash: s.PlanHash}
}

// PlanOrEmpty returns the loaded plan, or an empty one when it is missing.
// It must not be used when PlanErr is set.
func (s *Snapshot) PlanOrEmpty() *scenario.Plan {
	if s.Plan != nil {
		return s.Plan
	}
	return &scenario.Plan{SchemaVersion: scenario.PlanSchemaVersion, Scenarios: []scenario.Spec{}}
}

// Load reads every artifact the evaluators need. Missing and malformed
// artifacts are recorded in the Snapshot. Only failures that make the pack
// itself unusable are returned: unreadable files, or a lock.json that
// cannot be parsed.
func Load(p *pack.Pack, cfg *config.Config) (*Snapshot, error) {
	s := &Snapshot{Root: p.Root, Config: cfg, Man: ManSource{Path: cfg.Man.Path}}

	lk, err := lock.Load(p)
	switch {
	case errors.Is(err, lock.ErrLockMissing):
	case err != nil:
		return nil, fmt.Errorf("failed to load lock: %w", err)
	default:
		s.Lock = lk
		if s.LockHash, err = p.HashFile(config.LockPath); err != nil {
			return nil, fmt.Errorf("failed to hash lock: %w", err)
		}
		s.LockStatus, err = lock.CheckStatus(p, cfg, cfg.Binary, lk)
		if err != nil {
			return nil, fmt.Errorf("failed to check lock status: %w", err)
		}
	}

	s.Surface, err = surface.Load(p, cfg.Surface)
	if err != nil {
		return nil, err
	}

	if data, err := p.ReadFile(cfg.ScenarioPlan); err == nil {
		s.PlanHash = p.Hasher.HashBytes(data)
		s.Plan, s.PlanErr = scenario.ParsePlan(p.FS, cfg.ScenarioPlan, data)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read scenario plan: %w", err)
	}

	s.Index, s.IndexErr = scenario.LoadIndex(p)
	s.Evidence = make(map[string]*scenario.Evidence)
	if s.Plan != nil {
		for _, spec := range s.Plan.Scenarios {
			ev, err := scenario.LoadEvidence(p, spec.ID)
			if err != nil {
				continue
			}
			s.Evidence[spec.ID] = ev
		}
	}

	if data, err := p.ReadFile(cfg.Man.Path); err == nil {
		s.Man.Present = true
		s.Man.Data = data
		s.Man.Hash = p.Hasher.HashBytes(data)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read man page source: %w", err)
	}

	s.BuildLedgers()
	return s, nil
}

// BuildLedgers derives the coverage and verification ledgers from the
// loaded artifacts.
func (s *Snapshot) BuildLedgers() {
	var inv *surface.Inventory
	if s.Surface.State == surface.StateValid {
		inv = s.Surface.Inventory
	}
	s.Coverage = ledger.BuildCoverage(inv, s.Plan)
	s.Verification = ledger.BuildVerification(ledger.Inputs{
		Inventory: inv,
		Plan:      s.Plan,
		Index:     s.Index,
		Evidence:  s.Evidence,
		Tier:      s.Config.VerificationTier,
	})
}
