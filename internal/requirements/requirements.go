// Package requirements evaluates each documentation requirement of a doc
// pack into a Status.
//
// Evaluation is split in two. Load performs all I/O and returns a Snapshot
// of the pack; each evaluator is then a pure function of that Snapshot.
// The states follow one policy everywhere:
//
//   - unmet: an upstream artifact is missing, or it was evaluated and is
//     insufficient
//   - blocked: an artifact is present but cannot be evaluated (parse or
//     schema errors, provider blockers); the Status carries Blockers with a
//     concrete remediation
//   - met: otherwise
package requirements

import (
	"github.com/danieljhkim/docpack/internal/action"
	"github.com/danieljhkim/docpack/internal/evidence"
)

// Requirement ids.
const (
	Lock         = "lock"
	Surface      = "surface"
	Coverage     = "coverage"
	Examples     = "examples"
	Verification = "verification"
	Man          = "man"
)

// Priority is the fixed evaluation order. When several requirements are
// blocked at once, the first one in this list supplies the next action.
var Priority = []string{Lock, Surface, Coverage, Examples, Verification, Man}

// Known reports whether id names a requirement.
func Known(id string) bool {
	for _, p := range Priority {
		if p == id {
			return true
		}
	}
	return false
}

// State is the outcome of evaluating one requirement.
type State string

const (
	StateMet     State = "met"
	StateUnmet   State = "unmet"
	StateBlocked State = "blocked"
)

// Blocker is a structured failure that halts progress on a requirement
// until it is resolved.
type Blocker struct {
	Code       string             `json:"code"`
	Message    string             `json:"message"`
	Evidence   []evidence.Ref     `json:"evidence"`
	NextAction *action.NextAction `json:"next_action,omitempty"`
}

// Status is the evaluation of one requirement. Remediation is the canonical
// action that moves a non-met requirement forward.
type Status struct {
	ID               string             `json:"id"`
	State            State              `json:"state"`
	Reason           string             `json:"reason"`
	VerificationTier string             `json:"verification_tier,omitempty"`
	Counts           map[string]int     `json:"counts,omitempty"`
	Evidence         []evidence.Ref     `json:"evidence"`
	Blockers         []Blocker          `json:"blockers"`
	Remediation      *action.NextAction `json:"remediation,omitempty"`
}

type evaluator func(*Snapshot) Status

var evaluators = map[string]evaluator{
	Lock:         evalLock,
	Surface:      evalSurface,
	Coverage:     evalCoverage,
	Examples:     evalExamples,
	Verification: evalVerification,
	Man:          evalMan,
}

// Evaluate runs every enabled requirement in priority order. A problem in
// one requirement never prevents the others from being evaluated.
func Evaluate(s *Snapshot) []Status {
	var statuses []Status
	for _, id := range Priority {
		if !s.Config.RequirementEnabled(id) {
			continue
		}
		st := evaluators[id](s)
		st.ID = id
		if st.Evidence == nil {
			st.Evidence = []evidence.Ref{}
		} else {
			st.Evidence = evidence.Dedupe(st.Evidence)
		}
		if st.Blockers == nil {
			st.Blockers = []Blocker{}
		}
		statuses = append(statuses, st)
	}
	return statuses
}

// PackBlockers collects the blockers of every status into the pack-wide
// list, dropping repeats of the same code and message.
func PackBlockers(statuses []Status) []Blocker {
	blockers := []Blocker{}
	seen := make(map[string]bool)
	for _, st := range statuses {
		for _, b := range st.Blockers {
			key := b.Code + "\x00" + b.Message
			if seen[key] {
				continue
			}
			seen[key] = true
			blockers = append(blockers, b)
		}
	}
	return blockers
}

func met(reason string, refs ...evidence.Ref) Status {
	return Status{State: StateMet, Reason: reason, Evidence: refs}
}

func unmet(reason string, remediation *action.NextAction, refs ...evidence.Ref) Status {
	return Status{State: StateUnmet, Reason: reason, Remediation: remediation, Evidence: refs}
}

func blocked(reason string, blockers ...Blocker) Status {
	st := Status{State: StateBlocked, Reason: reason, Blockers: blockers}
	for _, b := range blockers {
		st.Evidence = append(st.Evidence, b.Evidence...)
	}
	if len(blockers) > 0 {
		st.Remediation = blockers[0].NextAction
	}
	return st
}
