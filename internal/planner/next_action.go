package planner

import (
	"fmt"

	"github.com/danieljhkim/docpack/internal/action"
	"github.com/danieljhkim/docpack/internal/ledger"
	"github.com/danieljhkim/docpack/internal/requirements"
	"github.com/danieljhkim/docpack/internal/schema"
)

// ResolveNextAction picks the single next step for a pack that is not
// complete. The first rule that applies wins:
//
//  1. The first blocked requirement in priority order supplies its
//     blocker's remediation.
//  2. The first unverified entry of the active-tier verification queue
//     supplies a step that gathers the missing proof.
//  3. The full validate, plan, apply pipeline while any planned action
//     remains.
//
// It returns nil when no rule applies.
func ResolveNextAction(s *requirements.Snapshot, statuses []requirements.Status, planned []PlannedAction) *action.NextAction {
	for _, id := range requirements.Priority {
		for _, st := range statuses {
			if st.ID != id || st.State != requirements.StateBlocked {
				continue
			}
			for _, b := range st.Blockers {
				if b.NextAction != nil {
					return b.NextAction
				}
			}
			if st.Remediation != nil {
				return st.Remediation
			}
		}
	}

	if next := queueAction(s); next != nil {
		return next
	}

	if len(planned) > 0 {
		return action.Command(action.Pipeline(s.Root), "re-run the pipeline to refresh the plan")
	}
	return nil
}

// queueAction scans the verification queue for the first unverified id.
func queueAction(s *requirements.Snapshot) *action.NextAction {
	if !s.Config.RequirementEnabled(requirements.Verification) || s.Plan == nil || s.Verification == nil {
		return nil
	}
	if len(s.Verification.UnverifiedIDs) == 0 {
		return nil
	}
	id := s.Verification.UnverifiedIDs[0]

	covering := s.Plan.Covering(id)
	if len(covering) == 0 {
		updated, stub, _ := ledger.CoverageStubFromPlan(s.Plan, []string{id})
		return planEditAction(s, updated, fmt.Sprintf("add scenario %s covering %s", stub.ID, id))
	}

	for _, spec := range covering {
		if ev := s.Evidence[spec.ID]; ev == nil || (ev.ExitCode == nil && ev.ExitSignal == nil) {
			return action.Command(
				action.Docpack(s.Root, "run", "--scenario", spec.ID),
				fmt.Sprintf("record evidence for %s via scenario %s", id, spec.ID),
			)
		}
	}
	for _, spec := range covering {
		if !s.Evidence[spec.ID].Passed {
			return action.Command(action.Pipeline(s.Root), fmt.Sprintf("scenario %s covering %s is failing; re-run the pipeline after fixing it", spec.ID, id))
		}
	}
	return planEditAction(s, s.Plan, fmt.Sprintf("add assertions to a scenario covering %s so it verifies at tier %s", id, s.Config.VerificationTier))
}

func planEditAction(s *requirements.Snapshot, plan any, reason string) *action.NextAction {
	content, err := schema.Marshal(plan)
	if err != nil {
		return nil
	}
	return action.Edit(s.Config.ScenarioPlan, string(content), reason)
}
