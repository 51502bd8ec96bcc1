package planner

import (
	"fmt"
	"sort"

	"github.com/danieljhkim/docpack/internal/action"
	"github.com/danieljhkim/docpack/internal/requirements"
)

// PlannedActionsFromRequirements collects the remediation of every non-met
// requirement. Actions with the same id are merged and the result is
// sorted by id, so the list does not depend on evaluation order.
func PlannedActionsFromRequirements(statuses []requirements.Status) []PlannedAction {
	byID := make(map[string]*PlannedAction)
	for _, st := range statuses {
		if st.State == requirements.StateMet || st.Remediation == nil {
			continue
		}
		id := st.Remediation.ID()
		if existing, ok := byID[id]; ok {
			existing.Requirements = append(existing.Requirements, st.ID)
			continue
		}
		byID[id] = &PlannedAction{ID: id, Action: st.Remediation, Requirements: []string{st.ID}}
	}

	planned := make([]PlannedAction, 0, len(byID))
	for _, pa := range byID {
		sort.Strings(pa.Requirements)
		planned = append(planned, *pa)
	}
	sort.Slice(planned, func(i, j int) bool {
		return planned[i].ID < planned[j].ID
	})
	return planned
}

// Decide classifies the pack. It is complete when every requirement is met
// and there are no blockers, stuck when a requirement is blocked or no next
// action exists, and incomplete otherwise.
func Decide(statuses []requirements.Status, blockers []requirements.Blocker, next *action.NextAction) (Decision, string) {
	if allMet(statuses) && len(blockers) == 0 {
		return DecisionComplete, fmt.Sprintf("all %d requirements met", len(statuses))
	}
	for _, st := range statuses {
		if st.State == requirements.StateBlocked {
			return DecisionStuck, fmt.Sprintf("requirement %s is blocked: %s", st.ID, st.Reason)
		}
	}
	if len(blockers) > 0 {
		return DecisionStuck, fmt.Sprintf("%d blockers unresolved (first: %s)", len(blockers), blockers[0].Code)
	}
	if next == nil {
		return DecisionStuck, "no actionable next step"
	}

	var unmet []string
	for _, st := range statuses {
		if st.State == requirements.StateUnmet {
			unmet = append(unmet, st.ID)
		}
	}
	return DecisionIncomplete, fmt.Sprintf("%d of %d requirements unmet (first: %s)", len(unmet), len(statuses), unmet[0])
}

func allMet(statuses []requirements.Status) bool {
	for _, st := range statuses {
		if st.State != requirements.StateMet {
			return false
		}
	}
	return true
}
