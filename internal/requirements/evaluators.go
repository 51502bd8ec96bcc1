package requirements

import (
	"fmt"
	"strings"

	"github.com/danieljhkim/docpack/internal/action"
	"github.com/danieljhkim/docpack/internal/config"
	"github.com/danieljhkim/docpack/internal/evidence"
	"github.com/danieljhkim/docpack/internal/ledger"
	"github.com/danieljhkim/docpack/internal/scenario"
	"github.com/danieljhkim/docpack/internal/schema"
	"github.com/danieljhkim/docpack/internal/surface"
)

// Blocker codes.
const (
	CodeSurfaceParse  = "surface_parse_error"
	CodeSurfaceSchema = "surface_schema_invalid"
	CodePlanInvalid   = "scenario_plan_invalid"
	CodeIndexInvalid  = "scenario_index_invalid"
)

func evalLock(s *Snapshot) Status {
	validate := action.Command(action.Docpack(s.Root, "validate"), "refresh the lock")
	if s.Lock == nil {
		return unmet(config.LockPath+" missing", validate)
	}

	ref := evidence.Ref{Path: config.LockPath, Hash: s.LockHash}
	if s.LockStatus != nil && len(s.LockStatus.Missing) > 0 {
		first := s.LockStatus.Missing[0]
		return unmet(
			"required inputs missing: "+strings.Join(s.LockStatus.Missing, ", "),
			action.Edit(first, "", "create required input "+first),
			ref,
		)
	}
	if s.LockStatus != nil && s.LockStatus.Stale {
		return unmet("lock is stale: tracked inputs changed since the last validate", validate, ref)
	}
	st := met("lock is current", ref)
	st.Counts = map[string]int{"inputs": len(s.Lock.Inputs)}
	return st
}

func lintAction(s *Snapshot, reason string) *action.NextAction {
	return action.Command(action.Docpack(s.Root, "lint"), reason)
}

// surfaceAction is the step that makes the surface inventory usable.
func surfaceAction(s *Snapshot) *action.NextAction {
	if s.Surface.State == surface.StateMissing || s.Surface.State == surface.StateValid {
		skeleton, _ := schema.Marshal(surface.Inventory{SchemaVersion: surface.SchemaVersion, Items: []surface.Item{}})
		return action.Edit(s.Config.Surface, string(skeleton), "the surface provider must list at least one option, command, or subcommand")
	}
	return lintAction(s, "fix the surface inventory")
}

func evalSurface(s *Snapshot) Status {
	ref := s.Surface.Evidence
	switch s.Surface.State {
	case surface.StateMissing:
		return unmet(s.Config.Surface+" missing", surfaceAction(s))
	case surface.StateParseError:
		return blocked("surface inventory is malformed", Blocker{
			Code:       CodeSurfaceParse,
			Message:    s.Surface.Err.Error(),
			Evidence:   []evidence.Ref{ref},
			NextAction: surfaceAction(s),
		})
	case surface.StateInvalid:
		return blocked("surface inventory violates its schema", Blocker{
			Code:       CodeSurfaceSchema,
			Message:    s.Surface.Err.Error(),
			Evidence:   []evidence.Ref{ref},
			NextAction: surfaceAction(s),
		})
	}

	inv := s.Surface.Inventory
	if len(inv.Blockers) > 0 {
		var blockers []Blocker
		for _, b := range inv.Blockers {
			blockers = append(blockers, Blocker{
				Code:       b.Code,
				Message:    b.Message,
				Evidence:   evidence.Merge([]evidence.Ref{ref}, b.Evidence),
				NextAction: lintAction(s, "resolve surface provider blocker "+b.Code),
			})
		}
		return blocked("surface provider reported blockers", blockers...)
	}

	n := len(inv.MeaningfulItems())
	if n == 0 {
		return unmet("no meaningful surface items", surfaceAction(s), ref)
	}
	st := met(fmt.Sprintf("%d surface items", n), ref)
	st.Counts = map[string]int{"items": n}
	return st
}

func planBlocker(s *Snapshot) Blocker {
	return Blocker{
		Code:       CodePlanInvalid,
		Message:    s.PlanErr.Error(),
		Evidence:   []evidence.Ref{s.PlanRef()},
		NextAction: lintAction(s, "fix the scenario plan"),
	}
}

func (s *Snapshot) planRefs() []evidence.Ref {
	if s.Plan == nil {
		return nil
	}
	return []evidence.Ref{s.PlanRef()}
}

func planEdit(s *Snapshot, plan *scenario.Plan, reason string) *action.NextAction {
	content, err := schema.Marshal(plan)
	if err != nil {
		return lintAction(s, reason)
	}
	return action.Edit(s.Config.ScenarioPlan, string(content), reason)
}

func evalCoverage(s *Snapshot) Status {
	if s.PlanErr != nil {
		return blocked("scenario plan cannot be evaluated", planBlocker(s))
	}
	if s.Surface.State != surface.StateValid {
		return unmet("surface inventory unavailable", surfaceAction(s))
	}

	cov := s.Coverage
	total := len(cov.Items)
	counts := map[string]int{
		"total":     total,
		"covered":   cov.CoveredCount,
		"uncovered": len(cov.UncoveredIDs),
	}
	refs := append([]evidence.Ref{s.Surface.Evidence}, s.planRefs()...)

	if len(cov.UncoveredIDs) > 0 {
		updated, stub, _ := ledger.CoverageStubFromPlan(s.PlanOrEmpty(), cov.UncoveredIDs)
		st := unmet(
			fmt.Sprintf("%d of %d surface items uncovered (first: %s)", len(cov.UncoveredIDs), total, cov.UncoveredIDs[0]),
			planEdit(s, updated, fmt.Sprintf("add scenario %s covering %s", stub.ID, stub.Covers[0])),
			refs...,
		)
		st.Counts = counts
		return st
	}
	if total == 0 {
		st := unmet("no meaningful surface items to cover", surfaceAction(s), refs...)
		st.Counts = counts
		return st
	}

	st := met(fmt.Sprintf("all %d surface items covered", total), refs...)
	st.Counts = counts
	return st
}

func evalExamples(s *Snapshot) Status {
	if s.PlanErr != nil {
		return blocked("scenario plan cannot be evaluated", planBlocker(s))
	}
	if s.IndexErr != nil {
		return blocked("scenario index cannot be read", indexBlocker(s))
	}

	plan := s.PlanOrEmpty()
	var examples, failing []string
	var refs []evidence.Ref
	for _, spec := range plan.Scenarios {
		if spec.Kind != scenario.KindExample {
			continue
		}
		examples = append(examples, spec.ID)
		if !s.Index.Passing(spec.ID) {
			failing = append(failing, spec.ID)
			continue
		}
		entry := s.Index.Scenarios[spec.ID]
		refs = append(refs, evidence.Ref{Path: entry.EvidencePath, Hash: entry.EvidenceHash})
	}

	if len(examples) == 0 {
		updated, stub := ledger.ExampleStubFromPlan(plan)
		return unmet("no example scenarios declared", planEdit(s, updated, "add example scenario "+stub.ID), s.planRefs()...)
	}

	counts := map[string]int{"examples": len(examples), "passing": len(examples) - len(failing)}
	if len(failing) > 0 {
		var args []string
		for _, id := range failing {
			args = append(args, "--scenario", id)
		}
		st := unmet(
			fmt.Sprintf("%d of %d example scenarios lack a passing run: %s", len(failing), len(examples), strings.Join(failing, ", ")),
			action.Command(action.Docpack(s.Root, "run", args...), "record passing runs for example scenarios"),
			refs...,
		)
		st.Counts = counts
		return st
	}

	st := met(fmt.Sprintf("all %d example scenarios pass", len(examples)), refs...)
	st.Counts = counts
	return st
}

func indexBlocker(s *Snapshot) Blocker {
	return Blocker{
		Code:       CodeIndexInvalid,
		Message:    s.IndexErr.Error(),
		Evidence:   []evidence.Ref{{Path: config.ScenarioIndexPath}},
		NextAction: action.Command(action.Docpack(s.Root, "run"), "rebuild the scenario index"),
	}
}

func evalVerification(s *Snapshot) Status {
	if s.PlanErr != nil {
		return blocked("scenario plan cannot be evaluated", planBlocker(s))
	}
	if s.Plan == nil {
		return unmet(s.Config.ScenarioPlan+" missing", planEdit(s, s.PlanOrEmpty(), "create the scenario plan and queue surface items for verification"))
	}
	if s.IndexErr != nil {
		return blocked("scenario index cannot be read", indexBlocker(s))
	}

	tier := s.Config.VerificationTier
	ver := s.Verification
	verified, excluded, unverified := ver.Counts(tier)
	counts := map[string]int{
		"verified":         verified,
		"excluded":         excluded,
		"unverified":       unverified,
		"queue_unverified": len(ver.UnverifiedIDs),
	}

	var st Status
	if len(ver.UnverifiedIDs) > 0 {
		st = unmet(
			fmt.Sprintf("%d queued surface items unverified at tier %s (first: %s)", len(ver.UnverifiedIDs), tier, ver.UnverifiedIDs[0]),
			action.Command(action.Docpack(s.Root, "run"), "gather evidence for queued surface items"),
			ver.Evidence...,
		)
	} else {
		st = met(fmt.Sprintf("verification queue satisfied at tier %s", tier), ver.Evidence...)
	}
	st.VerificationTier = tier
	st.Counts = counts
	return st
}

func evalMan(s *Snapshot) Status {
	required := s.Config.Man.RequiredSections
	if !s.Man.Present {
		return unmet(s.Man.Path+" missing", action.Edit(s.Man.Path, appendSections(nil, required), "create the man page source with its required sections"))
	}

	ref := evidence.Ref{Path: s.Man.Path, Hash: s.Man.Hash}
	missing := missingSections(s.Man.Data, required)
	if len(missing) > 0 {
		return unmet(
			"man page missing sections: "+strings.Join(missing, ", "),
			action.Edit(s.Man.Path, appendSections(s.Man.Data, missing), "add the missing man page sections"),
			ref,
		)
	}
	return met(fmt.Sprintf("man page has all %d required sections", len(required)), ref)
}
