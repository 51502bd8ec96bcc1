package ledger

import (
	"github.com/danieljhkim/docpack/internal/config"
	"github.com/danieljhkim/docpack/internal/evidence"
	"github.com/danieljhkim/docpack/internal/scenario"
	"github.com/danieljhkim/docpack/internal/surface"
)

// Verification statuses.
const (
	StatusVerified   = "verified"
	StatusUnverified = "unverified"
	StatusExcluded   = "excluded"
)

// VerificationEntry tracks the two independent claims for one surface item:
// that it exists (Status, accepted tier) and that it behaves as asserted
// (BehaviorStatus, behavior tier).
type VerificationEntry struct {
	SurfaceID         string              `json:"surface_id"`
	Status            string              `json:"status"`
	BehaviorStatus    string              `json:"behavior_status"`
	Evidence          []evidence.Ref      `json:"evidence"`
	Scenarios         []string            `json:"scenarios"`
	Exclusion         *scenario.Exclusion `json:"exclusion,omitempty"`
	BehaviorExclusion *scenario.Exclusion `json:"behavior_exclusion,omitempty"`
}

// StatusFor returns the status for tier.
func (e VerificationEntry) StatusFor(tier string) string {
	if tier == config.TierBehavior {
		return e.BehaviorStatus
	}
	return e.Status
}

// Verification is verification_ledger.json.
type Verification struct {
	SchemaVersion int                 `json:"schema_version"`
	Tier          string              `json:"tier"`
	Entries       []VerificationEntry `json:"entries"`
	UnverifiedIDs []string            `json:"unverified_ids"`
	Evidence      []evidence.Ref      `json:"evidence"`
}

// Entry returns the entry for surfaceID, or nil.
func (v *Verification) Entry(surfaceID string) *VerificationEntry {
	for i := range v.Entries {
		if v.Entries[i].SurfaceID == surfaceID {
			return &v.Entries[i]
		}
	}
	return nil
}

// Counts tallies entry statuses for tier.
func (v *Verification) Counts(tier string) (verified, excluded, unverified int) {
	for _, e := range v.Entries {
		switch e.StatusFor(tier) {
		case StatusVerified:
			verified++
		case StatusExcluded:
			excluded++
		default:
			unverified++
		}
	}
	return verified, excluded, unverified
}

// Inputs are the loaded artifacts the verification ledger is built from.
// Evidence maps scenario id to its most recent evidence record.
type Inputs struct {
	Inventory *surface.Inventory
	Plan      *scenario.Plan
	Index     *scenario.Index
	Evidence  map[string]*scenario.Evidence
	Tier      string
}

// BuildVerification computes an entry for every meaningful surface item,
// followed by queue ids the inventory does not list.
func BuildVerification(in Inputs) *Verification {
	ledger := &Verification{
		SchemaVersion: SchemaVersion,
		Tier:          in.Tier,
		Entries:       []VerificationEntry{},
	}

	seen := make(map[string]bool)
	add := func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		ledger.Entries = append(ledger.Entries, buildEntry(id, in))
	}
	if in.Inventory != nil {
		for _, item := range in.Inventory.MeaningfulItems() {
			add(item.ID)
		}
	}
	if in.Plan != nil {
		for _, q := range in.Plan.Verification.Queue {
			add(q.SurfaceID)
		}
	}

	var queue []scenario.QueueEntry
	if in.Plan != nil {
		queue = in.Plan.Verification.Queue
	}
	ledger.UnverifiedIDs, ledger.Evidence = CollectUnverified(queue, ledger, in.Tier)
	return ledger
}

func buildEntry(id string, in Inputs) VerificationEntry {
	entry := VerificationEntry{
		SurfaceID:      id,
		Status:         StatusUnverified,
		BehaviorStatus: StatusUnverified,
		Evidence:       []evidence.Ref{},
		Scenarios:      []string{},
	}
	if in.Plan == nil {
		return entry
	}

	var refs []evidence.Ref
	for _, spec := range in.Plan.Covering(id) {
		entry.Scenarios = append(entry.Scenarios, spec.ID)

		ev := in.Evidence[spec.ID]
		if ev == nil || (ev.ExitCode == nil && ev.ExitSignal == nil) {
			continue
		}
		if in.Index != nil {
			if idx, ok := in.Index.Scenarios[spec.ID]; ok {
				refs = append(refs, evidence.Ref{Path: idx.EvidencePath, Hash: idx.EvidenceHash})
			}
		}
		entry.Status = StatusVerified
		if ev.HasAssertions && ev.Passed {
			entry.BehaviorStatus = StatusVerified
		}
	}
	entry.Evidence = evidence.Dedupe(append(entry.Evidence, refs...))

	if ex := in.Plan.Excluded(id, config.TierAccepted); ex != nil && entry.Status != StatusVerified {
		entry.Status = StatusExcluded
		entry.Exclusion = ex
	}
	if ex := in.Plan.Excluded(id, config.TierBehavior); ex != nil && entry.BehaviorStatus != StatusVerified {
		entry.BehaviorStatus = StatusExcluded
		entry.BehaviorExclusion = ex
	}
	return entry
}

// CollectUnverified walks the queue in priority order, keeps entries for
// tier, and returns the ids that are neither verified nor excluded. The
// evidence already gathered for those ids is returned with them so partial
// progress carries over to the next pass.
func CollectUnverified(queue []scenario.QueueEntry, ledger *Verification, tier string) ([]string, []evidence.Ref) {
	ids := []string{}
	refs := []evidence.Ref{}
	seen := make(map[string]bool)

	for _, q := range queue {
		if !q.AppliesTo(tier) || seen[q.SurfaceID] {
			continue
		}
		seen[q.SurfaceID] = true

		entry := ledger.Entry(q.SurfaceID)
		if entry == nil {
			ids = append(ids, q.SurfaceID)
			continue
		}
		switch entry.StatusFor(tier) {
		case StatusVerified, StatusExcluded:
			continue
		}
		ids = append(ids, q.SurfaceID)
		refs = append(refs, entry.Evidence...)
		if ex := entry.Exclusion; ex != nil {
			refs = append(refs, ex.Evidence...)
		}
	}
	return ids, evidence.Dedupe(refs)
}
