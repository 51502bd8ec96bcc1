package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/danieljhkim/docpack/internal/config"
	"github.com/danieljhkim/docpack/internal/lock"
	"github.com/danieljhkim/docpack/internal/pack"
	"github.com/danieljhkim/docpack/internal/planner"
	"github.com/danieljhkim/docpack/internal/requirements"
	"github.com/danieljhkim/docpack/internal/schema"
	"github.com/danieljhkim/docpack/internal/txn"
)

// Algorithm steps:
// 1. Check preconditions: the lock exists and is current, and the saved
// plan was computed from it. A violation is a normal transitional state,
// not an error: it is recorded in the report and history
// 2. Rebuild the ledgers and the plan from the current pack
// 3. Stage the report, plus the coverage and verification ledgers when every
// precondition holds or Force overrides them
// 4. Commit the transaction; on failure the pack root is left unchanged
// 5. Clean up the transaction directory
func (e *Engine) Apply(ctx context.Context, req *ApplyRequest) (result *ApplyResult, err error) {
	p, cfg, err := e.open(req.Root)
	if err != nil {
		return nil, err
	}
	step := e.beginStep(p, pack.StepApply)
	defer func() { step.finish(err) }()

	violations, err := e.checkApplyPreconditions(p, cfg)
	if err != nil {
		return nil, err
	}
	applied := len(violations) == 0 || req.Force
	forced := req.Force && len(violations) > 0
	step.rec.ForceUsed = forced
	for _, v := range violations {
		if forced {
			step.logger.Warn("forcing apply", "reason", v)
		} else {
			step.logger.Warn("apply held back", "reason", v)
		}
	}
	if len(violations) > 0 {
		step.rec.Message = "preconditions not met: " + strings.Join(violations, "; ")
	}

	snap, err := requirements.Load(p, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load pack: %w", err)
	}
	plan := planner.Build(snap, p.NowMillis())
	report := buildReport(snap, plan, forced)
	report.Applied = applied
	report.Preconditions = append(report.Preconditions, violations...)
	step.rec.InputsHash = report.InputsHash

	type artifact struct {
		rel string
		v   any
	}
	var artifacts []artifact
	if applied {
		artifacts = append(artifacts,
			artifact{config.CoverageLedgerPath, snap.Coverage},
			artifact{config.VerificationLedgerPath, snap.Verification},
		)
	}
	artifacts = append(artifacts, artifact{config.ReportPath, report})

	tx, err := txn.Begin(p, step.logger)
	if err != nil {
		return nil, err
	}
	defer tx.Close()

	var outputs []byte
	for _, a := range artifacts {
		data, err := schema.Marshal(a.v)
		if err != nil {
			tx.Abort()
			return nil, fmt.Errorf("failed to encode %s: %w", a.rel, err)
		}
		if err := tx.Stage(a.rel, data); err != nil {
			tx.Abort()
			return nil, err
		}
		outputs = append(outputs, data...)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	step.rec.OutputsHash = p.Hasher.HashBytes(outputs)

	step.logger.Info("apply committed", "txn", tx.ID(), "decision", plan.Decision, "applied", applied, "files", len(tx.Staged()))
	return &ApplyResult{
		TxnID:     tx.ID(),
		Committed: tx.Staged(),
		Report:    report,
		Applied:   applied,
		ForceUsed: forced,
		Warnings:  violations,
	}, nil
}

// checkApplyPreconditions lists every violated precondition. Only a lock
// or plan that cannot be read at all is an error.
func (e *Engine) checkApplyPreconditions(p *pack.Pack, cfg *config.Config) ([]string, error) {
	var violations []string

	lk, err := lock.Load(p)
	switch {
	case errors.Is(err, lock.ErrLockMissing):
		violations = append(violations, fmt.Errorf("%w: run validate first", ErrLockMissing).Error())
	case err != nil:
		return nil, fmt.Errorf("failed to load lock: %w", err)
	default:
		status, err := lock.CheckStatus(p, cfg, cfg.Binary, lk)
		if err != nil {
			return nil, fmt.Errorf("failed to check lock status: %w", err)
		}
		if status.Stale {
			violations = append(violations, fmt.Errorf("%w: inputs changed since the last validate", ErrStaleLock).Error())
		}
	}

	saved, err := planner.Load(p)
	switch {
	case errors.Is(err, planner.ErrPlanMissing):
		violations = append(violations, fmt.Errorf("%w: run plan first", ErrPlanMissing).Error())
	case err != nil:
		violations = append(violations, fmt.Errorf("%w: %v", ErrPlanStale, err).Error())
	case lk != nil && saved.InputsHash() != lk.InputsHash:
		violations = append(violations, fmt.Errorf("%w: plan was computed from inputs_hash %q, lock has %q", ErrPlanStale, saved.InputsHash(), lk.InputsHash).Error())
	}
	return violations, nil
}

func buildReport(snap *requirements.Snapshot, plan *planner.Plan, forced bool) *pack.Report {
	report := &pack.Report{
		SchemaVersion:  pack.ReportSchemaVersion,
		GeneratedAtMS:  plan.GeneratedAtMS,
		InputsHash:     plan.InputsHash(),
		Decision:       string(plan.Decision),
		DecisionReason: plan.DecisionReason,
		Requirements:   make(map[string]string, len(plan.Requirements)),
		Preconditions:  []string{},
		ForceUsed:      forced,
	}
	for _, st := range plan.Requirements {
		report.Requirements[st.ID] = string(st.State)
	}

	report.Coverage = pack.CoverageSummary{Total: len(snap.Coverage.Items), Covered: snap.Coverage.CoveredCount}

	tier := snap.Config.VerificationTier
	verified, excluded, unverified := snap.Verification.Counts(tier)
	report.Verification = pack.VerifySummary{Tier: tier, Verified: verified, Excluded: excluded, Unverified: unverified}

	if snap.Plan != nil {
		report.Scenarios.Declared = len(snap.Plan.Scenarios)
		for _, spec := range snap.Plan.Scenarios {
			if snap.Index == nil {
				break
			}
			if _, ok := snap.Index.Scenarios[spec.ID]; ok {
				report.Scenarios.Recorded++
			}
			if snap.Index.Passing(spec.ID) {
				report.Scenarios.Passing++
			}
		}
	}
	return report
}
