// Package config defines the doc pack layout and loads enrich/config.json.
//
// A doc pack is a directory owning every artifact of one binary's
// documentation workflow. All paths below are relative to the pack root.
// The root is chosen by the --pack flag, then the DOCPACK_ROOT environment
// variable, then the current directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Pack-relative artifact paths.
const (
	ConfigPath  = "enrich/config.json"
	LockPath    = "enrich/lock.json"
	PlanPath    = "enrich/plan.out.json"
	ReportPath  = "enrich/report.json"
	HistoryPath = "enrich/history.jsonl"
	TxnsDir     = "enrich/txns"

	DefaultScenarioPlanPath = "scenarios/plan.json"
	DefaultSurfacePath      = "inventory/surface.json"

	ScenarioEvidenceDir = "inventory/scenarios"
	ScenarioIndexPath   = "inventory/scenarios/index.json"

	CoverageLedgerPath     = "coverage_ledger.json"
	VerificationLedgerPath = "verification_ledger.json"
)

// RootEnv overrides the pack root when --pack is not given.
const RootEnv = "DOCPACK_ROOT"

// ScenarioEvidencePath returns the evidence file path for a scenario id.
func ScenarioEvidencePath(scenarioID string) string {
	return filepath.ToSlash(filepath.Join(ScenarioEvidenceDir, scenarioID+".json"))
}

// ResolveRoot returns the absolute pack root.
func ResolveRoot(flagValue string) (string, error) {
	root := flagValue
	if root == "" {
		root = os.Getenv(RootEnv)
	}
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current directory: %w", err)
		}
		root = cwd
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve pack root %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("pack root %s: %w", abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("pack root %s is not a directory", abs)
	}
	return abs, nil
}
