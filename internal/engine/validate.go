package engine

import (
	"context"
	"fmt"

	"github.com/danieljhkim/docpack/internal/config"
	"github.com/danieljhkim/docpack/internal/lock"
	"github.com/danieljhkim/docpack/internal/pack"
)

// Validate snapshots the tracked inputs into enrich/lock.json. The file is
// left byte-identical when nothing tracked changed.
func (e *Engine) Validate(ctx context.Context, req *ValidateRequest) (result *ValidateResult, err error) {
	p, cfg, err := e.open(req.Root)
	if err != nil {
		return nil, err
	}
	step := e.beginStep(p, pack.StepValidate)
	defer func() { step.finish(err) }()

	built, err := lock.BuildLock(p, cfg, cfg.Binary)
	if err != nil {
		return nil, fmt.Errorf("failed to build lock: %w", err)
	}
	step.rec.InputsHash = built.InputsHash

	onDisk, written, err := lock.Write(p, built)
	if err != nil {
		return nil, fmt.Errorf("failed to write lock: %w", err)
	}
	if step.rec.OutputsHash, err = p.HashFile(config.LockPath); err != nil {
		return nil, fmt.Errorf("failed to hash lock: %w", err)
	}

	step.logger.Info("lock validated", "inputs", len(onDisk.Inputs), "inputs_hash", onDisk.InputsHash, "written", written)
	return &ValidateResult{Lock: onDisk, Written: written}, nil
}
