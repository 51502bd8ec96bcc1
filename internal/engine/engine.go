// Package engine provides the core business logic for docpack operations.
//
// The engine package acts as the orchestration layer between CLI commands
// and the lower-level components. Each step opens the pack, loads its
// config, drives the components, and appends one record to the pack's
// history log.
//
// Key components:
//   - Engine: Main orchestrator that coordinates all operations
//   - Validate/Plan/Apply/Run: The four idempotent pipeline steps
//   - Status/Lint/Stub: Read-mostly helpers for operators and editors
package engine

import (
	"fmt"
	"log/slog"

	"github.com/danieljhkim/docpack/internal/clock"
	"github.com/danieljhkim/docpack/internal/config"
	"github.com/danieljhkim/docpack/internal/fsops"
	"github.com/danieljhkim/docpack/internal/hash"
	"github.com/danieljhkim/docpack/internal/pack"
	"github.com/danieljhkim/docpack/internal/scenario"
)

// Engine orchestrates all docpack operations.
// It is the main API surface called by the CLI.
type Engine struct {
	fs     fsops.FS
	hasher hash.Hasher
	clock  clock.Clock
	proc   scenario.ProcessRunner
	logger *slog.Logger
}

// New creates a new Engine with the given dependencies.
func New(
	fs fsops.FS,
	hasher hash.Hasher,
	clk clock.Clock,
	proc scenario.ProcessRunner,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		fs:     fs,
		hasher: hasher,
		clock:  clk,
		proc:   proc,
		logger: logger,
	}
}

// open returns the pack at root and its parsed config.
func (e *Engine) open(root string) (*pack.Pack, *config.Config, error) {
	p := pack.New(root, e.fs, e.hasher, e.clock)
	cfg, err := config.Load(e.fs, root)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	return p, cfg, nil
}

// stepRecord accumulates one history record while a step runs.
type stepRecord struct {
	pack   *pack.Pack
	logger *slog.Logger
	rec    pack.HistoryRecord
}

func (e *Engine) beginStep(p *pack.Pack, step string) *stepRecord {
	return &stepRecord{
		pack:   p,
		logger: e.logger.With("step", step),
		rec: pack.HistoryRecord{
			Step:           step,
			StartedEpochMS: p.NowMillis(),
		},
	}
}

// finish appends the record. A failed append is logged rather than
// returned so history never masks the step's own outcome.
func (s *stepRecord) finish(err error) {
	s.rec.FinishedEpochMS = s.pack.NowMillis()
	s.rec.Success = err == nil
	if err != nil {
		s.rec.Message = err.Error()
	}
	if appendErr := s.pack.AppendHistory(s.rec); appendErr != nil {
		s.logger.Warn("failed to append history", "error", appendErr)
	}
}
