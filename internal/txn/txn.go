// Package txn stages generated artifacts and commits them into a pack root
// all at once.
//
// A transaction owns enrich/txns/<id>/. Staged files are written under
// staged/ inside it; nothing under the pack root changes until Commit. If
// Commit fails part way, every target it already replaced is restored from
// the backup/ copy kept in the same directory, so the pack root ends up
// exactly as it was before.
package txn

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/danieljhkim/docpack/internal/config"
	"github.com/danieljhkim/docpack/internal/pack"
)

// ErrFinished is returned when staging into, or committing, a transaction
// that was already committed or aborted.
var ErrFinished = errors.New("transaction already finished")

// Txn is one apply transaction.
type Txn struct {
	pack   *pack.Pack
	logger *slog.Logger
	id     string
	dir    string

	staged   []string
	isStaged map[string]bool
	finished bool
}

// Begin creates a new transaction directory under enrich/txns.
func Begin(p *pack.Pack, logger *slog.Logger) (*Txn, error) {
	id := uuid.NewString()
	dir := p.Path(filepath.Join(config.TxnsDir, id))
	if err := p.FS.MkdirAll(filepath.Join(dir, "staged"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create transaction directory: %w", err)
	}
	logger.Debug("transaction started", "txn", id)
	return &Txn{
		pack:     p,
		logger:   logger,
		id:       id,
		dir:      dir,
		isStaged: make(map[string]bool),
	}, nil
}

// ID returns the transaction id.
func (t *Txn) ID() string {
	return t.id
}

// Dir returns the absolute transaction directory.
func (t *Txn) Dir() string {
	return t.dir
}

// Staged returns the staged pack-relative paths in staging order.
func (t *Txn) Staged() []string {
	return append([]string(nil), t.staged...)
}

// Stage writes data as the future content of rel. Staging the same path
// again replaces the earlier content.
func (t *Txn) Stage(rel string, data []byte) error {
	if t.finished {
		return ErrFinished
	}
	if err := t.pack.FS.ValidateRelPath(rel); err != nil {
		return fmt.Errorf("cannot stage %s: %w", rel, err)
	}
	if err := t.pack.FS.AtomicWrite(t.stagedPath(rel), data, 0644); err != nil {
		return fmt.Errorf("failed to stage %s: %w", rel, err)
	}
	if !t.isStaged[rel] {
		t.isStaged[rel] = true
		t.staged = append(t.staged, rel)
	}
	return nil
}

// committed records one target replaced during Commit.
type committed struct {
	rel       string
	hadBackup bool
}

// Commit moves every staged file into place. On failure the targets already
// moved are rolled back and the returned error describes the first failure.
func (t *Txn) Commit() error {
	if t.finished {
		return ErrFinished
	}
	t.finished = true

	var done []committed
	for _, rel := range t.staged {
		c, err := t.commitOne(rel)
		if err != nil {
			t.rollback(done)
			return fmt.Errorf("failed to commit %s: %w", rel, err)
		}
		done = append(done, c)
	}
	t.logger.Debug("transaction committed", "txn", t.id, "files", len(done))
	return nil
}

func (t *Txn) commitOne(rel string) (committed, error) {
	fs := t.pack.FS
	target := t.pack.Path(rel)
	c := committed{rel: rel}

	exists, err := fs.Exists(target)
	if err != nil {
		return c, err
	}
	if exists {
		if err := fs.Rename(target, t.backupPath(rel)); err != nil {
			return c, fmt.Errorf("failed to back up: %w", err)
		}
		c.hadBackup = true
	}
	if err := fs.Rename(t.stagedPath(rel), target); err != nil {
		if c.hadBackup {
			if restoreErr := fs.Rename(t.backupPath(rel), target); restoreErr != nil {
				t.logger.Warn("failed to restore backup", "txn", t.id, "path", rel, "error", restoreErr)
			}
		}
		return c, err
	}
	return c, nil
}

// rollback undoes committed targets in reverse order.
func (t *Txn) rollback(done []committed) {
	fs := t.pack.FS
	for i := len(done) - 1; i >= 0; i-- {
		c := done[i]
		target := t.pack.Path(c.rel)
		if c.hadBackup {
			if err := fs.Rename(t.backupPath(c.rel), target); err != nil {
				t.logger.Warn("failed to restore backup", "txn", t.id, "path", c.rel, "error", err)
			}
			continue
		}
		if err := fs.Remove(target); err != nil {
			t.logger.Warn("failed to remove committed file", "txn", t.id, "path", c.rel, "error", err)
		}
	}
	t.logger.Warn("transaction rolled back", "txn", t.id, "files", len(done))
}

// Abort discards everything staged. The pack root is not touched.
func (t *Txn) Abort() {
	if t.finished {
		return
	}
	t.finished = true
	t.logger.Debug("transaction aborted", "txn", t.id, "staged", len(t.staged))
}

// Close removes the transaction directory, and enrich/txns when nothing
// else is left in it. Cleanup failures are logged and otherwise ignored.
// An unfinished transaction is aborted first.
func (t *Txn) Close() {
	t.Abort()

	fs := t.pack.FS
	if err := fs.RemoveAll(t.dir); err != nil {
		t.logger.Warn("failed to remove transaction directory", "txn", t.id, "error", err)
		return
	}

	parent := t.pack.Path(config.TxnsDir)
	entries, err := fs.ReadDir(parent)
	if err != nil {
		t.logger.Warn("failed to read transactions directory", "error", err)
		return
	}
	if len(entries) > 0 {
		return
	}
	if err := fs.Remove(parent); err != nil {
		t.logger.Warn("failed to remove transactions directory", "error", err)
	}
}

func (t *Txn) stagedPath(rel string) string {
	return filepath.Join(t.dir, "staged", filepath.FromSlash(rel))
}

func (t *Txn) backupPath(rel string) string {
	return filepath.Join(t.dir, "backup", filepath.FromSlash(rel))
}
