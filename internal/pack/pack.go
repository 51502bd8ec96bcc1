// Package pack provides the doc pack context object.
//
// A Pack is the single shared mutable resource every step operates on. It
// is passed explicitly to each component instead of living in global state,
// so the filesystem, hashing and clock a call uses are visible at the call
// site and can be faked in tests.
package pack

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/danieljhkim/docpack/internal/clock"
	"github.com/danieljhkim/docpack/internal/fsops"
	"github.com/danieljhkim/docpack/internal/hash"
	"github.com/danieljhkim/docpack/internal/schema"
)

// Pack is an open doc pack rooted at Root.
type Pack struct {
	Root   string
	FS     fsops.FS
	Hasher hash.Hasher
	Clock  clock.Clock
}

// New creates a Pack with the given dependencies.
func New(root string, fs fsops.FS, hasher hash.Hasher, clk clock.Clock) *Pack {
	return &Pack{
		Root:   root,
		FS:     fs,
		Hasher: hasher,
		Clock:  clk,
	}
}

// Open creates a Pack backed by the real filesystem, BLAKE3 and the system
// clock.
func Open(root string) *Pack {
	return New(root, fsops.NewRealFS(), hash.NewBlake3Hasher(), &clock.RealClock{})
}

// Path converts a pack-relative slash path to an absolute path.
func (p *Pack) Path(rel string) string {
	return filepath.Join(p.Root, filepath.FromSlash(rel))
}

// Rel converts an absolute path under the root to a pack-relative slash path.
func (p *Pack) Rel(abs string) (string, error) {
	rel, err := filepath.Rel(p.Root, abs)
	if err != nil {
		return "", fmt.Errorf("failed to relativize %s: %w", abs, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside pack root %s", abs, p.Root)
	}
	return filepath.ToSlash(rel), nil
}

// NowMillis returns the pack clock as Unix milliseconds.
func (p *Pack) NowMillis() int64 {
	return clock.EpochMillis(p.Clock)
}

// ReadFile reads a pack-relative file.
func (p *Pack) ReadFile(rel string) ([]byte, error) {
	return p.FS.ReadFile(p.Path(rel))
}

// Exists reports whether a pack-relative path exists.
func (p *Pack) Exists(rel string) (bool, error) {
	return p.FS.Exists(p.Path(rel))
}

// HashFile returns the content digest of a pack-relative file.
func (p *Pack) HashFile(rel string) (string, error) {
	return p.Hasher.HashFile(p.Path(rel))
}

// ReadJSON reads and decodes a pack-relative JSON (or JSONC) artifact.
// A missing file returns an error wrapping fs.ErrNotExist; a decode
// failure returns *schema.Error.
func (p *Pack) ReadJSON(rel string, v any) error {
	data, err := p.ReadFile(rel)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", rel, err)
	}
	return schema.Decode(rel, data, v)
}

// WriteJSON encodes v and atomically replaces the pack-relative file.
// It returns the written bytes so callers can hash them.
func (p *Pack) WriteJSON(rel string, v any) ([]byte, error) {
	data, err := schema.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", rel, err)
	}
	if err := p.FS.AtomicWrite(p.Path(rel), data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", rel, err)
	}
	return data, nil
}
