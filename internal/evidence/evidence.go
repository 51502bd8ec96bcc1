// Package evidence tracks weak, hash-referenced pointers to pack files that
// justify a status claim.
package evidence

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/danieljhkim/docpack/internal/pack"
)

// Ref is a non-owning reference to a pack-relative file at a point in time.
// Hash is empty when the file did not exist when the reference was taken.
type Ref struct {
	Path string `json:"path"`
	Hash string `json:"hash,omitempty"`
}

// Store hashes pack files into Refs.
type Store struct {
	pack *pack.Pack
}

// NewStore creates a Store over p.
func NewStore(p *pack.Pack) *Store {
	return &Store{pack: p}
}

// Track returns a Ref for rel, hashing its current contents. A missing file
// yields a Ref with no hash.
func (s *Store) Track(rel string) (Ref, error) {
	digest, err := s.pack.HashFile(rel)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Ref{Path: rel}, nil
		}
		return Ref{}, fmt.Errorf("failed to hash evidence %s: %w", rel, err)
	}
	return Ref{Path: rel, Hash: digest}, nil
}

// TrackAll tracks every path in order.
func (s *Store) TrackAll(paths ...string) ([]Ref, error) {
	refs := make([]Ref, 0, len(paths))
	for _, p := range paths {
		ref, err := s.Track(p)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// Current reports whether ref still matches the file on disk.
func (s *Store) Current(ref Ref) (bool, error) {
	now, err := s.Track(ref.Path)
	if err != nil {
		return false, err
	}
	return now.Hash == ref.Hash, nil
}

// Dedupe removes refs whose path was already seen. The first occurrence
// wins and order is preserved.
func Dedupe(refs []Ref) []Ref {
	if refs == nil {
		return nil
	}
	seen := make(map[string]bool, len(refs))
	out := make([]Ref, 0, len(refs))
	for _, ref := range refs {
		if seen[ref.Path] {
			continue
		}
		seen[ref.Path] = true
		out = append(out, ref)
	}
	return out
}

// Merge concatenates lists and dedupes the result.
func Merge(lists ...[]Ref) []Ref {
	var all []Ref
	for _, l := range lists {
		all = append(all, l...)
	}
	return Dedupe(all)
}
