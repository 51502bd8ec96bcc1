// Package hash provides content hashing for pack inputs and evidence.
//
// Docpack identifies file contents by BLAKE3 digest. Staleness detection
// and evidence references compare digests only, never timestamps, so
// identical bytes always hash identically. The package provides a real
// implementation and a fake implementation for testing.
package hash

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// Hasher provides an abstraction for content hashing operations.
type Hasher interface {
	// HashFile computes the hex digest of the file at the given path.
	HashFile(path string) (string, error)

	// HashBytes computes the hex digest of data.
	HashBytes(data []byte) string
}

// Blake3Hasher implements Hasher using BLAKE3-256.
type Blake3Hasher struct{}

// NewBlake3Hasher creates a new Blake3Hasher.
func NewBlake3Hasher() *Blake3Hasher {
	return &Blake3Hasher{}
}

// HashFile streams the file through BLAKE3 so memory stays constant
// regardless of file size.
func (h *Blake3Hasher) HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer func() {
		_ = file.Close()
	}()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// HashBytes computes the BLAKE3-256 digest of data.
func (h *Blake3Hasher) HashBytes(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// FakeHasher implements Hasher with deterministic hashes for testing.
type FakeHasher struct {
	hashes map[string]string
}

// NewFakeHasher creates a new FakeHasher.
func NewFakeHasher() *FakeHasher {
	return &FakeHasher{
		hashes: make(map[string]string),
	}
}

// SetHash sets the hash for a specific path (for testing).
func (h *FakeHasher) SetHash(path, hash string) {
	h.hashes[path] = hash
}

// HashFile returns the predetermined hash for the given path.
func (h *FakeHasher) HashFile(path string) (string, error) {
	if hash, ok := h.hashes[path]; ok {
		return hash, nil
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	return "fakehash", nil
}

// HashBytes returns a readable pseudo-digest of data.
func (h *FakeHasher) HashBytes(data []byte) string {
	return fmt.Sprintf("fake-%d", len(data))
}
