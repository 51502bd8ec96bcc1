// Package lock content-addresses the inputs a doc pack's derived artifacts
// depend on. A plan records the inputs_hash it was computed from; when the
// current hash differs the plan is stale.
package lock

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/danieljhkim/docpack/internal/codec"
	"github.com/danieljhkim/docpack/internal/config"
	"github.com/danieljhkim/docpack/internal/pack"
	"github.com/danieljhkim/docpack/internal/schema"
)

// SchemaVersion is the lock file schema version.
const SchemaVersion = 2

var (
	// ErrMissingInput is returned when a required input does not exist.
	ErrMissingInput = errors.New("missing required input")

	// ErrLockMissing is returned when enrich/lock.json does not exist.
	ErrLockMissing = errors.New("lock not found")
)

// Lock is enrich/lock.json.
type Lock struct {
	SchemaVersion int      `json:"schema_version"`
	Inputs        []string `json:"inputs"`
	InputsHash    string   `json:"inputs_hash"`
	GeneratedAtMS int64    `json:"generated_at_epoch_ms"`
}

// Status is the result of comparing a lock with the current inputs.
type Status struct {
	Stale       bool     `json:"stale"`
	CurrentHash string   `json:"current_hash,omitempty"`
	Missing     []string `json:"missing,omitempty"`
}

// hashDoc is the canonical value the inputs hash is computed over.
type hashDoc struct {
	Binary string      `cbor:"binary"`
	Inputs []hashInput `cbor:"inputs"`
}

type hashInput struct {
	Path   string `cbor:"path"`
	Digest string `cbor:"digest"`
}

// Inputs lists the tracked inputs in their fixed order. Required inputs
// must exist; optional ones are tracked only when present.
//
// The scenario plan is optional so a new pack can be validated before it
// has one; the verification requirement reports the missing plan instead.
func Inputs(cfg *config.Config) (required, optional []string) {
	seen := map[string]bool{config.ConfigPath: true}
	required = []string{config.ConfigPath}
	for _, tmpl := range cfg.Templates {
		if seen[tmpl] {
			continue
		}
		seen[tmpl] = true
		required = append(required, tmpl)
	}
	for _, rel := range []string{cfg.ScenarioPlan, cfg.Surface, cfg.Man.Path} {
		if rel == "" || seen[rel] {
			continue
		}
		seen[rel] = true
		optional = append(optional, rel)
	}
	return required, optional
}

// compute hashes the current inputs. It returns the resolved path list and
// the required inputs that are missing; the hash is empty when any are.
func compute(p *pack.Pack, cfg *config.Config, binary string) (string, []string, []string, error) {
	required, optional := Inputs(cfg)

	var (
		doc     = hashDoc{Binary: binary, Inputs: []hashInput{}}
		paths   []string
		missing []string
	)
	add := func(rel string, isRequired bool) error {
		digest, err := p.HashFile(rel)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				if isRequired {
					missing = append(missing, rel)
				}
				return nil
			}
			return fmt.Errorf("failed to hash %s: %w", rel, err)
		}
		doc.Inputs = append(doc.Inputs, hashInput{Path: rel, Digest: digest})
		paths = append(paths, rel)
		return nil
	}
	for _, rel := range required {
		if err := add(rel, true); err != nil {
			return "", nil, nil, err
		}
	}
	for _, rel := range optional {
		if err := add(rel, false); err != nil {
			return "", nil, nil, err
		}
	}
	if len(missing) > 0 {
		return "", paths, missing, nil
	}

	encoded, err := codec.Marshal(doc)
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to encode inputs: %w", err)
	}
	return p.Hasher.HashBytes(encoded), paths, nil, nil
}

// BuildLock snapshots the current inputs. Identical input bytes always
// produce an identical inputs_hash; modification times are never read.
func BuildLock(p *pack.Pack, cfg *config.Config, binary string) (*Lock, error) {
	digest, paths, missing, err := compute(p, cfg, binary)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingInput, missing[0])
	}
	return &Lock{
		SchemaVersion: SchemaVersion,
		Inputs:        paths,
		InputsHash:    digest,
		GeneratedAtMS: p.NowMillis(),
	}, nil
}

// CheckStatus recomputes the inputs hash and compares it with lock. A lock
// is stale when any tracked content or the set of present inputs changed,
// or when a required input went missing.
func CheckStatus(p *pack.Pack, cfg *config.Config, binary string, lock *Lock) (*Status, error) {
	digest, _, missing, err := compute(p, cfg, binary)
	if err != nil {
		return nil, err
	}
	return &Status{
		Stale:       len(missing) > 0 || digest != lock.InputsHash,
		CurrentHash: digest,
		Missing:     missing,
	}, nil
}

// Load reads enrich/lock.json. A missing file returns an error wrapping
// ErrLockMissing; an undecodable one returns *schema.Error.
func Load(p *pack.Pack) (*Lock, error) {
	var lock Lock
	if err := p.ReadJSON(config.LockPath, &lock); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrLockMissing, config.LockPath)
		}
		return nil, err
	}
	if err := schema.CheckVersion(config.LockPath, lock.SchemaVersion, SchemaVersion); err != nil {
		return nil, err
	}
	return &lock, nil
}

// Write stores lock unless the file on disk already carries the same
// inputs_hash, so re-validating unchanged inputs leaves the file
// byte-identical. It returns the lock now on disk and whether it wrote.
func Write(p *pack.Pack, lock *Lock) (*Lock, bool, error) {
	existing, err := Load(p)
	if err == nil && existing.InputsHash == lock.InputsHash {
		return existing, false, nil
	}
	if _, err := p.WriteJSON(config.LockPath, lock); err != nil {
		return nil, false, err
	}
	return lock, true, nil
}
