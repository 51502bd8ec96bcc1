// Package surface loads the inventory of CLI surface items produced by the
// external surface provider. The inventory is read-only to docpack.
package surface

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/danieljhkim/docpack/internal/evidence"
	"github.com/danieljhkim/docpack/internal/pack"
	"github.com/danieljhkim/docpack/internal/schema"
)

// SchemaVersion is the inventory schema version docpack understands.
const SchemaVersion = 1

// Surface item kinds that count toward coverage.
const (
	KindOption     = "option"
	KindCommand    = "command"
	KindSubcommand = "subcommand"
)

// ErrInvalid marks an inventory that parsed but violates its schema.
var ErrInvalid = errors.New("invalid surface inventory")

// Item is one discovered option, command, or subcommand.
type Item struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	Display     string          `json:"display,omitempty"`
	Description string          `json:"description,omitempty"`
	Forms       []string        `json:"forms,omitempty"`
	Invocation  json.RawMessage `json:"invocation,omitempty"`
	Evidence    []evidence.Ref  `json:"evidence,omitempty"`
}

// Meaningful reports whether the item has an id and a coverable kind.
func (i Item) Meaningful() bool {
	if i.ID == "" {
		return false
	}
	switch i.Kind {
	case KindOption, KindCommand, KindSubcommand:
		return true
	default:
		return false
	}
}

// Blocker is a problem the provider reported while producing the inventory.
type Blocker struct {
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	Evidence []evidence.Ref `json:"evidence,omitempty"`
}

// Inventory is the provider's output document.
type Inventory struct {
	SchemaVersion int       `json:"schema_version"`
	Items         []Item    `json:"items"`
	Blockers      []Blocker `json:"blockers,omitempty"`
}

// MeaningfulItems returns the coverable items in inventory order.
func (inv *Inventory) MeaningfulItems() []Item {
	var items []Item
	for _, item := range inv.Items {
		if item.Meaningful() {
			items = append(items, item)
		}
	}
	return items
}

// State classifies a load attempt.
type State string

const (
	StateMissing    State = "missing"
	StateParseError State = "parse_error"
	StateInvalid    State = "invalid"
	StateValid      State = "valid"
)

// LoadResult is the outcome of loading the inventory. Inventory is set only
// when State is StateValid; Err is set for parse and schema problems.
type LoadResult struct {
	State     State
	Path      string
	Inventory *Inventory
	Evidence  evidence.Ref
	Err       error
}

// Load reads the inventory at rel. Missing, malformed, and invalid files are
// reported through the result; the returned error is reserved for I/O
// failures that are not a missing file.
func Load(p *pack.Pack, rel string) (LoadResult, error) {
	result := LoadResult{Path: rel, Evidence: evidence.Ref{Path: rel}}

	data, err := p.ReadFile(rel)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			result.State = StateMissing
			return result, nil
		}
		return result, fmt.Errorf("failed to read surface inventory: %w", err)
	}
	result.Evidence.Hash = p.Hasher.HashBytes(data)

	var inv Inventory
	if err := schema.Decode(rel, data, &inv); err != nil {
		result.State = StateParseError
		result.Err = err
		return result, nil
	}
	if err := schema.CheckVersion(rel, inv.SchemaVersion, SchemaVersion); err != nil {
		result.State = StateInvalid
		result.Err = err
		return result, nil
	}
	if err := validate(&inv); err != nil {
		result.State = StateInvalid
		result.Err = &schema.Error{Path: rel, Err: err}
		return result, nil
	}

	result.State = StateValid
	result.Inventory = &inv
	return result, nil
}

func validate(inv *Inventory) error {
	seen := make(map[string]bool, len(inv.Items))
	for i, item := range inv.Items {
		if item.ID == "" {
			continue
		}
		if seen[item.ID] {
			return fmt.Errorf("%w: duplicate item id %q at index %d", ErrInvalid, item.ID, i)
		}
		seen[item.ID] = true
	}
	for i, b := range inv.Blockers {
		if b.Code == "" {
			return fmt.Errorf("%w: blocker at index %d has no code", ErrInvalid, i)
		}
	}
	return nil
}
