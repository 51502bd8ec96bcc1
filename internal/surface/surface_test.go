package surface

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danieljhkim/docpack/internal/clock"
	"github.com/danieljhkim/docpack/internal/fsops"
	"github.com/danieljhkim/docpack/internal/hash"
	"github.com/danieljhkim/docpack/internal/pack"
	"github.com/danieljhkim/docpack/internal/schema"
)

const rel = "inventory/surface.json"

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		content   *string
		wantState State
		wantErr   error
		wantItems int
	}{
		{
			name:      "missing",
			wantState: StateMissing,
		},
		{
			name:      "parse error",
			content:   strPtr(`{"schema_version": 1, "items": [`),
			wantState: StateParseError,
			wantErr:   schema.ErrMalformed,
		},
		{
			name:      "wrong version",
			content:   strPtr(`{"schema_version": 9, "items": []}`),
			wantState: StateInvalid,
			wantErr:   schema.ErrVersion,
		},
		{
			name:      "duplicate ids",
			content:   strPtr(`{"schema_version": 1, "items": [{"id": "-a", "kind": "option"}, {"id": "-a", "kind": "option"}]}`),
			wantState: StateInvalid,
			wantErr:   ErrInvalid,
		},
		{
			name: "valid with comments",
			content: strPtr(`{
				// produced by the provider
				"schema_version": 1,
				"items": [
					{"id": "--color", "kind": "option"},
					{"id": "list", "kind": "command"},
					{"id": "", "kind": "option"},
					{"id": "ENV", "kind": "env"},
				],
			}`),
			wantState: StateValid,
			wantItems: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			p := pack.New(root, fsops.NewRealFS(), hash.NewBlake3Hasher(), clock.NewFakeClock(time.Unix(0, 0)))
			if tt.content != nil {
				path := filepath.Join(root, filepath.FromSlash(rel))
				if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
					t.Fatal(err)
				}
				if err := os.WriteFile(path, []byte(*tt.content), 0644); err != nil {
					t.Fatal(err)
				}
			}

			result, err := Load(p, rel)
			if err != nil {
				t.Fatalf("Load returned error: %v", err)
			}
			if result.State != tt.wantState {
				t.Fatalf("State = %s, want %s (err %v)", result.State, tt.wantState, result.Err)
			}
			if tt.wantErr != nil && !errors.Is(result.Err, tt.wantErr) {
				t.Errorf("Err = %v, want %v", result.Err, tt.wantErr)
			}
			if tt.wantState == StateValid {
				if got := len(result.Inventory.MeaningfulItems()); got != tt.wantItems {
					t.Errorf("meaningful items = %d, want %d", got, tt.wantItems)
				}
				if result.Evidence.Hash == "" {
					t.Error("expected evidence hash")
				}
			}
		})
	}
}

func TestItem_Meaningful(t *testing.T) {
	tests := []struct {
		item Item
		want bool
	}{
		{Item{ID: "--x", Kind: KindOption}, true},
		{Item{ID: "run", Kind: KindCommand}, true},
		{Item{ID: "run add", Kind: KindSubcommand}, true},
		{Item{ID: "", Kind: KindOption}, false},
		{Item{ID: "X", Kind: "env"}, false},
	}
	for _, tt := range tests {
		if got := tt.item.Meaningful(); got != tt.want {
			t.Errorf("%+v Meaningful() = %v, want %v", tt.item, got, tt.want)
		}
	}
}

func strPtr(s string) *string { return &s }
