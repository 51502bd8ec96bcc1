package action

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestMarshal_OnlyTagFields(t *testing.T) {
	tests := []struct {
		name   string
		action *NextAction
		want   string
	}{
		{
			name:   "command",
			action: Command("docpack validate", "lock is stale"),
			want:   `{"kind":"command","command":"docpack validate","reason":"lock is stale"}`,
		},
		{
			name:   "edit",
			action: Edit("scenarios/plan.json", "{}", "add scenario"),
			want:   `{"kind":"edit","path":"scenarios/plan.json","content":"{}","reason":"add scenario","edit_strategy":"replace_file"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.action)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("got %s, want %s", data, tt.want)
			}
		})
	}
}

func TestUnmarshal_NormalizesEditStrategy(t *testing.T) {
	var a NextAction
	if err := json.Unmarshal([]byte(`{"kind":"edit","path":"man/tool.md","content":"x","reason":"r"}`), &a); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if a.EditStrategy != "" {
		t.Errorf("decoding should not default the strategy, got %q", a.EditStrategy)
	}
	a.Normalize()
	if a.EditStrategy != StrategyReplaceFile {
		t.Errorf("EditStrategy = %q, want %q", a.EditStrategy, StrategyReplaceFile)
	}

	var c NextAction
	if err := json.Unmarshal([]byte(`{"kind":"command","command":"docpack plan","reason":"r","path":"ignored"}`), &c); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	c.Normalize()
	if c.Path != "" || c.EditStrategy != "" {
		t.Errorf("command should carry only command fields: %+v", c)
	}
}

func TestUnmarshal_Invalid(t *testing.T) {
	inputs := []string{
		`{"kind":"shell","command":"x"}`,
		`{"kind":"command"}`,
		`{"kind":"edit","content":"x"}`,
	}
	for _, in := range inputs {
		var a NextAction
		if err := json.Unmarshal([]byte(in), &a); !errors.Is(err, ErrInvalid) {
			t.Errorf("%s: expected ErrInvalid, got %v", in, err)
		}
	}
}

func TestID(t *testing.T) {
	a := Command("docpack run", "one reason")
	b := Command("docpack run", "another reason")
	if a.ID() != b.ID() {
		t.Error("same command should share an id")
	}
	if Edit("a", "", "").ID() == Command("a", "").ID() {
		t.Error("edit and command ids must differ")
	}
}
