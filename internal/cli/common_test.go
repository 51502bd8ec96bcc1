package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestFormatJSON(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  string
	}{
		{
			name:  "simple map",
			input: map[string]string{"key": "value"},
			want:  "{\n  \"key\": \"value\"\n}",
		},
		{
			name:  "empty map",
			input: map[string]string{},
			want:  "{}",
		},
		{
			name:  "array",
			input: []string{"a", "b", "c"},
			want:  "[\n  \"a\",\n  \"b\",\n  \"c\"\n]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatJSON(tt.input)
			if err != nil {
				t.Fatalf("formatJSON() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("formatJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := outputJSON(&buf, map[string]int{"count": 2}); err != nil {
		t.Fatal(err)
	}
	var got map[string]int
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if got["count"] != 2 {
		t.Errorf("got %v", got)
	}
}

func TestFormatError(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	if got := formatError(errors.New("boom")); got != "Error: boom" {
		t.Errorf("formatError() = %q", got)
	}
}

func TestNewCommandLogger_JSONWhenPiped(t *testing.T) {
	var buf bytes.Buffer
	logger := newCommandLogger(&buf, false)
	logger.Debug("hidden")
	logger.Info("shown", "step", "plan")

	out := strings.TrimSpace(buf.String())
	if strings.Contains(out, "hidden") {
		t.Error("debug records should be dropped without --verbose")
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(out), &record); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", out, err)
	}
	if record["msg"] != "shown" || record["step"] != "plan" {
		t.Errorf("unexpected record %v", record)
	}

	buf.Reset()
	newCommandLogger(&buf, true).Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Error("debug records should be kept with --verbose")
	}
}
