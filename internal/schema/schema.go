// Package schema decodes versioned pack artifacts.
//
// Every JSON artifact docpack reads carries a schema_version. Operator
// authored files (config, scenario plan) are JSONC: comments and trailing
// commas are stripped before decoding. Decode failures and version
// mismatches are reported as *Error so callers can turn them into
// blockers with a remediation instead of aborting.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/jsonc"
)

var (
	// ErrMalformed indicates the artifact is not valid JSON for its type.
	ErrMalformed = errors.New("malformed JSON")

	// ErrVersion indicates an unsupported schema_version.
	ErrVersion = errors.New("unsupported schema_version")
)

// Error describes why an artifact at Path could not be decoded.
type Error struct {
	Path  string
	Found int
	Want  int
	Err   error
}

func (e *Error) Error() string {
	if errors.Is(e.Err, ErrVersion) {
		return fmt.Sprintf("%s: schema_version %d, want %d", e.Path, e.Found, e.Want)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Decode strips JSONC syntax from data and unmarshals it into v. Unknown
// fields are ignored.
func Decode(path string, data []byte, v any) error {
	if err := json.Unmarshal(jsonc.ToJSON(data), v); err != nil {
		return &Error{Path: path, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}
	return nil
}

// DecodeStrict is Decode but rejects unknown fields, catching typos in
// hand-written files.
func DecodeStrict(path string, data []byte, v any) error {
	decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return &Error{Path: path, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}
	return nil
}

// CheckVersion returns an *Error when found != want.
func CheckVersion(path string, found, want int) error {
	if found != want {
		return &Error{Path: path, Found: found, Want: want, Err: ErrVersion}
	}
	return nil
}

// Marshal renders v as indented JSON with a trailing newline, the on-disk
// form of every artifact docpack writes.
func Marshal(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
