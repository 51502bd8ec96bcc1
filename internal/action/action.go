// Package action defines NextAction, the single proposed next step docpack
// hands to whatever drives the loop (an operator or an editing agent).
package action

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Action kinds.
const (
	KindCommand = "command"
	KindEdit    = "edit"
)

// StrategyReplaceFile replaces the whole file at Path with Content.
const StrategyReplaceFile = "replace_file"

// ErrInvalid is returned when decoding an action with an unknown kind or
// missing fields.
var ErrInvalid = errors.New("invalid next action")

// NextAction is either a command to run or an edit to make. Only the fields
// of its kind are serialized.
type NextAction struct {
	Kind string

	// Command fields.
	Command string

	// Edit fields.
	Path         string
	Content      string
	EditStrategy string

	Reason string
}

// Command creates a command action.
func Command(command, reason string) *NextAction {
	return &NextAction{Kind: KindCommand, Command: command, Reason: reason}
}

// Edit creates a replace_file edit action.
func Edit(path, content, reason string) *NextAction {
	return &NextAction{Kind: KindEdit, Path: path, Content: content, Reason: reason, EditStrategy: StrategyReplaceFile}
}

// ID identifies an action for deduplication. Two actions with the same
// target are the same step regardless of reason.
func (a *NextAction) ID() string {
	if a.Kind == KindEdit {
		return KindEdit + ":" + a.Path
	}
	return KindCommand + ":" + a.Command
}

// Normalize fills fields that older producers may have omitted. It runs
// after decoding so the default is not tied to any one schema version.
func (a *NextAction) Normalize() {
	if a.Kind == KindEdit && a.EditStrategy == "" {
		a.EditStrategy = StrategyReplaceFile
	}
}

type commandWire struct {
	Kind    string `json:"kind"`
	Command string `json:"command"`
	Reason  string `json:"reason"`
}

type editWire struct {
	Kind         string `json:"kind"`
	Path         string `json:"path"`
	Content      string `json:"content"`
	Reason       string `json:"reason"`
	EditStrategy string `json:"edit_strategy,omitempty"`
}

// MarshalJSON emits the tagged form for the action's kind.
func (a NextAction) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case KindCommand:
		return json.Marshal(commandWire{Kind: KindCommand, Command: a.Command, Reason: a.Reason})
	case KindEdit:
		return json.Marshal(editWire{Kind: KindEdit, Path: a.Path, Content: a.Content, Reason: a.Reason, EditStrategy: a.EditStrategy})
	default:
		return nil, fmt.Errorf("%w: kind %q", ErrInvalid, a.Kind)
	}
}

// UnmarshalJSON decodes the tagged form. It does not apply defaults; call
// Normalize afterwards.
func (a *NextAction) UnmarshalJSON(data []byte) error {
	var tag struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return err
	}

	switch tag.Kind {
	case KindCommand:
		var w commandWire
		if err := json.Unmarshal(data, &w); err != nil {
			return err
		}
		if w.Command == "" {
			return fmt.Errorf("%w: command action without command", ErrInvalid)
		}
		*a = NextAction{Kind: KindCommand, Command: w.Command, Reason: w.Reason}
	case KindEdit:
		var w editWire
		if err := json.Unmarshal(data, &w); err != nil {
			return err
		}
		if w.Path == "" {
			return fmt.Errorf("%w: edit action without path", ErrInvalid)
		}
		*a = NextAction{Kind: KindEdit, Path: w.Path, Content: w.Content, Reason: w.Reason, EditStrategy: w.EditStrategy}
	default:
		return fmt.Errorf("%w: kind %q", ErrInvalid, tag.Kind)
	}
	return nil
}
