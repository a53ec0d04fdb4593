package raft

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// LogEntry is one unit of replicated work: an opaque client command tagged with the term in which the leader
// received it. Entries are immutable once appended and are addressed by their position in the log, starting at 0.
type LogEntry struct {
	Term uint64
	// Command is any JSON value. It is a google.protobuf.Value so every JSON shape survives encoding exactly.
	Command *structpb.Value
}

// logEntryJSON is the wire shape of a LogEntry: {"term": n, "command": <json>}.
type logEntryJSON struct {
	Term    *uint64         `json:"term"`
	Command json.RawMessage `json:"command"`
}

// NewLogEntry builds an entry from a plain Go value (string, float64, bool, nil, []any, map[string]any ...).
func NewLogEntry(term uint64, command any) (LogEntry, error) {
	v, err := structpb.NewValue(command)
	if err != nil {
		return LogEntry{}, fmt.Errorf("command is not a JSON value: %w", err)
	}
	return LogEntry{Term: term, Command: v}, nil
}

// CommandValue returns the command as a plain Go value, mostly for logging.
func (e LogEntry) CommandValue() any {
	if e.Command == nil {
		return nil
	}
	return e.Command.AsInterface()
}

func (e LogEntry) MarshalJSON() ([]byte, error) {
	cmd, err := MarshalCommand(e.Command)
	if err != nil {
		return nil, err
	}
	term := e.Term
	return json.Marshal(logEntryJSON{Term: &term, Command: cmd})
}

func (e *LogEntry) UnmarshalJSON(data []byte) error {
	var raw logEntryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Term == nil {
		return fmt.Errorf("%w: log entry is missing term", ErrMalformedRequest)
	}
	cmd, err := UnmarshalCommand(raw.Command)
	if err != nil {
		return err
	}
	e.Term = *raw.Term
	e.Command = cmd
	return nil
}

// MarshalCommand encodes a command as JSON. A nil command encodes as null.
func MarshalCommand(cmd *structpb.Value) (json.RawMessage, error) {
	if cmd == nil {
		return json.RawMessage("null"), nil
	}
	b, err := protojson.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("encoding command: %w", err)
	}
	return b, nil
}

// UnmarshalCommand decodes a JSON command. An absent command (no bytes at all) is malformed, an explicit null is a
// valid null command.
func UnmarshalCommand(data json.RawMessage) (*structpb.Value, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: command is required", ErrMalformedRequest)
	}
	v := &structpb.Value{}
	if err := protojson.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("%w: command: %v", ErrMalformedRequest, err)
	}
	return v, nil
}
