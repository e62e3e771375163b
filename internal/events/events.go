// Package events defines the build event stream: line-tagged process output
// and session lifecycle notifications, broadcast to any number of
// subscribers and optionally persisted.
package events

import (
	"encoding/json"
	"time"
)

// Type names a build event.
type Type string

const (
	TypeSessionStarted      Type = "session_started"
	TypeSessionFinished     Type = "session_finished"
	TypeCombinationStarted  Type = "combination_started"
	TypeCombinationFinished Type = "combination_finished"
	TypeLog                 Type = "log"
	TypeCancelAcknowledged  Type = "cancel_acknowledged"
)

// Stream tags which child process stream a log line came from.
const (
	StreamStdout = "stdout"
	StreamStderr = "stderr"
)

// Event is one entry of the build event stream.
type Event struct {
	Time        time.Time `json:"time"`
	SessionID   string    `json:"session_id"`
	Type        Type      `json:"type"`
	ComboIndex  int       `json:"combo_index,omitempty"`
	Combination string    `json:"combination,omitempty"`
	Stream      string    `json:"stream,omitempty"`
	Line        string    `json:"line,omitempty"`
	Outcome     string    `json:"outcome,omitempty"`
	Message     string    `json:"message,omitempty"`
}

// Payload serializes the event for persistence and remote forwarding.
func (e Event) Payload() []byte {
	data, err := json.Marshal(e)
	if err != nil {
		return nil
	}
	return data
}

// LogEvent constructs a line-tagged log event.
func LogEvent(sessionID string, comboIndex int, stream, line string) Event {
	return Event{
		Time:       time.Now(),
		SessionID:  sessionID,
		Type:       TypeLog,
		ComboIndex: comboIndex,
		Stream:     stream,
		Line:       line,
	}
}
