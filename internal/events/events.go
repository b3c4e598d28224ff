// Package events is the in-process fan-out for scan activity: the
// pipeline publishes, SSE clients subscribe.
package events

import (
	"encoding/json"
	"time"
)

// Event types published by the engine.
const (
	TypeRunStarted   = "run_started"
	TypeRunCompleted = "run_completed"
	TypeJobMatched   = "job_matched"
	TypeAlertSent    = "alert_sent"
	TypeSourceError  = "source_error"
)

type Event struct {
	Type    string          `json:"type"`
	Version int             `json:"v"`
	At      time.Time       `json:"at"`
	RunID   string          `json:"run_id,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// MakeEvent serializes one event to its wire form. Marshal failures of
// the payload degrade to an event without data rather than dropping it.
func MakeEvent(runID, typ string, v int, data any) string {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err == nil {
			raw = b
		}
	}
	e := Event{
		Type:    typ,
		Version: v,
		At:      time.Now().UTC(),
		RunID:   runID,
		Data:    raw,
	}
	b, _ := json.Marshal(e)
	return string(b)
}
