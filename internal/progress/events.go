package progress

import "time"

// EventType identifies the kind of a live session update.
type EventType string

const (
	// EventConnected is the synthetic first event on every new subscription.
	EventConnected EventType = "connected"
	// EventProgress carries an intermediate recognition update.
	EventProgress EventType = "progress"
	// EventComplete marks the session finished successfully.
	EventComplete EventType = "complete"
	// EventError marks the session finished with a failure.
	EventError EventType = "error"
)

// Event is one live update for a recognition session. The same shape is
// stored as the durable progress snapshot and streamed to subscribers.
type Event struct {
	Type            EventType `json:"type"`
	SessionID       string    `json:"session_id"`
	Timestamp       time.Time `json:"timestamp"`
	Stage           string    `json:"stage,omitempty"`
	Percent         float64   `json:"percent"`
	Message         string    `json:"message,omitempty"`
	TotalItems      int       `json:"total_items,omitempty"`
	ProcessedItems  int       `json:"processed_items,omitempty"`
	SuccessfulItems int       `json:"successful_items,omitempty"`
	FailedItems     int       `json:"failed_items,omitempty"`
}

// Terminal reports whether the event ends its session's live stream.
func (e Event) Terminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}
