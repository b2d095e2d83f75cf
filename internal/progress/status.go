package progress

import (
	"context"
	"encoding/json"
	"time"

	"longbox/internal/logging"
	"longbox/internal/store"
)

// Source names the tier that supplied the progress payload of a status reply.
type Source string

const (
	// SourceCache means a fresh durable snapshot answered the query.
	SourceCache Source = "cache"
	// SourceMemory means the in-memory latest event answered the query.
	SourceMemory Source = "memory"
	// SourceDatabase means only the persisted session row was available.
	SourceDatabase Source = "database"
)

// SessionStatus is the full answer to a status query: the authoritative
// session row, the freshest progress payload available, and which tier it
// came from.
type SessionStatus struct {
	SessionID        string
	State            store.SessionState
	Source           Source
	HasActiveChannel bool
	Latest           *Event
	History          []Event
	Session          *store.Session
}

// GetSessionStatus answers a status query for one session. The session row is
// always consulted for the authoritative state; the progress payload comes
// from the first tier that has it: a fresh durable snapshot, then the
// in-memory latest event, then the row itself. Returns nil for an unknown
// session.
func (r *Registry) GetSessionStatus(ctx context.Context, sessionID string) (*SessionStatus, error) {
	session, err := r.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}

	status := &SessionStatus{
		SessionID: sessionID,
		State:     session.State,
		Session:   session,
	}

	r.mu.Lock()
	_, status.HasActiveChannel = r.channels[sessionID]
	memoryEvent, hasMemory := r.latest[sessionID]
	r.mu.Unlock()

	now := time.Now().UTC()
	if entry, cacheErr := r.store.GetProgressEntry(ctx, sessionID, now); cacheErr == nil && entry != nil {
		if now.Sub(entry.UpdatedAt) <= r.cfg.CacheFreshness() {
			var event Event
			if decodeErr := json.Unmarshal([]byte(entry.Payload), &event); decodeErr == nil {
				status.Source = SourceCache
				status.Latest = &event
				status.History = decodeHistory(entry.History)
				return status, nil
			}
			r.logger.Warn("corrupt progress snapshot",
				logging.String(logging.FieldSessionID, sessionID))
		}
	} else if cacheErr != nil {
		r.logger.Warn("read progress snapshot",
			logging.String(logging.FieldSessionID, sessionID),
			logging.Error(cacheErr))
	}

	if hasMemory {
		status.Source = SourceMemory
		status.Latest = &memoryEvent
		status.History = r.History(sessionID)
		return status, nil
	}

	status.Source = SourceDatabase
	status.Latest = eventFromSession(session)
	return status, nil
}

func decodeHistory(encoded string) []Event {
	if encoded == "" {
		return nil
	}
	var history []Event
	if err := json.Unmarshal([]byte(encoded), &history); err != nil {
		return nil
	}
	return history
}

// eventFromSession reconstructs a progress payload from the persisted row for
// queries that arrive after a restart emptied the other tiers.
func eventFromSession(session *store.Session) *Event {
	event := &Event{
		Type:            EventProgress,
		SessionID:       session.SessionID,
		Timestamp:       session.StartedAt,
		Stage:           session.CurrentStage,
		Message:         session.StatusMessage,
		TotalItems:      session.TotalItems,
		ProcessedItems:  session.ProcessedItems,
		SuccessfulItems: session.SuccessfulItems,
		FailedItems:     session.FailedItems,
	}
	switch session.State {
	case store.SessionCompleted:
		event.Type = EventComplete
	case store.SessionError:
		event.Type = EventError
	}
	if session.FinishedAt != nil {
		event.Timestamp = *session.FinishedAt
	}
	if session.TotalItems > 0 {
		event.Percent = float64(session.ProcessedItems) / float64(session.TotalItems) * 100
	}
	return event
}
