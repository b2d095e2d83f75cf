package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ProgressEntry is a durable snapshot of the latest progress payload for a
// session, with an optional bounded history of earlier payloads.
type ProgressEntry struct {
	SessionID string
	Payload   string
	History   string
	UpdatedAt time.Time
	ExpiresAt time.Time
}

// PutProgressEntry writes the durable progress snapshot for a session,
// replacing any earlier one.
func (s *Store) PutProgressEntry(ctx context.Context, entry *ProgressEntry) error {
	if entry == nil {
		return errors.New("progress entry is nil")
	}
	if entry.SessionID == "" {
		return errors.New("progress entry requires a session id")
	}

	entry.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO progress_cache (session_id, payload, history, updated_at, expires_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (session_id) DO UPDATE SET
		    payload = excluded.payload,
		    history = excluded.history,
		    updated_at = excluded.updated_at,
		    expires_at = excluded.expires_at`,
		entry.SessionID,
		entry.Payload,
		nullableString(entry.History),
		entry.UpdatedAt.Format(time.RFC3339Nano),
		entry.ExpiresAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("put progress entry: %w", err)
	}
	return nil
}

// GetProgressEntry fetches the durable snapshot for a session. Expired rows
// are treated as absent. Returns nil when no snapshot exists.
func (s *Store) GetProgressEntry(ctx context.Context, sessionID string, now time.Time) (*ProgressEntry, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT session_id, payload, history, updated_at, expires_at
		 FROM progress_cache WHERE session_id = ?`,
		sessionID,
	)

	var (
		id         string
		payload    string
		history    sql.NullString
		updatedRaw sql.NullString
		expiresRaw sql.NullString
	)
	err := row.Scan(&id, &payload, &history, &updatedRaw, &expiresRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get progress entry: %w", err)
	}

	entry := &ProgressEntry{
		SessionID: id,
		Payload:   payload,
		History:   history.String,
	}
	if updated, parseErr := parseTimeString(updatedRaw.String); parseErr == nil {
		entry.UpdatedAt = updated
	}
	if expires, parseErr := parseTimeString(expiresRaw.String); parseErr == nil {
		entry.ExpiresAt = expires
	}
	if !entry.ExpiresAt.IsZero() && !now.Before(entry.ExpiresAt) {
		return nil, nil
	}
	return entry, nil
}
