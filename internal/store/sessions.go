package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// InsertSession records a newly started recognition session. The session
// starts in the processing state.
func (s *Store) InsertSession(ctx context.Context, sessionID string, collectionID int64, totalItems int) (*Session, error) {
	if sessionID == "" {
		return nil, errors.New("session id required")
	}

	now := time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO sessions (
		    session_id, collection_id, state, started_at, total_items,
		    processed_items, successful_items, failed_items
		 ) VALUES (?, ?, ?, ?, ?, 0, 0, 0)`,
		sessionID,
		collectionID,
		SessionProcessing,
		now.Format(time.RFC3339Nano),
		totalItems,
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return s.GetSession(ctx, sessionID)
}

// GetSession fetches a session row. Returns nil when the session is unknown.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT session_id, collection_id, state, started_at, finished_at,
		        total_items, processed_items, successful_items, failed_items,
		        current_stage, status_message, dismissed
		 FROM sessions WHERE session_id = ?`,
		sessionID,
	)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// CompleteSession moves a processing session to completed. Returns false when
// the session was not in the processing state, which makes the transition
// exactly-once under concurrent callbacks.
func (s *Store) CompleteSession(ctx context.Context, sessionID string, counts SessionCounts) (bool, error) {
	return s.finishSession(ctx, sessionID, SessionCompleted, counts)
}

// FailSession moves a processing session to error. Returns false when the
// session was not in the processing state.
func (s *Store) FailSession(ctx context.Context, sessionID string, counts SessionCounts) (bool, error) {
	return s.finishSession(ctx, sessionID, SessionError, counts)
}

func (s *Store) finishSession(ctx context.Context, sessionID string, state SessionState, counts SessionCounts) (bool, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE sessions SET
		    state = ?,
		    finished_at = ?,
		    total_items = ?,
		    processed_items = ?,
		    successful_items = ?,
		    failed_items = ?,
		    current_stage = ?,
		    status_message = ?
		 WHERE session_id = ? AND state = ?`,
		state,
		now.Format(time.RFC3339Nano),
		counts.TotalItems,
		counts.ProcessedItems,
		counts.SuccessfulItems,
		counts.FailedItems,
		nullableString(counts.CurrentStage),
		nullableString(counts.StatusMessage),
		sessionID,
		SessionProcessing,
	)
	if err != nil {
		return false, fmt.Errorf("finish session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// DismissSession hides a terminal session from default listings. Returns
// false when the session is unknown or still processing.
func (s *Store) DismissSession(ctx context.Context, sessionID string) (bool, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE sessions SET dismissed = 1
		 WHERE session_id = ? AND state != ?`,
		sessionID,
		SessionProcessing,
	)
	if err != nil {
		return false, fmt.Errorf("dismiss session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ListSessions returns sessions newest first. Dismissed sessions are skipped
// unless includeDismissed is set. A limit of zero means no limit.
func (s *Store) ListSessions(ctx context.Context, includeDismissed bool, limit int) ([]*Session, error) {
	query := `SELECT session_id, collection_id, state, started_at, finished_at,
	                 total_items, processed_items, successful_items, failed_items,
	                 current_stage, status_message, dismissed
	          FROM sessions`
	var args []any
	if !includeDismissed {
		query += " WHERE dismissed = 0"
	}
	query += " ORDER BY started_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// StaleProcessingSessions returns processing sessions that started before the
// cutoff. The watchdog uses this to force-fail abandoned sessions.
func (s *Store) StaleProcessingSessions(ctx context.Context, cutoff time.Time) ([]*Session, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT session_id, collection_id, state, started_at, finished_at,
		        total_items, processed_items, successful_items, failed_items,
		        current_stage, status_message, dismissed
		 FROM sessions WHERE state = ? AND started_at < ?
		 ORDER BY started_at`,
		SessionProcessing,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("list stale sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func scanSession(scanner interface{ Scan(dest ...any) error }) (*Session, error) {
	var (
		sessionID     string
		collectionID  int64
		stateStr      string
		startedRaw    sql.NullString
		finishedRaw   sql.NullString
		totalItems    int
		processed     int
		successful    int
		failed        int
		currentStage  sql.NullString
		statusMessage sql.NullString
		dismissed     int
	)
	if err := scanner.Scan(
		&sessionID,
		&collectionID,
		&stateStr,
		&startedRaw,
		&finishedRaw,
		&totalItems,
		&processed,
		&successful,
		&failed,
		&currentStage,
		&statusMessage,
		&dismissed,
	); err != nil {
		return nil, err
	}

	session := &Session{
		SessionID:       sessionID,
		CollectionID:    collectionID,
		State:           SessionState(stateStr),
		FinishedAt:      timeOrNil(finishedRaw),
		TotalItems:      totalItems,
		ProcessedItems:  processed,
		SuccessfulItems: successful,
		FailedItems:     failed,
		CurrentStage:    currentStage.String,
		StatusMessage:   statusMessage.String,
		Dismissed:       dismissed != 0,
	}
	if started, err := parseTimeString(startedRaw.String); err == nil {
		session.StartedAt = started
	}
	return session, nil
}
