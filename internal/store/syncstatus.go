package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetSyncStatus fetches the latest sync record for a collection/folder pair.
// Returns nil when no pass has ever run.
func (s *Store) GetSyncStatus(ctx context.Context, collectionID int64, folderPath string) (*SyncStatus, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT collection_id, folder_path, state, last_folder_etag, total_file_count,
		        processed_file_count, last_sync_at, error_message, updated_at
		 FROM sync_status WHERE collection_id = ? AND folder_path = ?`,
		collectionID,
		folderPath,
	)
	status, err := scanSyncStatus(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sync status: %w", err)
	}
	return status, nil
}

// UpsertSyncStatus writes the sync record for a collection/folder pair,
// replacing any previous row. A failed state requires an error message and a
// completed state requires a sync timestamp.
func (s *Store) UpsertSyncStatus(ctx context.Context, status *SyncStatus) error {
	if status == nil {
		return errors.New("sync status is nil")
	}
	if status.State == SyncFailed && status.ErrorMessage == "" {
		return errors.New("failed sync status requires an error message")
	}
	if status.State == SyncCompleted && status.LastSyncAt == nil {
		return errors.New("completed sync status requires a sync timestamp")
	}

	status.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO sync_status (
		    collection_id, folder_path, state, last_folder_etag, total_file_count,
		    processed_file_count, last_sync_at, error_message, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (collection_id, folder_path) DO UPDATE SET
		    state = excluded.state,
		    last_folder_etag = excluded.last_folder_etag,
		    total_file_count = excluded.total_file_count,
		    processed_file_count = excluded.processed_file_count,
		    last_sync_at = excluded.last_sync_at,
		    error_message = excluded.error_message,
		    updated_at = excluded.updated_at`,
		status.CollectionID,
		status.FolderPath,
		status.State,
		nullableString(status.LastFolderETag),
		status.TotalFileCount,
		status.ProcessedFileCount,
		nullableTime(status.LastSyncAt),
		nullableString(status.ErrorMessage),
		status.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert sync status: %w", err)
	}
	return nil
}

func scanSyncStatus(scanner interface{ Scan(dest ...any) error }) (*SyncStatus, error) {
	var (
		collectionID   int64
		folderPath     string
		stateStr       string
		folderETag     sql.NullString
		totalCount     int
		processedCount int
		lastSyncRaw    sql.NullString
		errorMessage   sql.NullString
		updatedRaw     sql.NullString
	)
	if err := scanner.Scan(
		&collectionID,
		&folderPath,
		&stateStr,
		&folderETag,
		&totalCount,
		&processedCount,
		&lastSyncRaw,
		&errorMessage,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	status := &SyncStatus{
		CollectionID:       collectionID,
		FolderPath:         folderPath,
		State:              SyncState(stateStr),
		LastFolderETag:     folderETag.String,
		TotalFileCount:     totalCount,
		ProcessedFileCount: processedCount,
		LastSyncAt:         timeOrNil(lastSyncRaw),
		ErrorMessage:       errorMessage.String,
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		status.UpdatedAt = updated
	}
	return status, nil
}
