package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetProcessedFile fetches the per-file record for a collection. Returns nil
// when the file has never been processed.
func (s *Store) GetProcessedFile(ctx context.Context, collectionID int64, relativePath string) (*ProcessedFile, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT collection_id, relative_path, file_etag, file_size, file_modified_at,
		        status, session_id, error_message, processed_at
		 FROM processed_files WHERE collection_id = ? AND relative_path = ?`,
		collectionID,
		relativePath,
	)
	file, err := scanProcessedFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get processed file: %w", err)
	}
	return file, nil
}

// ListProcessedFiles returns all per-file records for a collection keyed by
// relative path.
func (s *Store) ListProcessedFiles(ctx context.Context, collectionID int64) (map[string]*ProcessedFile, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT collection_id, relative_path, file_etag, file_size, file_modified_at,
		        status, session_id, error_message, processed_at
		 FROM processed_files WHERE collection_id = ?`,
		collectionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list processed files: %w", err)
	}
	defer rows.Close()

	files := make(map[string]*ProcessedFile)
	for rows.Next() {
		file, err := scanProcessedFile(rows)
		if err != nil {
			return nil, err
		}
		files[file.RelativePath] = file
	}
	return files, rows.Err()
}

// UpsertProcessedFile records the outcome of handling a single remote file,
// replacing any earlier record for the same path.
func (s *Store) UpsertProcessedFile(ctx context.Context, file *ProcessedFile) error {
	if file == nil {
		return errors.New("processed file is nil")
	}
	if file.Status == FileFailed && file.ErrorMessage == "" {
		return errors.New("failed file record requires an error message")
	}

	file.ProcessedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO processed_files (
		    collection_id, relative_path, file_etag, file_size, file_modified_at,
		    status, session_id, error_message, processed_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (collection_id, relative_path) DO UPDATE SET
		    file_etag = excluded.file_etag,
		    file_size = excluded.file_size,
		    file_modified_at = excluded.file_modified_at,
		    status = excluded.status,
		    session_id = excluded.session_id,
		    error_message = excluded.error_message,
		    processed_at = excluded.processed_at`,
		file.CollectionID,
		file.RelativePath,
		nullableString(file.FileETag),
		file.FileSize,
		nullableTimeValue(file.FileModifiedAt),
		file.Status,
		nullableString(file.SessionID),
		nullableString(file.ErrorMessage),
		file.ProcessedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert processed file: %w", err)
	}
	return nil
}

// MarkBatchFailed flips every file attributed to a session to failed with the
// given message. Used when a submission fails after the per-file records were
// already written.
func (s *Store) MarkBatchFailed(ctx context.Context, sessionID, message string) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE processed_files
		 SET status = ?, error_message = ?, processed_at = ?
		 WHERE session_id = ?`,
		FileFailed,
		message,
		time.Now().UTC().Format(time.RFC3339Nano),
		sessionID,
	)
	if err != nil {
		return 0, fmt.Errorf("mark batch failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}

func scanProcessedFile(scanner interface{ Scan(dest ...any) error }) (*ProcessedFile, error) {
	var (
		collectionID int64
		relativePath string
		fileETag     sql.NullString
		fileSize     int64
		modifiedRaw  sql.NullString
		statusStr    string
		sessionID    sql.NullString
		errorMessage sql.NullString
		processedRaw sql.NullString
	)
	if err := scanner.Scan(
		&collectionID,
		&relativePath,
		&fileETag,
		&fileSize,
		&modifiedRaw,
		&statusStr,
		&sessionID,
		&errorMessage,
		&processedRaw,
	); err != nil {
		return nil, err
	}

	file := &ProcessedFile{
		CollectionID: collectionID,
		RelativePath: relativePath,
		FileETag:     fileETag.String,
		FileSize:     fileSize,
		Status:       FileStatus(statusStr),
		SessionID:    sessionID.String,
		ErrorMessage: errorMessage.String,
	}
	if modified := timeOrNil(modifiedRaw); modified != nil {
		file.FileModifiedAt = *modified
	}
	if processed, err := parseTimeString(processedRaw.String); err == nil {
		file.ProcessedAt = processed
	}
	return file, nil
}
