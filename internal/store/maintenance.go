package store

import (
	"context"
	"fmt"
	"time"
)

// PruneProcessedFiles removes per-file records last touched before the
// cutoff. Returns the number of rows removed.
func (s *Store) PruneProcessedFiles(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`DELETE FROM processed_files WHERE processed_at < ?`,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("prune processed files: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}

// PruneExpiredProgress removes progress snapshots whose TTL elapsed before
// now. Returns the number of rows removed.
func (s *Store) PruneExpiredProgress(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`DELETE FROM progress_cache WHERE expires_at <= ?`,
		now.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("prune progress cache: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}

// Health reports aggregate row counts for the status endpoint.
func (s *Store) Health(ctx context.Context) (*HealthSummary, error) {
	summary := &HealthSummary{}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM collections`).Scan(&summary.Collections); err != nil {
		return nil, fmt.Errorf("count collections: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM sessions`).Scan(&summary.Sessions); err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM sessions WHERE state = ?`, SessionProcessing).Scan(&summary.ProcessingSessions); err != nil {
		return nil, fmt.Errorf("count processing sessions: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM sessions WHERE state = ?`, SessionCompleted).Scan(&summary.CompletedSessions); err != nil {
		return nil, fmt.Errorf("count completed sessions: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM sessions WHERE state = ?`, SessionError).Scan(&summary.ErroredSessions); err != nil {
		return nil, fmt.Errorf("count errored sessions: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM processed_files`).Scan(&summary.ProcessedFiles); err != nil {
		return nil, fmt.Errorf("count processed files: %w", err)
	}

	return summary, nil
}
