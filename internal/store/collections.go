package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// AddCollection registers a new collection with its remote folder path.
func (s *Store) AddCollection(ctx context.Context, name, folderPath string) (*Collection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("collection name required")
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO collections (name, folder_path, created_at) VALUES (?, ?, ?)`,
		name,
		strings.TrimSpace(folderPath),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert collection: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetCollection(ctx, id)
}

// GetCollection fetches a collection by identifier. Returns nil when absent.
func (s *Store) GetCollection(ctx context.Context, id int64) (*Collection, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, name, folder_path, created_at FROM collections WHERE id = ?`,
		id,
	)
	collection, err := scanCollection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get collection: %w", err)
	}
	return collection, nil
}

// ListCollections returns all collections ordered by creation time.
func (s *Store) ListCollections(ctx context.Context) ([]*Collection, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, name, folder_path, created_at FROM collections ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	var collections []*Collection
	for rows.Next() {
		collection, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		collections = append(collections, collection)
	}
	return collections, rows.Err()
}

// SetCollectionFolder updates the remote folder path for a collection.
func (s *Store) SetCollectionFolder(ctx context.Context, id int64, folderPath string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE collections SET folder_path = ? WHERE id = ?`,
		strings.TrimSpace(folderPath),
		id,
	)
	if err != nil {
		return fmt.Errorf("update collection folder: %w", err)
	}
	return nil
}

func scanCollection(scanner interface{ Scan(dest ...any) error }) (*Collection, error) {
	var (
		id         int64
		name       string
		folderPath sql.NullString
		createdRaw sql.NullString
	)
	if err := scanner.Scan(&id, &name, &folderPath, &createdRaw); err != nil {
		return nil, err
	}

	collection := &Collection{
		ID:         id,
		Name:       name,
		FolderPath: folderPath.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		collection.CreatedAt = created
	}
	return collection, nil
}
