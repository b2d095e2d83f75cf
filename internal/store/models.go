package store

import (
	"strings"
	"time"
)

// SyncState represents the lifecycle of one collection/folder sync record.
type SyncState string

const (
	SyncPending    SyncState = "pending"
	SyncInProgress SyncState = "in_progress"
	SyncCompleted  SyncState = "completed"
	SyncEmpty      SyncState = "empty"
	SyncFailed     SyncState = "failed"
)

var syncStateSet = map[SyncState]struct{}{
	SyncPending:    {},
	SyncInProgress: {},
	SyncCompleted:  {},
	SyncEmpty:      {},
	SyncFailed:     {},
}

// ParseSyncState converts a string into a known SyncState.
func ParseSyncState(value string) (SyncState, bool) {
	normalized := SyncState(strings.ToLower(strings.TrimSpace(value)))
	_, ok := syncStateSet[normalized]
	return normalized, ok
}

// FileStatus records the outcome of one processing attempt for a file.
type FileStatus string

const (
	FileProcessed FileStatus = "processed"
	FileFailed    FileStatus = "failed"
)

// SessionState represents the lifecycle of a recognition session.
type SessionState string

const (
	SessionProcessing SessionState = "processing"
	SessionCompleted  SessionState = "completed"
	SessionError      SessionState = "error"
)

// IsTerminal reports whether a session state admits no further transitions.
func (s SessionState) IsTerminal() bool {
	return s == SessionCompleted || s == SessionError
}

// Collection maps a logical comic collection to its remote folder.
type Collection struct {
	ID         int64
	Name       string
	FolderPath string
	CreatedAt  time.Time
}

// SyncStatus is the persisted outcome of the latest sync pass for one
// collection/folder pair. One row per pair, mutated in place on every pass.
type SyncStatus struct {
	CollectionID       int64
	FolderPath         string
	State              SyncState
	LastFolderETag     string
	TotalFileCount     int
	ProcessedFileCount int
	LastSyncAt         *time.Time
	ErrorMessage       string
	UpdatedAt          time.Time
}

// ProcessedFile records the most recent processing attempt for one remote file.
// Identity is (collection, relative path); re-attempts overwrite the row.
type ProcessedFile struct {
	CollectionID   int64
	RelativePath   string
	FileETag       string
	FileSize       int64
	FileModifiedAt time.Time
	Status         FileStatus
	SessionID      string
	ErrorMessage   string
	ProcessedAt    time.Time
}

// Session tracks one asynchronous recognition batch from submission to
// completion or error.
type Session struct {
	SessionID       string
	CollectionID    int64
	State           SessionState
	StartedAt       time.Time
	FinishedAt      *time.Time
	TotalItems      int
	ProcessedItems  int
	SuccessfulItems int
	FailedItems     int
	CurrentStage    string
	StatusMessage   string
	Dismissed       bool
}

// SessionCounts carries the summary counters reported by a completion callback.
type SessionCounts struct {
	TotalItems      int
	ProcessedItems  int
	SuccessfulItems int
	FailedItems     int
	CurrentStage    string
	StatusMessage   string
}

// HealthSummary aggregates store state for diagnostic output.
type HealthSummary struct {
	Collections        int
	Sessions           int
	ProcessingSessions int
	CompletedSessions  int
	ErroredSessions    int
	ProcessedFiles     int
}
