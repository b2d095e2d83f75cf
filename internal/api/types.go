package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// DaemonStatus summarizes daemon runtime state for the status endpoint.
type DaemonStatus struct {
	Running            bool   `json:"running"`
	PID                int    `json:"pid"`
	DatabasePath       string `json:"databasePath"`
	LockFilePath       string `json:"lockFilePath"`
	Collections        int    `json:"collections"`
	Sessions           int    `json:"sessions"`
	ProcessingSessions int    `json:"processingSessions"`
	CompletedSessions  int    `json:"completedSessions"`
	ErroredSessions    int    `json:"erroredSessions"`
	ProcessedFiles     int    `json:"processedFiles"`
}

// Collection describes a comic collection in a transport-friendly format.
type Collection struct {
	ID         int64       `json:"id"`
	Name       string      `json:"name"`
	FolderPath string      `json:"folderPath"`
	CreatedAt  string      `json:"createdAt,omitempty"`
	SyncStatus *SyncStatus `json:"syncStatus,omitempty"`
}

// SyncStatus describes the latest sync pass outcome for a collection folder.
type SyncStatus struct {
	State              string `json:"state"`
	FolderETag         string `json:"folderEtag,omitempty"`
	TotalFileCount     int    `json:"totalFileCount"`
	ProcessedFileCount int    `json:"processedFileCount"`
	LastSyncAt         string `json:"lastSyncAt,omitempty"`
	ErrorMessage       string `json:"errorMessage,omitempty"`
	UpdatedAt          string `json:"updatedAt,omitempty"`
}

// Session describes a recognition session in a transport-friendly format.
type Session struct {
	SessionID       string  `json:"sessionId"`
	CollectionID    int64   `json:"collectionId"`
	State           string  `json:"state"`
	StartedAt       string  `json:"startedAt,omitempty"`
	FinishedAt      string  `json:"finishedAt,omitempty"`
	TotalItems      int     `json:"totalItems"`
	ProcessedItems  int     `json:"processedItems"`
	SuccessfulItems int     `json:"successfulItems"`
	FailedItems     int     `json:"failedItems"`
	CurrentStage    string  `json:"currentStage,omitempty"`
	StatusMessage   string  `json:"statusMessage,omitempty"`
	Percent         float64 `json:"percent"`
	Dismissed       bool    `json:"dismissed"`
}

// SessionStatus is the full answer to a session status query, including
// which tier supplied the progress payload.
type SessionStatus struct {
	Session          Session         `json:"session"`
	Source           string          `json:"source"`
	HasActiveChannel bool            `json:"hasActiveChannel"`
	Latest           *ProgressUpdate `json:"latest,omitempty"`
	History          []ProgressUpdate `json:"history,omitempty"`
}

// ProgressUpdate is one live or cached progress payload.
type ProgressUpdate struct {
	Type            string  `json:"type"`
	SessionID       string  `json:"sessionId"`
	Timestamp       string  `json:"timestamp,omitempty"`
	Stage           string  `json:"stage,omitempty"`
	Percent         float64 `json:"percent"`
	Message         string  `json:"message,omitempty"`
	TotalItems      int     `json:"totalItems,omitempty"`
	ProcessedItems  int     `json:"processedItems,omitempty"`
	SuccessfulItems int     `json:"successfulItems,omitempty"`
	FailedItems     int     `json:"failedItems,omitempty"`
}

// SyncResult summarizes a manually triggered sync pass.
type SyncResult struct {
	CollectionID    int64  `json:"collectionId"`
	State           string `json:"state"`
	Skipped         bool   `json:"skipped"`
	Reason          string `json:"reason,omitempty"`
	TotalFiles      int    `json:"totalFiles"`
	SelectedFiles   int    `json:"selectedFiles"`
	DownloadedFiles int    `json:"downloadedFiles"`
	FailedFiles     int    `json:"failedFiles"`
	SessionID       string `json:"sessionId,omitempty"`
	ErrorMessage    string `json:"errorMessage,omitempty"`
}

// CollectionListResponse wraps the collection listing payload.
type CollectionListResponse struct {
	Collections []Collection `json:"collections"`
}

// CollectionResponse wraps a single collection payload.
type CollectionResponse struct {
	Collection Collection `json:"collection"`
}

// SessionListResponse wraps the session listing payload.
type SessionListResponse struct {
	Sessions []Session `json:"sessions"`
}

// AddCollectionRequest is the body of a collection creation call.
type AddCollectionRequest struct {
	Name       string `json:"name"`
	FolderPath string `json:"folderPath"`
}

// ProgressCallback is the body the recognition service posts to the progress
// callback endpoint.
type ProgressCallback struct {
	SessionID       string  `json:"session_id"`
	Stage           string  `json:"stage,omitempty"`
	Percent         float64 `json:"percent"`
	Message         string  `json:"message,omitempty"`
	TotalItems      int     `json:"total_items,omitempty"`
	ProcessedItems  int     `json:"processed_items,omitempty"`
	SuccessfulItems int     `json:"successful_items,omitempty"`
	FailedItems     int     `json:"failed_items,omitempty"`
}

// CompletionCallback is the body posted to the complete and error callback
// endpoints.
type CompletionCallback struct {
	SessionID       string `json:"session_id"`
	Message         string `json:"message,omitempty"`
	TotalItems      int    `json:"total_items,omitempty"`
	ProcessedItems  int    `json:"processed_items,omitempty"`
	SuccessfulItems int    `json:"successful_items,omitempty"`
	FailedItems     int    `json:"failed_items,omitempty"`
}

// ErrorResponse is the JSON error body every endpoint uses.
type ErrorResponse struct {
	Error string `json:"error"`
}
