package api

import (
	"time"

	"longbox/internal/progress"
	"longbox/internal/store"
)

// FromCollection converts a stored collection into its wire form.
func FromCollection(collection *store.Collection, status *store.SyncStatus) Collection {
	view := Collection{
		ID:         collection.ID,
		Name:       collection.Name,
		FolderPath: collection.FolderPath,
		CreatedAt:  formatTime(collection.CreatedAt),
	}
	if status != nil {
		view.SyncStatus = fromSyncStatus(status)
	}
	return view
}

func fromSyncStatus(status *store.SyncStatus) *SyncStatus {
	view := &SyncStatus{
		State:              string(status.State),
		FolderETag:         status.LastFolderETag,
		TotalFileCount:     status.TotalFileCount,
		ProcessedFileCount: status.ProcessedFileCount,
		ErrorMessage:       status.ErrorMessage,
		UpdatedAt:          formatTime(status.UpdatedAt),
	}
	if status.LastSyncAt != nil {
		view.LastSyncAt = formatTime(*status.LastSyncAt)
	}
	return view
}

// FromSession converts a stored session into its wire form.
func FromSession(session *store.Session) Session {
	view := Session{
		SessionID:       session.SessionID,
		CollectionID:    session.CollectionID,
		State:           string(session.State),
		StartedAt:       formatTime(session.StartedAt),
		TotalItems:      session.TotalItems,
		ProcessedItems:  session.ProcessedItems,
		SuccessfulItems: session.SuccessfulItems,
		FailedItems:     session.FailedItems,
		CurrentStage:    session.CurrentStage,
		StatusMessage:   session.StatusMessage,
		Dismissed:       session.Dismissed,
	}
	if session.FinishedAt != nil {
		view.FinishedAt = formatTime(*session.FinishedAt)
	}
	if session.TotalItems > 0 {
		view.Percent = float64(session.ProcessedItems) / float64(session.TotalItems) * 100
	}
	return view
}

// FromSessionStatus converts a layered status answer into its wire form.
func FromSessionStatus(status *progress.SessionStatus) SessionStatus {
	view := SessionStatus{
		Session:          FromSession(status.Session),
		Source:           string(status.Source),
		HasActiveChannel: status.HasActiveChannel,
	}
	if status.Latest != nil {
		update := FromEvent(*status.Latest)
		view.Latest = &update
	}
	for _, event := range status.History {
		view.History = append(view.History, FromEvent(event))
	}
	return view
}

// FromEvent converts a progress event into its wire form.
func FromEvent(event progress.Event) ProgressUpdate {
	return ProgressUpdate{
		Type:            string(event.Type),
		SessionID:       event.SessionID,
		Timestamp:       formatTime(event.Timestamp),
		Stage:           event.Stage,
		Percent:         event.Percent,
		Message:         event.Message,
		TotalItems:      event.TotalItems,
		ProcessedItems:  event.ProcessedItems,
		SuccessfulItems: event.SuccessfulItems,
		FailedItems:     event.FailedItems,
	}
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(dateTimeFormat)
}
