package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"longbox/internal/api"
	"longbox/internal/logging"
	"longbox/internal/progress"
)

// Callback endpoints always answer 202 for well-formed bodies, even when the
// session is unknown or already finished. The recognition service retries on
// failure codes, and a retried stale callback has nothing left to change.

func (s *apiServer) handleProgressCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var callback api.ProgressCallback
	if err := json.NewDecoder(r.Body).Decode(&callback); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid callback body")
		return
	}
	if strings.TrimSpace(callback.SessionID) == "" {
		s.writeError(w, http.StatusBadRequest, "session_id required")
		return
	}

	err := s.daemon.registry.UpdateProgress(r.Context(), progress.Event{
		SessionID:       callback.SessionID,
		Stage:           callback.Stage,
		Percent:         callback.Percent,
		Message:         callback.Message,
		TotalItems:      callback.TotalItems,
		ProcessedItems:  callback.ProcessedItems,
		SuccessfulItems: callback.SuccessfulItems,
		FailedItems:     callback.FailedItems,
	})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, nil)
}

func (s *apiServer) handleCompleteCallback(w http.ResponseWriter, r *http.Request) {
	s.handleTerminalCallback(w, r, false)
}

func (s *apiServer) handleErrorCallback(w http.ResponseWriter, r *http.Request) {
	s.handleTerminalCallback(w, r, true)
}

func (s *apiServer) handleTerminalCallback(w http.ResponseWriter, r *http.Request, failed bool) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var callback api.CompletionCallback
	if err := json.NewDecoder(r.Body).Decode(&callback); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid callback body")
		return
	}
	if strings.TrimSpace(callback.SessionID) == "" {
		s.writeError(w, http.StatusBadRequest, "session_id required")
		return
	}

	event := progress.Event{
		Message:         callback.Message,
		TotalItems:      callback.TotalItems,
		ProcessedItems:  callback.ProcessedItems,
		SuccessfulItems: callback.SuccessfulItems,
		FailedItems:     callback.FailedItems,
	}

	var applied bool
	var err error
	if failed {
		applied, err = s.daemon.registry.SendError(r.Context(), callback.SessionID, event)
	} else {
		event.Percent = 100
		applied, err = s.daemon.registry.SendComplete(r.Context(), callback.SessionID, event)
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if applied {
		s.notifySessionFinished(r.Context(), callback, failed)
	}
	s.writeJSON(w, http.StatusAccepted, nil)
}

func (s *apiServer) notifySessionFinished(ctx context.Context, callback api.CompletionCallback, failed bool) {
	session, err := s.daemon.store.GetSession(ctx, callback.SessionID)
	if err != nil || session == nil {
		return
	}
	collectionName := ""
	if collection, lookupErr := s.daemon.store.GetCollection(ctx, session.CollectionID); lookupErr == nil && collection != nil {
		collectionName = collection.Name
	}

	var notifyErr error
	if failed {
		notifyErr = s.daemon.notifier.NotifySessionFailed(ctx, collectionName, callback.Message)
	} else {
		notifyErr = s.daemon.notifier.NotifySessionCompleted(ctx, collectionName, callback.SuccessfulItems, callback.FailedItems)
	}
	if notifyErr != nil {
		s.log().Warn("session notification",
			logging.String(logging.FieldSessionID, callback.SessionID),
			logging.Error(notifyErr))
	}
}
