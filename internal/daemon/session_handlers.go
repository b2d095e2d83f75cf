package daemon

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"longbox/internal/api"
	"longbox/internal/logging"
)

func (s *apiServer) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := r.URL.Query()
	includeDismissed := query.Get("all") == "1" || strings.EqualFold(query.Get("all"), "true")
	limit := s.daemon.cfg.Sessions.HistoryLimit
	if value := strings.TrimSpace(query.Get("limit")); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed >= 0 {
			limit = parsed
		}
	}

	sessions, err := s.daemon.store.ListSessions(r.Context(), includeDismissed, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	views := make([]api.Session, 0, len(sessions))
	for _, session := range sessions {
		views = append(views, api.FromSession(session))
	}
	s.writeJSON(w, http.StatusOK, api.SessionListResponse{Sessions: views})
}

// handleSessionAction routes /api/sessions/{id}, /api/sessions/{id}/dismiss,
// and /api/sessions/{id}/events.
func (s *apiServer) handleSessionAction(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	sessionID, action, _ := strings.Cut(rest, "/")
	if sessionID == "" {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		s.describeSession(w, r, sessionID)
	case action == "dismiss" && r.Method == http.MethodPost:
		s.dismissSession(w, r, sessionID)
	case action == "events" && r.Method == http.MethodGet:
		s.streamSessionEvents(w, r, sessionID)
	default:
		s.writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *apiServer) describeSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	status, err := s.daemon.registry.GetSessionStatus(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if status == nil {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromSessionStatus(status))
}

func (s *apiServer) dismissSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	dismissed, err := s.daemon.registry.Dismiss(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !dismissed {
		session, lookupErr := s.daemon.store.GetSession(r.Context(), sessionID)
		if lookupErr != nil {
			s.writeError(w, http.StatusInternalServerError, lookupErr.Error())
			return
		}
		if session == nil {
			s.writeError(w, http.StatusNotFound, "session not found")
			return
		}
		s.writeError(w, http.StatusConflict, "session is still processing")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"dismissed": true})
}

// streamSessionEvents serves the live update channel over server-sent
// events. The stream opens with a synthetic connected event and ends after
// the session's terminal event, on channel expiry, or when the client leaves.
func (s *apiServer) streamSessionEvents(w http.ResponseWriter, r *http.Request, sessionID string) {
	session, err := s.daemon.store.GetSession(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if session == nil {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	events, cancel, err := s.daemon.registry.Subscribe(sessionID)
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, open := <-events:
			if !open {
				return
			}
			data, encodeErr := json.Marshal(api.FromEvent(event))
			if encodeErr != nil {
				s.log().Error("encode stream event", logging.Error(encodeErr))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
			flusher.Flush()
		}
	}
}
