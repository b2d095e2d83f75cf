package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"longbox/internal/api"
	"longbox/internal/config"
	"longbox/internal/logging"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/collections", srv.handleCollections)
	mux.HandleFunc("/api/collections/", srv.handleCollectionAction)
	mux.HandleFunc("/api/sessions", srv.handleSessions)
	mux.HandleFunc("/api/sessions/", srv.handleSessionAction)
	mux.HandleFunc("/api/callbacks/progress", srv.handleProgressCallback)
	mux.HandleFunc("/api/callbacks/complete", srv.handleCompleteCallback)
	mux.HandleFunc("/api/callbacks/error", srv.handleErrorCallback)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return logging.NewNop()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	payload := api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		DatabasePath: status.DatabasePath,
		LockFilePath: status.LockFilePath,
	}
	if status.Health != nil {
		payload.Collections = status.Health.Collections
		payload.Sessions = status.Health.Sessions
		payload.ProcessingSessions = status.Health.ProcessingSessions
		payload.CompletedSessions = status.Health.CompletedSessions
		payload.ErroredSessions = status.Health.ErroredSessions
		payload.ProcessedFiles = status.Health.ProcessedFiles
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleCollections(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listCollections(w, r)
	case http.MethodPost:
		s.addCollection(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) listCollections(w http.ResponseWriter, r *http.Request) {
	collections, err := s.daemon.store.ListCollections(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	views := make([]api.Collection, 0, len(collections))
	for _, collection := range collections {
		status, statusErr := s.daemon.store.GetSyncStatus(r.Context(), collection.ID, collection.FolderPath)
		if statusErr != nil {
			s.writeError(w, http.StatusInternalServerError, statusErr.Error())
			return
		}
		views = append(views, api.FromCollection(collection, status))
	}
	s.writeJSON(w, http.StatusOK, api.CollectionListResponse{Collections: views})
}

func (s *apiServer) addCollection(w http.ResponseWriter, r *http.Request) {
	var req api.AddCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.writeError(w, http.StatusBadRequest, "collection name required")
		return
	}

	folderPath := config.NormalizeRemotePath(req.FolderPath)
	if folderPath == "" {
		folderPath = config.NormalizeRemotePath("/" + req.Name)
	}
	collection, err := s.daemon.store.AddCollection(r.Context(), req.Name, folderPath)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, api.CollectionResponse{Collection: api.FromCollection(collection, nil)})
}

// handleCollectionAction routes /api/collections/{id} and
// /api/collections/{id}/sync.
func (s *apiServer) handleCollectionAction(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/collections/")
	idStr, action, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid collection id")
		return
	}

	collection, err := s.daemon.store.GetCollection(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if collection == nil {
		s.writeError(w, http.StatusNotFound, "collection not found")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		status, statusErr := s.daemon.store.GetSyncStatus(r.Context(), collection.ID, collection.FolderPath)
		if statusErr != nil {
			s.writeError(w, http.StatusInternalServerError, statusErr.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, api.CollectionResponse{Collection: api.FromCollection(collection, status)})
	case action == "sync" && r.Method == http.MethodPost:
		result, syncErr := s.daemon.syncer.ProcessCollection(r.Context(), collection)
		if syncErr != nil {
			s.writeError(w, http.StatusInternalServerError, syncErr.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, api.SyncResult{
			CollectionID:    result.CollectionID,
			State:           string(result.State),
			Skipped:         result.Skipped,
			Reason:          result.Reason,
			TotalFiles:      result.TotalFiles,
			SelectedFiles:   result.SelectedFiles,
			DownloadedFiles: result.DownloadedFiles,
			FailedFiles:     result.FailedFiles,
			SessionID:       result.SessionID,
			ErrorMessage:    result.ErrorMessage,
		})
	default:
		s.writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}
