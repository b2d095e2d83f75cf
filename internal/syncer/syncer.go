package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"longbox/internal/config"
	"longbox/internal/detector"
	"longbox/internal/logging"
	"longbox/internal/progress"
	"longbox/internal/services/recognizer"
	"longbox/internal/services/webdav"
	"longbox/internal/store"
)

// FolderSource reads remote collection folders. *webdav.Client satisfies it.
type FolderSource interface {
	GetFolderInfo(ctx context.Context, folderPath string) (*webdav.FolderInfo, error)
	DownloadFile(ctx context.Context, folderPath, relativePath string) ([]byte, error)
}

// BatchSubmitter hands a downloaded batch to the recognition service.
// *recognizer.Client satisfies it.
type BatchSubmitter interface {
	Submit(ctx context.Context, sessionID string, files []recognizer.FilePayload) error
}

// Result summarizes one sync pass over a collection folder.
type Result struct {
	CollectionID    int64
	State           store.SyncState
	Skipped         bool
	Reason          string
	TotalFiles      int
	SelectedFiles   int
	DownloadedFiles int
	FailedFiles     int
	SessionID       string
	ErrorMessage    string
}

// NoNewFiles reports whether the pass finished without submitting a batch.
func (r *Result) NoNewFiles() bool {
	return r.SessionID == ""
}

// Errored reports whether the pass hit a failure, either listing the folder
// or handing the batch to the recognition service.
func (r *Result) Errored() bool {
	return r.ErrorMessage != ""
}

// Syncer runs change-aware sync passes: it snapshots a remote folder, decides
// whether anything moved, downloads the changed files, and submits them as
// one recognition session.
type Syncer struct {
	cfg       *config.Config
	store     *store.Store
	folders   FolderSource
	submitter BatchSubmitter
	registry  *progress.Registry
	logger    *slog.Logger
}

// New builds a syncer over the given collaborators.
func New(
	cfg *config.Config,
	st *store.Store,
	folders FolderSource,
	submitter BatchSubmitter,
	registry *progress.Registry,
	logger *slog.Logger,
) *Syncer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Syncer{
		cfg:       cfg,
		store:     st,
		folders:   folders,
		submitter: submitter,
		registry:  registry,
		logger:    logging.WithComponent(logger, "syncer"),
	}
}

// ProcessCollection runs one pass over a collection's remote folder. Only a
// folder that cannot be listed or created marks the pass failed; individual
// file problems are recorded per file and never abort the pass.
func (s *Syncer) ProcessCollection(ctx context.Context, collection *store.Collection) (*Result, error) {
	if collection == nil {
		return nil, errors.New("collection is nil")
	}

	logger := s.logger.With(logging.Int64(logging.FieldCollectionID, collection.ID))
	result := &Result{CollectionID: collection.ID}

	if strings.TrimSpace(collection.FolderPath) == "" {
		logger.Debug("collection has no folder mapping")
		result.Skipped = true
		result.Reason = "no folder mapping"
		return result, nil
	}

	snapshot, err := s.folders.GetFolderInfo(ctx, collection.FolderPath)
	if err != nil {
		message := fmt.Sprintf("list remote folder: %v", err)
		logger.Error("sync pass failed", logging.Error(err))
		if storeErr := s.store.UpsertSyncStatus(ctx, &store.SyncStatus{
			CollectionID: collection.ID,
			FolderPath:   collection.FolderPath,
			State:        store.SyncFailed,
			ErrorMessage: message,
		}); storeErr != nil {
			logger.Error("record failed sync status", logging.Error(storeErr))
		}
		result.State = store.SyncFailed
		result.ErrorMessage = message
		return result, nil
	}

	last, err := s.store.GetSyncStatus(ctx, collection.ID, collection.FolderPath)
	if err != nil {
		return nil, err
	}

	decision := detector.Evaluate(snapshot, last)
	result.Reason = decision.Reason
	result.TotalFiles = len(snapshot.Files)
	if !decision.Run {
		logger.Debug("sync pass skipped", logging.String("reason", decision.Reason))
		result.Skipped = true
		if last != nil {
			result.State = last.State
		}
		return result, nil
	}
	logger.Info("sync pass starting",
		logging.String("reason", decision.Reason),
		logging.Int("files", len(snapshot.Files)))

	// The in-progress row keeps the previous change token so a crash mid-pass
	// leaves the change detectable on the next pass.
	inProgress := &store.SyncStatus{
		CollectionID: collection.ID,
		FolderPath:   collection.FolderPath,
		State:        store.SyncInProgress,
	}
	if last != nil {
		inProgress.LastFolderETag = last.LastFolderETag
		inProgress.TotalFileCount = last.TotalFileCount
		inProgress.ProcessedFileCount = last.ProcessedFileCount
	}
	if err := s.store.UpsertSyncStatus(ctx, inProgress); err != nil {
		return nil, err
	}

	if len(snapshot.Files) == 0 {
		return result, s.finishPass(ctx, collection, snapshot, result, store.SyncEmpty)
	}

	records, err := s.store.ListProcessedFiles(ctx, collection.ID)
	if err != nil {
		return nil, err
	}
	eligible := detector.SelectEligible(snapshot.Files, records)
	result.SelectedFiles = len(eligible)
	// The trigger fired but nothing was eligible; recording empty keeps
	// "ran and found nothing" distinguishable from "did work".
	if len(eligible) == 0 {
		logger.Info("no eligible files")
		return result, s.finishPass(ctx, collection, snapshot, result, store.SyncEmpty)
	}

	sessionID := uuid.NewString()
	var payloads []recognizer.FilePayload
	var downloaded []webdav.RemoteFile
	for _, file := range eligible {
		data, downloadErr := s.folders.DownloadFile(ctx, collection.FolderPath, file.RelativePath)
		if downloadErr != nil {
			logger.Warn("file download failed",
				logging.String("file", file.RelativePath),
				logging.Error(downloadErr))
			result.FailedFiles++
			if recordErr := s.recordFile(ctx, collection.ID, file, store.FileFailed, "", downloadErr.Error()); recordErr != nil {
				logger.Error("record failed file", logging.Error(recordErr))
			}
			continue
		}
		payloads = append(payloads, recognizer.FilePayload{
			RelativePath: file.RelativePath,
			ContentType:  file.ContentType,
			Data:         data,
		})
		downloaded = append(downloaded, file)
	}
	result.DownloadedFiles = len(downloaded)

	if len(payloads) == 0 {
		logger.Warn("every eligible file failed to download", logging.Int("files", len(eligible)))
		return result, s.finishPass(ctx, collection, snapshot, result, store.SyncCompleted)
	}

	for _, file := range downloaded {
		if recordErr := s.recordFile(ctx, collection.ID, file, store.FileProcessed, sessionID, ""); recordErr != nil {
			logger.Error("record processed file", logging.Error(recordErr))
		}
	}

	if err := s.registry.InitializeSession(ctx, sessionID, collection.ID, len(payloads)); err != nil {
		return nil, err
	}
	result.SessionID = sessionID

	if submitErr := s.submitter.Submit(ctx, sessionID, payloads); submitErr != nil {
		logger.Error("batch submission failed",
			logging.String(logging.FieldSessionID, sessionID),
			logging.Error(submitErr))
		result.FailedFiles += len(downloaded)
		result.ErrorMessage = fmt.Sprintf("submission failed: %v", submitErr)
		if _, markErr := s.store.MarkBatchFailed(ctx, sessionID, submitErr.Error()); markErr != nil {
			logger.Error("mark batch failed", logging.Error(markErr))
		}
		if _, sendErr := s.registry.SendError(ctx, sessionID, progress.Event{
			TotalItems:  len(payloads),
			FailedItems: len(payloads),
			Message:     result.ErrorMessage,
		}); sendErr != nil {
			logger.Error("record session error", logging.Error(sendErr))
		}
	} else {
		logger.Info("batch submitted",
			logging.String(logging.FieldSessionID, sessionID),
			logging.Int("files", len(payloads)))
	}

	return result, s.finishPass(ctx, collection, snapshot, result, store.SyncCompleted)
}

func (s *Syncer) recordFile(ctx context.Context, collectionID int64, file webdav.RemoteFile, status store.FileStatus, sessionID, message string) error {
	return s.store.UpsertProcessedFile(ctx, &store.ProcessedFile{
		CollectionID:   collectionID,
		RelativePath:   file.RelativePath,
		FileETag:       file.ETag,
		FileSize:       file.Size,
		FileModifiedAt: file.ModifiedAt,
		Status:         status,
		SessionID:      sessionID,
		ErrorMessage:   message,
	})
}

// finishPass writes the terminal status for a pass that ran to the end. The
// processed count reflects the stored records so earlier passes stay counted.
func (s *Syncer) finishPass(ctx context.Context, collection *store.Collection, snapshot *webdav.FolderInfo, result *Result, state store.SyncState) error {
	processedCount := 0
	records, err := s.store.ListProcessedFiles(ctx, collection.ID)
	if err != nil {
		return err
	}
	for _, file := range snapshot.Files {
		if record, ok := records[file.RelativePath]; ok && record.Status == store.FileProcessed {
			processedCount++
		}
	}

	now := time.Now().UTC()
	status := &store.SyncStatus{
		CollectionID:       collection.ID,
		FolderPath:         collection.FolderPath,
		State:              state,
		LastFolderETag:     snapshot.ETag,
		TotalFileCount:     len(snapshot.Files),
		ProcessedFileCount: processedCount,
		LastSyncAt:         &now,
	}
	if err := s.store.UpsertSyncStatus(ctx, status); err != nil {
		return err
	}
	result.State = state
	return nil
}
