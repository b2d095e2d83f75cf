package watcher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"longbox/internal/config"
	"longbox/internal/logging"
	"longbox/internal/notifications"
	"longbox/internal/progress"
	"longbox/internal/store"
	"longbox/internal/syncer"
)

// maintenanceInterval is how often the retention sweep and session watchdog run.
const maintenanceInterval = time.Hour

// Manager drives the background loops of the daemon: the scheduled sync pass
// over every collection, the retention sweep, and the stale session watchdog.
type Manager struct {
	cfg      *config.Config
	store    *store.Store
	syncer   *syncer.Syncer
	registry *progress.Registry
	notifier notifications.Service
	logger   *slog.Logger

	pollInterval time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager constructs a watcher manager.
func NewManager(
	cfg *config.Config,
	st *store.Store,
	sync *syncer.Syncer,
	registry *progress.Registry,
	notifier notifications.Service,
	logger *slog.Logger,
) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewNoop()
	}
	return &Manager{
		cfg:          cfg,
		store:        st,
		syncer:       sync,
		registry:     registry,
		notifier:     notifier,
		logger:       logging.WithComponent(logger, "watcher"),
		pollInterval: time.Duration(cfg.Sync.PollInterval) * time.Second,
	}
}

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("watcher already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(2)
	m.mu.Unlock()

	go m.runSyncLoop(runCtx)
	go m.runMaintenanceLoop(runCtx)
	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runSyncLoop(ctx context.Context) {
	defer m.wg.Done()

	if m.pollInterval <= 0 {
		m.logger.Info("scheduled sync disabled")
		return
	}

	m.SyncAll(ctx)
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SyncAll(ctx)
		}
	}
}

// SyncAll runs one pass over every collection. Per-collection failures are
// recorded and notified but never stop the loop.
func (m *Manager) SyncAll(ctx context.Context) {
	collections, err := m.store.ListCollections(ctx)
	if err != nil {
		m.logger.Error("list collections", logging.Error(err))
		return
	}

	for _, collection := range collections {
		if ctx.Err() != nil {
			return
		}
		result, err := m.syncer.ProcessCollection(ctx, collection)
		if err != nil {
			m.logger.Error("sync pass error",
				logging.Int64(logging.FieldCollectionID, collection.ID),
				logging.Error(err))
			continue
		}
		if result.State == store.SyncFailed {
			if notifyErr := m.notifier.NotifySyncFailed(ctx, collection.Name, result.ErrorMessage); notifyErr != nil {
				m.logger.Warn("sync failure notification", logging.Error(notifyErr))
			}
		}
	}
}

func (m *Manager) runMaintenanceLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(maintenanceInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.RunMaintenance(ctx)
		}
	}
}

// RunMaintenance performs one sweep: prune old per-file records, drop expired
// progress snapshots, and force-fail sessions stuck in processing past the
// configured age.
func (m *Manager) RunMaintenance(ctx context.Context) {
	now := time.Now().UTC()

	if horizon := m.cfg.RetentionHorizon(); horizon > 0 {
		removed, err := m.store.PruneProcessedFiles(ctx, now.Add(-horizon))
		if err != nil {
			m.logger.Error("prune processed files", logging.Error(err))
		} else if removed > 0 {
			m.logger.Info("pruned processed file records", logging.Int64("removed", removed))
		}
	}

	if removed, err := m.store.PruneExpiredProgress(ctx, now); err != nil {
		m.logger.Error("prune progress cache", logging.Error(err))
	} else if removed > 0 {
		m.logger.Debug("pruned progress snapshots", logging.Int64("removed", removed))
	}

	m.failStaleSessions(ctx, now)
}

// failStaleSessions force-fails processing sessions older than the configured
// limit. The recognition service never reports on these again; without the
// watchdog they would sit in processing forever.
func (m *Manager) failStaleSessions(ctx context.Context, now time.Time) {
	maxAge := m.cfg.MaxSessionAge()
	if maxAge <= 0 {
		return
	}

	stale, err := m.store.StaleProcessingSessions(ctx, now.Add(-maxAge))
	if err != nil {
		m.logger.Error("list stale sessions", logging.Error(err))
		return
	}

	for _, session := range stale {
		applied, err := m.registry.SendError(ctx, session.SessionID, progress.Event{
			TotalItems:     session.TotalItems,
			ProcessedItems: session.ProcessedItems,
			FailedItems:    session.TotalItems - session.SuccessfulItems,
			Message:        "session timed out waiting for recognition callbacks",
		})
		if err != nil {
			m.logger.Error("force-fail stale session",
				logging.String(logging.FieldSessionID, session.SessionID),
				logging.Error(err))
			continue
		}
		if applied {
			m.logger.Warn("stale session force-failed",
				logging.String(logging.FieldSessionID, session.SessionID),
				logging.Duration("age", now.Sub(session.StartedAt)))
		}
	}
}
