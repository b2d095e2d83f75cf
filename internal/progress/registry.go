package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"longbox/internal/config"
	"longbox/internal/logging"
	"longbox/internal/store"
)

// Registry tracks recognition sessions from submission to completion. It
// fans live updates out to at most one subscriber per session, keeps the
// latest event in memory, and mirrors it into the durable progress cache so
// status survives a daemon restart.
type Registry struct {
	cfg    *config.Config
	store  *store.Store
	logger *slog.Logger

	mu        sync.Mutex
	latest    map[string]Event
	histories map[string][]Event
	channels  map[string]*sessionChannel
	locks     map[string]*sync.Mutex
	closed    bool
}

// NewRegistry builds a registry backed by the given store.
func NewRegistry(cfg *config.Config, st *store.Store, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Registry{
		cfg:       cfg,
		store:     st,
		logger:    logging.WithComponent(logger, "progress"),
		latest:    make(map[string]Event),
		histories: make(map[string][]Event),
		channels:  make(map[string]*sessionChannel),
		locks:     make(map[string]*sync.Mutex),
	}
}

// sessionLock returns the lock serializing state changes for one session.
// Striping per session keeps unrelated sessions from contending while a
// terminal transition and a late progress callback for the same session
// cannot interleave their memory and cache writes.
func (r *Registry) sessionLock(sessionID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[sessionID] = lock
	}
	return lock
}

// InitializeSession records a newly submitted session and seeds its first
// progress event.
func (r *Registry) InitializeSession(ctx context.Context, sessionID string, collectionID int64, totalItems int) error {
	lock := r.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := r.store.InsertSession(ctx, sessionID, collectionID, totalItems); err != nil {
		return err
	}

	event := Event{
		Type:       EventProgress,
		SessionID:  sessionID,
		Timestamp:  time.Now().UTC(),
		Stage:      "submitted",
		TotalItems: totalItems,
	}
	r.remember(event)
	r.persistSnapshot(ctx, event)
	return nil
}

// UpdateProgress applies an intermediate callback update to the in-memory
// state and the durable cache. The persisted session row is left alone;
// intermediate progress is lossy and only terminal transitions are durable.
// Updates for unknown sessions are dropped with a log line so a stray late
// callback cannot fail the endpoint.
func (r *Registry) UpdateProgress(ctx context.Context, event Event) error {
	lock := r.sessionLock(event.SessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := r.store.GetSession(ctx, event.SessionID)
	if err != nil {
		return err
	}
	if session == nil {
		r.logger.Warn("progress update for unknown session",
			logging.String(logging.FieldSessionID, event.SessionID))
		return nil
	}
	if session.State.IsTerminal() {
		r.logger.Debug("progress update after terminal state ignored",
			logging.String(logging.FieldSessionID, event.SessionID))
		return nil
	}

	event.Type = EventProgress
	event.Timestamp = time.Now().UTC()
	if event.TotalItems == 0 {
		event.TotalItems = session.TotalItems
	}

	r.remember(event)
	r.deliver(event)
	r.persistSnapshot(ctx, event)
	return nil
}

// SendComplete moves a session to completed and emits the terminal event.
// Returns false when the session was unknown or already finished.
func (r *Registry) SendComplete(ctx context.Context, sessionID string, event Event) (bool, error) {
	event.Type = EventComplete
	return r.finish(ctx, sessionID, event, r.store.CompleteSession)
}

// SendError moves a session to error and emits the terminal event. Returns
// false when the session was unknown or already finished.
func (r *Registry) SendError(ctx context.Context, sessionID string, event Event) (bool, error) {
	event.Type = EventError
	return r.finish(ctx, sessionID, event, r.store.FailSession)
}

func (r *Registry) finish(
	ctx context.Context,
	sessionID string,
	event Event,
	transition func(context.Context, string, store.SessionCounts) (bool, error),
) (bool, error) {
	lock := r.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	event.SessionID = sessionID
	event.Timestamp = time.Now().UTC()

	applied, err := transition(ctx, sessionID, countsFromEvent(event))
	if err != nil {
		return false, err
	}
	if !applied {
		r.logger.Warn("terminal callback ignored",
			logging.String(logging.FieldSessionID, sessionID),
			logging.String("event", string(event.Type)))
		return false, nil
	}

	r.remember(event)
	r.deliver(event)
	r.persistSnapshot(ctx, event)
	r.scheduleClose(sessionID)
	return true, nil
}

// Dismiss hides a finished session from default listings. The flag flip is
// the whole operation: progress history and the cached snapshot stay intact
// and the cache row ages out on its own expiry. Returns false when the
// session is unknown or still processing.
func (r *Registry) Dismiss(ctx context.Context, sessionID string) (bool, error) {
	lock := r.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	return r.store.DismissSession(ctx, sessionID)
}

// Subscribe opens the live stream for a session, replacing any previous
// subscriber. The first event on the returned channel is always a synthetic
// connected event; the channel closes after a terminal event, on expiry, or
// when the returned cancel function runs.
func (r *Registry) Subscribe(sessionID string) (<-chan Event, func(), error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, nil, fmt.Errorf("registry closed")
	}

	if previous, ok := r.channels[sessionID]; ok {
		delete(r.channels, sessionID)
		previous.close()
	}

	channel := newSessionChannel(sessionID, time.Now().UTC())
	r.channels[sessionID] = channel
	if timeout := r.cfg.ChannelTimeout(); timeout > 0 {
		channel.expiry = time.AfterFunc(timeout, func() {
			r.drop(sessionID, channel)
		})
	}
	r.mu.Unlock()

	channel.send(Event{
		Type:      EventConnected,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
	})

	cancel := func() { r.drop(sessionID, channel) }
	return channel.events, cancel, nil
}

// History returns the recent events kept for a session, oldest first.
func (r *Registry) History(sessionID string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	history := r.histories[sessionID]
	out := make([]Event, len(history))
	copy(out, history)
	return out
}

// Close shuts every live channel down. Status queries keep working against
// the store afterwards.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	channels := make([]*sessionChannel, 0, len(r.channels))
	for _, channel := range r.channels {
		channels = append(channels, channel)
	}
	r.channels = make(map[string]*sessionChannel)
	r.mu.Unlock()

	for _, channel := range channels {
		channel.close()
	}
}

func (r *Registry) remember(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latest[event.SessionID] = event

	limit := r.cfg.Sessions.HistoryLimit
	if limit <= 0 {
		return
	}
	history := append(r.histories[event.SessionID], event)
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	r.histories[event.SessionID] = history
}

func (r *Registry) deliver(event Event) {
	r.mu.Lock()
	channel, ok := r.channels[event.SessionID]
	r.mu.Unlock()
	if !ok {
		return
	}
	if !channel.send(event) {
		r.logger.Debug("subscriber lagging, event dropped",
			logging.String(logging.FieldSessionID, event.SessionID),
			logging.String("event", string(event.Type)))
	}
}

// scheduleClose closes the live channel a beat after the terminal event so
// the subscriber can read it before the stream ends.
func (r *Registry) scheduleClose(sessionID string) {
	r.mu.Lock()
	channel, ok := r.channels[sessionID]
	r.mu.Unlock()
	if !ok {
		return
	}

	grace := r.cfg.CloseGrace()
	if grace <= 0 {
		r.drop(sessionID, channel)
		return
	}
	time.AfterFunc(grace, func() {
		r.drop(sessionID, channel)
	})
}

// drop removes a channel from the registry and closes it. Safe to race with
// expiry, grace close, replacement, and explicit cancel; the map guard keeps
// a replacement channel alive and closeOnce keeps the close single.
func (r *Registry) drop(sessionID string, channel *sessionChannel) {
	r.mu.Lock()
	if current, ok := r.channels[sessionID]; ok && current == channel {
		delete(r.channels, sessionID)
	}
	r.mu.Unlock()
	channel.close()
}

func (r *Registry) persistSnapshot(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		r.logger.Warn("encode progress snapshot",
			logging.String(logging.FieldSessionID, event.SessionID),
			logging.Error(err))
		return
	}

	entry := &store.ProgressEntry{
		SessionID: event.SessionID,
		Payload:   string(payload),
		ExpiresAt: time.Now().UTC().Add(r.cfg.CacheTTL()),
	}
	if history := r.History(event.SessionID); len(history) > 0 {
		if encoded, err := json.Marshal(history); err == nil {
			entry.History = string(encoded)
		}
	}
	if err := r.store.PutProgressEntry(ctx, entry); err != nil {
		r.logger.Warn("persist progress snapshot",
			logging.String(logging.FieldSessionID, event.SessionID),
			logging.Error(err))
	}
}

func countsFromEvent(event Event) store.SessionCounts {
	return store.SessionCounts{
		TotalItems:      event.TotalItems,
		ProcessedItems:  event.ProcessedItems,
		SuccessfulItems: event.SuccessfulItems,
		FailedItems:     event.FailedItems,
		CurrentStage:    event.Stage,
		StatusMessage:   event.Message,
	}
}
