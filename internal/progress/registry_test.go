package progress_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"longbox/internal/config"
	"longbox/internal/progress"
	"longbox/internal/store"
	"longbox/internal/testsupport"
)

func newRegistry(t *testing.T, opts ...testsupport.ConfigOption) (*progress.Registry, *store.Store, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	st := testsupport.MustOpenStore(t, cfg)
	registry := progress.NewRegistry(cfg, st, nil)
	t.Cleanup(registry.Close)
	return registry, st, cfg
}

func startSession(t *testing.T, registry *progress.Registry, st *store.Store, sessionID string, totalItems int) {
	t.Helper()
	collection := testsupport.NewCollection(t, st, "Weekly Pulls", "/Comics/Weekly")
	if err := registry.InitializeSession(context.Background(), sessionID, collection.ID, totalItems); err != nil {
		t.Fatalf("InitializeSession: %v", err)
	}
}

func TestGetSessionStatusPrefersFreshCache(t *testing.T) {
	registry, st, _ := newRegistry(t)
	startSession(t, registry, st, "sess-1", 4)

	status, err := registry.GetSessionStatus(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("GetSessionStatus: %v", err)
	}
	if status == nil {
		t.Fatal("expected status for known session")
	}
	if status.Source != progress.SourceCache {
		t.Fatalf("source = %q, want %q", status.Source, progress.SourceCache)
	}
	if status.State != store.SessionProcessing {
		t.Fatalf("state = %q", status.State)
	}
	if status.Latest == nil || status.Latest.Stage != "submitted" {
		t.Fatalf("latest = %+v", status.Latest)
	}
}

func TestGetSessionStatusFallsBackToMemory(t *testing.T) {
	registry, st, cfg := newRegistry(t)
	cfg.Sessions.CacheFreshness = 0
	startSession(t, registry, st, "sess-1", 4)

	status, err := registry.GetSessionStatus(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("GetSessionStatus: %v", err)
	}
	if status.Source != progress.SourceMemory {
		t.Fatalf("source = %q, want %q", status.Source, progress.SourceMemory)
	}
}

func TestGetSessionStatusFallsBackToDatabaseAfterRestart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Sessions.CacheFreshness = 0
	st := testsupport.MustOpenStore(t, cfg)

	first := progress.NewRegistry(cfg, st, nil)
	collection := testsupport.NewCollection(t, st, "Weekly Pulls", "/Comics/Weekly")
	ctx := context.Background()
	if err := first.InitializeSession(ctx, "sess-1", collection.ID, 4); err != nil {
		t.Fatalf("InitializeSession: %v", err)
	}
	if _, err := first.SendComplete(ctx, "sess-1", progress.Event{
		TotalItems:      4,
		ProcessedItems:  4,
		SuccessfulItems: 3,
		FailedItems:     1,
		Stage:           "finished",
	}); err != nil {
		t.Fatalf("SendComplete: %v", err)
	}
	first.Close()

	second := progress.NewRegistry(cfg, st, nil)
	t.Cleanup(second.Close)

	status, err := second.GetSessionStatus(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetSessionStatus: %v", err)
	}
	if status.Source != progress.SourceDatabase {
		t.Fatalf("source = %q, want %q", status.Source, progress.SourceDatabase)
	}
	if status.Latest == nil || status.Latest.Type != progress.EventComplete {
		t.Fatalf("latest rebuilt from row = %+v", status.Latest)
	}
	if status.Latest.ProcessedItems != 4 || status.Latest.Stage != "finished" {
		t.Fatalf("terminal counts missing from rebuilt payload: %+v", status.Latest)
	}
	if status.HasActiveChannel {
		t.Fatal("expected no active channel after restart")
	}
}

func TestGetSessionStatusUnknownSession(t *testing.T) {
	registry, _, _ := newRegistry(t)

	status, err := registry.GetSessionStatus(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetSessionStatus: %v", err)
	}
	if status != nil {
		t.Fatalf("expected nil for unknown session, got %+v", status)
	}
}

func TestUpdateProgressForUnknownSessionIsNoOp(t *testing.T) {
	registry, _, _ := newRegistry(t)

	err := registry.UpdateProgress(context.Background(), progress.Event{SessionID: "nope", Stage: "recognizing"})
	if err != nil {
		t.Fatalf("expected stray update to be dropped, got %v", err)
	}
}

func TestUpdateProgressLeavesSessionRowAlone(t *testing.T) {
	registry, st, _ := newRegistry(t)
	startSession(t, registry, st, "sess-1", 4)
	ctx := context.Background()

	if err := registry.UpdateProgress(ctx, progress.Event{
		SessionID:      "sess-1",
		Stage:          "recognizing",
		Percent:        50,
		ProcessedItems: 2,
	}); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}

	session, err := st.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if session.ProcessedItems != 0 || session.CurrentStage != "" {
		t.Fatalf("intermediate update touched the row: %+v", session)
	}

	if _, err := registry.SendComplete(ctx, "sess-1", progress.Event{
		TotalItems:      4,
		ProcessedItems:  4,
		SuccessfulItems: 4,
	}); err != nil {
		t.Fatalf("SendComplete: %v", err)
	}
	session, err = st.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetSession after completion: %v", err)
	}
	if session.ProcessedItems != 4 || session.SuccessfulItems != 4 {
		t.Fatalf("terminal counts missing from row: %+v", session)
	}
}

func TestLateProgressCannotOverwriteTerminalState(t *testing.T) {
	registry, st, _ := newRegistry(t)
	startSession(t, registry, st, "sess-1", 2)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = registry.UpdateProgress(ctx, progress.Event{
				SessionID:      "sess-1",
				Stage:          "recognizing",
				ProcessedItems: 1,
			})
		}()
	}
	if _, err := registry.SendComplete(ctx, "sess-1", progress.Event{
		TotalItems:      2,
		ProcessedItems:  2,
		SuccessfulItems: 2,
		Percent:         100,
	}); err != nil {
		t.Fatalf("SendComplete: %v", err)
	}
	wg.Wait()

	status, err := registry.GetSessionStatus(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetSessionStatus: %v", err)
	}
	if status.State != store.SessionCompleted {
		t.Fatalf("state = %q, want %q", status.State, store.SessionCompleted)
	}
	if status.Latest == nil || status.Latest.Type != progress.EventComplete {
		t.Fatalf("latest payload = %+v, want the terminal event", status.Latest)
	}

	entry, err := st.GetProgressEntry(ctx, "sess-1", time.Now().UTC())
	if err != nil {
		t.Fatalf("GetProgressEntry: %v", err)
	}
	if entry == nil {
		t.Fatal("expected a cached snapshot")
	}
	var cached progress.Event
	if err := json.Unmarshal([]byte(entry.Payload), &cached); err != nil {
		t.Fatalf("decode cached payload: %v", err)
	}
	if cached.Type != progress.EventComplete {
		t.Fatalf("cached payload = %+v, want the terminal event", cached)
	}
}

func TestSendCompleteIsExactlyOnce(t *testing.T) {
	registry, st, _ := newRegistry(t)
	startSession(t, registry, st, "sess-1", 2)
	ctx := context.Background()

	event := progress.Event{TotalItems: 2, ProcessedItems: 2, SuccessfulItems: 2, Percent: 100}
	applied, err := registry.SendComplete(ctx, "sess-1", event)
	if err != nil {
		t.Fatalf("SendComplete: %v", err)
	}
	if !applied {
		t.Fatal("expected first completion to apply")
	}

	applied, err = registry.SendComplete(ctx, "sess-1", event)
	if err != nil {
		t.Fatalf("second SendComplete: %v", err)
	}
	if applied {
		t.Fatal("expected duplicate completion to be ignored")
	}

	applied, err = registry.SendError(ctx, "sess-1", progress.Event{Message: "late error"})
	if err != nil {
		t.Fatalf("SendError: %v", err)
	}
	if applied {
		t.Fatal("expected error after completion to be ignored")
	}

	status, err := registry.GetSessionStatus(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetSessionStatus: %v", err)
	}
	if status.State != store.SessionCompleted {
		t.Fatalf("state = %q, want %q", status.State, store.SessionCompleted)
	}
}

func TestSubscribeStreamsEventsAndClosesAfterTerminal(t *testing.T) {
	registry, st, cfg := newRegistry(t)
	cfg.Sessions.CloseGrace = 0
	startSession(t, registry, st, "sess-1", 1)
	ctx := context.Background()

	events, cancel, err := registry.Subscribe("sess-1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer cancel()

	first := waitForEvent(t, events)
	if first.Type != progress.EventConnected {
		t.Fatalf("first event = %q, want %q", first.Type, progress.EventConnected)
	}

	if err := registry.UpdateProgress(ctx, progress.Event{SessionID: "sess-1", Stage: "recognizing", Percent: 50}); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	update := waitForEvent(t, events)
	if update.Type != progress.EventProgress || update.Stage != "recognizing" {
		t.Fatalf("update = %+v", update)
	}

	if _, err := registry.SendComplete(ctx, "sess-1", progress.Event{TotalItems: 1, ProcessedItems: 1, SuccessfulItems: 1}); err != nil {
		t.Fatalf("SendComplete: %v", err)
	}
	terminal := waitForEvent(t, events)
	if terminal.Type != progress.EventComplete {
		t.Fatalf("terminal = %+v", terminal)
	}

	select {
	case _, open := <-events:
		if open {
			t.Fatal("expected channel closed after terminal event")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestSubscribeReplacesPreviousChannel(t *testing.T) {
	registry, st, _ := newRegistry(t)
	startSession(t, registry, st, "sess-1", 1)

	firstEvents, firstCancel, err := registry.Subscribe("sess-1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer firstCancel()

	secondEvents, secondCancel, err := registry.Subscribe("sess-1")
	if err != nil {
		t.Fatalf("second Subscribe: %v", err)
	}
	defer secondCancel()

	waitForEvent(t, firstEvents)
	select {
	case _, open := <-firstEvents:
		if open {
			t.Fatal("expected first channel closed on replacement")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for replacement close")
	}

	if connected := waitForEvent(t, secondEvents); connected.Type != progress.EventConnected {
		t.Fatalf("second channel first event = %q", connected.Type)
	}
}

func TestDismissHidesSessionWithoutDroppingHistory(t *testing.T) {
	registry, st, _ := newRegistry(t)
	startSession(t, registry, st, "sess-1", 1)
	ctx := context.Background()

	dismissed, err := registry.Dismiss(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Dismiss: %v", err)
	}
	if dismissed {
		t.Fatal("expected dismissal of processing session to be rejected")
	}

	if _, err := registry.SendError(ctx, "sess-1", progress.Event{Message: "boom"}); err != nil {
		t.Fatalf("SendError: %v", err)
	}
	dismissed, err = registry.Dismiss(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Dismiss after terminal: %v", err)
	}
	if !dismissed {
		t.Fatal("expected dismissal to apply")
	}

	session, err := st.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if !session.Dismissed || session.State != store.SessionError {
		t.Fatalf("session after dismissal = %+v", session)
	}

	entry, err := st.GetProgressEntry(ctx, "sess-1", time.Now().UTC())
	if err != nil {
		t.Fatalf("GetProgressEntry: %v", err)
	}
	if entry == nil {
		t.Fatal("expected cached progress to survive dismissal")
	}
	if history := registry.History("sess-1"); len(history) == 0 {
		t.Fatal("expected event history to survive dismissal")
	}

	status, err := registry.GetSessionStatus(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetSessionStatus: %v", err)
	}
	if status == nil || status.Latest == nil {
		t.Fatal("expected dismissed session to stay queryable by id")
	}
}

func waitForEvent(t *testing.T, events <-chan progress.Event) progress.Event {
	t.Helper()
	select {
	case event, open := <-events:
		if !open {
			t.Fatal("channel closed while waiting for event")
		}
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return progress.Event{}
	}
}
