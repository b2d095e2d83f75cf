package store_test

import (
	"context"
	"testing"
	"time"

	"longbox/internal/store"
	"longbox/internal/testsupport"
)

func TestProgressEntryRoundTripAndExpiry(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	now := time.Now().UTC()
	entry := &store.ProgressEntry{
		SessionID: "sess-1",
		Payload:   `{"stage":"recognizing","percent":40}`,
		History:   `[{"stage":"downloading","percent":10}]`,
		ExpiresAt: now.Add(15 * time.Minute),
	}
	if err := st.PutProgressEntry(ctx, entry); err != nil {
		t.Fatalf("PutProgressEntry: %v", err)
	}

	loaded, err := st.GetProgressEntry(ctx, "sess-1", now)
	if err != nil {
		t.Fatalf("GetProgressEntry: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected entry before expiry")
	}
	if loaded.Payload != entry.Payload || loaded.History != entry.History {
		t.Fatalf("round-trip mismatch: %+v", loaded)
	}

	expired, err := st.GetProgressEntry(ctx, "sess-1", now.Add(16*time.Minute))
	if err != nil {
		t.Fatalf("GetProgressEntry after expiry: %v", err)
	}
	if expired != nil {
		t.Fatalf("expected expired entry to read as absent, got %+v", expired)
	}

	missing, err := st.GetProgressEntry(ctx, "sess-unknown", now)
	if err != nil {
		t.Fatalf("GetProgressEntry unknown: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown session, got %+v", missing)
	}
}

func TestPruneExpiredProgress(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	now := time.Now().UTC()
	fresh := &store.ProgressEntry{SessionID: "fresh", Payload: "{}", ExpiresAt: now.Add(time.Hour)}
	stale := &store.ProgressEntry{SessionID: "stale", Payload: "{}", ExpiresAt: now.Add(-time.Minute)}
	for _, entry := range []*store.ProgressEntry{fresh, stale} {
		if err := st.PutProgressEntry(ctx, entry); err != nil {
			t.Fatalf("PutProgressEntry %s: %v", entry.SessionID, err)
		}
	}

	removed, err := st.PruneExpiredProgress(ctx, now)
	if err != nil {
		t.Fatalf("PruneExpiredProgress: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	remaining, err := st.GetProgressEntry(ctx, "fresh", now)
	if err != nil {
		t.Fatalf("GetProgressEntry: %v", err)
	}
	if remaining == nil {
		t.Fatal("expected fresh entry to survive pruning")
	}
}

func TestHealthCounts(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	collection := testsupport.NewCollection(t, st, "Weekly Pulls", "/Comics/Weekly")
	ctx := context.Background()

	if _, err := st.InsertSession(ctx, "sess-1", collection.ID, 1); err != nil {
		t.Fatalf("InsertSession: %v", err)
	}
	if _, err := st.InsertSession(ctx, "sess-2", collection.ID, 1); err != nil {
		t.Fatalf("InsertSession: %v", err)
	}
	if _, err := st.CompleteSession(ctx, "sess-2", store.SessionCounts{TotalItems: 1, ProcessedItems: 1, SuccessfulItems: 1}); err != nil {
		t.Fatalf("CompleteSession: %v", err)
	}

	summary, err := st.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if summary.Collections != 1 {
		t.Fatalf("collections = %d, want 1", summary.Collections)
	}
	if summary.Sessions != 2 || summary.ProcessingSessions != 1 || summary.CompletedSessions != 1 {
		t.Fatalf("session counts = %d/%d/%d", summary.Sessions, summary.ProcessingSessions, summary.CompletedSessions)
	}
}
