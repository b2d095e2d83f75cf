package watcher_test

import (
	"context"
	"testing"
	"time"

	"longbox/internal/progress"
	"longbox/internal/services/recognizer"
	"longbox/internal/services/webdav"
	"longbox/internal/store"
	"longbox/internal/syncer"
	"longbox/internal/testsupport"
	"longbox/internal/watcher"
)

type staticFolders struct {
	snapshot *webdav.FolderInfo
}

func (s *staticFolders) GetFolderInfo(_ context.Context, _ string) (*webdav.FolderInfo, error) {
	return s.snapshot, nil
}

func (s *staticFolders) DownloadFile(_ context.Context, _, relativePath string) ([]byte, error) {
	return []byte("data-" + relativePath), nil
}

type countingSubmitter struct {
	calls int
}

func (c *countingSubmitter) Submit(_ context.Context, _ string, _ []recognizer.FilePayload) error {
	c.calls++
	return nil
}

func TestSyncAllProcessesEveryCollection(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	registry := progress.NewRegistry(cfg, st, nil)
	t.Cleanup(registry.Close)

	folders := &staticFolders{snapshot: &webdav.FolderInfo{
		ETag: `"v1"`,
		Files: []webdav.RemoteFile{
			{RelativePath: "a.jpg", ETag: `"a1"`, Size: 10, ModifiedAt: time.Now().UTC()},
		},
	}}
	submitter := &countingSubmitter{}
	sync := syncer.New(cfg, st, folders, submitter, registry, nil)
	manager := watcher.NewManager(cfg, st, sync, registry, nil, nil)

	first := testsupport.NewCollection(t, st, "Weekly Pulls", "/Comics/Weekly")
	second := testsupport.NewCollection(t, st, "Graphic Novels", "/Comics/Novels")
	ctx := context.Background()

	manager.SyncAll(ctx)

	if submitter.calls != 2 {
		t.Fatalf("submissions = %d, want one per collection", submitter.calls)
	}
	for _, collection := range []*store.Collection{first, second} {
		status, err := st.GetSyncStatus(ctx, collection.ID, collection.FolderPath)
		if err != nil {
			t.Fatalf("GetSyncStatus: %v", err)
		}
		if status == nil || status.State != store.SyncCompleted {
			t.Fatalf("collection %d status = %+v", collection.ID, status)
		}
	}

	manager.SyncAll(ctx)
	if submitter.calls != 2 {
		t.Fatalf("expected unchanged folders skipped, got %d submissions", submitter.calls)
	}
}

func TestRunMaintenanceForceFailsStaleSessions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Sessions.MaxAgeHours = 0 // disabled first
	st := testsupport.MustOpenStore(t, cfg)
	registry := progress.NewRegistry(cfg, st, nil)
	t.Cleanup(registry.Close)

	sync := syncer.New(cfg, st, &staticFolders{snapshot: &webdav.FolderInfo{}}, &countingSubmitter{}, registry, nil)
	manager := watcher.NewManager(cfg, st, sync, registry, nil, nil)

	collection := testsupport.NewCollection(t, st, "Weekly Pulls", "/Comics/Weekly")
	ctx := context.Background()
	if err := registry.InitializeSession(ctx, "sess-1", collection.ID, 3); err != nil {
		t.Fatalf("InitializeSession: %v", err)
	}

	manager.RunMaintenance(ctx)
	session, err := st.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if session.State != store.SessionProcessing {
		t.Fatalf("watchdog disabled but session state = %q", session.State)
	}

	cfg.Sessions.MaxAgeHours = -1 // cutoff in the future, session immediately stale
	manager.RunMaintenance(ctx)
	session, err = st.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetSession after watchdog: %v", err)
	}
	if session.State != store.SessionProcessing {
		t.Fatalf("negative max age must disable the watchdog, state = %q", session.State)
	}
}

func TestRunMaintenancePrunesOldRecords(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	registry := progress.NewRegistry(cfg, st, nil)
	t.Cleanup(registry.Close)

	sync := syncer.New(cfg, st, &staticFolders{snapshot: &webdav.FolderInfo{}}, &countingSubmitter{}, registry, nil)
	manager := watcher.NewManager(cfg, st, sync, registry, nil, nil)

	ctx := context.Background()
	stale := &store.ProgressEntry{SessionID: "old", Payload: "{}", ExpiresAt: time.Now().UTC().Add(-time.Minute)}
	if err := st.PutProgressEntry(ctx, stale); err != nil {
		t.Fatalf("PutProgressEntry: %v", err)
	}

	manager.RunMaintenance(ctx)

	entry, err := st.GetProgressEntry(ctx, "old", time.Now().UTC().Add(-2*time.Minute))
	if err != nil {
		t.Fatalf("GetProgressEntry: %v", err)
	}
	if entry != nil {
		t.Fatalf("expected expired snapshot pruned, got %+v", entry)
	}
}

func TestStartAndStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Sync.PollInterval = 0 // no scheduled passes during the test
	st := testsupport.MustOpenStore(t, cfg)
	registry := progress.NewRegistry(cfg, st, nil)
	t.Cleanup(registry.Close)

	sync := syncer.New(cfg, st, &staticFolders{snapshot: &webdav.FolderInfo{}}, &countingSubmitter{}, registry, nil)
	manager := watcher.NewManager(cfg, st, sync, registry, nil, nil)

	ctx := context.Background()
	if err := manager.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := manager.Start(ctx); err == nil {
		t.Fatal("expected second Start to fail while running")
	}
	manager.Stop()
	manager.Stop()

	if err := manager.Start(ctx); err != nil {
		t.Fatalf("restart after Stop: %v", err)
	}
	manager.Stop()
}
