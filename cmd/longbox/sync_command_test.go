package main

import (
	"testing"

	"longbox/internal/services/webdav"
)

func TestSyncCommandSubmitsBatch(t *testing.T) {
	env := setupCLITestEnv(t)
	sessionID := seedSyncedSession(t, env)

	out, _, err := runCLI(t, env, "collections")
	if err != nil {
		t.Fatalf("collections: %v", err)
	}
	requireContains(t, out, "Completed")

	out, _, err = runCLI(t, env, "sessions")
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	requireContains(t, out, sessionID[:9])
}

func TestSyncCommandSkipsUnchangedFolder(t *testing.T) {
	env := setupCLITestEnv(t)
	seedSyncedSession(t, env)

	out, _, err := runCLI(t, env, "sync", "1")
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	requireContains(t, out, "skipped")
	if len(env.submitter.sessions) != 1 {
		t.Fatalf("expected one submitted session, got %d", len(env.submitter.sessions))
	}
}

func TestSyncCommandReportsEmptyFolder(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, env, "collections", "add", "empty"); err != nil {
		t.Fatalf("collections add: %v", err)
	}
	env.folders.snapshots["/empty"] = &webdav.FolderInfo{Path: "/empty", ETag: "v1"}

	out, _, err := runCLI(t, env, "sync", "1")
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	requireContains(t, out, "folder is empty")
}

func TestSyncCommandRejectsInvalidID(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, env, "sync", "abc"); err == nil {
		t.Fatal("expected invalid collection id to be rejected")
	}
}
