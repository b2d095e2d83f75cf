package main

import (
	"context"
	"testing"

	"longbox/internal/progress"
)

func TestSessionShowAndDismiss(t *testing.T) {
	env := setupCLITestEnv(t)
	sessionID := seedSyncedSession(t, env)

	out, _, err := runCLI(t, env, "session", sessionID)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	requireContains(t, out, "Session "+sessionID)
	requireContains(t, out, "Processing")

	if _, _, err := runCLI(t, env, "session", "dismiss", sessionID); err == nil {
		t.Fatal("expected dismiss of a processing session to fail")
	}

	applied, err := env.registry.SendComplete(context.Background(), sessionID, progress.Event{
		SessionID: sessionID,
		Percent:   100,
		Message:   "done",
	})
	if err != nil || !applied {
		t.Fatalf("SendComplete applied=%v err=%v", applied, err)
	}

	out, _, err = runCLI(t, env, "session", sessionID)
	if err != nil {
		t.Fatalf("session after complete: %v", err)
	}
	requireContains(t, out, "Completed")

	out, _, err = runCLI(t, env, "session", "dismiss", sessionID)
	if err != nil {
		t.Fatalf("session dismiss: %v", err)
	}
	requireContains(t, out, "dismissed")
}

func TestSessionsListHidesDismissedByDefault(t *testing.T) {
	env := setupCLITestEnv(t)
	sessionID := seedSyncedSession(t, env)

	if _, err := env.registry.SendComplete(context.Background(), sessionID, progress.Event{
		SessionID: sessionID,
		Percent:   100,
	}); err != nil {
		t.Fatalf("SendComplete: %v", err)
	}
	if _, _, err := runCLI(t, env, "session", "dismiss", sessionID); err != nil {
		t.Fatalf("session dismiss: %v", err)
	}

	out, _, err := runCLI(t, env, "sessions")
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	requireContains(t, out, "No sessions recorded")

	out, _, err = runCLI(t, env, "sessions", "--all")
	if err != nil {
		t.Fatalf("sessions --all: %v", err)
	}
	requireContains(t, out, sessionID[:9])
	requireContains(t, out, "(dismissed)")
}

func TestSessionShowUnknownFails(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, env, "session", "no-such-session"); err == nil {
		t.Fatal("expected unknown session lookup to fail")
	}
}
