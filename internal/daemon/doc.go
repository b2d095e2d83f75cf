// Package daemon coordinates the long-running Longbox process.
//
// It wires configuration, storage, the sync watcher, and the session registry
// into a single lifecycle with flock-based locking to prevent multiple
// instances, and exposes the HTTP API: daemon status, collection management,
// manual sync triggers, session queries, the live event stream, and the
// callback endpoints the recognition service reports into.
//
// Keep orchestration logic here: sync and session mechanics live in their own
// packages while the daemon focuses on startup, shutdown, and routing.
package daemon
