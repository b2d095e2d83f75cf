// Package logging assembles the structured slog loggers used across Longbox.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes attribute helpers so sync and session code tags log
// lines with collection and session identifiers consistently. A no-op logger
// is provided for tests and wiring code that cannot fail.
package logging
