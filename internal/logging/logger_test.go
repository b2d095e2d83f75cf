package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func newTestLogger(level string) (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	levelVar := new(slog.LevelVar)
	levelVar.Set(parseLevel(level))
	return slog.New(&consoleHandler{writer: buf, level: levelVar}), buf
}

func TestConsoleHandlerFormatsComponentPrefix(t *testing.T) {
	logger, buf := newTestLogger("info")
	child := WithComponent(logger, "syncer")

	child.Info("pass complete", Int("files", 3))

	line := buf.String()
	if !strings.Contains(line, "INFO syncer: pass complete") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "files=3") {
		t.Fatalf("expected files attr in line: %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	logger, buf := newTestLogger("info")

	logger.Warn("remote error", String("message", "listing timed out"))

	if !strings.Contains(buf.String(), `message="listing timed out"`) {
		t.Fatalf("expected quoted attr, got %q", buf.String())
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	logger, buf := newTestLogger("warn")

	logger.Info("suppressed")
	logger.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "suppressed") {
		t.Fatalf("info line should be suppressed: %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Fatalf("warn line missing: %q", out)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("nop logger should report disabled")
	}
}
