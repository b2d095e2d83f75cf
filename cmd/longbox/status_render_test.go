package main

import (
	"strings"
	"testing"
)

func TestRenderStatusLine(t *testing.T) {
	line := renderStatusLine("Daemon", statusOK, "pid 42", false)
	if !strings.Contains(line, "Daemon:") || !strings.Contains(line, "[OK] pid 42") {
		t.Fatalf("unexpected line %q", line)
	}

	colored := renderStatusLine("Daemon", statusError, "", true)
	if !strings.HasPrefix(colored, ansiRed) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("expected colored line, got %q", colored)
	}
	if !strings.Contains(colored, "[ERROR]") {
		t.Fatalf("expected error label in %q", colored)
	}
}

func TestRenderSectionHeader(t *testing.T) {
	lines := renderSectionHeader("Longbox Daemon", false)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0] != "== Longbox Daemon ==" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if len(lines[1]) != len(lines[0]) {
		t.Fatalf("rule length %d does not match header length %d", len(lines[1]), len(lines[0]))
	}
}

func TestFormatStateLabel(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"in_progress", "In Progress"},
		{"completed", "Completed"},
		{"", ""},
		{"  error  ", "Error"},
	}
	for _, tc := range cases {
		if got := formatStateLabel(tc.input); got != tc.want {
			t.Fatalf("formatStateLabel(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 6); got != "abcdef" {
		t.Fatalf("truncate no-op = %q", got)
	}
	if got := truncate("abcdefgh", 6); got != "abc..." {
		t.Fatalf("truncate = %q", got)
	}
}
