package main

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"longbox/internal/api"
	"longbox/internal/store"
)

// formatStateLabel turns snake_case state names into display labels.
func formatStateLabel(state string) string {
	state = strings.TrimSpace(state)
	if state == "" {
		return ""
	}
	return cases.Title(language.Und).String(strings.ReplaceAll(state, "_", " "))
}

func formatTimestamp(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return value
	}
	return parsed.Local().Format("2006-01-02 15:04")
}

func formatPercent(percent float64) string {
	return fmt.Sprintf("%.0f%%", percent)
}

func formatSessionProgress(session api.Session) string {
	if session.TotalItems == 0 {
		return formatPercent(session.Percent)
	}
	return fmt.Sprintf("%d/%d (%s)", session.ProcessedItems, session.TotalItems, formatPercent(session.Percent))
}

func sessionStateKind(state string) statusKind {
	switch store.SessionState(state) {
	case store.SessionCompleted:
		return statusOK
	case store.SessionProcessing:
		return statusInfo
	case store.SessionError:
		return statusError
	default:
		return statusInfo
	}
}

func truncate(value string, max int) string {
	if max <= 0 || len(value) <= max {
		return value
	}
	if max <= 3 {
		return value[:max]
	}
	return value[:max-3] + "..."
}
