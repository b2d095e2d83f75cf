package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"longbox/internal/api"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	var includeDismissed bool
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recognition sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiClient) error {
				sessions, err := client.ListSessions(cmd.Context(), includeDismissed, limit)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, api.SessionListResponse{Sessions: sessions})
				}
				printSessionTable(cmd, sessions)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&includeDismissed, "all", "a", false, "Include dismissed sessions")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum sessions to list")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON output")
	return cmd
}

func newSessionCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	sessionCmd := &cobra.Command{
		Use:   "session <session-id>",
		Short: "Inspect a recognition session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID := strings.TrimSpace(args[0])
			if sessionID == "" {
				return fmt.Errorf("session id is required")
			}
			return ctx.withClient(func(client *apiClient) error {
				status, err := client.GetSessionStatus(cmd.Context(), sessionID)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, status)
				}
				printSessionStatus(cmd, status)
				return nil
			})
		},
	}

	sessionCmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON output")
	sessionCmd.AddCommand(newSessionDismissCommand(ctx))
	return sessionCmd
}

func newSessionDismissCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "dismiss <session-id>",
		Short: "Dismiss a finished session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID := strings.TrimSpace(args[0])
			if sessionID == "" {
				return fmt.Errorf("session id is required")
			}
			return ctx.withClient(func(client *apiClient) error {
				if err := client.DismissSession(cmd.Context(), sessionID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Session %s dismissed\n", sessionID)
				return nil
			})
		},
	}
}

func printSessionTable(cmd *cobra.Command, sessions []api.Session) {
	out := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No sessions recorded")
		return
	}

	headers := []string{"Session", "Collection", "State", "Progress", "Stage", "Started"}
	aligns := []columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignLeft, alignLeft}
	rows := make([][]string, 0, len(sessions))
	for _, session := range sessions {
		state := formatStateLabel(session.State)
		if session.Dismissed {
			state += " (dismissed)"
		}
		rows = append(rows, []string{
			truncate(session.SessionID, 12),
			fmt.Sprintf("%d", session.CollectionID),
			state,
			formatSessionProgress(session),
			formatStateLabel(session.CurrentStage),
			formatTimestamp(session.StartedAt),
		})
	}
	fmt.Fprintln(out, renderTable(headers, rows, aligns))
}

func printSessionStatus(cmd *cobra.Command, status *api.SessionStatus) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	session := status.Session

	for _, line := range renderSectionHeader("Session "+session.SessionID, colorize) {
		fmt.Fprintln(out, line)
	}

	fmt.Fprintln(out, renderStatusLine("State", sessionStateKind(session.State), formatStateLabel(session.State), colorize))
	fmt.Fprintln(out, renderStatusLine("Collection", statusInfo, fmt.Sprintf("%d", session.CollectionID), colorize))
	fmt.Fprintln(out, renderStatusLine("Progress", statusInfo, formatSessionProgress(session), colorize))
	if session.CurrentStage != "" {
		fmt.Fprintln(out, renderStatusLine("Stage", statusInfo, formatStateLabel(session.CurrentStage), colorize))
	}
	if session.StatusMessage != "" {
		fmt.Fprintln(out, renderStatusLine("Message", statusInfo, session.StatusMessage, colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Started", statusInfo, formatTimestamp(session.StartedAt), colorize))
	if session.FinishedAt != "" {
		fmt.Fprintln(out, renderStatusLine("Finished", statusInfo, formatTimestamp(session.FinishedAt), colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Source", statusInfo, status.Source, colorize))
	fmt.Fprintln(out, renderStatusLine("Live channel", statusInfo, yesNo(status.HasActiveChannel), colorize))

	if len(status.History) > 0 {
		fmt.Fprintln(out)
		for _, line := range renderSectionHeader("Recent Progress", colorize) {
			fmt.Fprintln(out, line)
		}
		for _, update := range status.History {
			label := formatStateLabel(update.Stage)
			if label == "" {
				label = formatStateLabel(update.Type)
			}
			message := formatPercent(update.Percent)
			if update.Message != "" {
				message += " " + update.Message
			}
			fmt.Fprintf(out, "%s%s  %-18s %s\n", statusIndent, formatTimestamp(update.Timestamp), label, message)
		}
	}
}
