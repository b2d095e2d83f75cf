package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiClient) error {
				status, err := client.Status(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, status)
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, line := range renderSectionHeader("Longbox Daemon", colorize) {
					fmt.Fprintln(out, line)
				}

				runningKind := statusError
				runningMessage := "stopped"
				if status.Running {
					runningKind = statusOK
					runningMessage = fmt.Sprintf("pid %d", status.PID)
				}
				fmt.Fprintln(out, renderStatusLine("Daemon", runningKind, runningMessage, colorize))
				fmt.Fprintln(out, renderStatusLine("Database", statusInfo, status.DatabasePath, colorize))
				fmt.Fprintln(out, renderStatusLine("Collections", statusInfo, fmt.Sprintf("%d", status.Collections), colorize))

				sessionKind := statusOK
				if status.ErroredSessions > 0 {
					sessionKind = statusWarn
				}
				sessionSummary := fmt.Sprintf("%d processing, %d completed, %d errored",
					status.ProcessingSessions, status.CompletedSessions, status.ErroredSessions)
				fmt.Fprintln(out, renderStatusLine("Sessions", sessionKind, sessionSummary, colorize))
				fmt.Fprintln(out, renderStatusLine("Processed files", statusInfo, fmt.Sprintf("%d", status.ProcessedFiles), colorize))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON output")
	return cmd
}
