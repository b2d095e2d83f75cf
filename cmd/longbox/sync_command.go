package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"longbox/internal/api"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "sync [collection-id]",
		Short: "Run a sync pass for one collection or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiClient) error {
				var targets []int64
				if len(args) == 1 {
					id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
					if err != nil || id <= 0 {
						return fmt.Errorf("invalid collection id %q", args[0])
					}
					targets = []int64{id}
				} else {
					collections, err := client.ListCollections(cmd.Context())
					if err != nil {
						return err
					}
					if len(collections) == 0 {
						fmt.Fprintln(cmd.OutOrStdout(), "No collections registered")
						return nil
					}
					for _, collection := range collections {
						targets = append(targets, collection.ID)
					}
				}

				results := make([]api.SyncResult, 0, len(targets))
				for _, id := range targets {
					result, err := client.TriggerSync(cmd.Context(), id)
					if err != nil {
						return err
					}
					results = append(results, *result)
				}
				if jsonOut {
					return writeJSON(cmd, map[string]any{"results": results})
				}
				for _, result := range results {
					printSyncResult(cmd, result)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON output")
	return cmd
}

func printSyncResult(cmd *cobra.Command, result api.SyncResult) {
	out := cmd.OutOrStdout()
	switch {
	case result.Skipped:
		fmt.Fprintf(out, "Collection %d: skipped (%s)\n", result.CollectionID, result.Reason)
	case result.State == "failed":
		fmt.Fprintf(out, "Collection %d: sync failed: %s\n", result.CollectionID, result.ErrorMessage)
	case result.State == "empty" && result.TotalFiles == 0:
		fmt.Fprintf(out, "Collection %d: folder is empty\n", result.CollectionID)
	case result.State == "empty":
		fmt.Fprintf(out, "Collection %d: nothing to process (%d tracked)\n", result.CollectionID, result.TotalFiles)
	case result.SessionID == "":
		fmt.Fprintf(out, "Collection %d: no new files (%d tracked)\n", result.CollectionID, result.TotalFiles)
	case result.ErrorMessage != "":
		fmt.Fprintf(out, "Collection %d: %s (session %s)\n", result.CollectionID, result.ErrorMessage, result.SessionID)
	default:
		fmt.Fprintf(out, "Collection %d: submitted %d of %d files (session %s)\n",
			result.CollectionID, result.DownloadedFiles, result.SelectedFiles, result.SessionID)
		if result.FailedFiles > 0 {
			fmt.Fprintf(out, "Collection %d: %d files failed\n", result.CollectionID, result.FailedFiles)
		}
	}
}
