package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"longbox/internal/api"
)

func newCollectionsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	collectionsCmd := &cobra.Command{
		Use:   "collections",
		Short: "Manage comic collections",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiClient) error {
				collections, err := client.ListCollections(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, api.CollectionListResponse{Collections: collections})
				}
				printCollectionTable(cmd, collections)
				return nil
			})
		},
	}

	collectionsCmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON output")
	collectionsCmd.AddCommand(newCollectionsAddCommand(ctx))
	return collectionsCmd
}

func newCollectionsAddCommand(ctx *commandContext) *cobra.Command {
	var folderPath string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Register a collection folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if name == "" {
				return fmt.Errorf("collection name is required")
			}
			return ctx.withClient(func(client *apiClient) error {
				collection, err := client.AddCollection(cmd.Context(), name, folderPath)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added collection %d (%s) at %s\n",
					collection.ID, collection.Name, collection.FolderPath)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&folderPath, "folder", "f", "", "Remote folder path (defaults to /<name>)")
	return cmd
}

func printCollectionTable(cmd *cobra.Command, collections []api.Collection) {
	out := cmd.OutOrStdout()
	if len(collections) == 0 {
		fmt.Fprintln(out, "No collections registered")
		return
	}

	headers := []string{"ID", "Name", "Folder", "State", "Files", "Processed", "Last Sync"}
	aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft}
	rows := make([][]string, 0, len(collections))
	for _, collection := range collections {
		state := "never synced"
		files := "-"
		processed := "-"
		lastSync := "-"
		if status := collection.SyncStatus; status != nil {
			state = formatStateLabel(status.State)
			files = fmt.Sprintf("%d", status.TotalFileCount)
			processed = fmt.Sprintf("%d", status.ProcessedFileCount)
			lastSync = formatTimestamp(status.LastSyncAt)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", collection.ID),
			collection.Name,
			collection.FolderPath,
			state,
			files,
			processed,
			lastSync,
		})
	}
	fmt.Fprintln(out, renderTable(headers, rows, aligns))
}
