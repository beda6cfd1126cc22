package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"cornell/internal/store"
)

var notesShowContent bool

// notesCmd lists the latest note per cluster for a session.
var notesCmd = &cobra.Command{
	Use:   "notes <session-id>",
	Short: "List generated notes for a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		sessionID := args[0]

		clusters, err := appInstance.ClusterStore.ListClustersBySession(cmd.Context(), sessionID)
		if err != nil {
			return fmt.Errorf("error listing clusters: %w", err)
		}
		if len(clusters) == 0 {
			fmt.Println("No clusters found for session.")
			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Cluster", "Title", "Note Status", "Generated At"})
		table.SetBorder(false)
		table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
		table.SetAlignment(tablewriter.ALIGN_LEFT)

		var contents []string
		for _, cluster := range clusters {
			note, err := appInstance.NoteStore.LatestNoteByCluster(cmd.Context(), cluster.ID)
			if errors.Is(err, store.ErrNotFound) {
				table.Append([]string{cluster.ID, cluster.Title, "-", "-"})
				continue
			}
			if err != nil {
				return fmt.Errorf("error loading note for cluster %s: %w", cluster.ID, err)
			}
			table.Append([]string{
				cluster.ID,
				cluster.Title,
				note.Status,
				note.CreatedAt.Format("2006-01-02 15:04:05"),
			})
			if notesShowContent {
				contents = append(contents, fmt.Sprintf("## %s\n\n%s", cluster.Title, note.MarkdownContent))
			}
		}
		table.Render()

		for _, c := range contents {
			fmt.Println()
			fmt.Println(c)
		}
		return nil
	},
}

func init() {
	notesCmd.Flags().BoolVar(&notesShowContent, "content", false, "Print full note markdown after the table")
	rootCmd.AddCommand(notesCmd)
}
