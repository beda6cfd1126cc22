package cmd

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"cornell/internal/models"
)

var (
	sessionListLimit  int
	sessionListOffset int
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage study sessions",
}

var sessionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new study session",
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}

		session := &models.Session{
			ID:        uuid.NewString(),
			Status:    models.SessionStatusCreated,
			CreatedAt: time.Now().UTC(),
		}
		if err := appInstance.SessionStore.CreateSession(cmd.Context(), session); err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}

		fmt.Printf("Created session %s\n", session.ID)
		return nil
	},
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List study sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}

		sessions, err := appInstance.SessionStore.ListSessions(cmd.Context(), sessionListLimit, sessionListOffset)
		if err != nil {
			return fmt.Errorf("error listing sessions: %w", err)
		}

		if len(sessions) == 0 {
			fmt.Println("No sessions found.")
			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"ID", "Status", "Documents", "Created At"})
		table.SetBorder(false)
		table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
		table.SetAlignment(tablewriter.ALIGN_LEFT)

		for _, s := range sessions {
			table.Append([]string{
				s.ID,
				s.Status,
				strconv.Itoa(s.DocumentCount),
				s.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		table.Render()
		return nil
	},
}

func init() {
	sessionListCmd.Flags().IntVar(&sessionListLimit, "limit", 50, "Maximum sessions to list")
	sessionListCmd.Flags().IntVar(&sessionListOffset, "offset", 0, "Offset into the session list")

	sessionCmd.AddCommand(sessionCreateCmd)
	sessionCmd.AddCommand(sessionListCmd)
	rootCmd.AddCommand(sessionCmd)
}
