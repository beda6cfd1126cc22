package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"cornell/internal/models"
	"cornell/internal/services"
)

var (
	generateClusterIDs []string
	generateLanguage   string
	generateDepth      string
	generateNoDelay    bool
)

// generateCmd runs note generation synchronously in the CLI process,
// bypassing the job queue. Useful for local runs without Redis.
var generateCmd = &cobra.Command{
	Use:   "generate <session-id>",
	Short: "Generate Cornell notes for a session's clusters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		sessionID := args[0]

		if _, err := appInstance.SessionStore.GetSession(cmd.Context(), sessionID); err != nil {
			return fmt.Errorf("session %s: %w", sessionID, err)
		}

		clusterIDs := generateClusterIDs
		if len(clusterIDs) == 0 {
			clusters, err := appInstance.ClusterStore.ListClustersBySession(cmd.Context(), sessionID)
			if err != nil {
				return fmt.Errorf("error listing clusters: %w", err)
			}
			for _, cl := range clusters {
				clusterIDs = append(clusterIDs, cl.ID)
			}
		}
		if len(clusterIDs) == 0 {
			return fmt.Errorf("no clusters found for generation")
		}

		opts := models.DefaultPromptOptions()
		if generateLanguage != "" {
			opts.Language = generateLanguage
		}
		if generateDepth != "" {
			opts.Depth = generateDepth
		}

		taskID := uuid.NewString()
		appInstance.Registry.Create(taskID, len(clusterIDs))

		fmt.Printf("Generating notes for %d clusters...\n", len(clusterIDs))

		err = appInstance.Orchestrator.Run(cmd.Context(), services.GenerationParams{
			TaskID:           taskID,
			SessionID:        sessionID,
			ClusterIDs:       clusterIDs,
			Options:          opts,
			RateLimitEnabled: !generateNoDelay,
		})
		if err != nil {
			return fmt.Errorf("generation task failed: %w", err)
		}

		status, _ := appInstance.Registry.Status(taskID)
		fmt.Printf("Done: %s completed, %s failed\n",
			color.GreenString("%d", len(status.CompletedClusters)),
			color.RedString("%d", len(status.FailedClusters)))
		for _, id := range status.FailedClusters {
			fmt.Printf("  - %s: %s\n", color.RedString("FAILED"), id)
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().StringSliceVar(&generateClusterIDs, "cluster", nil, "Cluster IDs to generate (default: all in session)")
	generateCmd.Flags().StringVar(&generateLanguage, "language", "", "Note language (en or id)")
	generateCmd.Flags().StringVar(&generateDepth, "depth", "", "Note depth (concise, balanced or indepth)")
	generateCmd.Flags().BoolVar(&generateNoDelay, "no-delay", false, "Disable the rate-limit delay between clusters")
	rootCmd.AddCommand(generateCmd)
}
