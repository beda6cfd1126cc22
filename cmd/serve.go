package cmd

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"cornell/internal/apihandlers"
	"cornell/internal/app"
	"cornell/internal/worker"
)

var (
	serveAddr string
	servePort int
)

// serveCmd runs the HTTP API server. When Redis is configured it also runs
// an in-process asynq server sharing the API's task registry, so status
// polling sees live progress without a separate worker process.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Cornell HTTP API server",
	Long: `Starts an HTTP server exposing session, cluster and note generation
endpoints. Generation jobs are dispatched through the job queue and executed
in-process so task status reflects live progress.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}

		if appInstance.JobClient != nil {
			srv, err := startEmbeddedWorker(appInstance)
			if err != nil {
				return err
			}
			defer srv.Shutdown()
		} else {
			log.Warn("Redis not configured, generation requests will be rejected")
		}

		router := gin.Default()
		registerRoutes(router, appInstance)

		host := serveAddr
		if host == "" {
			host = appInstance.Config.Server.Host
		}
		port := servePort
		if port == 0 {
			port = appInstance.Config.Server.Port
		}

		listenAddr := fmt.Sprintf("%s:%d", host, port)
		log.Infof("Starting Cornell API server on http://%s", listenAddr)

		if err := router.Run(listenAddr); err != nil {
			return fmt.Errorf("failed to run API server: %w", err)
		}
		return nil
	},
}

func registerRoutes(router *gin.Engine, appInstance *app.App) {
	apiHandler := apihandlers.NewAPIHandler(appInstance)

	v1 := router.Group("/api/v1")
	{
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", apiHandler.CreateSessionHandler)
			sessions.GET("", apiHandler.ListSessionsHandler)
			sessions.GET("/:id", apiHandler.GetSessionHandler)
			sessions.POST("/:id/documents", apiHandler.AddDocumentHandler)
			sessions.GET("/:id/documents", apiHandler.ListDocumentsHandler)
			sessions.POST("/:id/clusters", apiHandler.CreateClusterHandler)
			sessions.GET("/:id/clusters", apiHandler.ListClustersHandler)
			sessions.GET("/:id/notes", apiHandler.ListNotesHandler)
			sessions.GET("/:id/export", apiHandler.ExportMarkdownHandler)
		}

		clusters := v1.Group("/clusters")
		{
			clusters.PUT("/:clusterId", apiHandler.UpdateClusterHandler)
			clusters.DELETE("/:clusterId", apiHandler.DeleteClusterHandler)
		}

		generate := v1.Group("/generate")
		{
			generate.POST("", apiHandler.GenerateNotesHandler)
			generate.GET("/status/:taskId", apiHandler.GenerationStatusHandler)
			generate.GET("/note/:noteId", apiHandler.GetNoteHandler)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

func startEmbeddedWorker(appInstance *app.App) (*asynq.Server, error) {
	cfg := appInstance.Config

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: cfg.Worker.Concurrency,
			Queues:      cfg.Worker.Queues,
		},
	)

	mux := asynq.NewServeMux()
	worker.RegisterHandlers(mux, worker.GenerationDeps{
		Orchestrator: appInstance.Orchestrator,
		Registry:     appInstance.Registry,
	})

	if err := srv.Start(mux); err != nil {
		return nil, fmt.Errorf("failed to start embedded worker: %w", err)
	}
	log.Infof("Embedded worker started (concurrency: %d)", cfg.Worker.Concurrency)
	return srv, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (overrides config)")
}
