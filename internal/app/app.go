// Package app wires configuration, stores and services into one
// application instance shared by the API server, the worker and the CLI.
package app

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"cornell/internal/config"
	"cornell/internal/formatter"
	"cornell/internal/services"
	"cornell/internal/store"
	"cornell/internal/store/primary"
)

type App struct {
	Config *config.Config

	SessionStore  store.SessionStore
	DocumentStore store.DocumentStore
	ClusterStore  store.ClusterStore
	NoteStore     store.NoteStore

	JobClient store.JobClient

	GenerationService services.GenerationService
	Formatter         *formatter.NoteFormatter
	Gate              *services.ConcurrencyGate
	Registry          *services.TaskRegistry
	Orchestrator      *services.GenerationOrchestrator

	primaryStore *primary.StoreImpl
	geminiCloser interface{ Close() error }
}

func NewApp(cfg *config.Config) (*App, error) {
	ctx := context.Background()
	app := &App{Config: cfg}

	if err := app.initPrimaryStore(ctx); err != nil {
		return nil, err
	}
	if err := app.initGenerationService(ctx); err != nil {
		app.cleanupPartialInit()
		return nil, err
	}
	app.initCore()
	app.initJobClient()

	log.Debug("Application initialization complete")
	return app, nil
}

func (a *App) initPrimaryStore(ctx context.Context) error {
	s, err := primary.NewPrimaryStore(ctx, a.Config.Database.Primary.DSN)
	if err != nil {
		return fmt.Errorf("initialize primary store: %w", err)
	}
	a.primaryStore = s
	a.SessionStore = s
	a.DocumentStore = s
	a.ClusterStore = s
	a.NoteStore = s
	return nil
}

func (a *App) initGenerationService(ctx context.Context) error {
	prompts, err := a.loadPromptBuilder()
	if err != nil {
		return err
	}
	timeout := time.Duration(a.Config.Generation.RequestTimeoutSeconds) * time.Second

	switch a.Config.Generation.Provider {
	case "gemini":
		svc, err := services.NewGeminiGenerationService(ctx, services.GeminiConfig{
			APIKey:  a.Config.Generation.GeminiApiKey,
			Model:   a.Config.Generation.Model,
			Timeout: timeout,
			Prompts: prompts,
		})
		if err != nil {
			return fmt.Errorf("initialize Gemini provider: %w", err)
		}
		a.GenerationService = svc
		a.geminiCloser = svc
	default:
		a.GenerationService = services.NewOpenRouterGenerationService(services.OpenRouterConfig{
			APIKey:  a.Config.Generation.OpenRouterApiKey,
			BaseURL: a.Config.Generation.BaseURL,
			Model:   a.Config.Generation.Model,
			Timeout: timeout,
			Prompts: prompts,
		})
	}
	return nil
}

func (a *App) loadPromptBuilder() (*services.PromptBuilder, error) {
	if a.Config.Generation.Prompt == "" {
		return services.NewPromptBuilder(""), nil
	}
	content, err := config.LoadPromptContent(a.Config.Generation.Prompt, "note-gen.md")
	if err != nil {
		return nil, fmt.Errorf("load master prompt: %w", err)
	}
	return services.NewPromptBuilder(content), nil
}

func (a *App) initCore() {
	a.Formatter = formatter.NewNoteFormatter()
	a.Gate = services.NewConcurrencyGate(a.Config.Generation.MaxConcurrent)
	a.Registry = services.NewTaskRegistry()
	a.Orchestrator = services.NewGenerationOrchestrator(services.OrchestratorDeps{
		Documents:      a.DocumentStore,
		Clusters:       a.ClusterStore,
		Notes:          a.NoteStore,
		Generator:      a.GenerationService,
		Formatter:      a.Formatter,
		Gate:           a.Gate,
		Registry:       a.Registry,
		RateLimitDelay: time.Duration(a.Config.Generation.RateLimitDelaySeconds) * time.Second,
		MaxSourceChars: a.Config.Generation.MaxSourceChars,
		MinOutputChars: a.Config.Generation.MinOutputChars,
	})
}

func (a *App) initJobClient() {
	if a.Config.Redis.Address == "" {
		log.Warn("Redis address not configured, background job dispatch disabled")
		return
	}
	a.JobClient = store.NewAsynqJobClient(a.Config.Redis.Address, a.Config.Redis.Password, a.Config.Redis.DB)
}

func (a *App) cleanupPartialInit() {
	if a.primaryStore != nil {
		if err := a.primaryStore.Close(); err != nil {
			log.Errorf("Failed to close primary store during cleanup: %v", err)
		}
	}
}

// PingStores verifies backing-store connectivity.
func (a *App) PingStores(ctx context.Context) error {
	return a.primaryStore.Ping(ctx)
}

// Close releases every resource the app holds.
func (a *App) Close() error {
	var firstErr error
	if a.JobClient != nil {
		if err := a.JobClient.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.geminiCloser != nil {
		if err := a.geminiCloser.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.primaryStore != nil {
		if err := a.primaryStore.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
