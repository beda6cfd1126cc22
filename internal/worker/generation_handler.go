// Package worker registers asynq handlers for background note generation.
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"

	"cornell/internal/services"
	"cornell/internal/tasks"
)

// GenerationDeps carries everything the generation handler needs.
type GenerationDeps struct {
	Orchestrator *services.GenerationOrchestrator
	Registry     *services.TaskRegistry
}

// RegisterHandlers wires all job handlers onto the mux.
func RegisterHandlers(mux *asynq.ServeMux, deps GenerationDeps) {
	mux.HandleFunc(tasks.TypeNoteGeneration, HandleNoteGenerationJob(deps))
}

// HandleNoteGenerationJob runs one generation task. Whole-task errors are
// wrapped with SkipRetry: a failed run is reported through task status and
// failed-note records, never re-executed.
func HandleNoteGenerationJob(deps GenerationDeps) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload tasks.GenerationPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("unmarshal generation payload: %v: %w", err, asynq.SkipRetry)
		}

		log.WithFields(log.Fields{
			"task_id":  payload.TaskID,
			"session":  payload.SessionID,
			"clusters": len(payload.ClusterIDs),
		}).Info("Starting note generation task")

		// A standalone worker process has no tracker from the API; create
		// one so progress accounting works either way.
		if _, ok := deps.Registry.Lookup(payload.TaskID); !ok {
			deps.Registry.Create(payload.TaskID, len(payload.ClusterIDs))
		}

		err := deps.Orchestrator.Run(ctx, services.GenerationParams{
			TaskID:           payload.TaskID,
			SessionID:        payload.SessionID,
			ClusterIDs:       payload.ClusterIDs,
			Options:          payload.PromptOptions,
			RateLimitEnabled: payload.RateLimitEnabled,
		})
		if err != nil {
			log.WithField("task_id", payload.TaskID).Errorf("Generation task failed: %v", err)
			return fmt.Errorf("generation task %s: %v: %w", payload.TaskID, err, asynq.SkipRetry)
		}

		log.WithField("task_id", payload.TaskID).Info("Note generation task finished")
		return nil
	}
}
