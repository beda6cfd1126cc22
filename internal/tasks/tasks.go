package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"cornell/internal/models"
)

// Task type identifiers routed through the job queue.
const (
	TypeNoteGeneration = "notes:generate"
)

// GenerationPayload carries everything a worker needs to run one
// note-generation task.
type GenerationPayload struct {
	TaskID           string               `json:"task_id"`
	SessionID        string               `json:"session_id"`
	ClusterIDs       []string             `json:"cluster_ids"`
	PromptOptions    models.PromptOptions `json:"prompt_options"`
	RateLimitEnabled bool                 `json:"rate_limit_enabled"`
}

// NewNoteGenerationTask builds the asynq task for a generation run.
// Generation is never retried automatically; a failed run surfaces through
// task status and failed-note records instead.
func NewNoteGenerationTask(payload GenerationPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal generation payload: %w", err)
	}
	return asynq.NewTask(TypeNoteGeneration, data, asynq.MaxRetry(0)), nil
}
