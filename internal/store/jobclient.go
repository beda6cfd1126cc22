package store

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"

	"cornell/internal/tasks"
)

// JobClient enqueues background generation jobs.
type JobClient interface {
	EnqueueGenerationJob(ctx context.Context, payload tasks.GenerationPayload) error
	Close() error
}

// AsynqJobClient dispatches jobs onto a Redis-backed asynq queue.
type AsynqJobClient struct {
	client *asynq.Client
}

var _ JobClient = (*AsynqJobClient)(nil)

// NewAsynqJobClient creates a queue client against the given Redis instance.
func NewAsynqJobClient(addr, password string, db int) *AsynqJobClient {
	return &AsynqJobClient{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

// EnqueueGenerationJob submits a note-generation task to the queue.
func (c *AsynqJobClient) EnqueueGenerationJob(ctx context.Context, payload tasks.GenerationPayload) error {
	task, err := tasks.NewNoteGenerationTask(payload)
	if err != nil {
		return err
	}

	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("enqueue generation job: %w", err)
	}

	log.WithFields(log.Fields{
		"task_id":  payload.TaskID,
		"queue":    info.Queue,
		"job_id":   info.ID,
		"clusters": len(payload.ClusterIDs),
	}).Info("Enqueued note generation job")
	return nil
}

// Close releases the underlying Redis connection.
func (c *AsynqJobClient) Close() error {
	return c.client.Close()
}
