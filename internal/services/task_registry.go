package services

import (
	"sync"

	"cornell/internal/models"
)

// TaskRegistry maps task identifiers to their live status trackers. It is
// injected where needed and lives for the process; nothing is evicted
// automatically.
type TaskRegistry struct {
	mu    sync.RWMutex
	tasks map[string]*TaskTracker
}

func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{tasks: make(map[string]*TaskTracker)}
}

// Create registers a new pending task and returns its tracker. Creating a
// task id twice replaces the earlier tracker.
func (r *TaskRegistry) Create(taskID string, total int) *TaskTracker {
	t := &TaskTracker{
		total: total,
		status: models.GenerationStatus{
			TaskID:            taskID,
			Status:            models.TaskStatusPending,
			CompletedClusters: []string{},
			FailedClusters:    []string{},
		},
	}
	r.mu.Lock()
	r.tasks[taskID] = t
	r.mu.Unlock()
	return t
}

// Lookup returns the live tracker for a task, for the owning orchestrator.
func (r *TaskRegistry) Lookup(taskID string) (*TaskTracker, bool) {
	r.mu.RLock()
	t, ok := r.tasks[taskID]
	r.mu.RUnlock()
	return t, ok
}

// Status returns a point-in-time snapshot for status-polling callers.
func (r *TaskRegistry) Status(taskID string) (models.GenerationStatus, bool) {
	t, ok := r.Lookup(taskID)
	if !ok {
		return models.GenerationStatus{}, false
	}
	return t.Snapshot(), true
}

// Len returns the number of registered tasks.
func (r *TaskRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// Evict removes a task from the registry.
func (r *TaskRegistry) Evict(taskID string) {
	r.mu.Lock()
	delete(r.tasks, taskID)
	r.mu.Unlock()
}

// TaskTracker holds the mutable status of one generation task. The
// orchestrator that owns the task is the only writer; pollers read through
// Snapshot.
type TaskTracker struct {
	mu     sync.Mutex
	total  int
	status models.GenerationStatus
}

// Snapshot returns a copy safe to hand to concurrent readers.
func (t *TaskTracker) Snapshot() models.GenerationStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.status
	s.CompletedClusters = append([]string{}, t.status.CompletedClusters...)
	s.FailedClusters = append([]string{}, t.status.FailedClusters...)
	return s
}

// MarkProcessing moves the task from pending to processing.
func (t *TaskTracker) MarkProcessing() {
	t.mu.Lock()
	t.status.Status = models.TaskStatusProcessing
	t.mu.Unlock()
}

// MarkCompleted is terminal: every cluster in the task has an outcome.
func (t *TaskTracker) MarkCompleted() {
	t.mu.Lock()
	t.status.Status = models.TaskStatusCompleted
	t.status.CurrentCluster = ""
	t.status.Progress = 1.0
	t.mu.Unlock()
}

// MarkFailed is terminal and records a whole-task fault; per-cluster
// failures never land here.
func (t *TaskTracker) MarkFailed() {
	t.mu.Lock()
	t.status.Status = models.TaskStatusFailed
	t.status.CurrentCluster = ""
	t.mu.Unlock()
}

// SetCurrentCluster records the cluster about to be dispatched.
func (t *TaskTracker) SetCurrentCluster(clusterID string) {
	t.mu.Lock()
	t.status.CurrentCluster = clusterID
	t.mu.Unlock()
}

// RecordCompleted appends a successful cluster outcome and advances progress.
func (t *TaskTracker) RecordCompleted(clusterID string) {
	t.mu.Lock()
	t.status.CompletedClusters = append(t.status.CompletedClusters, clusterID)
	t.advanceLocked()
	t.mu.Unlock()
}

// RecordFailed appends a failed cluster outcome and advances progress.
func (t *TaskTracker) RecordFailed(clusterID string) {
	t.mu.Lock()
	t.status.FailedClusters = append(t.status.FailedClusters, clusterID)
	t.advanceLocked()
	t.mu.Unlock()
}

func (t *TaskTracker) advanceLocked() {
	t.status.CurrentCluster = ""
	if t.total > 0 {
		done := len(t.status.CompletedClusters) + len(t.status.FailedClusters)
		t.status.Progress = float64(done) / float64(t.total)
	}
}
