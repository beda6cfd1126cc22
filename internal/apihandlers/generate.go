package apihandlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cornell/internal/models"
	"cornell/internal/store"
	"cornell/internal/tasks"
)

// GenerateRequest triggers Cornell note generation for a session's clusters.
// An empty ClusterIDs list means "every cluster in the session".
type GenerateRequest struct {
	SessionID        string                `json:"session_id" binding:"required"`
	ClusterIDs       []string              `json:"cluster_ids"`
	PromptOptions    *models.PromptOptions `json:"prompt_options"`
	RateLimitEnabled *bool                 `json:"rate_limit_enabled"`
}

// GenerateResponse acknowledges an accepted generation task.
type GenerateResponse struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// GenerateNotesHandler validates the request, registers the task and
// enqueues the background job.
func (h *APIHandler) GenerateNotesHandler(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	if _, err := h.App.SessionStore.GetSession(ctx, req.SessionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFound(c, "Session not found")
			return
		}
		Internal(c, fmt.Sprintf("failed to load session: %v", err))
		return
	}

	clusterIDs := req.ClusterIDs
	if len(clusterIDs) == 0 {
		clusters, err := h.App.ClusterStore.ListClustersBySession(ctx, req.SessionID)
		if err != nil {
			Internal(c, fmt.Sprintf("failed to list clusters: %v", err))
			return
		}
		for _, cl := range clusters {
			clusterIDs = append(clusterIDs, cl.ID)
		}
	}
	if len(clusterIDs) == 0 {
		BadRequest(c, "No clusters found for generation")
		return
	}

	opts := models.DefaultPromptOptions()
	if req.PromptOptions != nil {
		opts = *req.PromptOptions
	}
	if !opts.UseDefault && strings.TrimSpace(opts.CustomPrompt) == "" {
		BadRequest(c, "custom_prompt is required when use_default is false")
		return
	}

	rateLimit := true
	if req.RateLimitEnabled != nil {
		rateLimit = *req.RateLimitEnabled
	}

	if h.App.JobClient == nil {
		JSONError(c, http.StatusServiceUnavailable, "queue_unavailable", "Background job dispatch is not configured")
		return
	}

	taskID := uuid.NewString()
	h.App.Registry.Create(taskID, len(clusterIDs))

	payload := tasks.GenerationPayload{
		TaskID:           taskID,
		SessionID:        req.SessionID,
		ClusterIDs:       clusterIDs,
		PromptOptions:    opts,
		RateLimitEnabled: rateLimit,
	}
	if err := h.App.JobClient.EnqueueGenerationJob(ctx, payload); err != nil {
		h.App.Registry.Evict(taskID)
		Internal(c, fmt.Sprintf("failed to enqueue generation job: %v", err))
		return
	}

	c.JSON(http.StatusAccepted, GenerateResponse{
		TaskID:  taskID,
		Status:  models.TaskStatusPending,
		Message: fmt.Sprintf("Generation started for %d clusters", len(clusterIDs)),
	})
}

// GenerationStatusHandler returns a live snapshot of one generation task.
func (h *APIHandler) GenerationStatusHandler(c *gin.Context) {
	status, ok := h.App.Registry.Status(c.Param("taskId"))
	if !ok {
		NotFound(c, "Task not found")
		return
	}
	c.JSON(http.StatusOK, status)
}

// ListNotesHandler returns the latest note per cluster for a session.
func (h *APIHandler) ListNotesHandler(c *gin.Context) {
	ctx := c.Request.Context()
	clusters, err := h.App.ClusterStore.ListClustersBySession(ctx, c.Param("id"))
	if err != nil {
		Internal(c, fmt.Sprintf("failed to list clusters: %v", err))
		return
	}

	notes := make([]*models.Note, 0, len(clusters))
	for _, cluster := range clusters {
		note, err := h.App.NoteStore.LatestNoteByCluster(ctx, cluster.ID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			Internal(c, fmt.Sprintf("failed to load notes: %v", err))
			return
		}
		notes = append(notes, note)
	}

	c.JSON(http.StatusOK, gin.H{"notes": notes, "total": len(notes)})
}

// GetNoteHandler returns one note.
func (h *APIHandler) GetNoteHandler(c *gin.Context) {
	note, err := h.App.NoteStore.GetNote(c.Request.Context(), c.Param("noteId"))
	if errors.Is(err, store.ErrNotFound) {
		NotFound(c, "Note not found")
		return
	}
	if err != nil {
		Internal(c, fmt.Sprintf("failed to load note: %v", err))
		return
	}
	c.JSON(http.StatusOK, note)
}

// ExportMarkdownHandler streams a session's notes as one markdown document.
func (h *APIHandler) ExportMarkdownHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := c.Param("id")

	clusters, err := h.App.ClusterStore.ListClustersBySession(ctx, sessionID)
	if err != nil {
		Internal(c, fmt.Sprintf("failed to list clusters: %v", err))
		return
	}

	var sb strings.Builder
	for _, cluster := range clusters {
		note, err := h.App.NoteStore.LatestNoteByCluster(ctx, cluster.ID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			Internal(c, fmt.Sprintf("failed to load notes: %v", err))
			return
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n---\n\n")
		}
		sb.WriteString(note.MarkdownContent)
	}

	if sb.Len() == 0 {
		NotFound(c, "No notes to export for this session")
		return
	}

	filename := fmt.Sprintf("cornell-notes-%s.md", sessionID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(sb.String()))
}
