package apihandlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cornell/internal/app"
	"cornell/internal/models"
	"cornell/internal/store"
)

type APIHandler struct {
	App *app.App
}

func NewAPIHandler(a *app.App) *APIHandler {
	return &APIHandler{App: a}
}

// CreateSessionHandler starts a new study session.
func (h *APIHandler) CreateSessionHandler(c *gin.Context) {
	session := &models.Session{
		ID:        uuid.NewString(),
		Status:    models.SessionStatusCreated,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.App.SessionStore.CreateSession(c.Request.Context(), session); err != nil {
		Internal(c, fmt.Sprintf("failed to create session: %v", err))
		return
	}
	c.JSON(http.StatusCreated, session)
}

// GetSessionHandler returns one session.
func (h *APIHandler) GetSessionHandler(c *gin.Context) {
	session, err := h.App.SessionStore.GetSession(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		NotFound(c, "Session not found")
		return
	}
	if err != nil {
		Internal(c, fmt.Sprintf("failed to load session: %v", err))
		return
	}
	c.JSON(http.StatusOK, session)
}

// ListSessionsHandler returns sessions, newest first.
func (h *APIHandler) ListSessionsHandler(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	sessions, err := h.App.SessionStore.ListSessions(c.Request.Context(), limit, offset)
	if err != nil {
		Internal(c, fmt.Sprintf("failed to list sessions: %v", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions, "total": len(sessions)})
}

type addDocumentRequest struct {
	Filename      string `json:"filename" binding:"required"`
	ExtractedText string `json:"extracted_text" binding:"required"`
}

// AddDocumentHandler ingests one document's extracted text into a session.
func (h *APIHandler) AddDocumentHandler(c *gin.Context) {
	sessionID := c.Param("id")
	if _, err := h.App.SessionStore.GetSession(c.Request.Context(), sessionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFound(c, "Session not found")
			return
		}
		Internal(c, fmt.Sprintf("failed to load session: %v", err))
		return
	}

	var req addDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	doc := &models.Document{
		ID:            uuid.NewString(),
		SessionID:     sessionID,
		Filename:      req.Filename,
		ExtractedText: req.ExtractedText,
		Status:        models.DocumentStatusExtracted,
		CreatedAt:     time.Now().UTC(),
	}
	if err := h.App.DocumentStore.CreateDocument(c.Request.Context(), doc); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			Conflict(c, fmt.Sprintf("Document %q already exists in this session", req.Filename))
			return
		}
		Internal(c, fmt.Sprintf("failed to store document: %v", err))
		return
	}
	c.JSON(http.StatusCreated, doc)
}

// ListDocumentsHandler returns a session's documents.
func (h *APIHandler) ListDocumentsHandler(c *gin.Context) {
	docs, err := h.App.DocumentStore.ListDocumentsBySession(c.Request.Context(), c.Param("id"))
	if err != nil {
		Internal(c, fmt.Sprintf("failed to list documents: %v", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs, "total": len(docs)})
}

type clusterRequest struct {
	Title         string   `json:"title" binding:"required"`
	SourceMapping []string `json:"source_mapping"`
	OrderIndex    int      `json:"order_index"`
}

// CreateClusterHandler adds a topic cluster to a session.
func (h *APIHandler) CreateClusterHandler(c *gin.Context) {
	sessionID := c.Param("id")
	if _, err := h.App.SessionStore.GetSession(c.Request.Context(), sessionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFound(c, "Session not found")
			return
		}
		Internal(c, fmt.Sprintf("failed to load session: %v", err))
		return
	}

	var req clusterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	cluster := &models.Cluster{
		ID:            uuid.NewString(),
		SessionID:     sessionID,
		Title:         req.Title,
		SourceMapping: req.SourceMapping,
		OrderIndex:    req.OrderIndex,
		CreatedAt:     time.Now().UTC(),
	}
	if err := h.App.ClusterStore.CreateCluster(c.Request.Context(), cluster); err != nil {
		Internal(c, fmt.Sprintf("failed to create cluster: %v", err))
		return
	}
	c.JSON(http.StatusCreated, cluster)
}

// ListClustersHandler returns a session's clusters in order.
func (h *APIHandler) ListClustersHandler(c *gin.Context) {
	clusters, err := h.App.ClusterStore.ListClustersBySession(c.Request.Context(), c.Param("id"))
	if err != nil {
		Internal(c, fmt.Sprintf("failed to list clusters: %v", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"clusters": clusters, "total": len(clusters)})
}

// UpdateClusterHandler edits a cluster's title, mapping or order.
func (h *APIHandler) UpdateClusterHandler(c *gin.Context) {
	cluster, err := h.App.ClusterStore.GetCluster(c.Request.Context(), c.Param("clusterId"))
	if errors.Is(err, store.ErrNotFound) {
		NotFound(c, "Cluster not found")
		return
	}
	if err != nil {
		Internal(c, fmt.Sprintf("failed to load cluster: %v", err))
		return
	}

	var req clusterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	cluster.Title = req.Title
	cluster.SourceMapping = req.SourceMapping
	cluster.OrderIndex = req.OrderIndex
	if err := h.App.ClusterStore.UpdateCluster(c.Request.Context(), cluster); err != nil {
		Internal(c, fmt.Sprintf("failed to update cluster: %v", err))
		return
	}
	c.JSON(http.StatusOK, cluster)
}

// DeleteClusterHandler removes a cluster and its notes.
func (h *APIHandler) DeleteClusterHandler(c *gin.Context) {
	err := h.App.ClusterStore.DeleteCluster(c.Request.Context(), c.Param("clusterId"))
	if errors.Is(err, store.ErrNotFound) {
		NotFound(c, "Cluster not found")
		return
	}
	if err != nil {
		Internal(c, fmt.Sprintf("failed to delete cluster: %v", err))
		return
	}
	c.Status(http.StatusNoContent)
}
