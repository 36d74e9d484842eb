package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/swefoundry/backend/internal/store"
)

type memoryCreateRequest struct {
	ProjectID string `json:"project_id" binding:"required"`
	Type      string `json:"type" binding:"required"`
	Content   string `json:"content" binding:"required"`
}

type memoryUpdateRequest struct {
	Type    *string `json:"type"`
	Content *string `json:"content"`
}

// CreateMemory records a project memory note.
func (h *Handlers) CreateMemory(c *gin.Context) {
	ctx := c.Request.Context()

	var req memoryCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	if _, err := h.store.GetProject(ctx, req.ProjectID); err != nil {
		h.storeError(c, err, "project not found")
		return
	}

	rec, err := h.store.CreateMemory(ctx, store.MemoryRecord{
		ProjectID: req.ProjectID,
		Type:      req.Type,
		Content:   req.Content,
	})
	if err != nil {
		h.storeError(c, err, "memory item not found")
		return
	}

	h.logActivity(ctx, req.ProjectID, "memory", rec.ID, "create", map[string]any{"type": req.Type})
	c.JSON(http.StatusOK, rec)
}

// ListMemory returns a project's memory notes, newest first.
func (h *Handlers) ListMemory(c *gin.Context) {
	projectID := c.Query("project_id")
	if projectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "project_id is required"})
		return
	}
	rows, err := h.store.ListMemory(c.Request.Context(), projectID)
	if err != nil {
		h.storeError(c, err, "memory unavailable")
		return
	}
	c.JSON(http.StatusOK, rows)
}

// UpdateMemory applies a partial update to a memory note.
func (h *Handlers) UpdateMemory(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	var req memoryUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	rec, changed, err := h.store.UpdateMemory(ctx, id, store.MemoryUpdate{
		Type:    req.Type,
		Content: req.Content,
	})
	if err != nil {
		h.storeError(c, err, "memory item not found")
		return
	}

	if len(changed) > 0 {
		h.logActivity(ctx, rec.ProjectID, "memory", id, "update", map[string]any{"fields": changed})
	}
	c.JSON(http.StatusOK, rec)
}

// DeleteMemory removes a memory note.
func (h *Handlers) DeleteMemory(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	rec, err := h.store.GetMemory(ctx, id)
	if err != nil {
		h.storeError(c, err, "memory item not found")
		return
	}
	if err := h.store.DeleteMemory(ctx, id); err != nil {
		h.storeError(c, err, "memory item not found")
		return
	}
	h.logActivity(ctx, rec.ProjectID, "memory", id, "delete", map[string]any{})
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ListActivity returns the most recent activity rows for a project.
func (h *Handlers) ListActivity(c *gin.Context) {
	projectID := c.Query("project_id")
	if projectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "project_id is required"})
		return
	}
	rows, err := h.store.ListActivity(c.Request.Context(), projectID)
	if err != nil {
		h.storeError(c, err, "activity unavailable")
		return
	}
	c.JSON(http.StatusOK, rows)
}
