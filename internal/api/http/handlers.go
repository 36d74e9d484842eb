// Package http holds the REST handlers: terminal session lifecycle,
// projects, tickets, project memory, activity, read-only git, filesystem
// browsing, and the copilot chat surface.
package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/swefoundry/backend/internal/copilot"
	"github.com/swefoundry/backend/internal/infrastructure/monitoring"
	"github.com/swefoundry/backend/internal/store"
	"github.com/swefoundry/backend/internal/terminal"
)

// Handlers bundles the dependencies shared by every REST endpoint.
type Handlers struct {
	registry *terminal.Registry
	store    *store.Store
	metrics  *monitoring.Metrics
	copilot  *copilot.Client
	logger   *zap.Logger
}

// NewHandlers wires the REST layer. copilotClient may be nil when no API
// key is configured; the copilot endpoint then reports that to the caller.
func NewHandlers(
	registry *terminal.Registry,
	st *store.Store,
	metrics *monitoring.Metrics,
	copilotClient *copilot.Client,
	logger *zap.Logger,
) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		registry: registry,
		store:    st,
		metrics:  metrics,
		copilot:  copilotClient,
		logger:   logger,
	}
}

// Health responds to liveness probes.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// storeError maps store failures onto HTTP responses.
func (h *Handlers) storeError(c *gin.Context, err error, notFoundMsg string) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundMsg})
		return
	}
	h.logger.Error("store operation failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// logActivity records a CRUD mutation; failures are logged, never surfaced.
func (h *Handlers) logActivity(ctx context.Context, projectID, entityType, entityID, action string, details map[string]any) {
	if err := h.store.LogActivity(ctx, projectID, entityType, entityID, action, details); err != nil {
		h.logger.Warn("activity log write failed",
			zap.String("entity_type", entityType),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}
