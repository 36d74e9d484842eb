package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/swefoundry/backend/internal/copilot"
	"github.com/swefoundry/backend/internal/store"
)

// contextMessageLimit bounds how much thread history is replayed to the
// model on each query.
const contextMessageLimit = 20

// ListThreads returns a project's chat threads.
func (h *Handlers) ListThreads(c *gin.Context) {
	projectID := c.Query("project_id")
	if projectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "project_id is required"})
		return
	}
	rows, err := h.store.ListThreads(c.Request.Context(), projectID)
	if err != nil {
		h.storeError(c, err, "threads unavailable")
		return
	}
	c.JSON(http.StatusOK, rows)
}

// CreateThread opens a chat thread on a project.
func (h *Handlers) CreateThread(c *gin.Context) {
	ctx := c.Request.Context()

	var req struct {
		ProjectID string `json:"project_id" binding:"required"`
		Title     string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if req.Title == "" {
		req.Title = "Copilot"
	}

	if _, err := h.store.GetProject(ctx, req.ProjectID); err != nil {
		h.storeError(c, err, "project not found")
		return
	}

	rec, err := h.store.CreateThread(ctx, req.ProjectID, req.Title)
	if err != nil {
		h.storeError(c, err, "thread not found")
		return
	}
	c.JSON(http.StatusOK, rec)
}

// ListMessages returns a thread's messages, oldest first.
func (h *Handlers) ListMessages(c *gin.Context) {
	threadID := c.Query("thread_id")
	if threadID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "thread_id is required"})
		return
	}
	rows, err := h.store.ListMessages(c.Request.Context(), threadID, 0)
	if err != nil {
		h.storeError(c, err, "messages unavailable")
		return
	}
	c.JSON(http.StatusOK, rows)
}

type copilotQueryRequest struct {
	ProjectID string `json:"project_id" binding:"required"`
	ThreadID  string `json:"thread_id"`
	Input     string `json:"input" binding:"required"`
}

// CopilotQuery persists the user message, asks the model, executes any
// actions the model requested, and persists the assistant reply.
func (h *Handlers) CopilotQuery(c *gin.Context) {
	ctx := c.Request.Context()

	var req copilotQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	if h.copilot == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "OPENAI_API_KEY is not set on the server"})
		return
	}

	if _, err := h.store.GetProject(ctx, req.ProjectID); err != nil {
		h.storeError(c, err, "project not found")
		return
	}

	threadID := req.ThreadID
	if threadID == "" {
		thread, err := h.store.CreateThread(ctx, req.ProjectID, "Copilot")
		if err != nil {
			h.storeError(c, err, "thread not found")
			return
		}
		threadID = thread.ID
	}

	if _, err := h.store.AppendMessage(ctx, threadID, "user", req.Input); err != nil {
		h.storeError(c, err, "thread not found")
		return
	}

	history, err := h.store.ListMessages(ctx, threadID, contextMessageLimit)
	if err != nil {
		h.storeError(c, err, "messages unavailable")
		return
	}
	input := make([]copilot.Message, 0, len(history)+1)
	input = append(input, copilot.Message{Role: "system", Content: copilot.SystemPrompt})
	for _, m := range history {
		input = append(input, copilot.Message{Role: m.Role, Content: m.Content})
	}

	text, err := h.copilot.Query(ctx, input)
	if err != nil {
		h.metrics.CopilotRequests.WithLabelValues("error").Inc()
		h.logger.Error("copilot query failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	h.metrics.CopilotRequests.WithLabelValues("ok").Inc()

	parsed := copilot.ParseReply(text)
	actionResults := h.executeActions(ctx, req.ProjectID, parsed.Actions)

	if _, err := h.store.AppendMessage(ctx, threadID, "assistant", parsed.Reply); err != nil {
		h.logger.Warn("assistant message persist failed", zap.String("thread_id", threadID), zap.Error(err))
	}
	if err := h.store.TouchThread(ctx, threadID); err != nil {
		h.logger.Warn("thread touch failed", zap.String("thread_id", threadID), zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"thread_id":      threadID,
		"reply":          parsed.Reply,
		"actions":        parsed.Actions,
		"action_results": actionResults,
	})
}

type actionResult struct {
	Type  string `json:"type"`
	OK    bool   `json:"ok"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}

// executeActions runs each requested action, isolating failures per
// action so one bad payload does not void the rest.
func (h *Handlers) executeActions(ctx context.Context, projectID string, actions []copilot.Action) []actionResult {
	results := make([]actionResult, 0, len(actions))
	for _, action := range actions {
		id, err := h.executeAction(ctx, projectID, action)
		res := actionResult{Type: action.Type, OK: err == nil, ID: id}
		if err != nil {
			res.Error = err.Error()
		}
		results = append(results, res)
	}
	return results
}

func (h *Handlers) executeAction(ctx context.Context, projectID string, action copilot.Action) (string, error) {
	p := action.Payload
	switch action.Type {
	case "create_ticket":
		rec, err := h.createTicket(ctx, store.TicketRecord{
			ProjectID:       projectID,
			Title:           payloadString(p, "title"),
			Description:     payloadString(p, "description"),
			SuccessCriteria: payloadString(p, "success_criteria"),
			BranchName:      payloadString(p, "branch_name"),
			WorktreePath:    payloadString(p, "worktree_path"),
		})
		return rec.ID, err

	case "update_ticket":
		id := payloadString(p, "id")
		if id == "" {
			return "", errors.New("missing id")
		}
		upd := store.TicketUpdate{
			Title:           payloadOptString(p, "title"),
			Description:     payloadOptString(p, "description"),
			SuccessCriteria: payloadOptString(p, "success_criteria"),
			Status:          payloadOptString(p, "status"),
			SessionID:       payloadOptString(p, "session_id"),
			BranchName:      payloadOptString(p, "branch_name"),
			WorktreePath:    payloadOptString(p, "worktree_path"),
		}
		if upd.Status != nil && !store.ValidTicketStatus(*upd.Status) {
			return "", errors.New("invalid status: " + *upd.Status)
		}
		rec, err := h.updateTicket(ctx, id, upd)
		return rec.ID, err

	case "delete_ticket":
		id := payloadString(p, "id")
		if id == "" {
			return "", errors.New("missing id")
		}
		return id, h.deleteTicket(ctx, id)

	case "assign_ticket":
		ticketID := payloadString(p, "ticket_id")
		sessionID := payloadString(p, "session_id")
		if ticketID == "" || sessionID == "" {
			return "", errors.New("missing ticket_id or session_id")
		}
		rec, err := h.assignTicket(ctx, ticketID, sessionID)
		return rec.ID, err

	case "add_project_memory":
		rec, err := h.store.CreateMemory(ctx, store.MemoryRecord{
			ProjectID: projectID,
			Type:      payloadString(p, "type"),
			Content:   payloadString(p, "content"),
		})
		if err == nil {
			h.logActivity(ctx, projectID, "memory", rec.ID, "create", map[string]any{"type": rec.Type})
		}
		return rec.ID, err

	case "update_project":
		rec, changed, err := h.store.UpdateProject(ctx, projectID, store.ProjectUpdate{
			Name:              payloadOptString(p, "name"),
			Path:              payloadOptString(p, "path"),
			ProjectGoal:       payloadOptString(p, "project_goal"),
			Constraints:       payloadOptString(p, "constraints"),
			ArchitectureNotes: payloadOptString(p, "architecture_notes"),
			Links:             payloadOptString(p, "links"),
			ReferenceDocs:     payloadOptString(p, "reference_docs"),
		})
		if err == nil && len(changed) > 0 {
			h.logActivity(ctx, projectID, "project", projectID, "update", map[string]any{"fields": changed})
		}
		return rec.ID, err

	default:
		return "", errors.New("unsupported action")
	}
}

func payloadString(p map[string]any, key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

func payloadOptString(p map[string]any, key string) *string {
	if v, ok := p[key].(string); ok {
		return &v
	}
	return nil
}
