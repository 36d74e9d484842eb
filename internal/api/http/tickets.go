package http

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/swefoundry/backend/internal/store"
	"github.com/swefoundry/backend/internal/terminal"
)

// assignInjectionDelay gives interactive CLIs in the target session time
// to finish booting before the instruction text lands on stdin.
const assignInjectionDelay = time.Second

type ticketCreateRequest struct {
	ProjectID       string `json:"project_id" binding:"required"`
	Title           string `json:"title" binding:"required"`
	Description     string `json:"description"`
	SuccessCriteria string `json:"success_criteria"`
	BranchName      string `json:"branch_name"`
	WorktreePath    string `json:"worktree_path"`
}

type ticketUpdateRequest struct {
	Title           *string `json:"title"`
	Description     *string `json:"description"`
	SuccessCriteria *string `json:"success_criteria"`
	Status          *string `json:"status"`
	SessionID       *string `json:"session_id"`
	BranchName      *string `json:"branch_name"`
	WorktreePath    *string `json:"worktree_path"`
}

// slugify lowercases the title into a branch-safe slug, capped at 40 runes.
func slugify(value string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(value) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('-')
		}
	}
	slug := b.String()
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	slug = strings.Trim(slug, "-")
	if runes := []rune(slug); len(runes) > 40 {
		slug = string(runes[:40])
	}
	if slug == "" {
		return "ticket"
	}
	return slug
}

// CreateTicket inserts a pending ticket. Branch and worktree default to
// values derived from the slugified title.
func (h *Handlers) CreateTicket(c *gin.Context) {
	ctx := c.Request.Context()

	var req ticketCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	rec, err := h.createTicket(ctx, store.TicketRecord{
		ProjectID:       req.ProjectID,
		Title:           req.Title,
		Description:     req.Description,
		SuccessCriteria: req.SuccessCriteria,
		BranchName:      req.BranchName,
		WorktreePath:    req.WorktreePath,
	})
	if err != nil {
		if errors.Is(err, errEmptyTitle) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "title cannot be empty"})
			return
		}
		h.storeError(c, err, "project not found")
		return
	}
	c.JSON(http.StatusOK, rec)
}

var errEmptyTitle = errors.New("title cannot be empty")

// createTicket validates, fills branch/worktree defaults derived from the
// slugified title, inserts the row, and logs the activity. Shared by the
// REST endpoint and the copilot action executor.
func (h *Handlers) createTicket(ctx context.Context, rec store.TicketRecord) (store.TicketRecord, error) {
	project, err := h.store.GetProject(ctx, rec.ProjectID)
	if err != nil {
		return store.TicketRecord{}, err
	}

	rec.Title = strings.TrimSpace(rec.Title)
	if rec.Title == "" {
		return store.TicketRecord{}, errEmptyTitle
	}

	// Branch and worktree defaults embed the ticket id, so the id is
	// minted here rather than by the store.
	rec.ID = uuid.NewString()
	if rec.BranchName == "" {
		rec.BranchName = "ticket-" + strings.SplitN(rec.ID, "-", 2)[0] + "-" + slugify(rec.Title)
	}
	if rec.WorktreePath == "" {
		rec.WorktreePath = filepath.Join(project.Path, ".worktrees", rec.BranchName)
	}

	created, err := h.store.CreateTicket(ctx, rec)
	if err != nil {
		return store.TicketRecord{}, err
	}
	h.logActivity(ctx, rec.ProjectID, "ticket", created.ID, "create", map[string]any{"title": rec.Title})
	return created, nil
}

// ListTickets returns tickets, optionally scoped to one project.
func (h *Handlers) ListTickets(c *gin.Context) {
	rows, err := h.store.ListTickets(c.Request.Context(), c.Query("project_id"))
	if err != nil {
		h.storeError(c, err, "tickets unavailable")
		return
	}
	c.JSON(http.StatusOK, rows)
}

// UpdateTicket applies a partial update with status validation.
func (h *Handlers) UpdateTicket(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	var req ticketUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	if req.Title != nil {
		trimmed := strings.TrimSpace(*req.Title)
		if trimmed == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "title cannot be empty"})
			return
		}
		req.Title = &trimmed
	}
	if req.Status != nil && !store.ValidTicketStatus(*req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status: " + *req.Status})
		return
	}

	rec, err := h.updateTicket(ctx, id, store.TicketUpdate{
		Title:           req.Title,
		Description:     req.Description,
		SuccessCriteria: req.SuccessCriteria,
		Status:          req.Status,
		SessionID:       req.SessionID,
		BranchName:      req.BranchName,
		WorktreePath:    req.WorktreePath,
	})
	if err != nil {
		h.storeError(c, err, "ticket not found")
		return
	}
	c.JSON(http.StatusOK, rec)
}

// updateTicket applies a partial update and logs the changed fields.
func (h *Handlers) updateTicket(ctx context.Context, id string, upd store.TicketUpdate) (store.TicketRecord, error) {
	rec, changed, err := h.store.UpdateTicket(ctx, id, upd)
	if err != nil {
		return store.TicketRecord{}, err
	}
	if len(changed) > 0 {
		h.logActivity(ctx, rec.ProjectID, "ticket", id, "update", map[string]any{"fields": changed})
	}
	return rec, nil
}

// DeleteTicket removes a ticket row.
func (h *Handlers) DeleteTicket(c *gin.Context) {
	if err := h.deleteTicket(c.Request.Context(), c.Param("id")); err != nil {
		h.storeError(c, err, "ticket not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) deleteTicket(ctx context.Context, id string) error {
	rec, err := h.store.GetTicket(ctx, id)
	if err != nil {
		return err
	}
	if err := h.store.DeleteTicket(ctx, id); err != nil {
		return err
	}
	h.logActivity(ctx, rec.ProjectID, "ticket", id, "delete", map[string]any{})
	return nil
}

// AssignTicket binds a ticket to a live session, marks it in progress,
// and injects the ticket instructions into the session's PTY after a
// short delay.
func (h *Handlers) AssignTicket(c *gin.Context) {
	updated, err := h.assignTicket(c.Request.Context(), c.Param("id"), c.Param("session_id"))
	if err != nil {
		if errors.Is(err, terminal.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		h.storeError(c, err, "ticket not found")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// assignTicket is the shared assignment path for the REST endpoint and
// the copilot action executor.
func (h *Handlers) assignTicket(ctx context.Context, ticketID, sessionID string) (store.TicketRecord, error) {
	rec, err := h.store.GetTicket(ctx, ticketID)
	if err != nil {
		return store.TicketRecord{}, err
	}
	session, err := h.registry.Get(sessionID)
	if err != nil {
		return store.TicketRecord{}, err
	}

	if text := assignmentText(rec); text != "" {
		payload := []byte(text + "\n")
		time.AfterFunc(assignInjectionDelay, func() {
			if wErr := session.Write(payload); wErr != nil {
				h.logger.Warn("assignment injection failed",
					zap.String("ticket_id", ticketID),
					zap.String("session_id", sessionID),
					zap.Error(wErr),
				)
			}
		})
	}

	updated, err := h.store.AssignTicket(ctx, ticketID, sessionID)
	if err != nil {
		return store.TicketRecord{}, err
	}
	h.logActivity(ctx, rec.ProjectID, "ticket", ticketID, "assign", map[string]any{"session_id": sessionID})
	return updated, nil
}

// assignmentText renders the instruction block typed into the session.
func assignmentText(rec store.TicketRecord) string {
	var b strings.Builder
	if rec.BranchName != "" && rec.WorktreePath != "" {
		b.WriteString("# Ticket assignment\n")
		b.WriteString("# Please create/checkout branch: " + rec.BranchName + "\n")
		b.WriteString("# Suggested worktree path: " + rec.WorktreePath + "\n")
	}
	b.WriteString(rec.Description)
	return strings.TrimSpace(b.String())
}
