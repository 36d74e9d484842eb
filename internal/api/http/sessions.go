package http

import (
	"context"
	"net/http"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/shlex"
	"go.uber.org/zap"

	"github.com/swefoundry/backend/internal/store"
	"github.com/swefoundry/backend/internal/terminal"
)

// hardenedPrefix pins terminal behavior before the user command runs:
// sane TERM, no XON/XOFF flow control, no CR/NL translation quirks.
const hardenedPrefix = "export TERM=xterm-256color; export COLORTERM=truecolor; " +
	"stty -ixon -icrnl -inlcr; "

type sessionCreateRequest struct {
	Name    string `json:"name" binding:"required"`
	Command string `json:"command"`
	Cwd     string `json:"cwd"`
}

// validateCommand shell-splits the command and checks the executable is
// resolvable, so a typo fails the request instead of spawning a shell
// that dies instantly.
func validateCommand(command string) (string, bool) {
	if command == "" {
		return "/bin/bash", true
	}
	if command == "/bin/bash" || command == "bash" {
		return command, true
	}
	argv, err := shlex.Split(command)
	if err != nil {
		return "", false
	}
	if len(argv) > 0 {
		exe := argv[0]
		if !strings.HasPrefix(exe, "/") {
			if _, err := exec.LookPath(exe); err != nil {
				return "", false
			}
		}
	}
	return command, true
}

// CreateSession spawns a PTY-backed session and persists its row.
func (h *Handlers) CreateSession(c *gin.Context) {
	ctx := c.Request.Context()

	var req sessionCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	command, ok := validateCommand(req.Command)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "command not found on PATH: " + req.Command})
		return
	}

	cwd := req.Cwd
	if cwd != "" {
		resolved, err := resolveDir(cwd)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "working directory not found: " + req.Cwd})
			return
		}
		cwd = resolved
	}

	session, err := h.registry.Create(req.Name, hardenedPrefix+command, cwd, h.touchSessionActivity)
	if err != nil {
		h.logger.Error("session spawn failed",
			zap.String("name", req.Name),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.metrics.SessionsCreated.Inc()
	h.metrics.SessionsActive.Inc()

	info := session.Info()
	if err := h.store.InsertSession(ctx, store.SessionRecord{
		ID:      info.ID,
		Name:    info.Name,
		Command: info.Command,
		Cwd:     info.Cwd,
		PID:     info.PID,
		Status:  string(terminal.StatusRunning),
	}); err != nil {
		h.logger.Error("session row insert failed", zap.String("session_id", info.ID), zap.Error(err))
	}

	c.JSON(http.StatusOK, info)
}

// touchSessionActivity persists the activity timestamp on PTY traffic. It
// runs on the session reader goroutine, so the write uses a background
// context rather than a request context that may be long gone.
func (h *Handlers) touchSessionActivity(sessionID string) {
	if err := h.store.TouchSessionActivity(context.Background(), sessionID); err != nil {
		h.logger.Warn("activity touch failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}

// ListSessions returns all persisted sessions, rechecking liveness: a row
// still marked running whose pid is gone gets relabelled stale.
func (h *Handlers) ListSessions(c *gin.Context) {
	ctx := c.Request.Context()

	rows, err := h.store.ListSessions(ctx)
	if err != nil {
		h.storeError(c, err, "sessions unavailable")
		return
	}

	for i := range rows {
		if rows[i].Status != string(terminal.StatusRunning) || terminal.Alive(rows[i].PID) {
			continue
		}
		rows[i].Status = string(terminal.StatusStale)
		if session, err := h.registry.Get(rows[i].ID); err == nil {
			session.MarkStale()
		}
		if err := h.store.SetSessionStatus(ctx, rows[i].ID, string(terminal.StatusStale)); err != nil {
			h.logger.Warn("stale relabel failed", zap.String("session_id", rows[i].ID), zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, rows)
}

// SessionArchive lists session rows joined with their assigned tickets.
func (h *Handlers) SessionArchive(c *gin.Context) {
	ctx := c.Request.Context()

	status := strings.ToLower(c.DefaultQuery("status", "closed"))
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)

	items, total, err := h.store.SessionArchive(ctx, status, limit, offset)
	if err != nil {
		h.storeError(c, err, "archive unavailable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": total})
}

// DeleteSession tears the live session down and marks the row closed. The
// row update happens even when the registry no longer knows the id, so
// stale rows can still be archived.
func (h *Handlers) DeleteSession(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	if err := h.registry.Delete(id); err == nil {
		h.metrics.SessionsActive.Dec()
	}
	if err := h.store.SetSessionStatus(ctx, id, string(terminal.StatusClosed)); err != nil {
		h.storeError(c, err, "session not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// resolveDir expands ~ and resolves the path, requiring an existing
// directory.
func resolveDir(path string) (string, error) {
	expanded, err := expandHome(path)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", err
	}
	if err := requireDir(abs); err != nil {
		return "", err
	}
	return abs, nil
}
