package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/swefoundry/backend/internal/gitops"
	"github.com/swefoundry/backend/internal/store"
)

// withProjectPath resolves the project and hands its path to fn.
func (h *Handlers) withProjectPath(c *gin.Context, fn func(project store.ProjectRecord)) {
	project, err := h.store.GetProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.storeError(c, err, "project not found")
		return
	}
	fn(project)
}

// GitStatus returns `git status --porcelain -b` for the project checkout.
func (h *Handlers) GitStatus(c *gin.Context) {
	h.withProjectPath(c, func(project store.ProjectRecord) {
		c.JSON(http.StatusOK, gitops.Run(c.Request.Context(), project.Path, "status", "--porcelain", "-b"))
	})
}

// GitBranches returns all local and remote branches.
func (h *Handlers) GitBranches(c *gin.Context) {
	h.withProjectPath(c, func(project store.ProjectRecord) {
		c.JSON(http.StatusOK, gitops.Run(c.Request.Context(), project.Path, "branch", "--all"))
	})
}

// GitDiff returns the diff against a ref (default HEAD).
func (h *Handlers) GitDiff(c *gin.Context) {
	h.withProjectPath(c, func(project store.ProjectRecord) {
		ref := c.DefaultQuery("ref", "HEAD")
		c.JSON(http.StatusOK, gitops.Run(c.Request.Context(), project.Path, "diff", ref))
	})
}

// GitLog returns a one-line log for a ref, bounded by limit.
func (h *Handlers) GitLog(c *gin.Context) {
	h.withProjectPath(c, func(project store.ProjectRecord) {
		ref := c.DefaultQuery("ref", "HEAD")
		limit := intQuery(c, "limit", 50)
		c.JSON(http.StatusOK, gitops.Run(c.Request.Context(), project.Path, "log", "-n", strconv.Itoa(limit), "--oneline", ref))
	})
}
