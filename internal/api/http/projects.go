package http

import (
	"net/http"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"github.com/swefoundry/backend/internal/store"
)

type projectCreateRequest struct {
	Name              string `json:"name" binding:"required"`
	Path              string `json:"path" binding:"required"`
	ProjectGoal       string `json:"project_goal"`
	Constraints       string `json:"constraints"`
	ArchitectureNotes string `json:"architecture_notes"`
	Links             string `json:"links"`
	ReferenceDocs     string `json:"reference_docs"`
}

type projectUpdateRequest struct {
	Name              *string `json:"name"`
	Path              *string `json:"path"`
	ProjectGoal       *string `json:"project_goal"`
	Constraints       *string `json:"constraints"`
	ArchitectureNotes *string `json:"architecture_notes"`
	Links             *string `json:"links"`
	ReferenceDocs     *string `json:"reference_docs"`
}

// CreateProject registers a project rooted at an existing directory.
func (h *Handlers) CreateProject(c *gin.Context) {
	ctx := c.Request.Context()

	var req projectCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	path, err := resolveDir(req.Path)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "directory not found: " + req.Path})
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = filepath.Base(path)
	}

	rec, err := h.store.CreateProject(ctx, store.ProjectRecord{
		Name:              name,
		Path:              path,
		ProjectGoal:       req.ProjectGoal,
		Constraints:       req.Constraints,
		ArchitectureNotes: req.ArchitectureNotes,
		Links:             req.Links,
		ReferenceDocs:     req.ReferenceDocs,
	})
	if err != nil {
		h.storeError(c, err, "project not found")
		return
	}

	h.logActivity(ctx, rec.ID, "project", rec.ID, "create", map[string]any{"name": name})
	c.JSON(http.StatusOK, rec)
}

// ListProjects returns all projects, newest first.
func (h *Handlers) ListProjects(c *gin.Context) {
	rows, err := h.store.ListProjects(c.Request.Context())
	if err != nil {
		h.storeError(c, err, "projects unavailable")
		return
	}
	c.JSON(http.StatusOK, rows)
}

// UpdateProject applies a partial update to a project.
func (h *Handlers) UpdateProject(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	var req projectUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	rec, changed, err := h.store.UpdateProject(ctx, id, store.ProjectUpdate{
		Name:              req.Name,
		Path:              req.Path,
		ProjectGoal:       req.ProjectGoal,
		Constraints:       req.Constraints,
		ArchitectureNotes: req.ArchitectureNotes,
		Links:             req.Links,
		ReferenceDocs:     req.ReferenceDocs,
	})
	if err != nil {
		h.storeError(c, err, "project not found")
		return
	}

	if len(changed) > 0 {
		h.logActivity(ctx, id, "project", id, "update", map[string]any{"fields": changed})
	}
	c.JSON(http.StatusOK, rec)
}

// DeleteProject removes a project row.
func (h *Handlers) DeleteProject(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	if err := h.store.DeleteProject(ctx, id); err != nil {
		h.storeError(c, err, "project not found")
		return
	}
	h.logActivity(ctx, id, "project", id, "delete", map[string]any{})
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type projectFileEntry struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Path string `json:"path"`
	Mime string `json:"mime,omitempty"`
}

// ProjectFiles lists a directory inside the project root. Traversal
// outside the root is rejected, dotfiles are skipped, directories sort
// before files.
func (h *Handlers) ProjectFiles(c *gin.Context) {
	ctx := c.Request.Context()

	project, err := h.store.GetProject(ctx, c.Param("id"))
	if err != nil {
		h.storeError(c, err, "project not found")
		return
	}

	root, err := filepath.Abs(project.Path)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	target := filepath.Clean(filepath.Join(root, c.Query("subpath")))
	if target != root && !strings.HasPrefix(target, root+string(filepath.Separator)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path outside project root"})
		return
	}

	if err := requireDir(target); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "path not found"})
		return
	}

	entries, err := readVisibleEntries(target)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "permission denied"})
		return
	}

	items := make([]projectFileEntry, 0, len(entries))
	for _, e := range entries {
		rel, relErr := filepath.Rel(root, filepath.Join(target, e.Name()))
		if relErr != nil {
			continue
		}
		entry := projectFileEntry{Name: e.Name(), Type: "file", Path: rel}
		if e.IsDir() {
			entry.Type = "dir"
		} else if mt, mErr := mimetype.DetectFile(filepath.Join(target, e.Name())); mErr == nil {
			entry.Mime = mt.String()
		}
		items = append(items, entry)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if (items[i].Type == "dir") != (items[j].Type == "dir") {
			return items[i].Type == "dir"
		}
		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	})

	c.JSON(http.StatusOK, items)
}
