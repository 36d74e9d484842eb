package http

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
)

type fsEntry struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Path string `json:"path"`
}

// BrowseFS lists a directory anywhere on the host, with ~ expansion. Used
// by the frontend's working-directory picker.
func (h *Handlers) BrowseFS(c *gin.Context) {
	target, err := resolveDir(c.DefaultQuery("path", "~"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "path not found or not a directory"})
		return
	}

	entries, err := readVisibleEntries(target)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "permission denied"})
		return
	}

	items := make([]fsEntry, 0, len(entries))
	for _, e := range entries {
		entry := fsEntry{Name: e.Name(), Type: "file", Path: filepath.Join(target, e.Name())}
		if e.IsDir() {
			entry.Type = "dir"
		}
		items = append(items, entry)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if (items[i].Type == "dir") != (items[j].Type == "dir") {
			return items[i].Type == "dir"
		}
		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	})

	var parent any
	if p := filepath.Dir(target); p != target {
		parent = p
	}
	c.JSON(http.StatusOK, gin.H{
		"path":    target,
		"parent":  parent,
		"entries": items,
	})
}

// expandHome substitutes a leading ~ with the current user's home.
func expandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}

// requireDir fails unless path exists and is a directory.
func requireDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", path)
	}
	return nil
}

// readVisibleEntries reads a directory, dropping dotfiles.
func readVisibleEntries(dir string) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := entries[:0]
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
