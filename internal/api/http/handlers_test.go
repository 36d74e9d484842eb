package http

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/swefoundry/backend/internal/copilot"
	"github.com/swefoundry/backend/internal/infrastructure/monitoring"
	"github.com/swefoundry/backend/internal/store"
	"github.com/swefoundry/backend/internal/terminal"
)

type testEnv struct {
	handlers *Handlers
	router   *gin.Engine
	store    *store.Store
	registry *terminal.Registry
}

func newTestEnv(t *testing.T, copilotClient *copilot.Client) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), 2, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	registry := terminal.NewRegistry(1<<20, zap.NewNop())
	t.Cleanup(registry.CloseAll)

	h := NewHandlers(registry, st, monitoring.NewMetrics(), copilotClient, zap.NewNop())

	router := gin.New()
	api := router.Group("/api")
	{
		api.POST("/sessions", h.CreateSession)
		api.GET("/sessions", h.ListSessions)
		api.GET("/sessions/archive", h.SessionArchive)
		api.DELETE("/sessions/:id", h.DeleteSession)

		api.POST("/projects", h.CreateProject)
		api.GET("/projects", h.ListProjects)
		api.PATCH("/projects/:id", h.UpdateProject)
		api.DELETE("/projects/:id", h.DeleteProject)
		api.GET("/projects/:id/files", h.ProjectFiles)
		api.GET("/projects/:id/git/status", h.GitStatus)
		api.GET("/projects/:id/git/branches", h.GitBranches)
		api.GET("/projects/:id/git/diff", h.GitDiff)
		api.GET("/projects/:id/git/log", h.GitLog)

		api.POST("/tickets", h.CreateTicket)
		api.GET("/tickets", h.ListTickets)
		api.PATCH("/tickets/:id", h.UpdateTicket)
		api.DELETE("/tickets/:id", h.DeleteTicket)
		api.POST("/tickets/:id/assign/:session_id", h.AssignTicket)

		api.POST("/project-memory", h.CreateMemory)
		api.GET("/project-memory", h.ListMemory)
		api.PATCH("/project-memory/:id", h.UpdateMemory)
		api.DELETE("/project-memory/:id", h.DeleteMemory)

		api.GET("/activity", h.ListActivity)
		api.GET("/fs", h.BrowseFS)

		api.GET("/chat/threads", h.ListThreads)
		api.POST("/chat/threads", h.CreateThread)
		api.GET("/chat/messages", h.ListMessages)
		api.POST("/copilot/query", h.CopilotQuery)
	}
	router.GET("/health", h.Health)

	return &testEnv{handlers: h, router: router, store: st, registry: registry}
}

// do runs one request through the router and decodes the JSON body into out
// (skipped when out is nil).
func (e *testEnv) do(t *testing.T, method, path string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := sonic.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	if out != nil && rec.Code < 300 {
		require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), out),
			"undecodable body: %s", rec.Body.String())
	}
	return rec
}

// createProject is shared setup for project-scoped tests.
func (e *testEnv) createProject(t *testing.T, dir string) store.ProjectRecord {
	t.Helper()
	var rec store.ProjectRecord
	resp := e.do(t, http.MethodPost, "/api/projects", gin.H{"name": "proj", "path": dir}, &rec)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	return rec
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	resp := env.do(t, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, resp.Code)
}
