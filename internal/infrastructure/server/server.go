// Package server assembles the application: store, session registry,
// REST handlers, WebSocket bridge, middleware, and the SPA fallback.
package server

import (
	"context"
	"fmt"
	nethttp "net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/swefoundry/backend/internal/api/http"
	"github.com/swefoundry/backend/internal/api/middleware"
	"github.com/swefoundry/backend/internal/api/ws"
	"github.com/swefoundry/backend/internal/copilot"
	"github.com/swefoundry/backend/internal/infrastructure/config"
	"github.com/swefoundry/backend/internal/infrastructure/logging"
	"github.com/swefoundry/backend/internal/infrastructure/monitoring"
	"github.com/swefoundry/backend/internal/store"
	"github.com/swefoundry/backend/internal/terminal"
)

const shutdownGrace = 10 * time.Second

// Server wraps the HTTP server and its dependencies.
type Server struct {
	router   *gin.Engine
	httpSrv  *nethttp.Server
	registry *terminal.Registry
	store    *store.Store
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
}

// NewServer wires everything together. Sessions that were marked running
// by a previous process are relabelled stale on startup: their PTYs died
// with that process.
func NewServer(cfg *config.Config) (*Server, error) {
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Development)

	logger.Info("initializing server",
		zap.String("port", cfg.Server.Port),
		zap.String("db_path", cfg.Store.Path),
	)

	metrics := monitoring.NewMetrics()

	st, err := store.Open(cfg.Store.Path, cfg.Store.PoolSize, logger.Logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := st.MarkRunningSessionsStale(context.Background()); err != nil {
		logger.Warn("stale session sweep failed", zap.Error(err))
	}

	registry := terminal.NewRegistry(cfg.Terminal.HistoryMaxBytes, logger.Logger)

	var copilotClient *copilot.Client
	if cfg.OpenAI.APIKey != "" {
		copilotClient = copilot.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL, logger.Logger)
		logger.Info("copilot enabled", zap.String("model", cfg.OpenAI.Model))
	} else {
		logger.Info("copilot disabled, OPENAI_API_KEY not set")
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(cfg.Server.CORSAllowOrigins))
	if cfg.RateLimit.Enabled {
		logger.Info("rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(float64(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst))
	}

	handlers := http.NewHandlers(registry, st, metrics, copilotClient, logger.Logger)
	bridge := ws.NewBridge(registry, metrics, logger.Logger)

	registerRoutes(router, handlers, bridge, metrics)
	registerSPA(router, cfg.Server.FrontendDist, logger.Logger)

	logger.Info("server initialized")

	return &Server{
		router:   router,
		registry: registry,
		store:    st,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
	}, nil
}

func registerRoutes(router *gin.Engine, h *http.Handlers, bridge *ws.Bridge, metrics *monitoring.Metrics) {
	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api")
	{
		api.POST("/sessions", h.CreateSession)
		api.GET("/sessions", h.ListSessions)
		api.GET("/sessions/archive", h.SessionArchive)
		api.DELETE("/sessions/:id", h.DeleteSession)

		api.GET("/ws/:id", bridge.HandleAttach)

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
}

// registerSPA serves the built frontend when a dist directory is
// configured. Unmatched non-API routes fall back to index.html so
// client-side routing works on refresh.
func registerSPA(router *gin.Engine, dist string, logger *zap.Logger) {
	if dist == "" {
		return
	}
	index := filepath.Join(dist, "index.html")
	if _, err := os.Stat(index); err != nil {
		logger.Warn("frontend dist not found, SPA disabled", zap.String("dist", dist))
		return
	}

	router.Static("/assets", filepath.Join(dist, "assets"))
	router.GET("/", func(c *gin.Context) { c.File(index) })
	router.NoRoute(func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/") {
			c.JSON(nethttp.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		if file := filepath.Join(dist, filepath.Clean("/"+path)); fileExists(file) {
			c.File(file)
			return
		}
		c.File(index)
	})
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Run serves until ctx is cancelled, then drains in-flight requests,
// closes every live session, and closes the store.
func (s *Server) Run(ctx context.Context) error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.httpSrv = &nethttp.Server{Addr: addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && err != nethttp.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		s.closeResources()
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("shutdown timed out", zap.Error(err))
	}
	<-errCh

	s.closeResources()
	return nil
}

func (s *Server) closeResources() {
	s.registry.CloseAll()
	if err := s.store.Close(); err != nil {
		s.logger.Warn("store close failed", zap.Error(err))
	}
	s.logger.Sync()
}
