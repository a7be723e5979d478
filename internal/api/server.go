// Package api exposes the engine's run entry point over HTTP: POST /run to
// decompose-execute-consolidate a query synchronously, GET /runs/{run_id} to
// replay a prior run's stored summary, GET /metrics for Prometheus scraping,
// and an optional websocket stream of per-run progress events.
//
// Grounded on cklxx-elephant.ai's internal/webui/server.go (gin.Engine +
// gin-contrib/cors + gorilla/websocket.Upgrader wiring), generalized from
// that server's session/message routes to this engine's run/runs routes;
// the route shapes themselves follow base spec §6's external interfaces.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aj002fr/depgraph/internal/engine"
	"github.com/aj002fr/depgraph/internal/models"
	"github.com/aj002fr/depgraph/internal/orchestrator"
)

// Server is the engine's HTTP surface.
type Server struct {
	Engine *engine.Engine
	Hub    *orchestrator.Hub

	router     *gin.Engine
	httpServer *http.Server
	upgrader   websocket.Upgrader
}

// Config tunes the HTTP listener.
type Config struct {
	Addr         string
	Debug        bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig mirrors the teacher's DefaultServerConfig defaults.
func DefaultConfig() Config {
	return Config{Addr: ":8080", ReadTimeout: 30 * time.Second, WriteTimeout: 30 * time.Second}
}

// NewServer builds a Server around an Engine and an optional progress Hub
// (nil disables the websocket route).
func NewServer(eng *engine.Engine, hub *orchestrator.Hub, cfg Config) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.AllowWebSockets = true
	router.Use(cors.New(corsConfig))

	s := &Server{
		Engine: eng,
		Hub:    hub,
		router: router,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.routes()
	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) routes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.router.POST("/run", s.handleRun)
	s.router.GET("/runs/:run_id", s.handleGetRun)
	if s.Hub != nil {
		s.router.GET("/runs/:run_id/stream", s.handleStream)
	}
}

// ListenAndServe starts the HTTP server and blocks until it exits.
func (s *Server) ListenAndServe() error {
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully drains the HTTP server within the given context.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type runRequest struct {
	Query          string `json:"query" binding:"required"`
	MaxSubtasks    int    `json:"max_subtasks"`
	SkipValidation bool   `json:"skip_validation"`
	MaxParallel    int    `json:"max_parallel"`
	TaskTimeoutMS  int64  `json:"task_timeout_ms"`
}

func (s *Server) handleRun(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	opts := models.RunOptions{
		MaxSubtasks:    req.MaxSubtasks,
		SkipValidation: req.SkipValidation,
		MaxParallel:    req.MaxParallel,
		TaskTimeoutMS:  req.TaskTimeoutMS,
	}
	result, err := s.Engine.Run(c.Request.Context(), req.Query, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetRun(c *gin.Context) {
	runID := c.Param("run_id")
	summary, err := s.Engine.Store.GetRunSummary(c.Request.Context(), runID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// handleStream upgrades to a websocket and relays every Hub event published
// for run_id until the client disconnects.
func (s *Server) handleStream(c *gin.Context) {
	runID := c.Param("run_id")
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ch, unsubscribe := s.Hub.Subscribe(runID)
	defer unsubscribe()

	for msg := range ch {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}
