// Package api serves archive lookups over HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/weavearchive/internal/core/domain"
	"github.com/vietddude/weavearchive/internal/indexing/health"
)

// Lookup resolves archive records. Absent records are nil, nil.
type Lookup interface {
	GetByNumber(ctx context.Context, blockNumber uint64) (*domain.ArchiveRecord, error)
	GetByHash(ctx context.Context, blockHash string) (*domain.ArchiveRecord, error)
}

// Server provides the lookup, health and metrics endpoints.
type Server struct {
	store   Lookup
	monitor *health.Monitor
	log     *slog.Logger
	engine  *gin.Engine
	server  *http.Server
}

// NewServer creates a new API server listening on port.
func NewServer(store Lookup, monitor *health.Monitor, port int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		store:   store,
		monitor: monitor,
		log:     logger.With("component", "api"),
		engine:  gin.New(),
	}
	s.engine.Use(gin.Recovery(), s.requestLogger())

	s.engine.GET("/", s.handleGM)
	s.engine.GET("/block/id/:id", s.handleBlockByID)
	s.engine.GET("/block/hash/:hash", s.handleBlockByHash)
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleGM(c *gin.Context) {
	c.String(http.StatusOK, "WeaveGM!")
}

func (s *Server) handleBlockByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid block id"})
		return
	}
	rec, err := s.store.GetByNumber(c.Request.Context(), id)
	s.respond(c, rec, err, "block", id)
}

func (s *Server) handleBlockByHash(c *gin.Context) {
	hash := c.Param("hash")
	rec, err := s.store.GetByHash(c.Request.Context(), hash)
	s.respond(c, rec, err, "hash", hash)
}

func (s *Server) respond(c *gin.Context, rec *domain.ArchiveRecord, err error, key string, value any) {
	switch {
	case err != nil:
		s.log.Error("lookup failed", key, value, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error fetching block"})
	case rec == nil:
		c.JSON(http.StatusNotFound, gin.H{"error": "block not found"})
	default:
		c.JSON(http.StatusOK, rec)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	report := s.monitor.CheckHealth(c.Request.Context())

	status := http.StatusOK
	if report.SystemStatus == health.StatusCritical {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
