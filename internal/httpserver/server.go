package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/tinytelemetry/logreport/internal/aggregate"
	"github.com/tinytelemetry/logreport/internal/analyzer"
	"github.com/tinytelemetry/logreport/internal/model"
)

const (
	defaultListLimit = 20
	maxListLimit     = 1000
)

var reportNamePattern = regexp.MustCompile(`^report-\d{4}\.\d{2}\.\d{2}\.html$`)

// Runner triggers one pipeline run without waiting for a run in progress.
type Runner interface {
	TryRun(ctx context.Context) (model.Outcome, error)
}

// Config holds the HTTP API settings.
type Config struct {
	Addr      string
	ReportDir string
}

// Server provides an HTTP API over the report history.
type Server struct {
	addr      string
	boundAddr string
	reportDir string
	store     model.HistoryReader
	runner    Runner
	server    *http.Server
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates a new HTTP API server. runner may be nil, in which case
// POST /api/runs answers 503.
func NewServer(conf Config, store model.HistoryReader, runner Runner) *Server {
	addr := conf.Addr
	if addr == "" {
		addr = "127.0.0.1:3000"
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:      addr,
		reportDir: conf.ReportDir,
		store:     store,
		runner:    runner,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/api/health", s.handleHealth)
	r.GET("/api/runs", s.handleListRuns)
	r.POST("/api/runs", s.handleTriggerRun)
	r.GET("/api/runs/:id", s.handleGetRun)
	r.GET("/api/runs/:id/rows", s.handleRunRows)
	r.GET("/api/trend", s.handleTrend)
	r.GET("/reports/:name", s.handleReport)
	return r
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Handler:           s.Handler(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute, // POST /api/runs parses a whole log
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.startTime = time.Now()
	s.boundAddr = listener.Addr().String()
	log.Info().Str("addr", s.boundAddr).Msg("httpserver: listening")

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("httpserver: serve failed")
		}
	}()
	return nil
}

// Addr returns the listening address once started, or the configured one.
func (s *Server) Addr() string {
	if s.boundAddr != "" {
		return s.boundAddr
	}
	return s.addr
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func queryLimit(c *gin.Context, def int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return 0, false
	}
	return min(n, maxListLimit), true
}

func (s *Server) handleHealth(c *gin.Context) {
	runs, err := s.store.TotalRuns()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read health metrics"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"uptime":    time.Since(s.startTime).String(),
		"run_count": runs,
	})
}

func (s *Server) handleListRuns(c *gin.Context) {
	limit, ok := queryLimit(c, defaultListLimit)
	if !ok {
		return
	}
	runs, err := s.store.ListRuns(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}
	if runs == nil {
		runs = []model.RunSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

func (s *Server) handleGetRun(c *gin.Context) {
	run, err := s.store.GetRun(c.Param("id"))
	if errors.Is(err, model.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read run"})
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Server) handleRunRows(c *gin.Context) {
	limit, ok := queryLimit(c, 0)
	if !ok {
		return
	}
	id := c.Param("id")
	if _, err := s.store.GetRun(id); err != nil {
		if errors.Is(err, model.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read run"})
		return
	}

	rows, err := s.store.RunRows(id, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read run rows"})
		return
	}
	if rows == nil {
		rows = model.Table{}
	}
	c.JSON(http.StatusOK, gin.H{"run_id": id, "rows": rows, "count": len(rows)})
}

func (s *Server) handleTrend(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing url parameter"})
		return
	}
	limit, ok := queryLimit(c, 30)
	if !ok {
		return
	}
	points, err := s.store.URLTrend(url, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read trend"})
		return
	}
	if points == nil {
		points = []model.TrendPoint{}
	}
	c.JSON(http.StatusOK, gin.H{"url": url, "points": points})
}

func (s *Server) handleTriggerRun(c *gin.Context) {
	if s.runner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "runs are disabled"})
		return
	}

	out, err := s.runner.TryRun(c.Request.Context())
	switch {
	case err == nil:
		c.JSON(http.StatusOK, out)
	case errors.Is(err, analyzer.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, analyzer.ErrThresholdExceeded), errors.Is(err, aggregate.ErrNoValidLines):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Msg("httpserver: triggered run failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (s *Server) handleReport(c *gin.Context) {
	name := c.Param("name")
	if s.reportDir == "" || !reportNamePattern.MatchString(name) {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		return
	}
	c.File(filepath.Join(s.reportDir, name))
}
