package simserver

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tinytelemetry/printwatch/internal/analysisapi"
)

// Server exposes an Engine through the analysis service HTTP API.
type Server struct {
	addr      string
	engine    *Engine
	metrics   *Metrics
	latency   time.Duration
	server    *http.Server
	listener  net.Listener
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates a new simulated analysis service.
func NewServer(addr string, engine *Engine) *Server {
	if addr == "" {
		addr = engine.Config().Addr
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:      addr,
		engine:    engine,
		metrics:   NewMetrics(engine),
		latency:   engine.Config().Latency,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
}

// Handler builds the gin router. Routes are rooted at /api like the real service.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	if s.latency > 0 {
		r.Use(s.delay)
	}

	api := r.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET(analysisapi.PathAnalysisState, s.handleAnalysisState)
	api.GET(analysisapi.PathCurrentFrame, s.handleCurrentFrame)
	api.POST(analysisapi.PathStartAnalysis, s.handleStart)
	api.POST(analysisapi.PathPauseAnalysis, s.handlePause)
	api.POST(analysisapi.PathStopAnalysis, s.handleStop)
	api.POST(analysisapi.PathResetCounters, s.handleReset)
	api.POST(analysisapi.PathSingleStep, s.handleSingleStep)
	api.GET(analysisapi.PathDefectDetails, s.handleDefectDetails)

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})))
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
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.startTime = time.Now()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("simserver: serve error: %v", err)
		}
	}()
	log.Printf("simserver: listening on %s", listener.Addr())
	return nil
}

// Addr returns the bound listen address once started.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
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

func (s *Server) delay(c *gin.Context) {
	select {
	case <-time.After(s.latency):
	case <-c.Request.Context().Done():
	}
	c.Next()
}

func (s *Server) handleHealth(c *gin.Context) {
	frames, defects, running, paused := s.engine.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":           "ok",
		"uptime":           time.Since(s.startTime).String(),
		"frames_processed": frames,
		"defects_detected": defects,
		"running":          running,
		"paused":           paused,
	})
}

func (s *Server) handleAnalysisState(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handleCurrentFrame(c *gin.Context) {
	frame, err := s.engine.Frame()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, frame)
}

func (s *Server) handleStart(c *gin.Context) {
	var req analysisapi.StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	if err := s.engine.Start(req.VideoPath); err != nil {
		writeError(c, err)
		return
	}
	log.Printf("simserver: analysis started (%s)", req.VideoPath)
	c.JSON(http.StatusOK, gin.H{"status": "started"})
}

func (s *Server) handlePause(c *gin.Context) {
	paused, err := s.engine.TogglePause()
	if err != nil {
		writeError(c, err)
		return
	}
	status := "resumed"
	if paused {
		status = "paused"
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

func (s *Server) handleStop(c *gin.Context) {
	if err := s.engine.Stop(); err != nil {
		writeError(c, err)
		return
	}
	log.Printf("simserver: analysis stopped")
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

func (s *Server) handleReset(c *gin.Context) {
	s.engine.ResetCounters()
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

func (s *Server) handleSingleStep(c *gin.Context) {
	if err := s.engine.SingleStep(); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stepped"})
}

func (s *Server) handleDefectDetails(c *gin.Context) {
	defects, err := s.engine.DefectDetails()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"defects": defects})
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, ErrNoFrame):
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
