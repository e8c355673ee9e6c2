package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tinytelemetry/snowpulse/internal/consume"
)

// SnapshotSource exposes the aggregate view read by the API. Implementations
// must return copies safe for concurrent use, never live state.
type SnapshotSource interface {
	Snapshot() map[string]float64
	Counts() map[string]int64
}

// LoopStats reports consumption progress counters.
type LoopStats interface {
	Stats() consume.Stats
}

// StoreReader is the narrow store contract required by the API.
type StoreReader interface {
	EventCount(ctx context.Context) (int64, error)
}

// Server exposes aggregate snapshots and consumer health over HTTP.
type Server struct {
	addr      string
	source    SnapshotSource
	loop      LoopStats
	store     StoreReader
	server    *http.Server
	listener  net.Listener
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates the snapshot API server.
func NewServer(addr string, source SnapshotSource, loop LoopStats, store StoreReader) *Server {
	if addr == "" {
		addr = "0.0.0.0:3000"
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:   addr,
		source: source,
		loop:   loop,
		store:  store,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/api/health", s.handleHealth)
	r.GET("/api/sentiment", s.handleSentiment)

	s.server = &http.Server{
		Handler:           r,
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

	go s.server.Serve(listener)
	return nil
}

// Addr returns the bound listen address, useful when the configured port is 0.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	stored, err := s.store.EventCount(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read stored event count"})
		return
	}

	stats := s.loop.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":               "ok",
		"uptime":               time.Since(s.startTime).String(),
		"stored_events":        stored,
		"processed":            stats.Processed,
		"malformed":            stats.Malformed,
		"persistence_failures": stats.Failed,
	})
}

func (s *Server) handleSentiment(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"averages": s.source.Snapshot(),
		"counts":   s.source.Counts(),
	})
}
