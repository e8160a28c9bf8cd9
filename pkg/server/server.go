// Package server implements the extract viewer web service: an upload form,
// an HTML summary page with a node map, and a JSON summary API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/osmatelier/osmatelier/pkg/monitoring"
	"github.com/osmatelier/osmatelier/pkg/version"
)

// Config holds the viewer service configuration.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// MaxUploadBytes caps the size of an uploaded extract.
	MaxUploadBytes int64

	// RateRPS and RateBurst configure per-IP request limiting.
	RateRPS   float64
	RateBurst int

	Logger *slog.Logger
}

func (c *Config) withDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.MaxUploadBytes == 0 {
		c.MaxUploadBytes = 2 << 30 // 2 GiB
	}
	if c.RateRPS == 0 {
		c.RateRPS = 10
	}
	if c.RateBurst == 0 {
		c.RateBurst = 20
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Server is the extract viewer HTTP service.
type Server struct {
	cfg      Config
	logger   *slog.Logger
	health   *monitoring.HealthChecker
	limiter  *RateLimiter
	spoolMon *monitoring.ConnectionMonitor
	httpSrv  *http.Server
}

// New creates a viewer server.
func New(cfg Config) *Server {
	cfg.withDefaults()

	s := &Server{
		cfg:     cfg,
		logger:  cfg.Logger,
		health:  monitoring.NewHealthChecker(monitoring.ServiceName, version.BuildVersion),
		limiter: NewRateLimiter(rate.Limit(cfg.RateRPS), cfg.RateBurst),
	}

	// Uploads spool to the temp dir, so /health degrades when it fills up.
	s.spoolMon = monitoring.NewConnectionMonitor("spool_dir", s.health, checkSpoolDir, 30*time.Second)
	s.spoolMon.Start()

	s.httpSrv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// Uploads of large extracts take a while.
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  90 * time.Second,
	}

	return s
}

// checkSpoolDir verifies an upload could still be spooled to disk.
func checkSpoolDir() error {
	f, err := os.CreateTemp("", "spoolcheck-*")
	if err != nil {
		return fmt.Errorf("temp dir not writable: %w", err)
	}
	name := f.Name()
	_, werr := f.Write([]byte("ok"))
	cerr := f.Close()
	os.Remove(name)
	if werr != nil {
		return werr
	}
	return cerr
}

// Health exposes the health checker so callers can register probes.
func (s *Server) Health() *monitoring.HealthChecker {
	return s.health
}

// Handler builds the route table wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("POST /api/summary", s.handleSummaryAPI)

	mux.HandleFunc("GET /health", s.health.HealthHandler())
	mux.HandleFunc("GET /ready", s.health.ReadinessHandler())
	mux.HandleFunc("GET /live", s.health.LivenessHandler())

	var handler http.Handler = mux
	handler = RequestSizeLimiter(s.cfg.MaxUploadBytes)(handler)
	handler = s.limiter.Middleware(handler)
	handler = TracingMiddleware()(handler)
	handler = LoggingMiddleware(s.logger)(handler)
	handler = SecurityHeaders(handler)

	return handler
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.logger.Info("viewer listening", "addr", s.cfg.Addr)
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server and its background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	s.spoolMon.Stop()
	s.health.Shutdown()
	return s.httpSrv.Shutdown(ctx)
}
