// Package daemonhttp implements the local summarize daemon's HTTP
// surface: job submission, SSE subscription, slide image/snapshot
// serving, and a liveness/stats surface. Built around an options
// pattern, an http.Server with Read/Write/IdleTimeout, and a
// middleware chain run over a single http.ServeMux.
package daemonhttp

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/shaneholloman/summarize/internal/metacache"
	"github.com/shaneholloman/summarize/internal/model"
	"github.com/shaneholloman/summarize/internal/orchestrator"
	"github.com/shaneholloman/summarize/internal/streammerge"
)

// Server is the daemon's HTTP front end.
type Server struct {
	Orchestrator *orchestrator.Orchestrator
	Bus          *streammerge.Bus
	Registry     *model.Registry
	Cache        *metacache.Store

	// SlidesDir is the configured base directory under which every
	// slidesDir (<SlidesDir>/<sourceId>) lives. Image serving is
	// refused outside it.
	SlidesDir string

	// Token is the bearer token every endpoint but the liveness ping
	// requires.
	Token string

	// RateLimiter, if set, throttles every request per remote IP
	// before auth runs.
	RateLimiter RateLimiter

	Logger *logrus.Logger

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	startTime time.Time
	server    *http.Server
	jobs      *jobRegistry
}

// Option configures a Server at construction time.
type Option func(*Server)

// WithLogger overrides the default standard logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(s *Server) { s.Logger = logger }
}

// NewServer builds a Server listening on addr (e.g. ":4173").
func NewServer(addr string, opts ...Option) *Server {
	s := &Server{
		startTime:    time.Now(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE responses can run far longer than a fixed write timeout allows
		IdleTimeout:  60 * time.Second,
		jobs:         newJobRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		IdleTimeout:  s.IdleTimeout,
	}
	return s
}

func (s *Server) logger() *logrus.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return logrus.StandardLogger()
}

// Start begins serving and blocks until the listener stops.
func (s *Server) Start() error {
	s.logger().WithField("addr", s.server.Addr).Info("starting daemon")
	s.server.ReadTimeout = s.ReadTimeout
	s.server.WriteTimeout = s.WriteTimeout
	s.server.IdleTimeout = s.IdleTimeout
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server; wired from cmd/summarized's
// signal.Notify handler.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger().Info("shutting down daemon")
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/live", s.handleLiveness)
	mux.HandleFunc("GET /v1/stats", s.handleStats)
	mux.HandleFunc("POST /v1/summarize", s.handleCreateSummarize)
	mux.HandleFunc("GET /v1/summarize/{id}/events", s.handleEvents)
	mux.HandleFunc("GET /v1/slides/{sourceId}/{index}", s.handleSlideImage)
	mux.HandleFunc("GET /v1/slides/{runId}/snapshot", s.handleSlidesSnapshot)

	return s.withMiddleware(mux)
}

func (s *Server) withMiddleware(h http.Handler) http.Handler {
	authed := s.authMiddleware(h)
	// RateLimiter is read per request so a limiter assigned after
	// NewServer still applies.
	chain := http.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rateLimitMiddleware(s.RateLimiter, authed).ServeHTTP(w, r)
	}))
	chain = requestLogMiddleware(s.logger(), chain)
	chain = recoveryMiddleware(s.logger(), chain)
	return chain
}

// handleLiveness is the one endpoint exempt from bearer auth.
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"ok": true, "uptime": time.Since(s.startTime).String()})
}

// handleStats is a small read-only status surface: uptime, goroutine
// count, and the number of runs registered since the daemon started.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]any{
		"ok":         true,
		"uptime":     time.Since(s.startTime).String(),
		"goroutines": runtime.NumGoroutine(),
		"jobs":       s.jobs.count(),
	}
	respondJSON(w, http.StatusOK, stats)
}
