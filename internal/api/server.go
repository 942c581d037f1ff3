// Package api provides HTTP handlers and the main API server logic for IntakeFlow.
//
// It exposes RESTful endpoints for creating intake sessions, submitting step
// answers, navigating back, and reading checkpoint and submission state. The
// API integrates with the funnel engine and the store modules.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/BTreeMap/IntakeFlow/internal/funnel"
	"github.com/BTreeMap/IntakeFlow/internal/store"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// DefaultShutdownTimeout bounds graceful shutdown on Stop.
const DefaultShutdownTimeout = 10 * time.Second

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr overrides the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// Server hosts the intake HTTP API.
type Server struct {
	engine *funnel.Engine
	st     store.Store
	addr   string
	httpd  *http.Server
}

// NewServer creates an API server over the given engine and store.
func NewServer(engine *funnel.Engine, st store.Store, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		engine: engine,
		st:     st,
		addr:   cfg.Addr,
	}
}

// Handler returns the routed HTTP handler. Exposed separately so tests can
// drive the API without binding a socket.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/sessions", s.createSessionHandler)
	mux.HandleFunc("/sessions/", s.sessionsHandler)
	mux.HandleFunc("/health", s.healthHandler)
	return mux
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	s.httpd = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}
	slog.Info("IntakeFlow API running", "addr", s.addr)
	if err := s.httpd.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpd == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, DefaultShutdownTimeout)
	defer cancel()
	return s.httpd.Shutdown(ctx)
}
