package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/bellaciao/heistops/internal/auth"
	"github.com/bellaciao/heistops/internal/config"
	"github.com/bellaciao/heistops/internal/database"
	"github.com/bellaciao/heistops/internal/web/handlers"
	"github.com/bellaciao/heistops/internal/web/middleware"
	"github.com/bellaciao/heistops/internal/web/sse"
	"github.com/bellaciao/heistops/internal/web/templates"
)

// Options configures the web server
type Options struct {
	Addr       string
	AllowedNet *net.IPNet
	Operator   *auth.Operator
	Timeouts   *config.TimeoutConfig
	Dev        bool
}

// Server represents the web server
type Server struct {
	db        *database.DB
	opts      Options
	router    *chi.Mux
	sseBroker *sse.Broker
	handlers  *handlers.Handlers
}

// NewServer creates a new web server. The broker is shared with background jobs
// that publish events.
func NewServer(db *database.DB, broker *sse.Broker, opts Options) (*Server, error) {
	if opts.Timeouts == nil {
		opts.Timeouts = config.DefaultTimeoutConfig()
	}

	pages, err := templates.Load()
	if err != nil {
		return nil, err
	}

	s := &Server{
		db:        db,
		opts:      opts,
		router:    chi.NewRouter(),
		sseBroker: broker,
		handlers:  handlers.New(db, pages, broker, opts.Dev),
	}
	s.setupRoutes()
	return s, nil
}

// SSEBroker returns the SSE broker for broadcasting events
func (s *Server) SSEBroker() *sse.Broker {
	return s.sseBroker
}

// Handlers returns the page handlers
func (s *Server) Handlers() *handlers.Handlers {
	return s.handlers
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	r := s.router

	// Global middleware (timeout is per-group so SSE connections stay open)
	r.Use(chimiddleware.RequestID)
	// AllowSubnet must come BEFORE RealIP so we check the actual connection source
	r.Use(middleware.AllowSubnet(s.opts.AllowedNet))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.OperatorAuth(s.opts.Operator))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := s.db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})

	// SSE endpoint - no timeout (long-lived connections)
	r.Get("/api/events", s.sseBroker.ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(s.opts.Timeouts.Request))
		s.handlers.Mount(r)
	})
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	addr := s.opts.Addr
	if addr == "" {
		addr = ":8080"
	}

	server := &http.Server{
		Addr:        addr,
		Handler:     s.router,
		ReadTimeout: s.opts.Timeouts.Read,
		// WriteTimeout disabled (0) to allow SSE long-lived connections;
		// the chi Timeout middleware protects regular requests
		WriteTimeout: 0,
		IdleTimeout:  s.opts.Timeouts.Idle,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down HTTP server")
		// Stop SSE broker first to close all client connections gracefully
		s.sseBroker.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.Timeouts.Request)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down HTTP server: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("HTTP server failed: %w", err)
	}
}
