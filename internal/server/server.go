package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tinylink-dev/tinylink/internal/config"
	"github.com/tinylink-dev/tinylink/internal/httpx"
	"github.com/tinylink-dev/tinylink/internal/ratelimit"
	"github.com/tinylink-dev/tinylink/internal/shortener"
)

// Limiters holds the per-route rate limiters. The create budget is much
// tighter than the redirect budget.
type Limiters struct {
	Create   ratelimit.Limiter
	Redirect ratelimit.Limiter
}

// Server is the HTTP server with all dependencies.
type Server struct {
	config   *config.Config
	logger   *slog.Logger
	handler  *shortener.Handler
	limiters Limiters
	server   *http.Server
}

// New creates a new Server instance.
func New(cfg *config.Config, logger *slog.Logger, handler *shortener.Handler, limiters Limiters) *Server {
	if limiters.Create == nil {
		limiters.Create = ratelimit.NewNoop()
	}
	if limiters.Redirect == nil {
		limiters.Redirect = ratelimit.NewNoop()
	}

	return &Server{
		config:   cfg,
		logger:   logger,
		handler:  handler,
		limiters: limiters,
	}
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	handler := s.applyMiddleware(s.Routes())
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Server.Host, s.config.Server.Port),
		Handler:      handler,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("starting http server",
			"addr", s.server.Addr,
			"env", s.config.App.Environment,
		)
		serverErrors <- s.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		s.logger.Info("received shutdown signal", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(ctx); err != nil {
			if closeErr := s.server.Close(); closeErr != nil {
				return fmt.Errorf("failed to close server: %w", closeErr)
			}
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		s.logger.Info("server stopped gracefully")
		return nil
	}
}

// Routes configures all HTTP routes. The redirect route is the catch-all
// single-segment pattern; the literal /api and /healthz prefixes win over
// it by specificity.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handler.Health)

	mux.Handle("POST /api/links",
		httpx.RateLimit(s.limiters.Create, s.logger)(http.HandlerFunc(s.handler.CreateLink)))
	mux.HandleFunc("GET /api/links", s.handler.ListLinks)
	mux.HandleFunc("GET /api/links/{code}", s.handler.GetStats)
	mux.HandleFunc("DELETE /api/links/{code}", s.handler.DeleteLink)

	mux.Handle("GET /{code}",
		httpx.RateLimit(s.limiters.Redirect, s.logger)(http.HandlerFunc(s.handler.Redirect)))

	return mux
}

// applyMiddleware wraps the handler with the shared middleware stack.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	return httpx.Chain(
		httpx.Recovery(s.logger), // outermost: catch panics
		httpx.RequestID,
		httpx.Logger(s.logger),
		httpx.CORS(nil),
	)(handler)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	s.logger.Info("shutting down server")

	if err := s.server.Shutdown(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn("shutdown timeout exceeded, forcing close")
			return s.server.Close()
		}
		return err
	}

	return nil
}
