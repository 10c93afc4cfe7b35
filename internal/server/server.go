// Package server exposes email validation over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tbckr/mailcheck/internal/artifact"
	"github.com/tbckr/mailcheck/internal/batch"
	"github.com/tbckr/mailcheck/internal/services/domain"
	"github.com/tbckr/mailcheck/internal/services/email"
)

// APIPrefix is the path prefix of every versioned route.
const APIPrefix = "/api/v1"

// APIVersion is reported in the X-API-Version header.
const APIVersion = "v1"

const shutdownTimeout = 10 * time.Second

// Server routes API requests to the validation services.
type Server struct {
	router   *http.ServeMux
	handler  http.Handler
	emails   *email.Service
	domains  *domain.Service
	batch    *batch.Orchestrator
	store    *artifact.Store
	validate *validator.Validate
	livemode bool
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithArtifactStore serves downloads from store.
func WithArtifactStore(store *artifact.Store) Option {
	return func(s *Server) { s.store = store }
}

// WithLivemode marks responses as production and hides internal error details.
func WithLivemode(live bool) Option {
	return func(s *Server) { s.livemode = live }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates a Server with its routes registered.
func New(emails *email.Service, domains *domain.Service, orch *batch.Orchestrator, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		router:   http.NewServeMux(),
		emails:   emails,
		domains:  domains,
		batch:    orch,
		validate: newValidator(),
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	s.handler = s.logRequests(s.withHeaders(s.router))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.HandleFunc("GET /health", s.handleHealth())

	s.router.HandleFunc("POST "+APIPrefix+"/emails/verify", s.handleVerifyPost())
	s.router.HandleFunc("GET "+APIPrefix+"/emails/verify", s.handleVerifyGet())
	s.router.HandleFunc("POST "+APIPrefix+"/emails/batch", s.handleBatch())
	s.router.HandleFunc("GET "+APIPrefix+"/emails/batch", s.handleBatchInfo())
	s.router.HandleFunc("GET "+APIPrefix+"/emails/batch/download", s.handleDownload())

	s.router.HandleFunc("GET "+APIPrefix+"/cache", s.handleCacheStats())
	s.router.HandleFunc("DELETE "+APIPrefix+"/cache", s.handleCacheClear())
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s,
		// Batch uploads are read and validated within a single request.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("starting server", slog.String("addr", addr), slog.Bool("livemode", s.livemode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
