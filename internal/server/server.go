// Package server is the HTTP surface over the session API: an
// http.Server with graceful shutdown on context cancellation, owning a
// *pipeline.Orchestrator and a *config.Manager.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/rpgvault/ingest/internal/api"
	"github.com/rpgvault/ingest/internal/config"
	"github.com/rpgvault/ingest/internal/pipeline"
)

// Config holds server configuration.
type Config struct {
	Host          string
	Port          string
	Orchestrator  *pipeline.Orchestrator
	ConfigManager *config.Manager
	Logger        *slog.Logger
}

// Server is the RPG Vault Ingest HTTP server.
type Server struct {
	httpServer *http.Server
	orch       *pipeline.Orchestrator
	registry   *api.Registry
	logger     *slog.Logger

	mu      sync.RWMutex
	running bool
}

// New builds a Server and registers every Session API endpoint.
func New(cfg Config) (*Server, error) {
	if cfg.Orchestrator == nil {
		return nil, fmt.Errorf("server: Orchestrator is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	s := &Server{orch: cfg.Orchestrator, registry: api.NewRegistry(), logger: logger}
	for _, ep := range SessionEndpoints(s.orch) {
		s.registry.Register(ep)
	}

	mux := http.NewServeMux()
	s.registry.RegisterRoutes(mux)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	s.httpServer = &http.Server{
		Addr:    cfg.Host + ":" + cfg.Port,
		Handler: mux,
	}
	return s, nil
}

// Registry exposes the endpoint registry so the CLI can build the `api`
// command tree from the same source of truth.
func (s *Server) Registry() *api.Registry { return s.registry }

// Start runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down server")
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
