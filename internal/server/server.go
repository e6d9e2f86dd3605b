// Package server exposes the orchestrator over HTTP for operators:
// health, statistics, on-demand refresh, and legacy migration.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"tinychart/internal/config"
	"tinychart/internal/logger"
	"tinychart/internal/orchestrator"
)

// Server is the HTTP surface of the application.
type Server struct {
	Config       *config.Config
	Orchestrator *orchestrator.Orchestrator

	log          *logger.Logger
	refreshMutex sync.Mutex
	httpServer   *http.Server
}

// NewServer creates a server around an already-built orchestrator.
func NewServer(cfg *config.Config, orch *orchestrator.Orchestrator) *Server {
	return &Server{
		Config:       cfg,
		Orchestrator: orch,
		log:          logger.GetGlobalLogger().WithComponent("server"),
	}
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.HandleHealth)
	mux.HandleFunc("/statistics", s.HandleStatistics)
	mux.HandleFunc("/errors", s.HandleErrors)
	mux.HandleFunc("/refresh", s.HandleRefresh)
	mux.HandleFunc("/migrate", s.HandleMigrate)
	mux.HandleFunc("/migration-report", s.HandleMigrationReport)
	mux.HandleFunc("/", s.HandleRoot)

	return mux
}

// ListenAndServe starts the HTTP listener and blocks until shutdown.
func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:         ":" + s.Config.Port,
		Handler:      s.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	s.log.Infof("HTTP server listening on port %s", s.Config.Port)
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the HTTP listener gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
