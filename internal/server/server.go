// Package server provides the HTTP API the dialog layer uses to query the knowledge base.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/kbase/internal/config"
	"github.com/hyperjump/kbase/internal/search"
	"github.com/hyperjump/kbase/internal/storage"
	"github.com/hyperjump/kbase/pkg/utils"
	"go.uber.org/zap"
)

// Server is the HTTP server for the kbase API.
type Server struct {
	engine  *search.Engine
	catalog storage.Catalog // optional
	config  *config.Config
	logger  *zap.Logger
	server  *http.Server
}

// NewServer creates a server with the given dependencies. catalog may be nil, in which
// case status omits build history.
func NewServer(engine *search.Engine, catalog storage.Catalog, cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		engine:  engine,
		catalog: catalog,
		config:  cfg,
		logger:  utils.OrNop(logger),
	}
}

// Router returns the HTTP handler with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))
	if s.config != nil && s.config.Debug {
		r.Use(middleware.Logger)
	}

	r.Post("/api/v1/query", s.handleQuery)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/api/v1/builds", s.handleBuilds)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
