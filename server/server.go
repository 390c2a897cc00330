// Package server provides the local web chat surface: a chi HTTP server
// that serves the embedded chat page and the JSON API behind it.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"docent/config"
	"docent/llm/answer"
	"docent/llm/vector"
)

// Server is the HTTP server for the docent chat API.
type Server struct {
	answerer *answer.Answerer
	store    vector.Store
	cfg      *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(a *answer.Answerer, store vector.Store, cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		answerer: a,
		store:    store,
		cfg:      cfg,
		logger:   logger,
	}
}

// router builds the HTTP routes. Split out so handler tests can exercise
// the full middleware chain without a listening socket.
func (s *Server) router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Duration(s.cfg.Server.RequestTimeout) * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/", s.handleIndex)
	r.Post("/api/chat", s.handleChat)
	r.Get("/api/history", s.handleHistory)
	r.Get("/api/stats", s.handleStats)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.cfg.Server.Addr()
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router(),
	}
	s.logger.Info("chat server listening", zap.String("addr", addr),
		zap.String("url", "http://"+addr+"/"))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
