// Package web serves the static visualization client over HTTP.
//
// The client is a single-page application: unknown paths fall back to
// index.html so deep links survive a reload. A small health endpoint sits
// next to it for supervisors.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server := web.New(cfg, logger)
//	err := server.Start()
//	defer server.Close()
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ljouon/visionary-ui-core/internal/infrastructure/config"
	"github.com/ljouon/visionary-ui-core/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Server is the static UI HTTP server.
type Server struct {
	cfg    config.WebConfig
	logger *logging.Logger
	server *http.Server
}

// New creates a web server. It does not listen until Start() is called.
func New(cfg config.WebConfig, logger *logging.Logger) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
	}
}

// Start launches the HTTP listener in a background goroutine.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("web server error", "error", err)
		}
	}()

	s.logger.Info("web server starting", "address", s.server.Addr, "static_dir", s.cfg.StaticDir)
	return nil
}

// Close gracefully shuts down the web server. Idempotent.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down web server: %w", err)
	}
	s.server = nil
	return nil
}

// buildRouter creates the HTTP router.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/*", s.handleStatic)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// handleStatic serves files from the configured static directory. Requests
// for paths that do not resolve to a file fall back to index.html.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	// Reject traversal before touching the filesystem.
	cleaned := filepath.Clean("/" + r.URL.Path)
	target := filepath.Join(s.cfg.StaticDir, cleaned)

	info, err := os.Stat(target)
	if err != nil || info.IsDir() {
		http.ServeFile(w, r, filepath.Join(s.cfg.StaticDir, "index.html"))
		return
	}
	http.ServeFile(w, r, target)
}
