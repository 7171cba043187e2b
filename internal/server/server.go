// Package server exposes the viewer, the ingest endpoint and the REST
// snapshot over HTTP.
package server

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"

	"go.uber.org/zap"

	"github.com/soar/padcursor/internal/gamepad"
	"github.com/soar/padcursor/internal/hub"
)

// Manager is the part of gamepad.Manager the server reads.
type Manager interface {
	hub.Controllers
	Snapshots() []gamepad.Snapshot
}

// Config selects what the server mounts.
type Config struct {
	Addr string
	// Frontend is served at "/" after minification. It may be nil.
	Frontend fs.FS
	// Ingest is mounted at "/input" when non-nil.
	Ingest http.Handler
}

type Server struct {
	hub         *hub.Hub
	broadcaster *hub.Broadcaster
	manager     Manager
	cfg         Config
	static      http.Handler
	log         *zap.Logger
	httpServer  *http.Server
}

func New(h *hub.Hub, b *hub.Broadcaster, m Manager, cfg Config, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		hub:         h,
		broadcaster: b,
		manager:     m,
		cfg:         cfg,
		log:         log,
	}
	if cfg.Frontend != nil {
		static, err := newStaticHandler(cfg.Frontend, log)
		if err != nil {
			return nil, fmt.Errorf("frontend: %w", err)
		}
		s.static = static
	}
	return s, nil
}

// Handler returns the routing for all endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket endpoints
	mux.HandleFunc("/ws", handleWebSocket(s.hub, s.broadcaster, s.manager, s.log))
	if s.cfg.Ingest != nil {
		mux.Handle("/input", s.cfg.Ingest)
	}

	mux.HandleFunc("GET /api/controllers", handleControllers(s.manager))
	mux.HandleFunc("GET /api/controllers/{id}", handleController(s.manager))

	// Static files (frontend)
	if s.static != nil {
		mux.Handle("/", s.static)
	}
	return mux
}

func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.Handler(),
	}

	s.log.Info("HTTP server listening", zap.String("addr", s.cfg.Addr))
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		s.log.Info("shutting down HTTP server")
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
