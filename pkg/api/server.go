package api

import (
	"context"
	"net/http"
	"time"

	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/jobs"
	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/ports"
)

// Server hosts the export API over HTTP. It binds to a loopback address
// by default; the API carries no authentication.
type Server struct {
	httpServer *http.Server
	logger     ports.Logger
}

// ServerConfig wires the server's collaborators.
type ServerConfig struct {
	Addr       string
	Manager    *jobs.Manager
	BuildInput InputBuilder
	Logger     ports.Logger
	StartTime  time.Time
}

// NewServer creates an HTTP server for the export API.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8750"
	}
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger.WithComponent("api"),
	}
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("listening on %s", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}
