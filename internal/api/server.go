package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/trailcut/trailcut/internal/catalog"
	"github.com/trailcut/trailcut/internal/media"
	"github.com/trailcut/trailcut/internal/playback"
	"github.com/trailcut/trailcut/internal/session"
)

// Server is the loopback-only HTTP API of the agent.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	logger     *slog.Logger
}

type ServerConfig struct {
	// Port 0 picks a free port; Addr reports it after Listen.
	Port           int
	Catalog        *catalog.Service
	Sessions       *session.Manager
	PlaybackServer playback.PlaybackService
	Repository     catalog.Repository
	Runner         *catalog.Runner
	Media          media.Tool
	// ChartAssetsHost overrides where chart pages load echarts from.
	ChartAssetsHost string
	Logger          *slog.Logger
	StartTime       time.Time
	DeviceID        string
	Version         string
}

func NewServer(cfg ServerConfig) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler:           NewRouter(cfg),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			// Previews stream whole recordings, so writes are unbounded.
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

// Listen binds the port so a clash fails startup instead of a goroutine.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}
	s.listener = ln
	return nil
}

// Serve blocks until Shutdown. It listens first if Listen was not called.
func (s *Server) Serve() error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	s.logger.Info("serving HTTP API", "addr", s.Addr())
	if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP API")
	return s.httpServer.Shutdown(ctx)
}

// Addr is the bound address once listening, else the configured one.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}
