package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jamiat-it/tracker-mcp/pkg/protocol"
)

// ServerConfig configures the HTTP listener wrapping the MCP handler.
type ServerConfig struct {
	Addr   string // listen address, e.g. ":8000"
	Path   string // mount path for the MCP endpoint (default: /mcp)
	Logger *slog.Logger

	// Info and ToolNames feed the root info page.
	Info      protocol.ServerInfo
	ToolNames []string

	// ShutdownGrace bounds graceful shutdown (default: 10s).
	ShutdownGrace time.Duration
}

// Server binds the MCP handler and the health endpoint to one listener.
type Server struct {
	server *http.Server
	logger *slog.Logger
	grace  time.Duration
}

// NewServer mounts the MCP endpoint and the health check on a fresh mux.
func NewServer(cfg ServerConfig, handler *Handler) *Server {
	path := cfg.Path
	if path == "" {
		path = "/mcp"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	grace := cfg.ShutdownGrace
	if grace <= 0 {
		grace = 10 * time.Second
	}

	mux := http.NewServeMux()
	mux.Handle(path, handler)
	mux.Handle("/healthz", HealthHandler())
	mux.Handle("/", InfoHandler(cfg.Info, path, cfg.ToolNames))

	return &Server{
		server: &http.Server{Addr: cfg.Addr, Handler: mux},
		logger: logger,
		grace:  grace,
	}
}

// Run serves until the context is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("http server listening", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.grace)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
