// Command tracker-mcp serves the Jamiat IT department project tracker over
// the MCP streamable HTTP transport.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joeshaw/envdecode"
	"golang.org/x/sync/errgroup"

	"github.com/jamiat-it/tracker-mcp/pkg/catalog"
	"github.com/jamiat-it/tracker-mcp/pkg/dispatch"
	"github.com/jamiat-it/tracker-mcp/pkg/httpserver"
	"github.com/jamiat-it/tracker-mcp/pkg/observability"
	"github.com/jamiat-it/tracker-mcp/pkg/protocol"
	"github.com/jamiat-it/tracker-mcp/pkg/registry"
	"github.com/jamiat-it/tracker-mcp/pkg/session"
	"github.com/jamiat-it/tracker-mcp/pkg/tracker"
)

const serverVersion = "1.0.0"

// Config is loaded from the environment via envdecode.
type Config struct {
	// ListenAddr for the MCP endpoint. ENV: LISTEN_ADDR
	ListenAddr string `env:"LISTEN_ADDR,default=:8000"`
	// MCPPath mounts the JSON-RPC endpoint. ENV: MCP_PATH
	MCPPath string `env:"MCP_PATH,default=/mcp"`

	// SessionPolicy is "stateless" or "persistent". ENV: SESSION_POLICY
	SessionPolicy string `env:"SESSION_POLICY,default=stateless"`
	// SessionPreReady trusts stateless callers past the handshake.
	// ENV: SESSION_PRE_READY
	SessionPreReady bool `env:"SESSION_PRE_READY,default=true"`
	// SessionTTL retires idle persistent sessions. ENV: SESSION_TTL
	SessionTTL time.Duration `env:"SESSION_TTL,default=30m"`

	// HandlerTimeout bounds each tool invocation. ENV: HANDLER_TIMEOUT
	HandlerTimeout time.Duration `env:"HANDLER_TIMEOUT,default=30s"`
	// Debug exposes handler failure detail in error data. ENV: DEBUG
	Debug bool `env:"DEBUG,default=false"`
	// LogFormat is "json" or "text". ENV: LOG_FORMAT
	LogFormat string `env:"LOG_FORMAT,default=json"`
	// LogLevel is debug, info, warn, or error. ENV: LOG_LEVEL
	LogLevel string `env:"LOG_LEVEL,default=info"`

	// MetricsAddr serves Prometheus metrics; empty disables the listener.
	// ENV: METRICS_ADDR
	MetricsAddr string `env:"METRICS_ADDR,default=:9090"`

	// TraceExporter is otlp-grpc, otlp-http, or noop. ENV: TRACE_EXPORTER
	TraceExporter string `env:"TRACE_EXPORTER,default=noop"`
	// TraceEndpoint is the OTLP collector endpoint. ENV: TRACE_ENDPOINT
	TraceEndpoint string `env:"TRACE_ENDPOINT,default="`
	// TraceInsecure allows plaintext OTLP. ENV: TRACE_INSECURE
	TraceInsecure bool `env:"TRACE_INSECURE,default=false"`
	// TraceSampleRate in (0, 1]. ENV: TRACE_SAMPLE_RATE
	TraceSampleRate float64 `env:"TRACE_SAMPLE_RATE,default=1.0"`
	// Environment tags exported telemetry. ENV: ENVIRONMENT
	Environment string `env:"ENVIRONMENT,default=development"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "tracker-mcp:", err)
		os.Exit(1)
	}
}

func run() error {
	var cfg Config
	if err := envdecode.StrictDecode(&cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	policy := session.PolicyStateless
	switch cfg.SessionPolicy {
	case "stateless":
	case "persistent":
		policy = session.PolicyPersistent
	default:
		return fmt.Errorf("unknown SESSION_POLICY %q", cfg.SessionPolicy)
	}

	tracing, err := observability.NewTracingProvider(observability.TracingConfig{
		ServiceName:    "tracker-mcp",
		ServiceVersion: serverVersion,
		Environment:    cfg.Environment,
		ExporterType:   observability.ExporterType(cfg.TraceExporter),
		Endpoint:       cfg.TraceEndpoint,
		Insecure:       cfg.TraceInsecure,
		SampleRate:     cfg.TraceSampleRate,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	manager := session.NewManager(session.Config{
		Policy:   policy,
		PreReady: cfg.SessionPreReady,
		TTL:      cfg.SessionTTL,
		Logger:   logger,
	})

	metrics := observability.NewMetrics(observability.MetricsConfig{
		Addr:           cfg.MetricsAddr,
		ActiveSessions: manager.Count,
	})

	reg := registry.New()
	store := catalog.NewStaticStore(catalog.SeedProjects())
	if err := tracker.Register(reg, store); err != nil {
		return fmt.Errorf("register tracker features: %w", err)
	}

	caps := protocol.CapabilitySet{"tools": true, "resources": true, "prompts": true}
	dispatcher := dispatch.New(reg,
		protocol.ServerInfo{Name: "jamiat-tracker", Version: serverVersion},
		caps,
		dispatch.WithLogger(logger),
		dispatch.WithDebug(cfg.Debug),
		dispatch.WithHandlerTimeout(cfg.HandlerTimeout),
		dispatch.WithInvokeObserver(func(category registry.Category, name string, elapsed time.Duration) {
			metrics.RecordHandler(string(category), name, elapsed)
		}),
		dispatch.WithMiddleware(observability.Middleware(tracing.Tracer(), metrics)),
	)

	handler, err := httpserver.New(httpserver.Config{
		Dispatch:           dispatcher.Handler(),
		Sessions:           manager,
		ServerCapabilities: dispatcher.Capabilities(),
		Logger:             logger,
	})
	if err != nil {
		return fmt.Errorf("init handler: %w", err)
	}

	toolNames := make([]string, 0, reg.Len(registry.CategoryTool))
	for _, desc := range reg.List(registry.CategoryTool) {
		toolNames = append(toolNames, desc.Name)
	}

	srv := httpserver.NewServer(httpserver.ServerConfig{
		Addr:      cfg.ListenAddr,
		Path:      cfg.MCPPath,
		Logger:    logger,
		Info:      protocol.ServerInfo{Name: "jamiat-tracker", Version: serverVersion},
		ToolNames: toolNames,
	}, handler)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("mcp server listening", "addr", cfg.ListenAddr, "path", cfg.MCPPath, "policy", cfg.SessionPolicy)
		return srv.Run(ctx)
	})

	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			logger.Info("metrics server listening", "addr", cfg.MetricsAddr)
			return metrics.Start()
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metrics.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()

	manager.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if terr := tracing.Shutdown(shutdownCtx); terr != nil {
		logger.Warn("trace exporter shutdown failed", "error", terr)
	}

	return err
}

func newLogger(cfg Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if cfg.LogFormat == "text" {
		h = slog.NewTextHandler(os.Stderr, opts)
	} else {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(h)
}
