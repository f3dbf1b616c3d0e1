package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsConfig configures the metrics provider.
type MetricsConfig struct {
	Namespace   string // Prometheus namespace (default: mcp)
	MetricsPath string // HTTP path for the metrics endpoint (default: /metrics)
	Addr        string // listen address for the metrics server (default: :9090)

	// ActiveSessions, when set, is sampled into a gauge.
	ActiveSessions func() int
}

// Metrics records protocol-core measurements into Prometheus.
type Metrics struct {
	registry *prometheus.Registry
	config   MetricsConfig
	server   *http.Server

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	handlerDuration *prometheus.HistogramVec
}

// NewMetrics creates the metric set on its own registry so tests can run
// multiple instances without collector collisions.
func NewMetrics(cfg MetricsConfig) *Metrics {
	if cfg.Namespace == "" {
		cfg.Namespace = "mcp"
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9090"
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: reg,
		config:   cfg,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "requests_total",
			Help:      "Dispatched JSON-RPC requests by method and outcome.",
		}, []string{"method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "request_duration_seconds",
			Help:      "Dispatch latency by method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		handlerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "handler_duration_seconds",
			Help:      "Handler execution latency by operation name.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"category", "name"}),
	}
	reg.MustRegister(m.requestsTotal, m.requestDuration, m.handlerDuration)

	mux := http.NewServeMux()
	mux.Handle(cfg.MetricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	m.server = &http.Server{Addr: cfg.Addr, Handler: mux}

	if cfg.ActiveSessions != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "active_sessions",
			Help:      "Live persistent sessions.",
		}, func() float64 { return float64(cfg.ActiveSessions()) }))
	}

	return m
}

// RecordRequest records one dispatched request.
func (m *Metrics) RecordRequest(method, status string, duration time.Duration) {
	m.requestsTotal.WithLabelValues(method, status).Inc()
	m.requestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordHandler records one handler invocation.
func (m *Metrics) RecordHandler(category, name string, duration time.Duration) {
	m.handlerDuration.WithLabelValues(category, name).Observe(duration.Seconds())
}

// Handler returns the scrape endpoint handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Start serves the metrics endpoint on its own listener (blocking). The
// server is built in NewMetrics so a Shutdown racing Start still sees it.
func (m *Metrics) Start() error {
	if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the metrics server.
func (m *Metrics) Shutdown(ctx context.Context) error {
	return m.server.Shutdown(ctx)
}
