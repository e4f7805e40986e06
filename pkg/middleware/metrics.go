package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/navstack/pkg/router"
)

// MetricsConfig configures the Prometheus metrics hook.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "navstack").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for resolution duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics hook.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "navstack",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the navigation metrics.
type Metrics struct {
	resolutionsTotal   *prometheus.CounterVec
	resolutionDuration *prometheus.HistogramVec
	redirectsTotal     prometheus.Counter
	stackDepth         prometheus.Histogram
	activeSessions     prometheus.Gauge
	sessionsTotal      prometheus.Counter
	wsErrors           *prometheus.CounterVec
}

// defaultMetrics backs hooks registered on prometheus.DefaultRegisterer,
// which rejects a second registration of the same names.
var (
	defaultMetrics   *Metrics
	defaultMetricsMu sync.Mutex
)

func newMetrics(c MetricsConfig) *Metrics {
	factory := promauto.With(c.Registry)

	counter := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{
			Namespace: c.Namespace, Subsystem: c.Subsystem, ConstLabels: c.ConstLabels,
			Name: name, Help: help,
		}
	}
	histogram := func(name, help string, buckets []float64) prometheus.HistogramOpts {
		return prometheus.HistogramOpts{
			Namespace: c.Namespace, Subsystem: c.Subsystem, ConstLabels: c.ConstLabels,
			Name: name, Help: help, Buckets: buckets,
		}
	}

	return &Metrics{
		resolutionsTotal: factory.NewCounterVec(
			counter("resolutions_total", "Total number of location resolutions by outcome"),
			[]string{"outcome"}),
		resolutionDuration: factory.NewHistogramVec(
			histogram("resolution_duration_seconds", "Location resolution duration in seconds, builders included", c.Buckets),
			[]string{"outcome"}),
		redirectsTotal: factory.NewCounter(
			counter("redirects_total", "Total number of redirects followed")),
		stackDepth: factory.NewHistogram(
			histogram("stack_depth", "Number of pages in resolved stacks", []float64{1, 2, 3, 4, 6, 8, 12})),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: c.Namespace, Subsystem: c.Subsystem, ConstLabels: c.ConstLabels,
			Name: "active_sessions", Help: "Number of open WebSocket navigation sessions",
		}),
		sessionsTotal: factory.NewCounter(
			counter("sessions_total", "Total number of WebSocket navigation sessions opened")),
		wsErrors: factory.NewCounterVec(
			counter("websocket_errors_total", "Total WebSocket errors by type"),
			[]string{"type"}),
	}
}

// Prometheus creates a resolver hook that collects navigation metrics.
//
// Metrics collected:
//   - navstack_resolutions_total: Counter of resolutions by outcome
//   - navstack_resolution_duration_seconds: Histogram of resolution duration
//   - navstack_redirects_total: Counter of redirects followed
//   - navstack_stack_depth: Histogram of resolved stack sizes
//   - navstack_active_sessions: Gauge of open navigation sessions
//   - navstack_sessions_total: Counter of navigation sessions opened
//   - navstack_websocket_errors_total: Counter of WebSocket errors
//
// The outcome label is "ok" or the fault kind, e.g. "not_found".
//
// Example:
//
//	metrics := middleware.Prometheus(middleware.WithNamespace("myapp"))
//	resolver := router.NewResolver(router.WithHooks(metrics))
//
//	// Expose metrics endpoint
//	http.Handle("/metrics", promhttp.Handler())
func Prometheus(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	if config.Registry != prometheus.DefaultRegisterer {
		return newMetrics(config)
	}

	defaultMetricsMu.Lock()
	defer defaultMetricsMu.Unlock()
	if defaultMetrics == nil {
		defaultMetrics = newMetrics(config)
	}
	return defaultMetrics
}

// BeforeResolve implements router.Hook.
func (m *Metrics) BeforeResolve(ctx context.Context, location string) context.Context {
	return ctx
}

// AfterResolve implements router.Hook.
func (m *Metrics) AfterResolve(ctx context.Context, res *router.Resolution, elapsed time.Duration) {
	outcome := Outcome(res)
	m.resolutionsTotal.WithLabelValues(outcome).Inc()
	m.resolutionDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	if n := len(res.Redirects); n > 0 {
		m.redirectsTotal.Add(float64(n))
	}
	if res.OK() {
		m.stackDepth.Observe(float64(len(res.Entries)))
	}
}

// Outcome labels a resolution: "ok" or the fault kind.
func Outcome(res *router.Resolution) string {
	if res.OK() {
		return "ok"
	}
	if res == nil {
		return "unknown"
	}
	return res.Fault.Kind.String()
}

// =============================================================================
// Session Recording
// =============================================================================

// RecordSessionOpen records a new navigation session.
func (m *Metrics) RecordSessionOpen() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
	m.sessionsTotal.Inc()
}

// RecordSessionClose records a navigation session ending.
func (m *Metrics) RecordSessionClose() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}

// RecordWebSocketError records a WebSocket error. errorType should be a
// small fixed set, e.g. "upgrade", "read", "write", "protocol".
func (m *Metrics) RecordWebSocketError(errorType string) {
	if m == nil {
		return
	}
	m.wsErrors.WithLabelValues(errorType).Inc()
}
