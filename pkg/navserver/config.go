package navserver

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/navstack/pkg/middleware"
)

// Config holds the navigation server settings.
type Config struct {
	// Address is the listen address (default: "localhost:8080").
	Address string

	// ReadBufferSize is the WebSocket read buffer size.
	ReadBufferSize int

	// WriteBufferSize is the WebSocket write buffer size.
	WriteBufferSize int

	// CheckOrigin validates the Origin header of WebSocket upgrades.
	// Default: SameOriginCheck.
	CheckOrigin func(r *http.Request) bool

	// MaxMessageSize caps a single client message in bytes.
	MaxMessageSize int64

	// WriteTimeout bounds a single WebSocket write.
	WriteTimeout time.Duration

	// PingInterval is how often idle sessions are pinged. A session that
	// does not answer within two intervals is closed.
	PingInterval time.Duration

	// MaxSessions caps concurrent WebSocket sessions. 0 means unlimited.
	MaxSessions int

	// ReadHeaderTimeout bounds reading request headers.
	ReadHeaderTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	// Metrics records sessions and WebSocket errors. Optional.
	Metrics *middleware.Metrics

	// Gatherer backs the /metrics endpoint (default: prometheus.DefaultGatherer).
	Gatherer prometheus.Gatherer

	// Logger is the server logger (default: slog.Default()).
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Address:           "localhost:8080",
		ReadBufferSize:    1024,
		WriteBufferSize:   1024,
		CheckOrigin:       SameOriginCheck,
		MaxMessageSize:    64 * 1024,
		WriteTimeout:      10 * time.Second,
		PingInterval:      30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		ShutdownTimeout:   30 * time.Second,
		Gatherer:          prometheus.DefaultGatherer,
		Logger:            slog.Default(),
	}
}

// WithAddress sets the listen address and returns the config for chaining.
func (c *Config) WithAddress(addr string) *Config {
	c.Address = addr
	return c
}

// WithMetrics sets the metrics recorder and the gatherer exposed on
// /metrics, and returns the config for chaining.
func (c *Config) WithMetrics(m *middleware.Metrics, g prometheus.Gatherer) *Config {
	c.Metrics = m
	if g != nil {
		c.Gatherer = g
	}
	return c
}

// WithLogger sets the logger and returns the config for chaining.
func (c *Config) WithLogger(logger *slog.Logger) *Config {
	c.Logger = logger
	return c
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// withDefaults fills zero fields from DefaultConfig.
func (c *Config) withDefaults() *Config {
	d := DefaultConfig()
	if c == nil {
		return d
	}
	out := c.Clone()
	if out.Address == "" {
		out.Address = d.Address
	}
	if out.ReadBufferSize <= 0 {
		out.ReadBufferSize = d.ReadBufferSize
	}
	if out.WriteBufferSize <= 0 {
		out.WriteBufferSize = d.WriteBufferSize
	}
	if out.CheckOrigin == nil {
		out.CheckOrigin = d.CheckOrigin
	}
	if out.MaxMessageSize <= 0 {
		out.MaxMessageSize = d.MaxMessageSize
	}
	if out.WriteTimeout <= 0 {
		out.WriteTimeout = d.WriteTimeout
	}
	if out.PingInterval <= 0 {
		out.PingInterval = d.PingInterval
	}
	if out.ReadHeaderTimeout <= 0 {
		out.ReadHeaderTimeout = d.ReadHeaderTimeout
	}
	if out.ShutdownTimeout <= 0 {
		out.ShutdownTimeout = d.ShutdownTimeout
	}
	if out.Gatherer == nil {
		out.Gatherer = d.Gatherer
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return out
}

// SameOriginCheck accepts WebSocket upgrades whose Origin host equals the
// request host, and requests without an Origin header.
func SameOriginCheck(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if r.Host == "" {
		return false
	}
	return originURL.Host == r.Host
}
