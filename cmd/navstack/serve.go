package main

import (
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vango-dev/navstack/internal/config"
	"github.com/vango-dev/navstack/internal/errors"
	"github.com/vango-dev/navstack/pkg/middleware"
	"github.com/vango-dev/navstack/pkg/navserver"
	"github.com/vango-dev/navstack/pkg/router"
)

type serveOptions struct {
	host        string
	port        int
	watch       bool
	maxSessions int
}

func serveCmd(opts *globalOptions) *cobra.Command {
	var so serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the navigation server",
		Long: `Start the HTTP and WebSocket navigation server.

Endpoints:
  GET /resolve?location=...   resolve a location
  GET /link/{name}?param=...  build the location of a named route
  GET /routes                 list routes
  GET /metrics                Prometheus metrics
  GET /ws                     WebSocket navigation sessions

A local route table is watched and recompiled on change; open sessions
refresh onto the new tree. Resolver settings and redirect rules apply
from startup.

Examples:
  navstack serve
  navstack serve --port=9000 --host=0.0.0.0
  navstack --config s3://my-bucket/navstack.json serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts, so)
		},
	}

	cmd.Flags().IntVarP(&so.port, "port", "p", 0, "Port to listen on (default from the route table)")
	cmd.Flags().StringVarP(&so.host, "host", "H", "", "Host to bind to (default from the route table)")
	cmd.Flags().BoolVar(&so.watch, "watch", true, "Reload a local route table when it changes")
	cmd.Flags().IntVar(&so.maxSessions, "max-sessions", 0, "Maximum concurrent WebSocket sessions (0 = unlimited)")

	return cmd
}

func runServe(cmd *cobra.Command, opts *globalOptions, so serveOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := opts.load(ctx)
	if err != nil {
		return err
	}
	if so.port > 0 {
		cfg.Server.Port = so.port
	}
	if so.host != "" {
		cfg.Server.Host = so.host
	}

	logger := cfg.Logger(cmd.ErrOrStderr())
	slog.SetDefault(logger)

	srv, err := newServer(cfg, logger, so.maxSessions)
	if err != nil {
		return err
	}

	if so.watch && cfg.Path() != "" && !config.IsS3(cfg.Path()) {
		watcher, err := config.NewWatcher(cfg.Path(),
			func(_ *config.Config, tree *router.Tree) { srv.SetTree(tree) },
			config.WithWatchLogger(logger),
		)
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		defer watcher.Stop()
	}

	out := cmd.OutOrStdout()
	printBanner(out)
	success(out, "Serving %d routes on http://%s", srv.Tree().Len(), serverAddress(cfg))
	info(out, "Press Ctrl+C to stop")

	if err := srv.Run(ctx); err != nil {
		return errors.New("E142").Wrap(err)
	}
	info(out, "Server stopped")
	return nil
}

// newServer wires the resolver, its metrics and tracing hooks, and the
// navigation server for cfg.
func newServer(cfg *config.Config, logger *slog.Logger, maxSessions int) (*navserver.Server, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := middleware.Prometheus(
		middleware.WithRegistry(registry),
		middleware.WithNamespace(cfg.Server.MetricsNamespace),
	)
	tracing := middleware.OpenTelemetry(middleware.WithTracerName("navstack"))

	resolver, err := newResolver(cfg, logger, metrics, tracing)
	if err != nil {
		return nil, err
	}
	tree, err := compile(cfg)
	if err != nil {
		return nil, err
	}

	serverConfig := navserver.DefaultConfig().
		WithAddress(serverAddress(cfg)).
		WithMetrics(metrics, registry).
		WithLogger(logger)
	serverConfig.MaxSessions = maxSessions

	return navserver.New(serverConfig, resolver, tree), nil
}

func serverAddress(cfg *config.Config) string {
	return net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
}
