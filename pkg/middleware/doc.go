// Package middleware provides production-grade resolver hooks for navstack.
//
// This package includes:
//   - OpenTelemetry tracing of every resolution
//   - Prometheus metrics for resolutions and navigation sessions
//
// Both are router.Hook implementations and plug into a resolver with
// router.WithHooks.
//
// # OpenTelemetry
//
// The OpenTelemetry hook opens one span per resolution. The span covers the
// whole redirect chain and every builder call:
//
//	resolver := router.NewResolver(
//	    router.WithHooks(middleware.OpenTelemetry()),
//	)
//
// Configure with options:
//
//	middleware.OpenTelemetry(
//	    middleware.WithTracerName("my-app"),
//	    middleware.WithLocationFilter(func(loc string) bool {
//	        return !strings.HasPrefix(loc, "/healthz")
//	    }),
//	)
//
// Builders reach the span through Nav.Context, or with SpanFromNav.
//
// # Prometheus Metrics
//
// The Prometheus hook collects:
//   - navstack_resolutions_total: Resolutions by outcome
//   - navstack_resolution_duration_seconds: Resolution duration histogram
//   - navstack_redirects_total: Redirects followed
//   - navstack_stack_depth: Resolved stack sizes
//
// The navigation server also records session counts and WebSocket errors
// on the same Metrics value.
//
//	metrics := middleware.Prometheus()
//	resolver := router.NewResolver(router.WithHooks(metrics))
//	http.Handle("/metrics", promhttp.Handler())
package middleware
