package middleware

import (
	"context"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/navstack/pkg/router"
)

// Default tracer name for navstack resolutions.
const defaultTracerName = "navstack"

// OTelConfig configures the OpenTelemetry hook.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "navstack").
	TracerName string

	// TracerProvider overrides the global tracer provider.
	TracerProvider trace.TracerProvider

	// IncludeQuery records query parameter names, never their values.
	IncludeQuery bool

	// Filter determines which locations to trace.
	// Return true to trace, false to skip. If nil, all locations are traced.
	Filter func(location string) bool

	// AttributeExtractor adds custom attributes once resolution finished.
	AttributeExtractor func(res *router.Resolution) []attribute.KeyValue
}

// OTelOption configures the OpenTelemetry hook.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithIncludeQuery records query parameter names on spans.
func WithIncludeQuery(include bool) OTelOption {
	return func(c *OTelConfig) {
		c.IncludeQuery = include
	}
}

// WithLocationFilter sets a filter function for locations.
func WithLocationFilter(filter func(location string) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(res *router.Resolution) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

// Tracing is a resolver hook that opens one span per resolution.
type Tracing struct {
	config OTelConfig
	tracer trace.Tracer
}

// OpenTelemetry creates a resolver hook that traces every resolution.
//
// The hook:
//   - Starts a span named "navstack.resolve" with the requested location
//   - Hands the span's context to builders through Nav.Context
//   - Records the final location, stack depth, redirects and top route
//   - Records faults and sets the span status
//
// The tracer uses the global OpenTelemetry tracer provider unless
// WithTracerProvider is given. Configure it in main():
//
//	otel.SetTracerProvider(tp)
//	resolver := router.NewResolver(router.WithHooks(middleware.OpenTelemetry()))
func OpenTelemetry(opts ...OTelOption) *Tracing {
	config := OTelConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}

	tp := config.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Tracing{config: config, tracer: tp.Tracer(config.TracerName)}
}

// spanKey marks spans started by this hook, so a caller's span is never
// ended by mistake.
type spanKey struct{}

// BeforeResolve implements router.Hook.
func (t *Tracing) BeforeResolve(ctx context.Context, location string) context.Context {
	if t.config.Filter != nil && !t.config.Filter(location) {
		return ctx
	}

	ctx, span := t.tracer.Start(ctx, "navstack.resolve",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("navstack.requested", location)),
		trace.WithTimestamp(time.Now()),
	)
	return context.WithValue(ctx, spanKey{}, span)
}

// AfterResolve implements router.Hook.
func (t *Tracing) AfterResolve(ctx context.Context, res *router.Resolution, elapsed time.Duration) {
	span, ok := ctx.Value(spanKey{}).(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	attrs := []attribute.KeyValue{
		attribute.String("navstack.location", res.Location),
		attribute.Int("navstack.redirects", len(res.Redirects)),
		attribute.Int("navstack.depth", len(res.Entries)),
		attribute.Float64("navstack.elapsed_ms", float64(elapsed.Microseconds())/1000),
	}
	if len(res.Redirects) > 0 {
		attrs = append(attrs, attribute.StringSlice("navstack.redirect_chain", res.Redirects))
	}
	if top, ok := res.Top(); ok && top.Name() != "" {
		attrs = append(attrs, attribute.String("navstack.route", top.Name()))
	}
	if t.config.IncludeQuery && len(res.Query) > 0 {
		names := make([]string, 0, len(res.Query))
		for name := range res.Query {
			names = append(names, name)
		}
		sort.Strings(names)
		attrs = append(attrs, attribute.StringSlice("navstack.query", names))
	}
	if t.config.AttributeExtractor != nil {
		attrs = append(attrs, t.config.AttributeExtractor(res)...)
	}
	span.SetAttributes(attrs...)

	if res.Fault != nil {
		span.SetAttributes(attribute.String("navstack.fault", res.Fault.Kind.String()))
		span.RecordError(res.Fault)
		span.SetStatus(codes.Error, res.Fault.Message)
		return
	}
	span.SetStatus(codes.Ok, "")
}

// SpanFromNav returns the resolution span visible to a builder, or nil when
// the resolution is not traced.
//
// Example:
//
//	func(nav *router.Nav, params router.Params) (router.Result, error) {
//	    if span := middleware.SpanFromNav(nav); span != nil {
//	        span.AddEvent("loading family")
//	    }
//	    ...
//	}
func SpanFromNav(nav *router.Nav) trace.Span {
	if nav == nil || nav.Context == nil {
		return nil
	}
	span, _ := nav.Context.Value(spanKey{}).(trace.Span)
	return span
}
