package middleware

import (
	"context"
	"sync"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vango-dev/navstack/pkg/router"
)

// recordingProvider hands out a tracer that keeps every span in memory.
type recordingProvider struct {
	noop.TracerProvider
	tracer *recordingTracer
}

func newRecordingProvider() *recordingProvider {
	return &recordingProvider{tracer: &recordingTracer{}}
}

func (p *recordingProvider) Tracer(string, ...trace.TracerOption) trace.Tracer {
	return p.tracer
}

type recordingTracer struct {
	noop.Tracer
	mu    sync.Mutex
	spans []*recordingSpan
}

func (t *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	s := &recordingSpan{name: name, attrs: make(map[attribute.Key]attribute.Value)}
	s.SetAttributes(cfg.Attributes()...)

	t.mu.Lock()
	t.spans = append(t.spans, s)
	t.mu.Unlock()
	return trace.ContextWithSpan(ctx, s), s
}

func (t *recordingTracer) recorded() []*recordingSpan {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*recordingSpan(nil), t.spans...)
}

type recordingSpan struct {
	noop.Span
	name   string
	attrs  map[attribute.Key]attribute.Value
	status codes.Code
	errs   []error
	ended  bool
}

func (s *recordingSpan) SetAttributes(kv ...attribute.KeyValue) {
	for _, a := range kv {
		s.attrs[a.Key] = a.Value
	}
}

func (s *recordingSpan) SetStatus(code codes.Code, _ string) { s.status = code }

func (s *recordingSpan) RecordError(err error, _ ...trace.EventOption) { s.errs = append(s.errs, err) }

func (s *recordingSpan) End(...trace.SpanEndOption) { s.ended = true }

func TestOpenTelemetryRecordsResolution(t *testing.T) {
	tp := newRecordingProvider()
	hook := OpenTelemetry(WithTracerProvider(tp), WithIncludeQuery(true),
		WithAttributeExtractor(func(res *router.Resolution) []attribute.KeyValue {
			return []attribute.KeyValue{attribute.String("test.attr", "ok")}
		}),
	)
	r := testResolver(hook)

	res := r.Resolve(context.Background(), testTree(), "/family/f1/person/7?tab=x&sort=a", nil)
	if !res.OK() {
		t.Fatalf("Resolve() fault = %v", res.Fault)
	}

	spans := tp.tracer.recorded()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	s := spans[0]
	if s.name != "navstack.resolve" || !s.ended || s.status != codes.Ok {
		t.Errorf("span = %s ended=%v status=%v", s.name, s.ended, s.status)
	}

	wantStrings := map[attribute.Key]string{
		"navstack.requested": "/family/f1/person/7?tab=x&sort=a",
		"navstack.route":     "person",
		"test.attr":          "ok",
	}
	for k, want := range wantStrings {
		if got := s.attrs[k].AsString(); got != want {
			t.Errorf("attribute %s = %q, want %q", k, got, want)
		}
	}
	if got := s.attrs["navstack.depth"].AsInt64(); got != 2 {
		t.Errorf("navstack.depth = %d, want 2", got)
	}
	if got := s.attrs["navstack.query"].AsStringSlice(); len(got) != 2 || got[0] != "sort" || got[1] != "tab" {
		t.Errorf("navstack.query = %v", got)
	}
}

func TestOpenTelemetryRecordsFaults(t *testing.T) {
	tp := newRecordingProvider()
	r := testResolver(OpenTelemetry(WithTracerProvider(tp)))

	r.Resolve(context.Background(), testTree(), "/broken", nil)

	s := tp.tracer.recorded()[0]
	if s.status != codes.Error || len(s.errs) != 1 {
		t.Errorf("status = %v, errors = %v", s.status, s.errs)
	}
	if got := s.attrs["navstack.fault"].AsString(); got != "builder" {
		t.Errorf("navstack.fault = %q", got)
	}
}

func TestOpenTelemetryRedirectChain(t *testing.T) {
	tp := newRecordingProvider()
	r := testResolver(OpenTelemetry(WithTracerProvider(tp)))

	r.Resolve(context.Background(), testTree(), "/old", nil)

	s := tp.tracer.recorded()[0]
	if got := s.attrs["navstack.redirects"].AsInt64(); got != 1 {
		t.Errorf("navstack.redirects = %d", got)
	}
	if got := s.attrs["navstack.redirect_chain"].AsStringSlice(); len(got) != 1 || got[0] != "/family/f1" {
		t.Errorf("navstack.redirect_chain = %v", got)
	}
}

func TestOpenTelemetrySpanVisibleToBuilders(t *testing.T) {
	tp := newRecordingProvider()
	r := testResolver(OpenTelemetry(WithTracerProvider(tp)))

	var seen trace.Span
	tree := router.MustCompile([]*router.Route{{
		Path: "/",
		Build: func(nav *router.Nav, params router.Params) (router.Result, error) {
			seen = SpanFromNav(nav)
			return router.PageResult("home"), nil
		},
	}})
	r.Resolve(context.Background(), tree, "/", nil)

	spans := tp.tracer.recorded()
	if seen == nil || seen != trace.Span(spans[0]) {
		t.Errorf("SpanFromNav() = %v, want the resolution span", seen)
	}
}

func TestOpenTelemetryFilterSkipsTracing(t *testing.T) {
	tp := newRecordingProvider()
	hook := OpenTelemetry(
		WithTracerProvider(tp),
		WithLocationFilter(func(loc string) bool { return loc != "/" }),
	)

	var seen trace.Span
	tree := router.MustCompile([]*router.Route{{
		Path: "/",
		Build: func(nav *router.Nav, params router.Params) (router.Result, error) {
			seen = SpanFromNav(nav)
			return router.PageResult("home"), nil
		},
	}})
	testResolver(hook).Resolve(context.Background(), tree, "/", nil)

	if len(tp.tracer.recorded()) != 0 {
		t.Error("filtered location should not be traced")
	}
	if seen != nil {
		t.Error("SpanFromNav() should be nil when tracing is skipped")
	}
}

func TestOpenTelemetryLeavesCallerSpan(t *testing.T) {
	tp := newRecordingProvider()
	parentCtx, parent := tp.tracer.Start(context.Background(), "caller")
	hook := OpenTelemetry(WithTracerProvider(tp), WithLocationFilter(func(string) bool { return false }))

	testResolver(hook).Resolve(parentCtx, testTree(), "/", nil)

	if parent.(*recordingSpan).ended {
		t.Error("the hook must not end a span it did not start")
	}
}

func TestSpanFromNavNil(t *testing.T) {
	if SpanFromNav(nil) != nil || SpanFromNav(&router.Nav{}) != nil {
		t.Error("SpanFromNav() without a context should be nil")
	}
}

func TestOpenTelemetryGlobalProvider(t *testing.T) {
	// The global provider is a no-op by default; resolution must still work.
	res := testResolver(OpenTelemetry(WithTracerName("test"))).Resolve(context.Background(), testTree(), "/", nil)
	if !res.OK() {
		t.Errorf("Resolve() fault = %v", res.Fault)
	}
}
