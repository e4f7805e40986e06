package router

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func testResolver(opts ...Option) *Resolver {
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return NewResolver(opts...)
}

// recordBuild returns a builder that records the params it was called with.
func recordBuild(name string, calls *[]string, got *Params) BuildFunc {
	return func(nav *Nav, params Params) (Result, error) {
		*calls = append(*calls, name)
		if got != nil {
			*got = params
		}
		return PageResult(name), nil
	}
}

// =============================================================================
// Matching
// =============================================================================

func TestResolveFamilyExample(t *testing.T) {
	tree := MustCompile([]*Route{
		{Path: "/", Name: "home", Build: page("home")},
		{Path: "/family/:fid", Name: "family", Build: page("family")},
	})

	res := testResolver().Resolve(context.Background(), tree, "/family/f1", nil)
	if !res.OK() {
		t.Fatalf("Resolve() fault = %v", res.Fault)
	}
	if len(res.Entries) != 1 {
		t.Fatalf("Entries = %d, want 1", len(res.Entries))
	}
	top := res.Entries[0]
	if top.Name() != "family" {
		t.Errorf("Name() = %q, want family", top.Name())
	}
	if len(top.Params) != 1 || top.Params["fid"] != "f1" {
		t.Errorf("Params = %v, want {fid: f1}", top.Params)
	}
	if top.Prefix != "/family/f1" {
		t.Errorf("Prefix = %q, want /family/f1", top.Prefix)
	}
	if top.Page != "family" {
		t.Errorf("Page = %v, want family", top.Page)
	}
}

func TestResolveRoot(t *testing.T) {
	tree := MustCompile(familyRoutes())

	res := testResolver().Resolve(context.Background(), tree, "/", nil)
	if !res.OK() {
		t.Fatalf("Resolve() fault = %v", res.Fault)
	}
	if len(res.Entries) != 1 || res.Entries[0].Name() != "home" || res.Entries[0].Prefix != "/" {
		t.Errorf("Entries = %+v, want home at /", res.Entries)
	}
}

func TestResolveNotFound(t *testing.T) {
	tree := MustCompile([]*Route{
		{Path: "/", Name: "home", Build: page("home")},
		{Path: "/family/:fid", Name: "family", Build: page("family")},
	})

	tests := []string{"/nonsense", "/family", "/family/f1/bogus", "/Family/f1"}
	for _, loc := range tests {
		t.Run(loc, func(t *testing.T) {
			res := testResolver().Resolve(context.Background(), tree, loc, nil)
			if res.OK() {
				t.Fatalf("Resolve(%q) should fail, got %d entries", loc, len(res.Entries))
			}
			if res.Fault.Kind != NotFoundFault {
				t.Errorf("Kind = %v, want not_found", res.Fault.Kind)
			}
			if !errors.Is(res.Err(), ErrNotFound) {
				t.Errorf("errors.Is(err, ErrNotFound) = false")
			}
			if res.Fault.Location != loc {
				t.Errorf("Fault.Location = %q, want %q", res.Fault.Location, loc)
			}
			if len(res.Entries) != 0 {
				t.Error("failed resolution should carry no entries")
			}
		})
	}
}

func TestResolveExpressionRejects(t *testing.T) {
	tree := MustCompile([]*Route{
		{Path: "/family/:fid(\\d+)", Name: "family", Build: page("family")},
	})

	res := testResolver().Resolve(context.Background(), tree, "/family/abc", nil)
	if res.OK() || res.Fault.Kind != NotFoundFault {
		t.Fatalf("Resolve() = %+v, want not found", res)
	}

	res = testResolver().Resolve(context.Background(), tree, "/family/42", nil)
	if !res.OK() || res.Entries[0].Params["fid"] != "42" {
		t.Errorf("Resolve(/family/42) = %+v", res)
	}
}

func TestResolveExpressionFallsThroughToSibling(t *testing.T) {
	tree := MustCompile([]*Route{
		{Path: "/family/:fid(\\d+)", Name: "numeric", Build: page("numeric")},
		{Path: "/family/:slug", Name: "slug", Build: page("slug")},
	})

	res := testResolver().Resolve(context.Background(), tree, "/family/abc", nil)
	if !res.OK() {
		t.Fatalf("Resolve() fault = %v", res.Fault)
	}
	if res.Entries[0].Name() != "slug" || res.Entries[0].Params["slug"] != "abc" {
		t.Errorf("top = %+v, want slug", res.Entries[0])
	}
}

func TestResolveDeclarationOrder(t *testing.T) {
	var calls []string
	tree := MustCompile([]*Route{
		{Path: "/:section", Name: "section", Build: recordBuild("section", &calls, nil)},
		{Path: "/family", Name: "family", Build: recordBuild("family", &calls, nil)},
	})

	res := testResolver().Resolve(context.Background(), tree, "/family", nil)
	if !res.OK() {
		t.Fatalf("Resolve() fault = %v", res.Fault)
	}
	if res.Entries[0].Name() != "section" {
		t.Errorf("first declared route should win, got %q", res.Entries[0].Name())
	}
	if len(calls) != 1 || calls[0] != "section" {
		t.Errorf("builders called = %v, want [section]", calls)
	}
}

func TestResolveNestedStack(t *testing.T) {
	tree := MustCompile(familyRoutes())

	res := testResolver().Resolve(context.Background(), tree, "/family/f1/person/7", nil)
	if !res.OK() {
		t.Fatalf("Resolve() fault = %v", res.Fault)
	}

	wantNames := []string{"family", "person"}
	wantPrefixes := []string{"/family/f1", "/family/f1/person/7"}
	if len(res.Entries) != len(wantNames) {
		t.Fatalf("Entries = %d, want %d", len(res.Entries), len(wantNames))
	}

	var consumed []string
	for i, e := range res.Entries {
		if e.Name() != wantNames[i] {
			t.Errorf("Entries[%d].Name() = %q, want %q", i, e.Name(), wantNames[i])
		}
		if e.Prefix != wantPrefixes[i] {
			t.Errorf("Entries[%d].Prefix = %q, want %q", i, e.Prefix, wantPrefixes[i])
		}
		if i > 0 && !strings.HasPrefix(e.Prefix, res.Entries[i-1].Prefix+"/") {
			t.Errorf("prefix %q does not extend %q", e.Prefix, res.Entries[i-1].Prefix)
		}
		consumed = append(consumed, e.Segments...)
	}
	if "/"+strings.Join(consumed, "/") != res.Path {
		t.Errorf("consumed segments %v do not cover %q", consumed, res.Path)
	}

	person := res.Entries[1]
	if person.Params["fid"] != "f1" || person.Params["pid"] != "7" {
		t.Errorf("person Params = %v, want fid and pid", person.Params)
	}
	if len(res.Entries[0].PathParams) != 1 {
		t.Errorf("family PathParams = %v, want only fid", res.Entries[0].PathParams)
	}

	pages := res.Pages()
	if len(pages) != 2 || pages[0] != "family" || pages[1] != "person" {
		t.Errorf("Pages() = %v", pages)
	}
	top, ok := res.Top()
	if !ok || top.Name() != "person" {
		t.Errorf("Top() = %v, %v", top, ok)
	}
}

func TestResolveCanonicalLocation(t *testing.T) {
	tree := MustCompile(familyRoutes())

	res := testResolver().Resolve(context.Background(), tree, "/family/./f1//settings/", nil)
	if !res.OK() {
		t.Fatalf("Resolve() fault = %v", res.Fault)
	}
	if res.Location != "/family/f1/settings" {
		t.Errorf("Location = %q, want /family/f1/settings", res.Location)
	}
	if res.Requested != "/family/./f1//settings/" {
		t.Errorf("Requested = %q", res.Requested)
	}
	top, _ := res.Top()
	if top.Prefix != res.Path {
		t.Errorf("top Prefix = %q, want %q", top.Prefix, res.Path)
	}
}

func TestResolveEncodedSegments(t *testing.T) {
	var got Params
	var calls []string
	tree := MustCompile([]*Route{
		{Path: "/tag/:name", Build: recordBuild("tag", &calls, &got)},
	})

	res := testResolver().Resolve(context.Background(), tree, "/tag/caf%C3%A9%20bar", nil)
	if !res.OK() {
		t.Fatalf("Resolve() fault = %v", res.Fault)
	}
	if got["name"] != "café bar" {
		t.Errorf("name = %q, want decoded value", got["name"])
	}
	if res.Entries[0].Prefix != "/tag/caf%C3%A9%20bar" {
		t.Errorf("Prefix = %q, want the raw path", res.Entries[0].Prefix)
	}
}

func TestResolveInvalidLocation(t *testing.T) {
	tree := MustCompile(familyRoutes())

	tests := []string{
		"family/f1",
		"http://example.com/family",
		"//evil.com/family",
		"/family/a%2Fb",
		"/family/%zz",
		"/family/\x00",
		"",
	}

	for _, loc := range tests {
		t.Run(loc, func(t *testing.T) {
			res := testResolver().Resolve(context.Background(), tree, loc, nil)
			if res.OK() {
				t.Fatalf("Resolve(%q) should fail", loc)
			}
			if res.Fault.Kind != InvalidLocationFault {
				t.Errorf("Kind = %v, want invalid_location", res.Fault.Kind)
			}
			if !errors.Is(res.Err(), ErrInvalidLocation) {
				t.Error("errors.Is(err, ErrInvalidLocation) = false")
			}
		})
	}
}

func TestResolveNilTree(t *testing.T) {
	res := testResolver().Resolve(context.Background(), nil, "/", nil)
	if res.OK() || res.Fault.Kind != NotFoundFault {
		t.Errorf("Resolve(nil tree) = %+v, want not found", res)
	}
}

// =============================================================================
// Query Parameters
// =============================================================================

func TestResolveLoginQueryExample(t *testing.T) {
	var got Params
	var calls []string
	tree := MustCompile([]*Route{
		{Path: "/", Name: "home", Build: page("home")},
		{Path: "/login", Name: "login", Build: recordBuild("login", &calls, &got)},
	})

	res := testResolver().Resolve(context.Background(), tree, "/login?from=/family/f1", nil)
	if !res.OK() {
		t.Fatalf("Resolve() fault = %v", res.Fault)
	}
	if got["from"] != "/family/f1" {
		t.Errorf("from = %q, want /family/f1", got["from"])
	}
	if res.Query["from"] != "/family/f1" {
		t.Errorf("Query[from] = %q", res.Query["from"])
	}
	if res.Path != "/login" {
		t.Errorf("Path = %q, want /login", res.Path)
	}
}

func TestResolveQueryNeverOverridesPath(t *testing.T) {
	var got Params
	var calls []string
	tree := MustCompile([]*Route{
		{Path: "/family/:fid", Build: recordBuild("family", &calls, &got)},
	})

	res := testResolver().Resolve(context.Background(), tree, "/family/f1?fid=evil&tab=members&tab=pets", nil)
	if !res.OK() {
		t.Fatalf("Resolve() fault = %v", res.Fault)
	}
	if got["fid"] != "f1" {
		t.Errorf("fid = %q, want path value f1", got["fid"])
	}
	if got["tab"] != "pets" {
		t.Errorf("tab = %q, want last occurrence", got["tab"])
	}
	if res.Entries[0].PathParams["fid"] != "f1" || len(res.Entries[0].PathParams) != 1 {
		t.Errorf("PathParams = %v", res.Entries[0].PathParams)
	}
}

// =============================================================================
// Redirects
// =============================================================================

func TestResolveBuilderRedirect(t *testing.T) {
	tree := MustCompile([]*Route{
		{Path: "/old", Build: func(nav *Nav, params Params) (Result, error) {
			return Redirect("/new?x=1"), nil
		}},
		{Path: "/new", Name: "new", Build: page("new")},
	})

	res := testResolver().Resolve(context.Background(), tree, "/old", nil)
	if !res.OK() {
		t.Fatalf("Resolve() fault = %v", res.Fault)
	}
	if res.Requested != "/old" || res.Location != "/new?x=1" {
		t.Errorf("Requested/Location = %q/%q", res.Requested, res.Location)
	}
	if len(res.Redirects) != 1 || res.Redirects[0] != "/new?x=1" {
		t.Errorf("Redirects = %v", res.Redirects)
	}
	if res.Entries[0].Params["x"] != "1" {
		t.Errorf("Params = %v", res.Entries[0].Params)
	}
}

func TestResolveRedirectAbandonsPartialStack(t *testing.T) {
	var calls []string
	tree := MustCompile([]*Route{
		{Path: "/family/:fid", Build: recordBuild("family", &calls, nil), Children: []*Route{
			{Path: "gone", Build: func(nav *Nav, params Params) (Result, error) {
				return Redirect("/family/" + params["fid"]), nil
			}},
		}},
	})

	res := testResolver().Resolve(context.Background(), tree, "/family/f1/gone", nil)
	if !res.OK() {
		t.Fatalf("Resolve() fault = %v", res.Fault)
	}
	if len(res.Entries) != 1 || res.Location != "/family/f1" {
		t.Errorf("Entries/Location = %d/%q", len(res.Entries), res.Location)
	}
	if len(calls) != 2 {
		t.Errorf("family built %d times, want 2 (once per pass)", len(calls))
	}
}

func TestResolveRedirectLoop(t *testing.T) {
	calls := 0
	tree := MustCompile([]*Route{
		{Path: "/loop", Build: func(nav *Nav, params Params) (Result, error) {
			calls++
			return Redirect("/loop"), nil
		}},
	})

	var faultSeen *Fault
	r := testResolver(WithErrorBuilder(func(location string, f *Fault) Page {
		faultSeen = f
		return "error:" + location
	}))

	res := r.Resolve(context.Background(), tree, "/loop", nil)
	if res.OK() {
		t.Fatal("Resolve() should fail")
	}
	if res.Fault.Kind != RedirectLoopFault {
		t.Fatalf("Kind = %v, want redirect_loop", res.Fault.Kind)
	}
	if !errors.Is(res.Err(), ErrRedirectLoop) {
		t.Error("errors.Is(err, ErrRedirectLoop) = false")
	}
	if len(res.Redirects) != DefaultMaxRedirects {
		t.Errorf("Redirects = %d, want %d", len(res.Redirects), DefaultMaxRedirects)
	}
	if len(res.Fault.Redirects) != DefaultMaxRedirects {
		t.Errorf("Fault.Redirects = %d, want %d", len(res.Fault.Redirects), DefaultMaxRedirects)
	}
	if calls != DefaultMaxRedirects+1 {
		t.Errorf("builder calls = %d, want %d", calls, DefaultMaxRedirects+1)
	}
	if faultSeen != res.Fault {
		t.Error("error builder should receive the resolution's fault")
	}
	if pages := res.Pages(); len(pages) != 1 || pages[0] != "error:/loop" {
		t.Errorf("Pages() = %v", pages)
	}
}

func TestResolveMaxRedirects(t *testing.T) {
	tree := MustCompile([]*Route{
		{Path: "/a", Build: func(nav *Nav, params Params) (Result, error) { return Redirect("/b"), nil }},
		{Path: "/b", Build: func(nav *Nav, params Params) (Result, error) { return Redirect("/c"), nil }},
		{Path: "/c", Build: page("c")},
	})

	tests := []struct {
		max int
		ok  bool
	}{
		{0, false},
		{1, false},
		{2, true},
		{-5, true},
	}

	for _, tt := range tests {
		r := testResolver(WithMaxRedirects(tt.max))
		res := r.Resolve(context.Background(), tree, "/a", nil)
		if res.OK() != tt.ok {
			t.Errorf("max %d: OK() = %v, want %v (%v)", tt.max, res.OK(), tt.ok, res.Fault)
		}
	}

	if got := testResolver(WithMaxRedirects(-5)).MaxRedirects(); got != DefaultMaxRedirects {
		t.Errorf("MaxRedirects() = %d, want default for negative input", got)
	}
}

func TestResolveRedirectHook(t *testing.T) {
	type session struct{ loggedIn bool }
	var got Params
	var calls []string

	tree := MustCompile([]*Route{
		{Path: "/", Name: "home", Build: page("home")},
		{Path: "/login", Name: "login", Build: recordBuild("login", &calls, &got)},
	})

	hook := func(nav *Nav) (string, bool) {
		s, _ := nav.State.(*session)
		if s != nil && !s.loggedIn && nav.Path != "/login" {
			return "/login?from=" + nav.Path, true
		}
		if nav.Path == "/login" {
			return nav.Location, true
		}
		return "", false
	}
	r := testResolver(WithRedirect(hook))

	res := r.Resolve(context.Background(), tree, "/", &session{})
	if !res.OK() {
		t.Fatalf("Resolve() fault = %v", res.Fault)
	}
	if res.Entries[0].Name() != "login" || got["from"] != "/" {
		t.Errorf("top = %q from = %q", res.Entries[0].Name(), got["from"])
	}
	if len(res.Redirects) != 1 {
		t.Errorf("Redirects = %v; returning the current location must not count", res.Redirects)
	}

	res = r.Resolve(context.Background(), tree, "/", &session{loggedIn: true})
	if !res.OK() || res.Entries[0].Name() != "home" || len(res.Redirects) != 0 {
		t.Errorf("logged-in Resolve() = %+v", res)
	}
}

func TestResolveRedirectHookLoop(t *testing.T) {
	tree := MustCompile([]*Route{{Path: "/", Build: page("home")}})
	flip := func(nav *Nav) (string, bool) {
		if nav.Path == "/a" {
			return "/b", true
		}
		return "/a", true
	}

	res := testResolver(WithRedirect(flip)).Resolve(context.Background(), tree, "/", nil)
	if res.OK() || res.Fault.Kind != RedirectLoopFault {
		t.Errorf("Resolve() = %+v, want redirect loop", res.Fault)
	}
}

func TestResolveRedirectToInvalidLocation(t *testing.T) {
	tree := MustCompile([]*Route{
		{Path: "/out", Build: func(nav *Nav, params Params) (Result, error) {
			return Redirect("https://example.com"), nil
		}},
	})

	res := testResolver().Resolve(context.Background(), tree, "/out", nil)
	if res.OK() || res.Fault.Kind != InvalidLocationFault {
		t.Fatalf("Resolve() = %+v, want invalid location", res.Fault)
	}
	if res.Fault.Location != "https://example.com" {
		t.Errorf("Fault.Location = %q", res.Fault.Location)
	}
}

// =============================================================================
// Builder Faults
// =============================================================================

func TestResolveBuilderError(t *testing.T) {
	boom := errors.New("family not found")
	var calls []string
	tree := MustCompile([]*Route{
		{Path: "/family/:fid", Name: "family", Build: func(nav *Nav, params Params) (Result, error) {
			return Result{}, boom
		}},
		{Path: "/family/:other", Name: "fallback", Build: recordBuild("fallback", &calls, nil)},
	})

	res := testResolver().Resolve(context.Background(), tree, "/family/f1", nil)
	if res.OK() {
		t.Fatal("Resolve() should fail")
	}
	f := res.Fault
	if f.Kind != BuilderFault {
		t.Fatalf("Kind = %v, want builder", f.Kind)
	}
	if !errors.Is(f, boom) || !errors.Is(f, ErrBuilder) {
		t.Errorf("fault %v should match both its cause and ErrBuilder", f)
	}
	if f.Name != "family" || f.Pattern != "/family/:fid" || f.Location != "/family/f1" {
		t.Errorf("fault = %+v", f)
	}
	if len(calls) != 0 {
		t.Errorf("sibling builders ran after a fault: %v", calls)
	}
}

func TestResolveBuilderPanic(t *testing.T) {
	tree := MustCompile([]*Route{
		{Path: "/crash", Build: func(nav *Nav, params Params) (Result, error) {
			panic("nil family")
		}},
	})

	res := testResolver().Resolve(context.Background(), tree, "/crash", nil)
	if res.OK() || res.Fault.Kind != BuilderFault {
		t.Fatalf("Resolve() = %+v, want builder fault", res.Fault)
	}
	var pe *PanicError
	if !errors.As(res.Fault, &pe) {
		t.Fatalf("cause = %T, want *PanicError", res.Fault.Cause)
	}
	if pe.Value != "nil family" || len(pe.Stack) == 0 {
		t.Errorf("PanicError = %v", pe)
	}
}

func TestResolveBadResults(t *testing.T) {
	tests := []struct {
		name   string
		result Result
	}{
		{"empty redirect", Redirect("")},
		{"zero result", Result{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := MustCompile([]*Route{
				{Path: "/x", Build: func(nav *Nav, params Params) (Result, error) { return tt.result, nil }},
			})
			res := testResolver().Resolve(context.Background(), tree, "/x", nil)
			if res.OK() || res.Fault.Kind != BuilderFault {
				t.Errorf("Resolve() = %+v, want builder fault", res.Fault)
			}
		})
	}
}

// =============================================================================
// Navigation Context & Middleware
// =============================================================================

func TestResolveNavContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")
	state := "state"

	var navs []Nav
	capture := func(name string) BuildFunc {
		return func(nav *Nav, params Params) (Result, error) {
			navs = append(navs, *nav)
			return PageResult(name), nil
		}
	}
	tree := MustCompile([]*Route{
		{Path: "/start", Build: func(nav *Nav, params Params) (Result, error) {
			return Redirect("/family/f1/person/7?tab=a"), nil
		}},
		{Path: "/family/:fid", Build: capture("family"), Children: []*Route{
			{Path: "person/:pid", Build: capture("person")},
		}},
	})

	res := testResolver().Resolve(ctx, tree, "/start", state)
	if !res.OK() {
		t.Fatalf("Resolve() fault = %v", res.Fault)
	}
	if len(navs) != 2 {
		t.Fatalf("captured %d navs, want 2", len(navs))
	}

	for _, nav := range navs {
		if nav.Context.Value(key{}) != "v" {
			t.Error("builder context lost its values")
		}
		if nav.State != state {
			t.Error("builder did not receive the host state")
		}
		if nav.Hop != 1 {
			t.Errorf("Hop = %d, want 1", nav.Hop)
		}
		if nav.Location != "/family/f1/person/7?tab=a" || nav.Path != "/family/f1/person/7" {
			t.Errorf("Location/Path = %q/%q", nav.Location, nav.Path)
		}
		if nav.Query["tab"] != "a" {
			t.Errorf("Query = %v", nav.Query)
		}
	}
	if navs[0].Prefix != "/family/f1" || navs[1].Prefix != "/family/f1/person/7" {
		t.Errorf("prefixes = %q, %q", navs[0].Prefix, navs[1].Prefix)
	}
	if len(navs[0].PathParams) != 1 || len(navs[1].PathParams) != 2 {
		t.Errorf("path params = %v, %v", navs[0].PathParams, navs[1].PathParams)
	}
}

func TestResolveRouteMiddlewareCoversDescendants(t *testing.T) {
	loggedIn := false
	guard := RedirectUnless(
		func(nav *Nav) bool { return loggedIn },
		func(nav *Nav) string { return "/login?from=" + nav.Path },
	)

	var seen []string
	logMW := MiddlewareFunc(func(nav *Nav, params Params, next func() (Result, error)) (Result, error) {
		seen = append(seen, nav.Prefix)
		return next()
	})

	tree := MustCompile([]*Route{
		{Path: "/login", Build: page("login")},
		{Path: "/family/:fid", Build: page("family"), Middleware: []Middleware{guard}, Children: []*Route{
			{Path: "settings", Build: page("settings")},
		}},
	})

	r := testResolver()
	r.Use(logMW)

	res := r.Resolve(context.Background(), tree, "/family/f1/settings", nil)
	if !res.OK() {
		t.Fatalf("Resolve() fault = %v", res.Fault)
	}
	if top, _ := res.Top(); top.Page != "login" {
		t.Errorf("top page = %v, want login", top.Page)
	}
	if res.Query["from"] != "/family/f1/settings" {
		t.Errorf("from = %q", res.Query["from"])
	}

	loggedIn = true
	seen = nil
	res = r.Resolve(context.Background(), tree, "/family/f1/settings", nil)
	if !res.OK() || len(res.Entries) != 2 {
		t.Fatalf("Resolve() = %+v", res)
	}
	if len(seen) != 2 || seen[0] != "/family/f1" || seen[1] != "/family/f1/settings" {
		t.Errorf("global middleware saw %v", seen)
	}
}

type recordingHook struct {
	before  []string
	after   []*Resolution
	elapsed time.Duration
}

type hookKey struct{}

func (h *recordingHook) BeforeResolve(ctx context.Context, location string) context.Context {
	h.before = append(h.before, location)
	return context.WithValue(ctx, hookKey{}, location)
}

func (h *recordingHook) AfterResolve(ctx context.Context, res *Resolution, elapsed time.Duration) {
	if ctx.Value(hookKey{}) == nil {
		panic("AfterResolve did not receive the derived context")
	}
	h.after = append(h.after, res)
	h.elapsed = elapsed
}

func TestResolveHooks(t *testing.T) {
	hook := &recordingHook{}
	var builderCtx context.Context
	tree := MustCompile([]*Route{
		{Path: "/", Build: func(nav *Nav, params Params) (Result, error) {
			builderCtx = nav.Context
			return PageResult("home"), nil
		}},
	})

	r := testResolver(WithHooks(hook))
	res := r.Resolve(context.Background(), tree, "/", nil)
	r.Resolve(context.Background(), tree, "/missing", nil)

	if len(hook.before) != 2 || hook.before[0] != "/" || hook.before[1] != "/missing" {
		t.Errorf("before = %v", hook.before)
	}
	if len(hook.after) != 2 || hook.after[0] != res || hook.after[1].OK() {
		t.Errorf("after = %v", hook.after)
	}
	if builderCtx == nil || builderCtx.Value(hookKey{}) != "/" {
		t.Error("builders should receive the hook's context")
	}
	if hook.elapsed < 0 {
		t.Errorf("elapsed = %v", hook.elapsed)
	}
}

func TestResolveNilContext(t *testing.T) {
	tree := MustCompile([]*Route{{Path: "/", Build: page("home")}})
	res := testResolver().Resolve(nil, tree, "/", nil)
	if !res.OK() {
		t.Errorf("Resolve(nil ctx) fault = %v", res.Fault)
	}
}

func TestResolveLogsFaults(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	tree := MustCompile([]*Route{{Path: "/", Build: page("home")}})

	r := NewResolver(WithLogger(logger))
	r.Resolve(context.Background(), tree, "/", nil)
	r.Resolve(context.Background(), tree, "/missing", nil)

	out := buf.String()
	if !strings.Contains(out, "navigation resolved") {
		t.Errorf("log missing debug resolution line:\n%s", out)
	}
	if !strings.Contains(out, "navigation failed") || !strings.Contains(out, "fault=not_found") {
		t.Errorf("log missing fault line:\n%s", out)
	}
}
