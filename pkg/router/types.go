package router

import "context"

// Page is the host-defined descriptor of a page to display. The router never
// inspects it.
type Page any

// Params maps parameter names to their opaque string values.
type Params map[string]string

// Get returns the value for name, or "" when unbound.
func (p Params) Get(name string) string {
	return p[name]
}

// Clone returns a copy of p. A nil receiver yields an empty map.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// BuildFunc builds the page for a matched route. It receives the merged
// path and query parameters and the navigation context.
type BuildFunc func(nav *Nav, params Params) (Result, error)

// ErrorBuilder builds the page shown when resolution fails.
// It must not fail.
type ErrorBuilder func(location string, fault *Fault) Page

// ResultKind tags the variant held by a Result.
type ResultKind uint8

const (
	// ResultPage means the builder produced a page descriptor.
	ResultPage ResultKind = iota + 1

	// ResultRedirect means resolution must restart at another location.
	ResultRedirect
)

// String returns the kind name.
func (k ResultKind) String() string {
	switch k {
	case ResultPage:
		return "page"
	case ResultRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Result is what a builder returns: either a page or a redirect.
type Result struct {
	Kind ResultKind

	// Page is set when Kind is ResultPage.
	Page Page

	// Location is the redirect target when Kind is ResultRedirect.
	Location string
}

// PageResult wraps a page descriptor.
func PageResult(page Page) Result {
	return Result{Kind: ResultPage, Page: page}
}

// Redirect asks the resolver to restart at location.
func Redirect(location string) Result {
	return Result{Kind: ResultRedirect, Location: location}
}

// Route is a declarative route definition.
//
// Path is a slash-delimited template. Segments are literals, ":name"
// parameters, or ":name(expr)" parameters whose value must fully match the
// regular expression expr. Child paths are relative to their parent.
type Route struct {
	// Path is the segment template (e.g. "/family/:fid").
	Path string

	// Name optionally identifies the route for LocationFor.
	// Names are unique across a tree, compared case-insensitively.
	Name string

	// Build produces the page for this route.
	Build BuildFunc

	// Middleware wraps Build for this route and all its descendants.
	Middleware []Middleware

	// Children are nested routes, tried in declaration order.
	Children []*Route
}

// Nav is the navigation context handed to builders and middleware.
type Nav struct {
	// Context carries request-scoped values and trace spans.
	Context context.Context

	// Location is the canonical location being resolved, query included.
	Location string

	// Path is the canonical path of Location.
	Path string

	// Prefix is the cumulative location prefix of the route being built.
	Prefix string

	// Route is the route being built. Nil for top-level redirect hooks.
	Route *Route

	// Query holds the parsed query parameters.
	Query Params

	// PathParams holds the path parameters bound so far, ancestors included.
	PathParams Params

	// Hop is the number of redirects followed before this pass.
	Hop int

	// State is the host-supplied navigation state (e.g. login status).
	State any
}

// MatchEntry is one element of a resolved stack.
type MatchEntry struct {
	// Route is the matched definition.
	Route *Route

	// Params are the merged parameters handed to the builder.
	Params Params

	// PathParams are the path parameters bound up to and including this entry.
	PathParams Params

	// Prefix is the cumulative location prefix this entry covers.
	Prefix string

	// Segments are the path segments consumed by this entry.
	Segments []string

	// Page is what the builder returned.
	Page Page
}

// Name returns the matched route's name.
func (e *MatchEntry) Name() string {
	if e.Route == nil {
		return ""
	}
	return e.Route.Name
}
