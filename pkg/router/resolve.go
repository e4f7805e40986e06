package router

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/vango-dev/navstack/pkg/routepath"
)

// DefaultMaxRedirects bounds redirect chains.
const DefaultMaxRedirects = 16

// RedirectFunc is a top-level redirect hook run before matching every hop.
// Returning ok with a location different from nav.Location redirects.
type RedirectFunc func(nav *Nav) (location string, ok bool)

// Hook observes resolutions. BeforeResolve may return a derived context
// (e.g. carrying a span) that is passed to builders and AfterResolve.
type Hook interface {
	BeforeResolve(ctx context.Context, location string) context.Context
	AfterResolve(ctx context.Context, res *Resolution, elapsed time.Duration)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMaxRedirects sets the redirect hop bound. Values below zero are ignored.
func WithMaxRedirects(n int) Option {
	return func(r *Resolver) {
		if n >= 0 {
			r.maxRedirects = n
		}
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithErrorBuilder sets the builder for error pages.
func WithErrorBuilder(fn ErrorBuilder) Option {
	return func(r *Resolver) {
		r.errorBuilder = fn
	}
}

// WithRedirect sets the top-level redirect hook.
func WithRedirect(fn RedirectFunc) Option {
	return func(r *Resolver) {
		r.redirect = fn
	}
}

// WithHooks adds resolution hooks.
func WithHooks(hooks ...Hook) Option {
	return func(r *Resolver) {
		r.hooks = append(r.hooks, hooks...)
	}
}

// Resolver turns locations into page stacks. A Resolver holds no route
// table; the tree is passed to every Resolve call. It is safe for concurrent
// use once configured.
type Resolver struct {
	maxRedirects int
	logger       *slog.Logger
	errorBuilder ErrorBuilder
	redirect     RedirectFunc
	middleware   []Middleware
	hooks        []Hook
}

// NewResolver creates a resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		maxRedirects: DefaultMaxRedirects,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Use adds global middleware that wraps every builder. Call it before the
// resolver is shared.
func (r *Resolver) Use(mw ...Middleware) {
	r.middleware = append(r.middleware, mw...)
}

// MaxRedirects returns the redirect hop bound.
func (r *Resolver) MaxRedirects() int {
	return r.maxRedirects
}

// Resolution is the outcome of one Resolve call: either a stack of entries
// or exactly one fault.
type Resolution struct {
	// Requested is the location passed to Resolve.
	Requested string

	// Location is the canonical location resolved last, after redirects.
	Location string

	// Path is the canonical path of Location.
	Path string

	// Query holds the query parameters of Location.
	Query Params

	// Entries is the resolved stack, root first. Empty on failure.
	Entries []MatchEntry

	// Redirects lists the redirect targets followed, in order.
	Redirects []string

	// Fault is set when resolution failed.
	Fault *Fault

	// ErrorPage is the error builder's page for Fault, if a builder is set.
	ErrorPage Page
}

// OK reports whether resolution produced a stack.
func (res *Resolution) OK() bool {
	return res != nil && res.Fault == nil
}

// Err returns the fault as an error, or nil.
func (res *Resolution) Err() error {
	if res == nil || res.Fault == nil {
		return nil
	}
	return res.Fault
}

// Top returns the last entry of the stack.
func (res *Resolution) Top() (*MatchEntry, bool) {
	if !res.OK() || len(res.Entries) == 0 {
		return nil, false
	}
	return &res.Entries[len(res.Entries)-1], true
}

// Pages returns the page descriptors to display, root first. A failed
// resolution yields its error page alone.
func (res *Resolution) Pages() []Page {
	if res == nil {
		return nil
	}
	if res.Fault != nil {
		if res.ErrorPage == nil {
			return nil
		}
		return []Page{res.ErrorPage}
	}
	pages := make([]Page, len(res.Entries))
	for i := range res.Entries {
		pages[i] = res.Entries[i].Page
	}
	return pages
}

// Resolve resolves location against tree. It never returns nil; failures
// are reported through Resolution.Fault and the error builder.
func (r *Resolver) Resolve(ctx context.Context, tree *Tree, location string, state any) *Resolution {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	for _, h := range r.hooks {
		ctx = h.BeforeResolve(ctx, location)
	}

	res := r.resolve(ctx, tree, location, state)

	if res.Fault != nil {
		res.Fault.Redirects = append([]string(nil), res.Redirects...)
		r.logger.Warn("navigation failed",
			"location", res.Fault.Location,
			"requested", location,
			"fault", res.Fault.Kind.String(),
			"error", res.Fault.Error(),
		)
		if r.errorBuilder != nil {
			res.ErrorPage = r.errorBuilder(res.Fault.Location, res.Fault)
		}
	} else {
		r.logger.Debug("navigation resolved",
			"location", res.Location,
			"entries", len(res.Entries),
			"redirects", len(res.Redirects),
		)
	}

	elapsed := time.Since(start)
	for i := len(r.hooks) - 1; i >= 0; i-- {
		r.hooks[i].AfterResolve(ctx, res, elapsed)
	}
	return res
}

// resolve runs the redirect loop. Each pass parses, matches and builds.
func (r *Resolver) resolve(ctx context.Context, tree *Tree, location string, state any) *Resolution {
	res := &Resolution{Requested: location, Location: location}
	current := location

	for hop := 0; ; hop++ {
		res.Location = current
		loc, err := routepath.ParseLocation(current)
		if err != nil {
			res.Fault = &Fault{
				Kind:     InvalidLocationFault,
				Message:  err.Error(),
				Location: current,
				Offset:   -1,
				Cause:    err,
			}
			return res
		}

		res.Location = loc.String()
		res.Path = loc.Path
		res.Query = Params(loc.Query)

		nav := Nav{
			Context:  ctx,
			Location: res.Location,
			Path:     loc.Path,
			Query:    res.Query,
			Hop:      hop,
			State:    state,
		}

		if r.redirect != nil {
			if target, ok := r.redirect(&nav); ok && !sameLocation(target, res.Location) {
				if !r.follow(res, target) {
					return res
				}
				current = target
				continue
			}
		}

		chain := tree.match(loc.Segments)
		if chain == nil {
			res.Fault = &Fault{
				Kind:     NotFoundFault,
				Message:  fmt.Sprintf("no route matches %s", loc.Path),
				Location: res.Location,
				Offset:   -1,
			}
			return res
		}

		entries, target, fault := r.build(&nav, chain, loc)
		if fault != nil {
			res.Fault = fault
			return res
		}
		if target != "" {
			if !r.follow(res, target) {
				return res
			}
			current = target
			continue
		}

		res.Entries = entries
		return res
	}
}

// follow records a redirect hop, or sets a RedirectLoopFault when the
// bound is exceeded.
func (r *Resolver) follow(res *Resolution, target string) bool {
	if len(res.Redirects) >= r.maxRedirects {
		res.Fault = &Fault{
			Kind:     RedirectLoopFault,
			Message:  fmt.Sprintf("more than %d redirects, last target %s", r.maxRedirects, target),
			Location: res.Location,
			Offset:   -1,
		}
		return false
	}
	r.logger.Info("navigation redirected", "from", res.Location, "to", target)
	res.Redirects = append(res.Redirects, target)
	return true
}

// build invokes the builders of a matched chain root to leaf. It returns the
// stack, or a redirect target, or a fault.
func (r *Resolver) build(base *Nav, chain []matchStep, loc routepath.Location) ([]MatchEntry, string, *Fault) {
	entries := make([]MatchEntry, 0, len(chain))
	pathParams := make(Params)
	mw := append([]Middleware(nil), r.middleware...)

	for _, step := range chain {
		for k, v := range step.params {
			pathParams[k] = v
		}
		end := step.offset + step.consumed
		route := step.route.Route
		mw = append(mw[:len(mw):len(mw)], route.Middleware...)

		nav := *base
		nav.Prefix = loc.Prefix(end)
		nav.Route = route
		nav.PathParams = pathParams.Clone()
		params := mergeParams(nav.PathParams, loc.Query)

		result, err := invoke(&nav, params, mw, route.Build)
		if err != nil {
			return nil, "", &Fault{
				Kind:     BuilderFault,
				Message:  fmt.Sprintf("building %s failed", step.route.Template()),
				Location: base.Location,
				Pattern:  step.route.Template(),
				Offset:   -1,
				Name:     route.Name,
				Route:    route,
				Cause:    err,
			}
		}

		switch result.Kind {
		case ResultPage:
			entries = append(entries, MatchEntry{
				Route:      route,
				Params:     params,
				PathParams: nav.PathParams,
				Prefix:     nav.Prefix,
				Segments:   append([]string(nil), loc.Segments[step.offset:end]...),
				Page:       result.Page,
			})
		case ResultRedirect:
			if result.Location == "" {
				return nil, "", &Fault{
					Kind:     BuilderFault,
					Message:  fmt.Sprintf("%s redirected to an empty location", step.route.Template()),
					Location: base.Location,
					Pattern:  step.route.Template(),
					Offset:   -1,
					Name:     route.Name,
					Route:    route,
				}
			}
			return nil, result.Location, nil
		default:
			return nil, "", &Fault{
				Kind:     BuilderFault,
				Message:  fmt.Sprintf("%s returned a result of kind %s", step.route.Template(), result.Kind),
				Location: base.Location,
				Pattern:  step.route.Template(),
				Offset:   -1,
				Name:     route.Name,
				Route:    route,
			}
		}
	}

	return entries, "", nil
}

// invoke runs build through mw, turning panics into errors.
func invoke(nav *Nav, params Params, mw []Middleware, build BuildFunc) (result Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &PanicError{Value: p, Stack: debug.Stack()}
		}
	}()
	return ComposeMiddleware(nav, params, mw, func() (Result, error) {
		return build(nav, params)
	})
}

// PanicError is the cause of a BuilderFault raised by a panicking builder.
type PanicError struct {
	Value any
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// sameLocation compares a hook's target with the canonical current location.
func sameLocation(target, canonical string) bool {
	if target == canonical {
		return true
	}
	t, err := routepath.ValidateLocation(target)
	return err == nil && t == canonical
}

// mergeParams overlays query parameters under path parameters: a query
// parameter never replaces a bound path parameter.
func mergeParams(path Params, query map[string]string) Params {
	out := make(Params, len(path)+len(query))
	for k, v := range query {
		out[k] = v
	}
	for k, v := range path {
		out[k] = v
	}
	return out
}

// matchStep is one element of a matched chain before building.
type matchStep struct {
	route    *CompiledRoute
	offset   int
	consumed int
	params   Params
}

// match finds the first chain, in declaration order, whose patterns consume
// all segments. A route whose pattern matches but whose subtree cannot
// consume the remainder falls through to its next sibling.
func (t *Tree) match(segments []string) []matchStep {
	if t == nil {
		return nil
	}
	return matchLevel(t.roots, segments, 0)
}

func matchLevel(routes []*CompiledRoute, segments []string, offset int) []matchStep {
	for _, cr := range routes {
		n, params, ok := cr.Pattern.Match(segments, offset)
		if !ok {
			continue
		}
		step := matchStep{route: cr, offset: offset, consumed: n, params: params}
		next := offset + n
		if next == len(segments) {
			return []matchStep{step}
		}
		if rest := matchLevel(cr.Children, segments, next); rest != nil {
			return append([]matchStep{step}, rest...)
		}
	}
	return nil
}
