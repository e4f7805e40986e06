package config

import (
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/vango-dev/navstack/internal/errors"
	"github.com/vango-dev/navstack/internal/guard"
	"github.com/vango-dev/navstack/pkg/routepath"
	"github.com/vango-dev/navstack/pkg/router"
)

// Page is the descriptor produced by declared routes.
type Page struct {
	// Name is the route name, or its template when unnamed.
	Name string `json:"name"`

	// Title is the expanded route title.
	Title string `json:"title,omitempty"`

	// Location is the prefix of the location this page covers.
	Location string `json:"location"`

	// Params are the parameters the page was built with.
	Params map[string]string `json:"params,omitempty"`

	// Data is the route's static data.
	Data map[string]any `json:"data,omitempty"`

	// Error is set on error pages.
	Error *PageError `json:"error,omitempty"`
}

// PageError describes the fault behind an error page.
type PageError struct {
	Code    string `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// BuildRoutes turns the declared routes into router definitions. Guard
// expressions are compiled here.
func (c *Config) BuildRoutes() ([]*router.Route, error) {
	compiler, err := guard.NewCompiler()
	if err != nil {
		return nil, err
	}
	return buildRoutes(compiler, c.Routes, "")
}

func buildRoutes(compiler *guard.Compiler, decls []RouteConfig, parent string) ([]*router.Route, error) {
	routes := make([]*router.Route, 0, len(decls))
	for i := range decls {
		rc := decls[i]
		template := joinTemplate(parent, rc.Path)

		r := &router.Route{
			Path: rc.Path,
			Name: rc.Name,
		}
		if rc.Redirect != "" {
			r.Build = redirectBuilder(rc.Redirect)
		} else {
			r.Build = pageBuilder(rc, template)
		}

		if rc.Guard != nil {
			g, err := compiler.Compile(rc.Guard.When)
			if err != nil {
				if navErr, ok := err.(*errors.NavError); ok {
					navErr.WithSuggestion("Fix the guard of route " + template)
				}
				return nil, err
			}
			target := rc.Guard.Redirect
			r.Middleware = append(r.Middleware, g.Middleware(func(nav *router.Nav, params router.Params) string {
				return ExpandTarget(target, nav, params)
			}))
		}

		children, err := buildRoutes(compiler, rc.Children, template)
		if err != nil {
			return nil, err
		}
		if len(children) > 0 {
			r.Children = children
		}
		routes = append(routes, r)
	}
	return routes, nil
}

func joinTemplate(parent, path string) string {
	if parent == "" {
		return path
	}
	return strings.TrimSuffix(parent, "/") + "/" + strings.TrimPrefix(path, "/")
}

func pageBuilder(rc RouteConfig, template string) router.BuildFunc {
	name := rc.Name
	if name == "" {
		name = template
	}
	return func(nav *router.Nav, params router.Params) (router.Result, error) {
		return router.PageResult(&Page{
			Name:     name,
			Title:    expand(rc.Title, nav, params, false),
			Location: nav.Prefix,
			Params:   params.Clone(),
			Data:     rc.Data,
		}), nil
	}
}

func redirectBuilder(target string) router.BuildFunc {
	return func(nav *router.Nav, params router.Params) (router.Result, error) {
		return router.Redirect(ExpandTarget(target, nav, params)), nil
	}
}

// Tree compiles the declared routes.
func (c *Config) Tree() (*router.Tree, error) {
	routes, err := c.BuildRoutes()
	if err != nil {
		return nil, err
	}
	return router.Compile(routes)
}

// ExpandTarget fills a redirect target. ":name" is replaced by the
// path-escaped parameter value, "{location}" and "{path}" by the
// query-escaped current location and path. Unknown names are kept as is.
func ExpandTarget(target string, nav *router.Nav, params router.Params) string {
	return expand(target, nav, params, true)
}

func expand(s string, nav *router.Nav, params router.Params, escape bool) string {
	if !strings.ContainsAny(s, ":{") {
		return s
	}

	esc := func(v string, query bool) string {
		switch {
		case !escape:
			return v
		case query:
			return url.QueryEscape(v)
		default:
			return url.PathEscape(v)
		}
	}

	var b strings.Builder
	for i := 0; i < len(s); {
		switch {
		case s[i] == ':':
			j := i + 1
			for j < len(s) && isNameChar(s[j], j == i+1) {
				j++
			}
			name := s[i+1 : j]
			if v, ok := params[name]; ok && name != "" {
				b.WriteString(esc(v, false))
			} else {
				b.WriteString(s[i:j])
			}
			i = j
			continue
		case strings.HasPrefix(s[i:], "{location}"):
			b.WriteString(esc(nav.Location, true))
			i += len("{location}")
			continue
		case strings.HasPrefix(s[i:], "{path}"):
			b.WriteString(esc(nav.Path, true))
			i += len("{path}")
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

func isNameChar(c byte, first bool) bool {
	switch {
	case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return !first
	}
	return false
}

// ErrorPage is the error builder for declared route tables.
func ErrorPage(location string, fault *router.Fault) router.Page {
	return &Page{
		Name:     "error",
		Title:    "Navigation failed",
		Location: location,
		Error: &PageError{
			Code:    errors.FromFault(fault).Code,
			Kind:    fault.Kind.String(),
			Message: fault.Message,
		},
	}
}

// RedirectHook compiles the top-level redirect rules into a resolver hook.
// It returns nil when there are no rules.
func (c *Config) RedirectHook(logger *slog.Logger) (router.RedirectFunc, error) {
	if len(c.Redirects) == 0 {
		return nil, nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	compiler, err := guard.NewCompiler()
	if err != nil {
		return nil, err
	}

	type rule struct {
		pattern *router.Pattern
		to      string
		when    *guard.Guard
	}
	rules := make([]rule, 0, len(c.Redirects))
	for _, rr := range c.Redirects {
		p, err := router.ParsePattern(rr.From)
		if err != nil {
			return nil, errors.FromError(err, "E100")
		}
		r := rule{pattern: p, to: rr.To}
		if rr.When != "" {
			if r.when, err = compiler.Compile(rr.When); err != nil {
				return nil, err
			}
		}
		rules = append(rules, r)
	}

	return func(nav *router.Nav) (string, bool) {
		loc, err := routepath.ParseLocation(nav.Path)
		if err != nil {
			return "", false
		}
		for _, r := range rules {
			n, params, ok := r.pattern.Match(loc.Segments, 0)
			if !ok || n != len(loc.Segments) {
				continue
			}
			if r.when != nil {
				allowed, err := r.when.Allow(nav, params)
				if err != nil {
					logger.Warn("redirect condition failed", "from", r.pattern.String(), "error", err)
					continue
				}
				if !allowed {
					continue
				}
			}
			return ExpandTarget(r.to, nav, params), true
		}
		return "", false
	}, nil
}

// ResolverOptions returns the resolver options the route table asks for.
func (c *Config) ResolverOptions(logger *slog.Logger) ([]router.Option, error) {
	opts := []router.Option{
		router.WithMaxRedirects(c.Resolver.MaxRedirects),
		router.WithErrorBuilder(ErrorPage),
	}
	if logger != nil {
		opts = append(opts, router.WithLogger(logger))
	}
	hook, err := c.RedirectHook(logger)
	if err != nil {
		return nil, err
	}
	if hook != nil {
		opts = append(opts, router.WithRedirect(hook))
	}
	return opts, nil
}

// Logger creates the logger described by the Log section.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(c.Log.Level)}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel maps a level name to a slog level. Unknown names yield info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
