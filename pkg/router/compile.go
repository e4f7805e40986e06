package router

import (
	"fmt"
	"strings"
)

// CompiledRoute is the matchable form of a Route.
type CompiledRoute struct {
	// Route is the originating definition.
	Route *Route

	// Pattern is the compiled path template.
	Pattern *Pattern

	// Parent is the enclosing route, nil at the top level.
	Parent *CompiledRoute

	// Children are compiled in declaration order.
	Children []*CompiledRoute

	depth int
}

// Depth returns the nesting level, 0 at the top level.
func (c *CompiledRoute) Depth() int {
	return c.depth
}

// Chain returns the routes from the top level down to c.
func (c *CompiledRoute) Chain() []*CompiledRoute {
	chain := make([]*CompiledRoute, c.depth+1)
	for n, i := c, c.depth; n != nil; n, i = n.Parent, i-1 {
		chain[i] = n
	}
	return chain
}

// Template returns the full path template of the ancestor chain.
func (c *CompiledRoute) Template() string {
	var parts []string
	for _, n := range c.Chain() {
		if t := strings.Trim(n.Route.Path, "/"); t != "" {
			parts = append(parts, t)
		}
	}
	return "/" + strings.Join(parts, "/")
}

// Tree is a compiled route table. It is read-only once built; rebuild a new
// Tree when the route table changes.
type Tree struct {
	roots []*CompiledRoute
	names map[string]*CompiledRoute
	size  int
}

// Compile compiles a route table. The first malformed route aborts
// compilation with a *Fault of kind CompileFault.
func Compile(routes []*Route) (*Tree, error) {
	c := newCompiler(true)
	roots := c.compileLevel(routes, nil, nil)
	if len(c.faults) > 0 {
		return nil, c.faults[0]
	}
	return &Tree{roots: roots, names: c.names, size: c.size}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(routes []*Route) *Tree {
	t, err := Compile(routes)
	if err != nil {
		panic(err)
	}
	return t
}

// Roots returns the top-level compiled routes in declaration order.
func (t *Tree) Roots() []*CompiledRoute {
	if t == nil {
		return nil
	}
	out := make([]*CompiledRoute, len(t.roots))
	copy(out, t.roots)
	return out
}

// Len returns the number of routes in the tree.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return t.size
}

// Lookup finds a named route, ignoring case.
func (t *Tree) Lookup(name string) (*CompiledRoute, bool) {
	if t == nil || name == "" {
		return nil, false
	}
	c, ok := t.names[strings.ToLower(name)]
	return c, ok
}

// Walk visits every route depth-first in declaration order.
func (t *Tree) Walk(fn func(c *CompiledRoute)) {
	if t == nil {
		return
	}
	var walk func([]*CompiledRoute)
	walk = func(level []*CompiledRoute) {
		for _, c := range level {
			fn(c)
			walk(c.Children)
		}
	}
	walk(t.roots)
}

// compiler turns Route trees into CompiledRoute trees, recording faults.
type compiler struct {
	stopOnFirst bool
	faults      []*Fault
	names       map[string]*CompiledRoute
	size        int
}

func newCompiler(stopOnFirst bool) *compiler {
	return &compiler{
		stopOnFirst: stopOnFirst,
		names:       make(map[string]*CompiledRoute),
	}
}

func (c *compiler) done() bool {
	return c.stopOnFirst && len(c.faults) > 0
}

func (c *compiler) fail(f *Fault) {
	c.faults = append(c.faults, f)
}

// compileLevel compiles one sibling list. inherited holds the parameter
// names bound by ancestors.
func (c *compiler) compileLevel(routes []*Route, parent *CompiledRoute, inherited map[string]bool) []*CompiledRoute {
	out := make([]*CompiledRoute, 0, len(routes))
	for i, r := range routes {
		if c.done() {
			return out
		}
		cr := c.compileRoute(i, r, parent, inherited)
		if cr != nil {
			out = append(out, cr)
		}
	}
	return out
}

func (c *compiler) compileRoute(index int, r *Route, parent *CompiledRoute, inherited map[string]bool) *CompiledRoute {
	where := "top level"
	if parent != nil {
		where = fmt.Sprintf("under %q", parent.Template())
	}

	if r == nil {
		c.fail(compileFault("", -1, "nil route at index %d %s", index, where))
		return nil
	}

	template := r.Path
	if parent == nil {
		if !strings.HasPrefix(template, "/") {
			c.fail(compileFault(template, 0, "top-level route path must start with /"))
			return nil
		}
	}

	pattern, err := ParsePattern(template)
	if err != nil {
		f := err.(*Fault)
		f.Name = r.Name
		c.fail(f)
		return nil
	}

	if parent != nil && pattern.Len() == 0 {
		c.fail(compileFault(template, -1, "nested route %s must have a non-empty path", where))
		return nil
	}

	if r.Build == nil {
		f := compileFault(template, -1, "route has no page builder")
		f.Name = r.Name
		c.fail(f)
		return nil
	}

	bound := make(map[string]bool, len(inherited)+len(pattern.params))
	for k := range inherited {
		bound[k] = true
	}
	for _, name := range pattern.params {
		if inherited[name] {
			c.fail(compileFault(template, strings.Index(template, ":"+name), "parameter :%s already bound by an ancestor", name))
			if c.done() {
				return nil
			}
		}
		bound[name] = true
	}

	cr := &CompiledRoute{
		Route:   r,
		Pattern: pattern,
		Parent:  parent,
	}
	if parent != nil {
		cr.depth = parent.depth + 1
	}

	if r.Name != "" {
		key := strings.ToLower(r.Name)
		if prev, dup := c.names[key]; dup {
			f := compileFault(template, -1, "duplicate route name %q (already used by %q)", r.Name, prev.Template())
			f.Name = r.Name
			c.fail(f)
			if c.done() {
				return nil
			}
		} else {
			c.names[key] = cr
		}
	}

	c.size++
	cr.Children = c.compileLevel(r.Children, cr, bound)
	return cr
}
