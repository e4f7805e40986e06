// Package guard evaluates CEL expressions that decide whether a route may be
// built for the current navigation.
//
// Expressions see these variables:
//
//	params   map(string, string)  merged path and query parameters
//	query    map(string, string)  query parameters only
//	state    map(string, dyn)     host navigation state
//	location string               canonical location, query included
//	path     string               canonical path
//	hop      int                  redirects followed so far
//
// Example: `has(state.user) && state.user.role == "admin"`.
package guard

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/vango-dev/navstack/internal/errors"
	"github.com/vango-dev/navstack/pkg/router"
)

// Compiler compiles guard expressions against a shared CEL environment.
type Compiler struct {
	env *cel.Env
}

// NewCompiler creates a compiler with the guard variables declared.
func NewCompiler() (*Compiler, error) {
	env, err := cel.NewEnv(
		cel.Variable("params", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("query", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("state", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("location", cel.StringType),
		cel.Variable("path", cel.StringType),
		cel.Variable("hop", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &Compiler{env: env}, nil
}

var (
	defaultOnce     sync.Once
	defaultCompiler *Compiler
	defaultErr      error
)

// Compile compiles expr with a process-wide compiler.
func Compile(expr string) (*Guard, error) {
	defaultOnce.Do(func() {
		defaultCompiler, defaultErr = NewCompiler()
	})
	if defaultErr != nil {
		return nil, defaultErr
	}
	return defaultCompiler.Compile(expr)
}

// Compile type-checks expr and prepares it for evaluation. The expression
// must yield a bool.
func (c *Compiler) Compile(expr string) (*Guard, error) {
	ast, issues := c.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, errors.New("E130").
			WithDetail(issues.Err().Error()).
			Wrap(issues.Err())
	}

	out := ast.OutputType()
	if !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, errors.New("E130").
			WithDetail(fmt.Sprintf("expression %q yields %s, want bool", expr, out)).
			WithSuggestion("Compare values explicitly, e.g. state.role == \"admin\"")
	}

	program, err := c.env.Program(ast)
	if err != nil {
		return nil, errors.New("E130").WithDetail("failed to create program").Wrap(err)
	}

	return &Guard{expr: expr, program: program}, nil
}

// Guard is a compiled guard expression. It is safe for concurrent use.
type Guard struct {
	expr    string
	program cel.Program
}

// String returns the expression as written.
func (g *Guard) String() string {
	return g.expr
}

// Allow evaluates the guard for one build step.
func (g *Guard) Allow(nav *router.Nav, params router.Params) (bool, error) {
	vars := map[string]any{
		"params":   map[string]string(params.Clone()),
		"query":    map[string]string(nav.Query.Clone()),
		"state":    stateMap(nav.State),
		"location": nav.Location,
		"path":     nav.Path,
		"hop":      nav.Hop,
	}

	result, _, err := g.program.Eval(vars)
	if err != nil {
		return false, errors.New("E131").
			WithDetail(fmt.Sprintf("guard %q: %v", g.expr, err)).
			Wrap(err)
	}

	allowed, ok := result.Value().(bool)
	if !ok {
		return false, errors.New("E131").
			WithDetail(fmt.Sprintf("guard %q yielded %T, want bool", g.expr, result.Value()))
	}
	return allowed, nil
}

// Middleware returns build middleware that redirects to target whenever the
// guard denies. Evaluation errors fail the build.
func (g *Guard) Middleware(target func(nav *router.Nav, params router.Params) string) router.Middleware {
	return router.MiddlewareFunc(func(nav *router.Nav, params router.Params, next func() (router.Result, error)) (router.Result, error) {
		allowed, err := g.Allow(nav, params)
		if err != nil {
			return router.Result{}, err
		}
		if allowed {
			return next()
		}
		return router.Redirect(target(nav, params)), nil
	})
}

// stateMap exposes host state to expressions. Maps are used as is; other
// values are converted through their JSON form.
func stateMap(state any) map[string]any {
	switch s := state.(type) {
	case nil:
		return map[string]any{}
	case map[string]any:
		return s
	}

	data, err := json.Marshal(state)
	if err != nil {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil || m == nil {
		return map[string]any{}
	}
	return m
}
