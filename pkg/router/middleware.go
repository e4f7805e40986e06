package router

// Middleware wraps page building for a route and its descendants.
type Middleware interface {
	// Handle runs around the builder. Call next to continue the chain, or
	// return a Result (typically a Redirect) to short-circuit it.
	Handle(nav *Nav, params Params, next func() (Result, error)) (Result, error)
}

// MiddlewareFunc is a function adapter for Middleware.
type MiddlewareFunc func(nav *Nav, params Params, next func() (Result, error)) (Result, error)

// Handle implements Middleware.
func (f MiddlewareFunc) Handle(nav *Nav, params Params, next func() (Result, error)) (Result, error) {
	return f(nav, params, next)
}

// ComposeMiddleware builds a chain from middleware and a final handler.
// Middleware is executed in order (first to last), with the handler at the end.
func ComposeMiddleware(nav *Nav, params Params, mw []Middleware, handler func() (Result, error)) (Result, error) {
	if len(mw) == 0 {
		return handler()
	}

	chain := handler
	for i := len(mw) - 1; i >= 0; i-- {
		m := mw[i]
		next := chain
		chain = func() (Result, error) {
			return m.Handle(nav, params, next)
		}
	}

	return chain()
}

// Chain creates a middleware that combines multiple middleware in order.
func Chain(middleware ...Middleware) Middleware {
	return MiddlewareFunc(func(nav *Nav, params Params, next func() (Result, error)) (Result, error) {
		return ComposeMiddleware(nav, params, middleware, next)
	})
}

// Skip bypasses mw when condition holds.
func Skip(condition func(nav *Nav) bool, mw Middleware) Middleware {
	return MiddlewareFunc(func(nav *Nav, params Params, next func() (Result, error)) (Result, error) {
		if condition(nav) {
			return next()
		}
		return mw.Handle(nav, params, next)
	})
}

// Only runs mw only when condition holds.
func Only(condition func(nav *Nav) bool, mw Middleware) Middleware {
	return MiddlewareFunc(func(nav *Nav, params Params, next func() (Result, error)) (Result, error) {
		if !condition(nav) {
			return next()
		}
		return mw.Handle(nav, params, next)
	})
}

// RedirectUnless redirects to target whenever allow returns false.
// It is the usual shape of an authentication guard.
func RedirectUnless(allow func(nav *Nav) bool, target func(nav *Nav) string) Middleware {
	return MiddlewareFunc(func(nav *Nav, params Params, next func() (Result, error)) (Result, error) {
		if allow(nav) {
			return next()
		}
		return Redirect(target(nav)), nil
	})
}
