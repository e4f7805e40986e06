// Package router resolves location strings into stacks of pages.
//
// The router provides:
//   - A pattern compiler for nested, declarative route tables
//   - First-match resolution in declaration order
//   - Redirects from builders, middleware and a top-level hook, bounded by a hop limit
//   - Named routes with reverse lookup (LocationFor)
//   - Stack truncation for pop notifications from the host
//
// # Route Tables
//
// A route table is an ordered list of routes. Child paths are relative to
// their parent, and every matched ancestor contributes one page to the stack:
//
//	routes := []*router.Route{
//	    {Path: "/", Name: "home", Build: home},
//	    {Path: "/family/:fid", Name: "family", Build: family, Children: []*router.Route{
//	        {Path: "person/:pid(\\d+)", Name: "person", Build: person},
//	    }},
//	    {Path: "/login", Name: "login", Build: login},
//	}
//	tree, err := router.Compile(routes)
//
// # Parameters
//
// Path parameters are written ":name" and match exactly one segment. A
// parenthesized regular expression restricts the accepted text:
//
//	:fid           → any non-empty segment
//	:pid(\d+)      → digits only
//
// Builders receive path parameters merged with query parameters. A query
// parameter never replaces a path parameter of the same name. Values are
// opaque strings; Params.Bind converts them into a typed struct on request.
//
// # Resolution
//
//	r := router.NewResolver(router.WithErrorBuilder(errorPage))
//	res := r.Resolve(ctx, tree, "/family/f1/person/7", state)
//	if res.OK() {
//	    pages := res.Pages() // home is not included: "/" only matches "/"
//	}
//
// A builder may return router.Redirect(location) instead of a page, which
// restarts resolution at the new location. Chains longer than
// DefaultMaxRedirects fail with a RedirectLoopFault.
package router
