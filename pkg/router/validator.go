package router

// Validate checks a route table and returns every compile fault found,
// in declaration order. Compile stops at the first one; Validate is meant
// for tooling that wants the full list.
//
// Subtrees under a route that failed to compile are not inspected.
func Validate(routes []*Route) []*Fault {
	c := newCompiler(false)
	c.compileLevel(routes, nil, nil)
	return c.faults
}
