package router

import (
	"strings"

	"github.com/vango-dev/navstack/pkg/routepath"
)

// LocationFor builds the location of a named route. The name is matched
// ignoring case. Every parameter of the route's ancestor chain must be
// supplied and satisfy its expression; parameters the template does not use
// are appended as a query string sorted by name.
//
// Resolving the returned location yields a top entry whose Params equal
// params.
func (t *Tree) LocationFor(name string, params map[string]string) (string, error) {
	cr, ok := t.Lookup(name)
	if !ok {
		return "", lookupFault(name, "unknown route name %q", name)
	}

	used := make(map[string]bool)
	var segments []string
	for _, c := range cr.Chain() {
		for _, ps := range c.Pattern.segments {
			if ps.kind == segLiteral {
				segments = append(segments, ps.literal)
				continue
			}

			value, ok := params[ps.name]
			if !ok {
				return "", lookupFault(name, "missing required parameter %q", ps.name)
			}
			if f := checkParamValue(ps, value); f != nil {
				f.Name = name
				return "", f
			}
			used[ps.name] = true
			segments = append(segments, value)
		}
	}

	location := routepath.JoinSegments(segments)

	extra := make(map[string]string)
	for k, v := range params {
		if used[k] {
			continue
		}
		// An empty query key is dropped when the location is parsed.
		if k == "" {
			return "", lookupFault(name, "query parameter with empty name")
		}
		extra[k] = v
	}
	if q := routepath.EncodeQuery(extra); q != "" {
		location += "?" + q
	}
	return location, nil
}

// checkParamValue rejects values that would not survive a round trip
// through the location string.
func checkParamValue(ps patternSegment, value string) *Fault {
	switch {
	case value == "":
		return lookupFault("", "parameter %q is empty", ps.name)
	case value == "." || value == "..":
		return lookupFault("", "parameter %q cannot be %q", ps.name, value)
	case strings.Contains(value, "/"):
		return lookupFault("", "parameter %q contains a slash", ps.name)
	case ps.re != nil && !ps.re.MatchString(value):
		return lookupFault("", "parameter %q value %q does not match (%s)", ps.name, value, ps.expr)
	}
	return nil
}

// MustLocationFor is like LocationFor but panics on error.
func (t *Tree) MustLocationFor(name string, params map[string]string) string {
	loc, err := t.LocationFor(name, params)
	if err != nil {
		panic(err)
	}
	return loc
}
