package router

import (
	"net/url"
	"regexp"
)

// segmentKind distinguishes literal and parameter segments.
type segmentKind uint8

const (
	segLiteral segmentKind = iota
	segParam
)

// patternSegment is one compiled segment of a route template.
type patternSegment struct {
	kind segmentKind

	// literal is the decoded literal text
	literal string

	// name is the parameter name (without ':')
	name string

	// expr is the restricting expression as written, if any
	expr string

	// re is expr anchored to the whole segment
	re *regexp.Regexp
}

// Pattern is a compiled route template.
type Pattern struct {
	template string
	segments []patternSegment
	params   []string
}

// ParsePattern compiles a route template. Malformed templates yield a
// *Fault of kind CompileFault pointing at the offending byte.
func ParsePattern(template string) (*Pattern, error) {
	p := &Pattern{template: template}
	for i := 0; i < len(template); i++ {
		if (template[i] == '?' || template[i] == '#') && !insideExpression(template, i) {
			return nil, compileFault(template, i, "query or fragment not allowed in route template")
		}
	}

	seen := make(map[string]bool)
	s := template
	i := 0
	for i < len(s) {
		if s[i] == '/' {
			i++
			continue
		}
		start := i

		if s[i] != ':' {
			for i < len(s) && s[i] != '/' {
				if s[i] == '(' || s[i] == ')' {
					return nil, compileFault(template, i, "unbalanced parenthesis outside a parameter expression")
				}
				i++
			}
			literal, err := url.PathUnescape(s[start:i])
			if err != nil {
				return nil, compileFault(template, start, "invalid escape in literal segment %q", s[start:i])
			}
			p.segments = append(p.segments, patternSegment{kind: segLiteral, literal: literal})
			continue
		}

		// Parameter segment.
		i++
		nameStart := i
		for i < len(s) && isParamNameChar(s[i], i == nameStart) {
			i++
		}
		name := s[nameStart:i]
		if name == "" {
			return nil, compileFault(template, start, "empty parameter name")
		}

		seg := patternSegment{kind: segParam, name: name}

		if i < len(s) && s[i] == '(' {
			open := i
			closeIdx := matchParen(s, open)
			if closeIdx < 0 {
				return nil, compileFault(template, open, "unbalanced parentheses in expression for :%s", name)
			}
			seg.expr = s[open+1 : closeIdx]
			if seg.expr == "" {
				return nil, compileFault(template, open, "empty expression for :%s", name)
			}
			re, err := regexp.Compile("^(?:" + seg.expr + ")$")
			if err != nil {
				return nil, compileFault(template, open+1, "invalid expression for :%s: %v", name, err)
			}
			seg.re = re
			i = closeIdx + 1
		}

		if i < len(s) && s[i] != '/' {
			return nil, compileFault(template, i, "unexpected %q after parameter :%s", s[i], name)
		}
		if seen[name] {
			return nil, compileFault(template, start, "duplicate parameter :%s", name)
		}
		seen[name] = true

		p.segments = append(p.segments, seg)
		p.params = append(p.params, name)
	}

	return p, nil
}

// MustParsePattern is like ParsePattern but panics on error.
func MustParsePattern(template string) *Pattern {
	p, err := ParsePattern(template)
	if err != nil {
		panic(err)
	}
	return p
}

// Match matches the pattern against segments starting exactly at offset.
// It returns the number of segments consumed and the parameter bindings.
// Bindings are only returned when every segment matched.
func (p *Pattern) Match(segments []string, offset int) (int, Params, bool) {
	n := len(p.segments)
	if offset < 0 || offset+n > len(segments) {
		return 0, nil, false
	}

	for i, ps := range p.segments {
		seg := segments[offset+i]
		switch ps.kind {
		case segLiteral:
			if seg != ps.literal {
				return 0, nil, false
			}
		case segParam:
			if seg == "" {
				return 0, nil, false
			}
			if ps.re != nil && !ps.re.MatchString(seg) {
				return 0, nil, false
			}
		}
	}

	var params Params
	for i, ps := range p.segments {
		if ps.kind != segParam {
			continue
		}
		if params == nil {
			params = make(Params, len(p.params))
		}
		params[ps.name] = segments[offset+i]
	}
	return n, params, true
}

// Len returns the number of segments the pattern consumes.
func (p *Pattern) Len() int {
	return len(p.segments)
}

// Params returns the parameter names in template order.
func (p *Pattern) Params() []string {
	out := make([]string, len(p.params))
	copy(out, p.params)
	return out
}

// String returns the template as written.
func (p *Pattern) String() string {
	return p.template
}

// isParamNameChar reports whether c may appear in a parameter name.
// Names start with a letter or underscore.
func isParamNameChar(c byte, first bool) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		return true
	case c >= '0' && c <= '9':
		return !first
	default:
		return false
	}
}

// matchParen returns the index of the parenthesis closing the one at open,
// honoring backslash escapes, or -1.
func matchParen(s string, open int) int {
	depth := 0
	for j := open; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}

// insideExpression reports whether byte idx lies inside a parameter
// expression, where "?" is a regular-expression quantifier.
func insideExpression(s string, idx int) bool {
	depth := 0
	for j := 0; j < idx && j < len(s); j++ {
		switch s[j] {
		case '\\':
			if depth > 0 {
				j++
			}
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		}
	}
	return depth > 0
}
