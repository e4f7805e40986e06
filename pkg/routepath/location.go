package routepath

import (
	"net/url"
	"sort"
	"strings"
)

// Location is a parsed navigation target.
type Location struct {
	// Path is the canonical path without query string.
	Path string

	// Segments are the decoded path segments. The root path has none.
	Segments []string

	// RawSegments are the segments as they appear in Path.
	RawSegments []string

	// RawQuery is the query string as given, without the leading "?".
	RawQuery string

	// Query maps query parameter names to values. When a name occurs more
	// than once, the last occurrence wins.
	Query map[string]string
}

// ParseLocation validates, canonicalizes and splits a location string.
func ParseLocation(location string) (Location, error) {
	raw, rawQuery, err := splitLocation(location)
	if err != nil {
		return Location{}, err
	}

	var segments []string
	if len(raw) > 0 {
		segments = make([]string, len(raw))
	}
	for i, seg := range raw {
		if segments[i], err = UnescapeSegment(seg); err != nil {
			return Location{}, err
		}
	}

	query, err := ParseQuery(rawQuery)
	if err != nil {
		return Location{}, err
	}

	return Location{
		Path:        "/" + strings.Join(raw, "/"),
		Segments:    segments,
		RawSegments: raw,
		RawQuery:    rawQuery,
		Query:       query,
	}, nil
}

// ParseQuery parses a raw query string. The last occurrence of a repeated
// name wins. Keys without values map to "".
func ParseQuery(rawQuery string) (map[string]string, error) {
	query := make(map[string]string)
	if rawQuery == "" {
		return query, nil
	}

	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		k, err := url.QueryUnescape(key)
		if err != nil {
			return nil, ErrInvalidQuery
		}
		v, err := url.QueryUnescape(value)
		if err != nil {
			return nil, ErrInvalidQuery
		}
		if k == "" {
			continue
		}
		query[k] = v
	}

	return query, nil
}

// EncodeQuery encodes params as a query string sorted by key, without the
// leading "?".
func EncodeQuery(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[k]))
	}
	return b.String()
}

// JoinSegments builds a canonical path from decoded segments, escaping each.
func JoinSegments(segments []string) string {
	if len(segments) == 0 {
		return "/"
	}
	escaped := make([]string, len(segments))
	for i, seg := range segments {
		escaped[i] = url.PathEscape(seg)
	}
	return "/" + strings.Join(escaped, "/")
}

// Prefix returns the path covered by the first n segments.
func (l Location) Prefix(n int) string {
	if n <= 0 {
		return "/"
	}
	if len(l.RawSegments) >= n {
		return "/" + strings.Join(l.RawSegments[:n], "/")
	}
	return JoinSegments(l.Segments[:n])
}

// String rebuilds the location. The raw query is kept as given; without
// one, Query is encoded sorted by key.
func (l Location) String() string {
	path := l.Path
	if path == "" {
		path = JoinSegments(l.Segments)
	}
	q := l.RawQuery
	if q == "" {
		q = EncodeQuery(l.Query)
	}
	if q != "" {
		return path + "?" + q
	}
	return path
}
