package routepath

import (
	"errors"
	"net/url"
	"strings"
)

// Location errors.
var (
	ErrNotAbsolute           = errors.New("location must start with /")
	ErrHasScheme             = errors.New("location must not carry a scheme or host")
	ErrBackslashInPath       = errors.New("path contains backslash")
	ErrNullByteInPath        = errors.New("path contains null byte")
	ErrInvalidPercentEscape  = errors.New("invalid percent escape sequence")
	ErrPathEscapesRoot       = errors.New("path escapes root via ..")
	ErrEncodedSlashInSegment = errors.New("encoded slash (%2F) in path segment")
	ErrInvalidQuery          = errors.New("invalid query string")
)

// ValidateLocation returns the canonical form of location: an absolute
// path with empty and "." segments dropped, ".." resolved, no trailing
// slash, and the query string kept verbatim. A "#fragment" is dropped.
//
// Locations carrying a scheme or host, backslashes, NUL bytes, malformed
// percent escapes, or a ".." above the root are rejected.
func ValidateLocation(location string) (string, error) {
	raw, query, err := splitLocation(location)
	if err != nil {
		return "", err
	}
	path := "/" + strings.Join(raw, "/")
	if query != "" {
		return path + "?" + query, nil
	}
	return path, nil
}

// splitLocation returns the cleaned raw (still escaped) segments of
// location and its query string.
func splitLocation(location string) (segments []string, query string, err error) {
	// SECURITY: only same-origin paths may be navigated to.
	if strings.HasPrefix(location, "//") || hasScheme(location) {
		return nil, "", ErrHasScheme
	}
	if !strings.HasPrefix(location, "/") {
		return nil, "", ErrNotAbsolute
	}

	location, _, _ = strings.Cut(location, "#")
	path, query, _ := strings.Cut(location, "?")
	segments, err = cleanSegments(path)
	return segments, query, err
}

// cleanSegments walks path one segment at a time, applying "." and ".."
// as it goes.
func cleanSegments(path string) ([]string, error) {
	var out []string
	for path != "" {
		var seg string
		if i := strings.IndexByte(path, '/'); i >= 0 {
			seg, path = path[:i], path[i+1:]
		} else {
			seg, path = path, ""
		}

		switch seg {
		case "", ".":
		case "..":
			if len(out) == 0 {
				return nil, ErrPathEscapesRoot
			}
			out = out[:len(out)-1]
		default:
			if err := checkSegment(seg); err != nil {
				return nil, err
			}
			out = append(out, seg)
		}
	}
	return out, nil
}

func checkSegment(seg string) error {
	for i := 0; i < len(seg); i++ {
		switch seg[i] {
		case '\\':
			return ErrBackslashInPath
		case 0:
			return ErrNullByteInPath
		case '%':
			if i+2 >= len(seg) || !isHex(seg[i+1]) || !isHex(seg[i+2]) {
				return ErrInvalidPercentEscape
			}
			if seg[i+1] == '0' && seg[i+2] == '0' {
				return ErrNullByteInPath
			}
			i += 2
		}
	}
	return nil
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

// hasScheme reports whether s starts with "scheme:" per RFC 3986.
func hasScheme(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z':
		case (c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.') && i > 0:
		case c == ':':
			return i > 0
		default:
			return false
		}
	}
	return false
}

// UnescapeSegment decodes one raw path segment. A decoded "/" is rejected:
// a parameter value must never hide a segment boundary.
func UnescapeSegment(seg string) (string, error) {
	decoded, err := url.PathUnescape(seg)
	if err != nil {
		return "", ErrInvalidPercentEscape
	}
	if strings.Contains(decoded, "/") {
		return "", ErrEncodedSlashInSegment
	}
	return decoded, nil
}
