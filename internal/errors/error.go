package errors

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/vango-dev/navstack/pkg/router"
)

// Category represents the type of error.
type Category string

const (
	CategoryRouting Category = "routing"
	CategoryConfig  Category = "config"
	CategoryGuard   Category = "guard"
	CategoryCLI     Category = "cli"
)

// Location represents a position in a configuration file.
type Location struct {
	File   string
	Line   int
	Column int
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// NavError is a structured error with a code, an optional file location or
// route pattern, and a suggestion.
type NavError struct {
	// Code is a unique error identifier (e.g., "E104").
	Code string

	// Category is the error type (routing, config, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Location is the config file position where the error occurred.
	Location *Location

	// Context contains surrounding lines of the config file.
	Context []string

	// ContextStart is the line number of Context[0].
	ContextStart int

	// Pattern is the offending route template, if any.
	Pattern string

	// Offset is the byte offset into Pattern, or -1.
	Offset int

	// RequestedLocation is the navigation target that failed, if any.
	RequestedLocation string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *NavError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *NavError) Unwrap() error {
	return e.Wrapped
}

// WithLocation adds a config file position to the error.
func (e *NavError) WithLocation(file string, line, column int) *NavError {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context = readContextLines(file, line, 5)
	e.ContextStart = max(1, line-5/2)
	return e
}

// WithOffset converts a byte offset into data (as reported by JSON and YAML
// decoders) into a file position.
func (e *NavError) WithOffset(file string, data []byte, offset int64) *NavError {
	if offset < 0 || offset > int64(len(data)) {
		return e
	}
	line, col := 1, 1
	for _, c := range data[:offset] {
		if c == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return e.WithLocation(file, line, col)
}

// WithPattern points the error at a byte of a route template.
func (e *NavError) WithPattern(pattern string, offset int) *NavError {
	e.Pattern = pattern
	e.Offset = offset
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *NavError) WithSuggestion(s string) *NavError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *NavError) WithDetail(d string) *NavError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *NavError) Wrap(err error) *NavError {
	e.Wrapped = err
	return e
}

// readContextLines reads lines around the specified line number from a file.
func readContextLines(filename string, targetLine, contextSize int) []string {
	file, err := os.Open(filename)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	startLine := targetLine - contextSize/2
	endLine := targetLine + contextSize/2

	for scanner.Scan() {
		lineNum++
		if lineNum >= startLine && lineNum <= endLine {
			lines = append(lines, scanner.Text())
		}
		if lineNum > endLine {
			break
		}
	}

	return lines
}

// New creates a NavError from a registered error code.
func New(code string) *NavError {
	template, ok := registry[code]
	if !ok {
		return &NavError{
			Code:    code,
			Message: "Unknown error",
			Offset:  -1,
		}
	}
	return &NavError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
		Offset:   -1,
	}
}

// Newf creates a new NavError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *NavError {
	return &NavError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
		Offset:   -1,
	}
}

// FromError wraps a standard error in a NavError. Router faults get the
// code of their kind; anything else gets code.
func FromError(err error, code string) *NavError {
	if err == nil {
		return nil
	}
	var ne *NavError
	if stderrors.As(err, &ne) {
		return ne
	}
	var f *router.Fault
	if stderrors.As(err, &f) {
		return FromFault(f)
	}
	return New(code).Wrap(err)
}

// faultCodes maps router fault kinds to error codes.
var faultCodes = map[router.FaultKind]string{
	router.CompileFault:         "E100",
	router.NotFoundFault:        "E104",
	router.RedirectLoopFault:    "E105",
	router.BuilderFault:         "E106",
	router.NameLookupFault:      "E107",
	router.InvalidLocationFault: "E108",
}

// FromFault converts a router fault into a NavError. Compile faults keep
// the offending pattern and offset so Format can point at them.
func FromFault(f *router.Fault) *NavError {
	if f == nil {
		return nil
	}

	code := faultCodes[f.Kind]
	if f.Kind == router.CompileFault {
		switch {
		case strings.Contains(f.Message, "duplicate route name"):
			code = "E101"
		case strings.Contains(f.Message, "no page builder"):
			code = "E102"
		case strings.Contains(f.Message, "already bound by an ancestor"):
			code = "E103"
		}
	}

	e := New(code).Wrap(f)
	e.Detail = f.Message
	e.RequestedLocation = f.Location
	if f.Pattern != "" {
		e.WithPattern(f.Pattern, f.Offset)
	}
	if f.Cause != nil {
		e.Detail += ": " + f.Cause.Error()
	}
	if len(f.Redirects) > 0 {
		e.WithSuggestion("Redirect chain: " + strings.Join(f.Redirects, " → "))
	}
	return e
}
