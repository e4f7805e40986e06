package router

import (
	"errors"
	"fmt"
	"strings"
)

// FaultKind classifies a routing failure.
type FaultKind uint8

const (
	// CompileFault is a malformed route table, detected at compile time.
	CompileFault FaultKind = iota + 1

	// NotFoundFault means no route chain consumes the whole location.
	NotFoundFault

	// RedirectLoopFault means the redirect hop bound was exceeded.
	RedirectLoopFault

	// BuilderFault means a page builder returned an error or panicked.
	BuilderFault

	// NameLookupFault is an unknown route name or a bad parameter set.
	NameLookupFault

	// InvalidLocationFault is a location that is not a schemeless absolute path.
	InvalidLocationFault
)

// Sentinel errors matched by errors.Is against a *Fault of the same kind.
var (
	ErrCompile         = errors.New("route compile error")
	ErrNotFound        = errors.New("no route matches location")
	ErrRedirectLoop    = errors.New("redirect loop")
	ErrBuilder         = errors.New("page builder failed")
	ErrNameLookup      = errors.New("route name lookup failed")
	ErrInvalidLocation = errors.New("invalid location")
)

// String returns the kind name.
func (k FaultKind) String() string {
	switch k {
	case CompileFault:
		return "compile"
	case NotFoundFault:
		return "not_found"
	case RedirectLoopFault:
		return "redirect_loop"
	case BuilderFault:
		return "builder"
	case NameLookupFault:
		return "name_lookup"
	case InvalidLocationFault:
		return "invalid_location"
	default:
		return "unknown"
	}
}

func (k FaultKind) sentinel() error {
	switch k {
	case CompileFault:
		return ErrCompile
	case NotFoundFault:
		return ErrNotFound
	case RedirectLoopFault:
		return ErrRedirectLoop
	case BuilderFault:
		return ErrBuilder
	case NameLookupFault:
		return ErrNameLookup
	case InvalidLocationFault:
		return ErrInvalidLocation
	default:
		return nil
	}
}

// Recoverable reports whether the fault is routed to the error builder.
// Compile and name lookup faults go straight to the caller.
func (k FaultKind) Recoverable() bool {
	switch k {
	case NotFoundFault, RedirectLoopFault, BuilderFault, InvalidLocationFault:
		return true
	default:
		return false
	}
}

// Fault describes a routing failure.
type Fault struct {
	Kind FaultKind

	// Message is a short diagnostic.
	Message string

	// Location is the location being resolved when the fault occurred.
	Location string

	// Pattern is the offending route template for compile faults.
	Pattern string

	// Offset is the byte offset into Pattern, or -1.
	Offset int

	// Name is the route name involved, if any.
	Name string

	// Route is the route whose builder failed, for builder faults.
	Route *Route

	// Redirects is the redirect chain followed before the fault.
	Redirects []string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (f *Fault) Error() string {
	var b strings.Builder
	b.WriteString("router: ")
	b.WriteString(f.Kind.String())
	if f.Message != "" {
		b.WriteString(": ")
		b.WriteString(f.Message)
	}
	switch {
	case f.Pattern != "" && f.Offset >= 0:
		fmt.Fprintf(&b, " (pattern %q at offset %d)", f.Pattern, f.Offset)
	case f.Pattern != "":
		fmt.Fprintf(&b, " (pattern %q)", f.Pattern)
	}
	if f.Location != "" {
		fmt.Fprintf(&b, " (location %q)", f.Location)
	}
	if f.Cause != nil {
		b.WriteString(": ")
		b.WriteString(f.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the cause for errors.Is/As support.
func (f *Fault) Unwrap() error {
	return f.Cause
}

// Is matches the sentinel of the fault's kind.
func (f *Fault) Is(target error) bool {
	s := f.Kind.sentinel()
	return s != nil && target == s
}

func compileFault(pattern string, offset int, format string, args ...any) *Fault {
	return &Fault{
		Kind:    CompileFault,
		Message: fmt.Sprintf(format, args...),
		Pattern: pattern,
		Offset:  offset,
	}
}

func lookupFault(name, format string, args ...any) *Fault {
	return &Fault{
		Kind:    NameLookupFault,
		Message: fmt.Sprintf(format, args...),
		Name:    name,
		Offset:  -1,
	}
}
