package errors

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
)

const (
	ansiReset = "\033[0m"
	ansiBold  = "\033[1m"
	ansiRed   = "\033[31m"
	ansiBlue  = "\033[34m"
	ansiCyan  = "\033[36m"
	ansiWhite = "\033[37m"
	ansiGray  = "\033[90m"
)

var noColor atomic.Bool

func init() {
	// https://no-color.org
	if os.Getenv("NO_COLOR") != "" {
		noColor.Store(true)
	}
}

// DisableColors turns off ANSI styling in Format and Fprint.
func DisableColors() { noColor.Store(true) }

// EnableColors turns ANSI styling back on.
func EnableColors() { noColor.Store(false) }

func style(code, text string) string {
	if noColor.Load() {
		return text
	}
	return code + text + ansiReset
}

func red(text string) string   { return style(ansiRed, text) }
func blue(text string) string  { return style(ansiBlue, text) }
func cyan(text string) string  { return style(ansiCyan, text) }
func white(text string) string { return style(ansiWhite, text) }
func gray(text string) string  { return style(ansiGray, text) }
func bold(text string) string  { return style(ansiBold, text) }

// block accumulates the sections of a formatted error. Each section ends
// with a blank line.
type block struct {
	strings.Builder
}

func (b *block) line(indent int, parts ...string) {
	b.WriteString(strings.Repeat(" ", indent))
	for _, p := range parts {
		b.WriteString(p)
	}
	b.WriteByte('\n')
}

func (b *block) end() { b.WriteByte('\n') }

// Format renders the error for a terminal: a header, then whichever of
// file context, pattern caret, location, detail, hint and doc link apply.
func (e *NavError) Format() string {
	var b block
	b.end()

	head := red(bold("ERROR: "))
	if e.Code != "" {
		head = red(bold("ERROR ")) + white(bold(e.Code+": "))
	}
	b.line(0, head, white(e.Message))
	b.end()

	if e.Location != nil {
		b.line(2, cyan(e.Location.String()))
		b.end()
		if len(e.Context) > 0 {
			e.writeContext(&b)
			b.end()
		}
	}

	if e.Pattern != "" {
		b.line(4, e.Pattern)
		if e.Offset >= 0 && e.Offset <= len(e.Pattern) {
			b.line(4+e.Offset, red("^"))
		}
		b.end()
	}

	if e.RequestedLocation != "" {
		b.line(2, gray("Location: "), e.RequestedLocation)
		b.end()
	}

	if e.Detail != "" {
		for _, l := range wrapText(e.Detail, 70) {
			b.line(2, l)
		}
		b.end()
	}

	if e.Suggestion != "" {
		b.line(2, cyan("Hint: "), e.Suggestion)
		b.end()
	}

	if e.DocURL != "" {
		b.line(2, gray("Learn more: "), blue(e.DocURL))
	}

	return b.String()
}

// writeContext prints the captured file lines, marking the error line with
// an arrow and the column with a caret.
func (e *NavError) writeContext(b *block) {
	first := e.ContextStart
	if first == 0 {
		first = e.Location.Line - len(e.Context)/2
	}
	for i, text := range e.Context {
		n := first + i
		if n != e.Location.Line {
			b.line(4, fmt.Sprintf("%4d", n), gray(" │ "), text)
			continue
		}
		b.line(2, red("→ "), fmt.Sprintf("%4d", n), gray(" │ "), text)
		if col := e.Location.Column; col > 0 {
			b.line(7, gray("│ "), strings.Repeat(" ", col-1), red("^"))
		}
	}
}

// FormatCompact returns the error on one line, prefixed with its file
// position when known.
func (e *NavError) FormatCompact() string {
	parts := make([]string, 0, 3)
	if e.Location != nil {
		parts = append(parts, e.Location.String())
	}
	if e.Code != "" {
		parts = append(parts, e.Code)
	}
	msg := e.Message
	switch {
	case e.Pattern != "" && e.Offset >= 0:
		msg += fmt.Sprintf(" (pattern %q at offset %d)", e.Pattern, e.Offset)
	case e.Pattern != "":
		msg += fmt.Sprintf(" (pattern %q)", e.Pattern)
	}
	if e.Detail != "" && e.Wrapped != nil {
		msg += ": " + e.Detail
	}
	return strings.Join(append(parts, msg), ": ")
}

type jsonPosition struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

type jsonError struct {
	Code              string        `json:"code,omitempty"`
	Category          Category      `json:"category"`
	Message           string        `json:"message"`
	Detail            string        `json:"detail,omitempty"`
	Location          *jsonPosition `json:"location,omitempty"`
	Pattern           string        `json:"pattern,omitempty"`
	Offset            *int          `json:"offset,omitempty"`
	RequestedLocation string        `json:"requestedLocation,omitempty"`
	Suggestion        string        `json:"suggestion,omitempty"`
	DocURL            string        `json:"docUrl,omitempty"`
}

// FormatJSON returns the error as a single JSON object.
func (e *NavError) FormatJSON() string {
	out := jsonError{
		Code:              e.Code,
		Category:          e.Category,
		Message:           e.Message,
		Detail:            e.Detail,
		Pattern:           e.Pattern,
		RequestedLocation: e.RequestedLocation,
		Suggestion:        e.Suggestion,
		DocURL:            e.DocURL,
	}
	if e.Location != nil {
		out.Location = &jsonPosition{e.Location.File, e.Location.Line, e.Location.Column}
	}
	if e.Pattern != "" {
		offset := e.Offset
		out.Offset = &offset
	}
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Sprintf(`{"message":%q}`, e.Message)
	}
	return string(data)
}

// wrapText breaks text into lines of at most width bytes, splitting on
// whitespace. A single word longer than width gets its own line.
func wrapText(text string, width int) []string {
	if text == "" {
		return nil
	}
	if len(text) <= width {
		return []string{text}
	}

	var lines []string
	cur := ""
	for _, word := range strings.Fields(text) {
		switch {
		case cur == "":
			cur = word
		case len(cur)+1+len(word) > width:
			lines = append(lines, cur)
			cur = word
		default:
			cur += " " + word
		}
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}

// PrintError prints a formatted error to stderr.
func PrintError(err error) {
	Fprint(os.Stderr, err)
}

// Fprint writes a formatted error to w. Router faults and NavErrors get
// the full format; other errors a single line.
func Fprint(w io.Writer, err error) {
	if err == nil {
		return
	}
	if ne := FromError(err, ""); ne != nil && ne.Code != "" {
		fmt.Fprint(w, ne.Format())
		return
	}
	fmt.Fprintf(w, "\n%s %s\n\n", red(bold("ERROR:")), err.Error())
}
