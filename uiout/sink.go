// Package uiout provides the output sinks that protected calls install while
// they run and that reporters write failures to.
package uiout

import (
	"bufio"
	"io"

	"github.com/fatih/color"
)

// Annotation is a structured marker emitted around error output for tooling
// that parses annotated output.
type Annotation int

const (
	// ErrorBegin marks the start of error output.
	ErrorBegin Annotation = iota
	// Error marks the end of the output of an Error abort.
	Error
	// Quit marks the end of the output of a Quit abort.
	Quit
)

// String returns the marker name of the annotation.
func (a Annotation) String() string {
	switch a {
	case ErrorBegin:
		return "error-begin"
	case Error:
		return "error"
	case Quit:
		return "quit"
	default:
		return "unknown"
	}
}

// Marker returns the annotation as written in annotated output.
func (a Annotation) Marker() string {
	return "\n\x1a\x1a" + a.String() + "\n"
}

// Sink is an output destination that can be swapped per protected call.
type Sink interface {
	io.Writer
	// Flush forces out any buffered output.
	Flush() error
	// Annotate emits a structured marker.
	Annotate(a Annotation)
}

// DefaultAnnotationLevel is the level at which markers become visible.
const DefaultAnnotationLevel = 2

// TextOption configures a Text sink.
type TextOption func(*Text)

// WithAnnotationLevel sets the annotation level. Markers are written only
// when the level is at least DefaultAnnotationLevel.
func WithAnnotationLevel(level int) TextOption {
	return func(t *Text) {
		t.level = level
	}
}

// WithColor enables or disables colored error text.
func WithColor(enabled bool) TextOption {
	return func(t *Text) {
		if enabled {
			t.errColor.EnableColor()
		} else {
			t.errColor.DisableColor()
		}
	}
}

// Text is a buffered sink writing plain text to an io.Writer.
type Text struct {
	w        *bufio.Writer
	level    int
	inError  bool
	errColor *color.Color
}

// NewText returns a Text sink writing to w.
func NewText(w io.Writer, opts ...TextOption) *Text {
	t := &Text{
		w:        bufio.NewWriter(w),
		errColor: color.New(color.FgRed),
	}
	t.errColor.DisableColor()
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Write implements io.Writer. Text written between an ErrorBegin annotation
// and the closing Error or Quit annotation is colored when color is enabled.
func (t *Text) Write(p []byte) (int, error) {
	if t.inError {
		if _, err := t.errColor.Fprint(t.w, string(p)); err != nil {
			return 0, err
		}
		return len(p), nil
	}
	return t.w.Write(p)
}

// Flush implements Sink.
func (t *Text) Flush() error {
	return t.w.Flush()
}

// Annotate implements Sink.
func (t *Text) Annotate(a Annotation) {
	switch a {
	case ErrorBegin:
		t.inError = true
	default:
		t.inError = false
	}
	if t.level >= DefaultAnnotationLevel {
		_, _ = t.w.WriteString(a.Marker())
	}
	if a != ErrorBegin {
		_ = t.w.Flush()
	}
}

// Level returns the annotation level.
func (t *Text) Level() int {
	return t.level
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
func (discard) Flush() error                { return nil }
func (discard) Annotate(Annotation)         {}

// Discard is a Sink that drops all output.
var Discard Sink = discard{}
