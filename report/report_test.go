package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deepnoodle-ai/unwind/exception"
	"github.com/deepnoodle-ai/unwind/uiout"
)

// recordingSink keeps each write separately so tests can check how the
// message was split.
type recordingSink struct {
	writes  []string
	flushes int
}

func (s *recordingSink) Write(p []byte) (int, error) {
	s.writes = append(s.writes, string(p))
	return len(p), nil
}

func (s *recordingSink) Flush() error {
	s.flushes++
	return nil
}

func (s *recordingSink) Annotate(a uiout.Annotation) {
	s.writes = append(s.writes, "<"+a.String()+">")
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	sink := uiout.NewText(&buf, uiout.WithAnnotationLevel(2))
	Print(sink, exception.Errorf(exception.GenericError, "Cannot access memory at address 0x0"))
	require.Equal(t,
		"\n\x1a\x1aerror-begin\nCannot access memory at address 0x0\n\n\x1a\x1aerror\n",
		buf.String())
}

func TestPrintQuit(t *testing.T) {
	var buf bytes.Buffer
	sink := uiout.NewText(&buf, uiout.WithAnnotationLevel(2))
	Print(sink, exception.QuitWith("Quit"))
	require.Equal(t, "\n\x1a\x1aerror-begin\nQuit\n\n\x1a\x1aquit\n", buf.String())
}

func TestPrintWithoutAnnotations(t *testing.T) {
	var buf bytes.Buffer
	sink := uiout.NewText(&buf)
	Print(sink, exception.Errorf(exception.NotFoundError, "No symbol \"x\" in current context."))
	require.Equal(t, "No symbol \"x\" in current context.\n", buf.String())
}

func TestPrintSplitsLines(t *testing.T) {
	sink := &recordingSink{}
	Print(sink, exception.Errorf(exception.GenericError, "first\nsecond\n"))
	require.Equal(t, []string{
		"<error-begin>",
		"first\n",
		"second\n",
		"\n",
		"<error>",
	}, sink.writes)
	require.Equal(t, 1, sink.flushes)
}

func TestPrintAnyPrefix(t *testing.T) {
	sink := &recordingSink{}
	PrintAny(sink, "warning: ", exception.Errorf(exception.GenericError, "bad"))
	require.Equal(t, []string{"<error-begin>", "warning: ", "bad", "\n", "<error>"}, sink.writes)
}

func TestPrintfPrefix(t *testing.T) {
	sink := &recordingSink{}
	Printf(sink, exception.Errorf(exception.GenericError, "bad"), "%s %d: ", "breakpoint", 3)
	require.Equal(t, []string{"<error-begin>", "breakpoint 3: ", "bad", "\n", "<error>"}, sink.writes)
}

func TestPrintIgnoresNonAborts(t *testing.T) {
	sink := &recordingSink{}
	Print(sink, exception.Record{})
	PrintAny(sink, "prefix: ", exception.Record{})
	Printf(sink, exception.Record{}, "%d", 1)
	require.Empty(t, sink.writes)
	require.Zero(t, sink.flushes)
}

func TestPrintIgnoresSilentQuit(t *testing.T) {
	sink := &recordingSink{}
	Print(sink, exception.QuitWith(""))
	PrintAny(sink, "prefix: ", exception.QuitWith(""))
	require.Empty(t, sink.writes)
}

func TestPrintUnknownReasonIsDefect(t *testing.T) {
	sink := &recordingSink{}
	defer func() {
		r := recover()
		_, ok := exception.AsInternal(r)
		require.True(t, ok)
	}()
	Print(sink, exception.Record{Reason: -7, Message: "odd"})
}
