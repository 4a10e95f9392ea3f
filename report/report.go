// Package report renders abort records to an output sink.
package report

import (
	"fmt"
	"io"

	"github.com/deepnoodle-ai/unwind/exception"
	"github.com/deepnoodle-ai/unwind/uiout"
)

// Print reports rec to sink without a prefix.
func Print(sink uiout.Sink, rec exception.Record) {
	PrintAny(sink, "", rec)
}

// Printf reports rec to sink, preceded by a formatted prefix.
func Printf(sink uiout.Sink, rec exception.Record, format string, args ...any) {
	if !printable(rec) {
		return
	}
	PrintAny(sink, fmt.Sprintf(format, args...), rec)
}

// PrintAny reports rec to sink. Records that are not aborts, or that carry
// no message, are ignored. Otherwise pending output is flushed, the error
// begin marker is emitted, prefix is written verbatim, and the message is
// written one line at a time followed by a newline and a marker for the
// record's reason.
func PrintAny(sink uiout.Sink, prefix string, rec exception.Record) {
	if !printable(rec) {
		return
	}
	_ = sink.Flush()
	sink.Annotate(uiout.ErrorBegin)
	if prefix != "" {
		_, _ = io.WriteString(sink, prefix)
	}
	// Line-oriented consumers see each physical line in its own write.
	for _, line := range rec.Lines() {
		if line == "" {
			continue
		}
		_, _ = io.WriteString(sink, line)
	}
	_, _ = io.WriteString(sink, "\n")

	switch rec.Reason {
	case exception.Quit:
		sink.Annotate(uiout.Quit)
	case exception.Error:
		sink.Annotate(uiout.Error)
	default:
		exception.Internalf("report of record with reason %s", rec.Reason)
	}
}

func printable(rec exception.Record) bool {
	return rec.IsAbort() && rec.HasMessage()
}
