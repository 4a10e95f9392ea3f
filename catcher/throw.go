package catcher

import (
	"fmt"

	"github.com/deepnoodle-ai/unwind/exception"
)

// Throw aborts the current protected call with rec. Before control leaves,
// the interrupt flags are cleared and the hooks restore session state. The
// pending cleanups of the innermost scope run next. Throw never returns.
//
// Throwing a record that fails Validate, or throwing with no active catcher,
// is a defect. The record is checked before any state is touched.
//
// Throw must not be called from a function deferred inside a protected body
// while another abort is unwinding through it: the catcher is already
// aborting, and a second throw is a defect that crashes the program.
func (s *Stack) Throw(rec exception.Record) {
	if err := rec.Validate(); err != nil {
		exception.Internalf("throw of invalid record: %v", err)
	}

	s.flags.Clear()

	s.hooks.ClearQueuedActions()
	s.hooks.DisableLiveDisplay()
	if err := s.cleanups.RunAll(); err != nil {
		s.log.Warn().Err(err).Msg("cleanup failed during abort")
	}
	if s.hooks.AsyncExecutionActive() {
		s.hooks.RunExecCleanups()
	}
	if s.hooks.SyncWaitOutstanding() {
		s.hooks.RunExecErrorCleanups()
	}

	c := s.top
	if c == nil {
		exception.Internalf("no catcher for %s", rec)
	}
	s.step(Throwing)
	*c.slot = rec
	s.log.Debug().Int("depth", c.depth).Stringer("reason", rec.Reason).
		Stringer("kind", rec.Kind).Msg("throw")
	s.observer.OnThrow(ThrowEvent{Depth: c.depth, Mask: c.mask, Record: rec})
	panic(&unwinding{target: c})
}

// ThrowReason throws a record built from reason alone. Quit is thrown
// without a message; Error is thrown as a GenericError described by its kind.
func (s *Stack) ThrowReason(reason exception.Reason) {
	switch reason {
	case exception.Quit:
		s.Throw(exception.QuitWith(""))
	case exception.Error:
		s.Throw(exception.New(exception.Error, exception.GenericError, exception.GenericError.String()))
	default:
		exception.Internalf("throw of reason %s", reason)
	}
}

// ThrowError throws an Error of the given kind with msg.
func (s *Stack) ThrowError(kind exception.ErrorKind, msg string) {
	s.throwMessage(exception.Error, kind, msg)
}

// ThrowErrorf throws an Error of the given kind with a formatted message.
func (s *Stack) ThrowErrorf(kind exception.ErrorKind, format string, args ...any) {
	s.throwMessage(exception.Error, kind, fmt.Sprintf(format, args...))
}

// ThrowQuitf throws a Quit with a formatted message.
func (s *Stack) ThrowQuitf(format string, args ...any) {
	s.throwMessage(exception.Quit, exception.NoError, fmt.Sprintf(format, args...))
}

func (s *Stack) throwMessage(reason exception.Reason, kind exception.ErrorKind, msg string) {
	s.lastMessage = msg
	s.Throw(exception.New(reason, kind, msg))
}

// CheckQuit is a cooperative cancellation point. Long-running operations
// call it periodically; it throws a Quit if one was requested and interrupts
// are not suppressed.
func (s *Stack) CheckQuit() {
	if s.flags.ShouldQuit() {
		s.ThrowQuitf("Quit")
	}
}
