package catcher

import (
	"github.com/deepnoodle-ai/unwind/exception"
	"github.com/deepnoodle-ai/unwind/report"
	"github.com/deepnoodle-ai/unwind/uiout"
)

// protect runs body once inside a new catcher and leaves the outcome in
// slot. Aborts covered by mask are consumed; others are relayed after the
// catcher has been released.
func (s *Stack) protect(slot *exception.Record, mask exception.Mask, sink uiout.Sink, body func()) {
	c := s.acquire(slot, mask, sink)
	defer s.guard(c)
	for s.step(Iterate) {
		s.invoke(c, body)
	}
}

// invoke runs body and acts as the resume point of c: an abort addressed to
// c ends the call here, anything else keeps unwinding.
func (s *Stack) invoke(c *Catcher, body func()) {
	defer func() {
		if r := recover(); r != nil {
			if u, ok := r.(*unwinding); ok && u.target == c {
				return
			}
			panic(r)
		}
	}()
	body()
}

// guard releases c when a panic that no catcher intercepts, such as a
// defect, unwinds through the protected call.
func (s *Stack) guard(c *Catcher) {
	if c.released {
		return
	}
	s.log.Debug().Int("depth", c.depth).Stringer("state", c.state).Msg("catcher unwound by panic")
	s.release(c)
}

// report flushes the active output and reports rec to the error sink.
func (s *Stack) report(prefix string, rec exception.Record) {
	if !rec.IsAbort() || !rec.HasMessage() {
		return
	}
	if s.sink != s.errSink {
		_ = s.sink.Flush()
	}
	report.PrintAny(s.errSink, prefix, rec)
}

// CatchException runs fn with sink installed as the active output and
// returns the outcome. The record is None if fn returned normally. Aborts
// not covered by mask are relayed to the enclosing catcher.
func (s *Stack) CatchException(sink uiout.Sink, mask exception.Mask, fn func(out uiout.Sink)) exception.Record {
	var rec exception.Record
	s.protect(&rec, mask, sink, func() {
		fn(s.sink)
	})
	return rec
}

// CatchExceptions runs fn with sink installed as the active output. Any
// intercepted abort is reported to the error sink. It returns fn's result,
// which must be non-negative, or the (negative) abort reason.
func (s *Stack) CatchExceptions(sink uiout.Sink, mask exception.Mask, fn func(out uiout.Sink) int) int {
	return s.CatchExceptionsWithMsg(sink, mask, fn, nil)
}

// CatchExceptionsWithMsg is like CatchExceptions. When an abort is
// intercepted and msg is not nil, the abort's message is copied to *msg so
// the caller can issue it later.
func (s *Stack) CatchExceptionsWithMsg(sink uiout.Sink, mask exception.Mask, fn func(out uiout.Sink) int, msg *string) int {
	var rec exception.Record
	val := 0
	s.protect(&rec, mask, sink, func() {
		val = fn(s.sink)
	})
	s.report("", rec)
	if val < 0 {
		exception.Internalf("protected function returned negative value %d", val)
	}
	if rec.Reason > 0 {
		exception.Internalf("protected call ended with reason %d", int(rec.Reason))
	}
	if rec.IsAbort() {
		if msg != nil {
			*msg = rec.Message
		}
		return int(rec.Reason)
	}
	return val
}

// CatchErrors runs fn, reporting any intercepted abort to the error sink
// preceded by prefix. It returns fn's result, or 0 if fn was aborted.
func (s *Stack) CatchErrors(mask exception.Mask, prefix string, fn func() int) int {
	var rec exception.Record
	val := 0
	s.protect(&rec, mask, nil, func() {
		val = fn()
	})
	s.report(prefix, rec)
	if rec.Reason != exception.None {
		return 0
	}
	return val
}

// CatchCommandErrors runs a command, reporting any intercepted abort. It
// returns true if the command completed and false if it was aborted.
func (s *Stack) CatchCommandErrors(mask exception.Mask, cmd func(arg string, fromTTY bool), arg string, fromTTY bool) bool {
	var rec exception.Record
	s.protect(&rec, mask, nil, func() {
		cmd(arg, fromTTY)
	})
	s.report("", rec)
	return !rec.IsAbort()
}
