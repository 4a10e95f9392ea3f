package catcher

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/deepnoodle-ai/unwind/cleanup"
	"github.com/deepnoodle-ai/unwind/exception"
	"github.com/deepnoodle-ai/unwind/interrupt"
	"github.com/deepnoodle-ai/unwind/uiout"
)

// Option is a configuration function for a Stack.
type Option func(*Stack)

// WithSink sets the output sink that is active when no protected call has
// installed one.
func WithSink(sink uiout.Sink) Option {
	return func(s *Stack) {
		s.sink = sink
	}
}

// WithErrorSink sets the sink that runners report aborts to.
func WithErrorSink(sink uiout.Sink) Option {
	return func(s *Stack) {
		s.errSink = sink
	}
}

// WithCleanups sets the deferred-cleanup registry.
func WithCleanups(c Cleanups) Option {
	return func(s *Stack) {
		s.cleanups = c
	}
}

// WithHooks sets the session hooks invoked by Throw.
func WithHooks(h Hooks) Option {
	return func(s *Stack) {
		s.hooks = h
	}
}

// WithFlags sets the interrupt flags cleared by Throw and polled by
// CheckQuit.
func WithFlags(f *interrupt.Flags) Option {
	return func(s *Stack) {
		s.flags = f
	}
}

// WithLogger sets the logger used for scope and abort events.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Stack) {
		s.log = l
	}
}

// WithObserver sets an observer for scope and abort events.
func WithObserver(o Observer) Option {
	return func(s *Stack) {
		s.observer = o
	}
}

// Stack is the chain of active catchers for one logical call stack. All
// protected calls and throws sharing a Stack must run on the same goroutine.
type Stack struct {
	top         *Catcher
	depth       int
	sink        uiout.Sink
	errSink     uiout.Sink
	cleanups    Cleanups
	hooks       Hooks
	flags       *interrupt.Flags
	lastMessage string
	log         zerolog.Logger
	observer    Observer
}

// New returns an empty Stack. Unless configured otherwise, output goes to
// os.Stdout, aborts are reported to os.Stderr, cleanups use a fresh
// cleanup.Chain and session hooks are no-ops.
func New(opts ...Option) *Stack {
	s := &Stack{
		log:      zerolog.Nop(),
		observer: NoOpObserver{},
		hooks:    NoHooks{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sink == nil {
		s.sink = uiout.NewText(os.Stdout)
	}
	if s.errSink == nil {
		s.errSink = uiout.NewText(os.Stderr)
	}
	if s.cleanups == nil {
		s.cleanups = cleanup.New()
	}
	if s.flags == nil {
		s.flags = &interrupt.Flags{}
	}
	return s
}

// Depth returns the number of active catchers.
func (s *Stack) Depth() int {
	return s.depth
}

// Sink returns the active output sink.
func (s *Stack) Sink() uiout.Sink {
	return s.sink
}

// ErrorSink returns the sink aborts are reported to.
func (s *Stack) ErrorSink() uiout.Sink {
	return s.errSink
}

// Flags returns the interrupt flags.
func (s *Stack) Flags() *interrupt.Flags {
	return s.flags
}

// LastMessage returns the message of the most recent formatted throw.
func (s *Stack) LastMessage() string {
	return s.lastMessage
}

// acquire pushes a new catcher. The caller-owned slot is reset to "no
// abort". A nil sink keeps the current one active.
func (s *Stack) acquire(slot *exception.Record, mask exception.Mask, sink uiout.Sink) *Catcher {
	*slot = exception.Record{}
	c := &Catcher{
		slot:      slot,
		mask:      mask,
		savedSink: s.sink,
		prev:      s.top,
		depth:     s.depth + 1,
		state:     Created,
	}
	if sink != nil {
		s.sink = sink
	}
	c.savedCleanups = s.cleanups.Snapshot()
	s.top = c
	s.depth = c.depth
	s.log.Debug().Int("depth", c.depth).Stringer("mask", mask).Msg("catcher acquired")
	s.observer.OnAcquire(ScopeEvent{Depth: c.depth, Mask: mask})
	return c
}

// release pops c, which must be the top of the stack, and restores the sink
// and cleanup scope that were active when it was pushed.
func (s *Stack) release(c *Catcher) {
	if c != s.top {
		exception.Internalf("releasing catcher %d but catcher %d is on top", c.depth, s.depthOfTop())
	}
	s.sink = c.savedSink
	s.cleanups.Restore(c.savedCleanups)
	s.top = c.prev
	s.depth = c.depth - 1
	c.released = true
	c.prev = nil
	s.log.Debug().Int("depth", c.depth).Stringer("state", c.state).Msg("catcher released")
	s.observer.OnRelease(ScopeEvent{Depth: c.depth, Mask: c.mask})
}

func (s *Stack) depthOfTop() int {
	if s.top == nil {
		return 0
	}
	return s.top.depth
}

// step applies action to the top catcher and reports whether the protected
// body should run again. Invalid transitions are defects.
func (s *Stack) step(action Action) bool {
	c := s.top
	if c == nil {
		exception.Internalf("catcher action %s with no active catcher", action)
	}
	switch c.state {
	case Created:
		if action == Iterate {
			c.state = Running
			return true
		}
	case Running:
		switch action {
		case Iterate:
			s.release(c)
			return false
		case IterateAlt:
			c.state = RunningAlt
			return true
		case Throwing:
			c.state = Aborting
			return true
		}
	case RunningAlt:
		switch action {
		case Iterate:
			// The breakable block was left early.
			s.release(c)
			return false
		case IterateAlt:
			c.state = Running
			return false
		case Throwing:
			c.state = Aborting
			return true
		}
	case Aborting:
		if action == Iterate {
			rec := *c.slot
			event := ThrowEvent{Depth: c.depth, Mask: c.mask, Record: rec}
			if c.mask.Covers(rec.Reason) {
				s.release(c)
				s.log.Debug().Int("depth", c.depth).Stringer("reason", rec.Reason).Msg("abort caught")
				s.observer.OnCatch(event)
				return false
			}
			s.release(c)
			s.log.Debug().Int("depth", c.depth).Stringer("reason", rec.Reason).
				Stringer("mask", c.mask).Msg("abort relayed")
			s.observer.OnRelay(event)
			s.Throw(rec)
		}
	}
	exception.Internalf("bad catcher transition: %s in state %s", action, c.state)
	return false
}
