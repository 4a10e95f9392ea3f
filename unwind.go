// Package unwind assembles an exception propagation core: a catcher stack
// with its output sinks, deferred-cleanup registry, session hooks and
// interrupt flags.
package unwind

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/deepnoodle-ai/unwind/catcher"
	"github.com/deepnoodle-ai/unwind/cleanup"
	"github.com/deepnoodle-ai/unwind/exception"
	"github.com/deepnoodle-ai/unwind/interrupt"
	"github.com/deepnoodle-ai/unwind/session"
	"github.com/deepnoodle-ai/unwind/uiout"
)

// Option configures an Engine.
type Option func(*options)

type options struct {
	out             io.Writer
	errOut          io.Writer
	log             zerolog.Logger
	observers       []catcher.Observer
	hooks           catcher.Hooks
	annotationLevel int
	color           bool
	async           bool
}

func collectOptions(opts ...Option) *options {
	o := &options{
		out:    os.Stdout,
		errOut: os.Stderr,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

func (o *options) observer() catcher.Observer {
	switch len(o.observers) {
	case 0:
		return catcher.NoOpObserver{}
	case 1:
		return o.observers[0]
	default:
		return catcher.MultiObserver(o.observers)
	}
}

// WithOutput sets where normal command output is written.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.out = w
	}
}

// WithErrorOutput sets where aborts are reported.
func WithErrorOutput(w io.Writer) Option {
	return func(o *options) {
		o.errOut = w
	}
}

// WithLogger sets the logger for scope and abort events.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithObserver adds an observer of scope and abort events. This option is
// additive; observers are notified in the order given.
func WithObserver(obs catcher.Observer) Option {
	return func(o *options) {
		o.observers = append(o.observers, obs)
	}
}

// WithHooks replaces the session as the hooks invoked on abort.
func WithHooks(h catcher.Hooks) Option {
	return func(o *options) {
		o.hooks = h
	}
}

// WithAnnotationLevel sets the annotation level of both sinks. At level 2
// and above, error reports are bracketed by markers.
func WithAnnotationLevel(level int) Option {
	return func(o *options) {
		o.annotationLevel = level
	}
}

// WithColor enables colored error reports.
func WithColor(enabled bool) Option {
	return func(o *options) {
		o.color = enabled
	}
}

// WithAsync marks the session's target as able to run asynchronously.
func WithAsync(enabled bool) Option {
	return func(o *options) {
		o.async = enabled
	}
}

// Engine owns one catcher stack and the state it restores. An Engine must be
// used from a single goroutine, except for its interrupt flags.
type Engine struct {
	stack    *catcher.Stack
	cleanups *cleanup.Chain
	session  *session.State
	flags    *interrupt.Flags
	out      *uiout.Text
	errOut   *uiout.Text
	log      zerolog.Logger
}

// New returns an Engine configured with the given options.
func New(opts ...Option) *Engine {
	o := collectOptions(opts...)
	e := &Engine{
		cleanups: cleanup.New(),
		session:  session.New(session.WithLogger(o.log), session.WithAsync(o.async)),
		flags:    &interrupt.Flags{},
		out:      uiout.NewText(o.out, uiout.WithAnnotationLevel(o.annotationLevel)),
		errOut: uiout.NewText(o.errOut,
			uiout.WithAnnotationLevel(o.annotationLevel),
			uiout.WithColor(o.color)),
		log: o.log,
	}
	var hooks catcher.Hooks = e.session
	if o.hooks != nil {
		hooks = o.hooks
	}
	e.stack = catcher.New(
		catcher.WithSink(e.out),
		catcher.WithErrorSink(e.errOut),
		catcher.WithCleanups(e.cleanups),
		catcher.WithHooks(hooks),
		catcher.WithFlags(e.flags),
		catcher.WithLogger(o.log),
		catcher.WithObserver(o.observer()),
	)
	return e
}

// Stack returns the catcher stack.
func (e *Engine) Stack() *catcher.Stack { return e.stack }

// Cleanups returns the deferred-cleanup registry.
func (e *Engine) Cleanups() *cleanup.Chain { return e.cleanups }

// Session returns the session state.
func (e *Engine) Session() *session.State { return e.session }

// Flags returns the interrupt flags.
func (e *Engine) Flags() *interrupt.Flags { return e.flags }

// Output returns the sink for normal output.
func (e *Engine) Output() uiout.Sink { return e.out }

// ErrorOutput returns the sink aborts are reported to.
func (e *Engine) ErrorOutput() uiout.Sink { return e.errOut }

// Logger returns the engine's logger.
func (e *Engine) Logger() zerolog.Logger { return e.log }

// Run executes fn inside a catcher that intercepts every abort and returns
// the outcome without reporting it.
func (e *Engine) Run(fn func()) exception.Record {
	return e.stack.CatchException(nil, exception.MaskAll, func(uiout.Sink) {
		fn()
	})
}

// HandleInterrupts requests a quit whenever the process is interrupted,
// until ctx is done.
func (e *Engine) HandleInterrupts(ctx context.Context) {
	interrupt.Notify(ctx, e.flags)
}

// Flush writes out any buffered output.
func (e *Engine) Flush() error {
	if err := e.out.Flush(); err != nil {
		return err
	}
	return e.errOut.Flush()
}
