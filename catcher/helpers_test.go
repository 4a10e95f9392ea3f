package catcher

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deepnoodle-ai/unwind/cleanup"
	"github.com/deepnoodle-ai/unwind/exception"
	"github.com/deepnoodle-ai/unwind/interrupt"
	"github.com/deepnoodle-ai/unwind/uiout"
)

type hookRecorder struct {
	calls []string
	async bool
	sync  bool
}

func (h *hookRecorder) ClearQueuedActions()        { h.calls = append(h.calls, "clear-queued") }
func (h *hookRecorder) DisableLiveDisplay()        { h.calls = append(h.calls, "disable-display") }
func (h *hookRecorder) AsyncExecutionActive() bool { return h.async }
func (h *hookRecorder) SyncWaitOutstanding() bool  { return h.sync }
func (h *hookRecorder) RunExecCleanups()           { h.calls = append(h.calls, "exec-cleanups") }
func (h *hookRecorder) RunExecErrorCleanups()      { h.calls = append(h.calls, "exec-error-cleanups") }

type eventRecorder struct {
	NoOpObserver
	events []string
}

func (r *eventRecorder) OnThrow(e ThrowEvent) {
	r.events = append(r.events, fmt.Sprintf("throw %d %s", e.Depth, e.Record.Reason))
}

func (r *eventRecorder) OnCatch(e ThrowEvent) {
	r.events = append(r.events, fmt.Sprintf("catch %d %s", e.Depth, e.Record.Reason))
}

func (r *eventRecorder) OnRelay(e ThrowEvent) {
	r.events = append(r.events, fmt.Sprintf("relay %d %s", e.Depth, e.Record.Reason))
}

type fixture struct {
	stack   *Stack
	out     *bytes.Buffer
	errOut  *bytes.Buffer
	outSink *uiout.Text
	errSink *uiout.Text
	chain   *cleanup.Chain
	hooks   *hookRecorder
	events  *eventRecorder
	flags   *interrupt.Flags
}

func newFixture() *fixture {
	f := &fixture{
		out:    &bytes.Buffer{},
		errOut: &bytes.Buffer{},
		chain:  cleanup.New(),
		hooks:  &hookRecorder{},
		events: &eventRecorder{},
		flags:  &interrupt.Flags{},
	}
	f.outSink = uiout.NewText(f.out)
	f.errSink = uiout.NewText(f.errOut, uiout.WithAnnotationLevel(2))
	f.stack = New(
		WithSink(f.outSink),
		WithErrorSink(f.errSink),
		WithCleanups(f.chain),
		WithHooks(f.hooks),
		WithFlags(f.flags),
		WithObserver(f.events),
	)
	return f
}

// requireDefect asserts that fn panics with an InternalError.
func requireDefect(t *testing.T, fn func()) *exception.InternalError {
	t.Helper()
	var got *exception.InternalError
	func() {
		defer func() {
			r := recover()
			require.NotNil(t, r, "expected a defect")
			err, ok := exception.AsInternal(r)
			require.True(t, ok, "expected InternalError, got %v", r)
			got = err
		}()
		fn()
	}()
	return got
}
