package shell

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deepnoodle-ai/unwind"
	"github.com/deepnoodle-ai/unwind/exception"
	"github.com/deepnoodle-ai/unwind/journal"
)

type harness struct {
	sh     *Shell
	out    *bytes.Buffer
	errOut *bytes.Buffer
}

func newHarness(engineOpts []unwind.Option, opts ...Option) *harness {
	h := &harness{out: &bytes.Buffer{}, errOut: &bytes.Buffer{}}
	engineOpts = append([]unwind.Option{
		unwind.WithOutput(h.out),
		unwind.WithErrorOutput(h.errOut),
	}, engineOpts...)
	h.sh = New(unwind.New(engineOpts...), opts...)
	return h
}

func (h *harness) exec(t *testing.T, line string) bool {
	t.Helper()
	ok := h.sh.Execute(context.Background(), line, true)
	require.Equal(t, 0, h.sh.Stack().Depth(), "catcher leaked by %q", line)
	return ok
}

func (h *harness) reset() {
	h.out.Reset()
	h.errOut.Reset()
}

func TestEcho(t *testing.T) {
	h := newHarness(nil)
	require.True(t, h.exec(t, "echo hello world"))
	require.Equal(t, "hello world\n", h.out.String())
	require.Empty(t, h.errOut.String())
	require.Equal(t, 0, h.sh.Failures())
}

func TestBlankAndCommentLines(t *testing.T) {
	h := newHarness(nil)
	require.True(t, h.exec(t, "   "))
	require.True(t, h.exec(t, "# nothing"))
	require.Empty(t, h.out.String())
}

func TestUndefinedCommand(t *testing.T) {
	h := newHarness(nil)
	require.False(t, h.exec(t, "frobnicate now"))
	require.Equal(t, "Undefined command: \"frobnicate\".  Try \"help\".\n", h.errOut.String())
	require.Equal(t, exception.NotFoundError, h.sh.LastRecord().Kind)
	require.Equal(t, 1, h.sh.Failures())
}

func TestErrorCommand(t *testing.T) {
	h := newHarness(nil)
	require.False(t, h.exec(t, "error -k memory Cannot access memory at address 0x0"))
	require.Equal(t, exception.MemoryError, h.sh.LastRecord().Kind)
	require.Equal(t, "Cannot access memory at address 0x0\n", h.errOut.String())

	h.reset()
	require.False(t, h.exec(t, "error"))
	require.Equal(t, "Argument required (message to report).\n", h.errOut.String())

	h.reset()
	require.False(t, h.exec(t, "error -k bogus oops"))
	require.Equal(t, "Unknown error kind \"bogus\".\n", h.errOut.String())
}

func TestQuitCommand(t *testing.T) {
	h := newHarness(nil)
	require.False(t, h.exec(t, "quit"))
	require.Empty(t, h.errOut.String())
	require.Equal(t, exception.Quit, h.sh.LastRecord().Reason)

	require.False(t, h.exec(t, "quit Interrupted"))
	require.Equal(t, "Interrupted\n", h.errOut.String())
}

func TestAnnotatedReportIsWrittenOnce(t *testing.T) {
	h := newHarness([]unwind.Option{unwind.WithAnnotationLevel(2)})
	require.False(t, h.exec(t, "error boom"))
	require.Equal(t, "\n\x1a\x1aerror-begin\nboom\n\n\x1a\x1aerror\n", h.errOut.String())
}

func TestCleanupRuns(t *testing.T) {
	h := newHarness(nil)
	require.False(t, h.exec(t, "cleanup undo first; cleanup undo second; error boom"))
	require.Equal(t, "undo second\nundo first\n", h.out.String())
	require.Equal(t, "boom\n", h.errOut.String())

	h.reset()
	require.True(t, h.exec(t, "cleanup release; echo ok"))
	require.Equal(t, "ok\nrelease\n", h.out.String())
	require.Equal(t, 0, h.sh.Engine().Cleanups().Len())
}

func TestTry(t *testing.T) {
	h := newHarness(nil)
	require.True(t, h.exec(t, "try error inner; echo after"))
	require.Equal(t, "try: inner\n", h.errOut.String())
	require.Equal(t, "continuing after error\nafter\n", h.out.String())
	require.Equal(t, 0, h.sh.Failures())

	h.reset()
	require.True(t, h.exec(t, "try echo fine"))
	require.Equal(t, "fine\n", h.out.String())
}

func TestTryRelaysQuit(t *testing.T) {
	h := newHarness(nil)
	require.False(t, h.exec(t, "try quit Stop; echo never"))
	require.Equal(t, "Stop\n", h.errOut.String())
	require.Empty(t, h.out.String())
	require.Equal(t, exception.Quit, h.sh.LastRecord().Reason)
}

func TestTryCleanupScopes(t *testing.T) {
	h := newHarness(nil)
	// A cleanup still pending when try completes is dropped with its scope.
	require.True(t, h.exec(t, "cleanup outer; try cleanup inner; echo body"))
	require.Equal(t, "body\nouter\n", h.out.String())

	h.reset()
	h.sh.Register(Command{Name: "scoped", Run: func(sh *Shell, arg string, fromTTY bool) {
		sh.dispatch("cleanup inner", fromTTY)
		sh.dispatch("error "+arg, fromTTY)
	}})
	require.True(t, h.exec(t, "cleanup outer; try scoped failed"))
	require.Equal(t, "inner\ncontinuing after error\nouter\n", h.out.String())
	require.Equal(t, "try: failed\n", h.errOut.String())
}

func TestQueue(t *testing.T) {
	h := newHarness(nil)
	require.True(t, h.exec(t, "queue echo later; echo now"))
	require.Equal(t, "now\nlater\n", h.out.String())

	h.reset()
	require.False(t, h.exec(t, "queue echo never; error boom"))
	require.Empty(t, h.sh.Engine().Session().Queued())
	require.True(t, h.exec(t, "echo next"))
	require.Equal(t, "next\n", h.out.String())
}

func TestQueuedActionFailureDropsRest(t *testing.T) {
	h := newHarness(nil)
	require.False(t, h.exec(t, "queue error first; queue echo second"))
	require.Empty(t, h.out.String())
	require.Equal(t, "first\n", h.errOut.String())
	require.Empty(t, h.sh.Engine().Session().Queued())
}

func TestDisplay(t *testing.T) {
	h := newHarness(nil)
	require.True(t, h.exec(t, "display echo tick"))
	require.Equal(t, "1: echo tick\ntick\n", h.out.String())

	h.reset()
	require.True(t, h.exec(t, "echo x"))
	require.Equal(t, "x\n1: echo tick\ntick\n", h.out.String())
}

func TestFailingDisplayIsDisabled(t *testing.T) {
	h := newHarness(nil)
	require.True(t, h.exec(t, "display error bad"))
	require.Equal(t, "1: error bad\n", h.out.String())
	require.Equal(t, "bad\n", h.errOut.String())

	displays := h.sh.Engine().Session().Displays()
	require.Len(t, displays, 1)
	require.False(t, displays[0].Enabled)

	h.reset()
	require.True(t, h.exec(t, "show displays"))
	require.Equal(t, "1: n error bad\n", h.out.String())
}

func TestRunStopsTargetOnAbort(t *testing.T) {
	h := newHarness(nil)
	require.False(t, h.exec(t, "run error boom"))
	require.Equal(t, "target stopped\n", h.out.String())
	session := h.sh.Engine().Session()
	require.False(t, session.Executing())
	require.False(t, session.SyncWaitOutstanding())

	h.reset()
	require.True(t, h.exec(t, "run echo ok"))
	require.Equal(t, "ok\n", h.out.String())
	require.Equal(t, 0, session.ExecErrorCleanups().Len())
}

func TestBackgroundCancelledOnAbort(t *testing.T) {
	h := newHarness([]unwind.Option{unwind.WithAsync(true)})
	require.False(t, h.exec(t, "background error boom"))
	require.Equal(t, "background execution cancelled\n", h.out.String())
	require.Equal(t, 0, h.sh.Engine().Session().ExecCleanups().Len())

	h.reset()
	require.True(t, h.exec(t, "background echo ok"))
	require.Equal(t, "ok\n", h.out.String())
}

func TestSpin(t *testing.T) {
	h := newHarness(nil)
	require.True(t, h.exec(t, "spin 1"))
	require.Equal(t, "spun 1ms\n", h.out.String())

	h.reset()
	require.False(t, h.exec(t, "spin many"))
	require.Equal(t, "Invalid number \"many\".\n", h.errOut.String())
}

func TestSpinInterrupted(t *testing.T) {
	h := newHarness(nil)
	require.False(t, h.exec(t, "quit-after 5ms; spin 5000"))
	require.Empty(t, h.out.String())
	require.Equal(t, "Quit\n", h.errOut.String())
	require.Equal(t, exception.Quit, h.sh.LastRecord().Reason)
	require.False(t, h.sh.Engine().Flags().QuitRequested())
}

func TestShowException(t *testing.T) {
	h := newHarness(nil)
	h.exec(t, "error -k not-found gone")
	h.reset()
	require.True(t, h.exec(t, "show exception"))
	require.JSONEq(t, `{"reason":"error","kind":"not found","message":"gone"}`, h.out.String())
}

func TestShowExceptionColor(t *testing.T) {
	h := newHarness(nil, WithColor(true))
	h.exec(t, "error gone")
	h.reset()
	require.True(t, h.exec(t, "show exception"))
	require.Contains(t, h.out.String(), "gone")
}

func TestShowLastMessage(t *testing.T) {
	h := newHarness(nil)
	h.exec(t, "error boom")
	h.reset()
	require.True(t, h.exec(t, "show last-message"))
	require.Equal(t, "boom\n", h.out.String())
}

func TestShowErrors(t *testing.T) {
	h := newHarness(nil)
	require.False(t, h.exec(t, "show"))
	require.False(t, h.exec(t, "show colors"))
	require.False(t, h.exec(t, "show journal"))
	require.Equal(t, "Argument required (what to show).\n"+
		"Undefined show command: \"colors\".\n"+
		"No journal is configured.\n", h.errOut.String())
}

func TestJournal(t *testing.T) {
	store := journal.NewMemory(0)
	h := newHarness(nil, WithJournal(store))
	h.exec(t, "error one")
	h.exec(t, "echo fine")
	h.exec(t, "quit Stop")

	entries, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "quit Stop", entries[0].Command)
	require.Equal(t, exception.Quit, entries[0].Reason)
	require.Equal(t, "error one", entries[1].Command)
	require.Equal(t, "one", entries[1].Message)
	require.NotEqual(t, entries[0].ID, entries[1].ID)

	h.reset()
	require.True(t, h.exec(t, "show journal 1"))
	require.Contains(t, h.out.String(), `"quit Stop"`)
	require.NotContains(t, h.out.String(), `"error one"`)
}

func TestHelp(t *testing.T) {
	h := newHarness(nil)
	require.True(t, h.exec(t, "help"))
	require.Contains(t, h.out.String(), "echo")
	require.Contains(t, h.out.String(), "try")

	h.reset()
	require.True(t, h.exec(t, "help echo"))
	require.Equal(t, "echo TEXT\n  Print TEXT.\n", h.out.String())

	require.False(t, h.exec(t, "help nope"))
}

func TestRegister(t *testing.T) {
	h := newHarness(nil, WithoutBuiltins())
	require.Empty(t, h.sh.Commands())
	h.sh.Register(Command{Name: "greet", Run: func(sh *Shell, arg string, _ bool) {
		sh.Printf("hello %s\n", arg)
	}})
	require.True(t, h.exec(t, "greet  gopher "))
	require.Equal(t, "hello gopher\n", h.out.String())
	require.False(t, h.exec(t, "echo x"))

	defer func() {
		_, ok := exception.AsInternal(recover())
		require.True(t, ok)
	}()
	h.sh.Register(Command{Name: "broken"})
}

func TestRun(t *testing.T) {
	h := newHarness(nil)
	script := "echo a\nerror b\n\n# comment\necho c\nexit\necho never\n"
	require.NoError(t, h.sh.Run(context.Background(), strings.NewReader(script)))
	require.Equal(t, "a\nc\n", h.out.String())
	require.Equal(t, "b\n", h.errOut.String())
	require.Equal(t, 1, h.sh.Failures())
	require.True(t, h.sh.Exited())
}

func TestRunCanceled(t *testing.T) {
	h := newHarness(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := h.sh.Run(ctx, strings.NewReader("echo a\n"))
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, h.out.String())
}
