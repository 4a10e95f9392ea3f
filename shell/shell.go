// Package shell is a small line-oriented command interpreter built on the
// catcher stack. Every command runs as a protected call: a failing command
// is reported, journaled and abandoned, and the interpreter carries on with
// the next line.
package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"

	"github.com/deepnoodle-ai/unwind"
	"github.com/deepnoodle-ai/unwind/catcher"
	"github.com/deepnoodle-ai/unwind/exception"
	"github.com/deepnoodle-ai/unwind/journal"
	"github.com/deepnoodle-ai/unwind/uiout"
)

// Command is a named shell command. Run receives everything after the
// command name, with surrounding space removed.
type Command struct {
	Name  string
	Usage string
	Help  string
	Run   func(sh *Shell, arg string, fromTTY bool)
}

// Option configures a Shell.
type Option func(*Shell)

// WithJournal records failed commands in store.
func WithJournal(store journal.Store) Option {
	return func(sh *Shell) {
		sh.journal = store
	}
}

// WithColor enables colored JSON output.
func WithColor(enabled bool) Option {
	return func(sh *Shell) {
		sh.color = enabled
	}
}

// WithoutBuiltins starts the shell with no commands registered.
func WithoutBuiltins() Option {
	return func(sh *Shell) {
		sh.noBuiltins = true
	}
}

// Shell dispatches command lines to registered commands.
type Shell struct {
	engine     *unwind.Engine
	commands   map[string]*Command
	journal    journal.Store
	log        zerolog.Logger
	color      bool
	noBuiltins bool

	ctx      context.Context
	last     exception.Record
	failures int
	exited   bool
}

// New returns a shell running commands on engine.
func New(engine *unwind.Engine, opts ...Option) *Shell {
	sh := &Shell{
		engine:   engine,
		commands: map[string]*Command{},
		log:      engine.Logger(),
		ctx:      context.Background(),
	}
	for _, opt := range opts {
		opt(sh)
	}
	if !sh.noBuiltins {
		for _, cmd := range builtins() {
			sh.Register(cmd)
		}
	}
	return sh
}

// Register adds cmd, replacing any command with the same name.
func (sh *Shell) Register(cmd Command) {
	if cmd.Name == "" || cmd.Run == nil {
		exception.Internalf("command must have a name and a run function")
	}
	c := cmd
	sh.commands[cmd.Name] = &c
}

// Commands returns the registered commands sorted by name.
func (sh *Shell) Commands() []Command {
	out := make([]Command, 0, len(sh.commands))
	for _, c := range sh.commands {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Engine returns the engine commands run on.
func (sh *Shell) Engine() *unwind.Engine {
	return sh.engine
}

// Stack returns the engine's catcher stack.
func (sh *Shell) Stack() *catcher.Stack {
	return sh.engine.Stack()
}

// Out returns the active output sink.
func (sh *Shell) Out() uiout.Sink {
	return sh.engine.Stack().Sink()
}

// Printf writes formatted text to the active output sink.
func (sh *Shell) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(sh.Out(), format, args...)
}

// LastRecord returns the abort that ended the most recent failed command.
func (sh *Shell) LastRecord() exception.Record {
	return sh.last
}

// Failures returns the number of failed commands.
func (sh *Shell) Failures() int {
	return sh.failures
}

// Exited returns true once the exit command has run.
func (sh *Shell) Exited() bool {
	return sh.exited
}

// Execute runs one command line and reports whether it completed. A failure
// is reported to the engine's error output and recorded in the journal.
// Live displays are refreshed afterwards either way.
func (sh *Shell) Execute(ctx context.Context, line string, fromTTY bool) bool {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return true
	}
	sh.ctx = ctx
	id := uuid.Must(uuid.NewV4())
	log := sh.log.With().Str("invocation", id.String()).Str("command", line).Logger()
	log.Debug().Bool("from_tty", fromTTY).Msg("execute")

	stack := sh.engine.Stack()
	ok := stack.CatchCommandErrors(exception.MaskAll, func(line string, fromTTY bool) {
		rec := stack.CatchException(nil, exception.MaskAll, func(uiout.Sink) {
			sh.runLine(line, fromTTY)
		})
		if rec.IsAbort() {
			sh.recordFailure(ctx, log, id, line, rec)
			stack.Throw(rec)
		}
	}, line, fromTTY)

	sh.refreshDisplays()
	if err := sh.engine.Flush(); err != nil {
		log.Warn().Err(err).Msg("flush failed")
	}
	return ok
}

// runLine runs each ;-separated command of line in order, then the actions
// the commands queued. Cleanups registered along the way run when the line
// completes.
func (sh *Shell) runLine(line string, fromTTY bool) {
	for _, part := range strings.Split(line, ";") {
		sh.dispatch(part, fromTTY)
	}
	session := sh.engine.Session()
	for {
		action, ok := session.TakeQueued()
		if !ok {
			break
		}
		sh.dispatch(action, false)
	}
	if err := sh.engine.Cleanups().RunAll(); err != nil {
		sh.Stack().ThrowErrorf(exception.GenericError, "%v", err)
	}
}

// dispatch runs a single command without any protection of its own.
func (sh *Shell) dispatch(text string, fromTTY bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	name, arg, _ := strings.Cut(text, " ")
	cmd, ok := sh.commands[name]
	if !ok {
		sh.Stack().ThrowErrorf(exception.NotFoundError, "Undefined command: %q.  Try \"help\".", name)
	}
	cmd.Run(sh, strings.TrimSpace(arg), fromTTY)
}

func (sh *Shell) recordFailure(ctx context.Context, log zerolog.Logger, id uuid.UUID, line string, rec exception.Record) {
	sh.last = rec
	sh.failures++
	log.Info().Stringer("reason", rec.Reason).Stringer("kind", rec.Kind).Str("message", rec.Message).Msg("command failed")
	if sh.journal == nil {
		return
	}
	if err := sh.journal.Append(ctx, journal.NewEntry(id, line, rec)); err != nil {
		log.Warn().Err(err).Msg("journal append failed")
	}
}

// refreshDisplays shows every enabled display. A display whose command
// fails is disabled.
func (sh *Shell) refreshDisplays() {
	session := sh.engine.Session()
	for _, d := range session.Displays() {
		if d.Enabled {
			sh.showDisplay(d.ID)
		}
	}
}

func (sh *Shell) showDisplay(id int) {
	session := sh.engine.Session()
	for _, d := range session.Displays() {
		if d.ID != id {
			continue
		}
		sh.Stack().CatchErrors(exception.MaskAll, "", func() int {
			session.BeginDisplay(d)
			defer session.EndDisplay()
			sh.Printf("%d: %s\n", d.ID, d.Expr)
			sh.dispatch(d.Expr, false)
			return 1
		})
		return
	}
}

// Run executes the lines read from r until EOF, the exit command or the
// cancellation of ctx.
func (sh *Shell) Run(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		sh.Execute(ctx, scanner.Text(), false)
		if sh.exited {
			return nil
		}
	}
	return scanner.Err()
}
