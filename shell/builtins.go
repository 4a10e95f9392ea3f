package shell

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/hokaccha/go-prettyjson"

	"github.com/deepnoodle-ai/unwind/exception"
)

func builtins() []Command {
	return []Command{
		{Name: "help", Usage: "help [COMMAND]", Help: "List commands or describe one.", Run: cmdHelp},
		{Name: "echo", Usage: "echo TEXT", Help: "Print TEXT.", Run: cmdEcho},
		{Name: "error", Usage: "error [-k KIND] MESSAGE", Help: "Fail with an error of the given kind.", Run: cmdError},
		{Name: "quit", Usage: "quit [MESSAGE]", Help: "Abandon the command as if interrupted.", Run: cmdQuit},
		{Name: "quit-after", Usage: "quit-after DURATION", Help: "Request an interrupt once DURATION has passed.", Run: cmdQuitAfter},
		{Name: "spin", Usage: "spin N", Help: "Busy-wait N milliseconds, polling for interrupts.", Run: cmdSpin},
		{Name: "cleanup", Usage: "cleanup TEXT", Help: "Print TEXT when the current command line finishes or fails.", Run: cmdCleanup},
		{Name: "try", Usage: "try COMMAND", Help: "Run COMMAND, reporting and ignoring errors. Interrupts still propagate.", Run: cmdTry},
		{Name: "queue", Usage: "queue COMMAND", Help: "Run COMMAND after the current command line completes.", Run: cmdQueue},
		{Name: "display", Usage: "display COMMAND", Help: "Run COMMAND after every command line until it fails.", Run: cmdDisplay},
		{Name: "run", Usage: "run COMMAND", Help: "Run COMMAND as foreground target execution.", Run: cmdRunSync},
		{Name: "background", Usage: "background COMMAND", Help: "Run COMMAND as background target execution.", Run: cmdRunAsync},
		{Name: "show", Usage: "show exception|journal [N]|last-message|displays", Help: "Show session information.", Run: cmdShow},
		{Name: "exit", Usage: "exit", Help: "Leave the shell.", Run: cmdExit},
	}
}

func requireArg(sh *Shell, arg, what string) {
	if arg == "" {
		sh.Stack().ThrowErrorf(exception.GenericError, "Argument required (%s).", what)
	}
}

func cmdHelp(sh *Shell, arg string, _ bool) {
	if arg != "" {
		cmd, ok := sh.commands[arg]
		if !ok {
			sh.Stack().ThrowErrorf(exception.NotFoundError, "Undefined command: %q.  Try \"help\".", arg)
		}
		sh.Printf("%s\n  %s\n", cmd.Usage, cmd.Help)
		return
	}
	for _, cmd := range sh.Commands() {
		sh.Printf("%-12s %s\n", cmd.Name, cmd.Help)
	}
}

func cmdEcho(sh *Shell, arg string, _ bool) {
	sh.Printf("%s\n", arg)
}

func cmdError(sh *Shell, arg string, _ bool) {
	kind := exception.GenericError
	if rest, ok := strings.CutPrefix(arg, "-k "); ok {
		name, msg, _ := strings.Cut(strings.TrimSpace(rest), " ")
		k, ok := exception.ParseKind(name)
		if !ok {
			sh.Stack().ThrowErrorf(exception.GenericError, "Unknown error kind %q.", name)
		}
		kind, arg = k, strings.TrimSpace(msg)
	}
	requireArg(sh, arg, "message to report")
	sh.Stack().ThrowError(kind, arg)
}

func cmdQuit(sh *Shell, arg string, _ bool) {
	if arg == "" {
		sh.Stack().ThrowReason(exception.Quit)
	}
	sh.Stack().ThrowQuitf("%s", arg)
}

func cmdQuitAfter(sh *Shell, arg string, _ bool) {
	requireArg(sh, arg, "duration")
	d, err := time.ParseDuration(arg)
	if err != nil {
		sh.Stack().ThrowErrorf(exception.GenericError, "Invalid duration %q.", arg)
	}
	flags := sh.engine.Flags()
	time.AfterFunc(d, flags.RequestQuit)
}

func cmdSpin(sh *Shell, arg string, _ bool) {
	requireArg(sh, arg, "number of milliseconds")
	n, err := strconv.Atoi(arg)
	if err != nil || n < 0 {
		sh.Stack().ThrowErrorf(exception.GenericError, "Invalid number %q.", arg)
	}
	deadline := time.Now().Add(time.Duration(n) * time.Millisecond)
	for time.Now().Before(deadline) {
		sh.Stack().CheckQuit()
		time.Sleep(time.Millisecond)
	}
	sh.Stack().CheckQuit()
	sh.Printf("spun %dms\n", n)
}

func cmdCleanup(sh *Shell, arg string, _ bool) {
	requireArg(sh, arg, "text to print")
	sh.engine.Cleanups().Push(arg, func() error {
		sh.Printf("%s\n", arg)
		return nil
	})
}

func cmdTry(sh *Shell, arg string, fromTTY bool) {
	requireArg(sh, arg, "command to try")
	if sh.Stack().CatchErrors(exception.MaskError, "try: ", func() int {
		sh.dispatch(arg, fromTTY)
		return 1
	}) == 0 {
		sh.Printf("continuing after error\n")
	}
}

func cmdQueue(sh *Shell, arg string, _ bool) {
	requireArg(sh, arg, "command to queue")
	sh.engine.Session().Queue(arg)
}

func cmdDisplay(sh *Shell, arg string, _ bool) {
	requireArg(sh, arg, "command to display")
	sh.engine.Session().AddDisplay(arg)
}

// cmdRunSync runs a command while the session waits on the target. An abort
// runs the exec error cleanups, which end the wait.
func cmdRunSync(sh *Shell, arg string, fromTTY bool) {
	requireArg(sh, arg, "command to run")
	session := sh.engine.Session()
	session.SetExecuting(true)
	session.SetSyncExecution(true)
	level := session.ExecErrorCleanups().Push("stop waiting", func() error {
		session.SetSyncExecution(false)
		session.SetExecuting(false)
		sh.Printf("target stopped\n")
		return nil
	})
	sh.dispatch(arg, fromTTY)
	session.ExecErrorCleanups().Discard(level)
	session.SetSyncExecution(false)
	session.SetExecuting(false)
}

// cmdRunAsync runs a command with the target running in the background. An
// abort runs the exec cleanups, which cancel the execution.
func cmdRunAsync(sh *Shell, arg string, fromTTY bool) {
	requireArg(sh, arg, "command to run")
	session := sh.engine.Session()
	level := session.ExecCleanups().Push("cancel execution", func() error {
		sh.Printf("background execution cancelled\n")
		return nil
	})
	sh.dispatch(arg, fromTTY)
	session.ExecCleanups().Discard(level)
}

func cmdShow(sh *Shell, arg string, _ bool) {
	what, rest, _ := strings.Cut(arg, " ")
	switch what {
	case "exception":
		sh.showJSON(sh.last)
	case "last-message":
		sh.Printf("%s\n", sh.Stack().LastMessage())
	case "displays":
		for _, d := range sh.engine.Session().Displays() {
			state := "y"
			if !d.Enabled {
				state = "n"
			}
			sh.Printf("%d: %s %s\n", d.ID, state, d.Expr)
		}
	case "journal":
		sh.showJournal(strings.TrimSpace(rest))
	case "":
		requireArg(sh, "", "what to show")
	default:
		sh.Stack().ThrowErrorf(exception.NotFoundError, "Undefined show command: %q.", what)
	}
}

func (sh *Shell) showJSON(v any) {
	var (
		data []byte
		err  error
	)
	if sh.color {
		data, err = prettyjson.Marshal(v)
	} else {
		data, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		sh.Stack().ThrowErrorf(exception.GenericError, "encode json: %v", err)
	}
	sh.Printf("%s\n", data)
}

func (sh *Shell) showJournal(arg string) {
	if sh.journal == nil {
		sh.Stack().ThrowError(exception.NotSupportedError, "No journal is configured.")
	}
	n := 10
	if arg != "" {
		v, err := strconv.Atoi(arg)
		if err != nil || v <= 0 {
			sh.Stack().ThrowErrorf(exception.GenericError, "Invalid number %q.", arg)
		}
		n = v
	}
	entries, err := sh.journal.Recent(sh.ctx, n)
	if err != nil {
		sh.Stack().ThrowErrorf(exception.UnavailableError, "read journal: %v", err)
	}
	for _, e := range entries {
		sh.Printf("%s %s %-20q %s\n", e.At.Format(time.RFC3339), e.ID, e.Command, e.Record())
	}
}

func cmdExit(sh *Shell, _ string, _ bool) {
	sh.exited = true
}
