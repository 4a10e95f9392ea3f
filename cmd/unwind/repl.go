package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"atomicgo.dev/keyboard"
	"atomicgo.dev/keyboard/keys"
	"github.com/fatih/color"

	"github.com/deepnoodle-ai/unwind/shell"
)

var promptColor = color.New(color.FgCyan, color.Bold)

// repl is a minimal line editor. Commands run synchronously from the key
// handler, so keys typed while a command runs are read once it finishes.
type repl struct {
	ctx         context.Context
	sh          *shell.Shell
	out         io.Writer
	prompt      string
	input       []rune
	history     []string
	historyIdx  int
	historyPath string
}

func runRepl(ctx context.Context, sh *shell.Shell, out io.Writer, prompt, historyPath string) error {
	r := &repl{
		ctx:         ctx,
		sh:          sh,
		out:         out,
		prompt:      prompt,
		history:     loadHistory(historyPath),
		historyIdx:  -1,
		historyPath: historyPath,
	}
	r.redraw()
	err := keyboard.Listen(r.handleKey)
	fmt.Fprint(r.out, "\r\n")
	return err
}

func (r *repl) handleKey(key keys.Key) (stop bool, err error) {
	if err := r.ctx.Err(); err != nil {
		return true, nil
	}
	switch key.Code {
	case keys.CtrlC:
		// Discard the line being edited.
		fmt.Fprint(r.out, "^C\r\n")
		r.input = r.input[:0]
		r.historyIdx = -1
	case keys.CtrlD:
		if len(r.input) == 0 {
			return true, nil
		}
	case keys.Enter:
		fmt.Fprint(r.out, "\r\n")
		if r.submit() {
			return true, nil
		}
	case keys.Backspace:
		if len(r.input) > 0 {
			r.input = r.input[:len(r.input)-1]
		}
	case keys.Up:
		r.historyUp()
	case keys.Down:
		r.historyDown()
	case keys.Space:
		r.input = append(r.input, ' ')
	case keys.RuneKey:
		r.input = append(r.input, key.Runes...)
	}
	r.redraw()
	return false, nil
}

// submit runs the current line and reports whether the shell has exited.
func (r *repl) submit() bool {
	line := strings.TrimSpace(string(r.input))
	r.input = r.input[:0]
	r.historyIdx = -1
	if line == "" {
		return false
	}
	if len(r.history) == 0 || r.history[len(r.history)-1] != line {
		r.history = append(r.history, line)
		appendToHistory(r.historyPath, line)
	}
	r.sh.Execute(r.ctx, line, true)
	return r.sh.Exited()
}

func (r *repl) redraw() {
	fmt.Fprintf(r.out, "\r\x1b[K%s%s", promptColor.Sprint(r.prompt), string(r.input))
}

func (r *repl) historyUp() {
	if len(r.history) == 0 {
		return
	}
	if r.historyIdx == -1 {
		r.historyIdx = len(r.history)
	}
	if r.historyIdx > 0 {
		r.historyIdx--
		r.input = []rune(r.history[r.historyIdx])
	}
}

func (r *repl) historyDown() {
	if r.historyIdx == -1 {
		return
	}
	r.historyIdx++
	if r.historyIdx >= len(r.history) {
		r.input = r.input[:0]
		r.historyIdx = -1
	} else {
		r.input = []rune(r.history[r.historyIdx])
	}
}

func loadHistory(path string) []string {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	lines := strings.Split(string(data), "\n")
	history := make([]string, 0, len(lines))
	for _, line := range lines {
		if line != "" {
			history = append(history, line)
		}
	}
	return history
}

func appendToHistory(path, line string) {
	if path == "" || line == "" {
		return
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.WriteString(line + "\n")
}
