// Package console implements the interactive operator session: line
// input with history, the command catalog and dispatch loop, and the
// rendering of broker events that arrive while the operator is typing.
package console

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/ergochat/readline"
	"golang.org/x/term"

	"stompcat/util"
)

const (
	// prompt is drawn before each line of operator input.
	prompt = "> "

	// erasePrompt backs over a drawn prompt so an asynchronous event
	// block starts at column zero.
	erasePrompt = "\r  \r"
)

// TerminalOptions configures a Terminal.
type TerminalOptions struct {
	// Plain disables line editing even on a TTY.
	Plain bool

	// HistoryFile persists input history across sessions.  Empty
	// disables persistence.  Ignored in plain mode.
	HistoryFile string

	// HistoryLimit caps the number of retained history entries.
	HistoryLimit int

	// Completions holds the command names offered for tab completion.
	Completions []string

	// In and Out override stdin/stdout.  Setting In forces plain mode;
	// line editing only makes sense on the process terminal.
	In  io.Reader
	Out io.Writer

	// Logger for terminal diagnostics.
	Logger *util.Logger
}

// Terminal is the operator's console.  It reads lines in the
// foreground and accepts event output from other goroutines without
// corrupting an in-progress prompt.
//
// On a TTY it uses a readline editor with history and completion; when
// input is piped (or Plain is set) it falls back to plain line reads
// with a manually drawn prompt.
type Terminal struct {
	rl      *readline.Instance
	scanner *bufio.Scanner

	mu  sync.Mutex // guards out in plain mode
	out io.Writer
}

// NewTerminal builds a Terminal for the configured input and output.
func NewTerminal(opts TerminalOptions) *Terminal {
	logger := opts.Logger
	if logger == nil {
		logger = util.NewLogger(0)
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	interactive := opts.In == nil && !opts.Plain &&
		term.IsTerminal(int(os.Stdin.Fd()))

	if interactive {
		cfg := &readline.Config{
			Prompt:       prompt,
			HistoryFile:  opts.HistoryFile,
			HistoryLimit: opts.HistoryLimit,

			// History is saved by ReadLine so blank lines stay out
			// of the file.
			DisableAutoSaveHistory: true,
		}
		if len(opts.Completions) > 0 {
			cfg.AutoComplete = commandCompleter{names: opts.Completions}
		}

		rl, err := readline.NewFromConfig(cfg)
		if err == nil {
			return &Terminal{rl: rl, out: out}
		}
		logger.Warn("line editor unavailable (%v), using plain input", err)
	}

	in := opts.In
	if in == nil {
		in = os.Stdin
	}
	return &Terminal{scanner: bufio.NewScanner(in), out: out}
}

// ReadLine blocks for one line of operator input.  It returns io.EOF
// when input is exhausted or the operator interrupts the session.
func (t *Terminal) ReadLine() (string, error) {
	if t.rl != nil {
		line, err := t.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				return "", io.EOF
			}
			return "", err
		}
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			t.rl.SaveToHistory(trimmed)
		}
		return line, nil
	}

	// The leading carriage return realigns the prompt after any event
	// output that landed mid-line.
	t.mu.Lock()
	fmt.Fprint(t.out, "\r"+prompt)
	t.mu.Unlock()

	if !t.scanner.Scan() {
		if err := t.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return t.scanner.Text(), nil
}

// Print writes one line of foreground command feedback.
func (t *Terminal) Print(text string) {
	if t.rl != nil {
		fmt.Fprintln(t.rl, text)
		return
	}
	t.mu.Lock()
	fmt.Fprintln(t.out, text)
	t.mu.Unlock()
}

// Printf is Print with formatting.
func (t *Terminal) Printf(format string, args ...interface{}) {
	t.Print(fmt.Sprintf(format, args...))
}

// Async writes an event block from outside the foreground loop.  In
// plain mode the drawn prompt is erased first and redrawn after; the
// readline editor handles the redraw itself.  Output is best-effort.
func (t *Terminal) Async(block string) {
	if t.rl != nil {
		io.WriteString(t.rl, block)
		return
	}
	t.mu.Lock()
	io.WriteString(t.out, erasePrompt)
	io.WriteString(t.out, block)
	io.WriteString(t.out, prompt)
	t.mu.Unlock()
}

// Close releases the line editor, persisting history.  Safe to call
// more than once.
func (t *Terminal) Close() {
	if t.rl != nil {
		t.rl.Close()
		t.rl = nil
	}
}

// ── Completion ───────────────────────────────────────────────────────

// commandCompleter completes the command word at the start of a line.
type commandCompleter struct {
	names []string
}

func (c commandCompleter) Do(line []rune, pos int) ([][]rune, int) {
	typed := string(line[:pos])
	if strings.ContainsAny(typed, " \t") {
		return nil, 0
	}
	var out [][]rune
	for _, name := range c.names {
		if strings.HasPrefix(name, typed) {
			out = append(out, []rune(name[len(typed):]+" "))
		}
	}
	return out, len(typed)
}
