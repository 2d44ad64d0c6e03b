package console

import (
	"context"
	"io"
	"strings"

	"stompcat/util"
)

// Loop drives the operator session: it reads lines, dispatches them
// through the command catalog, and shuts the session down on exit.
type Loop struct {
	term *Terminal
	sess *Session
	log  *util.Logger
}

// NewLoop builds a loop over a terminal and session.
func NewLoop(term *Terminal, sess *Session, logger *util.Logger) *Loop {
	if logger == nil {
		logger = util.NewLogger(0)
	}
	return &Loop{term: term, sess: sess, log: logger}
}

type readResult struct {
	line string
	err  error
}

// Run blocks until the operator quits, input ends, or ctx is
// cancelled.  Every exit path runs the disconnect operation before
// returning.  Command failures are printed and never end the loop.
//
// Reads happen on a helper goroutine, one line per request, so the
// prompt is only drawn when the loop is ready for input and a blocked
// read does not stop cancellation.  A read still in flight when Run
// returns exits with the process.
func (l *Loop) Run(ctx context.Context) error {
	requests := make(chan struct{})
	lines := make(chan readResult, 1)
	go func() {
		for range requests {
			line, err := l.term.ReadLine()
			lines <- readResult{line: line, err: err}
			if err != nil {
				return
			}
		}
	}()
	defer close(requests)

	defer l.shutdown()

	for {
		select {
		case requests <- struct{}{}:
		case <-ctx.Done():
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case res := <-lines:
			if res.err != nil {
				if res.err == io.EOF {
					return nil
				}
				return res.err
			}
			line := strings.TrimSpace(res.line)
			if line == "" {
				continue
			}
			if strings.HasPrefix(line, "quit") || strings.HasPrefix(line, "disconnect") {
				return nil
			}
			l.dispatch(line)
		}
	}
}

// dispatch runs one non-empty command line.
func (l *Loop) dispatch(line string) {
	args := strings.Fields(line)
	cmd, ok := l.sess.Catalog().Lookup(args[0])
	if !ok {
		l.term.Print("Unrecognized command")
		return
	}
	if err := cmd.Run(l.sess, args); err != nil {
		l.term.Print(err.Error())
	}
}

func (l *Loop) shutdown() {
	if err := l.sess.Shutdown(); err != nil {
		l.log.Error("disconnect failed: %v", err)
	}
}
