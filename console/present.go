package console

import (
	"strings"

	"stompcat/broker"
)

// Presenter renders broker events to the terminal.  Events arrive on
// the connection's reader goroutine, so all output goes through the
// terminal's async path.
type Presenter struct {
	term *Terminal
}

// NewPresenter returns a Presenter writing to term.
func NewPresenter(term *Terminal) *Presenter {
	return &Presenter{term: term}
}

// Present renders one event: the label, each header as "name: value"
// in wire order, a blank line, then the body.  It never fails; any
// byte sequence in the body is written as-is.
func (p *Presenter) Present(label string, headers broker.Headers, body string) {
	var b strings.Builder
	b.WriteString(label)
	b.WriteByte('\n')
	for _, h := range headers {
		b.WriteString(h.Name)
		b.WriteString(": ")
		b.WriteString(h.Value)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	b.WriteString(body)
	b.WriteByte('\n')
	p.term.Async(b.String())
}

// Notice renders a bare one-line event with no label or headers.
func (p *Presenter) Notice(text string) {
	p.term.Async(text + "\n")
}
