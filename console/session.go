package console

import (
	"fmt"
	"os"
	"strings"

	"stompcat/broker"
	"stompcat/internal/errors"
	"stompcat/internal/stats"
	"stompcat/internal/transfer"
	"stompcat/util"
)

// ListenerName is the reserved registry name under which the session
// installs its own callbacks at construction.
const ListenerName = ""

// filenameHeader marks a message body as an encoded file payload.
const filenameHeader = "filename"

// Session owns the operator-facing state of one broker connection: the
// open transaction token and the command operations that act on it.
//
// Command operations run only on the foreground loop goroutine.  Event
// callbacks arrive on the connection's reader goroutine and never
// touch command state; everything they output funnels through the
// terminal's async path.
type Session struct {
	broker.NopListener

	conn       broker.Conn
	term       *Terminal
	pres       *Presenter
	log        *util.Logger
	appVersion string

	// txID is the open transaction token, empty when none.  Owned by
	// the foreground loop goroutine.
	txID string
}

var _ broker.Listener = (*Session)(nil)

// SessionOptions configures a Session.
type SessionOptions struct {
	Conn    broker.Conn
	Term    *Terminal
	Logger  *util.Logger
	Version string
}

// NewSession builds a session over an established connection value and
// registers its callbacks under ListenerName.
func NewSession(opts SessionOptions) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = util.NewLogger(0)
	}
	s := &Session{
		conn:       opts.Conn,
		term:       opts.Term,
		pres:       NewPresenter(opts.Term),
		log:        logger,
		appVersion: opts.Version,
	}
	opts.Conn.SetListener(ListenerName, s)
	return s
}

// Catalog returns the command registry.
func (s *Session) Catalog() *Catalog {
	return defaultCatalog
}

// Shutdown runs the disconnect operation.  The loop calls it on every
// exit path, so quit, end-of-input, and interrupts all release the
// link the same way.
func (s *Session) Shutdown() error {
	return s.disconnect(nil)
}

// ── Command operations ───────────────────────────────────────────────
//
// Each operation receives the full token list with the command name at
// index 0.  Returned errors are printed by the loop and never end the
// session.

func (s *Session) ack(args []string) error {
	if len(args) < 2 {
		return errors.Usage("ack <message-id>")
	}
	return s.conn.Ack(args[1], s.txID)
}

func (s *Session) abort(args []string) error {
	if s.txID == "" {
		return errors.StateConflict("Not currently in a transaction")
	}
	// The token is dropped even when the broker call fails.
	err := s.conn.Abort(s.txID)
	s.txID = ""
	return err
}

func (s *Session) begin(args []string) error {
	if s.txID != "" {
		return errors.StateConflict("Currently in a transaction (%s)", s.txID)
	}
	id, err := s.conn.Begin()
	if err != nil {
		return err
	}
	s.txID = id
	s.term.Printf("Transaction id: %s", id)
	return nil
}

func (s *Session) commit(args []string) error {
	if s.txID == "" {
		return errors.StateConflict("Not currently in a transaction")
	}
	s.term.Printf("Committing %s", s.txID)
	err := s.conn.Commit(s.txID)
	s.txID = ""
	return err
}

func (s *Session) disconnect(args []string) error {
	if err := s.conn.Disconnect(); err != nil && !errors.Is(err, errors.ErrNotConnected) {
		return err
	}
	return nil
}

func (s *Session) send(args []string) error {
	if len(args) < 3 {
		return errors.Usage("send <destination> <message>")
	}
	body := strings.Join(args[2:], " ")
	return s.conn.Send(args[1], []byte(body), s.txID, nil)
}

func (s *Session) sendfile(args []string) error {
	if len(args) < 3 {
		return errors.Usage("sendfile <destination> <filename>")
	}
	data, err := os.ReadFile(args[2])
	if err != nil {
		if os.IsNotExist(err) {
			return &errors.ResourceError{
				Path: args[2],
				Msg:  fmt.Sprintf("File %s does not exist", args[2]),
			}
		}
		return &errors.ResourceError{
			Path: args[2],
			Msg:  fmt.Sprintf("cannot read %s", args[2]),
			Err:  err,
		}
	}
	extra := broker.Headers{{Name: filenameHeader, Value: args[2]}}
	return s.conn.Send(args[1], []byte(transfer.Encode(data)), s.txID, extra)
}

func (s *Session) subscribe(args []string) error {
	if len(args) < 2 {
		return errors.Usage("subscribe <destination> [ack]")
	}
	if len(args) > 2 {
		if args[2] != "auto" && args[2] != "client" {
			return errors.Usage("subscribe <destination> [ack]")
		}
		s.term.Printf("Subscribing to %q with acknowledge set to %q", args[1], args[2])
		return s.conn.Subscribe(args[1], args[2])
	}
	s.term.Printf("Subscribing to %q with auto acknowledge", args[1])
	return s.conn.Subscribe(args[1], "auto")
}

func (s *Session) unsubscribe(args []string) error {
	if len(args) < 2 {
		return errors.Usage("unsubscribe <destination>")
	}
	s.term.Printf("Unsubscribing from %q", args[1])
	return s.conn.Unsubscribe(args[1])
}

func (s *Session) stats(args []string) error {
	if len(args) < 2 {
		// A missing listener and one with no snapshot text both read
		// as no stats.
		l, _ := s.conn.Listener(stats.Name)
		if str, ok := l.(fmt.Stringer); ok {
			s.term.Print(str.String())
		} else {
			s.term.Print("No stats available")
		}
		return nil
	}
	switch args[1] {
	case "on":
		s.conn.SetListener(stats.Name, stats.New())
	case "off":
		s.conn.RemoveListener(stats.Name)
	default:
		return errors.Usage("stats [on|off]")
	}
	return nil
}

func (s *Session) help(args []string) error {
	if len(args) == 1 {
		s.term.Print("Usage: help <command>, where command is one of the following:")
		s.term.Print("")
		s.term.Print(strings.Join(defaultCatalog.Names(), " "))
		return nil
	}
	text, known := defaultCatalog.Describe(args[1])
	if !known {
		s.term.Printf("There is no command %q", args[1])
		return nil
	}
	if text == "" {
		s.term.Printf("There is no help for command %q", args[1])
		return nil
	}
	s.term.Print(text)
	return nil
}

func (s *Session) version(args []string) error {
	s.term.Printf("stompcat version %s", s.appVersion)
	return nil
}

// ── Broker event callbacks ───────────────────────────────────────────

// OnConnecting completes the protocol handshake as soon as the
// transport link is up.
func (s *Session) OnConnecting(hostPort string) {
	s.log.Verbose("link up to %s, sending handshake", hostPort)
	if err := s.conn.Connect(true); err != nil {
		s.log.Error("handshake with %s failed: %v", hostPort, err)
	}
}

func (s *Session) OnConnected(headers broker.Headers, body []byte) {
	s.pres.Present("CONNECTED", headers, string(body))
}

func (s *Session) OnDisconnected() {
	s.pres.Notice("lost connection")
}

func (s *Session) OnError(headers broker.Headers, body []byte) {
	s.pres.Present("ERROR", headers, string(body))
}

func (s *Session) OnReceipt(headers broker.Headers, body []byte) {
	s.pres.Present("RECEIPT", headers, string(body))
}

// OnMessage renders a delivery.  A message carrying a filename header
// is an encoded file payload: it is decoded and written under that
// name (suffixed when the name is already taken) and the rendered body
// is replaced with a confirmation.  A payload that cannot be saved is
// rendered with the failure as the body instead.
func (s *Session) OnMessage(headers broker.Headers, body []byte) {
	name, ok := headers.Get(filenameHeader)
	if !ok {
		s.pres.Present("MESSAGE", headers, string(body))
		return
	}
	saved, err := s.saveFile(name, body)
	if err != nil {
		s.pres.Present("MESSAGE", headers, err.Error())
		return
	}
	s.pres.Present("MESSAGE", headers, fmt.Sprintf("Saved file: %s", saved))
}

func (s *Session) saveFile(name string, body []byte) (string, error) {
	if err := transfer.CheckName(name); err != nil {
		return "", err
	}
	data, err := transfer.Decode(string(body))
	if err != nil {
		return "", err
	}
	return transfer.Save(name, data)
}
