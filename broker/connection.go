package broker

import (
	"context"
	"net"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/google/uuid"

	"stompcat/internal/errors"
	"stompcat/internal/transport"
	"stompcat/util"
)

// Options configures a Connection.
type Options struct {
	Host     string
	Port     int
	Login    string
	Passcode string

	// Timeout bounds the transport dial and the blocking handshake.
	// Zero means wait indefinitely.
	Timeout time.Duration

	// Dialer establishes the transport link.  Nil means plain TCP.
	Dialer transport.Dialer

	Logger *util.Logger
}

// Connection implements Conn over a single TCP (or tunnelled) link.
// One reader goroutine per connection delivers inbound frames to the
// registered listeners; writes are serialized by a mutex.
type Connection struct {
	opts   Options
	addr   string
	logger *util.Logger

	mu     sync.Mutex // guards conn and writer
	conn   net.Conn
	writer *frame.Writer

	lmu       sync.RWMutex
	listeners map[string]Listener

	closing atomic.Bool

	hsMu   sync.Mutex
	hsDone bool
	hsErr  error
	hsCh   chan struct{} // closed when the handshake resolves either way

	readerDone chan struct{}
}

var _ Conn = (*Connection)(nil)

// New creates an unstarted Connection.
func New(opts Options) *Connection {
	if opts.Logger == nil {
		opts.Logger = util.NewLogger(0)
	}
	return &Connection{
		opts:       opts,
		addr:       util.FormatAddr(opts.Host, opts.Port),
		logger:     opts.Logger,
		listeners:  make(map[string]Listener),
		hsCh:       make(chan struct{}),
		readerDone: make(chan struct{}),
	}
}

// Addr returns the broker address this connection targets.
func (c *Connection) Addr() string { return c.addr }

// Start dials the broker, launches the reader goroutine, and then
// fires OnConnecting on every registered listener.  The protocol
// handshake itself happens when a listener calls Connect.
func (c *Connection) Start(ctx context.Context) error {
	d := c.opts.Dialer
	if d == nil {
		d = &transport.TCPDialer{Timeout: c.opts.Timeout}
	}

	c.logger.Verbose("dialing %s", c.addr)
	nc, err := d.Dial(ctx, "tcp", c.addr)
	if err != nil {
		return errors.WrapBroker("dial", c.addr, err)
	}

	c.mu.Lock()
	c.conn = nc
	c.writer = frame.NewWriter(nc)
	c.mu.Unlock()

	go c.readLoop(frame.NewReader(nc))

	c.each(func(l Listener) { l.OnConnecting(c.addr) })
	return nil
}

// Connect sends the protocol handshake.  With wait set it blocks until
// the broker acknowledges, the broker reports an error, the link dies,
// or the configured timeout elapses.
func (c *Connection) Connect(wait bool) error {
	f := frame.New(frame.CONNECT,
		frame.Login, c.opts.Login,
		frame.Passcode, c.opts.Passcode)
	if err := c.write(f); err != nil {
		return err
	}
	if !wait {
		return nil
	}

	var timeout <-chan time.Time
	if c.opts.Timeout > 0 {
		t := time.NewTimer(c.opts.Timeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case <-c.hsCh:
		return c.handshakeErr()
	case <-timeout:
		return errors.WrapBroker("connect", c.addr, errors.ErrTimeout)
	}
}

// Disconnect announces departure to the broker, closes the link, and
// waits for the reader goroutine to finish.
func (c *Connection) Disconnect() error {
	c.mu.Lock()
	if c.conn == nil {
		c.mu.Unlock()
		return errors.ErrNotConnected
	}
	c.closing.Store(true)
	// Best effort; the socket is going away regardless.
	_ = c.writer.Write(frame.New(frame.DISCONNECT))
	nc := c.conn
	c.conn = nil
	c.writer = nil
	c.mu.Unlock()

	nc.Close()
	<-c.readerDone
	c.logger.Verbose("disconnected from %s", c.addr)
	return nil
}

// Send delivers body to destination.  A non-empty transaction token
// ties the send to that transaction; extra headers ride along in order.
func (c *Connection) Send(destination string, body []byte, transaction string, extra Headers) error {
	f := frame.New(frame.SEND, frame.Destination, destination)
	for _, h := range extra {
		f.Header.Add(h.Name, h.Value)
	}
	if transaction != "" {
		f.Header.Set(frame.Transaction, transaction)
	}
	f.Header.Set(frame.ContentLength, strconv.Itoa(len(body)))
	f.Body = body
	return c.write(f)
}

// Subscribe registers interest in destination with the given
// acknowledgement mode.
func (c *Connection) Subscribe(destination, ack string) error {
	return c.write(frame.New(frame.SUBSCRIBE,
		frame.Destination, destination,
		frame.Ack, ack))
}

// Unsubscribe removes interest in destination.
func (c *Connection) Unsubscribe(destination string) error {
	return c.write(frame.New(frame.UNSUBSCRIBE,
		frame.Destination, destination))
}

// Ack acknowledges the message with the given message-id.
func (c *Connection) Ack(messageID, transaction string) error {
	f := frame.New(frame.ACK, frame.MessageId, messageID)
	if transaction != "" {
		f.Header.Set(frame.Transaction, transaction)
	}
	return c.write(f)
}

// Begin opens a transaction and returns its token.
func (c *Connection) Begin() (string, error) {
	id := uuid.NewString()
	if err := c.write(frame.New(frame.BEGIN, frame.Transaction, id)); err != nil {
		return "", err
	}
	return id, nil
}

// Commit completes the transaction with the given token.
func (c *Connection) Commit(transaction string) error {
	return c.write(frame.New(frame.COMMIT, frame.Transaction, transaction))
}

// Abort discards the transaction with the given token.
func (c *Connection) Abort(transaction string) error {
	return c.write(frame.New(frame.ABORT, frame.Transaction, transaction))
}

// SetListener registers or replaces the listener under name.
func (c *Connection) SetListener(name string, l Listener) {
	c.lmu.Lock()
	c.listeners[name] = l
	c.lmu.Unlock()
}

// Listener returns the listener registered under name.
func (c *Connection) Listener(name string) (Listener, bool) {
	c.lmu.RLock()
	l, ok := c.listeners[name]
	c.lmu.RUnlock()
	return l, ok
}

// RemoveListener drops the listener registered under name.
func (c *Connection) RemoveListener(name string) {
	c.lmu.Lock()
	delete(c.listeners, name)
	c.lmu.Unlock()
}

// ── internals ────────────────────────────────────────────────────────

func (c *Connection) write(f *frame.Frame) error {
	c.mu.Lock()
	if c.conn == nil {
		c.mu.Unlock()
		return errors.ErrNotConnected
	}
	err := c.writer.Write(f)
	c.mu.Unlock()

	if err != nil {
		return errors.WrapBroker("send", c.addr, err)
	}
	c.logger.Debug("sent %s frame", f.Command)
	c.each(func(l Listener) { l.OnSend(f.Command) })
	return nil
}

// readLoop delivers inbound frames to listeners until the link dies.
func (c *Connection) readLoop(r *frame.Reader) {
	defer close(c.readerDone)
	defer c.each(func(l Listener) { l.OnDisconnected() })

	for {
		f, err := r.Read()
		if err != nil {
			if !c.closing.Load() {
				c.logger.Debug("read loop: %v", err)
				c.resolveHandshake(errors.WrapBroker("read", c.addr, errors.ErrConnectionLost))
			}
			return
		}
		if f == nil {
			continue // heart-beat
		}

		c.logger.Debug("recv %s frame", f.Command)
		headers := headersOf(f)

		switch f.Command {
		case frame.CONNECTED:
			c.resolveHandshake(nil)
			c.each(func(l Listener) { l.OnConnected(headers, f.Body) })
		case frame.MESSAGE:
			c.each(func(l Listener) { l.OnMessage(headers, f.Body) })
		case frame.ERROR:
			c.resolveHandshake(brokerError(c.addr, headers))
			c.each(func(l Listener) { l.OnError(headers, f.Body) })
		case frame.RECEIPT:
			c.each(func(l Listener) { l.OnReceipt(headers, f.Body) })
		default:
			c.logger.Warn("ignoring %s frame", f.Command)
		}
	}
}

// resolveHandshake settles the pending Connect wait exactly once.
// A nil error marks success; later calls are no-ops.
func (c *Connection) resolveHandshake(err error) {
	c.hsMu.Lock()
	defer c.hsMu.Unlock()
	if c.hsDone {
		return
	}
	c.hsDone = true
	c.hsErr = err
	close(c.hsCh)
}

func (c *Connection) handshakeErr() error {
	c.hsMu.Lock()
	defer c.hsMu.Unlock()
	return c.hsErr
}

// each calls fn on every registered listener, in stable name order,
// outside the registry lock.
func (c *Connection) each(fn func(Listener)) {
	c.lmu.RLock()
	names := make([]string, 0, len(c.listeners))
	for n := range c.listeners {
		names = append(names, n)
	}
	sort.Strings(names)
	snapshot := make([]Listener, len(names))
	for i, n := range names {
		snapshot[i] = c.listeners[n]
	}
	c.lmu.RUnlock()

	for _, l := range snapshot {
		fn(l)
	}
}

// headersOf copies a frame's headers in wire order.
func headersOf(f *frame.Frame) Headers {
	if f.Header == nil {
		return nil
	}
	out := make(Headers, 0, f.Header.Len())
	for i := 0; i < f.Header.Len(); i++ {
		k, v := f.Header.GetAt(i)
		out = append(out, Header{Name: k, Value: v})
	}
	return out
}

// brokerError converts an ERROR frame's summary header into an error.
func brokerError(addr string, headers Headers) error {
	msg, ok := headers.Get("message")
	if !ok || msg == "" {
		msg = "broker reported an error"
	}
	return errors.WrapBroker("connect", addr, errors.New(msg))
}
