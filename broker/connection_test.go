package broker

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/go-stomp/stomp/v3/frame"

	"stompcat/internal/errors"
	"stompcat/util"
)

// stubBroker speaks just enough of the protocol for tests: it answers
// CONNECT with CONNECTED, records every other inbound frame, and can
// push arbitrary frames to the client.
type stubBroker struct {
	ln      net.Listener
	frames  chan *frame.Frame // frames received from the client
	push    chan *frame.Frame // frames to deliver to the client
	rejects bool              // answer CONNECT with ERROR instead

	mu   sync.Mutex
	conn net.Conn // the accepted client link
}

func startStub(t *testing.T) *stubBroker {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s := &stubBroker{
		ln:     ln,
		frames: make(chan *frame.Frame, 32),
		push:   make(chan *frame.Frame, 32),
	}
	go s.serve()
	t.Cleanup(func() { ln.Close() })
	return s
}

func (s *stubBroker) port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

func (s *stubBroker) dropLink() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
	}
}

func (s *stubBroker) serve() {
	conn, err := s.ln.Accept()
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	defer conn.Close()

	w := frame.NewWriter(conn)
	go func() {
		for f := range s.push {
			if err := w.Write(f); err != nil {
				return
			}
		}
	}()

	r := frame.NewReader(conn)
	for {
		f, err := r.Read()
		if err != nil {
			return
		}
		if f == nil {
			continue
		}
		if f.Command == frame.CONNECT {
			if s.rejects {
				s.push <- frame.New(frame.ERROR, "message", "access denied")
			} else {
				s.push <- frame.New(frame.CONNECTED, "session", "stub-session")
			}
		}
		s.frames <- f
	}
}

func (s *stubBroker) next(t *testing.T) *frame.Frame {
	t.Helper()
	select {
	case f := <-s.frames:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a frame from the client")
		return nil
	}
}

// recordingListener captures every callback for later assertions.
type recordingListener struct {
	mu           sync.Mutex
	connecting   []string
	connected    int
	disconnected int
	messages     []string
	errs         []string
	receipts     []string
	sent         []string
}

func (r *recordingListener) OnConnecting(hostPort string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connecting = append(r.connecting, hostPort)
}

func (r *recordingListener) OnConnected(_ Headers, _ []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connected++
}

func (r *recordingListener) OnDisconnected() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnected++
}

func (r *recordingListener) OnMessage(_ Headers, body []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, string(body))
}

func (r *recordingListener) OnError(_ Headers, body []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, string(body))
}

func (r *recordingListener) OnReceipt(headers Headers, _ []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, _ := headers.Get("receipt-id")
	r.receipts = append(r.receipts, id)
}

func (r *recordingListener) OnSend(command string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, command)
}

func (r *recordingListener) snapshot(fn func(*recordingListener) bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(r)
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting: %s", msg)
}

func startConnection(t *testing.T, stub *stubBroker) (*Connection, *recordingListener) {
	t.Helper()
	c := New(Options{
		Host:     "127.0.0.1",
		Port:     stub.port(),
		Login:    "alice",
		Passcode: "secret",
		Timeout:  2 * time.Second,
		Logger:   util.NewLogger(0),
	})
	rec := &recordingListener{}
	c.SetListener("", rec)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return c, rec
}

func TestConnection_Handshake(t *testing.T) {
	stub := startStub(t)
	c, rec := startConnection(t, stub)
	defer c.Disconnect() //nolint:errcheck

	if !rec.snapshot(func(r *recordingListener) bool { return len(r.connecting) == 1 }) {
		t.Fatal("OnConnecting did not fire during Start")
	}

	if err := c.Connect(true); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	f := stub.next(t)
	if f.Command != frame.CONNECT {
		t.Fatalf("first frame = %s, want CONNECT", f.Command)
	}
	if got := f.Header.Get(frame.Login); got != "alice" {
		t.Errorf("login = %q, want %q", got, "alice")
	}
	if got := f.Header.Get(frame.Passcode); got != "secret" {
		t.Errorf("passcode = %q, want %q", got, "secret")
	}

	waitFor(t, func() bool {
		return rec.snapshot(func(r *recordingListener) bool { return r.connected == 1 })
	}, "OnConnected")
}

func TestConnection_HandshakeRejected(t *testing.T) {
	stub := startStub(t)
	stub.rejects = true
	c, rec := startConnection(t, stub)
	defer c.Disconnect() //nolint:errcheck

	err := c.Connect(true)
	if err == nil {
		t.Fatal("Connect succeeded against a rejecting broker")
	}
	var be *errors.BrokerError
	if !errors.As(err, &be) {
		t.Fatalf("error type %T, want *BrokerError", err)
	}

	waitFor(t, func() bool {
		return rec.snapshot(func(r *recordingListener) bool { return len(r.errs) == 1 })
	}, "OnError")
}

func TestConnection_OutboundFrames(t *testing.T) {
	stub := startStub(t)
	c, rec := startConnection(t, stub)
	defer c.Disconnect() //nolint:errcheck

	if err := c.Connect(true); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	stub.next(t) // CONNECT

	if err := c.Subscribe("/queue/a", "auto"); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	f := stub.next(t)
	if f.Command != frame.SUBSCRIBE {
		t.Fatalf("got %s, want SUBSCRIBE", f.Command)
	}
	if d := f.Header.Get(frame.Destination); d != "/queue/a" {
		t.Errorf("destination = %q", d)
	}
	if a := f.Header.Get(frame.Ack); a != "auto" {
		t.Errorf("ack = %q, want auto", a)
	}

	if err := c.Send("/queue/a", []byte("hello"), "", nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	f = stub.next(t)
	if f.Command != frame.SEND {
		t.Fatalf("got %s, want SEND", f.Command)
	}
	if string(f.Body) != "hello" {
		t.Errorf("body = %q", f.Body)
	}
	if cl := f.Header.Get(frame.ContentLength); cl != "5" {
		t.Errorf("content-length = %q, want 5", cl)
	}
	if _, ok := f.Header.Contains(frame.Transaction); ok {
		t.Error("untransacted SEND carries a transaction header")
	}

	tx, err := c.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if tx == "" {
		t.Fatal("Begin returned an empty token")
	}
	f = stub.next(t)
	if f.Command != frame.BEGIN || f.Header.Get(frame.Transaction) != tx {
		t.Fatalf("got %s tx=%q, want BEGIN tx=%q", f.Command, f.Header.Get(frame.Transaction), tx)
	}

	if err := c.Send("/queue/a", []byte("in tx"), tx, Headers{{Name: "filename", Value: "x.bin"}}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	f = stub.next(t)
	if got := f.Header.Get(frame.Transaction); got != tx {
		t.Errorf("transacted SEND tx = %q, want %q", got, tx)
	}
	if got := f.Header.Get("filename"); got != "x.bin" {
		t.Errorf("filename header = %q", got)
	}

	if err := c.Commit(tx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	f = stub.next(t)
	if f.Command != frame.COMMIT || f.Header.Get(frame.Transaction) != tx {
		t.Fatalf("got %s tx=%q, want COMMIT tx=%q", f.Command, f.Header.Get(frame.Transaction), tx)
	}

	if err := c.Ack("msg-7", ""); err != nil {
		t.Fatalf("Ack: %v", err)
	}
	f = stub.next(t)
	if f.Command != frame.ACK || f.Header.Get(frame.MessageId) != "msg-7" {
		t.Fatalf("got %s message-id=%q", f.Command, f.Header.Get(frame.MessageId))
	}

	if err := c.Unsubscribe("/queue/a"); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}
	f = stub.next(t)
	if f.Command != frame.UNSUBSCRIBE || f.Header.Get(frame.Destination) != "/queue/a" {
		t.Fatalf("got %s destination=%q", f.Command, f.Header.Get(frame.Destination))
	}

	// Every write notified OnSend.
	if !rec.snapshot(func(r *recordingListener) bool { return len(r.sent) >= 7 }) {
		t.Error("OnSend missed outbound frames")
	}
}

func TestConnection_InboundDelivery(t *testing.T) {
	stub := startStub(t)
	c, rec := startConnection(t, stub)
	defer c.Disconnect() //nolint:errcheck

	if err := c.Connect(true); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	stub.push <- frame.New(frame.MESSAGE,
		frame.Destination, "/queue/a",
		frame.MessageId, "msg-1")
	stub.push <- frame.New(frame.RECEIPT, "receipt-id", "r-1")

	waitFor(t, func() bool {
		return rec.snapshot(func(r *recordingListener) bool {
			return len(r.messages) == 1 && len(r.receipts) == 1
		})
	}, "MESSAGE and RECEIPT delivery")

	if !rec.snapshot(func(r *recordingListener) bool { return r.receipts[0] == "r-1" }) {
		t.Error("receipt-id not forwarded")
	}
}

func TestConnection_DisconnectTwice(t *testing.T) {
	stub := startStub(t)
	c, rec := startConnection(t, stub)

	if err := c.Connect(true); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := c.Disconnect(); err != nil {
		t.Fatalf("first Disconnect: %v", err)
	}
	if err := c.Disconnect(); !errors.Is(err, errors.ErrNotConnected) {
		t.Fatalf("second Disconnect = %v, want ErrNotConnected", err)
	}

	if !rec.snapshot(func(r *recordingListener) bool { return r.disconnected == 1 }) {
		t.Error("OnDisconnected should fire exactly once")
	}
}

func TestConnection_OpsWithoutStart(t *testing.T) {
	c := New(Options{Host: "127.0.0.1", Port: 61613})

	if err := c.Send("/queue/a", []byte("x"), "", nil); !errors.Is(err, errors.ErrNotConnected) {
		t.Errorf("Send = %v, want ErrNotConnected", err)
	}
	if _, err := c.Begin(); !errors.Is(err, errors.ErrNotConnected) {
		t.Errorf("Begin = %v, want ErrNotConnected", err)
	}
}

func TestConnection_LostLink(t *testing.T) {
	stub := startStub(t)
	c, rec := startConnection(t, stub)

	if err := c.Connect(true); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	// Drop the broker out from under the client.
	stub.dropLink()

	waitFor(t, func() bool {
		return rec.snapshot(func(r *recordingListener) bool { return r.disconnected == 1 })
	}, "OnDisconnected after broker vanishes")
}

func TestHeaders_Get(t *testing.T) {
	h := Headers{
		{Name: "destination", Value: "/queue/a"},
		{Name: "custom", Value: "first"},
		{Name: "custom", Value: "second"},
	}

	if v, ok := h.Get("destination"); !ok || v != "/queue/a" {
		t.Errorf("Get(destination) = %q, %v", v, ok)
	}
	if v, _ := h.Get("custom"); v != "first" {
		t.Errorf("Get(custom) = %q, want first occurrence", v)
	}
	if _, ok := h.Get("absent"); ok {
		t.Error("Get(absent) reported present")
	}

	h2 := h.With("extra", "x")
	if len(h) != 3 || len(h2) != 4 {
		t.Errorf("With modified the receiver: len(h)=%d len(h2)=%d", len(h), len(h2))
	}
}
