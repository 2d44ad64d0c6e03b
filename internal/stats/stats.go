// Package stats provides a lock-free counting listener for tracking
// session traffic.
//
// All methods are safe for concurrent use.  A nil *Listener is a valid
// no-op receiver, so callers never need to nil-check.
package stats

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"stompcat/broker"
)

// Name is the registry key the session registers the listener under.
const Name = "stats"

// Listener counts broker events.  Register it on a connection to start
// collecting; counters accumulate until the listener is removed.
type Listener struct {
	connects    atomic.Int64
	disconnects atomic.Int64
	messages    atomic.Int64
	errors      atomic.Int64
	receipts    atomic.Int64
	framesSent  atomic.Int64
	bytesIn     atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

var _ broker.Listener = (*Listener)(nil)

// New creates a listener with the start time set to now.
func New() *Listener {
	return &Listener{startTime: time.Now()}
}

// ── broker.Listener callbacks ────────────────────────────────────────

func (l *Listener) OnConnecting(string) {}

// OnConnected counts handshake acknowledgements.
func (l *Listener) OnConnected(_ broker.Headers, _ []byte) {
	if l == nil {
		return
	}
	l.connects.Add(1)
}

// OnDisconnected counts lost or closed links.
func (l *Listener) OnDisconnected() {
	if l == nil {
		return
	}
	l.disconnects.Add(1)
}

// OnMessage counts deliveries and their payload bytes.
func (l *Listener) OnMessage(_ broker.Headers, body []byte) {
	if l == nil {
		return
	}
	l.messages.Add(1)
	l.bytesIn.Add(int64(len(body)))
}

// OnError counts broker-reported errors and keeps the latest message.
func (l *Listener) OnError(headers broker.Headers, body []byte) {
	if l == nil {
		return
	}
	l.errors.Add(1)

	msg, ok := headers.Get("message")
	if !ok || msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	l.mu.Lock()
	l.lastError = time.Now()
	l.lastErrorMsg = msg
	l.mu.Unlock()
}

// OnReceipt counts delivery receipts.
func (l *Listener) OnReceipt(_ broker.Headers, _ []byte) {
	if l == nil {
		return
	}
	l.receipts.Add(1)
}

// OnSend counts frames written to the broker.
func (l *Listener) OnSend(string) {
	if l == nil {
		return
	}
	l.framesSent.Add(1)
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all counters.
type Snapshot struct {
	Uptime           string `json:"uptime"`
	Connects         int64  `json:"connects"`
	Disconnects      int64  `json:"disconnects"`
	Messages         int64  `json:"messages"`
	Errors           int64  `json:"errors"`
	Receipts         int64  `json:"receipts"`
	FramesSent       int64  `json:"frames_sent"`
	BytesIn          int64  `json:"bytes_in"`
	LastError        string `json:"last_error,omitempty"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current counters.
func (l *Listener) Snapshot() Snapshot {
	if l == nil {
		return Snapshot{}
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := Snapshot{
		Uptime:      time.Since(l.startTime).Truncate(time.Second).String(),
		Connects:    l.connects.Load(),
		Disconnects: l.disconnects.Load(),
		Messages:    l.messages.Load(),
		Errors:      l.errors.Load(),
		Receipts:    l.receipts.Load(),
		FramesSent:  l.framesSent.Load(),
		BytesIn:     l.bytesIn.Load(),
	}
	if !l.lastError.IsZero() {
		s.LastError = l.lastError.Format(time.RFC3339)
		s.LastErrorMessage = l.lastErrorMsg
	}
	return s
}

// String renders the snapshot as the console block shown by the stats
// command.
func (l *Listener) String() string {
	s := l.Snapshot()
	var b strings.Builder
	fmt.Fprintf(&b, "uptime: %s\n", s.Uptime)
	fmt.Fprintf(&b, "connects: %d\n", s.Connects)
	fmt.Fprintf(&b, "disconnects: %d\n", s.Disconnects)
	fmt.Fprintf(&b, "messages received: %d\n", s.Messages)
	fmt.Fprintf(&b, "bytes received: %d\n", s.BytesIn)
	fmt.Fprintf(&b, "frames sent: %d\n", s.FramesSent)
	fmt.Fprintf(&b, "receipts: %d\n", s.Receipts)
	fmt.Fprintf(&b, "errors: %d", s.Errors)
	if s.LastErrorMessage != "" {
		fmt.Fprintf(&b, "\nlast error: %s", s.LastErrorMessage)
	}
	return b.String()
}
