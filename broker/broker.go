// Package broker provides the messaging client connection: lifecycle,
// outbound operations, and asynchronous delivery of broker events to
// named listeners.  Frame encoding and decoding are delegated to
// github.com/go-stomp/stomp/v3; this package owns the socket, the
// reader goroutine, and the listener registry.
package broker

// Header is a single frame header.
type Header struct {
	Name  string
	Value string
}

// Headers preserves the order in which headers appeared on the wire.
type Headers []Header

// Get returns the first value for name and whether it was present.
func (h Headers) Get(name string) (string, bool) {
	for _, hd := range h {
		if hd.Name == name {
			return hd.Value, true
		}
	}
	return "", false
}

// With returns a copy of h with an additional header appended.
func (h Headers) With(name, value string) Headers {
	out := make(Headers, len(h), len(h)+1)
	copy(out, h)
	return append(out, Header{Name: name, Value: value})
}

// Conn is the operator-facing surface of a broker connection.  All
// methods may be called from the command loop; event callbacks arrive
// on the connection's reader goroutine.
type Conn interface {
	// Connect performs the protocol handshake.  With wait set it
	// blocks until the broker acknowledges or the link fails.
	Connect(wait bool) error

	// Disconnect closes the link.  A second call reports
	// errors.ErrNotConnected.
	Disconnect() error

	// Send delivers body to destination, inside transaction when the
	// token is non-empty.  Extra headers ride along in order.
	Send(destination string, body []byte, transaction string, extra Headers) error

	// Subscribe registers interest in destination with the given
	// acknowledgement mode ("auto" or "client").
	Subscribe(destination, ack string) error

	// Unsubscribe removes interest in destination.
	Unsubscribe(destination string) error

	// Ack acknowledges a received message by its message-id, inside
	// transaction when the token is non-empty.
	Ack(messageID, transaction string) error

	// Begin opens a transaction and returns its token.
	Begin() (string, error)

	// Commit completes the transaction with the given token.
	Commit(transaction string) error

	// Abort discards the transaction with the given token.
	Abort(transaction string) error

	// SetListener registers or replaces the listener under name.
	SetListener(name string, l Listener)

	// Listener returns the listener registered under name.
	Listener(name string) (Listener, bool)

	// RemoveListener drops the listener registered under name.
	RemoveListener(name string)
}

// Listener receives connection events.  Callbacks other than
// OnConnecting are invoked on the reader goroutine and must not block
// on it; OnConnecting is invoked synchronously while the connection is
// starting and is the place to call Conn.Connect.
type Listener interface {
	// OnConnecting fires once the transport link is up, before the
	// protocol handshake, with the broker's host:port.
	OnConnecting(hostPort string)

	// OnConnected fires when the broker acknowledges the handshake.
	OnConnected(headers Headers, body []byte)

	// OnDisconnected fires once when the link goes away, whether by
	// request or by failure.
	OnDisconnected()

	// OnMessage fires for each message delivered to a subscription.
	OnMessage(headers Headers, body []byte)

	// OnError fires for each error the broker reports.
	OnError(headers Headers, body []byte)

	// OnReceipt fires for each delivery receipt.
	OnReceipt(headers Headers, body []byte)

	// OnSend fires for each frame written to the broker.
	OnSend(command string)
}

// NopListener is a Listener with no behavior.  Embed it to implement
// only the callbacks of interest.
type NopListener struct{}

func (NopListener) OnConnecting(string)          {}
func (NopListener) OnConnected(Headers, []byte)  {}
func (NopListener) OnDisconnected()              {}
func (NopListener) OnMessage(Headers, []byte)    {}
func (NopListener) OnError(Headers, []byte)      {}
func (NopListener) OnReceipt(Headers, []byte)    {}
func (NopListener) OnSend(string)                {}
