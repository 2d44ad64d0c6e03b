// Package errors provides domain-specific error types for stompcat.
//
// These types carry structured context (operation, address, usage text)
// that lets the command loop decide how to report failures and keeps
// diagnostics richer than plain string wrapping.
package errors

import (
	"errors"
	"fmt"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrNotConnected    = errors.New("not connected")
	ErrConnectionLost  = errors.New("lost connection")
	ErrTunnelClosed    = errors.New("tunnel is closed")
	ErrTimeout         = errors.New("operation timed out")
	ErrAuthFailed      = errors.New("authentication failed")
	ErrHostKeyMismatch = errors.New("host key mismatch")
)

// ── Structured error types ───────────────────────────────────────────

// UsageError reports a command invoked with missing or malformed
// arguments.  Expect holds the usage line shown to the operator.
type UsageError struct {
	Expect string // e.g. "send <destination> <message>"
}

func (e *UsageError) Error() string { return "Expecting: " + e.Expect }

// StateConflictError reports an operation that is not valid in the
// session's current state, such as committing with no open transaction.
type StateConflictError struct {
	Message string
}

func (e *StateConflictError) Error() string { return e.Message }

// ResourceError represents a failed file or local-resource access.
type ResourceError struct {
	Path string // file path involved
	Msg  string // operator-facing description
	Err  error  // underlying error, if any
}

func (e *ResourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ResourceError) Unwrap() error { return e.Err }

// BrokerError represents a failure talking to the message broker.
type BrokerError struct {
	Op   string // operation: "dial", "connect", "send", "read"
	Addr string // broker address involved
	Err  error  // underlying error
}

func (e *BrokerError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *BrokerError) Unwrap() error { return e.Err }

// SSHError represents an SSH-specific failure with host context.
type SSHError struct {
	Op   string // "handshake", "auth", "channel", "forward"
	Host string
	Port int
	Err  error
}

func (e *SSHError) Error() string {
	return fmt.Sprintf("ssh %s %s:%d: %v", e.Op, e.Host, e.Port, e.Err)
}

func (e *SSHError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Usage creates a UsageError from a usage line.
func Usage(expect string) *UsageError {
	return &UsageError{Expect: expect}
}

// StateConflict creates a StateConflictError.
func StateConflict(format string, args ...interface{}) *StateConflictError {
	return &StateConflictError{Message: fmt.Sprintf(format, args...)}
}

// WrapBroker creates a BrokerError.
func WrapBroker(op, addr string, err error) *BrokerError {
	return &BrokerError{Op: op, Addr: addr, Err: err}
}

// WrapSSH creates an SSHError.
func WrapSSH(op, host string, port int, err error) *SSHError {
	return &SSHError{Op: op, Host: host, Port: port, Err: err}
}

// ── Re-exports for convenience ───────────────────────────────────────
//
// These allow callers to use stompcat/internal/errors as a drop-in
// replacement for the standard library in common operations.

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
