package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config file parsing, and environment variable
// loading.

const (
	// DefaultHost is the broker host used when none is given.
	DefaultHost = "localhost"

	// DefaultPort is the standard STOMP broker port.
	DefaultPort = 61613

	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultConnTimeout bounds the broker dial and handshake.
	DefaultConnTimeout = 30 * time.Second

	// DefaultHistoryLimit is how many lines the command history keeps.
	DefaultHistoryLimit = 500

	// DefaultHistoryFileName is the history file created under the
	// user's home directory when none is configured.
	DefaultHistoryFileName = ".stompcat_history"
)
