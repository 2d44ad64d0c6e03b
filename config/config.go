// Package config defines the runtime configuration for stompcat and
// provides helpers for parsing positional arguments and tunnel
// specifications.
package config

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"stompcat/util"
)

// Config holds every tuneable for a single stompcat session.
type Config struct {
	// ── Broker connection ────────────────────────────────────────────
	Host     string
	Port     int
	Login    string
	Passcode string
	Timeout  time.Duration // dial + handshake bound (0 = wait forever)

	// ── SSH tunnel ───────────────────────────────────────────────────
	TunnelSpec     string // raw user@host[:port] from -T
	TunnelEnabled  bool
	TunnelUser     string
	TunnelHost     string
	TunnelPort     int
	SSHKeyPath     string
	SSHPassword    bool // true → prompt interactively
	UseSSHAgent    bool
	StrictHostKey  bool
	KnownHostsPath string

	// ── Console ──────────────────────────────────────────────────────
	Plain        bool   // disable line editing even on a TTY
	HistoryFile  string // "" → no persistent history
	HistoryLimit int

	// ── Output ───────────────────────────────────────────────────────
	Verbose int
}

// New returns a Config populated with the defaults from defaults.go.
func New() *Config {
	return &Config{
		Host:         DefaultHost,
		Port:         DefaultPort,
		Timeout:      DefaultConnTimeout,
		HistoryLimit: DefaultHistoryLimit,
	}
}

// ── Positional arguments ─────────────────────────────────────────────

// ParseArgs overlays the optional positional arguments onto cfg.
// The accepted forms are [host] [port] [user] [passcode]; anything
// beyond four arguments is an error.
func (c *Config) ParseArgs(args []string) error {
	if len(args) > 4 {
		return fmt.Errorf("too many arguments (expected [host] [port] [user] [passcode])")
	}
	if len(args) >= 1 {
		c.Host = args[0]
	}
	if len(args) >= 2 {
		port, err := util.ParsePort(args[1])
		if err != nil {
			return err
		}
		c.Port = port
	}
	if len(args) >= 3 {
		c.Login = args[2]
	}
	if len(args) == 4 {
		c.Passcode = args[3]
	}
	return nil
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid tunnel spec %q – expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid tunnel port %q", m[3])
		}
	}
	if host == "" {
		return "", "", 0, fmt.Errorf("tunnel host is required")
	}
	return user, host, port, nil
}

// ApplyTunnelSpec parses c.TunnelSpec into the tunnel fields and marks
// the tunnel enabled.  A blank spec is a no-op.
func (c *Config) ApplyTunnelSpec() error {
	if c.TunnelSpec == "" {
		return nil
	}
	user, host, port, err := ParseTunnelSpec(c.TunnelSpec)
	if err != nil {
		return err
	}
	c.TunnelEnabled = true
	c.TunnelUser = user
	c.TunnelHost = host
	c.TunnelPort = port
	return nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("broker host is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range 1-65535", c.Port)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("history limit cannot be negative")
	}

	if c.TunnelEnabled && c.TunnelHost == "" {
		return fmt.Errorf("tunnel host is required")
	}
	if !c.TunnelEnabled && (c.SSHKeyPath != "" || c.SSHPassword || c.UseSSHAgent) {
		return fmt.Errorf("SSH options require a tunnel (-T user@host[:port])")
	}

	return nil
}
