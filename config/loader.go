package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags and positional arguments  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Config file  (file.go)
//   4. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the STOMPCAT_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// LoadFromEnv overlays environment variables onto cfg.  Only set env
// vars override the existing value; CLI flags are applied afterwards
// so they take precedence.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("STOMPCAT_HOST"); v != "" {
		cfg.Host = v
	}
	if v := envInt("STOMPCAT_PORT"); v > 0 {
		cfg.Port = v
	}
	if v := os.Getenv("STOMPCAT_LOGIN"); v != "" {
		cfg.Login = v
	}
	if v := os.Getenv("STOMPCAT_PASSCODE"); v != "" {
		cfg.Passcode = v
	}
	if v := envInt("STOMPCAT_TIMEOUT"); v > 0 {
		cfg.Timeout = secondsDuration(v)
	}

	// SSH tunnel
	if v := os.Getenv("STOMPCAT_TUNNEL"); v != "" {
		cfg.TunnelSpec = v
	}
	if v := os.Getenv("STOMPCAT_SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}
	if envBool("STOMPCAT_SSH_PASSWORD") {
		cfg.SSHPassword = true
	}
	if envBool("STOMPCAT_SSH_AGENT") {
		cfg.UseSSHAgent = true
	}
	if envBool("STOMPCAT_STRICT_HOSTKEY") {
		cfg.StrictHostKey = true
	}
	if v := os.Getenv("STOMPCAT_KNOWN_HOSTS"); v != "" {
		cfg.KnownHostsPath = v
	}

	// Console
	if envBool("STOMPCAT_PLAIN") {
		cfg.Plain = true
	}
	if v := os.Getenv("STOMPCAT_HISTORY"); v != "" {
		cfg.HistoryFile = v
	}
	if v := envInt("STOMPCAT_HISTORY_LIMIT"); v > 0 {
		cfg.HistoryLimit = v
	}

	// Output
	if v := envInt("STOMPCAT_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func secondsDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
