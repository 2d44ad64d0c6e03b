package config

// file.go - configuration loading from a TOML file.
//
// The file sits below environment variables in the precedence order:
// only keys actually present in the file override defaults.

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"stompcat/internal/errors"
)

// fileConfig mirrors the TOML schema.  Field names match the Config
// fields they feed; timeout is given in seconds.
type fileConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Login    string `toml:"login"`
	Passcode string `toml:"passcode"`
	Timeout  int    `toml:"timeout"`

	Tunnel        string `toml:"tunnel"`
	SSHKey        string `toml:"ssh_key"`
	SSHPassword   bool   `toml:"ssh_password"`
	SSHAgent      bool   `toml:"ssh_agent"`
	StrictHostKey bool   `toml:"strict_hostkey"`
	KnownHosts    string `toml:"known_hosts"`

	Plain        bool   `toml:"plain"`
	HistoryFile  string `toml:"history_file"`
	HistoryLimit int    `toml:"history_limit"`

	Verbose int `toml:"verbose"`
}

// DefaultFilePath returns the conventional config file location, or ""
// when the home directory cannot be determined.
func DefaultFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "stompcat", "config.toml")
}

// LoadFile overlays values from the TOML file at path onto cfg.  Keys
// absent from the file leave cfg untouched.  With required unset, a
// missing file is not an error; this covers probing the default
// location.
func LoadFile(cfg *Config, path string, required bool) error {
	if path == "" {
		return nil
	}

	var fc fileConfig
	meta, err := toml.DecodeFile(path, &fc)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return &errors.ConfigError{
			Field:   "config",
			Value:   path,
			Message: err.Error(),
		}
	}

	if meta.IsDefined("host") {
		cfg.Host = fc.Host
	}
	if meta.IsDefined("port") {
		cfg.Port = fc.Port
	}
	if meta.IsDefined("login") {
		cfg.Login = fc.Login
	}
	if meta.IsDefined("passcode") {
		cfg.Passcode = fc.Passcode
	}
	if meta.IsDefined("timeout") {
		cfg.Timeout = time.Duration(fc.Timeout) * time.Second
	}

	if meta.IsDefined("tunnel") {
		cfg.TunnelSpec = fc.Tunnel
	}
	if meta.IsDefined("ssh_key") {
		cfg.SSHKeyPath = fc.SSHKey
	}
	if meta.IsDefined("ssh_password") {
		cfg.SSHPassword = fc.SSHPassword
	}
	if meta.IsDefined("ssh_agent") {
		cfg.UseSSHAgent = fc.SSHAgent
	}
	if meta.IsDefined("strict_hostkey") {
		cfg.StrictHostKey = fc.StrictHostKey
	}
	if meta.IsDefined("known_hosts") {
		cfg.KnownHostsPath = fc.KnownHosts
	}

	if meta.IsDefined("plain") {
		cfg.Plain = fc.Plain
	}
	if meta.IsDefined("history_file") {
		cfg.HistoryFile = fc.HistoryFile
	}
	if meta.IsDefined("history_limit") {
		cfg.HistoryLimit = fc.HistoryLimit
	}

	if meta.IsDefined("verbose") {
		cfg.Verbose = fc.Verbose
	}

	return nil
}
