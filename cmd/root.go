// Package cmd wires up the CLI flags and dispatches to the interactive console.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	flag "github.com/spf13/pflag"

	"stompcat/broker"
	"stompcat/config"
	"stompcat/console"
	"stompcat/internal/transport"
	"stompcat/tunnel"
	"stompcat/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X stompcat/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Execute parses args and runs the interactive console.
func Execute(ctx context.Context, args []string) error {
	cfg := config.New()
	fs := flag.NewFlagSet("stompcat", flag.ContinueOnError)

	// Flags parse into a scratch config; only flags the user actually
	// set are overlaid onto cfg, after the file and environment layers.
	fl := &config.Config{}

	var configPath string
	fs.StringVar(&configPath, "config", "", "Config file (TOML)")

	// ── broker connection ────────────────────────────────────────
	var timeoutSec int
	fs.IntVarP(&timeoutSec, "timeout", "w", 0, "Connect timeout in seconds (0 waits forever)")

	// ── SSH tunnel ───────────────────────────────────────────────
	fs.StringVarP(&fl.TunnelSpec, "tunnel", "T", "", "SSH tunnel via [user@]host[:port]")
	fs.StringVar(&fl.SSHKeyPath, "ssh-key", "", "SSH private key file")
	fs.BoolVar(&fl.SSHPassword, "ssh-password", false, "Prompt for SSH password")
	fs.BoolVar(&fl.UseSSHAgent, "ssh-agent", false, "Use SSH agent")
	fs.BoolVar(&fl.StrictHostKey, "strict-hostkey", false, "Verify SSH host keys")
	fs.StringVar(&fl.KnownHostsPath, "known-hosts", "", "Custom known_hosts path")

	// ── console ──────────────────────────────────────────────────
	fs.BoolVar(&fl.Plain, "plain", false, "Disable line editing and tab completion")
	fs.StringVar(&fl.HistoryFile, "history", "", "History file (empty disables persistence)")
	fs.IntVar(&fl.HistoryLimit, "history-limit", config.DefaultHistoryLimit, "Max history entries")

	// ── output ───────────────────────────────────────────────────
	fs.CountVarP(&fl.Verbose, "verbose", "v", "Increase verbosity (repeatable)")

	var dryRun, showVersion, showHelp bool
	fs.BoolVar(&dryRun, "dry-run", false, "Validate configuration and exit")
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Printf("stompcat %s\n", version)
		return nil
	}

	// ── layer configuration ──────────────────────────────────────
	path := configPath
	if !fs.Changed("config") {
		path = config.DefaultFilePath()
	}
	if err := config.LoadFile(cfg, path, fs.Changed("config")); err != nil {
		return err
	}
	config.LoadFromEnv(cfg)
	applyFlags(cfg, fl, fs)
	if fs.Changed("timeout") {
		cfg.Timeout = time.Duration(timeoutSec) * time.Second
	}
	if cfg.HistoryFile == "" && !fs.Changed("history") {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.HistoryFile = filepath.Join(home, config.DefaultHistoryFileName)
		}
	}

	// ── positional arguments ─────────────────────────────────────
	if err := cfg.ParseArgs(fs.Args()); err != nil {
		return err
	}

	// ── tunnel spec ──────────────────────────────────────────────
	if err := cfg.ApplyTunnelSpec(); err != nil {
		return fmt.Errorf("tunnel: %w", err)
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}
	if dryRun {
		return nil
	}

	// ── build components ─────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)

	var dialer transport.Dialer = &transport.TCPDialer{Timeout: cfg.Timeout}
	if cfg.TunnelEnabled {
		dialer = transport.NewSSHDialer(&tunnel.SSHConfig{
			User:          cfg.TunnelUser,
			Host:          cfg.TunnelHost,
			Port:          cfg.TunnelPort,
			KeyPath:       cfg.SSHKeyPath,
			PromptPass:    cfg.SSHPassword,
			UseAgent:      cfg.UseSSHAgent,
			StrictHostKey: cfg.StrictHostKey,
			KnownHosts:    cfg.KnownHostsPath,
			ConnTimeout:   cfg.Timeout,
		}, logger)
	}
	defer dialer.Close()

	term := console.NewTerminal(console.TerminalOptions{
		Plain:        cfg.Plain,
		HistoryFile:  cfg.HistoryFile,
		HistoryLimit: cfg.HistoryLimit,
		Completions:  console.CommandNames(),
		Logger:       logger,
	})
	defer term.Close()

	conn := broker.New(broker.Options{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Login:    cfg.Login,
		Passcode: cfg.Passcode,
		Timeout:  cfg.Timeout,
		Dialer:   dialer,
		Logger:   logger,
	})

	// The session must be listening before Start so it sees the
	// connecting callback and can run the handshake.
	sess := console.NewSession(console.SessionOptions{
		Conn:    conn,
		Term:    term,
		Logger:  logger,
		Version: version,
	})

	if err := conn.Start(ctx); err != nil {
		return err
	}

	return console.NewLoop(term, sess, logger).Run(ctx)
}

// ── helpers ──────────────────────────────────────────────────────────

// applyFlags overlays every flag the user set onto cfg, giving the
// command line the last word over file and environment values.
func applyFlags(cfg, fl *config.Config, fs *flag.FlagSet) {
	if fs.Changed("tunnel") {
		cfg.TunnelSpec = fl.TunnelSpec
	}
	if fs.Changed("ssh-key") {
		cfg.SSHKeyPath = fl.SSHKeyPath
	}
	if fs.Changed("ssh-password") {
		cfg.SSHPassword = fl.SSHPassword
	}
	if fs.Changed("ssh-agent") {
		cfg.UseSSHAgent = fl.UseSSHAgent
	}
	if fs.Changed("strict-hostkey") {
		cfg.StrictHostKey = fl.StrictHostKey
	}
	if fs.Changed("known-hosts") {
		cfg.KnownHostsPath = fl.KnownHostsPath
	}
	if fs.Changed("plain") {
		cfg.Plain = fl.Plain
	}
	if fs.Changed("history") {
		cfg.HistoryFile = fl.HistoryFile
	}
	if fs.Changed("history-limit") {
		cfg.HistoryLimit = fl.HistoryLimit
	}
	if fs.Changed("verbose") {
		cfg.Verbose = fl.Verbose
	}
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `stompcat – Interactive STOMP Console v%s

A line-oriented console client for STOMP message brokers.

Usage:
  stompcat [options] [host] [port] [user] [passcode]

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  stompcat                                        Connect to localhost:61613
  stompcat broker.example.com 61613               Explicit broker
  stompcat broker.example.com 61613 guest guest   Authenticated connect
  stompcat -T admin@bastion broker-internal       Reach a broker behind SSH
  stompcat --plain < script.txt                   Scripted session
`)
}
