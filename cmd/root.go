// Package cmd wires up the CLI flags and dispatches to the core modes.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"knockd/config"
	"knockd/internal/core"
	"knockd/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X knockd/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Execute parses args and runs the appropriate knockd mode.
func Execute(ctx context.Context, args []string) error {
	cfg := &config.Config{
		Host:        config.DefaultHost,
		Port:        config.DefaultPort,
		DBPath:      config.DefaultDBPath,
		IdleTimeout: config.DefaultIdleTimeout,
		Timeout:     config.DefaultDialTimeout,
		Verbose:     1,
	}
	// Env vars sit below flags in precedence, so overlay them first.
	config.LoadFromEnv(cfg)

	fs := flag.NewFlagSet("knockd", flag.ContinueOnError)

	// ── mode ─────────────────────────────────────────────────────
	fs.BoolVarP(&cfg.Listen, "listen", "l", cfg.Listen, "Serve jokes (listen mode)")
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "Port to listen on / connect to")

	// ── server ───────────────────────────────────────────────────
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite joke database (listen mode)")
	var idleSec int
	fs.IntVar(&idleSec, "idle-timeout", 0, "Idle shutdown grace period in seconds")

	// ── client ───────────────────────────────────────────────────
	var timeoutSec int
	fs.IntVarP(&timeoutSec, "timeout", "w", 0, "Connection timeout in seconds")

	// ── output ───────────────────────────────────────────────────
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")

	var showVersion, showHelp bool
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
		fmt.Printf("knockd %s\n", version)
		return nil
	}

	if idleSec > 0 {
		cfg.IdleTimeout = time.Duration(idleSec) * time.Second
	}
	if timeoutSec > 0 {
		cfg.Timeout = time.Duration(timeoutSec) * time.Second
	}

	// ── positional arguments ─────────────────────────────────────
	if err := parsePositional(cfg, fs.Args()); err != nil {
		return err
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}

	// ── build and run ────────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)

	mode, err := core.Build(cfg, logger)
	if err != nil {
		return err
	}
	return mode.Run(ctx)
}

// ── helpers ──────────────────────────────────────────────────────────

func parsePositional(cfg *config.Config, remaining []string) error {
	if cfg.Listen {
		if len(remaining) > 0 {
			return fmt.Errorf("unexpected arguments in listen mode: %v", remaining)
		}
		return nil
	}

	// Client mode: [host [port]], defaulting to 127.0.0.1:8079.
	switch len(remaining) {
	case 0:
	case 1:
		cfg.Host = remaining[0]
	case 2:
		cfg.Host = remaining[0]
		port, err := parsePort(remaining[1])
		if err != nil {
			return err
		}
		cfg.Port = port
	default:
		return fmt.Errorf("too many arguments (want [host [port]])")
	}
	return nil
}

func parsePort(s string) (int, error) {
	var port int
	if _, err := fmt.Sscanf(s, "%d", &port); err != nil || port < 1 || port > 65535 {
		return 0, fmt.Errorf("invalid port %q (want 1-65535)", s)
	}
	return port, nil
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `knockd – knock-knock joke server v%s

A line-oriented TCP server that tells knock-knock jokes, and the
matching interactive client.

Usage:
  knockd -l -p <port> [options]       Serve jokes
  knockd [options] [host [port]]      Connect as a client

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  knockd -l --db jokes.db             Serve on port %d
  knockd -l -p 9000 --idle-timeout 30 Serve with a longer grace period
  knockd                              Talk to a local server
  knockd joke.example.com 9000        Talk to a remote server
`, config.DefaultPort)
}
