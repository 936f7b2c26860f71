// Package cmd wires up the CLI flags and starts the daemon or, when
// re-executed with the hidden child flag, the logger process.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"icbd/config"
	"icbd/internal/errors"
	"icbd/internal/logsink"
)

// version is overridable at link time:
//
//	go build -ldflags "-X icbd/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Execute parses args and runs icbd.
func Execute(ctx context.Context, args []string) error {
	if len(args) > 0 && args[0] == logsink.ChildFlag {
		return runLogger(args[1:])
	}

	cfg := &config.Config{}
	config.LoadFromEnv(cfg)
	cfg.ApplyDefaults()
	envVerbose := cfg.Verbose // CountVarP resets it

	fs := flag.NewFlagSet("icbd", flag.ContinueOnError)

	// ── listening ────────────────────────────────────────────────
	fs.BoolVarP(&cfg.Inet4, "inet4", "4", cfg.Inet4, "Listen on IPv4 addresses only")
	fs.BoolVarP(&cfg.Inet6, "inet6", "6", cfg.Inet6, "Listen on IPv6 addresses only")
	fs.BoolVarP(&cfg.NoDNS, "no-dns", "n", cfg.NoDNS, "Do not resolve client addresses")

	timeoutSec := int(cfg.IdleTimeout / time.Second)
	fs.IntVarP(&timeoutSec, "timeout", "w", timeoutSec, "Drop clients idle for this many seconds (0 = never)")

	// ── chat ─────────────────────────────────────────────────────
	fs.BoolVarP(&cfg.CreateGroups, "create-groups", "C", cfg.CreateGroups, "Let clients create new groups")
	var groups string
	fs.StringVarP(&groups, "groups", "G", "", "Comma separated groups to create at startup")
	fs.StringVarP(&cfg.ModTab, "modtab", "M", cfg.ModTab, "Moderator table, relative to the jail")
	fs.StringVarP(&cfg.ServerName, "server-name", "S", cfg.ServerName, "Server name announced to clients")

	// ── logging ──────────────────────────────────────────────────
	fs.StringVarP(&cfg.LogPrefix, "log-prefix", "L", cfg.LogPrefix, "Chat log file, relative to the jail")
	fs.BoolVarP(&cfg.Foreground, "debug", "d", cfg.Foreground, "Stay in the foreground and log to stderr")
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")

	// ── privileges ───────────────────────────────────────────────
	fs.StringVarP(&cfg.User, "user", "u", cfg.User, "Unprivileged account to run as")
	fs.StringVar(&cfg.WorkDir, "workdir", cfg.WorkDir, "Directory entered inside the jail")

	// ── metrics ──────────────────────────────────────────────────
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Serve Prometheus metrics on this address")

	var showVersion, showHelp, dryRun bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")
	fs.BoolVar(&dryRun, "dry-run", false, "Validate the configuration and exit")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return errors.Exit(errors.ExitUsage, err)
	}
	if !fs.Changed("verbose") {
		cfg.Verbose = envVerbose
	}

	if showHelp {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Printf("icbd %s\n", version)
		return nil
	}

	if fs.Changed("timeout") {
		cfg.IdleTimeout = time.Duration(timeoutSec) * time.Second
	}
	if fs.Changed("groups") {
		cfg.Groups = config.ParseGroupList(groups)
	}
	cfg.Addresses = fs.Args()
	if cfg.ServerName == "" {
		cfg.ServerName = defaultServerName()
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}
	if dryRun {
		return nil
	}

	return run(ctx, cfg)
}

func defaultServerName() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "localhost"
	}
	return name
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `icbd – Internet Citizen's Band chat server v%s

Usage:
  icbd [-46Cdnv] [-G group,...] [-L prefix] [-M modtab] [-S name]
       [-u user] [-w seconds] [[addr][:port] ...]

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  icbd                                  Listen on port %d, all addresses
  icbd -d -v 127.0.0.1:7777             Foreground, loopback only
  icbd -C -G icb,help -M modtab [::]    Extra groups and moderators
`, config.DefaultPort)
}
