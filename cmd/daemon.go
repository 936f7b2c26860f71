package cmd

import (
	"context"
	"strconv"

	"icbd/config"
	"icbd/internal/chat"
	"icbd/internal/errors"
	"icbd/internal/listener"
	"icbd/internal/logsink"
	"icbd/internal/metrics"
	"icbd/internal/privsep"
	"icbd/internal/resolver"
	"icbd/internal/server"
	"icbd/util"
)

// newLogger returns a stderr logger in the foreground and a syslog
// logger otherwise.
func newLogger(foreground bool, verbose int, tag string) (*util.Logger, error) {
	level := int(util.LogNormal) + verbose
	if foreground {
		return util.NewLogger(level), nil
	}
	return util.NewSyslogLogger(level, tag)
}

// run starts the daemon.  The order matters: every socket is bound
// and the logger process started while still privileged, then the
// process is jailed, and only then does it accept connections.
func run(ctx context.Context, cfg *config.Config) error {
	log, err := newLogger(cfg.Foreground, cfg.Verbose, "icbd")
	if err != nil {
		return errors.Exit(errors.ExitOSErr, err)
	}
	defer log.Close()

	m := metrics.New()

	specs, err := cfg.ListenSpecs()
	if err != nil {
		return err
	}
	listeners, err := listener.Bind(ctx, specs, cfg.Network(), log, m)
	if err != nil {
		return err
	}
	var ms *metrics.Server
	closeListeners := func() {
		for _, l := range listeners {
			l.Close()
		}
		if ms != nil {
			ms.Close()
		}
	}

	// The metrics socket is bound now and served once jailed.
	if cfg.MetricsAddr != "" {
		ms, err = metrics.Listen(cfg.MetricsAddr, metrics.NewRegistry(m))
		if err != nil {
			closeListeners()
			return errors.Exit(errors.ExitUnavailable, err)
		}
	}

	var chatLog *logsink.Client
	if wantsLogger(cfg) {
		child, err := logsink.Spawn(loggerArgs(cfg), config.DefaultLogQueue, log, m)
		if err != nil {
			closeListeners()
			return err
		}
		defer func() {
			if err := child.Close(); err != nil {
				log.Warn("logger process: %v", err)
			}
		}()
		chatLog = child.Client
	}

	var rev server.Reverser
	if !cfg.NoDNS {
		rev = resolver.New()
	}

	mods := chat.NewModTab(cfg.ModTab, log)
	jail := func() error {
		return privsep.Restrict(privsep.Options{
			User:     cfg.User,
			WorkDir:  cfg.WorkDir,
			AllowDNS: !cfg.NoDNS,
			Logger:   log,
		})
	}
	restrict := afterJail(ctx, jail, ms, mods, log)

	srv := server.New(server.Options{
		IdleTimeout: cfg.IdleTimeout,
		Resolver:    rev,
		Restrict:    restrict,
		Logger:      log,
		Metrics:     m,
	})
	proc := chat.New(srv, chat.Options{
		ServerName:   cfg.ServerName,
		CreateGroups: cfg.CreateGroups,
		Groups:       cfg.Groups,
		ModTab:       mods,
		ChatLog:      chatLog,
		Logger:       log,
	})

	log.Info("icbd %s starting, %d listeners", version, len(listeners))
	err = srv.Run(ctx, proc, listeners)
	log.Info("icbd stopping: %s", m.JSON())
	return err
}

// loggerArgs are passed to the re-executed logger process.
func loggerArgs(cfg *config.Config) []string {
	args := []string{"--user", cfg.User, "--log-prefix", cfg.LogPrefix}
	if cfg.Foreground {
		args = append(args, "-d")
	}
	if cfg.Verbose > 0 {
		args = append(args, "--verbose="+strconv.Itoa(cfg.Verbose))
	}
	return args
}

// wantsLogger reports whether chat records have a sink: a -L file, or
// stderr in the foreground.
func wantsLogger(cfg *config.Config) bool {
	return cfg.LogPrefix != "" || cfg.Foreground
}

// afterJail wraps jail with the work that must only happen once the
// process is confined: serving metrics and reading the moderator
// table.  If jail fails the metrics socket is closed unserved.
func afterJail(ctx context.Context, jail func() error, ms *metrics.Server, mods *chat.ModTab, log *util.Logger) func() error {
	return func() error {
		if err := jail(); err != nil {
			if ms != nil {
				ms.Close()
			}
			return err
		}
		if ms != nil {
			log.Verbose("metrics on http://%s/metrics", ms.Addr())
			go func() {
				if err := ms.Serve(ctx); err != nil {
					log.Error("metrics: %v", err)
				}
			}()
		}
		// The table is read from inside the jail.
		if err := mods.Reload(); err != nil {
			log.Error("%v", err)
		}
		go func() {
			if err := mods.Watch(ctx); err != nil {
				log.Error("%v", err)
			}
		}()
		return nil
	}
}
