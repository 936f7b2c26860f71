package cmd

import (
	flag "github.com/spf13/pflag"

	"icbd/config"
	"icbd/internal/errors"
	"icbd/internal/logsink"
	"icbd/internal/privsep"
)

// runLogger is the body of the logger process.  It drops privileges,
// opens the sink and copies records until the parent goes away.
func runLogger(args []string) error {
	var (
		user, prefix string
		foreground   bool
		verbose      int
	)
	fs := flag.NewFlagSet("icbd-logger", flag.ContinueOnError)
	fs.StringVar(&user, "user", config.DefaultUser, "")
	fs.StringVar(&prefix, "log-prefix", "", "")
	fs.BoolVarP(&foreground, "debug", "d", false, "")
	fs.IntVar(&verbose, "verbose", 0, "")
	if err := fs.Parse(args); err != nil {
		return errors.Exit(errors.ExitUsage, err)
	}

	log, err := newLogger(foreground, verbose, "icbd-logger")
	if err != nil {
		return errors.Exit(errors.ExitOSErr, err)
	}
	defer log.Close()

	conn, err := logsink.ChildChannel()
	if err != nil {
		return err
	}
	defer conn.Close()

	acct, err := privsep.Lookup(user)
	if err != nil {
		return err
	}
	if err := privsep.DropTo(acct); err != nil {
		return err
	}

	sink, err := logsink.OpenSink(prefix)
	if err != nil {
		return errors.Exit(errors.ExitUnavailable, err)
	}
	defer sink.Close()

	r := &logsink.Reader{In: conn, Out: sink, Log: log}
	return r.Serve()
}
