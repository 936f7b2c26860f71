// Package util provides low-level helpers shared by all other packages.
package util

import (
	"fmt"
	"io"
	"log/syslog"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

// LogLevel controls output verbosity.
type LogLevel int

const (
	LogQuiet   LogLevel = 0
	LogNormal  LogLevel = 1
	LogVerbose LogLevel = 2
	LogDebug   LogLevel = 3
)

// Logger writes levelled messages either to a stream (stderr by
// default) with optional timestamps and level prefixes, or to the
// system log facility.  A nil *Logger discards everything.
type Logger struct {
	level      LogLevel
	output     io.Writer
	sys        *syslog.Writer
	mu         sync.Mutex
	timestamps bool // if true, prepend wall-clock timestamps
}

// NewLogger returns a Logger that prints messages at or below the given
// verbosity (0 = quiet, 1 = normal, 2 = verbose, 3 = debug) to stderr.
// Timestamps are enabled when stderr is a terminal or in debug mode.
func NewLogger(verbosity int) *Logger {
	return &Logger{
		level:      LogLevel(verbosity),
		output:     os.Stderr,
		timestamps: verbosity >= 3 || term.IsTerminal(int(os.Stderr.Fd())),
	}
}

// NewSyslogLogger returns a Logger that sends messages to the daemon
// facility of the system log under tag.  The connection to the log
// socket is made immediately so that it survives a later chroot.
func NewSyslogLogger(verbosity int, tag string) (*Logger, error) {
	w, err := syslog.New(syslog.LOG_DAEMON|syslog.LOG_INFO, tag)
	if err != nil {
		return nil, fmt.Errorf("syslog: %w", err)
	}
	return &Logger{
		level:  LogLevel(verbosity),
		output: os.Stderr,
		sys:    w,
	}, nil
}

// SetTimestamps enables or disables timestamp prefixes.
func (l *Logger) SetTimestamps(on bool) { l.timestamps = on }

// SetOutput overrides the output writer (default: os.Stderr) and
// detaches the logger from syslog.
func (l *Logger) SetOutput(w io.Writer) {
	l.output = w
	l.sys = nil
}

// Level returns the current log level.
func (l *Logger) Level() LogLevel { return l.level }

// Info prints when verbosity ≥ 1.  Prefixed with [INF].
func (l *Logger) Info(format string, args ...interface{}) {
	if l != nil && l.level >= LogNormal {
		l.write("INF", format, args...)
	}
}

// Warn prints when verbosity ≥ 1.  Prefixed with [WRN].
func (l *Logger) Warn(format string, args ...interface{}) {
	if l != nil && l.level >= LogNormal {
		l.write("WRN", format, args...)
	}
}

// Verbose prints when verbosity ≥ 2.  Prefixed with [VRB].
func (l *Logger) Verbose(format string, args ...interface{}) {
	if l != nil && l.level >= LogVerbose {
		l.write("VRB", format, args...)
	}
}

// Debug prints when verbosity ≥ 3.  Prefixed with [DBG].
func (l *Logger) Debug(format string, args ...interface{}) {
	if l != nil && l.level >= LogDebug {
		l.write("DBG", format, args...)
	}
}

// Error always prints regardless of verbosity.  Prefixed with [ERR].
func (l *Logger) Error(format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.write("ERR", format, args...)
}

// Close releases the syslog connection, if any.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sys == nil {
		return nil
	}
	err := l.sys.Close()
	l.sys = nil
	return err
}

func (l *Logger) write(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)
	if l.sys != nil {
		l.writeSyslog(level, msg)
		return
	}
	if l.timestamps {
		ts := time.Now().Format("15:04:05.000")
		fmt.Fprintf(l.output, "%s [%s] %s\n", ts, level, msg)
	} else {
		fmt.Fprintf(l.output, "[%s] %s\n", level, msg)
	}
}

func (l *Logger) writeSyslog(level, msg string) {
	var err error
	switch level {
	case "ERR":
		err = l.sys.Err(msg)
	case "WRN":
		err = l.sys.Warning(msg)
	case "INF":
		err = l.sys.Info(msg)
	default:
		err = l.sys.Debug(msg)
	}
	if err != nil {
		fmt.Fprintf(l.output, "[%s] %s\n", level, msg)
	}
}
