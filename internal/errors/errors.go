// Package errors provides domain-specific error types for icbd.
//
// These types carry structured context (operation, address, exit code)
// that helps callers decide how to handle failures: whether an accept
// error should pause the listener, and which sysexits code a fatal
// startup error maps to.
package errors

import (
	"errors"
	"fmt"
	"net"
	"syscall"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrInvalidPacket  = errors.New("invalid packet")
	ErrSessionClosed  = errors.New("session is closed")
	ErrOutputFull     = errors.New("output queue full")
	ErrBadPermissions = errors.New("bad directory permissions")
	ErrShortRecord    = errors.New("short log record")
)

// ── Exit codes (sysexits.h) ──────────────────────────────────────────

const (
	ExitUsage       = 64 // command line usage error
	ExitDataErr     = 65 // data format error
	ExitNoUser      = 67 // addressee unknown
	ExitUnavailable = 69 // service unavailable
	ExitOSErr       = 71 // system error (can't fork, etc.)
	ExitNoPerm      = 77 // permission denied
)

// ── Structured error types ───────────────────────────────────────────

// NetworkError represents a failure in a network operation.
type NetworkError struct {
	Op        string // operation: "listen", "accept", "read", "write"
	Addr      string // network address involved
	Err       error  // underlying error
	Retryable bool   // whether the caller should retry
}

func (e *NetworkError) Error() string {
	s := fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	if e.Retryable {
		s += " (retryable)"
	}
	return s
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ExitError is a fatal error carrying the process exit status it
// should terminate with.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates a NetworkError, automatically detecting retryability
// from the underlying error.
func Wrap(op, addr string, err error) *NetworkError {
	return &NetworkError{
		Op:        op,
		Addr:      addr,
		Err:       err,
		Retryable: ClassifyAccept(err) == AcceptTransient,
	}
}

// Exit wraps err with an exit code.  A nil err yields nil.
func Exit(code int, err error) error {
	if err == nil {
		return nil
	}
	return &ExitError{Code: code, Err: err}
}

// Exitf is Exit with fmt.Errorf formatting.
func Exitf(code int, format string, args ...interface{}) error {
	return &ExitError{Code: code, Err: fmt.Errorf(format, args...)}
}

// ExitCode returns the exit status for err: 0 for nil, the wrapped
// code for an ExitError, ExitUsage for a ConfigError and 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ExitUsage
	}
	return 1
}

// ── Accept classification ────────────────────────────────────────────

// AcceptClass tells the accept loop what to do with an error.
type AcceptClass int

const (
	// AcceptOther is logged; the listener stays armed.
	AcceptOther AcceptClass = iota
	// AcceptTransient is ignored; the listener stays armed.
	AcceptTransient
	// AcceptExhausted pauses the listener until the cooldown expires.
	AcceptExhausted
	// AcceptClosed means the listener is gone.
	AcceptClosed
)

func (c AcceptClass) String() string {
	switch c {
	case AcceptTransient:
		return "transient"
	case AcceptExhausted:
		return "exhausted"
	case AcceptClosed:
		return "closed"
	default:
		return "other"
	}
}

// ClassifyAccept maps an accept(2) failure onto an AcceptClass.
func ClassifyAccept(err error) AcceptClass {
	switch {
	case err == nil:
		return AcceptOther
	case errors.Is(err, net.ErrClosed):
		return AcceptClosed
	case errors.Is(err, syscall.EMFILE), errors.Is(err, syscall.ENFILE):
		return AcceptExhausted
	case errors.Is(err, syscall.EINTR),
		errors.Is(err, syscall.EAGAIN),
		errors.Is(err, syscall.ECONNABORTED):
		return AcceptTransient
	}
	return AcceptOther
}

// ── Re-exports for convenience ───────────────────────────────────────
//
// These allow callers to use icbd/internal/errors as a drop-in
// replacement for the standard library in common operations.

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
