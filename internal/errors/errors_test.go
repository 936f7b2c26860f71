package errors

import (
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
	"testing"
)

func TestNetworkError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  NetworkError
		want string
	}{
		{
			name: "retryable",
			err:  NetworkError{Op: "accept", Addr: "0.0.0.0:7326", Err: io.EOF, Retryable: true},
			want: "accept 0.0.0.0:7326: EOF (retryable)",
		},
		{
			name: "non-retryable",
			err:  NetworkError{Op: "listen", Addr: ":7326", Err: fmt.Errorf("bind failed")},
			want: "listen :7326: bind failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNetworkError_Unwrap(t *testing.T) {
	err := &NetworkError{Op: "read", Addr: "x", Err: io.EOF}
	if !Is(err, io.EOF) {
		t.Error("should unwrap to io.EOF")
	}
}

func TestConfigError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  ConfigError
		want string
	}{
		{
			name: "with value and hint",
			err: ConfigError{
				Field:   "port",
				Value:   99999,
				Message: "out of range 1-65535",
				Hint:    "use a port between 1 and 65535",
			},
			want: "config: --port=99999: out of range 1-65535\n  hint: use a port between 1 and 65535",
		},
		{
			name: "missing value no hint",
			err: ConfigError{
				Field:   "inet6",
				Message: "can't specify both -4 and -6",
			},
			want: "config: --inet6: can't specify both -4 and -6",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got:\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	inner := &net.OpError{Op: "accept", Net: "tcp", Err: os.NewSyscallError("accept", syscall.ECONNABORTED)}
	err := Wrap("accept", "0.0.0.0:7326", inner)

	if err.Op != "accept" || err.Addr != "0.0.0.0:7326" {
		t.Errorf("wrong fields: Op=%q Addr=%q", err.Op, err.Addr)
	}
	if !err.Retryable {
		t.Error("ECONNABORTED should be retryable")
	}
	if !Is(err, syscall.ECONNABORTED) {
		t.Error("should unwrap to ECONNABORTED")
	}
}

func TestClassifyAccept(t *testing.T) {
	wrap := func(errno syscall.Errno) error {
		return &net.OpError{Op: "accept", Net: "tcp", Err: os.NewSyscallError("accept4", errno)}
	}
	tests := []struct {
		name string
		err  error
		want AcceptClass
	}{
		{"nil", nil, AcceptOther},
		{"EMFILE", wrap(syscall.EMFILE), AcceptExhausted},
		{"ENFILE", wrap(syscall.ENFILE), AcceptExhausted},
		{"EINTR", wrap(syscall.EINTR), AcceptTransient},
		{"EAGAIN", wrap(syscall.EAGAIN), AcceptTransient},
		{"ECONNABORTED", wrap(syscall.ECONNABORTED), AcceptTransient},
		{"closed", &net.OpError{Op: "accept", Err: net.ErrClosed}, AcceptClosed},
		{"EPERM", wrap(syscall.EPERM), AcceptOther},
		{"plain", fmt.Errorf("boom"), AcceptOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyAccept(tt.err); got != tt.want {
				t.Errorf("ClassifyAccept() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"exit", Exit(ExitNoUser, fmt.Errorf("no passwd entry")), ExitNoUser},
		{"wrapped exit", fmt.Errorf("restrict: %w", Exit(ExitNoPerm, ErrBadPermissions)), ExitNoPerm},
		{"config", &ConfigError{Field: "inet4", Message: "x"}, ExitUsage},
		{"plain", fmt.Errorf("boom"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestExit_Nil(t *testing.T) {
	if Exit(ExitOSErr, nil) != nil {
		t.Error("Exit(code, nil) should be nil")
	}
}

func TestExitf_Unwrap(t *testing.T) {
	err := Exitf(ExitDataErr, "logger read: %w", ErrShortRecord)
	if !Is(err, ErrShortRecord) {
		t.Error("should unwrap to ErrShortRecord")
	}
	if err.Error() != "logger read: short log record" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestSentinels(t *testing.T) {
	// Verify sentinel errors are distinct.
	sentinels := []error{
		ErrInvalidPacket, ErrSessionClosed, ErrOutputFull,
		ErrBadPermissions, ErrShortRecord,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && Is(a, b) {
				t.Errorf("sentinel %d and %d should not match", i, j)
			}
		}
	}
}
