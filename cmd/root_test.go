package cmd

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"icbd/config"
	"icbd/internal/errors"
	"icbd/internal/metrics"
	"icbd/util"
)

// TestExecute_Version verifies --version prints a version string.
func TestExecute_Version(t *testing.T) {
	if err := Execute(context.Background(), []string{"--version"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestExecute_Help verifies --help returns without error.
func TestExecute_Help(t *testing.T) {
	for _, args := range [][]string{{"--help"}, {"-h"}} {
		t.Run(args[0], func(t *testing.T) {
			if err := Execute(context.Background(), args); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

// TestExecute_DryRun verifies --dry-run validates and exits cleanly.
func TestExecute_DryRun(t *testing.T) {
	err := Execute(context.Background(), []string{
		"-4", "-C", "-G", "icb,help", "-w", "300", "--dry-run", "127.0.0.1:7777", "[::1]",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestExecute_BothFamilies verifies -4 with -6 is a usage error.
func TestExecute_BothFamilies(t *testing.T) {
	err := Execute(context.Background(), []string{"-4", "-6", "--dry-run"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if got := errors.ExitCode(err); got != errors.ExitUsage {
		t.Errorf("exit code = %d, want %d", got, errors.ExitUsage)
	}
	if !strings.Contains(err.Error(), "-4 and -6") {
		t.Errorf("error should mention the flags: %v", err)
	}
}

// TestExecute_BadListenSpec verifies malformed addresses are rejected.
func TestExecute_BadListenSpec(t *testing.T) {
	for _, spec := range []string{"[::1", "host:99999", "host:nosuchservice-icbd"} {
		t.Run(spec, func(t *testing.T) {
			err := Execute(context.Background(), []string{"--dry-run", spec})
			if err == nil {
				t.Fatalf("expected error for %q", spec)
			}
			if got := errors.ExitCode(err); got != errors.ExitUsage {
				t.Errorf("exit code = %d, want %d", got, errors.ExitUsage)
			}
		})
	}
}

// TestExecute_InvalidFlags verifies unknown flags produce a usage error.
func TestExecute_InvalidFlags(t *testing.T) {
	err := Execute(context.Background(), []string{"--nonexistent-flag"})
	if err == nil {
		t.Fatal("expected error for unknown flag")
	}
	if got := errors.ExitCode(err); got != errors.ExitUsage {
		t.Errorf("exit code = %d, want %d", got, errors.ExitUsage)
	}
}

// TestExecute_EnvOverlay verifies flags win over ICBD_ variables.
func TestExecute_EnvOverlay(t *testing.T) {
	t.Setenv("ICBD_USER", "")
	t.Setenv("ICBD_GROUPS", strings.Repeat("g", config.MaxGroupLen))

	// The env group list is too long; an explicit -G replaces it.
	if err := Execute(context.Background(), []string{"--dry-run"}); err == nil {
		t.Fatal("expected the env group list to fail validation")
	}
	if err := Execute(context.Background(), []string{"--dry-run", "-G", "ok"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoggerArgs(t *testing.T) {
	cfg := &config.Config{User: "_icbd", LogPrefix: "chat.log", Foreground: true, Verbose: 2}
	got := strings.Join(loggerArgs(cfg), " ")
	want := "--user _icbd --log-prefix chat.log -d --verbose=2"
	if got != want {
		t.Errorf("loggerArgs = %q, want %q", got, want)
	}
}

func TestNewLogger_Foreground(t *testing.T) {
	log, err := newLogger(true, 1, "icbd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if log.Level() != 2 {
		t.Errorf("level = %d, want 2", log.Level())
	}
}

func quietLogger() *util.Logger {
	l := util.NewLogger(0)
	l.SetOutput(io.Discard)
	return l
}

// TestAfterJail_MetricsServedOnlyWhenJailed verifies no scrape is
// answered while the jail is being set up, and that one is answered
// afterwards.
func TestAfterJail_MetricsServedOnlyWhenJailed(t *testing.T) {
	ms, err := metrics.Listen("127.0.0.1:0", metrics.NewRegistry(metrics.New()))
	if err != nil {
		t.Fatal(err)
	}
	url := "http://" + ms.Addr().String() + "/metrics"
	client := &http.Client{Timeout: 200 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var duringJail error
	hook := afterJail(ctx, func() error {
		resp, err := client.Get(url)
		if err == nil {
			resp.Body.Close()
		}
		duringJail = err
		return nil
	}, ms, nil, quietLogger())

	if err := hook(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if duringJail == nil {
		t.Error("metrics answered before the jail was in place")
	}

	client.Timeout = 2 * time.Second
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("metrics not served after jail: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

// TestAfterJail_FailureClosesMetrics verifies a failed jail leaves the
// metrics socket closed and returns the jail error.
func TestAfterJail_FailureClosesMetrics(t *testing.T) {
	ms, err := metrics.Listen("127.0.0.1:0", metrics.NewRegistry(metrics.New()))
	if err != nil {
		t.Fatal(err)
	}
	addr := ms.Addr().String()

	bad := errors.Exitf(errors.ExitNoPerm, "bad directory permissions")
	hook := afterJail(context.Background(), func() error { return bad }, ms, nil, quietLogger())
	if err := hook(); err != bad {
		t.Fatalf("got %v, want %v", err, bad)
	}
	if c, err := net.DialTimeout("tcp", addr, 200*time.Millisecond); err == nil {
		c.Close()
		t.Error("metrics socket still open after a failed jail")
	}
}

// TestWantsLogger verifies the logger process only runs with a sink.
func TestWantsLogger(t *testing.T) {
	tests := []struct {
		prefix     string
		foreground bool
		want       bool
	}{
		{"", false, false},
		{"", true, true},
		{"icbd.log", false, true},
		{"icbd.log", true, true},
	}
	for _, tt := range tests {
		cfg := &config.Config{LogPrefix: tt.prefix, Foreground: tt.foreground}
		if got := wantsLogger(cfg); got != tt.want {
			t.Errorf("LogPrefix=%q Foreground=%v: got %v, want %v", tt.prefix, tt.foreground, got, tt.want)
		}
	}
}
