// Package listener binds the daemon's TCP sockets and runs their accept
// loops.  A listener that hits the descriptor limit stops accepting for
// a cooldown period instead of spinning on EMFILE.
package listener

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"icbd/config"
	"icbd/internal/errors"
	"icbd/internal/metrics"
	"icbd/util"
)

// State is the accept state of a listener.
type State int32

const (
	// Armed listeners are accepting.
	Armed State = iota
	// Paused listeners wait for the cooldown timer.
	Paused
)

func (st State) String() string {
	if st == Paused {
		return "paused"
	}
	return "armed"
}

// Listener wraps one bound socket.
type Listener struct {
	ln net.Listener

	// Cooldown is how long accepting stays paused after EMFILE/ENFILE.
	Cooldown time.Duration
	Logger   *util.Logger
	Metrics  *metrics.Collector

	state atomic.Int32
}

// New wraps an already bound net.Listener.
func New(ln net.Listener, log *util.Logger, m *metrics.Collector) *Listener {
	return &Listener{
		ln:       ln,
		Cooldown: config.DefaultAcceptCooldown,
		Logger:   log,
		Metrics:  m,
	}
}

// Bind listens on every address the specs resolve to.  network is
// "tcp", "tcp4" or "tcp6".  Failing addresses are logged and skipped;
// if nothing could be bound the returned error carries the last cause
// and exit code EX_UNAVAILABLE.
func Bind(ctx context.Context, specs []config.ListenSpec, network string, log *util.Logger, m *metrics.Collector) ([]*Listener, error) {
	var (
		lc      net.ListenConfig
		out     []*Listener
		lastErr error
	)
	for _, spec := range specs {
		addrs, err := resolve(ctx, spec, network)
		if err != nil {
			log.Warn("%s: %v", spec.Address(), err)
			lastErr = err
			continue
		}
		for _, addr := range addrs {
			ln, err := lc.Listen(ctx, network, addr)
			if err != nil {
				lastErr = errors.Wrap("bind", addr, err)
				log.Warn("%v", lastErr)
				continue
			}
			log.Verbose("listening on %s", ln.Addr())
			out = append(out, New(ln, log, m))
		}
	}
	if len(out) == 0 {
		if lastErr == nil {
			lastErr = errors.New("bind: no listen address")
		}
		return nil, errors.Exit(errors.ExitUnavailable, lastErr)
	}
	return out, nil
}

// resolve expands a spec into the literal addresses to bind.  An empty
// host binds the wildcard once.
func resolve(ctx context.Context, spec config.ListenSpec, network string) ([]string, error) {
	if spec.Host == "" {
		return []string{spec.Address()}, nil
	}
	if ip := net.ParseIP(spec.Host); ip != nil {
		return []string{spec.Address()}, nil
	}
	ips, err := net.DefaultResolver.LookupIP(ctx, ipNetwork(network), spec.Host)
	if err != nil {
		return nil, err
	}
	addrs := make([]string, 0, len(ips))
	for _, ip := range ips {
		addrs = append(addrs, util.FormatAddr(ip.String(), spec.Port))
	}
	return addrs, nil
}

func ipNetwork(network string) string {
	switch network {
	case "tcp4":
		return "ip4"
	case "tcp6":
		return "ip6"
	}
	return "ip"
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// State returns the current accept state.
func (l *Listener) State() State { return State(l.state.Load()) }

// Close closes the socket; a running Serve returns nil.
func (l *Listener) Close() error { return l.ln.Close() }

// Serve accepts connections until ctx is cancelled or the listener is
// closed, passing each one to handoff.  handoff runs on the accept
// goroutine and must not block.
func (l *Listener) Serve(ctx context.Context, handoff func(net.Conn)) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			l.ln.Close()
		case <-stop:
		}
	}()

	for {
		conn, err := l.ln.Accept()
		if err == nil {
			handoff(conn)
			continue
		}
		if ctx.Err() != nil {
			return nil
		}

		switch errors.ClassifyAccept(err) {
		case errors.AcceptClosed:
			return nil
		case errors.AcceptTransient:
		case errors.AcceptExhausted:
			if !l.pause(ctx, err) {
				return nil
			}
		default:
			l.Logger.Error("accept: %v", err)
			l.Metrics.RecordError("accept: " + err.Error())
		}
	}
}

// pause disarms the listener for the cooldown period.  It returns
// false if ctx ended first.
func (l *Listener) pause(ctx context.Context, cause error) bool {
	l.state.Store(int32(Paused))
	l.Metrics.AcceptPaused()
	l.Logger.Verbose("%s: accept: %v, pausing for %s", l.ln.Addr(), cause, l.Cooldown)

	t := time.NewTimer(l.Cooldown)
	defer t.Stop()
	select {
	case <-t.C:
		l.state.Store(int32(Armed))
		return true
	case <-ctx.Done():
		return false
	}
}
