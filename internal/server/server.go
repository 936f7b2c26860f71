// Package server owns the set of connected sessions.  It turns accepted
// connections into sessions, frames their input into packets for the
// Processor and is the single place where sessions are dropped and
// released.
package server

import (
	"context"
	"net"
	"sync"
	"time"

	"icbd/config"
	"icbd/internal/errors"
	"icbd/internal/listener"
	"icbd/internal/metrics"
	"icbd/internal/reactor"
	"icbd/internal/session"
	"icbd/util"
)

// Options configure a Server.
type Options struct {
	IdleTimeout time.Duration
	OutputQueue int
	EventQueue  int

	// Resolver is consulted for every new session unless nil.
	Resolver Reverser

	// Restrict runs after the listeners are bound and before the first
	// accept.  An error aborts Run.
	Restrict func() error

	Logger  *util.Logger
	Metrics *metrics.Collector
}

// Server dispatches packets between sessions and a Processor.
type Server struct {
	opts Options
	log  *util.Logger
	loop *reactor.Loop
	proc Processor

	// loop-owned
	sessions map[uint64]*session.Session
	nextID   uint64

	// accepted connections whose open callback has not run yet
	mu      sync.Mutex
	pending map[net.Conn]struct{}
}

// New returns a Server that is not yet serving.
func New(opts Options) *Server {
	if opts.OutputQueue <= 0 {
		opts.OutputQueue = config.DefaultOutputQueue
	}
	if opts.EventQueue <= 0 {
		opts.EventQueue = config.DefaultEventQueue
	}
	if opts.Logger == nil {
		opts.Logger = util.NewLogger(int(util.LogNormal))
	}
	return &Server{
		opts:     opts,
		log:      opts.Logger,
		loop:     reactor.New(opts.EventQueue),
		sessions: make(map[uint64]*session.Session),
		pending:  make(map[net.Conn]struct{}),
	}
}

// Run restricts the process, then accepts on every listener and runs
// the event loop until ctx is cancelled.  If Restrict fails the
// listeners are closed and proc never sees a session.
func (s *Server) Run(ctx context.Context, proc Processor, listeners []*listener.Listener) error {
	if proc == nil {
		return errors.New("server: nil processor")
	}
	if s.opts.Restrict != nil {
		if err := s.opts.Restrict(); err != nil {
			for _, l := range listeners {
				l.Close()
			}
			return err
		}
	}
	s.proc = proc

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for _, l := range listeners {
		wg.Add(1)
		go func(l *listener.Listener) {
			defer wg.Done()
			if err := l.Serve(ctx, s.handoff); err != nil {
				s.log.Error("%s: %v", l.Addr(), err)
			}
		}(l)
	}

	err := s.loop.Run(ctx)
	cancel()
	wg.Wait()

	// The loop has stopped, so nothing else touches the table.
	for _, sess := range s.sessions {
		sess.Endpoint.Close()
	}
	// Connections queued for open when the loop stopped.
	s.mu.Lock()
	for conn := range s.pending {
		conn.Close()
		delete(s.pending, conn)
	}
	s.mu.Unlock()
	return err
}

// Post runs fn on the event loop.
func (s *Server) Post(fn func()) bool { return s.loop.Post(fn) }

// Lookup returns the live session with the given id.  Loop only.
func (s *Server) Lookup(id uint64) (*session.Session, bool) {
	sess, ok := s.sessions[id]
	if !ok || sess.State() != session.Active {
		return nil, false
	}
	return sess, true
}

// Len returns the number of sessions not yet released.  Loop only.
func (s *Server) Len() int { return len(s.sessions) }

// handoff runs on an accept goroutine.
func (s *Server) handoff(conn net.Conn) {
	s.mu.Lock()
	s.pending[conn] = struct{}{}
	s.mu.Unlock()
	if !s.loop.Post(func() { s.open(conn) }) {
		s.unpend(conn)
		conn.Close()
	}
}

func (s *Server) unpend(conn net.Conn) {
	s.mu.Lock()
	delete(s.pending, conn)
	s.mu.Unlock()
}

func (s *Server) open(conn net.Conn) {
	s.unpend(conn)
	listener.Tune(conn, s.log)

	s.nextID++
	sess := session.New(s.nextID, nil, conn.RemoteAddr())
	ep, err := session.NewEndpoint(conn, s.loop,
		func() { s.readable(sess) },
		func(ev session.Event) { s.Drop(sess, ev.Reason()) },
		session.EndpointOptions{
			IdleTimeout: s.opts.IdleTimeout,
			OutputQueue: s.opts.OutputQueue,
			Metrics:     s.opts.Metrics,
		})
	if err != nil {
		s.log.Error("%s: %v", sess, err)
		conn.Close()
		return
	}
	sess.Endpoint = ep
	if err := ep.Enable(); err != nil {
		s.log.Error("%s: enable: %v", sess, err)
		ep.Close()
		return
	}

	s.sessions[sess.ID] = sess
	s.opts.Metrics.ConnectionOpened()
	s.log.Debug("%s: connected", sess)

	s.resolve(sess)
	s.proc.Start(sess)
}
