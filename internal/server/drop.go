package server

import (
	"context"

	"icbd/internal/session"
)

// Drop terminates sess.  It is the only way a session ends and may be
// called any number of times; only the first call has an effect.  The
// connection is closed immediately, but the session is only released
// once no resolution references it.
func (s *Server) Drop(sess *session.Session, reason string) {
	if sess.State() != session.Active {
		return
	}
	s.proc.Remove(sess, reason)
	if reason != "" {
		s.log.Debug("%s: %s", sess, reason)
	}
	sess.ResetFrame()
	sess.Endpoint.Close()

	release, err := sess.RequestClose()
	if err != nil {
		return
	}
	if release {
		s.release(sess)
		return
	}
	s.opts.Metrics.DeferredRelease()
}

func (s *Server) release(sess *session.Session) {
	delete(s.sessions, sess.ID)
	sess.Handle = nil
	s.opts.Metrics.ConnectionClosed()
}

// resolve starts a reverse lookup of the peer.  The result is applied
// on the loop by resolved.
func (s *Server) resolve(sess *session.Session) {
	r := s.opts.Resolver
	if r == nil || !sess.BeginResolve() {
		return
	}
	ip := sess.Host
	go func() {
		name, ok := r.Reverse(context.Background(), ip)
		s.loop.Post(func() { s.resolved(sess, name, ok) })
	}()
}

func (s *Server) resolved(sess *session.Session, name string, ok bool) {
	if sess.ResolveDone() {
		s.release(sess)
		return
	}
	if sess.State() != session.Active || !ok {
		return
	}
	sess.Hostname = name
	s.log.Debug("%s: resolved to %s", sess, name)
}
