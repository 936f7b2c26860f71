package server

import (
	"fmt"

	"icbd/internal/errors"
	"icbd/internal/session"
)

// MaxPacket is the largest payload a one-byte length prefix can carry.
const MaxPacket = 255

// readable frames every complete packet buffered for sess and hands it
// to the Processor.  It runs on the loop after each read.
func (s *Server) readable(sess *session.Session) {
	in := sess.Endpoint.Input()
	for in.Len() > 0 {
		pkt, err := sess.Frame(in)
		if err != nil {
			s.opts.Metrics.ProtocolViolation()
			s.Drop(sess, "invalid packet")
			return
		}
		if pkt == nil {
			return
		}
		s.opts.Metrics.PacketFramed()
		if s.proc.Input(sess, pkt) || sess.State() != session.Active {
			return
		}
		sess.ResetFrame()
	}
}

// Send frames pkt with its length byte and queues it for sess.  A
// client that cannot keep up with its output is dropped.
func (s *Server) Send(sess *session.Session, pkt []byte) error {
	if len(pkt) == 0 || len(pkt) > MaxPacket {
		return fmt.Errorf("send %d bytes: %w", len(pkt), errors.ErrInvalidPacket)
	}
	if sess.State() != session.Active {
		return errors.ErrSessionClosed
	}
	buf := make([]byte, 1+len(pkt))
	buf[0] = byte(len(pkt))
	copy(buf[1:], pkt)

	err := sess.Endpoint.Write(buf)
	if errors.Is(err, errors.ErrOutputFull) {
		// Send may be running inside the Processor on behalf of
		// another session, so the drop is deferred to a fresh callback.
		s.loop.AfterFunc(0, func() { s.Drop(sess, "output overflow") })
	}
	return err
}
