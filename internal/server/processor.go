package server

import (
	"context"

	"icbd/internal/session"
)

// Processor implements the chat protocol on top of framed packets.
// Every method is called on the event loop.
type Processor interface {
	// Start is called once a session is connected and readable.
	Start(s *session.Session)
	// Input handles one complete packet.  pkt aliases the session's
	// receive buffer and is only valid during the call.  Input returns
	// true if s was dropped while handling it.
	Input(s *session.Session, pkt []byte) (dropped bool)
	// Remove is called exactly once when s is dropped, before its
	// connection is closed.  reason is empty for a plain disconnect.
	// Remove must not drop s again.
	Remove(s *session.Session, reason string)
}

// Reverser resolves a numeric peer address to a host name.
type Reverser interface {
	Reverse(ctx context.Context, ip string) (string, bool)
}
