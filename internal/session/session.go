// Package session represents the server-side state of one connected
// client for its whole connected lifetime: the buffered I/O endpoint,
// the packet framing state and the lifecycle state machine that
// decides when the session may be released.
//
// A Session is owned by the event loop.  None of its methods lock;
// callers must only use them from loop callbacks.
package session

import (
	"bytes"
	"net"

	"icbd/util"
)

// MsgSize is the capacity of the receive buffer: the largest packet
// (255 bytes) plus a terminating NUL.
const MsgSize = 256

// Endpoint is the buffered connection a session reads from and writes
// to.  BufferedEndpoint is the socket-backed implementation.
type Endpoint interface {
	// Input is the buffer of received, not yet framed bytes.
	Input() *bytes.Buffer
	// Write queues p for transmission.
	Write(p []byte) error
	// Close closes the underlying descriptor.  It is idempotent.
	Close() error
}

// Session encapsulates the runtime state of a single client.
type Session struct {
	ID       uint64
	Endpoint Endpoint

	Host     string // numeric peer address
	Port     int
	Hostname string // reverse-resolved name, empty until resolved

	// Handle is opaque per-session state owned by the protocol
	// processor.
	Handle any

	// framing
	length int // expected packet length, 0 when awaiting a length byte
	rlen   int // bytes of the packet received so far
	buffer [MsgSize]byte

	// lifecycle
	state     State
	resolving bool
}

// New creates an active Session bound to the given endpoint.  The peer
// host and port are taken from peer.
func New(id uint64, ep Endpoint, peer net.Addr) *Session {
	host, port := util.PeerInfo(peer)
	return &Session{
		ID:       id,
		Endpoint: ep,
		Host:     host,
		Port:     port,
	}
}

// String returns host:port, the prefix used when logging about s.
func (s *Session) String() string {
	return util.FormatAddr(s.Host, s.Port)
}

// Name returns the resolved hostname, falling back to the numeric
// address.
func (s *Session) Name() string {
	if s.Hostname != "" {
		return s.Hostname
	}
	return s.Host
}
