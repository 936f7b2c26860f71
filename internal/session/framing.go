package session

import (
	"bytes"

	"icbd/internal/errors"
)

// Frame advances the packet framing state machine with bytes taken
// from in.
//
// In the awaiting-length state it consumes exactly one length byte; a
// zero byte announces an "extended packet", which is not supported,
// and yields errors.ErrInvalidPacket.  It then consumes at most the
// bytes still missing from the current packet.  When the packet is
// complete it is returned, NUL-terminated in the session buffer; the
// slice stays valid until ResetFrame.  A nil packet with a nil error
// means more input is needed.
func (s *Session) Frame(in *bytes.Buffer) ([]byte, error) {
	if s.length == 0 {
		b, err := in.ReadByte()
		if err != nil {
			return nil, nil
		}
		if b == 0 {
			return nil, errors.ErrInvalidPacket
		}
		s.length = int(b)
		s.rlen = 0
	}

	n, _ := in.Read(s.buffer[s.rlen:s.length])
	s.rlen += n
	if s.rlen < s.length {
		return nil, nil
	}

	s.buffer[min(s.rlen, MsgSize-1)] = 0
	return s.buffer[:s.rlen], nil
}

// ResetFrame clears the receive buffer and returns to the
// awaiting-length state.
func (s *Session) ResetFrame() {
	clear(s.buffer[:])
	s.length = 0
	s.rlen = 0
}

// Pending reports the expected length of the packet in progress and
// the bytes received so far.  Both are zero between packets.
func (s *Session) Pending() (length, received int) {
	return s.length, s.rlen
}
