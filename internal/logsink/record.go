// Package logsink carries chat log records from the connection-handling
// process to an unprivileged logger process over a SOCK_SEQPACKET
// socket pair, one record per datagram.
//
// A record is a fixed 80-byte big-endian header followed by the
// message text:
//
//	int64    unix timestamp
//	[32]byte group, NUL padded
//	[32]byte nick, NUL padded
//	uint64   text length in bytes
package logsink

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"icbd/config"
	"icbd/internal/errors"
)

const (
	// HeaderSize is the encoded size of a Header.
	HeaderSize = 8 + config.MaxGroupLen + config.MaxNickLen + 8

	// ScratchSize is the most text the reader accepts per record.
	ScratchSize = 512
)

// Header describes one log record.
type Header struct {
	Time   time.Time
	Group  string
	Nick   string
	Length uint64
}

// Encode returns the wire form of h.  Group and nick are cut to leave
// room for the terminating NUL.
func (h Header) Encode() []byte {
	b := make([]byte, HeaderSize)
	binary.BigEndian.PutUint64(b[0:8], uint64(h.Time.Unix()))
	putName(b[8:8+config.MaxGroupLen], h.Group)
	putName(b[8+config.MaxGroupLen:HeaderSize-8], h.Nick)
	binary.BigEndian.PutUint64(b[HeaderSize-8:], h.Length)
	return b
}

func putName(dst []byte, s string) {
	copy(dst[:len(dst)-1], s)
}

// DecodeHeader parses the first HeaderSize bytes of b.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d byte header", errors.ErrShortRecord, len(b))
	}
	return Header{
		Time:   time.Unix(int64(binary.BigEndian.Uint64(b[0:8])), 0),
		Group:  getName(b[8 : 8+config.MaxGroupLen]),
		Nick:   getName(b[8+config.MaxGroupLen : HeaderSize-8]),
		Length: binary.BigEndian.Uint64(b[HeaderSize-8 : HeaderSize]),
	}, nil
}

func getName(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
