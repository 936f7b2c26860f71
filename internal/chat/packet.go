package chat

import "strings"

// Packet types.
const (
	pktLogin    = 'a' // client: login; server: login accepted
	pktOpen     = 'b'
	pktPersonal = 'c'
	pktStatus   = 'd'
	pktError    = 'e'
	pktCommand  = 'h'
	pktOutput   = 'i'
	pktProtocol = 'j'
	pktPing     = 'l'
	pktPong     = 'm'
	pktNoop     = 'n'
)

// fieldSep separates the fields of a packet body.
const fieldSep = "\001"

// protocolLevel is announced in the protocol packet.
const protocolLevel = "1"

// maxPacket is the largest packet a one-byte length can announce.
const maxPacket = 255

// build returns a packet of type typ with the fields joined by
// fieldSep, cut to maxPacket bytes.
func build(typ byte, fields ...string) []byte {
	body := strings.Join(fields, fieldSep)
	if len(body) > maxPacket-1 {
		body = body[:maxPacket-1]
	}
	p := make([]byte, 0, 1+len(body))
	p = append(p, typ)
	return append(p, body...)
}

// fields splits a packet body.  Trailing NULs sent by C clients are
// dropped first.
func fields(body []byte) []string {
	s := strings.TrimRight(string(body), "\x00")
	if s == "" {
		return nil
	}
	return strings.Split(s, fieldSep)
}

func field(f []string, i int) string {
	if i < len(f) {
		return f[i]
	}
	return ""
}

// validName reports whether s is a usable nick or group name of at
// most max-1 bytes of printable, non-blank ASCII.
func validName(s string, max int) bool {
	if s == "" || len(s) > max-1 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] <= ' ' || s[i] > '~' {
			return false
		}
	}
	return true
}
