package listener

import (
	"net"
	"time"

	"golang.org/x/sys/unix"

	"icbd/util"
)

// iptosLowDelay is IPTOS_LOWDELAY from <netinet/ip.h>.
const iptosLowDelay = 0x10

// Tune applies the per-connection socket options: no Nagle delay,
// keepalives and, for IPv4 peers, a low-delay TOS.  Failures are
// logged and otherwise ignored.
func Tune(conn net.Conn, log *util.Logger) {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	peer := conn.RemoteAddr()
	if err := tc.SetNoDelay(true); err != nil {
		log.Warn("%s: setsockopt TCP_NODELAY: %v", peer, err)
	}
	if err := tc.SetKeepAlive(true); err != nil {
		log.Warn("%s: setsockopt SO_KEEPALIVE: %v", peer, err)
	} else {
		tc.SetKeepAlivePeriod(2 * time.Minute) //nolint:errcheck
	}

	if ta, ok := peer.(*net.TCPAddr); !ok || ta.IP.To4() == nil {
		return
	}
	raw, err := tc.SyscallConn()
	if err != nil {
		log.Warn("%s: %v", peer, err)
		return
	}
	var serr error
	err = raw.Control(func(fd uintptr) {
		serr = unix.SetsockoptInt(int(fd), unix.IPPROTO_IP, unix.IP_TOS, iptosLowDelay)
	})
	if err == nil {
		err = serr
	}
	if err != nil {
		log.Warn("%s: setsockopt IP_TOS: %v", peer, err)
	}
}
