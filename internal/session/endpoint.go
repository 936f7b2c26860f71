package session

import (
	"bytes"
	"errors"
	"io"
	"net"
	"time"

	icberrors "icbd/internal/errors"
	"icbd/internal/metrics"
	"icbd/internal/reactor"
	"icbd/util"
)

// Event describes why an endpoint stopped delivering data.
type Event uint8

const (
	EventRead    Event = 1 << iota // the condition happened while reading
	EventWrite                     // the condition happened while writing
	EventEOF                       // the peer closed the connection
	EventError                     // an I/O error occurred
	EventTimeout                   // the idle timeout expired
)

// Reason returns the drop reason for an endpoint event; the empty
// string for a plain EOF.
func (ev Event) Reason() string {
	switch {
	case ev&EventTimeout != 0:
		return "timeout"
	case ev&EventEOF != 0:
		return ""
	case ev&EventWrite != 0:
		return "write error"
	default:
		return "read error"
	}
}

// EndpointOptions tune a BufferedEndpoint.
type EndpointOptions struct {
	// IdleTimeout closes idle connections; zero disables it.
	IdleTimeout time.Duration
	// OutputQueue caps queued outbound packets.
	OutputQueue int
	Metrics     *metrics.Collector
}

// BufferedEndpoint wraps a connection with an input buffer that is
// filled on the event loop, and an output queue drained by a writer
// goroutine.  OnRead runs on the loop after new bytes were appended to
// Input; OnEvent runs on the loop when the connection fails.  Neither
// runs once Close has been called.
type BufferedEndpoint struct {
	conn    net.Conn
	loop    reactor.Poster
	opts    EndpointOptions
	onRead  func()
	onEvent func(Event)

	// loop-owned
	in      bytes.Buffer
	out     chan []byte
	enabled bool
	closed  bool
}

// NewEndpoint wraps conn.  No I/O happens until Enable.
func NewEndpoint(conn net.Conn, loop reactor.Poster, onRead func(), onEvent func(Event), opts EndpointOptions) (*BufferedEndpoint, error) {
	if conn == nil || loop == nil {
		return nil, errors.New("endpoint: nil connection or loop")
	}
	if opts.OutputQueue < 1 {
		opts.OutputQueue = 1
	}
	return &BufferedEndpoint{
		conn:    conn,
		loop:    loop,
		opts:    opts,
		onRead:  onRead,
		onEvent: onEvent,
		out:     make(chan []byte, opts.OutputQueue),
	}, nil
}

// Enable starts read notifications and the writer.
func (e *BufferedEndpoint) Enable() error {
	if e.closed {
		return icberrors.ErrSessionClosed
	}
	if e.enabled {
		return nil
	}
	e.enabled = true
	go e.readLoop()
	go e.writeLoop(e.out)
	return nil
}

// Input returns the buffer of received bytes.
func (e *BufferedEndpoint) Input() *bytes.Buffer { return &e.in }

// Write queues p for the writer goroutine.  The slice must not be
// modified afterwards.
func (e *BufferedEndpoint) Write(p []byte) error {
	if e.closed {
		return icberrors.ErrSessionClosed
	}
	select {
	case e.out <- p:
		return nil
	default:
		return icberrors.ErrOutputFull
	}
}

// Close closes the connection and discards pending output.
func (e *BufferedEndpoint) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	close(e.out)
	return e.conn.Close()
}

// Closed reports whether Close has been called.
func (e *BufferedEndpoint) Closed() bool { return e.closed }

// ── goroutines ───────────────────────────────────────────────────────

func (e *BufferedEndpoint) readLoop() {
	bufp := util.GetBuf()
	defer util.PutBuf(bufp)
	buf := *bufp

	for {
		if e.opts.IdleTimeout > 0 {
			e.conn.SetReadDeadline(time.Now().Add(e.opts.IdleTimeout)) //nolint:errcheck
		}
		n, err := e.conn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if !e.loop.Post(func() { e.deliver(chunk) }) {
				return
			}
		}
		if err != nil {
			ev := EventRead | classify(err)
			e.loop.Post(func() { e.report(ev) })
			return
		}
	}
}

func (e *BufferedEndpoint) writeLoop(out <-chan []byte) {
	for p := range out {
		if e.opts.IdleTimeout > 0 {
			e.conn.SetWriteDeadline(time.Now().Add(e.opts.IdleTimeout)) //nolint:errcheck
		}
		n, err := e.conn.Write(p)
		e.opts.Metrics.BytesSent(int64(n))
		if err != nil {
			ev := EventWrite | classify(err)
			e.loop.Post(func() { e.report(ev) })
			return
		}
	}
}

// ── loop callbacks ───────────────────────────────────────────────────

func (e *BufferedEndpoint) deliver(chunk []byte) {
	if e.closed {
		return
	}
	e.opts.Metrics.BytesReceived(int64(len(chunk)))
	e.in.Write(chunk)
	if e.onRead != nil {
		e.onRead()
	}
}

func (e *BufferedEndpoint) report(ev Event) {
	if e.closed {
		return
	}
	if e.onEvent != nil {
		e.onEvent(ev)
	}
}

func classify(err error) Event {
	switch {
	case errors.Is(err, io.EOF):
		return EventEOF
	case util.IsTimeout(err):
		return EventTimeout
	}
	return EventError
}
