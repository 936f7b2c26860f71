package logsink

import (
	"io"
	"net"
	"sync"
	"time"

	"icbd/config"
	"icbd/internal/metrics"
	"icbd/util"
)

// Client queues records for the logger process.  Log never blocks:
// when the queue is full the new record is dropped and counted.  A nil
// *Client discards everything.
type Client struct {
	w   io.Writer
	log *util.Logger
	m   *metrics.Collector

	mu     sync.Mutex
	queue  chan net.Buffers
	closed bool
	done   chan struct{}
}

// NewClient starts a writer goroutine that sends queued records to w,
// one write per record.  w is normally the parent's end of the socket
// pair.
func NewClient(w io.Writer, queue int, log *util.Logger, m *metrics.Collector) *Client {
	if queue <= 0 {
		queue = config.DefaultLogQueue
	}
	c := &Client{
		w:     w,
		log:   log,
		m:     m,
		queue: make(chan net.Buffers, queue),
		done:  make(chan struct{}),
	}
	go c.run()
	return c
}

// Log records msg said by nick in group at ts.
func (c *Client) Log(ts time.Time, group, nick, msg string) {
	if c == nil {
		return
	}
	h := Header{Time: ts, Group: group, Nick: nick, Length: uint64(len(msg))}
	rec := net.Buffers{h.Encode(), []byte(msg)}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.queue <- rec:
	default:
		c.m.LogRecordDropped()
	}
}

// Close flushes queued records and stops the writer.  It does not
// close w.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.queue)
	}
	c.mu.Unlock()
	<-c.done
	return nil
}

func (c *Client) run() {
	defer close(c.done)
	for rec := range c.queue {
		// WriteTo uses writev on sockets, so each record is a single
		// datagram.
		if _, err := rec.WriteTo(c.w); err != nil {
			c.log.Error("logger write: %v", err)
			c.m.RecordError("logger write: " + err.Error())
		}
	}
}
