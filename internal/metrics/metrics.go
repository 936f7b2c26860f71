// Package metrics provides lightweight, lock-free counters and gauges
// for tracking runtime statistics of the icbd daemon.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for the daemon.
// A nil Collector is safe to use; all methods become no-ops.
type Collector struct {
	connectionsActive  atomic.Int64
	connectionsTotal   atomic.Int64
	bytesIn            atomic.Int64
	bytesOut           atomic.Int64
	packetsTotal       atomic.Int64
	protocolViolations atomic.Int64
	acceptPauses       atomic.Int64
	deferredReleases   atomic.Int64
	logDropped         atomic.Int64
	errorsTotal        atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Connection metrics ───────────────────────────────────────────────

// ConnectionOpened increments both the active and total counters.
func (c *Collector) ConnectionOpened() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(1)
	c.connectionsTotal.Add(1)
}

// ConnectionClosed decrements the active connection counter.  It is
// called when a session is released, which may be later than the
// socket close.
func (c *Collector) ConnectionClosed() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(-1)
}

// ActiveConnections returns the number of sessions not yet released.
func (c *Collector) ActiveConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsActive.Load()
}

// TotalConnections returns the lifetime connection count.
func (c *Collector) TotalConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsTotal.Load()
}

// ── I/O metrics ──────────────────────────────────────────────────────

// BytesReceived records n bytes read from the network.
func (c *Collector) BytesReceived(n int64) {
	if c == nil {
		return
	}
	c.bytesIn.Add(n)
}

// BytesSent records n bytes written to the network.
func (c *Collector) BytesSent(n int64) {
	if c == nil {
		return
	}
	c.bytesOut.Add(n)
}

// TotalBytesIn returns total bytes received.
func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return c.bytesIn.Load()
}

// TotalBytesOut returns total bytes sent.
func (c *Collector) TotalBytesOut() int64 {
	if c == nil {
		return 0
	}
	return c.bytesOut.Load()
}

// ── Protocol metrics ─────────────────────────────────────────────────

// PacketFramed records one fully reassembled packet.
func (c *Collector) PacketFramed() {
	if c == nil {
		return
	}
	c.packetsTotal.Add(1)
}

// PacketsFramed returns the number of packets delivered.
func (c *Collector) PacketsFramed() int64 {
	if c == nil {
		return 0
	}
	return c.packetsTotal.Load()
}

// ProtocolViolation records a session dropped for bad framing.
func (c *Collector) ProtocolViolation() {
	if c == nil {
		return
	}
	c.protocolViolations.Add(1)
}

// ProtocolViolations returns the number of framing violations.
func (c *Collector) ProtocolViolations() int64 {
	if c == nil {
		return 0
	}
	return c.protocolViolations.Load()
}

// ── Lifecycle metrics ────────────────────────────────────────────────

// AcceptPaused records a listener pause on descriptor exhaustion.
func (c *Collector) AcceptPaused() {
	if c == nil {
		return
	}
	c.acceptPauses.Add(1)
}

// AcceptPauses returns the number of listener pauses.
func (c *Collector) AcceptPauses() int64 {
	if c == nil {
		return 0
	}
	return c.acceptPauses.Load()
}

// DeferredRelease records a session whose release waited for a
// pending name resolution.
func (c *Collector) DeferredRelease() {
	if c == nil {
		return
	}
	c.deferredReleases.Add(1)
}

// DeferredReleases returns the number of deferred releases.
func (c *Collector) DeferredReleases() int64 {
	if c == nil {
		return 0
	}
	return c.deferredReleases.Load()
}

// ── Chat log metrics ─────────────────────────────────────────────────

// LogRecordDropped records a chat-log record lost to a full queue.
func (c *Collector) LogRecordDropped() {
	if c == nil {
		return
	}
	c.logDropped.Add(1)
}

// LogRecordsDropped returns the number of dropped chat-log records.
func (c *Collector) LogRecordsDropped() int64 {
	if c == nil {
		return 0
	}
	return c.logDropped.Load()
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime             string `json:"uptime"`
	ConnectionsActive  int64  `json:"connections_active"`
	ConnectionsTotal   int64  `json:"connections_total"`
	BytesIn            int64  `json:"bytes_in"`
	BytesOut           int64  `json:"bytes_out"`
	PacketsTotal       int64  `json:"packets_total"`
	ProtocolViolations int64  `json:"protocol_violations"`
	AcceptPauses       int64  `json:"accept_pauses"`
	DeferredReleases   int64  `json:"deferred_releases"`
	LogRecordsDropped  int64  `json:"log_records_dropped"`
	ErrorsTotal        int64  `json:"errors_total"`
	LastError          string `json:"last_error,omitempty"`
	LastErrorMessage   string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:             time.Since(c.startTime).Truncate(time.Second).String(),
		ConnectionsActive:  c.connectionsActive.Load(),
		ConnectionsTotal:   c.connectionsTotal.Load(),
		BytesIn:            c.bytesIn.Load(),
		BytesOut:           c.bytesOut.Load(),
		PacketsTotal:       c.packetsTotal.Load(),
		ProtocolViolations: c.protocolViolations.Load(),
		AcceptPauses:       c.acceptPauses.Load(),
		DeferredReleases:   c.deferredReleases.Load(),
		LogRecordsDropped:  c.logDropped.Load(),
		ErrorsTotal:        c.errorsTotal.Load(),
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
