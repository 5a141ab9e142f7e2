// Package metrics provides lightweight, lock-free counters for
// tracking runtime statistics of a fileshell server.
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

// Collector tracks runtime metrics for a running server.
// A nil Collector is safe to use — all methods become no-ops.
type Collector struct {
	sessionsActive atomic.Int64
	sessionsTotal  atomic.Int64
	sessionsSwept  atomic.Int64
	bytesIn        atomic.Int64
	bytesOut       atomic.Int64
	transfers      atomic.Int64
	transfersDone  atomic.Int64
	retransmits    atomic.Int64
	rejections     atomic.Int64
	errorsTotal    atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Session metrics ──────────────────────────────────────────────────

// SessionOpened increments both the active and total counters.
func (c *Collector) SessionOpened() {
	if c == nil {
		return
	}
	c.sessionsActive.Add(1)
	c.sessionsTotal.Add(1)
}

// SessionClosed decrements the active session counter.
func (c *Collector) SessionClosed() {
	if c == nil {
		return
	}
	c.sessionsActive.Add(-1)
}

// SessionSwept records an idle session evicted by the background sweep.
func (c *Collector) SessionSwept() {
	if c == nil {
		return
	}
	c.sessionsSwept.Add(1)
	c.sessionsActive.Add(-1)
}

// ActiveSessions returns the current number of live sessions.
func (c *Collector) ActiveSessions() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsActive.Load()
}

// ── I/O metrics ──────────────────────────────────────────────────────

// BytesReceived records n payload bytes read from the network.
func (c *Collector) BytesReceived(n int64) {
	if c == nil {
		return
	}
	c.bytesIn.Add(n)
}

// BytesSent records n payload bytes written to the network.
func (c *Collector) BytesSent(n int64) {
	if c == nil {
		return
	}
	c.bytesOut.Add(n)
}

// ── Transfer metrics ─────────────────────────────────────────────────

// TransferStarted records an upload or download beginning.
func (c *Collector) TransferStarted() {
	if c == nil {
		return
	}
	c.transfers.Add(1)
}

// TransferCompleted records a transfer finishing cleanly.
func (c *Collector) TransferCompleted() {
	if c == nil {
		return
	}
	c.transfersDone.Add(1)
}

// ChunkRetransmitted records one retransmission after an ack timeout.
func (c *Collector) ChunkRetransmitted() {
	if c == nil {
		return
	}
	c.retransmits.Add(1)
}

// Retransmissions returns the lifetime retransmission count.
func (c *Collector) Retransmissions() int64 {
	if c == nil {
		return 0
	}
	return c.retransmits.Load()
}

// ── Arbitration metrics ──────────────────────────────────────────────

// ClientRejected records a busy rejection on the stream transport.
func (c *Collector) ClientRejected() {
	if c == nil {
		return
	}
	c.rejections.Add(1)
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
	SessionsActive     int64  `json:"sessions_active"`
	SessionsTotal      int64  `json:"sessions_total"`
	SessionsSwept      int64  `json:"sessions_swept"`
	BytesIn            int64  `json:"bytes_in"`
	BytesOut           int64  `json:"bytes_out"`
	TransfersStarted   int64  `json:"transfers_started"`
	TransfersCompleted int64  `json:"transfers_completed"`
	Retransmissions    int64  `json:"retransmissions"`
	ClientsRejected    int64  `json:"clients_rejected"`
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
		SessionsActive:     c.sessionsActive.Load(),
		SessionsTotal:      c.sessionsTotal.Load(),
		SessionsSwept:      c.sessionsSwept.Load(),
		BytesIn:            c.bytesIn.Load(),
		BytesOut:           c.bytesOut.Load(),
		TransfersStarted:   c.transfers.Load(),
		TransfersCompleted: c.transfersDone.Load(),
		Retransmissions:    c.retransmits.Load(),
		ClientsRejected:    c.rejections.Load(),
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
