// Package metrics provides lightweight, lock-free counters for one
// traffic run.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so workers never need to nil-check.  Counters
// live only in memory and are discarded with the collector.
package metrics

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/dustin/go-humanize"
)

// Collector tracks the statistics of a single traffic run.
type Collector struct {
	tcpAttempts   atomic.Int64
	tcpConnected  atomic.Int64
	tcpFailed     atomic.Int64
	udpDatagrams  atomic.Int64
	udpBytes      atomic.Int64
	udpFailed     atomic.Int64
	setupFailures atomic.Int64
	workersActive atomic.Int64
	workersTotal  atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Worker lifecycle ─────────────────────────────────────────────────

// WorkerStarted increments both the active and total worker counters.
func (c *Collector) WorkerStarted() {
	if c == nil {
		return
	}
	c.workersActive.Add(1)
	c.workersTotal.Add(1)
}

// WorkerExited decrements the active worker counter.
func (c *Collector) WorkerExited() {
	if c == nil {
		return
	}
	c.workersActive.Add(-1)
}

// ActiveWorkers returns the number of workers still inside their loop.
func (c *Collector) ActiveWorkers() int64 {
	if c == nil {
		return 0
	}
	return c.workersActive.Load()
}

// SetupFailed records a worker that could not open its socket.
func (c *Collector) SetupFailed(msg string) {
	if c == nil {
		return
	}
	c.setupFailures.Add(1)
	c.RecordError(msg)
}

// ── TCP ──────────────────────────────────────────────────────────────

// TCPAttempt records the outcome of one connect attempt.
func (c *Collector) TCPAttempt(connected bool) {
	if c == nil {
		return
	}
	c.tcpAttempts.Add(1)
	if connected {
		c.tcpConnected.Add(1)
	} else {
		c.tcpFailed.Add(1)
	}
}

// TCPAttempts returns the total number of connect attempts.
func (c *Collector) TCPAttempts() int64 {
	if c == nil {
		return 0
	}
	return c.tcpAttempts.Load()
}

// ── UDP ──────────────────────────────────────────────────────────────

// DatagramSent records n payload bytes handed to the kernel.
func (c *Collector) DatagramSent(n int) {
	if c == nil {
		return
	}
	c.udpDatagrams.Add(1)
	c.udpBytes.Add(int64(n))
}

// DatagramFailed records a send that returned an error.
func (c *Collector) DatagramFailed() {
	if c == nil {
		return
	}
	c.udpFailed.Add(1)
}

// Datagrams returns the number of datagrams sent.
func (c *Collector) Datagrams() int64 {
	if c == nil {
		return 0
	}
	return c.udpDatagrams.Load()
}

// ── Errors ───────────────────────────────────────────────────────────

// RecordError stores the most recent error message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all counters.
type Snapshot struct {
	Elapsed          string `json:"elapsed"`
	TCPAttempts      int64  `json:"tcp_attempts"`
	TCPConnected     int64  `json:"tcp_connected"`
	TCPFailed        int64  `json:"tcp_failed"`
	UDPDatagrams     int64  `json:"udp_datagrams"`
	UDPBytes         int64  `json:"udp_bytes"`
	UDPFailed        int64  `json:"udp_failed"`
	SetupFailures    int64  `json:"setup_failures"`
	WorkersActive    int64  `json:"workers_active"`
	WorkersTotal     int64  `json:"workers_total"`
	LastError        string `json:"last_error,omitempty"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Elapsed:       time.Since(c.startTime).Truncate(time.Millisecond).String(),
		TCPAttempts:   c.tcpAttempts.Load(),
		TCPConnected:  c.tcpConnected.Load(),
		TCPFailed:     c.tcpFailed.Load(),
		UDPDatagrams:  c.udpDatagrams.Load(),
		UDPBytes:      c.udpBytes.Load(),
		UDPFailed:     c.udpFailed.Load(),
		SetupFailures: c.setupFailures.Load(),
		WorkersActive: c.workersActive.Load(),
		WorkersTotal:  c.workersTotal.Load(),
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// Summary renders the snapshot as a single human-readable line.
func (s Snapshot) Summary() string {
	return fmt.Sprintf(
		"tcp: %s attempts (%s connected, %s failed); udp: %s datagrams, %s (%s failed); setup failures: %d",
		humanize.Comma(s.TCPAttempts), humanize.Comma(s.TCPConnected), humanize.Comma(s.TCPFailed),
		humanize.Comma(s.UDPDatagrams), humanize.Bytes(uint64(s.UDPBytes)), humanize.Comma(s.UDPFailed),
		s.SetupFailures)
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	data, err := sonic.ConfigStd.MarshalIndent(c.Snapshot(), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
