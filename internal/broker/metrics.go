package broker

import (
	"sync/atomic"
	"time"
)

// Metrics tracks process-wide counters backing the /health endpoint.
// Grounded on tarun-kavipurapu/p2p-transfer's pkg/monitor/metrics.go
// (atomic counters read by a reporting goroutine), adapted here to feed
// an HTTP handler instead of a periodic log line.
type Metrics struct {
	rooms       int64
	connections int64
	startedAt   time.Time
}

func newMetrics() *Metrics {
	return &Metrics{startedAt: time.Now()}
}

func (m *Metrics) roomCreated()          { atomic.AddInt64(&m.rooms, 1) }
func (m *Metrics) roomRemoved()          { atomic.AddInt64(&m.rooms, -1) }
func (m *Metrics) connectionOpened()     { atomic.AddInt64(&m.connections, 1) }
func (m *Metrics) connectionClosed()     { atomic.AddInt64(&m.connections, -1) }

// Rooms is the current room count.
func (m *Metrics) Rooms() int64 { return atomic.LoadInt64(&m.rooms) }

// Connections is the current live-session count.
func (m *Metrics) Connections() int64 { return atomic.LoadInt64(&m.connections) }

// Uptime is how long the hub has been running.
func (m *Metrics) Uptime() time.Duration { return time.Since(m.startedAt) }
