package aioengine

import (
	"sync/atomic"
	"time"
)

// LatencyBuckets defines the completion latency histogram bucket upper bounds
// in nanoseconds, 1us through 10s with logarithmic spacing.
var LatencyBuckets = []uint64{
	1_000,
	10_000,
	100_000,
	1_000_000,
	10_000_000,
	100_000_000,
	1_000_000_000,
	10_000_000_000,
}

const numLatencyBuckets = 8

// Metrics tracks submission and completion statistics for one engine
// instance. All counters are atomics so a monitoring goroutine can read them
// while the engine runs.
type Metrics struct {
	// Submission path
	SubmitCalls    atomic.Uint64 // kernel submit invocations
	Submitted      atomic.Uint64 // requests accepted by the kernel
	PartialSubmits atomic.Uint64 // submits that accepted only part of a batch
	SubmitRetries  atomic.Uint64 // interrupted or zero-accepted attempts
	Backpressure   atomic.Uint64 // transient queue-full/no-memory returns absorbed
	Stalls         atomic.Uint64 // zero-progress stalls escalated to fatal

	// Reap path
	SyscallReaps atomic.Uint64 // blocking kernel waits that returned events
	UserReaps    atomic.Uint64 // direct ring reads that returned events
	Completions  atomic.Uint64 // events adapted back to requests

	// Outcomes
	ShortTransfers atomic.Uint64 // completions with a residual
	RequestErrors  atomic.Uint64 // completions carrying an error code
	Syncs          atomic.Uint64 // immediate sync operations
	Trims          atomic.Uint64 // immediate trim operations
	Cancels        atomic.Uint64 // cancellation attempts

	// Completion latency, recorded only when issue times are stamped.
	TotalLatencyNs atomic.Uint64
	LatencySamples atomic.Uint64
	Latency        [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
}

// NewMetrics returns a zeroed metrics instance stamped with the current time.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

func (m *Metrics) recordLatency(ns uint64) {
	m.TotalLatencyNs.Add(ns)
	m.LatencySamples.Add(1)
	for i, bound := range LatencyBuckets {
		if ns <= bound {
			m.Latency[i].Add(1)
		}
	}
}

// AvgLatency returns the mean completion latency, zero when unsampled.
func (m *Metrics) AvgLatency() time.Duration {
	n := m.LatencySamples.Load()
	if n == 0 {
		return 0
	}
	return time.Duration(m.TotalLatencyNs.Load() / n)
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	SubmitCalls    uint64
	Submitted      uint64
	PartialSubmits uint64
	SubmitRetries  uint64
	Backpressure   uint64
	Stalls         uint64
	SyscallReaps   uint64
	UserReaps      uint64
	Completions    uint64
	ShortTransfers uint64
	RequestErrors  uint64
	Syncs          uint64
	Trims          uint64
	Cancels        uint64
	AvgLatency     time.Duration
	Uptime         time.Duration
}

// Snapshot copies the counters.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		SubmitCalls:    m.SubmitCalls.Load(),
		Submitted:      m.Submitted.Load(),
		PartialSubmits: m.PartialSubmits.Load(),
		SubmitRetries:  m.SubmitRetries.Load(),
		Backpressure:   m.Backpressure.Load(),
		Stalls:         m.Stalls.Load(),
		SyscallReaps:   m.SyscallReaps.Load(),
		UserReaps:      m.UserReaps.Load(),
		Completions:    m.Completions.Load(),
		ShortTransfers: m.ShortTransfers.Load(),
		RequestErrors:  m.RequestErrors.Load(),
		Syncs:          m.Syncs.Load(),
		Trims:          m.Trims.Load(),
		Cancels:        m.Cancels.Load(),
		AvgLatency:     m.AvgLatency(),
		Uptime:         time.Since(time.Unix(0, m.StartTime.Load())),
	}
}
