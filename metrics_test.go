package aioengine

import (
	"testing"
	"time"
)

func TestRecordLatencyBuckets(t *testing.T) {
	m := NewMetrics()
	m.recordLatency(500)            // under 1us
	m.recordLatency(50_000)         // 10us..100us
	m.recordLatency(2_000_000_000)  // 1s..10s

	if got := m.LatencySamples.Load(); got != 3 {
		t.Fatalf("samples %d, want 3", got)
	}
	// Buckets are cumulative upper bounds.
	wantCounts := []uint64{1, 1, 2, 2, 2, 2, 2, 3}
	for i, want := range wantCounts {
		if got := m.Latency[i].Load(); got != want {
			t.Errorf("bucket %d: %d, want %d", i, got, want)
		}
	}
}

func TestAvgLatency(t *testing.T) {
	m := NewMetrics()
	if m.AvgLatency() != 0 {
		t.Error("unsampled average should be zero")
	}
	m.recordLatency(1000)
	m.recordLatency(3000)
	if got := m.AvgLatency(); got != 2*time.Microsecond {
		t.Errorf("avg %v, want 2us", got)
	}
}

func TestSnapshotCopiesCounters(t *testing.T) {
	m := NewMetrics()
	m.Submitted.Add(7)
	m.Completions.Add(5)
	m.Backpressure.Add(1)

	snap := m.Snapshot()
	if snap.Submitted != 7 || snap.Completions != 5 || snap.Backpressure != 1 {
		t.Errorf("snapshot %+v", snap)
	}

	m.Submitted.Add(1)
	if snap.Submitted != 7 {
		t.Error("snapshot must not track later updates")
	}
	if snap.Uptime < 0 {
		t.Errorf("uptime %v", snap.Uptime)
	}
}
