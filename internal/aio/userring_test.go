package aio

import "testing"

func TestOpenUserRingChecksMagic(t *testing.T) {
	f := NewFakeRing(8)
	if _, ok := OpenUserRing(f.Context()); !ok {
		t.Fatal("valid ring rejected")
	}

	f.InvalidateMagic()
	if _, ok := OpenUserRing(f.Context()); ok {
		t.Fatal("ring with broken magic accepted")
	}

	if _, ok := OpenUserRing(0); ok {
		t.Fatal("zero context accepted")
	}
}

func TestReapDrainsInOrder(t *testing.T) {
	f := NewFakeRing(4)
	r, ok := OpenUserRing(f.Context())
	if !ok {
		t.Fatal("OpenUserRing failed")
	}

	for i := uint64(0); i < 3; i++ {
		if !f.Produce(Event{Data: i, Result: int64(i * 100)}) {
			t.Fatalf("Produce %d failed", i)
		}
	}

	events := make([]Event, 8)
	n := r.Reap(events)
	if n != 3 {
		t.Fatalf("Reap = %d, want 3", n)
	}
	for i := 0; i < 3; i++ {
		if events[i].Data != uint64(i) || events[i].Result != int64(i*100) {
			t.Errorf("event %d = %+v", i, events[i])
		}
	}

	if n := r.Reap(events); n != 0 {
		t.Errorf("Reap on drained ring = %d, want 0", n)
	}
}

// The ring has nr slots but holds nr-1 events; producing and reaping past the
// physical end must wrap cleanly.
func TestReapWrapsAroundRing(t *testing.T) {
	f := NewFakeRing(4)
	r, _ := OpenUserRing(f.Context())
	events := make([]Event, 4)

	seq := uint64(0)
	for round := 0; round < 5; round++ {
		for i := 0; i < 3; i++ {
			if !f.Produce(Event{Data: seq}) {
				t.Fatalf("round %d: Produce failed with %d queued", round, i)
			}
			seq++
		}
		if f.Produce(Event{Data: 999}) {
			t.Fatalf("round %d: Produce should fail on full ring", round)
		}

		n := r.Reap(events)
		if n != 3 {
			t.Fatalf("round %d: Reap = %d, want 3", round, n)
		}
		want := seq - 3
		for i := 0; i < n; i++ {
			if events[i].Data != want+uint64(i) {
				t.Fatalf("round %d: event %d Data = %d, want %d",
					round, i, events[i].Data, want+uint64(i))
			}
		}
	}
}

func TestReapBoundedByCallerBuffer(t *testing.T) {
	f := NewFakeRing(8)
	r, _ := OpenUserRing(f.Context())
	for i := uint64(0); i < 5; i++ {
		f.Produce(Event{Data: i})
	}

	events := make([]Event, 2)
	if n := r.Reap(events); n != 2 {
		t.Fatalf("first Reap = %d, want 2", n)
	}
	if events[0].Data != 0 || events[1].Data != 1 {
		t.Errorf("first batch = %+v", events)
	}
	if n := r.Reap(events); n != 2 {
		t.Fatalf("second Reap = %d, want 2", n)
	}
	if events[0].Data != 2 || events[1].Data != 3 {
		t.Errorf("second batch = %+v", events)
	}
	if n := r.Reap(events); n != 1 {
		t.Fatalf("third Reap = %d, want 1", n)
	}
}
