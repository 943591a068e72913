package ring

import "testing"

func TestPushAdvanceWraps(t *testing.T) {
	r := New(4)

	for i := 0; i < 4; i++ {
		slot, ok := r.Push()
		if !ok {
			t.Fatalf("Push %d failed on empty ring", i)
		}
		if slot != uint32(i) {
			t.Errorf("Push %d: slot = %d, want %d", i, slot, i)
		}
	}

	if !r.Full() {
		t.Error("ring should be full after 4 pushes")
	}
	if _, ok := r.Push(); ok {
		t.Error("Push on full ring should fail")
	}

	r.Advance(4)
	if !r.Empty() {
		t.Error("ring should be empty after advancing all slots")
	}
	if r.Tail() != 0 {
		t.Errorf("tail = %d, want 0 after full wrap", r.Tail())
	}
}

func TestQueuedNeverExceedsEntries(t *testing.T) {
	for _, entries := range []uint32{1, 2, 3, 4, 7, 8, 13, 16} {
		r := New(entries)
		pushed := uint32(0)
		for i := uint32(0); i < entries*3; i++ {
			if _, ok := r.Push(); ok {
				pushed++
			}
			if r.Queued() > r.Entries() {
				t.Fatalf("entries=%d: queued %d exceeds capacity", entries, r.Queued())
			}
		}
		if pushed != entries {
			t.Errorf("entries=%d: accepted %d pushes, want %d", entries, pushed, entries)
		}
	}
}

// Mask and modulus arithmetic must wrap identically; the mask form is only an
// optimization available at power-of-two capacities.
func TestIncrementModesAgree(t *testing.T) {
	for _, entries := range []uint32{1, 2, 4, 8, 16, 64, 1024} {
		r := New(entries)
		if !r.pow2 {
			t.Fatalf("entries=%d should select mask arithmetic", entries)
		}
		for v := uint32(0); v < entries; v++ {
			for _, add := range []uint32{0, 1, 2, entries - 1, entries} {
				masked := (v + add) & r.mask
				mod := (v + add) % entries
				if masked != mod {
					t.Fatalf("entries=%d v=%d add=%d: mask %d != mod %d",
						entries, v, add, masked, mod)
				}
			}
		}
	}
}

func TestNonPow2Wrap(t *testing.T) {
	r := New(3)
	if r.pow2 {
		t.Fatal("entries=3 should not select mask arithmetic")
	}

	// Fill, drain two, refill; head and tail must wrap mod 3.
	r.Push()
	r.Push()
	r.Push()
	r.Advance(2)
	if r.Tail() != 2 {
		t.Errorf("tail = %d, want 2", r.Tail())
	}
	slot, ok := r.Push()
	if !ok || slot != 0 {
		t.Errorf("Push = (%d, %v), want slot 0 after wrap", slot, ok)
	}
	slot, ok = r.Push()
	if !ok || slot != 1 {
		t.Errorf("Push = (%d, %v), want slot 1", slot, ok)
	}
	if !r.Full() {
		t.Error("ring should be full")
	}
}

func TestRunBoundedByWrap(t *testing.T) {
	r := New(4)

	// Occupy slots 2,3,0: the run from tail=2 must stop at the wrap.
	r.Push()
	r.Push()
	r.Advance(2)
	r.Push() // slot 2
	r.Push() // slot 3
	r.Push() // slot 0

	tail, n := r.Run()
	if tail != 2 || n != 2 {
		t.Errorf("Run = (%d, %d), want (2, 2)", tail, n)
	}
	r.Advance(2)
	tail, n = r.Run()
	if tail != 0 || n != 1 {
		t.Errorf("Run after advance = (%d, %d), want (0, 1)", tail, n)
	}
}

func TestAdvancePastQueuedPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Advance past queued should panic")
		}
	}()
	r := New(2)
	r.Push()
	r.Advance(2)
}
