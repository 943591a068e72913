// Package ring implements the fixed-capacity slot bookkeeping used to track
// I/O requests that have been queued but not yet handed to the kernel.
//
// The ring itself performs no syscalls and holds no request data; callers keep
// parallel arrays indexed by the slot numbers it hands out. 'head' advances
// when a request is queued, 'tail' advances when requests are submitted, and
// 'queued' disambiguates full from empty when head == tail.
package ring

// Ring is a fixed-capacity circular index allocator.
type Ring struct {
	entries uint32
	queued  uint32
	head    uint32
	tail    uint32
	// mask is entries-1 when entries is a power of two, otherwise 0 and
	// increments fall back to modulus.
	mask  uint32
	pow2  bool
}

// New returns a ring with the given capacity. Capacity must be at least 1.
func New(entries uint32) *Ring {
	r := &Ring{entries: entries}
	if entries > 0 && entries&(entries-1) == 0 {
		r.pow2 = true
		r.mask = entries - 1
	}
	return r
}

// Entries returns the fixed capacity.
func (r *Ring) Entries() uint32 { return r.entries }

// Queued returns the number of slots occupied but not yet consumed.
func (r *Ring) Queued() uint32 { return r.queued }

// Head returns the next slot that Push will occupy.
func (r *Ring) Head() uint32 { return r.head }

// Tail returns the oldest occupied slot.
func (r *Ring) Tail() uint32 { return r.tail }

// Full reports whether every slot is occupied.
func (r *Ring) Full() bool { return r.queued == r.entries }

// Empty reports whether no slot is occupied.
func (r *Ring) Empty() bool { return r.queued == 0 }

// Push claims the slot at head and returns its index. The second return is
// false when the ring is full and no slot was claimed.
func (r *Ring) Push() (uint32, bool) {
	if r.queued == r.entries {
		return 0, false
	}
	slot := r.head
	r.head = r.inc(r.head, 1)
	r.queued++
	return slot, true
}

// Advance consumes n occupied slots starting at tail, after the caller has
// submitted them. n must not exceed Queued.
func (r *Ring) Advance(n uint32) {
	if n > r.queued {
		panic("ring: advance past queued count")
	}
	r.tail = r.inc(r.tail, n)
	r.queued -= n
}

// Run returns the tail slot and the length of the longest contiguous run of
// occupied slots that does not cross the physical wrap point. A submission
// batch is bounded by this run because the parallel arrays are contiguous
// only up to entries.
func (r *Ring) Run() (tail uint32, n uint32) {
	n = r.queued
	if wrap := r.entries - r.tail; n > wrap {
		n = wrap
	}
	return r.tail, n
}

func (r *Ring) inc(v, add uint32) uint32 {
	if r.pow2 {
		return (v + add) & r.mask
	}
	return (v + add) % r.entries
}
