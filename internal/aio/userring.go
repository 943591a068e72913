package aio

import (
	"sync/atomic"
	"unsafe"
)

// UserRing reads completion events straight out of the kernel-mapped ring
// instead of calling into the kernel. It is a single-consumer protocol
// against a kernel producer: the tail is loaded with acquire ordering before
// any payload is read, and the advanced head is published with release
// ordering, so a partially written event is never observed and the kernel
// never reuses a slot still being copied.
//
// Nothing outside this type touches the raw ring memory.
type UserRing struct {
	hdr *ringHeader
}

// OpenUserRing interprets the context handle as the address of the mapped
// completion ring. The second return is false when the layout magic does not
// match, in which case direct reads must not be used.
func OpenUserRing(ctx Context) (*UserRing, bool) {
	if ctx == 0 {
		return nil, false
	}
	hdr := (*ringHeader)(unsafe.Pointer(ctx))
	if atomic.LoadUint32(&hdr.magic) != RingMagic {
		return nil, false
	}
	return &UserRing{hdr: hdr}, true
}

// Reap copies available completions into events and consumes them. It never
// blocks; the return is the number copied, possibly zero.
func (r *UserRing) Reap(events []Event) int {
	hdr := r.hdr
	nr := hdr.nr
	head := hdr.head // single consumer, plain read is ours to trust
	n := 0
	for n < len(events) {
		tail := atomic.LoadUint32(&hdr.tail)
		if head == tail {
			break
		}
		slot := unsafe.Add(unsafe.Pointer(hdr),
			ringHeaderSize+uintptr(head)*unsafe.Sizeof(Event{}))
		events[n] = *(*Event)(slot)
		n++
		head = (head + 1) % nr
	}
	if n > 0 {
		atomic.StoreUint32(&hdr.head, head)
	}
	return n
}
