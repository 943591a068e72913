package aio

import (
	"sync/atomic"
	"unsafe"
)

// FakeRing lays out an in-memory replica of the kernel completion ring so the
// userspace reap path can be exercised without a kernel. The fake plays the
// producer role with the same publish ordering the kernel uses: payload first,
// then a release store of the tail.
type FakeRing struct {
	mem []byte
	hdr *ringHeader
	nr  uint32
}

// NewFakeRing builds a ring with nr event slots and a valid layout magic.
func NewFakeRing(nr uint32) *FakeRing {
	size := int(ringHeaderSize) + int(nr)*int(unsafe.Sizeof(Event{}))
	f := &FakeRing{mem: make([]byte, size), nr: nr}
	f.hdr = (*ringHeader)(unsafe.Pointer(&f.mem[0]))
	f.hdr.nr = nr
	f.hdr.magic = RingMagic
	f.hdr.hdrLen = uint32(ringHeaderSize)
	return f
}

// Context returns the handle a kernel would have returned for this ring. The
// FakeRing must be kept alive for as long as the handle is used.
func (f *FakeRing) Context() Context {
	return Context(uintptr(unsafe.Pointer(&f.mem[0])))
}

// Produce appends one completion, returning false when the ring is full.
func (f *FakeRing) Produce(ev Event) bool {
	head := atomic.LoadUint32(&f.hdr.head)
	tail := f.hdr.tail
	next := (tail + 1) % f.nr
	if next == head {
		return false
	}
	slot := unsafe.Add(unsafe.Pointer(f.hdr),
		ringHeaderSize+uintptr(tail)*unsafe.Sizeof(Event{}))
	*(*Event)(slot) = ev
	atomic.StoreUint32(&f.hdr.tail, next)
	return true
}

// InvalidateMagic breaks the layout magic so OpenUserRing refuses the ring.
func (f *FakeRing) InvalidateMagic() {
	atomic.StoreUint32(&f.hdr.magic, 0)
}
