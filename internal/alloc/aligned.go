// Package alloc hands out page-aligned memory regions backed by anonymous
// mappings. The engine uses one for the user-mapped descriptor table, which
// the kernel requires to be page-aligned; the demo harness uses them for
// O_DIRECT transfer buffers.
package alloc

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Region is a page-aligned anonymous mapping.
type Region struct {
	buf []byte
}

// New maps at least size bytes, rounded up to whole pages. The memory is
// zeroed and aligned to the system page size.
func New(size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("alloc: invalid region size %d", size)
	}
	page := os.Getpagesize()
	if rem := size % page; rem != 0 {
		size += page - rem
	}
	buf, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("alloc: mmap %d bytes: %w", size, err)
	}
	return &Region{buf: buf}, nil
}

// Bytes returns the mapped memory.
func (r *Region) Bytes() []byte { return r.buf }

// Ptr returns the base address of the mapping.
func (r *Region) Ptr() unsafe.Pointer {
	return unsafe.Pointer(unsafe.SliceData(r.buf))
}

// Len returns the mapped length, after page rounding.
func (r *Region) Len() int { return len(r.buf) }

// Release unmaps the region. Safe to call more than once.
func (r *Region) Release() error {
	if r.buf == nil {
		return nil
	}
	err := unix.Munmap(r.buf)
	r.buf = nil
	return err
}
