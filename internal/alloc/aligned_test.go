package alloc

import (
	"os"
	"testing"
	"unsafe"
)

func TestNewRoundsToPageAndAligns(t *testing.T) {
	page := os.Getpagesize()

	r, err := New(1)
	if err != nil {
		t.Fatalf("New(1): %v", err)
	}
	defer r.Release()

	if r.Len() != page {
		t.Errorf("Len = %d, want one page (%d)", r.Len(), page)
	}
	if addr := uintptr(r.Ptr()); addr%uintptr(page) != 0 {
		t.Errorf("base address %#x not page aligned", addr)
	}
}

func TestRegionIsZeroedAndWritable(t *testing.T) {
	r, err := New(8192)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Release()

	b := r.Bytes()
	for i, v := range b {
		if v != 0 {
			t.Fatalf("byte %d = %d, want 0", i, v)
		}
	}
	b[0] = 0xab
	b[len(b)-1] = 0xcd
	if *(*byte)(r.Ptr()) != 0xab {
		t.Error("write through Bytes not visible through Ptr")
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	r, err := New(4096)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := r.Release(); err != nil {
		t.Fatalf("first Release: %v", err)
	}
	if err := r.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}
}

func TestNewRejectsNonPositiveSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		if _, err := New(size); err == nil {
			t.Errorf("New(%d) should fail", size)
		}
	}
}

func TestSliceDataMatchesPtr(t *testing.T) {
	r, err := New(4096)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Release()
	if unsafe.Pointer(unsafe.SliceData(r.Bytes())) != r.Ptr() {
		t.Error("Ptr does not match slice backing array")
	}
}
