//go:build !linux

package aio

import (
	"time"

	"golang.org/x/sys/unix"
)

// Native AIO exists only on Linux; the stub keeps the package compiling for
// development hosts and always reports ENOSYS.
type kernelStub struct{}

// NewKernel returns a stub that fails every call with ENOSYS.
func NewKernel() Kernel { return kernelStub{} }

func (kernelStub) Setup(depth uint32) (Context, error) { return 0, unix.ENOSYS }

func (kernelStub) SetupExt(depth uint32, flags uint32, table uintptr) (Context, error) {
	return 0, unix.ENOSYS
}

func (kernelStub) Submit(ctx Context, iocbs []IOCBPtr) (int, error) { return 0, unix.ENOSYS }

func (kernelStub) GetEvents(ctx Context, min, max int, events []Event, timeout *time.Duration) (int, error) {
	return 0, unix.ENOSYS
}

func (kernelStub) Cancel(ctx Context, iocb *IOCB, ev *Event) error { return unix.ENOSYS }

func (kernelStub) Destroy(ctx Context) error { return unix.ENOSYS }

type fileOpsStub struct{}

// NewFileOps returns a stub that fails every call with ENOSYS.
func NewFileOps() FileOps { return fileOpsStub{} }

func (fileOpsStub) Sync(fd int32) error                  { return unix.ENOSYS }
func (fileOpsStub) Trim(fd int32, off int64, n int64) error { return unix.ENOSYS }
