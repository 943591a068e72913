//go:build linux

package aio

import (
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// kernelAIO drives the real syscall surface.
type kernelAIO struct{}

// NewKernel returns the native AIO syscall implementation.
func NewKernel() Kernel { return kernelAIO{} }

func (kernelAIO) Setup(depth uint32) (Context, error) {
	var ctx Context
	_, _, errno := unix.Syscall(unix.SYS_IO_SETUP,
		uintptr(depth), uintptr(unsafe.Pointer(&ctx)), 0)
	if errno != 0 {
		return 0, errno
	}
	return ctx, nil
}

func (kernelAIO) SetupExt(depth uint32, flags uint32, table uintptr) (Context, error) {
	if sysIOSetup2 == 0 {
		return 0, unix.ENOSYS
	}
	var ctx Context
	_, _, errno := unix.Syscall6(sysIOSetup2,
		uintptr(depth), uintptr(flags), table,
		uintptr(unsafe.Pointer(&ctx)), 0, 0)
	if errno != 0 {
		return 0, errno
	}
	return ctx, nil
}

func (kernelAIO) Submit(ctx Context, iocbs []IOCBPtr) (int, error) {
	if len(iocbs) == 0 {
		return 0, nil
	}
	n, _, errno := unix.Syscall(unix.SYS_IO_SUBMIT,
		uintptr(ctx), uintptr(len(iocbs)),
		uintptr(unsafe.Pointer(unsafe.SliceData(iocbs))))
	if errno != 0 {
		return 0, errno
	}
	return int(n), nil
}

func (kernelAIO) GetEvents(ctx Context, min, max int, events []Event, timeout *time.Duration) (int, error) {
	var tsPtr unsafe.Pointer
	if timeout != nil {
		ts := unix.NsecToTimespec(timeout.Nanoseconds())
		tsPtr = unsafe.Pointer(&ts)
	}
	n, _, errno := unix.Syscall6(unix.SYS_IO_GETEVENTS,
		uintptr(ctx), uintptr(min), uintptr(max),
		uintptr(unsafe.Pointer(unsafe.SliceData(events))),
		uintptr(tsPtr), 0)
	if errno != 0 {
		return 0, errno
	}
	return int(n), nil
}

func (kernelAIO) Cancel(ctx Context, iocb *IOCB, ev *Event) error {
	_, _, errno := unix.Syscall(unix.SYS_IO_CANCEL,
		uintptr(ctx),
		uintptr(unsafe.Pointer(iocb)),
		uintptr(unsafe.Pointer(ev)))
	if errno != 0 {
		return errno
	}
	return nil
}

func (kernelAIO) Destroy(ctx Context) error {
	_, _, errno := unix.Syscall(unix.SYS_IO_DESTROY, uintptr(ctx), 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// fileOps performs the immediate sync/trim operations.
type fileOps struct{}

// NewFileOps returns the native implementation of FileOps.
func NewFileOps() FileOps { return fileOps{} }

func (fileOps) Sync(fd int32) error {
	return unix.Fdatasync(int(fd))
}

func (fileOps) Trim(fd int32, off int64, n int64) error {
	return unix.Fallocate(int(fd),
		unix.FALLOC_FL_PUNCH_HOLE|unix.FALLOC_FL_KEEP_SIZE, off, n)
}
