// Package aio provides the kernel-facing surface of the Linux native AIO
// interface: ABI struct layouts, the syscall wrappers behind a narrow Kernel
// interface, and the userspace completion-ring accessor.
package aio

import "unsafe"

// Context is an opaque kernel AIO context handle (aio_context_t). With the
// completion ring mapped into userspace it doubles as the address of the
// ring header.
type Context uintptr

// I/O command opcodes (aio_lio_opcode).
const (
	CmdPread  = 0
	CmdPwrite = 1
	CmdFsync  = 2
	CmdFdsync = 3
)

// Per-descriptor flag requesting polled, latency-sensitive completion.
const IOCBFlagHiPri = 1 << 2

// Context creation feature flags for the extended setup syscall.
const (
	CtxFlagUserIOCB  = 1 << 0 // descriptors live in a user-mapped table
	CtxFlagIOPoll    = 1 << 1 // polled completions
	CtxFlagFixedBufs = 1 << 2 // buffers pre-registered at creation
)

// IOCBPtr is one element of the submission array passed to the kernel: the
// address of an IOCB in the default mode, or a bare table index when the
// context was created with CtxFlagUserIOCB.
type IOCBPtr uintptr

// RingMagic identifies a kernel completion ring whose layout this package
// understands well enough to read directly.
const RingMagic = 0xa10a10a1

// IOCB is the kernel submission descriptor (struct iocb, aio_abi.h layout).
type IOCB struct {
	Data uint64 // opaque, returned in Event.Data
	Key  uint32
	_    uint32

	OpCode  uint16
	ReqPrio int16
	FD      int32

	Buf    uint64
	Bytes  uint64
	Offset int64

	Reserved2 uint64
	Flags     uint32
	ResFD     int32
}

// Event is one kernel completion record (struct io_event). Obj refers back to
// the submitted descriptor: its address in the default mode, or its table
// index when the context was created with CtxFlagUserIOCB. Result carries the
// transferred byte count, or a negated errno.
type Event struct {
	Data    uint64
	Obj     uint64
	Result  int64
	Result2 int64
}

// ringHeader is the head of the kernel-mapped completion ring
// (struct aio_ring), followed in memory by a contiguous Event array.
type ringHeader struct {
	id     uint32
	nr     uint32
	head   uint32
	tail   uint32
	magic  uint32
	compat uint32
	incompat uint32
	hdrLen uint32
}

const ringHeaderSize = unsafe.Sizeof(ringHeader{})

// PrepPread fills iocb for a positional read.
func PrepPread(iocb *IOCB, fd int32, buf unsafe.Pointer, n uint64, off int64) {
	*iocb = IOCB{
		OpCode: CmdPread,
		FD:     fd,
		Buf:    uint64(uintptr(buf)),
		Bytes:  n,
		Offset: off,
	}
}

// PrepPwrite fills iocb for a positional write.
func PrepPwrite(iocb *IOCB, fd int32, buf unsafe.Pointer, n uint64, off int64) {
	*iocb = IOCB{
		OpCode: CmdPwrite,
		FD:     fd,
		Buf:    uint64(uintptr(buf)),
		Bytes:  n,
		Offset: off,
	}
}

// PrepFsync fills iocb for a sync of fd's data.
func PrepFsync(iocb *IOCB, fd int32) {
	*iocb = IOCB{
		OpCode: CmdFsync,
		FD:     fd,
	}
}
