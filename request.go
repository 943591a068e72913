package aioengine

import (
	"syscall"
	"time"

	"github.com/blkbench/aioengine/internal/aio"
)

// Direction is the kind of I/O a Request performs.
type Direction uint8

const (
	DirRead Direction = iota
	DirWrite
	DirSync
	DirTrim
)

func (d Direction) String() string {
	switch d {
	case DirRead:
		return "read"
	case DirWrite:
		return "write"
	case DirSync:
		return "sync"
	case DirTrim:
		return "trim"
	default:
		return "unknown"
	}
}

// Request is one logical I/O operation. The harness owns the Request and its
// buffer for the whole lifetime; the engine borrows both while the operation
// is in flight and writes the outcome fields when the completion is adapted.
type Request struct {
	Dir Direction
	FD  int32

	// Buf is the transfer buffer for reads and writes; nil for sync and
	// trim. The engine never frees or grows it.
	Buf []byte

	// Len is the transfer length for reads/writes and the extent for trim.
	Len uint64

	// Off is the byte offset on FD.
	Off int64

	// Index is the request's stable slot in the fixed descriptor table,
	// assigned by the harness, unique within [0, depth).
	Index uint32

	// Outcome, written by the event adapter. Err and Resid are mutually
	// exclusive: a short transfer is not an error.
	Err   syscall.Errno
	Resid uint64

	// IssueTime is stamped at submission when Options.RecordIssue is set.
	IssueTime time.Time

	// desc is the kernel descriptor in the default (non-table) mode. The
	// completion's back-reference is this field's address.
	desc aio.IOCB
}
