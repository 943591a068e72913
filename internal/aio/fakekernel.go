package aio

import (
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// SubmitOutcome scripts one Submit call's result.
type SubmitOutcome struct {
	N   int
	Err error
}

// FakeKernel is a scriptable Kernel for tests. Each Submit call consumes one
// SubmitOutcome from the script; once the script is exhausted every batch is
// accepted in full. With AutoComplete set, accepted descriptors immediately
// become pending completions with the back-reference a real kernel would
// produce for the context's descriptor mode.
type FakeKernel struct {
	// Ctx is the handle Setup/SetupExt hand back. Point it at a FakeRing's
	// Context to exercise the userspace reap path.
	Ctx         Context
	SetupErr    error
	SetupExtErr error

	SubmitScript []SubmitOutcome
	AutoComplete bool
	// ResultFor overrides the completion result for one descriptor;
	// default is the full requested byte count.
	ResultFor func(iocb IOCB) int64

	// Recorded creation parameters.
	Depth uint32
	Flags uint32
	Table uintptr

	SubmitCalls  int
	Accepted     []IOCB
	CancelCalls  int
	CancelErr    error
	DestroyCalls int

	pending    []Event
	emptyPolls int
}

var _ Kernel = (*FakeKernel)(nil)

func (f *FakeKernel) Setup(depth uint32) (Context, error) {
	if f.SetupErr != nil {
		return 0, f.SetupErr
	}
	f.Depth = depth
	return f.handle(), nil
}

func (f *FakeKernel) SetupExt(depth uint32, flags uint32, table uintptr) (Context, error) {
	if f.SetupExtErr != nil {
		return 0, f.SetupExtErr
	}
	f.Depth = depth
	f.Flags = flags
	f.Table = table
	return f.handle(), nil
}

func (f *FakeKernel) handle() Context {
	if f.Ctx != 0 {
		return f.Ctx
	}
	return Context(1)
}

func (f *FakeKernel) Submit(ctx Context, iocbs []IOCBPtr) (int, error) {
	f.SubmitCalls++

	outcome := SubmitOutcome{N: len(iocbs)}
	if len(f.SubmitScript) > 0 {
		outcome = f.SubmitScript[0]
		f.SubmitScript = f.SubmitScript[1:]
	}
	if outcome.Err != nil {
		return 0, outcome.Err
	}
	n := outcome.N
	if n > len(iocbs) {
		n = len(iocbs)
	}

	for _, ptr := range iocbs[:n] {
		var iocb IOCB
		var obj uint64
		if f.Flags&CtxFlagUserIOCB != 0 {
			idx := uint32(ptr)
			iocb = f.table()[idx]
			obj = uint64(idx)
		} else {
			iocb = *(*IOCB)(unsafe.Pointer(ptr))
			obj = uint64(ptr)
		}
		f.Accepted = append(f.Accepted, iocb)
		if f.AutoComplete {
			res := int64(iocb.Bytes)
			if f.ResultFor != nil {
				res = f.ResultFor(iocb)
			}
			f.pending = append(f.pending, Event{Data: iocb.Data, Obj: obj, Result: res})
		}
	}
	return n, nil
}

// AddCompletion queues one completion for GetEvents to return.
func (f *FakeKernel) AddCompletion(ev Event) {
	f.pending = append(f.pending, ev)
}

// Pending returns the completions not yet handed out.
func (f *FakeKernel) Pending() int { return len(f.pending) }

func (f *FakeKernel) GetEvents(ctx Context, min, max int, events []Event, timeout *time.Duration) (int, error) {
	if len(f.pending) == 0 {
		if min > 0 {
			// A runaway caller loop with nothing scripted would never
			// terminate; fail loudly instead.
			f.emptyPolls++
			if f.emptyPolls > 10000 {
				return 0, unix.EIO
			}
			// A real kernel blocks here; model that so callers polling
			// against a deadline do not spin.
			d := time.Millisecond
			if timeout != nil && *timeout < d {
				d = *timeout
			}
			time.Sleep(d)
		}
		return 0, nil
	}
	f.emptyPolls = 0
	n := len(f.pending)
	if n > max {
		n = max
	}
	if n > len(events) {
		n = len(events)
	}
	copy(events, f.pending[:n])
	f.pending = f.pending[n:]
	return n, nil
}

func (f *FakeKernel) Cancel(ctx Context, iocb *IOCB, ev *Event) error {
	f.CancelCalls++
	return f.CancelErr
}

func (f *FakeKernel) Destroy(ctx Context) error {
	f.DestroyCalls++
	return nil
}

func (f *FakeKernel) table() []IOCB {
	return unsafe.Slice((*IOCB)(unsafe.Pointer(f.Table)), f.Depth)
}

// FakeFileOps records immediate sync/trim calls.
type FakeFileOps struct {
	SyncCalls int
	TrimCalls int
	SyncErr   error
	TrimErr   error
	LastTrim  [3]int64 // fd, off, len
}

var _ FileOps = (*FakeFileOps)(nil)

func (f *FakeFileOps) Sync(fd int32) error {
	f.SyncCalls++
	return f.SyncErr
}

func (f *FakeFileOps) Trim(fd int32, off int64, n int64) error {
	f.TrimCalls++
	f.LastTrim = [3]int64{int64(fd), off, n}
	return f.TrimErr
}
