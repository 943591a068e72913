package aio

import (
	"time"
)

// Kernel abstracts the AIO syscall surface so the engine can be driven
// against a scripted implementation in tests. The real implementation is
// selected by NewKernel; errors returned from Submit, GetEvents and Cancel
// are unix.Errno values suitable for classification by the caller.
type Kernel interface {
	// Setup creates a plain AIO context with room for depth in-flight
	// requests.
	Setup(depth uint32) (Context, error)

	// SetupExt creates a context with feature flags, passing the
	// caller-allocated descriptor table when CtxFlagUserIOCB is set. Returns
	// unix.ENOSYS when the running kernel lacks the extended setup syscall.
	SetupExt(depth uint32, flags uint32, table uintptr) (Context, error)

	// Submit pushes a contiguous batch of descriptors. Returns the number
	// accepted, which may be short of len(iocbs), or an errno.
	Submit(ctx Context, iocbs []IOCBPtr) (int, error)

	// GetEvents blocks until at least min completions are available, the
	// timeout elapses (nil means no limit), or an error occurs. Completions
	// are copied into events[:max].
	GetEvents(ctx Context, min, max int, events []Event, timeout *time.Duration) (int, error)

	// Cancel attempts to abort one in-flight descriptor; best-effort.
	Cancel(ctx Context, iocb *IOCB, ev *Event) error

	// Destroy tears down the context and any kernel-side resources.
	Destroy(ctx Context) error
}

// FileOps covers the immediate, non-queued operations the engine performs for
// serialized sync and trim requests.
type FileOps interface {
	// Sync flushes fd's data to stable storage.
	Sync(fd int32) error

	// Trim discards the byte range [off, off+n) on fd.
	Trim(fd int32, off int64, n int64) error
}
