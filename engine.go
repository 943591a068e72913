// Package aioengine submits and reaps asynchronous block I/O through the
// Linux native AIO interface. One Engine owns one kernel queue context and is
// driven by a single caller through discrete lifecycle hooks: requests are
// enqueued into a fixed ring, committed to the kernel in batches, and their
// completions collected and adapted back to request outcomes.
package aioengine

import (
	"errors"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/blkbench/aioengine/internal/aio"
	"github.com/blkbench/aioengine/internal/alloc"
	"github.com/blkbench/aioengine/internal/logging"
	"github.com/blkbench/aioengine/internal/ring"
)

// QueueStatus is the outcome of enqueueing one request.
type QueueStatus int

const (
	// Queued: the request occupies a ring slot and will go to the kernel on
	// the next Commit.
	Queued QueueStatus = iota

	// Busy: no slot was taken; retry after draining (Commit + GetEvents).
	Busy

	// Completed: the request was executed immediately and its outcome
	// fields are already set. Sync and trim complete this way.
	Completed
)

func (s QueueStatus) String() string {
	switch s {
	case Queued:
		return "queued"
	case Busy:
		return "busy"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// IOEngine is the lifecycle surface a harness drives. No hook spawns
// background work; every call runs on the caller's goroutine.
type IOEngine interface {
	// Init allocates ring state for the configured depth.
	Init() error

	// PostInit creates the kernel queue context. It runs after the harness
	// has allocated request buffers so pre-registration can bind them.
	PostInit() error

	// InitRequest registers one harness-constructed request; required in
	// user-mapped descriptor mode before the request is ever queued.
	InitRequest(r *Request) error

	// Queue records one request for submission, or executes it immediately
	// when it is a serialized sync/trim operation.
	Queue(r *Request) (QueueStatus, error)

	// Commit pushes queued requests to the kernel.
	Commit() error

	// GetEvents collects between min and max completions, bounded by the
	// optional timeout. min == 0 polls best-effort.
	GetEvents(min, max int, timeout *time.Duration) (int, error)

	// Event adapts the i-th collected completion back to its Request.
	Event(i int) *Request

	// Cancel attempts to abort one in-flight request; best-effort.
	Cancel(r *Request) error

	// Cleanup destroys the context and releases engine-owned memory.
	Cleanup() error
}

// Engine implements IOEngine over one native AIO context.
type Engine struct {
	opts    Options
	kernel  aio.Kernel
	files   aio.FileOps
	log     *logging.Logger
	metrics *Metrics

	ctx    aio.Context
	ring   *ring.Ring
	events []aio.Event

	// Parallel arrays indexed by ring slot.
	iocbs    []aio.IOCBPtr
	requests []*Request

	// User-mapped descriptor mode state.
	descRegion *alloc.Region
	userIOCBs  []aio.IOCB
	byIndex    []*Request

	userRing *aio.UserRing
	inflight uint32

	initialized bool
	cancelEv    aio.Event
}

var _ IOEngine = (*Engine)(nil)

// New returns an engine driving the native kernel AIO surface.
func New(opts Options) *Engine {
	return newEngine(opts, aio.NewKernel(), aio.NewFileOps())
}

func newEngine(opts Options, k aio.Kernel, f aio.FileOps) *Engine {
	o := opts.withDefaults()
	return &Engine{
		opts:    o,
		kernel:  k,
		files:   f,
		log:     o.Logger.WithEngine("aio"),
		metrics: NewMetrics(),
	}
}

// Metrics exposes the engine's counters.
func (e *Engine) Metrics() *Metrics { return e.metrics }

// Init implements IOEngine.
func (e *Engine) Init() error {
	if e.initialized {
		return newError("init", ErrCodeInvalidConfig, "engine already initialized")
	}
	if err := e.opts.validate(); err != nil {
		return err
	}

	depth := e.opts.Depth
	e.ring = ring.New(depth)
	e.events = make([]aio.Event, depth)
	e.iocbs = make([]aio.IOCBPtr, depth)
	e.requests = make([]*Request, depth)

	if e.opts.UserDescriptors {
		e.byIndex = make([]*Request, depth)
		region, err := alloc.New(int(depth) * int(unsafe.Sizeof(aio.IOCB{})))
		if err != nil {
			return newError("init", ErrCodeInvalidConfig, err.Error())
		}
		e.descRegion = region
		e.userIOCBs = unsafe.Slice((*aio.IOCB)(region.Ptr()), depth)
	}

	e.initialized = true
	e.log.Debug("engine initialized", "depth", depth,
		"user_descriptors", e.opts.UserDescriptors)
	return nil
}

// InitRequest implements IOEngine.
func (e *Engine) InitRequest(r *Request) error {
	if !e.opts.UserDescriptors {
		return nil
	}
	if r.Index >= e.opts.Depth {
		return newError("init_request", ErrCodeInvalidConfig,
			"request index outside descriptor table")
	}
	e.byIndex[r.Index] = r
	return nil
}

// PostInit implements IOEngine. It runs after buffers are known: fixed-buffer
// registration reads each descriptor's buffer address at context creation,
// so the bindings must be in place before the setup call.
func (e *Engine) PostInit() error {
	if !e.initialized {
		return newError("post_init", ErrCodeInvalidConfig, "engine not initialized")
	}

	if e.opts.FixedBuffers {
		for i := range e.userIOCBs {
			r := e.byIndex[i]
			if r == nil || r.Buf == nil {
				continue
			}
			e.userIOCBs[i].Buf = uint64(uintptr(unsafe.Pointer(unsafe.SliceData(r.Buf))))
			e.userIOCBs[i].Bytes = uint64(len(r.Buf))
		}
	}

	ctx, err := e.setupContext()
	if err != nil {
		return err
	}
	e.ctx = ctx

	if e.opts.UserspaceReap {
		if ur, ok := aio.OpenUserRing(ctx); ok {
			e.userRing = ur
		} else {
			e.log.Warn("completion ring layout not recognized, using kernel reap path")
		}
	}

	e.log.Debug("queue context created", "depth", e.opts.Depth,
		"hipri", e.opts.HighPriority, "fixed_buffers", e.opts.FixedBuffers)
	return nil
}

func (e *Engine) setupContext() (aio.Context, error) {
	var flags uint32
	if e.opts.HighPriority {
		flags |= aio.CtxFlagIOPoll
	}
	if e.opts.UserDescriptors {
		flags |= aio.CtxFlagUserIOCB
	}
	if e.opts.FixedBuffers {
		flags |= aio.CtxFlagFixedBufs
	}

	var table uintptr
	if e.descRegion != nil {
		table = uintptr(e.descRegion.Ptr())
	}

	ctx, err := e.kernel.SetupExt(e.opts.Depth, flags, table)
	if err == nil {
		return ctx, nil
	}

	// The extended setup syscall is missing or refused the flags. The basic
	// path cannot express any of the features, so fail naming the first one
	// requested rather than silently degrading.
	errno := errnoOf(err)
	switch {
	case e.opts.HighPriority:
		return 0, capabilityError("post_init", "polling priority", errno)
	case e.opts.UserDescriptors:
		return 0, capabilityError("post_init", "user-mapped descriptors", errno)
	case e.opts.FixedBuffers:
		return 0, capabilityError("post_init", "fixed buffers", errno)
	}

	ctx, err = e.kernel.Setup(e.opts.Depth)
	if err != nil {
		return 0, wrapErrno("post_init", err)
	}
	return ctx, nil
}

// Queue implements IOEngine. Sync and trim cannot ride the async queue, so
// they are serialized against all other I/O: rejected while anything is
// queued, executed immediately otherwise.
func (e *Engine) Queue(r *Request) (QueueStatus, error) {
	if !e.initialized {
		return Busy, newError("queue", ErrCodeInvalidConfig, "engine not initialized")
	}
	if e.ring.Full() {
		return Busy, nil
	}

	switch r.Dir {
	case DirSync:
		if !e.ring.Empty() {
			return Busy, nil
		}
		r.Err = 0
		if err := e.files.Sync(r.FD); err != nil {
			r.Err = errnoOf(err)
		}
		e.metrics.Syncs.Add(1)
		return Completed, nil

	case DirTrim:
		if !e.ring.Empty() {
			return Busy, nil
		}
		r.Err = 0
		if err := e.files.Trim(r.FD, r.Off, int64(r.Len)); err != nil {
			r.Err = errnoOf(err)
		}
		e.metrics.Trims.Add(1)
		return Completed, nil

	case DirRead, DirWrite:
		iocb, ptr := e.descFor(r)
		buf := unsafe.Pointer(unsafe.SliceData(r.Buf))
		if r.Dir == DirRead {
			aio.PrepPread(iocb, r.FD, buf, r.Len, r.Off)
		} else {
			aio.PrepPwrite(iocb, r.FD, buf, r.Len, r.Off)
		}
		if e.opts.HighPriority {
			iocb.Flags |= aio.IOCBFlagHiPri
		}

		slot, _ := e.ring.Push() // cannot fail, fullness checked above
		e.iocbs[slot] = ptr
		e.requests[slot] = r
		return Queued, nil

	default:
		return Busy, newError("queue", ErrCodeInvalidConfig,
			"unsupported direction "+r.Dir.String())
	}
}

func (e *Engine) descFor(r *Request) (*aio.IOCB, aio.IOCBPtr) {
	if e.opts.UserDescriptors {
		// The kernel resolves table entries by index; the "pointer" slot
		// carries the request's stable index.
		return &e.userIOCBs[r.Index], aio.IOCBPtr(r.Index)
	}
	return &r.desc, aio.IOCBPtr(uintptr(unsafe.Pointer(&r.desc)))
}

// Commit implements IOEngine. Queued requests go to the kernel in contiguous
// runs bounded by the ring's wrap point. Kernel pushback is classified: some
// refusals mean "reap and retry", some mean "retry right now", and a refusal
// that persists with nothing in flight means the I/O path is wedged.
func (e *Engine) Commit() error {
	if e.ring == nil || e.ring.Empty() {
		return nil
	}

	var stallStart time.Time
	for !e.ring.Empty() {
		tail, n := e.ring.Run()
		batch := e.iocbs[tail : tail+n]

		e.metrics.SubmitCalls.Add(1)
		ret, err := e.kernel.Submit(e.ctx, batch)

		switch {
		case err == nil && ret > 0:
			e.markSubmitted(tail, uint32(ret))
			if uint32(ret) < n {
				e.metrics.PartialSubmits.Add(1)
			}
			e.ring.Advance(uint32(ret))
			e.inflight += uint32(ret)
			stallStart = time.Time{}

		case err == nil || errors.Is(err, unix.EINTR):
			// Interrupted or zero accepted: harmless, try again.
			e.metrics.SubmitRetries.Add(1)
			stallStart = time.Time{}

		case errors.Is(err, unix.EAGAIN):
			// Queue is transiently full. With anything in flight the
			// caller can make room by reaping, so report the progress
			// made. With nothing in flight there is nothing to reap;
			// spin briefly, but a refusal that outlives the ceiling is
			// pathological kernel state, not backpressure.
			if e.inflight > 0 {
				e.metrics.Backpressure.Add(1)
				return nil
			}
			if stallStart.IsZero() {
				stallStart = time.Now()
			} else if time.Since(stallStart) > e.opts.StallTimeout {
				e.metrics.Stalls.Add(1)
				e.log.Error("submission stalled, giving up",
					"stalled_for", time.Since(stallStart))
				return newError("commit", ErrCodeStalled,
					"kernel queue refused submissions past the stall ceiling")
			}
			time.Sleep(e.opts.SubmitBackoff)

		case errors.Is(err, unix.ENOMEM):
			// The kernel cannot allocate completion state. Reaping frees
			// it, so only fatal when nothing is in flight.
			if e.inflight > 0 {
				e.metrics.Backpressure.Add(1)
				return nil
			}
			return wrapErrno("commit", err)

		default:
			return wrapErrno("commit", err)
		}
	}
	return nil
}

func (e *Engine) markSubmitted(tail, n uint32) {
	e.metrics.Submitted.Add(uint64(n))
	if !e.opts.RecordIssue {
		return
	}
	now := time.Now()
	for i := uint32(0); i < n; i++ {
		e.requests[tail+i].IssueTime = now
	}
}

// GetEvents implements IOEngine. Completions are collected into an internal
// array; Event(i) adapts the i-th one. The userspace ring read is only legal
// for best-effort polls because it can never block for a minimum.
func (e *Engine) GetEvents(min, max int, timeout *time.Duration) (int, error) {
	if !e.initialized {
		return 0, newError("getevents", ErrCodeInvalidConfig, "engine not initialized")
	}
	if max > len(e.events) {
		max = len(e.events)
	}
	if min > max {
		min = max
	}

	var deadline time.Time
	if timeout != nil {
		deadline = time.Now().Add(*timeout)
	}

	got := 0
	for {
		var n int
		var err error
		if e.userRing != nil && min == 0 {
			n = e.userRing.Reap(e.events[got:max])
			if n > 0 {
				e.metrics.UserReaps.Add(1)
			}
		} else {
			need := min - got
			if need < 0 {
				need = 0
			}
			n, err = e.kernel.GetEvents(e.ctx, need, max-got, e.events[got:max], timeout)
			if n > 0 {
				e.metrics.SyscallReaps.Add(1)
			}
		}

		switch {
		case err == nil && n > 0:
			got += n
			if uint32(n) > e.inflight {
				e.inflight = 0
			} else {
				e.inflight -= uint32(n)
			}

		case (err == nil && n == 0 && min > 0) || errors.Is(err, unix.EAGAIN):
			// Completions may be withheld until pending submissions are
			// flushed; push them and come back.
			if cerr := e.Commit(); cerr != nil {
				return got, cerr
			}
			if min == 0 {
				time.Sleep(e.opts.ReapIdleSleep)
			}

		case err != nil && !errors.Is(err, unix.EINTR):
			return got, wrapErrno("getevents", err)
		}

		if got >= min {
			return got, nil
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return got, nil
		}
	}
}

// Event implements IOEngine. The completion's back-reference, not its
// position, identifies the request: completions arrive in any order.
func (e *Engine) Event(i int) *Request {
	ev := &e.events[i]

	var r *Request
	if e.opts.UserDescriptors {
		r = e.byIndex[uint32(ev.Obj)]
	} else {
		r = requestFromDesc(uintptr(ev.Obj))
	}

	res := ev.Result
	switch {
	case res < 0:
		r.Err = syscall.Errno(-res)
		r.Resid = 0
		e.metrics.RequestErrors.Add(1)
	case uint64(res) >= r.Len:
		r.Err = 0
		r.Resid = 0
	default:
		// Short transfer: the shortfall is an accounting fact, not an
		// error.
		r.Err = 0
		r.Resid = r.Len - uint64(res)
		e.metrics.ShortTransfers.Add(1)
	}

	e.metrics.Completions.Add(1)
	if e.opts.RecordIssue && !r.IssueTime.IsZero() {
		e.metrics.recordLatency(uint64(time.Since(r.IssueTime).Nanoseconds()))
	}
	return r
}

// requestFromDesc recovers the Request embedding the descriptor at addr.
// Request memory is harness-owned and live for the whole in-flight window,
// and the Go heap does not move objects.
func requestFromDesc(addr uintptr) *Request {
	return (*Request)(unsafe.Pointer(addr - unsafe.Offsetof(Request{}.desc)))
}

// Cancel implements IOEngine.
func (e *Engine) Cancel(r *Request) error {
	iocb, _ := e.descFor(r)
	e.metrics.Cancels.Add(1)
	if err := e.kernel.Cancel(e.ctx, iocb, &e.cancelEv); err != nil {
		return wrapErrno("cancel", err)
	}
	return nil
}

// Cleanup implements IOEngine. A forked/cloned child skips context
// destruction: tearing down a large context is expensive and process exit
// will reap it anyway.
func (e *Engine) Cleanup() error {
	if !e.initialized {
		return nil
	}

	if e.ctx != 0 && !e.opts.Child {
		if err := e.kernel.Destroy(e.ctx); err != nil {
			e.log.WithError(err).Warn("context destroy failed")
		}
	}
	e.ctx = 0
	e.userRing = nil

	if e.descRegion != nil {
		if err := e.descRegion.Release(); err != nil {
			return newError("cleanup", ErrCodeIOError, err.Error())
		}
		e.descRegion = nil
		e.userIOCBs = nil
	}

	e.events = nil
	e.iocbs = nil
	e.requests = nil
	e.byIndex = nil
	e.ring = nil
	e.initialized = false

	e.log.Debug("engine cleaned up")
	return nil
}

func errnoOf(err error) syscall.Errno {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return syscall.EIO
}
