package aioengine

import (
	"time"

	"github.com/blkbench/aioengine/internal/constants"
	"github.com/blkbench/aioengine/internal/logging"
)

// Re-exported defaults.
const (
	DefaultDepth         = constants.DefaultDepth
	DefaultStallTimeout  = constants.DefaultStallTimeout
	DefaultSubmitBackoff = constants.DefaultSubmitBackoff
	DefaultReapIdleSleep = constants.DefaultReapIdleSleep
)

// Options fixes an engine instance's configuration. Depth and the feature
// flags cannot change after Init.
type Options struct {
	// Depth is the maximum number of in-flight requests.
	Depth uint32

	// UserspaceReap reads completions directly from the kernel-mapped ring
	// when no minimum count is required, instead of calling into the kernel.
	UserspaceReap bool

	// HighPriority tags submissions as latency-sensitive polled I/O and
	// creates the context in polling mode.
	HighPriority bool

	// UserDescriptors keeps descriptors in a pre-allocated page-aligned
	// table indexed by Request.Index instead of inside each Request.
	UserDescriptors bool

	// FixedBuffers pre-registers request buffers with the context at
	// creation time. Requires UserDescriptors.
	FixedBuffers bool

	// RecordIssue stamps Request.IssueTime as requests are submitted.
	RecordIssue bool

	// Child marks a forked/cloned engine instance; Cleanup then skips
	// context destruction and defers to process-wide teardown.
	Child bool

	// StallTimeout bounds zero-progress submission retries before the
	// condition escalates to fatal.
	StallTimeout time.Duration

	// SubmitBackoff is the sleep between zero-progress submission retries.
	SubmitBackoff time.Duration

	// ReapIdleSleep is the pause taken by a best-effort completion poll
	// when the kernel reports transient unavailability.
	ReapIdleSleep time.Duration

	// Logger for engine diagnostics; logging.Default() when nil.
	Logger *logging.Logger
}

// DefaultOptions returns the baseline configuration.
func DefaultOptions() Options {
	return Options{
		Depth:         DefaultDepth,
		StallTimeout:  DefaultStallTimeout,
		SubmitBackoff: DefaultSubmitBackoff,
		ReapIdleSleep: DefaultReapIdleSleep,
	}
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.Depth == 0 {
		out.Depth = DefaultDepth
	}
	if out.StallTimeout == 0 {
		out.StallTimeout = DefaultStallTimeout
	}
	if out.SubmitBackoff == 0 {
		out.SubmitBackoff = DefaultSubmitBackoff
	}
	if out.ReapIdleSleep == 0 {
		out.ReapIdleSleep = DefaultReapIdleSleep
	}
	if out.Logger == nil {
		out.Logger = logging.Default()
	}
	return out
}

func (o *Options) validate() error {
	if o.FixedBuffers && !o.UserDescriptors {
		return newError("init", ErrCodeInvalidConfig,
			"fixed buffers require user-mapped descriptors")
	}
	return nil
}
