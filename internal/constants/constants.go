package constants

import "time"

// Default engine configuration.
const (
	// DefaultDepth is the default maximum number of in-flight requests.
	DefaultDepth = 128
)

// Submission and reap pacing. The ceiling and sleeps are tuned values carried
// over from long-standing practice in kernel AIO drivers; they are defaults,
// overridable per engine instance.
const (
	// DefaultStallTimeout bounds how long a submission retries with zero
	// progress before the condition is treated as fatal.
	DefaultStallTimeout = 30 * time.Second

	// DefaultSubmitBackoff is the sleep between submission retries while the
	// kernel queue reports transient unavailability and nothing is in flight.
	DefaultSubmitBackoff = time.Microsecond

	// DefaultReapIdleSleep is the sleep taken by a best-effort completion
	// poll when neither completions nor submissions made progress.
	DefaultReapIdleSleep = 10 * time.Microsecond
)
