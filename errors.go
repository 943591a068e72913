package aioengine

import (
	"errors"
	"fmt"
	"strings"
	"syscall"
)

// ErrorCode is a high-level failure category.
type ErrorCode string

const (
	// ErrCodeStalled: submission made zero progress past the stall ceiling;
	// the kernel I/O path is wedged, not merely busy.
	ErrCodeStalled ErrorCode = "submission stalled"

	// ErrCodeBackpressure: the kernel queue cannot accept work and nothing
	// is in flight to reap; no forward progress is possible.
	ErrCodeBackpressure ErrorCode = "queue backpressure"

	// ErrCodeCapability: a requested context feature is unsupported by the
	// running kernel.
	ErrCodeCapability ErrorCode = "kernel capability missing"

	// ErrCodeInvalidConfig: options rejected before any syscall was made.
	ErrCodeInvalidConfig ErrorCode = "invalid configuration"

	// ErrCodeIOError: any other fatal submission or reap failure.
	ErrCodeIOError ErrorCode = "I/O error"
)

// Error is a structured engine error carrying the failing lifecycle
// operation, a category, and the kernel errno when one applies.
type Error struct {
	Op      string        // lifecycle hook that failed ("commit", "getevents", ...)
	Code    ErrorCode     // failure category
	Feature string        // unsupported feature, for ErrCodeCapability
	Errno   syscall.Errno // kernel errno, 0 if not applicable
	Msg     string        // human-readable detail
	Inner   error         // wrapped cause
}

func (e *Error) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, "op="+e.Op)
	}
	if e.Feature != "" {
		parts = append(parts, "feature="+e.Feature)
	}
	if e.Errno != 0 {
		parts = append(parts, fmt.Sprintf("errno=%d", int(e.Errno)))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if len(parts) == 0 {
		return "aioengine: " + msg
	}
	return fmt.Sprintf("aioengine: %s (%s)", msg, strings.Join(parts, ", "))
}

// Unwrap supports errors.Is/As chains.
func (e *Error) Unwrap() error {
	if e.Inner != nil {
		return e.Inner
	}
	if e.Errno != 0 {
		return e.Errno
	}
	return nil
}

// Is matches two structured errors by category.
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	return ok && e.Code == te.Code
}

// newError builds an error with no errno attached.
func newError(op string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// wrapErrno classifies a syscall failure under op.
func wrapErrno(op string, err error) *Error {
	if err == nil {
		return nil
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return &Error{
			Op:    op,
			Code:  codeForErrno(errno),
			Errno: errno,
			Msg:   errno.Error(),
			Inner: err,
		}
	}
	return &Error{Op: op, Code: ErrCodeIOError, Msg: err.Error(), Inner: err}
}

// capabilityError names the feature the running kernel cannot provide.
func capabilityError(op, feature string, errno syscall.Errno) *Error {
	return &Error{
		Op:      op,
		Code:    ErrCodeCapability,
		Feature: feature,
		Errno:   errno,
		Msg:     feature + " not available on this kernel",
	}
}

func codeForErrno(errno syscall.Errno) ErrorCode {
	switch errno {
	case syscall.EAGAIN, syscall.ENOMEM:
		return ErrCodeBackpressure
	case syscall.ENOSYS, syscall.EOPNOTSUPP:
		return ErrCodeCapability
	default:
		return ErrCodeIOError
	}
}

// IsCode reports whether err carries the given category.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// IsErrno reports whether err carries the given kernel errno.
func IsErrno(err error, errno syscall.Errno) bool {
	var e *Error
	return errors.As(err, &e) && e.Errno == errno
}
