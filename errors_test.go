package aioengine

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"golang.org/x/sys/unix"
)

func TestErrorMessageParts(t *testing.T) {
	err := &Error{Op: "commit", Code: ErrCodeIOError, Errno: unix.EIO, Msg: "submit failed"}
	msg := err.Error()
	for _, want := range []string{"aioengine:", "submit failed", "op=commit", "errno=5"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}

func TestErrorMessageWithoutDetail(t *testing.T) {
	err := newError("", ErrCodeBackpressure, "")
	if got := err.Error(); got != "aioengine: queue backpressure" {
		t.Errorf("got %q", got)
	}
}

func TestWrapErrnoClassification(t *testing.T) {
	cases := []struct {
		errno unix.Errno
		code  ErrorCode
	}{
		{unix.EAGAIN, ErrCodeBackpressure},
		{unix.ENOMEM, ErrCodeBackpressure},
		{unix.ENOSYS, ErrCodeCapability},
		{unix.EOPNOTSUPP, ErrCodeCapability},
		{unix.EIO, ErrCodeIOError},
		{unix.EBADF, ErrCodeIOError},
	}
	for _, tc := range cases {
		err := wrapErrno("commit", tc.errno)
		if err.Code != tc.code {
			t.Errorf("errno %v: code %q, want %q", tc.errno, err.Code, tc.code)
		}
		if !errors.Is(err, tc.errno) {
			t.Errorf("errno %v not reachable through Unwrap", tc.errno)
		}
	}
}

func TestWrapErrnoUnwrapsNestedErrno(t *testing.T) {
	inner := fmt.Errorf("getevents: %w", unix.EINTR)
	err := wrapErrno("getevents", inner)
	if err.Errno != unix.EINTR {
		t.Errorf("errno %v, want EINTR", err.Errno)
	}
	if !IsErrno(err, unix.EINTR) {
		t.Error("IsErrno should see through the wrapping")
	}
}

func TestWrapErrnoNonErrno(t *testing.T) {
	err := wrapErrno("cleanup", errors.New("mapping gone"))
	if err.Code != ErrCodeIOError {
		t.Errorf("code %q, want %q", err.Code, ErrCodeIOError)
	}
	if err.Errno != 0 {
		t.Errorf("errno %v, want none", err.Errno)
	}
}

func TestCapabilityError(t *testing.T) {
	err := capabilityError("post_init", "polling priority", unix.ENOSYS)
	if !IsCode(err, ErrCodeCapability) {
		t.Error("capability code not set")
	}
	if err.Feature != "polling priority" {
		t.Errorf("feature %q", err.Feature)
	}
	if !strings.Contains(err.Error(), "polling priority") {
		t.Errorf("feature missing from message %q", err.Error())
	}
}

func TestIsMatchesByCode(t *testing.T) {
	a := newError("commit", ErrCodeStalled, "wedged")
	b := newError("getevents", ErrCodeStalled, "")
	if !errors.Is(a, b) {
		t.Error("same code should match")
	}
	c := newError("commit", ErrCodeIOError, "")
	if errors.Is(a, c) {
		t.Error("different codes must not match")
	}
}

func TestIsCodeOnWrappedError(t *testing.T) {
	base := newError("commit", ErrCodeStalled, "wedged")
	wrapped := fmt.Errorf("run aborted: %w", base)
	if !IsCode(wrapped, ErrCodeStalled) {
		t.Error("IsCode should see through fmt wrapping")
	}
	if IsCode(nil, ErrCodeStalled) {
		t.Error("nil carries no code")
	}
}
