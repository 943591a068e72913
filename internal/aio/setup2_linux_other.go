//go:build linux && !amd64

package aio

// The extended setup syscall number is only known for amd64; zero makes
// SetupExt report ENOSYS so callers fall back or fail by feature.
const sysIOSetup2 = 0
