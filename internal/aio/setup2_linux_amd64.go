//go:build linux && amd64

package aio

// Syscall number of the extended io_setup variant accepting feature flags and
// a user descriptor table. Only present on kernels carrying the aio polling
// patch series; SetupExt reports ENOSYS everywhere else.
const sysIOSetup2 = 335
