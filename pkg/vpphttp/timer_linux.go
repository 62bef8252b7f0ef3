//go:build linux
// +build linux

package vpphttp

import "golang.org/x/sys/unix"

// monotonicNow returns nanoseconds on CLOCK_MONOTONIC, matching the
// epoch the original engine's timer wheel arithmetic is defined over.
// Mirrors the teacher's per-platform split for low-level primitives the
// stdlib doesn't expose directly (pkg/shockwave/socket/tuning_linux.go
// / tuning_darwin.go / tuning_other.go), reaching for
// golang.org/x/sys/unix here instead of syscall since unix.ClockGettime
// is the pack's preferred entry point for raw clock reads
// (nabbar-golib uses the same package for platform time/signal
// plumbing).
func monotonicNow() int64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}
	return ts.Nano()
}
