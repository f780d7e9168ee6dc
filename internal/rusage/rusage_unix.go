//go:build unix

package rusage

import (
	"fmt"
	"os"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Self returns the resource usage of the calling process.
func Self() (Usage, error) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return Usage{}, fmt.Errorf("getrusage: %w", err)
	}
	return Usage{
		User:   time.Duration(ru.Utime.Nano()),
		Sys:    time.Duration(ru.Stime.Nano()),
		MaxRSS: maxRSSBytes(int64(ru.Maxrss)),
	}, nil
}

// FromProcessState returns the resource usage the kernel recorded for a
// terminated child process.
func FromProcessState(ps *os.ProcessState) (Usage, error) {
	if ps == nil {
		return Usage{}, fmt.Errorf("%w: process has not exited", ErrUnsupported)
	}
	ru, ok := ps.SysUsage().(*syscall.Rusage)
	if !ok || ru == nil {
		return Usage{}, fmt.Errorf("%w: no rusage for pid %d", ErrUnsupported, ps.Pid())
	}
	return Usage{
		User:   ps.UserTime(),
		Sys:    ps.SystemTime(),
		MaxRSS: maxRSSBytes(int64(ru.Maxrss)),
	}, nil
}

// maxRSSBytes converts ru_maxrss to bytes. Darwin reports bytes, the other
// unix kernels report kilobytes.
func maxRSSBytes(v int64) int64 {
	switch runtime.GOOS {
	case "darwin", "ios":
		return v
	default:
		return v * 1024
	}
}
