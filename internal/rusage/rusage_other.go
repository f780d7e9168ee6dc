//go:build !unix

package rusage

import (
	"fmt"
	"os"
	"runtime"
)

// Self is not supported on non-unix systems.
func Self() (Usage, error) {
	return Usage{}, fmt.Errorf("%w: %s", ErrUnsupported, runtime.GOOS)
}

// FromProcessState falls back to CPU times only; peak memory is unknown.
func FromProcessState(ps *os.ProcessState) (Usage, error) {
	if ps == nil {
		return Usage{}, fmt.Errorf("%w: process has not exited", ErrUnsupported)
	}
	return Usage{User: ps.UserTime(), Sys: ps.SystemTime()}, nil
}
