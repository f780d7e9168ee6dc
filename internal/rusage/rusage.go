// Package rusage reads operating-system resource accounting for the current
// process and for terminated child processes.
package rusage

import (
	"errors"
	"time"
)

// ErrUnsupported indicates resource accounting is not available on this system.
var ErrUnsupported = errors.New("resource usage not supported")

// Usage is a normalised resource usage record.
type Usage struct {
	User   time.Duration // user CPU time
	Sys    time.Duration // system CPU time
	MaxRSS int64         // peak resident set size in bytes
}
