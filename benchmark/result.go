package benchmark

import (
	"errors"
	"time"

	"github.com/skylenet/tafelrunde/metrics"
)

// Outcome represents the result of running one benchmark.
type Outcome struct {
	Benchmark string
	Calls     int
	Summary   *metrics.Summary

	// Warmup info
	WarmupExecuted bool
	WarmupDuration time.Duration

	// Errors holds the protocol failures of individual calls.
	Errors []error
}

// IsValid returns true if every call produced a usable report.
func (o *Outcome) IsValid() bool {
	return len(o.Errors) == 0 && o.Summary != nil
}

// Err joins the protocol failures, or returns nil.
func (o *Outcome) Err() error {
	return errors.Join(o.Errors...)
}
