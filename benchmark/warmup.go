package benchmark

import (
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// WarmupConfig contains configuration for warmup execution.
type WarmupConfig struct {
	// Enabled controls whether warmup functions are run.
	Enabled bool
}

// DefaultWarmupConfig returns sensible defaults for warmup.
func DefaultWarmupConfig() WarmupConfig {
	return WarmupConfig{Enabled: true}
}

// WarmupResult contains the results of warmup execution.
type WarmupResult struct {
	// Executed indicates whether warmup was actually run.
	Executed bool
	// Duration is the time the warmup function took.
	Duration time.Duration
}

// Warmup handles warmup phase execution.
type Warmup interface {
	// Execute runs fn once in the calling process. It is neither measured
	// nor isolated: a panic in fn propagates to the caller.
	Execute(fn func(), cfg WarmupConfig) *WarmupResult
}

// warmup implements Warmup.
type warmup struct {
	log logrus.FieldLogger
	out io.Writer
}

// NewWarmup creates a new warmup executor writing progress to out.
func NewWarmup(log logrus.FieldLogger, out io.Writer) Warmup {
	if out == nil {
		out = io.Discard
	}
	return &warmup{
		log: log.WithField("component", "warmup"),
		out: out,
	}
}

// Execute runs the warmup function once.
func (w *warmup) Execute(fn func(), cfg WarmupConfig) *WarmupResult {
	result := &WarmupResult{}

	if !cfg.Enabled || fn == nil {
		w.log.Debug("Warmup skipped (disabled or no warmup function)")
		return result
	}

	fmt.Fprint(w.out, "(warmup... ")
	start := time.Now()
	fn()
	result.Duration = time.Since(start)
	result.Executed = true
	fmt.Fprintf(w.out, "done in %.5f s)\n", result.Duration.Seconds())

	w.log.WithField("duration", result.Duration).Info("Warmup completed")

	return result
}

// Verify interface compliance.
var _ Warmup = (*warmup)(nil)
