package benchmark

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/skylenet/tafelrunde/executor"
	"github.com/skylenet/tafelrunde/metrics"
	"github.com/skylenet/tafelrunde/worker"
)

// RunnerConfig contains configuration for the benchmark runner.
type RunnerConfig struct {
	// Warmup configures the warmup phase.
	Warmup WarmupConfig
	// Output receives the human-readable progress of every call.
	Output io.Writer
	// RunID is handed to every worker for log correlation.
	RunID string
}

// DefaultRunnerConfig returns sensible defaults for the runner.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Warmup: DefaultWarmupConfig(),
		Output: os.Stdout,
	}
}

// Runner executes the calls of a prepared benchmark.
type Runner interface {
	// Run executes every call of b in registration order, one worker at a
	// time, and stores the results in b.Results().
	Run(ctx context.Context, b *Benchmark) (*Outcome, error)
}

// runner implements Runner.
type runner struct {
	log        logrus.FieldLogger
	exec       executor.Executor
	config     RunnerConfig
	calculator *metrics.Calculator
}

// NewRunner creates a new benchmark runner.
func NewRunner(log logrus.FieldLogger, exec executor.Executor, config RunnerConfig) Runner {
	if config.Output == nil {
		config.Output = io.Discard
	}
	return &runner{
		log:        log.WithField("component", "runner"),
		exec:       exec,
		config:     config,
		calculator: metrics.NewCalculator(),
	}
}

// Run executes every call of b.
func (r *runner) Run(ctx context.Context, b *Benchmark) (*Outcome, error) {
	calls := b.Calls()
	ids := b.Identifiers()
	outcome := &Outcome{Benchmark: b.Name(), Calls: len(calls)}

	if len(calls) == 0 {
		return outcome, configErrorf(b.Name(), "no calls registered; prepare the benchmark first")
	}

	log := r.log.WithField("benchmark", b.Name())
	log.WithField("calls", len(calls)).Info("Starting benchmark")

	if fn := b.Warmup(); fn != nil {
		w := NewWarmup(r.log, r.config.Output).Execute(fn, r.config.Warmup)
		outcome.WarmupExecuted = w.Executed
		outcome.WarmupDuration = w.Duration
	}

	out := r.config.Output
	for i := range calls {
		id := ids[i]
		fmt.Fprintln(out, id)

		res, err := r.exec.Run(ctx, worker.Target{
			Benchmark:  b.Name(),
			Index:      i,
			Identifier: id,
			Digest:     calls[i].Digest(),
			RunID:      r.config.RunID,
		})
		if res == nil {
			return outcome, fmt.Errorf("benchmark %s stopped before call %s: %w", b.Name(), id, err)
		}
		if err != nil {
			outcome.Errors = append(outcome.Errors, err)
			fmt.Fprintf(out, "protocol failure: %v\n", err)
		}

		if replaced := b.Results().Put(id, res); replaced {
			log.WithField("id", id).Warn("Identical call registered twice, keeping the latest result")
		}

		if res.Failure != nil {
			fmt.Fprintln(out, res.Failure.Traceback)
		}
		fmt.Fprintln(out, res.String())
	}

	outcome.Summary = r.calculator.Calculate(b.Results().Results())
	fmt.Fprint(out, outcome.Summary.ToDetails())

	log.WithFields(logrus.Fields{
		"calls":            outcome.Summary.Calls,
		"succeeded":        outcome.Summary.Succeeded,
		"failed":           outcome.Summary.Failed,
		"protocolFailures": outcome.Summary.ProtocolFailures,
		"wall":             outcome.Summary.WallTime,
		"warmup":           outcome.WarmupExecuted,
	}).Info("Benchmark completed")

	return outcome, nil
}

// Verify interface compliance.
var _ Runner = (*runner)(nil)
