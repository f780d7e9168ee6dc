// Package suite groups benchmarks under one name and runs them in
// registration order.
package suite

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/skylenet/tafelrunde/benchmark"
	"github.com/skylenet/tafelrunde/callable"
	"github.com/skylenet/tafelrunde/executor"
	"github.com/skylenet/tafelrunde/plan"
	"github.com/skylenet/tafelrunde/worker"
)

// DefaultVersion is printed when no version is configured.
const DefaultVersion = "1"

// Suite is a named, ordered collection of benchmarks.
type Suite struct {
	name         string
	version      string
	log          logrus.FieldLogger
	filler       plan.Filler
	exec         executor.Executor
	runnerConfig benchmark.RunnerConfig

	benchmarks []*benchmark.Benchmark
	byName     map[string]*benchmark.Benchmark
}

// New creates an empty suite.
func New(name string, opts ...Option) *Suite {
	s := &Suite{
		name:         name,
		version:      DefaultVersion,
		runnerConfig: benchmark.DefaultRunnerConfig(),
		byName:       make(map[string]*benchmark.Benchmark),
	}
	for _, opt := range opts {
		opt.apply(s)
	}
	if s.log == nil {
		l := logrus.New()
		l.SetOutput(os.Stderr)
		s.log = l
	}
	return s
}

// Name returns the suite name.
func (s *Suite) Name() string {
	return s.name
}

// Version returns the suite version.
func (s *Suite) Version() string {
	return s.version
}

// Filler returns the suite's argument filler, or nil.
func (s *Suite) Filler() plan.Filler {
	return s.filler
}

// Apply configures an existing suite.
func (s *Suite) Apply(opts ...Option) {
	for _, opt := range opts {
		opt.apply(s)
	}
}

// Register adds a benchmark named name measuring body. A name can only be
// registered once; a duplicate leaves the first registration untouched.
func (s *Suite) Register(name string, body callable.Callable) (*benchmark.Benchmark, error) {
	if _, ok := s.byName[name]; ok {
		return nil, &benchmark.ConfigurationError{
			Benchmark: name,
			Reason:    fmt.Sprintf("name already used in suite %s", s.name),
		}
	}
	b := benchmark.New(name, body)
	s.benchmarks = append(s.benchmarks, b)
	s.byName[name] = b
	return b, nil
}

// Add registers body under its own name.
func (s *Suite) Add(body callable.Callable) (*benchmark.Benchmark, error) {
	return s.Register(body.Name, body)
}

// Benchmark returns the benchmark registered under name.
func (s *Suite) Benchmark(name string) (*benchmark.Benchmark, bool) {
	b, ok := s.byName[name]
	return b, ok
}

// Benchmarks returns the benchmarks in registration order.
func (s *Suite) Benchmarks() []*benchmark.Benchmark {
	return append([]*benchmark.Benchmark(nil), s.benchmarks...)
}

// Prepare prepares every benchmark. All configuration errors are reported
// together.
func (s *Suite) Prepare() error {
	var errs []error
	for _, b := range s.benchmarks {
		if err := b.Prepare(s.filler); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run prepares the suite and runs every benchmark in registration order. No
// worker is started when preparation fails. Protocol failures of individual
// calls do not stop the run; they are returned joined after the last call.
func (s *Suite) Run(ctx context.Context) ([]*benchmark.Outcome, error) {
	if err := s.Prepare(); err != nil {
		return nil, err
	}

	out := s.runnerConfig.Output
	if out == nil {
		out = io.Discard
	}
	fmt.Fprintf(out, "Running benchmark suite %s (version %s)\n", s.name, s.version)
	fmt.Fprintln(out, strings.Repeat("-", 40))

	log := s.log.WithField("suite", s.name)
	runner := benchmark.NewRunner(log, s.executor(), s.runnerConfig)

	var (
		outcomes []*benchmark.Outcome
		errs     []error
	)
	for _, b := range s.benchmarks {
		fmt.Fprintf(out, "Running benchmark %s\n", b.Name())
		fmt.Fprintln(out, strings.Repeat("-", 30))

		outcome, err := runner.Run(ctx, b)
		if err != nil {
			return outcomes, fmt.Errorf("suite %s: %w", s.name, err)
		}
		outcomes = append(outcomes, outcome)
		errs = append(errs, outcome.Errors...)
	}

	log.WithFields(logrus.Fields{
		"benchmarks":       len(outcomes),
		"protocolFailures": len(errs),
	}).Info("Suite completed")

	return outcomes, errors.Join(errs...)
}

// Resolve implements worker.Resolver. It prepares the named benchmark the
// same way the controller did, so index and identifier agree.
func (s *Suite) Resolve(name string, index int) (callable.Callable, plan.Binding, string, error) {
	b, ok := s.byName[name]
	if !ok {
		return callable.Callable{}, plan.Binding{}, "", fmt.Errorf("%w: %s", worker.ErrUnknownBenchmark, name)
	}
	if err := b.Prepare(s.filler); err != nil {
		return callable.Callable{}, plan.Binding{}, "", err
	}

	calls := b.Calls()
	if index < 0 || index >= len(calls) {
		return callable.Callable{}, plan.Binding{}, "", fmt.Errorf("%w: %s has %d calls, got index %d",
			worker.ErrUnknownCall, name, len(calls), index)
	}
	return b.Body(), calls[index], b.Identifiers()[index], nil
}

// ServeWorker serves the worker role and exits when the process was started
// as a worker. Otherwise it returns immediately. Programs call it after the
// suite is fully registered and before anything else.
func (s *Suite) ServeWorker() {
	worker.Main(s.log.WithField("suite", s.name), s)
}

// HasExecutor reports whether an executor is set, either through
// WithExecutor or by a previous Run.
func (s *Suite) HasExecutor() bool {
	return s.exec != nil
}

func (s *Suite) executor() executor.Executor {
	if s.exec != nil {
		return s.exec
	}
	cfg := executor.DefaultConfig()
	cfg.RunID = s.runnerConfig.RunID
	s.exec = executor.NewExecutor(s.log, cfg)
	return s.exec
}

// Verify interface compliance.
var _ worker.Resolver = (*Suite)(nil)
