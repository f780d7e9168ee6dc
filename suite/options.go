package suite

import (
	"github.com/sirupsen/logrus"

	"github.com/skylenet/tafelrunde/benchmark"
	"github.com/skylenet/tafelrunde/executor"
	"github.com/skylenet/tafelrunde/plan"
)

// Option configures a suite.
type Option interface {
	apply(s *Suite)
}

type optionFunc func(s *Suite)

func (fn optionFunc) apply(s *Suite) { fn(s) }

// WithVersion sets the version printed in the suite header.
func WithVersion(version string) Option {
	return optionFunc(func(s *Suite) {
		s.version = version
	})
}

// WithArgFiller sets the filler used for benchmarks that have free
// parameters, no registered calls and no filler of their own.
func WithArgFiller(f plan.Filler) Option {
	return optionFunc(func(s *Suite) {
		s.filler = f
	})
}

// WithExecutor replaces the executor that starts workers.
func WithExecutor(e executor.Executor) Option {
	return optionFunc(func(s *Suite) {
		s.exec = e
	})
}

// WithLogger sets the logger of the suite and everything it runs.
func WithLogger(log logrus.FieldLogger) Option {
	return optionFunc(func(s *Suite) {
		s.log = log
	})
}

// WithRunnerConfig sets the configuration handed to every benchmark runner.
func WithRunnerConfig(cfg benchmark.RunnerConfig) Option {
	return optionFunc(func(s *Suite) {
		s.runnerConfig = cfg
	})
}

// Bundle combines options.
func Bundle(option ...Option) Option {
	return optionFunc(func(s *Suite) {
		for _, opt := range option {
			opt.apply(s)
		}
	})
}
