// Package worker implements the child side of an isolated call: it resolves
// the body and binding to run, measures the call and writes a payload to the
// inherited pipe.
package worker

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/skylenet/tafelrunde/callable"
	"github.com/skylenet/tafelrunde/plan"
)

// Environment variables that turn a process into a worker.
const (
	EnvBenchmark = "TAFEL_WORKER_BENCHMARK"
	EnvCall      = "TAFEL_WORKER_CALL"
	EnvDigest    = "TAFEL_WORKER_DIGEST"
	EnvRunID     = "TAFEL_WORKER_RUN"
)

// PayloadFD is the file descriptor the payload is written to. It is the
// first entry of exec.Cmd.ExtraFiles in the controller.
const PayloadFD = 3

var (
	// ErrUnknownBenchmark indicates the worker was asked for a benchmark that is not registered.
	ErrUnknownBenchmark = errors.New("unknown benchmark")

	// ErrUnknownCall indicates the call index is outside the benchmark's bindings.
	ErrUnknownCall = errors.New("unknown call")

	// ErrBindingMismatch indicates the worker resolved a different binding than the controller planned.
	ErrBindingMismatch = errors.New("call binding mismatch")
)

// Target names the call a worker executes. Identifier stays with the
// controller; the worker checks the binding it resolves against Digest.
type Target struct {
	Benchmark  string
	Index      int
	Identifier string
	Digest     string
	RunID      string
}

// Environ returns the environment entries that hand t to a worker.
func (t Target) Environ() []string {
	env := []string{
		EnvBenchmark + "=" + t.Benchmark,
		EnvCall + "=" + strconv.Itoa(t.Index),
	}
	if t.Digest != "" {
		env = append(env, EnvDigest+"="+t.Digest)
	}
	if t.RunID != "" {
		env = append(env, EnvRunID+"="+t.RunID)
	}
	return env
}

// TargetFromEnv reads a target from the environment. ok is false when the
// process was not started as a worker.
func TargetFromEnv(lookup func(string) (string, bool)) (t Target, ok bool, err error) {
	bench, ok := lookup(EnvBenchmark)
	if !ok {
		return Target{}, false, nil
	}
	t.Benchmark = bench
	t.Digest, _ = lookup(EnvDigest)
	t.RunID, _ = lookup(EnvRunID)

	raw, _ := lookup(EnvCall)
	t.Index, err = strconv.Atoi(raw)
	if err != nil {
		return t, true, fmt.Errorf("invalid %s %q: %w", EnvCall, raw, err)
	}
	return t, true, nil
}

// Requested reports whether the current process was started as a worker.
func Requested() bool {
	_, ok := os.LookupEnv(EnvBenchmark)
	return ok
}

// Resolver maps a target back to the body and binding it names. The
// binding returned must have the digest the controller computed for the
// same call.
type Resolver interface {
	Resolve(benchmark string, index int) (body callable.Callable, binding plan.Binding, identifier string, err error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(benchmark string, index int) (callable.Callable, plan.Binding, string, error)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(benchmark string, index int) (callable.Callable, plan.Binding, string, error) {
	return f(benchmark, index)
}
