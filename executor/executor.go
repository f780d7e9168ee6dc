// Package executor runs calls in isolated worker processes and turns their
// reports into execution results.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/skylenet/tafelrunde/internal/rusage"
	"github.com/skylenet/tafelrunde/payload"
	"github.com/skylenet/tafelrunde/result"
	"github.com/skylenet/tafelrunde/worker"
)

// Config contains configuration for the executor.
type Config struct {
	// Path is the worker binary. Empty means the running executable, which
	// must serve the worker role through worker.Main.
	Path string
	// Args are passed to the worker binary.
	Args []string
	// Env is appended to the controller's environment for every worker.
	Env []string
	// Stdout and Stderr receive the worker's standard output streams.
	Stdout io.Writer
	Stderr io.Writer
	// RunID correlates worker logs with the controller run.
	RunID string
}

// DefaultConfig returns sensible defaults for the executor.
func DefaultConfig() Config {
	return Config{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Executor runs one call per worker process.
type Executor interface {
	// Run executes the call named by target in a fresh worker and blocks until
	// the worker has terminated. A call that fails inside the body is reported
	// through the result. A worker that produces no usable payload yields a
	// result with StatusProtocolFailure together with a *ProtocolError.
	Run(ctx context.Context, target worker.Target) (*result.ExecutionResult, error)
}

// executor implements Executor.
type executor struct {
	log    logrus.FieldLogger
	config Config
	parser *payload.Parser
}

// NewExecutor creates a new process executor.
func NewExecutor(log logrus.FieldLogger, config Config) Executor {
	return &executor{
		log:    log.WithField("component", "executor"),
		config: config,
		parser: payload.NewParser(log),
	}
}

// Run executes the call named by target in a fresh worker.
func (e *executor) Run(ctx context.Context, target worker.Target) (*result.ExecutionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("call %s not started: %w", target.Identifier, err)
	}
	if target.RunID == "" {
		target.RunID = e.config.RunID
	}

	res := &result.ExecutionResult{ID: target.Identifier, ExitCode: -1}

	path := e.config.Path
	if path == "" {
		exe, err := os.Executable()
		if err != nil {
			return e.protocolFailure(res, "", fmt.Errorf("failed to locate worker binary: %w", err))
		}
		path = exe
	}

	r, w, err := os.Pipe()
	if err != nil {
		return e.protocolFailure(res, "", fmt.Errorf("failed to create pipe: %w", err))
	}

	cmd := exec.Command(path, e.config.Args...)
	cmd.Env = append(append(os.Environ(), e.config.Env...), target.Environ()...)
	cmd.ExtraFiles = []*os.File{w}
	cmd.Stdout = e.config.Stdout
	cmd.Stderr = e.config.Stderr

	if err := cmd.Start(); err != nil {
		r.Close()
		w.Close()
		return e.protocolFailure(res, "", fmt.Errorf("failed to start worker: %w", err))
	}
	// The worker holds the only write end from here on; EOF on r means it is gone.
	w.Close()

	log := e.log.WithFields(logrus.Fields{
		"id":  target.Identifier,
		"pid": cmd.Process.Pid,
	})
	log.Debug("Worker started")

	// Drain while waiting so a payload larger than the pipe buffer cannot block the worker.
	var data []byte
	var g errgroup.Group
	g.Go(func() error {
		defer r.Close()
		var err error
		data, err = io.ReadAll(r)
		return err
	})

	waitErr := cmd.Wait()
	readErr := g.Wait()

	ps := cmd.ProcessState
	if ps == nil {
		return e.protocolFailure(res, "", fmt.Errorf("failed to wait for worker: %w", waitErr))
	}
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		log.WithError(waitErr).Warn("Worker wait reported an error")
	}

	res.ExitCode = ps.ExitCode()
	usage, err := rusage.FromProcessState(ps)
	if err != nil {
		log.WithError(err).Warn("Worker resource usage unavailable")
	}
	res.UserTime = usage.User
	res.SysTime = usage.Sys
	res.PeakRSS = usage.MaxRSS

	if readErr != nil {
		return e.protocolFailure(res, ps.String(), fmt.Errorf("failed to read payload: %w", readErr))
	}

	pl, err := e.parser.Parse(data)
	if err != nil {
		return e.protocolFailure(res, ps.String(), err)
	}
	if pl.ExitCode() != res.ExitCode {
		return e.protocolFailure(res, ps.String(),
			fmt.Errorf("exit code %d does not match payload status %q", res.ExitCode, pl.Status))
	}

	res.WallTime = pl.Elapsed()
	res.BaselineRSS = pl.BaselineRSS
	if res.PeakRSS > 0 {
		res.MemoryDelta = res.PeakRSS - pl.BaselineRSS
	}

	if pl.IsSuccess() {
		res.Status = result.StatusSuccess
	} else {
		res.Status = result.StatusFailure
		res.Failure = result.NewFailureDetail(pl.Exception, pl.Locals)
	}

	log.WithFields(logrus.Fields{
		"status":      res.Status,
		"wall":        res.WallTime,
		"user":        res.UserTime,
		"sys":         res.SysTime,
		"memoryDelta": res.MemoryDelta,
	}).Debug("Worker finished")

	return res, nil
}

func (e *executor) protocolFailure(res *result.ExecutionResult, state string, err error) (*result.ExecutionResult, error) {
	perr := &ProtocolError{
		ID:       res.ID,
		ExitCode: res.ExitCode,
		State:    state,
		Err:      err,
	}
	res.Status = result.StatusProtocolFailure
	res.ProtocolError = perr.Error()
	res.Failure = nil
	res.WallTime = 0
	res.MemoryDelta = 0

	e.log.WithError(err).WithFields(logrus.Fields{
		"id":       res.ID,
		"exitCode": res.ExitCode,
	}).Error("Worker protocol failure")

	return res, perr
}

// Verify interface compliance.
var _ Executor = (*executor)(nil)
