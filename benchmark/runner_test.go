package benchmark

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skylenet/tafelrunde/callable"
	"github.com/skylenet/tafelrunde/executor"
	"github.com/skylenet/tafelrunde/result"
	"github.com/skylenet/tafelrunde/worker"
)

// fakeExecutor answers from a table instead of starting workers.
type fakeExecutor struct {
	targets []worker.Target
	answer  func(worker.Target) (*result.ExecutionResult, error)
}

func (f *fakeExecutor) Run(ctx context.Context, t worker.Target) (*result.ExecutionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.targets = append(f.targets, t)
	return f.answer(t)
}

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func preparedAddUp(t *testing.T) *Benchmark {
	t.Helper()
	b := New("add_up", addUp())
	b.AddCall(map[string]any{"a": 1, "b": 2})
	b.AddCall(map[string]any{"a": 5, "b": 0})
	b.AddCall(map[string]any{"a": 3, "b": 3})
	require.NoError(t, b.Prepare(nil))
	return b
}

func TestRunnerRunsCallsInOrder(t *testing.T) {
	fake := &fakeExecutor{answer: func(t worker.Target) (*result.ExecutionResult, error) {
		res := &result.ExecutionResult{ID: t.Identifier, Status: result.StatusSuccess, WallTime: time.Millisecond}
		if t.Index == 1 {
			res.Status = result.StatusFailure
			res.ExitCode = 1
			res.Failure = &result.FailureDetail{TypeName: "*errors.errorString", Kind: "error", Message: "boom", Traceback: "error chain:\n  boom"}
		}
		return res, nil
	}}

	b := preparedAddUp(t)
	var out bytes.Buffer
	cfg := DefaultRunnerConfig()
	cfg.Output = &out
	cfg.RunID = "run-1"

	outcome, err := NewRunner(quietLogger(), fake, cfg).Run(context.Background(), b)
	require.NoError(t, err)

	require.Len(t, fake.targets, 3)
	for i, target := range fake.targets {
		assert.Equal(t, "add_up", target.Benchmark)
		assert.Equal(t, i, target.Index)
		assert.Equal(t, "run-1", target.RunID)
	}
	assert.Equal(t, []string{"add_up[1][2]", "add_up[5][0]", "add_up[3][3]"}, b.Results().Keys())

	assert.True(t, outcome.IsValid())
	assert.NoError(t, outcome.Err())
	assert.Equal(t, 3, outcome.Summary.Calls)
	assert.Equal(t, 1, outcome.Summary.Failed)

	assert.Contains(t, out.String(), "add_up[1][2]\n")
	assert.Contains(t, out.String(), "error chain:\n  boom")
}

func TestRunnerWarmupRunsOnceBeforeCalls(t *testing.T) {
	var events []string
	fake := &fakeExecutor{answer: func(t worker.Target) (*result.ExecutionResult, error) {
		events = append(events, "call")
		return &result.ExecutionResult{ID: t.Identifier, Status: result.StatusSuccess}, nil
	}}

	b := preparedAddUp(t)
	b.SetWarmup(func() { events = append(events, "warmup") })

	var out bytes.Buffer
	cfg := DefaultRunnerConfig()
	cfg.Output = &out

	outcome, err := NewRunner(quietLogger(), fake, cfg).Run(context.Background(), b)
	require.NoError(t, err)

	assert.Equal(t, []string{"warmup", "call", "call", "call"}, events)
	assert.True(t, outcome.WarmupExecuted)
	assert.Contains(t, out.String(), "(warmup... done in ")
}

func TestRunnerWarmupDisabled(t *testing.T) {
	fake := &fakeExecutor{answer: func(t worker.Target) (*result.ExecutionResult, error) {
		return &result.ExecutionResult{ID: t.Identifier, Status: result.StatusSuccess}, nil
	}}

	called := false
	b := preparedAddUp(t)
	b.SetWarmup(func() { called = true })

	cfg := DefaultRunnerConfig()
	cfg.Output = io.Discard
	cfg.Warmup.Enabled = false

	outcome, err := NewRunner(quietLogger(), fake, cfg).Run(context.Background(), b)
	require.NoError(t, err)
	assert.False(t, called)
	assert.False(t, outcome.WarmupExecuted)
}

func TestRunnerWarmupPanicPropagates(t *testing.T) {
	fake := &fakeExecutor{answer: func(t worker.Target) (*result.ExecutionResult, error) {
		return &result.ExecutionResult{ID: t.Identifier, Status: result.StatusSuccess}, nil
	}}

	b := preparedAddUp(t)
	b.SetWarmup(func() { panic("warmup failed") })

	cfg := DefaultRunnerConfig()
	cfg.Output = io.Discard
	r := NewRunner(quietLogger(), fake, cfg)

	assert.PanicsWithValue(t, "warmup failed", func() {
		_, _ = r.Run(context.Background(), b)
	})
	assert.Empty(t, fake.targets)
}

func TestRunnerCollectsProtocolFailures(t *testing.T) {
	fake := &fakeExecutor{answer: func(t worker.Target) (*result.ExecutionResult, error) {
		if t.Index == 0 {
			perr := &executor.ProtocolError{ID: t.Identifier, ExitCode: 2, Err: errors.New("empty payload")}
			return &result.ExecutionResult{ID: t.Identifier, Status: result.StatusProtocolFailure, ExitCode: 2, ProtocolError: perr.Error()}, perr
		}
		return &result.ExecutionResult{ID: t.Identifier, Status: result.StatusSuccess}, nil
	}}

	b := preparedAddUp(t)
	cfg := DefaultRunnerConfig()
	cfg.Output = io.Discard

	outcome, err := NewRunner(quietLogger(), fake, cfg).Run(context.Background(), b)
	require.NoError(t, err)

	assert.Len(t, fake.targets, 3)
	assert.False(t, outcome.IsValid())
	assert.ErrorIs(t, outcome.Err(), executor.ErrProtocol)
	assert.Equal(t, 1, outcome.Summary.ProtocolFailures)

	res, ok := b.Results().Get("add_up[1][2]")
	require.True(t, ok)
	assert.True(t, res.IsProtocolFailure())
}

func TestRunnerStopsOnCanceledContext(t *testing.T) {
	fake := &fakeExecutor{answer: func(t worker.Target) (*result.ExecutionResult, error) {
		return &result.ExecutionResult{ID: t.Identifier, Status: result.StatusSuccess}, nil
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := DefaultRunnerConfig()
	cfg.Output = io.Discard

	_, err := NewRunner(quietLogger(), fake, cfg).Run(ctx, preparedAddUp(t))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fake.targets)
}

func TestRunnerIdenticalCallsKeepLatestResult(t *testing.T) {
	fake := &fakeExecutor{answer: func(t worker.Target) (*result.ExecutionResult, error) {
		return &result.ExecutionResult{ID: t.Identifier, Status: result.StatusSuccess, WallTime: time.Duration(t.Index + 1)}, nil
	}}

	b := New("add_up", addUp())
	b.AddCall(map[string]any{"a": 1, "b": 2})
	b.AddCall(map[string]any{"a": 1, "b": 2})
	require.NoError(t, b.Prepare(nil))

	cfg := DefaultRunnerConfig()
	cfg.Output = io.Discard

	_, err := NewRunner(quietLogger(), fake, cfg).Run(context.Background(), b)
	require.NoError(t, err)

	assert.Equal(t, 1, b.Results().Len())
	res, _ := b.Results().Get("add_up[1][2]")
	assert.Equal(t, time.Duration(2), res.WallTime)
}

func TestRunnerRequiresPreparedBenchmark(t *testing.T) {
	b := New("add_up", callable.New("add_up", func(*callable.Args) error { return nil }, callable.Free("a")))
	_, err := NewRunner(quietLogger(), &fakeExecutor{}, DefaultRunnerConfig()).Run(context.Background(), b)
	assert.ErrorIs(t, err, ErrConfiguration)
}
