package worker

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skylenet/tafelrunde/callable"
	"github.com/skylenet/tafelrunde/payload"
	"github.com/skylenet/tafelrunde/plan"
)

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

var (
	add = callable.New("add", func(args *callable.Args) error {
		_ = args.Int("a") + args.Int("b")
		return nil
	}, callable.Free("a"), callable.Free("b"))

	divide = callable.New("divide", func(args *callable.Args) error {
		_ = 10 / (args.Int("a") - 5)
		return nil
	}, callable.Free("a"))

	errSentinel = errors.New("sentinel")

	failing = callable.New("failing", func(args *callable.Args) error {
		args.Keep("acc", []int{1, 2, 3})
		args.Keep("fn", func() {})
		return fmt.Errorf("step %d: %w", args.Int("n"), errSentinel)
	}, callable.Free("n"), callable.Defaulted("scale", 2))
)

func bind(values map[string]any) plan.Binding {
	return plan.FromMap(values)
}

func TestExecuteSuccess(t *testing.T) {
	pl := Execute(add, bind(map[string]any{"a": 1, "b": 2}))

	assert.Equal(t, payload.StatusSuccess, pl.Status)
	assert.Nil(t, pl.Exception)
	assert.Nil(t, pl.Locals)
	assert.GreaterOrEqual(t, pl.ElapsedNS, int64(0))
	assert.Equal(t, payload.ExitSuccess, pl.ExitCode())
}

func TestExecuteDivideByZero(t *testing.T) {
	pl := Execute(divide, bind(map[string]any{"a": 5}))

	require.Equal(t, payload.StatusException, pl.Status)
	require.NotNil(t, pl.Exception)
	assert.Equal(t, payload.KindRuntime, pl.Exception.Kind)
	assert.True(t, strings.HasPrefix(pl.Exception.TypeName, "runtime."), pl.Exception.TypeName)
	assert.Contains(t, pl.Exception.Message, "divide by zero")
	assert.Contains(t, pl.Exception.Traceback, "panic: ")
	assert.Contains(t, pl.Exception.Traceback, "goroutine")
	require.Len(t, pl.Locals, 1)
	assert.Equal(t, "5", pl.Locals["a"].String())
}

func TestExecuteReturnedError(t *testing.T) {
	pl := Execute(failing, bind(map[string]any{"n": 4}))

	require.Equal(t, payload.StatusException, pl.Status)
	assert.Equal(t, payload.KindError, pl.Exception.Kind)
	assert.Equal(t, "*fmt.wrapError", pl.Exception.TypeName)
	assert.Equal(t, "step 4: sentinel", pl.Exception.Message)
	assert.Contains(t, pl.Exception.Traceback, "caused by *errors.errorString: sentinel")

	// n, scale, acc, fn are all visible at the failure point.
	require.Len(t, pl.Locals, 4)
	assert.Equal(t, "[1,2,3]", pl.Locals["acc"].String())
	assert.Equal(t, "2", pl.Locals["scale"].String())
	assert.True(t, pl.Locals["fn"].IsText())
}

func TestExecutePanicValue(t *testing.T) {
	body := callable.New("boom", func(*callable.Args) error {
		panic("boom")
	})

	pl := Execute(body, plan.NewBinding(nil, nil))
	require.NotNil(t, pl.Exception)
	assert.Equal(t, payload.KindPanic, pl.Exception.Kind)
	assert.Equal(t, "string", pl.Exception.TypeName)
	assert.Empty(t, pl.Locals)
}

func TestExecuteKeepsPanickingMarshalerAsText(t *testing.T) {
	body := callable.New("keep", func(args *callable.Args) error {
		args.Keep("m", panickingMarshaler{})
		return errSentinel
	})

	pl := Execute(body, plan.NewBinding(nil, nil))
	require.Contains(t, pl.Locals, "m")
	assert.True(t, pl.Locals["m"].IsText())
	assert.Contains(t, pl.Locals["m"].Repr, "panickingMarshaler")
}

type panickingMarshaler struct{}

func (panickingMarshaler) MarshalJSON() ([]byte, error) { panic("no") }

func testResolver(calls map[string][]plan.Binding, bodies map[string]callable.Callable) Resolver {
	return ResolverFunc(func(bench string, index int) (callable.Callable, plan.Binding, string, error) {
		body, ok := bodies[bench]
		if !ok {
			return callable.Callable{}, plan.Binding{}, "", fmt.Errorf("%w: %s", ErrUnknownBenchmark, bench)
		}
		if index < 0 || index >= len(calls[bench]) {
			return callable.Callable{}, plan.Binding{}, "", fmt.Errorf("%w: %d", ErrUnknownCall, index)
		}
		b := calls[bench][index]
		return body, b, b.Label(bench), nil
	})
}

func TestServe(t *testing.T) {
	resolver := testResolver(
		map[string][]plan.Binding{
			"add":    {bind(map[string]any{"a": 1, "b": 2})},
			"divide": {bind(map[string]any{"a": 5})},
		},
		map[string]callable.Callable{"add": add, "divide": divide},
	)
	parser := payload.NewParser(quietLogger())

	tests := []struct {
		name       string
		target     Target
		wantCode   int
		wantStatus payload.Status
	}{
		{name: "success", target: Target{Benchmark: "add", Index: 0, Digest: bind(map[string]any{"a": 1, "b": 2}).Digest()}, wantCode: payload.ExitSuccess, wantStatus: payload.StatusSuccess},
		{name: "exception", target: Target{Benchmark: "divide", Index: 0}, wantCode: payload.ExitException, wantStatus: payload.StatusException},
		{name: "unknown benchmark", target: Target{Benchmark: "nope"}, wantCode: payload.ExitProtocol},
		{name: "unknown call", target: Target{Benchmark: "add", Index: 4}, wantCode: payload.ExitProtocol},
		{name: "binding mismatch", target: Target{Benchmark: "add", Index: 0, Digest: bind(map[string]any{"a": 9, "b": 9}).Digest()}, wantCode: payload.ExitProtocol},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			code := Serve(quietLogger(), resolver, tt.target, &out)
			assert.Equal(t, tt.wantCode, code)

			if tt.wantCode == payload.ExitProtocol {
				assert.Zero(t, out.Len())
				return
			}
			pl, err := parser.Parse(out.Bytes())
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, pl.Status)
		})
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestServeWriteFailure(t *testing.T) {
	resolver := testResolver(
		map[string][]plan.Binding{"add": {bind(map[string]any{"a": 1, "b": 2})}},
		map[string]callable.Callable{"add": add},
	)
	code := Serve(quietLogger(), resolver, Target{Benchmark: "add"}, failingWriter{})
	assert.Equal(t, payload.ExitProtocol, code)
}

func TestTargetEnvironmentRoundTrip(t *testing.T) {
	in := Target{Benchmark: "add", Index: 3, Digest: bind(map[string]any{"a": 1, "b": 2}).Digest(), RunID: "run-1"}

	env := make(map[string]string)
	for _, kv := range in.Environ() {
		k, v, _ := strings.Cut(kv, "=")
		env[k] = v
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	out, ok, err := TargetFromEnv(lookup)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, in, out)

	in.Identifier = "add[1][2]"
	for _, kv := range in.Environ() {
		assert.NotContains(t, kv, in.Identifier)
	}
}

func TestTargetFromEnvAbsentOrInvalid(t *testing.T) {
	_, ok, err := TargetFromEnv(func(string) (string, bool) { return "", false })
	assert.False(t, ok)
	assert.NoError(t, err)

	_, ok, err = TargetFromEnv(func(k string) (string, bool) {
		if k == EnvCall {
			return "x", true
		}
		return "bench", true
	})
	assert.True(t, ok)
	assert.Error(t, err)
}
