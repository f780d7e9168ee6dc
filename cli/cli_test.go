package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skylenet/tafelrunde/benchmark"
	"github.com/skylenet/tafelrunde/callable"
	"github.com/skylenet/tafelrunde/plan"
	"github.com/skylenet/tafelrunde/report"
	"github.com/skylenet/tafelrunde/result"
	"github.com/skylenet/tafelrunde/suite"
	"github.com/skylenet/tafelrunde/worker"
)

// okExecutor reports success for every call without starting workers.
type okExecutor struct {
	targets []worker.Target
}

func (e *okExecutor) Run(_ context.Context, t worker.Target) (*result.ExecutionResult, error) {
	e.targets = append(e.targets, t)
	return &result.ExecutionResult{ID: t.Identifier, Status: result.StatusSuccess}, nil
}

func newTestSuite(t *testing.T, exec *okExecutor) *suite.Suite {
	t.Helper()
	s := suite.New("demo", suite.WithExecutor(exec))
	_, err := s.Add(callable.New("add_up", func(*callable.Args) error { return nil }, callable.Free("a"), callable.Free("b")))
	require.NoError(t, err)
	_, err = s.Add(callable.New("noop", func(*callable.Args) error { return nil }))
	require.NoError(t, err)
	return s
}

func writeScenarios(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "add_up.yaml"),
		[]byte("combinations:\n  - name: a\n    range: [0, 2]\n  - name: b\n    values: [10]\n"), 0o644))
	return dir
}

func execute(t *testing.T, s *suite.Suite, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand(s)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestListCommand(t *testing.T) {
	exec := &okExecutor{}
	out, err := execute(t, newTestSuite(t, exec), "list", "--log-level", "error", "--scenarios", writeScenarios(t))
	require.NoError(t, err)

	assert.Contains(t, out, "add_up (free parameters: [a b])\n  add_up[0][10]\n  add_up[1][10]\n")
	assert.Contains(t, out, "noop (free parameters: [])\n  noop\n")
	assert.Empty(t, exec.targets)
}

func TestRunCommandWritesReports(t *testing.T) {
	exec := &okExecutor{}
	dir := t.TempDir()
	reportPath := filepath.Join(dir, "report.json")
	textfilePath := filepath.Join(dir, "tafel.prom")

	var published atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		published.Add(1)
		assert.NotEmpty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	out, err := execute(t, newTestSuite(t, exec), "run",
		"--log-level", "error",
		"--scenarios", writeScenarios(t),
		"--report", reportPath,
		"--textfile", textfilePath,
		"--publish-url", srv.URL,
		"--publish-secret", "secret",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "Running benchmark suite demo (version 1)")
	require.Len(t, exec.targets, 3)
	assert.Equal(t, exec.targets[0].RunID, exec.targets[2].RunID)
	assert.NotEmpty(t, exec.targets[0].RunID)

	doc, err := report.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Equal(t, exec.targets[0].RunID, doc.RunID)
	assert.Len(t, doc.Benchmarks, 2)

	assert.FileExists(t, textfilePath)
	assert.Equal(t, int32(1), published.Load())
}

func TestScenariosFallBackToSuiteFiller(t *testing.T) {
	exec := &okExecutor{}
	s := newTestSuite(t, exec)
	s.Apply(suite.WithArgFiller(func(p *plan.Planner) {
		if p.HasFreeParameter("x") {
			p.AddCall(map[string]any{"x": 3})
		}
		if p.HasFreeParameter("a") {
			p.AddCall(map[string]any{"a": 7, "b": 7})
		}
	}))
	_, err := s.Add(callable.New("square", func(*callable.Args) error { return nil }, callable.Free("x")))
	require.NoError(t, err)

	out, err := execute(t, s, "list", "--log-level", "error", "--scenarios", writeScenarios(t))
	require.NoError(t, err)

	assert.Contains(t, out, "  add_up[0][10]\n  add_up[1][10]\n")
	assert.NotContains(t, out, "add_up[7][7]")
	assert.Contains(t, out, "square (free parameters: [x])\n  square[3]\n")
}

func TestRunCommandConfigurationError(t *testing.T) {
	exec := &okExecutor{}
	_, err := execute(t, newTestSuite(t, exec), "run", "--log-level", "error")
	assert.ErrorIs(t, err, benchmark.ErrConfiguration)
	assert.Empty(t, exec.targets)
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := execute(t, newTestSuite(t, &okExecutor{}), "list", "--log-level", "loud")
	assert.ErrorContains(t, err, "invalid --log-level")
}
