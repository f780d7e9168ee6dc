package benchmark

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skylenet/tafelrunde/callable"
	"github.com/skylenet/tafelrunde/plan"
)

func addUp() callable.Callable {
	return callable.New("add_up", func(args *callable.Args) error {
		_ = args.Int("a") + args.Int("b")
		return nil
	}, callable.Free("a"), callable.Free("b"), callable.Defaulted("scale", 1))
}

func TestPrepareWithoutFreeParameters(t *testing.T) {
	b := New("noop", callable.New("noop", func(*callable.Args) error { return nil }))
	require.NoError(t, b.Prepare(nil))
	assert.Equal(t, []string{"noop"}, b.Identifiers())
}

func TestPrepareMissingArguments(t *testing.T) {
	b := New("add_up", addUp())

	err := b.Prepare(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)

	var cerr *ConfigurationError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "add_up", cerr.Benchmark)
}

func TestPrepareMissingBody(t *testing.T) {
	b := New("empty", callable.Callable{Name: "empty"})
	assert.ErrorIs(t, b.Prepare(nil), ErrConfiguration)
}

func TestPrepareUsesFillers(t *testing.T) {
	fallback := func(p *plan.Planner) {
		p.CallCombinations(plan.Domains{{Name: "a", Values: plan.Range(0, 2)}, {Name: "b", Values: plan.Values(7)}})
	}

	b := New("add_up", addUp())
	require.NoError(t, b.Prepare(fallback))
	assert.Equal(t, []string{"add_up[0][7]", "add_up[1][7]"}, b.Identifiers())

	own := New("add_up", addUp())
	own.SetFiller(func(p *plan.Planner) {
		p.AddCall(map[string]any{"b": 3, "a": 4})
	})
	require.NoError(t, own.Prepare(fallback))
	assert.Equal(t, []string{"add_up[4][3]"}, own.Identifiers())
}

func TestPrepareFillerWithoutCalls(t *testing.T) {
	b := New("add_up", addUp())
	err := b.Prepare(func(*plan.Planner) {})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestPrepareRejectsIncompleteBinding(t *testing.T) {
	b := New("add_up", addUp())
	b.AddCall(map[string]any{"a": 1})

	err := b.Prepare(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "call 0")
}

func TestIdentifiersCollision(t *testing.T) {
	b := New("add_up", addUp())
	b.AddCall(map[string]any{"a": 1, "b": 2})
	b.AddCall(map[string]any{"a": "1", "b": 2})
	b.AddCall(map[string]any{"a": 3, "b": 4})
	require.NoError(t, b.Prepare(nil))

	ids := b.Identifiers()
	require.Len(t, ids, 3)
	assert.True(t, strings.HasPrefix(ids[0], "add_up[1][2]#"), ids[0])
	assert.True(t, strings.HasPrefix(ids[1], "add_up[1][2]#"), ids[1])
	assert.NotEqual(t, ids[0], ids[1])
	assert.Len(t, ids[0], len("add_up[1][2]#")+digestSuffixLen)
	assert.Equal(t, "add_up[3][4]", ids[2])
}

func TestIdentifiersIdenticalBindings(t *testing.T) {
	b := New("add_up", addUp())
	b.AddCall(map[string]any{"a": 1, "b": 2})
	b.AddCall(map[string]any{"b": 2, "a": 1})
	require.NoError(t, b.Prepare(nil))

	assert.Equal(t, []string{"add_up[1][2]", "add_up[1][2]"}, b.Identifiers())
}

func TestSetBodyKeepsCallsForSameSignature(t *testing.T) {
	b := New("add_up", addUp())
	b.AddCall(map[string]any{"a": 1, "b": 2})

	b.SetBody(addUp())
	assert.Len(t, b.Calls(), 1)

	b.SetBody(callable.New("other", func(*callable.Args) error { return nil }, callable.Free("x")))
	assert.Empty(t, b.Calls())
	assert.Equal(t, []string{"x"}, b.FreeParameters())
}
