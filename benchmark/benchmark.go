// Package benchmark provides the benchmark model and its execution logic.
package benchmark

import (
	"strings"

	"github.com/skylenet/tafelrunde/callable"
	"github.com/skylenet/tafelrunde/plan"
	"github.com/skylenet/tafelrunde/result"
)

// digestSuffixLen is the number of digest characters appended to colliding identifiers.
const digestSuffixLen = 10

// Benchmark owns one measured body, its optional warmup, the call bindings
// and the results of executing them.
type Benchmark struct {
	name    string
	body    callable.Callable
	warmup  func()
	filler  plan.Filler
	planner *plan.Planner
	ids     []string
	results *result.Store
}

// New creates a benchmark named name measuring body.
func New(name string, body callable.Callable) *Benchmark {
	return &Benchmark{
		name:    name,
		body:    body,
		planner: plan.NewPlanner(name, body.FreeParameters()),
		results: result.NewStore(),
	}
}

// Name returns the benchmark name.
func (b *Benchmark) Name() string {
	return b.name
}

// Body returns the measured callable.
func (b *Benchmark) Body() callable.Callable {
	return b.body
}

// SetBody replaces the measured callable. Calls registered so far are kept
// only if the free parameters did not change.
func (b *Benchmark) SetBody(body callable.Callable) {
	free := body.FreeParameters()
	if !sameNames(free, b.planner.FreeParameters()) {
		b.planner = plan.NewPlanner(b.name, free)
	}
	b.body = body
	b.ids = nil
}

// SetWarmup sets a function run once before the first measured call.
func (b *Benchmark) SetWarmup(fn func()) {
	b.warmup = fn
}

// Warmup returns the warmup function, or nil.
func (b *Benchmark) Warmup() func() {
	return b.warmup
}

// SetFiller sets the argument filler used when no calls are registered.
// It takes precedence over the suite's filler.
func (b *Benchmark) SetFiller(f plan.Filler) {
	b.filler = f
}

// FreeParameters returns the parameters every call must bind.
func (b *Benchmark) FreeParameters() []string {
	return b.planner.FreeParameters()
}

// Planner returns the planner collecting this benchmark's calls.
func (b *Benchmark) Planner() *plan.Planner {
	return b.planner
}

// AddCall registers a single call.
func (b *Benchmark) AddCall(values map[string]any) {
	b.planner.AddCall(values)
	b.ids = nil
}

// CallCombinations registers one call per combination of the domains.
func (b *Benchmark) CallCombinations(domains plan.Domains) {
	b.planner.CallCombinations(domains)
	b.ids = nil
}

// Calls returns the registered bindings in registration order.
func (b *Benchmark) Calls() []plan.Binding {
	return b.planner.Calls()
}

// Results returns the store holding this benchmark's results.
func (b *Benchmark) Results() *result.Store {
	return b.results
}

// Prepare makes the benchmark ready to run. If it has free parameters but no
// calls, the benchmark's own filler, or else fallback, populates them. Every
// call must bind exactly the free parameters.
func (b *Benchmark) Prepare(fallback plan.Filler) error {
	if b.body.Fn == nil {
		return configErrorf(b.name, "no body")
	}

	free := b.planner.FreeParameters()
	if len(free) > 0 && b.planner.Len() == 0 {
		filler := b.filler
		if filler == nil {
			filler = fallback
		}
		if filler == nil {
			return configErrorf(b.name, "free parameters %v but no calls and no argument filler", free)
		}
		filler(b.planner)
		b.ids = nil
		if b.planner.Len() == 0 {
			return configErrorf(b.name, "argument filler registered no calls for free parameters %v", free)
		}
	}

	for i, call := range b.planner.Calls() {
		if !call.HasNames(free) {
			return configErrorf(b.name, "call %d binds %v, want free parameters %v", i, call.Names(), free)
		}
	}

	b.identify()
	return nil
}

// Identifiers returns the call identifiers, index-aligned with Calls.
func (b *Benchmark) Identifiers() []string {
	if len(b.ids) != b.planner.Len() {
		b.identify()
	}
	return append([]string(nil), b.ids...)
}

// identify computes call identifiers. Distinct bindings whose labels
// coincide are told apart by a digest suffix; structurally identical
// bindings share an identifier.
func (b *Benchmark) identify() {
	calls := b.planner.Calls()
	labels := make([]string, len(calls))
	digests := make(map[string]map[string]struct{}, len(calls))
	for i, call := range calls {
		labels[i] = call.Label(b.name)
		if digests[labels[i]] == nil {
			digests[labels[i]] = make(map[string]struct{})
		}
		digests[labels[i]][call.Digest()] = struct{}{}
	}

	b.ids = make([]string, len(calls))
	for i, call := range calls {
		if len(digests[labels[i]]) > 1 {
			d := strings.TrimPrefix(call.Digest(), "0x")
			b.ids[i] = labels[i] + "#" + d[:digestSuffixLen]
			continue
		}
		b.ids[i] = labels[i]
	}
}

func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
