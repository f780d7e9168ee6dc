package plan

import (
	"iter"
)

// Domain lists the candidate values of one parameter.
type Domain struct {
	Name   string
	Values []any
}

// Domains is an ordered set of parameter domains. The first domain varies
// slowest during expansion, the last one fastest.
type Domains []Domain

// Values is a convenience for building a domain's value list.
func Values(values ...any) []any {
	return values
}

// Range returns the integers in [start, stop) as domain values.
func Range(start, stop int) []any {
	if stop <= start {
		return nil
	}
	values := make([]any, 0, stop-start)
	for i := start; i < stop; i++ {
		values = append(values, i)
	}
	return values
}

// Names returns the parameter names covered by the domains.
func (d Domains) Names() []string {
	names := make([]string, len(d))
	for i, dom := range d {
		names[i] = dom.Name
	}
	return names
}

// Size returns the number of bindings Expand produces.
func (d Domains) Size() int {
	n := 1
	for _, dom := range d {
		n *= len(dom.Values)
	}
	return n
}

// Expand yields every combination in the Cartesian product of domains. The
// sequence is finite and restartable: ranging over it again reproduces the
// same bindings in the same order. No domains yield a single empty binding.
func Expand(domains Domains) iter.Seq[Binding] {
	names := domains.Names()
	return func(yield func(Binding) bool) {
		for _, dom := range domains {
			if len(dom.Values) == 0 {
				return
			}
		}

		idx := make([]int, len(domains))
		for {
			values := make(map[string]any, len(domains))
			for i, dom := range domains {
				values[dom.Name] = dom.Values[idx[i]]
			}
			if !yield(NewBinding(names, values)) {
				return
			}

			// Odometer step: advance the last position, carrying leftwards.
			pos := len(domains) - 1
			for ; pos >= 0; pos-- {
				idx[pos]++
				if idx[pos] < len(domains[pos].Values) {
					break
				}
				idx[pos] = 0
			}
			if pos < 0 {
				return
			}
		}
	}
}

// Filler populates the calls of a planner. It is invoked for benchmarks that
// have free parameters but no registered calls.
type Filler func(p *Planner)

// Chain returns a filler that runs fillers in order until one of them
// registers a call. Nil fillers are skipped.
func Chain(fillers ...Filler) Filler {
	return func(p *Planner) {
		before := p.Len()
		for _, f := range fillers {
			if f == nil {
				continue
			}
			f(p)
			if p.Len() > before {
				return
			}
		}
	}
}

// Planner collects the call bindings of one benchmark body.
type Planner struct {
	name  string
	free  []string
	calls []Binding
}

// NewPlanner creates a planner for a body with the given free parameters.
// Without free parameters the planner starts with the single empty binding.
func NewPlanner(name string, free []string) *Planner {
	p := &Planner{
		name: name,
		free: append([]string(nil), free...),
	}
	if len(p.free) == 0 {
		p.calls = append(p.calls, NewBinding(nil, nil))
	}
	return p
}

// Name returns the name of the planned body.
func (p *Planner) Name() string {
	return p.name
}

// FreeParameters returns the parameter names every call must bind.
func (p *Planner) FreeParameters() []string {
	return append([]string(nil), p.free...)
}

// HasFreeParameter reports whether name is one of the free parameters.
func (p *Planner) HasFreeParameter(name string) bool {
	for _, f := range p.free {
		if f == name {
			return true
		}
	}
	return false
}

// AddCall registers a single binding. Names are ordered like the free
// parameters; names outside that set follow alphabetically.
func (p *Planner) AddCall(values map[string]any) {
	p.Add(NewBinding(p.orderNames(values), values))
}

// Add registers an already built binding.
func (p *Planner) Add(b Binding) {
	p.calls = append(p.calls, b)
}

// CallCombinations registers every binding of the Cartesian product of domains.
func (p *Planner) CallCombinations(domains Domains) {
	for b := range Expand(domains) {
		p.Add(b)
	}
}

// Calls returns the registered bindings in registration order.
func (p *Planner) Calls() []Binding {
	return append([]Binding(nil), p.calls...)
}

// Len returns the number of registered bindings.
func (p *Planner) Len() int {
	return len(p.calls)
}

func (p *Planner) orderNames(values map[string]any) []string {
	names := make([]string, 0, len(values))
	for _, f := range p.free {
		if _, ok := values[f]; ok {
			names = append(names, f)
		}
	}
	rest := FromMap(values).Names()
	for _, name := range rest {
		if !p.HasFreeParameter(name) {
			names = append(names, name)
		}
	}
	return names
}
