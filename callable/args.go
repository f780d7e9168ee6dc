package callable

import (
	"fmt"
	"sort"
)

// Local is one named value visible to a body.
type Local struct {
	Name  string
	Value any
}

// Args holds the values a body is invoked with, plus any extra values the
// body chose to keep for failure reports.
type Args struct {
	order  []string
	values map[string]any

	keptOrder []string
	kept      map[string]any
}

// KeptPrefix marks a kept value in Locals whose name is also an argument.
const KeptPrefix = "kept."

// NewArgs builds Args from a plain map, ordered by name.
func NewArgs(values map[string]any) *Args {
	args := &Args{values: make(map[string]any, len(values)), kept: make(map[string]any)}
	for _, name := range sortedKeys(values) {
		args.set(name, values[name])
	}
	return args
}

func (a *Args) set(name string, v any) {
	if _, ok := a.values[name]; !ok {
		a.order = append(a.order, name)
	}
	a.values[name] = v
}

// Len returns the number of bound arguments.
func (a *Args) Len() int {
	return len(a.order)
}

// Names returns the argument names in binding order.
func (a *Args) Names() []string {
	return append([]string(nil), a.order...)
}

// Has reports whether name is bound.
func (a *Args) Has(name string) bool {
	_, ok := a.values[name]
	return ok
}

// Get returns the raw value bound to name, or nil.
func (a *Args) Get(name string) any {
	return a.values[name]
}

// Int returns the value bound to name as an int. Numeric values of other
// kinds are converted; anything else panics, which the worker reports as a
// measured failure.
func (a *Args) Int(name string) int {
	switch v := a.values[name].(type) {
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	case uint:
		return int(v)
	case uint8:
		return int(v)
	case uint16:
		return int(v)
	case uint32:
		return int(v)
	case uint64:
		return int(v)
	case float32:
		return int(v)
	case float64:
		return int(v)
	default:
		panic(fmt.Sprintf("argument %q is %T, not an integer", name, v))
	}
}

// Float returns the value bound to name as a float64.
func (a *Args) Float(name string) float64 {
	switch v := a.values[name].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	default:
		return float64(a.Int(name))
	}
}

// String returns the value bound to name formatted as a string.
func (a *Args) String(name string) string {
	if s, ok := a.values[name].(string); ok {
		return s
	}
	return fmt.Sprint(a.values[name])
}

// Bool returns the value bound to name as a bool.
func (a *Args) Bool(name string) bool {
	b, ok := a.values[name].(bool)
	if !ok {
		panic(fmt.Sprintf("argument %q is %T, not a bool", name, a.values[name]))
	}
	return b
}

// Keep records a value so it shows up among the locals of a failure report.
// Keeping the same name twice overwrites the earlier value. Kept values never
// shadow arguments.
func (a *Args) Keep(name string, v any) {
	if _, ok := a.kept[name]; !ok {
		a.keptOrder = append(a.keptOrder, name)
	}
	a.kept[name] = v
}

// Kept returns the value kept under name.
func (a *Args) Kept(name string) (any, bool) {
	v, ok := a.kept[name]
	return v, ok
}

// Locals returns every value visible to the body: arguments first, then
// kept values. A kept value named like an argument is listed as
// KeptPrefix+name.
func (a *Args) Locals() []Local {
	locals := make([]Local, 0, len(a.order)+len(a.keptOrder))
	for _, name := range a.order {
		locals = append(locals, Local{Name: name, Value: a.values[name]})
	}
	for _, name := range a.keptOrder {
		local := name
		if _, ok := a.values[name]; ok {
			local = KeptPrefix + name
		}
		locals = append(locals, Local{Name: local, Value: a.kept[name]})
	}
	return locals
}

// Map returns a copy of the bound arguments.
func (a *Args) Map() map[string]any {
	m := make(map[string]any, len(a.values))
	for k, v := range a.values {
		m[k] = v
	}
	return m
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
