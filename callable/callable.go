// Package callable describes measured functions through an explicit signature.
//
// A Callable declares every parameter it accepts and which of them carry a
// default value. Parameters without a default are "free": a value for each of
// them must be supplied by every call binding.
package callable

import (
	"fmt"
)

// Func is the body of a measured function. It receives the merged view of
// the call binding and the declared defaults.
type Func func(args *Args) error

// Param declares one parameter of a Callable.
type Param struct {
	Name       string
	Default    any
	HasDefault bool
}

// Free declares a parameter that must be supplied by every binding.
func Free(name string) Param {
	return Param{Name: name}
}

// Defaulted declares a parameter that falls back to value when not bound.
func Defaulted(name string, value any) Param {
	return Param{Name: name, Default: value, HasDefault: true}
}

// Callable is an opaque unit of measured work.
type Callable struct {
	Name   string
	Params []Param
	Fn     Func
}

// New creates a callable from its name, body and declared parameters.
func New(name string, fn Func, params ...Param) Callable {
	return Callable{Name: name, Params: params, Fn: fn}
}

// FreeParameters returns the names of the parameters without a default value,
// in declaration order.
func FreeParameters(c Callable) []string {
	free := make([]string, 0, len(c.Params))
	for _, p := range c.Params {
		if !p.HasDefault {
			free = append(free, p.Name)
		}
	}
	return free
}

// FreeParameters returns the free parameter names of c.
func (c Callable) FreeParameters() []string {
	return FreeParameters(c)
}

// Bind merges the bound values with the declared defaults. Bound values win
// over defaults; names that are not declared parameters are still visible.
func (c Callable) Bind(bound map[string]any) *Args {
	args := &Args{values: make(map[string]any, len(c.Params)+len(bound)), kept: make(map[string]any)}
	for _, p := range c.Params {
		if v, ok := bound[p.Name]; ok {
			args.set(p.Name, v)
		} else if p.HasDefault {
			args.set(p.Name, p.Default)
		}
	}
	for _, name := range sortedKeys(bound) {
		if _, ok := args.values[name]; !ok {
			args.set(name, bound[name])
		}
	}
	return args
}

// Call invokes the body with args.
func (c Callable) Call(args *Args) error {
	if c.Fn == nil {
		return fmt.Errorf("callable %q has no body", c.Name)
	}
	return c.Fn(args)
}
