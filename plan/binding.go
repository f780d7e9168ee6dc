// Package plan turns declared argument domains into concrete call bindings.
package plan

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Binding is one concrete assignment of values to parameter names. It is
// immutable once created and keeps the order its names were given in.
type Binding struct {
	names  []string
	values map[string]any
}

// NewBinding creates a binding over names, taking each value from values.
// Names missing from values are bound to nil.
func NewBinding(names []string, values map[string]any) Binding {
	b := Binding{
		names:  make([]string, 0, len(names)),
		values: make(map[string]any, len(names)),
	}
	for _, name := range names {
		if _, dup := b.values[name]; dup {
			continue
		}
		b.names = append(b.names, name)
		b.values[name] = values[name]
	}
	return b
}

// FromMap creates a binding from a map, ordering the names alphabetically.
func FromMap(values map[string]any) Binding {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	return NewBinding(names, values)
}

// Len returns the number of bound names.
func (b Binding) Len() int {
	return len(b.names)
}

// Names returns the bound names in binding order.
func (b Binding) Names() []string {
	return append([]string(nil), b.names...)
}

// Value returns the value bound to name.
func (b Binding) Value(name string) (any, bool) {
	v, ok := b.values[name]
	return v, ok
}

// Map returns a copy of the binding as a plain map.
func (b Binding) Map() map[string]any {
	m := make(map[string]any, len(b.values))
	for k, v := range b.values {
		m[k] = v
	}
	return m
}

// HasNames reports whether the binding covers exactly the given set of names.
func (b Binding) HasNames(names []string) bool {
	if len(names) != len(b.names) {
		return false
	}
	for _, name := range names {
		if _, ok := b.values[name]; !ok {
			return false
		}
	}
	return true
}

// Label returns the human-readable call identifier: prefix followed by every
// value in binding order, e.g. "add[1][2]". An empty binding yields prefix.
func (b Binding) Label(prefix string) string {
	if len(b.names) == 0 {
		return prefix
	}
	parts := make([]string, len(b.names))
	for i, name := range b.names {
		parts[i] = fmt.Sprint(b.values[name])
	}
	return prefix + "[" + strings.Join(parts, "][") + "]"
}

// Digest returns the keccak256 hash of the binding's canonical encoding.
// Two bindings with equal names and structurally equal values share a digest.
func (b Binding) Digest() string {
	return hexutil.Encode(crypto.Keccak256(b.canonical()))
}

// canonical encodes the binding as name-sorted pairs. Values that JSON cannot
// encode fall back to their Go syntax representation.
func (b Binding) canonical() []byte {
	names := b.Names()
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		sb.WriteString(name)
		sb.WriteByte('=')
		v := b.values[name]
		if data, err := json.Marshal(v); err == nil {
			fmt.Fprintf(&sb, "%T:%s", v, data)
		} else {
			fmt.Fprintf(&sb, "%#v", v)
		}
		sb.WriteByte(0)
	}
	return []byte(sb.String())
}

// MarshalJSON encodes the binding as a JSON object.
func (b Binding) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.values)
}

// String implements fmt.Stringer.
func (b Binding) String() string {
	return b.Label("")
}
