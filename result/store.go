package result

import (
	"iter"
)

// Store maps call identifiers to results, iterating in insertion order.
// Putting an identifier that is already present replaces its result and
// keeps its original position.
type Store struct {
	keys    []string
	results map[string]*ExecutionResult
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{results: make(map[string]*ExecutionResult)}
}

// Put stores r under id. It reports whether an earlier result was replaced.
func (s *Store) Put(id string, r *ExecutionResult) (replaced bool) {
	if _, ok := s.results[id]; ok {
		s.results[id] = r
		return true
	}
	s.keys = append(s.keys, id)
	s.results[id] = r
	return false
}

// Get returns the result stored under id.
func (s *Store) Get(id string) (*ExecutionResult, bool) {
	r, ok := s.results[id]
	return r, ok
}

// Len returns the number of stored results.
func (s *Store) Len() int {
	return len(s.keys)
}

// Keys returns the identifiers in insertion order.
func (s *Store) Keys() []string {
	return append([]string(nil), s.keys...)
}

// All iterates over the stored results in insertion order.
func (s *Store) All() iter.Seq2[string, *ExecutionResult] {
	return func(yield func(string, *ExecutionResult) bool) {
		for _, k := range s.keys {
			if !yield(k, s.results[k]) {
				return
			}
		}
	}
}

// Results returns the stored results in insertion order.
func (s *Store) Results() []*ExecutionResult {
	out := make([]*ExecutionResult, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, s.results[k])
	}
	return out
}
