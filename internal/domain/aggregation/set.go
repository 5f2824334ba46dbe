package aggregation

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Entry is a keyed result used to build a Set.
type Entry struct {
	Key    string
	Result Result
}

// Named pairs a key with a result.
func Named(key string, r Result) Entry {
	return Entry{Key: key, Result: r}
}

// Set is an insertion-ordered collection of named results.
// A nil *Set is a valid empty set.
type Set struct {
	entries *orderedmap.OrderedMap[string, Result]
}

// NewSet creates a set holding entries in the given order.
// A repeated key replaces the earlier result but keeps its position.
func NewSet(entries ...Entry) *Set {
	s := &Set{entries: orderedmap.New[string, Result](len(entries))}
	for _, e := range entries {
		s.Put(e.Key, e.Result)
	}
	return s
}

// Put stores r under key.
func (s *Set) Put(key string, r Result) {
	if s.entries == nil {
		s.entries = orderedmap.New[string, Result]()
	}
	s.entries.Set(key, r)
}

// Get returns the result stored under key.
func (s *Set) Get(key string) (Result, bool) {
	if s == nil || s.entries == nil {
		return nil, false
	}
	return s.entries.Get(key)
}

// Len returns the number of entries.
func (s *Set) Len() int {
	if s == nil || s.entries == nil {
		return 0
	}
	return s.entries.Len()
}

// Keys returns the keys in insertion order.
func (s *Set) Keys() []string {
	keys := make([]string, 0, s.Len())
	s.Range(func(key string, _ Result) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

// Range calls fn for each entry in insertion order until fn returns false.
func (s *Set) Range(fn func(key string, r Result) bool) {
	if s == nil || s.entries == nil {
		return
	}
	for pair := s.entries.Oldest(); pair != nil; pair = pair.Next() {
		if !fn(pair.Key, pair.Value) {
			return
		}
	}
}

// Sole returns the only entry of a single-entry set.
func (s *Set) Sole() (string, Result, bool) {
	if s.Len() != 1 {
		return "", nil, false
	}
	pair := s.entries.Oldest()
	return pair.Key, pair.Value, true
}
