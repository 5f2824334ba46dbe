// Package output holds the flattened, JSON-ready form of aggregation results.
package output

import (
	"encoding/json"
	"math"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Value is a flattened aggregation value: Scalar, Text, Count or *Map.
type Value interface {
	isValue()
}

// Scalar is a numeric metric value. Non-finite values encode as null.
type Scalar float64

func (Scalar) isValue() {}

// MarshalJSON implements json.Marshaler.
func (s Scalar) MarshalJSON() ([]byte, error) {
	f := float64(s)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

// Text is a metric value carried in its engine-formatted string form.
type Text string

func (Text) isValue() {}

// Count is a document count.
type Count int64

func (Count) isValue() {}

// Map is an insertion-ordered mapping of keys to values.
// Its JSON encoding keeps key order.
type Map struct {
	entries *orderedmap.OrderedMap[string, Value]
}

func (*Map) isValue() {}

// NewMap creates an empty map.
func NewMap() *Map {
	return &Map{entries: orderedmap.New[string, Value]()}
}

// MapOf creates a single-entry map.
func MapOf(key string, v Value) *Map {
	m := NewMap()
	m.Set(key, v)
	return m
}

// Set stores v under key. An existing key keeps its position.
func (m *Map) Set(key string, v Value) {
	m.entries.Set(key, v)
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (Value, bool) {
	if m == nil {
		return nil, false
	}
	return m.entries.Get(key)
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return m.entries.Len()
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	keys := make([]string, 0, m.Len())
	m.Range(func(key string, _ Value) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

// Range calls fn for each entry in insertion order until fn returns false.
func (m *Map) Range(fn func(key string, v Value) bool) {
	if m == nil {
		return
	}
	for pair := m.entries.Oldest(); pair != nil; pair = pair.Next() {
		if !fn(pair.Key, pair.Value) {
			return
		}
	}
}

// Merge copies every entry of other into m, in other's order.
// Colliding keys take other's value.
func (m *Map) Merge(other *Map) {
	other.Range(func(key string, v Value) bool {
		m.Set(key, v)
		return true
	})
}

// MarshalJSON implements json.Marshaler.
func (m *Map) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return m.entries.MarshalJSON() //nolint:wrapcheck // pass-through encoding
}
