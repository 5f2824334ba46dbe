package aggflat

import (
	aggrepo "github.com/kailas-cloud/aggflat/internal/repository/aggregation"
	"github.com/kailas-cloud/aggflat/internal/usecase/flatten"
)

var defaultFlattener = flatten.New(nil)

// Flatten converts a result set into its flattened form.
// Unknown aggregation kinds are dropped silently.
func Flatten(set *Set) (Value, error) {
	return defaultFlattener.Flatten(set) //nolint:wrapcheck // domain errors pass through
}

// Decode parses a search response body, or a bare "aggregations" object,
// into a result set. Keys must carry their type ("sterms#name") or be
// inferable from their shape.
func Decode(data []byte) (*Set, error) {
	return aggrepo.DecodeResponse(data) //nolint:wrapcheck // domain errors pass through
}

// FlattenJSON decodes and flattens a search response body in one step.
func FlattenJSON(data []byte) (Value, error) {
	set, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return Flatten(set)
}
