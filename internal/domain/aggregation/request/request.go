package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Request limits.
const (
	MaxIndices   = 64
	MaxBodyBytes = 1 << 20
)

// Request is a validated aggregation request against one or more indices.
type Request struct {
	indices []string
	aggs    json.RawMessage
	query   json.RawMessage
}

// New validates the target indices and the raw aggregation body.
// aggs must be a non-empty JSON object; query is optional.
func New(indices []string, aggs, query json.RawMessage) (Request, error) {
	cleaned := make([]string, 0, len(indices))
	for _, idx := range indices {
		idx = strings.TrimSpace(idx)
		if idx == "" {
			continue
		}
		if strings.ContainsAny(idx, "/ ,?#") {
			return Request{}, fmt.Errorf("invalid index name %q", idx)
		}
		cleaned = append(cleaned, idx)
	}
	if len(cleaned) == 0 {
		return Request{}, fmt.Errorf("at least one index is required")
	}
	if len(cleaned) > MaxIndices {
		return Request{}, fmt.Errorf("too many indices (max %d)", MaxIndices)
	}

	aggs = bytes.TrimSpace(aggs)
	if len(aggs) == 0 {
		return Request{}, fmt.Errorf("aggs is required")
	}
	if len(aggs)+len(query) > MaxBodyBytes {
		return Request{}, fmt.Errorf("request body too large (max %d bytes)", MaxBodyBytes)
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(aggs, &probe); err != nil {
		return Request{}, fmt.Errorf("aggs must be a JSON object: %w", err)
	}
	if len(probe) == 0 {
		return Request{}, fmt.Errorf("aggs must name at least one aggregation")
	}

	query = bytes.TrimSpace(query)
	if len(query) > 0 && !bytes.Equal(query, []byte("null")) {
		var q map[string]json.RawMessage
		if err := json.Unmarshal(query, &q); err != nil {
			return Request{}, fmt.Errorf("query must be a JSON object: %w", err)
		}
	} else {
		query = nil
	}

	return Request{indices: cleaned, aggs: aggs, query: query}, nil
}

// Indices returns the target index names.
func (r *Request) Indices() []string { return r.indices }

// Aggs returns the raw aggregation definitions.
func (r *Request) Aggs() json.RawMessage { return r.aggs }

// Query returns the raw query, or nil when the request aggregates all documents.
func (r *Request) Query() json.RawMessage { return r.query }

// Body renders the search body: size 0, optional query, aggregations.
// Field order is fixed so equal requests produce equal bytes.
func (r *Request) Body() []byte {
	var buf bytes.Buffer
	buf.WriteString(`{"size":0`)
	if len(r.query) > 0 {
		buf.WriteString(`,"query":`)
		buf.Write(r.query)
	}
	buf.WriteString(`,"aggs":`)
	buf.Write(r.aggs)
	buf.WriteByte('}')
	return buf.Bytes()
}
