package chi

import "encoding/json"

// errorCode is the machine-readable code in error responses.
type errorCode string

const (
	codeBadRequest      errorCode = "bad_request"
	codeUnauthorized    errorCode = "unauthorized"
	codeInvalidRequest  errorCode = "invalid_request"
	codeIndexNotFound   errorCode = "index_not_found"
	codeMalformedResult errorCode = "malformed_result"
	codeSearchBackend   errorCode = "search_backend_error"
	codeInternal        errorCode = "internal_error"
)

// errorResponse is the JSON body of every error reply.
type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// healthResponse is the JSON body of GET /health.
type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// aggregateRequest is the JSON body of POST /indices/{indices}/aggregate.
type aggregateRequest struct {
	Aggs  json.RawMessage `json:"aggs"`
	Query json.RawMessage `json:"query,omitempty"`
}
