package aggflat

import "github.com/kailas-cloud/aggflat/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidRequest  = domain.ErrInvalidRequest
	ErrIndexNotFound   = domain.ErrIndexNotFound
	ErrUnauthorized    = domain.ErrUnauthorized
	ErrSearchBackend   = domain.ErrSearchBackend
	ErrMalformedResult = domain.ErrMalformedResult
)

// MalformedResultError carries the aggregation path that could not be flattened.
// Retrieve it with errors.As.
type MalformedResultError = domain.MalformedResultError
