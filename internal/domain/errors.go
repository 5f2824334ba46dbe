package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest signals a malformed aggregation request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrIndexNotFound signals that a target index does not exist on the search backend.
	ErrIndexNotFound = errors.New("index not found")
	// ErrUnauthorized signals that the search backend rejected our credentials.
	ErrUnauthorized = errors.New("search backend unauthorized")
	// ErrSearchBackend signals a search backend failure.
	ErrSearchBackend = errors.New("search backend error")
	// ErrMalformedResult signals an aggregation result that cannot be flattened.
	ErrMalformedResult = errors.New("malformed aggregation result")
)

// MalformedResultError wraps ErrMalformedResult with the offending aggregation path.
type MalformedResultError struct {
	Path   string
	Reason string
}

func (e *MalformedResultError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s", ErrMalformedResult.Error(), e.Reason)
	}
	return fmt.Sprintf("%s at %q: %s", ErrMalformedResult.Error(), e.Path, e.Reason)
}

func (e *MalformedResultError) Unwrap() error { return ErrMalformedResult }

// NewMalformedResult creates a malformed result error for the given path.
func NewMalformedResult(path, reason string) error {
	return &MalformedResultError{Path: path, Reason: reason}
}
