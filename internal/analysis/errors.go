package analysis

import (
	"errors"
	"fmt"
)

// ErrTimeout marks an analysis call that exceeded its time budget. The
// pending upstream call is not aborted at the transport level; its
// result is simply discarded.
var ErrTimeout = errors.New("analysis timed out")

// ParseError means the model response was not valid JSON at all.
type ParseError struct {
	Content string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("analysis response is not valid JSON: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError means the response parsed but violated the schema.
// The whole result is rejected; there is no partial acceptance.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("analysis response violates schema: %v", e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ExhaustedError means every retry attempt failed on a transient error.
type ExhaustedError struct {
	Attempts int
	LastErr  error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("analysis failed after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *ExhaustedError) Unwrap() error { return e.LastErr }

// UpstreamError carries the HTTP status of a failed provider call so
// the retry policy and the HTTP layer can react to it.
type UpstreamError struct {
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream analysis error (status %d): %v", e.StatusCode, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
