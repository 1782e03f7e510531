package registry

import (
	"errors"

	"expdb/internal/store"
)

// Failure kinds surfaced to the user. Callers match them with errors.Is.
var (
	ErrConnection     = store.ErrConnection
	ErrNotFound       = errors.New("experiment not found")
	ErrNoHistory      = errors.New("experiment has no history records")
	ErrConflict       = errors.New("experiment already exists")
	ErrMalformedInput = errors.New("malformed input")
	ErrNotConfirmed   = errors.New("operation not confirmed")
)

// DescribeError ties a failure reported by DescribeMany or DescribeAll to the
// experiment it concerns.
type DescribeError struct {
	ExperimentID string
	Err          error
}

func (e *DescribeError) Error() string {
	return e.Err.Error()
}

func (e *DescribeError) Unwrap() error {
	return e.Err
}
