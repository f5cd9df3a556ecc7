package provider

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when provider credentials have not been set
// via the configure endpoint
var ErrNotConfigured = errors.New("provider credentials not configured")

// ErrCircuitOpen is returned when the circuit breaker is rejecting calls
var ErrCircuitOpen = errors.New("provider circuit breaker is open")

// Error wraps a failure from an external provider call
type Error struct {
	Op  string // The failing call, e.g. "firecrawl.deep-research"
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// newError wraps err as a provider error for the given call
func newError(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}
