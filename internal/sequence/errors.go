// Package sequence builds the ordered injection sequence for a plate and the
// per-platform tables derived from it.
package sequence

import (
	"errors"
	"fmt"
)

// ErrMissingUpstreamState is returned when a builder runs before the plate
// layout (or the sample order it depends on) exists.
var ErrMissingUpstreamState = errors.New("missing upstream state")

// PreconditionError reports that a required earlier step has not been done.
// It always wraps ErrMissingUpstreamState.
type PreconditionError struct {
	Message string
	Cause   error
}

func (e *PreconditionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("precondition error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("precondition error: %s", e.Message)
}

func (e *PreconditionError) Unwrap() error {
	return e.Cause
}

func missingUpstream(msg string) error {
	return &PreconditionError{Message: msg, Cause: ErrMissingUpstreamState}
}

// InputError represents invalid builder parameters
type InputError struct {
	Message string
	Cause   error
}

func (e *InputError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("sequence input error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("sequence input error: %s", e.Message)
}

func (e *InputError) Unwrap() error {
	return e.Cause
}
