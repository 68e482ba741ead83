// Package export serializes plate layouts, injection sequences and annotation
// tables into the files downstream instruments and tools import.
package export

import "fmt"

// RenderError represents a failure to serialize an export file
type RenderError struct {
	Format  string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("render error: %s: %s: %v", e.Format, e.Message, e.Cause)
	}
	return fmt.Sprintf("render error: %s: %s", e.Format, e.Message)
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}
