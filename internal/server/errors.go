package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/thanadol-git/plate-planner/internal/blob"
	"github.com/thanadol-git/plate-planner/internal/db"
	"github.com/thanadol-git/plate-planner/internal/pipeline"
	"github.com/thanadol-git/plate-planner/internal/pipeline/steps"
	"github.com/thanadol-git/plate-planner/internal/schemas"
	"github.com/thanadol-git/plate-planner/internal/sdrf"
	"github.com/thanadol-git/plate-planner/internal/sequence"
)

// FieldError is one field-level problem in a request document.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrValidation indicates request validation failure. It is written to the
// client as is.
type ErrValidation struct {
	Message string       `json:"error"`
	Fields  []FieldError `json:"fields,omitempty"`
}

func (e *ErrValidation) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("validation error: %s", e.Message)
	}
	return fmt.Sprintf("validation error: %s - %s: %s", e.Message, e.Fields[0].Field, e.Fields[0].Message)
}

// fromSchemaError converts a schema validation failure for the response body.
func fromSchemaError(ve *schemas.ValidationError) *ErrValidation {
	out := &ErrValidation{Message: "request does not match schema"}
	for _, fe := range ve.Errors {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field, Message: fe.Message})
	}
	return out
}

// ErrNotFound indicates a missing plan, artifact or file
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrUnavailable indicates a feature the server was started without
type ErrUnavailable struct {
	Feature string
}

func (e *ErrUnavailable) Error() string {
	return fmt.Sprintf("%s is not configured on this server", e.Feature)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validation   *ErrValidation
		schemaErr    *schemas.ValidationError
		requestErr   *pipeline.RequestError
		inputErr     *sequence.InputError
		precondition *sequence.PreconditionError
		sdrfErr      *sdrf.Error
		notFound     *ErrNotFound
		dependency   *steps.DependencyError
		unavailable  *ErrUnavailable
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &schemaErr), errors.As(err, &requestErr):
		return http.StatusBadRequest
	case errors.As(err, &inputErr), errors.As(err, &precondition), errors.As(err, &sdrfErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &notFound), errors.Is(err, db.ErrRunNotFound), errors.Is(err, blob.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &dependency):
		return http.StatusConflict
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
