package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/thanadol-git/plate-planner/internal/config"
	"github.com/thanadol-git/plate-planner/internal/types"
)

// Request is a complete plan request: the plate annotation text plus every
// setting the sequence, Evosep and SDRF builders need. It is the document
// accepted by POST /plans and by `plateplan run --request`.
type Request struct {
	Layout       string                 `json:"layout"`
	DefaultLabel string                 `json:"default_label,omitempty"`
	Session      types.Session          `json:"session"`
	Sequence     types.SequenceSettings `json:"sequence"`
	Evosep       *types.EvosepSettings  `json:"evosep,omitempty"`
	SDRF         types.SDRFSettings     `json:"sdrf"`
	Persist      bool                   `json:"persist,omitempty"`
}

// RequestError reports request settings that failed validation.
type RequestError struct {
	Message string
	Cause   error
}

func (e *RequestError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid request: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("invalid request: %s", e.Message)
}

func (e *RequestError) Unwrap() error {
	return e.Cause
}

// RequestFromConfig builds a request for the annotation text from a
// loaded configuration.
func RequestFromConfig(cfg config.Config, text string) Request {
	return Request{
		Layout:       text,
		DefaultLabel: cfg.DefaultLabel,
		Session:      cfg.Session,
		Sequence:     cfg.Sequence,
		Evosep:       cfg.Evosep,
		SDRF:         cfg.SDRF,
	}
}

// DecodeRequest decodes a JSON plan request on top of defaults, so fields
// the document leaves out keep their default values. Schema validation is
// the caller's job.
func DecodeRequest(data []byte, defaults config.Config) (Request, error) {
	// Start from a deep copy so decoding cannot write through the seed
	// pointers or enzyme slices of defaults.
	base, err := json.Marshal(RequestFromConfig(defaults, ""))
	if err != nil {
		return Request{}, fmt.Errorf("failed to copy defaults: %w", err)
	}
	var req Request
	if err := json.Unmarshal(base, &req); err != nil {
		return Request{}, fmt.Errorf("failed to copy defaults: %w", err)
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, &RequestError{Message: "malformed document", Cause: err}
	}
	return req.WithDefaults(defaults), nil
}

// WithDefaults returns a copy of r with empty fields filled from defaults.
// An Evosep block that is present but partial is completed from the stock
// Evosep settings; an absent block stays absent.
func (r Request) WithDefaults(defaults config.Config) Request {
	cfg := config.Config{
		DefaultLabel: r.DefaultLabel,
		Session:      r.Session,
		Sequence:     r.Sequence,
		SDRF:         r.SDRF,
	}
	merged := cfg.MergeWithDefaults(config.Config{
		DefaultLabel: defaults.DefaultLabel,
		Session:      defaults.Session,
		Sequence:     defaults.Sequence,
		SDRF:         defaults.SDRF,
	})

	out := r
	out.DefaultLabel = merged.DefaultLabel
	out.Session = merged.Session
	out.Sequence = merged.Sequence
	out.SDRF = merged.SDRF
	if r.Evosep != nil {
		ev := mergeEvosep(*r.Evosep, config.DefaultEvosep(merged.Sequence.DataPath))
		out.Evosep = &ev
	}
	return out
}

func mergeEvosep(e, d types.EvosepSettings) types.EvosepSettings {
	if e.OutputDir == "" {
		e.OutputDir = d.OutputDir
	}
	if e.AnalysisMethod == "" {
		e.AnalysisMethod = d.AnalysisMethod
	}
	if e.XcaliburMethod == "" {
		e.XcaliburMethod = d.XcaliburMethod
	}
	if e.Slot == 0 {
		e.Slot = d.Slot
	}
	return e
}

// Label returns the label for wells that no annotation line assigns.
func (r Request) Label() string {
	if r.DefaultLabel != "" {
		return r.DefaultLabel
	}
	return r.Session.Cohort
}

// Validate checks every settings block of the request.
func (r Request) Validate() error {
	if err := r.Session.Validate(); err != nil {
		return &RequestError{Message: "session", Cause: err}
	}
	if err := r.Sequence.Validate(); err != nil {
		return &RequestError{Message: "sequence", Cause: err}
	}
	if err := r.SDRF.Validate(); err != nil {
		return &RequestError{Message: "sdrf", Cause: err}
	}
	if r.Evosep != nil {
		if err := r.Evosep.Validate(); err != nil {
			return &RequestError{Message: "evosep", Cause: err}
		}
	}
	if r.Label() == "" {
		return &RequestError{Message: "default label or cohort is required"}
	}
	return nil
}
