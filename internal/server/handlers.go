package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/thanadol-git/plate-planner/internal/blob"
	"github.com/thanadol-git/plate-planner/internal/config"
	"github.com/thanadol-git/plate-planner/internal/export"
	"github.com/thanadol-git/plate-planner/internal/pipeline"
	"github.com/thanadol-git/plate-planner/internal/plate"
	"github.com/thanadol-git/plate-planner/internal/schemas"
	"github.com/thanadol-git/plate-planner/internal/sequence"
)

// PlateRequest represents the request body for POST /plates
type PlateRequest struct {
	Layout       string `json:"layout"`
	DefaultLabel string `json:"default_label,omitempty"`
}

// PlateResponse represents the response for POST /plates
type PlateResponse struct {
	DefaultLabel string             `json:"default_label"`
	Grid         plate.Grid         `json:"grid"`
	Entries      []plate.LongEntry  `json:"entries"`
	Counts       []plate.LabelCount `json:"counts"`
	Warnings     []plate.Warning    `json:"warnings"`
}

// SequenceResponse represents the response for POST /sequences
type SequenceResponse struct {
	Records  []sequence.Record `json:"records"`
	Summary  sequence.Summary  `json:"summary"`
	Warnings []plate.Warning   `json:"warnings"`
}

// PlanResponse represents the response for POST /plans
type PlanResponse struct {
	RunID     string             `json:"run_id"`
	Persisted bool               `json:"persisted"`
	Summary   sequence.Summary   `json:"summary"`
	Counts    []plate.LabelCount `json:"counts"`
	Warnings  []plate.Warning    `json:"warnings"`
	Files     []export.File      `json:"files"`
	Uploaded  []blob.Info        `json:"uploaded,omitempty"`
}

func newPlanResponse(result *pipeline.Result) PlanResponse {
	return PlanResponse{
		RunID:     result.RunID.String(),
		Persisted: result.Persisted,
		Summary:   result.Summary,
		Counts:    result.Layout.Counts(),
		Warnings:  result.Layout.Warnings,
		Files:     result.Files,
		Uploaded:  result.Uploaded,
	}
}

// readBody reads a bounded request body and checks it against a schema.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request, validate func([]byte) error) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, &ErrValidation{Message: "failed to read request body: " + err.Error()}
	}
	if err := validate(body); err != nil {
		var ve *schemas.ValidationError
		if errors.As(err, &ve) {
			return nil, fromSchemaError(ve)
		}
		return nil, err
	}
	return body, nil
}

// decodePlanRequest decodes a plan request on top of the server defaults,
// so fields the client leaves out keep their default values.
func (s *Server) decodePlanRequest(w http.ResponseWriter, r *http.Request) (pipeline.Request, error) {
	body, err := s.readBody(w, r, schemas.ValidatePlanRequest)
	if err != nil {
		return pipeline.Request{}, err
	}

	return pipeline.DecodeRequest(body, s.requestDefaults())
}

// requestDefaults returns the server defaults with an empty acquisition
// date set to today.
func (s *Server) requestDefaults() config.Config {
	d := s.defaults
	if d.Sequence.Date == "" {
		d.Sequence.Date = s.now().Format("20060102")
	}
	return d
}

// writeFile sends a rendered export as a download.
func (s *Server) writeFile(w http.ResponseWriter, name, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Warn("failed to write file response", zap.String("name", name), zap.Error(err))
	}
}

func (s *Server) namer(req pipeline.Request) export.Namer {
	return export.Namer{Project: req.Session.Project, PlateID: req.Session.Plate(), Now: s.now()}
}

// handleAssemble parses plate annotations into the full 96-well layout.
// With ?format=csv or ?format=xlsx the layout is returned as a download.
func (s *Server) handleAssemble(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r, schemas.ValidatePlateRequest)
	if err != nil {
		s.errResponse(w, err)
		return
	}
	var pr PlateRequest
	if err := json.Unmarshal(body, &pr); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	req := pipeline.RequestFromConfig(s.requestDefaults(), pr.Layout)
	if pr.DefaultLabel != "" {
		req.DefaultLabel = pr.DefaultLabel
	}
	label := req.Label()
	if label == "" {
		s.errorResponse(w, http.StatusBadRequest, "default_label is required")
		return
	}

	layout := plate.Assemble(pr.Layout, label)
	s.metrics.observeWarnings(layout.Warnings)

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		s.jsonResponse(w, http.StatusOK, PlateResponse{
			DefaultLabel: layout.DefaultLabel,
			Grid:         layout.Grid,
			Entries:      layout.Entries,
			Counts:       layout.Counts(),
			Warnings:     layout.Warnings,
		})
	case "csv", "xlsx":
		kind, write := export.KindLayoutCSV, export.WriteLayoutCSV
		if format == "xlsx" {
			kind, write = export.KindLayoutXLSX, export.WriteLayoutXLSX
		}
		var buf bytes.Buffer
		if err := write(&buf, layout); err != nil {
			s.errResponse(w, err)
			return
		}
		s.writeFile(w, s.namer(req).Name(kind), export.ContentType(kind), buf.Bytes())
	default:
		s.errorResponse(w, http.StatusBadRequest, "unsupported format: "+format)
	}
}

// handleSequence builds the injection sequence for a plan request without
// rendering the other exports. With ?format=csv the sample order file is
// returned as a download.
func (s *Server) handleSequence(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodePlanRequest(w, r)
	if err != nil {
		s.errResponse(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.errResponse(w, err)
		return
	}

	layout := plate.Assemble(req.Layout, req.Label())
	s.metrics.observeWarnings(layout.Warnings)

	seq, err := sequence.Plan(sequence.NewInput(layout.Entries, req.Session, req.Sequence))
	if err != nil {
		s.errResponse(w, err)
		return
	}
	s.metrics.injections.Observe(float64(len(seq.Records)))

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		s.jsonResponse(w, http.StatusOK, SequenceResponse{
			Records:  seq.Records,
			Summary:  sequence.Summarize(seq.Records),
			Warnings: layout.Warnings,
		})
	case "csv":
		var buf bytes.Buffer
		if err := export.WriteSampleOrder(&buf, seq.Records); err != nil {
			s.errResponse(w, err)
			return
		}
		s.writeFile(w, s.namer(req).Name(export.KindSampleOrder), export.ContentType(export.KindSampleOrder), buf.Bytes())
	default:
		s.errorResponse(w, http.StatusBadRequest, "unsupported format: "+format)
	}
}

// planOptions builds pipeline options, attaching storage when the request
// asks for persistence.
func (s *Server) planOptions(req pipeline.Request) (pipeline.RunOptions, error) {
	opts := pipeline.RunOptions{
		Request: req,
		Logger:  s.logger,
		Now:     s.now,
	}
	if req.Persist {
		if s.store == nil {
			return opts, &ErrUnavailable{Feature: "plan storage"}
		}
		opts.Store = s.store
		opts.Blobs = s.blobs
	}
	return opts, nil
}

func (s *Server) recordPlan(result *pipeline.Result, err error) {
	if err != nil {
		s.metrics.plans.WithLabelValues("failed").Inc()
		return
	}
	s.metrics.plans.WithLabelValues("completed").Inc()
	s.metrics.observeWarnings(result.Layout.Warnings)
	s.metrics.injections.Observe(float64(result.Summary.Total))
}

// handlePlan runs the full pipeline. With ?download=<kind> the rendered file
// of that kind is returned instead of the JSON summary.
func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodePlanRequest(w, r)
	if err != nil {
		s.errResponse(w, err)
		return
	}
	opts, err := s.planOptions(req)
	if err != nil {
		s.errResponse(w, err)
		return
	}

	result, err := pipeline.Run(r.Context(), opts)
	s.recordPlan(result, err)
	if err != nil {
		s.errResponse(w, err)
		return
	}

	if kind := r.URL.Query().Get("download"); kind != "" {
		f, ok := pipeline.FindFile(result.Files, export.Kind(kind))
		if !ok {
			s.errResponse(w, &ErrNotFound{Resource: "file", ID: kind})
			return
		}
		w.Header().Set("X-Plan-Run-ID", result.RunID.String())
		s.writeFile(w, f.Name, f.ContentType, f.Data)
		return
	}

	status := http.StatusOK
	if result.Persisted {
		status = http.StatusCreated
	}
	s.jsonResponse(w, status, newPlanResponse(result))
}

// handlePlanStream runs the full pipeline and streams progress as
// Server-Sent Events, ending with a "complete" or "error" event.
func (s *Server) handlePlanStream(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodePlanRequest(w, r)
	if err != nil {
		s.errResponse(w, err)
		return
	}
	opts, err := s.planOptions(req)
	if err != nil {
		s.errResponse(w, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	opts.OnProgress = func(ev pipeline.ProgressEvent) {
		if err := sse.WriteProgress(ev); err != nil {
			s.logger.Debug("failed to write progress event", zap.Error(err))
		}
	}

	result, err := pipeline.Run(r.Context(), opts)
	s.recordPlan(result, err)
	if err != nil {
		if HTTPStatus(err) >= http.StatusInternalServerError {
			s.logger.Error("plan failed", zap.Error(err))
			sse.WriteError(http.StatusText(http.StatusInternalServerError))
			return
		}
		sse.WriteError(err.Error())
		return
	}
	sse.WriteComplete(newPlanResponse(result))
}

func parseRunID(r *http.Request) (uuid.UUID, error) {
	idStr := r.PathValue("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, &ErrValidation{Message: "invalid plan ID format"}
	}
	return id, nil
}
