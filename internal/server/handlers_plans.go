package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/thanadol-git/plate-planner/internal/blob"
	"github.com/thanadol-git/plate-planner/internal/db"
	"github.com/thanadol-git/plate-planner/internal/export"
	"github.com/thanadol-git/plate-planner/internal/pipeline"
	"github.com/thanadol-git/plate-planner/internal/pipeline/steps"
)

// PlanDetail is the response for GET /plans/{id}
type PlanDetail struct {
	*db.Run
	Artifacts []db.ArtifactSummary `json:"artifacts"`
	Files     []export.File        `json:"files,omitempty"`
	Uploaded  []blob.Info          `json:"uploaded,omitempty"`
}

// ArtifactResponse is the response for a JSON artifact
type ArtifactResponse struct {
	RunID    string          `json:"run_id"`
	Step     string          `json:"step"`
	Category string          `json:"category"`
	Content  json.RawMessage `json:"content"`
}

// FileItem is one stored download of a plan
type FileItem struct {
	Name        string            `json:"name"`
	Size        int64             `json:"size_bytes"`
	ContentType string            `json:"content_type,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// textContentTypes maps text artifact steps to their content types.
var textContentTypes = map[string]string{
	db.StepSampleOrderCSV: export.ContentTypeCSV,
	db.StepSDRFTSV:        export.ContentTypeTSV,
}

// requireRun checks that storage is configured and the run exists.
func (s *Server) requireRun(r *http.Request) (*db.Run, error) {
	if s.store == nil {
		return nil, &ErrUnavailable{Feature: "plan storage"}
	}
	runID, err := parseRunID(r)
	if err != nil {
		return nil, err
	}
	run, err := s.store.GetRun(r.Context(), runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	if run == nil {
		return nil, &ErrNotFound{Resource: "plan", ID: runID.String()}
	}
	return run, nil
}

// handleListPlans lists stored runs, newest first
func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.errResponse(w, &ErrUnavailable{Feature: "plan storage"})
		return
	}

	filters := db.RunFilters{
		Project: r.URL.Query().Get("project"),
		Status:  r.URL.Query().Get("status"),
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			s.errorResponse(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filters.Limit = limit
	}

	runs, err := s.store.ListRuns(r.Context(), filters)
	if err != nil {
		s.errResponse(w, fmt.Errorf("failed to list runs: %w", err))
		return
	}
	if runs == nil {
		runs = []db.Run{}
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"plans": runs,
		"count": len(runs),
	})
}

// handleGetPlan returns a run, its artifact index and the export manifest
func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	run, err := s.requireRun(r)
	if err != nil {
		s.errResponse(w, err)
		return
	}

	artifacts, err := s.store.ListArtifacts(r.Context(), run.ID)
	if err != nil {
		s.errResponse(w, fmt.Errorf("failed to list artifacts: %w", err))
		return
	}
	if artifacts == nil {
		artifacts = []db.ArtifactSummary{}
	}

	detail := PlanDetail{Run: run, Artifacts: artifacts}
	manifest, err := db.LoadArtifact[pipeline.Manifest](r.Context(), s.store, run.ID, db.StepExportManifest)
	if err != nil {
		s.logger.Warn("failed to load export manifest", zap.String("run_id", run.ID.String()), zap.Error(err))
	} else if manifest != nil {
		detail.Files = manifest.Files
		detail.Uploaded = manifest.Uploaded
	}

	s.jsonResponse(w, http.StatusOK, detail)
}

// handleDeletePlan deletes a run, its artifacts and its stored files
func (s *Server) handleDeletePlan(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.errResponse(w, &ErrUnavailable{Feature: "plan storage"})
		return
	}
	runID, err := parseRunID(r)
	if err != nil {
		s.errResponse(w, err)
		return
	}

	if err := s.store.DeleteRun(r.Context(), runID); err != nil {
		s.errResponse(w, err)
		return
	}

	removed := 0
	if s.blobs != nil {
		removed = s.deleteFiles(r, runID)
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"id":            runID.String(),
		"deleted":       true,
		"files_deleted": removed,
	})
}

// deleteFiles removes the stored downloads of a run. Failures are logged;
// the run record is already gone.
func (s *Server) deleteFiles(r *http.Request, runID uuid.UUID) int {
	infos, err := s.blobs.List(r.Context(), runID.String()+"/")
	if err != nil {
		s.logger.Warn("failed to list plan files", zap.String("run_id", runID.String()), zap.Error(err))
		return 0
	}
	removed := 0
	for _, info := range infos {
		ok, err := s.blobs.Delete(r.Context(), info.Key)
		if err != nil {
			s.logger.Warn("failed to delete plan file", zap.String("key", info.Key), zap.Error(err))
			continue
		}
		if ok {
			removed++
		}
	}
	return removed
}

// handlePlanSteps reports which steps of a run are completed, available or blocked
func (s *Server) handlePlanSteps(w http.ResponseWriter, r *http.Request) {
	run, err := s.requireRun(r)
	if err != nil {
		s.errResponse(w, err)
		return
	}

	status, err := steps.GetStatus(r.Context(), s.store, run.ID)
	if err != nil {
		s.errResponse(w, fmt.Errorf("failed to get step status: %w", err))
		return
	}
	s.jsonResponse(w, http.StatusOK, status)
}

// handleListArtifacts lists the artifacts saved for a run
func (s *Server) handleListArtifacts(w http.ResponseWriter, r *http.Request) {
	run, err := s.requireRun(r)
	if err != nil {
		s.errResponse(w, err)
		return
	}

	artifacts, err := s.store.ListArtifacts(r.Context(), run.ID)
	if err != nil {
		s.errResponse(w, fmt.Errorf("failed to list artifacts: %w", err))
		return
	}
	if artifacts == nil {
		artifacts = []db.ArtifactSummary{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"run_id":    run.ID.String(),
		"artifacts": artifacts,
		"count":     len(artifacts),
	})
}

// handleGetArtifact returns one artifact. JSON steps are wrapped in an
// ArtifactResponse; text steps are served as-is with their file content type.
func (s *Server) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	run, err := s.requireRun(r)
	if err != nil {
		s.errResponse(w, err)
		return
	}

	stepName := r.PathValue("step")
	def, ok := steps.Lookup(stepName)
	if !ok {
		s.errResponse(w, &ErrNotFound{Resource: "step", ID: stepName})
		return
	}

	if contentType, isText := textContentTypes[stepName]; isText {
		text, err := s.store.GetTextArtifact(r.Context(), run.ID, stepName)
		if err != nil {
			s.errResponse(w, fmt.Errorf("failed to load artifact: %w", err))
			return
		}
		if text == "" {
			s.missingArtifact(w, r, run.ID, stepName)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		if _, err := io.WriteString(w, text); err != nil {
			s.logger.Warn("failed to write artifact", zap.String("step", stepName), zap.Error(err))
		}
		return
	}

	content, err := s.store.GetArtifact(r.Context(), run.ID, stepName)
	if err != nil {
		s.errResponse(w, fmt.Errorf("failed to load artifact: %w", err))
		return
	}
	if content == nil {
		s.missingArtifact(w, r, run.ID, stepName)
		return
	}

	s.jsonResponse(w, http.StatusOK, ArtifactResponse{
		RunID:    run.ID.String(),
		Step:     def.Name,
		Category: def.Category,
		Content:  content,
	})
}

// missingArtifact reports a step with no saved artifact: 409 when the run
// never produced its dependencies, 404 otherwise.
func (s *Server) missingArtifact(w http.ResponseWriter, r *http.Request, runID uuid.UUID, stepName string) {
	if err := steps.ValidateDependencies(r.Context(), s.store, runID, stepName); err != nil {
		s.errResponse(w, err)
		return
	}
	s.errResponse(w, &ErrNotFound{Resource: "artifact", ID: stepName})
}

// handleListFiles lists the downloads uploaded for a run
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	if s.blobs == nil {
		s.errResponse(w, &ErrUnavailable{Feature: "file storage"})
		return
	}
	run, err := s.requireRun(r)
	if err != nil {
		s.errResponse(w, err)
		return
	}

	prefix := run.ID.String() + "/"
	infos, err := s.blobs.List(r.Context(), prefix)
	if err != nil {
		s.errResponse(w, fmt.Errorf("failed to list files: %w", err))
		return
	}

	files := make([]FileItem, 0, len(infos))
	for _, info := range infos {
		files = append(files, FileItem{
			Name:        strings.TrimPrefix(info.Key, prefix),
			Size:        info.Size,
			ContentType: info.ContentType,
			Metadata:    info.Metadata,
		})
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"run_id": run.ID.String(),
		"files":  files,
		"count":  len(files),
	})
}

// handleGetFile streams one stored download
func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	if s.blobs == nil {
		s.errResponse(w, &ErrUnavailable{Feature: "file storage"})
		return
	}
	run, err := s.requireRun(r)
	if err != nil {
		s.errResponse(w, err)
		return
	}

	name := r.PathValue("name")
	info, body, err := s.blobs.Get(r.Context(), blob.Key(run.ID.String(), name))
	if err != nil {
		s.errResponse(w, err)
		return
	}
	defer body.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		s.logger.Warn("failed to stream file", zap.String("key", info.Key), zap.Error(err))
	}
}
