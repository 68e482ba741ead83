// Package pipeline provides the high-level orchestration for planning a plate:
// assembling the layout, building the injection sequence and its derived
// tables, rendering the exports and optionally persisting the run.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/thanadol-git/plate-planner/internal/blob"
	"github.com/thanadol-git/plate-planner/internal/db"
	"github.com/thanadol-git/plate-planner/internal/export"
	"github.com/thanadol-git/plate-planner/internal/plate"
	"github.com/thanadol-git/plate-planner/internal/sdrf"
	"github.com/thanadol-git/plate-planner/internal/sequence"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step     string `json:"step"`
	Category string `json:"category"`
	Message  string `json:"message"`
	RunID    string `json:"run_id,omitempty"`
	Content  any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// RunOptions holds configuration for running the pipeline
type RunOptions struct {
	Request Request

	// Store persists the run and its artifacts. Nil disables persistence.
	Store db.Store
	// Blobs receives every rendered file under <run id>/<file name>. Optional.
	Blobs blob.Store

	// Permute overrides the randomization of the sequence when no seed is set.
	Permute sequence.PermuteFunc
	// Now stamps the export file names. Defaults to time.Now.
	Now func() time.Time

	Logger     *zap.Logger
	OnProgress ProgressCallback
}

// Result is everything one pipeline run produced.
type Result struct {
	RunID     uuid.UUID             `json:"run_id"`
	Persisted bool                  `json:"persisted"`
	Layout    *plate.Layout         `json:"layout"`
	Sequence  *sequence.Sequence    `json:"sequence"`
	Summary   sequence.Summary      `json:"summary"`
	Evosep    *sequence.EvosepTable `json:"evosep,omitempty"`
	SDRF      *sdrf.Table           `json:"sdrf"`
	Files     []export.File         `json:"files"`
	Uploaded  []blob.Info           `json:"uploaded,omitempty"`
}

// Manifest is the export_manifest artifact: the rendered files and where
// they were uploaded.
type Manifest struct {
	Files    []export.File `json:"files"`
	Uploaded []blob.Info   `json:"uploaded,omitempty"`
}

// emitProgress calls the progress callback if configured
func emitProgress(opts *RunOptions, runID uuid.UUID, step, category, message string, content any) {
	if opts.OnProgress == nil {
		return
	}
	ev := ProgressEvent{
		Step:     step,
		Category: category,
		Message:  message,
		Content:  content,
	}
	if runID != uuid.Nil {
		ev.RunID = runID.String()
	}
	opts.OnProgress(ev)
}

// Run plans one plate end to end.
//
// Settings are validated first; a validation failure returns a *RequestError
// and nothing is persisted. Persistence and uploads are best effort: store
// errors are logged and the run continues, as the rendered files are still
// returned to the caller.
func Run(ctx context.Context, opts RunOptions) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	req := opts.Request

	if err := req.Validate(); err != nil {
		return nil, err
	}

	// Step 1: Assemble the plate layout
	layout := plate.Assemble(req.Layout, req.Label())
	for _, w := range layout.Warnings {
		log.Warn("plate annotation warning", zap.String("kind", string(w.Kind)), zap.String("detail", w.String()))
	}

	// Create the run once the layout exists so the record carries the plate id
	result := &Result{Layout: layout}
	database := opts.Store
	if database != nil {
		runID, err := database.CreateRun(ctx, db.RunInput{
			Project:   req.Session.Project,
			PlateID:   req.Session.Plate(),
			Technique: string(req.Session.Technique),
		})
		if err != nil {
			log.Warn("failed to create run, continuing without persistence", zap.Error(err))
			database = nil
		} else {
			result.RunID = runID
			result.Persisted = true
			log.Debug("created run", zap.String("run_id", runID.String()))
		}
	}
	if result.RunID == uuid.Nil {
		result.RunID = uuid.New()
	}
	runID := result.RunID
	log = log.With(zap.String("run_id", runID.String()))

	save := func(step, category string, content any) {
		if database == nil {
			return
		}
		if err := database.SaveArtifact(ctx, runID, step, category, content); err != nil {
			log.Warn("failed to save artifact", zap.String("step", step), zap.Error(err))
		}
	}
	saveText := func(step, category string, text []byte) {
		if database == nil {
			return
		}
		if err := database.SaveTextArtifact(ctx, runID, step, category, string(text)); err != nil {
			log.Warn("failed to save artifact", zap.String("step", step), zap.Error(err))
		}
	}
	fail := func(err error) (*Result, error) {
		if database != nil {
			if cerr := database.CompleteRun(ctx, runID, db.RunStatusFailed); cerr != nil {
				log.Warn("failed to mark run failed", zap.Error(cerr))
			}
		}
		return nil, err
	}

	save(db.StepPlateLayout, db.CategoryPlate, layout)
	save(db.StepWarnings, db.CategoryPlate, layout.Warnings)
	emitProgress(&opts, runID, db.StepPlateLayout, db.CategoryPlate,
		fmt.Sprintf("Assembled plate with %d labels and %d warnings", len(layout.Counts()), len(layout.Warnings)), layout)

	// Step 2: Build the injection sequence
	in := sequence.NewInput(layout.Entries, req.Session, req.Sequence)
	if opts.Permute != nil && req.Sequence.Seed == nil {
		in.Permute = opts.Permute
	}
	seq, err := sequence.Plan(in)
	if err != nil {
		return fail(fmt.Errorf("building injection sequence failed: %w", err))
	}
	result.Sequence = seq
	result.Summary = sequence.Summarize(seq.Records)
	save(db.StepInjectionSequence, db.CategorySequence, seq)
	emitProgress(&opts, runID, db.StepInjectionSequence, db.CategorySequence,
		fmt.Sprintf("Built %d injections for %d samples", result.Summary.Total, result.Summary.Samples), result.Summary)

	// Step 3: Evosep tray table, only when requested
	if req.Evosep != nil {
		permute := opts.Permute
		if req.Evosep.Seed != nil {
			permute = nil
		}
		table, err := sequence.BuildEvosep(seq.Samples, *req.Evosep, permute)
		if err != nil {
			return fail(fmt.Errorf("building evosep table failed: %w", err))
		}
		result.Evosep = table
		save(db.StepEvosepTable, db.CategorySequence, table)
		emitProgress(&opts, runID, db.StepEvosepTable, db.CategorySequence,
			fmt.Sprintf("Built Evosep table with %d rows", len(table.Rows)), nil)
	}

	// Step 4: SDRF annotation
	table, err := sdrf.Build(seq.Samples, req.Session, req.SDRF)
	if err != nil {
		return fail(fmt.Errorf("building sdrf failed: %w", err))
	}
	result.SDRF = table
	save(db.StepSDRFTable, db.CategorySequence, table)
	emitProgress(&opts, runID, db.StepSDRFTable, db.CategorySequence,
		fmt.Sprintf("Built SDRF with %d rows", len(table.Rows)), nil)

	// Step 5: Render every export in parallel
	files, err := RenderFiles(ctx, RenderInput{
		Namer:   export.Namer{Project: req.Session.Project, PlateID: req.Session.Plate(), Now: now()},
		Layout:  layout,
		Records: seq.Records,
		Evosep:  result.Evosep,
		SDRF:    table,
	})
	if err != nil {
		return fail(err)
	}
	result.Files = files
	if f, ok := FindFile(files, export.KindSampleOrder); ok {
		saveText(db.StepSampleOrderCSV, db.CategoryExport, f.Data)
	}
	if f, ok := FindFile(files, export.KindSDRF); ok {
		saveText(db.StepSDRFTSV, db.CategoryExport, f.Data)
	}

	// Step 6: Upload to the blob store
	if opts.Blobs != nil {
		for _, f := range files {
			info, err := opts.Blobs.Put(ctx, blob.Key(runID.String(), f.Name), bytes.NewReader(f.Data), blob.PutOptions{
				ContentType: f.ContentType,
				Metadata: map[string]string{
					"kind":     string(f.Kind),
					"project":  req.Session.Project,
					"plate_id": req.Session.Plate(),
				},
			})
			if err != nil {
				log.Warn("failed to upload file", zap.String("name", f.Name), zap.Error(err))
				continue
			}
			result.Uploaded = append(result.Uploaded, info)
		}
	}

	save(db.StepExportManifest, db.CategoryExport, Manifest{Files: files, Uploaded: result.Uploaded})
	emitProgress(&opts, runID, db.StepExportManifest, db.CategoryExport,
		fmt.Sprintf("Rendered %d files", len(files)), Manifest{Files: files, Uploaded: result.Uploaded})

	if database != nil {
		if err := database.CompleteRun(ctx, runID, db.RunStatusCompleted); err != nil {
			log.Warn("failed to complete run", zap.Error(err))
		}
	}
	log.Info("plan complete",
		zap.Int("samples", result.Summary.Samples),
		zap.Int("injections", result.Summary.Total),
		zap.Int("files", len(files)))

	return result, nil
}
