package db

import (
	"time"

	"github.com/google/uuid"
)

// Run represents a plan run record
type Run struct {
	ID          uuid.UUID  `json:"id"`
	Project     string     `json:"project"`
	PlateID     string     `json:"plate_id"`
	Technique   string     `json:"technique"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// RunInput holds the fields recorded when a run starts
type RunInput struct {
	Project   string
	PlateID   string
	Technique string
}

// Run status values
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// ArtifactStep constants for known artifact types
const (
	StepPlateLayout       = "plate_layout"
	StepWarnings          = "warnings"
	StepInjectionSequence = "injection_sequence"
	StepEvosepTable       = "evosep_table"
	StepSDRFTable         = "sdrf_table"
	StepExportManifest    = "export_manifest"
	StepSampleOrderCSV    = "sample_order_csv"
	StepSDRFTSV           = "sdrf_tsv"
)

// Artifact categories
const (
	CategoryPlate    = "plate"
	CategorySequence = "sequence"
	CategoryExport   = "export"
)

// Steps lists the JSON artifact steps in pipeline order.
var Steps = []string{
	StepPlateLayout,
	StepWarnings,
	StepInjectionSequence,
	StepEvosepTable,
	StepSDRFTable,
	StepExportManifest,
}

// RunFilters holds optional filters for listing runs
type RunFilters struct {
	Project string
	Status  string
	Limit   int
}

// ArtifactSummary is a lightweight view of an artifact for listing
type ArtifactSummary struct {
	ID        uuid.UUID `json:"id"`
	Step      string    `json:"step"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
	HasJSON   bool      `json:"has_json"`
	HasText   bool      `json:"has_text"`
}

const defaultListLimit = 50
