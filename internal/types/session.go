package types

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Default values used when a field is left empty.
const (
	DefaultPlaceholder     = "EMPTY"
	DefaultVolume          = 0.1
	DefaultWashName        = "wash"
	DefaultQCName          = "QC_Plasma"
	DefaultCollisionEnergy = "27"
	DefaultIRTName         = "iRT_Tag_unscheduled"
)

// Session describes the plate being planned: project and sample information
// plus the mass-spectrometry setup. It is passed explicitly between steps.
type Session struct {
	Project         string    `json:"project" validate:"required"`
	Cohort          string    `json:"cohort" validate:"required"`
	PlateID         string    `json:"plate_id,omitempty"`
	Organism        string    `json:"organism" validate:"required"`
	SampleType      string    `json:"sample_type" validate:"required"`
	Instrument      string    `json:"instrument" validate:"required"`
	Technique       Technique `json:"technique" validate:"required,oneof=DIA DDA PRM SRM"`
	Enzymes         []string  `json:"enzymes,omitempty" validate:"dive,required"`
	Dissociation    string    `json:"dissociation" validate:"required,oneof=ETD CID HCD"`
	ProteomeEdgeLot string    `json:"proteome_edge_lot,omitempty"`
}

// Plate returns the plate ID, falling back to the cohort name.
func (s *Session) Plate() string {
	if s.PlateID != "" {
		return s.PlateID
	}
	return s.Cohort
}

// Species returns the species name for the selected organism.
func (s *Session) Species() string {
	if species, ok := OrganismSpecies[s.Organism]; ok {
		return species
	}
	return s.Organism
}

// Validate validates the Session using the validator and the metadata tables.
func (s *Session) Validate() error {
	validate := validator.New()
	if err := validate.Struct(s); err != nil {
		return err
	}

	if _, ok := OrganismSpecies[s.Organism]; !ok {
		return fmt.Errorf("unknown organism %q (want one of %s)", s.Organism, strings.Join(mapKeys(OrganismSpecies), ", "))
	}
	if !containsString(SampleTypes, s.SampleType) {
		return fmt.Errorf("unknown sample type %q (want one of %s)", s.SampleType, strings.Join(SampleTypes, ", "))
	}
	if _, ok := InstrumentTechniques[s.Instrument]; !ok {
		return fmt.Errorf("unknown instrument %q", s.Instrument)
	}
	if !supports(s.Instrument, s.Technique) {
		return fmt.Errorf("instrument %q does not support %s acquisition", s.Instrument, s.Technique)
	}
	for _, enz := range s.Enzymes {
		if _, ok := EnzymeAccessions[enz]; !ok {
			return fmt.Errorf("unknown enzyme %q", enz)
		}
	}
	return nil
}

// AuxSample is a fixed auxiliary injection (wash, QC or QC-between).
type AuxSample struct {
	Name     string  `json:"name,omitempty"`
	Path     string  `json:"path" validate:"required"`
	Method   string  `json:"method" validate:"required"`
	Position string  `json:"position" validate:"required"`
	Volume   float64 `json:"volume,omitempty" validate:"gte=0,lte=20"`
}

// SequenceSettings are the injection parameters for the sample order.
type SequenceSettings struct {
	Bay              Bay       `json:"bay" validate:"required,oneof=Red Green Blue"`
	Volume           float64   `json:"volume" validate:"gt=0,lte=20"`
	DataPath         string    `json:"data_path" validate:"required"`
	MethodPath       string    `json:"method_path" validate:"required"`
	Date             string    `json:"date" validate:"required,len=8,numeric"`
	Placeholder      string    `json:"placeholder,omitempty"`
	Randomize        bool      `json:"randomize,omitempty"`
	Seed             *uint64   `json:"seed,omitempty"`
	Wash             AuxSample `json:"wash"`
	QC               AuxSample `json:"qc"`
	QCBetween        AuxSample `json:"qc_between"`
	IncludeQCBetween bool      `json:"include_qc_between"`
}

// Validate validates the SequenceSettings using the validator.
func (s *SequenceSettings) Validate() error {
	validate := validator.New()
	return validate.Struct(s)
}

// PlaceholderLabel returns the sentinel label for unused wells.
func (s *SequenceSettings) PlaceholderLabel() string {
	if s.Placeholder == "" {
		return DefaultPlaceholder
	}
	return s.Placeholder
}

// IRTSettings describe the optional iRT calibration pre-run.
type IRTSettings struct {
	Slot   int    `json:"slot" validate:"min=1,max=6"`
	Count  int    `json:"count" validate:"min=1,max=10"`
	Method string `json:"method" validate:"required"`
	Name   string `json:"name,omitempty"`
}

// StandbySettings are the post-run standby and prepare commands.
type StandbySettings struct {
	StandbyCommand string `json:"standby_command" validate:"required"`
	PrepareCommand string `json:"prepare_command" validate:"required"`
}

// EvosepSettings configure the Evosep (Chronos) method table.
type EvosepSettings struct {
	OutputDir      string           `json:"output_dir" validate:"required"`
	AnalysisMethod string           `json:"analysis_method" validate:"required"`
	XcaliburMethod string           `json:"xcalibur_method" validate:"required"`
	Slot           int              `json:"slot" validate:"min=1,max=6"`
	Comment        string           `json:"comment,omitempty"`
	Randomize      bool             `json:"randomize,omitempty"`
	Seed           *uint64          `json:"seed,omitempty"`
	IRT            *IRTSettings     `json:"irt,omitempty" validate:"omitempty"`
	Standby        *StandbySettings `json:"standby,omitempty" validate:"omitempty"`
}

// Validate validates the EvosepSettings using the validator.
func (s *EvosepSettings) Validate() error {
	validate := validator.New()
	return validate.Struct(s)
}

// SDRFSettings configure the SDRF annotation table.
type SDRFSettings struct {
	MSFile          string `json:"ms_file" validate:"required,oneof=RAW mzML"`
	CollisionEnergy string `json:"collision_energy" validate:"required,numeric"`
	FactorValue     string `json:"factor_value" validate:"required"`
}

// Validate validates the SDRFSettings using the validator.
func (s *SDRFSettings) Validate() error {
	validate := validator.New()
	return validate.Struct(s)
}

func mapKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
