// Package config provides configuration loading and validation for the CLI
// and the API server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/thanadol-git/plate-planner/internal/blob"
	"github.com/thanadol-git/plate-planner/internal/types"
)

// Store backends for plan persistence.
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreNone     = "none"
)

// DefaultSQLitePath is used when the sqlite store is selected without a path.
const DefaultSQLitePath = "plateplan.db"

// Config represents the planner configuration that can be loaded from a JSON
// or YAML file. All fields are optional; missing values use defaults or must
// be provided via CLI flags.
type Config struct {
	// Plate
	LayoutFile   string `json:"layout_file,omitempty"`   // Path to the plate annotation text
	DefaultLabel string `json:"default_label,omitempty"` // Label for wells no line assigns (defaults to the cohort)

	Session  types.Session          `json:"session"`
	Sequence types.SequenceSettings `json:"sequence"`
	Evosep   *types.EvosepSettings  `json:"evosep,omitempty"`
	SDRF     types.SDRFSettings     `json:"sdrf"`

	// Persistence
	Store       string      `json:"store,omitempty"`        // postgres, sqlite or none
	DatabaseURL string      `json:"database_url,omitempty"` // PostgreSQL connection URL
	SQLitePath  string      `json:"sqlite_path,omitempty"`  // SQLite database file
	Blob        blob.Config `json:"blob"`

	// Output
	OutputDir string `json:"output_dir,omitempty"` // Directory the CLI writes export files to
	Verbose   bool   `json:"verbose,omitempty"`    // Print detailed debug information
}

// LoadConfig loads configuration from a JSON or YAML file; the extension
// decides (.yaml and .yml are YAML, anything else JSON).
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	data, err := readConfigJSON(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads a config file on top of defaults, so keys the file
// leaves out keep their default values. Unlike MergeWithDefaults this also
// holds for bool fields such as sequence.include_qc_between.
func LoadWithDefaults(path string, defaults Config) (*Config, error) {
	data, err := readConfigJSON(path)
	if err != nil {
		return nil, err
	}

	// Round-trip the defaults so decoding cannot write through their
	// pointers and slices.
	base, err := json.Marshal(defaults)
	if err != nil {
		return nil, fmt.Errorf("failed to copy defaults: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(base, &cfg); err != nil {
		return nil, fmt.Errorf("failed to copy defaults: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	merged := cfg.MergeWithDefaults(defaults)
	return &merged, nil
}

// readConfigJSON reads a config file and returns it as JSON.
func readConfigJSON(path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yamlToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}
	return data, nil
}

// yamlToJSON lets YAML files share the json struct tags.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(doc)
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by the session validators after merging.
func (c *Config) Validate() error {
	switch c.Store {
	case "", StoreNone, StoreSQLite:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config error: 'database_url' is required for the postgres store")
		}
	default:
		return fmt.Errorf("config error: unknown store %q (want postgres, sqlite or none)", c.Store)
	}

	switch c.Blob.Driver {
	case "", blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.Blob.S3Bucket == "" {
			return fmt.Errorf("config error: 'blob.s3_bucket' is required for the s3 driver")
		}
	default:
		return fmt.Errorf("config error: unknown blob driver %q", c.Blob.Driver)
	}

	if c.Session.Technique != "" && !c.Session.Technique.Valid() {
		return fmt.Errorf("config error: unknown technique %q", c.Session.Technique)
	}

	// Validate numeric ranges
	if c.Sequence.Volume < 0 {
		return fmt.Errorf("config error: 'sequence.volume' must be non-negative")
	}
	if c.Evosep != nil && (c.Evosep.Slot < 0 || c.Evosep.Slot > 6) {
		return fmt.Errorf("config error: 'evosep.slot' must be between 1 and 6")
	}

	if c.LayoutFile != "" {
		if _, err := os.Stat(c.LayoutFile); os.IsNotExist(err) {
			return fmt.Errorf("config error: layout file not found: %s", c.LayoutFile)
		}
	}

	return nil
}

// Defaults returns the stock planner settings. The acquisition date is taken
// from now.
func Defaults(now time.Time) Config {
	return Config{
		Session: types.Session{
			Project:         "Project X",
			Cohort:          "Cohort_1",
			Organism:        "Human",
			SampleType:      "Plasma",
			Instrument:      "Q Exactive HF",
			Technique:       types.DIA,
			Enzymes:         []string{"Trypsin"},
			Dissociation:    "HCD",
			ProteomeEdgeLot: "23233",
		},
		Sequence: types.SequenceSettings{
			Bay:         types.BayRed,
			Volume:      types.DefaultVolume,
			DataPath:    `C:\data\yourdir`,
			MethodPath:  `C:\Xcalibur\methods\method1`,
			Date:        now.Format("20060102"),
			Placeholder: types.DefaultPlaceholder,
			Wash: types.AuxSample{
				Name: types.DefaultWashName, Path: `C:\data\wash`, Method: `C:\Xcalibur\methods\wash`, Position: "G3",
			},
			QC: types.AuxSample{
				Name: types.DefaultQCName, Path: `C:\data\QC`, Method: `C:\Xcalibur\methods\QC`, Position: "GE1",
			},
			QCBetween: types.AuxSample{
				Path: `C:\data\QC_between`, Method: `C:\Xcalibur\methods\QC_between`, Position: "GE2",
			},
			IncludeQCBetween: true,
		},
		SDRF: types.SDRFSettings{
			MSFile:          "RAW",
			CollisionEnergy: types.DefaultCollisionEnergy,
			FactorValue:     "Sample",
		},
		Store:      StoreNone,
		SQLitePath: DefaultSQLitePath,
		Blob:       blob.Config{Driver: blob.DriverFilesystem, FSRoot: "./blobdata"},
		OutputDir:  ".",
	}
}

// DefaultEvosep returns the stock Evosep settings writing to outputDir.
func DefaultEvosep(outputDir string) types.EvosepSettings {
	return types.EvosepSettings{
		OutputDir:      outputDir,
		AnalysisMethod: `C:\data\Evosep\method.cam`,
		XcaliburMethod: `C:\Xcalibur\methods.meth`,
		Slot:           1,
	}
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.LayoutFile == "" {
		result.LayoutFile = defaults.LayoutFile
	}
	if result.DefaultLabel == "" {
		result.DefaultLabel = defaults.DefaultLabel
	}

	result.Session = mergeSession(result.Session, defaults.Session)
	result.Sequence = mergeSequence(result.Sequence, defaults.Sequence)
	if result.Evosep == nil && defaults.Evosep != nil {
		ev := *defaults.Evosep
		result.Evosep = &ev
	}
	if result.SDRF.MSFile == "" {
		result.SDRF.MSFile = defaults.SDRF.MSFile
	}
	if result.SDRF.CollisionEnergy == "" {
		result.SDRF.CollisionEnergy = defaults.SDRF.CollisionEnergy
	}
	if result.SDRF.FactorValue == "" {
		result.SDRF.FactorValue = defaults.SDRF.FactorValue
	}

	if result.Store == "" {
		result.Store = defaults.Store
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.SQLitePath == "" {
		result.SQLitePath = defaults.SQLitePath
	}
	if result.Blob.Driver == "" {
		result.Blob = defaults.Blob
	}
	if result.OutputDir == "" {
		result.OutputDir = defaults.OutputDir
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

func mergeSession(s, d types.Session) types.Session {
	if s.Project == "" {
		s.Project = d.Project
	}
	if s.Cohort == "" {
		s.Cohort = d.Cohort
	}
	if s.PlateID == "" {
		s.PlateID = d.PlateID
	}
	if s.Organism == "" {
		s.Organism = d.Organism
	}
	if s.SampleType == "" {
		s.SampleType = d.SampleType
	}
	if s.Instrument == "" {
		s.Instrument = d.Instrument
	}
	if s.Technique == "" {
		s.Technique = d.Technique
	}
	if len(s.Enzymes) == 0 {
		s.Enzymes = append([]string(nil), d.Enzymes...)
	}
	if s.Dissociation == "" {
		s.Dissociation = d.Dissociation
	}
	if s.ProteomeEdgeLot == "" {
		s.ProteomeEdgeLot = d.ProteomeEdgeLot
	}
	return s
}

func mergeSequence(s, d types.SequenceSettings) types.SequenceSettings {
	if s.Bay == "" {
		s.Bay = d.Bay
	}
	if s.Volume == 0 {
		s.Volume = d.Volume
	}
	if s.DataPath == "" {
		s.DataPath = d.DataPath
	}
	if s.MethodPath == "" {
		s.MethodPath = d.MethodPath
	}
	if s.Date == "" {
		s.Date = d.Date
	}
	if s.Placeholder == "" {
		s.Placeholder = d.Placeholder
	}
	if s.Seed == nil {
		s.Seed = d.Seed
	}
	s.Wash = mergeAux(s.Wash, d.Wash)
	s.QC = mergeAux(s.QC, d.QC)
	s.QCBetween = mergeAux(s.QCBetween, d.QCBetween)
	return s
}

func mergeAux(a, d types.AuxSample) types.AuxSample {
	if a.Name == "" {
		a.Name = d.Name
	}
	if a.Path == "" {
		a.Path = d.Path
	}
	if a.Method == "" {
		a.Method = d.Method
	}
	if a.Position == "" {
		a.Position = d.Position
	}
	if a.Volume == 0 {
		a.Volume = d.Volume
	}
	return a
}

// ApplyEnv overrides persistence settings from environment variables:
// DATABASE_URL, PLATEPLAN_STORE, PLATEPLAN_SQLITE_PATH and the
// PLATEPLAN_BLOB_* family.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := getenv("PLATEPLAN_STORE"); v != "" {
		c.Store = v
	}
	if v := getenv("PLATEPLAN_SQLITE_PATH"); v != "" {
		c.SQLitePath = v
	}
	if v := getenv("PLATEPLAN_BLOB_DRIVER"); v != "" {
		c.Blob.Driver = blob.Driver(v)
	}
	if v := getenv("PLATEPLAN_BLOB_FS_ROOT"); v != "" {
		c.Blob.FSRoot = v
	}
	if v := getenv("PLATEPLAN_BLOB_S3_BUCKET"); v != "" {
		c.Blob.S3Bucket = v
	}
	if v := getenv("PLATEPLAN_BLOB_S3_REGION"); v != "" {
		c.Blob.S3Region = v
	}
	if v := getenv("PLATEPLAN_BLOB_S3_ENDPOINT"); v != "" {
		c.Blob.S3Endpoint = v
	}
	if v := getenv("PLATEPLAN_BLOB_S3_PREFIX"); v != "" {
		c.Blob.S3Prefix = v
	}
	if v := getenv("PLATEPLAN_BLOB_S3_PATH_STYLE"); v != "" {
		c.Blob.S3PathStyle = strings.EqualFold(v, "true")
	}
}
