package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thanadol-git/plate-planner/internal/blob"
	"github.com/thanadol-git/plate-planner/internal/types"
)

func TestLoadConfig_ValidJSON(t *testing.T) {
	content := `{
		"session": {"project": "ProjX", "cohort": "Cohort_2", "technique": "SRM", "instrument": "TSQ Altis"},
		"sequence": {"volume": 2.5, "wash": {"position": "G4"}},
		"store": "sqlite",
		"verbose": true
	}`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "ProjX", cfg.Session.Project)
	assert.Equal(t, "Cohort_2", cfg.Session.Cohort)
	assert.Equal(t, types.SRM, cfg.Session.Technique)
	assert.Equal(t, 2.5, cfg.Sequence.Volume)
	assert.Equal(t, "G4", cfg.Sequence.Wash.Position)
	assert.Equal(t, StoreSQLite, cfg.Store)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_ValidYAML(t *testing.T) {
	content := `
session:
  project: ProjY
  enzymes: [Trypsin, Lys-C]
sequence:
  bay: Blue
  seed: 42
evosep:
  slot: 3
  irt:
    slot: 6
    count: 2
    method: irt.meth
blob:
  driver: s3
  s3_bucket: plates
`
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)

	assert.Equal(t, "ProjY", cfg.Session.Project)
	assert.Equal(t, []string{"Trypsin", "Lys-C"}, cfg.Session.Enzymes)
	assert.Equal(t, types.BayBlue, cfg.Sequence.Bay)
	require.NotNil(t, cfg.Sequence.Seed)
	assert.Equal(t, uint64(42), *cfg.Sequence.Seed)
	require.NotNil(t, cfg.Evosep)
	assert.Equal(t, 3, cfg.Evosep.Slot)
	require.NotNil(t, cfg.Evosep.IRT)
	assert.Equal(t, 2, cfg.Evosep.IRT.Count)
	assert.Equal(t, blob.DriverS3, cfg.Blob.Driver)
	assert.Equal(t, "plates", cfg.Blob.S3Bucket)
}

func TestLoadConfig_EmptyYAML(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(""), 0644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	assert.Equal(t, Config{}, *cfg)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	content := `{ invalid json }`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte("session: [unclosed"), 0644))

	cfg, err := LoadConfig(tmpFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config YAML")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config path is empty")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "empty is valid", cfg: Config{}},
		{name: "defaults are valid", cfg: Defaults(time.Now())},
		{name: "postgres without url", cfg: Config{Store: StorePostgres}, wantErr: "database_url"},
		{name: "postgres with url", cfg: Config{Store: StorePostgres, DatabaseURL: "postgres://localhost/plates"}},
		{name: "unknown store", cfg: Config{Store: "mongo"}, wantErr: "unknown store"},
		{name: "s3 without bucket", cfg: Config{Blob: blob.Config{Driver: blob.DriverS3}}, wantErr: "s3_bucket"},
		{name: "unknown blob driver", cfg: Config{Blob: blob.Config{Driver: "gcs"}}, wantErr: "unknown blob driver"},
		{name: "unknown technique", cfg: Config{Session: types.Session{Technique: "MRM"}}, wantErr: "unknown technique"},
		{name: "negative volume", cfg: Config{Sequence: types.SequenceSettings{Volume: -1}}, wantErr: "sequence.volume"},
		{name: "slot out of range", cfg: Config{Evosep: &types.EvosepSettings{Slot: 7}}, wantErr: "evosep.slot"},
		{name: "missing layout file", cfg: Config{LayoutFile: "/nonexistent/layout.txt"}, wantErr: "layout file not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config error")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDefaults(t *testing.T) {
	d := Defaults(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))

	assert.Equal(t, "Project X", d.Session.Project)
	assert.Equal(t, "Cohort_1", d.Session.Cohort)
	assert.Equal(t, types.DIA, d.Session.Technique)
	assert.Equal(t, "20250301", d.Sequence.Date)
	assert.Equal(t, "G3", d.Sequence.Wash.Position)
	assert.Equal(t, "GE1", d.Sequence.QC.Position)
	assert.Equal(t, "GE2", d.Sequence.QCBetween.Position)
	assert.Equal(t, "27", d.SDRF.CollisionEnergy)

	require.NoError(t, d.Session.Validate())
	require.NoError(t, d.Sequence.Validate())
	require.NoError(t, d.SDRF.Validate())

	ev := DefaultEvosep(`C:\out`)
	require.NoError(t, ev.Validate())
}

func TestMergeWithDefaults(t *testing.T) {
	defaults := Defaults(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	ev := DefaultEvosep("out")
	defaults.Evosep = &ev

	partial := Config{
		Session:  types.Session{Project: "Custom", Technique: types.PRM},
		Sequence: types.SequenceSettings{Volume: 5, QC: types.AuxSample{Position: "GE9"}},
		Store:    StoreSQLite,
	}

	merged := partial.MergeWithDefaults(defaults)

	// Custom values should be preserved
	assert.Equal(t, "Custom", merged.Session.Project)
	assert.Equal(t, types.PRM, merged.Session.Technique)
	assert.Equal(t, 5.0, merged.Sequence.Volume)
	assert.Equal(t, "GE9", merged.Sequence.QC.Position)
	assert.Equal(t, StoreSQLite, merged.Store)

	// Default values should fill in empty fields
	assert.Equal(t, "Cohort_1", merged.Session.Cohort)
	assert.Equal(t, []string{"Trypsin"}, merged.Session.Enzymes)
	assert.Equal(t, `C:\data\QC`, merged.Sequence.QC.Path)
	assert.Equal(t, "QC_Plasma", merged.Sequence.QC.Name)
	assert.Equal(t, "RAW", merged.SDRF.MSFile)
	require.NotNil(t, merged.Evosep)
	assert.Equal(t, 1, merged.Evosep.Slot)

	// The merged evosep settings are a copy
	merged.Evosep.Slot = 4
	assert.Equal(t, 1, defaults.Evosep.Slot)
}

func TestMergeWithDefaults_EmptyDefaults(t *testing.T) {
	cfg := Config{Session: types.Session{Project: "Test"}}

	merged := cfg.MergeWithDefaults(Config{})

	assert.Equal(t, "Test", merged.Session.Project)
	assert.Nil(t, merged.Evosep)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"DATABASE_URL":                 "postgres://db/plates",
		"PLATEPLAN_STORE":              "postgres",
		"PLATEPLAN_BLOB_DRIVER":        "s3",
		"PLATEPLAN_BLOB_S3_BUCKET":     "plates",
		"PLATEPLAN_BLOB_S3_PATH_STYLE": "TRUE",
	}
	cfg := Defaults(time.Now())
	cfg.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "postgres://db/plates", cfg.DatabaseURL)
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, DefaultSQLitePath, cfg.SQLitePath)
	assert.Equal(t, blob.DriverS3, cfg.Blob.Driver)
	assert.Equal(t, "plates", cfg.Blob.S3Bucket)
	assert.True(t, cfg.Blob.S3PathStyle)
	assert.NoError(t, cfg.Validate())
}

func TestLoadWithDefaults(t *testing.T) {
	content := `session:
  project: ProjY
  enzymes: [Lys-C]
sequence:
  volume: 3
  qc:
    position: GE5
`
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0644))

	defaults := Defaults(time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC))
	cfg, err := LoadWithDefaults(tmpFile, defaults)
	require.NoError(t, err)

	assert.Equal(t, "ProjY", cfg.Session.Project)
	assert.Equal(t, "Cohort_1", cfg.Session.Cohort)
	assert.Equal(t, []string{"Lys-C"}, cfg.Session.Enzymes)
	assert.Equal(t, 3.0, cfg.Sequence.Volume)
	assert.Equal(t, "GE5", cfg.Sequence.QC.Position)
	assert.Equal(t, `C:\Xcalibur\methods\QC`, cfg.Sequence.QC.Method)
	assert.True(t, cfg.Sequence.IncludeQCBetween, "omitted bools keep their defaults")
	assert.Equal(t, "20240517", cfg.Sequence.Date)

	// The defaults themselves are untouched
	assert.Equal(t, []string{"Trypsin"}, defaults.Session.Enzymes)
	assert.Equal(t, "GE1", defaults.Sequence.QC.Position)
}

func TestLoadWithDefaults_ExplicitFalse(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(`{"sequence": {"include_qc_between": false}}`), 0644))

	cfg, err := LoadWithDefaults(tmpFile, Defaults(time.Now()))
	require.NoError(t, err)
	assert.False(t, cfg.Sequence.IncludeQCBetween)
}

func TestLoadWithDefaults_Errors(t *testing.T) {
	_, err := LoadWithDefaults("", Defaults(time.Now()))
	assert.Error(t, err)

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(`{broken`), 0644))
	_, err = LoadWithDefaults(tmpFile, Defaults(time.Now()))
	assert.Error(t, err)
}
