package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/thanadol-git/plate-planner/internal/blob"
	"github.com/thanadol-git/plate-planner/internal/config"
	"github.com/thanadol-git/plate-planner/internal/db"
	"github.com/thanadol-git/plate-planner/internal/export"
	"github.com/thanadol-git/plate-planner/internal/sequence"
	"github.com/thanadol-git/plate-planner/internal/types"
)

var fixedNow = time.Date(2024, 5, 17, 9, 30, 0, 0, time.UTC)

const testLayout = "EMPTY;RowH\nPool;A7\nControl;G12"

func testRequest() Request {
	return RequestFromConfig(config.Defaults(fixedNow), testLayout)
}

func TestRun_NoPersistence(t *testing.T) {
	var (
		mu     sync.Mutex
		events []ProgressEvent
	)
	result, err := Run(context.Background(), RunOptions{
		Request: testRequest(),
		Now:     func() time.Time { return fixedNow },
		Logger:  zaptest.NewLogger(t),
		OnProgress: func(ev ProgressEvent) {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, ev)
		},
	})
	require.NoError(t, err)

	assert.False(t, result.Persisted)
	assert.NotEqual(t, uuid.Nil, result.RunID)
	assert.Empty(t, result.Layout.Warnings)
	assert.Equal(t, 84, result.Summary.Samples)
	assert.Equal(t, sequence.ExpectedLength(84, types.DIA, true), result.Summary.Total)
	assert.Nil(t, result.Evosep)
	require.NotNil(t, result.SDRF)
	assert.Len(t, result.SDRF.Rows, 84)

	kinds := make([]export.Kind, len(result.Files))
	for i, f := range result.Files {
		kinds[i] = f.Kind
		assert.NotEmpty(t, f.Data, f.Kind)
		assert.Equal(t, len(f.Data), f.Size)
	}
	assert.Equal(t, []export.Kind{
		export.KindLayoutCSV, export.KindLayoutXLSX, export.KindSampleOrder, export.KindSDRF, export.KindSkyline,
	}, kinds)

	order, ok := FindFile(result.Files, export.KindSampleOrder)
	require.True(t, ok)
	assert.Equal(t, "202405170930_Project X_Sample_Order_Cohort_1.csv", order.Name)

	skyline, ok := FindFile(result.Files, export.KindSkyline)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(string(skyline.Data), "Row,Column,"), "skyline keeps only characteristics columns")

	var steps []string
	for _, ev := range events {
		steps = append(steps, ev.Step)
		assert.Equal(t, result.RunID.String(), ev.RunID)
	}
	assert.Equal(t, []string{
		db.StepPlateLayout, db.StepInjectionSequence, db.StepSDRFTable, db.StepExportManifest,
	}, steps)
}

func TestRun_WithEvosep(t *testing.T) {
	req := testRequest()
	ev := config.DefaultEvosep(`C:\data\out`)
	ev.Randomize = true
	seed := uint64(7)
	ev.Seed = &seed
	ev.IRT = &types.IRTSettings{Slot: 2, Count: 3, Method: `C:\Xcalibur\irt.meth`}
	req.Evosep = &ev

	first, err := Run(context.Background(), RunOptions{Request: req, Now: func() time.Time { return fixedNow }})
	require.NoError(t, err)
	second, err := Run(context.Background(), RunOptions{Request: req, Now: func() time.Time { return fixedNow }})
	require.NoError(t, err)

	require.NotNil(t, first.Evosep)
	assert.Len(t, first.Evosep.Rows, 84+3)
	assert.Equal(t, first.Evosep.Rows, second.Evosep.Rows, "seeded tray order is reproducible")
	assert.Len(t, first.Files, 7)

	_, ok := FindFile(first.Files, export.KindEvosepXML)
	assert.True(t, ok)
}

func TestRun_PermuteOverride(t *testing.T) {
	req := testRequest()
	req.Sequence.Randomize = true

	reverse := func(n int) []int {
		p := make([]int, n)
		for i := range p {
			p[i] = n - 1 - i
		}
		return p
	}

	result, err := Run(context.Background(), RunOptions{Request: req, Permute: reverse})
	require.NoError(t, err)

	samples := result.Sequence.Samples
	order := result.Sequence.Order
	require.Len(t, order, len(samples))
	assert.Equal(t, samples[0], order[len(order)-1])
	assert.Equal(t, samples[len(samples)-1], order[0])
}

func TestRun_InvalidRequest(t *testing.T) {
	req := testRequest()
	req.Session.Technique = "XYZ"

	store := openSQLite(t)
	result, err := Run(context.Background(), RunOptions{Request: req, Store: store})
	require.Error(t, err)
	assert.Nil(t, result)

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "session", reqErr.Message)

	runs, err := store.ListRuns(context.Background(), db.RunFilters{})
	require.NoError(t, err)
	assert.Empty(t, runs, "nothing is persisted for an invalid request")
}

func openSQLite(t *testing.T) db.Store {
	t.Helper()
	store, err := db.Open(context.Background(), db.BackendSQLite, "", filepath.Join(t.TempDir(), "plateplan.db"))
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func TestRun_PersistsAndUploads(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t)
	blobs := blob.NewMemory()

	result, err := Run(ctx, RunOptions{
		Request: testRequest(),
		Store:   store,
		Blobs:   blobs,
		Now:     func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	require.True(t, result.Persisted)

	run, err := store.GetRun(ctx, result.RunID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, db.RunStatusCompleted, run.Status)
	assert.Equal(t, "Project X", run.Project)
	assert.Equal(t, "Cohort_1", run.PlateID)

	seq, err := db.LoadArtifact[sequence.Sequence](ctx, store, result.RunID, db.StepInjectionSequence)
	require.NoError(t, err)
	require.NotNil(t, seq)
	assert.Equal(t, result.Sequence.Records, seq.Records)

	text, err := store.GetTextArtifact(ctx, result.RunID, db.StepSampleOrderCSV)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "\ufeffBracket Type=4"))

	manifest, err := db.LoadArtifact[Manifest](ctx, store, result.RunID, db.StepExportManifest)
	require.NoError(t, err)
	require.NotNil(t, manifest)
	assert.Len(t, manifest.Files, len(result.Files))
	assert.Len(t, manifest.Uploaded, len(result.Files))

	infos, err := blobs.List(ctx, result.RunID.String()+"/")
	require.NoError(t, err)
	require.Len(t, infos, len(result.Files))
	for _, info := range infos {
		assert.Equal(t, "Project X", info.Metadata["project"])
	}
}

func TestRun_BuildFailureMarksRunFailed(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t)

	req := testRequest()
	req.Sequence.Randomize = true
	short := func(n int) []int { return []int{0} }

	_, err := Run(ctx, RunOptions{Request: req, Store: store, Permute: short})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "building injection sequence failed")

	runs, err := store.ListRuns(ctx, db.RunFilters{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, db.RunStatusFailed, runs[0].Status)

	// The layout was saved before the failure
	arts, err := store.ListArtifacts(ctx, runs[0].ID)
	require.NoError(t, err)
	assert.Len(t, arts, 2)
}

func TestRequest_WithDefaults(t *testing.T) {
	defaults := config.Defaults(fixedNow)
	req := Request{
		Layout:  "Pool;A1",
		Session: types.Session{Project: "ProjY", Technique: types.SRM, Instrument: "TSQ Altis"},
		Evosep:  &types.EvosepSettings{Slot: 3},
	}

	got := req.WithDefaults(defaults)

	assert.Equal(t, "ProjY", got.Session.Project)
	assert.Equal(t, types.SRM, got.Session.Technique)
	assert.Equal(t, "Cohort_1", got.Session.Cohort)
	assert.Equal(t, "Cohort_1", got.Label())
	assert.Equal(t, defaults.Sequence.Volume, got.Sequence.Volume)
	assert.Equal(t, defaults.SDRF, got.SDRF)
	require.NotNil(t, got.Evosep)
	assert.Equal(t, 3, got.Evosep.Slot)
	assert.Equal(t, defaults.Sequence.DataPath, got.Evosep.OutputDir)
	assert.NotEmpty(t, got.Evosep.AnalysisMethod)
	require.NoError(t, got.Validate())

	// The request itself is untouched
	assert.Empty(t, req.Session.Cohort)
	assert.Empty(t, req.Evosep.AnalysisMethod)
}

func TestRequest_WithDefaults_NoEvosep(t *testing.T) {
	got := Request{Layout: "Pool;A1"}.WithDefaults(config.Defaults(fixedNow))
	assert.Nil(t, got.Evosep)
}

func TestRequestError(t *testing.T) {
	err := &RequestError{Message: "sdrf"}
	assert.Equal(t, "invalid request: sdrf", err.Error())
	assert.Nil(t, err.Unwrap())
}

func TestDecodeRequest(t *testing.T) {
	seed := uint64(9)
	defaults := config.Defaults(fixedNow)
	defaults.Sequence.Seed = &seed

	doc := `{
		"layout": "Pool;A1",
		"session": {"project": "ProjD", "enzymes": ["Trypsin", "Lys-C"]},
		"sequence": {"include_qc_between": false, "seed": 4},
		"evosep": {"slot": 5},
		"persist": true
	}`

	got, err := DecodeRequest([]byte(doc), defaults)
	require.NoError(t, err)

	assert.Equal(t, "ProjD", got.Session.Project)
	assert.Equal(t, "Cohort_1", got.Session.Cohort)
	assert.Equal(t, defaults.Session.Instrument, got.Session.Instrument)
	assert.Equal(t, []string{"Trypsin", "Lys-C"}, got.Session.Enzymes)
	assert.False(t, got.Sequence.IncludeQCBetween)
	assert.Equal(t, defaults.Sequence.Volume, got.Sequence.Volume)
	require.NotNil(t, got.Sequence.Seed)
	assert.Equal(t, uint64(4), *got.Sequence.Seed)
	require.NotNil(t, got.Evosep)
	assert.Equal(t, 5, got.Evosep.Slot)
	assert.NotEmpty(t, got.Evosep.XcaliburMethod)
	assert.True(t, got.Persist)
	require.NoError(t, got.Validate())

	// Decoding never writes through the defaults
	assert.Equal(t, uint64(9), seed)
	assert.Equal(t, []string{"Trypsin"}, defaults.Session.Enzymes)
}

func TestDecodeRequest_KeepsOmittedBools(t *testing.T) {
	got, err := DecodeRequest([]byte(`{"layout": "Pool;A1", "session": {"project": "P"}}`), config.Defaults(fixedNow))
	require.NoError(t, err)

	assert.True(t, got.Sequence.IncludeQCBetween)
	assert.Nil(t, got.Evosep)
}

func TestDecodeRequest_Malformed(t *testing.T) {
	_, err := DecodeRequest([]byte(`{"layout": 7}`), config.Defaults(fixedNow))
	require.Error(t, err)

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "malformed document", reqErr.Message)
}
