package sdrf

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thanadol-git/plate-planner/internal/plate"
	"github.com/thanadol-git/plate-planner/internal/sequence"
	"github.com/thanadol-git/plate-planner/internal/types"
)

func testSession(tech types.Technique) types.Session {
	return types.Session{
		Project:         "ProjX",
		Cohort:          "Cohort_1",
		PlateID:         "P01",
		Organism:        "Human",
		SampleType:      "Plasma",
		Instrument:      "LIT Stellar",
		Technique:       tech,
		Enzymes:         []string{"Trypsin", "Lys-C"},
		Dissociation:    "HCD",
		ProteomeEdgeLot: "23233",
	}
}

func testSamples(t *testing.T, tech types.Technique) []sequence.Record {
	t.Helper()
	layout := plate.Assemble("EMPTY;A1\nPool;A7", "Cohort_1")
	seq, err := sequence.Plan(sequence.Input{
		Entries:     layout.Entries,
		Placeholder: "EMPTY",
		BayLetter:   "R",
		Volume:      0.1,
		DataPath:    "data",
		MethodPath:  "method",
		Naming:      sequence.Naming{Technique: tech, Date: "20250301", Project: "ProjX", PlateID: "P01"},
		Wash:        types.AuxSample{Name: "wash"},
		QC:          types.AuxSample{Name: "QC_Plasma"},
	})
	require.NoError(t, err)
	return seq.Samples
}

func defaultSettings() types.SDRFSettings {
	return types.SDRFSettings{MSFile: "RAW", CollisionEnergy: "27", FactorValue: "Sample"}
}

func TestBuild_MissingUpstream(t *testing.T) {
	_, err := Build(nil, testSession(types.DIA), defaultSettings())
	assert.True(t, errors.Is(err, sequence.ErrMissingUpstreamState))
}

func TestBuild_DIA(t *testing.T) {
	table, err := Build(testSamples(t, types.DIA), testSession(types.DIA), defaultSettings())
	require.NoError(t, err)
	require.Len(t, table.Rows, 95)

	assert.Equal(t, "source name", table.Columns[0])
	assert.Equal(t, "characteristics[Row]", table.Columns[1])
	assert.Equal(t, "factor value[Sample]", table.Columns[len(table.Columns)-1])

	first := table.Rows[0]
	get := func(name string) string { return first[table.Index(name)] }
	assert.Equal(t, "DIA_20250301_ProjX_P01_A2", get("source name"))
	assert.Equal(t, "A", get("characteristics[Row]"))
	assert.Equal(t, "2", get("characteristics[Column]"))
	assert.Equal(t, "2", get("characteristics[Source Vial]"))
	assert.Equal(t, "RA2", get("characteristics[Position]"))
	assert.Equal(t, "Homo sapiens", get("characteristics[organism]"))
	assert.Equal(t, "Plasma", get("characteristics[organism part]"))
	assert.Equal(t, "P01", get("characteristics[plate]"))
	assert.Equal(t, "not available", get("characteristics[age]"))
	assert.Equal(t, "1", get("characteristics[biological replicate]"))
	assert.Equal(t, "run 1", get("assay name"))
	assert.Equal(t, "DIA_20250301_ProjX_P01_A2.RAW", get("comment[data file]"))
	assert.Equal(t, "27 NCE", get("comment[collision energy]"))
	assert.Equal(t, "NT=Stellar;AC=MS:1003409", get("comment[instrument]"))
	assert.Equal(t, "NT=Data Independent Acquisition;AC=MS:1002804", get("comment[proteomics data acquisition method]"))
	assert.Equal(t, "400-1250 m/z", get("comment[MS1 scan range]"))
	assert.Equal(t, "100-2000 m/z", get("comment[MS2 scan range]"))
	assert.Equal(t, "Cohort_1", get("factor value[Sample]"))
	assert.Equal(t, -1, table.Index("comment[ProteomeEdge]"))

	assert.Equal(t, "run 95", table.Rows[94][table.Index("assay name")])
}

func TestBuild_CleavageAgentsFollowTechnicalReplicate(t *testing.T) {
	table, err := Build(testSamples(t, types.DIA), testSession(types.DIA), defaultSettings())
	require.NoError(t, err)

	rep := table.Index("comment[technical replicate]")
	require.GreaterOrEqual(t, rep, 0)
	assert.Equal(t, "comment[cleavage agent details]", table.Columns[rep+1])
	assert.Equal(t, "comment[cleavage agent details]", table.Columns[rep+2])
	assert.Equal(t, "comment[ms2 mass analyzer]", table.Columns[rep+3])
	assert.Equal(t, "AC=MS:1001251;NT=Trypsin", table.Rows[0][rep+1])
	assert.Equal(t, "AC=MS:1001309;NT=Lys-C", table.Rows[0][rep+2])
}

func TestBuild_TargetedAddsProteomeEdge(t *testing.T) {
	for _, tech := range []types.Technique{types.SRM, types.PRM} {
		table, err := Build(testSamples(t, tech), testSession(tech), defaultSettings())
		require.NoError(t, err)
		assert.Equal(t, []string{"23233"}, table.Column("comment[ProteomeEdge]")[:1])
		assert.Equal(t, -1, table.Index("comment[MS1 scan range]"))
	}
}

func TestBuild_Settings(t *testing.T) {
	settings := types.SDRFSettings{MSFile: "mzML", CollisionEnergy: "30", FactorValue: "plate"}
	table, err := Build(testSamples(t, types.DDA), testSession(types.DDA), settings)
	require.NoError(t, err)
	assert.Equal(t, "DDA_20250301_ProjX_P01_A2.mzML", table.Column("comment[file uri]")[0])
	assert.Equal(t, "30 NCE", table.Column("comment[collision energy]")[0])
	assert.Equal(t, "P01", table.Column("factor value[plate]")[0])

	settings.FactorValue = "weight"
	_, err = Build(testSamples(t, types.DDA), testSession(types.DDA), settings)
	var sdrfErr *Error
	assert.ErrorAs(t, err, &sdrfErr)
}

func TestSkylineAnnotations(t *testing.T) {
	table, err := Build(testSamples(t, types.DIA), testSession(types.DIA), defaultSettings())
	require.NoError(t, err)

	anno := SkylineAnnotations(table)
	assert.Equal(t, CharacteristicNames, anno.Columns)
	require.Len(t, anno.Rows, 95)
	assert.Equal(t, "A", anno.Rows[0][0])
	assert.Equal(t, "Pool", anno.Rows[5][2])
}

func TestReadTSV(t *testing.T) {
	input := "\ufeffsource name\tcharacteristics[organism]\tcomment[cleavage agent details]\tcomment[cleavage agent details]\n" +
		"s1\tHomo sapiens\tTrypsin\tLys-C\n" +
		"s2\tMus musculus\n"

	table, err := ReadTSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, "source name", table.Columns[0])
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"s2", "Mus musculus", "", ""}, table.Rows[1])

	anno := SkylineAnnotations(table)
	assert.Equal(t, []string{"organism"}, anno.Columns)
	assert.Equal(t, [][]string{{"Homo sapiens"}, {"Mus musculus"}}, anno.Rows)
}

func TestReadTSV_Errors(t *testing.T) {
	_, err := ReadTSV(strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file is empty")

	_, err = ReadTSV(strings.NewReader("a\tb\n1\t2\t3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "more fields")
}
