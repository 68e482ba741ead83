package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/thanadol-git/plate-planner/internal/plate"
	"github.com/thanadol-git/plate-planner/internal/sdrf"
	"github.com/thanadol-git/plate-planner/internal/sequence"
	"github.com/thanadol-git/plate-planner/internal/types"
)

func testSequence(t *testing.T) (*plate.Layout, *sequence.Sequence) {
	t.Helper()
	layout := plate.Assemble("EMPTY;A1\nPool;A7", "Cohort_1")
	seq, err := sequence.Plan(sequence.Input{
		Entries:     layout.Entries,
		Placeholder: "EMPTY",
		BayLetter:   "R",
		Volume:      0.1,
		DataPath:    `C:\data\yourdir`,
		MethodPath:  `C:\Xcalibur\methods\method1`,
		Naming:      sequence.Naming{Technique: types.DIA, Date: "20250301", Project: "ProjX", PlateID: "P01"},
		Wash:        types.AuxSample{Name: "wash", Path: `C:\data\wash`, Method: `C:\Xcalibur\methods\wash`, Position: "G3", Volume: 0.1},
		QC:          types.AuxSample{Name: "QC_Plasma", Path: `C:\data\QC`, Method: `C:\Xcalibur\methods\QC`, Position: "GE1", Volume: 5},
	})
	require.NoError(t, err)
	return layout, seq
}

func TestNamer(t *testing.T) {
	n := Namer{Project: "ProjX", PlateID: "P01", Now: time.Date(2025, 3, 1, 9, 5, 0, 0, time.UTC)}

	assert.Equal(t, "202503010905_ProjX_Sample_Order_P01.csv", n.Name(KindSampleOrder))
	assert.Equal(t, "202503010905_ProjX_Evosep_Order_P01.csv", n.Name(KindEvosepCSV))
	assert.Equal(t, "202503010905_ProjX_Evosep_Order_P01.xml", n.Name(KindEvosepXML))
	assert.Equal(t, "20250301_ProjX_P01.sdrf.tsv", n.Name(KindSDRF))
	assert.Equal(t, "202503010905_ProjX_Skyline_Annotations_P01.csv", n.Name(KindSkyline))
	assert.Equal(t, "202503010905_ProjX_Plate_Layout_P01.xlsx", n.Name(KindLayoutXLSX))

	assert.Equal(t, ContentTypeTSV, ContentType(KindSDRF))
	assert.Equal(t, ContentTypeXML, ContentType(KindEvosepXML))
	assert.Equal(t, ContentTypeCSV, ContentType(KindSampleOrder))
}

func TestWriteSampleOrder(t *testing.T) {
	_, seq := testSequence(t)

	var buf bytes.Buffer
	require.NoError(t, WriteSampleOrder(&buf, seq.Records))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, BOM+"Bracket Type=4,,,,\n"))

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Equal(t, "File Name,Path,Instrument Method,Position,Inj Vol", lines[1])
	assert.Equal(t, `wash,C:\data\wash,C:\Xcalibur\methods\wash,G3,0.1`, lines[2])
	assert.Equal(t, `QC_Plasma,C:\data\QC,C:\Xcalibur\methods\QC,GE1,5`, lines[3])
	assert.Equal(t, `DIA_20250301_ProjX_P01_A2,C:\data\yourdir,C:\Xcalibur\methods\method1,RA2,0.1`, lines[5])
	assert.Len(t, lines, 2+len(seq.Records))
}

func TestWriteEvosep(t *testing.T) {
	_, seq := testSequence(t)
	table, err := sequence.BuildEvosep(seq.Samples, types.EvosepSettings{
		OutputDir:      `C:\out`,
		AnalysisMethod: "method.cam",
		XcaliburMethod: "methods.meth",
		Slot:           1,
		Standby:        &types.StandbySettings{StandbyCommand: "standby.cam", PrepareCommand: "prepare.cam"},
	}, nil)
	require.NoError(t, err)

	var csvBuf bytes.Buffer
	require.NoError(t, WriteEvosepCSV(&csvBuf, table))
	require.True(t, strings.HasPrefix(csvBuf.String(), BOM))

	r := csv.NewReader(strings.NewReader(strings.TrimPrefix(csvBuf.String(), BOM)))
	all, err := r.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, sequence.EvosepColumns, all[0])
	assert.Len(t, all, 1+len(table.Rows))
	assert.Equal(t, "none", all[len(all)-1][9])

	var xmlBuf bytes.Buffer
	require.NoError(t, WriteEvosepXML(&xmlBuf, table))
	out := xmlBuf.String()
	assert.True(t, strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, out, "<data>\n  <row>\n    <Analysis_Method>method.cam</Analysis_Method>")
	assert.Contains(t, out, "<Source_Tray>EvoSlot 1</Source_Tray>")
	assert.Contains(t, out, "<Flow_to_column___idle_flow>Idle flow (250 nl/min)</Flow_to_column___idle_flow>")
	assert.Equal(t, len(table.Rows), strings.Count(out, "<row>"))
}

func TestSanitizeXMLName(t *testing.T) {
	assert.Equal(t, "Xcalibur_Output_Dir", SanitizeXMLName("Xcalibur Output Dir"))
	assert.Equal(t, "Flow_to_column___idle_flow", SanitizeXMLName("Flow to column / idle flow"))
	assert.Equal(t, "Volume_ul", SanitizeXMLName("Volume (ul)"))
}

func TestWriteSDRFAndSkyline(t *testing.T) {
	_, seq := testSequence(t)
	session := types.Session{
		Project: "ProjX", Cohort: "Cohort_1", PlateID: "P01", Organism: "Human", SampleType: "Plasma",
		Instrument: "Q Exactive HF", Technique: types.DIA, Enzymes: []string{"Trypsin", "Lys-C"}, Dissociation: "HCD",
	}
	table, err := sdrf.Build(seq.Samples, session, types.SDRFSettings{MSFile: "RAW", CollisionEnergy: "27", FactorValue: "Sample"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteSDRF(&buf, table))
	out := buf.String()
	require.True(t, strings.HasPrefix(out, BOM+"source name\tcharacteristics[Row]"))
	assert.Equal(t, 2, strings.Count(strings.SplitN(out, "\n", 2)[0], "comment[cleavage agent details]"))

	back, err := sdrf.ReadTSV(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, table.Columns, back.Columns)
	assert.Equal(t, table.Rows, back.Rows)

	buf.Reset()
	require.NoError(t, WriteSkyline(&buf, sdrf.SkylineAnnotations(table)))
	assert.True(t, strings.HasPrefix(buf.String(), "Row,Column,Sample,Source Vial,Position,organism"))
}

func TestWriteLayoutCSV(t *testing.T) {
	layout, _ := testSequence(t)

	var buf bytes.Buffer
	require.NoError(t, WriteLayoutCSV(&buf, layout))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 9)
	assert.Equal(t, ",1,2,3,4,5,6,7,8,9,10,11,12", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "A,EMPTY,Cohort_1,"))
	assert.Contains(t, lines[1], ",Pool,")
}

func TestWriteLayoutXLSX(t *testing.T) {
	layout, _ := testSequence(t)

	var buf bytes.Buffer
	require.NoError(t, WriteLayoutXLSX(&buf, layout))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{LayoutSheet, LongSheet}, f.GetSheetList())

	v, err := f.GetCellValue(LayoutSheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "EMPTY", v)
	v, err = f.GetCellValue(LayoutSheet, "H2")
	require.NoError(t, err)
	assert.Equal(t, "Pool", v)

	rows, err := f.GetRows(LongSheet)
	require.NoError(t, err)
	require.Len(t, rows, 1+plate.WellCount)
	assert.Equal(t, []string{"Row", "Column", "Sample", "Source Vial"}, rows[0])
	assert.Equal(t, []string{"H", "12", "Cohort_1", "96"}, rows[96])
}
