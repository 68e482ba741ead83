package observability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thanadol-git/plate-planner/internal/export"
	"github.com/thanadol-git/plate-planner/internal/plate"
	"github.com/thanadol-git/plate-planner/internal/sequence"
)

func TestPrintLayout(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintLayout(plate.Assemble("Pool;A7\nControl;RowH", "Cohort_1"))
	output := buf.String()

	assert.Contains(t, output, "PLATE LAYOUT")
	assert.Contains(t, output, "Cohort_1")
	assert.Contains(t, output, "Control")
	assert.Contains(t, output, "Pool")

	// Cohort_1 is the most frequent label and gets key a, Control key b
	lines := strings.Split(output, "\n")
	var rowA, rowH string
	for _, l := range lines {
		if strings.HasPrefix(l, "│  A ") {
			rowA = l
		}
		if strings.HasPrefix(l, "│  H ") {
			rowH = l
		}
	}
	require.NotEmpty(t, rowA)
	require.NotEmpty(t, rowH)
	assert.Equal(t, 11, strings.Count(rowA, "   a"))
	assert.Equal(t, 12, strings.Count(rowH, "   b"))
	assert.Contains(t, output, "  a  Cohort_1")
}

func TestPrintLayout_Nil(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintLayout(nil)

	assert.Empty(t, buf.String())
}

func TestLabelKeys_Overflow(t *testing.T) {
	var counts []plate.LabelCount
	for i := 0; i < len(keyRunes)+2; i++ {
		counts = append(counts, plate.LabelCount{Label: strings.Repeat("x", i+1), Count: 1})
	}
	keys := labelKeys(counts)
	assert.Equal(t, "a", keys["x"])
	assert.Equal(t, "?", keys[strings.Repeat("x", len(keyRunes)+1)])
}

func TestPrintWarnings(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	layout := plate.Assemble("A;A1\nB;A1\nbad line", "Cohort_1")
	p.PrintWarnings(layout.Warnings)
	output := buf.String()

	assert.Contains(t, output, "ANNOTATION WARNINGS")
	assert.Contains(t, output, string(plate.ConflictingAssignment))
	assert.Contains(t, output, string(plate.MalformedLine))
	assert.Contains(t, output, "(line 3)")
}

func TestPrintWarnings_None(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintWarnings(nil)

	assert.Contains(t, buf.String(), "NO ANNOTATION WARNINGS")
}

func TestPrintSequence(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	records := []sequence.Record{
		{FileName: "wash", Position: "G3", Kind: sequence.KindWash},
		{FileName: "QC", Position: "GE1", Kind: sequence.KindQC},
		{FileName: "wash", Position: "G3", Kind: sequence.KindWash},
		{FileName: "20240517_DIA_ProjX_P01_A1", Position: "RA1", Kind: sequence.KindSample},
		{FileName: "20240517_DIA_ProjX_P01_A2", Position: "RA2", Kind: sequence.KindSample},
		{FileName: "QC", Position: "GE1", Kind: sequence.KindQC},
		{FileName: "wash", Position: "G3", Kind: sequence.KindWash},
	}

	p.PrintSequence(records)
	output := buf.String()

	assert.Contains(t, output, "INJECTION SEQUENCE")
	assert.Contains(t, output, "Injections: 7")
	assert.Contains(t, output, "Samples:    2")
	assert.Contains(t, output, "Washes:     3")
	assert.Contains(t, output, "20240517_DIA_ProjX_P01_A1")
	assert.Contains(t, output, "... and 2 more injections")
}

func TestPrintFiles(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintFiles([]export.File{
		{Kind: export.KindSampleOrder, Name: "202405170930_ProjX_Sample_Order_P01.csv", Size: 1234},
	})
	output := buf.String()

	assert.Contains(t, output, "EXPORT FILES")
	assert.Contains(t, output, "202405170930_ProjX_Sample_Order_P01.csv")
	assert.Contains(t, output, "1234 bytes")
}

func TestPrintBox_LongLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.printBox("TITLE", strings.Repeat("label ", 30))
	output := buf.String()

	assert.True(t, strings.Contains(output, "┌"))
	assert.True(t, strings.Contains(output, "└"))
	assert.True(t, strings.Contains(output, "..."))
}
