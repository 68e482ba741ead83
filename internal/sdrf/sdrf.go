// Package sdrf builds SDRF-proteomics annotation tables for a plate and
// derives Skyline annotations from them.
package sdrf

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/thanadol-git/plate-planner/internal/sequence"
	"github.com/thanadol-git/plate-planner/internal/types"
)

// Fixed annotation values.
const (
	NotAvailable          = "not available"
	MaterialType          = "AC=EFO:0009656;NT=plasma"
	TechnologyType        = "proteomics profiling by mass spectrometry"
	LabelFree             = "AC=MS:1002038;NT=label free sample"
	FractionationMethod   = "NT=High-performance liquid chromatography;AC=PRIDE:0000565"
	Carbamidomethyl       = "NT=Carbamidomethyl;AC=UNIMOD:4;TA=C;MT=Fixed"
	PrecursorTolerance    = "40 ppm"
	FragmentTolerance     = "0.05 Da"
	DIAMS1ScanRange       = "400-1250 m/z"
	DIAMS2ScanRange       = "100-2000 m/z"
	characteristicsPrefix = "characteristics["
)

// CharacteristicNames are the per-sample properties, in column order. Any of
// them can be chosen as the factor value.
var CharacteristicNames = []string{
	"Row",
	"Column",
	"Sample",
	"Source Vial",
	"Position",
	"organism",
	"organism part",
	"plate",
	"project",
	"age",
	"developmental stage",
	"sex",
	"ancestry category",
	"cell type",
	"cell line",
	"disease",
	"individual",
	"biological replicate",
}

// Error represents an SDRF build or parse failure
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("sdrf error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("sdrf error: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Table is a rectangular annotation table. Column names may repeat, as
// SDRF does for "comment[cleavage agent details]".
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Index returns the position of the first column with the given name, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns all values of the first column with the given name.
func (t *Table) Column(name string) []string {
	idx := t.Index(name)
	if idx < 0 {
		return nil
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		if idx < len(row) {
			out[i] = row[idx]
		}
	}
	return out
}

type column struct {
	name  string
	value func(i int, r sequence.Record) string
}

func constant(name, v string) column {
	return column{name: name, value: func(int, sequence.Record) string { return v }}
}

// Build creates the SDRF table for the plate samples in row-major order
// (Sequence.Samples). There is one row per sample; the source name and data
// file are derived from the sample file name.
func Build(samples []sequence.Record, session types.Session, settings types.SDRFSettings) (*Table, error) {
	if samples == nil {
		return nil, &sequence.PreconditionError{
			Message: "sample order has not been built",
			Cause:   sequence.ErrMissingUpstreamState,
		}
	}
	if settings.FactorValue == "" {
		settings.FactorValue = "Sample"
	}
	if !contains(CharacteristicNames, settings.FactorValue) {
		return nil, &Error{Message: fmt.Sprintf("unknown factor value column %q", settings.FactorValue)}
	}
	if settings.MSFile == "" {
		settings.MSFile = "RAW"
	}
	if settings.CollisionEnergy == "" {
		settings.CollisionEnergy = types.DefaultCollisionEnergy
	}

	characteristics := characteristicValues(session)

	cols := []column{{name: "source name", value: func(_ int, r sequence.Record) string { return r.FileName }}}
	for _, name := range CharacteristicNames {
		cols = append(cols, column{
			name:  characteristicsPrefix + name + "]",
			value: func(_ int, r sequence.Record) string { return characteristics(name, r) },
		})
	}
	cols = append(cols,
		constant("Material type", MaterialType),
		column{name: "assay name", value: func(i int, _ sequence.Record) string { return "run " + strconv.Itoa(i+1) }},
		constant("technology type", TechnologyType),
	)

	dataFile := func(_ int, r sequence.Record) string { return r.FileName + "." + settings.MSFile }
	comments := []column{
		{name: "data file", value: dataFile},
		{name: "file uri", value: dataFile},
		constant("proteomics data acquisition method", string(types.AcquisitionAccessions[session.Technique])),
		constant("label", LabelFree),
		constant("fraction identifier", "1"),
		constant("fractionation method", FractionationMethod),
		constant("technical replicate", "1"),
	}
	for _, enz := range session.Enzymes {
		comments = append(comments, constant("cleavage agent details", string(types.EnzymeAccessions[enz])))
	}
	comments = append(comments,
		constant("ms2 mass analyzer", NotAvailable),
		constant("instrument", string(types.InstrumentAccessions[session.Instrument])),
		constant("modification parameters", Carbamidomethyl),
		constant("dissociation method", string(types.DissociationAccessions[session.Dissociation])),
		constant("collision energy", settings.CollisionEnergy+" NCE"),
		constant("precursor mass tolerance", PrecursorTolerance),
		constant("fragment mass tolerance", FragmentTolerance),
	)
	if session.Technique == types.DIA {
		comments = append(comments,
			constant("MS1 scan range", DIAMS1ScanRange),
			constant("MS2 scan range", DIAMS2ScanRange),
		)
	}
	if session.Technique.Targeted() {
		comments = append(comments, constant("ProteomeEdge", session.ProteomeEdgeLot))
	}
	for _, c := range comments {
		c.name = "comment[" + c.name + "]"
		cols = append(cols, c)
	}

	factor := settings.FactorValue
	cols = append(cols, column{
		name:  "factor value[" + factor + "]",
		value: func(_ int, r sequence.Record) string { return characteristics(factor, r) },
	})

	table := &Table{Columns: make([]string, len(cols)), Rows: make([][]string, 0, len(samples))}
	for i, c := range cols {
		table.Columns[i] = c.name
	}
	for i, r := range samples {
		row := make([]string, len(cols))
		for j, c := range cols {
			row[j] = c.value(i, r)
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func characteristicValues(session types.Session) func(name string, r sequence.Record) string {
	fixed := map[string]string{
		"organism":             session.Species(),
		"organism part":        session.SampleType,
		"plate":                session.Plate(),
		"project":              session.Project,
		"biological replicate": "1",
	}
	return func(name string, r sequence.Record) string {
		switch name {
		case "Row":
			if r.Well == "" {
				return ""
			}
			return r.Well[:1]
		case "Column":
			if r.Well == "" {
				return ""
			}
			return r.Well[1:]
		case "Sample":
			return r.Sample
		case "Source Vial":
			return strconv.Itoa(r.SourceVial)
		case "Position":
			return r.Position
		}
		if v, ok := fixed[name]; ok {
			return v
		}
		return NotAvailable
	}
}

// SkylineAnnotations keeps the characteristics columns of an SDRF table and
// strips the "characteristics[...]" wrapper from their names.
func SkylineAnnotations(t *Table) *Table {
	var idx []int
	out := &Table{}
	for i, c := range t.Columns {
		if !strings.HasPrefix(c, characteristicsPrefix) {
			continue
		}
		idx = append(idx, i)
		name := strings.TrimPrefix(c, characteristicsPrefix)
		name = strings.ReplaceAll(name, "]", "")
		out.Columns = append(out.Columns, name)
	}
	out.Rows = make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		vals := make([]string, len(idx))
		for j, i := range idx {
			if i < len(row) {
				vals[j] = row[i]
			}
		}
		out.Rows = append(out.Rows, vals)
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
