package export

import (
	"encoding/csv"
	"io"

	"github.com/thanadol-git/plate-planner/internal/sdrf"
	"github.com/thanadol-git/plate-planner/internal/sequence"
)

// BOM is the UTF-8 byte order mark Excel and Xcalibur expect.
const BOM = "\ufeff"

// SampleOrderHeader is the Xcalibur sample list header.
var SampleOrderHeader = []string{"File Name", "Path", "Instrument Method", "Position", "Inj Vol"}

// WriteSampleOrder writes the Xcalibur sample order: BOM, the bracket type
// preamble, then one line per injection.
func WriteSampleOrder(w io.Writer, records []sequence.Record) error {
	if _, err := io.WriteString(w, BOM+"Bracket Type=4,,,,\n"); err != nil {
		return &RenderError{Format: "sample order", Message: "failed to write preamble", Cause: err}
	}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.FileName,
			r.Path,
			r.InstrumentMethod,
			r.Position,
			sequence.FormatVolume(r.InjectionVolume),
		})
	}
	return writeDelimited(w, "sample order", ',', SampleOrderHeader, rows)
}

// WriteEvosepCSV writes the Evosep method table as CSV with a BOM.
func WriteEvosepCSV(w io.Writer, table *sequence.EvosepTable) error {
	if _, err := io.WriteString(w, BOM); err != nil {
		return &RenderError{Format: "evosep csv", Message: "failed to write BOM", Cause: err}
	}
	return writeDelimited(w, "evosep csv", ',', table.Header(), table.Records())
}

// WriteSDRF writes an SDRF table as tab-separated values with a BOM.
func WriteSDRF(w io.Writer, table *sdrf.Table) error {
	if _, err := io.WriteString(w, BOM); err != nil {
		return &RenderError{Format: "sdrf", Message: "failed to write BOM", Cause: err}
	}
	return writeDelimited(w, "sdrf", '\t', table.Columns, table.Rows)
}

// WriteSkyline writes Skyline annotations as plain CSV.
func WriteSkyline(w io.Writer, table *sdrf.Table) error {
	return writeDelimited(w, "skyline", ',', table.Columns, table.Rows)
}

func writeDelimited(w io.Writer, format string, comma rune, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	cw.Comma = comma
	if err := cw.Write(header); err != nil {
		return &RenderError{Format: format, Message: "failed to write header", Cause: err}
	}
	if err := cw.WriteAll(rows); err != nil {
		return &RenderError{Format: format, Message: "failed to write rows", Cause: err}
	}
	return nil
}
