package export

import (
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/thanadol-git/plate-planner/internal/plate"
)

// Sheet names of the layout workbook.
const (
	LayoutSheet = "Layout"
	LongSheet   = "Long"
)

func layoutRows(layout *plate.Layout) (header []string, rows [][]string) {
	header = make([]string, 0, plate.Columns+1)
	header = append(header, "")
	for c := 1; c <= plate.Columns; c++ {
		header = append(header, strconv.Itoa(c))
	}
	for r := 0; r < plate.Rows; r++ {
		row := make([]string, 0, plate.Columns+1)
		row = append(row, plate.RowLetters[r:r+1])
		row = append(row, layout.Grid[r][:]...)
		rows = append(rows, row)
	}
	return header, rows
}

// WriteLayoutCSV writes the plate as an 8x12 grid with row letters and
// column numbers as headers.
func WriteLayoutCSV(w io.Writer, layout *plate.Layout) error {
	header, rows := layoutRows(layout)
	return writeDelimited(w, "layout csv", ',', header, rows)
}

// WriteLayoutXLSX writes a workbook with the plate grid on one sheet and
// the row-major well list on another.
func WriteLayoutXLSX(w io.Writer, layout *plate.Layout) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", LayoutSheet); err != nil {
		return &RenderError{Format: "layout xlsx", Message: "failed to name sheet", Cause: err}
	}

	header, rows := layoutRows(layout)
	if err := setRow(f, LayoutSheet, 1, header); err != nil {
		return err
	}
	for i, row := range rows {
		if err := setRow(f, LayoutSheet, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(LongSheet); err != nil {
		return &RenderError{Format: "layout xlsx", Message: "failed to add sheet", Cause: err}
	}
	if err := setRow(f, LongSheet, 1, []string{"Row", "Column", "Sample", "Source Vial"}); err != nil {
		return err
	}
	for i, e := range layout.Entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return &RenderError{Format: "layout xlsx", Message: "bad cell", Cause: err}
		}
		if err := f.SetSheetRow(LongSheet, cell, &[]any{e.Row, e.Column, e.Sample, e.SourceVial}); err != nil {
			return &RenderError{Format: "layout xlsx", Message: "failed to write well", Cause: err}
		}
	}

	if err := f.Write(w); err != nil {
		return &RenderError{Format: "layout xlsx", Message: "failed to write workbook", Cause: err}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return &RenderError{Format: "layout xlsx", Message: "bad cell", Cause: err}
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return &RenderError{Format: "layout xlsx", Message: "failed to write row", Cause: err}
	}
	return nil
}
