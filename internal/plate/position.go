package plate

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind tags the variant held by a PositionSpec.
type Kind int

const (
	SingleWell Kind = iota + 1
	FullRow
	FullColumn
)

func (k Kind) String() string {
	switch k {
	case SingleWell:
		return "well"
	case FullRow:
		return "row"
	case FullColumn:
		return "column"
	default:
		return "unknown"
	}
}

// PositionSpec is one parsed annotation line. Row is set for SingleWell and
// FullRow, Column for SingleWell and FullColumn.
type PositionSpec struct {
	Kind   Kind   `json:"kind"`
	Label  string `json:"label"`
	Row    string `json:"row,omitempty"`
	Column int    `json:"column,omitempty"`
	Line   int    `json:"line"`
}

// Wells expands the spec into its single-well targets, columns 1..12 for a
// row and rows A..H for a column.
func (p PositionSpec) Wells() []Well {
	switch p.Kind {
	case SingleWell:
		return []Well{{Row: p.Row, Column: p.Column}}
	case FullRow:
		wells := make([]Well, 0, Columns)
		for c := 1; c <= Columns; c++ {
			wells = append(wells, Well{Row: p.Row, Column: c})
		}
		return wells
	case FullColumn:
		wells := make([]Well, 0, Rows)
		for r := 0; r < Rows; r++ {
			wells = append(wells, Well{Row: RowLetters[r : r+1], Column: p.Column})
		}
		return wells
	default:
		return nil
	}
}

// LocationError describes a location that matches none of the grammars.
type LocationError struct {
	Location string
	Message  string
}

func (e *LocationError) Error() string {
	return fmt.Sprintf("invalid location %q: %s", e.Location, e.Message)
}

// ParseLocation parses the right-hand side of an annotation line. Locations
// containing "Row" or "Col" are treated as row/column directives and must
// match RowX (X in A-H) or ColN (N in 1-12); everything else must be a well.
func ParseLocation(loc string) (PositionSpec, error) {
	if strings.Contains(loc, "Row") || strings.Contains(loc, "Col") {
		return parseDirective(loc)
	}
	w, err := ParseWell(loc)
	if err != nil {
		return PositionSpec{}, &LocationError{Location: loc, Message: "expected a well like 'C8' or 'A12'"}
	}
	return PositionSpec{Kind: SingleWell, Row: w.Row, Column: w.Column}, nil
}

func parseDirective(loc string) (PositionSpec, error) {
	switch {
	case strings.HasPrefix(loc, "Row"):
		if len(loc) != 4 || !strings.ContainsRune(RowLetters, rune(loc[3])) {
			return PositionSpec{}, &LocationError{Location: loc, Message: "row must be 'Row' followed by one letter A-H"}
		}
		return PositionSpec{Kind: FullRow, Row: loc[3:]}, nil
	case strings.HasPrefix(loc, "Col"):
		digits := loc[3:]
		if len(loc) < 4 || len(loc) > 5 || !isDigits(digits) {
			return PositionSpec{}, &LocationError{Location: loc, Message: "column must be 'Col' followed by a number 1-12"}
		}
		n, err := strconv.Atoi(digits)
		if err != nil || n < 1 || n > Columns {
			return PositionSpec{}, &LocationError{Location: loc, Message: "column number out of range 1-12"}
		}
		return PositionSpec{Kind: FullColumn, Column: n}, nil
	default:
		return PositionSpec{}, &LocationError{Location: loc, Message: "expected 'RowA'..'RowH' or 'Col1'..'Col12'"}
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
