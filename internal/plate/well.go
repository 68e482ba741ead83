// Package plate parses well annotations and assembles 96-well plate layouts.
package plate

import (
	"fmt"
	"regexp"
	"strconv"
)

// Plate geometry. The grid is never resized.
const (
	Rows      = 8
	Columns   = 12
	WellCount = Rows * Columns
)

// RowLetters lists the plate rows in order.
const RowLetters = "ABCDEFGH"

var wellPattern = regexp.MustCompile(`^[A-H](1[0-2]|[1-9])$`)

// Well addresses one position on the plate.
type Well struct {
	Row    string `json:"row"`
	Column int    `json:"column"`
}

// String returns the well in plate notation, e.g. "C8".
func (w Well) String() string {
	return w.Row + strconv.Itoa(w.Column)
}

// Valid reports whether the well lies on the 8x12 grid.
func (w Well) Valid() bool {
	return w.rowIndex() >= 0 && w.Column >= 1 && w.Column <= Columns
}

func (w Well) rowIndex() int {
	if len(w.Row) != 1 {
		return -1
	}
	for i := 0; i < Rows; i++ {
		if RowLetters[i] == w.Row[0] {
			return i
		}
	}
	return -1
}

// ParseWell parses a single well such as "A12".
func ParseWell(s string) (Well, error) {
	if !wellPattern.MatchString(s) {
		return Well{}, fmt.Errorf("invalid well %q", s)
	}
	col, _ := strconv.Atoi(s[1:])
	return Well{Row: s[:1], Column: col}, nil
}

// AllWells returns the 96 wells in row-major order.
func AllWells() []Well {
	wells := make([]Well, 0, WellCount)
	for r := 0; r < Rows; r++ {
		for c := 1; c <= Columns; c++ {
			wells = append(wells, Well{Row: RowLetters[r : r+1], Column: c})
		}
	}
	return wells
}
