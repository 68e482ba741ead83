package plate

import "sort"

// Grid holds one label per well, indexed [row][column-1].
type Grid [Rows][Columns]string

// NewGrid returns a grid with every well set to label.
func NewGrid(label string) Grid {
	var g Grid
	for r := range g {
		for c := range g[r] {
			g[r][c] = label
		}
	}
	return g
}

// At returns the label of w. Wells off the grid return "".
func (g *Grid) At(w Well) string {
	if !w.Valid() {
		return ""
	}
	return g[w.rowIndex()][w.Column-1]
}

// Set labels a single well. Wells off the grid are ignored.
func (g *Grid) Set(w Well, label string) {
	if !w.Valid() {
		return
	}
	g[w.rowIndex()][w.Column-1] = label
}

// Apply writes assignments in slice order; a later assignment to the same
// well replaces an earlier one.
func (g *Grid) Apply(assignments []Assignment) {
	for _, a := range assignments {
		g.Set(a.Well, a.Label)
	}
}

// LongEntry is one well of the row-major enumeration. SourceVial is the
// 1-based position in that enumeration and identifies the physical well.
type LongEntry struct {
	Row        string `json:"row"`
	Column     int    `json:"column"`
	Sample     string `json:"sample"`
	SourceVial int    `json:"source_vial"`
}

// Well returns the entry's well.
func (e LongEntry) Well() Well {
	return Well{Row: e.Row, Column: e.Column}
}

// Long flattens the grid row by row (A1..A12, B1..B12, ...).
func (g *Grid) Long() []LongEntry {
	entries := make([]LongEntry, 0, WellCount)
	for r := 0; r < Rows; r++ {
		for c := 0; c < Columns; c++ {
			entries = append(entries, LongEntry{
				Row:        RowLetters[r : r+1],
				Column:     c + 1,
				Sample:     g[r][c],
				SourceVial: len(entries) + 1,
			})
		}
	}
	return entries
}

// LabelCount is the number of wells carrying a label.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Counts returns label counts ordered by count descending, then label.
func (g *Grid) Counts() []LabelCount {
	counts := make(map[string]int)
	for r := range g {
		for c := range g[r] {
			counts[g[r][c]]++
		}
	}
	out := make([]LabelCount, 0, len(counts))
	for label, n := range counts {
		out = append(out, LabelCount{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// Labels returns the distinct labels sorted alphabetically.
func (g *Grid) Labels() []string {
	counts := g.Counts()
	labels := make([]string, 0, len(counts))
	for _, c := range counts {
		labels = append(labels, c.Label)
	}
	sort.Strings(labels)
	return labels
}
