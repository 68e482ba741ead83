package plate

// Layout is the result of assembling a plate: the filled grid, its
// row-major enumeration and every warning raised on the way.
type Layout struct {
	DefaultLabel string      `json:"default_label"`
	Grid         Grid        `json:"grid"`
	Entries      []LongEntry `json:"entries"`
	Warnings     []Warning   `json:"warnings"`
}

// Assemble parses annotation text and builds the full 96-well layout. Every
// well starts as defaultLabel; assignments are then applied in input order
// with row and column directives expanded in place, so the last line that
// touches a well decides its label. Assemble always returns a complete
// layout, problems are reported as warnings.
func Assemble(text, defaultLabel string) *Layout {
	specs, warnings := Parse(text)
	assignments := Expand(specs)
	warnings = append(warnings, CheckDuplicates(assignments)...)

	grid := NewGrid(defaultLabel)
	grid.Apply(assignments)

	if warnings == nil {
		warnings = []Warning{}
	}

	return &Layout{
		DefaultLabel: defaultLabel,
		Grid:         grid,
		Entries:      grid.Long(),
		Warnings:     warnings,
	}
}

// Counts returns the per-label well counts of the layout.
func (l *Layout) Counts() []LabelCount {
	return l.Grid.Counts()
}
