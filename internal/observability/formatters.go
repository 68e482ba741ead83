// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/thanadol-git/plate-planner/internal/export"
	"github.com/thanadol-git/plate-planner/internal/plate"
	"github.com/thanadol-git/plate-planner/internal/sequence"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// keyRunes are the one-character keys used to draw labels in the grid.
const keyRunes = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len([]rune(line)) > boxWidth-4 {
			line = string([]rune(line)[:boxWidth-7]) + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func truncate(s string, n int) string {
	if len([]rune(s)) > n {
		return string([]rune(s)[:n-3]) + "..."
	}
	return s
}

// labelKeys assigns a grid key to every label, most frequent first.
func labelKeys(counts []plate.LabelCount) map[string]string {
	keys := make(map[string]string, len(counts))
	for i, c := range counts {
		if i < len(keyRunes) {
			keys[c.Label] = string(keyRunes[i])
		} else {
			keys[c.Label] = "?"
		}
	}
	return keys
}

// PrintLayout draws the 8x12 plate with one key per label and a legend
// with the well count of every label.
func (p *Printer) PrintLayout(layout *plate.Layout) {
	if layout == nil {
		return
	}

	counts := layout.Counts()
	keys := labelKeys(counts)

	var sb strings.Builder
	sb.WriteString("   ")
	for c := 1; c <= plate.Columns; c++ {
		sb.WriteString(fmt.Sprintf("%4d", c))
	}
	sb.WriteString("\n")
	for r := 0; r < plate.Rows; r++ {
		sb.WriteString(fmt.Sprintf(" %c ", plate.RowLetters[r]))
		for c := 0; c < plate.Columns; c++ {
			sb.WriteString(fmt.Sprintf("%4s", keys[layout.Grid[r][c]]))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	for _, c := range counts {
		sb.WriteString(fmt.Sprintf("  %s  %-40s %3d\n", keys[c.Label], truncate(c.Label, 40), c.Count))
	}

	p.printBox("PLATE LAYOUT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintWarnings outputs annotation warnings, or a clean bill when there are none.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintWarnings(warnings []plate.Warning) {
	if len(warnings) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "✅ NO ANNOTATION WARNINGS")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d warnings:\n\n", len(warnings)))

	for i, w := range warnings {
		sb.WriteString(fmt.Sprintf("⚠ %s", w.Kind))
		if w.Line > 0 {
			sb.WriteString(fmt.Sprintf(" (line %d)", w.Line))
		}
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("  %s\n", truncate(w.Message, 50)))
		if i < len(warnings)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("ANNOTATION WARNINGS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSequence outputs the record counts and the first injections of a run.
func (p *Printer) PrintSequence(records []sequence.Record) {
	if len(records) == 0 {
		return
	}

	s := sequence.Summarize(records)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Injections: %d\n", s.Total))
	sb.WriteString(fmt.Sprintf("Samples:    %d\n", s.Samples))
	sb.WriteString(fmt.Sprintf("Washes:     %d\n", s.Washes))
	sb.WriteString(fmt.Sprintf("QC:         %d\n", s.QC+s.QCBetween))
	sb.WriteString("\n")

	count := min(len(records), maxItemsToShow)
	for i := 0; i < count; i++ {
		r := records[i]
		sb.WriteString(fmt.Sprintf("%2d. %-6s %s\n", i+1, r.Position, truncate(r.FileName, 44)))
	}
	if len(records) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more injections", len(records)-maxItemsToShow))
	}

	p.printBox("INJECTION SEQUENCE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintFiles lists the rendered export files with their sizes.
func (p *Printer) PrintFiles(files []export.File) {
	if len(files) == 0 {
		return
	}

	var sb strings.Builder
	for i, f := range files {
		sb.WriteString(fmt.Sprintf("• %s\n", truncate(f.Name, 50)))
		sb.WriteString(fmt.Sprintf("  %s, %d bytes", f.Kind, f.Size))
		if i < len(files)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("EXPORT FILES", sb.String())
}
