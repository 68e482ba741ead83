package plate

import (
	"fmt"
	"strings"
)

// Assignment is a single label placed on a single well, after row and
// column directives have been expanded. Line is the 1-based input line the
// assignment came from.
type Assignment struct {
	Label string `json:"label"`
	Well  Well   `json:"well"`
	Line  int    `json:"line"`
}

// Parse reads annotation text, one "Label;Location" per line, and returns
// the valid specs in input order. Blank lines are ignored. Lines that cannot
// be parsed produce warnings and are dropped.
func Parse(text string) ([]PositionSpec, []Warning) {
	var specs []PositionSpec
	var warnings []Warning

	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		lineNo := i + 1

		if strings.Count(line, ";") != 1 {
			warnings = append(warnings, Warning{
				Kind:    MalformedLine,
				Line:    lineNo,
				Text:    line,
				Message: "expected exactly one ';' separator, like 'Cohort_2;Col8'",
			})
			continue
		}

		label, loc, _ := strings.Cut(line, ";")
		if label == "" || loc == "" {
			warnings = append(warnings, Warning{
				Kind:    MalformedLine,
				Line:    lineNo,
				Text:    line,
				Message: "label and location must both be present",
			})
			continue
		}
		if !validToken(label) || !validToken(loc) {
			warnings = append(warnings, Warning{
				Kind:    MalformedLine,
				Line:    lineNo,
				Text:    line,
				Message: "only letters, digits and '_' are allowed",
			})
			continue
		}

		spec, err := ParseLocation(loc)
		if err != nil {
			warnings = append(warnings, Warning{
				Kind:    InvalidLocation,
				Line:    lineNo,
				Text:    line,
				Message: err.Error(),
			})
			continue
		}
		spec.Label = label
		spec.Line = lineNo
		specs = append(specs, spec)
	}

	return specs, warnings
}

// Expand flattens specs into single-well assignments. Expanded wells keep
// the position of the line that produced them, so applying the result in
// order makes the last line win.
func Expand(specs []PositionSpec) []Assignment {
	var out []Assignment
	for _, spec := range specs {
		for _, w := range spec.Wells() {
			out = append(out, Assignment{Label: spec.Label, Well: w, Line: spec.Line})
		}
	}
	return out
}

// CheckDuplicates looks for repeated label+well pairs and for wells that
// receive more than one distinct label. Both checks run on the expanded
// list so overlapping rows and columns are caught.
func CheckDuplicates(assignments []Assignment) []Warning {
	type pair struct {
		label string
		well  Well
	}

	var warnings []Warning

	pairCount := make(map[pair]int)
	var pairOrder []pair
	for _, a := range assignments {
		p := pair{label: a.Label, well: a.Well}
		if pairCount[p] == 0 {
			pairOrder = append(pairOrder, p)
		}
		pairCount[p]++
	}
	for _, p := range pairOrder {
		if n := pairCount[p]; n > 1 {
			warnings = append(warnings, Warning{
				Kind:    DuplicateAssignment,
				Well:    p.well.String(),
				Labels:  []string{p.label},
				Message: fmt.Sprintf("%s;%s is given %d times", p.label, p.well, n),
			})
		}
	}

	labelsByWell := make(map[Well][]string)
	var wellOrder []Well
	for _, a := range assignments {
		labels, seen := labelsByWell[a.Well]
		if !seen {
			wellOrder = append(wellOrder, a.Well)
		}
		if !contains(labels, a.Label) {
			labelsByWell[a.Well] = append(labels, a.Label)
		}
	}
	for _, w := range wellOrder {
		labels := labelsByWell[w]
		if len(labels) < 2 {
			continue
		}
		warnings = append(warnings, Warning{
			Kind:    ConflictingAssignment,
			Well:    w.String(),
			Labels:  labels,
			Message: fmt.Sprintf("well %s has different labels (%s), the last one is kept", w, strings.Join(labels, ", ")),
		})
	}

	return warnings
}

func validToken(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
		default:
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
