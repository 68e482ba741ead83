package plate

import "fmt"

// WarningKind classifies a non-fatal annotation problem.
type WarningKind string

const (
	// MalformedLine is a line without exactly one ';' or with disallowed characters.
	MalformedLine WarningKind = "malformed_line"
	// InvalidLocation is a location that is not a well, RowX or ColN.
	InvalidLocation WarningKind = "invalid_location"
	// DuplicateAssignment is the same label+well pair given more than once.
	DuplicateAssignment WarningKind = "duplicate_assignment"
	// ConflictingAssignment is one well given two or more different labels.
	ConflictingAssignment WarningKind = "conflicting_assignment"
)

// Warning reports a problem found while parsing annotations. Warnings never
// stop assembly; the offending line is skipped or the last label wins.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Line    int         `json:"line,omitempty"`
	Text    string      `json:"text,omitempty"`
	Well    string      `json:"well,omitempty"`
	Labels  []string    `json:"labels,omitempty"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	if w.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", w.Line, w.Kind, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Kind, w.Message)
}

// HasKind reports whether any warning is of the given kind.
func HasKind(warnings []Warning, kind WarningKind) bool {
	for _, w := range warnings {
		if w.Kind == kind {
			return true
		}
	}
	return false
}
