package export

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/thanadol-git/plate-planner/internal/sequence"
)

var xmlNameReplacer = strings.NewReplacer(" ", "_", "/", "_", "(", "", ")", "")

// SanitizeXMLName turns a column header into an element name: spaces and
// slashes become underscores, parentheses are dropped.
func SanitizeXMLName(col string) string {
	return xmlNameReplacer.Replace(col)
}

// WriteEvosepXML writes the Evosep method table as
// <data><row><Analysis_Method>...</Analysis_Method>...</row></data>
// indented by two spaces.
func WriteEvosepXML(w io.Writer, table *sequence.EvosepTable) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return &RenderError{Format: "evosep xml", Message: "failed to write header", Cause: err}
	}

	names := make([]xml.Name, len(table.Header()))
	for i, col := range table.Header() {
		names[i] = xml.Name{Local: SanitizeXMLName(col)}
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")

	data := xml.StartElement{Name: xml.Name{Local: "data"}}
	row := xml.StartElement{Name: xml.Name{Local: "row"}}
	if err := enc.EncodeToken(data); err != nil {
		return &RenderError{Format: "evosep xml", Message: "failed to open document", Cause: err}
	}
	for _, values := range table.Records() {
		if err := enc.EncodeToken(row); err != nil {
			return &RenderError{Format: "evosep xml", Message: "failed to open row", Cause: err}
		}
		for i, v := range values {
			if err := enc.EncodeElement(v, xml.StartElement{Name: names[i]}); err != nil {
				return &RenderError{Format: "evosep xml", Message: "failed to write cell", Cause: err}
			}
		}
		if err := enc.EncodeToken(row.End()); err != nil {
			return &RenderError{Format: "evosep xml", Message: "failed to close row", Cause: err}
		}
	}
	if err := enc.EncodeToken(data.End()); err != nil {
		return &RenderError{Format: "evosep xml", Message: "failed to close document", Cause: err}
	}
	if err := enc.Close(); err != nil {
		return &RenderError{Format: "evosep xml", Message: "failed to flush", Cause: err}
	}
	_, err := io.WriteString(w, "\n")
	return err
}
