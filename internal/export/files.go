package export

import (
	"strings"
	"time"
)

// Kind identifies an export file type.
type Kind string

// Export kinds.
const (
	KindSampleOrder Kind = "sample_order"
	KindEvosepCSV   Kind = "evosep_csv"
	KindEvosepXML   Kind = "evosep_xml"
	KindSDRF        Kind = "sdrf"
	KindSkyline     Kind = "skyline"
	KindLayoutCSV   Kind = "layout_csv"
	KindLayoutXLSX  Kind = "layout_xlsx"
)

// Content types of the rendered files.
const (
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeTSV  = "text/tab-separated-values; charset=utf-8"
	ContentTypeXML  = "application/xml"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// File is one rendered download.
type File struct {
	Kind        Kind   `json:"kind"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
	Size        int    `json:"size"`
}

// Namer builds download file names for one plate.
type Namer struct {
	Project string
	PlateID string
	Now     time.Time
}

func (n Namer) minute() string {
	return n.Now.Format("200601021504")
}

func (n Namer) day() string {
	return n.Now.Format("20060102")
}

// Name returns the download name for an export kind.
func (n Namer) Name(kind Kind) string {
	switch kind {
	case KindSampleOrder:
		return join(".csv", n.minute(), n.Project, "Sample", "Order", n.PlateID)
	case KindEvosepCSV:
		return join(".csv", n.minute(), n.Project, "Evosep", "Order", n.PlateID)
	case KindEvosepXML:
		return join(".xml", n.minute(), n.Project, "Evosep", "Order", n.PlateID)
	case KindSDRF:
		return join(".sdrf.tsv", n.day(), n.Project, n.PlateID)
	case KindSkyline:
		return join(".csv", n.minute(), n.Project, "Skyline", "Annotations", n.PlateID)
	case KindLayoutCSV:
		return join(".csv", n.minute(), n.Project, "Plate", "Layout", n.PlateID)
	case KindLayoutXLSX:
		return join(".xlsx", n.minute(), n.Project, "Plate", "Layout", n.PlateID)
	default:
		return join(".dat", n.minute(), n.Project, string(kind), n.PlateID)
	}
}

// ContentType returns the MIME type for an export kind.
func ContentType(kind Kind) string {
	switch kind {
	case KindSDRF:
		return ContentTypeTSV
	case KindEvosepXML:
		return ContentTypeXML
	case KindLayoutXLSX:
		return ContentTypeXLSX
	default:
		return ContentTypeCSV
	}
}

func join(suffix string, parts ...string) string {
	return strings.Join(parts, "_") + suffix
}
