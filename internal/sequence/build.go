package sequence

import (
	"strconv"
	"strings"

	"github.com/thanadol-git/plate-planner/internal/plate"
	"github.com/thanadol-git/plate-planner/internal/types"
)

// ChunkSize is the number of samples injected between two washes.
const ChunkSize = 8

// Kind tells samples apart from auxiliary injections.
type Kind string

// Record kinds.
const (
	KindSample    Kind = "sample"
	KindWash      Kind = "wash"
	KindQC        Kind = "qc"
	KindQCBetween Kind = "qc_between"
)

// Record is one row of the injection sequence. Sample, Well and SourceVial
// are only set for sample records.
type Record struct {
	FileName         string  `json:"file_name"`
	Path             string  `json:"path"`
	InstrumentMethod string  `json:"instrument_method"`
	Position         string  `json:"position"`
	InjectionVolume  float64 `json:"injection_volume"`
	Kind             Kind    `json:"kind"`
	Sample           string  `json:"sample,omitempty"`
	Well             string  `json:"well,omitempty"`
	SourceVial       int     `json:"source_vial,omitempty"`
}

// Naming holds the session values joined into every sample file name.
type Naming struct {
	Technique types.Technique `json:"technique"`
	Date      string          `json:"date"`
	Project   string          `json:"project"`
	PlateID   string          `json:"plate_id"`
}

// FileName returns technique_date_project_plate_well.
func (n Naming) FileName(well string) string {
	return strings.Join([]string{string(n.Technique), n.Date, n.Project, n.PlateID, well}, "_")
}

// Input is everything the sequence builder needs. Entries is the row-major
// plate enumeration; a nil Entries means no plate has been assembled yet.
type Input struct {
	Entries     []plate.LongEntry
	Placeholder string
	BayLetter   string
	Volume      float64
	DataPath    string
	MethodPath  string
	Naming      Naming

	Wash             types.AuxSample
	QC               types.AuxSample
	QCBetween        types.AuxSample
	IncludeQCBetween bool

	Randomize bool
	// Permute is used when Randomize is set. Nil means RandomPermutation.
	Permute PermuteFunc
}

// NewInput fills an Input from the session and sequence settings. Auxiliary
// samples without a name or volume get the defaults, and the QC-between
// sample is named after the injection date.
func NewInput(entries []plate.LongEntry, session types.Session, settings types.SequenceSettings) Input {
	in := Input{
		Entries:     entries,
		Placeholder: settings.PlaceholderLabel(),
		BayLetter:   settings.Bay.Letter(),
		Volume:      settings.Volume,
		DataPath:    settings.DataPath,
		MethodPath:  settings.MethodPath,
		Naming: Naming{
			Technique: session.Technique,
			Date:      settings.Date,
			Project:   session.Project,
			PlateID:   session.Plate(),
		},
		Wash:             withDefaults(settings.Wash, types.DefaultWashName, settings.Volume),
		QC:               withDefaults(settings.QC, types.DefaultQCName, settings.Volume),
		QCBetween:        withDefaults(settings.QCBetween, "QC_"+settings.Date, settings.Volume),
		IncludeQCBetween: settings.IncludeQCBetween,
		Randomize:        settings.Randomize,
	}
	if settings.Seed != nil {
		in.Permute = SeededPermutation(*settings.Seed)
	}
	return in
}

func withDefaults(a types.AuxSample, name string, volume float64) types.AuxSample {
	if a.Name == "" {
		a.Name = name
	}
	if a.Volume == 0 {
		a.Volume = volume
	}
	return a
}

// Sequence keeps the intermediate lists next to the final run order.
type Sequence struct {
	// Samples are the non-placeholder wells in row-major order.
	Samples []Record `json:"samples"`
	// Order is Samples after optional randomization.
	Order []Record `json:"order"`
	// Records is the complete run list including washes and QCs.
	Records []Record `json:"records"`
}

// Build returns the final ordered injection sequence.
func Build(in Input) ([]Record, error) {
	seq, err := Plan(in)
	if err != nil {
		return nil, err
	}
	return seq.Records, nil
}

// Plan runs the sequence builder and keeps every intermediate list.
//
// Placeholder wells are dropped, the remaining samples are optionally
// shuffled, and for interleaving techniques a wash follows every chunk of
// ChunkSize samples. The body is wrapped as Wash, QC, Wash, body, QC, Wash,
// and when QC-between is enabled that is wrapped again by wash_1, QC_1 and
// QC_2, wash_2.
func Plan(in Input) (*Sequence, error) {
	if in.Entries == nil {
		return nil, missingUpstream("plate layout has not been assembled")
	}
	if in.Volume <= 0 {
		return nil, &InputError{Message: "injection volume must be positive"}
	}
	if !in.Naming.Technique.Valid() {
		return nil, &InputError{Message: "unknown acquisition technique " + strconv.Quote(string(in.Naming.Technique))}
	}

	samples := sampleRecords(in)

	order := samples
	if in.Randomize {
		fn := in.Permute
		if fn == nil {
			fn = RandomPermutation
		}
		var err error
		order, err = permute(samples, fn)
		if err != nil {
			return nil, err
		}
	}

	wash := auxRecord(in.Wash, KindWash, "")
	qc := auxRecord(in.QC, KindQC, "")

	var body []Record
	if in.Naming.Technique.Interleaves() {
		body = interleave(order, wash, ChunkSize)
	} else {
		body = append([]Record(nil), order...)
	}

	records := make([]Record, 0, len(body)+9)
	if in.IncludeQCBetween {
		records = append(records,
			auxRecord(in.Wash, KindWash, "_1"),
			auxRecord(in.QCBetween, KindQCBetween, "_1"),
		)
	}
	records = append(records, wash, qc, wash)
	records = append(records, body...)
	records = append(records, qc, wash)
	if in.IncludeQCBetween {
		records = append(records,
			auxRecord(in.QCBetween, KindQCBetween, "_2"),
			auxRecord(in.Wash, KindWash, "_2"),
		)
	}

	return &Sequence{Samples: samples, Order: order, Records: records}, nil
}

// sampleRecords numbers every entry before dropping placeholders, so
// source vials keep the physical well identity.
func sampleRecords(in Input) []Record {
	out := make([]Record, 0, len(in.Entries))
	for i, e := range in.Entries {
		vial := e.SourceVial
		if vial == 0 {
			vial = i + 1
		}
		if e.Sample == in.Placeholder {
			continue
		}
		well := e.Row + strconv.Itoa(e.Column)
		out = append(out, Record{
			FileName:         in.Naming.FileName(well),
			Path:             in.DataPath,
			InstrumentMethod: in.MethodPath,
			Position:         in.BayLetter + well,
			InjectionVolume:  in.Volume,
			Kind:             KindSample,
			Sample:           e.Sample,
			Well:             well,
			SourceVial:       vial,
		})
	}
	return out
}

func auxRecord(a types.AuxSample, kind Kind, suffix string) Record {
	return Record{
		FileName:         a.Name + suffix,
		Path:             a.Path,
		InstrumentMethod: a.Method,
		Position:         a.Position,
		InjectionVolume:  a.Volume,
		Kind:             kind,
	}
}

func interleave(records []Record, wash Record, size int) []Record {
	out := make([]Record, 0, len(records)+len(records)/size+1)
	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))
		out = append(out, records[start:end]...)
		out = append(out, wash)
	}
	return out
}

// ExpectedLength is the closed-form length of a sequence with n samples.
func ExpectedLength(n int, technique types.Technique, qcBetween bool) int {
	total := n + 5
	if technique.Interleaves() {
		total += (n + ChunkSize - 1) / ChunkSize
	}
	if qcBetween {
		total += 4
	}
	return total
}

// Summary counts the records of a sequence by kind.
type Summary struct {
	Samples   int `json:"samples"`
	Washes    int `json:"washes"`
	QC        int `json:"qc"`
	QCBetween int `json:"qc_between"`
	Total     int `json:"total"`
}

// Summarize counts records by kind.
func Summarize(records []Record) Summary {
	var s Summary
	for _, r := range records {
		switch r.Kind {
		case KindSample:
			s.Samples++
		case KindWash:
			s.Washes++
		case KindQC:
			s.QC++
		case KindQCBetween:
			s.QCBetween++
		}
	}
	s.Total = len(records)
	return s
}

// FormatVolume renders a volume the way it was typed, e.g. 0.1 or 5.
func FormatVolume(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
