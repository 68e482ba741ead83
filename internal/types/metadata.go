// Package types provides type definitions for the session metadata shared by the
// plate planner: project and sample information, instrument setup, and the
// settings used by each export.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "fmt"

// Technique is the mass-spectrometry acquisition mode.
type Technique string

// Supported acquisition techniques.
const (
	DIA Technique = "DIA"
	DDA Technique = "DDA"
	PRM Technique = "PRM"
	SRM Technique = "SRM"
)

// Techniques lists every technique in display order.
var Techniques = []Technique{DIA, DDA, PRM, SRM}

// Interleaves reports whether washes are inserted between chunks of samples.
// Targeted runs (SRM, PRM) are injected as a flat list.
func (t Technique) Interleaves() bool {
	return t != SRM && t != PRM
}

// Targeted reports whether the technique is a scheduled targeted assay.
func (t Technique) Targeted() bool {
	return t == SRM || t == PRM
}

// Valid reports whether t is one of the supported techniques.
func (t Technique) Valid() bool {
	for _, v := range Techniques {
		if v == t {
			return true
		}
	}
	return false
}

// ParseTechnique converts a user-supplied string to a Technique.
func ParseTechnique(s string) (Technique, error) {
	t := Technique(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown acquisition technique %q (want DIA, DDA, PRM or SRM)", s)
	}
	return t, nil
}

// Accession is an ontology term written into SDRF files as "NT=...;AC=...".
type Accession string

// OrganismSpecies maps the organism choice to its species name.
var OrganismSpecies = map[string]string{
	"Human":         "Homo sapiens",
	"Rat":           "Rattus norvegicus",
	"Mouse":         "Mus musculus",
	"Cyanobacteria": "Cyanobacteria",
	"E.coli":        "Escherichia coli",
}

// SampleTypes are the accepted sample (organism part) values.
var SampleTypes = []string{"Plasma", "Serum", "Tissue", "Cell line", "Cell culture"}

// InstrumentTechniques lists the acquisition modes each instrument supports.
var InstrumentTechniques = map[string][]Technique{
	"Q Exactive HF": {DIA, DDA, PRM},
	"TSQ Altis":     {SRM},
	"LIT Stellar":   {DIA, DDA, PRM, SRM},
}

// InstrumentAccessions holds the SDRF instrument term per instrument.
var InstrumentAccessions = map[string]Accession{
	"Q Exactive HF": "NT=Q Exactive HF;AC=MS:1002523",
	"TSQ Altis":     "NT=TSQ Altis;AC=MS:1002874",
	"LIT Stellar":   "NT=Stellar;AC=MS:1003409",
}

// AcquisitionAccessions holds the SDRF acquisition method term per technique.
var AcquisitionAccessions = map[Technique]Accession{
	DIA: "NT=Data Independent Acquisition;AC=MS:1002804",
	DDA: "NT=Data-Dependent Acquisition;AC=NCIT:C161785",
	PRM: "NT=Parallel Reaction Monitoring;AC=MS:1002956",
	SRM: "NT=Selected Reaction Monitoring;AC=MS:1000423",
}

// EnzymeAccessions holds the cleavage agent term per digestion enzyme.
var EnzymeAccessions = map[string]Accession{
	"Trypsin":      "AC=MS:1001251;NT=Trypsin",
	"Lys-C":        "AC=MS:1001309;NT=Lys-C",
	"Chymotrypsin": "AC=MS:1001306;NT=Chymotrypsin",
}

// DissociationAccessions holds the dissociation method term per method.
var DissociationAccessions = map[string]Accession{
	"ETD": "NT=Electron Transfer Dissociation;AC=MS:1002592",
	"CID": "NT=Collision-Induced Dissociation;AC=MS:1000132",
	"HCD": "NT=Higher-energy Collisional Dissociation;AC=MS:1000422",
}

// Bay is the autosampler injection bay colour.
type Bay string

// Autosampler bays.
const (
	BayRed   Bay = "Red"
	BayGreen Bay = "Green"
	BayBlue  Bay = "Blue"
)

var bayLetters = map[Bay]string{
	BayRed:   "R",
	BayGreen: "G",
	BayBlue:  "B",
}

// Letter returns the position prefix for the bay, e.g. "R" for Red.
func (b Bay) Letter() string {
	return bayLetters[b]
}

func supports(instrument string, t Technique) bool {
	for _, v := range InstrumentTechniques[instrument] {
		if v == t {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
