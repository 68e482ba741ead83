package sequence

import (
	"fmt"
	"strconv"

	"github.com/thanadol-git/plate-planner/internal/types"
)

// EvosepColumns is the header of the Evosep method table.
var EvosepColumns = []string{
	"Analysis Method",
	"Source Tray",
	"Source Vial",
	"Sample Name",
	"Xcalibur Method",
	"Xcalibur Filename",
	"Xcalibur Post Acquisition Program",
	"Xcalibur Output Dir",
	"Comment",
	"Pump preparation",
	"Align solvents",
	"Flow to column / idle flow",
}

// EvosepRow is one line of the Evosep method table. Command rows (standby,
// prepare) only carry AnalysisMethod and the three pump columns.
type EvosepRow struct {
	AnalysisMethod     string `json:"analysis_method"`
	SourceTray         string `json:"source_tray"`
	SourceVial         int    `json:"source_vial,omitempty"`
	SampleName         string `json:"sample_name"`
	XcaliburMethod     string `json:"xcalibur_method"`
	XcaliburFilename   string `json:"xcalibur_filename"`
	PostAcquisition    string `json:"xcalibur_post_acquisition_program"`
	OutputDir          string `json:"xcalibur_output_dir"`
	Comment            string `json:"comment"`
	PumpPreparation    string `json:"pump_preparation"`
	AlignSolvents      string `json:"align_solvents"`
	FlowToColumnOrIdle string `json:"flow_to_column_idle_flow"`
}

// Values returns the row in EvosepColumns order.
func (r EvosepRow) Values() []string {
	vial := ""
	if r.SourceVial > 0 {
		vial = strconv.Itoa(r.SourceVial)
	}
	return []string{
		r.AnalysisMethod,
		r.SourceTray,
		vial,
		r.SampleName,
		r.XcaliburMethod,
		r.XcaliburFilename,
		r.PostAcquisition,
		r.OutputDir,
		r.Comment,
		r.PumpPreparation,
		r.AlignSolvents,
		r.FlowToColumnOrIdle,
	}
}

// EvosepTable is the Chronos/Evosep method table.
type EvosepTable struct {
	Rows []EvosepRow `json:"rows"`
}

// Header returns the column names.
func (t *EvosepTable) Header() []string {
	return EvosepColumns
}

// Records returns every row as strings.
func (t *EvosepTable) Records() [][]string {
	out := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Values()
	}
	return out
}

// Tray returns the tray name for an Evosep slot, e.g. "EvoSlot 1".
func Tray(slot int) string {
	return fmt.Sprintf("EvoSlot %d", slot)
}

// BuildEvosep lays out the Evosep method table for the plate samples.
// samples are the non-placeholder wells in row-major order (Sequence.Samples).
// The table starts with the optional iRT pre-run, then the samples in plate
// or shuffled order, then the optional standby and prepare commands.
func BuildEvosep(samples []Record, settings types.EvosepSettings, fn PermuteFunc) (*EvosepTable, error) {
	if samples == nil {
		return nil, missingUpstream("sample order has not been built")
	}
	if settings.Slot < 1 || settings.Slot > 6 {
		return nil, &InputError{Message: fmt.Sprintf("evosep slot %d out of range 1-6", settings.Slot)}
	}

	order := samples
	if settings.Randomize {
		if fn == nil {
			if settings.Seed != nil {
				fn = SeededPermutation(*settings.Seed)
			} else {
				fn = RandomPermutation
			}
		}
		var err error
		order, err = permute(samples, fn)
		if err != nil {
			return nil, err
		}
	}

	var rows []EvosepRow
	if irt := settings.IRT; irt != nil {
		if irt.Count < 1 || irt.Count > 10 {
			return nil, &InputError{Message: fmt.Sprintf("iRT sample count %d out of range 1-10", irt.Count)}
		}
		name := irt.Name
		if name == "" {
			name = types.DefaultIRTName
		}
		for i := 1; i <= irt.Count; i++ {
			rows = append(rows, EvosepRow{
				SourceTray:     Tray(irt.Slot),
				SourceVial:     i,
				SampleName:     name + "_" + strconv.Itoa(i),
				XcaliburMethod: irt.Method,
			})
		}
	}

	for _, s := range order {
		rows = append(rows, EvosepRow{
			SourceTray:     Tray(settings.Slot),
			SourceVial:     s.SourceVial,
			SampleName:     s.FileName,
			XcaliburMethod: settings.XcaliburMethod,
		})
	}

	for i := range rows {
		rows[i].AnalysisMethod = settings.AnalysisMethod
		rows[i].XcaliburFilename = rows[i].SampleName
		rows[i].OutputDir = settings.OutputDir
		rows[i].Comment = settings.Comment
	}

	if sb := settings.Standby; sb != nil {
		rows = append(rows,
			EvosepRow{AnalysisMethod: sb.StandbyCommand},
			EvosepRow{
				AnalysisMethod:     sb.PrepareCommand,
				PumpPreparation:    "none",
				AlignSolvents:      "False",
				FlowToColumnOrIdle: "Idle flow (250 nl/min)",
			},
		)
	}

	return &EvosepTable{Rows: rows}, nil
}
