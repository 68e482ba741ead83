package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thanadol-git/plate-planner/internal/export"
)

var sequenceCmd = &cobra.Command{
	Use:   "sequence [layout-file]",
	Short: "Write the Xcalibur sample order for a plate",
	Long: `Builds the injection sequence for a plate annotation: placeholder wells are
dropped, samples are optionally shuffled, washes are interleaved for DIA and
DDA, and the run is framed by QC and wash blocks. Writes the sample order CSV.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSequence,
}

var (
	sequencePlate plateFlags
	sequenceOpts  sequenceFlags
)

func init() {
	sequencePlate.register(sequenceCmd)
	sequenceOpts.register(sequenceCmd)
	rootCmd.AddCommand(sequenceCmd)
}

func runSequence(cmd *cobra.Command, args []string) error {
	req, err := sequencePlate.request(args)
	if err != nil {
		return err
	}
	sequenceOpts.apply(cmd, &req.Sequence)

	result, err := plan(cmd, req)
	if err != nil {
		return err
	}

	if p := printer(cmd); p != nil {
		p.PrintSequence(result.Sequence.Records)
	}
	s := result.Summary
	fmt.Fprintf(cmd.OutOrStdout(), "%d injections: %d samples, %d washes, %d QC, %d QC-between\n",
		s.Total, s.Samples, s.Washes, s.QC, s.QCBetween)

	return writeFiles(cmd, sequencePlate.dir(), result.Files, export.KindSampleOrder)
}
