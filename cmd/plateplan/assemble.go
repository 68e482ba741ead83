package main

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/thanadol-git/plate-planner/internal/export"
	"github.com/thanadol-git/plate-planner/internal/observability"
	"github.com/thanadol-git/plate-planner/internal/plate"
)

var assembleCmd = &cobra.Command{
	Use:   "assemble [layout-file]",
	Short: "Build the 96-well plate layout from an annotation",
	Long: `Parses a plate annotation, one "label;location" line per assignment, and
prints the filled 96-well grid with label counts and any warnings.

Locations are wells (A1), comma lists (A1,B2), ranges (A1-A6), rows (RowH)
and columns (Col12). Lines are applied in order, so the last line that
touches a well decides its label.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAssemble,
}

var (
	assembleFlags  plateFlags
	assembleFormat string
)

func init() {
	assembleFlags.register(assembleCmd)
	assembleCmd.Flags().StringVarP(&assembleFormat, "format", "f", "none", "Layout file to write: csv, xlsx or none")
	rootCmd.AddCommand(assembleCmd)
}

func runAssemble(cmd *cobra.Command, args []string) error {
	var kind export.Kind
	var write func(io.Writer, *plate.Layout) error
	switch assembleFormat {
	case "none", "":
	case "csv":
		kind, write = export.KindLayoutCSV, export.WriteLayoutCSV
	case "xlsx":
		kind, write = export.KindLayoutXLSX, export.WriteLayoutXLSX
	default:
		return fmt.Errorf("unsupported format %q (want csv, xlsx or none)", assembleFormat)
	}

	req, err := assembleFlags.request(args)
	if err != nil {
		return err
	}
	label := req.Label()
	if label == "" {
		return fmt.Errorf("--default-label is required when the session has no cohort")
	}

	layout := plate.Assemble(req.Layout, label)
	p := observability.NewPrinter(cmd.OutOrStdout())
	p.PrintLayout(layout)
	p.PrintWarnings(layout.Warnings)

	if write == nil {
		return nil
	}
	var buf bytes.Buffer
	if err := write(&buf, layout); err != nil {
		return err
	}
	namer := export.Namer{Project: req.Session.Project, PlateID: req.Session.Plate(), Now: time.Now()}
	return writeFiles(cmd, assembleFlags.dir(), []export.File{{
		Kind:        kind,
		Name:        namer.Name(kind),
		ContentType: export.ContentType(kind),
		Data:        buf.Bytes(),
		Size:        buf.Len(),
	}})
}
