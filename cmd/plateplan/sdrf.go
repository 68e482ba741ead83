package main

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/thanadol-git/plate-planner/internal/export"
	"github.com/thanadol-git/plate-planner/internal/sdrf"
)

var sdrfCmd = &cobra.Command{
	Use:   "sdrf [layout-file]",
	Short: "Write the SDRF sample annotation for a plate",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSDRF,
}

var skylineCmd = &cobra.Command{
	Use:   "skyline [layout-file]",
	Short: "Write Skyline annotations from a generated or existing SDRF",
	Long: `Writes the characteristics columns of an SDRF table as a Skyline annotation
CSV. With --sdrf the table is read from an existing SDRF file (for example
one edited by hand); otherwise it is generated from the plate annotation.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSkyline,
}

var (
	sdrfPlate    plateFlags
	skylinePlate plateFlags
	skylineSDRF  string
)

func init() {
	sdrfPlate.register(sdrfCmd)
	rootCmd.AddCommand(sdrfCmd)

	skylinePlate.register(skylineCmd)
	skylineCmd.Flags().StringVar(&skylineSDRF, "sdrf", "", "Existing SDRF file to convert")
	rootCmd.AddCommand(skylineCmd)
}

func runSDRF(cmd *cobra.Command, args []string) error {
	req, err := sdrfPlate.request(args)
	if err != nil {
		return err
	}
	result, err := plan(cmd, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d SDRF rows, %d columns\n", len(result.SDRF.Rows), len(result.SDRF.Columns))
	return writeFiles(cmd, sdrfPlate.dir(), result.Files, export.KindSDRF)
}

func runSkyline(cmd *cobra.Command, args []string) error {
	if skylineSDRF == "" {
		req, err := skylinePlate.request(args)
		if err != nil {
			return err
		}
		result, err := plan(cmd, req)
		if err != nil {
			return err
		}
		return writeFiles(cmd, skylinePlate.dir(), result.Files, export.KindSkyline)
	}

	f, err := os.Open(skylineSDRF)
	if err != nil {
		return fmt.Errorf("failed to open SDRF file: %w", err)
	}
	defer f.Close()

	table, err := sdrf.ReadTSV(f)
	if err != nil {
		return fmt.Errorf("failed to read SDRF file: %w", err)
	}
	annotations := sdrf.SkylineAnnotations(table)
	if len(annotations.Columns) == 0 {
		return fmt.Errorf("%s has no characteristics columns", skylineSDRF)
	}

	var buf bytes.Buffer
	if err := export.WriteSkyline(&buf, annotations); err != nil {
		return err
	}

	session := cfg.Session
	if skylinePlate.project != "" {
		session.Project = skylinePlate.project
	}
	if skylinePlate.plateID != "" {
		session.PlateID = skylinePlate.plateID
	}
	namer := export.Namer{Project: session.Project, PlateID: session.Plate(), Now: time.Now()}
	return writeFiles(cmd, skylinePlate.dir(), []export.File{{
		Kind:        export.KindSkyline,
		Name:        namer.Name(export.KindSkyline),
		ContentType: export.ContentType(export.KindSkyline),
		Data:        buf.Bytes(),
		Size:        buf.Len(),
	}})
}
