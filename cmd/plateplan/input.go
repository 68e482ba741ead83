package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/thanadol-git/plate-planner/internal/config"
	"github.com/thanadol-git/plate-planner/internal/export"
	"github.com/thanadol-git/plate-planner/internal/pipeline"
	"github.com/thanadol-git/plate-planner/internal/types"
)

// plateFlags are shared by every command that reads a plate annotation.
type plateFlags struct {
	text         string
	defaultLabel string
	project      string
	plateID      string
	technique    string
	outDir       string
}

func (f *plateFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.text, "text", "", "Annotation text, used instead of a layout file")
	cmd.Flags().StringVar(&f.defaultLabel, "default-label", "", "Label for wells no line assigns (defaults to the cohort)")
	cmd.Flags().StringVar(&f.project, "project", "", "Project name")
	cmd.Flags().StringVar(&f.plateID, "plate-id", "", "Plate ID (defaults to the cohort)")
	cmd.Flags().StringVar(&f.technique, "technique", "", "Acquisition technique: DIA, DDA, PRM or SRM")
	cmd.Flags().StringVarP(&f.outDir, "out", "o", "", "Directory to write files to (defaults to output_dir)")
}

// layoutText returns the annotation from --text, the file argument or
// layout_file from the config, in that order.
func (f *plateFlags) layoutText(args []string) (string, error) {
	if f.text != "" {
		return f.text, nil
	}
	path := cfg.LayoutFile
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return "", fmt.Errorf("a layout file argument, --text or layout_file in the config is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read layout file: %w", err)
	}
	return string(data), nil
}

// request builds a plan request from the config and the flags.
func (f *plateFlags) request(args []string) (pipeline.Request, error) {
	text, err := f.layoutText(args)
	if err != nil {
		return pipeline.Request{}, err
	}

	req := pipeline.RequestFromConfig(cfg, text)
	if f.defaultLabel != "" {
		req.DefaultLabel = f.defaultLabel
	}
	if f.project != "" {
		req.Session.Project = f.project
	}
	if f.plateID != "" {
		req.Session.PlateID = f.plateID
	}
	if f.technique != "" {
		req.Session.Technique = types.Technique(f.technique)
	}
	return req, nil
}

func (f *plateFlags) dir() string {
	if f.outDir != "" {
		return f.outDir
	}
	return cfg.OutputDir
}

// sequenceFlags override the injection settings.
type sequenceFlags struct {
	randomize   bool
	seed        uint64
	volume      float64
	noQCBetween bool
}

func (f *sequenceFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.randomize, "randomize", false, "Shuffle the sample order")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "Seed for a reproducible shuffle")
	cmd.Flags().Float64Var(&f.volume, "volume", 0, "Injection volume in µL")
	cmd.Flags().BoolVar(&f.noQCBetween, "no-qc-between", false, "Leave out the QC-between block")
}

func (f *sequenceFlags) apply(cmd *cobra.Command, s *types.SequenceSettings) {
	if cmd.Flags().Changed("randomize") {
		s.Randomize = f.randomize
	}
	if cmd.Flags().Changed("seed") {
		seed := f.seed
		s.Seed = &seed
		s.Randomize = true
	}
	if cmd.Flags().Changed("volume") {
		s.Volume = f.volume
	}
	if f.noQCBetween {
		s.IncludeQCBetween = false
	}
}

// evosepFlags request an Evosep table and override its settings.
type evosepFlags struct {
	slot      int
	randomize bool
	seed      uint64
	irtSlot   int
	irtCount  int
	irtMethod string
}

func (f *evosepFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.slot, "slot", 0, "Evosep tray slot (1-6)")
	cmd.Flags().BoolVar(&f.randomize, "tray-randomize", false, "Shuffle the tray order")
	cmd.Flags().Uint64Var(&f.seed, "tray-seed", 0, "Seed for a reproducible tray shuffle")
	cmd.Flags().IntVar(&f.irtSlot, "irt-slot", 0, "Tray slot holding iRT standards")
	cmd.Flags().IntVar(&f.irtCount, "irt-count", 0, "Number of iRT injections")
	cmd.Flags().StringVar(&f.irtMethod, "irt-method", "", "Xcalibur method for iRT injections (defaults to the sample method)")
}

// settings applies the flags to base, or to the stock Evosep settings when
// base is nil.
func (f *evosepFlags) settings(cmd *cobra.Command, base *types.EvosepSettings) *types.EvosepSettings {
	ev := config.DefaultEvosep(cfg.Sequence.DataPath)
	if base != nil {
		ev = *base
	}
	if cmd.Flags().Changed("slot") {
		ev.Slot = f.slot
	}
	if cmd.Flags().Changed("tray-randomize") {
		ev.Randomize = f.randomize
	}
	if cmd.Flags().Changed("tray-seed") {
		seed := f.seed
		ev.Seed = &seed
		ev.Randomize = true
	}
	if f.irtCount > 0 {
		irt := types.IRTSettings{Slot: f.irtSlot, Count: f.irtCount, Method: f.irtMethod}
		if irt.Method == "" && ev.IRT != nil {
			irt.Method = ev.IRT.Method
		}
		if irt.Method == "" {
			irt.Method = ev.XcaliburMethod
		}
		ev.IRT = &irt
	}
	return &ev
}

// plan runs the pipeline without persistence.
func plan(cmd *cobra.Command, req pipeline.Request) (*pipeline.Result, error) {
	result, err := pipeline.Run(cmd.Context(), pipeline.RunOptions{
		Request: req,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	if p := printer(cmd); p != nil {
		p.PrintWarnings(result.Layout.Warnings)
	}
	return result, nil
}

// writeFiles writes the files of the given kinds into dir; with no kinds
// every file is written.
func writeFiles(cmd *cobra.Command, dir string, files []export.File, kinds ...export.Kind) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	want := make(map[export.Kind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}

	written := 0
	for _, f := range files {
		if len(kinds) > 0 && !want[f.Kind] {
			continue
		}
		path := filepath.Join(dir, f.Name)
		if err := os.WriteFile(path, f.Data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.Name, err)
		}
		logger.Debug("wrote file", zap.String("path", path), zap.Int("bytes", f.Size))
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		written++
	}
	if written == 0 {
		return fmt.Errorf("nothing to write")
	}
	return nil
}
