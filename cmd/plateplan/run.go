package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/thanadol-git/plate-planner/internal/blob"
	"github.com/thanadol-git/plate-planner/internal/config"
	"github.com/thanadol-git/plate-planner/internal/db"
	"github.com/thanadol-git/plate-planner/internal/pipeline"
	"github.com/thanadol-git/plate-planner/internal/schemas"
)

var runCommand = &cobra.Command{
	Use:   "run [layout-file]",
	Short: "Run the full planning pipeline and write every export",
	Long: `Assembles the plate, builds the injection sequence, the optional Evosep
table and the SDRF, and writes all export files.

The plan comes either from a layout file and the config, or from a complete
request document (--request) in the same JSON format POST /plans accepts.
With --persist the run and its artifacts are saved to the configured store
and the files are uploaded to blob storage.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPipelineCmd,
}

var (
	runPlate    plateFlags
	runSeqFlags sequenceFlags
	runEvoFlags evosepFlags
	runRequest  string
	runWithEvo  bool
	runPersist  bool
)

func init() {
	runPlate.register(runCommand)
	runSeqFlags.register(runCommand)
	runEvoFlags.register(runCommand)
	runCommand.Flags().StringVar(&runRequest, "request", "", "Path to a JSON plan request document")
	runCommand.Flags().BoolVar(&runWithEvo, "evosep", false, "Also build the Evosep table")
	runCommand.Flags().BoolVar(&runPersist, "persist", false, "Save the run to the configured store and upload the files")
	rootCmd.AddCommand(runCommand)
}

// loadRequest reads and schema-validates a request document.
func loadRequest(path string, defaults config.Config) (pipeline.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.Request{}, fmt.Errorf("failed to read request: %w", err)
	}
	if err := schemas.ValidatePlanRequest(data); err != nil {
		return pipeline.Request{}, fmt.Errorf("request %s is invalid: %w", path, err)
	}
	return pipeline.DecodeRequest(data, defaults)
}

func runPipelineCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var req pipeline.Request
	var err error
	if runRequest != "" {
		req, err = loadRequest(runRequest, cfg)
	} else {
		req, err = runPlate.request(args)
	}
	if err != nil {
		return err
	}
	runSeqFlags.apply(cmd, &req.Sequence)
	if runWithEvo || req.Evosep != nil {
		req.Evosep = runEvoFlags.settings(cmd, req.Evosep)
	}

	opts := pipeline.RunOptions{
		Request: req,
		Logger:  logger,
	}
	if p := printer(cmd); p != nil {
		opts.OnProgress = func(ev pipeline.ProgressEvent) {
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", ev.Step, ev.Message)
		}
	}

	if runPersist || req.Persist {
		store, blobs, err := openStorage(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		opts.Store = store
		opts.Blobs = blobs
	}

	result, err := pipeline.Run(ctx, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if p := printer(cmd); p != nil {
		p.PrintLayout(result.Layout)
		p.PrintWarnings(result.Layout.Warnings)
		p.PrintSequence(result.Sequence.Records)
		p.PrintFiles(result.Files)
	}
	if result.Persisted {
		fmt.Fprintf(out, "run %s saved (%d files uploaded)\n", result.RunID, len(result.Uploaded))
	}

	return writeFiles(cmd, runPlate.dir(), result.Files)
}

// openStorage opens the configured run store and blob store. A run store is
// required; blob storage failures only disable uploads.
func openStorage(ctx context.Context, c config.Config) (db.Store, blob.Store, error) {
	store, err := db.Open(ctx, c.Store, c.DatabaseURL, c.SQLitePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	if store == nil {
		return nil, nil, errors.New("persistence needs a store: set store to sqlite or postgres in the config or PLATEPLAN_STORE")
	}

	blobs, err := blob.Open(ctx, c.Blob)
	if err != nil {
		logger.Warn("blob storage unavailable, files will not be uploaded", zap.Error(err))
		return store, nil, nil
	}
	return store, blobs, nil
}
