package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/thanadol-git/plate-planner/internal/db"
	"github.com/thanadol-git/plate-planner/internal/pipeline"
	"github.com/thanadol-git/plate-planner/internal/pipeline/steps"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect saved plan runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a saved run with its artifacts and step status",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

var (
	runsProject string
	runsStatus  string
	runsLimit   int
)

func init() {
	runsListCmd.Flags().StringVar(&runsProject, "project", "", "Only runs of this project")
	runsListCmd.Flags().StringVar(&runsStatus, "status", "", "Only runs with this status (running, completed, failed)")
	runsListCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum number of runs")

	runsCmd.AddCommand(runsListCmd, runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

func openRunStore(cmd *cobra.Command) (db.Store, error) {
	store, err := db.Open(cmd.Context(), cfg.Store, cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	if store == nil {
		return nil, fmt.Errorf("no store configured: set store to sqlite or postgres in the config or PLATEPLAN_STORE")
	}
	return store, nil
}

func runRunsList(cmd *cobra.Command, _ []string) error {
	store, err := openRunStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(cmd.Context(), db.RunFilters{
		Project: runsProject,
		Status:  runsStatus,
		Limit:   runsLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no runs")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPROJECT\tPLATE\tTECHNIQUE\tSTATUS\tCREATED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Project, r.PlateID, r.Technique, r.Status, r.CreatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	runID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid run ID %q: %w", args[0], err)
	}

	store, err := openRunStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	run, err := store.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to load run: %w", err)
	}
	if run == nil {
		return fmt.Errorf("run %s: %w", runID, db.ErrRunNotFound)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:       %s\n", run.ID)
	fmt.Fprintf(out, "Project:   %s\n", run.Project)
	fmt.Fprintf(out, "Plate:     %s\n", run.PlateID)
	fmt.Fprintf(out, "Technique: %s\n", run.Technique)
	fmt.Fprintf(out, "Status:    %s\n", run.Status)
	fmt.Fprintf(out, "Created:   %s\n", run.CreatedAt.Local().Format(time.DateTime))
	if run.CompletedAt != nil {
		fmt.Fprintf(out, "Completed: %s\n", run.CompletedAt.Local().Format(time.DateTime))
	}

	status, err := steps.GetStatus(ctx, store, runID)
	if err != nil {
		return fmt.Errorf("failed to get step status: %w", err)
	}
	fmt.Fprintf(out, "\nCompleted steps: %v\n", status.Completed)
	if len(status.Blocked) > 0 {
		fmt.Fprintf(out, "Blocked steps:   %v\n", status.Blocked)
	}

	manifest, err := db.LoadArtifact[pipeline.Manifest](ctx, store, runID, db.StepExportManifest)
	if err != nil {
		return err
	}
	if manifest != nil {
		fmt.Fprintln(out, "\nFiles:")
		for _, f := range manifest.Files {
			fmt.Fprintf(out, "  %-14s %s (%d bytes)\n", f.Kind, f.Name, f.Size)
		}
		for _, u := range manifest.Uploaded {
			fmt.Fprintf(out, "  uploaded %s\n", u.Key)
		}
	}
	return nil
}
