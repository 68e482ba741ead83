package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thanadol-git/plate-planner/internal/export"
)

var evosepCmd = &cobra.Command{
	Use:   "evosep [layout-file]",
	Short: "Write the Evosep tray table as CSV and XML",
	Long: `Builds the Evosep method table for the plate samples. The tray order can be
shuffled independently of the instrument sequence, iRT injections can be
added from a separate slot, and standby and prepare rows come from the
evosep.standby settings in the config.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEvosep,
}

var (
	evosepPlate plateFlags
	evosepOpts  evosepFlags
)

func init() {
	evosepPlate.register(evosepCmd)
	evosepOpts.register(evosepCmd)
	rootCmd.AddCommand(evosepCmd)
}

func runEvosep(cmd *cobra.Command, args []string) error {
	req, err := evosepPlate.request(args)
	if err != nil {
		return err
	}
	req.Evosep = evosepOpts.settings(cmd, req.Evosep)

	result, err := plan(cmd, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d Evosep rows\n", len(result.Evosep.Rows))

	return writeFiles(cmd, evosepPlate.dir(), result.Files, export.KindEvosepCSV, export.KindEvosepXML)
}
