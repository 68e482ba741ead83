package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/thanadol-git/plate-planner/internal/config"
	"github.com/thanadol-git/plate-planner/internal/observability"
)

var (
	configPath string
	verbose    bool

	// Set by PersistentPreRunE for every command.
	logger *zap.Logger
	cfg    config.Config
)

var rootCmd = &cobra.Command{
	Use:   "plateplan",
	Short: "96-well plate planner for proteomics runs",
	Long: `plateplan turns a plate annotation into a full 96-well layout, an instrument
injection sequence, Evosep tray tables and SDRF annotations.

Settings come from the stock defaults, then --config (JSON or YAML), then
environment variables, then command flags.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a JSON or YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print detailed debug information")
}

func setup(cmd *cobra.Command, _ []string) error {
	var err error
	logger, err = newLogger(verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	loaded, err := loadConfig(configPath, time.Now())
	if err != nil {
		return err
	}
	cfg = *loaded
	if verbose {
		cfg.Verbose = true
	}
	if configPath != "" {
		logger.Debug("loaded config", zap.String("path", configPath))
	}
	return nil
}

// newLogger logs to stderr so stdout stays free for command output.
func newLogger(debug bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.Encoding = "console"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		zcfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return zcfg.Build()
}

// loadConfig layers the config file and the environment over the defaults.
func loadConfig(path string, now time.Time) (*config.Config, error) {
	defaults := config.Defaults(now)
	loaded := &defaults
	if path != "" {
		var err error
		loaded, err = config.LoadWithDefaults(path, defaults)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	loaded.ApplyEnv(os.Getenv)
	if err := loaded.Validate(); err != nil {
		return nil, err
	}
	return loaded, nil
}

// printer returns the box printer for verbose human output, or nil.
func printer(cmd *cobra.Command) *observability.Printer {
	if !cfg.Verbose {
		return nil
	}
	return observability.NewPrinter(cmd.OutOrStdout())
}
