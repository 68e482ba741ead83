package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/thanadol-git/plate-planner/internal/blob"
	"github.com/thanadol-git/plate-planner/internal/db"
	"github.com/thanadol-git/plate-planner/internal/server"
	"github.com/thanadol-git/plate-planner/internal/server/ratelimit"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server that exposes the planner over REST: plate assembly,
sequences, full plans with downloads, and saved runs when a store is
configured. Prometheus metrics are served on /metrics.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var servePort int

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := db.Open(ctx, cfg.Store, cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	var blobs blob.Store
	if store != nil {
		blobs, err = blob.Open(ctx, cfg.Blob)
		if err != nil {
			logger.Warn("blob storage unavailable, plan files will not be stored", zap.Error(err))
			blobs = nil
		}
	}
	logger.Info("storage configured",
		zap.String("store", cfg.Store),
		zap.Bool("files", blobs != nil))

	// The acquisition date is stamped per request, not at startup
	defaults := cfg
	defaults.Sequence.Date = ""

	srv, err := server.New(server.Config{
		Port:      servePort,
		Store:     store,
		Blobs:     blobs,
		Defaults:  defaults,
		RateLimit: ratelimit.LoadConfig(os.Getenv),
		Logger:    logger,
	})
	if err != nil {
		if store != nil {
			store.Close()
		}
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start(ctx)
}
