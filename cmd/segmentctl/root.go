package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aethersegment/backend/internal/app"
	"github.com/aethersegment/backend/internal/config"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "segmentctl",
	Short: "Operate the segmentation pipeline from the command line",
	Long: `segmentctl runs the same pipeline as the HTTP server: interpret a
campaign objective, preview refinements and inspect overview statistics.
Configuration is read from the environment and .env like the server.`,
	SilenceUsage: true,
}

func execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline details to stderr")
}

// loadApp wires the pipeline; logs stay quiet unless --verbose is set.
func loadApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logger := zerolog.Nop()
	if verbose {
		logger = app.NewLogger(cfg, "segmentctl")
	}
	return app.New(ctx, cfg, logger)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func stdout() io.Writer { return os.Stdout }
