package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "maestro",
	Short: "Construction-drawing comprehension pipeline",
	Long: `Maestro ingests scanned construction-drawing pages, drives them through
an AI-assisted comprehension pipeline, and answers natural-language
questions against the accumulated structured knowledge.

The pipeline includes:
  - Per-page vision analysis with normalized region bounding boxes
  - A background job orchestrator with pause/resume and live progress
  - Hybrid retrieval fusing vector similarity with keyword relevance`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.maestro/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "info", "log level: debug, info, warn, error",
	)

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		var level slog.Level
		if err := level.UnmarshalText([]byte(logLevel)); err != nil {
			level = slog.LevelInfo
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})))
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(searchCmd)
}
