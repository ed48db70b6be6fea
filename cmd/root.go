// Package cmd provides the CLI commands for the janitor daemon.
package cmd

import (
	"log/slog"
	"os"

	"github.com/adalundhe/janitor/core/config"
	"github.com/spf13/cobra"
)

// =============================================================================
// Global Flags
// =============================================================================

var (
	configPath string
	logLevel   string
)

// =============================================================================
// Root Command
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "janitor",
	Short: "Janitor - a file-organizing daemon",
	Long: `Janitor watches directories for new entries and routes each one into a
configured bucket according to filename and extension rules, applying a
move, copy or delete action.

Running janitor with no subcommand starts the daemon in continuous watch
mode. Use "janitor once" to process all pre-existing entries a single time,
or "janitor check" to validate the configuration document.`,
	RunE:          runWatch,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to the configuration document")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log severity: debug, info, warn or error")
}

// =============================================================================
// Shared Helpers
// =============================================================================

// newLogger builds the process logger from the --log-level flag.
func newLogger() *slog.Logger {
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// resolveConfigPath returns the --config flag when set, otherwise the first
// existing default location.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultPath()
}
