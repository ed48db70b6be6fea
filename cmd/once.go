package cmd

import (
	"log/slog"

	"github.com/adalundhe/janitor/core/config"
	"github.com/adalundhe/janitor/core/watch"
	"github.com/spf13/cobra"
)

// =============================================================================
// Once Command
// =============================================================================

// onceCmd processes every pre-existing entry under the watch paths a single
// time and exits instead of waiting on live notifications.
var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Process all pre-existing entries once and exit",
	RunE:  runOnce,
}

func init() {
	rootCmd.AddCommand(onceCmd)
}

func runOnce(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	path := resolveConfigPath()
	logger.Info("using config", slog.String("path", path))

	snapshot, err := config.Load(path, logger)
	if err != nil {
		logger.Error("loading configuration", slog.String("error", err.Error()))
		return err
	}

	logger.Info("running in one-shot mode")
	watch.NewDispatcher(logger, snapshot.Settings).RunOnce(snapshot)
	return nil
}
