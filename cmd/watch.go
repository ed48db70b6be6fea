package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/adalundhe/janitor/core/config"
	"github.com/adalundhe/janitor/core/watch"
	"github.com/spf13/cobra"
)

// =============================================================================
// Watch Command
// =============================================================================

// watchCmd is the explicit spelling of the default mode.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch configured paths and route new entries (default)",
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

// runWatch loads the configuration, builds the supervisor and runs it until
// the process is interrupted. Failures before the loop starts are fatal.
func runWatch(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	path := resolveConfigPath()
	logger.Info("using config", slog.String("path", path))

	snapshot, err := config.Load(path, logger)
	if err != nil {
		logger.Error("loading configuration", slog.String("error", err.Error()))
		return err
	}
	logger.Info("loaded initial configuration",
		slog.Int("paths", len(snapshot.Specs)),
		slog.Int("buckets", len(snapshot.Buckets)))

	supervisor, err := watch.NewSupervisor(path, snapshot, logger)
	if err != nil {
		logger.Error("setting up watch sources", slog.String("error", err.Error()))
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return supervisor.Run(ctx)
}
