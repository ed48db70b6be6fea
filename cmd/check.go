package cmd

import (
	"fmt"
	"log/slog"

	"github.com/adalundhe/janitor/core/config"
	"github.com/spf13/cobra"
)

// =============================================================================
// Check Command
// =============================================================================

// checkCmd validates the configuration document without touching the
// filesystem and exits non-zero on failure.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration document",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	path := resolveConfigPath()

	snapshot, err := config.Load(path, logger)
	if err != nil {
		logger.Error("configuration invalid", slog.String("error", err.Error()))
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d watch paths, %d buckets)\n",
		path, len(snapshot.Specs), len(snapshot.Buckets))
	return nil
}
