package bucket

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/adalundhe/janitor/core/fsops"
)

// =============================================================================
// Executor
// =============================================================================

// Executor applies a bucket's action to a path under the bucket's override
// policy. Failures are reported to the caller and never corrupt in-memory
// state; the dispatch loop is expected to log them and continue.
type Executor struct {
	log *slog.Logger
}

// NewExecutor creates an executor that logs decisions through logger.
func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{log: logger}
}

// Apply performs b's action on source. isFile distinguishes plain files from
// directories for the copy primitive; delete and move handle both uniformly.
func (e *Executor) Apply(b *Bucket, source string, isFile bool) error {
	if b.Action == ActionDelete {
		if err := fsops.Remove(source); err != nil {
			return fmt.Errorf("deleting %s: %w", source, err)
		}
		e.log.Info("deleted entry",
			slog.String("bucket", b.Name),
			slog.String("source", source))
		return nil
	}

	destination := filepath.Join(b.Destination, filepath.Base(source))

	// The override policy is evaluated before the action.
	switch b.Override {
	case OverrideSkip:
		if fsops.Exists(destination) {
			e.log.Info("destination exists, skipping",
				slog.String("bucket", b.Name),
				slog.String("source", source),
				slog.String("destination", destination))
			return nil
		}
	case OverrideRename:
		if fsops.Exists(destination) {
			renamed := probeFree(destination)
			e.log.Info("destination exists, renaming",
				slog.String("bucket", b.Name),
				slog.String("source", source),
				slog.String("destination", renamed))
			destination = renamed
		}
	case OverrideOverwrite:
		// os.Rename replaces files but not non-empty directories, so an
		// existing destination is removed explicitly. Overwrite must never
		// silently no-op.
		if fsops.Exists(destination) {
			if err := fsops.Remove(destination); err != nil {
				return fmt.Errorf("overwriting %s: %w", destination, err)
			}
			e.log.Info("destination exists, overwriting",
				slog.String("bucket", b.Name),
				slog.String("destination", destination))
		}
	}

	switch b.Action {
	case ActionMove:
		if err := fsops.Move(source, destination); err != nil {
			return fmt.Errorf("moving %s to %s: %w", source, destination, err)
		}
	case ActionCopy:
		var err error
		if isFile {
			err = fsops.CopyFile(source, destination)
		} else {
			err = fsops.CopyDir(source, destination)
		}
		if err != nil {
			return fmt.Errorf("copying %s to %s: %w", source, destination, err)
		}
	}

	e.log.Info("applied action",
		slog.String("bucket", b.Name),
		slog.String("action", b.Action.String()),
		slog.String("source", source),
		slog.String("destination", destination))
	return nil
}

// probeFree returns the first of destination+".1", ".2", ... that does not
// exist yet.
func probeFree(destination string) string {
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s.%d", destination, i)
		if !fsops.Exists(candidate) {
			return candidate
		}
	}
}
