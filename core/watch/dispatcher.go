package watch

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/adalundhe/janitor/core/bucket"
	"github.com/adalundhe/janitor/core/config"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// dedupeCacheSize bounds the dedupe window cache. Entries also expire with
// the configured window, so the bound only matters under pathological event
// rates.
const dedupeCacheSize = 1024

// =============================================================================
// Dispatcher
// =============================================================================

// Dispatcher drives one event end to end: resolve the eligible buckets of
// the owning watch spec, filter them through the matcher, pick the winner
// and apply its action. Failures are logged and contained to the single
// event; dispatch of subsequent events always continues.
type Dispatcher struct {
	log    *slog.Logger
	exec   *bucket.Executor
	dedupe *expirable.LRU[string, time.Time]
}

// NewDispatcher creates a dispatcher. A non-zero dedupe window in settings
// suppresses repeat dispatches of the same path inside the window.
func NewDispatcher(logger *slog.Logger, settings config.Settings) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		log:  logger,
		exec: bucket.NewExecutor(logger),
	}
	if window := time.Duration(settings.DedupeWindow); window > 0 {
		d.dedupe = expirable.NewLRU[string, time.Time](dedupeCacheSize, nil, window)
	}
	return d
}

// HandleEvent dispatches one live notification against the active snapshot.
// Only creations are acted on; rescan indicators and every other kind are
// no-ops.
func (d *Dispatcher) HandleEvent(snapshot *config.Snapshot, spec *config.WatchSpec, ev Event) {
	if ev.Rescan {
		d.log.Debug("rescan notification, ignoring", slog.String("watch", spec.Path))
		return
	}
	if ev.Kind != KindCreate {
		return
	}
	d.dispatch(snapshot, spec, ev.Path, !ev.IsDir)
}

// dispatch runs the match, select, apply pipeline for a single path.
func (d *Dispatcher) dispatch(snapshot *config.Snapshot, spec *config.WatchSpec, path string, isFile bool) {
	log := d.log.With(
		slog.String("event_id", uuid.NewString()),
		slog.String("path", path))

	if spec.Ignored(path) {
		log.Debug("entry matches ignore pattern")
		return
	}

	if d.dedupe != nil {
		if _, seen := d.dedupe.Get(path); seen {
			log.Debug("duplicate event inside dedupe window")
			return
		}
		d.dedupe.Add(path, time.Now())
	}

	possible := snapshot.BucketsFor(spec.BucketNames)
	fitting := make([]*bucket.Bucket, 0, len(possible))
	for _, b := range possible {
		if b.Fits(path) {
			fitting = append(fitting, b)
		}
	}

	winner := bucket.Select(fitting)
	if winner == nil {
		log.Debug("no fitting bucket")
		return
	}

	if err := d.exec.Apply(winner, path, isFile); err != nil {
		log.Error("applying bucket action",
			slog.String("bucket", winner.Name),
			slog.String("error", err.Error()))
	}
}

// RunOnce walks every watch spec of the snapshot once and dispatches all
// pre-existing entries through the same pipeline live mode uses: for each
// spec all files first, then all directories. Walk failures are logged and
// contained to the affected spec.
func (d *Dispatcher) RunOnce(snapshot *config.Snapshot) {
	for _, spec := range snapshot.Specs {
		files, dirs, err := collect(spec)
		if err != nil {
			d.log.Error("walking watch path",
				slog.String("watch", spec.Path),
				slog.String("error", err.Error()))
			continue
		}
		for _, path := range files {
			d.dispatch(snapshot, spec, path, true)
		}
		for _, path := range dirs {
			d.dispatch(snapshot, spec, path, false)
		}
	}
}

// collect gathers dispatch candidates under spec's root with an explicit
// stack. Recursive specs descend into subdirectories, so only files become
// candidates; non-recursive specs record immediate subdirectories as
// directory candidates without entering them.
func collect(spec *config.WatchSpec) (files, dirs []string, err error) {
	recursive := spec.RecursiveMode == config.Recursive
	stack := []string{spec.Path}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		info, err := os.Lstat(current)
		if err != nil {
			return nil, nil, err
		}
		if !info.IsDir() {
			files = append(files, current)
			continue
		}

		entries, err := os.ReadDir(current)
		if err != nil {
			return nil, nil, err
		}
		for _, entry := range entries {
			name := entry.Name()
			if name == "." || name == ".." {
				continue
			}
			child := filepath.Join(current, name)
			switch {
			case recursive:
				stack = append(stack, child)
			case entry.IsDir():
				dirs = append(dirs, child)
			default:
				files = append(files, child)
			}
		}
	}
	return files, dirs, nil
}
