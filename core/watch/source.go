package watch

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adalundhe/janitor/core/config"
	"github.com/fsnotify/fsnotify"
)

// sourceBuffer is the per-source event channel capacity. Arrivals are
// expected to be sparse; a small buffer absorbs editor save bursts.
const sourceBuffer = 64

// =============================================================================
// Source
// =============================================================================

// Source is one filesystem event source: an fsnotify watcher on a single
// watched path (or on the configuration file itself), converted to the
// package's Event type. Closing the source closes its Events channel, which
// is how the supervisor learns the sender side is gone.
type Source struct {
	path      string
	recursive bool
	watcher   *fsnotify.Watcher
	events    chan Event
	log       *slog.Logger
	closeOnce sync.Once
}

// NewSource subscribes to the directory of spec. In recursive mode every
// existing subdirectory is registered too, and directories created later are
// added as they appear.
func NewSource(spec *config.WatchSpec, logger *slog.Logger) (*Source, error) {
	return newSource(spec.Path, spec.RecursiveMode == config.Recursive, logger)
}

// NewFileSource subscribes to a single file, non-recursively. Used for the
// configuration document.
func NewFileSource(path string, logger *slog.Logger) (*Source, error) {
	return newSource(path, false, logger)
}

func newSource(path string, recursive bool, logger *slog.Logger) (*Source, error) {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	s := &Source{
		path:      path,
		recursive: recursive,
		watcher:   watcher,
		events:    make(chan Event, sourceBuffer),
		log:       logger,
	}

	if err := s.register(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", path, err)
	}

	go s.run()
	return s, nil
}

// register adds path to the watch, descending into subdirectories when the
// source is recursive.
func (s *Source) register(path string) error {
	if !s.recursive {
		return s.watcher.Add(path)
	}
	return filepath.WalkDir(path, func(sub string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return s.watcher.Add(sub)
		}
		return nil
	})
}

// Events is the stream of converted filesystem events. The channel is closed
// when the source is closed or its backend fails.
func (s *Source) Events() <-chan Event {
	return s.events
}

// Path returns the watched path.
func (s *Source) Path() string {
	return s.path
}

// Close releases the underlying watcher. Safe to call more than once.
func (s *Source) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.watcher.Close()
	})
	return err
}

// run converts fsnotify traffic until the backend channels close.
func (s *Source) run() {
	defer close(s.events)

	for {
		select {
		case raw, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleRaw(raw)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				// The kernel queue overflowed and events were lost. Surface
				// it as a rescan indicator rather than a change.
				s.events <- Event{Path: s.path, Rescan: true, Time: time.Now()}
				continue
			}
			s.log.Error("watch backend error",
				slog.String("path", s.path),
				slog.String("error", err.Error()))
		}
	}
}

// handleRaw converts one fsnotify event, dropping kinds the dispatcher has
// no use for.
func (s *Source) handleRaw(raw fsnotify.Event) {
	switch {
	case raw.Op.Has(fsnotify.Create):
		info, err := os.Lstat(raw.Name)
		if err != nil {
			// The entry vanished between the notification and the stat.
			s.log.Debug("created entry disappeared before stat",
				slog.String("path", raw.Name))
			return
		}
		isDir := info.IsDir()
		if isDir && s.recursive {
			if err := s.watcher.Add(raw.Name); err != nil {
				s.log.Warn("adding created directory to recursive watch",
					slog.String("path", raw.Name),
					slog.String("error", err.Error()))
			}
		}
		s.events <- Event{Path: raw.Name, Kind: KindCreate, IsDir: isDir, Time: time.Now()}
	case raw.Op.Has(fsnotify.Write):
		s.events <- Event{Path: raw.Name, Kind: KindModify, Time: time.Now()}
	}
}
