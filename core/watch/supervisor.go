package watch

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/adalundhe/janitor/core/config"
)

// DefaultWaitTimeout bounds the multiplexed wait so the config-file source
// is revisited even when no watched path is producing events.
const DefaultWaitTimeout = time.Second

// =============================================================================
// slot
// =============================================================================

// slot pairs one event source with the watch spec it was created from. Dead
// slots stay in the wait set with a nil channel (never ready) until the
// whole set is rebuilt at the next successful reload.
type slot struct {
	spec   *config.WatchSpec
	source *Source
	dead   bool
}

// =============================================================================
// Supervisor
// =============================================================================

// Supervisor owns the set of active event sources, one per watch spec plus
// one for the configuration file, and multiplexes them on a single thread of
// control. One event is processed end to end before the next is considered.
//
// A modify notification on the config file triggers a reload: the document
// is parsed into a candidate snapshot and fresh sources are created for it.
// Any failure aborts the reload and leaves the previous snapshot and slots
// fully intact; on success the whole set is replaced atomically.
type Supervisor struct {
	log          *slog.Logger
	configPath   string
	snapshot     *config.Snapshot
	dispatcher   *Dispatcher
	slots        []*slot
	cases        []reflect.SelectCase
	configSource *Source
	configEvents <-chan Event
	waitTimeout  time.Duration
}

// NewSupervisor creates the supervisor for an already-loaded snapshot and
// subscribes to every watch spec and to the configuration file. Setup
// failures here are fatal to the caller.
func NewSupervisor(configPath string, snapshot *config.Snapshot, logger *slog.Logger) (*Supervisor, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Supervisor{
		log:         logger,
		configPath:  config.ExpandHome(configPath),
		waitTimeout: DefaultWaitTimeout,
	}

	slots, err := s.buildSlots(snapshot)
	if err != nil {
		return nil, err
	}

	configSource, err := NewFileSource(s.configPath, logger)
	if err != nil {
		closeSlots(slots)
		return nil, fmt.Errorf("watching config file: %w", err)
	}

	s.adopt(snapshot, slots, configSource)
	return s, nil
}

// Snapshot returns the currently active configuration snapshot.
func (s *Supervisor) Snapshot() *config.Snapshot {
	return s.snapshot
}

// Run multiplexes all sources until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) error {
	s.log.Info("watching",
		slog.Int("paths", len(s.slots)),
		slog.String("config", s.configPath))
	defer s.teardown()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("shutting down")
			return nil
		default:
		}

		s.checkConfig()
		s.wait(ctx)
	}
}

// buildSlots creates one source per watch spec. On failure every source
// created so far is closed and no slot escapes.
func (s *Supervisor) buildSlots(snapshot *config.Snapshot) ([]*slot, error) {
	slots := make([]*slot, 0, len(snapshot.Specs))
	for _, spec := range snapshot.Specs {
		source, err := NewSource(spec, s.log)
		if err != nil {
			closeSlots(slots)
			return nil, fmt.Errorf("watching %s: %w", spec.Path, err)
		}
		slots = append(slots, &slot{spec: spec, source: source})
	}
	return slots, nil
}

// adopt installs a snapshot with its slots and config source as the active
// set and rebuilds the wait cases from scratch. The swap is the only place
// the active snapshot changes.
func (s *Supervisor) adopt(snapshot *config.Snapshot, slots []*slot, configSource *Source) {
	s.snapshot = snapshot
	s.slots = slots
	s.configSource = configSource
	s.configEvents = configSource.Events()
	s.dispatcher = NewDispatcher(s.log, snapshot.Settings)

	s.cases = make([]reflect.SelectCase, len(slots))
	for i, sl := range slots {
		s.cases[i] = reflect.SelectCase{
			Dir:  reflect.SelectRecv,
			Chan: reflect.ValueOf(sl.source.Events()),
		}
	}
}

// checkConfig polls the config-file source without blocking. Only a modify
// notification triggers a reload; a rescan indicator is a no-op.
func (s *Supervisor) checkConfig() {
	select {
	case ev, ok := <-s.configEvents:
		if !ok {
			s.log.Warn("config watch source disconnected, live reload disabled until restart")
			s.configEvents = nil
			return
		}
		if ev.Rescan {
			s.log.Debug("config watch rescan, ignoring")
			return
		}
		if ev.Kind != KindModify {
			return
		}
		s.log.Warn("config file modified, reloading", slog.String("path", s.configPath))
		s.reload()
	default:
	}
}

// reload attempts to replace the active snapshot. The candidate set is built
// completely before the previous one is torn down, so a failure at any step
// leaves the active configuration untouched. There is no automatic retry; a
// failed reload waits for the next save of the document.
func (s *Supervisor) reload() {
	snapshot, err := config.Load(s.configPath, s.log)
	if err != nil {
		s.log.Error("config reload failed, keeping previous configuration",
			slog.String("error", err.Error()))
		s.log.Warn("fix the config file and save it again to apply the changes")
		return
	}

	slots, err := s.buildSlots(snapshot)
	if err != nil {
		s.log.Error("watch setup failed, keeping previous configuration",
			slog.String("error", err.Error()))
		return
	}

	// Recreate the config source too: editors that replace the file by
	// rename leave the old subscription pointing at a dead inode.
	configSource, err := NewFileSource(s.configPath, s.log)
	if err != nil {
		closeSlots(slots)
		s.log.Error("re-watching config file failed, keeping previous configuration",
			slog.String("error", err.Error()))
		return
	}

	s.teardown()
	s.adopt(snapshot, slots, configSource)
	s.log.Info("configuration reloaded",
		slog.Int("paths", len(slots)),
		slog.Int("buckets", len(snapshot.Buckets)))
}

// wait blocks on every active slot at once, bounded by the wait timeout, and
// dispatches the single ready event if there is one.
func (s *Supervisor) wait(ctx context.Context) {
	n := len(s.cases)
	scratch := make([]reflect.SelectCase, 0, n+2)
	scratch = append(scratch, s.cases...)
	scratch = append(scratch,
		reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(time.After(s.waitTimeout))},
		reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ctx.Done())},
	)

	idx, value, ok := reflect.Select(scratch)
	if idx >= n {
		// Timeout or cancellation; the run loop takes it from here.
		return
	}

	sl := s.slots[idx]
	if sl.dead {
		return
	}
	if !ok {
		// Sender side is gone. Mark the slot dead and stop waiting on it,
		// but do not shrink the set until the next full reload.
		sl.dead = true
		s.cases[idx].Chan = reflect.ValueOf((<-chan Event)(nil))
		s.log.Warn("watch source disconnected, ignoring its slot until next reload",
			slog.String("path", sl.spec.Path))
		return
	}

	s.dispatcher.HandleEvent(s.snapshot, sl.spec, value.Interface().(Event))
}

// teardown closes the currently adopted sources.
func (s *Supervisor) teardown() {
	closeSlots(s.slots)
	if s.configSource != nil {
		s.configSource.Close()
	}
}

func closeSlots(slots []*slot) {
	for _, sl := range slots {
		sl.source.Close()
	}
}
