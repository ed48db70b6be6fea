// Package watch provides the event sources, the dispatch pipeline and the
// supervision loop of the janitor daemon.
package watch

import "time"

// =============================================================================
// EventKind
// =============================================================================

// EventKind is the type of filesystem change carried by an Event.
type EventKind int

const (
	// KindCreate indicates a new entry appeared.
	KindCreate EventKind = iota

	// KindModify indicates an existing entry was written to.
	KindModify
)

// String returns a human-readable name for the event kind.
func (k EventKind) String() string {
	switch k {
	case KindCreate:
		return "create"
	case KindModify:
		return "modify"
	default:
		return "unknown"
	}
}

// =============================================================================
// Event
// =============================================================================

// Event is a single filesystem change reported by a Source.
type Event struct {
	// Path is the affected entry.
	Path string

	// Kind is the type of change.
	Kind EventKind

	// IsDir reports whether the created entry is a directory. Only
	// meaningful for KindCreate.
	IsDir bool

	// Rescan indicates the watch backend lost events and restarted its
	// bookkeeping. Consumers treat this as a no-op, not as a change.
	Rescan bool

	// Time is when the event was observed.
	Time time.Time
}
