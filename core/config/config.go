// Package config loads and validates the janitor configuration document and
// turns it into an immutable Snapshot. A snapshot is produced in full or not
// at all: a document that fails to parse or validate yields an error and no
// partial state.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adalundhe/janitor/core/bucket"
	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

// ConfigPaths are the locations probed, in order, when no explicit config
// path is given.
var ConfigPaths = []string{
	"~/.config/janitor/config.yaml",
	"~/.janitor.yaml",
	"./janitor.yaml",
}

var (
	// ErrNoWatchPaths indicates the document declares nothing to watch.
	ErrNoWatchPaths = errors.New("no watch paths configured")
)

// =============================================================================
// RecursiveMode
// =============================================================================

// RecursiveMode selects whether a watch spec covers only its immediate
// directory or the entire subtree.
type RecursiveMode int

const (
	// NonRecursive checks only the immediate directory. This is the default.
	NonRecursive RecursiveMode = iota

	// Recursive checks the entire subtree.
	Recursive
)

// String returns the config spelling of the mode.
func (m RecursiveMode) String() string {
	if m == Recursive {
		return "recursive"
	}
	return "non-recursive"
}

// UnmarshalYAML decodes a recursive mode from its config spelling.
func (m *RecursiveMode) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	switch raw {
	case "recursive":
		*m = Recursive
	case "non-recursive":
		*m = NonRecursive
	default:
		return fmt.Errorf("unknown recursive mode %q", raw)
	}
	return nil
}

// =============================================================================
// Duration
// =============================================================================

// Duration decodes a Go duration string ("500ms", "2s") from YAML.
type Duration time.Duration

// UnmarshalYAML decodes the duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// =============================================================================
// WatchSpec
// =============================================================================

// WatchSpec declares one directory to watch, how deep to watch it, and which
// buckets are eligible for entries discovered under it.
type WatchSpec struct {
	Path          string        `yaml:"path"`
	RecursiveMode RecursiveMode `yaml:"recursive_mode"`
	BucketNames   []string      `yaml:"bucket_names"`

	// Ignore holds glob patterns matched against entry names; matching
	// entries are never dispatched.
	Ignore []string `yaml:"ignore"`

	ignoreGlobs []glob.Glob
}

// compile builds the ignore-pattern cache.
func (w *WatchSpec) compile() error {
	w.ignoreGlobs = make([]glob.Glob, 0, len(w.Ignore))
	for _, pattern := range w.Ignore {
		g, err := glob.Compile(pattern)
		if err != nil {
			return fmt.Errorf("watch %s: compiling ignore pattern %q: %w", w.Path, pattern, err)
		}
		w.ignoreGlobs = append(w.ignoreGlobs, g)
	}
	return nil
}

// Ignored reports whether the entry at path matches one of the spec's ignore
// patterns.
func (w *WatchSpec) Ignored(path string) bool {
	name := filepath.Base(path)
	for _, g := range w.ignoreGlobs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// =============================================================================
// Settings
// =============================================================================

// Settings holds daemon-wide tunables.
type Settings struct {
	// DedupeWindow suppresses repeat dispatches of the same path within the
	// window. Zero disables deduplication.
	DedupeWindow Duration `yaml:"dedupe_window"`
}

// =============================================================================
// Document and Snapshot
// =============================================================================

// Document is the raw shape of the configuration file.
type Document struct {
	Watch    []*WatchSpec     `yaml:"watch"`
	Buckets  []*bucket.Bucket `yaml:"bucket"`
	Settings Settings         `yaml:"settings"`
}

// Snapshot is the complete, immutable configuration active at a point in
// time. Exactly one snapshot is active for dispatch; it is replaced only by
// a whole new snapshot on a successful reload.
type Snapshot struct {
	Specs    []*WatchSpec
	Buckets  []*bucket.Bucket
	Settings Settings

	byName map[string]*bucket.Bucket
}

// BucketsFor resolves the named buckets of a watch spec against the
// snapshot. Unknown names are silently skipped; they were warned about at
// load time.
func (s *Snapshot) BucketsFor(names []string) []*bucket.Bucket {
	resolved := make([]*bucket.Bucket, 0, len(names))
	for _, name := range names {
		if b, ok := s.byName[name]; ok {
			resolved = append(resolved, b)
		}
	}
	return resolved
}

// Load reads, parses and activates the configuration document at path.
func Load(path string, logger *slog.Logger) (*Snapshot, error) {
	data, err := os.ReadFile(ExpandHome(path))
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data, logger)
}

// Parse decodes data into a Snapshot and activates it: destinations and
// watch paths are home-expanded, bucket name filters and ignore patterns are
// compiled once, and the by-name bucket index is built. Any failure discards
// the candidate snapshot entirely.
func Parse(data []byte, logger *slog.Logger) (*Snapshot, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var doc Document
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(doc.Watch) == 0 {
		return nil, ErrNoWatchPaths
	}

	snapshot := &Snapshot{
		Specs:    doc.Watch,
		Buckets:  doc.Buckets,
		Settings: doc.Settings,
		byName:   make(map[string]*bucket.Bucket, len(doc.Buckets)),
	}

	for _, b := range doc.Buckets {
		if b.Name == "" {
			return nil, errors.New("bucket without a name")
		}
		b.Destination = ExpandHome(b.Destination)
		if err := b.Compile(); err != nil {
			return nil, err
		}
		if _, dup := snapshot.byName[b.Name]; dup {
			logger.Warn("duplicate bucket name, last definition wins",
				slog.String("bucket", b.Name))
		}
		snapshot.byName[b.Name] = b
	}

	for _, spec := range doc.Watch {
		if spec.Path == "" {
			return nil, errors.New("watch spec without a path")
		}
		spec.Path = ExpandHome(spec.Path)
		if err := spec.compile(); err != nil {
			return nil, err
		}
		for _, name := range spec.BucketNames {
			if _, ok := snapshot.byName[name]; !ok {
				logger.Warn("watch spec references unknown bucket",
					slog.String("path", spec.Path),
					slog.String("bucket", name))
			}
		}
	}

	return snapshot, nil
}

// DefaultPath returns the first existing entry of ConfigPaths, or the last
// entry when none exists yet.
func DefaultPath() string {
	final := ConfigPaths[len(ConfigPaths)-1]
	for _, candidate := range ConfigPaths {
		if _, err := os.Stat(ExpandHome(candidate)); err == nil {
			return candidate
		}
	}
	return final
}

// ExpandHome resolves a leading "~" against the current user's home
// directory. Paths that do not start with "~" are returned unchanged, as is
// the input when the home directory cannot be determined.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}
