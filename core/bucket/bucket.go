// Package bucket implements the routing rules of the janitor daemon. A
// bucket bundles the filters that decide whether a path belongs to it, a
// destination directory, a priority used to break contention between
// buckets, and the action to perform on files placed into it.
package bucket

import (
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Action
// =============================================================================

// Action is what a bucket does with an entry routed into it.
type Action int

const (
	// ActionMove relocates the entry into the bucket destination.
	ActionMove Action = iota

	// ActionDelete removes the entry. The destination is not used.
	ActionDelete

	// ActionCopy duplicates the entry into the bucket destination.
	ActionCopy
)

// String returns a human-readable name for the action.
func (a Action) String() string {
	switch a {
	case ActionMove:
		return "move"
	case ActionDelete:
		return "delete"
	case ActionCopy:
		return "copy"
	default:
		return "unknown"
	}
}

// UnmarshalYAML decodes an action from its config spelling. An absent field
// decodes to the zero value, ActionMove.
func (a *Action) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	switch raw {
	case "move":
		*a = ActionMove
	case "delete":
		*a = ActionDelete
	case "copy":
		*a = ActionCopy
	default:
		return fmt.Errorf("unknown action %q", raw)
	}
	return nil
}

// =============================================================================
// Override
// =============================================================================

// Override is the collision policy applied when the computed destination of
// a move or copy already exists.
type Override int

const (
	// OverrideSkip leaves the filesystem untouched and reports success.
	OverrideSkip Override = iota

	// OverrideRename probes destination+".1", ".2", ... and uses the first
	// free name.
	OverrideRename

	// OverrideOverwrite replaces the existing destination.
	OverrideOverwrite
)

// String returns a human-readable name for the override policy.
func (o Override) String() string {
	switch o {
	case OverrideSkip:
		return "skip"
	case OverrideRename:
		return "rename"
	case OverrideOverwrite:
		return "overwrite"
	default:
		return "unknown"
	}
}

// UnmarshalYAML decodes an override policy from its config spelling. An
// absent field decodes to the zero value, OverrideSkip.
func (o *Override) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	switch raw {
	case "skip":
		*o = OverrideSkip
	case "rename":
		*o = OverrideRename
	case "overwrite":
		*o = OverrideOverwrite
	default:
		return fmt.Errorf("unknown override action %q", raw)
	}
	return nil
}

// =============================================================================
// Bucket
// =============================================================================

// Bucket is a destination for entries discovered under watched paths.
//
// Extension filters check only the final extension, so a file named
// archive.tar.gz is matched by the filter "gz" but not by "tar". Name
// filters are regular expressions tested against the final path segment;
// they are consulted only when no extension filter matched.
type Bucket struct {
	Name             string   `yaml:"name"`
	Destination      string   `yaml:"destination"`
	ExtensionFilters []string `yaml:"extension_filters"`
	NameFilters      []string `yaml:"name_filters"`
	Priority         uint     `yaml:"priority"`
	Action           Action   `yaml:"action"`
	Override         Override `yaml:"override_action"`

	// regexes is the compiled form of NameFilters, built once by Compile
	// when a configuration snapshot is activated.
	regexes []*regexp.Regexp
}

// Compile builds the regular-expression cache for the name filters. It must
// be called before Fits; a bucket is immutable once compiled and is rebuilt
// wholesale on configuration reload.
func (b *Bucket) Compile() error {
	b.regexes = make([]*regexp.Regexp, 0, len(b.NameFilters))
	for _, filter := range b.NameFilters {
		re, err := regexp.Compile(filter)
		if err != nil {
			return fmt.Errorf("bucket %q: compiling name filter %q: %w", b.Name, filter, err)
		}
		b.regexes = append(b.regexes, re)
	}
	return nil
}

// Fits reports whether the entry at path belongs to this bucket.
//
// The final extension is checked first and short-circuits: if it equals one
// of the extension filters, the name filters are not evaluated. A name that
// is not valid UTF-8 never matches; classification degrades instead of
// failing the dispatch.
func (b *Bucket) Fits(path string) bool {
	name := filepath.Base(path)
	if !utf8.ValidString(name) {
		return false
	}

	if ext := filepath.Ext(name); ext != "" {
		if slices.Contains(b.ExtensionFilters, ext[1:]) {
			return true
		}
	}

	for _, re := range b.regexes {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// =============================================================================
// Selection
// =============================================================================

// less orders buckets by priority ascending, then name ascending.
func less(a, b *Bucket) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	return a.Name < b.Name
}

// Select picks the winning bucket among candidates: the maximum under the
// (priority, name) order. The highest priority wins; among equal priorities
// the lexicographically greatest name wins. Returns nil when candidates is
// empty.
func Select(candidates []*Bucket) *Bucket {
	var winner *Bucket
	for _, candidate := range candidates {
		if winner == nil || less(winner, candidate) {
			winner = candidate
		}
	}
	return winner
}
