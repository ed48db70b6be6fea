package bucket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newBucket builds a compiled bucket for matcher tests.
func newBucket(t *testing.T, extensions, names []string) *Bucket {
	t.Helper()
	b := &Bucket{
		Name:             "test",
		Destination:      t.TempDir(),
		ExtensionFilters: extensions,
		NameFilters:      names,
	}
	require.NoError(t, b.Compile())
	return b
}

func TestFitsChecksOnlyFinalExtension(t *testing.T) {
	gz := newBucket(t, []string{"gz"}, nil)
	tar := newBucket(t, []string{"tar"}, nil)

	assert.True(t, gz.Fits("/downloads/archive.tar.gz"))
	assert.False(t, tar.Fits("/downloads/archive.tar.gz"))
}

func TestFitsNameFiltersOnlyWhenExtensionMisses(t *testing.T) {
	b := newBucket(t, []string{"txt"}, []string{"data"})

	assert.True(t, b.Fits("/in/data.txt"), "extension match")
	assert.True(t, b.Fits("/in/data.pdf"), "name match when extension misses")
	assert.False(t, b.Fits("/in/other.pdf"))
}

func TestFitsNameFilterIsPartialMatch(t *testing.T) {
	b := newBucket(t, nil, []string{"port"})

	assert.True(t, b.Fits("/in/report.bin"))
	assert.True(t, b.Fits("/in/portfolio"))
	assert.False(t, b.Fits("/in/notes.bin"))
}

func TestFitsEntryWithoutExtension(t *testing.T) {
	b := newBucket(t, []string{"txt"}, []string{"^READ"})

	assert.True(t, b.Fits("/in/README"))
	assert.False(t, b.Fits("/in/LICENSE"))
}

func TestFitsUndecodableNameNeverMatches(t *testing.T) {
	b := newBucket(t, []string{"txt"}, []string{".*"})

	assert.False(t, b.Fits("/in/bad\xff\xfename.txt"))
}

func TestFitsUncompiledNameFilters(t *testing.T) {
	// A bucket whose regex cache was never built still matches by
	// extension but never by name.
	b := &Bucket{ExtensionFilters: []string{"log"}, NameFilters: []string{".*"}}

	assert.True(t, b.Fits("/in/daemon.log"))
	assert.False(t, b.Fits("/in/daemon.out"))
}

func TestCompileRejectsInvalidFilter(t *testing.T) {
	b := &Bucket{Name: "broken", NameFilters: []string{"("}}
	assert.Error(t, b.Compile())
}

func TestSelectEmpty(t *testing.T) {
	assert.Nil(t, Select(nil))
	assert.Nil(t, Select([]*Bucket{}))
}

func TestSelectHighestPriorityWins(t *testing.T) {
	low := &Bucket{Name: "low", Priority: 1}
	high := &Bucket{Name: "high", Priority: 5}

	assert.Same(t, high, Select([]*Bucket{low, high}))
	assert.Same(t, high, Select([]*Bucket{high, low}))
}

func TestSelectTieBreakGreatestName(t *testing.T) {
	// Among equal priorities the lexicographically greatest name wins.
	alpha := &Bucket{Name: "alpha", Priority: 3}
	beta := &Bucket{Name: "beta", Priority: 3}

	assert.Same(t, beta, Select([]*Bucket{alpha, beta}))
	assert.Same(t, beta, Select([]*Bucket{beta, alpha}))
}

func TestActionAndOverrideStrings(t *testing.T) {
	assert.Equal(t, "move", ActionMove.String())
	assert.Equal(t, "delete", ActionDelete.String())
	assert.Equal(t, "copy", ActionCopy.String())
	assert.Equal(t, "skip", OverrideSkip.String())
	assert.Equal(t, "rename", OverrideRename.String())
	assert.Equal(t, "overwrite", OverrideOverwrite.String())
}
