package fsops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	assert.True(t, Exists(path))
	assert.True(t, Exists(dir))
	assert.False(t, Exists(filepath.Join(dir, "missing")))
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "a")
	destination := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(source, []byte("payload"), 0o644))

	require.NoError(t, Move(source, destination))

	assert.NoFileExists(t, source)
	data, err := os.ReadFile(destination)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestCopyFilePreservesContentAndMode(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "a")
	destination := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(source, []byte("payload"), 0o600))

	require.NoError(t, CopyFile(source, destination))

	data, err := os.ReadFile(destination)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	info, err := os.Stat(destination)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	assert.FileExists(t, source)
}

func TestCopyDirTree(t *testing.T) {
	source := t.TempDir()
	destination := filepath.Join(t.TempDir(), "copy")
	require.NoError(t, os.MkdirAll(filepath.Join(source, "nested", "deep"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(source, "top.txt"), []byte("1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(source, "nested", "deep", "leaf.txt"), []byte("2"), 0o644))

	require.NoError(t, CopyDir(source, destination))

	assert.FileExists(t, filepath.Join(destination, "top.txt"))
	assert.FileExists(t, filepath.Join(destination, "nested", "deep", "leaf.txt"))
	assert.DirExists(t, filepath.Join(source, "nested"), "source tree must be untouched")
}

func TestRemoveMissingIsNotAnError(t *testing.T) {
	assert.NoError(t, Remove(filepath.Join(t.TempDir(), "missing")))
}

func TestRemoveDirectoryRecursive(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.MkdirAll(filepath.Join(sub, "nested"), 0o755))

	require.NoError(t, Remove(sub))
	assert.NoDirExists(t, sub)
}

func TestMoveMissingSource(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, Move(filepath.Join(dir, "missing"), filepath.Join(dir, "dest")))
}
