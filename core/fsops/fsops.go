// Package fsops provides the filesystem primitives used by the action
// executor: move with a cross-device fallback, file and directory copy, and
// recursive removal.
package fsops

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
)

// Exists reports whether path refers to an existing entry. Symlinks count
// as existing even when broken.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// Move relocates source to destination. A plain rename is attempted first;
// when source and destination live on different devices the move falls back
// to copy-then-remove.
func Move(source, destination string) error {
	err := os.Rename(source, destination)
	if err == nil || !isCrossDevice(err) {
		return err
	}

	info, statErr := os.Lstat(source)
	if statErr != nil {
		return statErr
	}
	if info.IsDir() {
		err = CopyDir(source, destination)
	} else {
		err = CopyFile(source, destination)
	}
	if err != nil {
		return err
	}
	return os.RemoveAll(source)
}

// CopyFile duplicates the regular file at source to destination, preserving
// its permission bits. The destination's parent directory must exist.
func CopyFile(source, destination string) error {
	info, err := os.Stat(source)
	if err != nil {
		return err
	}

	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(destination, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying contents: %w", err)
	}
	return out.Close()
}

// CopyDir duplicates the directory tree at source to destination.
func CopyDir(source, destination string) error {
	return filepath.WalkDir(source, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}
		target := filepath.Join(destination, rel)

		if entry.IsDir() {
			info, err := entry.Info()
			if err != nil {
				return err
			}
			return os.MkdirAll(target, info.Mode().Perm())
		}
		return CopyFile(path, target)
	})
}

// Remove deletes path, recursively when it is a directory. Removing a path
// that does not exist is not an error.
func Remove(path string) error {
	return os.RemoveAll(path)
}

// isCrossDevice reports whether err is the EXDEV a rename across filesystem
// boundaries fails with.
func isCrossDevice(err error) bool {
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return false
	}
	return errors.Is(linkErr.Err, syscall.EXDEV)
}
