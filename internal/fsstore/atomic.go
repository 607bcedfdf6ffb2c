// Package fsstore keeps small state files on disk: whole-file atomic
// replacement, msgpack encoding and an advisory lock around
// read-modify-write cycles.
package fsstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func cleanPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	return filepath.Clean(path), nil
}

func EnsureDir(path string, perm os.FileMode) error {
	dir, err := cleanPath(path)
	if err != nil {
		return err
	}
	if perm == 0 {
		perm = defaultDirPerm
	}
	if err := os.MkdirAll(dir, perm); err != nil {
		return fmt.Errorf("fsstore ensure dir %s: %w", dir, err)
	}
	return nil
}

// WriteFileAtomic replaces path with content. Readers see either the old or
// the new file, never a partial one.
func WriteFileAtomic(path string, content []byte, opts FileOptions) error {
	target, err := cleanPath(path)
	if err != nil {
		return err
	}
	opts = opts.normalized()

	dir := filepath.Dir(target)
	if err := EnsureDir(dir, opts.DirPerm); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(target)+".tmp.*")
	if err != nil {
		return fmt.Errorf("%w: create temp for %s: %v", ErrAtomicWriteFailed, target, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	steps := []struct {
		name string
		run  func() error
	}{
		{"write", func() error { _, err := tmp.Write(content); return err }},
		{"sync", tmp.Sync},
		{"chmod", func() error { return tmp.Chmod(opts.FilePerm) }},
		{"close", tmp.Close},
		{"rename", func() error { return os.Rename(tmpPath, target) }},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			return fmt.Errorf("%w: %s temp for %s: %v", ErrAtomicWriteFailed, step.name, target, err)
		}
	}

	// Best effort; the rename already happened.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
