// Package filestore reads and atomically replaces the locbox store file.
//
// Write goes through a sibling temporary file that is fully synced before it
// is renamed over the destination, so the destination always holds either the
// previous or the new complete content. There is no cross-process locking;
// concurrent writers race and the last rename wins.
package filestore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileMode is the permission of written store files (owner read/write only).
const FileMode = 0600

// ErrNotFound indicates the store file does not exist.
var ErrNotFound = errors.New("filestore: file not found")

// syncFile is replaced in tests to simulate a crash before rename.
var syncFile = func(f *os.File) error { return f.Sync() }

// Read returns the content of path, or an error wrapping ErrNotFound.
func Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("filestore: failed to read %s: %w", path, err)
	}
	return data, nil
}

// Write atomically replaces path with data.
//
// On error the previous content of path is untouched and the temporary file
// is removed.
func Write(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("filestore: failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err = tmp.Chmod(FileMode); err != nil {
		return fmt.Errorf("filestore: failed to set permissions: %w", err)
	}
	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("filestore: failed to write temp file: %w", err)
	}
	if err = syncFile(tmp); err != nil {
		return fmt.Errorf("filestore: failed to sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("filestore: failed to close temp file: %w", err)
	}

	// Atomic rename; the only mutation of path
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("filestore: failed to replace %s: %w", path, err)
	}

	// The new content is in place; a failed directory sync only weakens
	// durability of the rename itself.
	_ = syncDir(dir)
	return nil
}

// InsecurePermissions reports the permission bits of path when it is
// readable or writable by group or others.
func InsecurePermissions(path string) (fs.FileMode, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, false
	}
	perm := info.Mode().Perm()
	return perm, perm&0077 != 0
}
