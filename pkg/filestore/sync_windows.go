//go:build windows

package filestore

// syncDir is a no-op: directories cannot be opened for sync on Windows and
// MoveFileEx already persists the rename.
func syncDir(dir string) error {
	return nil
}
