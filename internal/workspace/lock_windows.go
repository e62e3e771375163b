//go:build windows

package workspace

import (
	"errors"
	"io/fs"
	"os"
)

// lockHeld probes the Eclipse workspace lock file by opening it for writing.
// Eclipse holds the file open with a mandatory lock on Windows, so a sharing
// violation means a running instance owns the workspace.
func lockHeld(path string) (bool, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err == nil {
		f.Close()
		return false, nil
	}
	if errors.Is(err, fs.ErrPermission) {
		return true, nil
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		// Sharing violations surface as generic path errors.
		return true, nil
	}
	return false, err
}
