package filesystem

import (
	"errors"
	"fmt"
	"io/fs"
)

// IsEmptyFolder is a helper function checking if a path is an empty folder.
func (f *Handler) IsEmptyFolder(path string) (bool, error) {
	entries, err := f.osHandler.ReadDir(path)
	if err != nil {
		return false, fmt.Errorf("(fs-isempty) failed to readdir: %w", err)
	}

	return len(entries) == 0, nil
}

// Exists is a helper function checking if a path already exists. A path that
// exists but is not a directory returns [ErrNotDirectory].
func (f *Handler) Exists(path string) (bool, error) {
	info, err := f.osHandler.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("(fs-exists) failed to stat: %w", err)
	}

	if !info.IsDir() {
		return true, fmt.Errorf("(fs-exists) %w: %s", ErrNotDirectory, path)
	}

	return true, nil
}
