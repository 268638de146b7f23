package filesystem

import "errors"

// ErrNotDirectory is an error that occurs when a path exists, but is not a
// directory.
var ErrNotDirectory = errors.New("path exists but is not a directory")
