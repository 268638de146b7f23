package validation

import "errors"

var (
	// ErrInvalidName occurs when a directory name contains characters other
	// than letters, digits, underscores and dashes.
	ErrInvalidName = errors.New("name has invalid characters")

	// ErrPathRelative occurs when a path is provided as relative rather than
	// absolute.
	ErrPathRelative = errors.New("path is relative")

	// ErrPathNotClean occurs when a path is not in its lexically shortest
	// form.
	ErrPathNotClean = errors.New("path is not clean")

	// ErrPathDuplicate occurs when more than one node resolves to a path.
	ErrPathDuplicate = errors.New("path is not unique")

	// ErrNotDescendant occurs when a path is not directly below the path of
	// the parent node.
	ErrNotDescendant = errors.New("path is not a descendant of its parent")

	// ErrParentDropped occurs when the parent node of a node was dropped.
	ErrParentDropped = errors.New("parent node was dropped")
)
