package reconcile

import "errors"

// ErrDrift is an error that occurs in verify mode, when the observed state of
// a directory differs from its desired state.
var ErrDrift = errors.New("differs from desired state")

// ErrMissing is an error that occurs in verify mode, when a directory does
// not exist at all.
var ErrMissing = errors.New("directory does not exist")
