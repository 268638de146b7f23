package identity

import "errors"

// ErrNotFound is an error that occurs when a name is unknown to the directory
// service.
var ErrNotFound = errors.New("name not found in directory service")
