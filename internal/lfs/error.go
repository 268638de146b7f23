package lfs

import "errors"

// ErrUnexpectedOutput is an error that occurs when the output of a command
// cannot be interpreted.
var ErrUnexpectedOutput = errors.New("unexpected command output")
