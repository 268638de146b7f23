package layout

import "errors"

var (
	// ErrInvalidRule is an error that occurs when a layout rule cannot be split
	// into arguments or is empty.
	ErrInvalidRule = errors.New("invalid layout rule")

	// ErrInvalidLayout is an error that occurs when a layout description cannot
	// be interpreted.
	ErrInvalidLayout = errors.New("invalid layout description")
)
