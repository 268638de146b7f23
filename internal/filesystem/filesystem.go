// Package filesystem implements the local filesystem inspection that the
// reconciliation needs beyond the administrative tooling: existence, emptiness
// and stat information of directories.
package filesystem

import (
	"os"

	"golang.org/x/sys/unix"
)

type osProvider interface {
	Stat(name string) (os.FileInfo, error)
	ReadDir(name string) ([]os.DirEntry, error)
}

type unixProvider interface {
	Lstat(path string, stat *unix.Stat_t) error
}

// Handler is the principal implementation for the filesystem services.
type Handler struct {
	osHandler   osProvider
	unixHandler unixProvider
}

// NewHandler returns a pointer to a new filesystem [Handler].
func NewHandler(osHandler osProvider, unixHandler unixProvider) *Handler {
	return &Handler{
		osHandler:   osHandler,
		unixHandler: unixHandler,
	}
}
