package filesystem

import (
	"fmt"

	"github.com/scicomp/clusterstor-tools/internal/schema"
	"golang.org/x/sys/unix"
)

const permMask = 0o7777

// Metadata returns the [schema.Metadata] of a path, not following symlinks.
// The permissions include the setuid, setgid and sticky bits.
func (f *Handler) Metadata(path string) (*schema.Metadata, error) {
	var stat unix.Stat_t

	if err := f.unixHandler.Lstat(path, &stat); err != nil {
		return nil, fmt.Errorf("(fs-metadata) failed to lstat: %w", err)
	}

	return &schema.Metadata{
		Inode: stat.Ino,
		Perms: uint32(stat.Mode) & permMask,
		UID:   stat.Uid,
		GID:   stat.Gid,
		IsDir: (stat.Mode & unix.S_IFMT) == unix.S_IFDIR,
	}, nil
}
