// Package ownership sets the owning group (and user), as well as the
// group-inheriting permission mode, on a single directory entry.
package ownership

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/scicomp/clusterstor-tools/internal/identity"
	"github.com/scicomp/clusterstor-tools/internal/lfs"
	"github.com/scicomp/clusterstor-tools/internal/schema"
)

const unchangedID = -1

type directoryProvider interface {
	Group(ctx context.Context, name string) (identity.Entry, error)
	User(ctx context.Context, name string) (identity.Entry, error)
}

type fsProvider interface {
	Metadata(path string) (*schema.Metadata, error)
}

type unixProvider interface {
	Chown(path string, uid, gid int) error
	Chmod(path string, mode uint32) error
}

// Enforcer is the principal implementation of the ownership enforcer.
type Enforcer struct {
	dirHandler  directoryProvider
	fsHandler   fsProvider
	unixHandler unixProvider
}

// NewEnforcer returns a pointer to a new [Enforcer].
func NewEnforcer(dirHandler directoryProvider, fsHandler fsProvider, unixHandler unixProvider) *Enforcer {
	return &Enforcer{
		dirHandler:  dirHandler,
		fsHandler:   fsHandler,
		unixHandler: unixHandler,
	}
}

// Enforce sets the group, the owner (if not empty) and the mode of a
// directory entry, not recursing into its contents.
func (e *Enforcer) Enforce(ctx context.Context, path string, group string, owner string, mode uint32, dryrun bool) error {
	uid, gid, err := e.resolve(ctx, group, owner)
	if err != nil {
		return fmt.Errorf("(ownership-enforce) %w", err)
	}

	if dryrun {
		slog.Info("Dry run: would run:", "cmd", lfs.CommandLine("chown", ownerSpec(owner, group), path))
		slog.Info("Dry run: would run:", "cmd", lfs.CommandLine("chmod", strconv.FormatUint(uint64(mode), 8), path))

		return nil
	}

	// The chown comes first, as it clears the setgid bit.
	if err := e.unixHandler.Chown(path, uid, gid); err != nil {
		return fmt.Errorf("(ownership-enforce) failed to chown %s: %w", path, err)
	}

	if err := e.unixHandler.Chmod(path, mode); err != nil {
		return fmt.Errorf("(ownership-enforce) failed to chmod %s: %w", path, err)
	}

	return nil
}

// Verify reports if a directory entry has the given group, owner (if not
// empty) and mode.
func (e *Enforcer) Verify(ctx context.Context, path string, group string, owner string, mode uint32) (bool, error) {
	uid, gid, err := e.resolve(ctx, group, owner)
	if err != nil {
		return false, fmt.Errorf("(ownership-verify) %w", err)
	}

	md, err := e.fsHandler.Metadata(path)
	if err != nil {
		return false, fmt.Errorf("(ownership-verify) %w", err)
	}

	if md.GID != uint32(gid) || md.Perms != mode { //nolint:gosec
		return false, nil
	}

	if uid != unchangedID && md.UID != uint32(uid) { //nolint:gosec
		return false, nil
	}

	return true, nil
}

func (e *Enforcer) resolve(ctx context.Context, group string, owner string) (int, int, error) {
	g, err := e.dirHandler.Group(ctx, group)
	if err != nil {
		return 0, 0, fmt.Errorf("group %q: %w", group, err)
	}

	uid := unchangedID
	if owner != "" {
		u, err := e.dirHandler.User(ctx, owner)
		if err != nil {
			return 0, 0, fmt.Errorf("owner %q: %w", owner, err)
		}
		uid = int(u.ID)
	}

	return uid, int(g.GID), nil
}

func ownerSpec(owner string, group string) string {
	if owner == "" {
		return ":" + group
	}

	return owner + ":" + group
}
