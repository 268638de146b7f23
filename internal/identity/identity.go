// Package identity derives the numeric project identities that quota usage is
// accounted under, and verifies or stamps them on directories.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/scicomp/clusterstor-tools/internal/schema"
)

type directoryProvider interface {
	Group(ctx context.Context, name string) (Entry, error)
	User(ctx context.Context, name string) (Entry, error)
}

type lfsProvider interface {
	GetProject(ctx context.Context, path string) (schema.ProjectStamp, error)
	SetProject(ctx context.Context, path string, id uint32, dryrun bool) error
}

// Manager is the principal implementation of the project identity manager.
type Manager struct {
	dirHandler directoryProvider
	lfsHandler lfsProvider
}

// NewManager returns a pointer to a new [Manager].
func NewManager(dirHandler directoryProvider, lfsHandler lfsProvider) *Manager {
	return &Manager{
		dirHandler: dirHandler,
		lfsHandler: lfsHandler,
	}
}

// Derive maps a name to its identity: the GID of the group of that name, or
// otherwise the UID of the user of that name.
func (m *Manager) Derive(ctx context.Context, name string) (schema.ProjectIdentity, error) {
	group, err := m.dirHandler.Group(ctx, name)
	if err == nil {
		return schema.ProjectIdentity{Name: name, ID: group.GID}, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return schema.ProjectIdentity{}, fmt.Errorf("(identity-derive) %w", err)
	}

	user, err := m.dirHandler.User(ctx, name)
	if err == nil {
		return schema.ProjectIdentity{Name: name, ID: user.ID}, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return schema.ProjectIdentity{}, fmt.Errorf("(identity-derive) %w", err)
	}

	return schema.ProjectIdentity{}, fmt.Errorf("(identity-derive) %w: %s", schema.ErrIdentityUnresolved, name)
}

// Current returns the identity stamped on a directory.
func (m *Manager) Current(ctx context.Context, path string) (schema.ProjectStamp, error) {
	stamp, err := m.lfsHandler.GetProject(ctx, path)
	if err != nil {
		return schema.ProjectStamp{}, fmt.Errorf("(identity-current) %w", err)
	}

	return stamp, nil
}

// Stamp sets an identity on a directory with inheritance, without any checks.
func (m *Manager) Stamp(ctx context.Context, path string, identity schema.ProjectIdentity, dryrun bool) error {
	if err := m.lfsHandler.SetProject(ctx, path, identity.ID, dryrun); err != nil {
		return fmt.Errorf("(identity-stamp) %w", err)
	}

	return nil
}

// Verify reports if a directory carries an identity with inheritance.
func (m *Manager) Verify(ctx context.Context, path string, identity schema.ProjectIdentity) (bool, error) {
	stamp, err := m.Current(ctx, path)
	if err != nil {
		return false, err
	}

	return stamp.ID == identity.ID && stamp.Inherit, nil
}

// Enforce makes a directory carry an identity. An unset identity is always
// stamped. A differing identity is restamped, unless strict is set, in which
// case [schema.ErrIdentityConflict] is returned and nothing is changed. The
// returned bool reports if anything was (or would have been) stamped.
func (m *Manager) Enforce(ctx context.Context, path string, identity schema.ProjectIdentity, strict bool, dryrun bool) (bool, error) {
	stamp, err := m.Current(ctx, path)
	if err != nil {
		return false, err
	}

	switch {
	case !stamp.IsSet():
		slog.Debug("Stamping unset project identity:", "path", path, "id", identity.ID)

	case stamp.ID == identity.ID && stamp.Inherit:
		return false, nil

	case stamp.ID == identity.ID:
		slog.Debug("Restoring project identity inheritance:", "path", path, "id", identity.ID)

	case strict:
		return false, fmt.Errorf("(identity-enforce) %w: %s carries %d, but %q derives %d",
			schema.ErrIdentityConflict, path, stamp.ID, identity.Name, identity.ID)

	default:
		slog.Warn("Restamping differing project identity:",
			"path", path,
			"current", stamp.ID,
			"derived", identity.ID,
		)
	}

	if err := m.Stamp(ctx, path, identity, dryrun); err != nil {
		return false, err
	}

	return true, nil
}
