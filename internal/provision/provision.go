// Package provision idempotently creates directories, optionally with their
// metadata distributed over several metadata targets.
package provision

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/scicomp/clusterstor-tools/internal/schema"
)

// plainMode is the mode of directories created without a metadata fan-out,
// before the process umask and any later ownership enforcement.
const plainMode = 0o755

type fsProvider interface {
	Exists(path string) (bool, error)
}

type unixProvider interface {
	Mkdir(path string, mode uint32) error
}

type lfsProvider interface {
	SetDirStripe(ctx context.Context, path string, count int, dryrun bool) error
	GetDirStripeCount(ctx context.Context, path string) (int, error)
}

// Provisioner is the principal implementation of the directory provisioner.
type Provisioner struct {
	fsHandler   fsProvider
	unixHandler unixProvider
	lfsHandler  lfsProvider
}

// NewProvisioner returns a pointer to a new [Provisioner].
func NewProvisioner(fsHandler fsProvider, unixHandler unixProvider, lfsHandler lfsProvider) *Provisioner {
	return &Provisioner{
		fsHandler:   fsHandler,
		unixHandler: unixHandler,
		lfsHandler:  lfsHandler,
	}
}

// Ensure makes a directory exist and returns if it was (or in a dry run,
// would have been) created by this call. An existing directory is never
// changed. Any failure is a [schema.ErrProvision].
func (p *Provisioner) Ensure(ctx context.Context, path string, fanout int, dryrun bool) (bool, error) {
	exists, err := p.fsHandler.Exists(path)
	if err != nil {
		return false, fmt.Errorf("(provision) %w: %w", schema.ErrProvision, err)
	}

	if exists {
		p.checkFanout(ctx, path, fanout)

		return false, nil
	}

	if fanout > 1 {
		if err := p.lfsHandler.SetDirStripe(ctx, path, fanout, dryrun); err != nil {
			return false, fmt.Errorf("(provision) %w: %w", schema.ErrProvision, err)
		}

		return true, nil
	}

	if dryrun {
		slog.Info("Dry run: would create directory:", "path", path)

		return true, nil
	}

	if err := p.unixHandler.Mkdir(path, plainMode); err != nil {
		return false, fmt.Errorf("(provision) %w: %s: %w", schema.ErrProvision, path, err)
	}

	return true, nil
}

// checkFanout warns when an existing directory has a different fan-out than
// desired. It cannot be changed without recreating the directory.
func (p *Provisioner) checkFanout(ctx context.Context, path string, fanout int) {
	if fanout <= 1 {
		return
	}

	count, err := p.lfsHandler.GetDirStripeCount(ctx, path)
	if err != nil {
		slog.Warn("Failed to get metadata fan-out of existing directory:", "path", path, "err", err)

		return
	}

	if count != fanout {
		slog.Warn("Existing directory has a different metadata fan-out:",
			"path", path,
			"current", count,
			"desired", fanout,
		)
	}
}
