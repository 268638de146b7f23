// Package quota reads and writes byte and inode hard limits keyed by a project
// identity, and converts between suffixed quota strings and raw integers.
package quota

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/scicomp/clusterstor-tools/internal/schema"
)

type lfsProvider interface {
	GetQuota(ctx context.Context, mountpoint string, id uint32) (schema.QuotaState, error)
	SetQuota(ctx context.Context, mountpoint string, id uint32, blockLimit string, inodeLimit string, dryrun bool) error
}

// Enforcer is the principal implementation of the quota enforcer.
type Enforcer struct {
	lfsHandler lfsProvider
}

// NewEnforcer returns a pointer to a new [Enforcer].
func NewEnforcer(lfsHandler lfsProvider) *Enforcer {
	return &Enforcer{
		lfsHandler: lfsHandler,
	}
}

// Read returns a fresh snapshot of the quota accounting for an identity.
func (e *Enforcer) Read(ctx context.Context, mountpoint string, id uint32) (schema.QuotaState, error) {
	state, err := e.lfsHandler.GetQuota(ctx, mountpoint, id)
	if err != nil {
		return schema.QuotaState{}, fmt.Errorf("(quota-read) %w", err)
	}

	return state, nil
}

// Write sets both hard (and soft) limits of an identity as a pair.
func (e *Enforcer) Write(ctx context.Context, mountpoint string, id uint32, pair schema.QuotaPair, dryrun bool) error {
	block := blockLimit(pair.Bytes)
	inode := strconv.FormatUint(pair.Inodes, 10)

	slog.Debug("Setting quota:", "mountpoint", mountpoint, "id", id, "bytes", block, "inodes", inode, "dryrun", dryrun)

	if err := e.lfsHandler.SetQuota(ctx, mountpoint, id, block, inode, dryrun); err != nil {
		return fmt.Errorf("(quota-write) %w", err)
	}

	return nil
}

// NeedsUpdate reports if either hard limit of a state differs from the
// desired pair. Byte limits are compared at the backend's kibibyte granularity.
func NeedsUpdate(desired schema.QuotaPair, state schema.QuotaState) bool {
	wantBytes, _ := ParseValue(blockLimit(desired.Bytes))
	have := state.Limits()

	return wantBytes != have.Bytes || desired.Inodes != have.Inodes
}
