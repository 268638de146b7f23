// Package layout compares the default file layout of a directory against a
// canonical reference and rewrites it from a layout rule.
package layout

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/shlex"
	"github.com/scicomp/clusterstor-tools/internal/schema"
	"github.com/zeebo/blake3"
)

type lfsProvider interface {
	GetStripe(ctx context.Context, path string) ([]byte, error)
	SetStripe(ctx context.Context, path string, layoutArgs []string, dryrun bool) error
}

// Enforcer is the principal implementation of the striping enforcer.
type Enforcer struct {
	lfsHandler lfsProvider
}

// NewEnforcer returns a pointer to a new [Enforcer].
func NewEnforcer(lfsHandler lfsProvider) *Enforcer {
	return &Enforcer{
		lfsHandler: lfsHandler,
	}
}

// Current returns the canonical default layout of a directory.
func (e *Enforcer) Current(ctx context.Context, path string) (schema.Layout, error) {
	out, err := e.lfsHandler.GetStripe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("(layout-current) %w", err)
	}

	current, err := Parse(out)
	if err != nil {
		return nil, fmt.Errorf("(layout-current) %s: %w", path, err)
	}

	return current, nil
}

// Matches reports if the default layout of a directory is structurally equal
// to the reference layout.
func (e *Enforcer) Matches(ctx context.Context, path string, ref schema.Layout) (bool, error) {
	current, err := e.Current(ctx, path)
	if err != nil {
		return false, err
	}

	if !current.Equal(ref) {
		slog.Debug("Layout differs from reference:",
			"path", path,
			"current", current.String(),
			"currentHash", Fingerprint(current),
			"reference", ref.String(),
			"referenceHash", Fingerprint(ref),
		)

		return false, nil
	}

	return true, nil
}

// Apply rewrites the default layout of a directory from a layout rule.
func (e *Enforcer) Apply(ctx context.Context, path string, rule string, dryrun bool) error {
	args, err := SplitRule(rule)
	if err != nil {
		return fmt.Errorf("(layout-apply) %w", err)
	}

	if err := e.lfsHandler.SetStripe(ctx, path, args, dryrun); err != nil {
		return fmt.Errorf("(layout-apply) %w", err)
	}

	return nil
}

// SplitRule splits a layout rule into arguments by shell word rules.
func SplitRule(rule string) ([]string, error) {
	if strings.TrimSpace(rule) == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidRule)
	}

	args, err := shlex.Split(rule)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidRule, rule, err)
	}

	return args, nil
}

// Fingerprint returns a BLAKE3 hash of the canonical form of a layout.
func Fingerprint(l schema.Layout) string {
	sum := blake3.Sum256([]byte(l.String()))

	return hex.EncodeToString(sum[:8])
}
