// Package validation checks resolved directory descriptors for the structural
// invariants of the managed hierarchy before anything is reconciled.
package validation

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"

	"github.com/scicomp/clusterstor-tools/internal/schema"
)

const phaseValidate = "validate"

var nameRegex = regexp.MustCompile(`^[\w-]+$`)

// ValidateDescriptors returns the descriptors that satisfy the invariants,
// keeping their order. Every dropped descriptor yields one [schema.NodeError]
// wrapping [schema.ErrConfig]. The descendants of a dropped descriptor are
// also dropped.
func ValidateDescriptors(descs []*schema.DirectoryDescriptor) ([]*schema.DirectoryDescriptor, []error) {
	filtered := make([]*schema.DirectoryDescriptor, 0, len(descs))
	seen := make(map[string]struct{}, len(descs))
	dropped := make(map[string]struct{})

	var errs []error

	for _, d := range descs {
		err := validateDescriptor(d)

		if err == nil {
			if _, ok := dropped[d.Parent]; ok {
				err = ErrParentDropped
			}
		}

		if err == nil {
			if _, ok := seen[d.Path]; ok {
				err = ErrPathDuplicate
			}
		}

		if err != nil {
			slog.Warn("Skipped node: failed validation", "err", err, "path", d.Path)

			dropped[d.Path] = struct{}{}
			errs = append(errs, &schema.NodeError{
				Path:  d.Path,
				Phase: phaseValidate,
				Err:   fmt.Errorf("(validation) %w: %w", schema.ErrConfig, err),
			})

			continue
		}

		seen[d.Path] = struct{}{}
		filtered = append(filtered, d)
	}

	return filtered, errs
}

func validateDescriptor(d *schema.DirectoryDescriptor) error {
	if !nameRegex.MatchString(d.Name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, d.Name)
	}

	if !filepath.IsAbs(d.Path) {
		return ErrPathRelative
	}

	if filepath.Clean(d.Path) != d.Path {
		return ErrPathNotClean
	}

	if filepath.Dir(d.Path) != filepath.Clean(d.Parent) {
		return fmt.Errorf("%w: %s", ErrNotDescendant, d.Parent)
	}

	return nil
}
