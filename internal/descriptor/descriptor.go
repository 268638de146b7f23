// Package descriptor merges the site defaults with the local overrides of the
// configuration forests into fully resolved directory descriptors. Resolving
// performs no I/O.
package descriptor

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sort"

	"github.com/mitchellh/mapstructure"
	"github.com/scicomp/clusterstor-tools/internal/configuration"
	"github.com/scicomp/clusterstor-tools/internal/layout"
	"github.com/scicomp/clusterstor-tools/internal/quota"
	"github.com/scicomp/clusterstor-tools/internal/schema"
)

const (
	// ModeProject is the mode of project directories (setgid, group rwx).
	ModeProject uint32 = 0o2770

	// ModeUser is the mode of user work directories (setgid, owner rwx).
	ModeUser uint32 = 0o2700

	phaseResolve = "resolve"
)

// Resolver is the principal implementation of the layout descriptor resolver.
type Resolver struct {
	site            *configuration.SiteConfig
	reference       schema.Layout
	projectDefaults schema.QuotaSpec
	workDefaults    schema.QuotaSpec
}

// NewResolver returns a pointer to a new [Resolver]. Problems with the site
// defaults concern the whole run and are returned as [schema.ErrConfig].
func NewResolver(site *configuration.SiteConfig) (*Resolver, error) {
	reference, err := layout.Parse(site.Defaults.StripeReference)
	if err != nil {
		return nil, fmt.Errorf("(descriptor) %w: stripe_parameter_reference: %w", schema.ErrConfig, err)
	}

	if _, err := layout.SplitRule(site.Defaults.StripeParameters); err != nil {
		return nil, fmt.Errorf("(descriptor) %w: stripe_parameters: %w", schema.ErrConfig, err)
	}

	if _, err := quota.ParsePair(site.Defaults.DefaultQuotas.Projects); err != nil {
		return nil, fmt.Errorf("(descriptor) %w: default_quotas.projects: %w", schema.ErrConfig, err)
	}

	if _, err := quota.ParsePair(site.Defaults.DefaultQuotas.WorkDir); err != nil {
		return nil, fmt.Errorf("(descriptor) %w: default_quotas.workdir: %w", schema.ErrConfig, err)
	}

	return &Resolver{
		site:            site,
		reference:       reference,
		projectDefaults: site.Defaults.DefaultQuotas.Projects,
		workDefaults:    site.Defaults.DefaultQuotas.WorkDir,
	}, nil
}

// ResolveProjects resolves every department, each followed by its projects.
// A malformed project isolates only itself, a malformed department also
// drops its projects.
func (r *Resolver) ResolveProjects() ([]*schema.DirectoryDescriptor, []error) {
	var descs []*schema.DirectoryDescriptor
	var errs []error

	mountpoint := r.site.Defaults.Mountpoint

	for _, deptName := range sortedKeys(r.site.ProjectDirs) {
		dept := r.container(schema.KindDepartment, deptName, mountpoint)

		projects, ok := r.site.ProjectDirs[deptName].(map[string]any)
		if !ok {
			errs = append(errs, nodeError(dept.Path, fmt.Errorf("department is not a mapping of projects: %v", r.site.ProjectDirs[deptName])))

			continue
		}

		descs = append(descs, dept)

		for _, name := range sortedKeys(projects) {
			d, err := r.managed(schema.KindProject, name, dept.Path, projects[name], r.projectDefaults)
			if err != nil {
				errs = append(errs, err)

				continue
			}
			descs = append(descs, d)
		}
	}

	return descs, errs
}

// ResolveWorkDirs resolves the work root, followed by the work directories
// of the given users. Entries of the work_dirs forest for any other user
// are reported, but not resolved.
func (r *Resolver) ResolveWorkDirs(users []string) ([]*schema.DirectoryDescriptor, []error) {
	users = slices.Clone(users)
	slices.Sort(users)
	users = slices.Compact(users)

	for _, name := range sortedKeys(r.site.WorkDirs) {
		if _, found := slices.BinarySearch(users, name); !found {
			slog.Warn("Work directory override for a user not in the users group:",
				"user", name,
				"group", r.site.Defaults.UsersGroup,
			)
		}
	}

	return r.resolveUsers(users)
}

// ResolveWorkDir resolves the work root, followed by the work directory of a
// single user, regardless of the users group.
func (r *Resolver) ResolveWorkDir(user string) ([]*schema.DirectoryDescriptor, []error) {
	return r.resolveUsers([]string{user})
}

func (r *Resolver) resolveUsers(users []string) ([]*schema.DirectoryDescriptor, []error) {
	var errs []error

	root := r.container(schema.KindWorkRoot, r.site.Defaults.WorkDirName, r.site.Defaults.Mountpoint)
	descs := []*schema.DirectoryDescriptor{root}

	for _, user := range users {
		d, err := r.managed(schema.KindUser, user, root.Path, r.site.WorkDirs[user], r.workDefaults)
		if err != nil {
			errs = append(errs, err)

			continue
		}
		d.Owner = user
		descs = append(descs, d)
	}

	return descs, errs
}

// container resolves a structural directory with a metadata fan-out.
func (r *Resolver) container(kind schema.Kind, name string, parent string) *schema.DirectoryDescriptor {
	return &schema.DirectoryDescriptor{
		Name:       name,
		Path:       filepath.Join(parent, name),
		Parent:     parent,
		Kind:       kind,
		Fanout:     r.site.Defaults.DirstripeCount,
		LayoutRule: r.site.Defaults.StripeParameters,
		Layout:     r.reference,
		Mountpoint: r.site.Defaults.Mountpoint,
	}
}

// managed resolves a directory carrying an identity, a quota and ownership.
func (r *Resolver) managed(kind schema.Kind, name string, parent string, override any, defaults schema.QuotaSpec) (*schema.DirectoryDescriptor, error) {
	path := filepath.Join(parent, name)

	spec, err := mergeQuota(defaults, override)
	if err != nil {
		return nil, nodeError(path, err)
	}

	pair, err := quota.ParsePair(spec)
	if err != nil {
		return nil, nodeError(path, err)
	}

	mode := ModeProject
	if kind == schema.KindUser {
		mode = ModeUser
	}

	return &schema.DirectoryDescriptor{
		Name:       name,
		Path:       path,
		Parent:     parent,
		Kind:       kind,
		Fanout:     1,
		LayoutRule: r.site.Defaults.StripeParameters,
		Layout:     r.reference,
		Quota:      pair,
		QuotaSpec:  spec,
		Group:      name,
		Mode:       mode,
		Mountpoint: r.site.Defaults.Mountpoint,
	}, nil
}

// mergeQuota decodes a local override onto the defaults. Absent values keep
// the default, unknown keys are an error.
func mergeQuota(defaults schema.QuotaSpec, override any) (schema.QuotaSpec, error) {
	spec := defaults

	if override == nil {
		return spec, nil
	}

	if _, ok := override.(map[string]any); !ok {
		return spec, fmt.Errorf("override is not a mapping: %v", override)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           &spec,
	})
	if err != nil {
		return spec, err
	}

	if err := decoder.Decode(override); err != nil {
		return spec, fmt.Errorf("override: %w", err)
	}

	return spec, nil
}

func nodeError(path string, err error) error {
	return &schema.NodeError{
		Path:  path,
		Phase: phaseResolve,
		Err:   fmt.Errorf("(descriptor) %w: %w", schema.ErrConfig, err),
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}
