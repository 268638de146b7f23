package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/scicomp/clusterstor-tools/internal/descriptor"
	"github.com/scicomp/clusterstor-tools/internal/schema"
	"github.com/scicomp/clusterstor-tools/internal/ui"
	"github.com/scicomp/clusterstor-tools/internal/validation"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

// Names of the commands, also used as their journal namespaces.
const (
	CommandCreateProjectDirs = "create-project-dirs"
	CommandCreateWorkDirs    = "create-work-dirs"
	CommandCreateWorkDir     = "create-work-dir"
	CommandCheckQuotas       = "check-quotas"
)

// resolveFunc resolves the descriptors of a command. Node errors isolate a
// single directory, the returned error ends the run.
type resolveFunc func(ctx context.Context, app *App, resolver *descriptor.Resolver, args []string) ([]*schema.DirectoryDescriptor, []error, error)

// NewRootCommand returns a command holding all tools as subcommands.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "clusterstor-tools",
		Short:         "Provision and reconcile project and work directories on a Lustre filesystem",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		NewCreateProjectDirsCommand(),
		NewCreateWorkDirsCommand(),
		NewCreateWorkDirCommand(),
		NewCheckQuotasCommand(),
	)

	return root
}

// NewCreateProjectDirsCommand returns the command reconciling all department
// and project directories.
func NewCreateProjectDirsCommand() *cobra.Command {
	return newReconcileCommand(
		CommandCreateProjectDirs,
		"Create and reconcile department and project directories",
		"Create project directories",
		cobra.NoArgs,
		func(_ context.Context, _ *App, resolver *descriptor.Resolver, _ []string) ([]*schema.DirectoryDescriptor, []error, error) {
			descs, errs := resolver.ResolveProjects()

			return descs, errs, nil
		},
	)
}

// NewCreateWorkDirsCommand returns the command reconciling the work
// directories of all members of the users group.
func NewCreateWorkDirsCommand() *cobra.Command {
	return newReconcileCommand(
		CommandCreateWorkDirs,
		"Create and reconcile the work directories of all users",
		"Create work directories",
		cobra.NoArgs,
		func(ctx context.Context, app *App, resolver *descriptor.Resolver, _ []string) ([]*schema.DirectoryDescriptor, []error, error) {
			group, err := app.directory.Group(ctx, app.site.Defaults.UsersGroup)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: users_group: %w", schema.ErrConfig, err)
			}

			slog.Info("Resolved users group:", "group", group.Name, "members", len(group.Members))

			descs, errs := resolver.ResolveWorkDirs(group.Members)

			return descs, errs, nil
		},
	)
}

// NewCreateWorkDirCommand returns the command reconciling the work
// directory of a single user.
func NewCreateWorkDirCommand() *cobra.Command {
	return newReconcileCommand(
		CommandCreateWorkDir+" USER",
		"Create and reconcile the work directory of one user",
		"Create work directory",
		cobra.ExactArgs(1),
		func(_ context.Context, _ *App, resolver *descriptor.Resolver, args []string) ([]*schema.DirectoryDescriptor, []error, error) {
			descs, errs := resolver.ResolveWorkDir(args[0])

			return descs, errs, nil
		},
	)
}

func newReconcileCommand(use string, short string, title string, args cobra.PositionalArgs, resolve resolveFunc) *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		Args:          args,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd, opts, title, args, resolve)
		},
	}
	opts.addReconcileFlags(cmd)

	return cmd
}

func runReconcile(cmd *cobra.Command, opts *Options, title string, args []string, resolve resolveFunc) error {
	ctx := cmd.Context()

	app, err := newApp(cmd, opts, true)
	defer app.Close() //nolint:errcheck
	if err != nil {
		return err
	}

	resolver, err := descriptor.NewResolver(app.site)
	if err != nil {
		return err
	}

	descs, nodeErrs, err := resolve(ctx, app, resolver, args)
	if err != nil {
		return err
	}

	descs, invalid := validation.ValidateDescriptors(descs)
	nodeErrs = append(nodeErrs, invalid...)

	if opts.RetryFailed {
		descs, err = retryFilter(app, cmd.Name(), descs)
		if err != nil {
			return err
		}
	}

	policy := opts.policy()
	if policy.DryRun && !policy.Verify {
		slog.Info("Dry run, nothing will be changed. Use --commit to apply the changes.")
	}

	report, runErr := app.orchestrator.Run(ctx, title, descs, policy, nodeErrs...)
	ui.PrintSummary(app.out, report)

	if app.journal != nil && !errors.Is(runErr, schema.ErrConfirmationDeclined) {
		if err := app.journal.Record(cmd.Name(), report); err != nil {
			slog.Warn("Failed to journal the run:", "err", err)
		}
	}

	if runErr != nil {
		return runErr
	}

	if err := report.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrNodeFailures, err)
	}

	return nil
}

// retryFilter restricts the descriptors to the directories that failed in
// the last journaled run, along with the containers they are placed in.
func retryFilter(app *App, command string, descs []*schema.DirectoryDescriptor) ([]*schema.DirectoryDescriptor, error) {
	failed, err := app.journal.Failed(command)
	if err != nil {
		return nil, err
	}

	retry := make(map[string]bool, len(failed))
	for _, path := range failed {
		retry[path] = true
	}

	parents := make(map[string]bool)
	for _, d := range descs {
		if retry[d.Path] {
			parents[d.Parent] = true
		}
	}

	var filtered []*schema.DirectoryDescriptor
	for _, d := range descs {
		if retry[d.Path] || (!d.Kind.IsManaged() && parents[d.Path]) {
			filtered = append(filtered, d)
		}
	}

	slog.Info("Retrying the directories that failed before:", "count", len(failed), "selected", len(filtered))

	return filtered, nil
}

// NewCheckQuotasCommand returns the command printing the identity, usage and
// limits of project or user names.
func NewCheckQuotasCommand() *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:           CommandCheckQuotas + " NAME...",
		Short:         "Print the quota usage and limits of projects or users",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheckQuotas(cmd, opts, args)
		},
	}
	opts.addCommonFlags(cmd)

	return cmd
}

func runCheckQuotas(cmd *cobra.Command, opts *Options, names []string) error {
	ctx := cmd.Context()

	app, err := newApp(cmd, opts, false)
	defer app.Close() //nolint:errcheck
	if err != nil {
		return err
	}

	mountpoint := app.site.Defaults.Mountpoint
	rows := make([]ui.QuotaRow, 0, len(names))

	var errs error
	for _, name := range names {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", schema.ErrInterrupted, ctx.Err())
		}

		row := ui.QuotaRow{Name: name, Mountpoint: mountpoint}

		id, err := app.identity.Derive(ctx, name)
		if errors.Is(err, schema.ErrIdentityUnresolved) {
			rows = append(rows, row)

			continue
		}

		row.Found = true
		row.ID = id.ID

		if err == nil {
			row.State, err = app.quota.Read(ctx, mountpoint, id.ID)
		}

		if err != nil {
			row.Err = err
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
		}

		rows = append(rows, row)
	}

	ui.PrintQuotas(app.out, rows)

	if errs != nil {
		return fmt.Errorf("%w: %w", ErrNodeFailures, errs)
	}

	return nil
}
