package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/scicomp/clusterstor-tools/internal/configuration"
	"github.com/scicomp/clusterstor-tools/internal/filesystem"
	"github.com/scicomp/clusterstor-tools/internal/identity"
	"github.com/scicomp/clusterstor-tools/internal/journal"
	"github.com/scicomp/clusterstor-tools/internal/layout"
	"github.com/scicomp/clusterstor-tools/internal/lfs"
	"github.com/scicomp/clusterstor-tools/internal/ownership"
	"github.com/scicomp/clusterstor-tools/internal/provision"
	"github.com/scicomp/clusterstor-tools/internal/quota"
	"github.com/scicomp/clusterstor-tools/internal/reconcile"
	"github.com/scicomp/clusterstor-tools/internal/schema"
	"github.com/scicomp/clusterstor-tools/internal/ui"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"golang.org/x/term"
)

// App holds the wired components of one command invocation.
type App struct {
	settings configuration.ToolSettings
	site     *configuration.SiteConfig
	out      io.Writer

	directory    *identity.Directory
	identity     *identity.Manager
	quota        *quota.Enforcer
	reporter     *ui.Console
	orchestrator *reconcile.Orchestrator
	journal      *journal.Journal

	closers []func() error
}

// newApp sets up logging, reads the tool settings and the site configuration
// and wires all components. All errors concern the whole run.
func newApp(cmd *cobra.Command, opts *Options, withJournal bool) (*App, error) {
	app := &App{out: cmd.OutOrStdout()}

	closeLog, err := setupLogging(cmd.ErrOrStderr(), opts.Verbose, opts.LogFile)
	app.closers = append(app.closers, closeLog)
	if err != nil {
		return app, err
	}

	app.settings, err = configuration.ReadToolSettings(&configuration.GodotenvProvider{}, opts.EnvFile)
	if err != nil {
		return app, fmt.Errorf("%w: %w", schema.ErrConfig, err)
	}

	if !cmd.Flags().Changed("site-conf") {
		opts.SiteConf = app.settings.SiteConf
	}

	loader, err := configuration.NewSiteLoader(&schema.OS{})
	if err != nil {
		return app, err
	}

	app.site, err = loader.Load(opts.SiteConf)
	if err != nil {
		return app, err
	}

	slog.Debug("Loaded site configuration:", "path", opts.SiteConf, "mountpoint", app.site.Defaults.Mountpoint)

	runner := lfs.ExecRunner{}
	client := lfs.NewClient(runner, app.settings.LfsBinary)
	fsHandler := filesystem.NewHandler(&schema.OS{}, &schema.Unix{})

	app.directory = identity.NewDirectory(runner, app.settings.GetentBinary)
	app.identity = identity.NewManager(app.directory, client)
	app.quota = quota.NewEnforcer(client)
	app.reporter = ui.NewConsole(app.out)

	components := reconcile.Components{
		FS:          fsHandler,
		Provisioner: provision.NewProvisioner(fsHandler, &schema.Unix{}, client),
		Layout:      layout.NewEnforcer(client),
		Identity:    app.identity,
		Quota:       app.quota,
		Ownership:   ownership.NewEnforcer(app.directory, fsHandler, &schema.Unix{}),
	}
	app.orchestrator = reconcile.NewOrchestrator(components, app.reporter, ui.NewPrompt(cmd.InOrStdin(), app.out))

	if !withJournal {
		return app, nil
	}

	dir := opts.Journal
	if dir == "" {
		dir = app.settings.JournalDir
	}

	if dir == "" {
		if opts.RetryFailed {
			return app, fmt.Errorf("%w: --retry-failed needs a journal", schema.ErrConfig)
		}

		return app, nil
	}

	app.journal, err = journal.Open(dir)
	if err != nil {
		return app, err
	}
	app.closers = append(app.closers, app.journal.Close)

	return app, nil
}

// Close releases the journal and the log file.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}

	return multierr.Combine(errs...)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return term.IsTerminal(int(f.Fd())) //nolint:gosec
}
