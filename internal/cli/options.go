package cli

import (
	"github.com/scicomp/clusterstor-tools/internal/configuration"
	"github.com/scicomp/clusterstor-tools/internal/reconcile"
	"github.com/spf13/cobra"
)

// Options are the command line flags shared by all commands.
type Options struct {
	SiteConf string
	EnvFile  string
	LogFile  string
	Verbose  bool

	Commit               bool
	RedoStriping         bool
	RedoProjectIDs       bool
	RedoProjectIDsStrict bool
	RedoQuotas           bool
	RedoOwnerships       bool
	Verify               bool
	Yes                  bool

	Journal     string
	RetryFailed bool
}

func (o *Options) addCommonFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.StringVar(&o.SiteConf, "site-conf", configuration.DefaultSiteConfig, "site configuration file")
	flags.StringVar(&o.EnvFile, "env-file", configuration.DefaultEnvironmentFile, "tool settings file")
	flags.StringVar(&o.LogFile, "log-file", "", "also append JSON logs to this file")
	flags.BoolVarP(&o.Verbose, "verbose", "v", false, "enable debug logging")
}

func (o *Options) addReconcileFlags(cmd *cobra.Command) {
	o.addCommonFlags(cmd)

	flags := cmd.Flags()

	flags.BoolVar(&o.Commit, "commit", false, "apply changes (the default is a dry run)")
	flags.BoolVar(&o.RedoStriping, "redo-striping", false, "re-check and fix the layout of existing directories")
	flags.BoolVar(&o.RedoProjectIDs, "redo-project-ids", false, "re-check and fix the project identity of existing directories")
	flags.BoolVar(&o.RedoProjectIDsStrict, "redo-project-ids-strict", false, "like --redo-project-ids, but refuse to change an established identity")
	flags.BoolVar(&o.RedoQuotas, "redo-quotas", false, "re-check and fix the quotas of existing directories")
	flags.BoolVar(&o.RedoOwnerships, "redo-ownerships", false, "re-apply the ownership of existing directories")
	flags.BoolVar(&o.Verify, "verify", false, "only compare all phases against the configuration, never change anything")
	flags.BoolVarP(&o.Yes, "yes", "y", false, "do not ask for confirmation")
	flags.StringVar(&o.Journal, "journal", "", "directory of the run journal")
	flags.BoolVar(&o.RetryFailed, "retry-failed", false, "only process the directories that failed in the last journaled run")

	cmd.MarkFlagsMutuallyExclusive("verify", "commit")
}

// policy returns the [reconcile.Policy] of the flags.
func (o *Options) policy() reconcile.Policy {
	return reconcile.Policy{
		DryRun:           !o.Commit,
		Verify:           o.Verify,
		RedoStriping:     o.RedoStriping,
		RedoProjectIDs:   o.RedoProjectIDs || o.RedoProjectIDsStrict,
		StrictProjectIDs: o.RedoProjectIDsStrict,
		RedoQuotas:       o.RedoQuotas,
		RedoOwnerships:   o.RedoOwnerships,
		SkipConfirm:      o.Yes,
	}
}
