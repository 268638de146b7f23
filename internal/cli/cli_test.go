package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/scicomp/clusterstor-tools/internal/journal"
	"github.com/scicomp/clusterstor-tools/internal/reconcile"
	"github.com/scicomp/clusterstor-tools/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExitCode_Table tests the mapping of command errors to exit statuses.
func TestExitCode_Table(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "Success", err: nil, expected: ExitOK},
		{name: "NodeFailures", err: fmt.Errorf("%w: %w", ErrNodeFailures, schema.ErrProvision), expected: ExitFailures},
		{name: "Config", err: fmt.Errorf("%w: bad", schema.ErrConfig), expected: ExitRunError},
		{name: "Declined", err: schema.ErrConfirmationDeclined, expected: ExitRunError},
		{name: "Usage", err: errors.New("accepts 1 arg(s), received 0"), expected: ExitRunError},
		{name: "Interrupted", err: fmt.Errorf("%w: %w", schema.ErrInterrupted, context.Canceled), expected: ExitInterrupted},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.expected, ExitCode(tc.err))
		})
	}
}

// TestOptions_Policy tests the mapping of flags to a reconcile policy.
func TestOptions_Policy(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		opts     Options
		expected reconcile.Policy
	}{
		{
			name:     "Default",
			opts:     Options{},
			expected: reconcile.Policy{DryRun: true},
		},
		{
			name:     "Commit",
			opts:     Options{Commit: true, Yes: true, RedoQuotas: true},
			expected: reconcile.Policy{RedoQuotas: true, SkipConfirm: true},
		},
		{
			name:     "Strict",
			opts:     Options{Commit: true, RedoProjectIDsStrict: true},
			expected: reconcile.Policy{RedoProjectIDs: true, StrictProjectIDs: true},
		},
		{
			name:     "Verify",
			opts:     Options{Verify: true, RedoStriping: true, RedoOwnerships: true},
			expected: reconcile.Policy{DryRun: true, Verify: true, RedoStriping: true, RedoOwnerships: true},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.expected, tc.opts.policy())
		})
	}
}

// TestCommands_Flags tests the flags and subcommands of the command tree.
func TestCommands_Flags(t *testing.T) {
	t.Parallel()

	root := NewRootCommand()

	for _, name := range []string{CommandCreateProjectDirs, CommandCreateWorkDirs, CommandCreateWorkDir} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)

		for _, flag := range []string{
			"site-conf", "env-file", "log-file", "verbose", "commit", "verify", "yes", "journal", "retry-failed",
			"redo-striping", "redo-project-ids", "redo-project-ids-strict", "redo-quotas", "redo-ownerships",
		} {
			assert.NotNil(t, cmd.Flags().Lookup(flag), "%s --%s", name, flag)
		}
	}

	cmd, _, err := root.Find([]string{CommandCheckQuotas})
	require.NoError(t, err)
	assert.NotNil(t, cmd.Flags().Lookup("site-conf"))
	assert.Nil(t, cmd.Flags().Lookup("commit"))
}

// TestCommands_Args tests that argument and flag errors are run errors.
func TestCommands_Args(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		args []string
	}{
		{name: "WorkDirMissingUser", args: []string{CommandCreateWorkDir}},
		{name: "WorkDirTooManyUsers", args: []string{CommandCreateWorkDir, "alice", "bob"}},
		{name: "ProjectDirsExtraArg", args: []string{CommandCreateProjectDirs, "cs"}},
		{name: "CheckQuotasNoName", args: []string{CommandCheckQuotas}},
		{name: "VerifyAndCommit", args: []string{CommandCreateProjectDirs, "--verify", "--commit"}},
		{name: "UnknownFlag", args: []string{CommandCreateProjectDirs, "--bogus"}},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			root := NewRootCommand()

			var stderr bytes.Buffer
			root.SetErr(&stderr)
			root.SetOut(&bytes.Buffer{})

			assert.Equal(t, ExitRunError, Execute(root, tc.args))
			assert.Contains(t, stderr.String(), "Error:")
		})
	}
}

// TestRetryFilter tests that only failed directories and their containers
// are retried.
func TestRetryFilter(t *testing.T) {
	t.Parallel()

	j, err := journal.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	descs := []*schema.DirectoryDescriptor{
		{Name: "cs", Path: "/lustre/cs", Parent: "/lustre", Kind: schema.KindDepartment},
		{Name: "p1", Path: "/lustre/cs/p1", Parent: "/lustre/cs", Kind: schema.KindProject},
		{Name: "p2", Path: "/lustre/cs/p2", Parent: "/lustre/cs", Kind: schema.KindProject},
		{Name: "math", Path: "/lustre/math", Parent: "/lustre", Kind: schema.KindDepartment},
		{Name: "m1", Path: "/lustre/math/m1", Parent: "/lustre/math", Kind: schema.KindProject},
	}

	report := &reconcile.RunReport{Nodes: []*reconcile.NodeResult{
		{Path: "/lustre/cs", Kind: schema.KindDepartment, Status: reconcile.StatusDone},
		{Path: "/lustre/cs/p1", Kind: schema.KindProject, Status: reconcile.StatusDone},
		{
			Path: "/lustre/cs/p2", Kind: schema.KindProject, Status: reconcile.StatusFailed,
			Phases: []reconcile.PhaseResult{{Phase: reconcile.PhaseQuota, Outcome: reconcile.OutcomeFailed, Err: errors.New("backend error")}},
		},
		{Path: "/lustre/math", Kind: schema.KindDepartment, Status: reconcile.StatusDone},
		{Path: "/lustre/math/m1", Kind: schema.KindProject, Status: reconcile.StatusDone},
	}}
	require.NoError(t, j.Record(CommandCreateProjectDirs, report))

	app := &App{journal: j}

	filtered, err := retryFilter(app, CommandCreateProjectDirs, descs)
	require.NoError(t, err)

	paths := make([]string, 0, len(filtered))
	for _, d := range filtered {
		paths = append(paths, d.Path)
	}
	assert.Equal(t, []string{"/lustre/cs", "/lustre/cs/p2"}, paths)
}

type recordingHandler struct {
	level   slog.Level
	records []string
}

func (h *recordingHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.records = append(h.records, r.Message)

	return nil
}

func (h *recordingHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

func (h *recordingHandler) WithGroup(_ string) slog.Handler {
	return h
}

// TestSlogManager_FanOut tests that records reach every handler enabled for
// their level.
func TestSlogManager_FanOut(t *testing.T) {
	t.Parallel()

	console := &recordingHandler{level: slog.LevelInfo}
	file := &recordingHandler{level: slog.LevelDebug}

	m := newSlogManager()
	m.AddHandler("console", console)
	m.AddHandler("file", file)

	logger := slog.New(m)
	logger.Debug("debug")
	logger.With("k", "v").Info("info")

	assert.True(t, m.Enabled(context.Background(), slog.LevelDebug))
	assert.Equal(t, []string{"info"}, console.records)
	assert.Equal(t, []string{"debug", "info"}, file.records)
}

// writeTestSite writes a site configuration with the given project_dirs
// block below a temporary mount point, and a tool settings file pointing at
// tools that cannot be executed. It returns the arguments selecting both.
func writeTestSite(t *testing.T, projectDirs string) (string, []string) {
	t.Helper()

	dir := t.TempDir()
	mountpoint := filepath.Join(dir, "mnt")
	require.NoError(t, os.Mkdir(mountpoint, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "reference.yaml"),
		[]byte("stripe_count: 1\nstripe_size: 1048576\n"), 0o600))

	site := fmt.Sprintf(`defaults:
  stripe_parameters: "-c 1 -S 1M"
  stripe_parameter_reference: reference.yaml
  dirstripe_count: 2
  mountpoint: %s
  users_group: domain-users
  work_dir_name: work
  default_quotas:
    projects:
      byte_quota: 1T
      inode_quota: 1M
    workdir:
      byte_quota: 200G
      inode_quota: 1M
project_dirs:
%s`, mountpoint, projectDirs)
	siteConf := filepath.Join(dir, "site.yaml")
	require.NoError(t, os.WriteFile(siteConf, []byte(site), 0o600))

	envFile := filepath.Join(dir, "env")
	require.NoError(t, os.WriteFile(envFile,
		[]byte("CLUSTERSTOR_GETENT=/nonexistent/getent\nCLUSTERSTOR_LFS=/nonexistent/lfs\n"), 0o600))

	return mountpoint, []string{"--site-conf", siteConf, "--env-file", envFile}
}

func executeTest(t *testing.T, args ...string) (int, string) {
	t.Helper()

	root := NewRootCommand()

	var stdout bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&bytes.Buffer{})

	return Execute(root, args), stdout.String()
}

// TestCreateProjectDirs_DryRun runs the command against a temporary mount
// point with tools that cannot be executed. Containers complete, projects
// fail on their identity and the run exits with node failures.
//
//nolint:paralleltest
func TestCreateProjectDirs_DryRun(t *testing.T) {
	mountpoint, flags := writeTestSite(t, "  cs:\n    cs_project1:\n")

	code, out := executeTest(t, append([]string{CommandCreateProjectDirs}, flags...)...)
	assert.Equal(t, ExitFailures, code)

	assert.Contains(t, out, "CREATE PROJECT DIRECTORIES")
	assert.Contains(t, out, "1 done, 1 failed, 0 not reached")
	assert.Contains(t, out, filepath.Join(mountpoint, "cs", "cs_project1"))

	_, err := os.Stat(filepath.Join(mountpoint, "cs"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestCreateProjectDirs_Malformed tests that a directory with a malformed
// configuration is reported after the header and counted as failed in the
// summary.
//
//nolint:paralleltest
func TestCreateProjectDirs_Malformed(t *testing.T) {
	mountpoint, flags := writeTestSite(t, "  cs:\n    cs_bad:\n      byte_quota: 1X\n")

	code, out := executeTest(t, append([]string{CommandCreateProjectDirs}, flags...)...)
	assert.Equal(t, ExitFailures, code)

	bad := filepath.Join(mountpoint, "cs", "cs_bad")

	header := strings.Index(out, "CREATE PROJECT DIRECTORIES")
	failure := strings.Index(out, "FAILED:")
	require.NotEqual(t, -1, header)
	require.NotEqual(t, -1, failure)
	assert.Less(t, header, failure)

	assert.Contains(t, out, "1 done, 1 failed, 0 not reached")
	assert.Contains(t, out, "Failed:\n  "+bad+":")
	assert.Contains(t, out, schema.ErrQuotaFormat.Error())
}
