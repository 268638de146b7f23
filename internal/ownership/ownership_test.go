package ownership

import (
	"context"
	"testing"

	"github.com/scicomp/clusterstor-tools/internal/identity"
	"github.com/scicomp/clusterstor-tools/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chownCall struct {
	path     string
	uid, gid int
}

type fakeSystem struct {
	metadata *schema.Metadata
	chowns   []chownCall
	chmods   []uint32
}

func (f *fakeSystem) Group(_ context.Context, name string) (identity.Entry, error) {
	if name == "cs_project1" {
		return identity.Entry{Name: name, ID: 70001, GID: 70001}, nil
	}
	if name == "alice" {
		return identity.Entry{Name: name, ID: 4001, GID: 4001}, nil
	}

	return identity.Entry{}, identity.ErrNotFound
}

func (f *fakeSystem) User(_ context.Context, name string) (identity.Entry, error) {
	if name == "alice" {
		return identity.Entry{Name: name, ID: 1001, GID: 4001}, nil
	}

	return identity.Entry{}, identity.ErrNotFound
}

func (f *fakeSystem) Metadata(_ string) (*schema.Metadata, error) {
	return f.metadata, nil
}

func (f *fakeSystem) Chown(path string, uid, gid int) error {
	f.chowns = append(f.chowns, chownCall{path, uid, gid})

	return nil
}

func (f *fakeSystem) Chmod(_ string, mode uint32) error {
	f.chmods = append(f.chmods, mode)

	return nil
}

func newTestEnforcer(f *fakeSystem) *Enforcer {
	return NewEnforcer(f, f, f)
}

// TestEnforce_Project tests that only the group is changed for projects.
func TestEnforce_Project(t *testing.T) {
	t.Parallel()

	f := &fakeSystem{}

	err := newTestEnforcer(f).Enforce(context.Background(), "/lustre/cs/cs_project1", "cs_project1", "", 0o2770, false)
	require.NoError(t, err)

	assert.Equal(t, []chownCall{{"/lustre/cs/cs_project1", -1, 70001}}, f.chowns)
	assert.Equal(t, []uint32{0o2770}, f.chmods)
}

// TestEnforce_User tests that work directories are also owned by the user.
func TestEnforce_User(t *testing.T) {
	t.Parallel()

	f := &fakeSystem{}

	err := newTestEnforcer(f).Enforce(context.Background(), "/lustre/work/alice", "alice", "alice", 0o2700, false)
	require.NoError(t, err)

	assert.Equal(t, []chownCall{{"/lustre/work/alice", 1001, 4001}}, f.chowns)
	assert.Equal(t, []uint32{0o2700}, f.chmods)
}

// TestEnforce_DryRun tests that nothing is changed in a dry run.
func TestEnforce_DryRun(t *testing.T) {
	t.Parallel()

	f := &fakeSystem{}

	err := newTestEnforcer(f).Enforce(context.Background(), "/lustre/work/alice", "alice", "alice", 0o2700, true)
	require.NoError(t, err)

	assert.Empty(t, f.chowns)
	assert.Empty(t, f.chmods)
}

// TestEnforce_Fail_UnknownGroup tests that an unknown group is an error.
func TestEnforce_Fail_UnknownGroup(t *testing.T) {
	t.Parallel()

	f := &fakeSystem{}

	err := newTestEnforcer(f).Enforce(context.Background(), "/lustre/cs/ghost", "ghost", "", 0o2770, false)
	require.ErrorIs(t, err, identity.ErrNotFound)
	assert.Empty(t, f.chowns)
}

// TestVerify_Table tests the comparison against the stat information.
func TestVerify_Table(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		owner    string
		metadata schema.Metadata
		expected bool
	}{
		{name: "Match", metadata: schema.Metadata{UID: 0, GID: 70001, Perms: 0o2770}, expected: true},
		{name: "MissingSetgid", metadata: schema.Metadata{UID: 0, GID: 70001, Perms: 0o770}, expected: false},
		{name: "WrongGroup", metadata: schema.Metadata{UID: 0, GID: 1, Perms: 0o2770}, expected: false},
		{name: "WrongOwner", owner: "alice", metadata: schema.Metadata{UID: 0, GID: 70001, Perms: 0o2770}, expected: false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			md := tc.metadata
			f := &fakeSystem{metadata: &md}

			ok, err := newTestEnforcer(f).Verify(context.Background(), "/p", "cs_project1", tc.owner, 0o2770)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, ok)
		})
	}
}
