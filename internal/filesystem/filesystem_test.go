package filesystem

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/scicomp/clusterstor-tools/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler() *Handler {
	return NewHandler(&schema.OS{}, &schema.Unix{})
}

// TestExists_Table tests the existence checks on a real temporary tree.
func TestExists_Table(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "dir"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(root, "file"), []byte("x"), 0o600))

	f := newTestHandler()

	exists, err := f.Exists(filepath.Join(root, "dir"))
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = f.Exists(filepath.Join(root, "missing"))
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = f.Exists(filepath.Join(root, "file"))
	require.ErrorIs(t, err, ErrNotDirectory)
}

// TestIsEmptyFolder_Success tests the emptiness check.
func TestIsEmptyFolder_Success(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	f := newTestHandler()

	empty, err := f.IsEmptyFolder(root)
	require.NoError(t, err)
	assert.True(t, empty)

	require.NoError(t, os.WriteFile(filepath.Join(root, "file"), []byte("x"), 0o600))

	empty, err = f.IsEmptyFolder(root)
	require.NoError(t, err)
	assert.False(t, empty)
}

// TestIsEmptyFolder_Fail tests that a missing folder is an error.
func TestIsEmptyFolder_Fail(t *testing.T) {
	t.Parallel()

	_, err := newTestHandler().IsEmptyFolder(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

// TestMetadata_Success tests that the special permission bits are reported.
func TestMetadata_Success(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "dir")
	require.NoError(t, os.Mkdir(dir, 0o700))
	require.NoError(t, os.Chmod(dir, 0o750|os.ModeSetgid))

	md, err := newTestHandler().Metadata(dir)
	require.NoError(t, err)

	assert.True(t, md.IsDir)
	assert.Equal(t, uint32(0o2750), md.Perms)
	assert.Equal(t, uint32(os.Getuid()), md.UID) //nolint:gosec
}
