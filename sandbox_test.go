package ftpserver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveWithinRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))

	resolved, err := Resolve(root, "/", "/sub")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "sub"), resolved)
}

func TestResolveRelativeToCurrentDir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b"), 0o755))

	resolved, err := Resolve(root, "/a", "b")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "a", "b"), resolved)
}

func TestResolveDotDotFromRootStaysAtRoot(t *testing.T) {
	root := t.TempDir()

	resolved, err := Resolve(root, "/", "..")
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(root), resolved)
}

func TestResolveDotDotWalkClampsToRoot(t *testing.T) {
	root := t.TempDir()

	// A pure ".." overshoot (no symlinks involved) can never actually
	// leave root: the joined path is clamped back to root before any
	// canonicalization happens, the way a real chroot jail clamps every
	// "cd .." once it's at its own root. A genuine escape requires a
	// symlink whose resolved target is outside root
	// (TestResolveSymlinkEscapeRejected).
	resolved, err := Resolve(root, "/", "../../../etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(root), resolved)
}

func TestResolveSymlinkEscapeRejected(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret"), []byte("x"), 0o600))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "escape")))

	_, err := Resolve(root, "/", "/escape/secret")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidDirectory)
}

func TestResolveNonExistentTargetForStor(t *testing.T) {
	root := t.TempDir()

	resolved, err := Resolve(root, "/", "/new-file.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "new-file.txt"), resolved)
}

func TestResolveMissingParentDirectory(t *testing.T) {
	root := t.TempDir()

	_, err := Resolve(root, "/", "/missing-dir/new-file.txt")
	require.Error(t, err)
}

func TestRelative(t *testing.T) {
	root := t.TempDir()
	assert.Equal(t, "/sub/file.txt", Relative(root, filepath.Join(root, "sub", "file.txt")))
	assert.Equal(t, "/", Relative(root, root))
}
