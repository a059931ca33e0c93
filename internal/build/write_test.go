package build

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteFile_ReplacesTargetWithoutLeftovers(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "guide", "page.md")

	require.NoError(t, writeFile(target, []byte("first\n")))
	require.NoError(t, writeFile(target, []byte("second\n")))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, "second\n", string(data))

	info, err := os.Stat(target)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(target))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "page.md", entries[0].Name())
}

func TestWriteFile_FailureWrapsErrWrite(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := writeFile(filepath.Join(blocker, "page.md"), []byte("x"))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrWrite))
}
