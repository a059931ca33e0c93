package build

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	write(t, root, "a.md", "")
	write(t, root, "B.MARKDOWN", "")
	write(t, root, "sub/c.md", "")
	write(t, root, "sub/data.csv", "")
	write(t, root, ".obsidian/x.md", "")
	write(t, root, "_site/old.md", "")
	require.NoError(t, os.Symlink(filepath.Join(root, "a.md"), filepath.Join(root, "link.md")))

	inv, err := Discover(root, filepath.Join(root, "_site"), []string{".md", ".markdown"})
	require.NoError(t, err)

	var docs, assets []string
	for _, d := range inv.Documents {
		docs = append(docs, d.RelativePath)
		require.True(t, filepath.IsAbs(d.Path))
	}
	for _, a := range inv.Assets {
		assets = append(assets, a.RelativePath)
	}
	require.Equal(t, []string{"B.MARKDOWN", "a.md", "sub/c.md"}, docs)
	require.Equal(t, []string{"sub/data.csv"}, assets)
}

func TestDiscover_RootErrors(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "missing"), "", []string{".md"})
	require.ErrorIs(t, err, ErrDiscovery)

	file := filepath.Join(t.TempDir(), "f.md")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = Discover(file, "", []string{".md"})
	require.ErrorIs(t, err, ErrDiscovery)
}
