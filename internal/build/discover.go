package build

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// SourceFile is one file found under the source root.
type SourceFile struct {
	// Path is the absolute path.
	Path string
	// RelativePath is slash-separated and relative to the source root.
	RelativePath string
}

// Inventory lists the documents and assets of a source tree in lexical order.
type Inventory struct {
	Documents []SourceFile
	Assets    []SourceFile
}

// Discover walks root and classifies regular files by extension. Hidden files
// and directories, symlinks, and the output directory when it lies inside root
// are skipped.
func Discover(root, outputDir string, extensions []string) (*Inventory, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDiscovery, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: source root: %w", ErrDiscovery, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: source root %s is not a directory", ErrDiscovery, absRoot)
	}

	absOut := ""
	if outputDir != "" {
		if absOut, err = filepath.Abs(outputDir); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDiscovery, err)
		}
	}

	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		exts[strings.ToLower(e)] = true
	}

	inv := &Inventory{}
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == absRoot {
			return nil
		}
		if isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path == absOut {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return err
		}
		f := SourceFile{Path: path, RelativePath: filepath.ToSlash(rel)}
		if exts[strings.ToLower(filepath.Ext(path))] {
			inv.Documents = append(inv.Documents, f)
		} else {
			inv.Assets = append(inv.Assets, f)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDiscovery, err)
	}
	return inv, nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
