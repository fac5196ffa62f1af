// Package catalog enumerates the images under the configured folder in
// a stable, configurable order. The scan happens once at startup;
// identifiers are slash-separated paths relative to the folder root and
// double as the datastore keys.
package catalog

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/picrate/picrate/apperr"
	"github.com/picrate/picrate/utils"
)

type Catalog struct {
	root  string
	paths []string
	index map[string]int
}

// Scan walks root recursively, collects supported image files and
// orders them by sortOrder. A missing folder, a non-directory, or a
// folder without a single image is ErrInvalidConfig: the tool has
// nothing to annotate and refuses to start.
func Scan(root, sortOrder string) (*Catalog, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: images folder %s does not exist", apperr.ErrInvalidConfig, root)
		}
		return nil, fmt.Errorf("failed to stat images folder %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: images folder %s is not a directory", apperr.ErrInvalidConfig, root)
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if !utils.IsRasterImage(d.Name()) {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan images folder %s: %w", root, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: images folder %s contains no images", apperr.ErrInvalidConfig, root)
	}

	sortPaths(root, paths, sortOrder)

	index := make(map[string]int, len(paths))
	for i, p := range paths {
		index[p] = i
	}

	return &Catalog{root: root, paths: paths, index: index}, nil
}

func (c *Catalog) Len() int { return len(c.paths) }

// Paths returns the ordered identifiers; callers must not mutate the slice.
func (c *Catalog) Paths() []string { return c.paths }

// At returns the identifier at position i; i must be in [0, Len).
func (c *Catalog) At(i int) string { return c.paths[i] }

// IndexOf returns the position of an identifier in the catalog order.
func (c *Catalog) IndexOf(path string) (int, bool) {
	i, ok := c.index[path]
	return i, ok
}

// AbsPath resolves an identifier to its on-disk location under the root.
func (c *Catalog) AbsPath(rel string) string {
	return filepath.Join(c.root, filepath.FromSlash(rel))
}

func (c *Catalog) Root() string { return c.root }
