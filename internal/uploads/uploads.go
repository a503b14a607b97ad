// Package uploads manages the resume upload directory. Files are stored
// flat under one root; the file's base name is its public identifier.
package uploads

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Dir stores uploads as plain files under a single directory.
type Dir struct {
	root string
}

// NewDir creates the upload directory if needed and returns a store
// rooted at it.
func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Dir{root: root}, nil
}

// Root returns the directory path the store writes into.
func (d *Dir) Root() string { return d.root }

// Save writes data under the file's base name, replacing any previous
// upload with the same name, and returns the stored path.
func (d *Dir) Save(name string, data []byte) (string, error) {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) {
		return "", fmt.Errorf("invalid upload name %q", name)
	}
	path := filepath.Join(d.root, base)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("save upload %s: %w", base, err)
	}
	return path, nil
}

// List returns the base names of all stored uploads in lexical order.
func (d *Dir) List() ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Exists reports whether an upload with the given base name is present.
func (d *Dir) Exists(name string) bool {
	info, err := os.Stat(filepath.Join(d.root, filepath.Base(name)))
	return err == nil && !info.IsDir()
}

// Path returns the full path an upload with the given base name is, or
// would be, stored at.
func (d *Dir) Path(name string) string {
	return filepath.Join(d.root, filepath.Base(name))
}
