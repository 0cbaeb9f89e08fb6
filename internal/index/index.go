// Package index builds the set of offer ids present in a directory, derived
// from file name stems. It is used for both the produced-video directory and
// the source-image directory.
package index

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrDirectoryMissing is returned when the indexed directory does not exist.
// It distinguishes "never ran" from "ran and produced nothing".
var ErrDirectoryMissing = errors.New("directory missing")

// Index is an immutable mapping from offer id to file path. It is safe for
// concurrent reads once built.
type Index struct {
	dir   string
	files map[string]string
}

// Empty returns an index with no entries for dir.
func Empty(dir string) *Index {
	return &Index{dir: dir, files: map[string]string{}}
}

// Build lists the regular files of dir and maps each file name, minus its
// last extension, to the file. Hidden files are skipped; they are in-flight
// temporary outputs. When two files share a stem the first in lexical order
// wins.
func Build(dir string) (*Index, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDirectoryMissing, dir)
		}
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}

	idx := &Index{dir: dir, files: make(map[string]string, len(entries))}
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || strings.HasPrefix(name, ".") {
			continue
		}
		id := strings.TrimSuffix(name, filepath.Ext(name))
		if id == "" {
			continue
		}
		if _, dup := idx.files[id]; dup {
			continue
		}
		idx.files[id] = name
	}
	return idx, nil
}

// Dir returns the indexed directory.
func (i *Index) Dir() string { return i.dir }

// Len returns the number of distinct ids.
func (i *Index) Len() int { return len(i.files) }

// Has reports whether id has a file.
func (i *Index) Has(id string) bool {
	_, ok := i.files[id]
	return ok
}

// Path returns the full path of the file for id.
func (i *Index) Path(id string) (string, bool) {
	name, ok := i.files[id]
	if !ok {
		return "", false
	}
	return filepath.Join(i.dir, name), true
}
