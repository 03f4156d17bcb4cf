// Package walk lists the files of a crate directory. The walk is iterative
// with an explicit stack, so directory depth is bounded by memory rather
// than the call stack, and symbolic links to directories are not followed.
package walk

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mesh-intelligence/crates/pkg/types"
)

// Predicate reports whether an entry should be skipped. rel is the
// crate-relative forward-slash path. Skipping a directory skips everything
// below it.
type Predicate func(rel string, d fs.DirEntry) bool

// osArtifacts are files written by desktop environments.
var osArtifacts = map[string]bool{
	".DS_Store":   true,
	"Thumbs.db":   true,
	"desktop.ini": true,
}

// DefaultExclude skips the manifest at the crate root, manifest temp files,
// and operating system artifacts.
func DefaultExclude(rel string, d fs.DirEntry) bool {
	name := d.Name()
	if rel == types.ManifestFileName {
		return true
	}
	if osArtifacts[name] || strings.HasPrefix(name, "._") {
		return true
	}
	return strings.HasPrefix(name, ".ro-crate-metadata-") && strings.HasSuffix(name, ".tmp")
}

// Walk returns every file below root that exclude does not skip, as sorted
// crate-relative forward-slash paths. A nil exclude keeps everything.
func Walk(root string, exclude Predicate) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", types.ErrInvalidPath, root)
	}

	var files []string
	stack := []string{""}
	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(filepath.Join(root, filepath.FromSlash(dir)))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path.Join(".", dir), err)
		}
		for _, d := range entries {
			rel := path.Join(dir, d.Name())
			if exclude != nil && exclude(rel, d) {
				continue
			}
			if d.IsDir() {
				stack = append(stack, rel)
				continue
			}
			files = append(files, rel)
		}
	}

	sort.Strings(files)
	return files, nil
}

// Status is a crate file and whether an entity describes it.
type Status struct {
	Path       string `json:"path"`
	Registered bool   `json:"registered"`
}

// Mark pairs each walked file with whether it appears in registered, the
// normalized contentUrls of the crate's entities.
func Mark(files, registered []string) []Status {
	known := make(map[string]bool, len(registered))
	for _, r := range registered {
		known[r] = true
	}
	out := make([]Status, len(files))
	for i, f := range files {
		out[i] = Status{Path: f, Registered: known[f]}
	}
	return out
}
