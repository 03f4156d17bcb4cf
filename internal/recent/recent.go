// Package recent keeps the crates a user opened most recently, newest
// first, in a small YAML file in the config directory.
package recent

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// FileName is the file written in the config directory.
const FileName = "recent.yaml"

// DefaultLimit is the number of crates remembered.
const DefaultLimit = 5

type document struct {
	Crates []string `yaml:"crates"`
}

// List is a bounded, de-duplicated list of crate paths, newest first.
type List struct {
	path  string
	limit int
	items []string
}

// Load reads the list stored at path. A missing file is an empty list.
func Load(path string, limit int) (*List, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	l := &List{path: path, limit: limit}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading recent crates: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	for i := len(doc.Crates) - 1; i >= 0; i-- {
		if doc.Crates[i] != "" {
			l.Add(doc.Crates[i])
		}
	}
	return l, nil
}

// Items returns the paths, newest first.
func (l *List) Items() []string {
	return slices.Clone(l.items)
}

// Add moves p to the front, dropping the oldest entry beyond the limit.
func (l *List) Add(p string) {
	p = filepath.Clean(p)
	l.Remove(p)
	l.items = append([]string{p}, l.items...)
	if len(l.items) > l.limit {
		l.items = l.items[:l.limit]
	}
}

// Remove drops p if present.
func (l *List) Remove(p string) {
	p = filepath.Clean(p)
	l.items = slices.DeleteFunc(l.items, func(item string) bool { return item == p })
}

// Save writes the list, creating the config directory if needed.
func (l *List) Save() error {
	data, err := yaml.Marshal(document{Crates: l.items})
	if err != nil {
		return fmt.Errorf("encoding recent crates: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing recent crates: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing recent crates: %w", err)
	}
	return nil
}
