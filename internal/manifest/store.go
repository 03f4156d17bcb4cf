// Package manifest loads and persists the crate manifest document
// (ro-crate-metadata.json). The manifest is read in full, mutated in memory
// by the caller, and written back in full with an atomic temp-file, fsync,
// rename sequence so a failed write never leaves a half-written manifest.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/crates/internal/guid"
	"github.com/mesh-intelligence/crates/pkg/types"
)

// Store reads and writes manifests. It holds no crate state of its own.
type Store struct {
	minter *guid.Minter
	logger zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithMinter sets the minter used for root entity ids.
func WithMinter(m *guid.Minter) Option {
	return func(s *Store) {
		s.minter = m
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// New returns a Store. Without WithMinter it uses the default minter.
func New(options ...Option) *Store {
	s := &Store{logger: zerolog.Nop()}
	for _, option := range options {
		option(s)
	}
	if s.minter == nil {
		s.minter, _ = guid.New()
	}
	return s
}

// Path returns the manifest path for a crate directory.
func Path(cratePath string) string {
	return filepath.Join(cratePath, types.ManifestFileName)
}

// Exists reports whether the crate directory holds a manifest.
func Exists(cratePath string) bool {
	info, err := os.Stat(Path(cratePath))
	return err == nil && !info.IsDir()
}

// Load reads and parses the manifest. It returns a NotInitializedError
// when the manifest is absent and a CorruptManifestError when it cannot be
// parsed or lacks the @graph array.
func (s *Store) Load(cratePath string) (*types.Graph, error) {
	path := Path(cratePath)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &types.NotInitializedError{Path: cratePath}
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	g := &types.Graph{}
	if err := json.Unmarshal(data, g); err != nil {
		return nil, &types.CorruptManifestError{Path: path, Err: err}
	}

	s.logger.Debug().Str("path", path).Int("entities", g.Len()).Msg("manifest loaded")
	return g, nil
}

// Save serializes the graph and atomically replaces the manifest.
func (s *Store) Save(cratePath string, g *types.Graph) error {
	data, err := Encode(g)
	if err != nil {
		return err
	}
	path := Path(cratePath)
	if err := writeAtomic(path, data); err != nil {
		return err
	}

	s.logger.Debug().Str("path", path).Int("entities", g.Len()).Msg("manifest saved")
	return nil
}

// Init writes a new manifest holding a single root entity into an existing
// directory. It fails with AlreadyInitializedError if a manifest exists.
func (s *Store) Init(cratePath string, attrs types.CrateAttrs) (*types.Graph, error) {
	if err := attrs.Validate(); err != nil {
		return nil, err
	}

	info, err := os.Stat(cratePath)
	if err != nil {
		return nil, fmt.Errorf("crate directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", types.ErrInvalidPath, cratePath)
	}

	if _, err := os.Stat(Path(cratePath)); err == nil {
		return nil, &types.AlreadyInitializedError{Path: cratePath}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("checking manifest: %w", err)
	}

	root, err := s.rootEntity(attrs)
	if err != nil {
		return nil, err
	}

	g := types.NewGraph()
	g.PackageType = attrs.PackageType
	g.Append(root)

	if err := s.Save(cratePath, g); err != nil {
		return nil, err
	}

	s.logger.Info().Str("crate", cratePath).Str("id", root.ID).Msg("crate initialized")
	return g, nil
}

// Create is Init for a path that may not exist yet; the directory is
// created first.
func (s *Store) Create(cratePath string, attrs types.CrateAttrs) (*types.Graph, error) {
	if err := attrs.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cratePath, 0o755); err != nil {
		return nil, fmt.Errorf("creating crate directory: %w", err)
	}
	return s.Init(cratePath, attrs)
}

func (s *Store) rootEntity(attrs types.CrateAttrs) (*types.Entity, error) {
	id := attrs.GUID
	if id == "" {
		var err error
		if id, err = s.minter.Mint(types.KindRoot, attrs.Name, nil); err != nil {
			return nil, err
		}
	}

	root := types.NewEntity(id, attrs.Name, types.RootTypes...)
	root.Set(types.PropSourceOrganization, attrs.Organization)
	root.Set(types.PropIsPartOf, attrs.Project)
	root.Set(types.PropDescription, attrs.Description)
	root.Set(types.PropKeywords, stringList(attrs.Keywords))
	return root, nil
}

// Encode renders the manifest as indented JSON with a trailing newline.
func Encode(g *types.Graph) ([]byte, error) {
	raw, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, fmt.Errorf("indenting manifest: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// writeAtomic writes data next to path and renames it into place.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".ro-crate-metadata-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing manifest: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("setting manifest mode: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// stringList converts keywords to the decoded-JSON list form kept in Props.
func stringList(items []string) []any {
	list := make([]any, 0, len(items))
	for _, item := range items {
		list = append(list, item)
	}
	return list
}
