// Shared helpers for crate CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/mesh-intelligence/crates/internal/doi"
	"github.com/mesh-intelligence/crates/internal/guid"
	"github.com/mesh-intelligence/crates/internal/manifest"
	"github.com/mesh-intelligence/crates/internal/paths"
	"github.com/mesh-intelligence/crates/internal/recent"
	"github.com/mesh-intelligence/crates/internal/registry"
	"github.com/mesh-intelligence/crates/pkg/types"
)

// cratePath resolves the crate directory for this invocation.
func (e *env) cratePath() (string, error) {
	p, err := paths.ResolveCratePath(e.flags.crate, e.cfg.GetString(cfgKeyCrate))
	if err != nil {
		return "", fmt.Errorf("resolve crate path: %w", err)
	}
	return p, nil
}

func (e *env) minter() (*guid.Minter, error) {
	return guid.New(
		guid.WithNAAN(e.cfg.GetString(cfgKeyNAAN)),
		guid.WithStrategy(e.cfg.GetString(cfgKeyGUIDStrategy)),
	)
}

func (e *env) store() (*manifest.Store, error) {
	m, err := e.minter()
	if err != nil {
		return nil, err
	}
	return manifest.New(manifest.WithMinter(m), manifest.WithLogger(e.logger)), nil
}

// openRegistry opens the resolved crate and records it as recently used.
func (e *env) openRegistry() (*registry.Registry, error) {
	p, err := e.cratePath()
	if err != nil {
		return nil, err
	}
	m, err := e.minter()
	if err != nil {
		return nil, err
	}
	reg, err := registry.Open(p, registry.WithMinter(m), registry.WithLogger(e.logger))
	if err != nil {
		return nil, err
	}
	e.remember(reg.Path())
	return reg, nil
}

func (e *env) doiClient() *doi.Client {
	return doi.NewClient(
		doi.WithCrossRefURL(e.cfg.GetString(cfgKeyCrossRefURL)),
		doi.WithDataCiteURL(e.cfg.GetString(cfgKeyDataCiteURL)),
		doi.WithTimeout(e.cfg.GetDuration(cfgKeyDOITimeout)),
		doi.WithLogger(e.logger),
	)
}

func (e *env) recentList() (*recent.List, error) {
	return recent.Load(filepath.Join(e.configDir, recent.FileName), recent.DefaultLimit)
}

// remember moves cratePath to the front of the recent list. Failures are
// logged and otherwise ignored.
func (e *env) remember(cratePath string) {
	l, err := e.recentList()
	if err == nil {
		l.Add(cratePath)
		err = l.Save()
	}
	if err != nil {
		e.logger.Warn().Err(err).Str("crate", cratePath).Msg("cannot update recent crates")
	}
}

// printID writes the id of a committed entity.
func (e *env) printID(w io.Writer, id string) error {
	if e.flags.jsonMode {
		return printJSON(w, map[string]string{"id": id})
	}
	_, err := fmt.Fprintln(w, id)
	return err
}

// usageErrorf reports a flag combination the command cannot act on.
func usageErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{types.ErrInvalidValue}, args...)...)
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
