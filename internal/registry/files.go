package registry

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mesh-intelligence/crates/pkg/types"
)

// contentPath turns a source file reference into the contentUrl form and
// checks that the file exists inside the crate. An absolute path inside the
// crate directory is made crate-relative first. An absolute path naming a
// file outside the crate is rejected; one that names nothing on disk is read
// as crate-relative with a leading slash.
func (r *Registry) contentPath(source string) (string, error) {
	ref := strings.TrimPrefix(strings.TrimSpace(source), "file://")
	if filepath.IsAbs(ref) {
		if rel, ok := r.within(ref); ok {
			ref = rel
		} else if _, err := os.Stat(ref); err == nil {
			return "", fmt.Errorf("%w: %q", types.ErrInvalidPath, source)
		}
	}

	rel := types.NormalizePath(ref)
	if rel == "" || rel == "." {
		return "", &types.MissingFieldError{Kind: types.KindUnknown, Field: "sourceFilepath"}
	}
	if types.EscapesRoot(rel) {
		return "", fmt.Errorf("%w: %q", types.ErrInvalidPath, source)
	}

	info, err := os.Stat(r.abs(rel))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &types.FileNotFoundError{Path: rel}
		}
		return "", fmt.Errorf("checking %s: %w", rel, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %q is a directory", types.ErrInvalidPath, rel)
	}
	return rel, nil
}

// within returns p relative to the crate root when p lies inside it.
func (r *Registry) within(p string) (string, bool) {
	rel, err := filepath.Rel(r.root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

func (r *Registry) abs(rel string) string {
	return filepath.Join(r.root, filepath.FromSlash(rel))
}

// destinationPath normalizes the crate-relative target of an add.
func destinationPath(destination string) (string, error) {
	rel := types.NormalizePath(destination)
	if rel == "" || rel == "." {
		return "", &types.MissingFieldError{Kind: types.KindUnknown, Field: "destinationFilepath"}
	}
	if types.EscapesRoot(rel) {
		return "", fmt.Errorf("%w: %q", types.ErrInvalidPath, destination)
	}
	return rel, nil
}

// withCopy stages cs against the current manifest, copies sourcePath to
// rel inside the crate, then commits cs. Nothing is copied when staging
// fails; when the commit fails the copy and the directories made for it
// are removed. The caller holds mu.
func (r *Registry) withCopy(sourcePath, rel string, cs []candidate) (string, error) {
	if _, _, err := r.stage(cs); err != nil {
		return "", err
	}

	dst := r.abs(rel)
	created, err := copyFile(sourcePath, dst)
	if err != nil {
		return "", err
	}

	id, err := r.commit(cs...)
	if err != nil {
		r.removeCopy(dst, created)
		return "", err
	}
	r.logger.Debug().Str("source", sourcePath).Str("destination", rel).Msg("file copied into crate")
	return id, nil
}

// removeCopy deletes a copied file and the directories created for it,
// deepest first.
func (r *Registry) removeCopy(dst string, created []string) {
	if err := os.Remove(dst); err != nil {
		r.logger.Warn().Err(err).Str("path", dst).Msg("failed to remove copied file")
	}
	removeDirs(created)
}

func removeDirs(dirs []string) {
	for _, dir := range dirs {
		os.Remove(dir)
	}
}

// mkdirParents creates dir and its missing parents. It returns the
// directories it created, deepest first.
func mkdirParents(dir string) ([]string, error) {
	var missing []string
	for d := dir; ; d = filepath.Dir(d) {
		if _, err := os.Stat(d); err == nil || !errors.Is(err, fs.ErrNotExist) {
			break
		}
		missing = append(missing, d)
		if filepath.Dir(d) == d {
			break
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		removeDirs(missing)
		return nil, err
	}
	return missing, nil
}

// copyFile copies src to dst, creating parent directories, and returns the
// directories it created. It fails with ErrDestinationExists rather than
// overwrite dst, and with a FileNotFoundError when src is missing. On
// failure nothing it created is left behind.
func copyFile(src, dst string) ([]string, error) {
	in, err := os.Open(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &types.FileNotFoundError{Path: src}
		}
		return nil, fmt.Errorf("opening source: %w", err)
	}
	defer in.Close()

	if info, err := in.Stat(); err != nil {
		return nil, fmt.Errorf("checking source: %w", err)
	} else if info.IsDir() {
		return nil, fmt.Errorf("%w: %q is a directory", types.ErrInvalidPath, src)
	}

	created, err := mkdirParents(filepath.Dir(dst))
	if err != nil {
		return nil, fmt.Errorf("creating destination directory: %w", err)
	}
	fail := func(err error) ([]string, error) {
		removeDirs(created)
		return nil, err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fail(fmt.Errorf("%w: %s", types.ErrDestinationExists, dst))
		}
		return fail(fmt.Errorf("creating destination: %w", err))
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fail(fmt.Errorf("copying file: %w", err))
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(dst)
		return fail(fmt.Errorf("syncing destination: %w", err))
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return fail(fmt.Errorf("closing destination: %w", err))
	}
	return created, nil
}
