package source

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// Resolver locates and loads a Unit named by a .include directive. fromDir is
// the directory of the unit containing the .include, searched before any
// configured include directory (spec §6: includes are resolved relative to
// the including file first).
type Resolver interface {
	Resolve(fromDir, path string) (*Unit, error)
}

// ResolverFunc adapts a plain function to a Resolver.
type ResolverFunc func(fromDir, path string) (*Unit, error)

func (f ResolverFunc) Resolve(fromDir, path string) (*Unit, error) { return f(fromDir, path) }

// NotFoundError reports that an .include path could not be resolved in any
// searched directory.
type NotFoundError struct {
	Path string
	Dirs []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("include %q not found (searched %v)", e.Path, e.Dirs)
}

// FileResolver resolves .include paths against the filesystem: first the
// including file's own directory, then each of IncludeDirs in order. A path
// containing doublestar glob magic is expanded and the first lexically
// smallest match is used, so plain paths and wildcard includes share one
// code path.
type FileResolver struct {
	IncludeDirs []string
}

var _ Resolver = (*FileResolver)(nil)

func (r *FileResolver) Resolve(fromDir, path string) (*Unit, error) {
	searched := make([]string, 0, len(r.IncludeDirs)+1)
	dirs := append([]string{fromDir}, r.IncludeDirs...)
	for _, dir := range dirs {
		searched = append(searched, dir)
		match, err := r.find(dir, path)
		if err != nil {
			return nil, err
		}
		if match == "" {
			continue
		}
		data, err := os.ReadFile(match)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("reading %s: %w", match, err)
		}
		return NewUnit(match, match, data), nil
	}
	return nil, &NotFoundError{Path: path, Dirs: searched}
}

// find resolves path within dir, returning "" if nothing matches. Plain
// paths are checked with os.Stat directly; only paths containing glob magic
// pay for a directory walk.
func (r *FileResolver) find(dir, path string) (string, error) {
	full := filepath.Join(dir, path)
	if !doublestar.ValidatePattern(path) || !hasMeta(path) {
		if _, err := os.Stat(full); err == nil {
			return full, nil
		}
		return "", nil
	}
	matches, err := doublestar.Glob(os.DirFS(dir), path)
	if err != nil {
		return "", fmt.Errorf("invalid include pattern %q: %w", path, err)
	}
	if len(matches) == 0 {
		return "", nil
	}
	return filepath.Join(dir, matches[0]), nil
}

func hasMeta(path string) bool {
	for _, c := range path {
		switch c {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}

// Accessor adapts an io.ReadCloser-returning function (e.g. http.FS, or a
// test fixture map) into a Resolver, for callers that don't want a real
// filesystem. Grounded on the teacher's SourceResolver.Accessor field.
type Accessor func(path string) (io.ReadCloser, error)

// AccessorResolver resolves every path through a single Accessor, ignoring
// fromDir. Useful for embedding a fixed set of units (tests, embed.FS).
type AccessorResolver struct {
	Access Accessor
}

var _ Resolver = (*AccessorResolver)(nil)

func (r *AccessorResolver) Resolve(_, path string) (*Unit, error) {
	rc, err := r.Access(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Path: path}
		}
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return NewUnit(path, path, data), nil
}
