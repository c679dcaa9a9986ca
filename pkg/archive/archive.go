// Package archive resolves logical model paths to raw bytes across GRF
// archives and loose data directories.
package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/Faultbox/midgard-vmap/pkg/encoding"
	"github.com/Faultbox/midgard-vmap/pkg/grf"
)

// ErrNotFound is returned when no source can resolve a path.
var ErrNotFound = errors.New("path not found in any archive")

// Source is a read-only store of files addressed by logical path.
// Implementations must be safe for concurrent use.
type Source interface {
	Contains(path string) bool
	Read(path string) ([]byte, error)
	List() []string
}

// Multi searches its sources in order; earlier sources win.
type Multi struct {
	sources []Source
	closers []func() error
}

// NewMulti returns a Multi over sources.
func NewMulti(sources ...Source) *Multi {
	return &Multi{sources: sources}
}

// Open opens every GRF archive and loose directory and returns them as one
// source. Directories take priority over archives so loose patches override
// packed data.
func Open(grfPaths, dirs []string) (*Multi, error) {
	m := &Multi{}
	for _, d := range dirs {
		dir, err := NewDir(d)
		if err != nil {
			m.Close()
			return nil, err
		}
		m.sources = append(m.sources, dir)
	}
	for _, p := range grfPaths {
		a, err := grf.Open(p)
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("opening %s: %w", p, err)
		}
		m.sources = append(m.sources, a)
		m.closers = append(m.closers, a.Close)
	}
	return m, nil
}

// Close releases every opened archive.
func (m *Multi) Close() error {
	var first error
	for _, c := range m.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	m.closers = nil
	return first
}

// Len returns the number of sources.
func (m *Multi) Len() int {
	return len(m.sources)
}

// Contains reports whether any source holds path.
func (m *Multi) Contains(path string) bool {
	for _, s := range m.sources {
		if s.Contains(path) {
			return true
		}
	}
	return false
}

// Read returns the content of path from the first source holding it.
func (m *Multi) Read(path string) ([]byte, error) {
	for _, s := range m.sources {
		if s.Contains(path) {
			return s.Read(path)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
}

// List returns the sorted union of all source listings.
func (m *Multi) List() []string {
	seen := make(map[string]struct{})
	for _, s := range m.sources {
		for _, p := range s.List() {
			seen[encoding.NormalizeModelPath(p)] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Dir serves files from a directory tree on disk. Lookups are
// case-insensitive; the tree is indexed once when the Dir is created.
type Dir struct {
	root  string
	index map[string]string
}

// NewDir indexes root.
func NewDir(root string) (*Dir, error) {
	d := &Dir{root: root, index: make(map[string]string)}
	err := filepath.WalkDir(root, func(p string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if e.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		d.index[encoding.NormalizeModelPath(filepath.ToSlash(rel))] = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("indexing %s: %w", root, err)
	}
	return d, nil
}

// Contains reports whether path exists under the root.
func (d *Dir) Contains(path string) bool {
	_, ok := d.index[encoding.NormalizeModelPath(path)]
	return ok
}

// Read reads path from disk.
func (d *Dir) Read(path string) ([]byte, error) {
	full, ok := d.index[encoding.NormalizeModelPath(path)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return os.ReadFile(full)
}

// List returns every indexed path.
func (d *Dir) List() []string {
	out := make([]string, 0, len(d.index))
	for p := range d.index {
		out = append(out, p)
	}
	return out
}

// IsNotFound reports whether err means the path does not exist in a source.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, grf.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}

// Memory is an in-memory Source keyed by normalized path.
type Memory map[string][]byte

// Contains reports whether path is present.
func (m Memory) Contains(path string) bool {
	_, ok := m[encoding.NormalizeModelPath(path)]
	return ok
}

// Read returns the stored bytes for path.
func (m Memory) Read(path string) ([]byte, error) {
	data, ok := m[encoding.NormalizeModelPath(path)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return data, nil
}

// List returns every stored path.
func (m Memory) List() []string {
	out := make([]string, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	return out
}

// Put stores data under the normalized form of path.
func (m Memory) Put(path string, data []byte) {
	m[encoding.NormalizeModelPath(path)] = data
}
