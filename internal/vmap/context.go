// Package vmap compiles client models into collision geometry files and
// writes per-tile placement directories that reference them.
//
// All shared state of one run lives in a RunContext that is passed to every
// extraction call; tiles may be extracted concurrently with the same context.
package vmap

import (
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-vmap/pkg/archive"
)

// Output subdirectories.
const (
	DirectorySubdir = "dir"
)

// RunContext holds the state shared by every extraction call of one run.
// The registry is scoped to OutDir: two runs writing to different output
// directories must use different contexts.
type RunContext struct {
	Source   archive.Source
	OutDir   string
	Log      *zap.Logger
	Registry *Registry
}

// NewRunContext returns a context with an empty registry. A nil logger is
// replaced by a no-op logger.
func NewRunContext(src archive.Source, outDir string, log *zap.Logger) *RunContext {
	if log == nil {
		log = zap.NewNop()
	}
	return &RunContext{
		Source:   src,
		OutDir:   outDir,
		Log:      log,
		Registry: NewRegistry(),
	}
}

// GeometryPath returns the output path of the geometry file for a model.
func (rc *RunContext) GeometryPath(filename string) string {
	return filepath.Join(rc.OutDir, GeometryFileName(filename))
}

// DirectoryPath returns the output path of a tile directory file.
func (rc *RunContext) DirectoryPath(key TileKey) string {
	return filepath.Join(rc.OutDir, DirectorySubdir, key.DirectoryFileName())
}
