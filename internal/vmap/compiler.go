package vmap

import (
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-vmap/pkg/formats"
	"github.com/Faultbox/midgard-vmap/pkg/math"
)

// GeometryInfo describes one compiled geometry file.
type GeometryInfo struct {
	Source       string    `yaml:"source"`        // normalized model filename
	Name         string    `yaml:"name"`          // geometry file name
	Path         string    `yaml:"-"`             // full output path
	Bounds       math.AABB `yaml:"-"`             // model-space bounding box
	NativeBounds bool      `yaml:"native_bounds"` // box came from bounding vertices
	Vertices     int       `yaml:"vertices"`
	Triangles    int       `yaml:"triangles"`
}

// ModelBounds returns the model's bounding box. It uses the bounding vertices
// when present and falls back to the render vertices otherwise. native
// reports which source was used.
func ModelBounds(m *Model) (box math.AABB, native bool, ok bool) {
	if m.HasBounds() {
		box, ok = math.BoundsOf(m.BoundingVertices)
		return box, true, ok
	}
	box, ok = math.BoundsOf(m.Vertices)
	return box, false, ok
}

// Geometry converts an open model to its on-disk representation.
func (m *Model) Geometry() (*formats.Geometry, bool, error) {
	if !m.OK() {
		return nil, false, ErrModelNotOK
	}
	box, native, ok := ModelBounds(m)
	if !ok {
		return nil, false, modelError(KindMalformed, m.filename, errEmptyModel)
	}
	return &formats.Geometry{
		BoundingBox:      box,
		BoundingVertices: m.BoundingVertices,
		BoundingIndices:  m.BoundingIndices,
		Vertices:         m.Vertices,
		Indices:          m.Indices,
	}, native, nil
}

// CompileModel serializes m to dest. It does not consult the registry; use
// EnsureGeometry for deduplicated compiles.
func CompileModel(m *Model, dest string) (GeometryInfo, error) {
	if !m.OK() {
		return GeometryInfo{}, modelError(KindMalformed, m.Filename(), ErrModelNotOK)
	}
	g, native, err := m.Geometry()
	if err != nil {
		return GeometryInfo{}, err
	}
	data, err := g.MarshalBinary()
	if err != nil {
		return GeometryInfo{}, modelError(KindMalformed, m.filename, err)
	}
	if err := writeFileAtomic(dest, data); err != nil {
		return GeometryInfo{}, modelError(KindWrite, m.filename, err)
	}
	return GeometryInfo{
		Source:       m.filename,
		Name:         filepath.Base(dest),
		Path:         dest,
		Bounds:       g.BoundingBox,
		NativeBounds: native,
		Vertices:     len(g.Vertices),
		Triangles:    g.TriangleCount(),
	}, nil
}

// EnsureGeometry compiles filename once per run. The first caller opens,
// compiles and releases the model; concurrent callers wait for its result and
// later callers reuse it. created reports whether this call wrote the file.
func EnsureGeometry(rc *RunContext, filename string) (info GeometryInfo, created bool, err error) {
	key := ModelKey(filename)

	entry, owner, prev := rc.Registry.claim(key)
	if prev != nil {
		return GeometryInfo{}, false, modelError(prev.kind, key, errPreviouslyFailed)
	}
	if !owner {
		<-entry.done
		return entry.info, false, entry.err
	}

	info, err = compile(rc, key)
	rc.Registry.finish(key, entry, info, err)
	if err != nil {
		return GeometryInfo{}, false, err
	}
	return info, true, nil
}

func compile(rc *RunContext, key string) (GeometryInfo, error) {
	m, err := OpenModel(rc, key)
	if err != nil {
		return GeometryInfo{}, err
	}
	defer m.Release()

	info, err := CompileModel(m, rc.GeometryPath(key))
	if err != nil {
		return GeometryInfo{}, errors.WithMessage(err, "compile")
	}
	rc.Log.Debug("compiled model",
		zap.String("model", key),
		zap.String("file", info.Name),
		zap.Int("vertices", info.Vertices),
		zap.Int("triangles", info.Triangles),
		zap.Bool("native_bounds", info.NativeBounds))
	return info, nil
}
