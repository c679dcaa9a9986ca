package vmap

import (
	"path"
	"strings"

	"github.com/Faultbox/midgard-vmap/pkg/archive"
	"github.com/Faultbox/midgard-vmap/pkg/encoding"
	"github.com/Faultbox/midgard-vmap/pkg/formats"
	"github.com/Faultbox/midgard-vmap/pkg/math"
)

// Model is a parsed model in server coordinates. It exclusively owns its
// arrays; Release drops all of them together.
type Model struct {
	Header           formats.ModelHeader
	BoundingVertices []math.Vec3
	BoundingIndices  []uint16
	Vertices         []math.Vec3
	Indices          []uint16

	filename string
	ok       bool
}

// Filename returns the normalized source filename.
func (m *Model) Filename() string {
	return m.filename
}

// OK reports whether the model parsed and validated successfully.
func (m *Model) OK() bool {
	return m != nil && m.ok
}

// HasBounds reports whether the model ships its own bounding vertices.
func (m *Model) HasBounds() bool {
	return len(m.BoundingVertices) > 0
}

// Release drops the vertex and index arrays and marks the model not ok.
func (m *Model) Release() {
	if m == nil {
		return
	}
	m.BoundingVertices = nil
	m.BoundingIndices = nil
	m.Vertices = nil
	m.Indices = nil
	m.ok = false
}

// ModelKey normalizes a model filename for lookup and deduplication.
func ModelKey(filename string) string {
	return encoding.NormalizeModelPath(formats.FixModelExtension(filename))
}

// GeometryFileName derives the geometry file name from a model filename:
// directory separators become underscores and the extension becomes .vmo.
func GeometryFileName(filename string) string {
	key := ModelKey(filename)
	key = strings.TrimSuffix(key, path.Ext(key))
	return strings.ReplaceAll(key, "/", "_") + formats.GeometryExt
}

// OpenModel reads and validates a model from the run's archive.
//
// Paths already in the failed-paths set fail immediately without touching the
// archive. A path the archive cannot locate fails with ErrResolution. A
// located entry that cannot be read, or a structurally invalid record, fails
// with ErrMalformedModel. Both are recorded in the failed-paths set. Every vertex is converted with math.ModelAxes exactly once
// before OpenModel returns.
//
// The returned model is never nil. On error it is not ok and holds no arrays.
func OpenModel(rc *RunContext, filename string) (*Model, error) {
	key := ModelKey(filename)
	m := &Model{filename: key}

	if kind, failed := rc.Registry.Failed(key); failed {
		return m, modelError(kind, key, errPreviouslyFailed)
	}

	data, err := rc.Source.Read(key)
	if err != nil {
		kind := KindMalformed
		if archive.IsNotFound(err) {
			kind = KindResolution
		}
		merr := modelError(kind, key, err)
		rc.Registry.MarkFailed(key, kind, merr)
		return m, merr
	}

	raw, err := formats.ParseModel(data)
	if err != nil {
		merr := modelError(KindMalformed, key, err)
		rc.Registry.MarkFailed(key, KindMalformed, merr)
		return m, merr
	}
	if len(raw.Indices) == 0 && len(raw.BoundingIndices) == 0 {
		merr := modelError(KindMalformed, key, errEmptyModel)
		rc.Registry.MarkFailed(key, KindMalformed, merr)
		return m, merr
	}

	math.ModelAxes.ApplyAll(raw.BoundingVertices)
	math.ModelAxes.ApplyAll(raw.Vertices)

	m.Header = raw.Header
	m.BoundingVertices = raw.BoundingVertices
	m.BoundingIndices = raw.BoundingIndices
	m.Vertices = raw.Vertices
	m.Indices = raw.Indices
	m.ok = true
	return m, nil
}
