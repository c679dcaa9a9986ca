package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Faultbox/midgard-vmap/pkg/math"
)

// Geometry file errors.
var (
	ErrInvalidGeometryMagic       = errors.New("invalid geometry magic: expected 'VMAP'")
	ErrUnsupportedGeometryVersion = errors.New("unsupported geometry version")
	ErrTruncatedGeometryData      = errors.New("truncated geometry data")
)

// Geometry file layout constants.
const (
	GeometryMagic      = "VMAP"
	GeometryVersion    = 4
	GeometryHeaderSize = 4 + 4 + 4*4 + 6*4
	GeometryExt        = ".vmo"
)

// geometryHeader is the fixed prefix of a geometry file.
type geometryHeader struct {
	Magic         [4]byte
	Version       uint32
	BBVertexCount uint32
	BBIndexCount  uint32
	VertexCount   uint32
	IndexCount    uint32
	BoundsMin     math.Vec3
	BoundsMax     math.Vec3
}

// Geometry is compiled collision geometry in server coordinates.
// Index counts are counts of uint16 values, three per triangle.
type Geometry struct {
	BoundingBox      math.AABB
	BoundingVertices []math.Vec3
	BoundingIndices  []uint16
	Vertices         []math.Vec3
	Indices          []uint16
}

// TriangleCount returns the number of render triangles.
func (g *Geometry) TriangleCount() int {
	return len(g.Indices) / 3
}

// HasBounds reports whether native bounding geometry is present.
func (g *Geometry) HasBounds() bool {
	return len(g.BoundingVertices) > 0
}

// Validate checks every index against its paired vertex array.
func (g *Geometry) Validate() error {
	if err := ValidateIndices(g.BoundingIndices, len(g.BoundingVertices)); err != nil {
		return fmt.Errorf("bounding geometry: %w", err)
	}
	if err := ValidateIndices(g.Indices, len(g.Vertices)); err != nil {
		return fmt.Errorf("render geometry: %w", err)
	}
	return nil
}

// MarshalBinary encodes the geometry file. It refuses geometry whose indices
// do not fit their vertex arrays.
func (g *Geometry) MarshalBinary() ([]byte, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	h := geometryHeader{
		Version:       GeometryVersion,
		BBVertexCount: uint32(len(g.BoundingVertices)),
		BBIndexCount:  uint32(len(g.BoundingIndices)),
		VertexCount:   uint32(len(g.Vertices)),
		IndexCount:    uint32(len(g.Indices)),
		BoundsMin:     g.BoundingBox.Min,
		BoundsMax:     g.BoundingBox.Max,
	}
	copy(h.Magic[:], GeometryMagic)

	var buf bytes.Buffer
	buf.Grow(GeometryHeaderSize + 12*(len(g.BoundingVertices)+len(g.Vertices)) + 2*(len(g.BoundingIndices)+len(g.Indices)))
	for _, v := range []any{&h, g.BoundingVertices, g.BoundingIndices, g.Vertices, g.Indices} {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// ReadGeometry decodes and validates a geometry file.
func ReadGeometry(data []byte) (*Geometry, error) {
	if len(data) < GeometryHeaderSize {
		return nil, ErrTruncatedGeometryData
	}

	r := bytes.NewReader(data)
	var h geometryHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("%w: reading header", ErrTruncatedGeometryData)
	}
	if string(h.Magic[:]) != GeometryMagic {
		return nil, ErrInvalidGeometryMagic
	}
	if h.Version != GeometryVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedGeometryVersion, h.Version)
	}

	need := uint64(GeometryHeaderSize) +
		12*uint64(h.BBVertexCount) + 2*uint64(h.BBIndexCount) +
		12*uint64(h.VertexCount) + 2*uint64(h.IndexCount)
	if need > uint64(len(data)) {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncatedGeometryData, need, len(data))
	}

	g := &Geometry{BoundingBox: math.AABB{Min: h.BoundsMin, Max: h.BoundsMax}}
	var err error
	if g.BoundingVertices, err = readVec3s(r, h.BBVertexCount); err != nil {
		return nil, fmt.Errorf("%w: reading bounding vertices", ErrTruncatedGeometryData)
	}
	if g.BoundingIndices, err = readUint16s(r, h.BBIndexCount); err != nil {
		return nil, fmt.Errorf("%w: reading bounding indices", ErrTruncatedGeometryData)
	}
	if g.Vertices, err = readVec3s(r, h.VertexCount); err != nil {
		return nil, fmt.Errorf("%w: reading vertices", ErrTruncatedGeometryData)
	}
	if g.Indices, err = readUint16s(r, h.IndexCount); err != nil {
		return nil, fmt.Errorf("%w: reading indices", ErrTruncatedGeometryData)
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// ReadGeometryFile decodes a geometry file from disk.
func ReadGeometryFile(path string) (*Geometry, error) {
	data, err := readFile(path, "geometry")
	if err != nil {
		return nil, err
	}
	return ReadGeometry(data)
}
