package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Faultbox/midgard-vmap/pkg/math"
)

// Model format errors.
var (
	ErrInvalidModelMagic       = errors.New("invalid model magic: expected 'MD20'")
	ErrUnsupportedModelVersion = errors.New("unsupported model version")
	ErrTruncatedModelData      = errors.New("truncated model data")
	ErrArrayOutOfRange         = errors.New("model array outside of blob")
	ErrIncompleteTriangle      = errors.New("index count is not a multiple of 3")
	ErrIndexOutOfRange         = errors.New("index references missing vertex")
)

// Model record layout constants.
const (
	ModelMagic      = "MD20"
	ModelHeaderSize = 40

	// BoundingVertexSize is a packed position (3 x float32).
	BoundingVertexSize = 12
	// ModelVertexSize is a full render vertex: position, 4 bone weights,
	// 4 bone indices, normal and two UV sets. Only the position is used.
	ModelVertexSize = 48
	IndexSize       = 2
)

// ModelVersion is the format revision stored in the header.
type ModelVersion uint32

// Supported model versions.
const (
	ModelVersionClassic ModelVersion = 256
	ModelVersionMax     ModelVersion = 264
)

// String returns the version as a decimal number.
func (v ModelVersion) String() string {
	return fmt.Sprintf("%d", uint32(v))
}

// Supported reports whether the reader understands v.
func (v ModelVersion) Supported() bool {
	return v >= ModelVersionClassic && v <= ModelVersionMax
}

// ModelHeader is the fixed header at the start of a model record.
type ModelHeader struct {
	Magic               [4]byte
	Version             ModelVersion
	NBoundingVertices   uint32
	OfsBoundingVertices uint32
	NBoundingIndices    uint32
	OfsBoundingIndices  uint32
	NVertices           uint32
	OfsVertices         uint32
	NIndices            uint32
	OfsIndices          uint32
}

// HasBounds reports whether the model ships precomputed bounding geometry.
func (h ModelHeader) HasBounds() bool {
	return h.NBoundingVertices > 0 && h.NBoundingIndices > 0
}

// Validate checks that every declared array lies inside a blob of size bytes
// and that index arrays describe whole triangles.
func (h ModelHeader) Validate(size int) error {
	arrays := []struct {
		name   string
		count  uint32
		offset uint32
		stride uint64
	}{
		{"bounding vertices", h.NBoundingVertices, h.OfsBoundingVertices, BoundingVertexSize},
		{"bounding indices", h.NBoundingIndices, h.OfsBoundingIndices, IndexSize},
		{"vertices", h.NVertices, h.OfsVertices, ModelVertexSize},
		{"indices", h.NIndices, h.OfsIndices, IndexSize},
	}
	for _, a := range arrays {
		if a.count == 0 {
			continue
		}
		end := uint64(a.offset) + uint64(a.count)*a.stride
		if uint64(a.offset) < ModelHeaderSize || end > uint64(size) {
			return fmt.Errorf("%w: %s [%d, %d) of %d bytes", ErrArrayOutOfRange, a.name, a.offset, end, size)
		}
	}
	if h.NBoundingIndices%3 != 0 {
		return fmt.Errorf("%w: %d bounding indices", ErrIncompleteTriangle, h.NBoundingIndices)
	}
	if h.NIndices%3 != 0 {
		return fmt.Errorf("%w: %d indices", ErrIncompleteTriangle, h.NIndices)
	}
	return nil
}

// RawModel is a parsed model record. Positions are in client axis order.
type RawModel struct {
	Header           ModelHeader
	BoundingVertices []math.Vec3
	BoundingIndices  []uint16
	Vertices         []math.Vec3
	Indices          []uint16
}

// ParseModelHeader reads and checks the fixed header.
func ParseModelHeader(data []byte) (ModelHeader, error) {
	var h ModelHeader
	if len(data) < ModelHeaderSize {
		return h, ErrTruncatedModelData
	}
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &h); err != nil {
		return h, fmt.Errorf("%w: reading header", ErrTruncatedModelData)
	}
	if string(h.Magic[:]) != ModelMagic {
		return h, ErrInvalidModelMagic
	}
	if !h.Version.Supported() {
		return h, fmt.Errorf("%w: %s", ErrUnsupportedModelVersion, h.Version)
	}
	return h, nil
}

// ParseModel parses a model record and validates every index against its
// paired vertex array.
func ParseModel(data []byte) (*RawModel, error) {
	h, err := ParseModelHeader(data)
	if err != nil {
		return nil, err
	}
	if err := h.Validate(len(data)); err != nil {
		return nil, err
	}

	m := &RawModel{Header: h}
	r := bytes.NewReader(data)

	if h.NBoundingVertices > 0 {
		r.Seek(int64(h.OfsBoundingVertices), 0)
		if m.BoundingVertices, err = readVec3s(r, h.NBoundingVertices); err != nil {
			return nil, fmt.Errorf("%w: reading bounding vertices", ErrTruncatedModelData)
		}
	}
	if h.NBoundingIndices > 0 {
		r.Seek(int64(h.OfsBoundingIndices), 0)
		if m.BoundingIndices, err = readUint16s(r, h.NBoundingIndices); err != nil {
			return nil, fmt.Errorf("%w: reading bounding indices", ErrTruncatedModelData)
		}
	}
	if h.NVertices > 0 {
		m.Vertices = make([]math.Vec3, h.NVertices)
		for i := uint32(0); i < h.NVertices; i++ {
			off := int(h.OfsVertices) + int(i)*ModelVertexSize
			m.Vertices[i] = math.Vec3{
				X: float32frombits(data[off:]),
				Y: float32frombits(data[off+4:]),
				Z: float32frombits(data[off+8:]),
			}
		}
	}
	if h.NIndices > 0 {
		r.Seek(int64(h.OfsIndices), 0)
		if m.Indices, err = readUint16s(r, h.NIndices); err != nil {
			return nil, fmt.Errorf("%w: reading indices", ErrTruncatedModelData)
		}
	}

	if err := ValidateIndices(m.BoundingIndices, len(m.BoundingVertices)); err != nil {
		return nil, fmt.Errorf("bounding geometry: %w", err)
	}
	if err := ValidateIndices(m.Indices, len(m.Vertices)); err != nil {
		return nil, fmt.Errorf("render geometry: %w", err)
	}

	return m, nil
}

// EncodeModel lays out a model record: header, bounding vertices, bounding
// indices, render vertices (48-byte records) and render indices.
func EncodeModel(version ModelVersion, m *RawModel) []byte {
	h := ModelHeader{
		Version:           version,
		NBoundingVertices: uint32(len(m.BoundingVertices)),
		NBoundingIndices:  uint32(len(m.BoundingIndices)),
		NVertices:         uint32(len(m.Vertices)),
		NIndices:          uint32(len(m.Indices)),
	}
	copy(h.Magic[:], ModelMagic)

	offset := uint32(ModelHeaderSize)
	h.OfsBoundingVertices = offset
	offset += h.NBoundingVertices * BoundingVertexSize
	h.OfsBoundingIndices = offset
	offset += h.NBoundingIndices * IndexSize
	h.OfsVertices = offset
	offset += h.NVertices * ModelVertexSize
	h.OfsIndices = offset

	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, &h)
	binary.Write(&buf, binary.LittleEndian, m.BoundingVertices)
	binary.Write(&buf, binary.LittleEndian, m.BoundingIndices)
	for _, v := range m.Vertices {
		var rec [ModelVertexSize]byte
		binary.LittleEndian.PutUint32(rec[0:], float32bits(v.X))
		binary.LittleEndian.PutUint32(rec[4:], float32bits(v.Y))
		binary.LittleEndian.PutUint32(rec[8:], float32bits(v.Z))
		// Full weight on bone 0.
		rec[12] = 255
		buf.Write(rec[:])
	}
	binary.Write(&buf, binary.LittleEndian, m.Indices)
	return buf.Bytes()
}
