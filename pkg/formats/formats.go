// Package formats provides parsers and writers for the binary formats the
// extractor reads from client archives and emits for the server:
//
//   - model.go: raw client model records (MD20)
//   - placement.go: per-tile model placement streams (TPLC)
//   - geometry.go: compiled collision geometry files (VMAP)
//   - directory.go: per-tile placement directories (VDIR)
//
// All formats are little endian.
package formats

import (
	"bytes"
	"encoding/binary"
	"fmt"
	gomath "math"
	"os"

	"github.com/Faultbox/midgard-vmap/pkg/math"
)

// readVec3s reads n packed float triples.
func readVec3s(r *bytes.Reader, n uint32) ([]math.Vec3, error) {
	out := make([]math.Vec3, n)
	if err := binary.Read(r, binary.LittleEndian, out); err != nil {
		return nil, err
	}
	return out, nil
}

// readUint16s reads n little-endian uint16 values.
func readUint16s(r *bytes.Reader, n uint32) ([]uint16, error) {
	out := make([]uint16, n)
	if err := binary.Read(r, binary.LittleEndian, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ValidateIndices checks that indices form whole triangles and that every
// index references a vertex in an array of vertexCount elements.
func ValidateIndices(indices []uint16, vertexCount int) error {
	if len(indices)%3 != 0 {
		return fmt.Errorf("%w: %d indices", ErrIncompleteTriangle, len(indices))
	}
	for i, idx := range indices {
		if int(idx) >= vertexCount {
			return fmt.Errorf("%w: index[%d]=%d, vertex count %d", ErrIndexOutOfRange, i, idx, vertexCount)
		}
	}
	return nil
}

func readFile(path, what string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s file: %w", what, err)
	}
	return data, nil
}

func float32frombits(b []byte) float32 {
	return gomath.Float32frombits(binary.LittleEndian.Uint32(b))
}

func float32bits(f float32) uint32 {
	return gomath.Float32bits(f)
}
