package vmap

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/Faultbox/midgard-vmap/pkg/archive"
	"github.com/Faultbox/midgard-vmap/pkg/formats"
	"github.com/Faultbox/midgard-vmap/pkg/math"
)

// countingSource counts reads per path.
type countingSource struct {
	archive.Memory
	mu    sync.Mutex
	reads map[string]int
	total atomic.Int64
}

func newCountingSource() *countingSource {
	return &countingSource{Memory: archive.Memory{}, reads: make(map[string]int)}
}

func (s *countingSource) Read(path string) ([]byte, error) {
	s.total.Add(1)
	s.mu.Lock()
	s.reads[path]++
	s.mu.Unlock()
	return s.Memory.Read(path)
}

func (s *countingSource) readsOf(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads[path]
}

// failingSource holds every path it is asked about but fails to read it.
type failingSource struct {
	err error
}

func (s failingSource) Contains(string) bool { return true }

func (s failingSource) Read(path string) ([]byte, error) {
	return nil, fmt.Errorf("reading %s: %w", path, s.err)
}

func (s failingSource) List() []string { return nil }

func newTestContext(t *testing.T, src archive.Source) *RunContext {
	t.Helper()
	return NewRunContext(src, t.TempDir(), zaptest.NewLogger(t))
}

// triangleModel has one render triangle and no bounding geometry.
func triangleModel() *formats.RawModel {
	return &formats.RawModel{
		Vertices: []math.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}},
		Indices:  []uint16{0, 1, 2},
	}
}

// boxModel has render geometry and a separate two-vertex bounding shape.
func boxModel() *formats.RawModel {
	return &formats.RawModel{
		BoundingVertices: []math.Vec3{{X: -2, Y: -3, Z: -4}, {X: 2, Y: 3, Z: 4}, {X: 0, Y: 0, Z: 4}},
		BoundingIndices:  []uint16{0, 1, 2},
		Vertices:         []math.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}},
		Indices:          []uint16{0, 2, 1},
	}
}

func encodeModel(m *formats.RawModel) []byte {
	return formats.EncodeModel(264, m)
}

func encodeStream(t *testing.T, names []string, recs []formats.PlacementRecord) []byte {
	t.Helper()
	s := &formats.PlacementStream{Names: names, Records: recs}
	data, err := s.MarshalBinary()
	if err != nil {
		t.Fatalf("encoding stream: %v", err)
	}
	return data
}

func placement(nameIndex, uniqueID uint32, pos [3]float32) formats.PlacementRecord {
	return formats.PlacementRecord{
		NameIndex: nameIndex,
		UniqueID:  uniqueID,
		Position:  pos,
		Scale:     formats.ScaleUnit,
	}
}
