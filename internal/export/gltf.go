// Package export converts compiled geometry and tile directories to glTF for
// inspection in standard 3-D viewers.
package export

import (
	"fmt"
	"io"
	"os"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/midgard-vmap/internal/vmap"
	"github.com/Faultbox/midgard-vmap/pkg/formats"
	"github.com/Faultbox/midgard-vmap/pkg/math"
)

// Material indices added by newDocument.
const (
	materialRender uint32 = iota
	materialBounds
)

func newDocument() *gltf.Document {
	doc := gltf.NewDocument()
	doc.Materials = append(doc.Materials,
		&gltf.Material{Name: "render", DoubleSided: true},
		&gltf.Material{Name: "bounds", DoubleSided: true},
	)
	return doc
}

// geometryMeshes appends the meshes of g to doc and returns their indices:
// render geometry first, then bounding geometry when present.
func geometryMeshes(doc *gltf.Document, g *formats.Geometry, name string) []uint32 {
	var meshes []uint32
	if len(g.Indices) > 0 {
		meshes = append(meshes, writeMesh(doc, name, g.Vertices, g.Indices, materialRender))
	}
	if g.HasBounds() {
		meshes = append(meshes, writeMesh(doc, name+"_bounds", g.BoundingVertices, g.BoundingIndices, materialBounds))
	}
	return meshes
}

func writeMesh(doc *gltf.Document, name string, vertices []math.Vec3, indices []uint16, material uint32) uint32 {
	positions := make([][3]float32, len(vertices))
	for i, v := range vertices {
		positions[i] = v.Array()
	}
	idx := make([]uint32, len(indices))
	for i, index := range indices {
		idx[i] = uint32(index)
	}

	positionAccessor := modeler.WritePosition(doc, positions)
	indicesAccessor := modeler.WriteIndices(doc, idx)

	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name: name,
		Primitives: []*gltf.Primitive{
			{
				Indices:    gltf.Index(indicesAccessor),
				Attributes: map[string]uint32{"POSITION": positionAccessor},
				Material:   gltf.Index(material),
			},
		},
	})
	return uint32(len(doc.Meshes) - 1)
}

func addNode(doc *gltf.Document, node *gltf.Node) {
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(len(doc.Nodes)))
	doc.Nodes = append(doc.Nodes, node)
}

// GeometryToGLTF builds a document with one node per mesh of g.
func GeometryToGLTF(g *formats.Geometry, name string) (*gltf.Document, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	doc := newDocument()
	for _, mesh := range geometryMeshes(doc, g, name) {
		addNode(doc, &gltf.Node{Name: doc.Meshes[mesh].Name, Mesh: gltf.Index(mesh)})
	}
	return doc, nil
}

// GeometryLoader returns the geometry stored under a geometry file name.
type GeometryLoader func(name string) (*formats.Geometry, error)

// DirectoryToGLTF places every record of a tile directory in one scene. Each
// distinct geometry is written once and shared by the nodes that place it.
func DirectoryToGLTF(dir *formats.Directory, load GeometryLoader) (*gltf.Document, error) {
	doc := newDocument()
	meshes := make(map[string][]uint32)

	for i, rec := range dir.Records {
		ids, ok := meshes[rec.Name]
		if !ok {
			g, err := load(rec.Name)
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
			if err := g.Validate(); err != nil {
				return nil, fmt.Errorf("record %d: %s: %w", i, rec.Name, err)
			}
			ids = geometryMeshes(doc, g, rec.Name)
			meshes[rec.Name] = ids
		}

		m := vmap.InstanceTransform(rec.Position, rec.Rotation, rec.ScaleFactor())
		var matrix [16]float64
		for k := range matrix {
			matrix[k] = float64(m[k])
		}
		for _, mesh := range ids {
			addNode(doc, &gltf.Node{
				Name:   fmt.Sprintf("%d_%s", rec.ModelRef, doc.Meshes[mesh].Name),
				Mesh:   gltf.Index(mesh),
				Matrix: matrix,
			})
		}
	}
	return doc, nil
}

// WriteBinary encodes doc as a binary glTF (.glb) stream.
func WriteBinary(w io.Writer, doc *gltf.Document) error {
	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = true
	return encoder.Encode(doc)
}

// SaveBinary writes doc to a .glb file.
func SaveBinary(path string, doc *gltf.Document) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteBinary(f, doc); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return f.Close()
}
