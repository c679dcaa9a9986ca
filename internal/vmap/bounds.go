package vmap

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-vmap/pkg/math"
)

// InstanceTransform builds the model-to-world matrix of a placement.
// Rotation is in degrees and applied as Z(rot.Y) * Y(rot.X) * X(rot.Z),
// followed by the uniform scale, then translation to pos.
func InstanceTransform(pos, rot math.Vec3, scale float32) mgl32.Mat4 {
	rz := mgl32.HomogRotate3DZ(mgl32.DegToRad(rot.Y))
	ry := mgl32.HomogRotate3DY(mgl32.DegToRad(rot.X))
	rx := mgl32.HomogRotate3DX(mgl32.DegToRad(rot.Z))
	return mgl32.Translate3D(pos.X, pos.Y, pos.Z).
		Mul4(rz).Mul4(ry).Mul4(rx).
		Mul4(mgl32.Scale3D(scale, scale, scale))
}

// WorldBounds transforms the corners of a model-space box and returns the
// axis-aligned box around them.
func WorldBounds(box math.AABB, transform mgl32.Mat4) math.AABB {
	corners := box.Corners()
	out := make([]math.Vec3, 0, len(corners))
	for _, c := range corners {
		w := mgl32.TransformCoordinate(mgl32.Vec3{c.X, c.Y, c.Z}, transform)
		out = append(out, math.Vec3{X: w[0], Y: w[1], Z: w[2]})
	}
	world, _ := math.BoundsOf(out)
	return world
}
