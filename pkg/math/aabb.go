package math

// AABB is an axis-aligned bounding box given by its min and max corners.
type AABB struct {
	Min Vec3
	Max Vec3
}

// BoundsOf returns the per-axis min/max over points.
// The second result is false when points is empty.
func BoundsOf(points []Vec3) (AABB, bool) {
	if len(points) == 0 {
		return AABB{}, false
	}
	box := AABB{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		box = box.Extend(p)
	}
	return box, true
}

// Extend returns the smallest box containing both b and p.
func (b AABB) Extend(p Vec3) AABB {
	return AABB{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// Corners returns the eight corners of the box.
func (b AABB) Corners() [8]Vec3 {
	var out [8]Vec3
	for i := 0; i < 8; i++ {
		c := b.Min
		if i&1 != 0 {
			c.X = b.Max.X
		}
		if i&2 != 0 {
			c.Y = b.Max.Y
		}
		if i&4 != 0 {
			c.Z = b.Max.Z
		}
		out[i] = c
	}
	return out
}

// Size returns the box extent along each axis.
func (b AABB) Size() Vec3 {
	return b.Max.Sub(b.Min)
}

// Contains reports whether p lies inside or on the box.
func (b AABB) Contains(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}
