// Package math provides the vector, bounding box and axis-convention types
// shared by the model reader, the geometry compiler and the placement extractor.
package math

// Vec3 is a 3D vector.
type Vec3 struct {
	X, Y, Z float32
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{v.X - other.X, v.Y - other.Y, v.Z - other.Z}
}

// Min returns the per-axis minimum of v and other.
func (v Vec3) Min(other Vec3) Vec3 {
	return Vec3{min(v.X, other.X), min(v.Y, other.Y), min(v.Z, other.Z)}
}

// Max returns the per-axis maximum of v and other.
func (v Vec3) Max(other Vec3) Vec3 {
	return Vec3{max(v.X, other.X), max(v.Y, other.Y), max(v.Z, other.Z)}
}

// Component returns the i-th coordinate (0 = X, 1 = Y, 2 = Z).
func (v Vec3) Component(i int) float32 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// Array returns the vector as a [3]float32.
func (v Vec3) Array() [3]float32 {
	return [3]float32{v.X, v.Y, v.Z}
}

// FromArray builds a Vec3 from a [3]float32.
func FromArray(a [3]float32) Vec3 {
	return Vec3{a[0], a[1], a[2]}
}
