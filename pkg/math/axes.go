package math

// Axes is a signed permutation of the three coordinate axes. Output axis i
// takes input axis Perm[i] multiplied by Sign[i].
//
// Axes values convert between the client's authoring convention and the
// server's world convention. They are total: NaN and Inf pass through.
type Axes struct {
	Name string
	Perm [3]int
	Sign [3]float32
}

// ModelAxes converts model-local client coordinates (x, y, z) to server
// coordinates (x, z, -y). It is applied once to every model vertex right
// after the model is parsed.
var ModelAxes = Axes{
	Name: "model",
	Perm: [3]int{0, 2, 1},
	Sign: [3]float32{1, 1, -1},
}

// PlacementAxes converts world placement positions (x, y, z) from the
// client's tile streams to server coordinates (z, x, y).
var PlacementAxes = Axes{
	Name: "placement",
	Perm: [3]int{2, 0, 1},
	Sign: [3]float32{1, 1, 1},
}

// Apply maps a client-space position to server space.
func (a Axes) Apply(v Vec3) Vec3 {
	return Vec3{
		a.Sign[0] * v.Component(a.Perm[0]),
		a.Sign[1] * v.Component(a.Perm[1]),
		a.Sign[2] * v.Component(a.Perm[2]),
	}
}

// Inverse maps a server-space position back to client space.
func (a Axes) Inverse(v Vec3) Vec3 {
	var out [3]float32
	out[a.Perm[0]] = a.Sign[0] * v.X
	out[a.Perm[1]] = a.Sign[1] * v.Y
	out[a.Perm[2]] = a.Sign[2] * v.Z
	return FromArray(out)
}

// ApplyAll normalizes every point in place.
func (a Axes) ApplyAll(points []Vec3) {
	for i := range points {
		points[i] = a.Apply(points[i])
	}
}

// Determinant returns +1 for a proper rotation and -1 for a reflection.
// Reflections reverse triangle winding.
func (a Axes) Determinant() float32 {
	d := a.Sign[0] * a.Sign[1] * a.Sign[2]
	inversions := 0
	for i := 0; i < 3; i++ {
		for j := i + 1; j < 3; j++ {
			if a.Perm[i] > a.Perm[j] {
				inversions++
			}
		}
	}
	if inversions%2 == 1 {
		d = -d
	}
	return d
}
