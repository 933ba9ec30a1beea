// Package geom provides the small vector-math value types used by the geometry
// wizards: points, vectors, affine transformations and planar polygon loops.
//
// All types are immutable values; every operation returns a new value.
package geom

import (
	"fmt"
	"math"
)

// Tolerance is the distance below which two coordinates are considered equal (m).
const Tolerance = 1e-6

// Point3 is a location in building coordinates (meters).
type Point3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Vector3 is a displacement in building coordinates.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Pt is shorthand for Point3{x, y, z}.
func Pt(x, y, z float64) Point3 { return Point3{X: x, Y: y, Z: z} }

// Vec is shorthand for Vector3{x, y, z}.
func Vec(x, y, z float64) Vector3 { return Vector3{X: x, Y: y, Z: z} }

func (p Point3) String() string { return fmt.Sprintf("(%g, %g, %g)", p.X, p.Y, p.Z) }

// Add displaces p by v.
func (p Point3) Add(v Vector3) Point3 { return Point3{p.X + v.X, p.Y + v.Y, p.Z + v.Z} }

// Sub returns the vector from q to p.
func (p Point3) Sub(q Point3) Vector3 { return Vector3{p.X - q.X, p.Y - q.Y, p.Z - q.Z} }

// Near reports whether p and q are within Tolerance of each other.
func (p Point3) Near(q Point3) bool { return p.Sub(q).Length() <= Tolerance }

// Vector returns the position vector of p.
func (p Point3) Vector() Vector3 { return Vector3(p) }

func (v Vector3) Add(w Vector3) Vector3       { return Vector3{v.X + w.X, v.Y + w.Y, v.Z + w.Z} }
func (v Vector3) Sub(w Vector3) Vector3       { return Vector3{v.X - w.X, v.Y - w.Y, v.Z - w.Z} }
func (v Vector3) Scale(s float64) Vector3     { return Vector3{v.X * s, v.Y * s, v.Z * s} }
func (v Vector3) Dot(w Vector3) float64       { return v.X*w.X + v.Y*w.Y + v.Z*w.Z }
func (v Vector3) Length() float64             { return math.Sqrt(v.Dot(v)) }
func (v Vector3) Reverse() Vector3            { return Vector3{-v.X, -v.Y, -v.Z} }
func (v Vector3) Cross(w Vector3) Vector3 {
	return Vector3{
		v.Y*w.Z - v.Z*w.Y,
		v.Z*w.X - v.X*w.Z,
		v.X*w.Y - v.Y*w.X,
	}
}

// Normalize returns the unit vector along v, or the zero vector if v has no length.
func (v Vector3) Normalize() Vector3 {
	l := v.Length()
	if l <= Tolerance {
		return Vector3{}
	}
	return v.Scale(1 / l)
}

// Transformation is a 4x4 affine matrix in row-major order.
type Transformation struct {
	M [4][4]float64 `json:"matrix"`
}

// Identity returns the identity transformation.
func Identity() Transformation {
	var t Transformation
	for i := range 4 {
		t.M[i][i] = 1
	}
	return t
}

// Translation returns a transformation that displaces points by v.
func Translation(v Vector3) Transformation {
	t := Identity()
	t.M[0][3] = v.X
	t.M[1][3] = v.Y
	t.M[2][3] = v.Z
	return t
}

// RotationZ returns a counter-clockwise rotation about the Z axis.
func RotationZ(degrees float64) Transformation {
	rad := degrees * math.Pi / 180
	c, s := math.Cos(rad), math.Sin(rad)
	t := Identity()
	t.M[0][0], t.M[0][1] = c, -s
	t.M[1][0], t.M[1][1] = s, c
	return t
}

// Mul returns t*u, which applies u first and then t.
func (t Transformation) Mul(u Transformation) Transformation {
	var r Transformation
	for i := range 4 {
		for j := range 4 {
			var sum float64
			for k := range 4 {
				sum += t.M[i][k] * u.M[k][j]
			}
			r.M[i][j] = sum
		}
	}
	return r
}

// Apply maps p through t.
func (t Transformation) Apply(p Point3) Point3 {
	m := t.M
	return Point3{
		X: m[0][0]*p.X + m[0][1]*p.Y + m[0][2]*p.Z + m[0][3],
		Y: m[1][0]*p.X + m[1][1]*p.Y + m[1][2]*p.Z + m[1][3],
		Z: m[2][0]*p.X + m[2][1]*p.Y + m[2][2]*p.Z + m[2][3],
	}
}

// ApplyAll maps every point of loop through t.
func (t Transformation) ApplyAll(loop Polygon) Polygon {
	out := make(Polygon, len(loop))
	for i, p := range loop {
		out[i] = t.Apply(p)
	}
	return out
}

// Inverse returns the inverse of a rigid transformation (rotation + translation).
func (t Transformation) Inverse() Transformation {
	inv := Identity()
	for i := range 3 {
		for j := range 3 {
			inv.M[i][j] = t.M[j][i]
		}
	}
	for i := range 3 {
		inv.M[i][3] = -(inv.M[i][0]*t.M[0][3] + inv.M[i][1]*t.M[1][3] + inv.M[i][2]*t.M[2][3])
	}
	return inv
}

// TranslationPart returns the displacement component of t.
func (t Transformation) TranslationPart() Vector3 {
	return Vector3{t.M[0][3], t.M[1][3], t.M[2][3]}
}
