package mathutil

import "math"

// Vec3 is a 3-component vector (value type, stack-allocated).
type Vec3 [3]float64

// V3 builds a Vec3 from float32 components as stored in parsed geometry.
func V3(x, y, z float32) Vec3 {
	return Vec3{float64(x), float64(y), float64(z)}
}

func (a Vec3) Add(b Vec3) Vec3 {
	return Vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

func (a Vec3) Sub(b Vec3) Vec3 {
	return Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func (a Vec3) Dot(b Vec3) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func (v Vec3) Len() float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// TriangleArea returns the area of the triangle spanned by a, b, c.
func TriangleArea(a, b, c Vec3) float64 {
	return b.Sub(a).Cross(c.Sub(a)).Len() * 0.5
}
