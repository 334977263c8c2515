package irtrack

import "math"

// Vec3 is a 3D point or direction in metres.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Normalize returns v scaled to unit length. The zero vector is returned
// unchanged.
func (v Vec3) Normalize() Vec3 {
	n := v.Norm()
	if n == 0 {
		return v
	}
	return v.Scale(1 / n)
}

// Distance returns the Euclidean distance between v and o.
func (v Vec3) Distance(o Vec3) float64 {
	return v.Sub(o).Norm()
}

// Mat4 is a 4x4 homogeneous rigid transform stored column-major, matching
// the serialized output layout: element (row r, col c) lives at index c*4+r.
type Mat4 [16]float64

// Identity4 returns the identity transform.
func Identity4() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// At returns the element at row r, column c.
func (m Mat4) At(r, c int) float64 { return m[c*4+r] }

// Set assigns the element at row r, column c.
func (m *Mat4) Set(r, c int, v float64) { m[c*4+r] = v }

// Apply transforms the point p by m (rotation plus translation).
func (m Mat4) Apply(p Vec3) Vec3 {
	return Vec3{
		X: m.At(0, 0)*p.X + m.At(0, 1)*p.Y + m.At(0, 2)*p.Z + m.At(0, 3),
		Y: m.At(1, 0)*p.X + m.At(1, 1)*p.Y + m.At(1, 2)*p.Z + m.At(1, 3),
		Z: m.At(2, 0)*p.X + m.At(2, 1)*p.Y + m.At(2, 2)*p.Z + m.At(2, 3),
	}
}

// Mul returns the product m * o.
func (m Mat4) Mul(o Mat4) Mat4 {
	var out Mat4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			var sum float64
			for k := 0; k < 4; k++ {
				sum += m.At(r, k) * o.At(k, c)
			}
			out.Set(r, c, sum)
		}
	}
	return out
}

// IsIdentity reports whether m equals the identity transform exactly.
// The rigid solver returns exact identity as its failure sentinel, so no
// tolerance is applied here.
func (m Mat4) IsIdentity() bool {
	return m == Identity4()
}

// IsRigid reports whether the upper-left 3x3 block is a proper rotation
// (orthonormal, det ≈ 1) and the bottom row is [0 0 0 1].
func (m Mat4) IsRigid() bool {
	const tol = 0.01

	r00, r01, r02 := m.At(0, 0), m.At(0, 1), m.At(0, 2)
	r10, r11, r12 := m.At(1, 0), m.At(1, 1), m.At(1, 2)
	r20, r21, r22 := m.At(2, 0), m.At(2, 1), m.At(2, 2)

	det := r00*(r11*r22-r12*r21) - r01*(r10*r22-r12*r20) + r02*(r10*r21-r11*r20)
	if math.Abs(det-1) > tol {
		return false
	}

	// Rows must be unit length and mutually orthogonal.
	rows := [3][3]float64{
		{r00, r01, r02},
		{r10, r11, r12},
		{r20, r21, r22},
	}
	for i := 0; i < 3; i++ {
		n := rows[i][0]*rows[i][0] + rows[i][1]*rows[i][1] + rows[i][2]*rows[i][2]
		if math.Abs(n-1) > tol {
			return false
		}
		for j := i + 1; j < 3; j++ {
			dot := rows[i][0]*rows[j][0] + rows[i][1]*rows[j][1] + rows[i][2]*rows[j][2]
			if math.Abs(dot) > tol {
				return false
			}
		}
	}

	return m.At(3, 0) == 0 && m.At(3, 1) == 0 && m.At(3, 2) == 0 && m.At(3, 3) == 1
}

// PixelPoint is a sub-pixel image coordinate.
type PixelPoint struct {
	X, Y float64
}
