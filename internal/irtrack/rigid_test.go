package irtrack

import (
	"math"
	"testing"
)

func applyAll(m Mat4, pts []Vec3) []Vec3 {
	out := make([]Vec3, len(pts))
	for i, p := range pts {
		out[i] = m.Apply(p)
	}
	return out
}

func matNear(t *testing.T, got, want Mat4, tol float64) {
	t.Helper()
	for i := range got {
		if math.Abs(got[i]-want[i]) > tol {
			t.Fatalf("matrix differs at index %d: got %v, want %v\ngot  %v\nwant %v", i, got[i], want[i], got, want)
		}
	}
}

func TestComputeRigidTransformRecoversPose(t *testing.T) {
	src := []Vec3{
		{X: 0, Y: 0, Z: 0},
		{X: 0.05, Y: 0, Z: 0},
		{X: 0, Y: 0.08, Z: 0},
		{X: 0.03, Y: 0.04, Z: 0.06},
	}
	want := RotationZPose(0.7, Vec3{X: 0.1, Y: -0.2, Z: 0.5})
	dst := applyAll(want, src)

	got := ComputeRigidTransform(src, dst)
	matNear(t, got, want, 1e-9)

	if !got.IsRigid() {
		t.Error("recovered transform should be rigid")
	}
}

func TestComputeRigidTransformTranslationOnly(t *testing.T) {
	src := []Vec3{
		{X: 0, Y: 0, Z: 0},
		{X: 0.1, Y: 0, Z: 0},
		{X: 0, Y: 0.1, Z: 0},
	}
	want := TranslationPose(Vec3{X: -0.02, Y: 0.03, Z: 0.8})
	dst := applyAll(want, src)

	got := ComputeRigidTransform(src, dst)
	matNear(t, got, want, 1e-9)
}

func TestComputeRigidTransformDegenerateInputs(t *testing.T) {
	pts := []Vec3{{X: 1}, {X: 2}}

	if got := ComputeRigidTransform(pts, pts); !got.IsIdentity() {
		t.Error("fewer than three points should yield the identity sentinel")
	}
	if got := ComputeRigidTransform(pts, []Vec3{{X: 1}}); !got.IsIdentity() {
		t.Error("mismatched point counts should yield the identity sentinel")
	}
	if got := ComputeRigidTransform(nil, nil); !got.IsIdentity() {
		t.Error("empty inputs should yield the identity sentinel")
	}
}

// A point set and its mirror image must not produce a reflection: the
// solver flips the sign to return a proper rotation.
func TestComputeRigidTransformNoReflection(t *testing.T) {
	src := []Vec3{
		{X: 0, Y: 0, Z: 0},
		{X: 0.05, Y: 0, Z: 0},
		{X: 0, Y: 0.08, Z: 0},
		{X: 0.02, Y: 0.02, Z: 0.05},
	}
	dst := make([]Vec3, len(src))
	for i, p := range src {
		dst[i] = Vec3{X: p.X, Y: p.Y, Z: -p.Z} // mirrored through the XY plane
	}

	got := ComputeRigidTransform(src, dst)
	// 3x3 determinant of the rotation block must be +1
	det := got.At(0, 0)*(got.At(1, 1)*got.At(2, 2)-got.At(1, 2)*got.At(2, 1)) -
		got.At(0, 1)*(got.At(1, 0)*got.At(2, 2)-got.At(1, 2)*got.At(2, 0)) +
		got.At(0, 2)*(got.At(1, 0)*got.At(2, 1)-got.At(1, 1)*got.At(2, 0))
	if math.Abs(det-1) > 1e-9 {
		t.Errorf("rotation determinant = %v, want +1", det)
	}
}
