package irtrack

import (
	"math"
	"testing"
)

func TestMat4ColumnMajorLayout(t *testing.T) {
	var m Mat4
	m.Set(1, 3, 42)
	// column-major: element (r=1, c=3) lives at index c*4+r
	if m[13] != 42 {
		t.Errorf("expected element (1,3) at flat index 13, got layout %v", m)
	}
	if m.At(1, 3) != 42 {
		t.Errorf("At(1,3) = %v, want 42", m.At(1, 3))
	}
}

func TestMat4Apply(t *testing.T) {
	m := Identity4()
	m.Set(0, 3, 1)
	m.Set(1, 3, -2)
	m.Set(2, 3, 3)

	got := m.Apply(Vec3{X: 10, Y: 20, Z: 30})
	want := Vec3{X: 11, Y: 18, Z: 33}
	if got != want {
		t.Errorf("Apply = %+v, want %+v", got, want)
	}
}

func TestMat4MulIdentity(t *testing.T) {
	m := RotationZPose(0.3, Vec3{X: 0.1, Y: 0.2, Z: 0.3})
	got := m.Mul(Identity4())
	for i := range got {
		if math.Abs(got[i]-m[i]) > 1e-12 {
			t.Fatalf("m * I differs from m at index %d: %v vs %v", i, got[i], m[i])
		}
	}
}

func TestIsIdentity(t *testing.T) {
	if !Identity4().IsIdentity() {
		t.Error("Identity4 should report identity")
	}
	m := Identity4()
	m.Set(0, 3, 1e-9)
	if m.IsIdentity() {
		t.Error("perturbed matrix should not report identity")
	}
}

func TestVec3Helpers(t *testing.T) {
	a := Vec3{X: 3, Y: 0, Z: 4}
	if got := a.Norm(); got != 5 {
		t.Errorf("Norm = %v, want 5", got)
	}
	if got := a.Distance(Vec3{X: 3, Y: 0, Z: 0}); got != 4 {
		t.Errorf("Distance = %v, want 4", got)
	}
	n := a.Normalize()
	if math.Abs(n.Norm()-1) > 1e-12 {
		t.Errorf("Normalize().Norm() = %v, want 1", n.Norm())
	}
}
