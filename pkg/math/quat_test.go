package math

import (
	"math"
	"testing"
)

func TestQuatIdentity(t *testing.T) {
	q := QuatIdentity()
	if q.X != 0 || q.Y != 0 || q.Z != 0 || q.W != 1 {
		t.Errorf("Identity quaternion should be (0,0,0,1), got (%v,%v,%v,%v)", q.X, q.Y, q.Z, q.W)
	}
	if q.ToMat4() != Identity() {
		t.Error("identity quaternion should produce identity matrix")
	}
}

func TestQuatNormalize(t *testing.T) {
	n := Quat{X: 1, Y: 2, Z: 3, W: 4}.Normalize()
	length := float32(math.Sqrt(float64(n.X*n.X + n.Y*n.Y + n.Z*n.Z + n.W*n.W)))
	if !near(length, 1) {
		t.Errorf("Normalized quaternion length should be 1, got %v", length)
	}
}

func TestQuatFromEulerMatchesAxisAngle(t *testing.T) {
	a := QuatFromEulerXYZ(0, 90, 0).ToMat4()
	b := RotateY(float32(math.Pi / 2))
	for i := range a {
		if !near(a[i], b[i]) {
			t.Fatalf("element %d: euler %f, axis %f", i, a[i], b[i])
		}
	}
}
