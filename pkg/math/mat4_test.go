package math

import (
	"math"
	"testing"
)

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}

func TestIdentity(t *testing.T) {
	m := Identity()
	if m[0] != 1 || m[5] != 1 || m[10] != 1 || m[15] != 1 {
		t.Error("Identity diagonal should be 1")
	}
	if m[1] != 0 || m[4] != 0 {
		t.Error("Identity off-diagonal should be 0")
	}
}

func TestMulIdentity(t *testing.T) {
	m := Translate(1, 2, 3)
	if got := m.Mul(Identity()); got != m {
		t.Errorf("M * I = %v, want %v", got, m)
	}
}

func TestTransformPoint(t *testing.T) {
	m := Translate(10, 20, 30)
	got := m.TransformPoint([3]float32{1, 2, 3})
	if want := [3]float32{11, 22, 33}; got != want {
		t.Errorf("TransformPoint: got %v, want %v", got, want)
	}
}

func TestRotateY90(t *testing.T) {
	m := RotateY(float32(math.Pi / 2))
	result := m.TransformPoint([3]float32{1, 0, 0})
	if !near(result[0], 0) || !near(result[2], -1) {
		t.Errorf("RotateY(90): got %v, want ~(0,0,-1)", result)
	}
}

func TestFromTRS(t *testing.T) {
	m := FromTRS(Vec3{1, 0, 0}, QuatIdentity(), Vec3{2, 2, 2})
	got := m.TransformPoint([3]float32{1, 1, 1})
	if want := [3]float32{3, 2, 2}; got != want {
		t.Errorf("FromTRS point: got %v, want %v", got, want)
	}
}

func TestLookAtCentersTarget(t *testing.T) {
	view := LookAt(Vec3{0, 0, 10}, Vec3{}, Vec3{0, 1, 0})
	p := view.TransformPoint([3]float32{0, 0, 0})
	if !near(p[0], 0) || !near(p[1], 0) || !near(p[2], -10) {
		t.Errorf("origin in view space = %v, want (0,0,-10)", p)
	}
}

func TestPerspectiveProjectsCenter(t *testing.T) {
	proj := Perspective(float32(math.Pi/4), 1, 0.1, 100)
	ndc := proj.TransformPoint([3]float32{0, 0, -10})
	if !near(ndc[0], 0) || !near(ndc[1], 0) {
		t.Errorf("center projected off-axis: %v", ndc)
	}
	if ndc[2] <= -1 || ndc[2] >= 1 {
		t.Errorf("depth %f outside the clip volume", ndc[2])
	}
}

func TestDet3(t *testing.T) {
	if got := Identity().Det3(); got != 1 {
		t.Errorf("identity det = %v, want 1", got)
	}
	if got := Scale(1, -1, 1).Det3(); got != -1 {
		t.Errorf("mirror det = %v, want -1", got)
	}
	if got := Scale(2, 3, 4).Mul(Translate(5, 6, 7)).Det3(); got != 24 {
		t.Errorf("scaled det = %v, want 24", got)
	}
}

func TestFromMat3(t *testing.T) {
	m := FromMat3([9]float32{0, 1, 0, -1, 0, 0, 0, 0, 1})
	if got := m.TransformPoint([3]float32{1, 0, 0}); !near(got[0], 0) || !near(got[1], 1) {
		t.Errorf("rotated x axis = %v, want [0 1 0]", got)
	}
}
