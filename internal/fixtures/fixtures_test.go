package fixtures

import (
	"bytes"
	"testing"
)

func TestCubeIndices(t *testing.T) {
	idx := CubeIndices()
	if len(idx) != CubeTriangles*3 {
		t.Fatalf("indices = %d, want %d", len(idx), CubeTriangles*3)
	}
	for _, i := range idx {
		if int(i) >= len(CubeVertices) {
			t.Fatalf("index %d out of range", i)
		}
	}
}

func TestByName(t *testing.T) {
	for key := range Names {
		t.Run(key, func(t *testing.T) {
			data, err := ByName(key)
			if err != nil {
				t.Fatalf("ByName(%q): %v", key, err)
			}
			if len(data) == 0 {
				t.Fatal("empty fixture")
			}
		})
	}

	if _, err := ByName("nope"); err == nil {
		t.Error("expected error for unknown fixture")
	}
}

func TestCubeSTL_Size(t *testing.T) {
	if got, want := len(CubeSTL()), 84+CubeTriangles*50; got != want {
		t.Errorf("size = %d, want %d", got, want)
	}
}

func TestCubeGLB_Magic(t *testing.T) {
	data, err := CubeGLB()
	if err != nil {
		t.Fatalf("CubeGLB: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("glTF")) {
		t.Errorf("missing glTF magic: % x", data[:4])
	}
}

func TestTruncate(t *testing.T) {
	data := []byte("abcdef")
	got := Truncate(data)
	if string(got) != "abc" {
		t.Errorf("Truncate = %q", got)
	}
	got[0] = 'x'
	if data[0] != 'a' {
		t.Error("Truncate must copy")
	}
}
