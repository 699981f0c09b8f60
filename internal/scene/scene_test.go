package scene

import (
	"errors"
	"reflect"
	"testing"

	"github.com/Faultbox/meshview/pkg/math"
)

func triangle() *Geometry {
	return &Geometry{
		Positions: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Indices:   []uint32{0, 1, 2},
	}
}

func TestGraph_WalkComposesTransforms(t *testing.T) {
	g := NewGraph("root", "test")
	child := g.Root.AddChild(NewNode("child"))
	child.Transform = math.Translate(1, 0, 0)
	grandchild := child.AddChild(NewNode("grandchild"))
	grandchild.Transform = math.Translate(0, 2, 0)

	var order []string
	var last math.Mat4
	err := g.Walk(func(n *Node, world math.Mat4) error {
		order = append(order, n.Name)
		last = world
		return nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	if want := []string{"root", "child", "grandchild"}; !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
	if got := last.TransformPoint([3]float32{0, 0, 0}); got != [3]float32{1, 2, 0} {
		t.Errorf("grandchild origin = %v, want [1 2 0]", got)
	}
}

func TestGraph_WalkStopsOnError(t *testing.T) {
	g := NewGraph("root", "test")
	g.Root.AddChild(NewNode("a"))
	g.Root.AddChild(NewNode("b"))

	stop := errors.New("stop")
	visited := 0
	err := g.Walk(func(n *Node, _ math.Mat4) error {
		visited++
		if n.Name == "a" {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Errorf("err = %v, want stop", err)
	}
	if visited != 2 {
		t.Errorf("visited = %d, want 2", visited)
	}
}

func TestGraph_WalkDepthLimit(t *testing.T) {
	g := NewGraph("root", "test")
	n := g.Root
	for i := 0; i < MaxDepth+1; i++ {
		n = n.AddChild(NewNode("n"))
	}
	if err := g.Walk(func(*Node, math.Mat4) error { return nil }); !errors.Is(err, ErrTooDeep) {
		t.Errorf("err = %v, want ErrTooDeep", err)
	}
}

func TestGraph_Stats(t *testing.T) {
	g := NewGraph("root", "test")
	g.Root.AddPrimitive(triangle(), SourceMaterial{})
	c := g.Root.AddChild(NewNode("c"))
	c.AddPrimitive(triangle(), SourceMaterial{})
	c.AddPrimitive(triangle(), SourceMaterial{})

	want := Stats{Nodes: 2, Primitives: 3, Vertices: 9, Triangles: 3}
	if got := g.Stats(); got != want {
		t.Errorf("Stats = %+v, want %+v", got, want)
	}
	if g.TriangleCount() != 3 {
		t.Errorf("TriangleCount = %d", g.TriangleCount())
	}
}

func TestNilGraphWalk(t *testing.T) {
	var g *Graph
	if err := g.Walk(func(*Node, math.Mat4) error { return errors.New("called") }); err != nil {
		t.Errorf("nil graph walk: %v", err)
	}
}

func TestGeometry_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(g *Geometry)
		wantErr bool
	}{
		{"valid", func(*Geometry) {}, false},
		{"partial triangle", func(g *Geometry) { g.Indices = g.Indices[:2] }, true},
		{"index out of range", func(g *Geometry) { g.Indices[2] = 3 }, true},
		{"normal count", func(g *Geometry) { g.Normals = [][3]float32{{0, 0, 1}} }, true},
		{"nan position", func(g *Geometry) { g.Positions[0][0] = float32(nan()) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := triangle()
			tt.mutate(g)
			err := g.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidGeometry) {
				t.Errorf("err = %v, want ErrInvalidGeometry", err)
			}
		})
	}
}

func nan() float64 {
	zero := 0.0
	return zero / zero
}

func TestGraph_ValidateMissingGeometry(t *testing.T) {
	g := NewGraph("root", "test")
	g.Root.Primitives = append(g.Root.Primitives, Primitive{})
	if err := g.Validate(); err == nil {
		t.Error("expected error for primitive without geometry")
	}
}

func TestGeometry_ComputeNormals(t *testing.T) {
	g := triangle()
	g.ComputeNormals()
	for i, n := range g.Normals {
		if n != [3]float32{0, 0, 1} {
			t.Errorf("normal %d = %v, want +Z", i, n)
		}
	}
}

func TestWeld(t *testing.T) {
	soup := [][3]float32{
		{0, 0, 0}, {1, 0, 0}, {0, 1, 0},
		{1, 0, 0}, {1, 1, 0}, {0, 1, 0},
	}
	g := Weld(soup)
	if len(g.Positions) != 4 {
		t.Errorf("positions = %d, want 4", len(g.Positions))
	}
	if !reflect.DeepEqual(g.Indices, []uint32{0, 1, 2, 1, 3, 2}) {
		t.Errorf("indices = %v", g.Indices)
	}
}

func TestPlaceholder_Deterministic(t *testing.T) {
	a, b := Placeholder(), Placeholder()
	if !reflect.DeepEqual(a, b) {
		t.Error("placeholder differs between calls")
	}
	if a.TriangleCount() != 8 {
		t.Errorf("triangles = %d, want 8", a.TriangleCount())
	}
	if err := a.Validate(); err != nil {
		t.Errorf("placeholder invalid: %v", err)
	}
}

func TestBoxWireframe(t *testing.T) {
	v := BoxWireframe([3]float32{-1, -2, -3}, [3]float32{1, 2, 3})
	if len(v) != BoxWireframeVertexCount*3 {
		t.Fatalf("floats = %d, want %d", len(v), BoxWireframeVertexCount*3)
	}
	for i := 0; i < len(v); i += 3 {
		if v[i] != -1 && v[i] != 1 || v[i+1] != -2 && v[i+1] != 2 || v[i+2] != -3 && v[i+2] != 3 {
			t.Fatalf("vertex %d = %v not a box corner", i/3, v[i:i+3])
		}
	}
}
