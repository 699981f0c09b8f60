// Package scene defines the decoded scene graph shared by every format
// decoder: a tree of transformed nodes holding drawable primitives.
package scene

import (
	"errors"
	"fmt"

	"github.com/Faultbox/meshview/pkg/math"
)

// MaxDepth bounds node nesting so a malformed hierarchy cannot recurse forever.
const MaxDepth = 256

// ErrTooDeep is returned by Walk when a graph nests deeper than MaxDepth.
var ErrTooDeep = errors.New("scene graph nests too deep")

// SourceMaterial is what the file authored for a primitive. The viewer applies
// one global material, so this is informational only.
type SourceMaterial struct {
	Name      string
	BaseColor [4]float32
	HasColor  bool
}

// Primitive is one drawable (geometry, material) pair.
type Primitive struct {
	Geometry *Geometry
	Material SourceMaterial
}

// Node is a scene graph node. Transform is relative to the parent.
type Node struct {
	Name       string
	Transform  math.Mat4
	Primitives []Primitive
	Children   []*Node
}

// NewNode creates a node with an identity transform.
func NewNode(name string) *Node {
	return &Node{Name: name, Transform: math.Identity()}
}

// AddChild appends c and returns it.
func (n *Node) AddChild(c *Node) *Node {
	n.Children = append(n.Children, c)
	return c
}

// AddPrimitive attaches a drawable to the node.
func (n *Node) AddPrimitive(g *Geometry, m SourceMaterial) {
	n.Primitives = append(n.Primitives, Primitive{Geometry: g, Material: m})
}

// Graph is a decoded scene. It is never patched after decoding; a new upload
// produces a new Graph.
type Graph struct {
	Name   string
	Format string
	Root   *Node
	// Animated is set when the source carried animation the viewer ignores.
	Animated bool
}

// NewGraph creates a graph with an empty root node.
func NewGraph(name, format string) *Graph {
	return &Graph{Name: name, Format: format, Root: NewNode(name)}
}

// WalkFunc is called for every node with its world transform.
type WalkFunc func(n *Node, world math.Mat4) error

// Walk visits nodes depth-first, parents before children.
func (g *Graph) Walk(fn WalkFunc) error {
	if g == nil || g.Root == nil {
		return nil
	}
	return walk(g.Root, math.Identity(), 0, fn)
}

func walk(n *Node, parent math.Mat4, depth int, fn WalkFunc) error {
	if depth > MaxDepth {
		return fmt.Errorf("%w: node %q at depth %d", ErrTooDeep, n.Name, depth)
	}
	world := parent.Mul(n.Transform)
	if err := fn(n, world); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := walk(c, world, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}

// Stats summarizes a graph.
type Stats struct {
	Nodes      int
	Primitives int
	Vertices   int
	Triangles  int
}

// Stats counts nodes, primitives, vertices and triangles.
func (g *Graph) Stats() Stats {
	var s Stats
	g.Walk(func(n *Node, _ math.Mat4) error {
		s.Nodes++
		for _, p := range n.Primitives {
			if p.Geometry == nil {
				continue
			}
			s.Primitives++
			s.Vertices += len(p.Geometry.Positions)
			s.Triangles += p.Geometry.TriangleCount()
		}
		return nil
	})
	return s
}

// TriangleCount returns the number of triangles in the graph.
func (g *Graph) TriangleCount() int {
	return g.Stats().Triangles
}

// Validate checks every primitive's geometry and the nesting depth.
func (g *Graph) Validate() error {
	return g.Walk(func(n *Node, _ math.Mat4) error {
		for i, p := range n.Primitives {
			if p.Geometry == nil {
				return fmt.Errorf("node %q primitive %d: no geometry", n.Name, i)
			}
			if err := p.Geometry.Validate(); err != nil {
				return fmt.Errorf("node %q primitive %d: %w", n.Name, i, err)
			}
		}
		return nil
	})
}
