package material

import (
	"github.com/Faultbox/meshview/internal/clip"
	"github.com/Faultbox/meshview/internal/scene"
	"github.com/Faultbox/meshview/pkg/math"
)

// Item is one drawable primitive flattened out of the scene tree.
type Item struct {
	Node     string
	World    math.Mat4
	Geometry *scene.Geometry
	Source   scene.SourceMaterial
}

// RenderableScene is a decoded graph flattened into an arena of items, with
// the material of each item held in a parallel side table. Parameter edits
// rewrite the side table only.
type RenderableScene struct {
	Graph    *scene.Graph
	Items    []Item
	States   []State
	Params   Parameters
	Revision uint64
}

// Normalize flattens g and applies p to every primitive. The global override
// policy applies: authored source colors are ignored.
func Normalize(g *scene.Graph, p Parameters) (*RenderableScene, error) {
	rs := &RenderableScene{Graph: g}
	err := g.Walk(func(n *scene.Node, world math.Mat4) error {
		for _, prim := range n.Primitives {
			rs.Items = append(rs.Items, Item{
				Node:     n.Name,
				World:    world,
				Geometry: prim.Geometry,
				Source:   prim.Material,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	rs.States = make([]State, len(rs.Items))
	rs.Apply(p)
	return rs, nil
}

// Apply writes the state for p into every side-table slot. It reports whether
// anything changed; applying the same parameters twice is a no-op.
func (rs *RenderableScene) Apply(p Parameters) bool {
	p = p.Sanitize()
	st := StateFor(p)
	changed := false
	for i := range rs.States {
		if rs.States[i] != st {
			rs.States[i] = st
			changed = true
		}
	}
	rs.Params = p
	if changed {
		rs.Revision++
	}
	return changed
}

// Triangles returns the triangle count across all items.
func (rs *RenderableScene) Triangles() int {
	n := 0
	for _, it := range rs.Items {
		n += it.Geometry.TriangleCount()
	}
	return n
}

// Normalizer keeps the current parameters and the scene they apply to.
type Normalizer struct {
	params Parameters
	scene  *RenderableScene
}

// NewNormalizer starts with p and no scene.
func NewNormalizer(p Parameters) *Normalizer {
	return &Normalizer{params: p.Sanitize()}
}

// Install normalizes g with the current parameters and makes it the live
// scene. On error the previous scene is kept.
func (n *Normalizer) Install(g *scene.Graph) (*RenderableScene, error) {
	rs, err := Normalize(g, n.params)
	if err != nil {
		return nil, err
	}
	n.scene = rs
	return rs, nil
}

// Clear drops the live scene.
func (n *Normalizer) Clear() {
	n.scene = nil
}

// Scene returns the live scene, or nil.
func (n *Normalizer) Scene() *RenderableScene {
	return n.scene
}

// Params returns the current parameters.
func (n *Normalizer) Params() Parameters {
	return n.params
}

// Apply replaces the parameters and propagates them to the live scene
// without re-decoding.
func (n *Normalizer) Apply(p Parameters) {
	n.params = p.Sanitize()
	if n.scene != nil {
		n.scene.Apply(n.params)
	}
}

// SetPlanes replaces only the clipping planes. It matches the clip.Engine
// listener signature.
func (n *Normalizer) SetPlanes(planes []clip.Plane) {
	p := n.params
	p.Planes = planes
	n.Apply(p)
}
