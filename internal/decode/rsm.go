package decode

import (
	"context"

	"github.com/Faultbox/meshview/internal/scene"
	"github.com/Faultbox/meshview/pkg/formats"
	"github.com/Faultbox/meshview/pkg/math"
)

// RSM decodes a legacy RSM model in its rest pose. Node transforms are baked
// into the vertices and Y is flipped into a Y-up frame.
func RSM(ctx context.Context, name string, data []byte) (*scene.Graph, error) {
	rsm, err := formats.ParseRSM(data)
	if err != nil {
		return nil, err
	}

	g := scene.NewGraph(graphName(name), "rsm")
	h := newRSMHierarchy(rsm)
	for i := range rsm.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		node := &rsm.Nodes[i]
		g.Animated = g.Animated || node.Keyframes > 0
		if len(node.Faces) == 0 {
			continue
		}

		m := math.Scale(1, -1, 1).Mul(rsmNodeMatrix(node, h))
		reverse := m.Det3() < 0

		soup := make([][3]float32, 0, len(node.Faces)*3)
		for _, f := range node.Faces {
			ids := f.VertexIDs
			if reverse {
				ids[0], ids[2] = ids[2], ids[0]
			}
			for _, id := range ids {
				soup = append(soup, m.TransformPoint(node.Vertices[id]))
			}
		}

		geom := scene.Weld(soup)
		geom.ComputeNormals()
		n := g.Root.AddChild(scene.NewNode(node.Name))
		n.AddPrimitive(geom, scene.SourceMaterial{Name: node.Name})
	}
	return g, nil
}

// rsmNodeMatrix is the vertex transform of a node: the inherited hierarchy
// matrix followed by the node's own offset and 3x3 matrix, which children do
// not inherit.
func rsmNodeMatrix(node *formats.RSMNode, h *rsmHierarchy) math.Mat4 {
	return h.world(node).
		Mul(math.Translate(node.Offset[0], node.Offset[1], node.Offset[2])).
		Mul(math.FromMat3(node.Matrix))
}

// rsmHierarchy resolves parent * Position * Rotation * Scale for every node
// of a model. Parents are looked up by name once and each world matrix is
// computed once.
type rsmHierarchy struct {
	byName map[string]*formats.RSMNode
	memo   map[*formats.RSMNode]math.Mat4
}

func newRSMHierarchy(rsm *formats.RSM) *rsmHierarchy {
	h := &rsmHierarchy{
		byName: make(map[string]*formats.RSMNode, len(rsm.Nodes)),
		memo:   make(map[*formats.RSMNode]math.Mat4, len(rsm.Nodes)),
	}
	// the first node with a name wins, as in RSM.NodeByName
	for i := range rsm.Nodes {
		if _, ok := h.byName[rsm.Nodes[i].Name]; !ok {
			h.byName[rsm.Nodes[i].Name] = &rsm.Nodes[i]
		}
	}
	return h
}

func (h *rsmHierarchy) parent(node *formats.RSMNode) *formats.RSMNode {
	if node.Parent == "" || node.Parent == node.Name {
		return nil
	}
	return h.byName[node.Parent]
}

// world walks up to the nearest resolved ancestor, then composes back down,
// resolving every node on the way. A parent cycle is cut where it closes.
func (h *rsmHierarchy) world(node *formats.RSMNode) math.Mat4 {
	if m, ok := h.memo[node]; ok {
		return m
	}

	var chain []*formats.RSMNode
	onChain := make(map[*formats.RSMNode]bool)
	base := math.Identity()
	for n := node; n != nil && !onChain[n]; n = h.parent(n) {
		if m, ok := h.memo[n]; ok {
			base = m
			break
		}
		onChain[n] = true
		chain = append(chain, n)
	}

	for i := len(chain) - 1; i >= 0; i-- {
		base = base.Mul(rsmLocal(chain[i]))
		h.memo[chain[i]] = base
	}
	return base
}

func rsmLocal(node *formats.RSMNode) math.Mat4 {
	local := math.Translate(node.Position[0], node.Position[1], node.Position[2])
	if axis := math.V3(node.RotAxis); node.RotAngle != 0 && axis.Length() > 1e-6 {
		local = local.Mul(math.QuatFromAxisAngle(axis.Normalize(), node.RotAngle).ToMat4())
	}
	return local.Mul(math.Scale(node.Scale[0], node.Scale[1], node.Scale[2]))
}
