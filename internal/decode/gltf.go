package decode

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/meshview/internal/scene"
	"github.com/Faultbox/meshview/pkg/math"
)

// GLTF decodes .gltf (JSON with embedded buffers) and .glb documents.
func GLTF(ctx context.Context, name string, data []byte) (*scene.Graph, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
		return nil, err
	}

	g := scene.NewGraph(graphName(name), "gltf")
	g.Animated = len(doc.Animations) > 0
	b := &gltfBuilder{
		doc:     doc,
		meshes:  make(map[int][]scene.Primitive),
		visited: make(map[int]bool, len(doc.Nodes)),
	}

	for _, idx := range gltfRoots(doc) {
		child, err := b.node(ctx, idx, 0)
		if err != nil {
			return nil, err
		}
		g.Root.AddChild(child)
	}
	return g, nil
}

// gltfRoots returns the root nodes of the default scene, or every node that
// is nobody's child when the document has no scenes.
func gltfRoots(doc *gltf.Document) []int {
	var roots []int
	if len(doc.Scenes) > 0 {
		sceneIdx := 0
		if doc.Scene != nil && int(*doc.Scene) < len(doc.Scenes) {
			sceneIdx = int(*doc.Scene)
		}
		for _, n := range doc.Scenes[sceneIdx].Nodes {
			roots = append(roots, int(n))
		}
		return roots
	}

	isChild := make(map[int]bool)
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			isChild[int(c)] = true
		}
	}
	for i := range doc.Nodes {
		if !isChild[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

// ErrNodeReused reports a glTF node reached twice while walking the scene.
// Node hierarchies must be disjoint trees.
var ErrNodeReused = errors.New("glTF node has more than one parent")

type gltfBuilder struct {
	doc     *gltf.Document
	meshes  map[int][]scene.Primitive
	visited map[int]bool
}

func (b *gltfBuilder) node(ctx context.Context, idx, depth int) (*scene.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(b.doc.Nodes) {
		return nil, fmt.Errorf("node index %d out of range", idx)
	}
	if b.visited[idx] {
		return nil, fmt.Errorf("%w: node %d", ErrNodeReused, idx)
	}
	if depth >= scene.MaxDepth {
		return nil, scene.ErrTooDeep
	}
	b.visited[idx] = true

	src := b.doc.Nodes[idx]
	n := scene.NewNode(src.Name)
	n.Transform = gltfTransform(src)

	if src.Mesh != nil {
		prims, err := b.mesh(int(*src.Mesh))
		if err != nil {
			return nil, err
		}
		n.Primitives = append(n.Primitives, prims...)
	}
	for _, c := range src.Children {
		child, err := b.node(ctx, int(c), depth+1)
		if err != nil {
			return nil, err
		}
		n.AddChild(child)
	}
	return n, nil
}

var identity64 = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

// gltfTransform prefers an explicit matrix and falls back to TRS. Zero
// rotation and scale are treated as unset.
func gltfTransform(n *gltf.Node) math.Mat4 {
	if n.Matrix != identity64 && n.Matrix != [16]float64{} {
		return math.FromFloat64(n.Matrix)
	}

	t := math.Vec3{X: float32(n.Translation[0]), Y: float32(n.Translation[1]), Z: float32(n.Translation[2])}
	r := math.QuatIdentity()
	if n.Rotation != [4]float64{} {
		r = math.Quat{X: float32(n.Rotation[0]), Y: float32(n.Rotation[1]), Z: float32(n.Rotation[2]), W: float32(n.Rotation[3])}
	}
	s := math.Vec3{X: 1, Y: 1, Z: 1}
	if n.Scale != [3]float64{} {
		s = math.Vec3{X: float32(n.Scale[0]), Y: float32(n.Scale[1]), Z: float32(n.Scale[2])}
	}
	return math.FromTRS(t, r, s)
}

// mesh converts the triangle primitives of a mesh; other topologies are
// skipped. Meshes shared by several nodes are converted once.
func (b *gltfBuilder) mesh(idx int) ([]scene.Primitive, error) {
	if prims, ok := b.meshes[idx]; ok {
		return prims, nil
	}
	if idx < 0 || idx >= len(b.doc.Meshes) {
		return nil, fmt.Errorf("mesh index %d out of range", idx)
	}

	var prims []scene.Primitive
	for i, p := range b.doc.Meshes[idx].Primitives {
		if p.Mode != gltf.PrimitiveTriangles {
			continue
		}
		geom, err := b.geometry(p)
		if err != nil {
			return nil, fmt.Errorf("mesh %d primitive %d: %w", idx, i, err)
		}
		if geom == nil {
			continue
		}
		prims = append(prims, scene.Primitive{Geometry: geom, Material: b.material(p)})
	}
	b.meshes[idx] = prims
	return prims, nil
}

func (b *gltfBuilder) accessor(idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(b.doc.Accessors) {
		return nil, fmt.Errorf("accessor index %d out of range", idx)
	}
	return b.doc.Accessors[idx], nil
}

func (b *gltfBuilder) geometry(p *gltf.Primitive) (*scene.Geometry, error) {
	posIdx, ok := p.Attributes[gltf.POSITION]
	if !ok {
		return nil, nil
	}
	acc, err := b.accessor(int(posIdx))
	if err != nil {
		return nil, err
	}
	positions, err := modeler.ReadPosition(b.doc, acc, nil)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}

	geom := &scene.Geometry{Positions: positions}
	if p.Indices != nil {
		acc, err := b.accessor(int(*p.Indices))
		if err != nil {
			return nil, err
		}
		if geom.Indices, err = modeler.ReadIndices(b.doc, acc, nil); err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
	} else {
		geom.Indices = make([]uint32, len(positions)-len(positions)%3)
		for i := range geom.Indices {
			geom.Indices[i] = uint32(i)
		}
	}

	if normIdx, ok := p.Attributes[gltf.NORMAL]; ok {
		acc, err := b.accessor(int(normIdx))
		if err != nil {
			return nil, err
		}
		if geom.Normals, err = modeler.ReadNormal(b.doc, acc, nil); err != nil {
			return nil, fmt.Errorf("normals: %w", err)
		}
	}
	if len(geom.Normals) != len(geom.Positions) {
		geom.ComputeNormals()
	}
	return geom, nil
}

func (b *gltfBuilder) material(p *gltf.Primitive) scene.SourceMaterial {
	if p.Material == nil || int(*p.Material) >= len(b.doc.Materials) {
		return scene.SourceMaterial{}
	}
	m := b.doc.Materials[int(*p.Material)]
	out := scene.SourceMaterial{Name: m.Name}
	if pbr := m.PBRMetallicRoughness; pbr != nil && pbr.BaseColorFactor != nil {
		c := *pbr.BaseColorFactor
		out.BaseColor = [4]float32{float32(c[0]), float32(c[1]), float32(c[2]), float32(c[3])}
		out.HasColor = true
	}
	return out
}
