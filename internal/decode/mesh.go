package decode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/g3n/engine/loader/obj"
	"github.com/hschendel/stl"

	"github.com/Faultbox/meshview/internal/asset"
	"github.com/Faultbox/meshview/internal/scene"
	"github.com/Faultbox/meshview/pkg/formats"
	"github.com/Faultbox/meshview/pkg/math"
)

// STL and OBJ format errors.
var (
	ErrTruncatedSTL = errors.New("truncated STL data")
	ErrInvalidSTL   = errors.New("invalid STL data")
	ErrInvalidOBJ   = errors.New("invalid OBJ data")
	ErrBinaryOBJ    = errors.New("OBJ data contains binary content")
)

// STL decodes ASCII and binary STL into one flat-shaded primitive.
func STL(_ context.Context, name string, data []byte) (*scene.Graph, error) {
	solid, err := readSTL(data)
	if err != nil {
		return nil, err
	}

	geom := &scene.Geometry{
		Positions: make([][3]float32, 0, len(solid.Triangles)*3),
		Normals:   make([][3]float32, 0, len(solid.Triangles)*3),
		Indices:   make([]uint32, 0, len(solid.Triangles)*3),
	}
	for _, tri := range solid.Triangles {
		verts := [3][3]float32{tri.Vertices[0], tri.Vertices[1], tri.Vertices[2]}
		n := facetNormal(verts, tri.Normal)
		for _, v := range verts {
			geom.Indices = append(geom.Indices, uint32(len(geom.Positions)))
			geom.Positions = append(geom.Positions, v)
			geom.Normals = append(geom.Normals, n)
		}
	}

	g := scene.NewGraph(graphName(name), "stl")
	nodeName := strings.TrimSpace(solid.Name)
	if nodeName == "" {
		nodeName = g.Name
	}
	mesh := g.Root.AddChild(scene.NewNode(nodeName))
	mesh.AddPrimitive(geom, scene.SourceMaterial{})
	return g, nil
}

// readSTL picks the encoding before handing the bytes to the stl reader. A
// binary file is only read when its declared triangle count fits the data,
// and a binary header that happens to start with "solid" is blanked so the
// reader does not take it for ASCII.
func readSTL(data []byte) (*stl.Solid, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	ascii := bytes.HasPrefix(trimmed, []byte("solid"))
	size, ok := asset.BinarySTLSize(data)
	switch {
	case ok && size == int64(len(data)):
		if bytes.HasPrefix(data, []byte("solid")) {
			data = append(make([]byte, asset.STLHeaderSize), data[asset.STLHeaderSize:]...)
		}
	case ascii:
		data = trimmed
	case ok && size < int64(len(data)):
		data = data[:size]
	case ok:
		return nil, fmt.Errorf("%w: %d bytes, header declares %d", ErrTruncatedSTL, len(data), size)
	default:
		return nil, fmt.Errorf("%w: %d bytes is shorter than a binary header", ErrTruncatedSTL, len(data))
	}

	solid, err := stl.ReadAll(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSTL, err)
	}
	return solid, nil
}

// facetNormal trusts the stored normal when it is unit length and recomputes
// it from the winding otherwise; many exporters write zeros.
func facetNormal(v [3][3]float32, stored [3]float32) [3]float32 {
	n := math.V3(stored)
	if l := n.Length(); l > 0.99 && l < 1.01 {
		return stored
	}
	a, b, c := math.V3(v[0]), math.V3(v[1]), math.V3(v[2])
	computed := b.Sub(a).Cross(c.Sub(a)).Normalize()
	if computed.Length() == 0 {
		return [3]float32{0, 1, 0}
	}
	return computed.Array()
}

// OBJ decodes a Wavefront OBJ file into one primitive per object. Material
// libraries are not followed; usemtl names are kept for inspection.
func OBJ(ctx context.Context, name string, data []byte) (*scene.Graph, error) {
	if bytes.IndexByte(data, 0) >= 0 {
		return nil, ErrBinaryOBJ
	}
	dec, err := obj.DecodeReader(bytes.NewReader(data), strings.NewReader(""))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOBJ, err)
	}

	g := scene.NewGraph(graphName(name), "obj")
	for i := range dec.Objects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		o := &dec.Objects[i]
		if len(o.Faces) == 0 {
			continue
		}
		geom, err := objGeometry(dec, o)
		if err != nil {
			return nil, err
		}
		n := g.Root.AddChild(scene.NewNode(o.Name))
		n.AddPrimitive(geom, scene.SourceMaterial{Name: o.Faces[0].Material})
	}
	return g, nil
}

// objGeometry fan-triangulates the faces of one object and de-duplicates
// (position, normal) corner pairs into an indexed mesh. Normals are
// recomputed when any corner lacks one. Indices are checked here because the
// OBJ reader resolves them without range checks.
func objGeometry(dec *obj.Decoder, o *obj.Object) (*scene.Geometry, error) {
	type corner struct{ v, vn int }
	nv, nn := len(dec.Vertices)/3, len(dec.Normals)/3
	geom := &scene.Geometry{}
	seen := make(map[corner]uint32)
	hasNormals := true

	var polygon []uint32
	for fi, f := range o.Faces {
		polygon = polygon[:0]
		for k, v := range f.Vertices {
			if v < 0 || v >= nv {
				return nil, fmt.Errorf("%w: object %q face %d: vertex index %d out of range (%d vertices)",
					ErrInvalidOBJ, o.Name, fi, v, nv)
			}
			c := corner{v, -1}
			if k < len(f.Normals) && f.Normals[k] >= 0 && f.Normals[k] < nn {
				c.vn = f.Normals[k]
			} else {
				hasNormals = false
			}

			idx, ok := seen[c]
			if !ok {
				idx = uint32(len(geom.Positions))
				seen[c] = idx
				geom.Positions = append(geom.Positions, [3]float32{
					dec.Vertices[v*3], dec.Vertices[v*3+1], dec.Vertices[v*3+2],
				})
				var n [3]float32
				if c.vn >= 0 {
					n = [3]float32{dec.Normals[c.vn*3], dec.Normals[c.vn*3+1], dec.Normals[c.vn*3+2]}
				}
				geom.Normals = append(geom.Normals, n)
			}
			polygon = append(polygon, idx)
		}
		for k := 1; k+1 < len(polygon); k++ {
			geom.Indices = append(geom.Indices, polygon[0], polygon[k], polygon[k+1])
		}
	}

	if !hasNormals {
		geom.ComputeNormals()
	}
	return geom, nil
}

// FBX decodes a binary FBX scene: models become nodes carrying their local
// transform, mesh geometries become primitives. Animation is not evaluated.
func FBX(ctx context.Context, name string, data []byte) (*scene.Graph, error) {
	doc, err := formats.ParseFBX(data)
	if err != nil {
		return nil, err
	}
	fbx, err := doc.Scene()
	if err != nil {
		return nil, err
	}

	g := scene.NewGraph(graphName(name), "fbx")
	g.Animated = fbx.AnimationStacks > 0

	models := make(map[int64]*scene.Node, len(fbx.Models))
	for _, m := range fbx.Models {
		n := scene.NewNode(m.Name)
		n.Transform = math.FromTRS(
			vec3From64(m.Translation),
			math.QuatFromEulerXYZ(float32(m.Rotation[0]), float32(m.Rotation[1]), float32(m.Rotation[2])),
			vec3From64(m.Scaling),
		)
		models[m.ID] = n
	}
	geometries := make(map[int64]formats.FBXGeometry, len(fbx.Geometries))
	for _, geom := range fbx.Geometries {
		geometries[geom.ID] = geom
	}

	parented := make(map[int64]bool)
	for _, c := range fbx.Connections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c.Kind != "OO" {
			continue
		}
		parent, ok := models[c.Parent]
		if !ok {
			continue
		}
		if child, ok := models[c.Child]; ok && child != parent && !parented[c.Child] {
			parent.AddChild(child)
			parented[c.Child] = true
		} else if src, ok := geometries[c.Child]; ok {
			geom, err := fbxGeometry(src)
			if err != nil {
				return nil, err
			}
			parent.AddPrimitive(geom, scene.SourceMaterial{Name: src.Name})
			parented[c.Child] = true
		}
	}

	for _, m := range fbx.Models {
		if !parented[m.ID] {
			g.Root.AddChild(models[m.ID])
		}
	}
	for _, src := range fbx.Geometries {
		if parented[src.ID] {
			continue
		}
		geom, err := fbxGeometry(src)
		if err != nil {
			return nil, err
		}
		g.Root.AddPrimitive(geom, scene.SourceMaterial{Name: src.Name})
	}
	return g, nil
}

func vec3From64(v [3]float64) math.Vec3 {
	return math.Vec3{X: float32(v[0]), Y: float32(v[1]), Z: float32(v[2])}
}

// fbxGeometry fan-triangulates polygons. A negative index closes a polygon
// and encodes the real index as its bitwise complement.
func fbxGeometry(src formats.FBXGeometry) (*scene.Geometry, error) {
	geom := &scene.Geometry{Positions: make([][3]float32, len(src.Vertices)/3)}
	for i := range geom.Positions {
		geom.Positions[i] = [3]float32{
			float32(src.Vertices[i*3]),
			float32(src.Vertices[i*3+1]),
			float32(src.Vertices[i*3+2]),
		}
	}

	var polygon []uint32
	for _, raw := range src.PolygonVertexIndex {
		end := raw < 0
		if end {
			raw = ^raw
		}
		if int(raw) >= len(geom.Positions) {
			return nil, fmt.Errorf("geometry %q: vertex index %d out of range (%d vertices)", src.Name, raw, len(geom.Positions))
		}
		polygon = append(polygon, uint32(raw))
		if !end {
			continue
		}
		for k := 1; k+1 < len(polygon); k++ {
			geom.Indices = append(geom.Indices, polygon[0], polygon[k], polygon[k+1])
		}
		polygon = polygon[:0]
	}

	geom.ComputeNormals()
	return geom, nil
}
