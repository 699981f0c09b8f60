package fixtures

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"math"
)

const fbxMagic = "Kaydara FBX Binary  \x00"

// FBXNode is a record for EncodeFBX.
type FBXNode struct {
	Name     string
	Props    []FBXProp
	Children []FBXNode
}

// FBXProp is an encoded property, type byte included.
type FBXProp []byte

// Int64Prop encodes an 'L' property.
func Int64Prop(v int64) FBXProp {
	return binary.LittleEndian.AppendUint64(FBXProp{'L'}, uint64(v))
}

// Float64Prop encodes a 'D' property.
func Float64Prop(v float64) FBXProp {
	return binary.LittleEndian.AppendUint64(FBXProp{'D'}, math.Float64bits(v))
}

// StringProp encodes an 'S' property.
func StringProp(s string) FBXProp {
	p := binary.LittleEndian.AppendUint32(FBXProp{'S'}, uint32(len(s)))
	return append(p, s...)
}

// Float64ArrayProp encodes a 'd' array, zlib-compressed when deflate is set.
func Float64ArrayProp(v []float64, deflate bool) FBXProp {
	raw := make([]byte, 0, len(v)*8)
	for _, f := range v {
		raw = binary.LittleEndian.AppendUint64(raw, math.Float64bits(f))
	}
	return arrayProp('d', len(v), raw, deflate)
}

// Int32ArrayProp encodes an 'i' array, zlib-compressed when deflate is set.
func Int32ArrayProp(v []int32, deflate bool) FBXProp {
	raw := make([]byte, 0, len(v)*4)
	for _, n := range v {
		raw = binary.LittleEndian.AppendUint32(raw, uint32(n))
	}
	return arrayProp('i', len(v), raw, deflate)
}

func arrayProp(kind byte, n int, raw []byte, deflate bool) FBXProp {
	var encoding uint32
	if deflate {
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		zw.Write(raw)
		zw.Close()
		raw = buf.Bytes()
		encoding = 1
	}
	p := FBXProp{kind}
	p = binary.LittleEndian.AppendUint32(p, uint32(n))
	p = binary.LittleEndian.AppendUint32(p, encoding)
	p = binary.LittleEndian.AppendUint32(p, uint32(len(raw)))
	return append(p, raw...)
}

// EncodeFBX writes a binary FBX document. Versions from 7500 use 64-bit
// record headers.
func EncodeFBX(version uint32, nodes ...FBXNode) []byte {
	buf := []byte(fbxMagic)
	buf = append(buf, 0x1a, 0x00)
	buf = binary.LittleEndian.AppendUint32(buf, version)
	wide := version >= 7500
	for _, n := range nodes {
		buf = appendFBXNode(buf, n, wide)
	}
	return append(buf, make([]byte, fbxHeaderSize(wide))...)
}

func fbxHeaderSize(wide bool) int {
	if wide {
		return 25
	}
	return 13
}

func appendFBXNode(buf []byte, n FBXNode, wide bool) []byte {
	start := len(buf)
	buf = append(buf, make([]byte, fbxHeaderSize(wide))...)
	buf = append(buf, n.Name...)

	propStart := len(buf)
	for _, p := range n.Props {
		buf = append(buf, p...)
	}
	propLen := len(buf) - propStart

	for _, c := range n.Children {
		buf = appendFBXNode(buf, c, wide)
	}
	if len(n.Children) > 0 {
		buf = append(buf, make([]byte, fbxHeaderSize(wide))...)
	}

	le := binary.LittleEndian
	h := buf[start:]
	if wide {
		le.PutUint64(h[0:], uint64(len(buf)))
		le.PutUint64(h[8:], uint64(len(n.Props)))
		le.PutUint64(h[16:], uint64(propLen))
		h[24] = byte(len(n.Name))
	} else {
		le.PutUint32(h[0:], uint32(len(buf)))
		le.PutUint32(h[4:], uint32(len(n.Props)))
		le.PutUint32(h[8:], uint32(propLen))
		h[12] = byte(len(n.Name))
	}
	return buf
}

// Vec3P encodes a Properties70 "P" record holding a 3-component value.
func Vec3P(name string, v [3]float64) FBXNode {
	return FBXNode{Name: "P", Props: []FBXProp{
		StringProp(name), StringProp(name), StringProp(""), StringProp("A"),
		Float64Prop(v[0]), Float64Prop(v[1]), Float64Prop(v[2]),
	}}
}

// FBXMesh builds the Objects/Connections records for one geometry attached to
// one model attached to the scene root.
func FBXMesh(geomID, modelID int64, name string, vertices []float64, polygons []int32, translation [3]float64, deflate bool) []FBXNode {
	objects := FBXNode{Name: "Objects", Children: []FBXNode{
		{
			Name:  "Geometry",
			Props: []FBXProp{Int64Prop(geomID), StringProp(name + "\x00\x01Geometry"), StringProp("Mesh")},
			Children: []FBXNode{
				{Name: "Vertices", Props: []FBXProp{Float64ArrayProp(vertices, deflate)}},
				{Name: "PolygonVertexIndex", Props: []FBXProp{Int32ArrayProp(polygons, deflate)}},
			},
		},
		{
			Name:  "Model",
			Props: []FBXProp{Int64Prop(modelID), StringProp(name + "\x00\x01Model"), StringProp("Mesh")},
			Children: []FBXNode{
				{Name: "Properties70", Children: []FBXNode{
					Vec3P("Lcl Translation", translation),
				}},
			},
		},
	}}
	connections := FBXNode{Name: "Connections", Children: []FBXNode{
		{Name: "C", Props: []FBXProp{StringProp("OO"), Int64Prop(modelID), Int64Prop(0)}},
		{Name: "C", Props: []FBXProp{StringProp("OO"), Int64Prop(geomID), Int64Prop(modelID)}},
	}}
	return []FBXNode{
		{Name: "FBXHeaderExtension", Children: []FBXNode{
			{Name: "FBXVersion", Props: []FBXProp{{'I', 0xdc, 0x1c, 0, 0}}},
		}},
		objects,
		connections,
	}
}

// CubePolygons returns the cube faces in FBX PolygonVertexIndex form.
func CubePolygons() []int32 {
	out := make([]int32, 0, len(CubeQuads)*4)
	for _, q := range CubeQuads {
		out = append(out, int32(q[0]), int32(q[1]), int32(q[2]), ^int32(q[3]))
	}
	return out
}

// CubeFBX returns the cube as a 7400 binary FBX with compressed arrays.
func CubeFBX() []byte {
	verts := make([]float64, 0, len(CubeVertices)*3)
	for _, v := range CubeVertices {
		verts = append(verts, float64(v[0]), float64(v[1]), float64(v[2]))
	}
	return EncodeFBX(7400, FBXMesh(1000, 2000, "Cube", verts, CubePolygons(), [3]float64{}, true)...)
}
