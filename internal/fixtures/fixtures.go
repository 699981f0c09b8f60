// Package fixtures builds minimal, valid model files in every supported
// format. They back the decoder tests and the "sample" command.
package fixtures

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// CubeVertices are the corners of an axis-aligned cube of edge 2 centered at
// the origin.
var CubeVertices = [8][3]float32{
	{-1, -1, -1}, {1, -1, -1}, {1, 1, -1}, {-1, 1, -1},
	{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1},
}

// CubeQuads lists each face of the cube counter-clockwise seen from outside.
var CubeQuads = [6][4]int{
	{0, 3, 2, 1}, // -Z
	{4, 5, 6, 7}, // +Z
	{0, 1, 5, 4}, // -Y
	{3, 7, 6, 2}, // +Y
	{0, 4, 7, 3}, // -X
	{1, 2, 6, 5}, // +X
}

var cubeNormals = [6][3]float32{
	{0, 0, -1}, {0, 0, 1}, {0, -1, 0}, {0, 1, 0}, {-1, 0, 0}, {1, 0, 0},
}

// CubeTriangles is the number of triangles every cube fixture decodes to.
const CubeTriangles = 12

// CubeIndices returns the cube as a triangle list.
func CubeIndices() []uint16 {
	idx := make([]uint16, 0, CubeTriangles*3)
	for _, q := range CubeQuads {
		idx = append(idx,
			uint16(q[0]), uint16(q[1]), uint16(q[2]),
			uint16(q[0]), uint16(q[2]), uint16(q[3]))
	}
	return idx
}

// Names maps each fixture to a file name with the matching extension.
var Names = map[string]string{
	"stl":   "cube.stl",
	"ascii": "cube_ascii.stl",
	"obj":   "cube.obj",
	"fbx":   "cube.fbx",
	"rsm":   "cube.rsm",
	"glb":   "cube.glb",
	"gltf":  "cube.gltf",
}

// ByName returns the fixture registered under key in Names.
func ByName(key string) ([]byte, error) {
	switch key {
	case "stl":
		return CubeSTL(), nil
	case "ascii":
		return CubeASCIISTL(), nil
	case "obj":
		return CubeOBJ(), nil
	case "fbx":
		return CubeFBX(), nil
	case "rsm":
		return CubeRSM(), nil
	case "glb":
		return CubeGLB()
	case "gltf":
		return CubeGLTF()
	}
	return nil, fmt.Errorf("unknown fixture %q", key)
}

// CubeSTL returns the cube as binary STL.
func CubeSTL() []byte {
	var buf bytes.Buffer
	header := make([]byte, 80)
	copy(header, "cube")
	buf.Write(header)
	binary.Write(&buf, binary.LittleEndian, uint32(CubeTriangles))

	idx := CubeIndices()
	for t := 0; t < CubeTriangles; t++ {
		binary.Write(&buf, binary.LittleEndian, cubeNormals[t/2])
		for k := 0; k < 3; k++ {
			binary.Write(&buf, binary.LittleEndian, CubeVertices[idx[t*3+k]])
		}
		binary.Write(&buf, binary.LittleEndian, uint16(0))
	}
	return buf.Bytes()
}

// CubeASCIISTL returns the cube as ASCII STL, two facets per face.
func CubeASCIISTL() []byte {
	var buf bytes.Buffer
	buf.WriteString("solid cube\n")
	idx := CubeIndices()
	for t := 0; t < CubeTriangles; t++ {
		n := cubeNormals[t/2]
		fmt.Fprintf(&buf, "  facet normal %g %g %g\n    outer loop\n", n[0], n[1], n[2])
		for k := 0; k < 3; k++ {
			v := CubeVertices[idx[t*3+k]]
			fmt.Fprintf(&buf, "      vertex %g %g %g\n", v[0], v[1], v[2])
		}
		buf.WriteString("    endloop\n  endfacet\n")
	}
	buf.WriteString("endsolid cube\n")
	return buf.Bytes()
}

// CubeOBJ returns the cube as Wavefront OBJ with quad faces.
func CubeOBJ() []byte {
	var buf bytes.Buffer
	buf.WriteString("# cube\no Cube\n")
	for _, v := range CubeVertices {
		fmt.Fprintf(&buf, "v %g %g %g\n", v[0], v[1], v[2])
	}
	for _, n := range cubeNormals {
		fmt.Fprintf(&buf, "vn %g %g %g\n", n[0], n[1], n[2])
	}
	for f, q := range CubeQuads {
		fmt.Fprintf(&buf, "f %d//%d %d//%d %d//%d %d//%d\n",
			q[0]+1, f+1, q[1]+1, f+1, q[2]+1, f+1, q[3]+1, f+1)
	}
	return buf.Bytes()
}

// CubeRSM returns the cube as a single-node RSM v1.4 model.
func CubeRSM() []byte {
	var buf bytes.Buffer
	le := binary.LittleEndian
	name := func(s string) {
		b := make([]byte, 40)
		copy(b, s)
		buf.Write(b)
	}

	buf.WriteString("GRSM")
	buf.Write([]byte{1, 4})
	binary.Write(&buf, le, int32(0)) // animation length
	binary.Write(&buf, le, int32(1)) // flat shading
	buf.WriteByte(255)               // alpha
	buf.Write(make([]byte, 16))
	binary.Write(&buf, le, int32(0)) // textures
	name("cube")
	binary.Write(&buf, le, int32(1)) // nodes

	name("cube")
	name("")
	binary.Write(&buf, le, int32(0)) // node textures
	binary.Write(&buf, le, [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1})
	binary.Write(&buf, le, [3]float32{}) // offset
	binary.Write(&buf, le, [3]float32{}) // position
	binary.Write(&buf, le, float32(0))   // rotation angle
	binary.Write(&buf, le, [3]float32{0, 1, 0})
	binary.Write(&buf, le, [3]float32{1, 1, 1})

	binary.Write(&buf, le, int32(len(CubeVertices)))
	binary.Write(&buf, le, CubeVertices)
	binary.Write(&buf, le, int32(1)) // texcoords
	binary.Write(&buf, le, [4]uint8{255, 255, 255, 255})
	binary.Write(&buf, le, [2]float32{0, 0})

	idx := CubeIndices()
	binary.Write(&buf, le, int32(CubeTriangles))
	for t := 0; t < CubeTriangles; t++ {
		binary.Write(&buf, le, [3]uint16{idx[t*3], idx[t*3+1], idx[t*3+2]})
		binary.Write(&buf, le, [3]uint16{})
		binary.Write(&buf, le, uint16(0)) // texture
		binary.Write(&buf, le, uint16(0)) // padding
		binary.Write(&buf, le, int32(0))  // two-sided
		binary.Write(&buf, le, int32(0))  // smoothing group
	}

	binary.Write(&buf, le, int32(0)) // position keys
	binary.Write(&buf, le, int32(0)) // rotation keys
	return buf.Bytes()
}

// Truncate returns the first half of data, which no decoder accepts for any
// fixture in this package.
func Truncate(data []byte) []byte {
	return bytes.Clone(data[:len(data)/2])
}
