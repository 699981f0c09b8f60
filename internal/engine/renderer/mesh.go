package renderer

import (
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/meshview/internal/scene"
)

// vertexStride is position + normal, in floats.
const vertexStride = 6

type mesh struct {
	vao        uint32
	vbo        uint32
	ebo        uint32
	indexCount int32
}

// Interleave packs positions and normals as the mesh shader reads them.
// Missing normals default to +Y.
func Interleave(g *scene.Geometry) []float32 {
	out := make([]float32, 0, len(g.Positions)*vertexStride)
	for i, p := range g.Positions {
		n := [3]float32{0, 1, 0}
		if i < len(g.Normals) {
			n = g.Normals[i]
		}
		out = append(out, p[0], p[1], p[2], n[0], n[1], n[2])
	}
	return out
}

func uploadMesh(g *scene.Geometry) *mesh {
	verts := Interleave(g)
	m := &mesh{indexCount: int32(len(g.Indices))}
	if len(verts) == 0 || len(g.Indices) == 0 {
		return m
	}

	gl.GenVertexArrays(1, &m.vao)
	gl.BindVertexArray(m.vao)

	gl.GenBuffers(1, &m.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(verts)*4, unsafe.Pointer(&verts[0]), gl.STATIC_DRAW)

	gl.GenBuffers(1, &m.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, m.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(g.Indices)*4, unsafe.Pointer(&g.Indices[0]), gl.STATIC_DRAW)

	// Position attribute (location = 0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, vertexStride*4, nil)
	gl.EnableVertexAttribArray(0)

	// Normal attribute (location = 1)
	gl.VertexAttribPointer(1, 3, gl.FLOAT, false, vertexStride*4, unsafe.Pointer(uintptr(3*4)))
	gl.EnableVertexAttribArray(1)

	gl.BindVertexArray(0)
	return m
}

func (m *mesh) draw() {
	if m.vao == 0 {
		return
	}
	gl.BindVertexArray(m.vao)
	gl.DrawElements(gl.TRIANGLES, m.indexCount, gl.UNSIGNED_INT, nil)
	gl.BindVertexArray(0)
}

func (m *mesh) delete() {
	if m.vao != 0 {
		gl.DeleteVertexArrays(1, &m.vao)
	}
	if m.vbo != 0 {
		gl.DeleteBuffers(1, &m.vbo)
	}
	if m.ebo != 0 {
		gl.DeleteBuffers(1, &m.ebo)
	}
	*m = mesh{}
}
