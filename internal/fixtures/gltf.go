package fixtures

import (
	"bytes"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// CubeDocument returns the cube as a one-mesh glTF document.
func CubeDocument() *gltf.Document {
	doc := gltf.NewDocument()
	positions := make([][3]float32, len(CubeVertices))
	copy(positions, CubeVertices[:])

	doc.Meshes = []*gltf.Mesh{{
		Name: "Cube",
		Primitives: []*gltf.Primitive{{
			Indices: gltf.Index(modeler.WriteIndices(doc, CubeIndices())),
			Attributes: map[string]int{
				gltf.POSITION: modeler.WritePosition(doc, positions),
			},
		}},
	}}
	doc.Nodes = []*gltf.Node{{Name: "Cube", Mesh: gltf.Index(0)}}
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)
	return doc
}

// CubeGLB returns the cube as binary glTF.
func CubeGLB() ([]byte, error) {
	return Encode(CubeDocument(), true)
}

// CubeGLTF returns the cube as JSON glTF with an embedded data URI buffer.
func CubeGLTF() ([]byte, error) {
	return Encode(CubeDocument(), false)
}

// Encode serializes doc as GLB when binary is set and as JSON glTF otherwise.
func Encode(doc *gltf.Document, binary bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := gltf.NewEncoder(&buf)
	enc.AsBinary = binary
	if !binary {
		for _, b := range doc.Buffers {
			b.EmbeddedResource()
		}
	}
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
