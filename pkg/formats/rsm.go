package formats

import (
	"errors"
	"fmt"
)

// RSM format errors.
var (
	ErrInvalidRSMMagic       = errors.New("invalid RSM magic: expected 'GRSM'")
	ErrUnsupportedRSMVersion = errors.New("unsupported RSM version")
	ErrTruncatedRSMData      = errors.New("truncated RSM data")
	ErrInvalidNodeCount      = errors.New("invalid RSM node count")
	ErrInvalidRSMFace        = errors.New("RSM face references a missing vertex")
)

const (
	rsmNameSize    = 40
	rsmMaxNodes    = 10000
	rsmMaxTextures = 1000
)

// RSMVersion is the RSM file version.
type RSMVersion struct {
	Major uint8
	Minor uint8
}

func (v RSMVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast reports whether v >= major.minor.
func (v RSMVersion) AtLeast(major, minor uint8) bool {
	return v.Major > major || (v.Major == major && v.Minor >= minor)
}

// RSMFace is a triangle in a node mesh.
type RSMFace struct {
	VertexIDs   [3]uint16
	TexCoordIDs [3]uint16
	TextureID   uint16
	TwoSide     int32
	SmoothGroup int32 // v1.2+
}

// RSMNode is one node of the model hierarchy. Only the static pose is kept;
// keyframe tracks are validated and skipped.
type RSMNode struct {
	Name   string
	Parent string

	Matrix   [9]float32 // 3x3, row-major
	Offset   [3]float32
	Position [3]float32
	RotAngle float32 // radians
	RotAxis  [3]float32
	Scale    [3]float32

	Vertices [][3]float32
	Faces    []RSMFace

	Keyframes int
}

// RSM is a parsed RSM model.
type RSM struct {
	Version  RSMVersion
	Alpha    float32
	Textures []string
	RootNode string
	Nodes    []RSMNode
}

// ParseRSM parses RSM v1.x model data.
func ParseRSM(data []byte) (*RSM, error) {
	if len(data) < 6 {
		return nil, ErrTruncatedRSMData
	}
	if string(data[:4]) != "GRSM" {
		return nil, ErrInvalidRSMMagic
	}

	r := newReader(data)
	r.skip(4)
	rsm := &RSM{Version: RSMVersion{Major: r.u8(), Minor: r.u8()}}
	if rsm.Version.Major != 1 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRSMVersion, rsm.Version)
	}

	r.skip(4) // animation length
	r.skip(4) // shading type
	rsm.Alpha = 1
	if rsm.Version.AtLeast(1, 4) {
		rsm.Alpha = float32(r.u8()) / 255
	}
	r.skip(16) // reserved

	textureCount := r.count(rsmNameSize)
	if textureCount > rsmMaxTextures {
		return nil, fmt.Errorf("%w: %d textures", ErrTruncatedRSMData, textureCount)
	}
	rsm.Textures = make([]string, textureCount)
	for i := range rsm.Textures {
		rsm.Textures[i] = r.fixedString(rsmNameSize)
	}
	rsm.RootNode = r.fixedString(rsmNameSize)

	nodeCount := r.i32()
	if r.err != nil {
		return nil, ErrTruncatedRSMData
	}
	if nodeCount <= 0 || nodeCount > rsmMaxNodes {
		return nil, fmt.Errorf("%w: %d", ErrInvalidNodeCount, nodeCount)
	}

	rsm.Nodes = make([]RSMNode, nodeCount)
	for i := range rsm.Nodes {
		if err := parseRSMNode(r, rsm.Version, &rsm.Nodes[i]); err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
	}

	return rsm, nil
}

func parseRSMNode(r *reader, version RSMVersion, node *RSMNode) error {
	node.Name = r.fixedString(rsmNameSize)
	node.Parent = r.fixedString(rsmNameSize)

	r.skip(4 * r.count(4)) // per-node texture ids

	for i := range node.Matrix {
		node.Matrix[i] = r.f32()
	}
	node.Offset = r.vec3()
	node.Position = r.vec3()
	node.RotAngle = r.f32()
	node.RotAxis = r.vec3()
	node.Scale = r.vec3()

	node.Vertices = make([][3]float32, r.count(12))
	for i := range node.Vertices {
		node.Vertices[i] = r.vec3()
	}

	texCoordSize := 8
	if version.AtLeast(1, 2) {
		texCoordSize = 12
	}
	r.skip(texCoordSize * r.count(texCoordSize))

	faceSize := 24
	if version.AtLeast(1, 2) {
		faceSize = 28
	}
	node.Faces = make([]RSMFace, r.count(faceSize))
	for i := range node.Faces {
		f := &node.Faces[i]
		for k := 0; k < 3; k++ {
			f.VertexIDs[k] = r.u16()
		}
		for k := 0; k < 3; k++ {
			f.TexCoordIDs[k] = r.u16()
		}
		f.TextureID = r.u16()
		r.skip(2)
		f.TwoSide = r.i32()
		if version.AtLeast(1, 2) {
			f.SmoothGroup = r.i32()
		}
	}

	if !version.AtLeast(1, 5) {
		n := r.count(16)
		r.skip(16 * n)
		node.Keyframes += n
	}
	n := r.count(20)
	r.skip(20 * n)
	node.Keyframes += n

	if r.err != nil {
		return ErrTruncatedRSMData
	}

	for i, f := range node.Faces {
		for _, v := range f.VertexIDs {
			if int(v) >= len(node.Vertices) {
				return fmt.Errorf("%w: face %d uses vertex %d of %d", ErrInvalidRSMFace, i, v, len(node.Vertices))
			}
		}
	}
	return nil
}

// TriangleCount returns the number of faces across all nodes.
func (rsm *RSM) TriangleCount() int {
	total := 0
	for _, node := range rsm.Nodes {
		total += len(node.Faces)
	}
	return total
}

// NodeByName returns the node with the given name, or nil.
func (rsm *RSM) NodeByName(name string) *RSMNode {
	for i := range rsm.Nodes {
		if rsm.Nodes[i].Name == name {
			return &rsm.Nodes[i]
		}
	}
	return nil
}

// Children returns the nodes whose parent is the given name.
func (rsm *RSM) Children(parent string) []*RSMNode {
	var out []*RSMNode
	for i := range rsm.Nodes {
		if rsm.Nodes[i].Parent == parent && rsm.Nodes[i].Name != parent {
			out = append(out, &rsm.Nodes[i])
		}
	}
	return out
}
