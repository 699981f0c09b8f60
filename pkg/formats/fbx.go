package formats

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// FBX format errors.
var (
	ErrInvalidFBXMagic = errors.New("invalid FBX magic: expected 'Kaydara FBX Binary'")
	ErrTruncatedFBX    = errors.New("truncated FBX data")
	ErrInvalidFBX      = errors.New("invalid FBX data")
)

// FBXMagic is the 21-byte signature at the start of every binary FBX file.
const FBXMagic = "Kaydara FBX Binary  \x00"

const (
	fbxHeaderSize     = 27
	fbxMaxDepth       = 64
	fbxMaxArrayBytes  = 1 << 30
	zlibMaxRatio      = 1032 // upper bound on deflate output per input byte
	fbxWideNodeFormat = 7500
)

// FBXProperty is a typed node property. Value holds one of: int16, bool,
// int32, float32, float64, int64, string, []byte, []float32, []float64,
// []int32, []int64, []bool.
type FBXProperty struct {
	Type  byte
	Value any
}

// FBXNode is a record in the FBX node tree.
type FBXNode struct {
	Name       string
	Properties []FBXProperty
	Children   []*FBXNode
}

// FBX is a parsed binary FBX document.
type FBX struct {
	Version uint32
	Nodes   []*FBXNode
}

// Child returns the first child with the given name, or nil.
func (n *FBXNode) Child(name string) *FBXNode {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Find returns the first top-level node with the given name, or nil.
func (f *FBX) Find(name string) *FBXNode {
	for _, n := range f.Nodes {
		if n.Name == name {
			return n
		}
	}
	return nil
}

type fbxParser struct {
	r    *reader
	wide bool
}

// ParseFBX parses a binary FBX document into its raw node tree.
func ParseFBX(data []byte) (*FBX, error) {
	if len(data) < fbxHeaderSize {
		return nil, ErrTruncatedFBX
	}
	if !bytes.HasPrefix(data, []byte(FBXMagic)) {
		return nil, ErrInvalidFBXMagic
	}

	r := newReader(data)
	r.skip(len(FBXMagic) + 2)
	fbx := &FBX{Version: r.u32()}
	p := &fbxParser{r: r, wide: fbx.Version >= fbxWideNodeFormat}

	for r.remaining() >= p.recordHeaderSize() {
		node, err := p.node(0)
		if err != nil {
			return nil, err
		}
		if node == nil {
			break
		}
		fbx.Nodes = append(fbx.Nodes, node)
	}
	if len(fbx.Nodes) == 0 {
		return nil, fmt.Errorf("%w: no top-level records", ErrInvalidFBX)
	}

	return fbx, nil
}

func (p *fbxParser) recordHeaderSize() int {
	if p.wide {
		return 25
	}
	return 13
}

// node reads one record. A nil node with a nil error is the null record that
// terminates a list.
func (p *fbxParser) node(depth int) (*FBXNode, error) {
	if depth > fbxMaxDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d", ErrInvalidFBX, fbxMaxDepth)
	}

	r := p.r
	start := r.off
	var endOffset, numProps, propLen uint64
	if p.wide {
		endOffset, numProps, propLen = r.u64(), r.u64(), r.u64()
	} else {
		endOffset, numProps, propLen = uint64(r.u32()), uint64(r.u32()), uint64(r.u32())
	}
	nameLen := int(r.u8())
	if r.err != nil {
		return nil, ErrTruncatedFBX
	}
	if endOffset == 0 {
		return nil, nil
	}
	if endOffset > uint64(len(r.data)) {
		return nil, fmt.Errorf("%w: record at %d ends past end of file", ErrTruncatedFBX, start)
	}
	if endOffset <= uint64(start) || numProps > propLen {
		return nil, fmt.Errorf("%w: malformed record header at %d", ErrInvalidFBX, start)
	}

	node := &FBXNode{Name: string(r.take(nameLen))}
	propStart := r.off
	for i := uint64(0); i < numProps; i++ {
		prop, err := p.property()
		if err != nil {
			return nil, fmt.Errorf("%s property %d: %w", node.Name, i, err)
		}
		node.Properties = append(node.Properties, prop)
	}
	if uint64(r.off-propStart) != propLen {
		return nil, fmt.Errorf("%w: %s property list length mismatch", ErrInvalidFBX, node.Name)
	}

	for uint64(r.off) < endOffset {
		child, err := p.node(depth + 1)
		if err != nil {
			return nil, err
		}
		if child == nil {
			break
		}
		node.Children = append(node.Children, child)
	}
	if uint64(r.off) != endOffset {
		return nil, fmt.Errorf("%w: %s ends at %d, expected %d", ErrInvalidFBX, node.Name, r.off, endOffset)
	}

	return node, nil
}

func (p *fbxParser) property() (FBXProperty, error) {
	r := p.r
	prop := FBXProperty{Type: r.u8()}

	switch prop.Type {
	case 'Y':
		prop.Value = int16(r.u16())
	case 'C':
		prop.Value = r.u8() != 0
	case 'I':
		prop.Value = r.i32()
	case 'F':
		prop.Value = r.f32()
	case 'D':
		prop.Value = r.f64()
	case 'L':
		prop.Value = int64(r.u64())
	case 'S':
		prop.Value = string(r.take(int(r.u32())))
	case 'R':
		prop.Value = bytes.Clone(r.take(int(r.u32())))
	case 'f', 'd', 'l', 'i', 'b':
		v, err := p.array(prop.Type)
		if err != nil {
			return prop, err
		}
		prop.Value = v
	default:
		if r.err == nil {
			return prop, fmt.Errorf("%w: unknown property type %q", ErrInvalidFBX, prop.Type)
		}
	}

	if r.err != nil {
		return prop, ErrTruncatedFBX
	}
	return prop, nil
}

func (p *fbxParser) array(kind byte) (any, error) {
	r := p.r
	length := uint64(r.u32())
	encoding := r.u32()
	compressedLen := r.u32()
	if r.err != nil {
		return nil, ErrTruncatedFBX
	}

	elem := map[byte]uint64{'f': 4, 'd': 8, 'l': 8, 'i': 4, 'b': 1}[kind]
	size := length * elem
	if size > fbxMaxArrayBytes {
		return nil, fmt.Errorf("%w: array of %d bytes", ErrInvalidFBX, size)
	}

	var raw []byte
	switch encoding {
	case 0:
		raw = r.take(int(size))
		if r.err != nil {
			return nil, ErrTruncatedFBX
		}
	case 1:
		compressed := r.take(int(compressedLen))
		if r.err != nil {
			return nil, ErrTruncatedFBX
		}
		if size > uint64(compressedLen)*zlibMaxRatio {
			return nil, fmt.Errorf("%w: %d compressed bytes cannot inflate to %d", ErrInvalidFBX, compressedLen, size)
		}
		zr, err := zlib.NewReader(bytes.NewReader(compressed))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFBX, err)
		}
		raw = make([]byte, size)
		if _, err := io.ReadFull(zr, raw); err != nil {
			return nil, fmt.Errorf("%w: inflating array: %v", ErrInvalidFBX, err)
		}
	default:
		return nil, fmt.Errorf("%w: unknown array encoding %d", ErrInvalidFBX, encoding)
	}

	le := binary.LittleEndian
	switch kind {
	case 'f':
		out := make([]float32, length)
		for i := range out {
			out[i] = math.Float32frombits(le.Uint32(raw[i*4:]))
		}
		return out, nil
	case 'd':
		out := make([]float64, length)
		for i := range out {
			out[i] = math.Float64frombits(le.Uint64(raw[i*8:]))
		}
		return out, nil
	case 'l':
		out := make([]int64, length)
		for i := range out {
			out[i] = int64(le.Uint64(raw[i*8:]))
		}
		return out, nil
	case 'i':
		out := make([]int32, length)
		for i := range out {
			out[i] = int32(le.Uint32(raw[i*4:]))
		}
		return out, nil
	default:
		out := make([]bool, length)
		for i := range out {
			out[i] = raw[i] != 0
		}
		return out, nil
	}
}

// Int64 returns an integer property value.
func (p FBXProperty) Int64() (int64, bool) {
	switch v := p.Value.(type) {
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	}
	return 0, false
}

// Float64 returns a numeric property value as float64.
func (p FBXProperty) Float64() (float64, bool) {
	switch v := p.Value.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	if i, ok := p.Int64(); ok {
		return float64(i), true
	}
	return 0, false
}

// Str returns a string property value.
func (p FBXProperty) Str() (string, bool) {
	s, ok := p.Value.(string)
	return s, ok
}

// Float64s returns a float array property as float64.
func (p FBXProperty) Float64s() ([]float64, bool) {
	switch v := p.Value.(type) {
	case []float64:
		return v, true
	case []float32:
		out := make([]float64, len(v))
		for i, f := range v {
			out[i] = float64(f)
		}
		return out, true
	}
	return nil, false
}

// Int32s returns an integer array property as int32.
func (p FBXProperty) Int32s() ([]int32, bool) {
	switch v := p.Value.(type) {
	case []int32:
		return v, true
	case []int64:
		out := make([]int32, len(v))
		for i, n := range v {
			out[i] = int32(n)
		}
		return out, true
	}
	return nil, false
}

// FBXGeometry is a "Mesh" geometry object.
type FBXGeometry struct {
	ID       int64
	Name     string
	Vertices []float64 // packed x, y, z
	// PolygonVertexIndex lists vertex indices per polygon; the last index of
	// each polygon is stored as ^index (bitwise not).
	PolygonVertexIndex []int32
}

// FBXModel is a transform node.
type FBXModel struct {
	ID          int64
	Name        string
	Translation [3]float64
	Rotation    [3]float64 // Euler XYZ, degrees
	Scaling     [3]float64
}

// FBXConnection links a child object to a parent (0 is the scene root).
type FBXConnection struct {
	Kind   string
	Child  int64
	Parent int64
}

// FBXScene is the object layer extracted from the node tree.
type FBXScene struct {
	Geometries      []FBXGeometry
	Models          []FBXModel
	Connections     []FBXConnection
	AnimationStacks int
}

// Scene extracts geometries, models and connections.
func (f *FBX) Scene() (*FBXScene, error) {
	objects := f.Find("Objects")
	if objects == nil {
		return nil, fmt.Errorf("%w: missing Objects section", ErrInvalidFBX)
	}

	scene := &FBXScene{}
	for _, obj := range objects.Children {
		switch obj.Name {
		case "Geometry":
			geom, ok, err := parseFBXGeometry(obj)
			if err != nil {
				return nil, err
			}
			if ok {
				scene.Geometries = append(scene.Geometries, geom)
			}
		case "Model":
			model, err := parseFBXModel(obj)
			if err != nil {
				return nil, err
			}
			scene.Models = append(scene.Models, model)
		case "AnimationStack":
			scene.AnimationStacks++
		}
	}

	if conns := f.Find("Connections"); conns != nil {
		for _, c := range conns.Children {
			if c.Name != "C" || len(c.Properties) < 3 {
				continue
			}
			kind, _ := c.Properties[0].Str()
			child, ok1 := c.Properties[1].Int64()
			parent, ok2 := c.Properties[2].Int64()
			if !ok1 || !ok2 {
				return nil, fmt.Errorf("%w: connection with non-integer ids", ErrInvalidFBX)
			}
			scene.Connections = append(scene.Connections, FBXConnection{Kind: kind, Child: child, Parent: parent})
		}
	}

	return scene, nil
}

// objectHeader reads the (id, "name\x00\x01Class", subclass) property triple.
func objectHeader(n *FBXNode) (id int64, name, subclass string, err error) {
	if len(n.Properties) < 3 {
		return 0, "", "", fmt.Errorf("%w: %s object has %d properties", ErrInvalidFBX, n.Name, len(n.Properties))
	}
	id, ok := n.Properties[0].Int64()
	if !ok {
		return 0, "", "", fmt.Errorf("%w: %s object id is not an integer", ErrInvalidFBX, n.Name)
	}
	full, _ := n.Properties[1].Str()
	name, _, _ = strings.Cut(full, "\x00\x01")
	subclass, _ = n.Properties[2].Str()
	return id, name, subclass, nil
}

func parseFBXGeometry(n *FBXNode) (FBXGeometry, bool, error) {
	id, name, subclass, err := objectHeader(n)
	if err != nil {
		return FBXGeometry{}, false, err
	}
	if subclass != "Mesh" {
		return FBXGeometry{}, false, nil
	}

	geom := FBXGeometry{ID: id, Name: name}
	if v := n.Child("Vertices"); v != nil && len(v.Properties) > 0 {
		geom.Vertices, _ = v.Properties[0].Float64s()
	}
	if pvi := n.Child("PolygonVertexIndex"); pvi != nil && len(pvi.Properties) > 0 {
		geom.PolygonVertexIndex, _ = pvi.Properties[0].Int32s()
	}
	if len(geom.Vertices)%3 != 0 {
		return FBXGeometry{}, false, fmt.Errorf("%w: geometry %q has %d vertex components", ErrInvalidFBX, name, len(geom.Vertices))
	}
	return geom, true, nil
}

func parseFBXModel(n *FBXNode) (FBXModel, error) {
	id, name, _, err := objectHeader(n)
	if err != nil {
		return FBXModel{}, err
	}

	model := FBXModel{ID: id, Name: name, Scaling: [3]float64{1, 1, 1}}
	props := n.Child("Properties70")
	if props == nil {
		return model, nil
	}
	for _, prop := range props.Children {
		if prop.Name != "P" || len(prop.Properties) < 7 {
			continue
		}
		key, _ := prop.Properties[0].Str()
		var v [3]float64
		for i := 0; i < 3; i++ {
			v[i], _ = prop.Properties[4+i].Float64()
		}
		switch key {
		case "Lcl Translation":
			model.Translation = v
		case "Lcl Rotation":
			model.Rotation = v
		case "Lcl Scaling":
			model.Scaling = v
		}
	}
	return model, nil
}
