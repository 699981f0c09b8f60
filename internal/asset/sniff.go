package asset

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"

	"github.com/Faultbox/meshview/pkg/formats"
)

// ErrContentMismatch reports bytes recognized as a different file type than
// the extension claims.
var ErrContentMismatch = errors.New("content does not match extension")

var (
	typeGLB = filetype.NewType("glb", "model/gltf-binary")
	typeFBX = filetype.NewType("fbx", "application/vnd.autodesk.fbx")
	typeRSM = filetype.NewType("rsm", "application/x-rsm")
	typeSTL = filetype.NewType("stl", "model/stl")
)

func init() {
	filetype.AddMatcher(typeGLB, func(buf []byte) bool {
		return bytes.HasPrefix(buf, []byte("glTF"))
	})
	filetype.AddMatcher(typeFBX, func(buf []byte) bool {
		return bytes.HasPrefix(buf, []byte(formats.FBXMagic))
	})
	filetype.AddMatcher(typeRSM, func(buf []byte) bool {
		return bytes.HasPrefix(buf, []byte("GRSM"))
	})
	filetype.AddMatcher(typeSTL, IsBinarySTL)
}

// Binary STL layout: an 80-byte header, a uint32 triangle count, then one
// 50-byte record per triangle.
const (
	STLHeaderSize = 80
	stlRecordSize = 50
)

// BinarySTLSize returns the size a binary STL must have for the triangle
// count in its header. ok is false when data is too short to hold a header.
func BinarySTLSize(data []byte) (size int64, ok bool) {
	if len(data) < STLHeaderSize+4 {
		return 0, false
	}
	count := binary.LittleEndian.Uint32(data[STLHeaderSize:])
	return STLHeaderSize + 4 + int64(count)*stlRecordSize, true
}

// IsBinarySTL reports whether data has exactly the size its header declares.
// Binary files may start with "solid", so size is the only reliable mark.
func IsBinarySTL(data []byte) bool {
	size, ok := BinarySTLSize(data)
	return ok && size == int64(len(data))
}

// expected lists the sniffed types each format accepts. Text encodings (OBJ,
// ASCII STL, JSON glTF) are not sniffable and pass when nothing matches.
var expected = map[FormatTag][]types.Type{
	GltfLike: {typeGLB},
	FbxScene: {typeFBX},
	RsmModel: {typeRSM},
	StlMesh:  {typeSTL},
}

// Sniff checks data against its claimed format. Unrecognized content is let
// through for the decoder to judge; content recognized as some other type is
// rejected.
func Sniff(tag FormatTag, data []byte) error {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return nil
	}
	for _, want := range expected[tag] {
		if kind == want {
			return nil
		}
	}
	return fmt.Errorf("%w: content is %s", ErrContentMismatch, kind.MIME.Value)
}
