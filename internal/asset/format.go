// Package asset turns uploaded files into owned, generation-tagged handles and
// classifies them into the format variants the decoders understand.
package asset

import (
	"path/filepath"
	"sort"
	"strings"
)

// FormatTag is the format variant a file is dispatched on.
type FormatTag int

const (
	Unknown FormatTag = iota
	GltfLike
	ObjMesh
	StlMesh
	FbxScene
	RsmModel
)

var formatNames = map[FormatTag]string{
	Unknown:  "unknown",
	GltfLike: "gltf",
	ObjMesh:  "obj",
	StlMesh:  "stl",
	FbxScene: "fbx",
	RsmModel: "rsm",
}

func (f FormatTag) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return "unknown"
}

var extensions = map[string]FormatTag{
	".gltf": GltfLike,
	".glb":  GltfLike,
	".obj":  ObjMesh,
	".stl":  StlMesh,
	".fbx":  FbxScene,
	".rsm":  RsmModel,
}

// Classify derives the format from the file extension, case-insensitively.
// Names without a recognized extension are Unknown.
func Classify(name string) FormatTag {
	return extensions[strings.ToLower(filepath.Ext(name))]
}

// Extensions returns the accepted extensions in sorted order.
func Extensions() []string {
	out := make([]string, 0, len(extensions))
	for ext := range extensions {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}
