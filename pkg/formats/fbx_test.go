package formats

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"runtime"
	"testing"

	"github.com/Faultbox/meshview/internal/fixtures"
)

func TestParseFBX_Mesh(t *testing.T) {
	for _, version := range []uint32{7400, 7500} {
		t.Run(fmtVersion(version), func(t *testing.T) {
			verts := []float64{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}
			data := fixtures.EncodeFBX(version,
				fixtures.FBXMesh(10, 20, "Quad", verts, []int32{0, 1, 2, ^3}, [3]float64{5, 0, 0}, version == 7500)...)

			fbx, err := ParseFBX(data)
			if err != nil {
				t.Fatalf("ParseFBX: %v", err)
			}
			if fbx.Version != version {
				t.Errorf("version = %d, want %d", fbx.Version, version)
			}
			if fbx.Find("Objects") == nil || fbx.Find("Connections") == nil {
				t.Fatal("missing top-level sections")
			}

			scene, err := fbx.Scene()
			if err != nil {
				t.Fatalf("Scene: %v", err)
			}
			if len(scene.Geometries) != 1 {
				t.Fatalf("geometries = %d, want 1", len(scene.Geometries))
			}
			g := scene.Geometries[0]
			if g.ID != 10 || g.Name != "Quad" {
				t.Errorf("geometry = %d %q", g.ID, g.Name)
			}
			if len(g.Vertices) != 12 || g.Vertices[3] != 1 {
				t.Errorf("vertices = %v", g.Vertices)
			}
			if len(g.PolygonVertexIndex) != 4 || g.PolygonVertexIndex[3] != -4 {
				t.Errorf("polygon index = %v", g.PolygonVertexIndex)
			}

			if len(scene.Models) != 1 {
				t.Fatalf("models = %d, want 1", len(scene.Models))
			}
			m := scene.Models[0]
			if m.Translation != [3]float64{5, 0, 0} || m.Scaling != [3]float64{1, 1, 1} {
				t.Errorf("model transform t=%v s=%v", m.Translation, m.Scaling)
			}
			if len(scene.Connections) != 2 || scene.Connections[1] != (FBXConnection{Kind: "OO", Child: 10, Parent: 20}) {
				t.Errorf("connections = %+v", scene.Connections)
			}
		})
	}
}

func fmtVersion(v uint32) string {
	if v >= 7500 {
		return "wide"
	}
	return "narrow"
}

func TestParseFBX_PropertyTypes(t *testing.T) {
	data := fixtures.EncodeFBX(7400, fixtures.FBXNode{
		Name: "Values",
		Props: []fixtures.FBXProp{
			{'Y', 0xff, 0xff},
			{'C', 1},
			{'I', 7, 0, 0, 0},
			{'F', 0, 0, 0x80, 0x3f},
			fixtures.Float64Prop(2.5),
			fixtures.Int64Prop(-3),
			fixtures.StringProp("hi"),
			{'R', 2, 0, 0, 0, 0xaa, 0xbb},
		},
	})

	fbx, err := ParseFBX(data)
	if err != nil {
		t.Fatalf("ParseFBX: %v", err)
	}
	props := fbx.Nodes[0].Properties
	want := []any{int16(-1), true, int32(7), float32(1), 2.5, int64(-3), "hi", []byte{0xaa, 0xbb}}
	if len(props) != len(want) {
		t.Fatalf("properties = %d, want %d", len(props), len(want))
	}
	for i, w := range want {
		if b, ok := w.([]byte); ok {
			got, _ := props[i].Value.([]byte)
			if string(got) != string(b) {
				t.Errorf("prop %d = %v, want %v", i, props[i].Value, w)
			}
			continue
		}
		if props[i].Value != w {
			t.Errorf("prop %d = %#v, want %#v", i, props[i].Value, w)
		}
	}

	if f, ok := props[2].Float64(); !ok || f != 7 {
		t.Errorf("Float64 of int property = %v %v", f, ok)
	}
	if _, ok := props[6].Int64(); ok {
		t.Error("string property must not convert to int")
	}
}

func TestParseFBX_Errors(t *testing.T) {
	valid := fixtures.CubeFBX()

	unknownType := fixtures.EncodeFBX(7400, fixtures.FBXNode{Name: "X", Props: []fixtures.FBXProp{{'Q', 0}}})

	deep := fixtures.FBXNode{Name: "leaf"}
	for i := 0; i < 70; i++ {
		deep = fixtures.FBXNode{Name: "n", Children: []fixtures.FBXNode{deep}}
	}

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty", nil, ErrTruncatedFBX},
		{"bad magic", append([]byte("Kaydara FBX Ascii   \x00\x1a\x00"), 0xe8, 0x1c, 0, 0), ErrInvalidFBXMagic},
		{"truncated", valid[:len(valid)/2], ErrTruncatedFBX},
		{"unknown property", unknownType, ErrInvalidFBX},
		{"too deep", fixtures.EncodeFBX(7400, deep), ErrInvalidFBX},
		{"header only", valid[:27], ErrInvalidFBX},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFBX(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFBX_SceneRequiresObjects(t *testing.T) {
	fbx, err := ParseFBX(fixtures.EncodeFBX(7400, fixtures.FBXNode{Name: "FBXHeaderExtension"}))
	if err != nil {
		t.Fatalf("ParseFBX: %v", err)
	}
	if _, err := fbx.Scene(); !errors.Is(err, ErrInvalidFBX) {
		t.Errorf("err = %v, want ErrInvalidFBX", err)
	}
}

func TestFBX_AnimationStacks(t *testing.T) {
	fbx, err := ParseFBX(fixtures.EncodeFBX(7400, fixtures.FBXNode{Name: "Objects", Children: []fixtures.FBXNode{
		{Name: "AnimationStack", Props: []fixtures.FBXProp{fixtures.Int64Prop(1), fixtures.StringProp("Take 001"), fixtures.StringProp("")}},
	}}))
	if err != nil {
		t.Fatalf("ParseFBX: %v", err)
	}
	scene, err := fbx.Scene()
	if err != nil {
		t.Fatalf("Scene: %v", err)
	}
	if scene.AnimationStacks != 1 {
		t.Errorf("animation stacks = %d, want 1", scene.AnimationStacks)
	}
}

func TestParseFBX_CompressedArrayClaimingTooMuch(t *testing.T) {
	var z bytes.Buffer
	zw := zlib.NewWriter(&z)
	zw.Write(make([]byte, 10))
	zw.Close()

	// a 512 MiB byte array backed by a handful of compressed bytes
	prop := fixtures.FBXProp{'b'}
	prop = binary.LittleEndian.AppendUint32(prop, 1<<29)
	prop = binary.LittleEndian.AppendUint32(prop, 1)
	prop = binary.LittleEndian.AppendUint32(prop, uint32(z.Len()))
	prop = append(prop, z.Bytes()...)
	data := fixtures.EncodeFBX(7400, fixtures.FBXNode{Name: "X", Props: []fixtures.FBXProp{prop}})

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	_, err := ParseFBX(data)
	runtime.ReadMemStats(&after)

	if !errors.Is(err, ErrInvalidFBX) {
		t.Errorf("err = %v, want %v", err, ErrInvalidFBX)
	}
	if grew := after.TotalAlloc - before.TotalAlloc; grew > 64<<20 {
		t.Errorf("allocated %d bytes before rejecting the array", grew)
	}
}
