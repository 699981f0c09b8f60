package asset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/meshview/internal/fixtures"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		want FormatTag
	}{
		{"model.glb", GltfLike},
		{"model.GLTF", GltfLike},
		{"dir/part.obj", ObjMesh},
		{"cube.StL", StlMesh},
		{"rig.fbx", FbxScene},
		{"prop.rsm", RsmModel},
		{"notes.txt", Unknown},
		{"noextension", Unknown},
		{"archive.stl.zip", Unknown},
		{"", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.name))
		})
	}
}

func TestFormatTag_String(t *testing.T) {
	assert.Equal(t, "stl", StlMesh.String())
	assert.Equal(t, "unknown", Unknown.String())
	assert.Equal(t, "unknown", FormatTag(99).String())
}

func TestExtensions(t *testing.T) {
	assert.Equal(t, []string{".fbx", ".glb", ".gltf", ".obj", ".rsm", ".stl"}, Extensions())
}

func TestRegistry_GenerationsIncrease(t *testing.T) {
	reg := NewRegistry()

	a, err := reg.Ingest("a.stl", []byte("a"))
	require.NoError(t, err)
	b, err := reg.Ingest("b.txt", []byte("b"))
	require.NoError(t, err)

	assert.Equal(t, uint64(1), a.Generation())
	assert.Equal(t, uint64(2), b.Generation())
	assert.Equal(t, Unknown, b.Format())
	assert.Equal(t, uint64(2), reg.Generation())
	assert.Equal(t, 2, reg.Live())
}

func TestHandle_ReleaseRoundTrip(t *testing.T) {
	reg := NewRegistry()
	baseline := reg.Live()

	a, err := reg.Ingest("a.stl", fixtures.CubeSTL())
	require.NoError(t, err)
	b, err := reg.Ingest("b.obj", fixtures.CubeOBJ())
	require.NoError(t, err)
	a.Release()
	b.Release()
	b.Release() // idempotent

	assert.Equal(t, baseline, reg.Live())
	assert.True(t, a.Released())

	_, err = a.Bytes()
	assert.ErrorIs(t, err, ErrReleased)
	assert.Equal(t, len(fixtures.CubeSTL()), a.Size())
}

func TestHandle_EmptyUploadIsLive(t *testing.T) {
	reg := NewRegistry()
	h, err := reg.Ingest("empty.stl", nil)
	require.NoError(t, err)

	data, err := h.Bytes()
	require.NoError(t, err)
	assert.Empty(t, data)
	assert.False(t, h.Released())
}

func TestRegistry_ReleaseAll(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Ingest("a.stl", []byte("a"))
	require.NoError(t, err)
	_, err = reg.Ingest("b.stl", []byte("b"))
	require.NoError(t, err)

	err = reg.ReleaseAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leaked handle")
	assert.Equal(t, 0, reg.Live())

	_, err = reg.Ingest("c.stl", []byte("c"))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRegistry_ReleaseAllClean(t *testing.T) {
	reg := NewRegistry()
	h, err := reg.Ingest("a.stl", []byte("a"))
	require.NoError(t, err)
	h.Release()

	assert.NoError(t, reg.ReleaseAll())
}

func TestSniff(t *testing.T) {
	glb, err := fixtures.CubeGLB()
	require.NoError(t, err)
	png := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0}

	tests := []struct {
		name    string
		tag     FormatTag
		data    []byte
		wantErr bool
	}{
		{"binary stl", StlMesh, fixtures.CubeSTL(), false},
		{"ascii stl", StlMesh, fixtures.CubeASCIISTL(), false},
		{"obj text", ObjMesh, fixtures.CubeOBJ(), false},
		{"glb", GltfLike, glb, false},
		{"fbx", FbxScene, fixtures.CubeFBX(), false},
		{"rsm", RsmModel, fixtures.CubeRSM(), false},
		{"png named stl", StlMesh, png, true},
		{"glb named fbx", FbxScene, glb, true},
		{"fbx named obj", ObjMesh, fixtures.CubeFBX(), true},
		{"empty", StlMesh, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Sniff(tt.tag, tt.data)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrContentMismatch)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSniff_ReportsMIME(t *testing.T) {
	err := Sniff(StlMesh, []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "image/png")
}

func TestBinarySTLSize(t *testing.T) {
	cube := fixtures.CubeSTL()

	size, ok := BinarySTLSize(cube)
	require.True(t, ok)
	assert.Equal(t, int64(len(cube)), size)
	assert.True(t, IsBinarySTL(cube))

	assert.False(t, IsBinarySTL(cube[:len(cube)-1]), "size mismatch")
	assert.False(t, IsBinarySTL(fixtures.CubeASCIISTL()), "ascii text")

	_, ok = BinarySTLSize(cube[:STLHeaderSize+3])
	assert.False(t, ok, "no room for the triangle count")
}
