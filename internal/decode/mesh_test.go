package decode

import (
	"context"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/meshview/internal/fixtures"
)

const asciiTriangle = `solid tri
  facet normal 0 0 1
    outer loop
      vertex 0 0 0
      vertex 1 0 0
      vertex 0 1 0
    endloop
  endfacet
endsolid tri
`

func TestSTL_Binary(t *testing.T) {
	g, err := STL(context.Background(), "cube.stl", fixtures.CubeSTL())
	require.NoError(t, err)

	require.Len(t, g.Root.Children, 1)
	geom := g.Root.Children[0].Primitives[0].Geometry
	assert.Equal(t, fixtures.CubeTriangles, geom.TriangleCount())
	assert.Len(t, geom.Normals, fixtures.CubeTriangles*3)
	assert.Equal(t, [3]float32{0, 0, -1}, geom.Normals[0])
}

func TestSTL_BinaryHeaderStartingWithSolid(t *testing.T) {
	// exporters commonly write "solid" into the binary header
	data := fixtures.CubeSTL()
	copy(data, "solid exported by a CAD tool")

	g, err := STL(context.Background(), "cube.stl", data)
	require.NoError(t, err)
	assert.Equal(t, fixtures.CubeTriangles, g.TriangleCount())
}

func TestSTL_BinaryTrailingBytes(t *testing.T) {
	data := append(fixtures.CubeSTL(), make([]byte, 16)...)

	g, err := STL(context.Background(), "cube.stl", data)
	require.NoError(t, err)
	assert.Equal(t, fixtures.CubeTriangles, g.TriangleCount())
}

func TestSTL_ASCII(t *testing.T) {
	g, err := STL(context.Background(), "tri.stl", []byte("\n  "+asciiTriangle))
	require.NoError(t, err)

	require.Len(t, g.Root.Children, 1)
	assert.Equal(t, "tri", g.Root.Children[0].Name)
	assert.Equal(t, 1, g.TriangleCount())

	g, err = STL(context.Background(), "cube_ascii.stl", fixtures.CubeASCIISTL())
	require.NoError(t, err)
	assert.Equal(t, fixtures.CubeTriangles, g.TriangleCount())
}

func TestSTL_ZeroNormalIsRecomputed(t *testing.T) {
	src := strings.Replace(asciiTriangle, "facet normal 0 0 1", "facet normal 0 0 0", 1)

	g, err := STL(context.Background(), "tri.stl", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, [3]float32{0, 0, 1}, g.Root.Children[0].Primitives[0].Geometry.Normals[0])
}

func TestSTL_Errors(t *testing.T) {
	cube := fixtures.CubeSTL()
	huge := make([]byte, 84)
	binary.LittleEndian.PutUint32(huge[80:], 0xFFFFFFFF)

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty", nil, ErrTruncatedSTL},
		{"short header", make([]byte, 40), ErrTruncatedSTL},
		{"truncated records", cube[:len(cube)-30], ErrTruncatedSTL},
		{"count past end of data", huge, ErrTruncatedSTL},
		{"missing endsolid", []byte("solid x\nfacet normal 0 0 1\n"), ErrInvalidSTL},
		{"bad number", []byte(strings.Replace(asciiTriangle, "vertex 1 0 0", "vertex 1 zero 0", 1)), ErrInvalidSTL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := STL(context.Background(), "bad.stl", tt.data)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, g)
		})
	}
}

func TestOBJ_QuadIsFanned(t *testing.T) {
	src := "o quad\nv 0 0 0\nv 1 0 0\nv 1 1 0\nv 0 1 0\nf 1 2 3 4\n"

	g, err := OBJ(context.Background(), "quad.obj", []byte(src))
	require.NoError(t, err)

	require.Len(t, g.Root.Children, 1)
	assert.Equal(t, "quad", g.Root.Children[0].Name)
	geom := g.Root.Children[0].Primitives[0].Geometry
	assert.Len(t, geom.Positions, 4)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, geom.Indices)
	assert.Equal(t, [3]float32{0, 0, 1}, geom.Normals[0])
}

func TestOBJ_SharedCornersAreMerged(t *testing.T) {
	g, err := OBJ(context.Background(), "cube.obj", fixtures.CubeOBJ())
	require.NoError(t, err)

	geom := g.Root.Children[0].Primitives[0].Geometry
	assert.Equal(t, fixtures.CubeTriangles, geom.TriangleCount())
	// each corner carries its face normal, so the 8 positions split into 24
	assert.Len(t, geom.Positions, 24)
}

func TestOBJ_RelativeIndices(t *testing.T) {
	src := "o tri\nv 0 0 0\nv 1 0 0\nv 0 1 0\nf -3 -2 -1\n"

	g, err := OBJ(context.Background(), "tri.obj", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, 1, g.TriangleCount())
}

func TestOBJ_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr error
	}{
		{"index out of range", "o a\nv 0 0 0\nf 1 2 3\n", ErrInvalidOBJ},
		{"bad index", "o a\nv 0 0 0\nf a b c\n", ErrInvalidOBJ},
		{"binary content", "v 0 0 0\x00\x01", ErrBinaryOBJ},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := OBJ(context.Background(), "bad.obj", []byte(tt.src))
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, g)
		})
	}
}
