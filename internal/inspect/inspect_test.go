package inspect

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/muesli/termenv"
	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/meshview/internal/asset"
	"github.com/Faultbox/meshview/internal/config"
	"github.com/Faultbox/meshview/internal/fixtures"
	"github.com/Faultbox/meshview/internal/viewer"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestRunEveryFixture(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for key, name := range fixtures.Names {
		data, err := fixtures.ByName(key)
		require.NoError(t, err)
		paths = append(paths, writeFile(t, dir, name, data))
	}

	reports, err := Run(context.Background(), config.Default(), paths)
	require.NoError(t, err)
	require.Len(t, reports, len(paths))

	for i, r := range reports {
		assert.Equal(t, paths[i], r.Path, "order preserved")
		require.Nil(t, r.Fault, r.Path)
		assert.Equal(t, fixtures.CubeTriangles, r.Stats.Triangles, r.Path)
		assert.False(t, r.Bounds.IsEmpty(), r.Path)
		size := r.Bounds.Size()
		assert.InDelta(t, 2, size.X, 1e-6, r.Path)
		assert.InDelta(t, 2, size.Y, 1e-6, r.Path)
		assert.InDelta(t, 2, size.Z, 1e-6, r.Path)
	}
}

func TestRunClassifiesFailures(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeFile(t, dir, "cube.stl", fixtures.CubeSTL()),
		writeFile(t, dir, "notes.txt", []byte("hello")),
		writeFile(t, dir, "broken.fbx", fixtures.Truncate(fixtures.CubeFBX())),
		filepath.Join(dir, "missing.obj"),
	}

	reports, err := Run(context.Background(), config.Default(), paths)
	require.NoError(t, err)

	assert.Nil(t, reports[0].Fault)
	assert.Equal(t, asset.StlMesh, reports[0].Format)

	require.NotNil(t, reports[1].Fault)
	assert.Equal(t, viewer.UnsupportedFormat, reports[1].Fault.Kind)

	require.NotNil(t, reports[2].Fault)
	assert.Equal(t, viewer.DecodeFailure, reports[2].Fault.Kind)

	require.NotNil(t, reports[3].Fault)
	assert.Equal(t, viewer.DecodeFailure, reports[3].Fault.Kind)
	assert.ErrorIs(t, reports[3].Fault, os.ErrNotExist)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	path := writeFile(t, t.TempDir(), "cube.stl", fixtures.CubeSTL())

	_, err := Run(ctx, config.Default(), []string{path})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeFile(t, dir, "cube.obj", fixtures.CubeOBJ()),
		writeFile(t, dir, "notes.txt", []byte("hello")),
	}
	reports, err := Run(context.Background(), config.Default(), paths)
	require.NoError(t, err)

	var buf bytes.Buffer
	out := termenv.NewOutput(&buf, termenv.WithProfile(termenv.Ascii))
	failed := Write(&buf, out, reports)

	assert.Equal(t, 1, failed)
	text := buf.String()
	assert.Contains(t, text, "OK "+paths[0])
	assert.Contains(t, text, "triangles: 12")
	assert.Contains(t, text, "size:      2.000 x 2.000 x 2.000")
	assert.Contains(t, text, "FAIL "+paths[1])
	assert.Contains(t, text, "kind:      unsupported format")
	assert.NotContains(t, text, "\x1b[", "ascii profile has no escapes")
}

func TestWriteReportsIgnoredAnimation(t *testing.T) {
	doc := fixtures.CubeDocument()
	doc.Animations = []*gltf.Animation{{Name: "spin"}}
	data, err := fixtures.Encode(doc, true)
	require.NoError(t, err)
	path := writeFile(t, t.TempDir(), "spin.glb", data)

	reports, err := Run(context.Background(), config.Default(), []string{path})
	require.NoError(t, err)
	require.Nil(t, reports[0].Fault)
	assert.True(t, reports[0].Animated)

	var buf bytes.Buffer
	Write(&buf, termenv.NewOutput(&buf, termenv.WithProfile(termenv.Ascii)), reports)
	assert.Contains(t, buf.String(), "animation: ignored, rest pose shown")
}
