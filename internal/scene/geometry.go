package scene

import (
	"errors"
	"fmt"

	"github.com/Faultbox/meshview/pkg/math"
)

// ErrInvalidGeometry is wrapped by Geometry.Validate failures.
var ErrInvalidGeometry = errors.New("invalid geometry")

// Geometry is an indexed triangle list.
type Geometry struct {
	Positions [][3]float32
	Normals   [][3]float32 // one per position, or empty
	Indices   []uint32
}

// TriangleCount returns the number of triangles.
func (g *Geometry) TriangleCount() int {
	return len(g.Indices) / 3
}

// Validate checks index bounds, normal count and that positions are finite.
func (g *Geometry) Validate() error {
	if len(g.Indices)%3 != 0 {
		return fmt.Errorf("%w: %d indices is not a triangle list", ErrInvalidGeometry, len(g.Indices))
	}
	if len(g.Normals) != 0 && len(g.Normals) != len(g.Positions) {
		return fmt.Errorf("%w: %d normals for %d positions", ErrInvalidGeometry, len(g.Normals), len(g.Positions))
	}
	for i, idx := range g.Indices {
		if int(idx) >= len(g.Positions) {
			return fmt.Errorf("%w: index %d = %d out of range", ErrInvalidGeometry, i, idx)
		}
	}
	for i, p := range g.Positions {
		if !math.V3(p).IsFinite() {
			return fmt.Errorf("%w: position %d is not finite", ErrInvalidGeometry, i)
		}
	}
	return nil
}

// Triangle returns the corners of triangle i.
func (g *Geometry) Triangle(i int) [3][3]float32 {
	return [3][3]float32{
		g.Positions[g.Indices[i*3]],
		g.Positions[g.Indices[i*3+1]],
		g.Positions[g.Indices[i*3+2]],
	}
}

// ComputeNormals fills Normals with area-weighted vertex normals. Vertices
// only used by degenerate triangles get +Y.
func (g *Geometry) ComputeNormals() {
	sums := make([]math.Vec3, len(g.Positions))
	for t := 0; t < g.TriangleCount(); t++ {
		tri := g.Triangle(t)
		a, b, c := math.V3(tri[0]), math.V3(tri[1]), math.V3(tri[2])
		n := b.Sub(a).Cross(c.Sub(a))
		for k := 0; k < 3; k++ {
			idx := g.Indices[t*3+k]
			sums[idx] = sums[idx].Add(n)
		}
	}

	g.Normals = make([][3]float32, len(g.Positions))
	for i, s := range sums {
		if s.Length() < 1e-12 {
			g.Normals[i] = [3]float32{0, 1, 0}
			continue
		}
		g.Normals[i] = s.Normalize().Array()
	}
}

// Weld merges triangle soup corners that share a position, so shared edges
// smooth. Normals are dropped; call ComputeNormals afterwards.
func Weld(soup [][3]float32) *Geometry {
	g := &Geometry{Indices: make([]uint32, len(soup))}
	seen := make(map[[3]float32]uint32, len(soup))
	for i, p := range soup {
		idx, ok := seen[p]
		if !ok {
			idx = uint32(len(g.Positions))
			seen[p] = idx
			g.Positions = append(g.Positions, p)
		}
		g.Indices[i] = idx
	}
	return g
}
