// Package bounds computes the world-space bounding volume of the visible part
// of a normalized scene.
package bounds

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/meshview/internal/clip"
	"github.com/Faultbox/meshview/internal/material"
)

// Box is an axis-aligned bounding box accumulated in float64.
type Box struct {
	Min, Max r3.Vec
}

// Empty returns a box that contains nothing; Extend grows it.
func Empty() Box {
	inf := math.Inf(1)
	return Box{
		Min: r3.Vec{X: inf, Y: inf, Z: inf},
		Max: r3.Vec{X: -inf, Y: -inf, Z: -inf},
	}
}

// IsEmpty reports whether no point was added.
func (b Box) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Extend grows the box to contain p.
func (b Box) Extend(p r3.Vec) Box {
	b.Min = r3.Vec{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)}
	b.Max = r3.Vec{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)}
	return b
}

// Center returns the box midpoint.
func (b Box) Center() r3.Vec {
	return r3.Scale(0.5, r3.Add(b.Min, b.Max))
}

// Size returns the edge lengths.
func (b Box) Size() r3.Vec {
	return r3.Sub(b.Max, b.Min)
}

// Radius returns the radius of the bounding sphere around Center.
func (b Box) Radius() float64 {
	return r3.Norm(b.Size()) / 2
}

// Float32 returns the corners for the renderer.
func (b Box) Float32() (min, max [3]float32) {
	return [3]float32{float32(b.Min.X), float32(b.Min.Y), float32(b.Min.Z)},
		[3]float32{float32(b.Max.X), float32(b.Max.Y), float32(b.Max.Z)}
}

// Compute returns the bounds of the geometry of rs left visible by planes.
// Triangles crossing a plane are clipped to it, so the box hugs the cut. The
// second result is false when nothing is visible.
func Compute(rs *material.RenderableScene, planes []clip.Plane) (Box, bool) {
	box := Empty()
	if rs == nil {
		return box, false
	}

	poly := make([]r3.Vec, 0, 3+len(planes))
	scratch := make([]r3.Vec, 0, 3+len(planes))
	for _, it := range rs.Items {
		g := it.Geometry
		world := make([]r3.Vec, len(g.Positions))
		for i, p := range g.Positions {
			w := it.World.TransformPoint(p)
			world[i] = r3.Vec{X: float64(w[0]), Y: float64(w[1]), Z: float64(w[2])}
		}

		for t := 0; t < g.TriangleCount(); t++ {
			poly = append(poly[:0],
				world[g.Indices[t*3]],
				world[g.Indices[t*3+1]],
				world[g.Indices[t*3+2]])
			for _, pl := range planes {
				poly, scratch = clipPolygon(poly, pl, scratch[:0]), poly
				if len(poly) == 0 {
					break
				}
			}
			for _, p := range poly {
				box = box.Extend(p)
			}
		}
	}
	return box, !box.IsEmpty()
}

// clipPolygon keeps the part of a convex polygon on the visible side of pl
// (Sutherland-Hodgman), appending to out.
func clipPolygon(in []r3.Vec, pl clip.Plane, out []r3.Vec) []r3.Vec {
	dist := func(p r3.Vec) float64 {
		return float64(pl.Offset) - component(p, pl.Axis)
	}
	for i, cur := range in {
		prev := in[(i+len(in)-1)%len(in)]
		dc, dp := dist(cur), dist(prev)
		if (dc >= 0) != (dp >= 0) {
			t := dp / (dp - dc)
			out = append(out, r3.Add(prev, r3.Scale(t, r3.Sub(cur, prev))))
		}
		if dc >= 0 {
			out = append(out, cur)
		}
	}
	return out
}

func component(p r3.Vec, a clip.Axis) float64 {
	switch a {
	case clip.X:
		return p.X
	case clip.Y:
		return p.Y
	default:
		return p.Z
	}
}
