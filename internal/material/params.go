// Package material applies the viewer's global material parameters to every
// drawable primitive of a decoded scene.
package material

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/chewxy/math32"

	"github.com/Faultbox/meshview/internal/clip"
)

// RGB is a linear color with channels in [0, 1].
type RGB struct {
	R, G, B float32
}

// ParseHex parses "#rrggbb" or "rrggbb".
func ParseHex(s string) (RGB, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return RGB{}, fmt.Errorf("color %q: want 6 hex digits", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("color %q: %w", s, err)
	}
	return RGB{
		R: float32(v>>16&0xff) / 255,
		G: float32(v>>8&0xff) / 255,
		B: float32(v&0xff) / 255,
	}, nil
}

// MustHex is ParseHex for constants.
func MustHex(s string) RGB {
	c, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Hex formats the color as "#rrggbb".
func (c RGB) Hex() string {
	to8 := func(f float32) int { return int(math32.Round(clamp01(f) * 255)) }
	return fmt.Sprintf("#%02x%02x%02x", to8(c.R), to8(c.G), to8(c.B))
}

// Palette is the color cycle offered by the control surface.
var Palette = []RGB{
	MustHex("#4f9dde"),
	MustHex("#e0e0e0"),
	MustHex("#e8a33d"),
	MustHex("#d9534f"),
	MustHex("#5cb85c"),
	MustHex("#9b59b6"),
}

// Parameters is the single authoritative material record.
type Parameters struct {
	Wireframe bool
	BaseColor RGB
	Opacity   float32
	Planes    []clip.Plane
}

// DefaultParameters returns a solid, opaque, unclipped material.
func DefaultParameters() Parameters {
	return Parameters{BaseColor: Palette[0], Opacity: 1}
}

// Sanitize clamps color and opacity to [0, 1] and keeps at most one plane per
// axis (the last one given), ordered by axis.
func (p Parameters) Sanitize() Parameters {
	out := Parameters{
		Wireframe: p.Wireframe,
		BaseColor: RGB{clamp01(p.BaseColor.R), clamp01(p.BaseColor.G), clamp01(p.BaseColor.B)},
		Opacity:   clamp01(p.Opacity),
	}
	byAxis := make(map[clip.Axis]clip.Plane, len(p.Planes))
	for _, pl := range p.Planes {
		if pl.Axis >= clip.X && pl.Axis <= clip.Z {
			byAxis[pl.Axis] = pl
		}
	}
	for _, pl := range byAxis {
		out.Planes = append(out.Planes, pl)
	}
	sort.Slice(out.Planes, func(i, j int) bool { return out.Planes[i].Axis < out.Planes[j].Axis })
	return out
}

func clamp01(v float32) float32 {
	if math32.IsNaN(v) {
		return 0
	}
	return math32.Max(0, math32.Min(1, v))
}

// State is the material every primitive draws with. It is comparable, so two
// applications can be checked for identical output.
type State struct {
	Wireframe   bool
	Color       [4]float32
	Transparent bool
	DepthWrite  bool
	Planes      [3]clip.Plane
	NumPlanes   int
}

// StateFor derives the draw state from parameters.
func StateFor(p Parameters) State {
	p = p.Sanitize()
	s := State{
		Wireframe:   p.Wireframe,
		Color:       [4]float32{p.BaseColor.R, p.BaseColor.G, p.BaseColor.B, p.Opacity},
		Transparent: p.Opacity < 1,
		NumPlanes:   len(p.Planes),
	}
	s.DepthWrite = !s.Transparent
	copy(s.Planes[:], p.Planes)
	return s
}

// ActivePlanes returns the planes the state clips against.
func (s State) ActivePlanes() []clip.Plane {
	return s.Planes[:s.NumPlanes]
}
