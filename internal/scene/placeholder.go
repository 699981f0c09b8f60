package scene

// PlaceholderName names the graph shown while nothing is loaded.
const PlaceholderName = "placeholder"

// Placeholder returns the fallback shown in the Empty and Error states: a unit
// octahedron centered at the origin. Every call returns an equal graph.
func Placeholder() *Graph {
	g := NewGraph(PlaceholderName, "")
	geom := &Geometry{
		Positions: [][3]float32{
			{1, 0, 0}, {-1, 0, 0},
			{0, 1, 0}, {0, -1, 0},
			{0, 0, 1}, {0, 0, -1},
		},
		Indices: []uint32{
			0, 2, 4, 4, 2, 1, 1, 2, 5, 5, 2, 0,
			4, 3, 0, 1, 3, 4, 5, 3, 1, 0, 3, 5,
		},
	}
	geom.ComputeNormals()
	g.Root.AddPrimitive(geom, SourceMaterial{Name: PlaceholderName})
	return g
}

// BoxWireframeVertexCount is the number of line vertices BoxWireframe emits.
const BoxWireframeVertexCount = 24

// BoxWireframe returns the 12 edges of an axis-aligned box as GL_LINES
// vertices, packed x, y, z.
func BoxWireframe(min, max [3]float32) []float32 {
	x0, y0, z0 := min[0], min[1], min[2]
	x1, y1, z1 := max[0], max[1], max[2]
	return []float32{
		// bottom
		x0, y0, z0, x1, y0, z0,
		x1, y0, z0, x1, y0, z1,
		x1, y0, z1, x0, y0, z1,
		x0, y0, z1, x0, y0, z0,
		// top
		x0, y1, z0, x1, y1, z0,
		x1, y1, z0, x1, y1, z1,
		x1, y1, z1, x0, y1, z1,
		x0, y1, z1, x0, y1, z0,
		// verticals
		x0, y0, z0, x0, y1, z0,
		x1, y0, z0, x1, y1, z0,
		x1, y0, z1, x1, y1, z1,
		x0, y0, z1, x0, y1, z1,
	}
}
