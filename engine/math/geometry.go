package math

// TriangleVertices returns a single triangle with a red, a green and a blue corner.
func TriangleVertices() []Vertex2D {
	return []Vertex2D{
		NewVertex2D(0.0, -0.5, 1.0, 0.0, 0.0),
		NewVertex2D(0.5, 0.5, 0.0, 1.0, 0.0),
		NewVertex2D(-0.5, 0.5, 0.0, 0.0, 1.0),
	}
}

// SierpinskiVertexCount is the number of vertices Sierpinski emits for depth.
func SierpinskiVertexCount(depth int) int {
	if depth < 0 {
		depth = 0
	}
	n := 3
	for i := 0; i < depth; i++ {
		n *= 3
	}
	return n
}

// Sierpinski subdivides the triangle whose bottom-left corner is (px, py) and whose
// bounding box is width x height, recursing depth times. Every emitted triangle is
// white; per-instance colour comes from push constants.
// A negative depth is treated as 0.
func Sierpinski(depth int, width, height, px, py float32) []Vertex2D {
	vertices := make([]Vertex2D, 0, SierpinskiVertexCount(depth))
	return sierpinski(vertices, depth, width, height, px, py)
}

func sierpinski(out []Vertex2D, depth int, width, height, px, py float32) []Vertex2D {
	if depth <= 0 {
		return append(out,
			NewVertex2D(px, py, 1.0, 1.0, 1.0),
			NewVertex2D(px+width/2.0, py-height, 1.0, 1.0, 1.0),
			NewVertex2D(px+width, py, 1.0, 1.0, 1.0),
		)
	}
	halfHeight := height / 2.0
	halfWidth := width / 2.0
	out = sierpinski(out, depth-1, halfWidth, halfHeight, px, py)
	out = sierpinski(out, depth-1, halfWidth, halfHeight, px+width/4.0, py-halfHeight)
	return sierpinski(out, depth-1, halfWidth, halfHeight, px+width/2.0, py)
}
