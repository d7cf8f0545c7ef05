package math

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

/**
 * @brief Represents a single vertex in 2D space.
 */
type Vertex2D struct {
	/** @brief The position of the vertex, in normalized device coordinates. */
	Position mgl32.Vec2
	/** @brief The colour of the vertex. */
	Colour mgl32.Vec3
}

// Vertex2DStride is the distance in bytes between two consecutive vertices in a buffer.
const Vertex2DStride = uint32(unsafe.Sizeof(Vertex2D{}))

// Vertex2DPositionOffset and Vertex2DColourOffset locate the attributes inside a vertex.
const (
	Vertex2DPositionOffset = uint32(unsafe.Offsetof(Vertex2D{}.Position))
	Vertex2DColourOffset   = uint32(unsafe.Offsetof(Vertex2D{}.Colour))
)

func NewVertex2D(x, y, r, g, b float32) Vertex2D {
	return Vertex2D{
		Position: mgl32.Vec2{x, y},
		Colour:   mgl32.Vec3{r, g, b},
	}
}
