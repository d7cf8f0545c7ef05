package metadata

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

/** @brief The size in pixels of a drawable surface or a swapchain image. */
type Extent struct {
	Width  uint32
	Height uint32
}

// IsDegenerate reports whether either dimension is zero, as happens while a window is minimized.
func (e Extent) IsDegenerate() bool {
	return e.Width == 0 || e.Height == 0
}

func (e Extent) String() string {
	return fmt.Sprintf("%dx%d", e.Width, e.Height)
}

/** @brief The outcome of acquiring or presenting a swapchain image. */
type ChainStatus int

const (
	/** @brief The operation succeeded and the chain matches the surface. */
	ChainReady ChainStatus = iota
	/** @brief The operation succeeded but the chain should be rebuilt before the next frame. */
	ChainSuboptimal
	/** @brief The chain can no longer be used and must be rebuilt. */
	ChainStale
	/** @brief An unrecoverable error occurred. */
	ChainFatal
)

func (s ChainStatus) String() string {
	switch s {
	case ChainReady:
		return "ready"
	case ChainSuboptimal:
		return "suboptimal"
	case ChainStale:
		return "stale"
	case ChainFatal:
		return "fatal"
	default:
		return fmt.Sprintf("ChainStatus(%d)", int(s))
	}
}

/** @brief A backend format code. Zero means undefined. */
type Format uint32

const FormatUndefined Format = 0

/**
 * @brief The attachment contract a pipeline must match to render into a
 * swapchain image. Two descriptions are compatible when they are equal.
 */
type RenderTargetDescription struct {
	ColourFormat Format
	DepthFormat  Format
	Samples      uint32
}

func (r RenderTargetDescription) HasDepth() bool {
	return r.DepthFormat != FormatUndefined
}

/** @brief Values used to clear the attachments at the start of a render pass. */
type ClearValues struct {
	Colour  [4]float32
	Depth   float32
	Stencil uint32
}

/**
 * @brief The per-draw data pushed to the shaders. The padding mirrors the
 * std430 layout of the shader block: the vec3 starts on a 16 byte boundary.
 */
type PushConstantData struct {
	Offset mgl32.Vec2
	_      [8]byte
	Colour mgl32.Vec3
	_      [4]byte
}

// PushConstantSize is the size in bytes of the push constant range.
const PushConstantSize = uint32(unsafe.Sizeof(PushConstantData{}))

/** @brief Determines face culling mode during rendering. */
type FaceCullMode int

const (
	/** @brief No faces are culled. */
	FaceCullModeNone FaceCullMode = 0x0
	/** @brief Only front faces are culled. */
	FaceCullModeFront FaceCullMode = 0x1
	/** @brief Only back faces are culled. */
	FaceCullModeBack FaceCullMode = 0x2
	/** @brief Both front and back faces are culled. */
	FaceCullModeFrontAndBack FaceCullMode = 0x3
)

type FrontFace int

const (
	FrontFaceCounterClockwise FrontFace = iota
	FrontFaceClockwise
)

type PrimitiveTopology int

const (
	PrimitiveTopologyTriangleList PrimitiveTopology = iota
	PrimitiveTopologyTriangleStrip
	PrimitiveTopologyLineList
	PrimitiveTopologyPointList
)
