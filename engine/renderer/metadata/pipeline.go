package metadata

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/prism/engine/core"
)

/**
 * @brief Fixed function state and shader stages of a graphics pipeline.
 * Viewport and scissor are always dynamic state and are not part of the config.
 */
type PipelineConfig struct {
	/** @brief Path to the compiled SPIR-V vertex stage. */
	VertexShader string
	/** @brief Path to the compiled SPIR-V fragment stage. */
	FragmentShader string

	Topology  PrimitiveTopology
	CullMode  FaceCullMode
	FrontFace FrontFace
	/** @brief Indicates if this pipeline should use wireframe mode. */
	IsWireframe bool
	/** @brief Rasterization sample count. Must match the render target. */
	Samples uint32
	/** @brief Alpha blending on the colour attachment. */
	BlendEnabled bool
	DepthTest    bool
	DepthWrite   bool
}

// DefaultPipelineConfig returns single sampled, unblended, counter-clockwise
// triangle list state with depth testing.
func DefaultPipelineConfig(vertexShader, fragmentShader string) PipelineConfig {
	return PipelineConfig{
		VertexShader:   vertexShader,
		FragmentShader: fragmentShader,
		Topology:       PrimitiveTopologyTriangleList,
		CullMode:       FaceCullModeNone,
		FrontFace:      FrontFaceCounterClockwise,
		IsWireframe:    false,
		Samples:        1,
		BlendEnabled:   false,
		DepthTest:      true,
		DepthWrite:     true,
	}
}

// Validate checks that the config can render into target.
func (c PipelineConfig) Validate(target RenderTargetDescription) error {
	if c.VertexShader == "" || c.FragmentShader == "" {
		return errors.Wrap(core.ErrShaderLoad, "pipeline requires a vertex and a fragment stage")
	}
	if (c.DepthTest || c.DepthWrite) && !target.HasDepth() {
		return errors.Wrap(core.ErrIncompatibleRenderTarget, "depth test requested without a depth attachment")
	}
	if c.Samples == 0 {
		return errors.Wrap(core.ErrIncompatibleRenderTarget, "sample count must be at least 1")
	}
	if c.Samples != target.Samples {
		return errors.Wrapf(core.ErrIncompatibleRenderTarget, "pipeline uses %d samples, render target has %d", c.Samples, target.Samples)
	}
	if target.ColourFormat == FormatUndefined {
		return errors.Wrap(core.ErrIncompatibleRenderTarget, "render target has no colour attachment")
	}
	return nil
}
