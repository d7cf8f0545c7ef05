package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

const pushConstantStages = vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit)

/**
 * @brief A pipeline layout with a single push constant range visible to the
 * vertex and fragment stages, and no descriptor sets.
 */
type VulkanPipelineLayout struct {
	Handle  vk.PipelineLayout
	context *VulkanContext
}

func NewPipelineLayout(context *VulkanContext) (*VulkanPipelineLayout, error) {
	ranges := []vk.PushConstantRange{
		{
			StageFlags: pushConstantStages,
			Offset:     0,
			Size:       metadata.PushConstantSize,
		},
	}

	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         0,
		PSetLayouts:            nil,
		PushConstantRangeCount: uint32(len(ranges)),
		PPushConstantRanges:    ranges,
	}

	var pPipelineLayout vk.PipelineLayout
	if err := context.lockPool.SafeCall(PipelineManagement, func() error {
		return VulkanError(vk.CreatePipelineLayout(
			context.Device.LogicalDevice,
			&pipelineLayoutCreateInfo,
			context.Allocator,
			&pPipelineLayout), "vkCreatePipelineLayout")
	}); err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	return &VulkanPipelineLayout{
		Handle:  pPipelineLayout,
		context: context,
	}, nil
}

func (vl *VulkanPipelineLayout) PushConstants(commandBuffer metadata.CommandBuffer, data *metadata.PushConstantData) {
	cb := commandBuffer.(*VulkanCommandBuffer)
	vk.CmdPushConstants(cb.Handle, vl.Handle, pushConstantStages, 0, metadata.PushConstantSize, unsafe.Pointer(data))
}

func (vl *VulkanPipelineLayout) Destroy() error {
	if vl.Handle == nil {
		return nil
	}
	return vl.context.lockPool.SafeCall(PipelineManagement, func() error {
		vk.DestroyPipelineLayout(vl.context.Device.LogicalDevice, vl.Handle, vl.context.Allocator)
		vl.Handle = nil
		return nil
	})
}

/**
 * @brief Holds a Vulkan graphics pipeline and the render target it was built for.
 */
type VulkanPipeline struct {
	/** @brief The internal pipeline handle. */
	Handle vk.Pipeline
	/** @brief The attachments the pipeline renders into. */
	Target metadata.RenderTargetDescription

	id      core.Identifier
	context *VulkanContext
}

func NewGraphicsPipeline(context *VulkanContext, layout *VulkanPipelineLayout, swapchain *VulkanSwapchain, config metadata.PipelineConfig) (*VulkanPipeline, error) {
	target := swapchain.RenderTarget()
	if err := config.Validate(target); err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	stages, err := NewShaderStages(context, config.VertexShader, config.FragmentShader)
	if err != nil {
		return nil, err
	}
	// The modules are only needed while the pipeline is being built.
	defer DestroyShaderStages(context, stages)

	stageInfos := make([]vk.PipelineShaderStageCreateInfo, len(stages))
	for i := range stages {
		stageInfos[i] = stages[i].ShaderStageCreateInfo
	}

	// Viewport and scissor are dynamic, only the counts are given here.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	// Rasterizer
	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                cullModeFlags(config.CullMode),
		FrontFace:               frontFace(config.FrontFace),
		DepthBiasEnable:         vk.False,
	}
	if config.IsWireframe {
		rasterizerCreateInfo.PolygonMode = vk.PolygonModeLine
	}

	// Multisampling.
	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:   vk.False,
		RasterizationSamples:  sampleCount(config.Samples),
		MinSampleShading:      1.0,
		PSampleMask:           nil,
		AlphaToCoverageEnable: vk.False,
		AlphaToOneEnable:      vk.False,
	}

	// Depth and stencil testing.
	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:       vk.False,
		DepthWriteEnable:      vk.False,
		DepthCompareOp:        vk.CompareOpLess,
		DepthBoundsTestEnable: vk.False,
		StencilTestEnable:     vk.False,
		MinDepthBounds:        0.0,
		MaxDepthBounds:        1.0,
	}
	if config.DepthTest {
		depthStencil.DepthTestEnable = vk.True
	}
	if config.DepthWrite {
		depthStencil.DepthWriteEnable = vk.True
	}

	colorBlendAttachmentState := vk.PipelineColorBlendAttachmentState{
		BlendEnable:         vk.False,
		SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
		DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorSrcAlpha,
		DstAlphaBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}
	if config.BlendEnabled {
		colorBlendAttachmentState.BlendEnable = vk.True
	}

	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachmentState},
	}

	// Dynamic state
	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	// Vertex input
	bindingDescription := vk.VertexInputBindingDescription{
		Binding:   0, // Binding index
		Stride:    math.Vertex2DStride,
		InputRate: vk.VertexInputRateVertex, // Move to next data entry for each vertex.
	}

	// Attributes
	attributes := []vk.VertexInputAttributeDescription{
		{
			Location: 0,
			Binding:  0,
			Format:   vk.FormatR32g32Sfloat,
			Offset:   math.Vertex2DPositionOffset,
		},
		{
			Location: 1,
			Binding:  0,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   math.Vertex2DColourOffset,
		},
	}
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   1,
		PVertexBindingDescriptions:      []vk.VertexInputBindingDescription{bindingDescription},
		VertexAttributeDescriptionCount: uint32(len(attributes)),
		PVertexAttributeDescriptions:    attributes,
	}

	// Input assembly
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               primitiveTopology(config.Topology),
		PrimitiveRestartEnable: vk.False,
	}

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stageInfos)),
		PStages:             stageInfos,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		PTessellationState:  nil,
		Layout:              layout.Handle,
		RenderPass:          swapchain.Renderpass.Handle,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}
	if !target.HasDepth() {
		pipelineCreateInfo.PDepthStencilState = nil
	}

	pPipelines := make([]vk.Pipeline, 1)
	if err := context.lockPool.SafeCall(PipelineManagement, func() error {
		return VulkanError(vk.CreateGraphicsPipelines(
			context.Device.LogicalDevice,
			vk.NullPipelineCache,
			1,
			[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo},
			context.Allocator,
			pPipelines), "vkCreateGraphicsPipelines")
	}); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	if pPipelines[0] == vk.NullPipeline {
		err := errors.New("vulkan pipeline handle is nil")
		core.LogError(err.Error())
		return nil, err
	}

	outPipeline := &VulkanPipeline{
		Handle:  pPipelines[0],
		Target:  target,
		id:      core.NewIdentifier("pipeline"),
		context: context,
	}
	core.LogDebug("%s created for %s", outPipeline.id, swapchain.ID())
	return outPipeline, nil
}

func (pipeline *VulkanPipeline) Bind(commandBuffer metadata.CommandBuffer) {
	cb := commandBuffer.(*VulkanCommandBuffer)
	vk.CmdBindPipeline(cb.Handle, vk.PipelineBindPointGraphics, pipeline.Handle)
}

func (pipeline *VulkanPipeline) Destroy() error {
	if pipeline.Handle == vk.NullPipeline {
		return nil
	}
	return pipeline.context.lockPool.SafeCall(PipelineManagement, func() error {
		vk.DestroyPipeline(pipeline.context.Device.LogicalDevice, pipeline.Handle, pipeline.context.Allocator)
		pipeline.Handle = vk.NullPipeline
		core.LogDebug("%s destroyed", pipeline.id)
		return nil
	})
}

func cullModeFlags(mode metadata.FaceCullMode) vk.CullModeFlags {
	switch mode {
	case metadata.FaceCullModeNone:
		return vk.CullModeFlags(vk.CullModeNone)
	case metadata.FaceCullModeFront:
		return vk.CullModeFlags(vk.CullModeFrontBit)
	case metadata.FaceCullModeFrontAndBack:
		return vk.CullModeFlags(vk.CullModeFrontAndBack)
	default:
		return vk.CullModeFlags(vk.CullModeBackBit)
	}
}

func frontFace(face metadata.FrontFace) vk.FrontFace {
	if face == metadata.FrontFaceClockwise {
		return vk.FrontFaceClockwise
	}
	return vk.FrontFaceCounterClockwise
}

func primitiveTopology(topology metadata.PrimitiveTopology) vk.PrimitiveTopology {
	switch topology {
	case metadata.PrimitiveTopologyTriangleStrip:
		return vk.PrimitiveTopologyTriangleStrip
	case metadata.PrimitiveTopologyLineList:
		return vk.PrimitiveTopologyLineList
	case metadata.PrimitiveTopologyPointList:
		return vk.PrimitiveTopologyPointList
	default:
		return vk.PrimitiveTopologyTriangleList
	}
}

func sampleCount(samples uint32) vk.SampleCountFlagBits {
	switch samples {
	case 2:
		return vk.SampleCount2Bit
	case 4:
		return vk.SampleCount4Bit
	case 8:
		return vk.SampleCount8Bit
	case 16:
		return vk.SampleCount16Bit
	default:
		return vk.SampleCount1Bit
	}
}
