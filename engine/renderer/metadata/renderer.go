package metadata

// CommandBuffer records GPU commands for one swapchain image.
type CommandBuffer interface {
	Begin() error
	End() error
	// SetViewport sets the dynamic viewport to cover extent.
	SetViewport(extent Extent)
	// SetScissor sets the dynamic scissor to cover extent.
	SetScissor(extent Extent)
}

/**
 * @brief A set of presentable images sized to the surface, with the
 * synchronization needed to render into them. The image count is fixed for
 * the lifetime of a chain; a resize builds a new one.
 */
type PresentationChain interface {
	// ID names the chain in log output.
	ID() string
	// AcquireNext blocks until the next image and its previous submission are
	// available. A Stale status means no image was acquired.
	AcquireNext() (uint32, ChainStatus, error)
	// Submit executes the recorded buffer for imageIndex and presents the image.
	Submit(commandBuffer CommandBuffer, imageIndex uint32) (ChainStatus, error)
	BeginRenderPass(commandBuffer CommandBuffer, imageIndex uint32, clear ClearValues)
	EndRenderPass(commandBuffer CommandBuffer)
	ImageCount() uint32
	Extent() Extent
	RenderTarget() RenderTargetDescription
	Destroy() error
}

/** @brief Describes the push constant range shared by every pipeline. Created once. */
type PipelineLayout interface {
	PushConstants(commandBuffer CommandBuffer, data *PushConstantData)
	Destroy() error
}

/** @brief An immutable graphics pipeline. */
type Pipeline interface {
	Bind(commandBuffer CommandBuffer)
	Destroy() error
}

/** @brief Uploaded vertex data for the scene's model. */
type Geometry interface {
	Bind(commandBuffer CommandBuffer)
	Draw(commandBuffer CommandBuffer)
	VertexCount() uint32
}

/** @brief The GPU objects factory the frame loop works against. */
type Device interface {
	// WaitIdle blocks until all submitted work has completed.
	WaitIdle() error
	CreatePipelineLayout() (PipelineLayout, error)
	// CreateChain builds a chain for extent. previous, if not nil, is handed to
	// the driver so it can recycle resources; it stays valid and owned by the caller.
	CreateChain(extent Extent, previous PresentationChain) (PresentationChain, error)
	CreatePipeline(layout PipelineLayout, chain PresentationChain, config PipelineConfig) (Pipeline, error)
	AllocateCommandBuffers(count uint32) ([]CommandBuffer, error)
	FreeCommandBuffers(buffers []CommandBuffer)
}

/** @brief The window the frames are presented to. */
type Surface interface {
	CurrentExtent() Extent
	ShouldClose() bool
	PollEvents()
	// WaitEvents blocks until at least one window event is available.
	WaitEvents()
	WasResized() bool
	ResetResizedFlag()
}
