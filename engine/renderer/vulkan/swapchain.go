package vulkan

import (
	"math"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/core"
	emath "github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

/**
 * @brief The presentable images of the surface together with everything
 * needed to render into them: views, an optional depth attachment, a render
 * pass, one framebuffer per image and the per-frame synchronization objects.
 */
type VulkanSwapchain struct {
	id      core.Identifier
	context *VulkanContext

	Handle      vk.Swapchain
	ImageFormat vk.SurfaceFormat
	PresentMode vk.PresentMode
	extent      vk.Extent2D

	imageCount uint32
	Images     []vk.Image
	Views      []vk.ImageView

	DepthAttachment *VulkanImage
	Renderpass      *VulkanRenderpass
	// framebuffers used for on-screen rendering.
	Framebuffers []*VulkanFramebuffer

	MaxFramesInFlight uint32

	// Indexed by frame slot.
	imageAvailableSemaphores []vk.Semaphore
	renderFinishedSemaphores []vk.Semaphore
	inFlightFences           []*VulkanFence

	// Indexed by image. The fence of the frame slot that last rendered into the image.
	images *imageTracker

	currentFrame uint32
}

// NewSwapchain builds a swapchain for extent. previous, when not nil, is handed
// to the driver as the old swapchain and stays owned by the caller.
func NewSwapchain(context *VulkanContext, extent metadata.Extent, previous *VulkanSwapchain) (*VulkanSwapchain, error) {
	if extent.IsDegenerate() {
		return nil, errors.Wrapf(core.ErrDegenerateExtent, "cannot create a swapchain of %s", extent)
	}

	// The surface may have changed since the device was selected.
	support := &context.Device.SwapchainSupport
	if err := DeviceQuerySwapchainSupport(context.Device.PhysicalDevice, context.Surface, support); err != nil {
		err = errors.Wrap(err, "failed to query swapchain support")
		core.LogError(err.Error())
		return nil, err
	}
	if support.FormatCount == 0 || support.PresentModeCount == 0 {
		err := errors.New("surface reports no formats or present modes")
		core.LogError(err.Error())
		return nil, err
	}

	swapchain := &VulkanSwapchain{
		id:                core.NewIdentifier("swapchain"),
		context:           context,
		ImageFormat:       chooseSurfaceFormat(support.Formats),
		PresentMode:       choosePresentMode(support.PresentModes, context.config.PresentMode),
		extent:            chooseExtent(support.Capabilities, extent),
		MaxFramesInFlight: context.config.FramesInFlight,
	}
	if swapchain.MaxFramesInFlight == 0 {
		swapchain.MaxFramesInFlight = 2
	}
	if swapchain.extent.Width == 0 || swapchain.extent.Height == 0 {
		return nil, errors.Wrap(core.ErrDegenerateExtent, "surface capabilities report an empty extent")
	}

	if err := swapchain.create(previous); err != nil {
		swapchain.destroy()
		return nil, err
	}

	core.LogInfo("%s created: %dx%d, %d images, present mode %d", swapchain.id, swapchain.extent.Width, swapchain.extent.Height, swapchain.imageCount, swapchain.PresentMode)
	return swapchain, nil
}

func (vs *VulkanSwapchain) create(previous *VulkanSwapchain) error {
	context := vs.context
	capabilities := context.Device.SwapchainSupport.Capabilities

	imageCount := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && imageCount > capabilities.MaxImageCount {
		imageCount = capabilities.MaxImageCount
	}

	// Swapchain create info
	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      vs.ImageFormat.Format,
		ImageColorSpace:  vs.ImageFormat.ColorSpace,
		ImageExtent:      vs.extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      vs.PresentMode,
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}

	// Setup the queue family indices
	if context.Device.GraphicsQueueIndex != context.Device.PresentQueueIndex {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{
			uint32(context.Device.GraphicsQueueIndex),
			uint32(context.Device.PresentQueueIndex),
		}
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	if previous != nil {
		swapchainCreateInfo.OldSwapchain = previous.Handle
	}

	var swapchainHandle vk.Swapchain
	if err := context.lockPool.SafeCall(SwapchainManagement, func() error {
		return VulkanError(vk.CreateSwapchain(context.Device.LogicalDevice, &swapchainCreateInfo, context.Allocator, &swapchainHandle), "vkCreateSwapchainKHR")
	}); err != nil {
		err = errors.Wrap(err, "failed to create swapchain")
		core.LogError(err.Error())
		return err
	}
	vs.Handle = swapchainHandle

	// Images
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, vs.Handle, &vs.imageCount, nil); res != vk.Success {
		return errors.Wrap(VulkanError(res, "vkGetSwapchainImagesKHR"), "failed to get swapchain images")
	}
	vs.Images = make([]vk.Image, vs.imageCount)
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, vs.Handle, &vs.imageCount, vs.Images); res != vk.Success {
		return errors.Wrap(VulkanError(res, "vkGetSwapchainImagesKHR"), "failed to get swapchain images")
	}

	// Views
	vs.Views = make([]vk.ImageView, vs.imageCount)
	for i := range vs.Images {
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    vs.Images[i],
			ViewType: vk.ImageViewType2d,
			Format:   vs.ImageFormat.Format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		}
		if res := vk.CreateImageView(context.Device.LogicalDevice, &viewInfo, context.Allocator, &vs.Views[i]); res != vk.Success {
			err := errors.Wrapf(VulkanError(res, "vkCreateImageView"), "failed to create view for swapchain image %d", i)
			core.LogError(err.Error())
			return err
		}
	}

	// Depth resources
	depthFormat := context.Device.DepthFormat
	if depthFormat != vk.FormatUndefined {
		depthAttachment, err := ImageCreate(
			context,
			vk.ImageType2d,
			vs.extent.Width,
			vs.extent.Height,
			depthFormat,
			vk.ImageTilingOptimal,
			vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
			vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
			true,
			vk.ImageAspectFlags(vk.ImageAspectDepthBit))
		if err != nil {
			return errors.Wrap(err, "failed to create depth attachment")
		}
		vs.DepthAttachment = depthAttachment
	}

	renderpass, err := RenderpassCreate(context, vs.ImageFormat.Format, depthFormat)
	if err != nil {
		return err
	}
	vs.Renderpass = renderpass

	vs.Framebuffers = make([]*VulkanFramebuffer, 0, vs.imageCount)
	for i := range vs.Views {
		attachments := []vk.ImageView{vs.Views[i]}
		if vs.DepthAttachment != nil {
			attachments = append(attachments, vs.DepthAttachment.View)
		}
		framebuffer, err := FramebufferCreate(context, vs.Renderpass, vs.extent.Width, vs.extent.Height, attachments)
		if err != nil {
			return errors.Wrapf(err, "framebuffer for swapchain image %d", i)
		}
		vs.Framebuffers = append(vs.Framebuffers, framebuffer)
	}

	return vs.createSyncObjects()
}

func (vs *VulkanSwapchain) createSyncObjects() error {
	context := vs.context
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}

	// Semaphores and fences belong to a frame slot, not to an image; images track
	// the fence of the slot that last rendered into them.
	vs.imageAvailableSemaphores = make([]vk.Semaphore, 0, vs.MaxFramesInFlight)
	vs.renderFinishedSemaphores = make([]vk.Semaphore, 0, vs.MaxFramesInFlight)
	vs.inFlightFences = make([]*VulkanFence, 0, vs.MaxFramesInFlight)
	for i := uint32(0); i < vs.MaxFramesInFlight; i++ {
		var imageAvailable, renderFinished vk.Semaphore
		if res := vk.CreateSemaphore(context.Device.LogicalDevice, &semaphoreCreateInfo, context.Allocator, &imageAvailable); res != vk.Success {
			return errors.Wrap(VulkanError(res, "vkCreateSemaphore"), "failed to create image available semaphore")
		}
		vs.imageAvailableSemaphores = append(vs.imageAvailableSemaphores, imageAvailable)

		if res := vk.CreateSemaphore(context.Device.LogicalDevice, &semaphoreCreateInfo, context.Allocator, &renderFinished); res != vk.Success {
			return errors.Wrap(VulkanError(res, "vkCreateSemaphore"), "failed to create render finished semaphore")
		}
		vs.renderFinishedSemaphores = append(vs.renderFinishedSemaphores, renderFinished)

		// Created signaled so the first wait on each slot returns immediately.
		fence, err := NewFence(context, true)
		if err != nil {
			return err
		}
		vs.inFlightFences = append(vs.inFlightFences, fence)
	}

	vs.images = newImageTracker(vs.imageCount)
	vs.currentFrame = 0
	return nil
}

func (vs *VulkanSwapchain) ID() string {
	return vs.id.String()
}

func (vs *VulkanSwapchain) frameFence() boundFence {
	return boundFence{context: vs.context, fence: vs.inFlightFences[vs.currentFrame]}
}

func (vs *VulkanSwapchain) AcquireNext() (uint32, metadata.ChainStatus, error) {
	context := vs.context
	frameFence := vs.frameFence()
	if err := frameFence.Wait(); err != nil {
		return 0, metadata.ChainFatal, errors.Wrapf(err, "%s: waiting for frame %d", vs.id, vs.currentFrame)
	}

	var imageIndex uint32
	result := vk.AcquireNextImage(
		context.Device.LogicalDevice,
		vs.Handle,
		math.MaxUint64,
		vs.imageAvailableSemaphores[vs.currentFrame],
		vk.NullFence,
		&imageIndex)

	status := chainStatus(result)
	switch status {
	case metadata.ChainStale:
		core.LogDebug("%s is out of date", vs.id)
		return 0, status, nil
	case metadata.ChainFatal:
		err := errors.Wrapf(chainError(result, "vkAcquireNextImageKHR"), "%s: failed to acquire image", vs.id)
		core.LogError(err.Error())
		return 0, status, err
	}

	if err := vs.images.acquire(imageIndex, frameFence); err != nil {
		err = errors.Wrapf(err, "%s", vs.id)
		core.LogError(err.Error())
		return 0, metadata.ChainFatal, err
	}
	return imageIndex, status, nil
}

func (vs *VulkanSwapchain) Submit(commandBuffer metadata.CommandBuffer, imageIndex uint32) (metadata.ChainStatus, error) {
	context := vs.context
	cb, ok := commandBuffer.(*VulkanCommandBuffer)
	if !ok {
		return metadata.ChainFatal, errors.Newf("%s: cannot submit a %T", vs.id, commandBuffer)
	}

	frameFence := vs.frameFence()
	if err := vs.images.submitted(imageIndex, frameFence); err != nil {
		return metadata.ChainFatal, errors.Wrapf(err, "%s", vs.id)
	}
	if err := frameFence.fence.FenceReset(context); err != nil {
		return metadata.ChainFatal, err
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{vs.imageAvailableSemaphores[vs.currentFrame]},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cb.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{vs.renderFinishedSemaphores[vs.currentFrame]},
	}
	if err := context.lockPool.SafeQueueCall(uint32(context.Device.GraphicsQueueIndex), func() error {
		return VulkanError(vk.QueueSubmit(context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, frameFence.fence.Handle), "vkQueueSubmit")
	}); err != nil {
		err = errors.Wrapf(err, "%s: failed to submit image %d", vs.id, imageIndex)
		core.LogError(err.Error())
		return metadata.ChainFatal, err
	}
	cb.UpdateSubmitted()

	// Return the image to the swapchain for presentation.
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{vs.renderFinishedSemaphores[vs.currentFrame]},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.Handle},
		PImageIndices:      []uint32{imageIndex},
		PResults:           nil,
	}
	var result vk.Result
	err := context.lockPool.SafeQueueCall(uint32(context.Device.PresentQueueIndex), func() error {
		result = vk.QueuePresent(context.Device.PresentQueue, &presentInfo)
		return chainError(result, "vkQueuePresentKHR")
	})

	vs.images.presented(imageIndex)
	// Increment (and loop) the index.
	vs.currentFrame = (vs.currentFrame + 1) % vs.MaxFramesInFlight

	if err != nil {
		err = errors.Wrapf(err, "%s: failed to present image %d", vs.id, imageIndex)
		core.LogError(err.Error())
		return metadata.ChainFatal, err
	}
	return chainStatus(result), nil
}

func (vs *VulkanSwapchain) BeginRenderPass(commandBuffer metadata.CommandBuffer, imageIndex uint32, clear metadata.ClearValues) {
	cb := commandBuffer.(*VulkanCommandBuffer)
	vs.Renderpass.RenderpassBegin(cb, vs.Framebuffers[imageIndex].Handle, vs.extent, clear)
}

func (vs *VulkanSwapchain) EndRenderPass(commandBuffer metadata.CommandBuffer) {
	vs.Renderpass.RenderpassEnd(commandBuffer.(*VulkanCommandBuffer))
}

func (vs *VulkanSwapchain) ImageCount() uint32 {
	return vs.imageCount
}

func (vs *VulkanSwapchain) Extent() metadata.Extent {
	return metadata.Extent{Width: vs.extent.Width, Height: vs.extent.Height}
}

func (vs *VulkanSwapchain) RenderTarget() metadata.RenderTargetDescription {
	return metadata.RenderTargetDescription{
		ColourFormat: metadata.Format(vs.ImageFormat.Format),
		DepthFormat:  metadata.Format(vs.context.Device.DepthFormat),
		Samples:      1,
	}
}

// Destroy releases the swapchain and everything built for it. The caller
// makes sure the device no longer uses any of it.
func (vs *VulkanSwapchain) Destroy() error {
	vs.destroy()
	core.LogDebug("%s destroyed", vs.id)
	return nil
}

func (vs *VulkanSwapchain) destroy() {
	context := vs.context
	device := context.Device.LogicalDevice

	for _, fence := range vs.inFlightFences {
		fence.FenceDestroy(context)
	}
	vs.inFlightFences = nil
	vs.images = nil
	for _, s := range vs.imageAvailableSemaphores {
		vk.DestroySemaphore(device, s, context.Allocator)
	}
	vs.imageAvailableSemaphores = nil
	for _, s := range vs.renderFinishedSemaphores {
		vk.DestroySemaphore(device, s, context.Allocator)
	}
	vs.renderFinishedSemaphores = nil

	for _, fb := range vs.Framebuffers {
		fb.Destroy(context)
	}
	vs.Framebuffers = nil
	if vs.Renderpass != nil {
		vs.Renderpass.RenderpassDestroy(context)
		vs.Renderpass = nil
	}
	if vs.DepthAttachment != nil {
		vs.DepthAttachment.ImageDestroy(context)
		vs.DepthAttachment = nil
	}

	// Only destroy the views, not the images, since those are owned by the swapchain and are thus
	// destroyed when it is.
	for _, view := range vs.Views {
		if view != nil {
			vk.DestroyImageView(device, view, context.Allocator)
		}
	}
	vs.Views = nil
	vs.Images = nil

	if vs.Handle != vk.NullSwapchain {
		_ = context.lockPool.SafeCall(SwapchainManagement, func() error {
			vk.DestroySwapchain(device, vs.Handle, context.Allocator)
			return nil
		})
		vs.Handle = vk.NullSwapchain
	}
}

// chainStatus maps the result of an acquire or a present to a chain status.
func chainStatus(result vk.Result) metadata.ChainStatus {
	switch result {
	case vk.Success:
		return metadata.ChainReady
	case vk.Suboptimal:
		return metadata.ChainSuboptimal
	case vk.ErrorOutOfDate:
		return metadata.ChainStale
	default:
		return metadata.ChainFatal
	}
}

// chainError reports the results chainStatus treats as fatal. Success codes
// such as VK_NOT_READY are fatal for a chain even though VulkanError accepts them.
func chainError(result vk.Result, op string) error {
	if chainStatus(result) != metadata.ChainFatal {
		return nil
	}
	return errors.Newf("%s failed with %s", op, VulkanResultString(result, true))
}

func chooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, format := range formats {
		// Preferred formats
		if format.Format == vk.FormatB8g8r8a8Srgb && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}
	return formats[0]
}

var presentModeNames = map[string]vk.PresentMode{
	"fifo":      vk.PresentModeFifo,
	"mailbox":   vk.PresentModeMailbox,
	"immediate": vk.PresentModeImmediate,
}

// choosePresentMode returns the preferred mode when the surface supports it. FIFO is always available.
func choosePresentMode(available []vk.PresentMode, preferred string) vk.PresentMode {
	want, ok := presentModeNames[preferred]
	if !ok {
		return vk.PresentModeFifo
	}
	for _, mode := range available {
		if mode == want {
			return mode
		}
	}
	core.LogWarn("Present mode %q not supported, falling back to fifo.", preferred)
	return vk.PresentModeFifo
}

func chooseExtent(capabilities vk.SurfaceCapabilities, requested metadata.Extent) vk.Extent2D {
	if capabilities.CurrentExtent.Width != math.MaxUint32 {
		return capabilities.CurrentExtent
	}
	// Clamp to the value allowed by the GPU.
	min := capabilities.MinImageExtent
	max := capabilities.MaxImageExtent
	return vk.Extent2D{
		Width:  emath.Clamp(requested.Width, min.Width, max.Width),
		Height: emath.Clamp(requested.Height, min.Height, max.Height),
	}
}
