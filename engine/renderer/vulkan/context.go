package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

type VulkanConfig struct {
	ApplicationName string
	// Enables VK_LAYER_KHRONOS_validation and the debug report callback.
	Validation bool
	// Number of frames the CPU may record ahead of the GPU.
	FramesInFlight uint32
	// Preferred present mode: "mailbox", "fifo" or "immediate". FIFO is used when unavailable.
	PresentMode string
}

// SurfaceSource is the window the context presents to.
type SurfaceSource interface {
	RequiredInstanceExtensions() []string
	CreateWindowSurface(instance interface{}) (uintptr, error)
}

/**
 * @brief Owns the instance, the surface and the logical device. Implements
 * metadata.Device, creating every per-chain object the frame loop needs.
 */
type VulkanContext struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	debugMessenger vk.DebugReportCallback

	Device *VulkanDevice

	config   VulkanConfig
	lockPool *VulkanLockPool
}

func (vc *VulkanContext) FindMemoryIndex(typeFilter, propertyFlags uint32) int32 {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(vc.Device.PhysicalDevice, &memoryProperties)
	memoryProperties.Deref()

	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		// Check each memory type to see if its bit is set to 1.
		memoryProperties.MemoryTypes[i].Deref()
		if (typeFilter&(1<<i)) != 0 && (uint32(memoryProperties.MemoryTypes[i].PropertyFlags)&propertyFlags) == propertyFlags {
			return int32(i)
		}
	}
	core.LogWarn("Unable to find suitable memory type!")
	return -1
}

func (vc *VulkanContext) WaitIdle() error {
	return vc.lockPool.SafeCall(DeviceManagement, func() error {
		return VulkanError(vk.DeviceWaitIdle(vc.Device.LogicalDevice), "vkDeviceWaitIdle")
	})
}

func (vc *VulkanContext) CreatePipelineLayout() (metadata.PipelineLayout, error) {
	layout, err := NewPipelineLayout(vc)
	if err != nil {
		return nil, err
	}
	return layout, nil
}

func (vc *VulkanContext) CreateChain(extent metadata.Extent, previous metadata.PresentationChain) (metadata.PresentationChain, error) {
	var old *VulkanSwapchain
	if previous != nil {
		sc, ok := previous.(*VulkanSwapchain)
		if !ok {
			return nil, errors.Newf("cannot recreate a swapchain from %T", previous)
		}
		old = sc
	}
	sc, err := NewSwapchain(vc, extent, old)
	if err != nil {
		return nil, err
	}
	return sc, nil
}

func (vc *VulkanContext) CreatePipeline(layout metadata.PipelineLayout, chain metadata.PresentationChain, config metadata.PipelineConfig) (metadata.Pipeline, error) {
	vl, ok := layout.(*VulkanPipelineLayout)
	if !ok {
		return nil, errors.Newf("cannot build a pipeline with a %T layout", layout)
	}
	sc, ok := chain.(*VulkanSwapchain)
	if !ok {
		return nil, errors.Newf("cannot build a pipeline for a %T chain", chain)
	}
	pipeline, err := NewGraphicsPipeline(vc, vl, sc, config)
	if err != nil {
		return nil, err
	}
	return pipeline, nil
}

func (vc *VulkanContext) AllocateCommandBuffers(count uint32) ([]metadata.CommandBuffer, error) {
	buffers, err := NewVulkanCommandBuffers(vc, vc.Device.GraphicsCommandPool, count)
	if err != nil {
		return nil, err
	}
	out := make([]metadata.CommandBuffer, len(buffers))
	for i := range buffers {
		out[i] = buffers[i]
	}
	core.LogDebug("Vulkan command buffers created.")
	return out, nil
}

func (vc *VulkanContext) FreeCommandBuffers(buffers []metadata.CommandBuffer) {
	vbs := make([]*VulkanCommandBuffer, 0, len(buffers))
	for _, b := range buffers {
		if vb, ok := b.(*VulkanCommandBuffer); ok {
			vbs = append(vbs, vb)
		}
	}
	FreeVulkanCommandBuffers(vc, vc.Device.GraphicsCommandPool, vbs)
}

// Destroy releases the device, the surface and the instance. Every object
// created from the context must be destroyed first.
func (vc *VulkanContext) Destroy() {
	if vc.Device != nil && vc.Device.LogicalDevice != nil {
		vk.DeviceWaitIdle(vc.Device.LogicalDevice)
		core.LogDebug("Destroying Vulkan device...")
		DeviceDestroy(vc)
	}

	core.LogDebug("Destroying Vulkan surface...")
	if vc.Surface != vk.NullSurface {
		vk.DestroySurface(vc.Instance, vc.Surface, vc.Allocator)
		vc.Surface = vk.NullSurface
	}

	if vc.debugMessenger != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(vc.Instance, vc.debugMessenger, vc.Allocator)
		vc.debugMessenger = vk.NullDebugReportCallback
	}

	if vc.Instance != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(vc.Instance, vc.Allocator)
		vc.Instance = nil
	}
}
