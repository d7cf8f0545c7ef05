package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/core"
)

type VulkanFence struct {
	Handle     vk.Fence
	IsSignaled bool
}

func NewFence(context *VulkanContext, createSignaled bool) (*VulkanFence, error) {
	fence := &VulkanFence{
		// Make sure to signal the fence if required.
		IsSignaled: createSignaled,
	}

	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if fence.IsSignaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var pFence vk.Fence
	if res := vk.CreateFence(context.Device.LogicalDevice, &fenceCreateInfo, context.Allocator, &pFence); res != vk.Success {
		err := errors.Wrap(VulkanError(res, "vkCreateFence"), "failed to create fence")
		core.LogError(err.Error())
		return nil, err
	}
	fence.Handle = pFence
	return fence, nil
}

func (vf *VulkanFence) FenceDestroy(context *VulkanContext) {
	if vf.Handle != nil {
		vk.DestroyFence(context.Device.LogicalDevice, vf.Handle, context.Allocator)
		vf.Handle = nil
	}
	vf.IsSignaled = false
}

// FenceWait blocks until the fence is signaled. A fence already known to be signaled returns immediately.
func (vf *VulkanFence) FenceWait(context *VulkanContext, timeoutNs uint64) error {
	if vf.IsSignaled {
		return nil
	}
	result := vk.WaitForFences(context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}, vk.True, timeoutNs)
	if result == vk.Success {
		vf.IsSignaled = true
		return nil
	}
	if result == vk.Timeout {
		core.LogWarn("vk_fence_wait - Timed out")
	} else {
		core.LogError("vk_fence_wait - %s", VulkanResultString(result, false))
	}
	return fenceWaitError(result, timeoutNs)
}

// fenceWaitError describes a vkWaitForFences result. Anything but VK_SUCCESS
// means the fence is not known to be signaled.
func fenceWaitError(result vk.Result, timeoutNs uint64) error {
	switch result {
	case vk.Success:
		return nil
	case vk.Timeout:
		return errors.Newf("fence wait timed out after %dns", timeoutNs)
	}
	return errors.Newf("vkWaitForFences failed with %s", VulkanResultString(result, true))
}

func (vf *VulkanFence) FenceReset(context *VulkanContext) error {
	if vf.IsSignaled {
		if res := vk.ResetFences(context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}); res != vk.Success {
			err := errors.Wrap(VulkanError(res, "vkResetFences"), "failed to reset fence")
			core.LogError(err.Error())
			return err
		}
		vf.IsSignaled = false
	}
	return nil
}
