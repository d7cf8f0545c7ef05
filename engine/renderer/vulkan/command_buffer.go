package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

var commandBufferStateNames = map[VulkanCommandBufferState]string{
	COMMAND_BUFFER_STATE_READY:           "ready",
	COMMAND_BUFFER_STATE_RECORDING:       "recording",
	COMMAND_BUFFER_STATE_IN_RENDER_PASS:  "in-render-pass",
	COMMAND_BUFFER_STATE_RECORDING_ENDED: "recording-ended",
	COMMAND_BUFFER_STATE_SUBMITTED:       "submitted",
	COMMAND_BUFFER_STATE_NOT_ALLOCATED:   "not-allocated",
}

func (s VulkanCommandBufferState) String() string {
	if name, ok := commandBufferStateNames[s]; ok {
		return name
	}
	return "unknown"
}

type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	// Command buffer state.
	State VulkanCommandBufferState
}

// NewVulkanCommandBuffers allocates count primary command buffers from pool in one call.
func NewVulkanCommandBuffers(context *VulkanContext, pool vk.CommandPool, count uint32) ([]*VulkanCommandBuffer, error) {
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		CommandBufferCount: count,
		Level:              vk.CommandBufferLevelPrimary,
	}

	handles := make([]vk.CommandBuffer, count)
	if err := context.lockPool.SafeCall(CommandBufferManagement, func() error {
		return VulkanError(vk.AllocateCommandBuffers(context.Device.LogicalDevice, &allocateInfo, handles), "vkAllocateCommandBuffers")
	}); err != nil {
		err = errors.Wrapf(err, "failed to allocate %d command buffers", count)
		core.LogError(err.Error())
		return nil, err
	}

	buffers := make([]*VulkanCommandBuffer, count)
	for i := range handles {
		buffers[i] = &VulkanCommandBuffer{
			Handle: handles[i],
			State:  COMMAND_BUFFER_STATE_READY,
		}
	}
	return buffers, nil
}

func FreeVulkanCommandBuffers(context *VulkanContext, pool vk.CommandPool, buffers []*VulkanCommandBuffer) {
	handles := make([]vk.CommandBuffer, 0, len(buffers))
	for _, b := range buffers {
		if b.Handle != nil {
			handles = append(handles, b.Handle)
		}
		b.Handle = nil
		b.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
	}
	if len(handles) == 0 {
		return
	}
	_ = context.lockPool.SafeCall(CommandBufferManagement, func() error {
		vk.FreeCommandBuffers(context.Device.LogicalDevice, pool, uint32(len(handles)), handles)
		return nil
	})
}

// Begin starts recording. The pool allows an implicit reset, so a buffer can
// be re-recorded once its previous submission has completed.
func (v *VulkanCommandBuffer) Begin() error {
	if v.State == COMMAND_BUFFER_STATE_NOT_ALLOCATED {
		return errors.New("cannot record into a freed command buffer")
	}

	beginInfo := &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: 0,
	}
	if res := vk.BeginCommandBuffer(v.Handle, beginInfo); res != vk.Success {
		err := errors.Wrap(VulkanError(res, "vkBeginCommandBuffer"), "failed to begin command buffer")
		core.LogError(err.Error())
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING

	return nil
}

func (v *VulkanCommandBuffer) End() error {
	if v.State != COMMAND_BUFFER_STATE_RECORDING {
		return errors.Newf("cannot end a command buffer in state %s", v.State)
	}
	if res := vk.EndCommandBuffer(v.Handle); res != vk.Success {
		err := errors.Wrap(VulkanError(res, "vkEndCommandBuffer"), "failed to end command buffer")
		core.LogError(err.Error())
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (v *VulkanCommandBuffer) SetViewport(extent metadata.Extent) {
	viewport := vk.Viewport{
		X:        0.0,
		Y:        0.0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	vk.CmdSetViewport(v.Handle, 0, 1, []vk.Viewport{viewport})
}

func (v *VulkanCommandBuffer) SetScissor(extent metadata.Extent) {
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: vk.Extent2D{
			Width:  extent.Width,
			Height: extent.Height,
		},
	}
	vk.CmdSetScissor(v.Handle, 0, 1, []vk.Rect2D{scissor})
}

func (v *VulkanCommandBuffer) UpdateSubmitted() {
	v.State = COMMAND_BUFFER_STATE_SUBMITTED
}
