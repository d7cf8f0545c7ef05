package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/core"
)

/**
 * @brief A device buffer and the memory bound to it.
 */
type VulkanBuffer struct {
	Handle      vk.Buffer
	Memory      vk.DeviceMemory
	TotalSize   uint64
	Usage       vk.BufferUsageFlags
	MemoryFlags vk.MemoryPropertyFlags
}

func BufferCreate(context *VulkanContext, size uint64, usage vk.BufferUsageFlags, memoryFlags vk.MemoryPropertyFlags) (*VulkanBuffer, error) {
	outBuffer := &VulkanBuffer{
		TotalSize:   size,
		Usage:       usage,
		MemoryFlags: memoryFlags,
	}

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive, // NOTE: Only used in one queue.
	}

	var buffer vk.Buffer
	if res := vk.CreateBuffer(context.Device.LogicalDevice, &bufferInfo, context.Allocator, &buffer); res != vk.Success {
		err := errors.Wrap(VulkanError(res, "vkCreateBuffer"), "failed to create buffer")
		core.LogError(err.Error())
		return nil, err
	}
	outBuffer.Handle = buffer

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, buffer, &requirements)
	requirements.Deref()

	memoryIndex := context.FindMemoryIndex(requirements.MemoryTypeBits, uint32(memoryFlags))
	if memoryIndex == -1 {
		outBuffer.Destroy(context)
		err := errors.New("unable to create vulkan buffer because the required memory type index was not found")
		core.LogError(err.Error())
		return nil, err
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(memoryIndex),
	}

	var memory vk.DeviceMemory
	if err := context.lockPool.SafeCall(MemoryManagement, func() error {
		return VulkanError(vk.AllocateMemory(context.Device.LogicalDevice, &allocateInfo, context.Allocator, &memory), "vkAllocateMemory")
	}); err != nil {
		outBuffer.Destroy(context)
		err = errors.Wrapf(err, "unable to allocate %d bytes for buffer", requirements.Size)
		core.LogError(err.Error())
		return nil, err
	}
	outBuffer.Memory = memory

	if res := vk.BindBufferMemory(context.Device.LogicalDevice, buffer, memory, 0); res != vk.Success {
		outBuffer.Destroy(context)
		return nil, errors.Wrap(VulkanError(res, "vkBindBufferMemory"), "failed to bind buffer memory")
	}

	return outBuffer, nil
}

// LoadData copies data into the buffer at offset. The buffer memory must be host visible.
func (vb *VulkanBuffer) LoadData(context *VulkanContext, offset uint64, data []byte) error {
	if uint64(len(data))+offset > vb.TotalSize {
		return errors.Newf("cannot load %d bytes at offset %d into a %d byte buffer", len(data), offset, vb.TotalSize)
	}
	if len(data) == 0 {
		return nil
	}

	return context.lockPool.SafeCall(MemoryManagement, func() error {
		var pData unsafe.Pointer
		if res := vk.MapMemory(context.Device.LogicalDevice, vb.Memory, vk.DeviceSize(offset), vk.DeviceSize(len(data)), 0, &pData); res != vk.Success {
			return errors.Wrap(VulkanError(res, "vkMapMemory"), "failed to map buffer memory")
		}
		vk.Memcopy(pData, data)
		vk.UnmapMemory(context.Device.LogicalDevice, vb.Memory)
		return nil
	})
}

func (vb *VulkanBuffer) Destroy(context *VulkanContext) {
	if vb.Memory != nil {
		vk.FreeMemory(context.Device.LogicalDevice, vb.Memory, context.Allocator)
		vb.Memory = nil
	}
	if vb.Handle != nil {
		vk.DestroyBuffer(context.Device.LogicalDevice, vb.Handle, context.Allocator)
		vb.Handle = nil
	}
	vb.TotalSize = 0
}
