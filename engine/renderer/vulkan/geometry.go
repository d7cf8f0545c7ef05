package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

/**
 * @brief Vertex data uploaded once into a host visible buffer and drawn
 * with a single non-indexed draw call.
 */
type VulkanModel struct {
	id          core.Identifier
	context     *VulkanContext
	buffer      *VulkanBuffer
	vertexCount uint32
}

func NewModel(context *VulkanContext, vertices []math.Vertex2D) (*VulkanModel, error) {
	if len(vertices) < 3 {
		err := errors.Wrapf(core.ErrInvalidGeometry, "a model needs at least 3 vertices, got %d", len(vertices))
		core.LogError(err.Error())
		return nil, err
	}

	size := uint64(len(vertices)) * uint64(math.Vertex2DStride)
	buffer, err := BufferCreate(
		context,
		size,
		vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create vertex buffer")
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), size)
	if err := buffer.LoadData(context, 0, data); err != nil {
		buffer.Destroy(context)
		return nil, errors.Wrap(err, "failed to upload vertices")
	}

	model := &VulkanModel{
		id:          core.NewIdentifier("model"),
		context:     context,
		buffer:      buffer,
		vertexCount: uint32(len(vertices)),
	}
	core.LogDebug("%s created with %d vertices", model.id, model.vertexCount)
	return model, nil
}

func (m *VulkanModel) Bind(commandBuffer metadata.CommandBuffer) {
	cb := commandBuffer.(*VulkanCommandBuffer)
	vk.CmdBindVertexBuffers(cb.Handle, 0, 1, []vk.Buffer{m.buffer.Handle}, []vk.DeviceSize{0})
}

func (m *VulkanModel) Draw(commandBuffer metadata.CommandBuffer) {
	cb := commandBuffer.(*VulkanCommandBuffer)
	vk.CmdDraw(cb.Handle, m.vertexCount, 1, 0, 0)
}

func (m *VulkanModel) VertexCount() uint32 {
	return m.vertexCount
}

// Destroy releases the vertex buffer. The device must be idle.
func (m *VulkanModel) Destroy() {
	if m.buffer != nil {
		m.buffer.Destroy(m.context)
		m.buffer = nil
	}
	core.LogDebug("%s destroyed", m.id)
}
