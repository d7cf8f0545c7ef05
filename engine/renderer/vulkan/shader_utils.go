package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/assets/loaders"
	"github.com/spaghettifunk/prism/engine/core"
	"golang.org/x/sync/errgroup"
)

/**
 * @brief Represents a single shader stage.
 */
type VulkanShaderStage struct {
	/** @brief The internal shader module Handle. */
	Handle vk.ShaderModule
	/** @brief The pipeline shader stage creation info. */
	ShaderStageCreateInfo vk.PipelineShaderStageCreateInfo
}

// NewShaderStages reads the vertex and fragment SPIR-V files and creates a module for each.
// On error no module is left alive.
func NewShaderStages(context *VulkanContext, vertexPath, fragmentPath string) ([]VulkanShaderStage, error) {
	paths := []string{vertexPath, fragmentPath}
	flags := []vk.ShaderStageFlagBits{vk.ShaderStageVertexBit, vk.ShaderStageFragmentBit}

	code := make([][]uint32, len(paths))
	var g errgroup.Group
	for i := range paths {
		i := i
		g.Go(func() error {
			c, err := loaders.LoadSPIRV(paths[i])
			if err != nil {
				return errors.Wrapf(core.ErrShaderLoad, "%s: %v", paths[i], err)
			}
			code[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	stages := make([]VulkanShaderStage, 0, len(paths))
	for i := range paths {
		stage, err := newShaderStage(context, code[i], flags[i])
		if err != nil {
			DestroyShaderStages(context, stages)
			return nil, errors.Wrapf(err, "shader module %s", paths[i])
		}
		stages = append(stages, stage)
	}
	return stages, nil
}

func newShaderStage(context *VulkanContext, code []uint32, flag vk.ShaderStageFlagBits) (VulkanShaderStage, error) {
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code) * 4),
		PCode:    code,
	}

	var module vk.ShaderModule
	if res := vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &module); res != vk.Success {
		return VulkanShaderStage{}, errors.Wrap(core.ErrShaderLoad, VulkanError(res, "vkCreateShaderModule").Error())
	}

	return VulkanShaderStage{
		Handle: module,
		ShaderStageCreateInfo: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  flag,
			Module: module,
			PName:  VulkanSafeString("main"),
		},
	}, nil
}

// DestroyShaderStages releases the modules. Pipelines built from them stay valid.
func DestroyShaderStages(context *VulkanContext, stages []VulkanShaderStage) {
	for i := range stages {
		if stages[i].Handle != nil {
			vk.DestroyShaderModule(context.Device.LogicalDevice, stages[i].Handle, context.Allocator)
			stages[i].Handle = nil
		}
	}
}
