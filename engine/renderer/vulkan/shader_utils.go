package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer/hal"
)

type shaderModule struct {
	object
	handle vk.ShaderModule
}

func (d *device) CreateShaderModule(spirv []uint32) (hal.ShaderModule, error) {
	if len(spirv) == 0 {
		return nil, fmt.Errorf("empty SPIR-V module")
	}
	createInfo := shaderModuleCreateInfo(spirv)

	module := &shaderModule{object: newObject("shader-module")}
	if res := vk.CreateShaderModule(d.handle, &createInfo, nil, &module.handle); res != vk.Success {
		err := resultError("vkCreateShaderModule", res)
		core.LogError("%s", err)
		return nil, err
	}
	return module, nil
}

// CodeSize is in bytes.
func shaderModuleCreateInfo(spirv []uint32) vk.ShaderModuleCreateInfo {
	return vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(spirv) * 4),
		PCode:    spirv,
	}
}

func (d *device) DestroyShaderModule(m hal.ShaderModule) {
	module, ok := m.(*shaderModule)
	if !ok || module.handle == nil {
		return
	}
	vk.DestroyShaderModule(d.handle, module.handle, nil)
	module.handle = nil
}

func shaderStage(stage vk.ShaderStageFlagBits, entry hal.EntryPoint) (vk.PipelineShaderStageCreateInfo, error) {
	module, ok := entry.Module.(*shaderModule)
	if !ok {
		return vk.PipelineShaderStageCreateInfo{}, hal.ErrForeignResource
	}
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  stage,
		Module: module.handle,
		PName:  VulkanSafeString(entry.Name),
	}, nil
}
