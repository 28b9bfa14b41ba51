package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer/hal"
)

type pipelineLayout struct {
	object
	handle vk.PipelineLayout
}

type pipeline struct {
	object
	handle vk.Pipeline
}

// CreatePipelineLayout creates a layout with no descriptor sets and no push
// constants.
func (d *device) CreatePipelineLayout() (hal.PipelineLayout, error) {
	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType: vk.StructureTypePipelineLayoutCreateInfo,
	}
	layout := &pipelineLayout{object: newObject("pipeline-layout")}
	err := d.locks.SafeCall(PipelineManagement, func() error {
		if res := vk.CreatePipelineLayout(d.handle, &pipelineLayoutCreateInfo, nil, &layout.handle); res != vk.Success {
			return resultError("vkCreatePipelineLayout", res)
		}
		return nil
	})
	if err != nil {
		core.LogError("%s", err)
		return nil, err
	}
	return layout, nil
}

func (d *device) DestroyPipelineLayout(l hal.PipelineLayout) {
	layout, ok := l.(*pipelineLayout)
	if !ok || layout.handle == nil {
		return
	}
	_ = d.locks.SafeCall(PipelineManagement, func() error {
		vk.DestroyPipelineLayout(d.handle, layout.handle, nil)
		return nil
	})
	layout.handle = nil
}

// CreateGraphicsPipeline builds a pipeline without vertex input. Viewport and
// scissor are dynamic and must be set on every command buffer.
func (d *device) CreateGraphicsPipeline(desc *hal.GraphicsPipelineDescriptor) (hal.Pipeline, error) {
	layout, ok := desc.Layout.(*pipelineLayout)
	if !ok {
		return nil, hal.ErrForeignResource
	}
	pass, ok := desc.RenderPass.(*renderPass)
	if !ok {
		return nil, hal.ErrForeignResource
	}
	vertexStage, err := shaderStage(vk.ShaderStageVertexBit, desc.Vertex)
	if err != nil {
		return nil, err
	}
	fragmentStage, err := shaderStage(vk.ShaderStageFragmentBit, desc.Fragment)
	if err != nil {
		return nil, err
	}
	stages := []vk.PipelineShaderStageCreateInfo{vertexStage, fragmentStage}

	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               toVkTopology(desc.Topology),
		PrimitiveRestartEnable: vk.False,
	}

	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		CullMode:                toVkCullMode(desc.Rasterizer.CullMode),
		FrontFace:               vk.FrontFaceCounterClockwise,
		DepthBiasEnable:         vk.False,
		LineWidth:               desc.Rasterizer.LineWidth,
	}
	if desc.Rasterizer.PolygonMode == hal.PolygonModeLine {
		rasterizerCreateInfo.PolygonMode = vk.PolygonModeLine
	}
	if desc.Rasterizer.FrontFace == hal.FrontFaceClockwise {
		rasterizerCreateInfo.FrontFace = vk.FrontFaceClockwise
	}
	if rasterizerCreateInfo.LineWidth == 0 {
		rasterizerCreateInfo.LineWidth = 1.0
	}

	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1.0,
	}

	blendAttachments := make([]vk.PipelineColorBlendAttachmentState, len(desc.Targets))
	for i, t := range desc.Targets {
		blendAttachments[i] = toVkBlendAttachment(t)
	}
	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: uint32(len(blendAttachments)),
		PAttachments:    blendAttachments,
	}

	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		Layout:              layout.handle,
		RenderPass:          pass.handle,
		Subpass:             desc.Subpass,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	err = d.locks.SafeCall(PipelineManagement, func() error {
		res := vk.CreateGraphicsPipelines(d.handle, vk.NullPipelineCache, 1, []vk.GraphicsPipelineCreateInfo{pipelineCreateInfo}, nil, pipelines)
		if res != vk.Success {
			return resultError("vkCreateGraphicsPipelines", res)
		}
		return nil
	})
	if err != nil {
		core.LogError("%s", err)
		return nil, err
	}
	if pipelines[0] == nil {
		return nil, fmt.Errorf("vulkan pipeline handle is nil")
	}

	core.LogDebug("Graphics pipeline %s created.", desc.Label)
	return &pipeline{object: object{label: desc.Label}, handle: pipelines[0]}, nil
}

func (d *device) DestroyGraphicsPipeline(p hal.Pipeline) {
	gp, ok := p.(*pipeline)
	if !ok || gp.handle == nil {
		return
	}
	_ = d.locks.SafeCall(PipelineManagement, func() error {
		vk.DestroyPipeline(d.handle, gp.handle, nil)
		return nil
	})
	gp.handle = nil
}

func toVkTopology(t hal.PrimitiveTopology) vk.PrimitiveTopology {
	switch t {
	case hal.PrimitiveTopologyTriangleStrip:
		return vk.PrimitiveTopologyTriangleStrip
	case hal.PrimitiveTopologyLineList:
		return vk.PrimitiveTopologyLineList
	default:
		return vk.PrimitiveTopologyTriangleList
	}
}

func toVkCullMode(m hal.CullMode) vk.CullModeFlags {
	switch m {
	case hal.CullModeNone:
		return vk.CullModeFlags(vk.CullModeNone)
	case hal.CullModeFront:
		return vk.CullModeFlags(vk.CullModeFrontBit)
	case hal.CullModeFrontAndBack:
		return vk.CullModeFlags(vk.CullModeFrontAndBack)
	default:
		return vk.CullModeFlags(vk.CullModeBackBit)
	}
}

func toVkBlendAttachment(t hal.ColorBlendDescriptor) vk.PipelineColorBlendAttachmentState {
	var mask vk.ColorComponentFlags
	if t.Mask&hal.ColorMaskRed != 0 {
		mask |= vk.ColorComponentFlags(vk.ColorComponentRBit)
	}
	if t.Mask&hal.ColorMaskGreen != 0 {
		mask |= vk.ColorComponentFlags(vk.ColorComponentGBit)
	}
	if t.Mask&hal.ColorMaskBlue != 0 {
		mask |= vk.ColorComponentFlags(vk.ColorComponentBBit)
	}
	if t.Mask&hal.ColorMaskAlpha != 0 {
		mask |= vk.ColorComponentFlags(vk.ColorComponentABit)
	}

	state := vk.PipelineColorBlendAttachmentState{
		BlendEnable:    vk.False,
		ColorWriteMask: mask,
	}
	if t.Blend == hal.BlendStateAlpha {
		state.BlendEnable = vk.True
		state.SrcColorBlendFactor = vk.BlendFactorSrcAlpha
		state.DstColorBlendFactor = vk.BlendFactorOneMinusSrcAlpha
		state.ColorBlendOp = vk.BlendOpAdd
		state.SrcAlphaBlendFactor = vk.BlendFactorOne
		state.DstAlphaBlendFactor = vk.BlendFactorOneMinusSrcAlpha
		state.AlphaBlendOp = vk.BlendOpAdd
	}
	return state
}
