package renderer

import (
	"fmt"

	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer/hal"
	"github.com/spaghettifunk/trigon/engine/renderer/shader"
)

// CreateRenderPass builds the single-subpass pass that clears one color
// attachment of the given format and leaves it ready for presentation.
func CreateRenderPass(device hal.Device, format hal.Format) (hal.RenderPass, error) {
	desc := &hal.RenderPassDescriptor{
		Label: "Renderpass.Builtin.Triangle",
		Attachments: []hal.AttachmentDescriptor{
			{
				Format:         format,
				Samples:        1,
				LoadOp:         hal.AttachmentLoadOpClear,
				StoreOp:        hal.AttachmentStoreOpStore,
				StencilLoadOp:  hal.AttachmentLoadOpDontCare,
				StencilStoreOp: hal.AttachmentStoreOpDontCare,
				InitialLayout:  hal.ImageLayoutUndefined,
				FinalLayout:    hal.ImageLayoutPresent,
			},
		},
		Subpasses: []hal.SubpassDescriptor{
			{
				Colors: []hal.AttachmentReference{
					{Attachment: 0, Layout: hal.ImageLayoutColorAttachmentOptimal},
				},
			},
		},
	}

	pass, err := device.CreateRenderPass(desc)
	if err != nil {
		err = fmt.Errorf("failed to create render pass: %w", err)
		core.LogError("%s", err)
		return nil, err
	}
	return pass, nil
}

// BuildPipeline creates the triangle pipeline from vertex and fragment SPIR-V.
// The shader modules only live for the duration of the call.
func BuildPipeline(device hal.Device, renderPass hal.RenderPass, layout hal.PipelineLayout, vertexSPIRV, fragmentSPIRV []uint32) (hal.Pipeline, error) {
	vertex, err := device.CreateShaderModule(vertexSPIRV)
	if err != nil {
		err = fmt.Errorf("failed to create vertex shader module: %w", err)
		core.LogError("%s", err)
		return nil, err
	}
	defer device.DestroyShaderModule(vertex)

	fragment, err := device.CreateShaderModule(fragmentSPIRV)
	if err != nil {
		err = fmt.Errorf("failed to create fragment shader module: %w", err)
		core.LogError("%s", err)
		return nil, err
	}
	defer device.DestroyShaderModule(fragment)

	desc := &hal.GraphicsPipelineDescriptor{
		Label:    "Pipeline.Builtin.Triangle",
		Vertex:   hal.EntryPoint{Module: vertex, Name: shader.EntryPointName},
		Fragment: hal.EntryPoint{Module: fragment, Name: shader.EntryPointName},
		Topology: hal.PrimitiveTopologyTriangleList,
		Rasterizer: hal.Rasterizer{
			PolygonMode: hal.PolygonModeFill,
			CullMode:    hal.CullModeBack,
			FrontFace:   hal.FrontFaceCounterClockwise,
			LineWidth:   1.0,
		},
		Targets: []hal.ColorBlendDescriptor{
			{Mask: hal.ColorMaskAll, Blend: hal.BlendStateAlpha},
		},
		Layout:     layout,
		RenderPass: renderPass,
		Subpass:    0,
	}

	pipeline, err := device.CreateGraphicsPipeline(desc)
	if err != nil {
		err = fmt.Errorf("failed to create graphics pipeline: %w", err)
		core.LogError("%s", err)
		return nil, err
	}
	core.LogDebug("Graphics pipeline %s created.", desc.Label)
	return pipeline, nil
}
