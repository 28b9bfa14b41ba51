package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer/hal"
)

type renderPass struct {
	object
	handle vk.RenderPass
}

func (d *device) CreateRenderPass(desc *hal.RenderPassDescriptor) (hal.RenderPass, error) {
	if len(desc.Subpasses) == 0 {
		return nil, fmt.Errorf("render pass %q has no subpass", desc.Label)
	}

	attachments := make([]vk.AttachmentDescription, len(desc.Attachments))
	for i, a := range desc.Attachments {
		attachments[i] = vk.AttachmentDescription{
			Format:         toVkFormat(a.Format),
			Samples:        vk.SampleCount1Bit,
			LoadOp:         toVkLoadOp(a.LoadOp),
			StoreOp:        toVkStoreOp(a.StoreOp),
			StencilLoadOp:  toVkLoadOp(a.StencilLoadOp),
			StencilStoreOp: toVkStoreOp(a.StencilStoreOp),
			InitialLayout:  toVkImageLayout(a.InitialLayout),
			FinalLayout:    toVkImageLayout(a.FinalLayout),
		}
	}

	subpasses := make([]vk.SubpassDescription, len(desc.Subpasses))
	for i, s := range desc.Subpasses {
		refs := make([]vk.AttachmentReference, len(s.Colors))
		for j, c := range s.Colors {
			refs[j] = vk.AttachmentReference{
				Attachment: c.Attachment,
				Layout:     toVkImageLayout(c.Layout),
			}
		}
		subpasses[i] = vk.SubpassDescription{
			PipelineBindPoint:    vk.PipelineBindPointGraphics,
			ColorAttachmentCount: uint32(len(refs)),
			PColorAttachments:    refs,
		}
	}

	// Color writes of the first subpass wait for the presentation engine to
	// release the image.
	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit) | vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
	}

	renderpassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    uint32(len(subpasses)),
		PSubpasses:      subpasses,
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	rp := &renderPass{object: object{label: desc.Label}}
	if res := vk.CreateRenderPass(d.handle, &renderpassCreateInfo, nil, &rp.handle); res != vk.Success {
		err := resultError("vkCreateRenderPass", res)
		core.LogError("%s", err)
		return nil, err
	}
	return rp, nil
}

func (d *device) DestroyRenderPass(pass hal.RenderPass) {
	rp, ok := pass.(*renderPass)
	if !ok || rp.handle == nil {
		return
	}
	vk.DestroyRenderPass(d.handle, rp.handle, nil)
	rp.handle = nil
}
