package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer/hal"
)

type framebuffer struct {
	object
	handle vk.Framebuffer
}

// CreateFramebuffer binds the view of a swapchain image. The view stays owned
// by the surface.
func (d *device) CreateFramebuffer(pass hal.RenderPass, attachment hal.FramebufferAttachment, img hal.SurfaceImage) (hal.Framebuffer, error) {
	rp, ok := pass.(*renderPass)
	if !ok {
		return nil, hal.ErrForeignResource
	}
	image, ok := img.(*surfaceImage)
	if !ok {
		return nil, hal.ErrForeignResource
	}

	framebufferCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      rp.handle,
		AttachmentCount: 1,
		PAttachments:    []vk.ImageView{image.view},
		Width:           attachment.Extent.Width,
		Height:          attachment.Extent.Height,
		Layers:          1,
	}

	fb := &framebuffer{object: newObject("framebuffer")}
	if res := vk.CreateFramebuffer(d.handle, &framebufferCreateInfo, nil, &fb.handle); res != vk.Success {
		err := resultError("vkCreateFramebuffer", res)
		core.LogError("%s", err)
		return nil, err
	}
	return fb, nil
}

func (d *device) DestroyFramebuffer(f hal.Framebuffer) {
	fb, ok := f.(*framebuffer)
	if !ok || fb.handle == nil {
		return
	}
	vk.DestroyFramebuffer(d.handle, fb.handle, nil)
	fb.handle = nil
}
