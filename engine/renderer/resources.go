package renderer

import (
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer/hal"
)

// resourceBundle owns every long-lived GPU object of a Renderer and destroys
// them in reverse acquisition order:
//
//	wait idle -> semaphore -> fence -> pipelines -> pipeline layouts ->
//	render passes -> command pool -> unconfigure swapchain -> surface ->
//	device -> instance
//
// Fields left nil are skipped, so the same path tears down a half-built
// renderer. release runs at most once.
type resourceBundle struct {
	instance hal.Instance
	surface  hal.Surface
	device   hal.Device

	pool         hal.CommandPool
	renderPasses []hal.RenderPass
	layouts      []hal.PipelineLayout
	pipelines    []hal.Pipeline
	fence        hal.Fence
	semaphore    hal.Semaphore
	swapchain    *SwapchainManager

	released bool
}

func (b *resourceBundle) adopt(ctx *DeviceContext) {
	b.instance = ctx.Instance
	b.surface = ctx.Surface
	b.device = ctx.Device
}

func (b *resourceBundle) release() error {
	if b.released {
		return nil
	}
	b.released = true

	var err error
	if b.device != nil {
		// nothing may still be executing when the objects go away
		if err = b.device.WaitIdle(); err != nil {
			core.LogError("failed to wait for the device to become idle: %s", err)
		}

		if b.semaphore != nil {
			b.device.DestroySemaphore(b.semaphore)
			b.semaphore = nil
		}
		if b.fence != nil {
			b.device.DestroyFence(b.fence)
			b.fence = nil
		}
		for i := len(b.pipelines) - 1; i >= 0; i-- {
			b.device.DestroyGraphicsPipeline(b.pipelines[i])
		}
		b.pipelines = nil
		for i := len(b.layouts) - 1; i >= 0; i-- {
			b.device.DestroyPipelineLayout(b.layouts[i])
		}
		b.layouts = nil
		for i := len(b.renderPasses) - 1; i >= 0; i-- {
			b.device.DestroyRenderPass(b.renderPasses[i])
		}
		b.renderPasses = nil
		if b.pool != nil {
			b.device.DestroyCommandPool(b.pool)
			b.pool = nil
		}
		if b.swapchain != nil {
			b.swapchain.unconfigure()
		}
	}

	if b.surface != nil && b.instance != nil {
		b.instance.DestroySurface(b.surface)
		b.surface = nil
	}
	if b.device != nil {
		b.device.Destroy()
		b.device = nil
	}
	if b.instance != nil {
		b.instance.Destroy()
		b.instance = nil
	}

	core.LogDebug("GPU resources released.")
	return err
}
