package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer/hal"
)

type commandBufferState int

const (
	commandBufferReady commandBufferState = iota
	commandBufferRecording
	commandBufferInRenderPass
	commandBufferRecordingEnded
	commandBufferSubmitted
)

type commandBuffer struct {
	pool   *commandPool
	handle vk.CommandBuffer
	state  commandBufferState
	// first recording error, reported by Finish
	err error
}

func (p *commandPool) AllocateOne() (hal.CommandBuffer, error) {
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        p.handle,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	handles := make([]vk.CommandBuffer, 1)
	err := p.device.locks.SafeCall(CommandPoolManagement, func() error {
		if res := vk.AllocateCommandBuffers(p.device.handle, &allocateInfo, handles); res != vk.Success {
			return resultError("vkAllocateCommandBuffers", res)
		}
		return nil
	})
	if err != nil {
		core.LogError("%s", err)
		return nil, err
	}
	return &commandBuffer{pool: p, handle: handles[0], state: commandBufferReady}, nil
}

// Reset recycles every buffer of the pool. Buffers are freed with the pool.
func (p *commandPool) Reset() error {
	return p.device.locks.SafeCall(CommandPoolManagement, func() error {
		if res := vk.ResetCommandPool(p.device.handle, p.handle, 0); res != vk.Success {
			return resultError("vkResetCommandPool", res)
		}
		return nil
	})
}

func (c *commandBuffer) Begin(usage hal.CommandBufferUsage) error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	if usage&hal.CommandBufferUsageOneTimeSubmit != 0 {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if usage&hal.CommandBufferUsageSimultaneousUse != 0 {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)
	}

	if res := vk.BeginCommandBuffer(c.handle, &beginInfo); res != vk.Success {
		return resultError("vkBeginCommandBuffer", res)
	}
	c.state = commandBufferRecording
	c.err = nil
	return nil
}

func (c *commandBuffer) SetViewport(viewport hal.Viewport) {
	vk.CmdSetViewport(c.handle, 0, 1, []vk.Viewport{{
		X:        float32(viewport.Rect.X),
		Y:        float32(viewport.Rect.Y),
		Width:    float32(viewport.Rect.Width),
		Height:   float32(viewport.Rect.Height),
		MinDepth: viewport.MinDepth,
		MaxDepth: viewport.MaxDepth,
	}})
}

func (c *commandBuffer) SetScissor(rect hal.Rect) {
	vk.CmdSetScissor(c.handle, 0, 1, []vk.Rect2D{toVkRect(rect)})
}

func (c *commandBuffer) BeginRenderPass(pass hal.RenderPass, fb hal.Framebuffer, area hal.Rect, clear hal.ClearColor) {
	if c.err != nil {
		return
	}
	rp, ok := pass.(*renderPass)
	if !ok {
		c.fail("BeginRenderPass", hal.ErrForeignResource)
		return
	}
	f, ok := fb.(*framebuffer)
	if !ok {
		c.fail("BeginRenderPass", hal.ErrForeignResource)
		return
	}

	clearValues := make([]vk.ClearValue, 1)
	clearValues[0].SetColor(clear[:])

	beginInfo := vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      rp.handle,
		Framebuffer:     f.handle,
		RenderArea:      toVkRect(area),
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(c.handle, &beginInfo, vk.SubpassContentsInline)
	c.state = commandBufferInRenderPass
}

func (c *commandBuffer) BindGraphicsPipeline(p hal.Pipeline) {
	if c.err != nil {
		return
	}
	gp, ok := p.(*pipeline)
	if !ok {
		c.fail("BindGraphicsPipeline", hal.ErrForeignResource)
		return
	}
	vk.CmdBindPipeline(c.handle, vk.PipelineBindPointGraphics, gp.handle)
}

func (c *commandBuffer) Draw(vertices, instances hal.Range) {
	if c.err != nil {
		return
	}
	vk.CmdDraw(c.handle, vertices.Count(), instances.Count(), vertices.Start, instances.Start)
}

func (c *commandBuffer) EndRenderPass() {
	if c.state != commandBufferInRenderPass {
		return
	}
	vk.CmdEndRenderPass(c.handle)
	c.state = commandBufferRecording
}

// Finish fails if any command was dropped while recording. The buffer is then
// left to the next pool reset.
func (c *commandBuffer) Finish() error {
	if c.err != nil {
		return c.err
	}
	if c.state == commandBufferInRenderPass {
		return fmt.Errorf("command buffer finished inside a render pass")
	}
	if res := vk.EndCommandBuffer(c.handle); res != vk.Success {
		return resultError("vkEndCommandBuffer", res)
	}
	c.state = commandBufferRecordingEnded
	return nil
}

func (c *commandBuffer) fail(cmd string, err error) {
	c.err = fmt.Errorf("%s: %w", cmd, err)
	core.LogError("%s", c.err)
}
