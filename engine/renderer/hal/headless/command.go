package headless

import (
	"fmt"

	"github.com/spaghettifunk/trigon/engine/renderer/hal"
)

type commandBufferState int

const (
	stateInitial commandBufferState = iota
	stateRecording
	stateInRenderPass
	stateExecutable
	statePending
)

type commandPool struct {
	object
	buffers []*commandBuffer
}

func (p *commandPool) AllocateOne() (hal.CommandBuffer, error) {
	if err := p.owner.record("allocate_command_buffer"); err != nil {
		return nil, err
	}
	cb := &commandBuffer{owner: p.owner, pool: p}
	p.buffers = append(p.buffers, cb)
	return cb, nil
}

func (p *commandPool) Reset() error {
	b := p.owner
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.recordLocked("reset_command_pool"); err != nil {
		return err
	}
	for _, cb := range p.buffers {
		cb.state = stateInitial
		cb.draw = DrawCall{}
	}
	return nil
}

type commandBuffer struct {
	owner *Backend
	pool  *commandPool
	state commandBufferState
	draw  DrawCall
}

func (c *commandBuffer) expect(call string, want commandBufferState) {
	if c.state != want {
		c.owner.violations = append(c.owner.violations, fmt.Sprintf("%s: command buffer in state %d, want %d", call, c.state, want))
	}
}

func (c *commandBuffer) Begin(usage hal.CommandBufferUsage) error {
	b := c.owner
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.recordLocked("begin_command_buffer"); err != nil {
		return err
	}
	c.expect("begin_command_buffer", stateInitial)
	c.state = stateRecording
	return nil
}

func (c *commandBuffer) SetViewport(viewport hal.Viewport) {
	b := c.owner
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, "set_viewport")
	c.expect("set_viewport", stateRecording)
	c.draw.Viewport = viewport
}

func (c *commandBuffer) SetScissor(rect hal.Rect) {
	b := c.owner
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, "set_scissor")
	c.expect("set_scissor", stateRecording)
	c.draw.Scissor = rect
}

func (c *commandBuffer) BeginRenderPass(pass hal.RenderPass, fb hal.Framebuffer, area hal.Rect, clear hal.ClearColor) {
	b := c.owner
	b.checkAlive("begin_render_pass", pass)
	b.checkAlive("begin_render_pass", fb)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, "begin_render_pass")
	c.expect("begin_render_pass", stateRecording)
	c.state = stateInRenderPass
	c.draw.Clear = clear
	if f, ok := fb.(*framebuffer); ok {
		c.draw.Extent = f.extent
	}
}

func (c *commandBuffer) BindGraphicsPipeline(pipeline hal.Pipeline) {
	b := c.owner
	b.checkAlive("bind_pipeline", pipeline)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, "bind_pipeline")
	c.expect("bind_pipeline", stateInRenderPass)
}

func (c *commandBuffer) Draw(vertices, instances hal.Range) {
	b := c.owner
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, "draw")
	c.expect("draw", stateInRenderPass)
	c.draw.Vertices = vertices
	c.draw.Instances = instances
}

func (c *commandBuffer) EndRenderPass() {
	b := c.owner
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, "end_render_pass")
	c.expect("end_render_pass", stateInRenderPass)
	c.state = stateRecording
}

func (c *commandBuffer) Finish() error {
	b := c.owner
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.recordLocked("finish_command_buffer"); err != nil {
		return err
	}
	c.expect("finish_command_buffer", stateRecording)
	c.state = stateExecutable
	return nil
}
