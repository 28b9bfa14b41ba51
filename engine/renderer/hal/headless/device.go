package headless

import (
	"fmt"
	"time"

	"github.com/spaghettifunk/trigon/engine/renderer/hal"
)

type device struct {
	object
}

func (d *device) create(call, kind string) (object, error) {
	if err := d.owner.record(call); err != nil {
		return object{}, err
	}
	return d.owner.newObject(kind), nil
}

func (d *device) CreateCommandPool(family hal.QueueFamily) (hal.CommandPool, error) {
	obj, err := d.create("create_command_pool", "command-pool")
	if err != nil {
		return nil, err
	}
	return &commandPool{object: obj}, nil
}

func (d *device) DestroyCommandPool(pool hal.CommandPool) {
	d.owner.release("destroy_command_pool", pool)
}

func (d *device) CreateRenderPass(desc *hal.RenderPassDescriptor) (hal.RenderPass, error) {
	if len(desc.Attachments) == 0 || len(desc.Subpasses) == 0 {
		return nil, fmt.Errorf("render pass %q needs at least one attachment and one subpass", desc.Label)
	}
	obj, err := d.create("create_render_pass", "render-pass")
	if err != nil {
		return nil, err
	}
	d.owner.mu.Lock()
	d.owner.renderPasses = append(d.owner.renderPasses, *desc)
	d.owner.mu.Unlock()
	return obj, nil
}

func (d *device) DestroyRenderPass(pass hal.RenderPass) {
	d.owner.release("destroy_render_pass", pass)
}

func (d *device) CreatePipelineLayout() (hal.PipelineLayout, error) {
	obj, err := d.create("create_pipeline_layout", "pipeline-layout")
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func (d *device) DestroyPipelineLayout(layout hal.PipelineLayout) {
	d.owner.release("destroy_pipeline_layout", layout)
}

func (d *device) CreateShaderModule(spirv []uint32) (hal.ShaderModule, error) {
	if len(spirv) == 0 {
		return nil, fmt.Errorf("empty shader module")
	}
	obj, err := d.create("create_shader_module", "shader-module")
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func (d *device) DestroyShaderModule(module hal.ShaderModule) {
	d.owner.release("destroy_shader_module", module)
}

func (d *device) CreateGraphicsPipeline(desc *hal.GraphicsPipelineDescriptor) (hal.Pipeline, error) {
	b := d.owner
	b.checkAlive("create_graphics_pipeline", desc.Vertex.Module)
	b.checkAlive("create_graphics_pipeline", desc.Fragment.Module)
	b.checkAlive("create_graphics_pipeline", desc.Layout)
	b.checkAlive("create_graphics_pipeline", desc.RenderPass)
	obj, err := d.create("create_graphics_pipeline", "pipeline")
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.pipelines = append(b.pipelines, *desc)
	b.mu.Unlock()
	return obj, nil
}

func (d *device) DestroyGraphicsPipeline(pipeline hal.Pipeline) {
	d.owner.release("destroy_graphics_pipeline", pipeline)
}

type framebuffer struct {
	object
	extent hal.Extent2D
}

func (d *device) CreateFramebuffer(pass hal.RenderPass, attachment hal.FramebufferAttachment, img hal.SurfaceImage) (hal.Framebuffer, error) {
	d.owner.checkAlive("create_framebuffer", pass)
	if _, ok := img.(*image); !ok {
		return nil, hal.ErrForeignResource
	}
	if attachment.Extent.Width == 0 || attachment.Extent.Height == 0 {
		return nil, fmt.Errorf("invalid framebuffer extent %s", attachment.Extent)
	}
	obj, err := d.create("create_framebuffer", "framebuffer")
	if err != nil {
		return nil, err
	}
	return &framebuffer{object: obj, extent: attachment.Extent}, nil
}

func (d *device) DestroyFramebuffer(fb hal.Framebuffer) {
	d.owner.release("destroy_framebuffer", fb)
}

type fenceObject struct {
	object
	signaled  bool
	submitted bool
	pending   int
}

func (d *device) CreateFence(signaled bool) (hal.Fence, error) {
	obj, err := d.create("create_fence", "fence")
	if err != nil {
		return nil, err
	}
	return &fenceObject{object: obj, signaled: signaled}, nil
}

func (d *device) DestroyFence(fence hal.Fence) {
	d.owner.release("destroy_fence", fence)
}

// WaitForFence polls the fence until it signals. A fence that was never
// submitted, or any fence while HangFences is set, never signals.
func (d *device) WaitForFence(fence hal.Fence, timeout time.Duration) error {
	f, ok := fence.(*fenceObject)
	if !ok {
		return hal.ErrForeignResource
	}
	b := d.owner
	b.checkAlive("wait_fence", f)
	if err := b.record("wait_fence"); err != nil {
		return err
	}

	deadline := time.Now().Add(timeout)
	for {
		b.mu.Lock()
		if f.signaled {
			b.mu.Unlock()
			return nil
		}
		if f.submitted && !b.hangFences {
			if f.pending == 0 {
				f.signaled = true
				f.submitted = false
				b.mu.Unlock()
				return nil
			}
			f.pending--
		}
		b.fencePolls++
		interval := b.opts.PollInterval
		b.mu.Unlock()

		if time.Now().After(deadline) {
			return hal.ErrTimeout
		}
		time.Sleep(interval)
	}
}

func (d *device) ResetFence(fence hal.Fence) error {
	f, ok := fence.(*fenceObject)
	if !ok {
		return hal.ErrForeignResource
	}
	b := d.owner
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.recordLocked("reset_fence"); err != nil {
		return err
	}
	f.signaled = false
	return nil
}

func (d *device) CreateSemaphore() (hal.Semaphore, error) {
	obj, err := d.create("create_semaphore", "semaphore")
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func (d *device) DestroySemaphore(semaphore hal.Semaphore) {
	d.owner.release("destroy_semaphore", semaphore)
}

func (d *device) WaitIdle() error {
	return d.owner.record("wait_idle")
}

func (d *device) Destroy() {
	d.owner.release("destroy_device", d)
}
