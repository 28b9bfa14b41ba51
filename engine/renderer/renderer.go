// Package renderer drives one render, submit and present cycle per frame on
// top of a hal backend, and rebuilds the swapchain whenever the surface goes
// stale.
package renderer

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer/hal"
)

const DefaultFrameTimeout = time.Second

var ErrClosed = errors.New("renderer is closed")

type FrameStage uint8

const (
	StageIdle FrameStage = iota
	StageFenceWait
	StageSwapchainCheck
	StageImageAcquire
	StageRecording
	StageSubmitted
	StagePresented
)

func (s FrameStage) String() string {
	switch s {
	case StageIdle:
		return "Idle"
	case StageFenceWait:
		return "FenceWait"
	case StageSwapchainCheck:
		return "SwapchainCheck"
	case StageImageAcquire:
		return "ImageAcquire"
	case StageRecording:
		return "Recording"
	case StageSubmitted:
		return "Submitted"
	case StagePresented:
		return "Presented"
	default:
		return "Unknown"
	}
}

type Config struct {
	AppName string
	// Initial surface size. Zero falls back to the window framebuffer size.
	Width  uint32
	Height uint32
	// SPIR-V words, see package shader.
	VertexShader   []uint32
	FragmentShader []uint32
	// Bound on the fence wait and on the image acquire. Defaults to
	// DefaultFrameTimeout.
	FrameTimeout time.Duration
	// Consecutive abandoned frames tolerated before Render fails with
	// core.ErrSurfaceUnrecoverable. Zero retries forever.
	SoftFailureLimit int
	Validation       bool
}

// Renderer presents a triangle to a window surface. It is not safe for
// concurrent use; every method must be called from the thread driving the
// window.
type Renderer struct {
	id  uuid.UUID
	cfg Config

	ctx       *DeviceContext
	resources *resourceBundle
	swapchain *SwapchainManager

	renderPass hal.RenderPass
	layout     hal.PipelineLayout
	pipeline   hal.Pipeline
	pool       hal.CommandPool
	cmd        hal.CommandBuffer
	fence      hal.Fence
	semaphore  hal.Semaphore

	requested    hal.Extent2D
	extent       hal.Extent2D
	stage        FrameStage
	softFailures int
	frameNumber  uint64
	closed       bool
}

// New creates the device context, pipeline and synchronization objects. The
// swapchain itself is configured lazily by the first Render. On failure
// everything acquired so far has been released.
func New(cfg Config, backend hal.Backend, window hal.Window) (*Renderer, error) {
	if len(cfg.VertexShader) == 0 || len(cfg.FragmentShader) == 0 {
		return nil, fmt.Errorf("renderer needs both a vertex and a fragment shader")
	}
	if cfg.FrameTimeout <= 0 {
		cfg.FrameTimeout = DefaultFrameTimeout
	}

	r := &Renderer{
		id:        uuid.New(),
		cfg:       cfg,
		resources: &resourceBundle{},
		requested: hal.Extent2D{Width: cfg.Width, Height: cfg.Height},
	}
	if (r.requested.Width == 0 || r.requested.Height == 0) && window != nil {
		w, h := window.GetFramebufferSize()
		r.requested = hal.Extent2D{Width: uint32(max(w, 0)), Height: uint32(max(h, 0))}
	}

	if err := r.initialize(backend, window); err != nil {
		_ = r.resources.release()
		return nil, err
	}

	core.LogInfo("Renderer %s initialized with %s backend, format %s.", r.id, backend.Name(), r.swapchain.Format())
	return r, nil
}

func (r *Renderer) initialize(backend hal.Backend, window hal.Window) error {
	ctx, err := NewDeviceContext(backend, &hal.InstanceDescriptor{
		AppName:    r.cfg.AppName,
		AppVersion: 1,
		Window:     window,
		Validation: r.cfg.Validation,
	})
	if err != nil {
		return err
	}
	r.ctx = ctx
	r.resources.adopt(ctx)
	device := ctx.Device

	format := SelectColorFormat(ctx.Surface, ctx.Adapter)

	pool, err := device.CreateCommandPool(ctx.QueueFamily)
	if err != nil {
		return fmt.Errorf("failed to create command pool: %w", err)
	}
	r.pool = pool
	r.resources.pool = pool

	cmd, err := pool.AllocateOne()
	if err != nil {
		return fmt.Errorf("failed to allocate command buffer: %w", err)
	}
	r.cmd = cmd

	pass, err := CreateRenderPass(device, format)
	if err != nil {
		return err
	}
	r.renderPass = pass
	r.resources.renderPasses = append(r.resources.renderPasses, pass)

	layout, err := device.CreatePipelineLayout()
	if err != nil {
		return fmt.Errorf("failed to create pipeline layout: %w", err)
	}
	r.layout = layout
	r.resources.layouts = append(r.resources.layouts, layout)

	pipeline, err := BuildPipeline(device, pass, layout, r.cfg.VertexShader, r.cfg.FragmentShader)
	if err != nil {
		return err
	}
	r.pipeline = pipeline
	r.resources.pipelines = append(r.resources.pipelines, pipeline)

	// Created signaled so the first frame does not wait on a submission
	// that never happened.
	fence, err := device.CreateFence(true)
	if err != nil {
		return fmt.Errorf("failed to create submission fence: %w", err)
	}
	r.fence = fence
	r.resources.fence = fence

	semaphore, err := device.CreateSemaphore()
	if err != nil {
		return fmt.Errorf("failed to create rendering semaphore: %w", err)
	}
	r.semaphore = semaphore
	r.resources.semaphore = semaphore

	r.swapchain = NewSwapchainManager(ctx.Surface, ctx.Adapter, device, format)
	r.resources.swapchain = r.swapchain
	return nil
}

// Render draws and presents one frame. Stale surfaces, failed acquires and
// failed presents abandon the frame and return nil; the swapchain is rebuilt
// on the next call. Errors returned are fatal.
func (r *Renderer) Render() error {
	if r.closed {
		return ErrClosed
	}
	if r.requested.Width == 0 || r.requested.Height == 0 {
		// minimized, nothing to draw into
		return nil
	}
	r.frameNumber++
	device := r.ctx.Device

	r.stage = StageFenceWait
	if err := device.WaitForFence(r.fence, r.cfg.FrameTimeout); err != nil {
		r.stage = StageIdle
		if errors.Is(err, hal.ErrTimeout) {
			err = fmt.Errorf("%w: frame %d after %s", core.ErrFenceTimeout, r.frameNumber, r.cfg.FrameTimeout)
		} else {
			err = fmt.Errorf("%w: %w", core.ErrDeviceLost, err)
		}
		core.LogError("%s", err)
		return err
	}
	// the fence is only reset right before the submission that signals it
	// again, so an abandoned frame leaves it signaled
	if err := r.pool.Reset(); err != nil {
		r.stage = StageIdle
		return r.fatal("failed to reset command pool", err)
	}

	r.stage = StageSwapchainCheck
	extent, attachment, err := r.swapchain.Reconfigure(r.requested)
	if err != nil {
		if isSoftConfigureError(err) {
			return r.abandon("swapchain configuration", err)
		}
		r.stage = StageIdle
		return r.fatal("failed to configure swapchain", err)
	}
	r.extent = extent

	r.stage = StageImageAcquire
	image, err := r.ctx.Surface.AcquireImage(r.cfg.FrameTimeout)
	if err != nil {
		r.swapchain.MarkDirty()
		return r.abandon("image acquire", err)
	}

	framebuffer, err := device.CreateFramebuffer(r.renderPass, attachment, image)
	if err != nil {
		r.stage = StageIdle
		return r.fatal("failed to create framebuffer", err)
	}
	defer device.DestroyFramebuffer(framebuffer)

	r.stage = StageRecording
	if err := r.record(framebuffer, extent); err != nil {
		r.stage = StageIdle
		return r.fatal("failed to record command buffer", err)
	}

	if err := device.ResetFence(r.fence); err != nil {
		r.stage = StageIdle
		return r.fatal("failed to reset submission fence", err)
	}
	if err := r.ctx.Queue.Submit(r.cmd, r.semaphore, r.fence); err != nil {
		r.stage = StageIdle
		return r.fatal("failed to submit command buffer", err)
	}
	r.stage = StageSubmitted

	err = r.ctx.Queue.Present(r.ctx.Surface, image, r.semaphore)
	r.stage = StagePresented
	switch {
	case err == nil:
	case errors.Is(err, hal.ErrSuboptimal):
		// shown, but the next frame needs a new swapchain
		r.swapchain.MarkDirty()
		core.LogDebug("Frame %d presented on a suboptimal swapchain.", r.frameNumber)
	default:
		r.swapchain.MarkDirty()
		return r.abandon("present", err)
	}

	r.softFailures = 0
	r.stage = StageIdle
	return nil
}

func (r *Renderer) record(framebuffer hal.Framebuffer, extent hal.Extent2D) error {
	cmd := r.cmd
	if err := cmd.Begin(hal.CommandBufferUsageOneTimeSubmit); err != nil {
		return err
	}
	cmd.SetViewport(extent.Viewport())
	cmd.SetScissor(extent.Rect())
	cmd.BeginRenderPass(r.renderPass, framebuffer, extent.Rect(), hal.ClearOpaqueBlack)
	cmd.BindGraphicsPipeline(r.pipeline)
	cmd.Draw(hal.Range{Start: 0, End: 3}, hal.Range{Start: 0, End: 1})
	cmd.EndRenderPass()
	return cmd.Finish()
}

// abandon gives up on the current frame. It only fails once the configured
// number of consecutive soft failures is exceeded.
func (r *Renderer) abandon(step string, cause error) error {
	r.stage = StageIdle
	r.softFailures++
	if hal.IsSurfaceStale(cause) {
		core.LogDebug("Frame %d abandoned at %s (%d in a row): %s", r.frameNumber, step, r.softFailures, cause)
	} else {
		core.LogWarn("Frame %d abandoned at %s (%d in a row): %s", r.frameNumber, step, r.softFailures, cause)
	}

	if limit := r.cfg.SoftFailureLimit; limit > 0 && r.softFailures > limit {
		err := fmt.Errorf("%w: %d consecutive failures, last at %s: %v", core.ErrSurfaceUnrecoverable, r.softFailures, step, cause)
		core.LogError("%s", err)
		return err
	}
	return nil
}

func (r *Renderer) fatal(msg string, cause error) error {
	if errors.Is(cause, hal.ErrDeviceLost) {
		cause = fmt.Errorf("%w: %w", core.ErrDeviceLost, cause)
	}
	err := fmt.Errorf("%s: %w", msg, cause)
	core.LogError("%s", err)
	return err
}

// UpdateDimensions records the new framebuffer size and invalidates the
// swapchain. A zero dimension pauses rendering until a real size comes in.
func (r *Renderer) UpdateDimensions(width, height uint32) {
	r.requested = hal.Extent2D{Width: width, Height: height}
	if r.swapchain != nil {
		r.swapchain.MarkDirty()
	}
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, rendering suspended.")
		return
	}
	core.LogDebug("Renderer %s resized to %s.", r.id, r.requested)
}

func (r *Renderer) ShouldReconfigureSwapchain() bool {
	return r.swapchain.IsDirty()
}

// Extent is the size of the last configured swapchain.
func (r *Renderer) Extent() hal.Extent2D {
	return r.extent
}

func (r *Renderer) Stage() FrameStage {
	return r.stage
}

func (r *Renderer) ID() uuid.UUID {
	return r.id
}

// Close waits for the GPU and releases every object. Calls after the first
// are no-ops.
func (r *Renderer) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.stage = StageIdle

	err := r.resources.release()
	core.LogInfo("Renderer %s shut down after %d frames.", r.id, r.frameNumber)
	return err
}
