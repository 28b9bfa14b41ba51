// Package hal is the hardware abstraction layer the renderer is written against.
//
// A Backend hands out an Instance, the Instance binds a Surface to a window and
// enumerates Adapters, and an Adapter opens a Device together with its single
// Queue. Concrete variants live in their own packages (vulkan, headless) and
// register themselves by name, so the frame loop never touches raw API handles.
package hal

import "time"

// Window is the native window a Surface gets bound to.
type Window interface {
	GetFramebufferSize() (width, height int)
}

// Resource is implemented by every object a Device or Instance hands out.
type Resource interface {
	Label() string
}

type (
	RenderPass     interface{ Resource }
	PipelineLayout interface{ Resource }
	Pipeline       interface{ Resource }
	ShaderModule   interface{ Resource }
	Framebuffer    interface{ Resource }
	Fence          interface{ Resource }
	Semaphore      interface{ Resource }
	SurfaceImage   interface{ Resource }
)

type Backend interface {
	Name() string
	CreateInstance(desc *InstanceDescriptor) (Instance, error)
}

type InstanceDescriptor struct {
	AppName    string
	AppVersion uint32
	Window     Window
	// Enables validation layers where the variant supports them.
	Validation bool
}

type Instance interface {
	CreateSurface(window Window) (Surface, error)
	// DestroySurface must be called before Destroy.
	DestroySurface(surface Surface)
	EnumerateAdapters() ([]Adapter, error)
	Destroy()
}

type AdapterInfo struct {
	Name          string
	DeviceType    DeviceType
	DriverVersion string
	APIVersion    string
}

type Adapter interface {
	Info() AdapterInfo
	QueueFamilies() []QueueFamily
	// Open creates a logical device with a single queue taken from family.
	Open(family QueueFamily) (Device, Queue, error)
}

type QueueFamily interface {
	ID() uint32
	SupportsGraphics() bool
}

type Surface interface {
	Resource
	SupportsQueueFamily(family QueueFamily) bool
	Capabilities(adapter Adapter) (SurfaceCapabilities, error)
	SupportedFormats(adapter Adapter) ([]Format, error)
	Configure(device Device, config SwapchainConfig) error
	Unconfigure(device Device)
	// AcquireImage returns the next presentable image. The image is owned by
	// the surface and must not be destroyed by the caller.
	AcquireImage(timeout time.Duration) (SurfaceImage, error)
}

type Device interface {
	CreateCommandPool(family QueueFamily) (CommandPool, error)
	DestroyCommandPool(pool CommandPool)

	CreateRenderPass(desc *RenderPassDescriptor) (RenderPass, error)
	DestroyRenderPass(pass RenderPass)

	CreatePipelineLayout() (PipelineLayout, error)
	DestroyPipelineLayout(layout PipelineLayout)

	CreateShaderModule(spirv []uint32) (ShaderModule, error)
	DestroyShaderModule(module ShaderModule)

	CreateGraphicsPipeline(desc *GraphicsPipelineDescriptor) (Pipeline, error)
	DestroyGraphicsPipeline(pipeline Pipeline)

	CreateFramebuffer(pass RenderPass, attachment FramebufferAttachment, image SurfaceImage) (Framebuffer, error)
	DestroyFramebuffer(framebuffer Framebuffer)

	CreateFence(signaled bool) (Fence, error)
	DestroyFence(fence Fence)
	// WaitForFence blocks until fence is signaled or timeout elapses, in which
	// case ErrTimeout is returned.
	WaitForFence(fence Fence, timeout time.Duration) error
	ResetFence(fence Fence) error

	CreateSemaphore() (Semaphore, error)
	DestroySemaphore(semaphore Semaphore)

	WaitIdle() error
	Destroy()
}

type CommandPool interface {
	Resource
	AllocateOne() (CommandBuffer, error)
	// Reset returns every buffer allocated from the pool to the initial state.
	Reset() error
}

type CommandBuffer interface {
	Begin(usage CommandBufferUsage) error
	SetViewport(viewport Viewport)
	SetScissor(rect Rect)
	BeginRenderPass(pass RenderPass, framebuffer Framebuffer, area Rect, clear ClearColor)
	BindGraphicsPipeline(pipeline Pipeline)
	Draw(vertices, instances Range)
	EndRenderPass()
	Finish() error
}

type Queue interface {
	// Submit queues cmd for execution, signaling semaphore when the color
	// writes complete and fence once the whole submission retires.
	Submit(cmd CommandBuffer, signal Semaphore, fence Fence) error
	// Present hands image back to surface after wait is signaled. A result of
	// ErrSuboptimal means the image was shown but the swapchain should be
	// reconfigured.
	Present(surface Surface, image SurfaceImage, wait Semaphore) error
}
