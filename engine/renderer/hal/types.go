package hal

import (
	"fmt"

	"github.com/spaghettifunk/trigon/engine/math"
)

type Format uint8

const (
	FormatUndefined Format = iota
	FormatRGBA8Unorm
	FormatRGBA8UnormSRGB
	FormatBGRA8Unorm
	FormatBGRA8UnormSRGB
	FormatRGB10A2Unorm
	FormatRGBA16Float
)

// DefaultFormat is used when a surface does not report any format.
const DefaultFormat = FormatRGBA8UnormSRGB

func (f Format) IsSRGB() bool {
	return f == FormatRGBA8UnormSRGB || f == FormatBGRA8UnormSRGB
}

func (f Format) String() string {
	switch f {
	case FormatRGBA8Unorm:
		return "Rgba8Unorm"
	case FormatRGBA8UnormSRGB:
		return "Rgba8Srgb"
	case FormatBGRA8Unorm:
		return "Bgra8Unorm"
	case FormatBGRA8UnormSRGB:
		return "Bgra8Srgb"
	case FormatRGB10A2Unorm:
		return "A2r10g10b10Unorm"
	case FormatRGBA16Float:
		return "Rgba16Sfloat"
	default:
		return "Undefined"
	}
}

type DeviceType uint8

const (
	DeviceTypeOther DeviceType = iota
	DeviceTypeIntegratedGPU
	DeviceTypeDiscreteGPU
	DeviceTypeVirtualGPU
	DeviceTypeCPU
)

func (d DeviceType) String() string {
	switch d {
	case DeviceTypeIntegratedGPU:
		return "Integrated"
	case DeviceTypeDiscreteGPU:
		return "Discrete"
	case DeviceTypeVirtualGPU:
		return "Virtual"
	case DeviceTypeCPU:
		return "CPU"
	default:
		return "Unknown"
	}
}

type Extent2D struct {
	Width  uint32
	Height uint32
}

// UndefinedExtent marks a surface whose size is decided by the swapchain.
const UndefinedExtent uint32 = 0xFFFFFFFF

func (e Extent2D) String() string {
	return fmt.Sprintf("%dx%d", e.Width, e.Height)
}

func (e Extent2D) Rect() Rect {
	return Rect{X: 0, Y: 0, Width: e.Width, Height: e.Height}
}

func (e Extent2D) Viewport() Viewport {
	return Viewport{
		Rect:     e.Rect(),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
}

type SurfaceCapabilities struct {
	// CurrentExtent is UndefinedExtent on both axes when the surface
	// adopts whatever the swapchain asks for.
	CurrentExtent Extent2D
	MinExtent     Extent2D
	MaxExtent     Extent2D
	MinImageCount uint32
	// Zero means there is no upper bound.
	MaxImageCount uint32
}

func (c SurfaceCapabilities) HasCurrentExtent() bool {
	return c.CurrentExtent.Width != UndefinedExtent && c.CurrentExtent.Height != UndefinedExtent
}

func (c SurfaceCapabilities) SupportsImageCount(n uint32) bool {
	if n < c.MinImageCount {
		return false
	}
	return c.MaxImageCount == 0 || n <= c.MaxImageCount
}

type PresentMode uint8

const (
	PresentModeFifo PresentMode = iota
	PresentModeMailbox
	PresentModeImmediate
)

type SwapchainConfig struct {
	Format      Format
	Extent      Extent2D
	ImageCount  uint32
	PresentMode PresentMode
}

// SwapchainConfigFromCaps derives a FIFO configuration from the surface
// capabilities. The surface's own extent wins when it has one, otherwise the
// requested extent is clamped into the supported range. The result is never
// smaller than 1x1.
func SwapchainConfigFromCaps(caps SurfaceCapabilities, format Format, requested Extent2D) SwapchainConfig {
	extent := requested
	if caps.HasCurrentExtent() {
		extent = caps.CurrentExtent
	}
	extent.Width = clampAxis(extent.Width, caps.MinExtent.Width, caps.MaxExtent.Width)
	extent.Height = clampAxis(extent.Height, caps.MinExtent.Height, caps.MaxExtent.Height)

	imageCount := max(caps.MinImageCount, 2)
	if caps.MaxImageCount != 0 && imageCount > caps.MaxImageCount {
		imageCount = caps.MaxImageCount
	}

	return SwapchainConfig{
		Format:      format,
		Extent:      extent,
		ImageCount:  imageCount,
		PresentMode: PresentModeFifo,
	}
}

func clampAxis(v, low, high uint32) uint32 {
	if high != 0 && high >= low {
		v = math.Clamp(v, low, high)
	} else {
		v = math.ClampMin(v, low)
	}
	return math.ClampMin(v, 1)
}

// FramebufferAttachment describes the single color image a framebuffer binds.
type FramebufferAttachment struct {
	Format Format
	Extent Extent2D
}

func (c SwapchainConfig) FramebufferAttachment() FramebufferAttachment {
	return FramebufferAttachment{Format: c.Format, Extent: c.Extent}
}

type Rect struct {
	X, Y          int32
	Width, Height uint32
}

type Viewport struct {
	Rect     Rect
	MinDepth float32
	MaxDepth float32
}

type ClearColor [4]float32

var ClearOpaqueBlack = ClearColor{0.0, 0.0, 0.0, 1.0}

// Range is the half-open interval [Start, End).
type Range struct {
	Start uint32
	End   uint32
}

func (r Range) Count() uint32 {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

type CommandBufferUsage uint8

const (
	CommandBufferUsageOneTimeSubmit CommandBufferUsage = 1 << iota
	CommandBufferUsageSimultaneousUse
)

type AttachmentLoadOp uint8

const (
	AttachmentLoadOpDontCare AttachmentLoadOp = iota
	AttachmentLoadOpLoad
	AttachmentLoadOpClear
)

type AttachmentStoreOp uint8

const (
	AttachmentStoreOpDontCare AttachmentStoreOp = iota
	AttachmentStoreOpStore
)

type ImageLayout uint8

const (
	ImageLayoutUndefined ImageLayout = iota
	ImageLayoutColorAttachmentOptimal
	ImageLayoutPresent
)

type AttachmentDescriptor struct {
	Format         Format
	Samples        uint8
	LoadOp         AttachmentLoadOp
	StoreOp        AttachmentStoreOp
	StencilLoadOp  AttachmentLoadOp
	StencilStoreOp AttachmentStoreOp
	InitialLayout  ImageLayout
	FinalLayout    ImageLayout
}

type AttachmentReference struct {
	Attachment uint32
	Layout     ImageLayout
}

type SubpassDescriptor struct {
	Colors []AttachmentReference
}

type RenderPassDescriptor struct {
	Label       string
	Attachments []AttachmentDescriptor
	Subpasses   []SubpassDescriptor
}

type PrimitiveTopology uint8

const (
	PrimitiveTopologyTriangleList PrimitiveTopology = iota
	PrimitiveTopologyTriangleStrip
	PrimitiveTopologyLineList
)

type CullMode uint8

const (
	CullModeNone CullMode = iota
	CullModeFront
	CullModeBack
	CullModeFrontAndBack
)

type PolygonMode uint8

const (
	PolygonModeFill PolygonMode = iota
	PolygonModeLine
)

type FrontFace uint8

const (
	FrontFaceCounterClockwise FrontFace = iota
	FrontFaceClockwise
)

type BlendState uint8

const (
	BlendStateReplace BlendState = iota
	// Source over destination using the source alpha.
	BlendStateAlpha
)

type ColorMask uint8

const (
	ColorMaskRed ColorMask = 1 << iota
	ColorMaskGreen
	ColorMaskBlue
	ColorMaskAlpha

	ColorMaskAll = ColorMaskRed | ColorMaskGreen | ColorMaskBlue | ColorMaskAlpha
)

type ShaderStage uint8

const (
	ShaderStageVertex ShaderStage = iota
	ShaderStageFragment
)

func (s ShaderStage) String() string {
	switch s {
	case ShaderStageVertex:
		return "vertex"
	case ShaderStageFragment:
		return "fragment"
	default:
		return "unknown"
	}
}

type EntryPoint struct {
	Module ShaderModule
	Name   string
}

type Rasterizer struct {
	PolygonMode PolygonMode
	CullMode    CullMode
	FrontFace   FrontFace
	LineWidth   float32
}

type ColorBlendDescriptor struct {
	Mask  ColorMask
	Blend BlendState
}

type GraphicsPipelineDescriptor struct {
	Label      string
	Vertex     EntryPoint
	Fragment   EntryPoint
	Topology   PrimitiveTopology
	Rasterizer Rasterizer
	Targets    []ColorBlendDescriptor
	Layout     PipelineLayout
	RenderPass RenderPass
	Subpass    uint32
}
