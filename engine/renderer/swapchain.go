package renderer

import (
	"errors"

	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer/hal"
)

// preferredImageCount is used whenever the surface allows it.
const preferredImageCount = 3

// SelectColorFormat returns the first sRGB format the surface reports for
// adapter, otherwise the first format reported, otherwise hal.DefaultFormat.
func SelectColorFormat(surface hal.Surface, adapter hal.Adapter) hal.Format {
	formats, err := surface.SupportedFormats(adapter)
	if err != nil {
		core.LogWarn("failed to query surface formats, using %s: %s", hal.DefaultFormat, err)
		return hal.DefaultFormat
	}
	for _, f := range formats {
		if f.IsSRGB() {
			return f
		}
	}
	if len(formats) > 0 {
		return formats[0]
	}
	core.LogWarn("surface reports no formats, using %s", hal.DefaultFormat)
	return hal.DefaultFormat
}

// SwapchainManager tracks whether the surface configuration is stale and
// rebuilds it lazily, once per invalidation.
type SwapchainManager struct {
	surface hal.Surface
	adapter hal.Adapter
	device  hal.Device
	format  hal.Format

	dirty      bool
	configured bool
	config     hal.SwapchainConfig
}

// NewSwapchainManager starts dirty: nothing is configured until the first
// Reconfigure.
func NewSwapchainManager(surface hal.Surface, adapter hal.Adapter, device hal.Device, format hal.Format) *SwapchainManager {
	return &SwapchainManager{
		surface: surface,
		adapter: adapter,
		device:  device,
		format:  format,
		dirty:   true,
	}
}

func (m *SwapchainManager) MarkDirty() {
	m.dirty = true
}

func (m *SwapchainManager) IsDirty() bool {
	return m.dirty
}

func (m *SwapchainManager) Format() hal.Format {
	return m.format
}

// Config is the configuration currently applied to the surface.
func (m *SwapchainManager) Config() (hal.SwapchainConfig, bool) {
	return m.config, m.configured
}

// Reconfigure applies a configuration derived from the surface capabilities
// and requested, if the current one is stale. While clean it returns the
// cached extent and attachment without touching the surface. dirty is only
// cleared once the surface accepted the new configuration.
func (m *SwapchainManager) Reconfigure(requested hal.Extent2D) (hal.Extent2D, hal.FramebufferAttachment, error) {
	if !m.dirty && m.configured {
		return m.config.Extent, m.config.FramebufferAttachment(), nil
	}

	caps, err := m.surface.Capabilities(m.adapter)
	if err != nil {
		return hal.Extent2D{}, hal.FramebufferAttachment{}, err
	}

	config := hal.SwapchainConfigFromCaps(caps, m.format, requested)
	if caps.SupportsImageCount(preferredImageCount) {
		config.ImageCount = preferredImageCount
	}

	if err := m.surface.Configure(m.device, config); err != nil {
		return hal.Extent2D{}, hal.FramebufferAttachment{}, err
	}

	m.config = config
	m.configured = true
	m.dirty = false
	core.LogDebug("Swapchain configured: %s, %s, %d images.", config.Extent, config.Format, config.ImageCount)
	return config.Extent, config.FramebufferAttachment(), nil
}

func (m *SwapchainManager) unconfigure() {
	if !m.configured {
		return
	}
	m.surface.Unconfigure(m.device)
	m.configured = false
	m.dirty = true
}

// isSoftConfigureError reports configure failures that only cost the current
// frame.
func isSoftConfigureError(err error) bool {
	return errors.Is(err, hal.ErrOutOfDate) || errors.Is(err, hal.ErrSurfaceLost)
}
