package vulkan

import (
	"fmt"
	"time"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer/hal"
)

type surface struct {
	object
	instance *instance
	handle   vk.Surface

	// set while a swapchain is configured
	device       *device
	swapchain    vk.Swapchain
	images       []*surfaceImage
	acquireFence vk.Fence
}

type surfaceImage struct {
	object
	index     uint32
	swapchain vk.Swapchain
	view      vk.ImageView
}

func physicalOf(a hal.Adapter) (vk.PhysicalDevice, error) {
	va, ok := a.(*adapter)
	if !ok {
		return nil, hal.ErrForeignResource
	}
	return va.physical, nil
}

func (s *surface) SupportsQueueFamily(family hal.QueueFamily) bool {
	qf, ok := family.(*queueFamily)
	if !ok {
		return false
	}
	var supportsPresent vk.Bool32
	if res := vk.GetPhysicalDeviceSurfaceSupport(qf.physical, qf.id, s.handle, &supportsPresent); res != vk.Success {
		return false
	}
	return supportsPresent == vk.True
}

func (s *surface) capabilities(pd vk.PhysicalDevice) (vk.SurfaceCapabilities, error) {
	var caps vk.SurfaceCapabilities
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(pd, s.handle, &caps); res != vk.Success {
		return caps, resultError("vkGetPhysicalDeviceSurfaceCapabilitiesKHR", res)
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	return caps, nil
}

func (s *surface) Capabilities(a hal.Adapter) (hal.SurfaceCapabilities, error) {
	pd, err := physicalOf(a)
	if err != nil {
		return hal.SurfaceCapabilities{}, err
	}
	caps, err := s.capabilities(pd)
	if err != nil {
		return hal.SurfaceCapabilities{}, err
	}
	return hal.SurfaceCapabilities{
		CurrentExtent: hal.Extent2D{Width: caps.CurrentExtent.Width, Height: caps.CurrentExtent.Height},
		MinExtent:     hal.Extent2D{Width: caps.MinImageExtent.Width, Height: caps.MinImageExtent.Height},
		MaxExtent:     hal.Extent2D{Width: caps.MaxImageExtent.Width, Height: caps.MaxImageExtent.Height},
		MinImageCount: caps.MinImageCount,
		MaxImageCount: caps.MaxImageCount,
	}, nil
}

func (s *surface) surfaceFormats(pd vk.PhysicalDevice) ([]vk.SurfaceFormat, error) {
	var count uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(pd, s.handle, &count, nil); res != vk.Success {
		return nil, resultError("vkGetPhysicalDeviceSurfaceFormatsKHR", res)
	}
	if count == 0 {
		return nil, nil
	}
	formats := make([]vk.SurfaceFormat, count)
	if res := vk.GetPhysicalDeviceSurfaceFormats(pd, s.handle, &count, formats); res != vk.Success {
		return nil, resultError("vkGetPhysicalDeviceSurfaceFormatsKHR", res)
	}
	for i := range formats {
		formats[i].Deref()
	}
	return formats[:count], nil
}

// SupportedFormats lists the formats the backend knows how to name, in the
// order the driver reports them.
func (s *surface) SupportedFormats(a hal.Adapter) ([]hal.Format, error) {
	pd, err := physicalOf(a)
	if err != nil {
		return nil, err
	}
	formats, err := s.surfaceFormats(pd)
	if err != nil {
		return nil, err
	}
	return namedFormats(formats), nil
}

// namedFormats keeps the driver order but drops formats hal has no name for.
func namedFormats(formats []vk.SurfaceFormat) []hal.Format {
	out := make([]hal.Format, 0, len(formats))
	for _, f := range formats {
		if hf := fromVkFormat(f.Format); hf != hal.FormatUndefined {
			out = append(out, hf)
		}
	}
	if len(out) == 0 && len(formats) > 0 {
		core.LogWarn("surface reports %d formats, none of them usable", len(formats))
	}
	return out
}

// matchSurfaceFormat returns the reported entry for want, so the swapchain is
// created with the color space the driver paired with it.
func matchSurfaceFormat(formats []vk.SurfaceFormat, want hal.Format) (vk.SurfaceFormat, error) {
	target := toVkFormat(want)
	if target == vk.FormatUndefined {
		return vk.SurfaceFormat{}, fmt.Errorf("swapchain format %s has no Vulkan equivalent", want)
	}
	for _, f := range formats {
		if f.Format == target {
			return f, nil
		}
	}
	return vk.SurfaceFormat{}, fmt.Errorf("surface does not support swapchain format %s", want)
}

func (s *surface) Configure(dev hal.Device, config hal.SwapchainConfig) error {
	d, ok := dev.(*device)
	if !ok {
		return hal.ErrForeignResource
	}
	if config.Extent.Width == 0 || config.Extent.Height == 0 {
		return fmt.Errorf("invalid swapchain extent %s", config.Extent)
	}

	return d.locks.SafeCall(SwapchainManagement, func() error {
		return s.configure(d, config)
	})
}

func (s *surface) configure(d *device, config hal.SwapchainConfig) error {
	pd := d.adapter.physical
	caps, err := s.capabilities(pd)
	if err != nil {
		return err
	}
	formats, err := s.surfaceFormats(pd)
	if err != nil {
		return err
	}
	surfaceFormat, err := matchSurfaceFormat(formats, config.Format)
	if err != nil {
		return err
	}

	oldSwapchain := s.swapchain
	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          s.handle,
		MinImageCount:    config.ImageCount,
		ImageFormat:      surfaceFormat.Format,
		ImageColorSpace:  surfaceFormat.ColorSpace,
		ImageExtent:      vk.Extent2D{Width: config.Extent.Width, Height: config.Extent.Height},
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      toVkPresentMode(config.PresentMode),
		Clipped:          vk.True,
		OldSwapchain:     oldSwapchain,
	}

	var handle vk.Swapchain
	res := vk.CreateSwapchain(d.handle, &swapchainCreateInfo, nil, &handle)

	// the old swapchain is retired either way
	if oldSwapchain != vk.NullSwapchain {
		if err := d.WaitIdle(); err != nil {
			core.LogWarn("Waiting for the device before swapchain recreation failed: %s", err)
		}
		s.release(d)
	}
	if res != vk.Success {
		return resultError("vkCreateSwapchainKHR", res)
	}
	s.swapchain = handle
	s.device = d

	if err := s.createImages(d, toVkFormat(config.Format)); err != nil {
		s.release(d)
		return err
	}
	acquireFence, err := d.newFence(false)
	if err != nil {
		s.release(d)
		return err
	}
	s.acquireFence = acquireFence

	core.LogInfo("Swapchain created: %s, %d images, %s.", config.Extent, len(s.images), config.Format)
	return nil
}

func (s *surface) createImages(d *device, format vk.Format) error {
	var count uint32
	if res := vk.GetSwapchainImages(d.handle, s.swapchain, &count, nil); res != vk.Success {
		return resultError("vkGetSwapchainImagesKHR", res)
	}
	images := make([]vk.Image, count)
	if res := vk.GetSwapchainImages(d.handle, s.swapchain, &count, images); res != vk.Success {
		return resultError("vkGetSwapchainImagesKHR", res)
	}

	for i := range images[:count] {
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    images[i],
			ViewType: vk.ImageViewType2d,
			Format:   format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		}
		img := &surfaceImage{
			object:    object{label: fmt.Sprintf("%s-image-%d", s.label, i)},
			index:     uint32(i),
			swapchain: s.swapchain,
		}
		if res := vk.CreateImageView(d.handle, &viewInfo, nil, &img.view); res != vk.Success {
			return resultError("vkCreateImageView", res)
		}
		s.images = append(s.images, img)
	}
	return nil
}

// release destroys the image views, the acquire fence and the swapchain. The
// images themselves belong to the swapchain.
func (s *surface) release(d *device) {
	for _, img := range s.images {
		vk.DestroyImageView(d.handle, img.view, nil)
		img.view = nil
	}
	s.images = nil
	if s.acquireFence != nil {
		vk.DestroyFence(d.handle, s.acquireFence, nil)
		s.acquireFence = nil
	}
	if s.swapchain != vk.NullSwapchain {
		vk.DestroySwapchain(d.handle, s.swapchain, nil)
		s.swapchain = vk.NullSwapchain
	}
	s.device = nil
}

func (s *surface) Unconfigure(dev hal.Device) {
	d, ok := dev.(*device)
	if !ok || s.device == nil {
		return
	}
	_ = d.locks.SafeCall(SwapchainManagement, func() error {
		s.release(d)
		return nil
	})
}

// AcquireImage blocks on an internal fence until the image is really free,
// so submissions do not need to wait on an acquire semaphore.
func (s *surface) AcquireImage(timeout time.Duration) (hal.SurfaceImage, error) {
	d := s.device
	if d == nil || s.swapchain == vk.NullSwapchain {
		return nil, hal.ErrNotConfigured
	}

	var index uint32
	res := vk.AcquireNextImage(d.handle, s.swapchain, uint64(timeout.Nanoseconds()), vk.NullSemaphore, s.acquireFence, &index)
	if res != vk.Success && res != vk.Suboptimal {
		return nil, resultError("vkAcquireNextImageKHR", res)
	}
	if err := d.waitFence(s.acquireFence, timeout); err != nil {
		return nil, err
	}
	if res := vk.ResetFences(d.handle, 1, []vk.Fence{s.acquireFence}); res != vk.Success {
		return nil, resultError("vkResetFences", res)
	}
	if int(index) >= len(s.images) {
		return nil, fmt.Errorf("acquired image %d out of %d", index, len(s.images))
	}
	return s.images[index], nil
}
