package headless

import (
	"errors"
	"fmt"
	"time"

	"github.com/spaghettifunk/trigon/engine/renderer/hal"
)

type surface struct {
	object
	configured bool
	config     hal.SwapchainConfig
	next       uint32
}

type image struct {
	label string
	index uint32
}

func (i *image) Label() string { return i.label }

func (s *surface) SupportsQueueFamily(family hal.QueueFamily) bool {
	qf, ok := family.(*queueFamily)
	return ok && qf.spec.Present
}

func (s *surface) Capabilities(hal.Adapter) (hal.SurfaceCapabilities, error) {
	b := s.owner
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.recordLocked("surface_capabilities"); err != nil {
		return hal.SurfaceCapabilities{}, err
	}
	return b.opts.Capabilities, nil
}

func (s *surface) SupportedFormats(hal.Adapter) ([]hal.Format, error) {
	b := s.owner
	if err := b.record("supported_formats"); err != nil {
		return nil, err
	}
	if b.opts.FormatsError != nil {
		return nil, b.opts.FormatsError
	}
	out := make([]hal.Format, len(b.opts.Formats))
	copy(out, b.opts.Formats)
	return out, nil
}

func (s *surface) Configure(dev hal.Device, config hal.SwapchainConfig) error {
	b := s.owner
	b.checkAlive("configure_swapchain", s)
	if _, ok := dev.(*device); !ok {
		return hal.ErrForeignResource
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.recordLocked("configure_swapchain"); err != nil {
		return err
	}
	if config.Extent.Width == 0 || config.Extent.Height == 0 {
		return fmt.Errorf("invalid swapchain extent %s", config.Extent)
	}
	s.configured = true
	s.config = config
	s.next = 0
	b.configures = append(b.configures, config)
	return nil
}

func (s *surface) Unconfigure(hal.Device) {
	b := s.owner
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, "unconfigure_swapchain")
	s.configured = false
}

func (s *surface) AcquireImage(time.Duration) (hal.SurfaceImage, error) {
	b := s.owner
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.recordLocked("acquire_image"); err != nil {
		return nil, err
	}
	if !s.configured {
		return nil, hal.ErrNotConfigured
	}
	idx := s.next
	s.next = (s.next + 1) % max(s.config.ImageCount, 1)
	return &image{label: fmt.Sprintf("%s-image-%d", s.label, idx), index: idx}, nil
}

type queue struct {
	owner *Backend
}

func (q *queue) Submit(cmd hal.CommandBuffer, signal hal.Semaphore, fence hal.Fence) error {
	b := q.owner
	cb, ok := cmd.(*commandBuffer)
	if !ok {
		return hal.ErrForeignResource
	}
	f, ok := fence.(*fenceObject)
	if !ok {
		return hal.ErrForeignResource
	}
	b.checkAlive("submit", signal)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.recordLocked("submit"); err != nil {
		return err
	}
	if cb.state != stateExecutable {
		b.violations = append(b.violations, "submit: command buffer is not finished")
	}
	if f.signaled {
		b.violations = append(b.violations, "submit: fence is still signaled")
	}
	f.signaled = false
	f.pending = b.opts.FencePolls
	f.submitted = true
	cb.state = statePending
	b.draws = append(b.draws, cb.draw)
	return nil
}

func (q *queue) Present(s hal.Surface, img hal.SurfaceImage, wait hal.Semaphore) error {
	b := q.owner
	b.checkAlive("present", s)
	b.checkAlive("present", wait)
	if _, ok := img.(*image); !ok {
		return hal.ErrForeignResource
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	err := b.recordLocked("present")
	if err == nil || errors.Is(err, hal.ErrSuboptimal) {
		b.presents++
	}
	return err
}
