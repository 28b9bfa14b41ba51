package renderer

import (
	"fmt"

	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer/hal"
)

// DeviceContext groups the objects created once at startup: the instance, the
// surface bound to the window, the adapter, the logical device and its single
// queue. The queue family supports both graphics and presentation.
type DeviceContext struct {
	Instance    hal.Instance
	Surface     hal.Surface
	Adapter     hal.Adapter
	Device      hal.Device
	Queue       hal.Queue
	QueueFamily hal.QueueFamily
}

// NewDeviceContext picks the first adapter and its first queue family able to
// draw and present to window. Whatever was created before a failure is
// destroyed before returning.
func NewDeviceContext(backend hal.Backend, desc *hal.InstanceDescriptor) (*DeviceContext, error) {
	if backend == nil {
		return nil, core.ErrNoBackend
	}

	instance, err := backend.CreateInstance(desc)
	if err != nil {
		err = fmt.Errorf("%w: %s: %v", core.ErrNoBackend, backend.Name(), err)
		core.LogError("%s", err)
		return nil, err
	}

	surface, err := instance.CreateSurface(desc.Window)
	if err != nil {
		instance.Destroy()
		err = fmt.Errorf("%w: %v", core.ErrNoSurface, err)
		core.LogError("%s", err)
		return nil, err
	}

	ctx := &DeviceContext{Instance: instance, Surface: surface}
	if err := ctx.open(); err != nil {
		instance.DestroySurface(surface)
		instance.Destroy()
		core.LogError("%s", err)
		return nil, err
	}

	info := ctx.Adapter.Info()
	core.LogInfo("Selected adapter %s (%s), driver %s, API %s, queue family %d.",
		info.Name, info.DeviceType, info.DriverVersion, info.APIVersion, ctx.QueueFamily.ID())
	return ctx, nil
}

func (c *DeviceContext) open() error {
	adapters, err := c.Instance.EnumerateAdapters()
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrNoAdapter, err)
	}
	if len(adapters) == 0 {
		return core.ErrNoAdapter
	}
	adapter := adapters[0]

	var family hal.QueueFamily
	for _, f := range adapter.QueueFamilies() {
		if f.SupportsGraphics() && c.Surface.SupportsQueueFamily(f) {
			family = f
			break
		}
	}
	if family == nil {
		return fmt.Errorf("%w: adapter %s", core.ErrNoQueueFamily, adapter.Info().Name)
	}

	device, queue, err := adapter.Open(family)
	if err != nil {
		return fmt.Errorf("failed to open device on %s: %w", adapter.Info().Name, err)
	}

	c.Adapter = adapter
	c.QueueFamily = family
	c.Device = device
	c.Queue = queue
	return nil
}
