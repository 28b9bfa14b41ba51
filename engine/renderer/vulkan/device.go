package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer/hal"
)

const portabilitySubset = "VK_KHR_portability_subset"

type queueFamily struct {
	id         uint32
	physical   vk.PhysicalDevice
	properties vk.QueueFamilyProperties
}

func (q *queueFamily) ID() uint32 { return q.id }

func (q *queueFamily) SupportsGraphics() bool {
	return vk.QueueFlagBits(q.properties.QueueFlags)&vk.QueueGraphicsBit != 0
}

type adapter struct {
	physical   vk.PhysicalDevice
	properties vk.PhysicalDeviceProperties
	families   []hal.QueueFamily
}

func newAdapter(pd vk.PhysicalDevice) *adapter {
	a := &adapter{physical: pd}
	vk.GetPhysicalDeviceProperties(pd, &a.properties)
	a.properties.Deref()

	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, nil)
	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, props)
	for i := range props[:count] {
		props[i].Deref()
		a.families = append(a.families, &queueFamily{
			id:         uint32(i),
			physical:   pd,
			properties: props[i],
		})
	}
	return a
}

func (a *adapter) Info() hal.AdapterInfo {
	driver := vk.Version(a.properties.DriverVersion)
	api := vk.Version(a.properties.ApiVersion)
	return hal.AdapterInfo{
		Name:          vk.ToString(a.properties.DeviceName[:]),
		DeviceType:    fromVkDeviceType(a.properties.DeviceType),
		DriverVersion: fmt.Sprintf("%d.%d.%d", driver.Major(), driver.Minor(), driver.Patch()),
		APIVersion:    fmt.Sprintf("%d.%d.%d", api.Major(), api.Minor(), api.Patch()),
	}
}

func (a *adapter) QueueFamilies() []hal.QueueFamily { return a.families }

func (a *adapter) deviceExtensions() ([]string, error) {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(a.physical, "", &count, nil); res != vk.Success {
		return nil, resultError("vkEnumerateDeviceExtensionProperties", res)
	}
	available := make([]vk.ExtensionProperties, count)
	if count > 0 {
		if res := vk.EnumerateDeviceExtensionProperties(a.physical, "", &count, available); res != vk.Success {
			return nil, resultError("vkEnumerateDeviceExtensionProperties", res)
		}
	}

	hasSwapchain := false
	extensions := []string{vk.KhrSwapchainExtensionName}
	for i := range available[:count] {
		available[i].Deref()
		switch vk.ToString(available[i].ExtensionName[:]) {
		case vk.KhrSwapchainExtensionName:
			hasSwapchain = true
		case portabilitySubset:
			core.LogInfo("Adding required extension '%s'.", portabilitySubset)
			extensions = append(extensions, portabilitySubset)
		}
	}
	if !hasSwapchain {
		return nil, fmt.Errorf("device does not support %s", vk.KhrSwapchainExtensionName)
	}
	return extensions, nil
}

func (a *adapter) Open(family hal.QueueFamily) (hal.Device, hal.Queue, error) {
	qf, ok := family.(*queueFamily)
	if !ok || qf.physical != a.physical {
		return nil, nil, hal.ErrForeignResource
	}
	if !qf.SupportsGraphics() {
		return nil, nil, fmt.Errorf("queue family %d has no graphics support", qf.id)
	}

	extensions, err := a.deviceExtensions()
	if err != nil {
		core.LogError("%s", err)
		return nil, nil, err
	}

	queueCreateInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: qf.id,
		QueueCount:       1,
		PQueuePriorities: []float32{1.0},
	}}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensions),
	}

	d := &device{
		adapter: a,
		family:  qf.id,
		locks:   NewVulkanLockPool(),
	}
	if res := vk.CreateDevice(a.physical, &deviceCreateInfo, nil, &d.handle); res != vk.Success {
		err := resultError("vkCreateDevice", res)
		core.LogError("%s", err)
		return nil, nil, err
	}
	core.LogInfo("Logical device created.")

	q := &queue{device: d, family: qf.id}
	vk.GetDeviceQueue(d.handle, qf.id, 0, &q.handle)
	return d, q, nil
}

type device struct {
	handle  vk.Device
	adapter *adapter
	family  uint32
	locks   *VulkanLockPool
}

type commandPool struct {
	object
	device *device
	handle vk.CommandPool
}

func (d *device) CreateCommandPool(family hal.QueueFamily) (hal.CommandPool, error) {
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: family.ID(),
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit),
	}
	pool := &commandPool{object: newObject("command-pool"), device: d}
	if res := vk.CreateCommandPool(d.handle, &poolCreateInfo, nil, &pool.handle); res != vk.Success {
		return nil, resultError("vkCreateCommandPool", res)
	}
	return pool, nil
}

func (d *device) DestroyCommandPool(p hal.CommandPool) {
	pool, ok := p.(*commandPool)
	if !ok || pool.handle == nil {
		return
	}
	_ = d.locks.SafeCall(CommandPoolManagement, func() error {
		vk.DestroyCommandPool(d.handle, pool.handle, nil)
		return nil
	})
	pool.handle = nil
}

func (d *device) WaitIdle() error {
	if res := vk.DeviceWaitIdle(d.handle); !VulkanResultIsSuccess(res) {
		return resultError("vkDeviceWaitIdle", res)
	}
	return nil
}

func (d *device) Destroy() {
	if d.handle == nil {
		return
	}
	core.LogDebug("Destroying logical device...")
	vk.DestroyDevice(d.handle, nil)
	d.handle = nil
}

type queue struct {
	device *device
	family uint32
	handle vk.Queue
}

func (q *queue) Submit(cmd hal.CommandBuffer, signal hal.Semaphore, f hal.Fence) error {
	cb, ok := cmd.(*commandBuffer)
	if !ok {
		return hal.ErrForeignResource
	}
	sem, ok := signal.(*semaphore)
	if !ok {
		return hal.ErrForeignResource
	}
	vf, ok := f.(*fence)
	if !ok {
		return hal.ErrForeignResource
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cb.handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{sem.handle},
	}
	return q.device.locks.SafeQueueCall(q.family, func() error {
		if res := vk.QueueSubmit(q.handle, 1, []vk.SubmitInfo{submitInfo}, vf.handle); res != vk.Success {
			return resultError("vkQueueSubmit", res)
		}
		cb.state = commandBufferSubmitted
		return nil
	})
}

func (q *queue) Present(s hal.Surface, img hal.SurfaceImage, wait hal.Semaphore) error {
	vs, ok := s.(*surface)
	if !ok {
		return hal.ErrForeignResource
	}
	image, ok := img.(*surfaceImage)
	if !ok {
		return hal.ErrForeignResource
	}
	sem, ok := wait.(*semaphore)
	if !ok {
		return hal.ErrForeignResource
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{sem.handle},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{image.swapchain},
		PImageIndices:      []uint32{image.index},
	}
	return q.device.locks.SafeQueueCall(q.family, func() error {
		if vs.swapchain != image.swapchain {
			// the swapchain was rebuilt since this image was acquired
			return fmt.Errorf("present: %w", hal.ErrOutOfDate)
		}
		return resultError("vkQueuePresentKHR", vk.QueuePresent(q.handle, &presentInfo))
	})
}
