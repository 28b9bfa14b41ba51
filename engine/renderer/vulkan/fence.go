package vulkan

import (
	"time"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer/hal"
)

type fence struct {
	object
	handle vk.Fence
}

type semaphore struct {
	object
	handle vk.Semaphore
}

func (d *device) newFence(signaled bool) (vk.Fence, error) {
	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var handle vk.Fence
	if res := vk.CreateFence(d.handle, &fenceCreateInfo, nil, &handle); res != vk.Success {
		err := resultError("vkCreateFence", res)
		core.LogError("%s", err)
		return nil, err
	}
	return handle, nil
}

func (d *device) CreateFence(signaled bool) (hal.Fence, error) {
	handle, err := d.newFence(signaled)
	if err != nil {
		return nil, err
	}
	return &fence{object: newObject("fence"), handle: handle}, nil
}

func (d *device) DestroyFence(f hal.Fence) {
	vf, ok := f.(*fence)
	if !ok || vf.handle == nil {
		return
	}
	vk.DestroyFence(d.handle, vf.handle, nil)
	vf.handle = nil
}

func (d *device) WaitForFence(f hal.Fence, timeout time.Duration) error {
	vf, ok := f.(*fence)
	if !ok {
		return hal.ErrForeignResource
	}
	return d.waitFence(vf.handle, timeout)
}

func (d *device) waitFence(handle vk.Fence, timeout time.Duration) error {
	res := vk.WaitForFences(d.handle, 1, []vk.Fence{handle}, vk.True, uint64(timeout.Nanoseconds()))
	if res != vk.Success {
		err := resultError("vkWaitForFences", res)
		if res == vk.Timeout {
			core.LogWarn("%s", err)
		} else {
			core.LogError("%s", err)
		}
		return err
	}
	return nil
}

func (d *device) ResetFence(f hal.Fence) error {
	vf, ok := f.(*fence)
	if !ok {
		return hal.ErrForeignResource
	}
	if res := vk.ResetFences(d.handle, 1, []vk.Fence{vf.handle}); res != vk.Success {
		return resultError("vkResetFences", res)
	}
	return nil
}

func (d *device) CreateSemaphore() (hal.Semaphore, error) {
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	sem := &semaphore{object: newObject("semaphore")}
	if res := vk.CreateSemaphore(d.handle, &semaphoreCreateInfo, nil, &sem.handle); res != vk.Success {
		err := resultError("vkCreateSemaphore", res)
		core.LogError("%s", err)
		return nil, err
	}
	return sem, nil
}

func (d *device) DestroySemaphore(s hal.Semaphore) {
	sem, ok := s.(*semaphore)
	if !ok || sem.handle == vk.NullSemaphore {
		return
	}
	vk.DestroySemaphore(d.handle, sem.handle, nil)
	sem.handle = vk.NullSemaphore
}
