package headless

import (
	"errors"
	"testing"
	"time"

	"github.com/spaghettifunk/trigon/engine/renderer/hal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	backend  *Backend
	instance hal.Instance
	surface  hal.Surface
	adapter  hal.Adapter
	device   hal.Device
	queue    hal.Queue
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	b := New(opts)
	inst, err := b.CreateInstance(&hal.InstanceDescriptor{AppName: "headless-test"})
	require.NoError(t, err)
	surf, err := inst.CreateSurface(&Window{Width: 64, Height: 64})
	require.NoError(t, err)
	adapters, err := inst.EnumerateAdapters()
	require.NoError(t, err)
	require.Len(t, adapters, 1)
	dev, queue, err := adapters[0].Open(adapters[0].QueueFamilies()[0])
	require.NoError(t, err)
	return &fixture{backend: b, instance: inst, surface: surf, adapter: adapters[0], device: dev, queue: queue}
}

func TestRegistered(t *testing.T) {
	assert.True(t, hal.IsRegistered(Name))
	b, err := hal.Get(Name)
	require.NoError(t, err)
	assert.Equal(t, Name, b.Name())
}

func TestFencePolling(t *testing.T) {
	opts := DefaultOptions()
	opts.FencePolls = 4
	f := newFixture(t, opts)

	fence, err := f.device.CreateFence(false)
	require.NoError(t, err)

	// never submitted: never signals
	assert.ErrorIs(t, f.device.WaitForFence(fence, time.Millisecond), hal.ErrTimeout)
	polls := f.backend.FencePolls()
	assert.Positive(t, polls)

	require.NoError(t, f.surface.Configure(f.device, hal.SwapchainConfig{Extent: hal.Extent2D{Width: 64, Height: 64}, ImageCount: 2}))
	pool, err := f.device.CreateCommandPool(f.adapter.QueueFamilies()[0])
	require.NoError(t, err)
	cmd, err := pool.AllocateOne()
	require.NoError(t, err)
	require.NoError(t, cmd.Begin(hal.CommandBufferUsageOneTimeSubmit))
	require.NoError(t, cmd.Finish())
	sem, err := f.device.CreateSemaphore()
	require.NoError(t, err)

	require.NoError(t, f.queue.Submit(cmd, sem, fence))
	require.NoError(t, f.device.WaitForFence(fence, time.Second))
	assert.Equal(t, polls+4, f.backend.FencePolls())

	// signaled fences return at once
	require.NoError(t, f.device.WaitForFence(fence, time.Second))
	assert.Equal(t, polls+4, f.backend.FencePolls())
	assert.Empty(t, f.backend.Violations())
}

func TestHangFences(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	fence, err := f.device.CreateFence(false)
	require.NoError(t, err)
	pool, err := f.device.CreateCommandPool(f.adapter.QueueFamilies()[0])
	require.NoError(t, err)
	cmd, err := pool.AllocateOne()
	require.NoError(t, err)
	require.NoError(t, cmd.Begin(hal.CommandBufferUsageOneTimeSubmit))
	require.NoError(t, cmd.Finish())
	sem, err := f.device.CreateSemaphore()
	require.NoError(t, err)
	require.NoError(t, f.queue.Submit(cmd, sem, fence))

	f.backend.HangFences(true)
	assert.ErrorIs(t, f.device.WaitForFence(fence, 2*time.Millisecond), hal.ErrTimeout)
	f.backend.HangFences(false)
	assert.NoError(t, f.device.WaitForFence(fence, time.Second))
}

func TestFailInjection(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	require.NoError(t, f.surface.Configure(f.device, hal.SwapchainConfig{Extent: hal.Extent2D{Width: 64, Height: 64}, ImageCount: 2}))

	f.backend.Fail("acquire_image", hal.ErrOutOfDate, 2)
	_, err := f.surface.AcquireImage(time.Second)
	assert.ErrorIs(t, err, hal.ErrOutOfDate)
	_, err = f.surface.AcquireImage(time.Second)
	assert.ErrorIs(t, err, hal.ErrOutOfDate)

	img, err := f.surface.AcquireImage(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "surface-2-image-0", img.Label())
	img, err = f.surface.AcquireImage(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "surface-2-image-1", img.Label())
	assert.Equal(t, 4, f.backend.Count("acquire_image"))
}

func TestAcquireRequiresConfiguration(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	_, err := f.surface.AcquireImage(time.Second)
	assert.ErrorIs(t, err, hal.ErrNotConfigured)

	err = f.surface.Configure(f.device, hal.SwapchainConfig{ImageCount: 2})
	assert.Error(t, err, "zero extent is rejected")
}

func TestViolations(t *testing.T) {
	f := newFixture(t, DefaultOptions())

	pass, err := f.device.CreateRenderPass(&hal.RenderPassDescriptor{
		Attachments: []hal.AttachmentDescriptor{{Format: hal.FormatBGRA8UnormSRGB}},
		Subpasses:   []hal.SubpassDescriptor{{}},
	})
	require.NoError(t, err)
	f.device.DestroyRenderPass(pass)
	f.device.DestroyRenderPass(pass)

	pool, err := f.device.CreateCommandPool(f.adapter.QueueFamilies()[0])
	require.NoError(t, err)
	cmd, err := pool.AllocateOne()
	require.NoError(t, err)
	cmd.Draw(hal.Range{End: 3}, hal.Range{End: 1})

	violations := f.backend.Violations()
	require.Len(t, violations, 2)
	assert.Contains(t, violations[0], "destroy_render_pass")
	assert.Contains(t, violations[1], "draw")
}

func TestSubmitChecks(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	fence, err := f.device.CreateFence(true)
	require.NoError(t, err)
	sem, err := f.device.CreateSemaphore()
	require.NoError(t, err)
	pool, err := f.device.CreateCommandPool(f.adapter.QueueFamilies()[0])
	require.NoError(t, err)
	cmd, err := pool.AllocateOne()
	require.NoError(t, err)

	require.NoError(t, f.queue.Submit(cmd, sem, fence))
	assert.Equal(t, []string{
		"submit: command buffer is not finished",
		"submit: fence is still signaled",
	}, f.backend.Violations())
}

func TestInstanceFailures(t *testing.T) {
	opts := DefaultOptions()
	opts.FailSurface = true
	b := New(opts)
	inst, err := b.CreateInstance(&hal.InstanceDescriptor{})
	require.NoError(t, err)
	_, err = inst.CreateSurface(&Window{Width: 1, Height: 1})
	assert.ErrorIs(t, err, hal.ErrUnsupportedWindow)

	b.Fail("create_instance", errors.New("no driver"), 1)
	_, err = b.CreateInstance(&hal.InstanceDescriptor{})
	assert.EqualError(t, err, "no driver")

	inst.Destroy()
	assert.Empty(t, b.Live())
}

func TestOpenRequiresGraphics(t *testing.T) {
	opts := DefaultOptions()
	opts.QueueFamilies = []QueueFamilySpec{{Present: true}}
	b := New(opts)
	inst, err := b.CreateInstance(&hal.InstanceDescriptor{})
	require.NoError(t, err)
	adapters, err := inst.EnumerateAdapters()
	require.NoError(t, err)
	_, _, err = adapters[0].Open(adapters[0].QueueFamilies()[0])
	assert.Error(t, err)
}
