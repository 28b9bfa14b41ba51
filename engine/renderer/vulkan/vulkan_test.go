package vulkan

import (
	"errors"
	"sync"
	"testing"
	"time"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/trigon/engine/renderer/hal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type plainWindow struct{}

func (plainWindow) GetFramebufferSize() (int, int) { return 640, 480 }

func TestRegistered(t *testing.T) {
	assert.True(t, hal.IsRegistered(Name))

	b, err := hal.Get(Name)
	require.NoError(t, err)
	assert.Equal(t, Name, b.Name())
}

func TestCreateInstanceNeedsSurfaceWindow(t *testing.T) {
	b := &Backend{}
	_, err := b.CreateInstance(&hal.InstanceDescriptor{AppName: "test", Window: plainWindow{}})
	assert.ErrorIs(t, err, hal.ErrUnsupportedWindow)

	_, err = b.CreateInstance(&hal.InstanceDescriptor{AppName: "test"})
	assert.ErrorIs(t, err, hal.ErrUnsupportedWindow)
}

func TestResultError(t *testing.T) {
	tests := []struct {
		result vk.Result
		want   error
	}{
		{vk.ErrorOutOfDate, hal.ErrOutOfDate},
		{vk.Suboptimal, hal.ErrSuboptimal},
		{vk.ErrorSurfaceLost, hal.ErrSurfaceLost},
		{vk.Timeout, hal.ErrTimeout},
		{vk.NotReady, hal.ErrTimeout},
		{vk.ErrorDeviceLost, hal.ErrDeviceLost},
		{vk.ErrorOutOfDeviceMemory, hal.ErrOutOfMemory},
	}
	for _, tt := range tests {
		t.Run(VulkanResultString(tt.result), func(t *testing.T) {
			err := resultError("op", tt.result)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), VulkanResultString(tt.result))
		})
	}

	assert.NoError(t, resultError("op", vk.Success))

	err := resultError("vkCreateRenderPass", vk.ErrorFeatureNotPresent)
	require.Error(t, err)
	assert.False(t, hal.IsSurfaceStale(err))
	assert.False(t, errors.Is(err, hal.ErrDeviceLost))
	assert.EqualError(t, err, "vkCreateRenderPass failed with VK_ERROR_FEATURE_NOT_PRESENT")
}

func TestResultHelpers(t *testing.T) {
	assert.True(t, VulkanResultIsSuccess(vk.Success))
	assert.True(t, VulkanResultIsSuccess(vk.Suboptimal))
	assert.False(t, VulkanResultIsSuccess(vk.ErrorDeviceLost))
	assert.Equal(t, "VkResult(-12345)", VulkanResultString(vk.Result(-12345)))
}

func TestFormatMapping(t *testing.T) {
	for _, f := range []hal.Format{
		hal.FormatRGBA8Unorm,
		hal.FormatRGBA8UnormSRGB,
		hal.FormatBGRA8Unorm,
		hal.FormatBGRA8UnormSRGB,
		hal.FormatRGB10A2Unorm,
		hal.FormatRGBA16Float,
	} {
		assert.Equal(t, f, fromVkFormat(toVkFormat(f)), f.String())
	}
	assert.Equal(t, vk.FormatUndefined, toVkFormat(hal.FormatUndefined))
	assert.Equal(t, hal.FormatUndefined, fromVkFormat(vk.FormatD32Sfloat))
}

func TestSurfaceFormats(t *testing.T) {
	reported := []vk.SurfaceFormat{
		{Format: vk.FormatD32Sfloat, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	}
	assert.Equal(t, []hal.Format{hal.FormatBGRA8UnormSRGB, hal.FormatRGBA8Unorm}, namedFormats(reported))
	assert.Empty(t, namedFormats(reported[:1]))

	f, err := matchSurfaceFormat(reported, hal.FormatRGBA8Unorm)
	require.NoError(t, err)
	assert.Equal(t, vk.FormatR8g8b8a8Unorm, f.Format)

	_, err = matchSurfaceFormat(reported, hal.FormatRGBA16Float)
	assert.EqualError(t, err, "surface does not support swapchain format Rgba16Sfloat")

	_, err = matchSurfaceFormat(reported, hal.FormatUndefined)
	assert.Error(t, err)
}

type foreignResource struct{}

func (foreignResource) Label() string { return "foreign" }

func TestCommandBufferRejectsForeignResources(t *testing.T) {
	// none of these reach the driver, so no device is needed
	c := &commandBuffer{state: commandBufferRecording}
	c.BeginRenderPass(foreignResource{}, foreignResource{}, hal.Rect{Width: 4, Height: 4}, hal.ClearOpaqueBlack)
	c.BindGraphicsPipeline(foreignResource{})
	c.Draw(hal.Range{Start: 0, End: 3}, hal.Range{Start: 0, End: 1})
	c.EndRenderPass()

	err := c.Finish()
	assert.ErrorIs(t, err, hal.ErrForeignResource)
	assert.Contains(t, err.Error(), "BeginRenderPass")
	assert.Equal(t, commandBufferRecording, c.state)

	c = &commandBuffer{state: commandBufferRecording}
	c.BindGraphicsPipeline(foreignResource{})
	assert.ErrorIs(t, c.Finish(), hal.ErrForeignResource)
}

func TestShaderModuleCreateInfo(t *testing.T) {
	words := []uint32{0x07230203, 0x00010000, 0, 1, 0}
	info := shaderModuleCreateInfo(words)
	assert.Equal(t, vk.StructureTypeShaderModuleCreateInfo, info.SType)
	assert.Equal(t, uint64(20), info.CodeSize)
	assert.Equal(t, words, info.PCode)
}

func TestVulkanSafeString(t *testing.T) {
	assert.Equal(t, "\x00", VulkanSafeString(""))
	assert.Equal(t, "main\x00", VulkanSafeString("main"))
	assert.Equal(t, "main\x00", VulkanSafeString("main\x00"))

	in := []string{"VK_KHR_surface"}
	out := VulkanSafeStrings(in)
	assert.Equal(t, []string{"VK_KHR_surface\x00"}, out)
	assert.Equal(t, "VK_KHR_surface", in[0])
}

func TestBlendAttachment(t *testing.T) {
	state := toVkBlendAttachment(hal.ColorBlendDescriptor{Mask: hal.ColorMaskAll, Blend: hal.BlendStateAlpha})
	assert.Equal(t, vk.Bool32(vk.True), state.BlendEnable)
	assert.Equal(t, vk.BlendFactorSrcAlpha, state.SrcColorBlendFactor)
	assert.Equal(t, vk.BlendFactorOneMinusSrcAlpha, state.DstColorBlendFactor)
	assert.Equal(t, vk.ColorComponentFlags(vk.ColorComponentRBit|vk.ColorComponentGBit|vk.ColorComponentBBit|vk.ColorComponentABit), state.ColorWriteMask)

	state = toVkBlendAttachment(hal.ColorBlendDescriptor{Mask: hal.ColorMaskRed, Blend: hal.BlendStateReplace})
	assert.Equal(t, vk.Bool32(vk.False), state.BlendEnable)
	assert.Equal(t, vk.ColorComponentFlags(vk.ColorComponentRBit), state.ColorWriteMask)
}

func TestLockPoolSerializesQueue(t *testing.T) {
	pool := NewVulkanLockPool()

	var (
		wg      sync.WaitGroup
		inside  int
		maxSeen int
		mu      sync.Mutex
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pool.SafeQueueCall(0, func() error {
				mu.Lock()
				inside++
				maxSeen = max(maxSeen, inside)
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)

	want := errors.New("boom")
	assert.ErrorIs(t, pool.SafeCall(PipelineManagement, func() error { return want }), want)
}
