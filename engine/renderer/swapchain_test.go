package renderer

import (
	"errors"
	"testing"

	"github.com/spaghettifunk/trigon/engine/renderer/hal"
	"github.com/spaghettifunk/trigon/engine/renderer/hal/headless"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T, opts headless.Options) (*DeviceContext, *headless.Backend) {
	t.Helper()
	b := headless.New(opts)
	ctx, err := NewDeviceContext(b, testDescriptor())
	require.NoError(t, err)
	t.Cleanup(func() {
		res := &resourceBundle{}
		res.adopt(ctx)
		_ = res.release()
	})
	return ctx, b
}

func TestSelectColorFormat(t *testing.T) {
	tests := []struct {
		name    string
		formats []hal.Format
		err     error
		want    hal.Format
	}{
		{"first sRGB wins", []hal.Format{hal.FormatBGRA8Unorm, hal.FormatBGRA8UnormSRGB, hal.FormatRGBA8UnormSRGB}, nil, hal.FormatBGRA8UnormSRGB},
		{"first reported without sRGB", []hal.Format{hal.FormatRGB10A2Unorm, hal.FormatRGBA16Float}, nil, hal.FormatRGB10A2Unorm},
		{"nothing reported", nil, nil, hal.DefaultFormat},
		{"query fails", []hal.Format{hal.FormatBGRA8UnormSRGB}, errors.New("surface gone"), hal.DefaultFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := headless.DefaultOptions()
			opts.Formats = tt.formats
			opts.FormatsError = tt.err
			ctx, _ := newTestContext(t, opts)

			assert.Equal(t, tt.want, SelectColorFormat(ctx.Surface, ctx.Adapter))
		})
	}
}

func TestSwapchainImageCount(t *testing.T) {
	tests := []struct {
		name     string
		min, max uint32
		want     uint32
	}{
		{"three when allowed", 2, 8, 3},
		{"unbounded maximum", 1, 0, 3},
		{"capped below three", 1, 2, 2},
		{"minimum above three", 4, 8, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := headless.DefaultOptions()
			opts.Capabilities.MinImageCount = tt.min
			opts.Capabilities.MaxImageCount = tt.max
			ctx, b := newTestContext(t, opts)

			m := NewSwapchainManager(ctx.Surface, ctx.Adapter, ctx.Device, hal.FormatBGRA8UnormSRGB)
			_, _, err := m.Reconfigure(hal.Extent2D{Width: 320, Height: 240})
			require.NoError(t, err)

			configures := b.Configures()
			require.Len(t, configures, 1)
			assert.Equal(t, tt.want, configures[0].ImageCount)
			m.unconfigure()
		})
	}
}

func TestSwapchainManagerDirtyTracking(t *testing.T) {
	ctx, b := newTestContext(t, headless.DefaultOptions())
	m := NewSwapchainManager(ctx.Surface, ctx.Adapter, ctx.Device, hal.FormatRGBA8UnormSRGB)
	assert.True(t, m.IsDirty())
	_, ok := m.Config()
	assert.False(t, ok)

	extent, attachment, err := m.Reconfigure(hal.Extent2D{Width: 320, Height: 240})
	require.NoError(t, err)
	assert.False(t, m.IsDirty())
	assert.Equal(t, hal.Extent2D{Width: 320, Height: 240}, extent)
	assert.Equal(t, hal.FramebufferAttachment{Format: hal.FormatRGBA8UnormSRGB, Extent: extent}, attachment)

	// clean: the requested size is ignored until something invalidates it
	b.ResetCalls()
	extent, _, err = m.Reconfigure(hal.Extent2D{Width: 999, Height: 999})
	require.NoError(t, err)
	assert.Equal(t, hal.Extent2D{Width: 320, Height: 240}, extent)
	assert.Empty(t, b.Calls())

	m.MarkDirty()
	b.Fail("configure_swapchain", hal.ErrOutOfDate, 1)
	_, _, err = m.Reconfigure(hal.Extent2D{Width: 640, Height: 480})
	assert.ErrorIs(t, err, hal.ErrOutOfDate)
	assert.True(t, isSoftConfigureError(err))
	assert.True(t, m.IsDirty(), "dirty survives a failed configure")

	extent, _, err = m.Reconfigure(hal.Extent2D{Width: 640, Height: 480})
	require.NoError(t, err)
	assert.Equal(t, hal.Extent2D{Width: 640, Height: 480}, extent)
	assert.False(t, m.IsDirty())

	m.unconfigure()
	assert.Equal(t, 1, b.Count("unconfigure_swapchain"))
	m.unconfigure()
	assert.Equal(t, 1, b.Count("unconfigure_swapchain"))
}

func TestIsSoftConfigureError(t *testing.T) {
	assert.True(t, isSoftConfigureError(hal.ErrOutOfDate))
	assert.True(t, isSoftConfigureError(hal.ErrSurfaceLost))
	assert.False(t, isSoftConfigureError(hal.ErrSuboptimal))
	assert.False(t, isSoftConfigureError(errors.New("boom")))
}
