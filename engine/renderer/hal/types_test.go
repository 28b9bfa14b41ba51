package hal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwapchainConfigFromCaps(t *testing.T) {
	undefined := Extent2D{Width: UndefinedExtent, Height: UndefinedExtent}

	tests := []struct {
		name      string
		caps      SurfaceCapabilities
		requested Extent2D
		want      Extent2D
		images    uint32
	}{
		{
			name:      "requested extent used when surface has none",
			caps:      SurfaceCapabilities{CurrentExtent: undefined, MinExtent: Extent2D{1, 1}, MaxExtent: Extent2D{4096, 4096}, MinImageCount: 2, MaxImageCount: 8},
			requested: Extent2D{800, 600},
			want:      Extent2D{800, 600},
			images:    2,
		},
		{
			name:      "surface extent wins",
			caps:      SurfaceCapabilities{CurrentExtent: Extent2D{1024, 768}, MinExtent: Extent2D{1, 1}, MaxExtent: Extent2D{4096, 4096}, MinImageCount: 1},
			requested: Extent2D{800, 600},
			want:      Extent2D{1024, 768},
			images:    2,
		},
		{
			name:      "clamped to maximum",
			caps:      SurfaceCapabilities{CurrentExtent: undefined, MinExtent: Extent2D{1, 1}, MaxExtent: Extent2D{640, 480}, MinImageCount: 3, MaxImageCount: 3},
			requested: Extent2D{800, 600},
			want:      Extent2D{640, 480},
			images:    3,
		},
		{
			name:      "zero request never yields an empty extent",
			caps:      SurfaceCapabilities{CurrentExtent: undefined, MaxImageCount: 1},
			requested: Extent2D{0, 0},
			want:      Extent2D{1, 1},
			images:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := SwapchainConfigFromCaps(tt.caps, FormatBGRA8UnormSRGB, tt.requested)
			assert.Equal(t, tt.want, cfg.Extent)
			assert.Equal(t, tt.images, cfg.ImageCount)
			assert.Equal(t, PresentModeFifo, cfg.PresentMode)
			assert.Equal(t, FormatBGRA8UnormSRGB, cfg.Format)
		})
	}
}

func TestSupportsImageCount(t *testing.T) {
	caps := SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 0}
	assert.True(t, caps.SupportsImageCount(3))
	assert.False(t, caps.SupportsImageCount(1))

	caps.MaxImageCount = 2
	assert.False(t, caps.SupportsImageCount(3))
}

func TestFormatIsSRGB(t *testing.T) {
	assert.True(t, FormatBGRA8UnormSRGB.IsSRGB())
	assert.True(t, DefaultFormat.IsSRGB())
	assert.False(t, FormatRGBA16Float.IsSRGB())
	assert.Equal(t, "Rgba8Srgb", DefaultFormat.String())
}

func TestRange(t *testing.T) {
	assert.Equal(t, uint32(3), Range{0, 3}.Count())
	assert.Equal(t, uint32(0), Range{3, 1}.Count())
}

type nopBackend struct{ name string }

func (b nopBackend) Name() string { return b.name }
func (b nopBackend) CreateInstance(*InstanceDescriptor) (Instance, error) {
	return nil, ErrUnsupportedWindow
}

func TestRegistry(t *testing.T) {
	Register("nop", func() Backend { return nopBackend{name: "nop"} })
	t.Cleanup(func() { Unregister("nop") })

	require.True(t, IsRegistered("nop"))
	assert.Contains(t, Available(), "nop")

	b, err := Get("nop")
	require.NoError(t, err)
	assert.Equal(t, "nop", b.Name())

	_, err = Get("missing")
	assert.Error(t, err)
}

func TestIsSurfaceStale(t *testing.T) {
	assert.True(t, IsSurfaceStale(ErrOutOfDate))
	assert.True(t, IsSurfaceStale(ErrSuboptimal))
	assert.False(t, IsSurfaceStale(ErrDeviceLost))
	assert.False(t, IsSurfaceStale(nil))
}
