package renderer

import (
	"errors"
	"testing"

	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer/hal"
	"github.com/spaghettifunk/trigon/engine/renderer/hal/headless"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDescriptor() *hal.InstanceDescriptor {
	return &hal.InstanceDescriptor{AppName: "context-test", Window: &headless.Window{Width: 64, Height: 64}}
}

func TestNewDeviceContextPicksPresentableFamily(t *testing.T) {
	opts := headless.DefaultOptions()
	opts.QueueFamilies = []headless.QueueFamilySpec{
		{Graphics: true, Present: false},
		{Graphics: false, Present: true},
		{Graphics: true, Present: true},
	}
	b := headless.New(opts)

	ctx, err := NewDeviceContext(b, testDescriptor())
	require.NoError(t, err)
	assert.Equal(t, uint32(2), ctx.QueueFamily.ID())
	assert.NotNil(t, ctx.Queue)
	assert.Equal(t, hal.DeviceTypeCPU, ctx.Adapter.Info().DeviceType)

	res := &resourceBundle{}
	res.adopt(ctx)
	require.NoError(t, res.release())
	assert.Empty(t, b.Live())
	assert.Empty(t, b.Violations())
}

func TestNewDeviceContextErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*headless.Options)
		fail   string
		want   error
	}{
		{
			name: "instance creation fails",
			fail: "create_instance",
			want: core.ErrNoBackend,
		},
		{
			name:   "window cannot back a surface",
			mutate: func(o *headless.Options) { o.FailSurface = true },
			want:   core.ErrNoSurface,
		},
		{
			name:   "no adapters",
			mutate: func(o *headless.Options) { o.NoAdapters = true },
			want:   core.ErrNoAdapter,
		},
		{
			name: "adapter enumeration fails",
			fail: "enumerate_adapters",
			want: core.ErrNoAdapter,
		},
		{
			name: "no family does both",
			mutate: func(o *headless.Options) {
				o.QueueFamilies = []headless.QueueFamilySpec{{Graphics: true}, {Present: true}}
			},
			want: core.ErrNoQueueFamily,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := headless.DefaultOptions()
			if tt.mutate != nil {
				tt.mutate(&opts)
			}
			b := headless.New(opts)
			if tt.fail != "" {
				b.Fail(tt.fail, errors.New("injected"), 1)
			}

			ctx, err := NewDeviceContext(b, testDescriptor())
			assert.Nil(t, ctx)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, b.Live(), "partial construction must be released")
			assert.Empty(t, b.Violations())
		})
	}
}

func TestNewDeviceContextWithoutBackend(t *testing.T) {
	_, err := NewDeviceContext(nil, testDescriptor())
	assert.ErrorIs(t, err, core.ErrNoBackend)
}

func TestNewDeviceContextFromRegistry(t *testing.T) {
	b, err := hal.Get(headless.Name)
	require.NoError(t, err)

	ctx, err := NewDeviceContext(b, testDescriptor())
	require.NoError(t, err)

	res := &resourceBundle{}
	res.adopt(ctx)
	require.NoError(t, res.release())
}
