package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/spaghettifunk/trigon/engine/config"
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer/hal"
	"github.com/spaghettifunk/trigon/engine/renderer/hal/headless"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePlatform runs a fixed number of loop iterations. onPump is called at
// the start of every iteration with its index.
type fakePlatform struct {
	window    *headless.Window
	frames    int
	pumps     int
	onPump    func(i int)
	started   bool
	shutdowns int
}

func (p *fakePlatform) Startup(applicationName string, x, y, width, height uint32) error {
	p.started = true
	p.window = &headless.Window{Width: int(width), Height: int(height)}
	return nil
}

func (p *fakePlatform) Shutdown() error {
	p.shutdowns++
	return nil
}

func (p *fakePlatform) PumpMessages() bool {
	i := p.pumps
	p.pumps++
	if p.onPump != nil {
		p.onPump(i)
	}
	return i < p.frames
}

func (p *fakePlatform) FramebufferSize() (uint32, uint32) {
	if p.window == nil {
		return 0, 0
	}
	return uint32(p.window.Width), uint32(p.window.Height)
}

func (p *fakePlatform) Window() hal.Window {
	return p.window
}

func fireResize(width, height uint32) {
	ctx := core.EventContext{}
	ctx.Data.U32[0] = width
	ctx.Data.U32[1] = height
	core.EventFire(core.EVENT_CODE_RESIZED, nil, ctx)
}

func newTestEngine(t *testing.T, p *fakePlatform, mods ...func(*config.Config)) (*Engine, *headless.Backend) {
	t.Helper()
	cfg := config.Default()
	cfg.Renderer.Backend = headless.Name
	for _, mod := range mods {
		mod(cfg)
	}

	b := headless.New(headless.DefaultOptions())
	e, err := New(cfg, WithPlatform(p), WithBackend(b))
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	t.Cleanup(func() {
		require.NoError(t, e.Shutdown())
		assert.Empty(t, b.Live(), "objects leaked")
	})
	return e, b
}

func TestRunPresentsEveryFrame(t *testing.T) {
	p := &fakePlatform{frames: 5}
	e, b := newTestEngine(t, p)
	assert.Equal(t, EngineStageInitialized, e.Stage())

	require.NoError(t, e.Run())
	assert.Equal(t, 5, b.Presents())
	assert.Len(t, b.Configures(), 1)

	w, h := e.GetFramebufferSize()
	assert.Equal(t, uint32(512), w)
	assert.Equal(t, uint32(512), h)
}

func TestResizeReconfiguresSwapchain(t *testing.T) {
	p := &fakePlatform{frames: 4}
	p.onPump = func(i int) {
		if i == 2 {
			p.window.Width, p.window.Height = 800, 600
			fireResize(800, 600)
		}
	}
	e, b := newTestEngine(t, p)

	require.NoError(t, e.Run())
	configures := b.Configures()
	require.Len(t, configures, 2)
	assert.Equal(t, hal.Extent2D{Width: 800, Height: 600}, configures[1].Extent)
}

func TestMinimizeSuspendsRendering(t *testing.T) {
	p := &fakePlatform{frames: 6}
	p.onPump = func(i int) {
		switch i {
		case 1:
			fireResize(0, 0)
		case 3:
			fireResize(512, 512)
		}
	}
	e, b := newTestEngine(t, p)

	require.NoError(t, e.Run())
	// frames 1 and 2 are skipped while minimized
	assert.Equal(t, 4, b.Presents())
	assert.False(t, e.isSuspended)
}

func TestEscapeQuits(t *testing.T) {
	p := &fakePlatform{frames: 100}
	p.onPump = func(i int) {
		if i == 2 {
			core.InputProcessKey(core.KEY_ESCAPE, true)
		}
	}
	e, b := newTestEngine(t, p)

	require.NoError(t, e.Run())
	// the quit lands after the third pump, which still renders
	assert.Equal(t, 3, b.Presents())
	assert.Equal(t, 3, p.pumps)
}

func TestRenderFailureStopsRun(t *testing.T) {
	p := &fakePlatform{frames: 10}
	e, b := newTestEngine(t, p, func(cfg *config.Config) {
		cfg.Renderer.FrameTimeout = config.Duration{Duration: 5 * time.Millisecond}
	})
	b.HangFences(true)

	// the first frame passes the fence created signaled, the second one
	// waits on a submission that never completes
	err := e.Run()
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrFenceTimeout))
	assert.False(t, e.isRunning.Load())
	assert.Equal(t, 1, b.Presents())
}

func TestShutdownIsIdempotent(t *testing.T) {
	p := &fakePlatform{}
	e, err := New(config.Default(), WithPlatform(p), WithBackend(headless.New(headless.DefaultOptions())))
	require.NoError(t, err)
	require.NoError(t, e.Initialize())

	require.NoError(t, e.Shutdown())
	require.NoError(t, e.Shutdown())
	assert.Equal(t, 1, p.shutdowns)
	assert.Equal(t, EngineStageShutdown, e.Stage())
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Application.Width = 0
	_, err := New(cfg, WithPlatform(&fakePlatform{}))
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestUnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Renderer.Backend = "metal"
	p := &fakePlatform{}
	e, err := New(cfg, WithPlatform(p))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Shutdown() })

	assert.ErrorIs(t, e.Initialize(), core.ErrNoBackend)
}
