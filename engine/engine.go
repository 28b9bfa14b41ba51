package engine

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spaghettifunk/trigon/engine/assets"
	"github.com/spaghettifunk/trigon/engine/config"
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/platform"
	"github.com/spaghettifunk/trigon/engine/renderer"
	"github.com/spaghettifunk/trigon/engine/renderer/hal"
	"github.com/spaghettifunk/trigon/engine/renderer/shader"

	// hal variants register themselves
	_ "github.com/spaghettifunk/trigon/engine/renderer/hal/headless"
	_ "github.com/spaghettifunk/trigon/engine/renderer/vulkan"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Engine released everything
	EngineStageShutdown
)

// How often the frame metrics are logged.
const metricsInterval = 5.0

// Polling interval while the window is minimized.
const suspendedPoll = 10 * time.Millisecond

// Platform is the window and OS event loop the engine runs on.
type Platform interface {
	Startup(applicationName string, x, y, width, height uint32) error
	Shutdown() error
	// PumpMessages returns false once the window asked to close.
	PumpMessages() bool
	FramebufferSize() (uint32, uint32)
	Window() hal.Window
}

type Option func(*Engine)

// WithPlatform replaces the GLFW platform.
func WithPlatform(p Platform) Option {
	return func(e *Engine) {
		e.platform = p
	}
}

// WithBackend bypasses the hal registry lookup of renderer.backend.
func WithBackend(b hal.Backend) Option {
	return func(e *Engine) {
		e.backend = b
	}
}

type Engine struct {
	cfg          *config.Config
	currentStage Stage
	platform     Platform
	backend      hal.Backend
	renderer     *renderer.Renderer
	clock        *core.Clock
	metrics      *core.Metrics

	isRunning   atomic.Bool
	isSuspended bool
	width       uint32
	height      uint32
	lastTime    float64
}

func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:          cfg,
		currentStage: EngineStageUninitialized,
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
		width:        cfg.Application.Width,
		height:       cfg.Application.Height,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.platform == nil {
		e.platform = platform.New()
	}
	return e, nil
}

// Initialize opens the window, compiles the shaders and creates the renderer.
// A failure here is fatal; Shutdown still has to be called.
func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	if err := core.InputInitialize(); err != nil {
		return err
	}
	if !core.EventInitialize() {
		return fmt.Errorf("failed to initialize the event system")
	}
	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e, e.onQuit)
	core.EventRegister(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	core.EventRegister(core.EVENT_CODE_KEY_RELEASED, e, e.onKey)
	core.EventRegister(core.EVENT_CODE_RESIZED, e, e.onResized)
	core.EventRegister(core.EVENT_CODE_SCALE_CHANGED, e, e.onScaleChanged)

	app := e.cfg.Application
	if err := e.platform.Startup(app.Name, app.StartPosX, app.StartPosY, app.Width, app.Height); err != nil {
		return err
	}

	vertex, err := compileShader(hal.ShaderStageVertex, e.cfg.Shaders.Vertex)
	if err != nil {
		return err
	}
	fragment, err := compileShader(hal.ShaderStageFragment, e.cfg.Shaders.Fragment)
	if err != nil {
		return err
	}

	if e.backend == nil {
		b, err := hal.Get(e.cfg.Renderer.Backend)
		if err != nil {
			return fmt.Errorf("%w: %w", core.ErrNoBackend, err)
		}
		e.backend = b
	}

	// the framebuffer can be larger than the window on HiDPI displays
	if w, h := e.platform.FramebufferSize(); w > 0 && h > 0 {
		e.width, e.height = w, h
	}

	r, err := renderer.New(renderer.Config{
		AppName:          app.Name,
		Width:            e.width,
		Height:           e.height,
		VertexShader:     vertex,
		FragmentShader:   fragment,
		FrameTimeout:     e.cfg.Renderer.FrameTimeout.Duration,
		SoftFailureLimit: e.cfg.Renderer.SoftFailureLimit,
		Validation:       e.cfg.Renderer.Validation,
	}, e.backend, e.platform.Window())
	if err != nil {
		return err
	}
	e.renderer = r

	e.isRunning.Store(true)
	e.currentStage = EngineStageInitialized
	core.LogInfo("Engine initialized: %s %dx%d on %s.", app.Name, e.width, e.height, e.backend.Name())
	return nil
}

func compileShader(stage hal.ShaderStage, path string) ([]uint32, error) {
	src, err := assets.LoadShader(stage, path)
	if err != nil {
		return nil, err
	}
	words, err := shader.Compile(stage, src.Source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src.Path, err)
	}
	return words, nil
}

// Run drives one frame per iteration until the window closes or a quit event
// is fired. Only fatal renderer errors are returned.
func (e *Engine) Run() error {
	if e.renderer == nil {
		return fmt.Errorf("engine is not initialized")
	}
	e.currentStage = EngineStageRunning

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	var runningTime float64
	for e.isRunning.Load() {
		if !e.platform.PumpMessages() {
			e.isRunning.Store(false)
			break
		}
		if e.isSuspended {
			time.Sleep(suspendedPoll)
			continue
		}

		// Update clock and get delta time.
		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime

		if err := e.renderer.Render(); err != nil {
			core.LogError("Render failed, shutting down.")
			e.isRunning.Store(false)
			return err
		}

		e.metrics.Update(delta)
		runningTime += delta
		if runningTime >= metricsInterval {
			fps, avg := e.metrics.Frame()
			core.LogInfo("%.0f FPS, %.3f ms/frame", fps, avg)
			runningTime = 0
		}

		core.InputUpdate()
		e.lastTime = currentTime
	}
	return nil
}

// Stop asks Run to return after the current frame. Safe to call from any
// goroutine.
func (e *Engine) Stop() {
	e.isRunning.Store(false)
}

// Shutdown releases the renderer before the window it presents to. Calling it
// more than once is harmless.
func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShutdown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	e.isRunning.Store(false)
	e.clock.Stop()

	var errs []error
	if e.renderer != nil {
		errs = append(errs, e.renderer.Close())
	}
	errs = append(errs, core.EventShutdown(), core.InputShutdown(), e.platform.Shutdown())

	e.currentStage = EngineStageShutdown
	return errors.Join(errs...)
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

// GetFramebufferSize returns the width and height (in this order) the
// renderer was last told about.
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onQuit(code core.SystemEventCode, sender, listener interface{}, data core.EventContext) bool {
	core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
	e.isRunning.Store(false)
	return true
}

func (e *Engine) onKey(code core.SystemEventCode, sender, listener interface{}, data core.EventContext) bool {
	key := core.KeyCode(data.Data.U16[0])
	if code == core.EVENT_CODE_KEY_PRESSED && key == core.KEY_ESCAPE {
		// NOTE: Technically firing an event to itself, but there may be other listeners.
		core.EventFire(core.EVENT_CODE_APPLICATION_QUIT, e, core.EventContext{})
		// Block anything else from processing this.
		return true
	}
	core.LogDebug("key 0x%02x event %d", key, code)
	return false
}

func (e *Engine) onResized(code core.SystemEventCode, sender, listener interface{}, data core.EventContext) bool {
	width, height := data.Data.U32[0], data.Data.U32[1]
	if width == e.width && height == e.height {
		return false
	}
	e.resize(width, height)
	return false
}

// A DPI change is handled like a resize even when the pixel size did not
// move, so the swapchain is rebuilt for the new monitor.
func (e *Engine) onScaleChanged(code core.SystemEventCode, sender, listener interface{}, data core.EventContext) bool {
	core.LogDebug("Content scale changed: %.2f, %.2f", data.Data.F32[0], data.Data.F32[1])
	width, height := e.platform.FramebufferSize()
	e.resize(width, height)
	return false
}

func (e *Engine) resize(width, height uint32) {
	e.width = width
	e.height = height
	core.LogDebug("Window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		if !e.isSuspended {
			core.LogInfo("Window minimized, suspending application.")
		}
		e.isSuspended = true
	} else if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	if e.renderer != nil {
		e.renderer.UpdateDimensions(width, height)
	}
}
