package platform

import (
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer/hal"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

// Window is a GLFW window without a client API, ready to back a Vulkan
// surface.
type Window struct {
	*glfw.Window
}

type Platform struct {
	window *Window
}

func New() *Platform {
	return &Platform{}
}

// Startup opens the window and routes its callbacks into the event system.
func (p *Platform) Startup(applicationName string, x, y, width, height uint32) error {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return err
	}
	if !glfw.VulkanSupported() {
		core.LogWarn("GLFW did not find a Vulkan loader.")
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		core.LogError("failed to create window: %s", err)
		glfw.Terminate()
		return err
	}
	p.window = &Window{Window: window}

	window.SetKeyCallback(keyCallback)
	window.SetFramebufferSizeCallback(framebufferSizeCallback)
	window.SetContentScaleCallback(contentScaleCallback)
	window.SetCloseCallback(closeCallback)
	window.SetPos(int(x), int(y))
	window.Show()
	return nil
}

func (p *Platform) Shutdown() error {
	if p.window != nil {
		p.window.Destroy()
		p.window = nil
	}
	glfw.Terminate()
	return nil
}

// PumpMessages processes pending window events. It returns false once the
// window has been asked to close.
func (p *Platform) PumpMessages() bool {
	glfw.PollEvents()
	return p.window != nil && !p.window.ShouldClose()
}

// FramebufferSize returns the drawable size in pixels, which differs from the
// window size on HiDPI displays.
func (p *Platform) FramebufferSize() (uint32, uint32) {
	if p.window == nil {
		return 0, 0
	}
	w, h := p.window.GetFramebufferSize()
	return uint32(max(w, 0)), uint32(max(h, 0))
}

// Window returns nil until Startup succeeded.
func (p *Platform) Window() hal.Window {
	if p.window == nil {
		return nil
	}
	return p.window
}

func (w *Window) VulkanProcAddress() unsafe.Pointer {
	return glfw.GetVulkanGetInstanceProcAddress()
}

func keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	switch action {
	case glfw.Press:
		core.InputProcessKey(translateKey(key), true)
	case glfw.Release:
		core.InputProcessKey(translateKey(key), false)
	}
}

// translateKey maps GLFW key tokens onto the engine key codes. Letters and
// space share their ASCII value in both.
func translateKey(key glfw.Key) core.KeyCode {
	switch {
	case key >= glfw.KeyA && key <= glfw.KeyZ:
		return core.KEY_A + core.KeyCode(key-glfw.KeyA)
	case key >= glfw.KeyF1 && key <= glfw.KeyF12:
		return core.KEY_F1 + core.KeyCode(key-glfw.KeyF1)
	}
	switch key {
	case glfw.KeySpace:
		return core.KEY_SPACE
	case glfw.KeyEscape:
		return core.KEY_ESCAPE
	case glfw.KeyEnter:
		return core.KEY_ENTER
	case glfw.KeyTab:
		return core.KEY_TAB
	case glfw.KeyBackspace:
		return core.KEY_BACKSPACE
	case glfw.KeyPause:
		return core.KEY_PAUSE
	case glfw.KeyLeft:
		return core.KEY_LEFT
	case glfw.KeyRight:
		return core.KEY_RIGHT
	case glfw.KeyUp:
		return core.KEY_UP
	case glfw.KeyDown:
		return core.KEY_DOWN
	default:
		return core.KEY_UNKNOWN
	}
}

func framebufferSizeCallback(w *glfw.Window, width, height int) {
	ctx := core.EventContext{}
	ctx.Data.U32[0] = uint32(max(width, 0))
	ctx.Data.U32[1] = uint32(max(height, 0))
	core.EventFire(core.EVENT_CODE_RESIZED, w, ctx)
}

func contentScaleCallback(w *glfw.Window, x, y float32) {
	ctx := core.EventContext{}
	ctx.Data.F32[0] = x
	ctx.Data.F32[1] = y
	core.EventFire(core.EVENT_CODE_SCALE_CHANGED, w, ctx)
}

func closeCallback(w *glfw.Window) {
	core.EventFire(core.EVENT_CODE_APPLICATION_QUIT, w, core.EventContext{})
}
