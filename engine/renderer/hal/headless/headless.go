// Package headless is a GPU-less hal variant. It keeps every object in memory,
// records the order of the calls made against it and lets callers inject the
// failures a real driver produces (stale surfaces, slow or hung fences).
package headless

import (
	"fmt"
	"sync"
	"time"

	"github.com/spaghettifunk/trigon/engine/renderer/hal"
)

const Name = "headless"

func init() {
	hal.Register(Name, func() hal.Backend {
		return New(DefaultOptions())
	})
}

type QueueFamilySpec struct {
	Graphics bool
	Present  bool
}

type Options struct {
	Formats       []hal.Format
	FormatsError  error
	Capabilities  hal.SurfaceCapabilities
	QueueFamilies []QueueFamilySpec
	NoAdapters    bool
	FailSurface   bool
	// FencePolls is the number of polls a submitted fence stays unsignaled.
	FencePolls   int
	PollInterval time.Duration
}

func DefaultCapabilities() hal.SurfaceCapabilities {
	return hal.SurfaceCapabilities{
		CurrentExtent: hal.Extent2D{Width: hal.UndefinedExtent, Height: hal.UndefinedExtent},
		MinExtent:     hal.Extent2D{Width: 1, Height: 1},
		MaxExtent:     hal.Extent2D{Width: 16384, Height: 16384},
		MinImageCount: 2,
		MaxImageCount: 8,
	}
}

func DefaultOptions() Options {
	return Options{
		Formats:       []hal.Format{hal.FormatBGRA8Unorm, hal.FormatBGRA8UnormSRGB},
		Capabilities:  DefaultCapabilities(),
		QueueFamilies: []QueueFamilySpec{{Graphics: true, Present: true}},
		PollInterval:  100 * time.Microsecond,
	}
}

// Backend is the entry point of the headless variant. The same value is used
// by tests to inject faults and inspect what happened.
type Backend struct {
	opts Options

	mu         sync.Mutex
	calls      []string
	violations []string
	live       map[string]string
	nextID     int

	fencePolls int
	hangFences bool
	failures   map[string][]error

	configures   []hal.SwapchainConfig
	presents     int
	draws        []DrawCall
	renderPasses []hal.RenderPassDescriptor
	pipelines    []hal.GraphicsPipelineDescriptor
}

// DrawCall captures the state a recorded command buffer was submitted with.
type DrawCall struct {
	Vertices  hal.Range
	Instances hal.Range
	Viewport  hal.Viewport
	Scissor   hal.Rect
	Clear     hal.ClearColor
	Extent    hal.Extent2D
}

func New(opts Options) *Backend {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 100 * time.Microsecond
	}
	return &Backend{
		opts:     opts,
		live:     make(map[string]string),
		failures: make(map[string][]error),
	}
}

func (b *Backend) Name() string { return Name }

func (b *Backend) CreateInstance(desc *hal.InstanceDescriptor) (hal.Instance, error) {
	if err := b.record("create_instance"); err != nil {
		return nil, err
	}
	inst := &instance{object: b.newObject("instance"), appName: desc.AppName}
	return inst, nil
}

// Calls returns the ordered list of operations issued so far.
func (b *Backend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.calls))
	copy(out, b.calls)
	return out
}

// Count returns how many times call was issued.
func (b *Backend) Count(call string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (b *Backend) ResetCalls() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = nil
}

// FencePolls returns the number of polls that found a fence unsignaled.
func (b *Backend) FencePolls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fencePolls
}

func (b *Backend) SetFencePolls(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opts.FencePolls = n
}

// HangFences makes submitted fences never signal.
func (b *Backend) HangFences(hang bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hangFences = hang
}

// Fail makes the next n invocations of call return err. Supported calls are
// the names reported by Calls, e.g. "acquire_image", "present",
// "configure_swapchain" or "create_graphics_pipeline".
func (b *Backend) Fail(call string, err error, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := 0; i < n; i++ {
		b.failures[call] = append(b.failures[call], err)
	}
}

func (b *Backend) SetCapabilities(caps hal.SurfaceCapabilities) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opts.Capabilities = caps
}

// Configures returns every swapchain configuration that was applied.
func (b *Backend) Configures() []hal.SwapchainConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]hal.SwapchainConfig, len(b.configures))
	copy(out, b.configures)
	return out
}

func (b *Backend) Presents() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.presents
}

func (b *Backend) Draws() []DrawCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]DrawCall, len(b.draws))
	copy(out, b.draws)
	return out
}

func (b *Backend) RenderPasses() []hal.RenderPassDescriptor {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]hal.RenderPassDescriptor, len(b.renderPasses))
	copy(out, b.renderPasses)
	return out
}

func (b *Backend) Pipelines() []hal.GraphicsPipelineDescriptor {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]hal.GraphicsPipelineDescriptor, len(b.pipelines))
	copy(out, b.pipelines)
	return out
}

// Live returns the labels of objects created and not yet destroyed.
func (b *Backend) Live() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.live))
	for label := range b.live {
		out = append(out, label)
	}
	return out
}

// Violations lists misuse detected so far: double destruction, use after
// destroy, foreign handles.
func (b *Backend) Violations() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.violations))
	copy(out, b.violations)
	return out
}

// record appends call to the log and pops an injected failure for it, if any.
func (b *Backend) record(call string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.recordLocked(call)
}

func (b *Backend) recordLocked(call string) error {
	b.calls = append(b.calls, call)
	queue := b.failures[call]
	if len(queue) == 0 {
		return nil
	}
	err := queue[0]
	b.failures[call] = queue[1:]
	return err
}

func (b *Backend) newObject(kind string) object {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	label := fmt.Sprintf("%s-%d", kind, b.nextID)
	b.live[label] = kind
	return object{label: label, owner: b}
}

func (b *Backend) release(call string, r hal.Resource) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call)
	if r == nil {
		b.violations = append(b.violations, call+": nil resource")
		return
	}
	if _, ok := b.live[r.Label()]; !ok {
		b.violations = append(b.violations, call+": "+r.Label()+" is not alive")
		return
	}
	delete(b.live, r.Label())
}

func (b *Backend) checkAlive(call string, r hal.Resource) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r == nil {
		b.violations = append(b.violations, call+": nil resource")
		return
	}
	if _, ok := b.live[r.Label()]; !ok {
		b.violations = append(b.violations, call+": "+r.Label()+" used after destroy")
	}
}

type object struct {
	label string
	owner *Backend
}

func (o object) Label() string { return o.label }

type instance struct {
	object
	appName string
}

func (i *instance) CreateSurface(window hal.Window) (hal.Surface, error) {
	b := i.owner
	if err := b.record("create_surface"); err != nil {
		return nil, err
	}
	if b.opts.FailSurface || window == nil {
		return nil, hal.ErrUnsupportedWindow
	}
	return &surface{object: b.newObject("surface")}, nil
}

func (i *instance) DestroySurface(s hal.Surface) {
	i.owner.release("destroy_surface", s)
}

func (i *instance) EnumerateAdapters() ([]hal.Adapter, error) {
	b := i.owner
	if err := b.record("enumerate_adapters"); err != nil {
		return nil, err
	}
	if b.opts.NoAdapters {
		return nil, nil
	}
	families := make([]hal.QueueFamily, len(b.opts.QueueFamilies))
	for idx, spec := range b.opts.QueueFamilies {
		families[idx] = &queueFamily{id: uint32(idx), spec: spec}
	}
	return []hal.Adapter{&adapter{owner: b, families: families}}, nil
}

func (i *instance) Destroy() {
	i.owner.release("destroy_instance", i)
}

type queueFamily struct {
	id   uint32
	spec QueueFamilySpec
}

func (q *queueFamily) ID() uint32             { return q.id }
func (q *queueFamily) SupportsGraphics() bool { return q.spec.Graphics }

type adapter struct {
	owner    *Backend
	families []hal.QueueFamily
}

func (a *adapter) Info() hal.AdapterInfo {
	return hal.AdapterInfo{
		Name:          "Headless Adapter",
		DeviceType:    hal.DeviceTypeCPU,
		DriverVersion: "0.0.0",
		APIVersion:    "1.0.0",
	}
}

func (a *adapter) QueueFamilies() []hal.QueueFamily { return a.families }

func (a *adapter) Open(family hal.QueueFamily) (hal.Device, hal.Queue, error) {
	b := a.owner
	if err := b.record("open_device"); err != nil {
		return nil, nil, err
	}
	if !family.SupportsGraphics() {
		return nil, nil, fmt.Errorf("queue family %d has no graphics support", family.ID())
	}
	dev := &device{object: b.newObject("device")}
	return dev, &queue{owner: b}, nil
}

// Window is a fixed-size stand-in for a native window.
type Window struct {
	Width  int
	Height int
}

func (w *Window) GetFramebufferSize() (int, int) {
	return w.Width, w.Height
}
