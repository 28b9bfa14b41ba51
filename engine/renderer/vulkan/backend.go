// Package vulkan implements the hal interfaces on top of goki/vulkan. It
// registers itself under the name "vulkan".
package vulkan

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer/hal"
)

const Name = "vulkan"

const validationLayer = "VK_LAYER_KHRONOS_validation"

func init() {
	hal.Register(Name, func() hal.Backend { return &Backend{} })
}

// SurfaceWindow is what a window has to offer for the backend to present to
// it. GLFW windows provide the last three methods natively.
type SurfaceWindow interface {
	hal.Window
	// VulkanProcAddress returns vkGetInstanceProcAddr as resolved by the
	// windowing library.
	VulkanProcAddress() unsafe.Pointer
	GetRequiredInstanceExtensions() []string
	CreateWindowSurface(instance interface{}, allocCallbacks unsafe.Pointer) (uintptr, error)
}

var (
	loaderOnce sync.Once
	loaderErr  error
)

func initLoader(procAddr unsafe.Pointer) error {
	loaderOnce.Do(func() {
		if procAddr == nil {
			loaderErr = fmt.Errorf("GetInstanceProcAddress is nil")
			return
		}
		vk.SetGetInstanceProcAddr(procAddr)
		loaderErr = vk.Init()
	})
	return loaderErr
}

type Backend struct{}

func (b *Backend) Name() string { return Name }

func (b *Backend) CreateInstance(desc *hal.InstanceDescriptor) (hal.Instance, error) {
	window, ok := desc.Window.(SurfaceWindow)
	if !ok {
		return nil, fmt.Errorf("%w: %T", hal.ErrUnsupportedWindow, desc.Window)
	}
	if err := initLoader(window.VulkanProcAddress()); err != nil {
		err = fmt.Errorf("failed to initialize vk: %w", err)
		core.LogError("%s", err)
		return nil, err
	}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: desc.AppVersion,
		PApplicationName:   VulkanSafeString(desc.AppName),
		PEngineName:        VulkanSafeString("Trigon"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	extensions := window.GetRequiredInstanceExtensions()
	if runtime.GOOS == "darwin" {
		extensions = append(extensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	var layers []string
	if desc.Validation {
		if hasInstanceLayer(validationLayer) {
			layers = append(layers, validationLayer)
			extensions = append(extensions, vk.ExtDebugReportExtensionName)
		} else {
			core.LogWarn("Validation requested but %s is not installed, continuing without it.", validationLayer)
		}
	}
	core.LogDebug("Required instance extensions: %v", extensions)

	createInfo.EnabledExtensionCount = uint32(len(extensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(extensions)
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	inst := &instance{window: window}
	if res := vk.CreateInstance(&createInfo, nil, &inst.handle); res != vk.Success {
		err := fmt.Errorf("failed in creating the Vulkan Instance with error `%s`", VulkanResultString(res))
		core.LogError("%s", err)
		return nil, err
	}
	if err := vk.InitInstance(inst.handle); err != nil {
		vk.DestroyInstance(inst.handle, nil)
		core.LogError("%s", err)
		return nil, err
	}
	core.LogInfo("Vulkan Instance created.")

	if len(layers) > 0 {
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if err := vk.Error(vk.CreateDebugReportCallback(inst.handle, &debugCreateInfo, nil, &dbg)); err != nil {
			core.LogWarn("vk.CreateDebugReportCallback failed with %s", err)
		} else {
			inst.debugCallback = dbg
			core.LogDebug("Vulkan debugger created.")
		}
	}
	return inst, nil
}

func hasInstanceLayer(name string) bool {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success || count == 0 {
		return false
	}
	available := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, available); res != vk.Success {
		return false
	}
	for i := range available {
		available[i].Deref()
		if vk.ToString(available[i].LayerName[:]) == name {
			return true
		}
	}
	return false
}

type instance struct {
	handle        vk.Instance
	window        SurfaceWindow
	debugCallback vk.DebugReportCallback
}

func (i *instance) CreateSurface(window hal.Window) (hal.Surface, error) {
	w, ok := window.(SurfaceWindow)
	if !ok {
		return nil, fmt.Errorf("%w: %T", hal.ErrUnsupportedWindow, window)
	}
	ptr, err := w.CreateWindowSurface(i.handle, nil)
	if err != nil {
		core.LogError("Vulkan surface creation failed: %s", err)
		return nil, err
	}
	core.LogDebug("Vulkan surface created.")
	return &surface{
		object:   newObject("surface"),
		instance: i,
		handle:   vk.SurfaceFromPointer(ptr),
	}, nil
}

func (i *instance) DestroySurface(s hal.Surface) {
	vs, ok := s.(*surface)
	if !ok || vs.handle == vk.NullSurface {
		return
	}
	vk.DestroySurface(i.handle, vs.handle, nil)
	vs.handle = vk.NullSurface
}

func (i *instance) EnumerateAdapters() ([]hal.Adapter, error) {
	var count uint32
	if res := vk.EnumeratePhysicalDevices(i.handle, &count, nil); res != vk.Success {
		return nil, resultError("vkEnumeratePhysicalDevices", res)
	}
	if count == 0 {
		return nil, nil
	}
	physicalDevices := make([]vk.PhysicalDevice, count)
	if res := vk.EnumeratePhysicalDevices(i.handle, &count, physicalDevices); res != vk.Success {
		return nil, resultError("vkEnumeratePhysicalDevices", res)
	}

	out := make([]hal.Adapter, 0, count)
	for _, pd := range physicalDevices[:count] {
		out = append(out, newAdapter(pd))
	}
	return out, nil
}

func (i *instance) Destroy() {
	if i.debugCallback != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(i.handle, i.debugCallback, nil)
		i.debugCallback = vk.NullDebugReportCallback
	}
	if i.handle != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(i.handle, nil)
		i.handle = nil
	}
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
