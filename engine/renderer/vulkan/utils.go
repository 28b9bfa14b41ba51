package vulkan

import (
	"fmt"
	"sync/atomic"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/trigon/engine/renderer/hal"
)

var resultNames = map[vk.Result]string{
	vk.Success:                   "VK_SUCCESS",
	vk.NotReady:                  "VK_NOT_READY",
	vk.Timeout:                   "VK_TIMEOUT",
	vk.EventSet:                  "VK_EVENT_SET",
	vk.EventReset:                "VK_EVENT_RESET",
	vk.Incomplete:                "VK_INCOMPLETE",
	vk.Suboptimal:                "VK_SUBOPTIMAL_KHR",
	vk.ErrorOutOfHostMemory:      "VK_ERROR_OUT_OF_HOST_MEMORY",
	vk.ErrorOutOfDeviceMemory:    "VK_ERROR_OUT_OF_DEVICE_MEMORY",
	vk.ErrorInitializationFailed: "VK_ERROR_INITIALIZATION_FAILED",
	vk.ErrorDeviceLost:           "VK_ERROR_DEVICE_LOST",
	vk.ErrorMemoryMapFailed:      "VK_ERROR_MEMORY_MAP_FAILED",
	vk.ErrorLayerNotPresent:      "VK_ERROR_LAYER_NOT_PRESENT",
	vk.ErrorExtensionNotPresent:  "VK_ERROR_EXTENSION_NOT_PRESENT",
	vk.ErrorFeatureNotPresent:    "VK_ERROR_FEATURE_NOT_PRESENT",
	vk.ErrorIncompatibleDriver:   "VK_ERROR_INCOMPATIBLE_DRIVER",
	vk.ErrorTooManyObjects:       "VK_ERROR_TOO_MANY_OBJECTS",
	vk.ErrorFormatNotSupported:   "VK_ERROR_FORMAT_NOT_SUPPORTED",
	vk.ErrorFragmentedPool:       "VK_ERROR_FRAGMENTED_POOL",
	vk.ErrorSurfaceLost:          "VK_ERROR_SURFACE_LOST_KHR",
	vk.ErrorNativeWindowInUse:    "VK_ERROR_NATIVE_WINDOW_IN_USE_KHR",
	vk.ErrorOutOfDate:            "VK_ERROR_OUT_OF_DATE_KHR",
	vk.ErrorIncompatibleDisplay:  "VK_ERROR_INCOMPATIBLE_DISPLAY_KHR",
	vk.ErrorOutOfPoolMemory:      "VK_ERROR_OUT_OF_POOL_MEMORY",
	vk.ErrorUnknown:              "VK_ERROR_UNKNOWN",
}

func VulkanResultString(result vk.Result) string {
	if name, ok := resultNames[result]; ok {
		return name
	}
	return fmt.Sprintf("VkResult(%d)", int32(result))
}

// VulkanResultIsSuccess reports whether result is one of the non-error codes.
// Error codes are all negative.
func VulkanResultIsSuccess(result vk.Result) bool {
	return result >= 0
}

// resultError turns a failed call into an error wrapping the matching hal
// sentinel, so callers can tell stale surfaces and lost devices apart.
func resultError(op string, result vk.Result) error {
	var sentinel error
	switch result {
	case vk.Success:
		return nil
	case vk.Suboptimal:
		sentinel = hal.ErrSuboptimal
	case vk.ErrorOutOfDate:
		sentinel = hal.ErrOutOfDate
	case vk.ErrorSurfaceLost:
		sentinel = hal.ErrSurfaceLost
	case vk.Timeout, vk.NotReady:
		sentinel = hal.ErrTimeout
	case vk.ErrorDeviceLost:
		sentinel = hal.ErrDeviceLost
	case vk.ErrorOutOfHostMemory, vk.ErrorOutOfDeviceMemory:
		sentinel = hal.ErrOutOfMemory
	default:
		return fmt.Errorf("%s failed with %s", op, VulkanResultString(result))
	}
	return fmt.Errorf("%s: %w (%s)", op, sentinel, VulkanResultString(result))
}

var (
	end           = "\x00"
	endChar  byte = '\x00'
	objectID atomic.Uint64
)

func VulkanSafeString(s string) string {
	if len(s) == 0 {
		return end
	}
	if s[len(s)-1] != endChar {
		return s + end
	}
	return s
}

func VulkanSafeStrings(list []string) []string {
	out := make([]string, len(list))
	for i := range list {
		out[i] = VulkanSafeString(list[i])
	}
	return out
}

// object carries the label every handle wrapper reports.
type object struct {
	label string
}

func newObject(kind string) object {
	return object{label: fmt.Sprintf("%s-%d", kind, objectID.Add(1))}
}

func (o object) Label() string { return o.label }

func toVkFormat(f hal.Format) vk.Format {
	switch f {
	case hal.FormatRGBA8Unorm:
		return vk.FormatR8g8b8a8Unorm
	case hal.FormatRGBA8UnormSRGB:
		return vk.FormatR8g8b8a8Srgb
	case hal.FormatBGRA8Unorm:
		return vk.FormatB8g8r8a8Unorm
	case hal.FormatBGRA8UnormSRGB:
		return vk.FormatB8g8r8a8Srgb
	case hal.FormatRGB10A2Unorm:
		return vk.FormatA2r10g10b10UnormPack32
	case hal.FormatRGBA16Float:
		return vk.FormatR16g16b16a16Sfloat
	default:
		return vk.FormatUndefined
	}
}

func fromVkFormat(f vk.Format) hal.Format {
	switch f {
	case vk.FormatR8g8b8a8Unorm:
		return hal.FormatRGBA8Unorm
	case vk.FormatR8g8b8a8Srgb:
		return hal.FormatRGBA8UnormSRGB
	case vk.FormatB8g8r8a8Unorm:
		return hal.FormatBGRA8Unorm
	case vk.FormatB8g8r8a8Srgb:
		return hal.FormatBGRA8UnormSRGB
	case vk.FormatA2r10g10b10UnormPack32:
		return hal.FormatRGB10A2Unorm
	case vk.FormatR16g16b16a16Sfloat:
		return hal.FormatRGBA16Float
	default:
		return hal.FormatUndefined
	}
}

func toVkPresentMode(m hal.PresentMode) vk.PresentMode {
	switch m {
	case hal.PresentModeMailbox:
		return vk.PresentModeMailbox
	case hal.PresentModeImmediate:
		return vk.PresentModeImmediate
	default:
		return vk.PresentModeFifo
	}
}

func fromVkDeviceType(t vk.PhysicalDeviceType) hal.DeviceType {
	switch t {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return hal.DeviceTypeIntegratedGPU
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return hal.DeviceTypeDiscreteGPU
	case vk.PhysicalDeviceTypeVirtualGpu:
		return hal.DeviceTypeVirtualGPU
	case vk.PhysicalDeviceTypeCpu:
		return hal.DeviceTypeCPU
	default:
		return hal.DeviceTypeOther
	}
}

func toVkLoadOp(op hal.AttachmentLoadOp) vk.AttachmentLoadOp {
	switch op {
	case hal.AttachmentLoadOpLoad:
		return vk.AttachmentLoadOpLoad
	case hal.AttachmentLoadOpClear:
		return vk.AttachmentLoadOpClear
	default:
		return vk.AttachmentLoadOpDontCare
	}
}

func toVkStoreOp(op hal.AttachmentStoreOp) vk.AttachmentStoreOp {
	if op == hal.AttachmentStoreOpStore {
		return vk.AttachmentStoreOpStore
	}
	return vk.AttachmentStoreOpDontCare
}

func toVkImageLayout(l hal.ImageLayout) vk.ImageLayout {
	switch l {
	case hal.ImageLayoutColorAttachmentOptimal:
		return vk.ImageLayoutColorAttachmentOptimal
	case hal.ImageLayoutPresent:
		return vk.ImageLayoutPresentSrc
	default:
		return vk.ImageLayoutUndefined
	}
}

func toVkRect(r hal.Rect) vk.Rect2D {
	return vk.Rect2D{
		Offset: vk.Offset2D{X: r.X, Y: r.Y},
		Extent: vk.Extent2D{Width: r.Width, Height: r.Height},
	}
}
