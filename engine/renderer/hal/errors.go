package hal

import "errors"

var (
	ErrOutOfDate         = errors.New("surface out of date")
	ErrSuboptimal        = errors.New("swapchain suboptimal")
	ErrSurfaceLost       = errors.New("surface lost")
	ErrTimeout           = errors.New("wait timed out")
	ErrDeviceLost        = errors.New("device lost")
	ErrOutOfMemory       = errors.New("out of memory")
	ErrNotConfigured     = errors.New("surface has no swapchain configured")
	ErrUnsupportedWindow = errors.New("window cannot back a surface")
	ErrForeignResource   = errors.New("resource belongs to another backend")
)

// IsSurfaceStale reports whether err means the swapchain no longer matches its
// surface and must be reconfigured before the next frame.
func IsSurfaceStale(err error) bool {
	return errors.Is(err, ErrOutOfDate) ||
		errors.Is(err, ErrSuboptimal) ||
		errors.Is(err, ErrSurfaceLost) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrNotConfigured)
}
