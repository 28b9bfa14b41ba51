package core

import (
	"errors"
)

var (
	ErrNoBackend            = errors.New("no graphics backend available")
	ErrNoSurface            = errors.New("failed to create a surface for the window")
	ErrNoAdapter            = errors.New("no suitable GPU adapter found")
	ErrNoQueueFamily        = errors.New("no queue family supports both graphics and presentation")
	ErrFenceTimeout         = errors.New("timed out waiting for the previous frame")
	ErrDeviceLost           = errors.New("GPU device lost")
	ErrSurfaceUnrecoverable = errors.New("surface kept failing to present")
	ErrUnknown              = errors.New("unknown")
)
