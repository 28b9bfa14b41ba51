// Package math holds the small generic helpers the renderer needs for sizing.
package math

import "golang.org/x/exp/constraints"

// Clamp limits v to [low, high]. low must not exceed high.
func Clamp[T constraints.Ordered](v, low, high T) T {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

// ClampMin raises v to at least low.
func ClampMin[T constraints.Ordered](v, low T) T {
	if v < low {
		return low
	}
	return v
}
