package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		name               string
		v, low, high, want uint32
	}{
		{"inside", 10, 1, 20, 10},
		{"below", 0, 1, 20, 1},
		{"above", 0xFFFFFFFF, 1, 16384, 16384},
		{"degenerate range", 5, 7, 7, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clamp(tt.v, tt.low, tt.high))
		})
	}

	assert.Equal(t, 0.5, Clamp(0.5, 0.0, 1.0))
	assert.Equal(t, -1, Clamp(-4, -1, 1))
}

func TestClampMin(t *testing.T) {
	assert.Equal(t, uint32(1), ClampMin(uint32(0), 1))
	assert.Equal(t, uint32(9), ClampMin(uint32(9), 1))
}
