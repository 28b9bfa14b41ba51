package platform

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/stretchr/testify/assert"
)

func TestTranslateKey(t *testing.T) {
	tests := []struct {
		key  glfw.Key
		want core.KeyCode
	}{
		{glfw.KeyEscape, core.KEY_ESCAPE},
		{glfw.KeySpace, core.KEY_SPACE},
		{glfw.KeyA, core.KEY_A},
		{glfw.KeyZ, core.KEY_Z},
		{glfw.KeyF1, core.KEY_F1},
		{glfw.KeyF12, core.KEY_F12},
		{glfw.KeyLeft, core.KEY_LEFT},
		{glfw.KeyEnter, core.KEY_ENTER},
		{glfw.KeyKPAdd, core.KEY_UNKNOWN},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, translateKey(tt.key), "glfw key %d", tt.key)
	}
}

func TestWindowBeforeStartup(t *testing.T) {
	p := New()
	assert.Nil(t, p.Window())
	w, h := p.FramebufferSize()
	assert.Zero(t, w)
	assert.Zero(t, h)
}
