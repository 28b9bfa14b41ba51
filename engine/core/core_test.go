package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLogLevel(t *testing.T) {
	previous := GetLogLevel()
	t.Cleanup(func() { _ = SetLogLevel(previous) })

	require.NoError(t, SetLogLevel("debug"))
	assert.Equal(t, "debug", GetLogLevel())

	require.NoError(t, SetLogLevel("WARN"))
	assert.Equal(t, "warn", GetLogLevel())

	assert.Error(t, SetLogLevel("verbose"))
	assert.Equal(t, "warn", GetLogLevel())
}

func TestEvents(t *testing.T) {
	require.True(t, EventInitialize())
	t.Cleanup(func() { _ = EventShutdown() })
	assert.False(t, EventInitialize())

	var got []string
	first, second := "first", "second"
	handler := func(handled bool) FnOnEvent {
		return func(code SystemEventCode, sender, listener interface{}, data EventContext) bool {
			assert.Equal(t, EVENT_CODE_RESIZED, code)
			assert.Equal(t, uint32(800), data.Data.U32[0])
			got = append(got, listener.(string))
			return handled
		}
	}

	require.True(t, EventRegister(EVENT_CODE_RESIZED, first, handler(false)))
	require.True(t, EventRegister(EVENT_CODE_RESIZED, second, handler(true)))
	assert.False(t, EventRegister(EVENT_CODE_RESIZED, first, handler(false)), "duplicate listener")

	ctx := EventContext{}
	ctx.Data.U32[0] = 800
	ctx.Data.U32[1] = 600
	assert.True(t, EventFire(EVENT_CODE_RESIZED, nil, ctx))
	assert.Equal(t, []string{"first", "second"}, got)

	require.True(t, EventUnregister(EVENT_CODE_RESIZED, second))
	assert.False(t, EventUnregister(EVENT_CODE_RESIZED, second))

	got = nil
	assert.False(t, EventFire(EVENT_CODE_RESIZED, nil, ctx))
	assert.Equal(t, []string{"first"}, got)

	assert.False(t, EventFire(EVENT_CODE_APPLICATION_QUIT, nil, EventContext{}))
}

func TestEventsBeforeInitialize(t *testing.T) {
	require.NoError(t, EventShutdown())
	noop := func(SystemEventCode, interface{}, interface{}, EventContext) bool { return true }
	assert.False(t, EventRegister(EVENT_CODE_KEY_PRESSED, nil, noop))
	assert.False(t, EventFire(EVENT_CODE_KEY_PRESSED, nil, EventContext{}))
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	// 16 frames of 62.5ms make exactly one second
	for i := 0; i < 40; i++ {
		m.Update(0.0625)
	}
	fps, avg := m.Frame()
	assert.Equal(t, float64(16), fps)
	assert.Equal(t, 62.5, avg)
	assert.Equal(t, int32(8), m.Frames)
}

func TestClock(t *testing.T) {
	c := NewClock()
	c.Update()
	assert.Zero(t, c.Elapsed(), "a clock that was never started does not advance")

	c.Start()
	time.Sleep(2 * time.Millisecond)
	c.Update()
	elapsed := c.Elapsed()
	assert.Greater(t, elapsed, 0.0)

	c.Stop()
	c.Update()
	assert.Equal(t, elapsed, c.Elapsed())
}

func TestInputProcessKey(t *testing.T) {
	require.NoError(t, InputInitialize())
	t.Cleanup(func() { _ = InputShutdown() })
	require.True(t, EventInitialize())
	t.Cleanup(func() { _ = EventShutdown() })

	var pressed, released []KeyCode
	onKey := func(code SystemEventCode, sender, listener interface{}, data EventContext) bool {
		if code == EVENT_CODE_KEY_PRESSED {
			pressed = append(pressed, KeyCode(data.Data.U16[0]))
		} else {
			released = append(released, KeyCode(data.Data.U16[0]))
		}
		return true
	}
	require.True(t, EventRegister(EVENT_CODE_KEY_PRESSED, t, onKey))
	require.True(t, EventRegister(EVENT_CODE_KEY_RELEASED, t, onKey))

	InputProcessKey(KEY_ESCAPE, true)
	InputProcessKey(KEY_ESCAPE, true)
	assert.True(t, InputIsKeyDown(KEY_ESCAPE))
	assert.False(t, InputWasKeyDown(KEY_ESCAPE))

	InputUpdate()
	assert.True(t, InputWasKeyDown(KEY_ESCAPE))

	InputProcessKey(KEY_ESCAPE, false)
	InputProcessKey(KEY_UNKNOWN, true)
	assert.Equal(t, []KeyCode{KEY_ESCAPE}, pressed)
	assert.Equal(t, []KeyCode{KEY_ESCAPE}, released)
	assert.False(t, InputIsKeyDown(KEY_ESCAPE))
}
