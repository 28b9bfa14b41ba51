package core

import "sync"

// Key code definitions
type KeyCode uint16

const (
	KEY_UNKNOWN   KeyCode = 0x00
	KEY_BACKSPACE KeyCode = 0x08
	KEY_TAB       KeyCode = 0x09
	KEY_ENTER     KeyCode = 0x0D
	KEY_PAUSE     KeyCode = 0x13
	KEY_ESCAPE    KeyCode = 0x1B
	KEY_SPACE     KeyCode = 0x20
	KEY_LEFT      KeyCode = 0x25
	KEY_UP        KeyCode = 0x26
	KEY_RIGHT     KeyCode = 0x27
	KEY_DOWN      KeyCode = 0x28
	KEY_A         KeyCode = 0x41
	KEY_Z         KeyCode = 0x5A
	KEY_F1        KeyCode = 0x70
	KEY_F12       KeyCode = 0x7B

	KEYS_MAX_KEYS KeyCode = 0xFF
)

type KeyboardState struct {
	Keys [KEYS_MAX_KEYS + 1]bool
}

// Input state structure that holds current and previous keyboard states
type InputState struct {
	mu               sync.Mutex
	KeyboardCurrent  KeyboardState
	KeyboardPrevious KeyboardState
}

var inputState *InputState

func InputInitialize() error {
	inputState = &InputState{}
	LogDebug("Input subsystem initialized.")
	return nil
}

func InputShutdown() error {
	inputState = nil
	return nil
}

// InputUpdate copies the current state into the previous one. Call it once
// at the end of every frame.
func InputUpdate() {
	if inputState == nil {
		return
	}
	inputState.mu.Lock()
	inputState.KeyboardPrevious = inputState.KeyboardCurrent
	inputState.mu.Unlock()
}

func InputIsKeyDown(key KeyCode) bool {
	if inputState == nil || key > KEYS_MAX_KEYS {
		return false
	}
	inputState.mu.Lock()
	defer inputState.mu.Unlock()
	return inputState.KeyboardCurrent.Keys[key]
}

func InputWasKeyDown(key KeyCode) bool {
	if inputState == nil || key > KEYS_MAX_KEYS {
		return false
	}
	inputState.mu.Lock()
	defer inputState.mu.Unlock()
	return inputState.KeyboardPrevious.Keys[key]
}

// InputProcessKey records a key transition and fires KEY_PRESSED or
// KEY_RELEASED. Repeats of the same state are dropped.
func InputProcessKey(key KeyCode, pressed bool) {
	if inputState == nil || key == KEY_UNKNOWN || key > KEYS_MAX_KEYS {
		return
	}
	inputState.mu.Lock()
	if inputState.KeyboardCurrent.Keys[key] == pressed {
		inputState.mu.Unlock()
		return
	}
	inputState.KeyboardCurrent.Keys[key] = pressed
	inputState.mu.Unlock()

	code := EVENT_CODE_KEY_RELEASED
	if pressed {
		code = EVENT_CODE_KEY_PRESSED
	}
	ctx := EventContext{}
	ctx.Data.U16[0] = uint16(key)
	EventFire(code, nil, ctx)
}
