package common

// InputSnapshot is an immutable view of keyboard and mouse state captured once per frame by the host
// and handed to Update. Nothing in the engine polls input devices directly.
type InputSnapshot struct {
	// Keys holds every key code that is currently held down.
	Keys map[uint32]bool

	// Pressed holds key codes that transitioned to down since the previous snapshot.
	Pressed map[uint32]bool

	// MouseButtons holds the held state of the left, right and middle buttons.
	MouseButtons [3]bool

	// MouseX, MouseY is the cursor position in window pixels.
	MouseX, MouseY float32

	// MouseDeltaX, MouseDeltaY is the cursor movement since the previous snapshot.
	MouseDeltaX, MouseDeltaY float32

	// Scroll is the accumulated vertical wheel movement since the previous snapshot.
	Scroll float32
}

// KeyDown reports whether the key is held in this snapshot.
//
// Parameters:
//   - key: the virtual key code (see key_codes.go)
//
// Returns:
//   - bool: true if the key is held
func (s InputSnapshot) KeyDown(key uint32) bool {
	return s.Keys[key]
}

// KeyPressed reports whether the key went down since the previous snapshot.
//
// Parameters:
//   - key: the virtual key code (see key_codes.go)
//
// Returns:
//   - bool: true if the key was pressed this frame
func (s InputSnapshot) KeyPressed(key uint32) bool {
	return s.Pressed[key]
}

// MouseDown reports whether the mouse button is held. Out of range buttons report false.
//
// Parameters:
//   - button: MouseButtonLeft, MouseButtonRight or MouseButtonMiddle
//
// Returns:
//   - bool: true if the button is held
func (s InputSnapshot) MouseDown(button int) bool {
	if button < 0 || button >= len(s.MouseButtons) {
		return false
	}
	return s.MouseButtons[button]
}
