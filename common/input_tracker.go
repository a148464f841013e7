package common

// InputTracker accumulates platform input events between frames and turns them into
// InputSnapshot values. Hosts feed it from their event callbacks and call Snapshot once per frame.
type InputTracker struct {
	keys       map[uint32]bool
	pressed    map[uint32]bool
	buttons    [3]bool
	x, y       float32
	dx, dy     float32
	scroll     float32
	seenCursor bool
}

// NewInputTracker creates an empty tracker.
func NewInputTracker() *InputTracker {
	return &InputTracker{
		keys:    make(map[uint32]bool),
		pressed: make(map[uint32]bool),
	}
}

// KeyDown records a key press. Repeats of a held key do not count as a new press.
func (t *InputTracker) KeyDown(key uint32) {
	if !t.keys[key] {
		t.pressed[key] = true
	}
	t.keys[key] = true
}

// KeyUp records a key release.
func (t *InputTracker) KeyUp(key uint32) {
	delete(t.keys, key)
}

// MouseButton records a button state change. Unknown buttons are ignored.
func (t *InputTracker) MouseButton(button int, down bool) {
	if button >= 0 && button < len(t.buttons) {
		t.buttons[button] = down
	}
}

// MouseMove records the cursor position and accumulates the movement delta. The first
// position seen produces no delta.
func (t *InputTracker) MouseMove(x, y float32) {
	if t.seenCursor {
		t.dx += x - t.x
		t.dy += y - t.y
	}
	t.x, t.y = x, y
	t.seenCursor = true
}

// Scroll accumulates vertical wheel movement.
func (t *InputTracker) Scroll(delta float32) {
	t.scroll += delta
}

// Snapshot returns the state since the previous Snapshot and starts a new frame: presses,
// mouse delta and scroll are reset, held keys and buttons are kept.
func (t *InputTracker) Snapshot() InputSnapshot {
	s := InputSnapshot{
		Keys:         make(map[uint32]bool, len(t.keys)),
		Pressed:      t.pressed,
		MouseButtons: t.buttons,
		MouseX:       t.x,
		MouseY:       t.y,
		MouseDeltaX:  t.dx,
		MouseDeltaY:  t.dy,
		Scroll:       t.scroll,
	}
	for k := range t.keys {
		s.Keys[k] = true
	}
	t.pressed = make(map[uint32]bool)
	t.dx, t.dy, t.scroll = 0, 0, 0
	return s
}
