package engine

import "github.com/Carmen-Shannon/oxy-toon/common"

// HeadlessHost is a Host without a window. It runs a fixed number of frames and replays
// scripted input, for offscreen renders and tests.
type HeadlessHost struct {
	width, height int
	frames        int
	polled        int
	script        func(frame int) common.InputSnapshot
	input         common.InputSnapshot
	onResize      func(width, height int)
	closed        bool
}

var _ Host = &HeadlessHost{}

// NewHeadlessHost creates a headless host.
//
// Parameters:
//   - width: the reported client width
//   - height: the reported client height
//   - frames: how many PollEvents calls succeed; 0 means unlimited
//
// Returns:
//   - *HeadlessHost: the host
func NewHeadlessHost(width, height, frames int) *HeadlessHost {
	return &HeadlessHost{width: width, height: height, frames: frames}
}

// SetInputScript sets the function producing the input for each frame, counted from 0.
func (h *HeadlessHost) SetInputScript(script func(frame int) common.InputSnapshot) {
	h.script = script
}

func (h *HeadlessHost) PollEvents() bool {
	if h.closed || (h.frames > 0 && h.polled >= h.frames) {
		return false
	}
	h.input = common.InputSnapshot{}
	if h.script != nil {
		h.input = h.script(h.polled)
	}
	h.polled++
	return true
}

func (h *HeadlessHost) Input() common.InputSnapshot {
	return h.input
}

func (h *HeadlessHost) Size() (int, int) {
	return h.width, h.height
}

func (h *HeadlessHost) SetResizeCallback(callback func(width, height int)) {
	h.onResize = callback
}

// Resize changes the reported size and notifies the resize callback.
func (h *HeadlessHost) Resize(width, height int) {
	h.width, h.height = width, height
	if h.onResize != nil {
		h.onResize(width, height)
	}
}

func (h *HeadlessHost) Close() error {
	h.closed = true
	return nil
}

// Closed reports whether Close was called.
func (h *HeadlessHost) Closed() bool {
	return h.closed
}
