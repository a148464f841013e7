package camera

import (
	"github.com/Carmen-Shannon/oxy-toon/common"
	"github.com/Carmen-Shannon/oxy-toon/engine/transform"
)

// CameraController moves a camera's transform from the per-frame input snapshot. The camera
// recomputes its view matrix after the controller runs.
type CameraController interface {
	// Update applies one frame of input to the transform.
	//
	// Parameters:
	//   - t: the camera transform to move
	//   - dt: seconds since the previous frame
	//   - input: the input snapshot for this frame
	Update(t *transform.Transform, dt float32, input common.InputSnapshot)

	// MoveSpeed returns the translation speed in world units per second.
	//
	// Returns:
	//   - float32: units per second
	MoveSpeed() float32

	// BoostMultiplier returns the factor applied to MoveSpeed while Shift is held.
	//
	// Returns:
	//   - float32: the speed multiplier
	BoostMultiplier() float32

	// MouseSensitivity returns the rotation in radians per pixel of mouse drag.
	//
	// Returns:
	//   - float32: radians per pixel
	MouseSensitivity() float32
}
