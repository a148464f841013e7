package camera

import (
	"math"

	"github.com/Carmen-Shannon/oxy-toon/common"
	"github.com/Carmen-Shannon/oxy-toon/engine/transform"
	"github.com/go-gl/mathgl/mgl32"
)

// flyController is the free-flying implementation of CameraController.
// W/S move along the view direction, A/D strafe, Space/X move along world Y and the
// left mouse button drags the view. Pitch stops just short of straight up or down.
type flyController struct {
	moveSpeed        float32
	boostMultiplier  float32
	mouseSensitivity float32
	maxPitch         float32
}

// Compile-time interface compliance check
var _ CameraController = &flyController{}

// NewFlyController creates a fly controller with sensible defaults.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the newly created controller
func NewFlyController(options ...CameraControllerOption) CameraController {
	fc := &flyController{
		moveSpeed:        3.0,
		boostMultiplier:  4.0,
		mouseSensitivity: 0.005,
		maxPitch:         math.Pi/2 - 0.01,
	}
	for _, option := range options {
		option(fc)
	}
	return fc
}

func (fc *flyController) MoveSpeed() float32 {
	return fc.moveSpeed
}

func (fc *flyController) BoostMultiplier() float32 {
	return fc.boostMultiplier
}

func (fc *flyController) MouseSensitivity() float32 {
	return fc.mouseSensitivity
}

func (fc *flyController) Update(t *transform.Transform, dt float32, input common.InputSnapshot) {
	speed := fc.moveSpeed * dt
	if input.KeyDown(common.KeyLeftShift) {
		speed *= fc.boostMultiplier
	}

	forward := t.Forward()
	// With a right-handed view the screen's right is forward × up.
	right := forward.Cross(t.Up())

	var move mgl32.Vec3
	if input.KeyDown(common.KeyW) {
		move = move.Add(forward)
	}
	if input.KeyDown(common.KeyS) {
		move = move.Sub(forward)
	}
	if input.KeyDown(common.KeyD) {
		move = move.Add(right)
	}
	if input.KeyDown(common.KeyA) {
		move = move.Sub(right)
	}
	if input.KeyDown(common.KeySpace) {
		move = move.Add(mgl32.Vec3{0, 1, 0})
	}
	if input.KeyDown(common.KeyX) {
		move = move.Sub(mgl32.Vec3{0, 1, 0})
	}
	if move.Len() > 0 {
		t.MoveAbsolute(move.Mul(speed))
	}

	if input.MouseDown(common.MouseButtonLeft) && (input.MouseDeltaX != 0 || input.MouseDeltaY != 0) {
		rot := t.Rotation()
		rot[0] = common.Clamp(rot[0]+input.MouseDeltaY*fc.mouseSensitivity, -fc.maxPitch, fc.maxPitch)
		rot[1] -= input.MouseDeltaX * fc.mouseSensitivity
		t.SetRotation(rot)
	}
}
