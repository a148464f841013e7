package camera

// CameraControllerOption is a functional option for configuring a CameraController.
type CameraControllerOption func(*flyController)

// WithMoveSpeed sets the translation speed.
//
// Parameters:
//   - speed: world units per second
//
// Returns:
//   - CameraControllerOption: functional option to set the move speed
func WithMoveSpeed(speed float32) CameraControllerOption {
	return func(fc *flyController) {
		fc.moveSpeed = speed
	}
}

// WithBoostMultiplier sets the speed factor applied while Shift is held.
//
// Parameters:
//   - multiplier: the factor applied to the move speed
//
// Returns:
//   - CameraControllerOption: functional option to set the boost multiplier
func WithBoostMultiplier(multiplier float32) CameraControllerOption {
	return func(fc *flyController) {
		fc.boostMultiplier = multiplier
	}
}

// WithMouseSensitivity sets how far a mouse drag rotates the view.
//
// Parameters:
//   - sensitivity: radians per pixel of mouse movement
//
// Returns:
//   - CameraControllerOption: functional option to set the mouse sensitivity
func WithMouseSensitivity(sensitivity float32) CameraControllerOption {
	return func(fc *flyController) {
		fc.mouseSensitivity = sensitivity
	}
}
