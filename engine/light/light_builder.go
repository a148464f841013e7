package light

import "math"

// LightBuilderOption is a function that configures a Light during construction.
type LightBuilderOption func(*Light)

// WithPosition is an option builder that sets the world-space position of the light.
//
// Parameters:
//   - x: the x position component
//   - y: the y position component
//   - z: the z position component
//
// Returns:
//   - LightBuilderOption: a function that applies the position option to a Light
func WithPosition(x, y, z float32) LightBuilderOption {
	return func(l *Light) {
		l.SetPosition(x, y, z)
	}
}

// WithDirection is an option builder that sets the direction of the light.
// The direction is normalized before storing.
//
// Parameters:
//   - x: the x direction component
//   - y: the y direction component
//   - z: the z direction component
//
// Returns:
//   - LightBuilderOption: a function that applies the direction option to a Light
func WithDirection(x, y, z float32) LightBuilderOption {
	return func(l *Light) {
		l.SetDirection(x, y, z)
	}
}

// WithColor is an option builder that sets the RGB color of the light.
//
// Parameters:
//   - r: the red color component
//   - g: the green color component
//   - b: the blue color component
//
// Returns:
//   - LightBuilderOption: a function that applies the color option to a Light
func WithColor(r, g, b float32) LightBuilderOption {
	return func(l *Light) {
		l.SetColor(r, g, b)
	}
}

// WithIntensity is an option builder that sets the scalar intensity multiplier.
//
// Parameters:
//   - intensity: the intensity value, clamped to [MinIntensity, MaxIntensity]
//
// Returns:
//   - LightBuilderOption: a function that applies the intensity option to a Light
func WithIntensity(intensity float32) LightBuilderOption {
	return func(l *Light) {
		l.SetIntensity(intensity)
	}
}

// WithRange is an option builder that sets the attenuation range of a point light.
//
// Parameters:
//   - lightRange: the range, clamped to [MinRange, MaxRange]
//
// Returns:
//   - LightBuilderOption: a function that applies the range option to a Light
func WithRange(lightRange float32) LightBuilderOption {
	return func(l *Light) {
		l.SetRange(lightRange)
	}
}

// WithEnabled is an option builder that sets whether the light is packed for the GPU.
//
// Parameters:
//   - enabled: false to keep the light in the list without it contributing
//
// Returns:
//   - LightBuilderOption: a function that applies the enabled option to a Light
func WithEnabled(enabled bool) LightBuilderOption {
	return func(l *Light) {
		l.SetEnabled(enabled)
	}
}

// normalize3 returns the unit-length version of the vector and false for a zero vector.
func normalize3(x, y, z float32) ([3]float32, bool) {
	length := float32(math.Sqrt(float64(x*x + y*y + z*z)))
	if length < 1e-8 {
		return [3]float32{}, false
	}
	return [3]float32{x / length, y / length, z / length}, true
}
