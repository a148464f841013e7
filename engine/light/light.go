package light

import "github.com/Carmen-Shannon/oxy-toon/common"

// Type identifies the kind of light source.
type Type uint32

const (
	// TypeDirectional is an infinitely distant light that illuminates along a single direction.
	TypeDirectional Type = iota

	// TypePoint is a positional light that radiates in all directions with range-based attenuation.
	TypePoint
)

func (t Type) String() string {
	switch t {
	case TypeDirectional:
		return "directional"
	case TypePoint:
		return "point"
	default:
		return "unknown"
	}
}

// Limits applied by the clamped setters.
const (
	MinRange     float32 = 0.1
	MaxRange     float32 = 100
	MinIntensity float32 = 0
	MaxIntensity float32 = 10
)

// Light is a single light source. It is a plain value: copying a Light copies its state, and
// edits made through the setters are clamped to the ranges an editor exposes.
type Light struct {
	lightType  Type
	direction  [3]float32
	position   [3]float32
	color      [3]float32
	intensity  float32
	lightRange float32
	enabled    bool
}

// NewLight creates a Light of the given type with sensible defaults and any provided options applied.
//
// Parameters:
//   - lightType: the kind of light to create
//   - options: variadic list of LightBuilderOption functions to configure the light
//
// Returns:
//   - Light: the configured light
func NewLight(lightType Type, options ...LightBuilderOption) Light {
	l := Light{
		lightType:  lightType,
		direction:  [3]float32{0, -1, 0},
		color:      [3]float32{1, 1, 1},
		intensity:  1,
		lightRange: 10,
		enabled:    true,
	}
	for _, opt := range options {
		opt(&l)
	}
	return l
}

func (l Light) Type() Type {
	return l.lightType
}

// Direction returns the normalized direction the light travels in. Unused by point lights.
func (l Light) Direction() [3]float32 {
	return l.direction
}

// Position returns the world-space position. Unused by directional lights.
func (l Light) Position() [3]float32 {
	return l.position
}

func (l Light) Color() [3]float32 {
	return l.color
}

func (l Light) Intensity() float32 {
	return l.intensity
}

// Range returns the distance at which a point light's contribution reaches zero.
func (l Light) Range() float32 {
	return l.lightRange
}

// Enabled reports whether the light is packed for the GPU.
func (l Light) Enabled() bool {
	return l.enabled
}

func (l *Light) SetType(t Type) {
	if t != TypeDirectional && t != TypePoint {
		return
	}
	l.lightType = t
}

// SetDirection stores the normalized direction. A zero vector leaves the direction unchanged.
func (l *Light) SetDirection(x, y, z float32) {
	if d, ok := normalize3(x, y, z); ok {
		l.direction = d
	}
}

func (l *Light) SetPosition(x, y, z float32) {
	l.position = [3]float32{x, y, z}
}

// SetColor stores the RGB color, each channel clamped to [0, 1].
func (l *Light) SetColor(r, g, b float32) {
	l.color = [3]float32{common.Clamp(r, 0, 1), common.Clamp(g, 0, 1), common.Clamp(b, 0, 1)}
}

// SetIntensity stores the intensity clamped to [MinIntensity, MaxIntensity].
func (l *Light) SetIntensity(intensity float32) {
	l.intensity = common.Clamp(intensity, MinIntensity, MaxIntensity)
}

// SetRange stores the range clamped to [MinRange, MaxRange].
func (l *Light) SetRange(lightRange float32) {
	l.lightRange = common.Clamp(lightRange, MinRange, MaxRange)
}

func (l *Light) SetEnabled(enabled bool) {
	l.enabled = enabled
}

// GPU converts the light into its shader-side layout.
//
// Returns:
//   - GPULight: the packed representation
func (l Light) GPU() GPULight {
	return GPULight{
		Direction:  l.direction,
		Kind:       uint32(l.lightType),
		Position:   l.position,
		LightRange: l.lightRange,
		Color:      l.color,
		Intensity:  l.intensity,
	}
}
