package compositor

import (
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"
)

// CompositorBuilderOption is a functional option applied to a compositor during construction via NewCompositor.
type CompositorBuilderOption func(*compositor)

// WithClearColor sets the color the backbuffer and the offscreen target are cleared to.
//
// Parameters:
//   - color: the RGBA clear color
//
// Returns:
//   - CompositorBuilderOption: a function that applies the clear color option to a compositor
func WithClearColor(color mgl32.Vec4) CompositorBuilderOption {
	return func(c *compositor) {
		c.clearColor = color
	}
}

// WithEdgeStrength scales how dark detected edges are drawn. Negative values are treated as 0.
//
// Parameters:
//   - strength: the edge strength multiplier
//
// Returns:
//   - CompositorBuilderOption: a function that applies the edge strength option to a compositor
func WithEdgeStrength(strength float32) CompositorBuilderOption {
	return func(c *compositor) {
		c.edgeStrength = max(strength, 0)
	}
}

// WithEdgeThreshold sets the luminance gradient below which no edge is drawn.
//
// Parameters:
//   - threshold: the gradient magnitude threshold
//
// Returns:
//   - CompositorBuilderOption: a function that applies the edge threshold option to a compositor
func WithEdgeThreshold(threshold float32) CompositorBuilderOption {
	return func(c *compositor) {
		c.edgeThreshold = max(threshold, 0)
	}
}

// WithVSync sets the vsync flag Frame passes to Present.
func WithVSync(enabled bool) CompositorBuilderOption {
	return func(c *compositor) {
		c.vsync = enabled
	}
}

// WithLogger sets the logger for resize events.
func WithLogger(logger *slog.Logger) CompositorBuilderOption {
	return func(c *compositor) {
		if logger != nil {
			c.logger = logger
		}
	}
}
