package material

import (
	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/device"
	"github.com/go-gl/mathgl/mgl32"
)

// MaterialBuilderOption is a function that configures a material instance during construction.
type MaterialBuilderOption func(*material)

// WithColorTint is an option builder that sets the RGB multiplier applied to the albedo.
//
// Parameters:
//   - tint: the tint color
//
// Returns:
//   - MaterialBuilderOption: a function that applies the tint option to a material
func WithColorTint(tint mgl32.Vec3) MaterialBuilderOption {
	return func(m *material) {
		m.colorTint = tint
	}
}

// WithRoughness is an option builder that sets the roughness factor of the material.
//
// Parameters:
//   - roughness: the roughness factor (0.0 = smooth, 1.0 = rough)
//
// Returns:
//   - MaterialBuilderOption: a function that applies the roughness option to a material
func WithRoughness(roughness float32) MaterialBuilderOption {
	return func(m *material) {
		m.roughness = roughness
	}
}

// WithTexture is an option builder that records a texture view, as AddTextureSRV does.
//
// Parameters:
//   - name: the WGSL texture variable name
//   - srv: the view to bind
//
// Returns:
//   - MaterialBuilderOption: a function that applies the texture option to a material
func WithTexture(name string, srv device.ShaderResourceView) MaterialBuilderOption {
	return func(m *material) {
		m.AddTextureSRV(name, srv)
	}
}

// WithSampler is an option builder that records a sampler, as AddSampler does.
//
// Parameters:
//   - name: the WGSL sampler variable name
//   - sampler: the sampler to bind
//
// Returns:
//   - MaterialBuilderOption: a function that applies the sampler option to a material
func WithSampler(name string, sampler device.SamplerState) MaterialBuilderOption {
	return func(m *material) {
		m.AddSampler(name, sampler)
	}
}
