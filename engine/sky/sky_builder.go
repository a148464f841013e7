package sky

import "github.com/Carmen-Shannon/oxy-toon/engine/renderer/device"

// SkyBuilderOption is a functional option applied to a sky during construction via NewSky.
type SkyBuilderOption func(*sky)

// WithTexture sets the equirectangular sky texture.
//
// Parameters:
//   - srv: the texture view
//
// Returns:
//   - SkyBuilderOption: a function that applies the texture option to a sky
func WithTexture(srv device.ShaderResourceView) SkyBuilderOption {
	return func(s *sky) {
		s.texture = srv
	}
}

// WithSampler sets the sampler used for the sky texture. Without one the device's default
// linear clamp state applies.
//
// Parameters:
//   - sampler: the sampler state
//
// Returns:
//   - SkyBuilderOption: a function that applies the sampler option to a sky
func WithSampler(sampler device.SamplerState) SkyBuilderOption {
	return func(s *sky) {
		s.sampler = sampler
	}
}
