// Package sky draws a textured sky box behind the scene.
package sky

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-toon/engine/camera"
	"github.com/Carmen-Shannon/oxy-toon/engine/mesh"
	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/shader"
)

// sky is the implementation of the Sky interface.
type sky struct {
	mesh    *mesh.Mesh
	vs      shader.Program
	ps      shader.Program
	texture device.ShaderResourceView
	sampler device.SamplerState
}

// Sky is a cube drawn around the camera with its translation removed. The vertex stage writes
// z = w so the sky lands on the far plane and only fills pixels no opaque geometry covered.
type Sky interface {
	// Draw renders the sky with the current render targets. It switches the depth test to
	// LessEqual and culls front faces for the draw, then restores the default states.
	//
	// Parameters:
	//   - ctx: the device context
	//   - cam: the camera supplying view and projection
	Draw(ctx device.Context, cam camera.Camera)

	// Texture returns the equirectangular sky texture.
	//
	// Returns:
	//   - device.ShaderResourceView: the sky texture, or nil
	Texture() device.ShaderResourceView

	// SetTexture replaces the sky texture.
	//
	// Parameters:
	//   - srv: the equirectangular texture
	SetTexture(srv device.ShaderResourceView)

	// Release drops the mesh reference.
	Release()
}

var _ Sky = &sky{}

// NewSky creates a sky drawable. The programs must be the vertex_sky and pixel_sky shaders or
// declare the same variables.
//
// Parameters:
//   - m: the box mesh; the sky holds a reference until Release
//   - vs: the sky vertex program
//   - ps: the sky pixel program
//   - options: optional SkyBuilderOption values
//
// Returns:
//   - Sky: the sky drawable
//   - error: an error if a program is missing or of the wrong stage
func NewSky(m *mesh.Mesh, vs, ps shader.Program, options ...SkyBuilderOption) (Sky, error) {
	if m == nil || vs == nil || ps == nil {
		return nil, fmt.Errorf("sky: mesh and both programs are required")
	}
	if vs.Stage() != device.StageVertex || ps.Stage() != device.StagePixel {
		return nil, fmt.Errorf("sky: got a %s and a %s program", vs.Stage(), ps.Stage())
	}
	s := &sky{mesh: m.Acquire(), vs: vs, ps: ps}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

func (s *sky) Texture() device.ShaderResourceView {
	return s.texture
}

func (s *sky) SetTexture(srv device.ShaderResourceView) {
	s.texture = srv
}

func (s *sky) Release() {
	if s.mesh != nil {
		s.mesh.Release()
		s.mesh = nil
	}
}

func (s *sky) Draw(ctx device.Context, cam camera.Camera) {
	ctx.SetDepthState(device.DepthState{Func: device.CompareLessEqual, Write: false})
	ctx.SetRasterState(device.RasterState{Cull: device.CullFront})

	s.vs.SetShader()
	s.ps.SetShader()
	s.vs.SetMatrix4x4("view", cam.ViewMatrix())
	s.vs.SetMatrix4x4("projection", cam.ProjectionMatrix())
	s.vs.CopyAllBufferData()
	s.ps.SetShaderResourceView("SkyMap", s.texture)
	s.ps.SetSamplerState("BasicSampler", s.sampler)

	ctx.SetVertexBuffer(s.mesh.VertexBuffer(), device.VertexStride)
	ctx.SetIndexBuffer(s.mesh.IndexBuffer())
	ctx.DrawIndexed(s.mesh.IndexCount(), 0, 0)

	ctx.SetDepthState(device.DefaultDepthState)
	ctx.SetRasterState(device.RasterState{})
}
