package material

import (
	"fmt"
	"maps"
	"slices"

	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/shader"
	"github.com/go-gl/mathgl/mgl32"
)

// material is the implementation of the Material interface.
type material struct {
	name      string
	vs        shader.Program
	ps        shader.Program
	colorTint mgl32.Vec3
	roughness float32
	textures  map[string]device.ShaderResourceView
	samplers  map[string]device.SamplerState
}

// Material defines the interface for a render material: a vertex/pixel program pair, surface
// parameters, and the textures and samplers the pixel program reads, keyed by their WGSL names.
//
// A Material is shared by reference. Every entity drawn with it observes changes from its next
// draw on.
type Material interface {
	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// VertexShader retrieves the vertex program.
	//
	// Returns:
	//   - shader.Program: the vertex program
	VertexShader() shader.Program

	// PixelShader retrieves the pixel program.
	//
	// Returns:
	//   - shader.Program: the pixel program
	PixelShader() shader.Program

	// ColorTint retrieves the RGB multiplier applied to the albedo.
	//
	// Returns:
	//   - mgl32.Vec3: the tint
	ColorTint() mgl32.Vec3

	// SetColorTint replaces the RGB multiplier applied to the albedo.
	//
	// Parameters:
	//   - tint: the new tint
	SetColorTint(tint mgl32.Vec3)

	// Roughness retrieves the roughness factor, 0 for smooth and 1 for fully rough.
	//
	// Returns:
	//   - float32: the roughness factor
	Roughness() float32

	// SetRoughness replaces the roughness factor.
	//
	// Parameters:
	//   - roughness: the new factor
	SetRoughness(roughness float32)

	// AddTextureSRV records the texture view bound to a pixel shader texture variable. A second
	// call with the same name replaces the earlier view.
	//
	// Parameters:
	//   - name: the WGSL texture variable name, e.g. "Albedo"
	//   - srv: the view to bind
	AddTextureSRV(name string, srv device.ShaderResourceView)

	// AddSampler records the sampler bound to a pixel shader sampler variable. A second call with
	// the same name replaces the earlier sampler.
	//
	// Parameters:
	//   - name: the WGSL sampler variable name, e.g. "BasicSampler"
	//   - sampler: the sampler to bind
	AddSampler(name string, sampler device.SamplerState)

	// TextureSRV returns the view recorded for name.
	TextureSRV(name string) (device.ShaderResourceView, bool)

	// Sampler returns the sampler recorded for name.
	Sampler(name string) (device.SamplerState, bool)

	// TextureNames returns the recorded texture names in sorted order.
	TextureNames() []string

	// SamplerNames returns the recorded sampler names in sorted order.
	SamplerNames() []string

	// BindTexturesAndSamplers binds every recorded texture and sampler to the slot the pixel
	// program reflected for its name. Names the program does not declare are skipped.
	BindTexturesAndSamplers()
}

var _ Material = &material{}

// NewMaterial creates a new Material from a program pair with the specified options applied.
// It panics when a program is nil or was created for the wrong stage.
//
// Parameters:
//   - name: the identifier for the material
//   - vs: the vertex program
//   - ps: the pixel program
//   - options: a variadic list of MaterialBuilderOption functions to configure the Material
//
// Returns:
//   - Material: a new instance of Material configured with the provided options
func NewMaterial(name string, vs, ps shader.Program, options ...MaterialBuilderOption) Material {
	if vs == nil || ps == nil {
		panic(fmt.Sprintf("material: %q needs both a vertex and a pixel program", name))
	}
	if vs.Stage() != device.StageVertex || ps.Stage() != device.StagePixel {
		panic(fmt.Sprintf("material: %q got a %s and a %s program", name, vs.Stage(), ps.Stage()))
	}

	m := &material{
		name:      name,
		vs:        vs,
		ps:        ps,
		colorTint: mgl32.Vec3{1, 1, 1},
		roughness: 1,
		textures:  make(map[string]device.ShaderResourceView),
		samplers:  make(map[string]device.SamplerState),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *material) Name() string {
	return m.name
}

func (m *material) VertexShader() shader.Program {
	return m.vs
}

func (m *material) PixelShader() shader.Program {
	return m.ps
}

func (m *material) ColorTint() mgl32.Vec3 {
	return m.colorTint
}

func (m *material) SetColorTint(tint mgl32.Vec3) {
	m.colorTint = tint
}

func (m *material) Roughness() float32 {
	return m.roughness
}

func (m *material) SetRoughness(roughness float32) {
	m.roughness = roughness
}

func (m *material) AddTextureSRV(name string, srv device.ShaderResourceView) {
	m.textures[name] = srv
}

func (m *material) AddSampler(name string, sampler device.SamplerState) {
	m.samplers[name] = sampler
}

func (m *material) TextureSRV(name string) (device.ShaderResourceView, bool) {
	srv, ok := m.textures[name]
	return srv, ok
}

func (m *material) Sampler(name string) (device.SamplerState, bool) {
	s, ok := m.samplers[name]
	return s, ok
}

func (m *material) TextureNames() []string {
	return slices.Sorted(maps.Keys(m.textures))
}

func (m *material) SamplerNames() []string {
	return slices.Sorted(maps.Keys(m.samplers))
}

func (m *material) BindTexturesAndSamplers() {
	for name, srv := range m.textures {
		m.ps.SetShaderResourceView(name, srv)
	}
	for name, s := range m.samplers {
		m.ps.SetSamplerState(name, s)
	}
}
