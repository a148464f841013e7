package soft

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-toon/common"
	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/device"
	"github.com/go-gl/mathgl/mgl32"
)

// Varying is the interpolated output of a vertex kernel. Position is in clip space.
type Varying struct {
	Position      mgl32.Vec4
	WorldPosition mgl32.Vec3
	Normal        mgl32.Vec3
	Tangent       mgl32.Vec3
	UV            mgl32.Vec2
}

// VertexKernel is the Go implementation of a vertex shader entry point.
type VertexKernel func(u *Uniforms, in device.Vertex, vertexID int) Varying

// PixelKernel is the Go implementation of a pixel shader entry point.
type PixelKernel func(env *PixelEnv, in Varying) mgl32.Vec4

var (
	kernelsMu     sync.RWMutex
	vertexKernels = map[string]VertexKernel{}
	pixelKernels  = map[string]PixelKernel{}
)

// RegisterVertexKernel makes a vertex kernel available to CreateVertexShader under the shader key.
//
// Parameters:
//   - key: the shader key, as passed in device.ShaderDesc.Key
//   - k: the kernel
func RegisterVertexKernel(key string, k VertexKernel) {
	kernelsMu.Lock()
	defer kernelsMu.Unlock()
	vertexKernels[key] = k
}

// RegisterPixelKernel makes a pixel kernel available to CreatePixelShader under the shader key.
//
// Parameters:
//   - key: the shader key, as passed in device.ShaderDesc.Key
//   - k: the kernel
func RegisterPixelKernel(key string, k PixelKernel) {
	kernelsMu.Lock()
	defer kernelsMu.Unlock()
	pixelKernels[key] = k
}

func lookupVertexKernel(key string) (VertexKernel, bool) {
	kernelsMu.RLock()
	defer kernelsMu.RUnlock()
	k, ok := vertexKernels[key]
	return k, ok
}

func lookupPixelKernel(key string) (PixelKernel, bool) {
	kernelsMu.RLock()
	defer kernelsMu.RUnlock()
	k, ok := pixelKernels[key]
	return k, ok
}

// Uniforms reads uniform block members by name from the constant buffers bound to one stage,
// using the stage's reflection for placement.
type Uniforms struct {
	refl    *device.ShaderReflection
	buffers *[device.MaxConstantBufferSlots]*Buffer
}

// raw returns the bytes backing a member. A missing member or an unbound block is a fatal
// binding error.
func (u *Uniforms) raw(name string) ([]byte, device.UniformField) {
	b, f, ok := u.refl.Field(name)
	if !ok {
		panic(fmt.Errorf("soft: uniform %q is not declared by the bound %s shader", name, u.refl.Stage))
	}
	if b.Slot >= len(u.buffers) || u.buffers[b.Slot] == nil {
		panic(fmt.Errorf("soft: uniform block %q (slot %d) is not bound", b.Name, b.Slot))
	}
	buf := u.buffers[b.Slot]
	mustLive(buf)
	if f.Offset+f.Size > len(buf.data) {
		panic(fmt.Errorf("soft: uniform block %q is smaller than its reflected layout", b.Name))
	}
	return buf.data[f.Offset : f.Offset+f.Size], f
}

// Float reads an f32 member.
func (u *Uniforms) Float(name string) float32 {
	b, _ := u.raw(name)
	return common.Float32At(b, 0)
}

// Uint reads a u32 member.
func (u *Uniforms) Uint(name string) uint32 {
	b, _ := u.raw(name)
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// Vec2 reads a vec2<f32> member.
func (u *Uniforms) Vec2(name string) mgl32.Vec2 {
	b, _ := u.raw(name)
	return mgl32.Vec2{common.Float32At(b, 0), common.Float32At(b, 4)}
}

// Vec3 reads a vec3<f32> member.
func (u *Uniforms) Vec3(name string) mgl32.Vec3 {
	b, _ := u.raw(name)
	return mgl32.Vec3{common.Float32At(b, 0), common.Float32At(b, 4), common.Float32At(b, 8)}
}

// Vec4 reads a vec4<f32> member.
func (u *Uniforms) Vec4(name string) mgl32.Vec4 {
	b, _ := u.raw(name)
	return mgl32.Vec4{common.Float32At(b, 0), common.Float32At(b, 4), common.Float32At(b, 8), common.Float32At(b, 12)}
}

// Mat4 reads a mat4x4<f32> member.
func (u *Uniforms) Mat4(name string) mgl32.Mat4 {
	b, _ := u.raw(name)
	var m mgl32.Mat4
	for i := range m {
		m[i] = common.Float32At(b, i*4)
	}
	return m
}

// Bytes returns the raw bytes of a member, typically an array of structs.
func (u *Uniforms) Bytes(name string) []byte {
	b, _ := u.raw(name)
	return b
}

// PixelEnv is the environment of a pixel kernel invocation: its uniforms plus the textures
// and samplers bound to the pixel stage.
type PixelEnv struct {
	Uniforms

	// FragCoord is the pixel center in target coordinates.
	FragCoord mgl32.Vec2

	srvs     *[device.MaxShaderResourceSlots]*ShaderResourceView
	samplers *[device.MaxSamplerSlots]*Sampler
}

// Sample samples a texture through a sampler, both addressed by their declared variable names.
// An unbound texture samples as zero; an unbound sampler uses device.DefaultSamplerDesc.
//
// Parameters:
//   - texture: the WGSL texture variable name
//   - sampler: the WGSL sampler variable name
//   - uv: texture coordinates
//
// Returns:
//   - mgl32.Vec4: the filtered RGBA value in [0, 1]
func (e *PixelEnv) Sample(texture, sampler string, uv mgl32.Vec2) mgl32.Vec4 {
	srv := e.view(texture)
	if srv == nil {
		return mgl32.Vec4{}
	}
	desc := device.DefaultSamplerDesc
	if b, ok := e.refl.Binding(device.BindingSampler, sampler); ok && b.Slot < len(e.samplers) {
		if s := e.samplers[b.Slot]; s != nil {
			mustLive(s)
			desc = s.desc
		}
	}
	return sampleTexture(srv.tex, desc, uv)
}

// TextureSize returns the dimensions of the texture bound under the variable name, or 0, 0 when unbound.
func (e *PixelEnv) TextureSize(texture string) (int, int) {
	srv := e.view(texture)
	if srv == nil {
		return 0, 0
	}
	return srv.tex.Width(), srv.tex.Height()
}

func (e *PixelEnv) view(texture string) *ShaderResourceView {
	b, ok := e.refl.Binding(device.BindingTexture, texture)
	if !ok || b.Slot >= len(e.srvs) {
		return nil
	}
	srv := e.srvs[b.Slot]
	if srv == nil {
		return nil
	}
	mustLive(srv)
	return srv
}
