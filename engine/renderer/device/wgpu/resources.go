package wgpudev

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/device"
	"github.com/cogentcore/webgpu/wgpu"
)

type resource struct {
	label    string
	released bool
}

func (r *resource) Label() string {
	return r.label
}

func (r *resource) Released() bool {
	return r.released
}

// Texture wraps a GPU texture and its default view. The swap-chain backbuffer is a Texture with
// no GPU objects of its own: its view is the surface image acquired for the current frame.
type Texture struct {
	resource
	desc   device.TextureDesc
	format wgpu.TextureFormat
	gpu    *wgpu.Texture
	view   *wgpu.TextureView
	chain  *SwapChain
}

var _ device.Texture2D = &Texture{}

func (t *Texture) Width() int {
	return t.desc.Width
}

func (t *Texture) Height() int {
	return t.desc.Height
}

func (t *Texture) Format() device.Format {
	return t.desc.Format
}

func (t *Texture) Release() {
	if t.released {
		return
	}
	t.released = true
	if t.view != nil {
		t.view.Release()
	}
	if t.gpu != nil {
		t.gpu.Release()
	}
}

// textureView returns the view to attach or sample, acquiring the surface image for the backbuffer.
func (t *Texture) textureView() *wgpu.TextureView {
	if t.chain != nil {
		return t.chain.frameView()
	}
	return t.view
}

type viewBase struct {
	resource
	tex *Texture
}

func (v *viewBase) Texture() device.Texture2D {
	return v.tex
}

// Release marks the view released. Views share their texture's GPU view, which the texture frees.
func (v *viewBase) Release() {
	v.released = true
}

func (v *viewBase) Released() bool {
	return v.released || v.tex.released
}

// RenderTargetView is a WebGPU render-target view.
type RenderTargetView struct{ viewBase }

// ShaderResourceView is a WebGPU shader-resource view.
type ShaderResourceView struct{ viewBase }

// DepthStencilView is a WebGPU depth view.
type DepthStencilView struct{ viewBase }

var (
	_ device.RenderTargetView   = &RenderTargetView{}
	_ device.ShaderResourceView = &ShaderResourceView{}
	_ device.DepthStencilView   = &DepthStencilView{}
)

// Sampler wraps a GPU sampler.
type Sampler struct {
	resource
	desc device.SamplerDesc
	gpu  *wgpu.Sampler
}

var _ device.SamplerState = &Sampler{}

func (s *Sampler) Desc() device.SamplerDesc {
	return s.desc
}

func (s *Sampler) Release() {
	if s.released {
		return
	}
	s.released = true
	s.gpu.Release()
}

// Buffer is a vertex or index buffer on the GPU, or a constant buffer held as a CPU shadow.
// Constant buffers are copied into the frame's uniform arena at every draw that reads them.
type Buffer struct {
	resource
	desc   device.BufferDesc
	size   int
	gpu    *wgpu.Buffer
	shadow []byte
}

var _ device.Buffer = &Buffer{}

func (b *Buffer) Size() int {
	return b.size
}

func (b *Buffer) Usage() device.BufferUsage {
	return b.desc.Usage
}

func (b *Buffer) Release() {
	if b.released {
		return
	}
	b.released = true
	if b.gpu != nil {
		b.gpu.Release()
	}
	b.shadow = nil
}

// shaderBase holds a compiled module and the bind group layout of its stage's group.
type shaderBase struct {
	resource
	dev    *Device
	desc   device.ShaderDesc
	module *wgpu.ShaderModule
	layout *wgpu.BindGroupLayout

	// empty is the shared bind group of a stage that declares no resources.
	empty *wgpu.BindGroup
}

func (s *shaderBase) Reflection() *device.ShaderReflection {
	return s.desc.Reflection
}

func (s *shaderBase) Release() {
	if s.released {
		return
	}
	s.released = true
	s.dev.ctx.dropPipelines(s)
	if s.empty != nil {
		s.empty.Release()
	}
	s.layout.Release()
	s.module.Release()
}

// VertexShader is a compiled vertex stage.
type VertexShader struct{ shaderBase }

// PixelShader is a compiled pixel stage.
type PixelShader struct{ shaderBase }

var (
	_ device.VertexShader = &VertexShader{}
	_ device.PixelShader  = &PixelShader{}
)

func mustLive(r device.Resource) {
	if r.Released() {
		panic(fmt.Errorf("wgpu: %q: %w", r.Label(), device.ErrReleased))
	}
}

func asTexture(t device.Texture2D) *Texture {
	wt, ok := t.(*Texture)
	if !ok || wt == nil {
		panic(fmt.Errorf("wgpu: %w: texture %T was not created by the WebGPU device", device.ErrInvalidDesc, t))
	}
	return wt
}

func asRTV(v device.RenderTargetView) *RenderTargetView {
	r, ok := v.(*RenderTargetView)
	if !ok || r == nil {
		panic(fmt.Errorf("wgpu: %w: render target view %T", device.ErrInvalidDesc, v))
	}
	return r
}

func asDSV(v device.DepthStencilView) *DepthStencilView {
	d, ok := v.(*DepthStencilView)
	if !ok || d == nil {
		panic(fmt.Errorf("wgpu: %w: depth stencil view %T", device.ErrInvalidDesc, v))
	}
	return d
}

func asBuffer(b device.Buffer) *Buffer {
	wb, ok := b.(*Buffer)
	if !ok || wb == nil {
		panic(fmt.Errorf("wgpu: %w: buffer %T", device.ErrInvalidDesc, b))
	}
	return wb
}
