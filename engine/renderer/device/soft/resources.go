package soft

import (
	"fmt"
	"image"

	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/device"
)

// resource carries the label and release flag shared by every software resource.
type resource struct {
	label    string
	released bool
}

func (r *resource) Label() string {
	return r.label
}

func (r *resource) Release() {
	r.released = true
}

func (r *resource) Released() bool {
	return r.released
}

// Texture is a software texture. Color formats are backed by an *image.RGBA, depth by float32 texels.
type Texture struct {
	resource
	desc  device.TextureDesc
	color *image.RGBA
	depth []float32
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

// Image returns the color texels. It returns nil for depth textures.
func (t *Texture) Image() *image.RGBA {
	return t.color
}

// DepthAt returns the stored depth at (x, y). It returns 1 for color textures.
func (t *Texture) DepthAt(x, y int) float32 {
	if t.depth == nil {
		return 1
	}
	return t.depth[y*t.desc.Width+x]
}

// viewBase is embedded by every view type; a view is released when either it or its texture is.
type viewBase struct {
	resource
	tex *Texture
}

func (v *viewBase) Texture() device.Texture2D {
	return v.tex
}

func (v *viewBase) Released() bool {
	return v.released || v.tex.released
}

// RenderTargetView is a software render-target view.
type RenderTargetView struct{ viewBase }

// ShaderResourceView is a software shader-resource view.
type ShaderResourceView struct{ viewBase }

// DepthStencilView is a software depth view.
type DepthStencilView struct{ viewBase }

var (
	_ device.RenderTargetView   = &RenderTargetView{}
	_ device.ShaderResourceView = &ShaderResourceView{}
	_ device.DepthStencilView   = &DepthStencilView{}
)

// Sampler is a software sampler state.
type Sampler struct {
	resource
	desc device.SamplerDesc
}

var _ device.SamplerState = &Sampler{}

func (s *Sampler) Desc() device.SamplerDesc {
	return s.desc
}

// Buffer is a software buffer holding its bytes in memory.
type Buffer struct {
	resource
	desc device.BufferDesc
	data []byte
}

var _ device.Buffer = &Buffer{}

func (b *Buffer) Size() int {
	return len(b.data)
}

func (b *Buffer) Usage() device.BufferUsage {
	return b.desc.Usage
}

// Bytes returns the buffer contents. The slice aliases the buffer.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// VertexShader pairs a reflected shader with its vertex kernel.
type VertexShader struct {
	resource
	desc   device.ShaderDesc
	kernel VertexKernel
}

// PixelShader pairs a reflected shader with its pixel kernel.
type PixelShader struct {
	resource
	desc   device.ShaderDesc
	kernel PixelKernel
}

var (
	_ device.VertexShader = &VertexShader{}
	_ device.PixelShader  = &PixelShader{}
)

func (s *VertexShader) Reflection() *device.ShaderReflection {
	return s.desc.Reflection
}

func (s *PixelShader) Reflection() *device.ShaderReflection {
	return s.desc.Reflection
}

// mustLive panics with device.ErrReleased if r has been released.
func mustLive(r device.Resource) {
	if r.Released() {
		panic(fmt.Errorf("soft: %q: %w", r.Label(), device.ErrReleased))
	}
}

// asTexture converts a device texture into the software type, panicking on foreign implementations.
func asTexture(t device.Texture2D) *Texture {
	st, ok := t.(*Texture)
	if !ok {
		panic(fmt.Errorf("soft: %w: texture %T was not created by the software device", device.ErrInvalidDesc, t))
	}
	return st
}
