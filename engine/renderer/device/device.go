// Package device defines the immediate-mode graphics device the renderer core is written
// against: resource creation, a single command context, and a swap chain. Implementations live
// in the soft (CPU rasterizer) and wgpu (WebGPU) sub-packages.
//
// Creation calls return errors. Per-frame context calls do not: misuse such as binding a
// released resource panics with one of the sentinel errors below, which the host treats as fatal.
package device

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxShaderResourceSlots is the number of shader-resource slots per stage.
const MaxShaderResourceSlots = 128

// MaxSamplerSlots is the number of sampler slots per stage.
const MaxSamplerSlots = 16

// MaxConstantBufferSlots is the number of constant-buffer slots per stage.
const MaxConstantBufferSlots = 14

var (
	// ErrReleased is raised when a released resource is bound or used.
	ErrReleased = errors.New("device: resource has been released")

	// ErrNoRenderTarget is raised when a draw or present happens with no render target bound.
	ErrNoRenderTarget = errors.New("device: no render target bound")

	// ErrNoShader is raised when a draw happens without both shader stages bound.
	ErrNoShader = errors.New("device: shader stage not bound")

	// ErrUnknownShader is returned when a backend has no implementation for a shader key.
	ErrUnknownShader = errors.New("device: unknown shader")

	// ErrInvalidDesc is returned when a resource description is malformed.
	ErrInvalidDesc = errors.New("device: invalid resource description")
)

// Resource is the common surface of every device object.
type Resource interface {
	// Label returns the debug label given at creation.
	Label() string

	// Release frees the resource. Handles stay allocated but report Released and panic when bound.
	Release()

	// Released reports whether Release has been called.
	Released() bool
}

// Texture2D is a two-dimensional texture.
type Texture2D interface {
	Resource
	Width() int
	Height() int
	Format() Format
}

// RenderTargetView is a writable view of a color texture.
type RenderTargetView interface {
	Resource
	Texture() Texture2D
}

// ShaderResourceView is a read-only view of a texture for sampling.
type ShaderResourceView interface {
	Resource
	Texture() Texture2D
}

// DepthStencilView is a writable view of a depth texture.
type DepthStencilView interface {
	Resource
	Texture() Texture2D
}

// SamplerState holds addressing and filtering configuration.
type SamplerState interface {
	Resource
	Desc() SamplerDesc
}

// Buffer is a vertex, index or constant buffer.
type Buffer interface {
	Resource
	Size() int
	Usage() BufferUsage
}

// VertexShader is a compiled vertex stage.
type VertexShader interface {
	Resource
	Reflection() *ShaderReflection
}

// PixelShader is a compiled pixel stage.
type PixelShader interface {
	Resource
	Reflection() *ShaderReflection
}

// Device creates resources and owns the immediate context and swap chain.
type Device interface {
	// CreateTexture2D creates a texture. pixels may be nil; when set it must hold
	// Width*Height*4 bytes of RGBA8 data.
	CreateTexture2D(desc TextureDesc, pixels []byte) (Texture2D, error)

	// CreateRenderTargetView creates a writable view. The texture needs BindRenderTarget.
	CreateRenderTargetView(tex Texture2D) (RenderTargetView, error)

	// CreateShaderResourceView creates a sampling view. The texture needs BindShaderResource.
	CreateShaderResourceView(tex Texture2D) (ShaderResourceView, error)

	// CreateDepthStencilView creates a depth view. The texture needs BindDepthStencil.
	CreateDepthStencilView(tex Texture2D) (DepthStencilView, error)

	// CreateSamplerState creates a sampler.
	CreateSamplerState(desc SamplerDesc) (SamplerState, error)

	// CreateBuffer creates a buffer, optionally filled with data.
	CreateBuffer(desc BufferDesc, data []byte) (Buffer, error)

	// CreateVertexShader creates a vertex stage from a reflected shader description.
	CreateVertexShader(desc ShaderDesc) (VertexShader, error)

	// CreatePixelShader creates a pixel stage from a reflected shader description.
	CreatePixelShader(desc ShaderDesc) (PixelShader, error)

	// Context returns the immediate context.
	Context() Context

	// SwapChain returns the presentation swap chain.
	SwapChain() SwapChain

	// Release frees the device and everything it created.
	Release()
}

// Context records and executes commands in submission order.
type Context interface {
	ClearRenderTargetView(rtv RenderTargetView, color mgl32.Vec4)
	ClearDepthStencilView(dsv DepthStencilView, depth float32)

	// SetRenderTargets binds color targets and an optional depth target. Passing no views unbinds all.
	SetRenderTargets(rtvs []RenderTargetView, dsv DepthStencilView)
	SetViewport(vp Viewport)

	SetVertexShader(vs VertexShader)
	SetPixelShader(ps PixelShader)

	SetConstantBuffer(stage Stage, slot int, buf Buffer)

	// SetShaderResources binds views to consecutive slots starting at start. nil entries unbind.
	SetShaderResources(stage Stage, start int, views []ShaderResourceView)

	// SetSamplers binds samplers to consecutive slots starting at start. nil entries unbind.
	SetSamplers(stage Stage, start int, samplers []SamplerState)

	// UpdateBuffer replaces the buffer contents. Draws issued afterwards observe the new data.
	UpdateBuffer(buf Buffer, data []byte)

	// SetVertexBuffer binds the vertex buffer. nil unbinds it.
	SetVertexBuffer(buf Buffer, stride int)

	// SetIndexBuffer binds a uint32 index buffer. nil unbinds it.
	SetIndexBuffer(buf Buffer)

	SetDepthState(state DepthState)
	SetRasterState(state RasterState)

	// Draw draws non-indexed vertices. The vertex stage may synthesize positions from the vertex index.
	Draw(vertexCount, startVertex int)

	// DrawIndexed draws indexed triangles from the bound vertex and index buffers.
	DrawIndexed(indexCount, startIndex, baseVertex int)
}

// SwapChain owns the backbuffer and depth buffer presented to the display.
type SwapChain interface {
	Width() int
	Height() int

	// BackbufferView returns the current backbuffer target. The handle changes after ResizeBuffers.
	BackbufferView() RenderTargetView

	// DepthStencilView returns the depth buffer shared by every pass. The handle changes after ResizeBuffers.
	DepthStencilView() DepthStencilView

	// ResizeBuffers recreates the backbuffer and depth buffer, releasing the previous handles.
	ResizeBuffers(width, height int) error

	// Present shows the backbuffer and unbinds all render targets from the context.
	Present(vsync bool) error
}
