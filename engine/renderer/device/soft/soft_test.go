package soft

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-toon/common"
	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/device"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	RegisterVertexKernel("test_passthrough", func(_ *Uniforms, in device.Vertex, _ int) Varying {
		return Varying{Position: in.Position.Vec4(1), UV: in.UV}
	})
	RegisterPixelKernel("test_color", func(env *PixelEnv, _ Varying) mgl32.Vec4 {
		return env.Vec4("color")
	})
}

var colorReflection = &device.ShaderReflection{
	Stage:      device.StagePixel,
	EntryPoint: "fs_main",
	Bindings: []device.Binding{{
		Group: 1, Slot: 0, Name: "params", Kind: device.BindingUniform, Size: 16,
		Fields: []device.UniformField{{Name: "color", Type: "vec4<f32>", Offset: 0, Size: 16}},
	}},
}

var sampleReflection = &device.ShaderReflection{
	Stage:      device.StagePixel,
	EntryPoint: "fs_main",
	Bindings: []device.Binding{
		{Group: 1, Slot: 0, Name: "source", Kind: device.BindingTexture},
		{Group: 1, Slot: 1, Name: "sourceSampler", Kind: device.BindingSampler},
	},
}

type fixture struct {
	dev   *Device
	ctx   *Context
	vs    device.VertexShader
	ps    device.PixelShader
	cb    device.Buffer
	quad  device.Buffer
	index device.Buffer
}

func newFixture(t *testing.T, w, h int) *fixture {
	t.Helper()
	dev, err := NewDevice(w, h, WithDrawLog())
	require.NoError(t, err)

	vs, err := dev.CreateVertexShader(device.ShaderDesc{
		Key:        "test_passthrough",
		Reflection: &device.ShaderReflection{Stage: device.StageVertex, EntryPoint: "vs_main"},
	})
	require.NoError(t, err)
	ps, err := dev.CreatePixelShader(device.ShaderDesc{Key: "test_color", Reflection: colorReflection})
	require.NoError(t, err)
	cb, err := dev.CreateBuffer(device.BufferDesc{Label: "params", Size: 16, Usage: device.BufferConstant}, nil)
	require.NoError(t, err)

	f := &fixture{dev: dev, ctx: dev.Immediate(), vs: vs, ps: ps, cb: cb}
	f.quad, f.index = quadAtDepth(t, dev, "quad", 0.5, 1)
	return f
}

// quadAtDepth builds a quad in clip space covering the given fraction of the viewport.
func quadAtDepth(t *testing.T, dev *Device, label string, z, extent float32) (device.Buffer, device.Buffer) {
	t.Helper()
	verts := []device.Vertex{
		{Position: mgl32.Vec3{-extent, -extent, z}, UV: mgl32.Vec2{0, 1}},
		{Position: mgl32.Vec3{extent, -extent, z}, UV: mgl32.Vec2{1, 1}},
		{Position: mgl32.Vec3{extent, extent, z}, UV: mgl32.Vec2{1, 0}},
		{Position: mgl32.Vec3{-extent, extent, z}, UV: mgl32.Vec2{0, 0}},
	}
	vb, err := dev.CreateBuffer(device.BufferDesc{Label: label, Usage: device.BufferVertex}, device.VertexBytes(verts))
	require.NoError(t, err)
	ib, err := dev.CreateBuffer(device.BufferDesc{Label: label + ".idx", Usage: device.BufferIndex},
		device.IndexBytes([]uint32{0, 1, 2, 0, 2, 3}))
	require.NoError(t, err)
	return vb, ib
}

func (f *fixture) drawQuad(vb, ib device.Buffer, color mgl32.Vec4) {
	data := make([]byte, 16)
	common.PutFloat32s(data, color[:]...)
	f.ctx.UpdateBuffer(f.cb, data)
	f.ctx.SetVertexShader(f.vs)
	f.ctx.SetPixelShader(f.ps)
	f.ctx.SetConstantBuffer(device.StagePixel, 0, f.cb)
	f.ctx.SetVertexBuffer(vb, device.VertexStride)
	f.ctx.SetIndexBuffer(ib)
	f.ctx.DrawIndexed(6, 0, 0)
}

func (f *fixture) bindBackbuffer() {
	sc := f.dev.SwapChain()
	f.ctx.SetRenderTargets([]device.RenderTargetView{sc.BackbufferView()}, sc.DepthStencilView())
}

// panicsWith asserts fn panics with an error wrapping target.
func panicsWith(t *testing.T, target error, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		require.NotNil(t, r, "expected a panic")
		err, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		assert.True(t, errors.Is(err, target), "panic %v does not wrap %v", err, target)
	}()
	fn()
}

func TestDrawIndexedFillsCoveredPixels(t *testing.T) {
	f := newFixture(t, 8, 8)
	sc := f.dev.SwapChain()
	f.ctx.ClearRenderTargetView(sc.BackbufferView(), mgl32.Vec4{0, 0, 0, 1})
	f.ctx.ClearDepthStencilView(sc.DepthStencilView(), 1)
	f.bindBackbuffer()

	f.drawQuad(f.quad, f.index, mgl32.Vec4{1, 0, 0, 1})
	require.NoError(t, sc.Present(false))

	front := f.dev.Frontbuffer()
	for y := range 8 {
		for x := range 8 {
			assert.Equal(t, uint8(255), front.RGBAAt(x, y).R, "pixel %d,%d", x, y)
		}
	}
	require.Len(t, f.ctx.Draws(), 1)
	assert.Equal(t, "quad", f.ctx.Draws()[0].VertexBuffer)
	assert.Equal(t, "test_color", f.ctx.Draws()[0].PixelShader)
}

func TestDepthTestKeepsNearestSurface(t *testing.T) {
	f := newFixture(t, 4, 4)
	sc := f.dev.SwapChain()
	f.ctx.ClearRenderTargetView(sc.BackbufferView(), mgl32.Vec4{})
	f.ctx.ClearDepthStencilView(sc.DepthStencilView(), 1)
	f.bindBackbuffer()

	nearVB, nearIB := quadAtDepth(t, f.dev, "near", 0.2, 1)
	farVB, farIB := quadAtDepth(t, f.dev, "far", 0.8, 1)
	f.drawQuad(nearVB, nearIB, mgl32.Vec4{0, 1, 0, 1})
	f.drawQuad(farVB, farIB, mgl32.Vec4{0, 0, 1, 1})

	back := sc.BackbufferView().Texture().(*Texture)
	px := back.Image().RGBAAt(2, 2)
	assert.Equal(t, uint8(255), px.G)
	assert.Equal(t, uint8(0), px.B)
	assert.InDelta(t, 0.2, sc.DepthStencilView().Texture().(*Texture).DepthAt(2, 2), 1e-5)
}

func TestBindingRenderTargetAsInputIsForcedToNull(t *testing.T) {
	f := newFixture(t, 4, 4)
	tex, err := f.dev.CreateTexture2D(device.TextureDesc{
		Label: "offscreen", Width: 4, Height: 4,
		Bind: device.BindRenderTarget | device.BindShaderResource,
	}, nil)
	require.NoError(t, err)
	rtv, err := f.dev.CreateRenderTargetView(tex)
	require.NoError(t, err)
	srv, err := f.dev.CreateShaderResourceView(tex)
	require.NoError(t, err)

	f.ctx.SetRenderTargets([]device.RenderTargetView{rtv}, nil)
	f.ctx.SetShaderResources(device.StagePixel, 0, []device.ShaderResourceView{srv})
	assert.Nil(t, f.ctx.BoundShaderResource(device.StagePixel, 0))
	assert.Equal(t, 1, f.ctx.HazardCount())

	f.bindBackbuffer()
	f.ctx.SetShaderResources(device.StagePixel, 0, []device.ShaderResourceView{srv})
	require.NotNil(t, f.ctx.BoundShaderResource(device.StagePixel, 0))

	f.ctx.SetRenderTargets([]device.RenderTargetView{rtv}, nil)
	assert.Nil(t, f.ctx.BoundShaderResource(device.StagePixel, 0))
	assert.Equal(t, 2, f.ctx.HazardCount())
}

func TestReleasedResourcesPanicWhenBound(t *testing.T) {
	f := newFixture(t, 4, 4)
	tex, err := f.dev.CreateTexture2D(device.TextureDesc{
		Label: "target", Width: 4, Height: 4,
		Bind: device.BindRenderTarget | device.BindShaderResource,
	}, nil)
	require.NoError(t, err)
	rtv, err := f.dev.CreateRenderTargetView(tex)
	require.NoError(t, err)
	srv, err := f.dev.CreateShaderResourceView(tex)
	require.NoError(t, err)

	tex.Release()
	assert.True(t, rtv.Released())
	assert.True(t, srv.Released())
	panicsWith(t, device.ErrReleased, func() {
		f.ctx.SetRenderTargets([]device.RenderTargetView{rtv}, nil)
	})
	panicsWith(t, device.ErrReleased, func() {
		f.ctx.SetShaderResources(device.StagePixel, 0, []device.ShaderResourceView{srv})
	})

	f.cb.Release()
	panicsWith(t, device.ErrReleased, func() {
		f.ctx.SetConstantBuffer(device.StagePixel, 0, f.cb)
	})
}

func TestPresentUnbindsRenderTargets(t *testing.T) {
	f := newFixture(t, 4, 4)
	f.bindBackbuffer()
	require.NoError(t, f.dev.SwapChain().Present(true))
	assert.Empty(t, f.ctx.BoundRenderTargets())
	panicsWith(t, device.ErrNoRenderTarget, func() {
		f.drawQuad(f.quad, f.index, mgl32.Vec4{1, 1, 1, 1})
	})
}

func TestDrawWithoutShaderPanics(t *testing.T) {
	f := newFixture(t, 4, 4)
	f.bindBackbuffer()
	f.ctx.SetVertexShader(f.vs)
	f.ctx.SetPixelShader(nil)
	panicsWith(t, device.ErrNoShader, func() {
		f.ctx.Draw(3, 0)
	})
}

func TestResizeBuffersReleasesOldHandles(t *testing.T) {
	f := newFixture(t, 4, 4)
	sc := f.dev.SwapChain()
	oldRTV := sc.BackbufferView()
	oldDSV := sc.DepthStencilView()

	require.NoError(t, sc.ResizeBuffers(10, 6))
	assert.True(t, oldRTV.Released())
	assert.True(t, oldDSV.Released())
	assert.Equal(t, 10, sc.Width())
	assert.Equal(t, 6, sc.Height())
	assert.Equal(t, 10, f.dev.Frontbuffer().Bounds().Dx())
	assert.Error(t, sc.ResizeBuffers(0, 6))
}

func TestSampleUsesBoundSamplerAddressing(t *testing.T) {
	dev, err := NewDevice(2, 1)
	require.NoError(t, err)
	ctx := dev.Immediate()

	// Left texel red, right texel blue.
	tex, err := dev.CreateTexture2D(device.TextureDesc{
		Label: "source", Width: 2, Height: 1, Bind: device.BindShaderResource,
	}, []byte{255, 0, 0, 255, 0, 0, 255, 255})
	require.NoError(t, err)
	srv, err := dev.CreateShaderResourceView(tex)
	require.NoError(t, err)
	point, err := dev.CreateSamplerState(device.SamplerDesc{Filter: device.FilterPoint, AddressU: device.AddressWrap})
	require.NoError(t, err)

	var samplers [device.MaxSamplerSlots]*Sampler
	var srvs [device.MaxShaderResourceSlots]*ShaderResourceView
	env := &PixelEnv{Uniforms: Uniforms{refl: sampleReflection}, srvs: &srvs, samplers: &samplers}

	assert.Equal(t, mgl32.Vec4{}, env.Sample("source", "sourceSampler", mgl32.Vec2{0.25, 0.5}))

	ctx.SetShaderResources(device.StagePixel, 0, []device.ShaderResourceView{srv})
	ctx.SetSamplers(device.StagePixel, 1, []device.SamplerState{point})
	srvs = ctx.srvs[device.StagePixel]
	samplers = ctx.samplers[device.StagePixel]

	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, env.Sample("source", "sourceSampler", mgl32.Vec2{0.25, 0.5}))
	assert.Equal(t, mgl32.Vec4{0, 0, 1, 1}, env.Sample("source", "sourceSampler", mgl32.Vec2{0.75, 0.5}))
	// Wrapping past the right edge lands on the left texel again.
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, env.Sample("source", "sourceSampler", mgl32.Vec2{1.25, 0.5}))
}

func TestAddressModes(t *testing.T) {
	assert.Equal(t, 3, address(-1, 4, device.AddressWrap))
	assert.Equal(t, 0, address(4, 4, device.AddressWrap))
	assert.Equal(t, 0, address(-1, 4, device.AddressClamp))
	assert.Equal(t, 3, address(9, 4, device.AddressClamp))
	assert.Equal(t, 0, address(-1, 4, device.AddressMirror))
	assert.Equal(t, 3, address(4, 4, device.AddressMirror))
	assert.Equal(t, 1, address(6, 4, device.AddressMirror))
}

func TestTrianglesBehindTheEyeAreClipped(t *testing.T) {
	f := newFixture(t, 4, 4)
	sc := f.dev.SwapChain()
	f.ctx.ClearRenderTargetView(sc.BackbufferView(), mgl32.Vec4{})
	f.ctx.ClearDepthStencilView(sc.DepthStencilView(), 1)
	f.bindBackbuffer()

	behind, behindIdx := quadAtDepth(t, f.dev, "behind", -0.5, 1)
	f.drawQuad(behind, behindIdx, mgl32.Vec4{1, 1, 1, 1})

	img := sc.BackbufferView().Texture().(*Texture).Image()
	for _, p := range []int{0, 4, 8, 12} {
		assert.Zero(t, img.Pix[p*4])
	}
}
