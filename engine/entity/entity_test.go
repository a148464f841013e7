package entity

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-toon/engine/camera"
	"github.com/Carmen-Shannon/oxy-toon/engine/mesh"
	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/device/soft"
	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/shader"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	dev  *soft.Device
	ctx  *soft.Context
	cube *mesh.Mesh
	mat  material.Material
	cam  camera.Camera
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dev, err := soft.NewDevice(16, 16, soft.WithDrawLog())
	require.NoError(t, err)

	lib := shader.NewLibrary()
	vs, err := lib.LoadVertex(dev, shader.KeyVertexLit)
	require.NoError(t, err)
	ps, err := lib.LoadPixel(dev, shader.KeyPixelToon)
	require.NoError(t, err)

	white, err := dev.CreateTexture2D(device.TextureDesc{Label: "white", Width: 1, Height: 1, Bind: device.BindShaderResource},
		[]byte{255, 255, 255, 255})
	require.NoError(t, err)
	srv, err := dev.CreateShaderResourceView(white)
	require.NoError(t, err)
	smp, err := dev.CreateSamplerState(device.DefaultSamplerDesc)
	require.NoError(t, err)

	cube, err := mesh.FromData(dev, "cube", mesh.Cube(1))
	require.NoError(t, err)

	f := &fixture{
		dev:  dev,
		ctx:  dev.Immediate(),
		cube: cube,
		mat:  material.NewMaterial("white", vs, ps, material.WithTexture("Albedo", srv), material.WithSampler("BasicSampler", smp)),
		cam:  camera.NewCamera(camera.WithPosition(mgl32.Vec3{0, 0, -3})),
	}

	sc := dev.SwapChain()
	f.ctx.ClearRenderTargetView(sc.BackbufferView(), mgl32.Vec4{0, 0, 0, 1})
	f.ctx.ClearDepthStencilView(sc.DepthStencilView(), 1)
	f.ctx.SetRenderTargets([]device.RenderTargetView{sc.BackbufferView()}, sc.DepthStencilView())
	return f
}

func (f *fixture) centerPixel() mgl32.Vec3 {
	img := f.dev.SwapChain().BackbufferView().Texture().(*soft.Texture).Image()
	c := img.RGBAAt(8, 8)
	return mgl32.Vec3{float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255}
}

func TestNewGameEntityHoldsMeshReference(t *testing.T) {
	f := newFixture(t)
	a := NewGameEntity("a", f.cube, f.mat)
	b := NewGameEntity("b", f.cube, f.mat)
	assert.Equal(t, 2, f.cube.Refs())
	require.ErrorIs(t, f.cube.Destroy(), mesh.ErrMeshInUse)

	a.Release()
	b.Release()
	b.Release()
	assert.Zero(t, f.cube.Refs())
	assert.NoError(t, f.cube.Destroy())
}

func TestCopiesShareOneMeshReference(t *testing.T) {
	f := newFixture(t)
	a := NewGameEntity("a", f.cube, f.mat)
	b := NewGameEntity("b", f.cube, f.mat)

	cp := a
	a.Release()
	cp.Release()
	assert.Nil(t, cp.Mesh())
	assert.Equal(t, 1, f.cube.Refs(), "b still holds its reference")
	require.ErrorIs(t, f.cube.Destroy(), mesh.ErrMeshInUse)

	entities := []GameEntity{b}
	for _, e := range entities {
		e.Release()
	}
	assert.Zero(t, f.cube.Refs())
	assert.NoError(t, f.cube.Destroy())
}

func TestDrawAfterReleasePanics(t *testing.T) {
	f := newFixture(t)
	e := NewGameEntity("crate", f.cube, f.mat)
	e.Release()
	assert.PanicsWithError(t, `entity "crate": draw: entity: entity has been released`, func() {
		e.Draw(f.ctx, f.cam)
	})
}

func TestDrawIssuesOneIndexedDraw(t *testing.T) {
	f := newFixture(t)
	e := NewGameEntity("crate", f.cube, f.mat)
	f.mat.PixelShader().SetFloat3("ambient", mgl32.Vec3{0.5, 0.5, 0.5})
	f.mat.BindTexturesAndSamplers()

	e.Draw(f.ctx, f.cam)

	draws := f.ctx.Draws()
	require.Len(t, draws, 1)
	assert.True(t, draws[0].Indexed)
	assert.Equal(t, 36, draws[0].Count)
	assert.Equal(t, "cube.vb", draws[0].VertexBuffer)
	assert.Equal(t, shader.KeyVertexLit, draws[0].VertexShader)
	assert.Equal(t, shader.KeyPixelToon, draws[0].PixelShader)

	// No lights are staged, so the cube face shows the ambient term only.
	assert.InDeltaSlice(t, []float32{0.5, 0.5, 0.5}, sl3(f.centerPixel()), 0.01)
}

func TestDrawUsesCurrentTransformAndTint(t *testing.T) {
	f := newFixture(t)
	e := NewGameEntity("crate", f.cube, f.mat)
	f.mat.PixelShader().SetFloat3("ambient", mgl32.Vec3{1, 1, 1})
	f.mat.SetColorTint(mgl32.Vec3{1, 0, 0})
	f.mat.BindTexturesAndSamplers()

	e.Transform().SetPosition(mgl32.Vec3{50, 0, 0})
	e.Draw(f.ctx, f.cam)
	assert.Equal(t, mgl32.Vec3{0, 0, 0}, f.centerPixel(), "moved out of view")

	e.Transform().SetPosition(mgl32.Vec3{})
	e.Draw(f.ctx, f.cam)
	assert.InDeltaSlice(t, []float32{1, 0, 0}, sl3(f.centerPixel()), 0.01)
}

func TestDrawWithReleasedProgramPanics(t *testing.T) {
	f := newFixture(t)
	e := NewGameEntity("crate", f.cube, f.mat)
	f.mat.PixelShader().Release()

	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		assert.True(t, errors.Is(err, device.ErrReleased))
	}()
	e.Draw(f.ctx, f.cam)
}

// sl3 returns a slice view of a 3-component array so it can be passed to
// assert.InDeltaSlice (function results are not addressable).
func sl3(v [3]float32) []float32 { return v[:] }
