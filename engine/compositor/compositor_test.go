package compositor

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-toon/common"
	"github.com/Carmen-Shannon/oxy-toon/engine/camera"
	"github.com/Carmen-Shannon/oxy-toon/engine/entity"
	"github.com/Carmen-Shannon/oxy-toon/engine/light"
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
	comp Compositor
	mat  material.Material
	cam  camera.Camera
}

func newFixture(t *testing.T, options ...CompositorBuilderOption) *fixture {
	t.Helper()
	dev, err := soft.NewDevice(16, 16, soft.WithDrawLog())
	require.NoError(t, err)

	lib := shader.NewLibrary()
	load := func(key string, stage device.Stage) shader.Program {
		var p shader.Program
		var err error
		if stage == device.StageVertex {
			p, err = lib.LoadVertex(dev, key)
		} else {
			p, err = lib.LoadPixel(dev, key)
		}
		require.NoError(t, err)
		return p
	}

	comp, err := NewCompositor(dev,
		load(shader.KeyVertexFullscreen, device.StageVertex),
		load(shader.KeyPixelSobel, device.StagePixel),
		options...)
	require.NoError(t, err)

	white, err := dev.CreateTexture2D(device.TextureDesc{Label: "white", Width: 1, Height: 1, Bind: device.BindShaderResource},
		[]byte{255, 255, 255, 255})
	require.NoError(t, err)
	srv, err := dev.CreateShaderResourceView(white)
	require.NoError(t, err)

	return &fixture{
		dev:  dev,
		ctx:  dev.Immediate(),
		comp: comp,
		mat: material.NewMaterial("white",
			load(shader.KeyVertexLit, device.StageVertex),
			load(shader.KeyPixelToon, device.StagePixel),
			material.WithTexture("Albedo", srv)),
		cam: camera.NewCamera(camera.WithPosition(mgl32.Vec3{0, 0, -3})),
	}
}

func (f *fixture) entity(t *testing.T, label string, d mesh.Data) entity.GameEntity {
	t.Helper()
	m, err := mesh.FromData(f.dev, label, d)
	require.NoError(t, err)
	return entity.NewGameEntity(label, m, f.mat)
}

func (f *fixture) centerLuminance() float32 {
	c := f.dev.Frontbuffer().RGBAAt(8, 8)
	return common.Luminance(mgl32.Vec3{float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255})
}

var errLostSurface = errors.New("surface lost")

// lostSurfaceDevice is a software device whose swap chain reports a failure after presenting.
type lostSurfaceDevice struct {
	*soft.Device
}

func (d lostSurfaceDevice) SwapChain() device.SwapChain {
	return lostSurfaceSwapChain{d.Device.SwapChain()}
}

type lostSurfaceSwapChain struct {
	device.SwapChain
}

func (s lostSurfaceSwapChain) Present(vsync bool) error {
	if err := s.SwapChain.Present(vsync); err != nil {
		return err
	}
	return errLostSurface
}

func requireOutOfOrder(t *testing.T, step func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "step did not panic")
		err, ok := r.(error)
		require.True(t, ok)
		assert.True(t, errors.Is(err, ErrOutOfOrder), err.Error())
	}()
	step()
}

func TestFrameDrawsEntitiesInInsertionOrder(t *testing.T) {
	f := newFixture(t)
	entities := []entity.GameEntity{
		f.entity(t, "cube", mesh.Cube(1)),
		f.entity(t, "sphere", mesh.Sphere(0.5, 8, 4)),
		f.entity(t, "cone", mesh.Cone(0.5, 1, 8)),
	}

	for range 3 {
		f.ctx.ResetDraws()
		require.NoError(t, f.comp.Frame(entities, f.cam, FrameUniforms{Ambient: mgl32.Vec3{1, 1, 1}}, nil))

		draws := f.ctx.Draws()
		require.Len(t, draws, 4)
		for i, label := range []string{"cube.vb", "sphere.vb", "cone.vb"} {
			assert.Equal(t, label, draws[i].VertexBuffer)
			assert.Equal(t, "offscreen", draws[i].Target)
		}
		post := draws[3]
		assert.False(t, post.Indexed)
		assert.Equal(t, 3, post.Count)
		assert.Equal(t, shader.KeyPixelSobel, post.PixelShader)
		assert.Equal(t, "backbuffer", post.Target)
		assert.Equal(t, StateIdle, f.comp.State())
	}
}

func TestRepeatedFramesHaveNoBindingHazards(t *testing.T) {
	f := newFixture(t)
	entities := []entity.GameEntity{f.entity(t, "cube", mesh.Cube(1))}

	for range 4 {
		require.NoError(t, f.comp.Frame(entities, f.cam, FrameUniforms{}, nil))
	}
	assert.Zero(t, f.ctx.HazardCount())
	for slot := range device.MaxShaderResourceSlots {
		require.Nil(t, f.ctx.BoundShaderResource(device.StagePixel, slot), "slot %d", slot)
	}
}

func TestStepsOutOfOrderPanic(t *testing.T) {
	f := newFixture(t)

	requireOutOfOrder(t, f.comp.PostProcess)
	requireOutOfOrder(t, func() { f.comp.DrawOpaque(nil, f.cam, FrameUniforms{}) })
	requireOutOfOrder(t, func() { _ = f.comp.Present(false) })

	f.comp.BeginFrame()
	assert.Equal(t, StateClear, f.comp.State())
	requireOutOfOrder(t, f.comp.BeginFrame)
	requireOutOfOrder(t, func() { f.comp.DrawSky(nil, f.cam) })
	requireOutOfOrder(t, func() { _ = f.comp.Resize(8, 8) })

	f.comp.DrawOpaque(nil, f.cam, FrameUniforms{})
	f.comp.DrawSky(nil, f.cam)
	f.comp.PostProcess()
	require.NoError(t, f.comp.Present(false))
	assert.Equal(t, StateIdle, f.comp.State())
}

func TestResizeReplacesOffscreenTarget(t *testing.T) {
	f := newFixture(t)
	oldRTV, oldSRV := f.comp.OffscreenTarget(), f.comp.OffscreenView()

	require.NoError(t, f.comp.Resize(10, 6))
	assert.Equal(t, 10, f.comp.Width())
	assert.Equal(t, 6, f.comp.Height())
	assert.Equal(t, 10, f.comp.OffscreenTarget().Texture().Width())
	assert.Equal(t, 6, f.comp.OffscreenView().Texture().Height())

	assert.True(t, oldRTV.Released())
	assert.True(t, oldSRV.Released())
	assert.False(t, f.comp.OffscreenTarget().Released())

	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		assert.ErrorIs(t, err, device.ErrReleased)
	}()
	f.ctx.SetRenderTargets([]device.RenderTargetView{oldRTV}, nil)
}

func TestResizeRejectsEmptySize(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.comp.Resize(0, 4), device.ErrInvalidDesc)
	assert.Equal(t, 16, f.comp.Width())
}

func TestLitCubeIsBrighterThanAmbient(t *testing.T) {
	f := newFixture(t)
	entities := []entity.GameEntity{f.entity(t, "cube", mesh.Cube(1))}
	ambient := mgl32.Vec3{0.2, 0.2, 0.2}

	require.NoError(t, f.comp.Frame(entities, f.cam, FrameUniforms{Ambient: ambient}, nil))
	unlit := f.centerLuminance()
	assert.InDelta(t, 0.2, unlit, 0.01)

	lights := light.NewList(8)
	require.NoError(t, lights.Add(light.NewLight(light.TypeDirectional, light.WithDirection(0, 0, 1), light.WithIntensity(0.5))))
	require.NoError(t, f.comp.Frame(entities, f.cam, FrameUniforms{Ambient: ambient, Lights: lights}, nil))
	lit := f.centerLuminance()

	assert.Greater(t, lit, unlit)
	assert.LessOrEqual(t, lit, float32(0.2+0.5)+0.01)
}

func TestLightsBeyondShaderCapacityAreClamped(t *testing.T) {
	f := newFixture(t)
	entities := []entity.GameEntity{f.entity(t, "cube", mesh.Cube(1))}

	lights := light.NewList(11)
	for range 11 {
		require.NoError(t, lights.Add(light.NewLight(light.TypeDirectional, light.WithDirection(0, 0, 1), light.WithIntensity(0.05))))
	}
	require.NotPanics(t, func() {
		require.NoError(t, f.comp.Frame(entities, f.cam, FrameUniforms{Lights: lights}, nil))
	})
	assert.InDelta(t, 8*0.05, f.centerLuminance(), 0.01)
}

func TestMaterialChangeAppliesToNextFrame(t *testing.T) {
	f := newFixture(t)
	entities := []entity.GameEntity{f.entity(t, "cube", mesh.Cube(1))}
	frame := FrameUniforms{Ambient: mgl32.Vec3{1, 1, 1}}

	require.NoError(t, f.comp.Frame(entities, f.cam, frame, nil))
	first := f.dev.Frontbuffer().RGBAAt(8, 8)

	f.mat.SetColorTint(mgl32.Vec3{0, 1, 0})
	assert.Equal(t, first, f.dev.Frontbuffer().RGBAAt(8, 8), "presented frame is unchanged")

	require.NoError(t, f.comp.Frame(entities, f.cam, frame, nil))
	second := f.dev.Frontbuffer().RGBAAt(8, 8)
	assert.Equal(t, uint8(255), first.R)
	assert.Equal(t, uint8(0), second.R)
	assert.Equal(t, uint8(255), second.G)
}

func TestNewCompositorValidatesPrograms(t *testing.T) {
	dev, err := soft.NewDevice(4, 4)
	require.NoError(t, err)
	lib := shader.NewLibrary()
	vs, err := lib.LoadVertex(dev, shader.KeyVertexFullscreen)
	require.NoError(t, err)
	ps, err := lib.LoadPixel(dev, shader.KeyPixelSobel)
	require.NoError(t, err)

	_, err = NewCompositor(dev, nil, ps)
	assert.Error(t, err)
	_, err = NewCompositor(dev, ps, vs)
	assert.Error(t, err)

	c, err := NewCompositor(dev, vs, ps, WithEdgeStrength(-1), WithClearColor(mgl32.Vec4{1, 0, 0, 1}))
	require.NoError(t, err)
	assert.Equal(t, float32(0), c.(*compositor).edgeStrength)
	assert.Equal(t, 4, c.Width())
}

func TestFailedPresentStillRebindsBackbuffer(t *testing.T) {
	f := newFixture(t)
	dev := lostSurfaceDevice{f.dev}
	comp, err := NewCompositor(dev, f.comp.(*compositor).fullscreen, f.comp.(*compositor).edges)
	require.NoError(t, err)

	e := f.entity(t, "cube", mesh.Cube(1))
	err = comp.Frame([]entity.GameEntity{e}, f.cam, FrameUniforms{Ambient: mgl32.Vec3{0.2, 0.2, 0.2}}, nil)
	require.ErrorIs(t, err, errLostSurface)
	assert.Equal(t, StateIdle, comp.State())

	bound := f.ctx.BoundRenderTargets()
	require.Len(t, bound, 1)
	assert.Same(t, f.dev.SwapChain().BackbufferView(), bound[0])
}
