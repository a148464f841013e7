package scene

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-toon/common"
	"github.com/Carmen-Shannon/oxy-toon/engine/compositor"
	"github.com/Carmen-Shannon/oxy-toon/engine/light"
	"github.com/Carmen-Shannon/oxy-toon/engine/loader"
	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/device/soft"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testLayout = `
seed: 7
ambient: [0.2, 0.2, 0.2]
camera: { position: [0, 0, -4] }
sky: { disabled: true }
meshes:
  - { name: box, primitive: cube }
  - { name: ball, primitive: sphere, slices: 8, stacks: 4 }
materials:
  - name: white
    vertex: vertex_lit
    pixel: pixel_toon
    textures: { Albedo: "solid:#ffffff" }
entities:
  - { name: a, mesh: box, material: white }
  - { name: b, mesh: ball, material: white, position: [2, 0, 0], rotation: [0, 90, 0] }
scatter:
  - { mesh: ball, materials: [white], count: 3, minRadius: 3, radius: 5 }
`

func parse(t *testing.T, doc string) *Layout {
	t.Helper()
	l, err := ParseLayout([]byte(doc))
	require.NoError(t, err)
	return l
}

func newTestScene(t *testing.T, w, h int, options ...SceneBuilderOption) (*soft.Device, Scene) {
	t.Helper()
	dev, err := soft.NewDevice(w, h, soft.WithDrawLog())
	require.NoError(t, err)
	if len(options) == 0 {
		options = []SceneBuilderOption{WithLayout(parse(t, testLayout))}
	}
	s := NewScene("test", dev, options...)
	require.NoError(t, s.Init())
	t.Cleanup(s.Release)
	return dev, s
}

func TestLayoutValidation(t *testing.T) {
	cases := map[string]string{
		"unknown mesh": `
meshes: [{ name: box, primitive: cube }]
materials: [{ name: m, vertex: vertex_lit, pixel: pixel_toon }]
entities: [{ name: e, mesh: nope, material: m }]`,
		"unknown material": `
meshes: [{ name: box, primitive: cube }]
entities: [{ name: e, mesh: box, material: nope }]`,
		"unknown primitive": `
meshes: [{ name: t, primitive: torus }]`,
		"duplicate mesh": `
meshes: [{ name: box, primitive: cube }, { name: box, primitive: cone }]`,
		"missing shader": `
materials: [{ name: m, vertex: vertex_lit }]`,
		"unknown sampler": `
materials: [{ name: m, vertex: vertex_lit, pixel: pixel_toon, sampler: cubic }]`,
		"unknown light type": `
lights: [{ type: spot }]`,
		"scatter without materials": `
meshes: [{ name: box, primitive: cube }]
scatter: [{ mesh: box, count: 2, radius: 1 }]`,
		"empty ring": `
meshes: [{ name: box, primitive: cube }]
materials: [{ name: m, vertex: vertex_lit, pixel: pixel_toon }]
scatter: [{ mesh: box, materials: [m], count: 2, minRadius: 3, radius: 1 }]`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseLayout([]byte(doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidLayout), err.Error())
		})
	}

	_, err := ParseLayout([]byte("meshes: {"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidLayout))
}

func TestDefaultLayout(t *testing.T) {
	l, err := DefaultLayout()
	require.NoError(t, err)

	placements := l.Placements()
	assert.Len(t, placements, 6+24+40)
	assert.Equal(t, "ground", placements[0].Name)
	for i, x := range []float32{0, -2.5, 2.5, -5.5, 5.5} {
		assert.Equal(t, x, placements[i+1].Position[0])
	}
	assert.Equal(t, [3]float32{0.1, 0.1, 0.25}, l.Ambient)
	assert.Empty(t, l.Lights, "the default rig is used")
}

func TestScatterIsDeterministic(t *testing.T) {
	a := parse(t, testLayout).Placements()
	b := parse(t, testLayout).Placements()
	require.Len(t, a, 5)
	assert.Equal(t, a, b)

	other := parse(t, testLayout)
	other.Seed = 8
	assert.NotEqual(t, a[2:], other.Placements()[2:])

	for i, p := range a[2:] {
		assert.Equal(t, "ball-"+string(rune('0'+i)), p.Name)
		r := mgl32.Vec2{p.Position[0], p.Position[2]}.Len()
		assert.GreaterOrEqual(t, r, float32(3)-1e-4)
		assert.LessOrEqual(t, r, float32(5)+1e-4)
		require.NotNil(t, p.Scale)
		assert.Equal(t, float32(1), p.Scale[0])
	}
}

func TestSceneDrawsEntitiesInLayoutOrder(t *testing.T) {
	dev, s := newTestScene(t, 16, 16)
	ctx := dev.Immediate()

	require.Equal(t, 5, s.EntityCount())
	assert.Equal(t, "a", s.Entity(0).Name())
	assert.Equal(t, "b", s.Entity(1).Name())
	assert.InDelta(t, mgl32.DegToRad(90), s.Entity(1).Transform().Rotation()[1], 1e-6)
	assert.Nil(t, s.Entity(5))
	assert.Nil(t, s.Entity(-1))
	assert.Nil(t, s.Sky())

	for range 2 {
		ctx.ResetDraws()
		s.Update(0.016, 0, common.InputSnapshot{})
		s.Draw(0.016, 0)

		draws := ctx.Draws()
		require.Len(t, draws, 6)
		assert.Equal(t, "box.vb", draws[0].VertexBuffer)
		for _, d := range draws[1:5] {
			assert.Equal(t, "ball.vb", d.VertexBuffer)
		}
		assert.Equal(t, "backbuffer", draws[5].Target)
		assert.Equal(t, compositor.StateIdle, s.Compositor().State())
	}
	assert.Zero(t, ctx.HazardCount())
}

func TestSceneUsesDefaultLights(t *testing.T) {
	_, s := newTestScene(t, 8, 8)

	lights := s.Lights()
	require.Equal(t, 5, lights.Len())
	assert.Equal(t, 8, lights.Capacity())
	for i := range 3 {
		assert.Equal(t, light.TypeDirectional, lights.At(i).Type())
		assert.True(t, lights.At(i).Enabled())
	}
	for i := 3; i < 5; i++ {
		assert.Equal(t, light.TypePoint, lights.At(i).Type())
		assert.False(t, lights.At(i).Enabled(), "point light %d starts disabled", i)
	}
	assert.InDelta(t, 0.8, lights.At(0).Intensity(), 1e-6)
	assert.Equal(t, mgl32.Vec3{0.2, 0.2, 0.2}, s.Ambient())
}

func TestSceneDropsLightsPastCapacity(t *testing.T) {
	l := parse(t, testLayout)
	for i := range 11 {
		l.Lights = append(l.Lights, LightLayout{Type: "point", Position: [3]float32{float32(i), 1, 0}, Intensity: 1})
	}
	_, s := newTestScene(t, 8, 8, WithLayout(l))

	assert.Equal(t, 8, s.Lights().Len())
	assert.Equal(t, [3]float32{7, 1, 0}, s.Lights().At(7).Position())
}

func TestSceneResize(t *testing.T) {
	dev, s := newTestScene(t, 16, 16)
	oldTarget := s.Compositor().OffscreenTarget()

	s.OnResize(24, 12)

	assert.Equal(t, 24, dev.SwapChain().Width())
	assert.Equal(t, 12, dev.SwapChain().Height())
	assert.Equal(t, 24, s.Compositor().Width())
	assert.Equal(t, 12, s.Compositor().Height())
	assert.True(t, oldTarget.Released())
	assert.InDelta(t, 2, s.Camera().Aspect(), 1e-6)

	s.Draw(0.016, 0)
	assert.Equal(t, 24, dev.Frontbuffer().Bounds().Dx())
}

func TestInspectorRunsAtItsInterval(t *testing.T) {
	calls := 0
	inspector := InspectorFunc(func(view SceneView) {
		calls++
		view.EntityTransform(0).SetPosition(mgl32.Vec3{0, 5, 0})
		view.Light(0).SetIntensity(50)
		view.SetAmbient(mgl32.Vec3{0.3, 0.3, 0.3})
	})
	_, s := newTestScene(t, 8, 8,
		WithLayout(parse(t, testLayout)),
		WithInspector(inspector),
		WithInspectInterval(0.5))

	for range 5 {
		s.Update(0.2, 0, common.InputSnapshot{})
	}
	assert.Equal(t, 1, calls)
	assert.Equal(t, mgl32.Vec3{0, 5, 0}, s.Entity(0).Transform().Position())
	assert.Equal(t, light.MaxIntensity, s.Lights().At(0).Intensity())
	assert.Equal(t, mgl32.Vec3{0.3, 0.3, 0.3}, s.Ambient())
}

func TestLogInspector(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	_, s := newTestScene(t, 8, 8,
		WithLayout(parse(t, testLayout)),
		WithInspector(NewLogInspector(logger)))

	s.Update(0.016, 0, common.InputSnapshot{})

	out := buf.String()
	assert.Contains(t, out, "entities=5")
	assert.Contains(t, out, "lights=5")
	assert.Contains(t, out, "name=ball-2")
	assert.Contains(t, out, "type=point")
}

func TestMaterialEditsReachEveryEntity(t *testing.T) {
	_, s := newTestScene(t, 8, 8)

	white, ok := s.Material("white")
	require.True(t, ok)
	_, ok = s.Material("missing")
	assert.False(t, ok)

	white.SetColorTint(mgl32.Vec3{1, 0, 0})
	for i := range s.EntityCount() {
		assert.Equal(t, mgl32.Vec3{1, 0, 0}, s.Entity(i).Material().ColorTint())
	}
}

func TestSceneLoadsTexturesRelativeToLayoutFile(t *testing.T) {
	dir := t.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	img.SetRGBA(0, 0, color.RGBA{255, 0, 0, 255})
	f, err := os.Create(filepath.Join(dir, "albedo.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	doc := strings.Replace(testLayout, `"solid:#ffffff"`, `"albedo.png"`, 1)
	path := filepath.Join(dir, "scene.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	dev, err := soft.NewDevice(8, 8)
	require.NoError(t, err)
	ld := loader.NewLoader(dev, loader.WithWorkers(2))
	defer ld.Release()

	s := NewScene("file", dev, WithLayoutFile(path), WithLoader(ld))
	require.NoError(t, s.Init())
	defer s.Release()

	asset, ok := ld.Asset(filepath.Join(dir, "albedo.png"))
	require.True(t, ok)
	white, _ := s.Material("white")
	srv, ok := white.TextureSRV("Albedo")
	require.True(t, ok)
	assert.Same(t, asset.View, srv)
}

func TestInitFailuresAreReturned(t *testing.T) {
	dev, err := soft.NewDevice(8, 8)
	require.NoError(t, err)

	s := NewScene("missing", dev, WithLayoutFile(filepath.Join(t.TempDir(), "nope.yaml")))
	require.Error(t, s.Init())

	bad := parse(t, strings.Replace(testLayout, "pixel: pixel_toon", "pixel: pixel_nope", 1))
	s = NewScene("bad shader", dev, WithLayout(bad))
	err = s.Init()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad shader")

	assert.Panics(t, func() { NewScene("no device", nil) })
}

func TestReleaseDestroysMeshes(t *testing.T) {
	dev, err := soft.NewDevice(8, 8)
	require.NoError(t, err)
	s := NewScene("release", dev, WithLayout(parse(t, testLayout)))
	require.NoError(t, s.Init())

	box := s.Entity(0).Mesh()
	ball := s.Entity(1).Mesh()
	require.Equal(t, 4, ball.Refs())

	s.Release()
	assert.True(t, box.Destroyed())
	assert.True(t, ball.Destroyed())
	assert.Zero(t, s.EntityCount())
}

func TestDefaultSceneRenders(t *testing.T) {
	dev, s := newTestScene(t, 32, 24, WithLayout(nil))
	require.Equal(t, 70, s.EntityCount())
	require.NotNil(t, s.Sky())

	s.Update(0.016, 0.016, common.InputSnapshot{})
	s.Draw(0.016, 0.016)

	colors := make(map[color.RGBA]bool)
	fb := dev.Frontbuffer()
	for y := range 24 {
		for x := range 32 {
			colors[fb.RGBAAt(x, y)] = true
		}
	}
	assert.Greater(t, len(colors), 4)
	assert.Zero(t, dev.Immediate().HazardCount())
}

const litLayout = `
camera: { position: [0, 0, -3] }
sky: { disabled: true }
meshes:
  - { name: box, primitive: cube }
materials:
  - name: bumpy
    vertex: vertex_lit
    pixel: pixel_lit
    textures: { Albedo: "solid:#ffffff", NormalMap: "solid:#ff0000", MetalnessMap: "solid:#ffffff" }
  - name: plain
    vertex: vertex_lit
    pixel: pixel_lit
    textures: { Albedo: "solid:#ffffff" }
entities:
%s
  - { name: plain, mesh: box, material: plain }
`

func TestMaterialsWithoutMapsIgnoreEarlierDraws(t *testing.T) {
	render := func(before string) color.RGBA {
		dev, s := newTestScene(t, 16, 16, WithLayout(parse(t, strings.Replace(litLayout, "%s", before, 1))))
		s.Update(0.016, 0.016, common.InputSnapshot{})
		s.Draw(0.016, 0.016)
		return dev.Frontbuffer().RGBAAt(8, 8)
	}

	alone := render("")
	afterBumpy := render("  - { name: bumpy, mesh: box, material: bumpy, position: [50, 0, 0] }")
	assert.Equal(t, alone, afterBumpy)

	_, s := newTestScene(t, 8, 8, WithLayout(parse(t, strings.Replace(litLayout, "%s", "", 1))))
	plain, ok := s.Material("plain")
	require.True(t, ok)
	for _, name := range []string{"NormalMap", "RoughnessMap", "MetalnessMap"} {
		_, ok := plain.TextureSRV(name)
		assert.True(t, ok, name)
	}
}
