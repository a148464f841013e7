package shader

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/device/soft"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToonPixelReflection(t *testing.T) {
	s, err := NewLibrary().Shader(KeyPixelToon, device.StagePixel)
	require.NoError(t, err)

	refl := s.Reflection()
	assert.Equal(t, "fs_main", s.EntryPoint())
	assert.Empty(t, refl.VertexAttributes)

	block, ok := refl.Binding(device.BindingUniform, "pixelData")
	require.True(t, ok)
	assert.Equal(t, 1, block.Group)
	assert.Equal(t, 0, block.Slot)
	assert.Equal(t, 432, block.Size)

	offsets := map[string]int{}
	for _, f := range block.Fields {
		offsets[f.Name] = f.Offset
	}
	assert.Equal(t, map[string]int{
		"colorTint":      0,
		"roughness":      12,
		"ambient":        16,
		"lightCount":     28,
		"cameraPosition": 32,
		"toonBands":      44,
		"lights":         48,
	}, offsets)

	_, lights, ok := refl.Field("lights")
	require.True(t, ok)
	assert.Equal(t, 8, lights.ArrayCount)
	assert.Equal(t, 48, lights.Stride)
	assert.Equal(t, 384, lights.Size)
	assert.Equal(t, 8, s.ArrayCapacity("lights"))
	assert.Zero(t, s.ArrayCapacity("ambient"))
	assert.Zero(t, s.ArrayCapacity("missing"))

	albedo, ok := refl.Binding(device.BindingTexture, "Albedo")
	require.True(t, ok)
	assert.Equal(t, 1, albedo.Slot)
	smp, ok := refl.Binding(device.BindingSampler, "BasicSampler")
	require.True(t, ok)
	assert.Equal(t, 2, smp.Slot)

	require.Len(t, s.Includes(), 1)
	assert.Equal(t, AnnotationArgLight, s.Includes()[0].Args[0])
	assert.Contains(t, s.Source(), "struct Light {")
	assert.NotContains(t, s.Source(), "@oxy:include")
}

func TestLitVertexReflection(t *testing.T) {
	s, err := NewLibrary().Shader(KeyVertexLit, device.StageVertex)
	require.NoError(t, err)

	refl := s.Reflection()
	assert.Equal(t, "vs_main", refl.EntryPoint)
	assert.Equal(t, device.VertexStride, refl.VertexStride)
	require.Len(t, refl.VertexAttributes, 4)
	for i, want := range []struct {
		name   string
		offset int
	}{{"position", 0}, {"normal", 12}, {"uv", 24}, {"tangent", 32}} {
		assert.Equal(t, i, refl.VertexAttributes[i].Location)
		assert.Equal(t, want.name, refl.VertexAttributes[i].Name)
		assert.Equal(t, want.offset, refl.VertexAttributes[i].Offset)
	}

	block, ok := refl.Binding(device.BindingUniform, "vertexData")
	require.True(t, ok)
	assert.Equal(t, 256, block.Size)
	_, proj, ok := refl.Field("projection")
	require.True(t, ok)
	assert.Equal(t, 192, proj.Offset)
}

func TestEveryLibraryShaderReflects(t *testing.T) {
	lib := NewLibrary()
	for key, stage := range map[string]device.Stage{
		KeyVertexLit:        device.StageVertex,
		KeyVertexSky:        device.StageVertex,
		KeyVertexFullscreen: device.StageVertex,
		KeyPixelToon:        device.StagePixel,
		KeyPixelLit:         device.StagePixel,
		KeyPixelSky:         device.StagePixel,
		KeyPixelSobel:       device.StagePixel,
	} {
		t.Run(key, func(t *testing.T) {
			s, err := lib.Shader(key, stage)
			require.NoError(t, err)
			for _, b := range s.Reflection().Bindings {
				assert.Equal(t, stage.Group(), b.Group, b.Name)
			}
		})
	}

	fs, err := lib.Shader(KeyVertexFullscreen, device.StageVertex)
	require.NoError(t, err)
	assert.Zero(t, fs.Reflection().VertexStride)
}

func TestLibraryRejectsStageMismatch(t *testing.T) {
	lib := NewLibrary()
	_, err := lib.Shader(KeyPixelSobel, device.StagePixel)
	require.NoError(t, err)

	_, err = lib.Shader(KeyPixelSobel, device.StageVertex)
	assert.Error(t, err)

	_, err = lib.Shader("does_not_exist", device.StagePixel)
	assert.Error(t, err)
}

func TestLibraryReadsFromCustomFS(t *testing.T) {
	fsys := fstest.MapFS{
		"shaders/flat.wgsl": {Data: []byte(`
struct Params { color: vec4<f32>, }
@group(1) @binding(3) var<uniform> params: Params;
@fragment
fn main_ps() -> @location(0) vec4<f32> { return params.color; }
`)},
	}
	s, err := NewLibrary(WithFS(fsys, "shaders")).Shader("flat", device.StagePixel)
	require.NoError(t, err)
	assert.Equal(t, "main_ps", s.EntryPoint())
	b, ok := s.Reflection().Binding(device.BindingUniform, "params")
	require.True(t, ok)
	assert.Equal(t, 3, b.Slot)
	assert.Equal(t, 16, b.Size)
}

func TestReflectionMismatches(t *testing.T) {
	cases := map[string]struct {
		stage  device.Stage
		source string
	}{
		"pixel binding in vertex group": {device.StagePixel, `
@group(0) @binding(0) var tex: texture_2d<f32>;
@fragment fn fs_main() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }`},
		"vertex stride differs": {device.StageVertex, `
struct VertexInput { @location(0) position: vec3<f32>, @location(1) uv: vec2<f32>, }
@vertex fn vs_main(input: VertexInput) -> @builtin(position) vec4<f32> { return vec4<f32>(input.position, 1.0); }`},
		"missing entry point": {device.StagePixel, `
@group(1) @binding(0) var tex: texture_2d<f32>;`},
		"storage buffer": {device.StagePixel, `
struct Data { v: f32, }
@group(1) @binding(0) var<storage, read> data: Data;
@fragment fn fs_main() -> @location(0) vec4<f32> { return vec4<f32>(data.v); }`},
		"sampler slot out of range": {device.StagePixel, `
@group(1) @binding(16) var s: sampler;
@fragment fn fs_main() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }`},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewShader("broken", c.stage, c.source)
			assert.ErrorIs(t, err, ErrReflection)
		})
	}
}

func TestPreProcessorInjectsEachStructOnce(t *testing.T) {
	pp := NewPreProcessor()
	out, err := pp.Process("//@oxy:include light\n//@oxy:include light\n//@oxy:include vertex\nfn f() {}")
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(out, "struct Light {"))
	assert.Equal(t, 1, strings.Count(out, "struct VertexInput {"))
	assert.Len(t, pp.Includes(), 3)

	_, err = pp.Process("//@oxy:include teapot")
	assert.Error(t, err)

	out, err = pp.Process("let x = 1; // not an @oxy:include light")
	require.NoError(t, err)
	assert.NotContains(t, out, "struct Light")
	assert.Empty(t, pp.Includes())
}

func newToonProgram(t *testing.T) (Program, *soft.Device) {
	t.Helper()
	dev, err := soft.NewDevice(4, 4)
	require.NoError(t, err)
	p, err := NewLibrary().LoadPixel(dev, KeyPixelToon)
	require.NoError(t, err)
	return p, dev
}

func staged(p Program) []byte {
	return p.(*program).buffers[0].buffer.(*soft.Buffer).Bytes()
}

func TestProgramSettersWriteReflectedOffsets(t *testing.T) {
	p, _ := newToonProgram(t)

	assert.True(t, p.SetFloat3("colorTint", mgl32.Vec3{0.25, 0.5, 1}))
	assert.True(t, p.SetFloat("toonBands", 3))
	assert.True(t, p.SetUint("lightCount", 2))
	assert.False(t, p.SetFloat("doesNotExist", 1))
	assert.False(t, p.SetMatrix4x4("colorTint", mgl32.Ident4()), "a matrix does not fit a vec3")

	p.CopyAllBufferData()
	b := staged(p)
	require.Len(t, b, 432)
	assert.Equal(t, float32(0.5), math.Float32frombits(binary.LittleEndian.Uint32(b[4:])))
	assert.Equal(t, float32(3), math.Float32frombits(binary.LittleEndian.Uint32(b[44:])))
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(b[28:]))
}

func TestProgramSetDataRefusesOversizedPayload(t *testing.T) {
	p, _ := newToonProgram(t)
	capacity := p.VariableCapacity("lights")
	require.Equal(t, 8, capacity)

	assert.True(t, p.SetData("lights", make([]byte, capacity*48)))
	assert.False(t, p.SetData("lights", make([]byte, 11*48)))

	full := make([]byte, capacity*48)
	for i := range full {
		full[i] = 0xAB
	}
	require.True(t, p.SetData("lights", full))
	p.CopyAllBufferData()
	b := staged(p)
	assert.Equal(t, byte(0xAB), b[48+capacity*48-1])
}

func TestProgramBindsTexturesBySlot(t *testing.T) {
	p, dev := newToonProgram(t)
	ctx := dev.Immediate()

	tex, err := dev.CreateTexture2D(device.TextureDesc{Label: "albedo", Width: 1, Height: 1, Bind: device.BindShaderResource}, nil)
	require.NoError(t, err)
	srv, err := dev.CreateShaderResourceView(tex)
	require.NoError(t, err)
	smp, err := dev.CreateSamplerState(device.DefaultSamplerDesc)
	require.NoError(t, err)

	assert.True(t, p.HasShaderResourceView("Albedo"))
	assert.True(t, p.HasSamplerState("BasicSampler"))
	assert.False(t, p.HasShaderResourceView("NormalMap"))

	assert.True(t, p.SetShaderResourceView("Albedo", srv))
	assert.True(t, p.SetSamplerState("BasicSampler", smp))
	assert.False(t, p.SetShaderResourceView("NormalMap", srv))

	assert.Equal(t, srv, ctx.BoundShaderResource(device.StagePixel, 1))
	assert.Equal(t, smp, ctx.BoundSampler(device.StagePixel, 2))
	assert.Nil(t, ctx.BoundShaderResource(device.StagePixel, 2))
}

func TestProgramCommitsOnlyChangedBuffers(t *testing.T) {
	p, _ := newToonProgram(t)
	cb := p.(*program).buffers[0]

	p.CopyAllBufferData()
	assert.False(t, cb.dirty)

	p.SetFloat("roughness", 0.5)
	assert.True(t, cb.dirty)
	p.CopyAllBufferData()
	assert.False(t, cb.dirty)
}

func TestProgramReleaseReleasesBuffers(t *testing.T) {
	p, _ := newToonProgram(t)
	buf := p.(*program).buffers[0].buffer
	p.Release()
	assert.True(t, buf.Released())
}
