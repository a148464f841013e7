package soft

import (
	"math"

	"github.com/Carmen-Shannon/oxy-toon/common"
	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/device"
	"github.com/go-gl/mathgl/mgl32"
)

// Go versions of the shaders in the embedded shader library, registered under the same keys.
func init() {
	RegisterVertexKernel("vertex_lit", vertexLit)
	RegisterVertexKernel("vertex_sky", vertexSky)
	RegisterVertexKernel("vertex_fullscreen", vertexFullscreen)
	RegisterPixelKernel("pixel_toon", pixelToon)
	RegisterPixelKernel("pixel_lit", pixelLit)
	RegisterPixelKernel("pixel_sky", pixelSky)
	RegisterPixelKernel("pixel_sobel", pixelSobel)
}

const (
	lightStride      = 48
	lightDirectional = 0
	lightPoint       = 1
)

func vertexLit(u *Uniforms, in device.Vertex, _ int) Varying {
	world := u.Mat4("world")
	worldPos := world.Mul4x1(in.Position.Vec4(1))
	return Varying{
		Position:      u.Mat4("projection").Mul4(u.Mat4("view")).Mul4x1(worldPos),
		WorldPosition: worldPos.Vec3(),
		Normal:        u.Mat4("worldInvTranspose").Mul4x1(in.Normal.Vec4(0)).Vec3(),
		Tangent:       world.Mul4x1(in.Tangent.Vec4(0)).Vec3(),
		UV:            in.UV,
	}
}

func vertexSky(u *Uniforms, in device.Vertex, _ int) Varying {
	view := u.Mat4("view")
	view.SetCol(3, mgl32.Vec4{0, 0, 0, 1})
	pos := u.Mat4("projection").Mul4(view).Mul4x1(in.Position.Vec4(1))
	return Varying{
		Position:      mgl32.Vec4{pos[0], pos[1], pos[3], pos[3]},
		WorldPosition: in.Position,
	}
}

func vertexFullscreen(_ *Uniforms, _ device.Vertex, vertexID int) Varying {
	uv := mgl32.Vec2{float32((vertexID << 1) & 2), float32(vertexID & 2)}
	return Varying{
		Position: mgl32.Vec4{uv[0]*2 - 1, 1 - uv[1]*2, 0, 1},
		UV:       uv,
	}
}

// gpuLight is one decoded element of the lights uniform array.
type gpuLight struct {
	direction mgl32.Vec3
	kind      uint32
	position  mgl32.Vec3
	rangeMax  float32
	color     mgl32.Vec3
	intensity float32
}

func readLights(u *Uniforms) []gpuLight {
	raw := u.Bytes("lights")
	n := min(int(u.Uint("lightCount")), len(raw)/lightStride)
	out := make([]gpuLight, n)
	for i := range out {
		b := raw[i*lightStride:]
		out[i] = gpuLight{
			direction: mgl32.Vec3{common.Float32At(b, 0), common.Float32At(b, 4), common.Float32At(b, 8)},
			kind:      uint32(b[12]) | uint32(b[13])<<8 | uint32(b[14])<<16 | uint32(b[15])<<24,
			position:  mgl32.Vec3{common.Float32At(b, 16), common.Float32At(b, 20), common.Float32At(b, 24)},
			rangeMax:  common.Float32At(b, 28),
			color:     mgl32.Vec3{common.Float32At(b, 32), common.Float32At(b, 36), common.Float32At(b, 40)},
			intensity: common.Float32At(b, 44),
		}
	}
	return out
}

// incoming returns the unit vector toward the light and its distance attenuation.
func (l gpuLight) incoming(worldPos mgl32.Vec3) (mgl32.Vec3, float32) {
	if l.kind != lightPoint {
		return safeNormalize(l.direction.Mul(-1)), 1
	}
	toLight := l.position.Sub(worldPos)
	dist := toLight.Len()
	if dist == 0 {
		return mgl32.Vec3{}, 0
	}
	att := common.Clamp(1-(dist*dist)/(l.rangeMax*l.rangeMax), 0, 1)
	return toLight.Mul(1 / dist), att * att
}

func safeNormalize(v mgl32.Vec3) mgl32.Vec3 {
	if l := v.Len(); l > 0 {
		return v.Mul(1 / l)
	}
	return v
}

func mulVec3(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

func pixelToon(env *PixelEnv, in Varying) mgl32.Vec4 {
	albedo := mulVec3(env.Sample("Albedo", "BasicSampler", in.UV).Vec3(), env.Vec3("colorTint"))
	n := safeNormalize(in.Normal)
	bands := env.Float("toonBands")

	light := env.Vec3("ambient")
	for _, l := range readLights(&env.Uniforms) {
		dir, att := l.incoming(in.WorldPosition)
		h := 0.5*n.Dot(dir) + 0.5
		h *= h
		if bands >= 1 {
			h = float32(math.Floor(float64(h*bands))) / bands
		}
		light = light.Add(l.color.Mul(l.intensity * h * att))
	}
	c := mulVec3(albedo, light)
	return mgl32.Vec4{c[0], c[1], c[2], 1}
}

func pixelLit(env *PixelEnv, in Varying) mgl32.Vec4 {
	albedo := mulVec3(env.Sample("Albedo", "BasicSampler", in.UV).Vec3(), env.Vec3("colorTint"))
	rough := env.Float("roughness") * env.Sample("RoughnessMap", "BasicSampler", in.UV)[0]
	metal := env.Sample("MetalnessMap", "BasicSampler", in.UV)[0]
	sampled := env.Sample("NormalMap", "BasicSampler", in.UV).Vec3().Mul(2).Sub(mgl32.Vec3{1, 1, 1})

	geo := safeNormalize(in.Normal)
	t := safeNormalize(in.Tangent.Sub(geo.Mul(geo.Dot(in.Tangent))))
	b := geo.Cross(t)
	n := safeNormalize(t.Mul(sampled[0]).Add(b.Mul(sampled[1])).Add(geo.Mul(sampled[2])))
	toEye := safeNormalize(env.Vec3("cameraPosition").Sub(in.WorldPosition))
	shininess := 8 + (1-rough)*120

	diffuse := env.Vec3("ambient")
	var specular mgl32.Vec3
	for _, l := range readLights(&env.Uniforms) {
		dir, att := l.incoming(in.WorldPosition)
		radiance := l.color.Mul(l.intensity * att)
		diffuse = diffuse.Add(radiance.Mul(0.5*n.Dot(dir) + 0.5))
		half := safeNormalize(dir.Add(toEye))
		spec := float32(math.Pow(float64(max(n.Dot(half), 0)), float64(shininess))) * (1 - rough)
		specular = specular.Add(radiance.Mul(spec))
	}
	c := mulVec3(albedo.Mul(1-0.5*metal), diffuse).Add(specular)
	return mgl32.Vec4{c[0], c[1], c[2], 1}
}

func pixelSky(env *PixelEnv, in Varying) mgl32.Vec4 {
	d := safeNormalize(in.WorldPosition)
	uv := mgl32.Vec2{
		float32(math.Atan2(float64(d[0]), float64(d[2])))/(2*math.Pi) + 0.5,
		float32(math.Acos(float64(common.Clamp(d[1], -1, 1)))) / math.Pi,
	}
	c := env.Sample("SkyMap", "BasicSampler", uv)
	return mgl32.Vec4{c[0], c[1], c[2], 1}
}

func pixelSobel(env *PixelEnv, in Varying) mgl32.Vec4 {
	step := mgl32.Vec2{env.Float("pixelWidth"), env.Float("pixelHeight")}
	var lum [3][3]float32
	for y := -1; y <= 1; y++ {
		for x := -1; x <= 1; x++ {
			uv := in.UV.Add(mgl32.Vec2{float32(x) * step[0], float32(y) * step[1]})
			lum[y+1][x+1] = common.Luminance(env.Sample("pixels", "samplerOptions", uv).Vec3())
		}
	}
	gx := lum[0][2] + 2*lum[1][2] + lum[2][2] - lum[0][0] - 2*lum[1][0] - lum[2][0]
	gy := lum[2][0] + 2*lum[2][1] + lum[2][2] - lum[0][0] - 2*lum[0][1] - lum[0][2]
	mag := float32(math.Sqrt(float64(gx*gx + gy*gy)))

	var edge float32
	if threshold := env.Float("edgeThreshold"); mag > threshold {
		edge = common.Clamp((mag-threshold)*env.Float("edgeStrength"), 0, 1)
	}
	c := env.Sample("pixels", "samplerOptions", in.UV).Vec3().Mul(1 - edge)
	return mgl32.Vec4{c[0], c[1], c[2], 1}
}
