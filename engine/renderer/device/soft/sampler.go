package soft

import (
	"math"

	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/device"
	"github.com/go-gl/mathgl/mgl32"
)

// sampleTexture filters a color texture at uv. Anisotropic filtering falls back to bilinear:
// the rasterizer has no screen-space derivatives to size the footprint with.
func sampleTexture(tex *Texture, desc device.SamplerDesc, uv mgl32.Vec2) mgl32.Vec4 {
	if tex.color == nil {
		d := tex.DepthAt(address(int(uv[0]*float32(tex.Width())), tex.Width(), desc.AddressU),
			address(int(uv[1]*float32(tex.Height())), tex.Height(), desc.AddressV))
		return mgl32.Vec4{d, d, d, 1}
	}

	w, h := float32(tex.Width()), float32(tex.Height())
	if desc.Filter == device.FilterPoint {
		x := address(int(math.Floor(float64(uv[0]*w))), tex.Width(), desc.AddressU)
		y := address(int(math.Floor(float64(uv[1]*h))), tex.Height(), desc.AddressV)
		return texel(tex, x, y)
	}

	fx := uv[0]*w - 0.5
	fy := uv[1]*h - 0.5
	x0 := int(math.Floor(float64(fx)))
	y0 := int(math.Floor(float64(fy)))
	tx := fx - float32(x0)
	ty := fy - float32(y0)

	xa := address(x0, tex.Width(), desc.AddressU)
	xb := address(x0+1, tex.Width(), desc.AddressU)
	ya := address(y0, tex.Height(), desc.AddressV)
	yb := address(y0+1, tex.Height(), desc.AddressV)

	top := lerp4(texel(tex, xa, ya), texel(tex, xb, ya), tx)
	bottom := lerp4(texel(tex, xa, yb), texel(tex, xb, yb), tx)
	return lerp4(top, bottom, ty)
}

// address maps an integer texel coordinate into [0, n) according to the addressing mode.
func address(i, n int, mode device.AddressMode) int {
	switch mode {
	case device.AddressClamp:
		return max(0, min(i, n-1))
	case device.AddressMirror:
		period := 2 * n
		m := ((i % period) + period) % period
		if m >= n {
			m = period - 1 - m
		}
		return m
	default:
		return ((i % n) + n) % n
	}
}

func texel(tex *Texture, x, y int) mgl32.Vec4 {
	i := tex.color.PixOffset(x, y)
	p := tex.color.Pix[i : i+4 : i+4]
	c := mgl32.Vec4{float32(p[0]) / 255, float32(p[1]) / 255, float32(p[2]) / 255, float32(p[3]) / 255}
	if tex.desc.Format == device.FormatRGBA8UnormSrgb {
		c[0], c[1], c[2] = srgbToLinear(c[0]), srgbToLinear(c[1]), srgbToLinear(c[2])
	}
	return c
}

func srgbToLinear(c float32) float32 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return float32(math.Pow(float64((c+0.055)/1.055), 2.4))
}

func lerp4(a, b mgl32.Vec4, t float32) mgl32.Vec4 {
	return a.Add(b.Sub(a).Mul(t))
}
