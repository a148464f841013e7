package soft

import (
	"math"

	"github.com/Carmen-Shannon/oxy-toon/common"
	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/device"
	"github.com/go-gl/mathgl/mgl32"
)

// minClipW keeps clipped vertices strictly in front of the eye so the perspective divide is finite.
const minClipW = 1e-5

// rasterJob is everything one draw call needs to shade triangles.
type rasterJob struct {
	target   *Texture
	depth    *Texture
	viewport device.Viewport
	state    device.DepthState
	cull     device.CullMode
	kernel   PixelKernel
	env      *PixelEnv
}

// screenVertex is a clipped vertex after the perspective divide and viewport transform.
type screenVertex struct {
	x, y, z float32
	invW    float32
	v       Varying
}

// drawTriangle clips one clip-space triangle against the w and near planes and rasterizes the result.
func (j *rasterJob) drawTriangle(tri [3]Varying) {
	poly := clipPolygon(tri[:], func(v Varying) float32 { return v.Position[3] - minClipW })
	poly = clipPolygon(poly, func(v Varying) float32 { return v.Position[2] })
	if len(poly) < 3 {
		return
	}

	screen := make([]screenVertex, len(poly))
	for i, v := range poly {
		screen[i] = j.toScreen(v)
	}
	for i := 1; i+1 < len(screen); i++ {
		j.rasterize(screen[0], screen[i], screen[i+1])
	}
}

// clipPolygon is one Sutherland-Hodgman pass keeping the side where dist >= 0.
func clipPolygon(poly []Varying, dist func(Varying) float32) []Varying {
	if len(poly) == 0 {
		return nil
	}
	out := make([]Varying, 0, len(poly)+2)
	for i := range poly {
		a := poly[i]
		b := poly[(i+1)%len(poly)]
		da, db := dist(a), dist(b)
		if da >= 0 {
			out = append(out, a)
		}
		if (da >= 0) != (db >= 0) {
			out = append(out, lerpVarying(a, b, da/(da-db)))
		}
	}
	return out
}

func (j *rasterJob) toScreen(v Varying) screenVertex {
	invW := 1 / v.Position[3]
	ndcX := v.Position[0] * invW
	ndcY := v.Position[1] * invW
	return screenVertex{
		x:    j.viewport.X + (ndcX*0.5+0.5)*j.viewport.Width,
		y:    j.viewport.Y + (0.5-ndcY*0.5)*j.viewport.Height,
		z:    v.Position[2] * invW,
		invW: invW,
		v:    v,
	}
}

// edge is the signed parallelogram area of (a, b, p); its sign tells which side of ab p lies on.
func edge(ax, ay, bx, by, px, py float32) float32 {
	return (px-ax)*(by-ay) - (py-ay)*(bx-ax)
}

func (j *rasterJob) rasterize(p0, p1, p2 screenVertex) {
	area := edge(p0.x, p0.y, p1.x, p1.y, p2.x, p2.y)
	if area == 0 {
		return
	}

	// Counter-clockwise in NDC is clockwise once y points down, which gives a positive area here.
	front := area > 0
	if (j.cull == device.CullBack && !front) || (j.cull == device.CullFront && front) {
		return
	}

	width, height := j.target.Width(), j.target.Height()
	minX := max(0, int(math.Floor(float64(min(p0.x, p1.x, p2.x)))), int(j.viewport.X))
	minY := max(0, int(math.Floor(float64(min(p0.y, p1.y, p2.y)))), int(j.viewport.Y))
	maxX := min(width-1, int(math.Ceil(float64(max(p0.x, p1.x, p2.x)))), int(j.viewport.X+j.viewport.Width)-1)
	maxY := min(height-1, int(math.Ceil(float64(max(p0.y, p1.y, p2.y)))), int(j.viewport.Y+j.viewport.Height)-1)

	img := j.target.color
	for y := minY; y <= maxY; y++ {
		py := float32(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float32(x) + 0.5

			w0 := edge(p1.x, p1.y, p2.x, p2.y, px, py)
			w1 := edge(p2.x, p2.y, p0.x, p0.y, px, py)
			w2 := edge(p0.x, p0.y, p1.x, p1.y, px, py)
			if front {
				if w0 < 0 || w1 < 0 || w2 < 0 {
					continue
				}
			} else if w0 > 0 || w1 > 0 || w2 > 0 {
				continue
			}

			b0, b1, b2 := w0/area, w1/area, w2/area
			z := common.Clamp(b0*p0.z+b1*p1.z+b2*p2.z, 0, 1)

			if j.depth != nil && !j.depthPasses(x, y, z) {
				continue
			}

			pw0, pw1, pw2 := b0*p0.invW, b1*p1.invW, b2*p2.invW
			sum := pw0 + pw1 + pw2
			in := baryVarying(p0.v, p1.v, p2.v, pw0/sum, pw1/sum, pw2/sum)
			in.Position = mgl32.Vec4{px, py, z, 1 / sum}

			j.env.FragCoord = mgl32.Vec2{px, py}
			color := common.Saturate(j.kernel(j.env, in))

			i := img.PixOffset(x, y)
			img.Pix[i+0] = uint8(color[0]*255 + 0.5)
			img.Pix[i+1] = uint8(color[1]*255 + 0.5)
			img.Pix[i+2] = uint8(color[2]*255 + 0.5)
			img.Pix[i+3] = uint8(color[3]*255 + 0.5)

			if j.depth != nil && j.state.Write {
				j.depth.depth[y*j.depth.Width()+x] = z
			}
		}
	}
}

func (j *rasterJob) depthPasses(x, y int, z float32) bool {
	if x >= j.depth.Width() || y >= j.depth.Height() {
		return false
	}
	stored := j.depth.depth[y*j.depth.Width()+x]
	switch j.state.Func {
	case device.CompareLess:
		return z < stored
	case device.CompareLessEqual:
		return z <= stored
	default:
		return true
	}
}

func lerpVarying(a, b Varying, t float32) Varying {
	return Varying{
		Position:      a.Position.Add(b.Position.Sub(a.Position).Mul(t)),
		WorldPosition: a.WorldPosition.Add(b.WorldPosition.Sub(a.WorldPosition).Mul(t)),
		Normal:        a.Normal.Add(b.Normal.Sub(a.Normal).Mul(t)),
		Tangent:       a.Tangent.Add(b.Tangent.Sub(a.Tangent).Mul(t)),
		UV:            a.UV.Add(b.UV.Sub(a.UV).Mul(t)),
	}
}

func baryVarying(a, b, c Varying, wa, wb, wc float32) Varying {
	return Varying{
		WorldPosition: a.WorldPosition.Mul(wa).Add(b.WorldPosition.Mul(wb)).Add(c.WorldPosition.Mul(wc)),
		Normal:        a.Normal.Mul(wa).Add(b.Normal.Mul(wb)).Add(c.Normal.Mul(wc)),
		Tangent:       a.Tangent.Mul(wa).Add(b.Tangent.Mul(wb)).Add(c.Tangent.Mul(wc)),
		UV:            a.UV.Mul(wa).Add(b.UV.Mul(wb)).Add(c.UV.Mul(wc)),
	}
}
