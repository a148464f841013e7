package mesh

import (
	"math"

	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/device"
	"github.com/go-gl/mathgl/mgl32"
)

// All primitives are centered on the origin and wind their triangles counter-clockwise when
// seen from outside. Texture v grows downward. Tangents are derived from the UVs.

// cubeFace describes one face of a cube: the outward normal and the in-plane axes that map to
// texture u and to "up" (negative texture v). right × up equals normal.
type cubeFace struct {
	normal, right, up mgl32.Vec3
}

var cubeFaces = [6]cubeFace{
	{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
	{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
	{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
}

// Cube generates an axis-aligned cube with 24 vertices so every face has its own normals and UVs.
//
// Parameters:
//   - size: the edge length
//
// Returns:
//   - Data: 24 vertices and 36 indices
func Cube(size float32) Data {
	h := size / 2
	d := Data{
		Vertices: make([]device.Vertex, 0, 24),
		Indices:  make([]uint32, 0, 36),
	}
	corners := [4]struct{ r, u, tu, tv float32 }{
		{-1, -1, 0, 1},
		{1, -1, 1, 1},
		{1, 1, 1, 0},
		{-1, 1, 0, 0},
	}
	for _, f := range cubeFaces {
		base := uint32(len(d.Vertices))
		center := f.normal.Mul(h)
		for _, c := range corners {
			d.Vertices = append(d.Vertices, device.Vertex{
				Position: center.Add(f.right.Mul(c.r * h)).Add(f.up.Mul(c.u * h)),
				Normal:   f.normal,
				UV:       mgl32.Vec2{c.tu, c.tv},
			})
		}
		d.Indices = append(d.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	ComputeTangents(d.Vertices, d.Indices)
	return d
}

// Plane generates a horizontal square facing +Y.
//
// Parameters:
//   - size: the edge length
//   - tiling: how many times the texture repeats across the plane
//
// Returns:
//   - Data: 4 vertices and 6 indices
func Plane(size, tiling float32) Data {
	h := size / 2
	up := mgl32.Vec3{0, 1, 0}
	d := Data{
		Vertices: []device.Vertex{
			{Position: mgl32.Vec3{-h, 0, h}, Normal: up, UV: mgl32.Vec2{0, tiling}},
			{Position: mgl32.Vec3{h, 0, h}, Normal: up, UV: mgl32.Vec2{tiling, tiling}},
			{Position: mgl32.Vec3{h, 0, -h}, Normal: up, UV: mgl32.Vec2{tiling, 0}},
			{Position: mgl32.Vec3{-h, 0, -h}, Normal: up, UV: mgl32.Vec2{0, 0}},
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
	ComputeTangents(d.Vertices, d.Indices)
	return d
}

// Sphere generates a UV sphere. The seam column is duplicated so texture u runs from 0 to 1.
//
// Parameters:
//   - radius: the sphere radius
//   - slices: segments around the Y axis, at least 3
//   - stacks: segments from pole to pole, at least 2
//
// Returns:
//   - Data: (slices+1)*(stacks+1) vertices
func Sphere(radius float32, slices, stacks int) Data {
	slices = max(slices, 3)
	stacks = max(stacks, 2)
	d := Data{}
	for i := 0; i <= stacks; i++ {
		phi := math.Pi * float64(i) / float64(stacks)
		sp, cp := math.Sincos(phi)
		for j := 0; j <= slices; j++ {
			theta := 2 * math.Pi * float64(j) / float64(slices)
			st, ct := math.Sincos(theta)
			n := mgl32.Vec3{float32(sp * st), float32(cp), float32(sp * ct)}
			d.Vertices = append(d.Vertices, device.Vertex{
				Position: n.Mul(radius),
				Normal:   n,
				UV:       mgl32.Vec2{float32(j) / float32(slices), float32(i) / float32(stacks)},
			})
		}
	}
	d.Indices = gridIndices(0, slices, stacks)
	ComputeTangents(d.Vertices, d.Indices)
	// At the poles the UV-derived tangent degenerates; use the analytic direction of increasing u.
	for i := range d.Vertices {
		v := &d.Vertices[i]
		if v.Tangent.Len() == 0 {
			theta := 2 * math.Pi * float64(v.UV[0])
			st, ct := math.Sincos(theta)
			v.Tangent = mgl32.Vec3{float32(ct), 0, float32(-st)}
		}
	}
	return d
}

// Cylinder generates a capped cylinder along the Y axis.
//
// Parameters:
//   - radius: the cylinder radius
//   - height: the distance between the caps
//   - slices: segments around the Y axis, at least 3
//
// Returns:
//   - Data: the side and both caps
func Cylinder(radius, height float32, slices int) Data {
	slices = max(slices, 3)
	h := height / 2
	d := Data{}
	for row, y := range [2]float32{h, -h} {
		for j := 0; j <= slices; j++ {
			st, ct := sincos(j, slices)
			n := mgl32.Vec3{st, 0, ct}
			d.Vertices = append(d.Vertices, device.Vertex{
				Position: mgl32.Vec3{radius * st, y, radius * ct},
				Normal:   n,
				UV:       mgl32.Vec2{float32(j) / float32(slices), float32(row)},
			})
		}
	}
	d.Indices = gridIndices(0, slices, 1)
	appendCap(&d, radius, h, slices, true)
	appendCap(&d, radius, -h, slices, false)
	ComputeTangents(d.Vertices, d.Indices)
	return d
}

// Cone generates a cone along the Y axis with its apex at +height/2 and a capped base.
//
// Parameters:
//   - radius: the base radius
//   - height: the distance from base to apex
//   - slices: segments around the Y axis, at least 3
//
// Returns:
//   - Data: the side and the base cap
func Cone(radius, height float32, slices int) Data {
	slices = max(slices, 3)
	h := height / 2
	d := Data{}
	for j := 0; j < slices; j++ {
		st0, ct0 := sincos(j, slices)
		st1, ct1 := sincos(j+1, slices)
		sm, cm := sincosf(float64(j)+0.5, slices)
		n0 := mgl32.Vec3{height * st0, radius, height * ct0}.Normalize()
		n1 := mgl32.Vec3{height * st1, radius, height * ct1}.Normalize()
		nm := mgl32.Vec3{height * sm, radius, height * cm}.Normalize()
		base := uint32(len(d.Vertices))
		d.Vertices = append(d.Vertices,
			device.Vertex{Position: mgl32.Vec3{radius * st0, -h, radius * ct0}, Normal: n0, UV: mgl32.Vec2{float32(j) / float32(slices), 1}},
			device.Vertex{Position: mgl32.Vec3{radius * st1, -h, radius * ct1}, Normal: n1, UV: mgl32.Vec2{float32(j+1) / float32(slices), 1}},
			device.Vertex{Position: mgl32.Vec3{0, h, 0}, Normal: nm, UV: mgl32.Vec2{(float32(j) + 0.5) / float32(slices), 0}},
		)
		d.Indices = append(d.Indices, base, base+1, base+2)
	}
	appendCap(&d, radius, -h, slices, false)
	ComputeTangents(d.Vertices, d.Indices)
	return d
}

// ComputeTangents fills the Tangent of every vertex from the triangle UV gradients, then
// orthogonalizes it against the normal. Vertices whose UVs give no direction keep a zero tangent.
//
// Parameters:
//   - vertices: the vertices to update in place
//   - indices: the triangle list
func ComputeTangents(vertices []device.Vertex, indices []uint32) {
	acc := make([]mgl32.Vec3, len(vertices))
	for t := 0; t+2 < len(indices); t += 3 {
		i0, i1, i2 := indices[t], indices[t+1], indices[t+2]
		v0, v1, v2 := vertices[i0], vertices[i1], vertices[i2]

		e1 := v1.Position.Sub(v0.Position)
		e2 := v2.Position.Sub(v0.Position)
		du1, dv1 := v1.UV[0]-v0.UV[0], v1.UV[1]-v0.UV[1]
		du2, dv2 := v2.UV[0]-v0.UV[0], v2.UV[1]-v0.UV[1]

		det := du1*dv2 - du2*dv1
		if det > -1e-12 && det < 1e-12 {
			continue
		}
		tangent := e1.Mul(dv2).Sub(e2.Mul(dv1)).Mul(1 / det)
		acc[i0] = acc[i0].Add(tangent)
		acc[i1] = acc[i1].Add(tangent)
		acc[i2] = acc[i2].Add(tangent)
	}

	for i := range vertices {
		n := vertices[i].Normal
		t := acc[i].Sub(n.Mul(n.Dot(acc[i])))
		if t.Len() < 1e-6 {
			vertices[i].Tangent = mgl32.Vec3{}
			continue
		}
		vertices[i].Tangent = t.Normalize()
	}
}

// gridIndices triangulates a (cols+1) x (rows+1) vertex grid whose rows run top to bottom.
func gridIndices(base uint32, cols, rows int) []uint32 {
	out := make([]uint32, 0, cols*rows*6)
	stride := uint32(cols + 1)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			a := base + uint32(i)*stride + uint32(j) // top left
			b := a + 1                               // top right
			dd := a + stride                         // bottom left
			c := dd + 1                              // bottom right
			out = append(out, dd, c, b, dd, b, a)
		}
	}
	return out
}

// appendCap adds a flat disc at height y facing +Y (top) or -Y.
func appendCap(d *Data, radius, y float32, slices int, top bool) {
	n := mgl32.Vec3{0, -1, 0}
	vSign := float32(-1)
	if top {
		n = mgl32.Vec3{0, 1, 0}
		vSign = 1
	}
	center := uint32(len(d.Vertices))
	d.Vertices = append(d.Vertices, device.Vertex{Position: mgl32.Vec3{0, y, 0}, Normal: n, UV: mgl32.Vec2{0.5, 0.5}})
	for j := 0; j <= slices; j++ {
		st, ct := sincos(j, slices)
		d.Vertices = append(d.Vertices, device.Vertex{
			Position: mgl32.Vec3{radius * st, y, radius * ct},
			Normal:   n,
			UV:       mgl32.Vec2{0.5 + 0.5*st, 0.5 + 0.5*vSign*ct},
		})
	}
	for j := 0; j < slices; j++ {
		a, b := center+1+uint32(j), center+2+uint32(j)
		if top {
			d.Indices = append(d.Indices, center, a, b)
		} else {
			d.Indices = append(d.Indices, center, b, a)
		}
	}
}

func sincos(j, slices int) (float32, float32) {
	return sincosf(float64(j), slices)
}

func sincosf(j float64, slices int) (float32, float32) {
	s, c := math.Sincos(2 * math.Pi * j / float64(slices))
	return float32(s), float32(c)
}
