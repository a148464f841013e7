package mesh

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/device/soft"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDevice(t *testing.T) *soft.Device {
	t.Helper()
	dev, err := soft.NewDevice(8, 8)
	require.NoError(t, err)
	return dev
}

func TestNewMeshUploadsBuffers(t *testing.T) {
	dev := newDevice(t)
	d := Cube(1)

	m, err := FromData(dev, "cube", d)
	require.NoError(t, err)

	assert.Equal(t, 24, m.VertexCount())
	assert.Equal(t, 36, m.IndexCount())
	assert.Equal(t, "cube.vb", m.VertexBuffer().Label())
	assert.Equal(t, 24*device.VertexStride, m.VertexBuffer().Size())
	assert.Equal(t, 36*4, m.IndexBuffer().Size())
	assert.NotEqual(t, m.ID(), newMesh(t, dev).ID())
}

func newMesh(t *testing.T, dev device.Device) *Mesh {
	t.Helper()
	m, err := FromData(dev, "plane", Plane(1, 1))
	require.NoError(t, err)
	return m
}

func TestNewMeshRejectsMalformedGeometry(t *testing.T) {
	dev := newDevice(t)
	tri := []device.Vertex{{}, {}, {}}

	_, err := NewMesh(dev, "empty", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidMesh)

	_, err = NewMesh(dev, "partial", tri, []uint32{0, 1})
	assert.ErrorIs(t, err, ErrInvalidMesh)

	_, err = NewMesh(dev, "range", tri, []uint32{0, 1, 3})
	assert.ErrorIs(t, err, ErrInvalidMesh)
}

func TestDestroyWaitsForLastReference(t *testing.T) {
	dev := newDevice(t)
	m := newMesh(t, dev)

	m.Acquire()
	m.Acquire()
	assert.Equal(t, 2, m.Refs())

	m.Release()
	require.ErrorIs(t, m.Destroy(), ErrMeshInUse)
	assert.False(t, m.VertexBuffer().Released())

	m.Release()
	m.Release()
	assert.Zero(t, m.Refs())

	require.NoError(t, m.Destroy())
	assert.True(t, m.Destroyed())
	assert.True(t, m.VertexBuffer().Released())
	assert.True(t, m.IndexBuffer().Released())
	assert.NoError(t, m.Destroy())

	assert.PanicsWithError(t, `mesh: mesh has been destroyed: "plane"`, func() { m.Acquire() })
}

// faceAgreement returns the smallest dot product between a triangle's geometric normal and its
// vertices' normals, skipping degenerate triangles.
func faceAgreement(d Data) float32 {
	lowest := float32(1)
	for t := 0; t < len(d.Indices); t += 3 {
		v0, v1, v2 := d.Vertices[d.Indices[t]], d.Vertices[d.Indices[t+1]], d.Vertices[d.Indices[t+2]]
		n := v1.Position.Sub(v0.Position).Cross(v2.Position.Sub(v0.Position))
		if n.Len() < 1e-6 {
			continue
		}
		n = n.Normalize()
		for _, v := range []device.Vertex{v0, v1, v2} {
			lowest = min(lowest, n.Dot(v.Normal))
		}
	}
	return lowest
}

func TestPrimitivesWindCounterClockwiseFromOutside(t *testing.T) {
	cases := map[string]Data{
		"cube":     Cube(2),
		"plane":    Plane(4, 2),
		"sphere":   Sphere(1, 16, 8),
		"cylinder": Cylinder(0.5, 2, 12),
		"cone":     Cone(0.5, 1, 12),
	}
	for name, d := range cases {
		t.Run(name, func(t *testing.T) {
			require.Zero(t, len(d.Indices)%3)
			for _, idx := range d.Indices {
				require.Less(t, int(idx), len(d.Vertices))
			}
			assert.Greater(t, faceAgreement(d), float32(0))
		})
	}
}

func TestTangentsFollowTextureU(t *testing.T) {
	for name, d := range map[string]Data{"cube": Cube(1), "sphere": Sphere(1, 12, 6), "cylinder": Cylinder(1, 1, 8)} {
		t.Run(name, func(t *testing.T) {
			for _, v := range d.Vertices {
				require.InDelta(t, 1, v.Tangent.Len(), 1e-4)
				assert.InDelta(t, 0, v.Tangent.Dot(v.Normal), 1e-4)
			}
		})
	}

	front := Cube(1)
	for _, v := range front.Vertices {
		if v.Normal == (mgl32.Vec3{0, 0, 1}) {
			assert.InDeltaSlice(t, []float32{1, 0, 0}, v.Tangent[:], 1e-5)
		}
	}
}

func TestPrimitiveExtents(t *testing.T) {
	for _, v := range Sphere(2, 10, 5).Vertices {
		assert.InDelta(t, 2, v.Position.Len(), 1e-4)
	}
	for _, v := range Cube(3).Vertices {
		for _, c := range v.Position {
			assert.InDelta(t, 1.5, abs(c), 1e-6)
		}
	}
	for _, v := range Plane(10, 4).Vertices {
		assert.Zero(t, v.Position.Y())
		assert.LessOrEqual(t, v.UV.X(), float32(4))
	}
}

func abs(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
