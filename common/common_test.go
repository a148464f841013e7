package common

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputTrackerSnapshots(t *testing.T) {
	tr := NewInputTracker()
	tr.KeyDown(KeyW)
	tr.KeyDown(KeyW)
	tr.MouseMove(10, 10)
	tr.MouseMove(14, 7)
	tr.MouseButton(MouseButtonLeft, true)
	tr.MouseButton(7, true)
	tr.Scroll(1.5)

	s := tr.Snapshot()
	assert.True(t, s.KeyDown(KeyW))
	assert.True(t, s.KeyPressed(KeyW))
	assert.True(t, s.MouseDown(MouseButtonLeft))
	assert.False(t, s.MouseDown(7))
	assert.Equal(t, float32(4), s.MouseDeltaX)
	assert.Equal(t, float32(-3), s.MouseDeltaY)
	assert.Equal(t, float32(1.5), s.Scroll)

	next := tr.Snapshot()
	assert.True(t, next.KeyDown(KeyW), "held keys persist")
	assert.False(t, next.KeyPressed(KeyW), "a press is reported once")
	assert.Zero(t, next.MouseDeltaX)
	assert.Zero(t, next.Scroll)
	assert.Equal(t, float32(14), next.MouseX)

	tr.KeyUp(KeyW)
	s.Keys[KeyA] = true
	last := tr.Snapshot()
	assert.False(t, last.KeyDown(KeyW))
	assert.False(t, last.KeyDown(KeyA), "snapshots do not share key maps")
}

func TestPerspectiveMapsDepthToUnitRange(t *testing.T) {
	p := Perspective(mgl32.DegToRad(60), 1.5, 0.1, 100)
	depth := func(z float32) float32 {
		c := p.Mul4x1(mgl32.Vec4{0, 0, z, 1})
		return c[2] / c[3]
	}
	assert.InDelta(t, 0, depth(-0.1), 1e-5)
	assert.InDelta(t, 1, depth(-100), 1e-5)
	assert.Less(t, depth(-1), depth(-10))

	c := p.Mul4x1(mgl32.Vec4{0, 1, -1, 1})
	assert.InDelta(t, 1/math.Tan(math.Pi/6), c[1]/c[3], 1e-5)
}

func TestEulerRotationOrder(t *testing.T) {
	yaw := EulerRotation(mgl32.Vec3{0, math.Pi / 2, 0})
	v := yaw.Mul4x1(mgl32.Vec4{0, 0, 1, 0})
	assert.InDeltaSlice(t, []float32{1, 0, 0}, sl3(v.Vec3()), 1e-6)

	pitch := EulerRotation(mgl32.Vec3{math.Pi / 2, 0, 0})
	v = pitch.Mul4x1(mgl32.Vec4{0, 0, 1, 0})
	assert.InDeltaSlice(t, []float32{0, -1, 0}, sl3(v.Vec3()), 1e-6, "positive pitch looks down")
}

func TestValueHelpers(t *testing.T) {
	assert.Equal(t, 3, Clamp(7, 0, 3))
	assert.Equal(t, float32(0.25), Clamp(float32(0.25), 0, 1))
	assert.Equal(t, "b", Coalesce("", "b", "c"))
	assert.Equal(t, 0, Coalesce(0, 0))
	assert.InDelta(t, 1, Luminance(mgl32.Vec3{1, 1, 1}), 1e-6)
	assert.Equal(t, mgl32.Vec4{0, 1, 0.5, 1}, Saturate(mgl32.Vec4{-1, 2, 0.5, 1}))

	b := Mat4Bytes(mgl32.Translate3D(1, 2, 3))
	require.Len(t, b, 64)
	assert.Equal(t, float32(2), Float32At(b, 13*4))
}

// sl3 returns a slice view of a 3-component array so it can be passed to
// assert.InDeltaSlice (function results are not addressable).
func sl3(v [3]float32) []float32 { return v[:] }
