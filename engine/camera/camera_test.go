package camera

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-toon/common"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func held(keys ...uint32) common.InputSnapshot {
	s := common.InputSnapshot{Keys: map[uint32]bool{}}
	for _, k := range keys {
		s.Keys[k] = true
	}
	return s
}

func TestDefaults(t *testing.T) {
	c := NewCamera()
	assert.InDelta(t, math.Pi/4, c.Fov(), 1e-6)
	assert.Equal(t, float32(0.01), c.Near())
	assert.Equal(t, float32(1000), c.Far())
	assert.Equal(t, float32(1), c.Aspect())
	assert.InDeltaSlice(t, []float32{0, 0, 1}, sl3(c.Forward()), 1e-6)
	assert.Nil(t, c.Controller())
}

func TestProjectionMapsDepthToUnitRange(t *testing.T) {
	c := NewCamera(WithClipPlanes(0.5, 50))
	proj := c.ProjectionMatrix()

	near := proj.Mul4x1(mgl32.Vec4{0, 0, -0.5, 1})
	far := proj.Mul4x1(mgl32.Vec4{0, 0, -50, 1})
	assert.InDelta(t, 0, near.Z()/near.W(), 1e-5)
	assert.InDelta(t, 1, far.Z()/far.W(), 1e-5)
}

func TestViewPutsLookedAtPointInFront(t *testing.T) {
	c := NewCamera(WithPosition(mgl32.Vec3{0, 0, -3}))
	p := c.ViewMatrix().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.InDelta(t, -3, p.Z(), 1e-5, "right-handed view space looks down -Z")
	assert.InDelta(t, 0, p.X(), 1e-5)
}

func TestUpdateProjectionMatrixOnlyAcceptsValidAspect(t *testing.T) {
	c := NewCamera()
	c.UpdateProjectionMatrix(2)
	assert.Equal(t, float32(2), c.Aspect())
	before := c.ProjectionMatrix()

	c.UpdateProjectionMatrix(0)
	assert.Equal(t, float32(2), c.Aspect())
	assert.Equal(t, before, c.ProjectionMatrix())
}

func TestFlyControllerMovesFromSnapshot(t *testing.T) {
	c := NewCamera(WithController(NewFlyController(WithMoveSpeed(2), WithBoostMultiplier(3))))

	c.Update(0.5, held(common.KeyW))
	assert.InDeltaSlice(t, []float32{0, 0, 1}, sl3(c.Position()), 1e-5)

	c.Update(0.5, held(common.KeyW, common.KeyLeftShift))
	assert.InDeltaSlice(t, []float32{0, 0, 4}, sl3(c.Position()), 1e-5)

	c.Update(1, held(common.KeySpace))
	assert.InDelta(t, 2, c.Position().Y(), 1e-5)

	c.Update(1, held(common.KeyW, common.KeyS))
	assert.InDeltaSlice(t, []float32{0, 2, 4}, sl3(c.Position()), 1e-5)

	// Strafing right must move the world point ahead of the camera to the left on screen.
	c.Update(1, held(common.KeyD))
	assert.InDeltaSlice(t, []float32{-2, 2, 4}, sl3(c.Position()), 1e-5)
	original := c.ViewMatrix().Mul4x1(mgl32.Vec4{0, 2, 10, 1})
	assert.Less(t, original.X(), float32(0))
}

func TestFlyControllerClampsPitch(t *testing.T) {
	c := NewCamera(WithController(NewFlyController(WithMouseSensitivity(0.01))))
	drag := common.InputSnapshot{MouseDeltaY: 10000}
	drag.MouseButtons[common.MouseButtonLeft] = true

	c.Update(0.016, drag)
	pitch := c.Transform().Rotation().X()
	assert.Less(t, pitch, float32(math.Pi/2))
	assert.Greater(t, pitch, float32(math.Pi/2-0.02))

	// Without the button held the mouse does not rotate.
	before := c.Transform().Rotation()
	c.Update(0.016, common.InputSnapshot{MouseDeltaX: 50})
	assert.Equal(t, before, c.Transform().Rotation())

	require.False(t, math.IsNaN(float64(c.ViewMatrix()[0])))
}

// sl3 returns a slice view of a 3-component array so it can be passed to
// assert.InDeltaSlice (function results are not addressable).
func sl3(v [3]float32) []float32 { return v[:] }
