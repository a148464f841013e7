package transform

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsIdentity(t *testing.T) {
	tr := New()
	assert.Equal(t, mgl32.Ident4(), tr.GetWorldMatrix())
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, tr.Scale())
	assert.Zero(t, tr.rebuilds)
}

func TestWorldMatrixIsCachedUntilASetterRuns(t *testing.T) {
	tr := New()
	tr.SetPosition(mgl32.Vec3{1, 2, 3})
	tr.SetRotation(mgl32.Vec3{0.3, 1.1, -0.4})
	tr.SetScale(mgl32.Vec3{2, 2, 2})
	require.True(t, tr.Dirty())

	first := tr.GetWorldMatrix()
	require.Equal(t, 1, tr.rebuilds)
	second := tr.GetWorldMatrix()
	assert.Equal(t, first, second)
	_ = tr.GetWorldInverseTransposeMatrix()
	assert.Equal(t, 1, tr.rebuilds, "reads without a setter must not recompute")

	tr.MoveAbsolute(mgl32.Vec3{1, 0, 0})
	assert.True(t, tr.Dirty())
	moved := tr.GetWorldMatrix()
	assert.Equal(t, 2, tr.rebuilds)
	assert.NotEqual(t, first, moved)
}

func TestWorldMatrixAppliesScaleRotationTranslation(t *testing.T) {
	tr := New()
	tr.SetScale(mgl32.Vec3{2, 1, 1})
	tr.SetRotation(mgl32.Vec3{0, math.Pi / 2, 0})
	tr.SetPosition(mgl32.Vec3{0, 0, 5})

	// +X scaled to 2, yawed a quarter turn onto -Z, then moved to z = 5.
	p := tr.GetWorldMatrix().Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	assert.InDeltaSlice(t, []float32{0, 0, 3, 1}, p[:], 1e-5)
}

func TestInverseTransposeKeepsNormalsPerpendicular(t *testing.T) {
	tr := New()
	tr.SetScale(mgl32.Vec3{4, 1, 1})
	tr.SetRotation(mgl32.Vec3{0, 0, math.Pi / 4})

	tangent := tr.GetWorldMatrix().Mul4x1(mgl32.Vec4{1, -1, 0, 0}).Vec3()
	normal := tr.GetWorldInverseTransposeMatrix().Mul4x1(mgl32.Vec4{1, 1, 0, 0}).Vec3()
	assert.InDelta(t, 0, tangent.Dot(normal), 1e-5)
}

func TestMoveRelativeFollowsRotation(t *testing.T) {
	tr := New()
	tr.SetRotation(mgl32.Vec3{0, math.Pi / 2, 0})
	assert.InDeltaSlice(t, []float32{1, 0, 0}, sl3(tr.Forward().Normalize()), 1e-5)

	tr.MoveRelative(mgl32.Vec3{0, 0, 2})
	assert.InDeltaSlice(t, []float32{2, 0, 0}, sl3(tr.Position()), 1e-5)

	tr.Rotate(mgl32.Vec3{0, -math.Pi / 2, 0})
	assert.InDeltaSlice(t, []float32{0, 0, 1}, sl3(tr.Forward()), 1e-5)
	assert.InDeltaSlice(t, []float32{1, 0, 0}, sl3(tr.Right()), 1e-5)
	assert.InDeltaSlice(t, []float32{0, 1, 0}, sl3(tr.Up()), 1e-5)
}

// sl3 returns a slice view of a 3-component array so it can be passed to
// assert.InDeltaSlice (function results are not addressable).
func sl3(v [3]float32) []float32 { return v[:] }
