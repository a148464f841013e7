// Package transform holds the position, rotation and scale of an object and the world matrices
// derived from them.
package transform

import (
	"github.com/Carmen-Shannon/oxy-toon/common"
	"github.com/go-gl/mathgl/mgl32"
)

// Transform is a position, an Euler rotation (pitch about x, yaw about y, roll about z, in
// radians) and a scale. The world matrix and its inverse transpose are cached and rebuilt on
// the first read after any setter; setters only record state.
//
// The zero value is not usable; create one with New.
type Transform struct {
	position mgl32.Vec3
	rotation mgl32.Vec3
	scale    mgl32.Vec3

	world             mgl32.Mat4
	worldInvTranspose mgl32.Mat4
	dirty             bool

	// rebuilds counts matrix recomputations. It is instrumentation for verifying the cache and
	// plays no part in rendering.
	rebuilds int
}

// New creates an identity transform with unit scale.
//
// Returns:
//   - Transform: the identity transform
func New() Transform {
	return Transform{
		scale:             mgl32.Vec3{1, 1, 1},
		world:             mgl32.Ident4(),
		worldInvTranspose: mgl32.Ident4(),
	}
}

func (t *Transform) Position() mgl32.Vec3 {
	return t.position
}

// Rotation returns the Euler angles in radians.
func (t *Transform) Rotation() mgl32.Vec3 {
	return t.rotation
}

func (t *Transform) Scale() mgl32.Vec3 {
	return t.scale
}

func (t *Transform) SetPosition(p mgl32.Vec3) {
	t.position = p
	t.dirty = true
}

// SetRotation replaces the Euler angles, given in radians.
func (t *Transform) SetRotation(r mgl32.Vec3) {
	t.rotation = r
	t.dirty = true
}

func (t *Transform) SetScale(s mgl32.Vec3) {
	t.scale = s
	t.dirty = true
}

// MoveAbsolute offsets the position along the world axes.
//
// Parameters:
//   - offset: the world-space offset
func (t *Transform) MoveAbsolute(offset mgl32.Vec3) {
	t.position = t.position.Add(offset)
	t.dirty = true
}

// MoveRelative offsets the position along the transform's own rotated axes, so a z offset moves
// along Forward.
//
// Parameters:
//   - offset: the offset in local axes
func (t *Transform) MoveRelative(offset mgl32.Vec3) {
	t.position = t.position.Add(t.rotate(offset))
	t.dirty = true
}

// Rotate adds to the Euler angles.
//
// Parameters:
//   - delta: pitch, yaw and roll increments in radians
func (t *Transform) Rotate(delta mgl32.Vec3) {
	t.rotation = t.rotation.Add(delta)
	t.dirty = true
}

// Forward returns the local +Z axis in world space.
func (t *Transform) Forward() mgl32.Vec3 {
	return t.rotate(mgl32.Vec3{0, 0, 1})
}

// Right returns the local +X axis in world space.
func (t *Transform) Right() mgl32.Vec3 {
	return t.rotate(mgl32.Vec3{1, 0, 0})
}

// Up returns the local +Y axis in world space.
func (t *Transform) Up() mgl32.Vec3 {
	return t.rotate(mgl32.Vec3{0, 1, 0})
}

func (t *Transform) rotate(v mgl32.Vec3) mgl32.Vec3 {
	return common.EulerRotation(t.rotation).Mul4x1(v.Vec4(0)).Vec3()
}

// Dirty reports whether a setter ran since the matrices were last rebuilt.
func (t *Transform) Dirty() bool {
	return t.dirty
}

// GetWorldMatrix returns scale, then rotation, then translation as one matrix. Consecutive calls
// with no setter in between return the cached matrix unchanged.
//
// Returns:
//   - mgl32.Mat4: the world matrix
func (t *Transform) GetWorldMatrix() mgl32.Mat4 {
	t.update()
	return t.world
}

// GetWorldInverseTransposeMatrix returns the matrix that carries normals into world space. It is
// rebuilt together with the world matrix.
//
// Returns:
//   - mgl32.Mat4: the inverse transpose of the world matrix
func (t *Transform) GetWorldInverseTransposeMatrix() mgl32.Mat4 {
	t.update()
	return t.worldInvTranspose
}

func (t *Transform) update() {
	if !t.dirty {
		return
	}
	s := mgl32.Scale3D(t.scale.X(), t.scale.Y(), t.scale.Z())
	r := common.EulerRotation(t.rotation)
	tr := mgl32.Translate3D(t.position.X(), t.position.Y(), t.position.Z())

	t.world = tr.Mul4(r).Mul4(s)
	t.worldInvTranspose = t.world.Inv().Transpose()
	t.dirty = false
	t.rebuilds++
}
