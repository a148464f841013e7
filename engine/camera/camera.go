package camera

import (
	"math"

	"github.com/Carmen-Shannon/oxy-toon/common"
	"github.com/Carmen-Shannon/oxy-toon/engine/transform"
	"github.com/go-gl/mathgl/mgl32"
)

type cameraImpl struct {
	transform transform.Transform

	fov    float32
	aspect float32
	near   float32
	far    float32

	viewMatrix       mgl32.Mat4
	projectionMatrix mgl32.Mat4

	controller CameraController
}

// Camera defines the interface for the camera system.
// The camera owns a transform, which an attached CameraController moves from the per-frame
// input snapshot, and derives its view matrix from it on every Update. The projection matrix
// only changes through UpdateProjectionMatrix.
type Camera interface {
	// Transform returns the camera's transform for direct placement.
	//
	// Returns:
	//   - *transform.Transform: the owned transform
	Transform() *transform.Transform

	// Position returns the camera's world-space position.
	//
	// Returns:
	//   - mgl32.Vec3: the position
	Position() mgl32.Vec3

	// Forward returns the normalized viewing direction.
	//
	// Returns:
	//   - mgl32.Vec3: the direction the camera looks along
	Forward() mgl32.Vec3

	// Fov returns the vertical field of view in radians.
	//
	// Returns:
	//   - float32: field of view in radians
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	//
	// Returns:
	//   - float32: the aspect ratio
	Aspect() float32

	// Near returns the near clipping plane distance.
	//
	// Returns:
	//   - float32: near plane distance
	Near() float32

	// Far returns the far clipping plane distance.
	//
	// Returns:
	//   - float32: far plane distance
	Far() float32

	// ViewMatrix returns the view matrix computed by the last Update or UpdateViewMatrix.
	//
	// Returns:
	//   - mgl32.Mat4: the view matrix
	ViewMatrix() mgl32.Mat4

	// ProjectionMatrix returns the right-handed projection with depth mapped to [0, 1].
	//
	// Returns:
	//   - mgl32.Mat4: the projection matrix
	ProjectionMatrix() mgl32.Mat4

	// Controller returns the attached CameraController, or nil.
	//
	// Returns:
	//   - CameraController: the attached controller or nil
	Controller() CameraController

	// SetController attaches a CameraController to the camera. nil detaches it.
	//
	// Parameters:
	//   - ctrl: the controller to attach
	SetController(ctrl CameraController)

	// Update lets the controller move the camera, then recomputes the view matrix.
	// Should be called once per frame.
	//
	// Parameters:
	//   - dt: seconds since the previous frame
	//   - input: the input snapshot for this frame
	Update(dt float32, input common.InputSnapshot)

	// UpdateViewMatrix recomputes the view matrix from the transform.
	UpdateViewMatrix()

	// UpdateProjectionMatrix recomputes the projection for a new aspect ratio. Call it when the
	// window is resized.
	//
	// Parameters:
	//   - aspect: the new aspect ratio (width / height)
	UpdateProjectionMatrix(aspect float32)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera at the origin looking down +Z with a 45 degree field of view.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		transform: transform.New(),
		fov:       45.0 * (math.Pi / 180.0),
		aspect:    1.0,
		near:      0.01,
		far:       1000.0,
	}
	for _, option := range options {
		option(c)
	}
	c.UpdateViewMatrix()
	c.UpdateProjectionMatrix(c.aspect)
	return c
}

func (c *cameraImpl) Transform() *transform.Transform {
	return &c.transform
}

func (c *cameraImpl) Position() mgl32.Vec3 {
	return c.transform.Position()
}

func (c *cameraImpl) Forward() mgl32.Vec3 {
	return c.transform.Forward().Normalize()
}

func (c *cameraImpl) Fov() float32 {
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	return c.near
}

func (c *cameraImpl) Far() float32 {
	return c.far
}

func (c *cameraImpl) ViewMatrix() mgl32.Mat4 {
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() mgl32.Mat4 {
	return c.projectionMatrix
}

func (c *cameraImpl) Controller() CameraController {
	return c.controller
}

func (c *cameraImpl) SetController(ctrl CameraController) {
	c.controller = ctrl
}

func (c *cameraImpl) Update(dt float32, input common.InputSnapshot) {
	if c.controller != nil {
		c.controller.Update(&c.transform, dt, input)
	}
	c.UpdateViewMatrix()
}

func (c *cameraImpl) UpdateViewMatrix() {
	eye := c.transform.Position()
	c.viewMatrix = mgl32.LookAtV(eye, eye.Add(c.transform.Forward()), c.transform.Up())
}

func (c *cameraImpl) UpdateProjectionMatrix(aspect float32) {
	if aspect <= 0 || math.IsNaN(float64(aspect)) || math.IsInf(float64(aspect), 0) {
		return
	}
	c.aspect = aspect
	c.projectionMatrix = common.Perspective(c.fov, c.aspect, c.near, c.far)
}
