package common

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Perspective builds a right-handed perspective projection that maps view-space depth
// [-near, -far] onto clip depth [0, 1], the convention shared by WebGPU and D3D.
// mgl32.Perspective targets OpenGL's [-1, 1] range and is not used for that reason.
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: viewport width divided by height
//   - near: near plane distance (> 0)
//   - far: far plane distance (> near)
//
// Returns:
//   - mgl32.Mat4: the projection matrix in column-major order
func Perspective(fovY, aspect, near, far float32) mgl32.Mat4 {
	f := float32(1.0 / math.Tan(float64(fovY)/2.0))
	rangeInv := 1.0 / (near - far)

	return mgl32.Mat4{
		f / aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, far * rangeInv, -1,
		0, 0, near * far * rangeInv, 0,
	}
}

// EulerRotation builds a rotation matrix from pitch (x), yaw (y) and roll (z) in radians.
// Roll is applied first, then pitch, then yaw.
//
// Parameters:
//   - euler: rotation angles in radians
//
// Returns:
//   - mgl32.Mat4: the combined rotation matrix
func EulerRotation(euler mgl32.Vec3) mgl32.Mat4 {
	return mgl32.HomogRotate3DY(euler.Y()).
		Mul4(mgl32.HomogRotate3DX(euler.X())).
		Mul4(mgl32.HomogRotate3DZ(euler.Z()))
}

// Luminance returns the Rec. 709 relative luminance of a linear RGB color.
//
// Parameters:
//   - c: linear RGB color
//
// Returns:
//   - float32: relative luminance
func Luminance(c mgl32.Vec3) float32 {
	return 0.2126*c.X() + 0.7152*c.Y() + 0.0722*c.Z()
}

// Saturate clamps every component of v to [0, 1].
//
// Parameters:
//   - v: the vector to clamp
//
// Returns:
//   - mgl32.Vec4: the clamped vector
func Saturate(v mgl32.Vec4) mgl32.Vec4 {
	return mgl32.Vec4{
		Clamp(v[0], 0, 1),
		Clamp(v[1], 0, 1),
		Clamp(v[2], 0, 1),
		Clamp(v[3], 0, 1),
	}
}

// PutFloat32s writes the values little-endian into dst starting at offset 0.
// dst must hold at least 4*len(values) bytes.
//
// Parameters:
//   - dst: destination byte slice
//   - values: float values to encode
func PutFloat32s(dst []byte, values ...float32) {
	for i, v := range values {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}
}

// Float32At decodes the little-endian float32 at the given byte offset.
//
// Parameters:
//   - src: source byte slice
//   - offset: byte offset of the value
//
// Returns:
//   - float32: the decoded value
func Float32At(src []byte, offset int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(src[offset:]))
}

// Mat4Bytes encodes a matrix as 64 little-endian bytes in column-major order, matching
// the WGSL mat4x4<f32> memory layout.
//
// Parameters:
//   - m: the matrix to encode
//
// Returns:
//   - []byte: 64 bytes
func Mat4Bytes(m mgl32.Mat4) []byte {
	out := make([]byte, 64)
	PutFloat32s(out, m[:]...)
	return out
}
