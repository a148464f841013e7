package light

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// MaxLights is the light array length compiled into the embedded pixel shaders. The array
// capacity actually used is read back from shader reflection; this constant only sizes the
// default List.
const MaxLights = 8

// GPULightSize is the byte size of one packed light.
const GPULightSize = 48

// GPULightSource is the canonical WGSL definition of the Light struct.
// Matches GPULight layout exactly (48 bytes, WGSL uniform aligned).
//
//go:embed assets/light.wgsl
var GPULightSource string

// GPULight is the GPU-aligned representation of a single light source.
// Matches the WGSL Light struct layout exactly (see GPULightSource).
type GPULight struct {
	Direction  [3]float32 // offset  0: normalized direction (directional)
	Kind       uint32     // offset 12: 0 = directional, 1 = point
	Position   [3]float32 // offset 16: world-space position (point)
	LightRange float32    // offset 28: attenuation cutoff distance
	Color      [3]float32 // offset 32: RGB color
	Intensity  float32    // offset 44: scalar multiplier
}

// Size returns the size of the GPULight struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (48)
func (g *GPULight) Size() int {
	return int(unsafe.Sizeof(*g))
}

// MarshalInto writes the light into the first GPULightSize bytes of buf.
//
// Parameters:
//   - buf: destination with at least GPULightSize bytes
func (g *GPULight) MarshalInto(buf []byte) {
	put := func(at int, v uint32) { binary.LittleEndian.PutUint32(buf[at:at+4], v) }
	put(0, math.Float32bits(g.Direction[0]))
	put(4, math.Float32bits(g.Direction[1]))
	put(8, math.Float32bits(g.Direction[2]))
	put(12, g.Kind)
	put(16, math.Float32bits(g.Position[0]))
	put(20, math.Float32bits(g.Position[1]))
	put(24, math.Float32bits(g.Position[2]))
	put(28, math.Float32bits(g.LightRange))
	put(32, math.Float32bits(g.Color[0]))
	put(36, math.Float32bits(g.Color[1]))
	put(40, math.Float32bits(g.Color[2]))
	put(44, math.Float32bits(g.Intensity))
}

// Marshal serializes the GPULight struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 48-byte buffer ready for GPU upload
func (g *GPULight) Marshal() []byte {
	buf := make([]byte, GPULightSize)
	g.MarshalInto(buf)
	return buf
}
