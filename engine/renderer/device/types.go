package device

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Stage identifies a programmable pipeline stage.
type Stage int

const (
	// StageVertex is the vertex stage; its resources live in bind group 0.
	StageVertex Stage = iota

	// StagePixel is the pixel (fragment) stage; its resources live in bind group 1.
	StagePixel
)

// Group returns the bind group index that resources of this stage are declared in.
func (s Stage) Group() int {
	return int(s)
}

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StagePixel:
		return "pixel"
	default:
		return "unknown"
	}
}

// Format is a texture format.
type Format int

const (
	FormatRGBA8Unorm Format = iota
	FormatRGBA8UnormSrgb
	FormatDepth32Float
)

// BindFlags states how a texture may be bound.
type BindFlags uint32

const (
	BindShaderResource BindFlags = 1 << iota
	BindRenderTarget
	BindDepthStencil
)

// TextureDesc describes a 2D texture.
type TextureDesc struct {
	Label  string
	Width  int
	Height int
	Format Format
	Bind   BindFlags
}

// Filter is the texture filtering mode.
type Filter int

const (
	FilterLinear Filter = iota
	FilterPoint
	FilterAnisotropic
)

// AddressMode controls texture coordinates outside [0, 1].
type AddressMode int

const (
	AddressWrap AddressMode = iota
	AddressClamp
	AddressMirror
)

// SamplerDesc describes a sampler. MaxAnisotropy is only meaningful with FilterAnisotropic.
type SamplerDesc struct {
	Label         string
	Filter        Filter
	AddressU      AddressMode
	AddressV      AddressMode
	MaxAnisotropy int
}

// DefaultSamplerDesc is the state used when a stage samples through an unbound sampler slot.
var DefaultSamplerDesc = SamplerDesc{
	Label:    "default",
	Filter:   FilterLinear,
	AddressU: AddressClamp,
	AddressV: AddressClamp,
}

// BufferUsage states how a buffer is bound.
type BufferUsage int

const (
	BufferVertex BufferUsage = iota
	BufferIndex
	BufferConstant
)

// BufferDesc describes a buffer.
type BufferDesc struct {
	Label string
	Size  int
	Usage BufferUsage
}

// CompareFunc is a depth comparison function.
type CompareFunc int

const (
	CompareLess CompareFunc = iota
	CompareLessEqual
	CompareAlways
)

// DepthState configures depth testing.
type DepthState struct {
	Func  CompareFunc
	Write bool
}

// DefaultDepthState is the opaque geometry depth state.
var DefaultDepthState = DepthState{Func: CompareLess, Write: true}

// CullMode selects which triangle faces are discarded.
type CullMode int

const (
	CullNone CullMode = iota
	CullBack
	CullFront
)

// RasterState configures rasterization. Counter-clockwise triangles are front facing.
type RasterState struct {
	Cull CullMode
}

// Viewport maps normalized device coordinates to target pixels.
type Viewport struct {
	X, Y          float32
	Width, Height float32
}

// VertexStride is the byte size of one Vertex in a vertex buffer.
const VertexStride = 44

// Vertex is the single vertex layout used by every mesh.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	UV       mgl32.Vec2
	Tangent  mgl32.Vec3
}

// VertexBytes encodes vertices little-endian with VertexStride bytes each.
//
// Parameters:
//   - vertices: the vertices to encode
//
// Returns:
//   - []byte: the encoded buffer contents
func VertexBytes(vertices []Vertex) []byte {
	out := make([]byte, len(vertices)*VertexStride)
	for i, v := range vertices {
		b := out[i*VertexStride:]
		put := func(at int, f float32) { binary.LittleEndian.PutUint32(b[at:], math.Float32bits(f)) }
		put(0, v.Position[0])
		put(4, v.Position[1])
		put(8, v.Position[2])
		put(12, v.Normal[0])
		put(16, v.Normal[1])
		put(20, v.Normal[2])
		put(24, v.UV[0])
		put(28, v.UV[1])
		put(32, v.Tangent[0])
		put(36, v.Tangent[1])
		put(40, v.Tangent[2])
	}
	return out
}

// DecodeVertex reads one vertex from the start of b.
//
// Parameters:
//   - b: at least VertexStride bytes
//
// Returns:
//   - Vertex: the decoded vertex
func DecodeVertex(b []byte) Vertex {
	f := func(at int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(b[at:])) }
	return Vertex{
		Position: mgl32.Vec3{f(0), f(4), f(8)},
		Normal:   mgl32.Vec3{f(12), f(16), f(20)},
		UV:       mgl32.Vec2{f(24), f(28)},
		Tangent:  mgl32.Vec3{f(32), f(36), f(40)},
	}
}

// IndexBytes encodes uint32 indices little-endian.
func IndexBytes(indices []uint32) []byte {
	out := make([]byte, len(indices)*4)
	for i, idx := range indices {
		binary.LittleEndian.PutUint32(out[i*4:], idx)
	}
	return out
}
