package shader

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-toon/common"
	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/device"
	"github.com/go-gl/mathgl/mgl32"
)

// constantBuffer is the CPU staging copy of one uniform block plus its device buffer.
type constantBuffer struct {
	slot    int
	name    string
	staging []byte
	buffer  device.Buffer
	dirty   bool
}

// variable locates a uniform member inside one of the program's constant buffers.
type variable struct {
	cb    *constantBuffer
	field device.UniformField
}

// program is the implementation of the Program interface.
type program struct {
	shader Shader
	ctx    device.Context

	vs device.VertexShader
	ps device.PixelShader

	buffers   []*constantBuffer
	variables map[string]variable
	textures  map[string]int
	samplers  map[string]int
}

// Program is a shader stage created on a device together with the constant buffers its uniform
// blocks need. Variables, textures and samplers are addressed by their WGSL names, which are
// resolved to slots once from the shader's reflection.
type Program interface {
	// Shader returns the reflected shader the program was created from.
	//
	// Returns:
	//   - Shader: the source shader
	Shader() Shader

	// Stage returns the pipeline stage of the program.
	//
	// Returns:
	//   - device.Stage: the stage
	Stage() device.Stage

	// SetFloat stages an f32 uniform member.
	//
	// Parameters:
	//   - name: the uniform member name
	//   - v: the value
	//
	// Returns:
	//   - bool: false if no uniform member has that name
	SetFloat(name string, v float32) bool

	// SetFloat2 stages a vec2<f32> uniform member.
	SetFloat2(name string, v mgl32.Vec2) bool

	// SetFloat3 stages a vec3<f32> uniform member.
	SetFloat3(name string, v mgl32.Vec3) bool

	// SetFloat4 stages a vec4<f32> uniform member.
	SetFloat4(name string, v mgl32.Vec4) bool

	// SetInt stages an i32 uniform member.
	SetInt(name string, v int32) bool

	// SetUint stages a u32 uniform member.
	SetUint(name string, v uint32) bool

	// SetMatrix4x4 stages a mat4x4<f32> uniform member.
	SetMatrix4x4(name string, m mgl32.Mat4) bool

	// SetData stages raw bytes into a uniform member, typically an array of structs.
	//
	// Parameters:
	//   - name: the uniform member name
	//   - data: the bytes to copy; bytes past len(data) keep their previous value
	//
	// Returns:
	//   - bool: false if no member has that name or data is larger than the member
	SetData(name string, data []byte) bool

	// SetShaderResourceView binds a texture view to the slot declared for name.
	//
	// Parameters:
	//   - name: the WGSL texture variable name
	//   - srv: the view to bind, nil to unbind
	//
	// Returns:
	//   - bool: false if the shader declares no texture with that name
	SetShaderResourceView(name string, srv device.ShaderResourceView) bool

	// SetSamplerState binds a sampler to the slot declared for name.
	//
	// Parameters:
	//   - name: the WGSL sampler variable name
	//   - sampler: the sampler to bind, nil to unbind
	//
	// Returns:
	//   - bool: false if the shader declares no sampler with that name
	SetSamplerState(name string, sampler device.SamplerState) bool

	// HasVariable reports whether a uniform member with the name exists.
	HasVariable(name string) bool

	// HasShaderResourceView reports whether a texture with the name is declared.
	HasShaderResourceView(name string) bool

	// HasSamplerState reports whether a sampler with the name is declared.
	HasSamplerState(name string) bool

	// VariableCapacity returns the array length of an array uniform member, or 0.
	VariableCapacity(name string) int

	// CopyAllBufferData uploads every staged uniform block that changed since the last upload.
	CopyAllBufferData()

	// SetShader makes the program the active stage on the context and binds its constant buffers.
	SetShader()

	// Release frees the device stage and the program's constant buffers.
	Release()
}

var _ Program = &program{}

// NewProgram creates the device stage for a shader and one constant buffer per uniform block.
//
// Parameters:
//   - dev: the device to create resources on
//   - s: the reflected shader
//
// Returns:
//   - Program: the program
//   - error: an error if the device rejects the shader or a buffer
func NewProgram(dev device.Device, s Shader) (Program, error) {
	p := &program{
		shader:    s,
		ctx:       dev.Context(),
		variables: make(map[string]variable),
		textures:  make(map[string]int),
		samplers:  make(map[string]int),
	}

	var err error
	switch s.Stage() {
	case device.StageVertex:
		p.vs, err = dev.CreateVertexShader(s.Desc())
	case device.StagePixel:
		p.ps, err = dev.CreatePixelShader(s.Desc())
	default:
		err = fmt.Errorf("unknown stage %d", s.Stage())
	}
	if err != nil {
		return nil, fmt.Errorf("shader: create %q: %w", s.Key(), err)
	}

	for _, b := range s.Reflection().Bindings {
		switch b.Kind {
		case device.BindingTexture:
			p.textures[b.Name] = b.Slot
		case device.BindingSampler:
			p.samplers[b.Name] = b.Slot
		case device.BindingUniform:
			buf, err := dev.CreateBuffer(device.BufferDesc{
				Label: s.Key() + "." + b.Name,
				Size:  b.Size,
				Usage: device.BufferConstant,
			}, nil)
			if err != nil {
				p.Release()
				return nil, fmt.Errorf("shader: constant buffer %s of %q: %w", b.Name, s.Key(), err)
			}
			cb := &constantBuffer{slot: b.Slot, name: b.Name, staging: make([]byte, b.Size), buffer: buf, dirty: true}
			p.buffers = append(p.buffers, cb)
			for _, f := range b.Fields {
				p.variables[f.Name] = variable{cb: cb, field: f}
			}
		}
	}
	return p, nil
}

func (p *program) Shader() Shader {
	return p.shader
}

func (p *program) Stage() device.Stage {
	return p.shader.Stage()
}

// write copies b into the staging bytes of a member. b must fit the member.
func (p *program) write(name string, b []byte) bool {
	v, ok := p.variables[name]
	if !ok || len(b) > v.field.Size {
		return false
	}
	copy(v.cb.staging[v.field.Offset:], b)
	v.cb.dirty = true
	return true
}

func (p *program) SetFloat(name string, v float32) bool {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
	return p.write(name, b[:])
}

func (p *program) SetFloat2(name string, v mgl32.Vec2) bool {
	var b [8]byte
	common.PutFloat32s(b[:], v[:]...)
	return p.write(name, b[:])
}

func (p *program) SetFloat3(name string, v mgl32.Vec3) bool {
	var b [12]byte
	common.PutFloat32s(b[:], v[:]...)
	return p.write(name, b[:])
}

func (p *program) SetFloat4(name string, v mgl32.Vec4) bool {
	var b [16]byte
	common.PutFloat32s(b[:], v[:]...)
	return p.write(name, b[:])
}

func (p *program) SetInt(name string, v int32) bool {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	return p.write(name, b[:])
}

func (p *program) SetUint(name string, v uint32) bool {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return p.write(name, b[:])
}

func (p *program) SetMatrix4x4(name string, m mgl32.Mat4) bool {
	return p.write(name, common.Mat4Bytes(m))
}

func (p *program) SetData(name string, data []byte) bool {
	return p.write(name, data)
}

func (p *program) SetShaderResourceView(name string, srv device.ShaderResourceView) bool {
	slot, ok := p.textures[name]
	if !ok {
		return false
	}
	p.ctx.SetShaderResources(p.Stage(), slot, []device.ShaderResourceView{srv})
	return true
}

func (p *program) SetSamplerState(name string, sampler device.SamplerState) bool {
	slot, ok := p.samplers[name]
	if !ok {
		return false
	}
	p.ctx.SetSamplers(p.Stage(), slot, []device.SamplerState{sampler})
	return true
}

func (p *program) HasVariable(name string) bool {
	_, ok := p.variables[name]
	return ok
}

func (p *program) HasShaderResourceView(name string) bool {
	_, ok := p.textures[name]
	return ok
}

func (p *program) HasSamplerState(name string) bool {
	_, ok := p.samplers[name]
	return ok
}

func (p *program) VariableCapacity(name string) int {
	return p.variables[name].field.ArrayCount
}

func (p *program) CopyAllBufferData() {
	for _, cb := range p.buffers {
		if !cb.dirty {
			continue
		}
		p.ctx.UpdateBuffer(cb.buffer, cb.staging)
		cb.dirty = false
	}
}

func (p *program) SetShader() {
	switch p.Stage() {
	case device.StageVertex:
		p.ctx.SetVertexShader(p.vs)
	case device.StagePixel:
		p.ctx.SetPixelShader(p.ps)
	}
	for _, cb := range p.buffers {
		p.ctx.SetConstantBuffer(p.Stage(), cb.slot, cb.buffer)
	}
}

func (p *program) Release() {
	if p.vs != nil {
		p.vs.Release()
	}
	if p.ps != nil {
		p.ps.Release()
	}
	for _, cb := range p.buffers {
		cb.buffer.Release()
	}
}
