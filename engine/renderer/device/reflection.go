package device

// BindingKind is the category of a shader resource binding.
type BindingKind int

const (
	BindingUniform BindingKind = iota
	BindingTexture
	BindingSampler
)

func (k BindingKind) String() string {
	switch k {
	case BindingUniform:
		return "uniform"
	case BindingTexture:
		return "texture"
	case BindingSampler:
		return "sampler"
	default:
		return "unknown"
	}
}

// UniformField is one member of a uniform block with its byte placement.
type UniformField struct {
	Name   string
	Type   string
	Offset int
	Size   int

	// ArrayCount is the fixed element count for array<T, N> members and 0 otherwise.
	ArrayCount int

	// Stride is the byte distance between array elements.
	Stride int
}

// Binding is one @group/@binding declaration.
type Binding struct {
	Group int
	Slot  int
	Name  string
	Kind  BindingKind
	Type  string

	// Size is the uniform block size in bytes. Zero for textures and samplers.
	Size int

	// Fields lists the uniform block members in declaration order.
	Fields []UniformField
}

// VertexAttribute is one @location input of the vertex stage.
type VertexAttribute struct {
	Location int
	Name     string
	Type     string
	Offset   int
}

// ShaderReflection is the resource table of a compiled shader stage.
type ShaderReflection struct {
	Stage      Stage
	EntryPoint string
	Bindings   []Binding

	// VertexAttributes and VertexStride describe the vertex input struct. Both are empty when the
	// stage reads no vertex buffer.
	VertexAttributes []VertexAttribute
	VertexStride     int
}

// Binding looks up a declaration by kind and variable name.
//
// Parameters:
//   - kind: the binding category
//   - name: the WGSL variable name
//
// Returns:
//   - Binding: the declaration
//   - bool: false if no declaration matches
func (r *ShaderReflection) Binding(kind BindingKind, name string) (Binding, bool) {
	for _, b := range r.Bindings {
		if b.Kind == kind && b.Name == name {
			return b, true
		}
	}
	return Binding{}, false
}

// BindingAt looks up a declaration by kind and slot.
func (r *ShaderReflection) BindingAt(kind BindingKind, slot int) (Binding, bool) {
	for _, b := range r.Bindings {
		if b.Kind == kind && b.Slot == slot {
			return b, true
		}
	}
	return Binding{}, false
}

// Field finds a uniform member by name across every uniform block of the stage.
//
// Parameters:
//   - name: the struct member name
//
// Returns:
//   - Binding: the uniform block containing the member
//   - UniformField: the member
//   - bool: false if no block declares the member
func (r *ShaderReflection) Field(name string) (Binding, UniformField, bool) {
	for _, b := range r.Bindings {
		if b.Kind != BindingUniform {
			continue
		}
		for _, f := range b.Fields {
			if f.Name == name {
				return b, f, true
			}
		}
	}
	return Binding{}, UniformField{}, false
}

// ShaderDesc is everything a backend needs to create a shader stage.
type ShaderDesc struct {
	// Key identifies the shader; the software backend selects its kernel by key.
	Key string

	// Source is the pre-processed WGSL source.
	Source string

	Reflection *ShaderReflection
}
