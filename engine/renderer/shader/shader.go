package shader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/device"
)

// shader is the implementation of the Shader interface.
// It holds the pre-processed source and the reflection computed once at load time.
type shader struct {
	key        string
	source     string
	stage      device.Stage
	reflection *device.ShaderReflection

	pp PreProcessor
}

// Shader defines the interface for a loaded and reflected WGSL shader stage. It exposes the
// shader's unique key, source code, entry point and the resource table that programs use to
// resolve variable names to slots.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for caching and kernel lookup.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the pre-processed WGSL shader source code.
	//
	// Returns:
	//   - string: the WGSL source code of the shader
	Source() string

	// Stage returns the pipeline stage the shader is compiled for.
	//
	// Returns:
	//   - device.Stage: device.StageVertex or device.StagePixel
	Stage() device.Stage

	// EntryPoint returns the entry point name for this shader.
	//
	// Returns:
	//   - string: the entry point name (e.g. "vs_main")
	EntryPoint() string

	// Reflection returns the resource table of the shader.
	//
	// Returns:
	//   - *device.ShaderReflection: bindings, uniform placement and vertex layout
	Reflection() *device.ShaderReflection

	// ArrayCapacity returns the fixed element count of an array uniform member.
	//
	// Parameters:
	//   - field: the uniform member name, e.g. "lights"
	//
	// Returns:
	//   - int: the compiled array length, or 0 when the member is missing or not an array
	ArrayCapacity(field string) int

	// Desc returns the description a device needs to create the stage.
	//
	// Returns:
	//   - device.ShaderDesc: key, source and reflection
	Desc() device.ShaderDesc

	// Includes returns the @oxy:include annotations the source pulled in.
	//
	// Returns:
	//   - []Annotation: include annotations in source order
	Includes() []Annotation
}

var _ Shader = &shader{}

// NewShader pre-processes and reflects a WGSL shader stage.
//
// Parameters:
//   - key: a unique identifier for the shader, used for caching and kernel lookup
//   - stage: the pipeline stage the shader is compiled for
//   - source: the raw WGSL source
//
// Returns:
//   - Shader: the reflected shader
//   - error: an error if pre-processing fails or the declarations do not fit the binding model
func NewShader(key string, stage device.Stage, source string) (Shader, error) {
	if source == "" {
		return nil, fmt.Errorf("shader: %s has no source", key)
	}
	s := &shader{
		key:   key,
		stage: stage,
		pp:    NewPreProcessor(),
	}

	var err error
	s.source, err = s.pp.Process(source)
	if err != nil {
		return nil, fmt.Errorf("shader: failed to pre-process %q: %w", key, err)
	}
	s.reflection, err = reflect(s.source, stage)
	if err != nil {
		return nil, fmt.Errorf("shader: %q: %w", key, err)
	}
	return s, nil
}

// MustShader is like NewShader but panics on error. It is meant for shaders built from
// sources compiled into the binary.
func MustShader(key string, stage device.Stage, source string) Shader {
	s, err := NewShader(key, stage, source)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) Stage() device.Stage {
	return s.stage
}

func (s *shader) EntryPoint() string {
	return s.reflection.EntryPoint
}

func (s *shader) Reflection() *device.ShaderReflection {
	return s.reflection
}

func (s *shader) ArrayCapacity(field string) int {
	_, f, ok := s.reflection.Field(field)
	if !ok {
		return 0
	}
	return f.ArrayCount
}

func (s *shader) Desc() device.ShaderDesc {
	return device.ShaderDesc{
		Key:        s.key,
		Source:     s.source,
		Reflection: s.reflection,
	}
}

func (s *shader) Includes() []Annotation {
	return s.pp.Includes()
}
