package shader

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/device"
)

var (
	// structBlockRegex matches struct declarations and captures the name and body
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// locationRegex matches @location(N) attributes
	locationRegex = regexp.MustCompile(`@location\((\d+)\)`)

	// builtinRegex matches @builtin(...) attributes
	builtinRegex = regexp.MustCompile(`@builtin\(\w+\)`)

	// fieldRegex matches a struct field line: optional attributes, name, colon, type.
	// The type capture (.+) is greedy to handle parameterized types like array<T, N>.
	fieldRegex = regexp.MustCompile(`(?:(?:@\w+\([^)]*\)\s*)*)*\s*(\w+)\s*:\s*(.+)`)

	// vertexEntryRegex matches @vertex functions and captures the entry point name
	vertexEntryRegex = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`)

	// fragmentEntryRegex matches @fragment functions and captures the entry point name
	fragmentEntryRegex = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)

	// bindGroupDeclRegex captures group, binding, optional address space, variable name, and type
	// from declarations like: @group(0) @binding(0) var<uniform> vertexData: VertexUniforms;
	// or handle types: @group(1) @binding(1) var Albedo: texture_2d<f32>;
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// ErrReflection is returned when a shader's declarations do not fit the device binding model.
var ErrReflection = errors.New("shader: reflection mismatch")

// reflect builds the resource table of a pre-processed shader stage.
//
// Parameters:
//   - source: the pre-processed WGSL source
//   - stage: the stage the shader is compiled for
//
// Returns:
//   - *device.ShaderReflection: the reflected entry point, vertex layout and bindings
//   - error: ErrReflection if a binding is on the wrong group, a vertex layout does not match
//     device.VertexStride, or the entry point is missing
func reflect(source string, stage device.Stage) (*device.ShaderReflection, error) {
	cleaned := stripComments(source)
	structs := parseStructBlocks(cleaned)

	refl := &device.ShaderReflection{
		Stage:      stage,
		EntryPoint: parseEntryPoint(cleaned, stage),
	}
	if refl.EntryPoint == "" {
		return nil, fmt.Errorf("%w: no @%s entry point", ErrReflection, entryAttribute(stage))
	}

	if stage == device.StageVertex {
		attrs, stride, ok := parseVertexLayout(structs)
		if ok {
			if stride != device.VertexStride {
				return nil, fmt.Errorf("%w: vertex input stride %d does not match the %d-byte vertex layout",
					ErrReflection, stride, device.VertexStride)
			}
			refl.VertexAttributes = attrs
			refl.VertexStride = stride
		}
	}

	bindings, err := parseBindings(cleaned, structs, stage)
	if err != nil {
		return nil, err
	}
	refl.Bindings = bindings
	return refl, nil
}

func entryAttribute(stage device.Stage) string {
	if stage == device.StageVertex {
		return "vertex"
	}
	return "fragment"
}

// parseVertexLayout finds the first struct that is a pure vertex input (has @location attributes
// but no @builtin fields) and converts it into vertex attributes. Shaders that synthesize their
// vertices from the vertex index have no such struct and report false.
//
// Parameters:
//   - structs: the parsed struct blocks of the shader
//
// Returns:
//   - []device.VertexAttribute: attributes sorted by location
//   - int: the vertex stride in bytes
//   - bool: false if the shader has no vertex input struct
func parseVertexLayout(structs []parsedStruct) ([]device.VertexAttribute, int, bool) {
	for _, ps := range structs {
		if !isVertexInputStruct(ps) {
			continue
		}
		attrs, stride, ok := buildVertexLayout(ps)
		if !ok {
			continue
		}
		sort.Slice(attrs, func(i, j int) bool {
			return attrs[i].Location < attrs[j].Location
		})
		return attrs, stride, true
	}
	return nil, 0, false
}

// parseBindings extracts all @group(N) @binding(M) resource declarations from the cleaned WGSL
// source. Every declaration must live in the bind group owned by the stage. Uniform blocks get
// their size and member placement from the struct layout rules.
//
// Parameters:
//   - cleaned: the WGSL source with comments stripped
//   - structs: the parsed struct blocks of the shader
//   - stage: the stage the shader is compiled for
//
// Returns:
//   - []device.Binding: the declarations sorted by slot
//   - error: ErrReflection on a group mismatch, an unsupported resource or an unresolvable block
func parseBindings(cleaned string, structs []parsedStruct, stage device.Stage) ([]device.Binding, error) {
	structSizes, structMembers := computeStructSizes(structs)

	var bindings []device.Binding
	for _, match := range bindGroupDeclRegex.FindAllStringSubmatch(cleaned, -1) {
		group, _ := strconv.Atoi(match[1])
		slot, _ := strconv.Atoi(match[2])
		addressSpace := strings.TrimSpace(match[3])
		varName := strings.TrimSpace(match[4])
		typeName := strings.TrimSpace(match[5])

		if group != stage.Group() {
			return nil, fmt.Errorf("%w: %s declared in group %d, the %s stage owns group %d",
				ErrReflection, varName, group, stage, stage.Group())
		}

		kind, ok := classifyResource(addressSpace, typeName)
		if !ok {
			return nil, fmt.Errorf("%w: %s has unsupported resource type %q", ErrReflection, varName, typeName)
		}

		b := device.Binding{
			Group: group,
			Slot:  slot,
			Name:  varName,
			Kind:  kind,
			Type:  typeName,
		}
		if kind == device.BindingUniform {
			layout, ok := structSizes[typeName]
			if !ok {
				return nil, fmt.Errorf("%w: uniform %s has unresolvable type %q", ErrReflection, varName, typeName)
			}
			b.Size = layout.size
			b.Fields = structMembers[typeName]
		}
		if err := checkSlot(b); err != nil {
			return nil, err
		}
		bindings = append(bindings, b)
	}

	sort.Slice(bindings, func(i, j int) bool {
		return bindings[i].Slot < bindings[j].Slot
	})
	return bindings, nil
}

func checkSlot(b device.Binding) error {
	limit := device.MaxShaderResourceSlots
	switch b.Kind {
	case device.BindingUniform:
		limit = device.MaxConstantBufferSlots
	case device.BindingSampler:
		limit = device.MaxSamplerSlots
	}
	if b.Slot < 0 || b.Slot >= limit {
		return fmt.Errorf("%w: %s %s uses slot %d, limit is %d", ErrReflection, b.Kind, b.Name, b.Slot, limit)
	}
	return nil
}

// parseEntryPoint extracts the entry point function name for the given stage.
// Returns an empty string if no matching entry point annotation is found.
func parseEntryPoint(cleaned string, stage device.Stage) string {
	re := fragmentEntryRegex
	if stage == device.StageVertex {
		re = vertexEntryRegex
	}
	if match := re.FindStringSubmatch(cleaned); match != nil {
		return match[1]
	}
	return ""
}

// parseStructBlocks finds all struct { ... } blocks in the cleaned WGSL source
// and parses their fields including @location and @builtin attributes
//
// Parameters:
//   - source: WGSL source with comments already stripped
//
// Returns:
//   - []parsedStruct: all struct blocks found in the source
func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))

	for _, match := range matches {
		structs = append(structs, parsedStruct{
			name:   match[1],
			fields: parseStructFields(match[2]),
		})
	}

	return structs
}

// parseStructFields parses the body of a struct block into individual fields,
// extracting @location and @builtin attributes along with the field name and type
//
// Parameters:
//   - body: the content between { and } of a struct declaration
//
// Returns:
//   - []parsedField: all fields found in the struct body
func parseStructFields(body string) []parsedField {
	lines := splitAtTopLevelCommas(body)
	fields := make([]parsedField, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		field := parsedField{location: -1}
		if builtinRegex.MatchString(line) {
			field.isBuiltin = true
		}
		if locMatch := locationRegex.FindStringSubmatch(line); locMatch != nil {
			if loc, err := strconv.Atoi(locMatch[1]); err == nil {
				field.location = loc
			}
		}

		fm := fieldRegex.FindStringSubmatch(line)
		if fm == nil {
			continue
		}
		field.name = fm[1]
		field.typeName = strings.TrimSpace(fm[2])

		fields = append(fields, field)
	}

	return fields
}
