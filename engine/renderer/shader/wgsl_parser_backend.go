package shader

import (
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/device"
)

// wgslPrimitiveLayoutMap maps WGSL primitive, vector and matrix type names
// to their byte size and alignment per the WGSL specification.
//
// Reference: https://www.w3.org/TR/WGSL/#alignment-and-size
var wgslPrimitiveLayoutMap = map[string]wgslTypeLayout{
	// Scalars
	"f32":  {4, 4},
	"i32":  {4, 4},
	"u32":  {4, 4},
	"bool": {4, 4},

	// Vectors – f32
	"vec2<f32>": {8, 8},
	"vec2f":     {8, 8},
	"vec3<f32>": {12, 16},
	"vec3f":     {12, 16},
	"vec4<f32>": {16, 16},
	"vec4f":     {16, 16},

	// Vectors – i32
	"vec2<i32>": {8, 8},
	"vec2i":     {8, 8},
	"vec3<i32>": {12, 16},
	"vec3i":     {12, 16},
	"vec4<i32>": {16, 16},
	"vec4i":     {16, 16},

	// Vectors – u32
	"vec2<u32>": {8, 8},
	"vec2u":     {8, 8},
	"vec3<u32>": {12, 16},
	"vec3u":     {12, 16},
	"vec4<u32>": {16, 16},
	"vec4u":     {16, 16},

	// Matrices – matCxR<f32>: C columns of vecR<f32>, stride = roundUp(align(vecR), size(vecR))
	"mat2x2<f32>": {16, 8},
	"mat3x3<f32>": {48, 16},
	"mat4x4<f32>": {64, 16},
	"mat4x4f":     {64, 16},
}

// wgslVertexAttributeSizes maps the WGSL types accepted as vertex inputs to their byte size.
var wgslVertexAttributeSizes = map[string]int{
	"f32":       4,
	"vec2f":     8,
	"vec2<f32>": 8,
	"vec3f":     12,
	"vec3<f32>": 12,
	"vec4f":     16,
	"vec4<f32>": 16,
	"u32":       4,
	"i32":       4,
}

// roundUpAlign rounds value up to the next multiple of alignment.
// Alignment must be a power of two.
func roundUpAlign(alignment, value int) int {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}

// splitArrayType splits "array<T, N>" into its element type and count. The count is 0 for
// runtime-sized arrays. ok is false when typeName is not an array.
func splitArrayType(typeName string) (elem string, count int, ok bool) {
	inner, found := strings.CutPrefix(typeName, "array<")
	if !found || !strings.HasSuffix(inner, ">") {
		return "", 0, false
	}
	inner = inner[:len(inner)-1]
	parts := strings.SplitN(inner, ",", 2)
	elem = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		n, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return "", 0, false
		}
		count = n
	}
	return elem, count, true
}

// resolveTypeLayout resolves a WGSL type name to its size and alignment using primitives
// and previously-computed struct layouts. Handles fixed-size arrays (array<T, N>) and returns
// false for runtime-sized arrays or unknown types.
//
// Parameters:
//   - typeName: the WGSL type name to resolve, e.g. "f32", "PixelUniforms", "array<Light, 8>"
//   - knownTypes: a map of already-resolved type names to their layouts
//
// Returns:
//   - wgslTypeLayout: the resolved layout
//   - bool: true if the type could be resolved
func resolveTypeLayout(typeName string, knownTypes map[string]wgslTypeLayout) (wgslTypeLayout, bool) {
	if layout, ok := wgslPrimitiveLayoutMap[typeName]; ok {
		return layout, true
	}
	if layout, ok := knownTypes[typeName]; ok {
		return layout, true
	}

	elemType, count, ok := splitArrayType(typeName)
	if !ok || count == 0 {
		return wgslTypeLayout{}, false
	}
	elemLayout, ok := resolveTypeLayout(elemType, knownTypes)
	if !ok {
		return wgslTypeLayout{}, false
	}
	stride := roundUpAlign(elemLayout.align, elemLayout.size)
	return wgslTypeLayout{count * stride, elemLayout.align}, true
}

// computeStructLayout computes the byte size and alignment of a single WGSL struct using
// WGSL struct layout rules: each field is placed at the next aligned offset, and the total
// size is rounded up to the struct's alignment (max alignment of all fields). Fields with
// @builtin attributes are skipped as they are not part of the buffer layout.
//
// Parameters:
//   - ps: the parsed struct whose layout to compute
//   - knownTypes: a map of already-resolved type names to their layouts
//
// Returns:
//   - wgslTypeLayout: the computed layout
//   - []device.UniformField: the placement of every member
//   - bool: true if all fields could be resolved
func computeStructLayout(ps parsedStruct, knownTypes map[string]wgslTypeLayout) (wgslTypeLayout, []device.UniformField, bool) {
	offset := 0
	maxAlign := 1
	fields := make([]device.UniformField, 0, len(ps.fields))

	for _, field := range ps.fields {
		if field.isBuiltin {
			continue
		}

		fieldLayout, ok := resolveTypeLayout(field.typeName, knownTypes)
		if !ok {
			return wgslTypeLayout{}, nil, false
		}

		offset = roundUpAlign(fieldLayout.align, offset)
		uf := device.UniformField{
			Name:   field.name,
			Type:   field.typeName,
			Offset: offset,
			Size:   fieldLayout.size,
		}
		if elemType, count, isArray := splitArrayType(field.typeName); isArray {
			elemLayout, _ := resolveTypeLayout(elemType, knownTypes)
			uf.ArrayCount = count
			uf.Stride = roundUpAlign(elemLayout.align, elemLayout.size)
		}
		fields = append(fields, uf)
		offset += fieldLayout.size

		maxAlign = max(maxAlign, fieldLayout.align)
	}

	size := roundUpAlign(maxAlign, offset)
	return wgslTypeLayout{size, maxAlign}, fields, true
}

// computeStructSizes computes the byte size, alignment and member placement of all parsed
// WGSL structs. It resolves dependencies between structs iteratively, handling cases where
// one struct contains fields typed as another struct.
//
// Parameters:
//   - structs: all parsed struct blocks from the WGSL source
//
// Returns:
//   - map[string]wgslTypeLayout: a map from struct name to computed layout
//   - map[string][]device.UniformField: a map from struct name to member placements
func computeStructSizes(structs []parsedStruct) (map[string]wgslTypeLayout, map[string][]device.UniformField) {
	resolved := make(map[string]wgslTypeLayout, len(structs))
	members := make(map[string][]device.UniformField, len(structs))
	remaining := make([]parsedStruct, len(structs))
	copy(remaining, structs)

	for {
		progress := false
		next := remaining[:0]

		for _, ps := range remaining {
			if layout, fields, ok := computeStructLayout(ps, resolved); ok {
				resolved[ps.name] = layout
				members[ps.name] = fields
				progress = true
			} else {
				next = append(next, ps)
			}
		}

		remaining = next
		if !progress || len(remaining) == 0 {
			break
		}
	}

	return resolved, members
}

// classifyResource determines the binding kind from the address space qualifier and type name
// of a parsed WGSL resource declaration.
//
// Parameters:
//   - addressSpace: the address space qualifier (e.g. "uniform"), empty for handle types
//   - typeName: the WGSL type string (e.g. "PixelUniforms", "texture_2d<f32>", "sampler")
//
// Returns:
//   - device.BindingKind: the binding category
//   - bool: false for resource kinds the device does not model (storage buffers and textures)
func classifyResource(addressSpace, typeName string) (device.BindingKind, bool) {
	if addressSpace != "" {
		return device.BindingUniform, addressSpace == "uniform"
	}

	switch {
	case typeName == "sampler":
		return device.BindingSampler, true
	case strings.HasPrefix(typeName, "texture_storage_"):
		return 0, false
	case strings.HasPrefix(typeName, "texture_"):
		return device.BindingTexture, true
	}
	return 0, false
}

// stripComments removes both single-line (//) and block (/* */) comments from WGSL source.
// Block comments may be nested per the WGSL specification.
func stripComments(source string) string {
	return stripLineComments(stripBlockComments(source))
}

// stripLineComments removes single-line // comments from WGSL source so they
// do not interfere with struct and field parsing
func stripLineComments(source string) string {
	var sb strings.Builder
	for line := range strings.SplitSeq(source, "\n") {
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// stripBlockComments removes block comments (/* ... */) from WGSL source,
// handling nested block comments per the WGSL specification
func stripBlockComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	i := 0
	for i < len(source) {
		if i+1 < len(source) {
			if source[i] == '/' && source[i+1] == '*' {
				depth++
				i += 2
				continue
			}
			if source[i] == '*' && source[i+1] == '/' {
				if depth > 0 {
					depth--
				}
				i += 2
				continue
			}
		}
		if depth == 0 {
			sb.WriteByte(source[i])
		}
		i++
	}
	return sb.String()
}

// isVertexInputStruct returns true if the struct is a pure vertex input, meaning
// it has at least one @location field and zero @builtin fields. This distinguishes
// vertex input structs from vertex output structs which mix @location with @builtin(position).
func isVertexInputStruct(ps parsedStruct) bool {
	hasLocation := false
	for _, f := range ps.fields {
		if f.isBuiltin {
			return false
		}
		if f.location >= 0 {
			hasLocation = true
		}
	}
	return hasLocation
}

// buildVertexLayout converts a parsed vertex input struct into tightly packed vertex attributes.
// Returns false if any field has an unrecognized type.
//
// Parameters:
//   - ps: the parsed struct containing vertex input fields
//
// Returns:
//   - []device.VertexAttribute: the attributes in declaration order
//   - int: the total stride in bytes
//   - bool: false if a field type could not be mapped to a vertex format
func buildVertexLayout(ps parsedStruct) ([]device.VertexAttribute, int, bool) {
	attrs := make([]device.VertexAttribute, 0, len(ps.fields))
	offset := 0

	for _, f := range ps.fields {
		size, ok := wgslVertexAttributeSizes[f.typeName]
		if !ok {
			return nil, 0, false
		}
		attrs = append(attrs, device.VertexAttribute{
			Location: f.location,
			Name:     f.name,
			Type:     f.typeName,
			Offset:   offset,
		})
		offset += size
	}

	return attrs, offset, true
}

// splitAtTopLevelCommas splits a string at commas that are not nested inside angle brackets.
// This correctly handles WGSL types like array<Light, 8> where the comma is part of
// the type syntax rather than a field separator.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}
