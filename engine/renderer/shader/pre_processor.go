// pre_processor.go implements the Oxy WGSL shader pre-processor. It scans shader
// source code for @oxy: annotations and replaces them with the injected struct source,
// recording which structs each shader pulled in.
package shader

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-toon/engine/light"
	"github.com/Carmen-Shannon/oxy-toon/engine/mesh"
)

// registryEntry pairs a WGSL struct source string (embedded from a .wgsl asset file)
// with the WGSL type name it declares.
type registryEntry struct {
	// Source is the raw WGSL struct definition text injected by @oxy:include.
	Source string

	// Type is the WGSL type name declared by Source (e.g. "VertexInput", "Light").
	Type string
}

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	// structRegistry maps struct type argument keys to their embedded WGSL source and type name.
	structRegistry map[AnnotationArg]registryEntry

	// includes accumulates the include annotations seen during a Process call.
	includes []Annotation
}

// PreProcessor processes raw WGSL shader source code containing @oxy: annotations,
// replacing them with the registered struct sources.
type PreProcessor interface {
	// Process takes raw WGSL shader source code and replaces every @oxy:include annotation
	// with the embedded struct source it names. A struct is injected at most once per call.
	//
	// Parameters:
	//   - source: the raw WGSL shader source code containing annotations to be processed
	//
	// Returns:
	//   - string: the processed WGSL shader source code with annotations replaced
	//   - error: an error if any annotation is malformed or references an unknown type
	Process(source string) (string, error)

	// Includes returns the include annotations collected during the most recent call to
	// Process, in source order.
	//
	// Returns:
	//   - []Annotation: the includes collected during the last Process call
	Includes() []Annotation
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a new PreProcessor with all registered struct types pre-populated.
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor() PreProcessor {
	return &preProcessor{
		structRegistry: map[AnnotationArg]registryEntry{
			AnnotationArgVertex: {Source: mesh.GPUVertexSource, Type: "VertexInput"},
			AnnotationArgLight:  {Source: light.GPULightSource, Type: "Light"},
		},
	}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.includes = p.includes[:0]
	seen := make(map[AnnotationArg]bool)

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))

	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		entry, ok := p.structRegistry[a.Args[0]]
		if !ok {
			return "", fmt.Errorf("line %d: unknown @oxy:include argument %q", i+1, a.Args[0])
		}
		p.includes = append(p.includes, *a)
		if seen[a.Args[0]] {
			continue
		}
		seen[a.Args[0]] = true
		out = append(out, entry.Source)
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Includes() []Annotation {
	return p.includes
}
