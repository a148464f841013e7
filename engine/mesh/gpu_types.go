package mesh

import _ "embed"

// GPUVertexSource is the canonical WGSL definition of the VertexInput struct.
// Matches device.Vertex exactly (44 bytes, tightly packed vertex attributes).
//
//go:embed assets/vertex.wgsl
var GPUVertexSource string
