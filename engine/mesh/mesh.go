package mesh

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/device"
	"github.com/google/uuid"
)

var (
	// ErrMeshInUse is returned by Destroy while entities still hold a reference.
	ErrMeshInUse = errors.New("mesh: mesh is still referenced")

	// ErrInvalidMesh is returned by NewMesh for empty or malformed geometry.
	ErrInvalidMesh = errors.New("mesh: invalid geometry")

	// ErrDestroyed is raised when a destroyed mesh is acquired.
	ErrDestroyed = errors.New("mesh: mesh has been destroyed")
)

// Mesh is immutable GPU geometry: one vertex buffer and one uint32 index buffer. Meshes are
// shared between entities by pointer; every holder takes a reference with Acquire and drops it
// with Release, and the buffers can only be destroyed once nobody holds one.
type Mesh struct {
	id    uuid.UUID
	label string

	vertexBuffer device.Buffer
	indexBuffer  device.Buffer
	vertexCount  int
	indexCount   int

	mu        sync.Mutex
	refs      int
	destroyed bool
}

// Data is CPU-side triangle-list geometry, as produced by the primitive generators.
type Data struct {
	Vertices []device.Vertex
	Indices  []uint32
}

// NewMesh uploads geometry into device buffers.
//
// Parameters:
//   - dev: the device to create buffers on
//   - label: a debug label; the buffers are labeled label+".vb" and label+".ib"
//   - vertices: the vertex data
//   - indices: a triangle list indexing into vertices
//
// Returns:
//   - *Mesh: the mesh with zero references
//   - error: ErrInvalidMesh for empty geometry, a partial triangle or an out-of-range index, or a device error
func NewMesh(dev device.Device, label string, vertices []device.Vertex, indices []uint32) (*Mesh, error) {
	if len(vertices) == 0 || len(indices) == 0 {
		return nil, fmt.Errorf("%w: %q has no geometry", ErrInvalidMesh, label)
	}
	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("%w: %q has %d indices, not a triangle list", ErrInvalidMesh, label, len(indices))
	}
	for i, idx := range indices {
		if int(idx) >= len(vertices) {
			return nil, fmt.Errorf("%w: %q index %d references vertex %d of %d", ErrInvalidMesh, label, i, idx, len(vertices))
		}
	}

	vb, err := dev.CreateBuffer(device.BufferDesc{
		Label: label + ".vb",
		Size:  len(vertices) * device.VertexStride,
		Usage: device.BufferVertex,
	}, device.VertexBytes(vertices))
	if err != nil {
		return nil, fmt.Errorf("mesh: vertex buffer for %q: %w", label, err)
	}
	ib, err := dev.CreateBuffer(device.BufferDesc{
		Label: label + ".ib",
		Size:  len(indices) * 4,
		Usage: device.BufferIndex,
	}, device.IndexBytes(indices))
	if err != nil {
		vb.Release()
		return nil, fmt.Errorf("mesh: index buffer for %q: %w", label, err)
	}

	return &Mesh{
		id:           uuid.New(),
		label:        label,
		vertexBuffer: vb,
		indexBuffer:  ib,
		vertexCount:  len(vertices),
		indexCount:   len(indices),
	}, nil
}

// FromData is NewMesh for geometry produced by a primitive generator.
func FromData(dev device.Device, label string, d Data) (*Mesh, error) {
	return NewMesh(dev, label, d.Vertices, d.Indices)
}

func (m *Mesh) ID() uuid.UUID {
	return m.id
}

func (m *Mesh) Label() string {
	return m.label
}

func (m *Mesh) VertexBuffer() device.Buffer {
	return m.vertexBuffer
}

func (m *Mesh) IndexBuffer() device.Buffer {
	return m.indexBuffer
}

func (m *Mesh) VertexCount() int {
	return m.vertexCount
}

func (m *Mesh) IndexCount() int {
	return m.indexCount
}

// Acquire takes a reference and returns the mesh. It panics with ErrDestroyed on a destroyed mesh.
func (m *Mesh) Acquire() *Mesh {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		panic(fmt.Errorf("%w: %q", ErrDestroyed, m.label))
	}
	m.refs++
	return m
}

// Release drops a reference taken with Acquire. Extra releases are ignored.
func (m *Mesh) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refs > 0 {
		m.refs--
	}
}

// Refs returns the number of outstanding references.
func (m *Mesh) Refs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refs
}

// Destroy releases the device buffers. It is a no-op on a destroyed mesh.
//
// Returns:
//   - error: ErrMeshInUse while any reference is outstanding
func (m *Mesh) Destroy() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return nil
	}
	if m.refs > 0 {
		return fmt.Errorf("%w: %q has %d references", ErrMeshInUse, m.label, m.refs)
	}
	m.vertexBuffer.Release()
	m.indexBuffer.Release()
	m.destroyed = true
	return nil
}

// Destroyed reports whether Destroy has released the buffers.
func (m *Mesh) Destroyed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.destroyed
}
