// Package entity defines GameEntity, one drawable instance of a shared mesh and material.
package entity

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-toon/engine/camera"
	"github.com/Carmen-Shannon/oxy-toon/engine/mesh"
	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-toon/engine/transform"
)

// ErrReleased is raised when a released entity is drawn.
var ErrReleased = errors.New("entity: entity has been released")

// GameEntity pairs a mesh reference and a material with its own transform. The mesh and material
// are shared with other entities; the transform is not. Copies of an entity share its mesh
// reference, so releasing any copy releases it exactly once.
type GameEntity struct {
	name      string
	ref       *meshRef
	material  material.Material
	transform transform.Transform
}

// meshRef is the one mesh reference an entity owns.
type meshRef struct {
	mesh *mesh.Mesh
}

// NewGameEntity creates an entity at the origin and takes a reference on the mesh.
//
// Parameters:
//   - name: a display name for inspection and logs
//   - m: the mesh to draw; the entity holds a reference until Release
//   - mat: the material to draw with
//
// Returns:
//   - GameEntity: the new entity
func NewGameEntity(name string, m *mesh.Mesh, mat material.Material) GameEntity {
	return GameEntity{
		name:      name,
		ref:       &meshRef{mesh: m.Acquire()},
		material:  mat,
		transform: transform.New(),
	}
}

func (e *GameEntity) Name() string {
	return e.name
}

// Mesh returns the referenced mesh, or nil once the entity is released.
func (e *GameEntity) Mesh() *mesh.Mesh {
	if e.ref == nil {
		return nil
	}
	return e.ref.mesh
}

func (e *GameEntity) Material() material.Material {
	return e.material
}

// SetMaterial switches the entity to another shared material.
func (e *GameEntity) SetMaterial(mat material.Material) {
	e.material = mat
}

// Transform returns the entity's own transform for editing in place.
func (e *GameEntity) Transform() *transform.Transform {
	return &e.transform
}

// Release drops the entity's mesh reference. The entity must not be drawn afterwards.
func (e *GameEntity) Release() {
	if e.ref == nil || e.ref.mesh == nil {
		return
	}
	e.ref.mesh.Release()
	e.ref.mesh = nil
}

// Draw activates the material's programs, uploads the per-entity uniforms and issues one indexed
// draw of the mesh. Per-frame pixel uniforms such as lights and ambient color are expected to be
// staged on the pixel program already; they are committed together with the entity's own values.
//
// Parameters:
//   - ctx: the device context to draw with
//   - cam: the camera supplying view and projection
func (e *GameEntity) Draw(ctx device.Context, cam camera.Camera) {
	vs := e.material.VertexShader()
	ps := e.material.PixelShader()
	vs.SetShader()
	ps.SetShader()

	vs.SetMatrix4x4("world", e.transform.GetWorldMatrix())
	vs.SetMatrix4x4("worldInvTranspose", e.transform.GetWorldInverseTransposeMatrix())
	vs.SetMatrix4x4("view", cam.ViewMatrix())
	vs.SetMatrix4x4("projection", cam.ProjectionMatrix())

	ps.SetFloat3("colorTint", e.material.ColorTint())
	ps.SetFloat("roughness", e.material.Roughness())
	ps.SetFloat3("cameraPosition", cam.Position())

	vs.CopyAllBufferData()
	ps.CopyAllBufferData()

	m := e.Mesh()
	if m == nil {
		panic(fmt.Errorf("entity %q: draw: %w", e.name, ErrReleased))
	}
	ctx.SetVertexBuffer(m.VertexBuffer(), device.VertexStride)
	ctx.SetIndexBuffer(m.IndexBuffer())
	ctx.DrawIndexed(m.IndexCount(), 0, 0)
}
