package scene

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-toon/common"
	"github.com/Carmen-Shannon/oxy-toon/engine/camera"
	"github.com/Carmen-Shannon/oxy-toon/engine/compositor"
	"github.com/Carmen-Shannon/oxy-toon/engine/entity"
	"github.com/Carmen-Shannon/oxy-toon/engine/light"
	"github.com/Carmen-Shannon/oxy-toon/engine/loader"
	"github.com/Carmen-Shannon/oxy-toon/engine/mesh"
	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-toon/engine/sky"
	"github.com/go-gl/mathgl/mgl32"
)

const defaultSkyTexture = "gradient:#4a7fd0:#f5ddb0"

// program returns the shared program for a shader key, loading it on first use. Materials that
// name the same shader share one program, and with it one set of uniform buffers.
func (s *scene) program(key string, stage device.Stage) (shader.Program, error) {
	if p, ok := s.programs[key]; ok {
		if p.Stage() != stage {
			return nil, fmt.Errorf("%w: shader %q is a %s shader", ErrInvalidLayout, key, p.Stage())
		}
		return p, nil
	}
	var p shader.Program
	var err error
	if stage == device.StageVertex {
		p, err = s.library.LoadVertex(s.dev, key)
	} else {
		p, err = s.library.LoadPixel(s.dev, key)
	}
	if err != nil {
		return nil, err
	}
	s.programs[key] = p
	return p, nil
}

// preloadTextures decodes every image file the layout names in one parallel batch, so the
// per-material lookups afterwards are cache hits.
func (s *scene) preloadTextures() error {
	seen := make(map[string]bool)
	var paths []string
	add := func(spec string) {
		if spec == "" || loader.IsProcedural(spec) {
			return
		}
		path := s.layout.resolvePath(spec)
		if !seen[path] {
			seen[path] = true
			paths = append(paths, path)
		}
	}
	for _, m := range s.layout.Materials {
		for _, spec := range m.Textures {
			add(spec)
		}
	}
	if !s.layout.Sky.Disabled {
		add(s.layout.Sky.Texture)
	}
	if len(paths) == 0 {
		return nil
	}
	_, err := s.loader.LoadTextures(paths)
	return err
}

func (s *scene) texture(spec string) (device.ShaderResourceView, error) {
	if !loader.IsProcedural(spec) {
		spec = s.layout.resolvePath(spec)
	}
	return s.loader.Texture(spec)
}

func (s *scene) buildMeshes() error {
	for _, ml := range s.layout.Meshes {
		d, err := ml.Data()
		if err != nil {
			return err
		}
		m, err := mesh.FromData(s.dev, ml.Name, d)
		if err != nil {
			return fmt.Errorf("mesh %q: %w", ml.Name, err)
		}
		s.meshes[ml.Name] = m
	}
	return nil
}

func (s *scene) buildMaterials() error {
	for _, ml := range s.layout.Materials {
		vs, err := s.program(ml.Vertex, device.StageVertex)
		if err != nil {
			return fmt.Errorf("material %q: %w", ml.Name, err)
		}
		ps, err := s.program(ml.Pixel, device.StagePixel)
		if err != nil {
			return fmt.Errorf("material %q: %w", ml.Name, err)
		}

		desc, _ := samplerDesc(ml.Sampler)
		sampler, err := s.loader.Sampler(desc)
		if err != nil {
			return fmt.Errorf("material %q: %w", ml.Name, err)
		}
		tint := mgl32.Vec3{1, 1, 1}
		if ml.Tint != nil {
			tint = mgl32.Vec3(*ml.Tint)
		}
		options := []material.MaterialBuilderOption{
			material.WithColorTint(tint),
			material.WithRoughness(ml.Roughness),
			material.WithSampler(desc.Label, sampler),
		}
		for name, spec := range ml.Textures {
			srv, err := s.texture(spec)
			if err != nil {
				return fmt.Errorf("material %q texture %s: %w", ml.Name, name, err)
			}
			options = append(options, material.WithTexture(name, srv))
		}
		for name, spec := range neutralTextures {
			if _, ok := ml.Textures[name]; ok || !ps.HasShaderResourceView(name) {
				continue
			}
			srv, err := s.texture(spec)
			if err != nil {
				return fmt.Errorf("material %q texture %s: %w", ml.Name, name, err)
			}
			options = append(options, material.WithTexture(name, srv))
		}
		s.materials[ml.Name] = material.NewMaterial(ml.Name, vs, ps, options...)
	}
	return nil
}

// neutralTextures fill the texture variables a pixel shader declares but a material leaves out.
// Programs are shared per shader key, so an unfilled slot would sample another material's view.
var neutralTextures = map[string]string{
	"Albedo":       "solid:#ffffff",
	"NormalMap":    "normal:flat",
	"RoughnessMap": "solid:#ffffff",
	"MetalnessMap": "solid:#000000",
}

func (s *scene) buildEntities() error {
	placements := s.layout.Placements()
	s.entities = make([]entity.GameEntity, 0, len(placements))
	for _, p := range placements {
		e := entity.NewGameEntity(p.Name, s.meshes[p.Mesh], s.materials[p.Material])
		t := e.Transform()
		t.SetPosition(mgl32.Vec3(p.Position))
		t.SetRotation(degrees(p.Rotation))
		if p.Scale != nil {
			t.SetScale(mgl32.Vec3(*p.Scale))
		}
		s.entities = append(s.entities, e)
	}
	return nil
}

// buildLights fills a list sized to the toon shader's light array. Lights past the capacity
// are dropped with a warning.
func (s *scene) buildLights() error {
	toon, err := s.library.Shader(shader.KeyPixelToon, device.StagePixel)
	if err != nil {
		return err
	}
	s.lights = light.NewList(toon.ArrayCapacity("lights"))

	lights := defaultLights()
	if len(s.layout.Lights) > 0 {
		lights = lights[:0]
		for _, lt := range s.layout.Lights {
			lights = append(lights, lt.build())
		}
	}
	for i, l := range lights {
		if err := s.lights.Add(l); err != nil {
			s.logger.Warn("dropping lights",
				"scene", s.name,
				"dropped", len(lights)-i,
				"capacity", s.lights.Capacity())
			break
		}
	}
	return nil
}

func (s *scene) buildCamera() {
	cl := s.layout.Camera
	sc := s.dev.SwapChain()
	controller := camera.NewFlyController(camera.WithMoveSpeed(common.Coalesce(cl.MoveSpeed, 3)))
	s.cam = camera.NewCamera(
		camera.WithPosition(mgl32.Vec3(cl.Position)),
		camera.WithRotation(degrees(cl.Rotation)),
		camera.WithFov(mgl32.DegToRad(common.Coalesce(cl.Fov, 45))),
		camera.WithClipPlanes(common.Coalesce(cl.Near, 0.01), common.Coalesce(cl.Far, 1000)),
		camera.WithAspect(float32(sc.Width())/float32(sc.Height())),
		camera.WithController(controller),
	)
}

func (s *scene) buildSky() error {
	if s.layout.Sky.Disabled {
		return nil
	}
	vs, err := s.program(shader.KeyVertexSky, device.StageVertex)
	if err != nil {
		return err
	}
	ps, err := s.program(shader.KeyPixelSky, device.StagePixel)
	if err != nil {
		return err
	}
	srv, err := s.texture(common.Coalesce(s.layout.Sky.Texture, defaultSkyTexture))
	if err != nil {
		return fmt.Errorf("sky texture: %w", err)
	}
	sampler, err := s.loader.Sampler(device.SamplerDesc{
		Label:    "sky",
		Filter:   device.FilterLinear,
		AddressU: device.AddressClamp,
		AddressV: device.AddressClamp,
	})
	if err != nil {
		return err
	}
	s.skyMesh, err = mesh.FromData(s.dev, "sky", mesh.Cube(2))
	if err != nil {
		return err
	}
	s.sky, err = sky.NewSky(s.skyMesh, vs, ps, sky.WithTexture(srv), sky.WithSampler(sampler))
	return err
}

func (s *scene) buildCompositor() error {
	vs, err := s.program(shader.KeyVertexFullscreen, device.StageVertex)
	if err != nil {
		return err
	}
	ps, err := s.program(shader.KeyPixelSobel, device.StagePixel)
	if err != nil {
		return err
	}

	pp := s.layout.PostProcess
	options := []compositor.CompositorBuilderOption{compositor.WithLogger(s.logger)}
	if pp.ClearColor != nil {
		options = append(options, compositor.WithClearColor(mgl32.Vec4(*pp.ClearColor)))
	}
	if pp.EdgeStrength != nil {
		options = append(options, compositor.WithEdgeStrength(*pp.EdgeStrength))
	}
	if pp.EdgeThreshold != nil {
		options = append(options, compositor.WithEdgeThreshold(*pp.EdgeThreshold))
	}
	options = append(options, s.compositorOpts...)

	s.comp, err = compositor.NewCompositor(s.dev, vs, ps, options...)
	return err
}

func degrees(v [3]float32) mgl32.Vec3 {
	return mgl32.Vec3{mgl32.DegToRad(v[0]), mgl32.DegToRad(v[1]), mgl32.DegToRad(v[2])}
}

// samplerDesc maps a layout sampler name to the BasicSampler state. Material samplers wrap so
// tiled UVs repeat.
func samplerDesc(name string) (device.SamplerDesc, error) {
	desc := device.SamplerDesc{
		Label:    "BasicSampler",
		AddressU: device.AddressWrap,
		AddressV: device.AddressWrap,
	}
	switch name {
	case "", "anisotropic":
		desc.Filter = device.FilterAnisotropic
		desc.MaxAnisotropy = 16
	case "linear":
		desc.Filter = device.FilterLinear
	case "point":
		desc.Filter = device.FilterPoint
	default:
		return device.SamplerDesc{}, fmt.Errorf("%w: unknown sampler %q", ErrInvalidLayout, name)
	}
	return desc, nil
}
