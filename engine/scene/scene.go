package scene

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-toon/common"
	"github.com/Carmen-Shannon/oxy-toon/engine"
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

// Scene is the App the engine runs: it builds the entities, lights, camera, sky and compositor
// described by a Layout at Init and draws them every frame.
type Scene interface {
	engine.App

	// Name returns the scene's identifier.
	Name() string

	// Camera returns the scene's camera. Nil before Init.
	Camera() camera.Camera

	// Lights returns the scene's light list. Its capacity is the light array length compiled
	// into the toon pixel shader.
	//
	// Returns:
	//   - *light.List: the lights uploaded every frame
	Lights() *light.List

	// Ambient returns the ambient color applied to every material.
	Ambient() mgl32.Vec3

	// SetAmbient replaces the ambient color from the next frame on.
	SetAmbient(ambient mgl32.Vec3)

	// EntityCount returns the number of entities, hand-placed and scattered.
	EntityCount() int

	// Entity returns the entity at index i. Indices are stable for the life of the scene.
	//
	// Parameters:
	//   - i: the entity index in draw order
	//
	// Returns:
	//   - *entity.GameEntity: the entity, or nil if i is out of range
	Entity(i int) *entity.GameEntity

	// Material returns a material by its layout name. Materials are shared: edits are seen by
	// every entity using the material from the next frame on.
	//
	// Parameters:
	//   - name: the material name
	//
	// Returns:
	//   - material.Material: the material
	//   - bool: false if no material has that name
	Material(name string) (material.Material, bool)

	// Compositor returns the frame compositor. Nil before Init.
	Compositor() compositor.Compositor

	// Sky returns the sky, or nil when the layout disables it.
	Sky() sky.Sky

	// Release frees everything Init created. The scene cannot be used afterwards.
	Release()
}

type scene struct {
	name   string
	logger *slog.Logger
	dev    device.Device

	layout     *Layout
	layoutPath string

	library    shader.Library
	loader     loader.Loader
	ownsLoader bool

	programs  map[string]shader.Program
	meshes    map[string]*mesh.Mesh
	materials map[string]material.Material
	entities  []entity.GameEntity
	skyMesh   *mesh.Mesh

	lights    *light.List
	ambient   mgl32.Vec3
	toonBands float32

	cam            camera.Camera
	sky            sky.Sky
	comp           compositor.Compositor
	compositorOpts []compositor.CompositorBuilderOption

	inspector       Inspector
	inspectInterval float32
	sinceInspect    float32
}

var _ Scene = &scene{}

// NewScene creates a scene that renders on dev. Nothing is built until Init. When no layout
// option is given the embedded toon desert scene is used.
//
// Panics if dev is nil.
//
// Parameters:
//   - name: the name of the scene
//   - dev: the device to build resources on (must not be nil)
//   - options: functional options to configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, dev device.Device, options ...SceneBuilderOption) Scene {
	if dev == nil {
		panic("scene: NewScene requires a non-nil Device")
	}
	s := &scene{
		name:      name,
		logger:    engine.Logger(),
		dev:       dev,
		library:   shader.NewLibrary(),
		programs:  make(map[string]shader.Program),
		meshes:    make(map[string]*mesh.Mesh),
		materials: make(map[string]material.Material),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.loader == nil {
		s.loader = loader.NewLoader(dev, loader.WithLogger(s.logger))
		s.ownsLoader = true
	}
	return s
}

// Init builds the scene. Any failure releases what was built and is returned.
func (s *scene) Init() error {
	if err := s.init(); err != nil {
		s.Release()
		return fmt.Errorf("scene %q: %w", s.name, err)
	}
	s.logger.Info("scene ready",
		"name", s.name,
		"entities", len(s.entities),
		"materials", len(s.materials),
		"lights", s.lights.Len())
	return nil
}

func (s *scene) init() error {
	if err := s.resolveLayout(); err != nil {
		return err
	}
	l := s.layout
	s.ambient = mgl32.Vec3(l.Ambient)
	s.toonBands = l.ToonBands

	if err := s.preloadTextures(); err != nil {
		return err
	}
	if err := s.buildMeshes(); err != nil {
		return err
	}
	if err := s.buildMaterials(); err != nil {
		return err
	}
	if err := s.buildEntities(); err != nil {
		return err
	}
	if err := s.buildLights(); err != nil {
		return err
	}
	s.buildCamera()
	if err := s.buildSky(); err != nil {
		return err
	}
	return s.buildCompositor()
}

func (s *scene) resolveLayout() error {
	if s.layout != nil {
		return s.layout.Validate()
	}
	var err error
	if s.layoutPath != "" {
		s.layout, err = LoadLayoutFile(s.layoutPath)
	} else {
		s.layout, err = DefaultLayout()
	}
	return err
}

func (s *scene) Update(dt, total float32, input common.InputSnapshot) {
	s.cam.Update(dt, input)

	if s.inspector == nil {
		return
	}
	s.sinceInspect += dt
	if s.sinceInspect >= s.inspectInterval {
		s.sinceInspect = 0
		s.inspector.Inspect(sceneView{s: s})
	}
}

func (s *scene) Draw(dt, total float32) {
	frame := compositor.FrameUniforms{
		Ambient:   s.ambient,
		Lights:    s.lights,
		ToonBands: s.toonBands,
	}
	if err := s.comp.Frame(s.entities, s.cam, frame, s.sky); err != nil {
		s.logger.Warn("present failed", "scene", s.name, "err", err)
	}
}

// OnResize resizes the swap chain and the offscreen target and updates the camera aspect.
// A device that cannot resize is fatal to the frame loop.
func (s *scene) OnResize(width, height int) {
	if err := s.dev.SwapChain().ResizeBuffers(width, height); err != nil {
		panic(fmt.Errorf("scene: resize swap chain: %w", err))
	}
	if err := s.comp.Resize(width, height); err != nil {
		panic(fmt.Errorf("scene: resize compositor: %w", err))
	}
	s.cam.UpdateProjectionMatrix(float32(width) / float32(height))
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) Camera() camera.Camera {
	return s.cam
}

func (s *scene) Lights() *light.List {
	return s.lights
}

func (s *scene) Ambient() mgl32.Vec3 {
	return s.ambient
}

func (s *scene) SetAmbient(ambient mgl32.Vec3) {
	s.ambient = ambient
}

func (s *scene) EntityCount() int {
	return len(s.entities)
}

func (s *scene) Entity(i int) *entity.GameEntity {
	if i < 0 || i >= len(s.entities) {
		return nil
	}
	return &s.entities[i]
}

func (s *scene) Material(name string) (material.Material, bool) {
	m, ok := s.materials[name]
	return m, ok
}

func (s *scene) Compositor() compositor.Compositor {
	return s.comp
}

func (s *scene) Sky() sky.Sky {
	return s.sky
}

// Release drops entity and sky mesh references before destroying the meshes, then frees the
// compositor, programs and textures.
func (s *scene) Release() {
	for i := range s.entities {
		s.entities[i].Release()
	}
	s.entities = nil
	if s.sky != nil {
		s.sky.Release()
		s.sky = nil
	}

	var errs []error
	for name, m := range s.meshes {
		errs = append(errs, m.Destroy())
		delete(s.meshes, name)
	}
	if s.skyMesh != nil {
		errs = append(errs, s.skyMesh.Destroy())
		s.skyMesh = nil
	}
	if err := errors.Join(errs...); err != nil {
		s.logger.Error("scene meshes still referenced", "scene", s.name, "err", err)
	}

	if s.comp != nil {
		s.comp.Release()
		s.comp = nil
	}
	for key, p := range s.programs {
		p.Release()
		delete(s.programs, key)
	}
	clear(s.materials)
	if s.ownsLoader {
		s.loader.Release()
	}
}
