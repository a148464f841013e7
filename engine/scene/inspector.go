package scene

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-toon/engine/light"
	"github.com/Carmen-Shannon/oxy-toon/engine/transform"
	"github.com/go-gl/mathgl/mgl32"
)

// Inspector observes and edits a scene between frames. The scene calls it at its inspect
// interval, never while a frame is being drawn.
type Inspector interface {
	// Inspect is handed a view of the scene valid only for the duration of the call.
	//
	// Parameters:
	//   - view: the entity transforms and lights of the scene
	Inspect(view SceneView)
}

// InspectorFunc adapts a function to the Inspector interface.
type InspectorFunc func(view SceneView)

func (f InspectorFunc) Inspect(view SceneView) {
	f(view)
}

// SceneView exposes entity transforms and lights to an Inspector without handing over
// ownership. Light edits go through the light's clamped setters.
type SceneView interface {
	EntityCount() int
	EntityName(i int) string

	// EntityTransform returns the transform of entity i for reading or editing. Edits show up in
	// the next frame.
	EntityTransform(i int) *transform.Transform

	LightCount() int

	// Light returns light i of the scene's light list.
	Light(i int) *light.Light

	Ambient() mgl32.Vec3
	SetAmbient(ambient mgl32.Vec3)
}

type sceneView struct {
	s *scene
}

var _ SceneView = sceneView{}

func (v sceneView) EntityCount() int {
	return len(v.s.entities)
}

func (v sceneView) EntityName(i int) string {
	return v.s.entities[i].Name()
}

func (v sceneView) EntityTransform(i int) *transform.Transform {
	return v.s.entities[i].Transform()
}

func (v sceneView) LightCount() int {
	return v.s.lights.Len()
}

func (v sceneView) Light(i int) *light.Light {
	return v.s.lights.At(i)
}

func (v sceneView) Ambient() mgl32.Vec3 {
	return v.s.ambient
}

func (v sceneView) SetAmbient(ambient mgl32.Vec3) {
	v.s.ambient = ambient
}

// logInspector writes the scene state to a structured logger.
type logInspector struct {
	logger *slog.Logger
}

// NewLogInspector creates an Inspector that logs a summary at info level and every entity and
// light at debug level.
//
// Parameters:
//   - logger: the destination; nil uses slog.Default()
//
// Returns:
//   - Inspector: the logging inspector
func NewLogInspector(logger *slog.Logger) Inspector {
	if logger == nil {
		logger = slog.Default()
	}
	return &logInspector{logger: logger}
}

func (li *logInspector) Inspect(view SceneView) {
	li.logger.Info("scene",
		"entities", view.EntityCount(),
		"lights", view.LightCount(),
		"ambient", view.Ambient())

	for i := range view.EntityCount() {
		t := view.EntityTransform(i)
		li.logger.Debug("entity",
			"index", i,
			"name", view.EntityName(i),
			"position", t.Position(),
			"rotation", t.Rotation(),
			"scale", t.Scale())
	}
	for i := range view.LightCount() {
		l := view.Light(i)
		li.logger.Debug("light",
			"index", i,
			"type", l.Type().String(),
			"enabled", l.Enabled(),
			"direction", l.Direction(),
			"position", l.Position(),
			"color", l.Color(),
			"intensity", l.Intensity(),
			"range", l.Range())
	}
}
