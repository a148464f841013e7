package scene

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-toon/engine/compositor"
	"github.com/Carmen-Shannon/oxy-toon/engine/loader"
	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/shader"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithLayout builds the scene from an in-memory layout. It takes precedence over WithLayoutFile.
//
// Parameters:
//   - layout: the layout; it is validated at Init
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLayout(layout *Layout) SceneBuilderOption {
	return func(s *scene) {
		s.layout = layout
	}
}

// WithLayoutFile builds the scene from a YAML file read at Init.
//
// Parameters:
//   - path: the layout file
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLayoutFile(path string) SceneBuilderOption {
	return func(s *scene) {
		s.layoutPath = path
	}
}

// WithInspector attaches an inspector called from Update.
//
// Parameters:
//   - inspector: the inspector
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithInspector(inspector Inspector) SceneBuilderOption {
	return func(s *scene) {
		s.inspector = inspector
	}
}

// WithInspectInterval sets the seconds between inspector calls. Zero calls it every frame.
//
// Parameters:
//   - seconds: the interval; negative values are treated as zero
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithInspectInterval(seconds float32) SceneBuilderOption {
	return func(s *scene) {
		s.inspectInterval = max(seconds, 0)
	}
}

// WithLoader shares a texture loader with the scene. The scene does not release a shared loader.
func WithLoader(l loader.Loader) SceneBuilderOption {
	return func(s *scene) {
		s.loader = l
	}
}

// WithShaderLibrary replaces the embedded shader library.
func WithShaderLibrary(lib shader.Library) SceneBuilderOption {
	return func(s *scene) {
		s.library = lib
	}
}

// WithCompositorOptions appends options applied after the layout's post-process settings.
func WithCompositorOptions(options ...compositor.CompositorBuilderOption) SceneBuilderOption {
	return func(s *scene) {
		s.compositorOpts = append(s.compositorOpts, options...)
	}
}

// WithLogger sets the logger used by the scene and the components it creates.
func WithLogger(logger *slog.Logger) SceneBuilderOption {
	return func(s *scene) {
		if logger != nil {
			s.logger = logger
		}
	}
}
