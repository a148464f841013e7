package shader

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sync"

	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/device"
)

// Keys of the shaders shipped in the embedded library.
const (
	KeyVertexLit        = "vertex_lit"
	KeyPixelToon        = "pixel_toon"
	KeyPixelLit         = "pixel_lit"
	KeyVertexSky        = "vertex_sky"
	KeyPixelSky         = "pixel_sky"
	KeyVertexFullscreen = "vertex_fullscreen"
	KeyPixelSobel       = "pixel_sobel"
)

//go:embed assets/*.wgsl
var embeddedShaders embed.FS

// library is the implementation of the Library interface.
type library struct {
	mu      sync.Mutex
	fsys    fs.FS
	dir     string
	shaders map[string]Shader
}

// Library loads WGSL shaders by key from a file system and caches their reflection. The key
// is the file name without the .wgsl extension.
type Library interface {
	// Shader loads and reflects a shader, or returns the cached one.
	//
	// Parameters:
	//   - key: the shader key
	//   - stage: the stage to compile the shader for
	//
	// Returns:
	//   - Shader: the reflected shader
	//   - error: an error if the file is missing or fails reflection
	Shader(key string, stage device.Stage) (Shader, error)

	// LoadVertex creates a vertex program on dev.
	//
	// Parameters:
	//   - dev: the device
	//   - key: the shader key, e.g. KeyVertexLit
	//
	// Returns:
	//   - Program: the vertex program
	//   - error: an error if loading or creation fails
	LoadVertex(dev device.Device, key string) (Program, error)

	// LoadPixel creates a pixel program on dev.
	//
	// Parameters:
	//   - dev: the device
	//   - key: the shader key, e.g. KeyPixelToon
	//
	// Returns:
	//   - Program: the pixel program
	//   - error: an error if loading or creation fails
	LoadPixel(dev device.Device, key string) (Program, error)
}

var _ Library = &library{}

// NewLibrary creates a shader library. Without options it reads the shaders embedded in the binary.
//
// Parameters:
//   - options: optional LibraryBuilderOption values
//
// Returns:
//   - Library: the library
func NewLibrary(options ...LibraryBuilderOption) Library {
	l := &library{
		fsys:    embeddedShaders,
		dir:     "assets",
		shaders: make(map[string]Shader),
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

func (l *library) Shader(key string, stage device.Stage) (Shader, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if s, ok := l.shaders[key]; ok {
		if s.Stage() != stage {
			return nil, fmt.Errorf("shader: %q was loaded as a %s shader", key, s.Stage())
		}
		return s, nil
	}

	data, err := fs.ReadFile(l.fsys, path.Join(l.dir, key+".wgsl"))
	if err != nil {
		return nil, fmt.Errorf("shader: read %q: %w", key, err)
	}
	s, err := NewShader(key, stage, string(data))
	if err != nil {
		return nil, err
	}
	l.shaders[key] = s
	return s, nil
}

func (l *library) LoadVertex(dev device.Device, key string) (Program, error) {
	s, err := l.Shader(key, device.StageVertex)
	if err != nil {
		return nil, err
	}
	return NewProgram(dev, s)
}

func (l *library) LoadPixel(dev device.Device, key string) (Program, error) {
	s, err := l.Shader(key, device.StagePixel)
	if err != nil {
		return nil, err
	}
	return NewProgram(dev, s)
}
