package scene

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Carmen-Shannon/oxy-toon/common"
	"github.com/Carmen-Shannon/oxy-toon/engine/mesh"
	"gopkg.in/yaml.v3"
)

// ErrInvalidLayout is returned when a layout fails validation.
var ErrInvalidLayout = errors.New("scene: invalid layout")

//go:embed default_scene.yaml
var defaultSceneYAML []byte

// Layout describes everything a scene builds at Init. Angles are in degrees.
type Layout struct {
	// Seed drives the scatter placement. The same seed always produces the same scene.
	Seed uint64 `yaml:"seed"`

	Ambient   [3]float32 `yaml:"ambient"`
	ToonBands float32    `yaml:"toonBands"`

	Camera      CameraLayout      `yaml:"camera"`
	Sky         SkyLayout         `yaml:"sky"`
	PostProcess PostProcessLayout `yaml:"postProcess"`

	Meshes    []MeshLayout     `yaml:"meshes"`
	Materials []MaterialLayout `yaml:"materials"`
	Entities  []EntityLayout   `yaml:"entities"`
	Scatter   []ScatterLayout  `yaml:"scatter"`

	// Lights replaces the default light rig when non-empty.
	Lights []LightLayout `yaml:"lights"`

	// baseDir resolves relative texture paths. Set by LoadLayoutFile.
	baseDir string
}

type CameraLayout struct {
	Position  [3]float32 `yaml:"position"`
	Rotation  [3]float32 `yaml:"rotation"`
	Fov       float32    `yaml:"fov"`
	Near      float32    `yaml:"near"`
	Far       float32    `yaml:"far"`
	MoveSpeed float32    `yaml:"moveSpeed"`
}

type SkyLayout struct {
	Disabled bool   `yaml:"disabled"`
	Texture  string `yaml:"texture"`
}

type PostProcessLayout struct {
	ClearColor    *[4]float32 `yaml:"clearColor"`
	EdgeStrength  *float32    `yaml:"edgeStrength"`
	EdgeThreshold *float32    `yaml:"edgeThreshold"`
}

// MeshLayout names a procedural primitive. Unset dimensions fall back to unit sizes.
type MeshLayout struct {
	Name      string  `yaml:"name"`
	Primitive string  `yaml:"primitive"`
	Size      float32 `yaml:"size"`
	Radius    float32 `yaml:"radius"`
	Height    float32 `yaml:"height"`
	Slices    int     `yaml:"slices"`
	Stacks    int     `yaml:"stacks"`
	Tiling    float32 `yaml:"tiling"`
}

// MaterialLayout pairs shader keys with texture specs. Textures maps a shader texture name
// (Albedo, NormalMap, ...) to a loader spec or an image path.
type MaterialLayout struct {
	Name      string            `yaml:"name"`
	Vertex    string            `yaml:"vertex"`
	Pixel     string            `yaml:"pixel"`
	Tint      *[3]float32       `yaml:"tint"`
	Roughness float32           `yaml:"roughness"`
	Textures  map[string]string `yaml:"textures"`
	Sampler   string            `yaml:"sampler"`
}

type EntityLayout struct {
	Name     string      `yaml:"name"`
	Mesh     string      `yaml:"mesh"`
	Material string      `yaml:"material"`
	Position [3]float32  `yaml:"position"`
	Rotation [3]float32  `yaml:"rotation"`
	Scale    *[3]float32 `yaml:"scale"`
}

// ScatterLayout places Count copies of a mesh at random points of a disc of the given
// Radius around Center, cycling through Materials.
type ScatterLayout struct {
	Name      string     `yaml:"name"`
	Mesh      string     `yaml:"mesh"`
	Materials []string   `yaml:"materials"`
	Count     int        `yaml:"count"`
	Center    [3]float32 `yaml:"center"`
	Radius    float32    `yaml:"radius"`
	MinRadius float32    `yaml:"minRadius"`
	MinScale  float32    `yaml:"minScale"`
	MaxScale  float32    `yaml:"maxScale"`
	// Sink lowers each copy by this fraction of its scale so it sits in the ground.
	Sink float32 `yaml:"sink"`
}

type LightLayout struct {
	Type      string     `yaml:"type"`
	Direction [3]float32 `yaml:"direction"`
	Position  [3]float32 `yaml:"position"`
	Color     [3]float32 `yaml:"color"`
	Intensity float32    `yaml:"intensity"`
	Range     float32    `yaml:"range"`
	Disabled  bool       `yaml:"disabled"`
}

// DefaultLayout returns the embedded toon desert scene.
//
// Returns:
//   - *Layout: the parsed layout
//   - error: only if the embedded file is broken
func DefaultLayout() (*Layout, error) {
	return ParseLayout(defaultSceneYAML)
}

// ParseLayout decodes and validates a YAML layout.
//
// Parameters:
//   - data: the YAML document
//
// Returns:
//   - *Layout: the layout
//   - error: a decode error or an error wrapping ErrInvalidLayout
func ParseLayout(data []byte) (*Layout, error) {
	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("scene: decode layout: %w", err)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

// LoadLayoutFile reads a layout from disk. Relative texture paths resolve against the file's directory.
func LoadLayoutFile(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scene: read layout: %w", err)
	}
	l, err := ParseLayout(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	l.baseDir = filepath.Dir(path)
	return l, nil
}

// Validate checks that every reference in the layout resolves and every primitive is known.
//
// Returns:
//   - error: an error wrapping ErrInvalidLayout describing the first problem found
func (l *Layout) Validate() error {
	meshes := make(map[string]bool, len(l.Meshes))
	for i, m := range l.Meshes {
		if m.Name == "" {
			return fmt.Errorf("%w: mesh %d has no name", ErrInvalidLayout, i)
		}
		if meshes[m.Name] {
			return fmt.Errorf("%w: duplicate mesh %q", ErrInvalidLayout, m.Name)
		}
		if _, err := m.Data(); err != nil {
			return err
		}
		meshes[m.Name] = true
	}

	materials := make(map[string]bool, len(l.Materials))
	for i, m := range l.Materials {
		if m.Name == "" {
			return fmt.Errorf("%w: material %d has no name", ErrInvalidLayout, i)
		}
		if materials[m.Name] {
			return fmt.Errorf("%w: duplicate material %q", ErrInvalidLayout, m.Name)
		}
		if m.Vertex == "" || m.Pixel == "" {
			return fmt.Errorf("%w: material %q needs a vertex and a pixel shader", ErrInvalidLayout, m.Name)
		}
		if _, err := samplerDesc(m.Sampler); err != nil {
			return fmt.Errorf("material %q: %w", m.Name, err)
		}
		materials[m.Name] = true
	}

	for i, e := range l.Entities {
		if !meshes[e.Mesh] {
			return fmt.Errorf("%w: entity %d (%q) uses unknown mesh %q", ErrInvalidLayout, i, e.Name, e.Mesh)
		}
		if !materials[e.Material] {
			return fmt.Errorf("%w: entity %d (%q) uses unknown material %q", ErrInvalidLayout, i, e.Name, e.Material)
		}
	}

	for i, s := range l.Scatter {
		if !meshes[s.Mesh] {
			return fmt.Errorf("%w: scatter %d uses unknown mesh %q", ErrInvalidLayout, i, s.Mesh)
		}
		if len(s.Materials) == 0 {
			return fmt.Errorf("%w: scatter %d has no materials", ErrInvalidLayout, i)
		}
		for _, name := range s.Materials {
			if !materials[name] {
				return fmt.Errorf("%w: scatter %d uses unknown material %q", ErrInvalidLayout, i, name)
			}
		}
		if s.Count < 0 || s.Radius < 0 || s.MinRadius > s.Radius {
			return fmt.Errorf("%w: scatter %d has a negative count or an empty ring", ErrInvalidLayout, i)
		}
	}

	for i, lt := range l.Lights {
		if _, err := lightType(lt.Type); err != nil {
			return fmt.Errorf("light %d: %w", i, err)
		}
	}
	return nil
}

// resolvePath makes a texture path relative to the layout file. Procedural specs pass through.
func (l *Layout) resolvePath(spec string) string {
	if l.baseDir == "" || filepath.IsAbs(spec) {
		return spec
	}
	return filepath.Join(l.baseDir, spec)
}

// Data builds the primitive's vertices and indices.
//
// Returns:
//   - mesh.Data: the generated geometry
//   - error: an error wrapping ErrInvalidLayout for an unknown primitive
func (m MeshLayout) Data() (mesh.Data, error) {
	radius := common.Coalesce(m.Radius, 0.5)
	height := common.Coalesce(m.Height, 1)
	slices := common.Coalesce(m.Slices, 24)
	switch m.Primitive {
	case "cube":
		return mesh.Cube(common.Coalesce(m.Size, 1)), nil
	case "sphere":
		return mesh.Sphere(radius, slices, common.Coalesce(m.Stacks, 12)), nil
	case "plane":
		return mesh.Plane(common.Coalesce(m.Size, 10), common.Coalesce(m.Tiling, 1)), nil
	case "cylinder":
		return mesh.Cylinder(radius, height, slices), nil
	case "cone":
		return mesh.Cone(radius, height, slices), nil
	default:
		return mesh.Data{}, fmt.Errorf("%w: mesh %q has unknown primitive %q", ErrInvalidLayout, m.Name, m.Primitive)
	}
}
