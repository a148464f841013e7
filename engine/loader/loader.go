package loader

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-toon/common"
	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/device"
	"github.com/google/uuid"
)

// Asset is a texture uploaded by the loader.
type Asset struct {
	ID      uuid.UUID
	Name    string
	Texture device.Texture2D
	View    device.ShaderResourceView
}

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	logger *slog.Logger
	dev    device.Device

	pool           worker.DynamicWorkerPool
	workers        int
	maxTextureSize int

	cache    map[string]*Asset
	samplers map[device.SamplerDesc]device.SamplerState
}

// Loader decodes textures and creates samplers on a device, caching both. Image files are
// decoded in parallel on a worker pool; every device call happens on the calling goroutine.
type Loader interface {
	// LoadTextures decodes image files in parallel and uploads them. Paths already loaded are
	// served from the cache.
	//
	// Parameters:
	//   - paths: the image files to load (png, jpeg, bmp, tiff or webp)
	//
	// Returns:
	//   - map[string]device.ShaderResourceView: a view per requested path
	//   - error: the joined decode and upload errors; nothing is cached for failed paths
	LoadTextures(paths []string) (map[string]device.ShaderResourceView, error)

	// LoadTexture loads a single image file.
	//
	// Parameters:
	//   - path: the image file
	//
	// Returns:
	//   - device.ShaderResourceView: the uploaded texture view
	//   - error: error if the file cannot be decoded or uploaded
	LoadTexture(path string) (device.ShaderResourceView, error)

	// Texture resolves a texture spec. A spec is either a procedural description
	// (solid:#rrggbb, checker:#rrggbb:#rrggbb:N, gradient:#top:#bottom, normal:flat) or an image
	// file path.
	//
	// Parameters:
	//   - spec: the procedural spec or file path
	//
	// Returns:
	//   - device.ShaderResourceView: the texture view
	//   - error: error if the spec is malformed or the file cannot be loaded
	Texture(spec string) (device.ShaderResourceView, error)

	// Asset returns the cached asset record for a path or spec.
	//
	// Parameters:
	//   - name: the path or spec the texture was requested by
	//
	// Returns:
	//   - *Asset: the asset record
	//   - bool: false if nothing was loaded under that name
	Asset(name string) (*Asset, bool)

	// Sampler returns a sampler for the description, creating it on first use.
	//
	// Parameters:
	//   - desc: the sampler description
	//
	// Returns:
	//   - device.SamplerState: the sampler
	//   - error: error if the device rejects the description
	Sampler(desc device.SamplerDesc) (device.SamplerState, error)

	// Release frees every cached texture and sampler.
	Release()
}

var _ Loader = &loader{}

// NewLoader creates a texture loader for a device.
//
// Parameters:
//   - dev: the device textures are uploaded to
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new Loader
func NewLoader(dev device.Device, options ...LoaderBuilderOption) Loader {
	l := &loader{
		logger:   slog.Default(),
		dev:      dev,
		workers:  runtime.NumCPU(),
		cache:    make(map[string]*Asset),
		samplers: make(map[device.SamplerDesc]device.SamplerState),
	}
	for _, option := range options {
		option(l)
	}
	l.pool = worker.NewDynamicWorkerPool(l.workers, 256, 1*time.Second)
	return l
}

// decoded is the result of one worker decode.
type decoded struct {
	path    string
	staging common.TextureStagingData
	err     error
}

func (l *loader) LoadTextures(paths []string) (map[string]device.ShaderResourceView, error) {
	out := make(map[string]device.ShaderResourceView, len(paths))
	var pending []string
	seen := make(map[string]bool, len(paths))

	l.mu.RLock()
	for _, p := range paths {
		if a, ok := l.cache[p]; ok {
			out[p] = a.View
			continue
		}
		if !seen[p] {
			seen[p] = true
			pending = append(pending, p)
		}
	}
	l.mu.RUnlock()

	if len(pending) == 0 {
		return out, nil
	}

	results := make([]decoded, len(pending))
	var wg sync.WaitGroup
	for i, p := range pending {
		wg.Add(1)
		idx, path := i, p
		l.pool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				src := &common.ImportedTexture{Name: path, Path: path}
				staging, err := src.Decode(l.maxTextureSize)
				results[idx] = decoded{path: path, staging: staging, err: err}
				return nil, err
			},
		})
	}
	wg.Wait()

	var errs []error
	for _, r := range results {
		if r.err != nil {
			errs = append(errs, fmt.Errorf("loader: %w", r.err))
			continue
		}
		a, err := l.upload(r.path, r.staging)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[r.path] = a.View
	}
	l.logger.Debug("textures loaded", "requested", len(paths), "decoded", len(pending), "failed", len(errs))
	return out, errors.Join(errs...)
}

func (l *loader) LoadTexture(path string) (device.ShaderResourceView, error) {
	views, err := l.LoadTextures([]string{path})
	if err != nil {
		return nil, err
	}
	return views[path], nil
}

func (l *loader) Texture(spec string) (device.ShaderResourceView, error) {
	l.mu.RLock()
	a, ok := l.cache[spec]
	l.mu.RUnlock()
	if ok {
		return a.View, nil
	}

	if !IsProcedural(spec) {
		return l.LoadTexture(spec)
	}
	staging, err := generate(spec)
	if err != nil {
		return nil, err
	}
	a, err = l.upload(spec, staging)
	if err != nil {
		return nil, err
	}
	return a.View, nil
}

// upload creates the device texture and view for decoded pixels and caches the asset.
func (l *loader) upload(name string, staging common.TextureStagingData) (*Asset, error) {
	tex, err := l.dev.CreateTexture2D(device.TextureDesc{
		Label:  name,
		Width:  staging.Width,
		Height: staging.Height,
		Format: device.FormatRGBA8Unorm,
		Bind:   device.BindShaderResource,
	}, staging.Pixels)
	if err != nil {
		return nil, fmt.Errorf("loader: upload %q: %w", name, err)
	}
	view, err := l.dev.CreateShaderResourceView(tex)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("loader: view %q: %w", name, err)
	}

	a := &Asset{ID: uuid.New(), Name: name, Texture: tex, View: view}
	l.mu.Lock()
	l.cache[name] = a
	l.mu.Unlock()
	return a, nil
}

func (l *loader) Asset(name string) (*Asset, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.cache[name]
	return a, ok
}

func (l *loader) Sampler(desc device.SamplerDesc) (device.SamplerState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.samplers[desc]; ok {
		return s, nil
	}
	s, err := l.dev.CreateSamplerState(desc)
	if err != nil {
		return nil, fmt.Errorf("loader: sampler %q: %w", desc.Label, err)
	}
	l.samplers[desc] = s
	return s, nil
}

func (l *loader) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for name, a := range l.cache {
		a.View.Release()
		a.Texture.Release()
		delete(l.cache, name)
	}
	for desc, s := range l.samplers {
		s.Release()
		delete(l.samplers, desc)
	}
}

// IsProcedural reports whether spec names a generated texture rather than an image file.
func IsProcedural(spec string) bool {
	kind, _, ok := strings.Cut(spec, ":")
	if !ok {
		return false
	}
	switch kind {
	case specSolid, specChecker, specGradient, specNormal:
		return true
	}
	return false
}
