// Package wgpudev implements the device interfaces on WebGPU for windowed runs. Shaders are the
// WGSL sources the shader library pre-processes; bind group and vertex layouts come from their
// reflection, so a stage's resources live in the bind group of its stage.
//
// The immediate context records into one command encoder per frame and submits it at Present.
// Render passes begin lazily at the first draw after a target change, and pending clears become
// the load operations of the pass that draws to the cleared texture.
package wgpudev

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/device"
	"github.com/cogentcore/webgpu/wgpu"
)

// Device is the WebGPU device.
type Device struct {
	logger        *slog.Logger
	vsync         bool
	forceFallback bool

	instance *wgpu.Instance
	surface  *wgpu.Surface
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	ctx       *Context
	swapChain *SwapChain
	released  bool
}

var _ device.Device = &Device{}

// NewDevice creates a WebGPU device presenting to the given surface. The calling goroutine is
// locked to its OS thread, which must be the thread that owns the window.
//
// Parameters:
//   - surface: the platform surface descriptor of the window
//   - width: the backbuffer width in pixels
//   - height: the backbuffer height in pixels
//   - options: optional DeviceBuilderOption values
//
// Returns:
//   - *Device: the device
//   - error: an error if no adapter, device or swap chain could be created
func NewDevice(surface *wgpu.SurfaceDescriptor, width, height int, options ...DeviceBuilderOption) (*Device, error) {
	if surface == nil {
		return nil, fmt.Errorf("wgpu: nil surface descriptor: %w", device.ErrInvalidDesc)
	}
	runtime.LockOSThread()

	d := &Device{logger: slog.Default()}
	for _, opt := range options {
		opt(d)
	}
	d.instance = wgpu.CreateInstance(nil)
	d.surface = d.instance.CreateSurface(surface)

	adapter, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallback,
		CompatibleSurface:    d.surface,
	})
	if err != nil {
		d.Release()
		return nil, fmt.Errorf("wgpu: request adapter: %w", err)
	}
	d.adapter = adapter

	dev, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "oxy-toon",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		d.Release()
		return nil, fmt.Errorf("wgpu: request device: %w", err)
	}
	d.device = dev
	d.queue = dev.GetQueue()

	d.ctx, err = newContext(d)
	if err != nil {
		d.Release()
		return nil, err
	}
	d.swapChain = &SwapChain{dev: d, vsync: d.vsync}
	if err := d.swapChain.ResizeBuffers(width, height); err != nil {
		d.Release()
		return nil, err
	}
	d.logger.Info("wgpu device ready", "width", width, "height", height, "format", d.swapChain.format)
	return d, nil
}

func (d *Device) Context() device.Context {
	return d.ctx
}

func (d *Device) SwapChain() device.SwapChain {
	return d.swapChain
}

// Release frees the swap chain, the context's frame state and the device. Resources created from
// the device must not be used afterwards.
func (d *Device) Release() {
	if d.released {
		return
	}
	d.released = true
	if d.ctx != nil {
		d.ctx.release()
	}
	if d.swapChain != nil {
		d.swapChain.releaseFrame()
		d.swapChain.releaseBuffers()
	}
	if d.device != nil {
		d.device.Release()
	}
	if d.adapter != nil {
		d.adapter.Release()
	}
	if d.surface != nil {
		d.surface.Release()
	}
	if d.instance != nil {
		d.instance.Release()
	}
}

func (d *Device) CreateTexture2D(desc device.TextureDesc, pixels []byte) (device.Texture2D, error) {
	return d.createTexture(desc, pixels)
}

func (d *Device) createTexture(desc device.TextureDesc, pixels []byte) (*Texture, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("wgpu: texture %q of %dx%d: %w", desc.Label, desc.Width, desc.Height, device.ErrInvalidDesc)
	}
	if pixels != nil {
		if desc.Format == device.FormatDepth32Float {
			return nil, fmt.Errorf("wgpu: depth texture %q cannot take initial pixels: %w", desc.Label, device.ErrInvalidDesc)
		}
		if len(pixels) != desc.Width*desc.Height*4 {
			return nil, fmt.Errorf("wgpu: texture %q expects %d bytes, got %d: %w",
				desc.Label, desc.Width*desc.Height*4, len(pixels), device.ErrInvalidDesc)
		}
	}

	size := wgpu.Extent3D{
		Width:              uint32(desc.Width),
		Height:             uint32(desc.Height),
		DepthOrArrayLayers: 1,
	}
	format := textureFormat(desc.Format)
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         desc.Label,
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         textureUsage(desc.Bind),
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create texture %q: %w", desc.Label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("wgpu: create view of %q: %w", desc.Label, err)
	}

	if pixels != nil {
		d.queue.WriteTexture(
			&wgpu.ImageCopyTexture{
				Texture:  tex,
				MipLevel: 0,
				Origin:   wgpu.Origin3D{},
				Aspect:   wgpu.TextureAspectAll,
			},
			pixels,
			&wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  uint32(desc.Width * 4),
				RowsPerImage: uint32(desc.Height),
			},
			&size,
		)
	}
	return &Texture{resource: resource{label: desc.Label}, desc: desc, format: format, gpu: tex, view: view}, nil
}

func (d *Device) CreateRenderTargetView(tex device.Texture2D) (device.RenderTargetView, error) {
	t := asTexture(tex)
	if t.desc.Bind&device.BindRenderTarget == 0 || t.desc.Format == device.FormatDepth32Float {
		return nil, fmt.Errorf("wgpu: texture %q is not a render target: %w", t.label, device.ErrInvalidDesc)
	}
	return &RenderTargetView{viewBase{resource: resource{label: t.label + ".rtv"}, tex: t}}, nil
}

func (d *Device) CreateShaderResourceView(tex device.Texture2D) (device.ShaderResourceView, error) {
	t := asTexture(tex)
	if t.desc.Bind&device.BindShaderResource == 0 || t.desc.Format == device.FormatDepth32Float {
		return nil, fmt.Errorf("wgpu: texture %q is not a sampled color texture: %w", t.label, device.ErrInvalidDesc)
	}
	return &ShaderResourceView{viewBase{resource: resource{label: t.label + ".srv"}, tex: t}}, nil
}

func (d *Device) CreateDepthStencilView(tex device.Texture2D) (device.DepthStencilView, error) {
	t := asTexture(tex)
	if t.desc.Bind&device.BindDepthStencil == 0 || t.desc.Format != device.FormatDepth32Float {
		return nil, fmt.Errorf("wgpu: texture %q is not a depth target: %w", t.label, device.ErrInvalidDesc)
	}
	return &DepthStencilView{viewBase{resource: resource{label: t.label + ".dsv"}, tex: t}}, nil
}

func (d *Device) CreateSamplerState(desc device.SamplerDesc) (device.SamplerState, error) {
	s, err := d.device.CreateSampler(samplerDescriptor(desc))
	if err != nil {
		return nil, fmt.Errorf("wgpu: create sampler %q: %w", desc.Label, err)
	}
	return &Sampler{resource: resource{label: desc.Label}, desc: desc, gpu: s}, nil
}

// CreateBuffer creates a GPU vertex or index buffer, or a CPU-side constant buffer. GPU buffer
// sizes are padded to the 4-byte copy alignment.
func (d *Device) CreateBuffer(desc device.BufferDesc, data []byte) (device.Buffer, error) {
	size := max(desc.Size, len(data))
	if size <= 0 {
		return nil, fmt.Errorf("wgpu: buffer %q has no size: %w", desc.Label, device.ErrInvalidDesc)
	}
	b := &Buffer{resource: resource{label: desc.Label}, desc: desc, size: size}
	if desc.Usage == device.BufferConstant {
		b.shadow = make([]byte, size)
		copy(b.shadow, data)
		return b, nil
	}

	usage := wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst
	if desc.Usage == device.BufferIndex {
		usage = wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst
	}
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label,
		Size:  uint64(alignUp(size, 4)),
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create buffer %q: %w", desc.Label, err)
	}
	b.gpu = buf
	if len(data) > 0 {
		d.queue.WriteBuffer(buf, 0, padded(data))
	}
	return b, nil
}

func (d *Device) CreateVertexShader(desc device.ShaderDesc) (device.VertexShader, error) {
	s, err := d.createShader(desc, device.StageVertex)
	if err != nil {
		return nil, err
	}
	return &VertexShader{*s}, nil
}

func (d *Device) CreatePixelShader(desc device.ShaderDesc) (device.PixelShader, error) {
	s, err := d.createShader(desc, device.StagePixel)
	if err != nil {
		return nil, err
	}
	return &PixelShader{*s}, nil
}

func (d *Device) createShader(desc device.ShaderDesc, stage device.Stage) (*shaderBase, error) {
	if desc.Reflection == nil || desc.Reflection.Stage != stage {
		return nil, fmt.Errorf("wgpu: shader %q is not a reflected %s stage: %w", desc.Key, stage, device.ErrInvalidDesc)
	}
	if desc.Source == "" {
		return nil, fmt.Errorf("wgpu: %s shader %q has no source: %w", stage, desc.Key, device.ErrUnknownShader)
	}
	entries, err := bindGroupLayoutEntries(desc.Reflection)
	if err != nil {
		return nil, fmt.Errorf("wgpu: shader %q: %w", desc.Key, err)
	}

	module, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: desc.Key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: desc.Source,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: compile shader %q: %w", desc.Key, err)
	}
	layout, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   desc.Key,
		Entries: entries,
	})
	if err != nil {
		module.Release()
		return nil, fmt.Errorf("wgpu: bind group layout of %q: %w", desc.Key, err)
	}

	s := &shaderBase{resource: resource{label: desc.Key}, dev: d, desc: desc, module: module, layout: layout}
	if len(entries) == 0 {
		s.empty, err = d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{Label: desc.Key, Layout: layout})
		if err != nil {
			layout.Release()
			module.Release()
			return nil, fmt.Errorf("wgpu: empty bind group of %q: %w", desc.Key, err)
		}
	}
	return s, nil
}

// padded returns data extended with zeros to the 4-byte copy alignment.
func padded(data []byte) []byte {
	if len(data)%4 == 0 {
		return data
	}
	out := make([]byte, alignUp(len(data), 4))
	copy(out, data)
	return out
}
