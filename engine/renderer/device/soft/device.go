// Package soft is a CPU rasterizer implementing the device interfaces. It renders into
// *image.RGBA targets, runs shaders as registered Go kernels and tracks binding hazards, which
// makes it the backend for headless runs and tests.
package soft

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/device"
)

// Device is the software device.
type Device struct {
	logger    *slog.Logger
	logDraws  bool
	ctx       *Context
	swapChain *SwapChain
	released  bool
}

var _ device.Device = &Device{}

// NewDevice creates a software device with a swap chain of the given size.
//
// Parameters:
//   - width: the backbuffer width in pixels
//   - height: the backbuffer height in pixels
//   - options: optional DeviceBuilderOption values
//
// Returns:
//   - *Device: the device
//   - error: an error if the swap chain could not be created
func NewDevice(width, height int, options ...DeviceBuilderOption) (*Device, error) {
	d := &Device{logger: slog.Default()}
	for _, opt := range options {
		opt(d)
	}
	d.ctx = newContext(d.logger, d.logDraws)
	d.swapChain = &SwapChain{dev: d}
	if err := d.swapChain.ResizeBuffers(width, height); err != nil {
		return nil, err
	}
	return d, nil
}

// Immediate returns the software context with its inspection helpers.
func (d *Device) Immediate() *Context {
	return d.ctx
}

// Frontbuffer returns the image shown by the last Present.
func (d *Device) Frontbuffer() *image.RGBA {
	return d.swapChain.front
}

func (d *Device) Context() device.Context {
	return d.ctx
}

func (d *Device) SwapChain() device.SwapChain {
	return d.swapChain
}

func (d *Device) Release() {
	d.swapChain.releaseBuffers()
	d.released = true
}

func (d *Device) CreateTexture2D(desc device.TextureDesc, pixels []byte) (device.Texture2D, error) {
	return d.createTexture(desc, pixels)
}

func (d *Device) createTexture(desc device.TextureDesc, pixels []byte) (*Texture, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("soft: texture %q of %dx%d: %w", desc.Label, desc.Width, desc.Height, device.ErrInvalidDesc)
	}
	t := &Texture{resource: resource{label: desc.Label}, desc: desc}
	if desc.Format == device.FormatDepth32Float {
		if pixels != nil {
			return nil, fmt.Errorf("soft: depth texture %q cannot take initial pixels: %w", desc.Label, device.ErrInvalidDesc)
		}
		t.depth = make([]float32, desc.Width*desc.Height)
		for i := range t.depth {
			t.depth[i] = 1
		}
		return t, nil
	}

	t.color = image.NewRGBA(image.Rect(0, 0, desc.Width, desc.Height))
	if pixels != nil {
		if len(pixels) != len(t.color.Pix) {
			return nil, fmt.Errorf("soft: texture %q expects %d bytes, got %d: %w",
				desc.Label, len(t.color.Pix), len(pixels), device.ErrInvalidDesc)
		}
		copy(t.color.Pix, pixels)
	}
	return t, nil
}

func (d *Device) CreateRenderTargetView(tex device.Texture2D) (device.RenderTargetView, error) {
	t := asTexture(tex)
	if t.desc.Bind&device.BindRenderTarget == 0 || t.color == nil {
		return nil, fmt.Errorf("soft: texture %q is not a render target: %w", t.label, device.ErrInvalidDesc)
	}
	return &RenderTargetView{viewBase{resource: resource{label: t.label + ".rtv"}, tex: t}}, nil
}

func (d *Device) CreateShaderResourceView(tex device.Texture2D) (device.ShaderResourceView, error) {
	t := asTexture(tex)
	if t.desc.Bind&device.BindShaderResource == 0 {
		return nil, fmt.Errorf("soft: texture %q is not a shader resource: %w", t.label, device.ErrInvalidDesc)
	}
	return &ShaderResourceView{viewBase{resource: resource{label: t.label + ".srv"}, tex: t}}, nil
}

func (d *Device) CreateDepthStencilView(tex device.Texture2D) (device.DepthStencilView, error) {
	t := asTexture(tex)
	if t.desc.Bind&device.BindDepthStencil == 0 || t.depth == nil {
		return nil, fmt.Errorf("soft: texture %q is not a depth target: %w", t.label, device.ErrInvalidDesc)
	}
	return &DepthStencilView{viewBase{resource: resource{label: t.label + ".dsv"}, tex: t}}, nil
}

func (d *Device) CreateSamplerState(desc device.SamplerDesc) (device.SamplerState, error) {
	return &Sampler{resource: resource{label: desc.Label}, desc: desc}, nil
}

func (d *Device) CreateBuffer(desc device.BufferDesc, data []byte) (device.Buffer, error) {
	size := max(desc.Size, len(data))
	if size <= 0 {
		return nil, fmt.Errorf("soft: buffer %q has no size: %w", desc.Label, device.ErrInvalidDesc)
	}
	b := &Buffer{resource: resource{label: desc.Label}, desc: desc, data: make([]byte, size)}
	copy(b.data, data)
	return b, nil
}

func (d *Device) CreateVertexShader(desc device.ShaderDesc) (device.VertexShader, error) {
	if desc.Reflection == nil || desc.Reflection.Stage != device.StageVertex {
		return nil, fmt.Errorf("soft: shader %q is not a reflected vertex stage: %w", desc.Key, device.ErrInvalidDesc)
	}
	k, ok := lookupVertexKernel(desc.Key)
	if !ok {
		return nil, fmt.Errorf("soft: vertex shader %q: %w", desc.Key, device.ErrUnknownShader)
	}
	return &VertexShader{resource: resource{label: desc.Key}, desc: desc, kernel: k}, nil
}

func (d *Device) CreatePixelShader(desc device.ShaderDesc) (device.PixelShader, error) {
	if desc.Reflection == nil || desc.Reflection.Stage != device.StagePixel {
		return nil, fmt.Errorf("soft: shader %q is not a reflected pixel stage: %w", desc.Key, device.ErrInvalidDesc)
	}
	k, ok := lookupPixelKernel(desc.Key)
	if !ok {
		return nil, fmt.Errorf("soft: pixel shader %q: %w", desc.Key, device.ErrUnknownShader)
	}
	return &PixelShader{resource: resource{label: desc.Key}, desc: desc, kernel: k}, nil
}

// SwapChain is the software swap chain. Present copies the backbuffer into a front image.
type SwapChain struct {
	dev   *Device
	back  *Texture
	rtv   *RenderTargetView
	depth *Texture
	dsv   *DepthStencilView
	front *image.RGBA
}

var _ device.SwapChain = &SwapChain{}

func (s *SwapChain) Width() int {
	return s.back.Width()
}

func (s *SwapChain) Height() int {
	return s.back.Height()
}

func (s *SwapChain) BackbufferView() device.RenderTargetView {
	return s.rtv
}

func (s *SwapChain) DepthStencilView() device.DepthStencilView {
	return s.dsv
}

func (s *SwapChain) ResizeBuffers(width, height int) error {
	back, err := s.dev.createTexture(device.TextureDesc{
		Label:  "backbuffer",
		Width:  width,
		Height: height,
		Format: device.FormatRGBA8Unorm,
		Bind:   device.BindRenderTarget,
	}, nil)
	if err != nil {
		return fmt.Errorf("soft: resize backbuffer: %w", err)
	}
	depth, err := s.dev.createTexture(device.TextureDesc{
		Label:  "depth",
		Width:  width,
		Height: height,
		Format: device.FormatDepth32Float,
		Bind:   device.BindDepthStencil,
	}, nil)
	if err != nil {
		return fmt.Errorf("soft: resize depth buffer: %w", err)
	}

	s.releaseBuffers()
	s.dev.ctx.unbindTargets()
	s.back = back
	s.rtv = &RenderTargetView{viewBase{resource: resource{label: "backbuffer.rtv"}, tex: back}}
	s.depth = depth
	s.dsv = &DepthStencilView{viewBase{resource: resource{label: "depth.dsv"}, tex: depth}}
	s.front = image.NewRGBA(image.Rect(0, 0, width, height))
	s.dev.logger.Debug("soft swap chain resized", "width", width, "height", height)
	return nil
}

func (s *SwapChain) releaseBuffers() {
	if s.back == nil {
		return
	}
	s.rtv.Release()
	s.dsv.Release()
	s.back.Release()
	s.depth.Release()
}

func (s *SwapChain) Present(vsync bool) error {
	if s.dev.released {
		return fmt.Errorf("soft: present: %w", device.ErrReleased)
	}
	copy(s.front.Pix, s.back.color.Pix)
	s.dev.ctx.unbindTargets()
	return nil
}
