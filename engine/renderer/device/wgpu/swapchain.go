package wgpudev

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/device"
	"github.com/cogentcore/webgpu/wgpu"
)

// errNoSurfaceFormat is returned when the surface reports no usable color format.
var errNoSurfaceFormat = errors.New("wgpu: surface reports no formats")

// SwapChain presents to the window surface. The backbuffer's view is the surface image acquired
// by the first pass that targets it in a frame.
type SwapChain struct {
	dev    *Device
	vsync  bool
	format wgpu.TextureFormat

	back  *Texture
	rtv   *RenderTargetView
	depth *Texture
	dsv   *DepthStencilView

	surfaceTex  *wgpu.Texture
	surfaceView *wgpu.TextureView
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

// ResizeBuffers reconfigures the surface and recreates the depth buffer. Work recorded since the
// last Present is discarded.
func (s *SwapChain) ResizeBuffers(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("wgpu: resize to %dx%d: %w", width, height, device.ErrInvalidDesc)
	}
	depth, err := s.dev.createTexture(device.TextureDesc{
		Label:  "depth",
		Width:  width,
		Height: height,
		Format: device.FormatDepth32Float,
		Bind:   device.BindDepthStencil,
	}, nil)
	if err != nil {
		return fmt.Errorf("wgpu: resize depth buffer: %w", err)
	}

	s.dev.ctx.discardFrame()
	s.releaseFrame()
	if err := s.configure(width, height); err != nil {
		depth.Release()
		return err
	}
	s.releaseBuffers()

	s.back = &Texture{
		resource: resource{label: "backbuffer"},
		desc: device.TextureDesc{
			Label:  "backbuffer",
			Width:  width,
			Height: height,
			Format: device.FormatRGBA8Unorm,
			Bind:   device.BindRenderTarget,
		},
		format: s.format,
		chain:  s,
	}
	s.rtv = &RenderTargetView{viewBase{resource: resource{label: "backbuffer.rtv"}, tex: s.back}}
	s.depth = depth
	s.dsv = &DepthStencilView{viewBase{resource: resource{label: "depth.dsv"}, tex: depth}}
	s.dev.logger.Debug("wgpu swap chain resized", "width", width, "height", height)
	return nil
}

func (s *SwapChain) configure(width, height int) error {
	caps := s.dev.surface.GetCapabilities(s.dev.adapter)
	if len(caps.Formats) == 0 || len(caps.AlphaModes) == 0 {
		return errNoSurfaceFormat
	}
	s.format = surfaceFormat(caps.Formats)
	mode := wgpu.PresentModeImmediate
	if s.vsync {
		mode = wgpu.PresentModeFifo
	}
	s.dev.surface.Configure(s.dev.adapter, s.dev.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      s.format,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: mode,
		AlphaMode:   caps.AlphaModes[0],
	})
	return nil
}

// surfaceFormat prefers a linear 8-bit format so the output matches the software backbuffer.
func surfaceFormat(formats []wgpu.TextureFormat) wgpu.TextureFormat {
	for _, f := range []wgpu.TextureFormat{wgpu.TextureFormatBGRA8Unorm, wgpu.TextureFormatRGBA8Unorm} {
		if slices.Contains(formats, f) {
			return f
		}
	}
	return formats[0]
}

// frameView acquires the surface image for this frame on first use.
func (s *SwapChain) frameView() *wgpu.TextureView {
	if s.surfaceView != nil {
		return s.surfaceView
	}
	tex, err := s.dev.surface.GetCurrentTexture()
	if err != nil {
		panic(fmt.Errorf("wgpu: acquire backbuffer: %w", err))
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		panic(fmt.Errorf("wgpu: backbuffer view: %w", err))
	}
	s.surfaceTex = tex
	s.surfaceView = view
	return view
}

func (s *SwapChain) releaseFrame() {
	if s.surfaceView != nil {
		s.surfaceView.Release()
		s.surfaceView = nil
	}
	if s.surfaceTex != nil {
		s.surfaceTex.Release()
		s.surfaceTex = nil
	}
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

// Present submits the frame and shows the backbuffer. A change of vsync reconfigures the surface
// and applies from the next frame.
func (s *SwapChain) Present(vsync bool) error {
	if s.dev.released {
		return fmt.Errorf("wgpu: present: %w", device.ErrReleased)
	}
	ctx := s.dev.ctx
	ctx.endPass()
	ctx.flushClear(s.back)
	s.frameView()

	err := ctx.submit()
	if err == nil {
		s.dev.surface.Present()
	}
	s.releaseFrame()
	ctx.endFrame()

	if vsync != s.vsync {
		s.vsync = vsync
		if cerr := s.configure(s.Width(), s.Height()); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}
	return err
}
