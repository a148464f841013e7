// Package compositor sequences one frame: clear, opaque entities into an offscreen target, the
// sky, a full-screen edge pass from the offscreen target into the backbuffer, and present.
//
// The offscreen texture is written during the opaque and sky passes and read during the post
// process, so the compositor owns the binding order that keeps the two uses apart.
package compositor

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-toon/engine/camera"
	"github.com/Carmen-Shannon/oxy-toon/engine/entity"
	"github.com/Carmen-Shannon/oxy-toon/engine/light"
	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-toon/engine/sky"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrOutOfOrder is raised when a frame step is called from the wrong state.
var ErrOutOfOrder = errors.New("compositor: frame step out of order")

// State is the position of the compositor inside a frame.
type State int

const (
	StateIdle State = iota
	StateClear
	StateOpaquePass
	StateSkyPass
	StatePostProcess
	StatePresent
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateClear:
		return "clear"
	case StateOpaquePass:
		return "opaque"
	case StateSkyPass:
		return "sky"
	case StatePostProcess:
		return "post-process"
	case StatePresent:
		return "present"
	default:
		return "unknown"
	}
}

// FrameUniforms are the pixel-stage values shared by every entity in a frame.
type FrameUniforms struct {
	Ambient   mgl32.Vec3
	Lights    *light.List
	ToonBands float32
}

// compositor is the implementation of the Compositor interface.
type compositor struct {
	logger *slog.Logger
	dev    device.Device
	ctx    device.Context

	fullscreen shader.Program
	edges      shader.Program
	sampler    device.SamplerState

	offscreen    device.Texture2D
	offscreenRTV device.RenderTargetView
	offscreenSRV device.ShaderResourceView

	state         State
	clearColor    mgl32.Vec4
	edgeStrength  float32
	edgeThreshold float32
	vsync         bool

	// nullViews unbinds every pixel shader-resource slot in one call.
	nullViews []device.ShaderResourceView
}

// Compositor drives the passes of a frame against one offscreen render target.
//
// Each step checks the current State and panics with ErrOutOfOrder when called out of turn:
// BeginFrame, DrawOpaque, DrawSky, PostProcess and Present must run in that order. Frame runs
// all of them.
type Compositor interface {
	// BeginFrame clears the backbuffer, the depth buffer and the offscreen target, then binds
	// the offscreen target with the depth buffer for the opaque pass.
	BeginFrame()

	// DrawOpaque draws entities in slice order into the offscreen target. Before each draw the
	// frame uniforms are staged on the entity material's pixel program and the material's
	// textures and samplers are bound.
	//
	// Parameters:
	//   - entities: the entities to draw
	//   - cam: the camera supplying view, projection and eye position
	//   - frame: ambient color, lights and toon band count
	DrawOpaque(entities []entity.GameEntity, cam camera.Camera, frame FrameUniforms)

	// DrawSky draws the sky into the pixels the opaque pass left at the far plane.
	//
	// Parameters:
	//   - s: the sky, or nil to skip the draw
	//   - cam: the camera
	DrawSky(s sky.Sky, cam camera.Camera)

	// PostProcess runs the edge pass from the offscreen target into the backbuffer, then
	// unbinds every pixel shader-resource slot so the offscreen target can be written again.
	PostProcess()

	// Present presents the swap chain and rebinds the backbuffer with the depth buffer.
	//
	// Parameters:
	//   - vsync: whether to wait for vertical sync
	//
	// Returns:
	//   - error: an error from the swap chain
	Present(vsync bool) error

	// Frame runs every step of one frame with the configured vsync setting.
	//
	// Parameters:
	//   - entities: the entities to draw
	//   - cam: the camera
	//   - frame: the frame uniforms
	//   - s: the sky, or nil
	//
	// Returns:
	//   - error: an error from the swap chain
	Frame(entities []entity.GameEntity, cam camera.Camera, frame FrameUniforms, s sky.Sky) error

	// Resize recreates the offscreen target at the given size and releases the previous one.
	// It may only be called between frames.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	//
	// Returns:
	//   - error: an error if the new target could not be created
	Resize(width, height int) error

	State() State
	Width() int
	Height() int

	// OffscreenTarget returns the current offscreen render target view.
	OffscreenTarget() device.RenderTargetView

	// OffscreenView returns the current offscreen shader-resource view.
	OffscreenView() device.ShaderResourceView

	// Release frees the offscreen target and the post-process sampler. The programs stay with
	// the caller.
	Release()
}

var _ Compositor = &compositor{}

// NewCompositor creates a compositor with an offscreen target the size of the swap chain.
//
// Parameters:
//   - dev: the device
//   - fullscreen: the full-screen triangle vertex program
//   - edges: the edge-detection pixel program
//   - options: optional CompositorBuilderOption values
//
// Returns:
//   - Compositor: the compositor, in StateIdle
//   - error: an error if a program is unusable or a resource could not be created
func NewCompositor(dev device.Device, fullscreen, edges shader.Program, options ...CompositorBuilderOption) (Compositor, error) {
	if fullscreen == nil || edges == nil {
		return nil, fmt.Errorf("compositor: both post-process programs are required")
	}
	if fullscreen.Stage() != device.StageVertex || edges.Stage() != device.StagePixel {
		return nil, fmt.Errorf("compositor: got a %s and a %s program", fullscreen.Stage(), edges.Stage())
	}

	c := &compositor{
		logger:        slog.Default(),
		dev:           dev,
		ctx:           dev.Context(),
		fullscreen:    fullscreen,
		edges:         edges,
		clearColor:    mgl32.Vec4{0.4, 0.6, 0.75, 1},
		edgeStrength:  1,
		edgeThreshold: 0.2,
		nullViews:     make([]device.ShaderResourceView, device.MaxShaderResourceSlots),
	}
	for _, opt := range options {
		opt(c)
	}

	smp, err := dev.CreateSamplerState(device.SamplerDesc{
		Label:         "postprocess",
		Filter:        device.FilterAnisotropic,
		AddressU:      device.AddressClamp,
		AddressV:      device.AddressClamp,
		MaxAnisotropy: 16,
	})
	if err != nil {
		return nil, fmt.Errorf("compositor: create sampler: %w", err)
	}
	c.sampler = smp

	sc := dev.SwapChain()
	if err := c.createOffscreen(sc.Width(), sc.Height()); err != nil {
		smp.Release()
		return nil, err
	}
	return c, nil
}

func (c *compositor) createOffscreen(width, height int) error {
	tex, err := c.dev.CreateTexture2D(device.TextureDesc{
		Label:  "offscreen",
		Width:  width,
		Height: height,
		Format: device.FormatRGBA8Unorm,
		Bind:   device.BindRenderTarget | device.BindShaderResource,
	}, nil)
	if err != nil {
		return fmt.Errorf("compositor: create offscreen target: %w", err)
	}
	rtv, err := c.dev.CreateRenderTargetView(tex)
	if err != nil {
		tex.Release()
		return fmt.Errorf("compositor: create offscreen render target view: %w", err)
	}
	srv, err := c.dev.CreateShaderResourceView(tex)
	if err != nil {
		rtv.Release()
		tex.Release()
		return fmt.Errorf("compositor: create offscreen shader resource view: %w", err)
	}
	c.offscreen, c.offscreenRTV, c.offscreenSRV = tex, rtv, srv
	return nil
}

func (c *compositor) releaseOffscreen() {
	if c.offscreen == nil {
		return
	}
	c.offscreenSRV.Release()
	c.offscreenRTV.Release()
	c.offscreen.Release()
	c.offscreen, c.offscreenRTV, c.offscreenSRV = nil, nil, nil
}

// advance moves from the expected state to the next one.
func (c *compositor) advance(from, to State) {
	if c.state != from {
		panic(fmt.Errorf("%w: %s requested while in %s", ErrOutOfOrder, to, c.state))
	}
	c.state = to
}

func (c *compositor) BeginFrame() {
	c.advance(StateIdle, StateClear)

	sc := c.dev.SwapChain()
	c.ctx.ClearRenderTargetView(sc.BackbufferView(), c.clearColor)
	c.ctx.ClearDepthStencilView(sc.DepthStencilView(), 1)
	c.ctx.ClearRenderTargetView(c.offscreenRTV, c.clearColor)

	c.ctx.SetRenderTargets([]device.RenderTargetView{c.offscreenRTV}, sc.DepthStencilView())
	c.ctx.SetViewport(device.Viewport{Width: float32(c.Width()), Height: float32(c.Height())})
}

// packedLights is a light payload sized for one shader array capacity.
type packedLights struct {
	data  []byte
	count int
}

func (c *compositor) DrawOpaque(entities []entity.GameEntity, cam camera.Camera, frame FrameUniforms) {
	c.advance(StateClear, StateOpaquePass)

	c.ctx.SetDepthState(device.DefaultDepthState)
	c.ctx.SetRasterState(device.RasterState{})

	packed := map[int]packedLights{}
	for i := range entities {
		e := &entities[i]
		mat := e.Material()
		ps := mat.PixelShader()

		capacity := ps.VariableCapacity("lights")
		p, ok := packed[capacity]
		if !ok {
			if frame.Lights != nil {
				p.data, p.count = frame.Lights.Marshal(capacity)
			}
			packed[capacity] = p
		}

		ps.SetFloat3("ambient", frame.Ambient)
		ps.SetData("lights", p.data)
		ps.SetUint("lightCount", uint32(p.count))
		ps.SetFloat("toonBands", frame.ToonBands)

		mat.BindTexturesAndSamplers()
		e.Draw(c.ctx, cam)
	}
}

func (c *compositor) DrawSky(s sky.Sky, cam camera.Camera) {
	c.advance(StateOpaquePass, StateSkyPass)
	if s != nil {
		s.Draw(c.ctx, cam)
	}
}

func (c *compositor) PostProcess() {
	c.advance(StateSkyPass, StatePostProcess)

	sc := c.dev.SwapChain()
	c.ctx.SetRenderTargets([]device.RenderTargetView{sc.BackbufferView()}, nil)
	c.ctx.SetViewport(device.Viewport{Width: float32(sc.Width()), Height: float32(sc.Height())})

	c.fullscreen.SetShader()
	c.edges.SetShader()
	c.ctx.SetVertexBuffer(nil, 0)
	c.ctx.SetIndexBuffer(nil)

	c.edges.SetShaderResourceView("pixels", c.offscreenSRV)
	c.edges.SetSamplerState("samplerOptions", c.sampler)
	c.edges.SetFloat("pixelWidth", 1/float32(c.Width()))
	c.edges.SetFloat("pixelHeight", 1/float32(c.Height()))
	c.edges.SetFloat("edgeStrength", c.edgeStrength)
	c.edges.SetFloat("edgeThreshold", c.edgeThreshold)
	c.edges.CopyAllBufferData()

	c.ctx.Draw(3, 0)

	c.ctx.SetShaderResources(device.StagePixel, 0, c.nullViews)
}

func (c *compositor) Present(vsync bool) error {
	c.advance(StatePostProcess, StatePresent)
	defer func() { c.state = StateIdle }()

	sc := c.dev.SwapChain()
	err := sc.Present(vsync)
	c.ctx.SetRenderTargets([]device.RenderTargetView{sc.BackbufferView()}, sc.DepthStencilView())
	if err != nil {
		return fmt.Errorf("compositor: present: %w", err)
	}
	return nil
}

func (c *compositor) Frame(entities []entity.GameEntity, cam camera.Camera, frame FrameUniforms, s sky.Sky) error {
	c.BeginFrame()
	c.DrawOpaque(entities, cam, frame)
	c.DrawSky(s, cam)
	c.PostProcess()
	return c.Present(c.vsync)
}

func (c *compositor) Resize(width, height int) error {
	if c.state != StateIdle {
		panic(fmt.Errorf("%w: resize requested while in %s", ErrOutOfOrder, c.state))
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("compositor: resize to %dx%d: %w", width, height, device.ErrInvalidDesc)
	}

	c.ctx.SetRenderTargets(nil, nil)
	c.ctx.SetShaderResources(device.StagePixel, 0, c.nullViews)
	c.releaseOffscreen()
	if err := c.createOffscreen(width, height); err != nil {
		return err
	}
	c.logger.Debug("offscreen target resized", "width", width, "height", height)
	return nil
}

func (c *compositor) State() State {
	return c.state
}

func (c *compositor) Width() int {
	return c.offscreen.Width()
}

func (c *compositor) Height() int {
	return c.offscreen.Height()
}

func (c *compositor) OffscreenTarget() device.RenderTargetView {
	return c.offscreenRTV
}

func (c *compositor) OffscreenView() device.ShaderResourceView {
	return c.offscreenSRV
}

func (c *compositor) Release() {
	c.releaseOffscreen()
	if c.sampler != nil {
		c.sampler.Release()
		c.sampler = nil
	}
}
