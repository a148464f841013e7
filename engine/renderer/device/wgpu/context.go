package wgpudev

import (
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/device"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

const maxRenderTargets = 8

// pipelineKey is every piece of context state a render pipeline bakes in.
type pipelineKey struct {
	vs, ps      *shaderBase
	depth       device.DepthState
	raster      device.RasterState
	colors      [maxRenderTargets]wgpu.TextureFormat
	colorCount  int
	depthTarget bool
	stride      int
}

type layoutKey struct {
	vs, ps *shaderBase
}

// Context is the WebGPU immediate context. It keeps the same binding model and hazard rules as
// the software context and translates them into render passes, pipelines and bind groups.
type Context struct {
	dev    *Device
	logger *slog.Logger

	rtvs        []*RenderTargetView
	dsv         *DepthStencilView
	viewport    device.Viewport
	viewportSet bool

	vs *VertexShader
	ps *PixelShader

	cbuffers [2][device.MaxConstantBufferSlots]*Buffer
	srvs     [2][device.MaxShaderResourceSlots]*ShaderResourceView
	samplers [2][device.MaxSamplerSlots]*Sampler

	vb       *Buffer
	vbStride int
	ib       *Buffer

	depthState  device.DepthState
	rasterState device.RasterState

	colorClears map[*Texture]mgl32.Vec4
	depthClears map[*Texture]float32

	encoder     *wgpu.CommandEncoder
	pass        *wgpu.RenderPassEncoder
	pipelines   map[pipelineKey]*wgpu.RenderPipeline
	layouts     map[layoutKey]*wgpu.PipelineLayout
	arena       uniformArena
	frameGroups []*wgpu.BindGroup

	// placeholder and defaultSampler fill slots the shader declares but nothing is bound to.
	placeholder    *Texture
	defaultSampler *Sampler

	hazards int
}

var _ device.Context = &Context{}

func newContext(d *Device) (*Context, error) {
	c := &Context{
		dev:         d,
		logger:      d.logger,
		depthState:  device.DefaultDepthState,
		colorClears: make(map[*Texture]mgl32.Vec4),
		depthClears: make(map[*Texture]float32),
		pipelines:   make(map[pipelineKey]*wgpu.RenderPipeline),
		layouts:     make(map[layoutKey]*wgpu.PipelineLayout),
	}
	c.arena.newPage = func(size int) (*wgpu.Buffer, error) {
		return d.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "uniforms",
			Size:  uint64(size),
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
	}

	var err error
	c.placeholder, err = d.createTexture(device.TextureDesc{
		Label:  "unbound",
		Width:  1,
		Height: 1,
		Format: device.FormatRGBA8Unorm,
		Bind:   device.BindShaderResource,
	}, make([]byte, 4))
	if err != nil {
		return nil, err
	}
	s, err := d.CreateSamplerState(device.DefaultSamplerDesc)
	if err != nil {
		c.placeholder.Release()
		return nil, err
	}
	c.defaultSampler = s.(*Sampler)
	return c, nil
}

// HazardCount returns how many times a texture was bound as input and output at once and the
// input binding was forced to null.
func (c *Context) HazardCount() int {
	return c.hazards
}

func (c *Context) ClearRenderTargetView(rtv device.RenderTargetView, color mgl32.Vec4) {
	v := asRTV(rtv)
	mustLive(v)
	c.endPass()
	c.colorClears[v.tex] = color
}

func (c *Context) ClearDepthStencilView(dsv device.DepthStencilView, depth float32) {
	v := asDSV(dsv)
	mustLive(v)
	c.endPass()
	c.depthClears[v.tex] = depth
}

func (c *Context) SetRenderTargets(rtvs []device.RenderTargetView, dsv device.DepthStencilView) {
	c.endPass()
	bound := make([]*RenderTargetView, 0, len(rtvs))
	for _, r := range rtvs {
		if r == nil {
			continue
		}
		v := asRTV(r)
		mustLive(v)
		bound = append(bound, v)
		c.unbindInputsOf(v.tex)
	}
	if len(bound) > maxRenderTargets {
		panic(fmt.Errorf("wgpu: %d render targets bound, at most %d: %w", len(bound), maxRenderTargets, device.ErrInvalidDesc))
	}
	c.rtvs = bound
	c.dsv = nil
	if dsv != nil {
		d := asDSV(dsv)
		mustLive(d)
		c.dsv = d
	}
}

func (c *Context) unbindInputsOf(tex *Texture) {
	for stage := range c.srvs {
		for slot, srv := range c.srvs[stage] {
			if srv != nil && srv.tex == tex {
				c.srvs[stage][slot] = nil
				c.hazards++
				c.logger.Warn("render target still bound as shader input, forcing input to null",
					"texture", tex.label, "stage", device.Stage(stage).String(), "slot", slot)
			}
		}
	}
}

func (c *Context) SetViewport(vp device.Viewport) {
	c.viewport = vp
	c.viewportSet = true
	if c.pass != nil {
		c.applyViewport()
	}
}

func (c *Context) SetVertexShader(vs device.VertexShader) {
	if vs == nil {
		c.vs = nil
		return
	}
	s, ok := vs.(*VertexShader)
	if !ok {
		panic(fmt.Errorf("wgpu: %w: vertex shader %T", device.ErrInvalidDesc, vs))
	}
	mustLive(s)
	c.vs = s
}

func (c *Context) SetPixelShader(ps device.PixelShader) {
	if ps == nil {
		c.ps = nil
		return
	}
	s, ok := ps.(*PixelShader)
	if !ok {
		panic(fmt.Errorf("wgpu: %w: pixel shader %T", device.ErrInvalidDesc, ps))
	}
	mustLive(s)
	c.ps = s
}

func (c *Context) SetConstantBuffer(stage device.Stage, slot int, buf device.Buffer) {
	if buf == nil {
		c.cbuffers[stage][slot] = nil
		return
	}
	b := asBuffer(buf)
	mustLive(b)
	c.cbuffers[stage][slot] = b
}

func (c *Context) SetShaderResources(stage device.Stage, start int, views []device.ShaderResourceView) {
	for i, view := range views {
		slot := start + i
		if view == nil {
			c.srvs[stage][slot] = nil
			continue
		}
		v, ok := view.(*ShaderResourceView)
		if !ok {
			panic(fmt.Errorf("wgpu: %w: shader resource view %T", device.ErrInvalidDesc, view))
		}
		mustLive(v)
		if c.isBoundOutput(v.tex) {
			c.srvs[stage][slot] = nil
			c.hazards++
			c.logger.Warn("shader input still bound as render target, forcing input to null",
				"texture", v.tex.label, "stage", stage.String(), "slot", slot)
			continue
		}
		c.srvs[stage][slot] = v
	}
}

func (c *Context) isBoundOutput(tex *Texture) bool {
	for _, r := range c.rtvs {
		if r.tex == tex {
			return true
		}
	}
	return false
}

func (c *Context) SetSamplers(stage device.Stage, start int, samplers []device.SamplerState) {
	for i, sampler := range samplers {
		slot := start + i
		if sampler == nil {
			c.samplers[stage][slot] = nil
			continue
		}
		s, ok := sampler.(*Sampler)
		if !ok {
			panic(fmt.Errorf("wgpu: %w: sampler %T", device.ErrInvalidDesc, sampler))
		}
		mustLive(s)
		c.samplers[stage][slot] = s
	}
}

// UpdateBuffer rewrites a constant buffer's shadow, which the next draw snapshots. Vertex and
// index buffers are written on the queue and the new contents apply to the whole frame.
func (c *Context) UpdateBuffer(buf device.Buffer, data []byte) {
	b := asBuffer(buf)
	mustLive(b)
	if len(data) > b.size {
		panic(fmt.Errorf("wgpu: update of %d bytes overflows buffer %q of %d bytes", len(data), b.label, b.size))
	}
	if b.shadow != nil {
		copy(b.shadow, data)
		return
	}
	c.dev.queue.WriteBuffer(b.gpu, 0, padded(data))
}

func (c *Context) SetVertexBuffer(buf device.Buffer, stride int) {
	if buf == nil {
		c.vb = nil
		return
	}
	b := asBuffer(buf)
	mustLive(b)
	c.vb = b
	c.vbStride = stride
}

func (c *Context) SetIndexBuffer(buf device.Buffer) {
	if buf == nil {
		c.ib = nil
		return
	}
	b := asBuffer(buf)
	mustLive(b)
	c.ib = b
}

func (c *Context) SetDepthState(state device.DepthState) {
	c.depthState = state
}

func (c *Context) SetRasterState(state device.RasterState) {
	c.rasterState = state
}

func (c *Context) Draw(vertexCount, startVertex int) {
	c.prepareDraw()
	if len(c.vs.desc.Reflection.VertexAttributes) > 0 {
		if c.vb == nil {
			panic(fmt.Errorf("wgpu: shader %q reads vertices but no vertex buffer is bound", c.vs.label))
		}
		c.pass.SetVertexBuffer(0, c.vb.gpu, 0, wgpu.WholeSize)
	}
	c.pass.Draw(uint32(vertexCount), 1, uint32(startVertex), 0)
}

func (c *Context) DrawIndexed(indexCount, startIndex, baseVertex int) {
	if c.vb == nil || c.ib == nil {
		panic(fmt.Errorf("wgpu: indexed draw without vertex and index buffers"))
	}
	mustLive(c.vb)
	mustLive(c.ib)
	c.prepareDraw()
	c.pass.SetVertexBuffer(0, c.vb.gpu, 0, wgpu.WholeSize)
	c.pass.SetIndexBuffer(c.ib.gpu, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	c.pass.DrawIndexed(uint32(indexCount), 1, uint32(startIndex), int32(baseVertex), 0)
}

// prepareDraw validates state, opens the render pass if needed and binds the pipeline and both
// stage bind groups. Failures to create GPU objects panic like any other draw-time misuse.
func (c *Context) prepareDraw() {
	if len(c.rtvs) == 0 {
		panic(fmt.Errorf("wgpu: draw: %w", device.ErrNoRenderTarget))
	}
	if c.vs == nil || c.ps == nil {
		panic(fmt.Errorf("wgpu: draw: %w", device.ErrNoShader))
	}
	for _, r := range c.rtvs {
		mustLive(r)
	}
	mustLive(c.vs)
	mustLive(c.ps)

	c.flushInputClears()
	if c.pass == nil {
		c.beginPass()
	}

	pipeline, err := c.pipeline()
	if err != nil {
		panic(fmt.Errorf("wgpu: pipeline %s+%s: %w", c.vs.label, c.ps.label, err))
	}
	vsGroup, err := c.bindGroup(&c.vs.shaderBase, device.StageVertex)
	if err != nil {
		panic(fmt.Errorf("wgpu: bind group of %q: %w", c.vs.label, err))
	}
	psGroup, err := c.bindGroup(&c.ps.shaderBase, device.StagePixel)
	if err != nil {
		panic(fmt.Errorf("wgpu: bind group of %q: %w", c.ps.label, err))
	}
	c.pass.SetPipeline(pipeline)
	c.pass.SetBindGroup(uint32(device.StageVertex.Group()), vsGroup, nil)
	c.pass.SetBindGroup(uint32(device.StagePixel.Group()), psGroup, nil)
}

// flushInputClears executes pending clears of textures about to be sampled, which no pass would
// otherwise load.
func (c *Context) flushInputClears() {
	var pending []*Texture
	for stage := range c.srvs {
		for _, srv := range c.srvs[stage] {
			if srv == nil {
				continue
			}
			if _, ok := c.colorClears[srv.tex]; ok {
				pending = append(pending, srv.tex)
			}
		}
	}
	if len(pending) == 0 {
		return
	}
	c.endPass()
	for _, t := range pending {
		c.flushClear(t)
	}
}

// flushClear runs a pending clear of t in a pass of its own.
func (c *Context) flushClear(t *Texture) {
	desc := &wgpu.RenderPassDescriptor{}
	if color, ok := c.colorClears[t]; ok {
		desc.ColorAttachments = []wgpu.RenderPassColorAttachment{{
			View:       t.textureView(),
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: clearValue(color),
		}}
		delete(c.colorClears, t)
	} else if depth, ok := c.depthClears[t]; ok {
		desc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            t.view,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: depth,
		}
		delete(c.depthClears, t)
	} else {
		return
	}
	pass := c.ensureEncoder().BeginRenderPass(desc)
	pass.End()
	pass.Release()
}

func (c *Context) ensureEncoder() *wgpu.CommandEncoder {
	if c.encoder == nil {
		enc, err := c.dev.device.CreateCommandEncoder(nil)
		if err != nil {
			panic(fmt.Errorf("wgpu: create command encoder: %w", err))
		}
		c.encoder = enc
	}
	return c.encoder
}

// beginPass opens a pass on the bound targets. A pending clear of a target becomes its load op.
func (c *Context) beginPass() {
	colors := make([]wgpu.RenderPassColorAttachment, len(c.rtvs))
	for i, r := range c.rtvs {
		a := wgpu.RenderPassColorAttachment{
			View:    r.tex.textureView(),
			LoadOp:  wgpu.LoadOpLoad,
			StoreOp: wgpu.StoreOpStore,
		}
		if color, ok := c.colorClears[r.tex]; ok {
			a.LoadOp = wgpu.LoadOpClear
			a.ClearValue = clearValue(color)
			delete(c.colorClears, r.tex)
		}
		colors[i] = a
	}
	desc := &wgpu.RenderPassDescriptor{ColorAttachments: colors}
	if c.dsv != nil {
		mustLive(c.dsv)
		a := &wgpu.RenderPassDepthStencilAttachment{
			View:            c.dsv.tex.view,
			DepthLoadOp:     wgpu.LoadOpLoad,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1,
		}
		if depth, ok := c.depthClears[c.dsv.tex]; ok {
			a.DepthLoadOp = wgpu.LoadOpClear
			a.DepthClearValue = depth
			delete(c.depthClears, c.dsv.tex)
		}
		desc.DepthStencilAttachment = a
	}
	c.pass = c.ensureEncoder().BeginRenderPass(desc)
	c.applyViewport()
}

func (c *Context) applyViewport() {
	vp := c.viewport
	if !c.viewportSet {
		t := c.rtvs[0].tex
		vp = device.Viewport{Width: float32(t.Width()), Height: float32(t.Height())}
	}
	c.pass.SetViewport(vp.X, vp.Y, vp.Width, vp.Height, 0, 1)
}

func (c *Context) endPass() {
	if c.pass == nil {
		return
	}
	c.pass.End()
	c.pass.Release()
	c.pass = nil
}

func (c *Context) pipeline() (*wgpu.RenderPipeline, error) {
	vs, ps := &c.vs.shaderBase, &c.ps.shaderBase
	key := pipelineKey{
		vs:          vs,
		ps:          ps,
		depth:       c.depthState,
		raster:      c.rasterState,
		colorCount:  len(c.rtvs),
		depthTarget: c.dsv != nil,
	}
	if len(vs.desc.Reflection.VertexAttributes) > 0 {
		key.stride = c.vbStride
	}
	for i, r := range c.rtvs {
		key.colors[i] = r.tex.format
	}
	if p, ok := c.pipelines[key]; ok {
		return p, nil
	}

	layout, err := c.pipelineLayout(vs, ps)
	if err != nil {
		return nil, err
	}
	buffers, err := vertexBufferLayouts(vs.desc.Reflection, key.stride)
	if err != nil {
		return nil, err
	}
	targets := make([]wgpu.ColorTargetState, key.colorCount)
	for i := range targets {
		targets[i] = wgpu.ColorTargetState{
			Format:    key.colors[i],
			WriteMask: wgpu.ColorWriteMaskAll,
		}
	}

	desc := &wgpu.RenderPipelineDescriptor{
		Label:  vs.label + "+" + ps.label,
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     vs.module,
			EntryPoint: entryPoint(vs.desc.Reflection, "vs_main"),
			Buffers:    buffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     ps.module,
			EntryPoint: entryPoint(ps.desc.Reflection, "fs_main"),
			Targets:    targets,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  cullMode(key.raster.Cull),
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	}
	if key.depthTarget {
		desc.DepthStencil = &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth32Float,
			DepthWriteEnabled: key.depth.Write,
			DepthCompare:      compareFunction(key.depth.Func),
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		}
	}

	p, err := c.dev.device.CreateRenderPipeline(desc)
	if err != nil {
		return nil, err
	}
	c.pipelines[key] = p
	c.logger.Debug("wgpu pipeline created", "label", desc.Label, "pipelines", len(c.pipelines))
	return p, nil
}

func (c *Context) pipelineLayout(vs, ps *shaderBase) (*wgpu.PipelineLayout, error) {
	key := layoutKey{vs: vs, ps: ps}
	if l, ok := c.layouts[key]; ok {
		return l, nil
	}
	l, err := c.dev.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            vs.label + "+" + ps.label,
		BindGroupLayouts: []*wgpu.BindGroupLayout{vs.layout, ps.layout},
	})
	if err != nil {
		return nil, err
	}
	c.layouts[key] = l
	return l, nil
}

// bindGroup builds the stage's bind group from the current bindings. Uniform blocks are copied
// into the frame arena so later updates do not affect this draw.
func (c *Context) bindGroup(s *shaderBase, stage device.Stage) (*wgpu.BindGroup, error) {
	if s.empty != nil {
		return s.empty, nil
	}
	bindings := s.desc.Reflection.Bindings
	entries := make([]wgpu.BindGroupEntry, 0, len(bindings))
	for _, b := range bindings {
		e := wgpu.BindGroupEntry{Binding: uint32(b.Slot)}
		switch b.Kind {
		case device.BindingUniform:
			var data []byte
			if b.Slot < device.MaxConstantBufferSlots {
				if cb := c.cbuffers[stage][b.Slot]; cb != nil {
					mustLive(cb)
					data = cb.shadow
				}
			}
			size := uniformSize(b)
			page, offset, err := c.arena.alloc(data, size)
			if err != nil {
				return nil, err
			}
			e.Buffer = page.buf
			e.Offset = uint64(offset)
			e.Size = uint64(size)
		case device.BindingTexture:
			e.TextureView = c.placeholder.view
			if b.Slot < device.MaxShaderResourceSlots {
				if srv := c.srvs[stage][b.Slot]; srv != nil {
					mustLive(srv)
					e.TextureView = srv.tex.textureView()
				}
			}
		case device.BindingSampler:
			e.Sampler = c.defaultSampler.gpu
			if b.Slot < device.MaxSamplerSlots {
				if smp := c.samplers[stage][b.Slot]; smp != nil {
					mustLive(smp)
					e.Sampler = smp.gpu
				}
			}
		}
		entries = append(entries, e)
	}
	bg, err := c.dev.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   s.label,
		Layout:  s.layout,
		Entries: entries,
	})
	if err != nil {
		return nil, err
	}
	c.frameGroups = append(c.frameGroups, bg)
	return bg, nil
}

// submit ends the open pass, writes the uniform arena and submits the frame's commands.
func (c *Context) submit() error {
	c.endPass()
	c.arena.flush(func(buf *wgpu.Buffer, data []byte) {
		c.dev.queue.WriteBuffer(buf, 0, data)
	})
	if c.encoder == nil {
		return nil
	}
	cb, err := c.encoder.Finish(nil)
	c.encoder.Release()
	c.encoder = nil
	if err != nil {
		return fmt.Errorf("wgpu: finish frame: %w", err)
	}
	c.dev.queue.Submit(cb)
	cb.Release()
	return nil
}

// endFrame drops per-frame objects and target bindings after a submit.
func (c *Context) endFrame() {
	for _, bg := range c.frameGroups {
		bg.Release()
	}
	c.frameGroups = c.frameGroups[:0]
	c.arena.reset()
	c.unbindTargets()
}

// discardFrame throws away recorded but unsubmitted work.
func (c *Context) discardFrame() {
	c.endPass()
	if c.encoder != nil {
		c.encoder.Release()
		c.encoder = nil
	}
	c.endFrame()
}

func (c *Context) unbindTargets() {
	c.endPass()
	c.rtvs = nil
	c.dsv = nil
}

// dropPipelines releases every cached pipeline and layout built from s.
func (c *Context) dropPipelines(s *shaderBase) {
	for key, p := range c.pipelines {
		if key.vs == s || key.ps == s {
			p.Release()
			delete(c.pipelines, key)
		}
	}
	for key, l := range c.layouts {
		if key.vs == s || key.ps == s {
			l.Release()
			delete(c.layouts, key)
		}
	}
}

func (c *Context) release() {
	c.discardFrame()
	for key, p := range c.pipelines {
		p.Release()
		delete(c.pipelines, key)
	}
	for key, l := range c.layouts {
		l.Release()
		delete(c.layouts, key)
	}
	c.arena.release()
	c.placeholder.Release()
	c.defaultSampler.Release()
}

func clearValue(color mgl32.Vec4) wgpu.Color {
	return wgpu.Color{R: float64(color[0]), G: float64(color[1]), B: float64(color[2]), A: float64(color[3])}
}

func entryPoint(refl *device.ShaderReflection, fallback string) string {
	if refl.EntryPoint != "" {
		return refl.EntryPoint
	}
	return fallback
}
