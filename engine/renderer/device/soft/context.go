package soft

import (
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/device"
	"github.com/go-gl/mathgl/mgl32"
)

// DrawRecord describes one executed draw call.
type DrawRecord struct {
	Indexed      bool
	Count        int
	VertexBuffer string
	VertexShader string
	PixelShader  string
	Target       string
}

// Context is the software immediate context. Draw calls rasterize synchronously.
type Context struct {
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

	hazards  int
	logDraws bool
	draws    []DrawRecord
}

var _ device.Context = &Context{}

func newContext(logger *slog.Logger, logDraws bool) *Context {
	return &Context{
		logger:     logger,
		depthState: device.DefaultDepthState,
		logDraws:   logDraws,
	}
}

// HazardCount returns how many times a texture was bound as input and output at once and the
// input binding was forced to null.
func (c *Context) HazardCount() int {
	return c.hazards
}

// EnableDrawLog turns the draw log on or off. Turning it off keeps recorded draws.
func (c *Context) EnableDrawLog(enabled bool) {
	c.logDraws = enabled
}

// Draws returns the draw log. It is empty unless the log was enabled.
func (c *Context) Draws() []DrawRecord {
	return append([]DrawRecord(nil), c.draws...)
}

// ResetDraws clears the draw log.
func (c *Context) ResetDraws() {
	c.draws = c.draws[:0]
}

// BoundShaderResource returns the view bound at a stage slot, or nil.
func (c *Context) BoundShaderResource(stage device.Stage, slot int) device.ShaderResourceView {
	if v := c.srvs[stage][slot]; v != nil {
		return v
	}
	return nil
}

// BoundSampler returns the sampler bound at a stage slot, or nil.
func (c *Context) BoundSampler(stage device.Stage, slot int) device.SamplerState {
	if s := c.samplers[stage][slot]; s != nil {
		return s
	}
	return nil
}

// BoundRenderTargets returns the bound color targets.
func (c *Context) BoundRenderTargets() []device.RenderTargetView {
	out := make([]device.RenderTargetView, len(c.rtvs))
	for i, v := range c.rtvs {
		out[i] = v
	}
	return out
}

func (c *Context) ClearRenderTargetView(rtv device.RenderTargetView, color mgl32.Vec4) {
	v := asRTV(rtv)
	mustLive(v)
	r, g, b, a := toByte(color[0]), toByte(color[1]), toByte(color[2]), toByte(color[3])
	pix := v.tex.color.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = r, g, b, a
	}
}

func (c *Context) ClearDepthStencilView(dsv device.DepthStencilView, depth float32) {
	v := asDSV(dsv)
	mustLive(v)
	for i := range v.tex.depth {
		v.tex.depth[i] = depth
	}
}

func (c *Context) SetRenderTargets(rtvs []device.RenderTargetView, dsv device.DepthStencilView) {
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
	c.rtvs = bound
	c.dsv = nil
	if dsv != nil {
		d := asDSV(dsv)
		mustLive(d)
		c.dsv = d
	}
}

// unbindInputsOf forces every shader-resource slot that reads tex to null.
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
}

func (c *Context) SetVertexShader(vs device.VertexShader) {
	if vs == nil {
		c.vs = nil
		return
	}
	s, ok := vs.(*VertexShader)
	if !ok {
		panic(fmt.Errorf("soft: %w: vertex shader %T", device.ErrInvalidDesc, vs))
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
		panic(fmt.Errorf("soft: %w: pixel shader %T", device.ErrInvalidDesc, ps))
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
			panic(fmt.Errorf("soft: %w: shader resource view %T", device.ErrInvalidDesc, view))
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
			panic(fmt.Errorf("soft: %w: sampler %T", device.ErrInvalidDesc, sampler))
		}
		mustLive(s)
		c.samplers[stage][slot] = s
	}
}

func (c *Context) UpdateBuffer(buf device.Buffer, data []byte) {
	b := asBuffer(buf)
	mustLive(b)
	if len(data) > len(b.data) {
		panic(fmt.Errorf("soft: update of %d bytes overflows buffer %q of %d bytes", len(data), b.label, len(b.data)))
	}
	copy(b.data, data)
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
	job := c.beginDraw()
	u := &Uniforms{refl: c.vs.desc.Reflection, buffers: &c.cbuffers[device.StageVertex]}

	var tri [3]Varying
	for i := 0; i+2 < vertexCount; i += 3 {
		for k := range 3 {
			id := startVertex + i + k
			var in device.Vertex
			if c.vb != nil && (id+1)*c.vbStride <= len(c.vb.data) {
				in = device.DecodeVertex(c.vb.data[id*c.vbStride:])
			}
			tri[k] = c.vs.kernel(u, in, id)
		}
		job.drawTriangle(tri)
	}
	c.record(false, vertexCount)
}

func (c *Context) DrawIndexed(indexCount, startIndex, baseVertex int) {
	if c.vb == nil || c.ib == nil {
		panic(fmt.Errorf("soft: indexed draw without vertex and index buffers"))
	}
	mustLive(c.vb)
	mustLive(c.ib)
	job := c.beginDraw()
	u := &Uniforms{refl: c.vs.desc.Reflection, buffers: &c.cbuffers[device.StageVertex]}

	stride := c.vbStride
	if stride <= 0 {
		stride = device.VertexStride
	}
	vertexCount := len(c.vb.data) / stride
	cache := make([]*Varying, vertexCount)
	shade := func(index int) Varying {
		if index < 0 || index >= vertexCount {
			panic(fmt.Errorf("soft: index %d out of range for %d vertices", index, vertexCount))
		}
		if cache[index] == nil {
			out := c.vs.kernel(u, device.DecodeVertex(c.vb.data[index*stride:]), index)
			cache[index] = &out
		}
		return *cache[index]
	}

	var tri [3]Varying
	for i := 0; i+2 < indexCount; i += 3 {
		for k := range 3 {
			at := (startIndex + i + k) * 4
			tri[k] = shade(baseVertex + int(binary.LittleEndian.Uint32(c.ib.data[at:])))
		}
		job.drawTriangle(tri)
	}
	c.record(true, indexCount)
}

// beginDraw validates pipeline state and captures it for rasterization.
func (c *Context) beginDraw() *rasterJob {
	if len(c.rtvs) == 0 {
		panic(fmt.Errorf("soft: draw: %w", device.ErrNoRenderTarget))
	}
	if c.vs == nil || c.ps == nil {
		panic(fmt.Errorf("soft: draw: %w", device.ErrNoShader))
	}
	target := c.rtvs[0]
	mustLive(target)
	mustLive(c.vs)
	mustLive(c.ps)

	vp := c.viewport
	if !c.viewportSet {
		vp = device.Viewport{Width: float32(target.tex.Width()), Height: float32(target.tex.Height())}
	}

	job := &rasterJob{
		target:   target.tex,
		viewport: vp,
		state:    c.depthState,
		cull:     c.rasterState.Cull,
		kernel:   c.ps.kernel,
		env: &PixelEnv{
			Uniforms: Uniforms{refl: c.ps.desc.Reflection, buffers: &c.cbuffers[device.StagePixel]},
			srvs:     &c.srvs[device.StagePixel],
			samplers: &c.samplers[device.StagePixel],
		},
	}
	if c.dsv != nil {
		mustLive(c.dsv)
		job.depth = c.dsv.tex
	}
	return job
}

func (c *Context) record(indexed bool, count int) {
	if !c.logDraws {
		return
	}
	rec := DrawRecord{
		Indexed:      indexed,
		Count:        count,
		VertexShader: c.vs.desc.Key,
		PixelShader:  c.ps.desc.Key,
		Target:       c.rtvs[0].tex.label,
	}
	if indexed && c.vb != nil {
		rec.VertexBuffer = c.vb.label
	}
	c.draws = append(c.draws, rec)
}

// unbindTargets drops every render-target binding, as presenting does.
func (c *Context) unbindTargets() {
	c.rtvs = nil
	c.dsv = nil
}

func toByte(f float32) uint8 {
	return uint8(max(0, min(f, 1))*255 + 0.5)
}

func asRTV(v device.RenderTargetView) *RenderTargetView {
	r, ok := v.(*RenderTargetView)
	if !ok || r == nil {
		panic(fmt.Errorf("soft: %w: render target view %T", device.ErrInvalidDesc, v))
	}
	return r
}

func asDSV(v device.DepthStencilView) *DepthStencilView {
	d, ok := v.(*DepthStencilView)
	if !ok || d == nil {
		panic(fmt.Errorf("soft: %w: depth stencil view %T", device.ErrInvalidDesc, v))
	}
	return d
}

func asBuffer(b device.Buffer) *Buffer {
	sb, ok := b.(*Buffer)
	if !ok || sb == nil {
		panic(fmt.Errorf("soft: %w: buffer %T", device.ErrInvalidDesc, b))
	}
	return sb
}
