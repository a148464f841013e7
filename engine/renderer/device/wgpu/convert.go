package wgpudev

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/device"
	"github.com/cogentcore/webgpu/wgpu"
)

func textureFormat(f device.Format) wgpu.TextureFormat {
	switch f {
	case device.FormatRGBA8UnormSrgb:
		return wgpu.TextureFormatRGBA8UnormSrgb
	case device.FormatDepth32Float:
		return wgpu.TextureFormatDepth32Float
	default:
		return wgpu.TextureFormatRGBA8Unorm
	}
}

func textureUsage(bind device.BindFlags) wgpu.TextureUsage {
	usage := wgpu.TextureUsageCopyDst
	if bind&device.BindShaderResource != 0 {
		usage |= wgpu.TextureUsageTextureBinding
	}
	if bind&(device.BindRenderTarget|device.BindDepthStencil) != 0 {
		usage |= wgpu.TextureUsageRenderAttachment
	}
	return usage
}

func addressMode(m device.AddressMode) wgpu.AddressMode {
	switch m {
	case device.AddressClamp:
		return wgpu.AddressModeClampToEdge
	case device.AddressMirror:
		return wgpu.AddressModeMirrorRepeat
	default:
		return wgpu.AddressModeRepeat
	}
}

// samplerDescriptor maps a sampler description onto WebGPU state. Anisotropic filtering requires
// linear filtering on every axis.
func samplerDescriptor(desc device.SamplerDesc) *wgpu.SamplerDescriptor {
	out := &wgpu.SamplerDescriptor{
		Label:         desc.Label,
		AddressModeU:  addressMode(desc.AddressU),
		AddressModeV:  addressMode(desc.AddressV),
		AddressModeW:  addressMode(desc.AddressV),
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	}
	switch desc.Filter {
	case device.FilterPoint:
		out.MagFilter = wgpu.FilterModeNearest
		out.MinFilter = wgpu.FilterModeNearest
		out.MipmapFilter = wgpu.MipmapFilterModeNearest
	case device.FilterAnisotropic:
		out.MaxAnisotropy = uint16(min(max(desc.MaxAnisotropy, 1), 16))
	}
	return out
}

func compareFunction(f device.CompareFunc) wgpu.CompareFunction {
	switch f {
	case device.CompareLessEqual:
		return wgpu.CompareFunctionLessEqual
	case device.CompareAlways:
		return wgpu.CompareFunctionAlways
	default:
		return wgpu.CompareFunctionLess
	}
}

func cullMode(m device.CullMode) wgpu.CullMode {
	switch m {
	case device.CullBack:
		return wgpu.CullModeBack
	case device.CullFront:
		return wgpu.CullModeFront
	default:
		return wgpu.CullModeNone
	}
}

func shaderStage(s device.Stage) wgpu.ShaderStage {
	if s == device.StageVertex {
		return wgpu.ShaderStageVertex
	}
	return wgpu.ShaderStageFragment
}

var vertexFormats = map[string]wgpu.VertexFormat{
	"f32":       wgpu.VertexFormatFloat32,
	"vec2<f32>": wgpu.VertexFormatFloat32x2,
	"vec2f":     wgpu.VertexFormatFloat32x2,
	"vec3<f32>": wgpu.VertexFormatFloat32x3,
	"vec3f":     wgpu.VertexFormatFloat32x3,
	"vec4<f32>": wgpu.VertexFormatFloat32x4,
	"vec4f":     wgpu.VertexFormatFloat32x4,
}

// vertexBufferLayouts builds the single interleaved buffer layout a vertex stage reads. It returns
// nil when the stage declares no vertex inputs.
func vertexBufferLayouts(refl *device.ShaderReflection, stride int) ([]wgpu.VertexBufferLayout, error) {
	if len(refl.VertexAttributes) == 0 {
		return nil, nil
	}
	attrs := make([]wgpu.VertexAttribute, 0, len(refl.VertexAttributes))
	for _, a := range refl.VertexAttributes {
		format, ok := vertexFormats[strings.ReplaceAll(a.Type, " ", "")]
		if !ok {
			return nil, fmt.Errorf("%w: vertex attribute %q has unsupported type %s", device.ErrInvalidDesc, a.Name, a.Type)
		}
		attrs = append(attrs, wgpu.VertexAttribute{
			Format:         format,
			Offset:         uint64(a.Offset),
			ShaderLocation: uint32(a.Location),
		})
	}
	if stride <= 0 {
		stride = refl.VertexStride
	}
	return []wgpu.VertexBufferLayout{{
		ArrayStride: uint64(stride),
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  attrs,
	}}, nil
}

// bindGroupLayoutEntries converts the reflected bindings of one stage into layout entries.
func bindGroupLayoutEntries(refl *device.ShaderReflection) ([]wgpu.BindGroupLayoutEntry, error) {
	visibility := shaderStage(refl.Stage)
	entries := make([]wgpu.BindGroupLayoutEntry, 0, len(refl.Bindings))
	for _, b := range refl.Bindings {
		if b.Group != refl.Stage.Group() {
			return nil, fmt.Errorf("%w: %s binding %q is declared in group %d", device.ErrInvalidDesc, refl.Stage, b.Name, b.Group)
		}
		entry := wgpu.BindGroupLayoutEntry{
			Binding:    uint32(b.Slot),
			Visibility: visibility,
		}
		switch b.Kind {
		case device.BindingUniform:
			entry.Buffer.Type = wgpu.BufferBindingTypeUniform
			entry.Buffer.MinBindingSize = uint64(uniformSize(b))
		case device.BindingTexture:
			entry.Texture.SampleType = wgpu.TextureSampleTypeFloat
			entry.Texture.ViewDimension = wgpu.TextureViewDimension2D
		case device.BindingSampler:
			entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// uniformSize is the bound size of a uniform block, rounded up to the 16-byte struct alignment.
func uniformSize(b device.Binding) int {
	return alignUp(max(b.Size, 16), 16)
}

func alignUp(n, align int) int {
	return (n + align - 1) / align * align
}
