// Package opengl implements gpu.Device on OpenGL 4.6 core with direct state
// access, persistently mapped buffers and bindless textures.
package opengl

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.6-core/gl"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
)

var _ gpu.Device = (*Device)(nil)

const mapFlags = gl.MAP_WRITE_BIT | gl.MAP_PERSISTENT_BIT | gl.MAP_COHERENT_BIT

type Device struct {
	limits gpu.Limits
	raster gpu.RasterState
}

// NewDevice loads the GL entry points. The context must be current on the
// calling thread, and every later call must come from that thread.
func NewDevice(debug bool) (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("opengl init: %w", err)
	}
	core.LogInfo("OpenGL %s on %s", gl.GoStr(gl.GetString(gl.VERSION)), gl.GoStr(gl.GetString(gl.RENDERER)))

	var alignment, maxTexture int32
	gl.GetIntegerv(gl.SHADER_STORAGE_BUFFER_OFFSET_ALIGNMENT, &alignment)
	gl.GetIntegerv(gl.MAX_TEXTURE_SIZE, &maxTexture)
	d := &Device{
		limits: gpu.Limits{
			StorageBufferOffsetAlignment: int(alignment),
			MaxTextureSize:               int(maxTexture),
		},
	}
	if debug {
		gl.Enable(gl.DEBUG_OUTPUT)
		gl.Enable(gl.DEBUG_OUTPUT_SYNCHRONOUS)
		gl.DebugMessageCallback(debugMessage, nil)
	}
	d.raster = gpu.DefaultRasterState()
	d.applyRaster(d.raster)
	return d, nil
}

func debugMessage(source, gltype, id, severity uint32, length int32, message string, userParam unsafe.Pointer) {
	switch severity {
	case gl.DEBUG_SEVERITY_HIGH:
		core.LogError("gl: %s", message)
	case gl.DEBUG_SEVERITY_MEDIUM, gl.DEBUG_SEVERITY_LOW:
		core.LogWarn("gl: %s", message)
	default:
		core.LogDebug("gl: %s", message)
	}
}

func (d *Device) Limits() gpu.Limits {
	return d.limits
}

func (d *Device) CreateMappedBuffer(target gpu.BufferTarget, size int) (gpu.BufferHandle, []byte, error) {
	if size <= 0 {
		return 0, nil, fmt.Errorf("invalid %s buffer size %d", target, size)
	}
	var buffer uint32
	gl.CreateBuffers(1, &buffer)
	gl.NamedBufferStorage(buffer, size, nil, mapFlags)
	ptr := gl.MapNamedBufferRange(buffer, 0, size, mapFlags)
	if ptr == nil {
		gl.DeleteBuffers(1, &buffer)
		return 0, nil, fmt.Errorf("failed to map %d byte %s buffer", size, target)
	}
	return gpu.BufferHandle(buffer), unsafe.Slice((*byte)(ptr), size), nil
}

func (d *Device) DeleteBuffer(buffer gpu.BufferHandle) {
	b := uint32(buffer)
	gl.UnmapNamedBuffer(b)
	gl.DeleteBuffers(1, &b)
}

func (d *Device) BindBuffer(target gpu.BufferTarget, buffer gpu.BufferHandle) {
	gl.BindBuffer(bufferTarget(target), uint32(buffer))
}

func (d *Device) BindBufferRange(target gpu.BufferTarget, index uint32, buffer gpu.BufferHandle, offset, size int) {
	gl.BindBufferRange(bufferTarget(target), index, uint32(buffer), offset, size)
}

func (d *Device) FenceSync() gpu.SyncHandle {
	return gpu.SyncHandle(gl.FenceSync(gl.SYNC_GPU_COMMANDS_COMPLETE, 0))
}

func (d *Device) ClientWaitSync(sync gpu.SyncHandle, flush bool, timeoutNs uint64) gpu.WaitStatus {
	var flags uint32
	if flush {
		flags = gl.SYNC_FLUSH_COMMANDS_BIT
	}
	switch gl.ClientWaitSync(uintptr(sync), flags, timeoutNs) {
	case gl.ALREADY_SIGNALED:
		return gpu.WaitAlreadySignaled
	case gl.CONDITION_SATISFIED:
		return gpu.WaitConditionSatisfied
	case gl.TIMEOUT_EXPIRED:
		return gpu.WaitTimeoutExpired
	default:
		return gpu.WaitFailed
	}
}

func (d *Device) DeleteSync(sync gpu.SyncHandle) {
	gl.DeleteSync(uintptr(sync))
}

func (d *Device) CreateVertexArray(desc gpu.VertexArrayDesc) (gpu.VertexArrayHandle, error) {
	var vao uint32
	gl.CreateVertexArrays(1, &vao)
	for _, b := range desc.Buffers {
		gl.VertexArrayVertexBuffer(vao, b.Binding, uint32(b.Buffer), 0, b.Stride)
		gl.VertexArrayBindingDivisor(vao, b.Binding, b.Divisor)
	}
	for _, a := range desc.Attributes {
		gl.EnableVertexArrayAttrib(vao, a.Location)
		switch a.Format {
		case gpu.VertexFormatFloat32:
			gl.VertexArrayAttribFormat(vao, a.Location, a.Components, gl.FLOAT, false, a.Offset)
		case gpu.VertexFormatUint32:
			gl.VertexArrayAttribIFormat(vao, a.Location, a.Components, gl.UNSIGNED_INT, a.Offset)
		default:
			gl.DeleteVertexArrays(1, &vao)
			return 0, fmt.Errorf("attribute %d: %w", a.Location, core.ErrUnsupportedFormat)
		}
		gl.VertexArrayAttribBinding(vao, a.Location, a.Binding)
	}
	if desc.IndexBuffer != 0 {
		gl.VertexArrayElementBuffer(vao, uint32(desc.IndexBuffer))
	}
	return gpu.VertexArrayHandle(vao), nil
}

func (d *Device) BindVertexArray(vao gpu.VertexArrayHandle) {
	gl.BindVertexArray(uint32(vao))
}

func (d *Device) DeleteVertexArray(vao gpu.VertexArrayHandle) {
	v := uint32(vao)
	gl.DeleteVertexArrays(1, &v)
}

func (d *Device) UseProgram(program gpu.ProgramHandle) {
	gl.UseProgram(uint32(program))
}

func (d *Device) DeleteProgram(program gpu.ProgramHandle) {
	gl.DeleteProgram(uint32(program))
}

func (d *Device) CreateTexture(desc gpu.TextureDesc) (gpu.TextureHandle, error) {
	if desc.Width <= 0 || desc.Height <= 0 || int(max(desc.Width, desc.Height)) > d.limits.MaxTextureSize {
		return 0, fmt.Errorf("texture size %dx%d out of range", desc.Width, desc.Height)
	}
	internal, err := textureFormat(desc.Format)
	if err != nil {
		return 0, err
	}
	levels := int32(1)
	if desc.Mipmaps {
		for s := max(desc.Width, desc.Height); s > 1; s >>= 1 {
			levels++
		}
	}

	var texture uint32
	gl.CreateTextures(gl.TEXTURE_2D, 1, &texture)
	gl.TextureStorage2D(texture, levels, internal, desc.Width, desc.Height)

	minFilter, magFilter := int32(gl.LINEAR), int32(gl.LINEAR)
	if desc.Filter == gpu.TextureFilterNearest {
		minFilter, magFilter = gl.NEAREST, gl.NEAREST
	}
	if desc.Mipmaps {
		minFilter = gl.LINEAR_MIPMAP_LINEAR
		if desc.Filter == gpu.TextureFilterNearest {
			minFilter = gl.NEAREST_MIPMAP_NEAREST
		}
	}
	wrap := int32(gl.REPEAT)
	if desc.Wrap == gpu.TextureWrapClampToEdge {
		wrap = gl.CLAMP_TO_EDGE
	}
	gl.TextureParameteri(texture, gl.TEXTURE_MIN_FILTER, minFilter)
	gl.TextureParameteri(texture, gl.TEXTURE_MAG_FILTER, magFilter)
	gl.TextureParameteri(texture, gl.TEXTURE_WRAP_S, wrap)
	gl.TextureParameteri(texture, gl.TEXTURE_WRAP_T, wrap)

	if desc.Pixels != nil {
		if desc.Format != gpu.TextureFormatRGBA8 || len(desc.Pixels) != int(desc.Width*desc.Height*4) {
			gl.DeleteTextures(1, &texture)
			return 0, fmt.Errorf("texture pixels: %w", core.ErrUnsupportedFormat)
		}
		gl.TextureSubImage2D(texture, 0, 0, 0, desc.Width, desc.Height, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(desc.Pixels))
		if desc.Mipmaps {
			gl.GenerateTextureMipmap(texture)
		}
	}
	return gpu.TextureHandle(texture), nil
}

func (d *Device) DeleteTexture(texture gpu.TextureHandle) {
	t := uint32(texture)
	gl.DeleteTextures(1, &t)
}

func (d *Device) BindTextureUnit(unit uint32, texture gpu.TextureHandle) {
	gl.BindTextureUnit(unit, uint32(texture))
}

func (d *Device) ResidentHandle(texture gpu.TextureHandle) uint64 {
	handle := gl.GetTextureHandleARB(uint32(texture))
	gl.MakeTextureHandleResidentARB(handle)
	return handle
}

func (d *Device) ReleaseResidentHandle(handle uint64) {
	gl.MakeTextureHandleNonResidentARB(handle)
}

func (d *Device) CreateFramebuffer(desc gpu.FramebufferDesc) (gpu.FramebufferHandle, error) {
	var fb uint32
	gl.CreateFramebuffers(1, &fb)
	buffers := make([]uint32, len(desc.ColorAttachments))
	for i, tex := range desc.ColorAttachments {
		buffers[i] = gl.COLOR_ATTACHMENT0 + uint32(i)
		gl.NamedFramebufferTexture(fb, buffers[i], uint32(tex), 0)
	}
	if desc.DepthAttachment != 0 {
		gl.NamedFramebufferTexture(fb, gl.DEPTH_ATTACHMENT, uint32(desc.DepthAttachment), 0)
	}
	if len(buffers) > 0 {
		gl.NamedFramebufferDrawBuffers(fb, int32(len(buffers)), &buffers[0])
	} else {
		gl.NamedFramebufferDrawBuffer(fb, gl.NONE)
		gl.NamedFramebufferReadBuffer(fb, gl.NONE)
	}
	if status := gl.CheckNamedFramebufferStatus(fb, gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		gl.DeleteFramebuffers(1, &fb)
		return 0, fmt.Errorf("framebuffer incomplete: 0x%x", status)
	}
	return gpu.FramebufferHandle(fb), nil
}

func (d *Device) DeleteFramebuffer(framebuffer gpu.FramebufferHandle) {
	fb := uint32(framebuffer)
	gl.DeleteFramebuffers(1, &fb)
}

func (d *Device) BindFramebuffer(framebuffer gpu.FramebufferHandle) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(framebuffer))
}

func (d *Device) Viewport(x, y, width, height int32) {
	gl.Viewport(x, y, width, height)
}

// Clear clears the bound framebuffer. Depth is cleared even when the
// current raster state has depth writes off.
func (d *Device) Clear(flags gpu.ClearFlags, color [4]float32) {
	var mask uint32
	if flags&gpu.ClearColor != 0 {
		gl.ClearColor(color[0], color[1], color[2], color[3])
		mask |= gl.COLOR_BUFFER_BIT
	}
	if flags&gpu.ClearDepth != 0 {
		if !d.raster.DepthWrite {
			gl.DepthMask(true)
			defer gl.DepthMask(false)
		}
		gl.ClearDepth(1)
		mask |= gl.DEPTH_BUFFER_BIT
	}
	if mask != 0 {
		gl.Clear(mask)
	}
}

func (d *Device) ApplyRasterState(state gpu.RasterState) {
	d.applyRaster(state)
	d.raster = state
}

func (d *Device) applyRaster(state gpu.RasterState) {
	enable(gl.DEPTH_TEST, state.DepthTest)
	gl.DepthMask(state.DepthWrite)
	gl.DepthFunc(compareFunc(state.DepthFunc))

	switch state.Cull {
	case gpu.CullNone:
		gl.Disable(gl.CULL_FACE)
	case gpu.CullFront:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.FRONT)
	default:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
	}

	switch state.Blend {
	case gpu.BlendAlpha:
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	case gpu.BlendAdditive:
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.ONE, gl.ONE)
	default:
		gl.Disable(gl.BLEND)
	}

	if state.Wireframe {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.LINE)
	} else {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
	}
}

func (d *Device) MultiDrawElementsIndirect(offset int, drawCount int32, stride int32) {
	gl.MultiDrawElementsIndirect(gl.TRIANGLES, gl.UNSIGNED_INT, gl.PtrOffset(offset), drawCount, stride)
}

func (d *Device) DrawArrays(first, count int32) {
	gl.DrawArrays(gl.TRIANGLES, first, count)
}
