package views

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/lumen/engine/renderer/components"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/memory"
)

// CameraSnapshot is the camera as it was when the frame began.
type CameraSnapshot struct {
	View       mgl32.Mat4
	Projection mgl32.Mat4
	Position   mgl32.Vec3
	Direction  mgl32.Vec3
}

// RendererState remembers what is bound on the device and drops calls that
// would rebind the same object or state.
type RendererState struct {
	device gpu.Device

	valid       bool
	program     gpu.ProgramHandle
	framebuffer gpu.FramebufferHandle
	viewport    [4]int32
	raster      gpu.RasterState
	vertexArray gpu.VertexArrayHandle
	indirect    gpu.BufferHandle
	textures    map[uint32]gpu.TextureHandle

	Camera CameraSnapshot

	skipped uint64
}

func NewRendererState(device gpu.Device) *RendererState {
	return &RendererState{
		device:   device,
		textures: make(map[uint32]gpu.TextureHandle),
	}
}

// Invalidate forgets the cached bindings so the next call of every kind
// reaches the device. Call it whenever code outside the renderer may have
// touched device state.
func (s *RendererState) Invalidate() {
	s.valid = false
	clear(s.textures)
}

// revalidate resets every tracked binding to a value no real binding has,
// so the first call of each kind after Invalidate reaches the device.
func (s *RendererState) revalidate() {
	if s.valid {
		return
	}
	s.program = ^gpu.ProgramHandle(0)
	s.framebuffer = ^gpu.FramebufferHandle(0)
	s.viewport = [4]int32{-1, -1, -1, -1}
	s.raster = gpu.RasterState{DepthFunc: ^gpu.CompareFunc(0)}
	s.vertexArray = ^gpu.VertexArrayHandle(0)
	s.indirect = ^gpu.BufferHandle(0)
	s.valid = true
}

func (s *RendererState) UseProgram(program gpu.ProgramHandle) {
	s.revalidate()
	if s.program == program {
		s.skipped++
		return
	}
	s.program = program
	s.device.UseProgram(program)
}

// BindFramebuffer binds framebuffer and sets the viewport to cover it.
func (s *RendererState) BindFramebuffer(framebuffer gpu.FramebufferHandle, width, height int32) {
	s.revalidate()
	if s.framebuffer == framebuffer {
		s.skipped++
	} else {
		s.framebuffer = framebuffer
		s.device.BindFramebuffer(framebuffer)
	}
	s.Viewport(0, 0, width, height)
}

func (s *RendererState) Viewport(x, y, width, height int32) {
	s.revalidate()
	vp := [4]int32{x, y, width, height}
	if s.viewport == vp {
		s.skipped++
		return
	}
	s.viewport = vp
	s.device.Viewport(x, y, width, height)
}

func (s *RendererState) ApplyRaster(state gpu.RasterState) {
	s.revalidate()
	if s.raster == state {
		s.skipped++
		return
	}
	s.raster = state
	s.device.ApplyRasterState(state)
}

func (s *RendererState) BindStream(stream *memory.VertexStream) {
	s.revalidate()
	if s.vertexArray == stream.Handle() {
		s.skipped++
		return
	}
	s.vertexArray = stream.Handle()
	stream.Bind()
}

func (s *RendererState) BindIndirect(buffer gpu.BufferHandle) {
	s.revalidate()
	if s.indirect == buffer {
		s.skipped++
		return
	}
	s.indirect = buffer
	s.device.BindBuffer(gpu.BufferTargetDrawIndirect, buffer)
}

func (s *RendererState) BindTexture(unit uint32, texture gpu.TextureHandle) {
	s.revalidate()
	if bound, ok := s.textures[unit]; ok && bound == texture {
		s.skipped++
		return
	}
	s.textures[unit] = texture
	s.device.BindTextureUnit(unit, texture)
}

func (s *RendererState) Program() gpu.ProgramHandle {
	return s.program
}

func (s *RendererState) Framebuffer() gpu.FramebufferHandle {
	return s.framebuffer
}

// Skipped counts the state changes that were dropped as redundant.
func (s *RendererState) Skipped() uint64 {
	return s.skipped
}

// SnapshotCamera copies the camera's matrices for the frame.
func (s *RendererState) SnapshotCamera(camera *components.Camera) {
	s.Camera = CameraSnapshot{
		View:       camera.GetView(),
		Projection: camera.GetProjection(),
		Position:   camera.GetPosition(),
		Direction:  camera.Forward(),
	}
}

// CameraData lays the snapshot out for the camera storage block.
func (s *RendererState) CameraData(lightSpace mgl32.Mat4) memory.CameraData {
	c := s.Camera
	return memory.CameraData{
		View:           c.View,
		Projection:     c.Projection,
		ViewProjection: c.Projection.Mul4(c.View),
		LightSpace:     lightSpace,
		Position:       c.Position.Vec4(1),
		Direction:      c.Direction.Vec4(0),
	}
}
