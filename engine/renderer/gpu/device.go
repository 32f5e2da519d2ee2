// Package gpu describes the GPU capability the renderer is written against.
// The OpenGL backend implements it for real hardware and gputest implements
// it in memory for tests.
package gpu

type BufferHandle uint32
type VertexArrayHandle uint32
type ProgramHandle uint32
type TextureHandle uint32

// FramebufferHandle 0 is the window's default framebuffer.
type FramebufferHandle uint32

// SyncHandle is an opaque fence object; 0 is never a valid fence.
type SyncHandle uintptr

const DefaultFramebuffer FramebufferHandle = 0

type BufferTarget uint8

const (
	BufferTargetArray BufferTarget = iota
	BufferTargetElementArray
	BufferTargetDrawIndirect
	BufferTargetShaderStorage
)

func (t BufferTarget) String() string {
	switch t {
	case BufferTargetArray:
		return "array"
	case BufferTargetElementArray:
		return "element_array"
	case BufferTargetDrawIndirect:
		return "draw_indirect"
	case BufferTargetShaderStorage:
		return "shader_storage"
	default:
		return "unknown"
	}
}

// WaitStatus is the outcome of a single client-side fence poll.
type WaitStatus uint8

const (
	WaitAlreadySignaled WaitStatus = iota
	WaitConditionSatisfied
	WaitTimeoutExpired
	WaitFailed
)

func (s WaitStatus) Signaled() bool {
	return s == WaitAlreadySignaled || s == WaitConditionSatisfied
}

type Limits struct {
	// Required alignment in bytes for shader storage binding offsets.
	StorageBufferOffsetAlignment int
	MaxTextureSize               int
}

type VertexFormat uint8

const (
	VertexFormatFloat32 VertexFormat = iota
	VertexFormatUint32
)

type VertexAttributeDesc struct {
	Location   uint32
	Binding    uint32
	Components int32
	Format     VertexFormat
	Offset     uint32
}

type VertexBufferDesc struct {
	Binding uint32
	Buffer  BufferHandle
	Stride  int32
	Divisor uint32
}

type VertexArrayDesc struct {
	Attributes  []VertexAttributeDesc
	Buffers     []VertexBufferDesc
	IndexBuffer BufferHandle
}

type ShaderSources struct {
	Vertex   string
	Fragment string
}

type TextureFormat uint8

const (
	TextureFormatRGBA8 TextureFormat = iota
	TextureFormatRGBA16F
	TextureFormatDepth32F
)

func (f TextureFormat) IsDepth() bool {
	return f == TextureFormatDepth32F
}

type TextureFilter uint8

const (
	TextureFilterLinear TextureFilter = iota
	TextureFilterNearest
)

type TextureWrap uint8

const (
	TextureWrapRepeat TextureWrap = iota
	TextureWrapClampToEdge
)

type TextureDesc struct {
	Width   int32
	Height  int32
	Format  TextureFormat
	Filter  TextureFilter
	Wrap    TextureWrap
	Mipmaps bool
	// Tightly packed RGBA8 pixels, or nil for an uninitialized attachment.
	Pixels []byte
}

type FramebufferDesc struct {
	ColorAttachments []TextureHandle
	DepthAttachment  TextureHandle
}

type CompareFunc uint8

const (
	CompareLess CompareFunc = iota
	CompareLessEqual
	CompareAlways
)

type CullMode uint8

const (
	CullBack CullMode = iota
	CullFront
	CullNone
)

type BlendMode uint8

const (
	BlendNone BlendMode = iota
	BlendAlpha
	BlendAdditive
)

type RasterState struct {
	DepthTest  bool
	DepthWrite bool
	DepthFunc  CompareFunc
	Cull       CullMode
	Blend      BlendMode
	Wireframe  bool
}

// DefaultRasterState is the stage-neutral state restored after every stage.
func DefaultRasterState() RasterState {
	return RasterState{
		DepthTest:  true,
		DepthWrite: true,
		DepthFunc:  CompareLess,
		Cull:       CullBack,
		Blend:      BlendNone,
	}
}

type ClearFlags uint8

const (
	ClearColor ClearFlags = 1 << iota
	ClearDepth
)

// Device is the set of GPU operations the renderer issues. All calls are
// made from the thread that owns the graphics context.
type Device interface {
	Limits() Limits

	// CreateMappedBuffer allocates immutable storage that stays mapped for
	// writing for its whole lifetime. The returned slice aliases the mapping.
	CreateMappedBuffer(target BufferTarget, size int) (BufferHandle, []byte, error)
	DeleteBuffer(buffer BufferHandle)
	BindBuffer(target BufferTarget, buffer BufferHandle)
	BindBufferRange(target BufferTarget, index uint32, buffer BufferHandle, offset, size int)

	// FenceSync inserts a fence after every command issued so far.
	FenceSync() SyncHandle
	// ClientWaitSync polls sync for up to timeoutNs. flush asks the driver
	// to submit pending commands first so the fence can make progress.
	ClientWaitSync(sync SyncHandle, flush bool, timeoutNs uint64) WaitStatus
	DeleteSync(sync SyncHandle)

	CreateVertexArray(desc VertexArrayDesc) (VertexArrayHandle, error)
	BindVertexArray(vao VertexArrayHandle)
	DeleteVertexArray(vao VertexArrayHandle)

	CreateProgram(sources ShaderSources) (ProgramHandle, error)
	UseProgram(program ProgramHandle)
	DeleteProgram(program ProgramHandle)

	CreateTexture(desc TextureDesc) (TextureHandle, error)
	DeleteTexture(texture TextureHandle)
	BindTextureUnit(unit uint32, texture TextureHandle)
	// ResidentHandle returns a bindless handle shaders can sample through.
	ResidentHandle(texture TextureHandle) uint64
	ReleaseResidentHandle(handle uint64)

	CreateFramebuffer(desc FramebufferDesc) (FramebufferHandle, error)
	DeleteFramebuffer(framebuffer FramebufferHandle)
	BindFramebuffer(framebuffer FramebufferHandle)
	Viewport(x, y, width, height int32)
	Clear(flags ClearFlags, color [4]float32)

	ApplyRasterState(state RasterState)

	// MultiDrawElementsIndirect draws triangles with 32-bit indices, reading
	// drawCount commands from the bound draw-indirect buffer at offset.
	MultiDrawElementsIndirect(offset int, drawCount int32, stride int32)
	DrawArrays(first, count int32)
}
