// Package gputest provides an in-memory gpu.Device that records the
// commands issued against it.
package gputest

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
)

// ErrCompile is returned by CreateProgram for sources containing FailCompileMarker.
var ErrCompile = errors.New("gputest: compile error")

const FailCompileMarker = "#error"

type Buffer struct {
	Target gpu.BufferTarget
	Data   []byte
}

type RangeBinding struct {
	Buffer gpu.BufferHandle
	Offset int
	Size   int
}

// Draw is one recorded draw call with the state bound when it was issued.
type Draw struct {
	Indirect       bool
	Program        gpu.ProgramHandle
	Framebuffer    gpu.FramebufferHandle
	VertexArray    gpu.VertexArrayHandle
	IndirectBuffer gpu.BufferHandle
	Offset         int
	DrawCount      int32
	Stride         int32
	First          int32
	Count          int32
	Raster         gpu.RasterState
	Storage        map[uint32]RangeBinding
	Textures       map[uint32]gpu.TextureHandle
}

type fence struct {
	signaled bool
	polls    int
	held     bool
	deleted  bool
}

type Device struct {
	mu sync.Mutex

	limits gpu.Limits
	nextID uint32

	buffers      map[gpu.BufferHandle]*Buffer
	vertexArrays map[gpu.VertexArrayHandle]gpu.VertexArrayDesc
	programs     map[gpu.ProgramHandle]gpu.ShaderSources
	textures     map[gpu.TextureHandle]gpu.TextureDesc
	framebuffers map[gpu.FramebufferHandle]gpu.FramebufferDesc
	resident     map[uint64]gpu.TextureHandle

	fences    map[gpu.SyncHandle]*fence
	fenceSeq  []gpu.SyncHandle
	nextSync  gpu.SyncHandle
	holdNew   bool
	failWaits bool

	// SignalAfterPolls makes a fence report signaled on the poll after
	// this many unsuccessful ones. Zero signals on the first poll.
	SignalAfterPolls int

	bound       map[gpu.BufferTarget]gpu.BufferHandle
	ranges      map[uint32]RangeBinding
	units       map[uint32]gpu.TextureHandle
	program     gpu.ProgramHandle
	framebuffer gpu.FramebufferHandle
	vao         gpu.VertexArrayHandle
	raster      gpu.RasterState
	viewport    [4]int32
	draws       []Draw
	calls       []string
	clears      []gpu.FramebufferHandle
}

func NewDevice() *Device {
	return &Device{
		limits: gpu.Limits{
			StorageBufferOffsetAlignment: 256,
			MaxTextureSize:               16384,
		},
		buffers:      make(map[gpu.BufferHandle]*Buffer),
		vertexArrays: make(map[gpu.VertexArrayHandle]gpu.VertexArrayDesc),
		programs:     make(map[gpu.ProgramHandle]gpu.ShaderSources),
		textures:     make(map[gpu.TextureHandle]gpu.TextureDesc),
		framebuffers: make(map[gpu.FramebufferHandle]gpu.FramebufferDesc),
		resident:     make(map[uint64]gpu.TextureHandle),
		fences:       make(map[gpu.SyncHandle]*fence),
		bound:        make(map[gpu.BufferTarget]gpu.BufferHandle),
		ranges:       make(map[uint32]RangeBinding),
		units:        make(map[uint32]gpu.TextureHandle),
		raster:       gpu.DefaultRasterState(),
	}
}

func (d *Device) SetStorageAlignment(alignment int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.limits.StorageBufferOffsetAlignment = alignment
}

func (d *Device) id() uint32 {
	d.nextID++
	return d.nextID
}

func (d *Device) record(format string, args ...interface{}) {
	d.calls = append(d.calls, fmt.Sprintf(format, args...))
}

func (d *Device) Limits() gpu.Limits {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.limits
}

func (d *Device) CreateMappedBuffer(target gpu.BufferTarget, size int) (gpu.BufferHandle, []byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if size <= 0 {
		return 0, nil, fmt.Errorf("gputest: invalid buffer size %d", size)
	}
	h := gpu.BufferHandle(d.id())
	b := &Buffer{Target: target, Data: make([]byte, size)}
	d.buffers[h] = b
	d.record("CreateMappedBuffer(%s, %d)", target, size)
	return h, b.Data, nil
}

func (d *Device) DeleteBuffer(buffer gpu.BufferHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.buffers, buffer)
	d.record("DeleteBuffer(%d)", buffer)
}

func (d *Device) BindBuffer(target gpu.BufferTarget, buffer gpu.BufferHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bound[target] = buffer
	d.record("BindBuffer(%s, %d)", target, buffer)
}

func (d *Device) BindBufferRange(target gpu.BufferTarget, index uint32, buffer gpu.BufferHandle, offset, size int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ranges[index] = RangeBinding{Buffer: buffer, Offset: offset, Size: size}
	d.record("BindBufferRange(%s, %d, %d, %d, %d)", target, index, buffer, offset, size)
}

func (d *Device) FenceSync() gpu.SyncHandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextSync++
	s := d.nextSync
	d.fences[s] = &fence{held: d.holdNew}
	d.fenceSeq = append(d.fenceSeq, s)
	d.record("FenceSync() = %d", s)
	return s
}

func (d *Device) ClientWaitSync(sync gpu.SyncHandle, flush bool, timeoutNs uint64) gpu.WaitStatus {
	d.mu.Lock()
	f, ok := d.fences[sync]
	if !ok || f.deleted || d.failWaits {
		d.mu.Unlock()
		return gpu.WaitFailed
	}
	f.polls++
	if f.signaled {
		d.mu.Unlock()
		return gpu.WaitAlreadySignaled
	}
	if !f.held && f.polls > d.SignalAfterPolls {
		f.signaled = true
		d.mu.Unlock()
		return gpu.WaitConditionSatisfied
	}
	d.mu.Unlock()

	if timeoutNs > 0 {
		wait := time.Duration(timeoutNs)
		if wait > 200*time.Microsecond {
			wait = 200 * time.Microsecond
		}
		time.Sleep(wait)
	}
	return gpu.WaitTimeoutExpired
}

func (d *Device) DeleteSync(sync gpu.SyncHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if f, ok := d.fences[sync]; ok {
		f.deleted = true
	}
	d.record("DeleteSync(%d)", sync)
}

// HoldFences makes fences created from now on stay unsignaled until Signal.
func (d *Device) HoldFences(hold bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.holdNew = hold
}

// FailWaits makes every following ClientWaitSync report WaitFailed.
func (d *Device) FailWaits(fail bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failWaits = fail
}

func (d *Device) Signal(sync gpu.SyncHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if f, ok := d.fences[sync]; ok {
		f.signaled = true
	}
}

func (d *Device) SignalAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, f := range d.fences {
		f.signaled = true
	}
}

// Fences returns every fence created so far in creation order.
func (d *Device) Fences() []gpu.SyncHandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]gpu.SyncHandle(nil), d.fenceSeq...)
}

func (d *Device) Polls(sync gpu.SyncHandle) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if f, ok := d.fences[sync]; ok {
		return f.polls
	}
	return 0
}

func (d *Device) FenceDeleted(sync gpu.SyncHandle) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, ok := d.fences[sync]
	return ok && f.deleted
}

// LiveFences counts fences that were created and not yet deleted.
func (d *Device) LiveFences() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, f := range d.fences {
		if !f.deleted {
			n++
		}
	}
	return n
}

func (d *Device) CreateVertexArray(desc gpu.VertexArrayDesc) (gpu.VertexArrayHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h := gpu.VertexArrayHandle(d.id())
	d.vertexArrays[h] = desc
	d.record("CreateVertexArray() = %d", h)
	return h, nil
}

func (d *Device) BindVertexArray(vao gpu.VertexArrayHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.vao = vao
	d.record("BindVertexArray(%d)", vao)
}

func (d *Device) DeleteVertexArray(vao gpu.VertexArrayHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.vertexArrays, vao)
	d.record("DeleteVertexArray(%d)", vao)
}

func (d *Device) VertexArray(vao gpu.VertexArrayHandle) (gpu.VertexArrayDesc, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	desc, ok := d.vertexArrays[vao]
	return desc, ok
}

func (d *Device) CreateProgram(sources gpu.ShaderSources) (gpu.ProgramHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if sources.Vertex == "" || sources.Fragment == "" {
		return 0, fmt.Errorf("%w: missing stage", ErrCompile)
	}
	if strings.Contains(sources.Vertex, FailCompileMarker) || strings.Contains(sources.Fragment, FailCompileMarker) {
		return 0, ErrCompile
	}
	h := gpu.ProgramHandle(d.id())
	d.programs[h] = sources
	d.record("CreateProgram() = %d", h)
	return h, nil
}

func (d *Device) UseProgram(program gpu.ProgramHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.program = program
	d.record("UseProgram(%d)", program)
}

func (d *Device) DeleteProgram(program gpu.ProgramHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.programs, program)
	d.record("DeleteProgram(%d)", program)
}

func (d *Device) Program(program gpu.ProgramHandle) (gpu.ShaderSources, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	src, ok := d.programs[program]
	return src, ok
}

func (d *Device) CreateTexture(desc gpu.TextureDesc) (gpu.TextureHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if desc.Width <= 0 || desc.Height <= 0 {
		return 0, fmt.Errorf("gputest: invalid texture size %dx%d", desc.Width, desc.Height)
	}
	h := gpu.TextureHandle(d.id())
	d.textures[h] = desc
	d.record("CreateTexture(%dx%d) = %d", desc.Width, desc.Height, h)
	return h, nil
}

func (d *Device) DeleteTexture(texture gpu.TextureHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.textures, texture)
	d.record("DeleteTexture(%d)", texture)
}

func (d *Device) Texture(texture gpu.TextureHandle) (gpu.TextureDesc, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	desc, ok := d.textures[texture]
	return desc, ok
}

func (d *Device) BindTextureUnit(unit uint32, texture gpu.TextureHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.units[unit] = texture
	d.record("BindTextureUnit(%d, %d)", unit, texture)
}

func (d *Device) ResidentHandle(texture gpu.TextureHandle) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	handle := 0x1000_0000_0000 | uint64(texture)
	d.resident[handle] = texture
	return handle
}

func (d *Device) ReleaseResidentHandle(handle uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.resident, handle)
}

func (d *Device) CreateFramebuffer(desc gpu.FramebufferDesc) (gpu.FramebufferHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(desc.ColorAttachments) == 0 && desc.DepthAttachment == 0 {
		return 0, errors.New("gputest: framebuffer without attachments")
	}
	h := gpu.FramebufferHandle(d.id())
	d.framebuffers[h] = desc
	d.record("CreateFramebuffer() = %d", h)
	return h, nil
}

func (d *Device) DeleteFramebuffer(framebuffer gpu.FramebufferHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.framebuffers, framebuffer)
	d.record("DeleteFramebuffer(%d)", framebuffer)
}

func (d *Device) Framebuffer(framebuffer gpu.FramebufferHandle) (gpu.FramebufferDesc, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	desc, ok := d.framebuffers[framebuffer]
	return desc, ok
}

func (d *Device) BindFramebuffer(framebuffer gpu.FramebufferHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.framebuffer = framebuffer
	d.record("BindFramebuffer(%d)", framebuffer)
}

func (d *Device) Viewport(x, y, width, height int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.viewport = [4]int32{x, y, width, height}
	d.record("Viewport(%d, %d, %d, %d)", x, y, width, height)
}

func (d *Device) Clear(flags gpu.ClearFlags, color [4]float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clears = append(d.clears, d.framebuffer)
	d.record("Clear(%d)", flags)
}

func (d *Device) ApplyRasterState(state gpu.RasterState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.raster = state
	d.record("ApplyRasterState(%+v)", state)
}

func (d *Device) MultiDrawElementsIndirect(offset int, drawCount int32, stride int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	draw := d.snapshot()
	draw.Indirect = true
	draw.IndirectBuffer = d.bound[gpu.BufferTargetDrawIndirect]
	draw.Offset = offset
	draw.DrawCount = drawCount
	draw.Stride = stride
	d.draws = append(d.draws, draw)
	d.record("MultiDrawElementsIndirect(%d, %d, %d)", offset, drawCount, stride)
}

func (d *Device) DrawArrays(first, count int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	draw := d.snapshot()
	draw.First = first
	draw.Count = count
	d.draws = append(d.draws, draw)
	d.record("DrawArrays(%d, %d)", first, count)
}

func (d *Device) snapshot() Draw {
	storage := make(map[uint32]RangeBinding, len(d.ranges))
	for k, v := range d.ranges {
		storage[k] = v
	}
	units := make(map[uint32]gpu.TextureHandle, len(d.units))
	for k, v := range d.units {
		units[k] = v
	}
	return Draw{
		Program:     d.program,
		Framebuffer: d.framebuffer,
		VertexArray: d.vao,
		Raster:      d.raster,
		Storage:     storage,
		Textures:    units,
	}
}

// Buffer returns the mapped bytes of buffer.
func (d *Device) Buffer(buffer gpu.BufferHandle) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	if b, ok := d.buffers[buffer]; ok {
		return b.Data
	}
	return nil
}

func (d *Device) Draws() []Draw {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Draw(nil), d.draws...)
}

func (d *Device) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func (d *Device) Clears() []gpu.FramebufferHandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]gpu.FramebufferHandle(nil), d.clears...)
}

func (d *Device) StorageBinding(index uint32) (RangeBinding, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.ranges[index]
	return r, ok
}

func (d *Device) CurrentViewport() [4]int32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.viewport
}

// Reset forgets recorded draws and calls while keeping resources alive.
func (d *Device) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.draws = nil
	d.calls = nil
	d.clears = nil
}
